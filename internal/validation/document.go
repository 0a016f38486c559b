package validation

import (
	"errors"
	"fmt"
	"io/fs"
	"path/filepath"
	"strings"

	"github.com/spf13/afero"
	"gopkg.in/yaml.v3"

	"github.com/josephgoksu/featuregraph/internal/util"
)

// DocumentType selects the section and example rules a document is held to.
type DocumentType string

const (
	DocRequirements DocumentType = "requirements"
	DocDesign       DocumentType = "design"
	DocAPI          DocumentType = "api"
	DocArchitecture DocumentType = "architecture"
	DocUserGuide    DocumentType = "user_guide"
	DocTestPlan     DocumentType = "test_plan"
	DocReadme       DocumentType = "readme"
	DocGeneric      DocumentType = "generic"
)

// Document is the unit validators read. Validators must not modify it.
type Document struct {
	ID       string         `json:"id" yaml:"id"`
	Title    string         `json:"title,omitempty" yaml:"title"`
	Type     DocumentType   `json:"type" yaml:"type"`
	Version  string         `json:"version,omitempty" yaml:"version"`
	Related  []string       `json:"related,omitempty" yaml:"related"`
	Path     string         `json:"path,omitempty" yaml:"-"`
	Content  string         `json:"content" yaml:"-"`
	Metadata map[string]any `json:"metadata,omitempty" yaml:",inline"`
}

var errUnterminated = errors.New("unterminated front matter")

// splitFrontMatter separates a leading "---" delimited YAML block from the body.
func splitFrontMatter(data []byte) (front, body string, err error) {
	s := strings.ReplaceAll(string(data), "\r\n", "\n")
	if !strings.HasPrefix(s, "---\n") {
		return "", s, nil
	}
	rest := s[len("---\n"):]
	if strings.HasPrefix(rest, "---\n") {
		return "", rest[len("---\n"):], nil
	}
	if i := strings.Index(rest, "\n---\n"); i >= 0 {
		return rest[:i], rest[i+len("\n---\n"):], nil
	}
	if strings.HasSuffix(rest, "\n---") {
		return rest[:len(rest)-len("\n---")], "", nil
	}
	return "", "", errUnterminated
}

// ParseDocument reads optional YAML front matter delimited by "---" lines and
// returns the document with the remaining markdown as Content. Missing id and
// type are derived from the path.
func ParseDocument(path string, data []byte) (Document, error) {
	front, body, err := splitFrontMatter(data)
	if err != nil {
		return Document{}, fmt.Errorf("%s: %w", path, err)
	}
	var doc Document
	if strings.TrimSpace(front) != "" {
		if err := yaml.Unmarshal([]byte(front), &doc); err != nil {
			return Document{}, fmt.Errorf("%s: front matter: %w", path, err)
		}
	}
	doc.Path = path
	doc.Content = body
	if doc.ID == "" {
		doc.ID = DocumentID(path)
	}
	if doc.Type == "" {
		doc.Type = InferType(path)
	}
	if doc.Title == "" {
		doc.Title = firstHeading(doc.Content)
	}
	return doc, nil
}

// DocumentID derives a stable id from a file path.
func DocumentID(path string) string {
	base := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	return "doc-" + util.Slug(base)
}

// InferType guesses the document type from its file name.
func InferType(path string) DocumentType {
	name := strings.ToLower(filepath.Base(path))
	switch {
	case strings.HasPrefix(name, "readme"):
		return DocReadme
	case strings.Contains(name, "requirement") || strings.Contains(name, "prd"):
		return DocRequirements
	case strings.Contains(name, "architecture") || strings.Contains(name, "adr"):
		return DocArchitecture
	case strings.Contains(name, "design"):
		return DocDesign
	case strings.Contains(name, "api"):
		return DocAPI
	case strings.Contains(name, "guide") || strings.Contains(name, "manual"):
		return DocUserGuide
	case strings.Contains(name, "test"):
		return DocTestPlan
	}
	return DocGeneric
}

func firstHeading(content string) string {
	for _, line := range strings.Split(content, "\n") {
		if t := strings.TrimSpace(line); strings.HasPrefix(t, "# ") {
			return strings.TrimSpace(t[2:])
		}
	}
	return ""
}

// Loader reads documents from a filesystem.
type Loader struct {
	fs afero.Fs
}

// NewLoader returns a Loader over fs; nil means the OS filesystem.
func NewLoader(fs afero.Fs) *Loader {
	if fs == nil {
		fs = afero.NewOsFs()
	}
	return &Loader{fs: fs}
}

// Load reads and parses one document.
func (l *Loader) Load(path string) (Document, error) {
	data, err := afero.ReadFile(l.fs, path)
	if err != nil {
		return Document{}, fmt.Errorf("read document: %w", err)
	}
	return ParseDocument(path, data)
}

// Expand turns files and directories into markdown file paths. Directories
// are walked recursively.
func (l *Loader) Expand(paths []string) ([]string, error) {
	var out []string
	for _, p := range paths {
		isDir, err := afero.IsDir(l.fs, p)
		if err != nil {
			return nil, fmt.Errorf("stat %s: %w", p, err)
		}
		if !isDir {
			out = append(out, p)
			continue
		}
		err = afero.Walk(l.fs, p, func(path string, info fs.FileInfo, err error) error {
			if err != nil {
				return err
			}
			if !info.IsDir() && IsMarkdown(path) {
				out = append(out, path)
			}
			return nil
		})
		if err != nil {
			return nil, fmt.Errorf("walk %s: %w", p, err)
		}
	}
	return out, nil
}

// IsMarkdown reports whether path has a markdown extension.
func IsMarkdown(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".md", ".markdown", ".mdx":
		return true
	}
	return false
}
