package policy

import (
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/spf13/afero"
)

// Source is one Rego module.
type Source struct {
	Name   string `json:"name"`
	Path   string `json:"path"`
	Module string `json:"module"`
}

func isPolicyFile(name string) bool {
	return filepath.Ext(name) == ".rego" && !strings.HasSuffix(name, "_test.rego")
}

// LoadSources reads every .rego file under dir, recursively, in path order.
// OPA unit test files are skipped. A missing dir yields no sources.
func LoadSources(fs afero.Fs, dir string) ([]Source, error) {
	if ok, err := afero.DirExists(fs, dir); err != nil {
		return nil, fmt.Errorf("stat %s: %w", dir, err)
	} else if !ok {
		return nil, nil
	}

	var paths []string
	walk := func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if !info.IsDir() && isPolicyFile(info.Name()) {
			paths = append(paths, path)
		}
		return nil
	}
	if err := afero.Walk(fs, dir, walk); err != nil {
		return nil, fmt.Errorf("scan %s: %w", dir, err)
	}
	slices.Sort(paths)

	sources := make([]Source, 0, len(paths))
	for _, p := range paths {
		data, err := afero.ReadFile(fs, p)
		if err != nil {
			return nil, fmt.Errorf("read policy: %w", err)
		}
		sources = append(sources, Source{
			Name:   strings.TrimSuffix(filepath.Base(p), ".rego"),
			Path:   p,
			Module: string(data),
		})
	}
	return sources, nil
}
