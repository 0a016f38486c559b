// Package tags normalizes free-text feature tags and keeps a frequency cache
// so repeated mentions of the same concept collapse onto one canonical form.
package tags

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"slices"
	"sort"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/agnivade/levenshtein"
	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/spf13/afero"
)

const normalizeMemoSize = 4096

var (
	separatorRe = regexp.MustCompile(`[\s\-_/]+`)
	nonWordRe   = regexp.MustCompile(`[^\p{L}\p{N}\s]+`)
	symbolNames = strings.NewReplacer("c++", "cpp", "c#", "csharp", "f#", "fsharp")
)

// Entry is one canonical tag in the frequency cache.
type Entry struct {
	Original   string    `json:"original"`
	Normalized string    `json:"normalized"`
	Count      int       `json:"count"`
	Domains    []string  `json:"domains"`
	CreatedAt  time.Time `json:"created_at"`
}

// Options configures a Manager. With an empty CachePath the cache lives only
// in memory.
type Options struct {
	Fs        afero.Fs
	CachePath string
	Lemmatize bool
}

// Manager owns the tag frequency cache. It is safe for concurrent use.
type Manager struct {
	mu        sync.RWMutex
	entries   map[string]*Entry
	memo      *lru.Cache[string, string]
	lemmatize bool
	fs        afero.Fs
	path      string
	now       func() time.Time
}

// NewManager builds a Manager and loads the cache file if one is configured.
// A cache that cannot be read is logged and replaced by an empty one.
func NewManager(opts Options) *Manager {
	memo, _ := lru.New[string, string](normalizeMemoSize)
	fs := opts.Fs
	if fs == nil {
		fs = afero.NewOsFs()
	}
	m := &Manager{
		entries:   make(map[string]*Entry),
		memo:      memo,
		lemmatize: opts.Lemmatize,
		fs:        fs,
		path:      opts.CachePath,
		now:       time.Now,
	}
	if m.path != "" {
		if err := m.Load(); err != nil {
			slog.Warn("tag cache unreadable, starting empty", "path", m.path, "error", err)
		}
	}
	return m
}

// Normalize lowercases the tag, strips trailing periods and non-word
// characters, and singularizes each word that is not a stop-word. Words are
// joined with "-". Normalize(Normalize(x)) == Normalize(x).
func (m *Manager) Normalize(tag string) string {
	if v, ok := m.memo.Get(tag); ok {
		return v
	}
	s := strings.ToLower(strings.TrimSpace(tag))
	s = strings.TrimRight(s, ".")
	s = symbolNames.Replace(s)
	s = separatorRe.ReplaceAllString(s, " ")
	s = nonWordRe.ReplaceAllString(s, "")

	words := strings.Fields(s)
	if m.lemmatize {
		for i, w := range words {
			words[i] = lemmatize(w)
		}
	}
	out := strings.Join(words, "-")
	m.memo.Add(tag, out)
	return out
}

// IsSimilar reports whether two tags name the same concept: equal normalized
// forms, one form containing the other, or, when both forms are longer than
// three characters, an edit distance of at most a third of the shorter form.
func (m *Manager) IsSimilar(a, b string) bool {
	_, ok := m.similarity(m.Normalize(a), m.Normalize(b))
	return ok
}

type matchKind int

const (
	matchExact matchKind = iota
	matchEdit
	matchContains
)

func (m *Manager) similarity(na, nb string) (matchKind, bool) {
	if na == "" || nb == "" {
		return 0, false
	}
	if na == nb {
		return matchExact, true
	}
	la, lb := utf8.RuneCountInString(na), utf8.RuneCountInString(nb)
	if la > 3 && lb > 3 && levenshtein.ComputeDistance(na, nb) <= min(la, lb)/3 {
		return matchEdit, true
	}
	if la < lb {
		na, nb, lb = nb, na, la
	}
	if contains(na, nb, lb) {
		return matchContains, true
	}
	return 0, false
}

// contains reports whether form holds part. Parts of three characters or
// fewer must sit on word boundaries, so "ui" matches "ui-design" but not
// "build".
func contains(form, part string, partLen int) bool {
	if partLen > 3 {
		return strings.Contains(form, part)
	}
	return strings.Contains("-"+form+"-", "-"+part+"-")
}

// AddTag records count mentions of tag under domain and returns its
// normalized form. Tags that normalize to "" are ignored.
func (m *Manager) AddTag(tag, domain string, count int) string {
	n := m.Normalize(tag)
	if n == "" {
		return ""
	}
	if count < 1 {
		count = 1
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.upsertLocked(strings.TrimSpace(tag), n, domain, count)
	return n
}

func (m *Manager) upsertLocked(original, normalized, domain string, count int) {
	e, ok := m.entries[normalized]
	if !ok {
		e = &Entry{Original: original, Normalized: normalized, CreatedAt: m.now().UTC()}
		m.entries[normalized] = e
	}
	e.Count += count
	if d := strings.TrimSpace(domain); d != "" && !slices.Contains(e.Domains, d) {
		e.Domains = append(e.Domains, d)
		sort.Strings(e.Domains)
	}
}

// ProcessTags maps each tag onto the most reused similar form already in the
// cache, registering new forms as it goes. A tag that only overlaps an
// existing form by containment is kept alongside it. The result holds no
// duplicates and keeps first-seen order.
func (m *Manager) ProcessTags(tags []string, domain string) []string {
	m.mu.Lock()
	defer m.mu.Unlock()

	var out []string
	seen := make(map[string]bool)
	emit := func(n string) {
		if !seen[n] {
			seen[n] = true
			out = append(out, n)
		}
	}
	for _, tag := range tags {
		n := m.Normalize(tag)
		if n == "" {
			continue
		}
		canonical, kind, found := m.bestMatchLocked(n)
		if !found {
			m.upsertLocked(strings.TrimSpace(tag), n, domain, 1)
			emit(n)
			continue
		}
		m.upsertLocked(m.entries[canonical].Original, canonical, domain, 1)
		emit(canonical)
		if kind == matchContains {
			m.upsertLocked(strings.TrimSpace(tag), n, domain, 1)
			emit(n)
		}
	}
	return out
}

// bestMatchLocked prefers an exact hit, then the most used similar entry;
// ties go to the shorter, then lexically smaller, form.
func (m *Manager) bestMatchLocked(n string) (string, matchKind, bool) {
	if _, ok := m.entries[n]; ok {
		return n, matchExact, true
	}
	var (
		best     *Entry
		bestKind matchKind
	)
	for key, e := range m.entries {
		kind, ok := m.similarity(n, key)
		if !ok {
			continue
		}
		if best == nil || better(e, kind, best, bestKind) {
			best, bestKind = e, kind
		}
	}
	if best == nil {
		return "", 0, false
	}
	return best.Normalized, bestKind, true
}

func better(e *Entry, kind matchKind, cur *Entry, curKind matchKind) bool {
	if kind != curKind {
		return kind < curKind
	}
	if e.Count != cur.Count {
		return e.Count > cur.Count
	}
	if len(e.Normalized) != len(cur.Normalized) {
		return len(e.Normalized) < len(cur.Normalized)
	}
	return e.Normalized < cur.Normalized
}

// Get returns a copy of the cache entry for a normalized tag.
func (m *Manager) Get(normalized string) (Entry, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	e, ok := m.entries[normalized]
	if !ok {
		return Entry{}, false
	}
	c := *e
	c.Domains = slices.Clone(e.Domains)
	return c, true
}

// Top returns up to n entries by descending count. n <= 0 returns all.
func (m *Manager) Top(n int) []Entry {
	m.mu.RLock()
	out := make([]Entry, 0, len(m.entries))
	for _, e := range m.entries {
		c := *e
		c.Domains = slices.Clone(e.Domains)
		out = append(out, c)
	}
	m.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].Normalized < out[j].Normalized
	})
	if n > 0 && len(out) > n {
		out = out[:n]
	}
	return out
}

// Len returns the number of distinct normalized tags.
func (m *Manager) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.entries)
}

// Load replaces the cache with the contents of the cache file. A missing file
// leaves the cache empty.
func (m *Manager) Load() error {
	if m.path == "" {
		return nil
	}
	data, err := afero.ReadFile(m.fs, m.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("read tag cache: %w", err)
	}
	var entries map[string]*Entry
	if err := json.Unmarshal(data, &entries); err != nil {
		return fmt.Errorf("parse tag cache: %w", err)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries = make(map[string]*Entry, len(entries))
	for key, e := range entries {
		if e == nil || key == "" {
			continue
		}
		e.Normalized = key
		if e.Count < 1 {
			e.Count = 1
		}
		m.entries[key] = e
	}
	return nil
}

// Save writes the cache file. Failures are logged and returned.
func (m *Manager) Save() error {
	if m.path == "" {
		return nil
	}
	m.mu.RLock()
	data, err := json.MarshalIndent(m.entries, "", "  ")
	m.mu.RUnlock()
	if err != nil {
		return fmt.Errorf("marshal tag cache: %w", err)
	}
	if err := m.fs.MkdirAll(filepath.Dir(m.path), 0o755); err != nil {
		slog.Warn("tag cache directory not writable", "path", m.path, "error", err)
		return fmt.Errorf("create tag cache directory: %w", err)
	}
	if err := afero.WriteFile(m.fs, m.path, data, 0o644); err != nil {
		slog.Warn("tag cache not saved", "path", m.path, "error", err)
		return fmt.Errorf("write tag cache: %w", err)
	}
	return nil
}
