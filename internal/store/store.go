// Package store persists the crawled catalog and merges newly fetched items
// and episodes into it across runs.
package store

import (
	"cmp"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"path/filepath"
	"slices"
	"strings"
	"sync"

	"github.com/samber/lo"
	"github.com/spf13/afero"
	"go.yaml.in/yaml/v3"

	"github.com/stupside/showcrawl/internal/catalog"
)

// Store maps item identity to item. It is safe for concurrent use.
type Store struct {
	fs   afero.Fs
	path string

	mu    sync.Mutex
	items map[string]*catalog.Item
	dirty bool
}

// Open loads the store at path. A missing file yields an empty store; a
// malformed file is logged and also yields an empty store.
func Open(fsys afero.Fs, path string) *Store {
	s := &Store{
		fs:    fsys,
		path:  path,
		items: make(map[string]*catalog.Item),
	}

	data, err := afero.ReadFile(fsys, path)
	if err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			slog.Warn("store: reading file failed, starting empty", "path", path, "error", err)
		} else {
			slog.Debug("store: no existing file, starting empty", "path", path)
		}
		return s
	}

	var items []catalog.Item
	if err := s.decode(data, &items); err != nil {
		slog.Warn("store: malformed file, starting empty", "path", path, "error", err)
		return s
	}

	for _, it := range items {
		if it.Identity == "" {
			slog.Warn("store: skipping record without identity", "title", it.Title)
			continue
		}
		if existing, ok := s.items[it.Identity]; ok {
			mergeEpisodes(existing, it.Episodes)
			continue
		}
		item := normalize(it)
		s.items[it.Identity] = &item
	}

	slog.Debug("store: loaded", "path", path, "items", len(s.items))
	return s
}

// Path returns the backing file path.
func (s *Store) Path() string {
	return s.path
}

// Len returns the number of items.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.items)
}

// Has reports whether an item with the given identity exists.
func (s *Store) Has(identity string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.items[identity]
	return ok
}

// Get returns a copy of the item with the given identity.
func (s *Store) Get(identity string) (catalog.Item, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	it, ok := s.items[identity]
	if !ok {
		return catalog.Item{}, false
	}
	return clone(*it), true
}

// Put creates the item when its identity is unseen. Existing items are left
// untouched so metadata and episodes are never overwritten. It reports
// whether the item was created.
func (s *Store) Put(item catalog.Item) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.items[item.Identity]; ok {
		return false
	}
	it := normalize(clone(item))
	s.items[item.Identity] = &it
	s.dirty = true
	return true
}

// Indexes returns the episode indexes already stored for an item.
func (s *Store) Indexes(identity string) map[int]struct{} {
	s.mu.Lock()
	defer s.mu.Unlock()
	it, ok := s.items[identity]
	if !ok {
		return map[int]struct{}{}
	}
	return it.Indexes()
}

// Merge appends episodes whose index is not yet stored for the item and
// keeps episodes ordered by index. Stored episodes are never replaced. It
// returns the number of episodes added.
func (s *Store) Merge(identity string, episodes []catalog.Episode) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	it, ok := s.items[identity]
	if !ok {
		return 0, fmt.Errorf("merging into unknown item %q", identity)
	}
	added := mergeEpisodes(it, episodes)
	if added > 0 {
		s.dirty = true
	}
	return added, nil
}

// Items returns copies of all items ordered by title, then identity.
func (s *Store) Items() []catalog.Item {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sorted()
}

// Dirty reports whether there are unsaved changes.
func (s *Store) Dirty() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.dirty
}

// Save writes the whole store atomically: the serialized catalog goes to a
// temporary file in the same directory which then replaces the target.
func (s *Store) Save() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := s.encode(s.sorted())
	if err != nil {
		return fmt.Errorf("encoding store: %w", err)
	}

	dir := filepath.Dir(s.path)
	if err := s.fs.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating store directory %s: %w", dir, err)
	}

	tmp, err := afero.TempFile(s.fs, dir, filepath.Base(s.path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("creating temporary store file: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = s.fs.Remove(tmpName)
		return fmt.Errorf("writing %s: %w", tmpName, err)
	}
	if err := tmp.Close(); err != nil {
		_ = s.fs.Remove(tmpName)
		return fmt.Errorf("closing %s: %w", tmpName, err)
	}
	if err := s.fs.Rename(tmpName, s.path); err != nil {
		_ = s.fs.Remove(tmpName)
		return fmt.Errorf("replacing %s: %w", s.path, err)
	}

	s.dirty = false
	slog.Debug("store: saved", "path", s.path, "items", len(s.items), "bytes", len(data))
	return nil
}

func (s *Store) sorted() []catalog.Item {
	items := lo.MapToSlice(s.items, func(_ string, it *catalog.Item) catalog.Item {
		return clone(*it)
	})
	slices.SortFunc(items, func(a, b catalog.Item) int {
		return cmp.Or(cmp.Compare(a.Title, b.Title), cmp.Compare(a.Identity, b.Identity))
	})
	return items
}

func (s *Store) isYAML() bool {
	ext := strings.ToLower(filepath.Ext(s.path))
	return ext == ".yaml" || ext == ".yml"
}

func (s *Store) decode(data []byte, items *[]catalog.Item) error {
	if s.isYAML() {
		return yaml.Unmarshal(data, items)
	}
	return json.Unmarshal(data, items)
}

func (s *Store) encode(items []catalog.Item) ([]byte, error) {
	if s.isYAML() {
		return yaml.Marshal(items)
	}
	data, err := json.MarshalIndent(items, "", "    ")
	if err != nil {
		return nil, err
	}
	return append(data, '\n'), nil
}

// mergeEpisodes adds episodes with an unseen index to it. Episodes without a
// derivable index are ignored.
func mergeEpisodes(it *catalog.Item, episodes []catalog.Episode) int {
	seen := it.Indexes()
	added := 0
	for _, ep := range episodes {
		idx, ok := ep.Index()
		if !ok {
			slog.Warn("store: episode label has no index, skipping", "title", it.Title, "episode", ep.Label)
			continue
		}
		if _, dup := seen[idx]; dup {
			continue
		}
		seen[idx] = struct{}{}
		ep.Sources = slices.Clone(ep.Sources)
		if ep.Sources == nil {
			ep.Sources = []catalog.Source{}
		}
		it.Episodes = append(it.Episodes, ep)
		added++
	}
	if added > 0 {
		catalog.SortEpisodes(it.Episodes)
	}
	return added
}

// normalize fills nil collections so the serialized form never carries null,
// and orders episodes by index.
func normalize(it catalog.Item) catalog.Item {
	if it.Episodes == nil {
		it.Episodes = []catalog.Episode{}
	}
	if it.Metadata.Genres == nil {
		it.Metadata.Genres = []string{}
	}
	for i := range it.Episodes {
		if it.Episodes[i].Sources == nil {
			it.Episodes[i].Sources = []catalog.Source{}
		}
	}
	catalog.SortEpisodes(it.Episodes)
	return it
}

func clone(it catalog.Item) catalog.Item {
	it.Tags = slices.Clone(it.Tags)
	it.Metadata.Genres = slices.Clone(it.Metadata.Genres)
	eps := make([]catalog.Episode, len(it.Episodes))
	for i, ep := range it.Episodes {
		ep.Sources = slices.Clone(ep.Sources)
		eps[i] = ep
	}
	it.Episodes = eps
	return it
}
