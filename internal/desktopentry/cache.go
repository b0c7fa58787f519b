package desktopentry

import (
	"errors"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/lithammer/fuzzysearch/fuzzy"
)

// Cache holds every application entry found in a set of directories.
// Earlier directories shadow later ones with the same file id.
type Cache struct {
	mu      sync.RWMutex
	logger  *slog.Logger
	dirs    []string
	entries map[string]*Entry
}

// NewCache creates an empty cache over dirs. Call Load to populate it.
func NewCache(dirs []string, logger *slog.Logger) *Cache {
	if logger == nil {
		logger = slog.Default()
	}
	return &Cache{
		logger:  logger,
		dirs:    dirs,
		entries: make(map[string]*Entry),
	}
}

// Dirs returns the directories the cache reads.
func (c *Cache) Dirs() []string {
	return c.dirs
}

// Load rescans every directory. Unreadable files are skipped.
func (c *Cache) Load() error {
	entries := make(map[string]*Entry)

	for _, dir := range c.dirs {
		err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				if errors.Is(err, fs.ErrNotExist) {
					return fs.SkipDir
				}
				return err
			}
			if d.IsDir() || !strings.HasSuffix(path, ".desktop") {
				return nil
			}

			id := FileID(dir, path)
			if _, shadowed := entries[id]; shadowed {
				return nil
			}
			e, perr := ParseFile(path, id)
			if perr != nil {
				if !errors.Is(perr, ErrNotApplication) {
					c.logger.Debug("skipping desktop entry", "path", path, "error", perr)
				}
				return nil
			}
			entries[id] = e
			return nil
		})
		if err != nil && !errors.Is(err, os.ErrNotExist) {
			c.logger.Warn("failed to scan applications directory", "dir", dir, "error", err)
		}
	}

	c.mu.Lock()
	c.entries = entries
	c.mu.Unlock()

	c.logger.Debug("desktop entries loaded", "count", len(entries))
	return nil
}

// Add inserts or replaces a single entry.
func (c *Cache) Add(e *Entry) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[e.ID] = e
}

// Len returns the number of entries.
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

// Get returns the entry with the exact desktop file id.
func (c *Cache) Get(id string) (*Entry, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	e, ok := c.entries[id]
	return e, ok
}

// Lookup resolves a window app id to an entry. It tries, in order: the file
// id, the last component of a reverse-DNS file id, StartupWMClass, Name, and
// finally a fuzzy match over file ids and names.
func (c *Cache) Lookup(appID string) (*Entry, bool) {
	if appID == "" {
		return nil, false
	}

	c.mu.RLock()
	defer c.mu.RUnlock()

	if e, ok := c.entries[appID]; ok {
		return e, true
	}

	ids := c.sortedIDs()
	for _, id := range ids {
		if strings.EqualFold(id, appID) {
			return c.entries[id], true
		}
	}
	for _, id := range ids {
		if i := strings.LastIndexByte(id, '.'); i >= 0 && strings.EqualFold(id[i+1:], appID) {
			return c.entries[id], true
		}
	}
	for _, id := range ids {
		if strings.EqualFold(c.entries[id].StartupWMClass, appID) {
			return c.entries[id], true
		}
	}
	for _, id := range ids {
		if strings.EqualFold(c.entries[id].Name, appID) {
			return c.entries[id], true
		}
	}

	return c.fuzzyLocked(appID, ids)
}

func (c *Cache) fuzzyLocked(appID string, ids []string) (*Entry, bool) {
	targets := make([]string, 0, len(ids)*2)
	owners := make([]string, 0, len(ids)*2)
	for _, id := range ids {
		targets = append(targets, id)
		owners = append(owners, id)
		if name := c.entries[id].Name; name != "" {
			targets = append(targets, name)
			owners = append(owners, id)
		}
	}

	ranks := fuzzy.RankFindNormalizedFold(appID, targets)
	if len(ranks) == 0 {
		return nil, false
	}
	sort.Stable(ranks)
	return c.entries[owners[ranks[0].OriginalIndex]], true
}

// Search returns visible entries whose id or name fuzzy-matches query, best first.
func (c *Cache) Search(query string) []*Entry {
	c.mu.RLock()
	defer c.mu.RUnlock()

	var visible []*Entry
	var names []string
	for _, id := range c.sortedIDs() {
		e := c.entries[id]
		if e.NoDisplay {
			continue
		}
		visible = append(visible, e)
		names = append(names, e.Name+" "+e.ID)
	}
	if query == "" {
		return visible
	}

	ranks := fuzzy.RankFindNormalizedFold(query, names)
	sort.Stable(ranks)
	out := make([]*Entry, 0, len(ranks))
	for _, r := range ranks {
		out = append(out, visible[r.OriginalIndex])
	}
	return out
}

func (c *Cache) sortedIDs() []string {
	ids := make([]string, 0, len(c.entries))
	for id := range c.entries {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}
