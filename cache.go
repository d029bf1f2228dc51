package tspaths

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sort"
	"sync"

	"github.com/fsnotify/fsnotify"
	"github.com/sirupsen/logrus"

	"github.com/jward/tspaths/internal/tsconfig"
)

// CachedTable is a built Table together with the config it came from.
type CachedTable struct {
	Table  *Table
	Config *tsconfig.Config
}

// TableLoader builds the table for one config file.
type TableLoader func(ctx context.Context, configPath string) (*CachedTable, error)

// TableCache memoizes one Table per config file and the nearest config for
// each importer directory. The owner controls its lifetime; tables handed
// out are immutable and may be shared freely.
type TableCache struct {
	names []string
	load  TableLoader
	log   *logrus.Entry

	mu     sync.RWMutex
	tables map[string]*CachedTable
	dirs   map[string]string // importer dir -> config path ("" when none)

	// watch receives config paths as they are loaded so Watch can add them.
	watch chan string
}

// NewTableCache returns an empty cache that discovers configs named one of
// names and builds tables with load.
func NewTableCache(names []string, load TableLoader, log *logrus.Entry) *TableCache {
	if log == nil {
		log = discardLogger()
	}
	return &TableCache{
		names:  append([]string(nil), names...),
		load:   load,
		log:    log,
		tables: make(map[string]*CachedTable),
		dirs:   make(map[string]string),
		watch:  make(chan string, 64),
	}
}

// ConfigFor returns the nearest config path for a file, or "" when the file
// has no config above it.
func (c *TableCache) ConfigFor(importer string) (string, error) {
	return c.ConfigForDir(filepath.Dir(importer))
}

// ConfigForDir returns the nearest config path at or above dir, or "" when
// there is none.
func (c *TableCache) ConfigForDir(dir string) (string, error) {
	c.mu.RLock()
	cfg, ok := c.dirs[dir]
	c.mu.RUnlock()
	if ok {
		return cfg, nil
	}

	cfg, err := tsconfig.Find(dir, c.names)
	if err != nil {
		if !isNotFound(err) {
			return "", fmt.Errorf("tspaths: find config for %s: %w", dir, err)
		}
		cfg = ""
	}

	c.mu.Lock()
	c.dirs[dir] = cfg
	c.mu.Unlock()
	return cfg, nil
}

// Get returns the table that applies to importer. It returns (nil, nil) when
// no config exists above the importer.
func (c *TableCache) Get(ctx context.Context, importer string) (*CachedTable, error) {
	cfgPath, err := c.ConfigFor(importer)
	if err != nil || cfgPath == "" {
		return nil, err
	}
	return c.GetConfig(ctx, cfgPath)
}

// GetConfig returns the table for a config file, building it on first use.
func (c *TableCache) GetConfig(ctx context.Context, cfgPath string) (*CachedTable, error) {
	c.mu.RLock()
	ct, ok := c.tables[cfgPath]
	c.mu.RUnlock()
	if ok {
		return ct, nil
	}

	ct, err := c.load(ctx, cfgPath)
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	// Another goroutine may have built it meanwhile; keep the first one so
	// every caller shares a single Table.
	if existing, ok := c.tables[cfgPath]; ok {
		c.mu.Unlock()
		return existing, nil
	}
	c.tables[cfgPath] = ct
	c.mu.Unlock()

	c.log.WithFields(logrus.Fields{"config": cfgPath, "aliases": ct.Table.Len()}).Debug("Loaded alias table.")
	if ct.Config != nil {
		for _, p := range ct.Config.Chain {
			select {
			case c.watch <- p:
			default:
			}
		}
	}
	return ct, nil
}

// Invalidate drops every table whose config chain includes path, and every
// memoized directory lookup. It returns the config paths that were evicted.
func (c *TableCache) Invalidate(path string) []string {
	c.mu.Lock()
	defer c.mu.Unlock()

	var evicted []string
	for key, ct := range c.tables {
		if key == path || (ct.Config != nil && contains(ct.Config.Chain, path)) {
			delete(c.tables, key)
			evicted = append(evicted, key)
		}
	}
	sort.Strings(evicted)
	// A created or removed config can change which config is nearest.
	c.dirs = make(map[string]string)
	return evicted
}

// Len returns the number of cached tables.
func (c *TableCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.tables)
}

// Watch evicts cached tables when one of their config files changes. It
// also watches the directories of loaded configs so a newly created config
// resets directory lookups. onChange, if non-nil, is called after each
// change with the config paths that were evicted. Watch blocks until ctx is
// done.
func (c *TableCache) Watch(ctx context.Context, onChange func(path string, evicted []string)) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("tspaths: create watcher: %w", err)
	}
	defer watcher.Close()

	watched := map[string]bool{}
	add := func(p string) {
		dir := filepath.Dir(p)
		if watched[dir] {
			return
		}
		if err := watcher.Add(dir); err != nil {
			c.log.WithError(err).WithField("dir", dir).Warn("Could not watch config directory.")
			return
		}
		watched[dir] = true
	}

	c.mu.RLock()
	for _, ct := range c.tables {
		if ct.Config != nil {
			for _, p := range ct.Config.Chain {
				add(p)
			}
		}
	}
	c.mu.RUnlock()

	for {
		select {
		case <-ctx.Done():
			return nil
		case p := <-c.watch:
			add(p)
		case ev, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if !c.isConfigFile(ev.Name) {
				continue
			}
			if ev.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Remove|fsnotify.Rename) == 0 {
				continue
			}
			evicted := c.Invalidate(ev.Name)
			c.log.WithFields(logrus.Fields{"config": ev.Name, "op": ev.Op.String(), "evicted": len(evicted)}).Info("Config changed.")
			if onChange != nil {
				onChange(ev.Name, evicted)
			}
		case werr, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			c.log.WithError(werr).Warn("Watcher error.")
		}
	}
}

// isConfigFile reports whether path is a config the cache cares about: a
// file with one of the configured names, or any file in a loaded extends
// chain. Other JSON files such as package.json are ignored.
func (c *TableCache) isConfigFile(path string) bool {
	if contains(c.names, filepath.Base(path)) {
		return true
	}
	c.mu.RLock()
	defer c.mu.RUnlock()
	for _, ct := range c.tables {
		if ct.Config != nil && contains(ct.Config.Chain, path) {
			return true
		}
	}
	return false
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

func isNotFound(err error) bool {
	return errors.Is(err, tsconfig.ErrNotFound)
}
