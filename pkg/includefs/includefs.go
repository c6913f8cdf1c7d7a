// Package includefs resolves and caches "#include" search results.
//
// It reuses a mutex-guarded map-of-entries-with-dedup-tracking shape,
// repurposed from an in-memory read/write disk for a CPU emulator into a
// read-only, resolve-once cache for header search paths. The write path
// (disk quota, dirty-sync ticker) has no analogue here — a compiler never
// writes back to a header — so only the read/dedup half survives.
package includefs

import (
	"fmt"
	"path/filepath"
	"sync"

	"golang.org/x/sync/singleflight"
	"golang.org/x/sys/unix"
)

// Cache interns resolved absolute include paths and remembers which ones
// have already been included once: the absolute path is interned, and a
// repeat inclusion is a silent no-op.
//
// Resolution is funneled through a singleflight.Group so that if a future
// driver ever processes translation units concurrently, two goroutines
// racing to resolve the same "vfs.h" collapse into a single filesystem
// probe rather than doing the directory walk twice.
type Cache struct {
	mu   sync.RWMutex
	seen map[string]bool

	group singleflight.Group
}

// New returns an empty Cache.
func New() *Cache {
	return &Cache{seen: make(map[string]bool)}
}

// AlreadyIncluded reports whether absPath has been included before, and if
// not, atomically marks it as included from now on. It is the single choke
// point that makes repeat #include of the same header a no-op.
func (c *Cache) AlreadyIncluded(absPath string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.seen[absPath] {
		return true
	}
	c.seen[absPath] = true
	return false
}

// Resolve finds the first candidate directory in dirs that contains name and
// is readable, using unix.Access rather than os.Stat so the check matches
// what the eventual os.ReadFile will actually be permitted to do, favoring
// direct, low-level path operations on Linux via golang.org/x/sys/unix
// rather than a portable os.Stat-based fallback, since the whole compiler
// is Linux/x86-64 only.
//
// Concurrent Resolve calls for the same (name, dirs) pair are collapsed via
// singleflight so a repeated header lookup only touches the filesystem
// once.
func (c *Cache) Resolve(name string, dirs []string) (string, error) {
	key := name + "\x00" + fmt.Sprint(dirs)
	v, err, _ := c.group.Do(key, func() (any, error) {
		for _, dir := range dirs {
			candidate := filepath.Join(dir, name)
			if unix.Access(candidate, unix.R_OK) == nil {
				abs, absErr := filepath.Abs(candidate)
				if absErr != nil {
					return "", absErr
				}
				return abs, nil
			}
		}
		return "", fmt.Errorf("include file %q not found in any search path", name)
	})
	if err != nil {
		return "", err
	}
	return v.(string), nil
}
