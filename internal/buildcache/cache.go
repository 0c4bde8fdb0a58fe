// Package buildcache persists per-module compilation artifacts across CLI
// invocations (SPEC_FULL.md §4's "(added) Build cache"), keyed by a
// SHA-256 hash of the module's own source content plus the source of
// every module it imports. It is purely a build-speed optimization: it
// never influences program semantics or the emitted device snapshot, and
// its schema is versioned independently of the bytecode image format in
// internal/snapshot.
package buildcache

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/vmihailenco/msgpack/v5"

	"microvium/internal/il"
	"microvium/internal/source"
)

// schemaVersion guards against a stale cache surviving a breaking change
// to Entry's shape; bump it whenever Entry's fields change.
const schemaVersion uint16 = 1

// Digest is a SHA-256 content hash, used both as the cache key and as
// the stored record of what content an Entry was built from.
type Digest [sha256.Size]byte

// HashSources hashes one module's own source together with the source of
// every module it imports, in the order given — order matters, since
// this is the cache key and must be reproducible from the same inputs.
func HashSources(contents ...[]byte) Digest {
	h := sha256.New()
	for _, c := range contents {
		h.Write(c)
		h.Write([]byte{0}) // separator, so ("ab","c") hashes differently than ("a","bc")
	}
	var d Digest
	copy(d[:], h.Sum(nil))
	return d
}

// Entry is the cached artifact for one module: its compiled IL Unit, plus
// just enough of the scope-resolution result to restore it faithfully —
// the ordered list of strings the module's source.Interner had interned,
// since internal/source.Interner assigns StringIDs by insertion order.
// Re-interning Strings in the same order in Restore reproduces the exact
// IDs the cached Unit's operations reference, without needing to
// serialize the Interner or scope.Model directly.
type Entry struct {
	Schema      uint16
	ContentHash Digest
	SourcePath  string
	Strings     []string
	Unit        il.Unit
}

// Cache is a SHA-256-keyed, msgpack-encoded disk cache rooted at
// $XDG_CACHE_HOME/microvium (or ~/.cache/microvium), mirroring the
// teacher's internal/driver.DiskCache: atomic write-via-tempfile-then-
// rename, one file per key under a "units" subdirectory.
type Cache struct {
	mu  sync.RWMutex
	dir string
}

// Open initializes the cache directory, creating it if absent.
func Open() (*Cache, error) {
	base := os.Getenv("XDG_CACHE_HOME")
	if base == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("buildcache: %w", err)
		}
		base = filepath.Join(home, ".cache")
	}
	dir := filepath.Join(base, "microvium")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("buildcache: %w", err)
	}
	return &Cache{dir: dir}, nil
}

func (c *Cache) pathFor(key Digest) string {
	return filepath.Join(c.dir, "units", hex.EncodeToString(key[:])+".mp")
}

// Put serializes entry under key, replacing any previous value for key
// atomically (write to a tempfile in the same directory, then rename).
func (c *Cache) Put(key Digest, entry *Entry) error {
	if c == nil {
		return nil
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	entry.Schema = schemaVersion
	entry.ContentHash = key

	p := c.pathFor(key)
	if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
		return fmt.Errorf("buildcache: %w", err)
	}
	f, err := os.CreateTemp(filepath.Dir(p), "tmp-*")
	if err != nil {
		return fmt.Errorf("buildcache: %w", err)
	}
	tmpPath := f.Name()
	defer os.Remove(tmpPath)

	if err := msgpack.NewEncoder(f).Encode(entry); err != nil {
		f.Close()
		return fmt.Errorf("buildcache: failed to encode cache entry: %w", err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("buildcache: %w", err)
	}
	if err := os.Rename(tmpPath, p); err != nil {
		return fmt.Errorf("buildcache: %w", err)
	}
	return nil
}

// Get reads and deserializes the entry for key. ok is false, with no
// error, on a plain cache miss.
func (c *Cache) Get(key Digest) (entry *Entry, ok bool, err error) {
	if c == nil {
		return nil, false, nil
	}
	c.mu.RLock()
	defer c.mu.RUnlock()

	f, err := os.Open(c.pathFor(key))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("buildcache: %w", err)
	}
	defer f.Close()

	var e Entry
	if err := msgpack.NewDecoder(f).Decode(&e); err != nil {
		return nil, false, fmt.Errorf("buildcache: failed to decode cache entry: %w", err)
	}
	if e.Schema != schemaVersion || e.ContentHash != key {
		return nil, false, nil
	}
	return &e, true, nil
}

// Restore rebuilds a source.Interner whose StringIDs line up exactly
// with the ones entry.Unit's operations reference, by re-interning
// entry.Strings in the order they were recorded.
func Restore(entry *Entry) (*il.Unit, *source.Interner) {
	interner := source.NewInterner()
	for _, s := range entry.Strings {
		interner.Intern(s)
	}
	unit := entry.Unit
	return &unit, interner
}

// Snapshot captures interner's current string table (excluding
// NoStringID) in insertion order, ready to store on an Entry alongside
// the Unit compiled against it.
func Snapshot(interner *source.Interner) []string {
	var out []string
	for id := source.StringID(1); ; id++ {
		s, ok := interner.Lookup(id)
		if !ok {
			break
		}
		out = append(out, s)
	}
	return out
}

// DropAll discards every cached entry, e.g. after a schema-version bump.
func (c *Cache) DropAll() error {
	if c == nil {
		return nil
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	return os.RemoveAll(filepath.Join(c.dir, "units"))
}
