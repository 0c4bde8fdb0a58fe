package buildcache_test

import (
	"path/filepath"
	"testing"

	"microvium/internal/buildcache"
	"microvium/internal/il"
	"microvium/internal/source"
)

func newCache(t *testing.T) *buildcache.Cache {
	t.Helper()
	t.Setenv("XDG_CACHE_HOME", filepath.Join(t.TempDir(), "cache"))
	c, err := buildcache.Open()
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	return c
}

func TestPutGetRoundTrip(t *testing.T) {
	c := newCache(t)

	interner := source.NewInterner()
	nameID := interner.Intern("greet")
	unit := il.Unit{
		Funcs: []il.Function{
			{ID: 0, Name: "#entry", Blocks: []il.Block{{ID: 0}}},
		},
	}

	key := buildcache.HashSources([]byte("print('hi');"))
	entry := &buildcache.Entry{
		SourcePath: "main.mvms",
		Strings:    buildcache.Snapshot(interner),
		Unit:       unit,
	}
	if err := c.Put(key, entry); err != nil {
		t.Fatalf("Put: %v", err)
	}

	got, ok, err := c.Get(key)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if !ok {
		t.Fatalf("expected a cache hit")
	}
	if got.SourcePath != "main.mvms" {
		t.Errorf("SourcePath = %q, want %q", got.SourcePath, "main.mvms")
	}
	if len(got.Unit.Funcs) != 1 || got.Unit.Funcs[0].Name != "#entry" {
		t.Fatalf("Unit did not round-trip: %+v", got.Unit)
	}

	_, restored := buildcache.Restore(got)
	if restored.MustLookup(nameID) != "greet" {
		t.Errorf("restored interner did not reproduce StringID %d", nameID)
	}
}

func TestGetMissReturnsFalseNoError(t *testing.T) {
	c := newCache(t)
	key := buildcache.HashSources([]byte("nonexistent"))
	_, ok, err := c.Get(key)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if ok {
		t.Fatalf("expected a cache miss")
	}
}

func TestHashSourcesIsOrderSensitive(t *testing.T) {
	a := buildcache.HashSources([]byte("ab"), []byte("c"))
	b := buildcache.HashSources([]byte("a"), []byte("bc"))
	if a == b {
		t.Fatalf("expected different hashes for different segmentations of the same bytes")
	}
}

func TestDropAllRemovesEntries(t *testing.T) {
	c := newCache(t)
	key := buildcache.HashSources([]byte("x"))
	if err := c.Put(key, &buildcache.Entry{}); err != nil {
		t.Fatalf("Put: %v", err)
	}
	if err := c.DropAll(); err != nil {
		t.Fatalf("DropAll: %v", err)
	}
	_, ok, err := c.Get(key)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if ok {
		t.Fatalf("expected a miss after DropAll")
	}
}
