package source

import (
	"slices"
)

type StringID uint32

const NoStringID StringID = 0

type Interner struct {
	byID  []string            // index -> string (byID[0] = "" for NoStringID)
	index map[string]StringID // string -> ID
}

func NewInterner() *Interner {
	return &Interner{
		byID:  []string{""},                    // NoStringID -> empty string
		index: map[string]StringID{"": 0}, // keep the mapping explicit
	}
}

// Intern inserts a string into the interner and returns its ID.
// Returns the existing ID if the string was already interned.
func (i *Interner) Intern(s string) StringID {
	if id, ok := i.index[s]; ok {
		return id
	}

	// Make our own copy so we don't alias the caller's buffer.
	cpy := string([]byte(s))
	id := StringID(len(i.byID))
	i.byID = append(i.byID, cpy)
	i.index[cpy] = id
	return id
}

// InternBytes inserts bytes into the interner and returns the string's ID.
// Returns the existing ID if the string was already interned.
func (i *Interner) InternBytes(b []byte) StringID {
	return i.Intern(string(b))
}

// Lookup returns the string for an ID.
// Returns an empty string and false if the ID is invalid.
func (i *Interner) Lookup(id StringID) (string, bool) {
	if !i.Has(id) {
		return "", false
	}
	return i.byID[id], true
}

// MustLookup returns the string for an ID.
// Panics if the ID is invalid.
func (i *Interner) MustLookup(id StringID) string {
	s, ok := i.Lookup(id)
	if !ok {
		panic("invalid string ID")
	}
	return s
}

// Has reports whether the ID is valid.
func (i *Interner) Has(id StringID) bool {
	return int(id) >= 0 && int(id) < len(i.byID)
}

// Len returns the number of strings held by the interner.
// NoStringID counts toward the total; the result is never less than 1.
func (i *Interner) Len() int {
	return len(i.byID)
}

// Returns a copy of all strings held by the interner.
func (i *Interner) Snapshot() []string {
	return slices.Clone(i.byID)
}
