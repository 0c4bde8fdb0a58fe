package lexer

import (
	"fmt"

	"microvium/internal/source"

	"fortio.org/safecast"
)

// Cursor tracks a byte offset into a source file.
type Cursor struct {
	File *source.File
	Off  uint32
}

// NewCursor creates a cursor positioned at the start of the file.
func NewCursor(f *source.File) Cursor {
	return Cursor{File: f, Off: 0}
}

func (c *Cursor) limit() uint32 {
	n, err := safecast.Conv[uint32](len(c.File.Content))
	if err != nil {
		panic(fmt.Errorf("len file content overflow: %w", err))
	}
	return n
}

// EOF reports whether the cursor has consumed the whole file.
func (c *Cursor) EOF() bool {
	return c.Off >= c.limit()
}

// Peek returns the current byte, or 0 at EOF.
func (c *Cursor) Peek() byte {
	if c.EOF() {
		return 0
	}
	return c.File.Content[c.Off]
}

// Peek2 returns the current and next byte, and whether both are in range.
func (c *Cursor) Peek2() (b0, b1 byte, ok bool) {
	if c.Off+1 >= c.limit() {
		return 0, 0, false
	}
	return c.File.Content[c.Off], c.File.Content[c.Off+1], true
}

// Advance consumes and returns the current byte.
func (c *Cursor) Advance() byte {
	b := c.Peek()
	if !c.EOF() {
		c.Off++
	}
	return b
}

// Match consumes the current byte and returns true if it equals b.
func (c *Cursor) Match(b byte) bool {
	if c.Peek() == b {
		c.Off++
		return true
	}
	return false
}
