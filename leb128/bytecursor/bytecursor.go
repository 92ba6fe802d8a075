// Package bytecursor provides a position-tracking cursor over an in-memory
// byte buffer, used by the leb128 and wasm decoders to read untrusted input
// without allocating per-byte.
package bytecursor

import "io"

// Cursor is a forward-only reader over a byte slice that tracks its
// position within that slice, so callers can report decode errors with an
// offset.
type Cursor struct {
	buf []byte
	pos int
}

// New wraps b in a Cursor starting at offset 0.
func New(b []byte) *Cursor {
	return &Cursor{buf: b}
}

// Pos returns the current offset into the cursor's own buffer. For a
// cursor returned by Limit this is relative to the start of the limited
// region, not to the enclosing buffer.
func (c *Cursor) Pos() int {
	return c.pos
}

// Len returns the number of unread bytes remaining.
func (c *Cursor) Len() int {
	return len(c.buf) - c.pos
}

// ReadByte reads a single byte, advancing the cursor by one.
func (c *Cursor) ReadByte() (byte, error) {
	if c.pos >= len(c.buf) {
		return 0, io.EOF
	}
	b := c.buf[c.pos]
	c.pos++
	return b, nil
}

// PeekByte returns the next byte without advancing the cursor.
func (c *Cursor) PeekByte() (byte, error) {
	if c.pos >= len(c.buf) {
		return 0, io.EOF
	}
	return c.buf[c.pos], nil
}

// Read returns the next n bytes, advancing the cursor by n. The returned
// slice aliases the underlying buffer; callers that retain it beyond the
// decode pass (e.g. function bodies, data segment payloads) rely on that.
func (c *Cursor) Read(n int) ([]byte, error) {
	if n < 0 || c.pos+n > len(c.buf) {
		return nil, io.ErrUnexpectedEOF
	}
	b := c.buf[c.pos : c.pos+n]
	c.pos += n
	return b, nil
}

// Rest returns every unread byte without advancing the cursor.
func (c *Cursor) Rest() []byte {
	return c.buf[c.pos:]
}

// Limit returns a sub-cursor over exactly the next n bytes and advances
// this cursor past them, so a section's own parser cannot read beyond its
// declared length.
func (c *Cursor) Limit(n int) (*Cursor, error) {
	b, err := c.Read(n)
	if err != nil {
		return nil, err
	}
	return New(b), nil
}
