// Package leb128 implements LEB128 variable-length integer encoding and
// decoding for 32- and 64-bit signed and unsigned integers, per
// https://webassembly.github.io/spec/core/binary/values.html#integers.
//
// Ported from vertexvm's leb128 package (github.com/vertexdlt/vertexvm),
// replacing its log.Fatal-on-overflow behavior with returned errors so a
// malicious or truncated module can never crash the decoder process.
package leb128

import (
	"errors"

	"github.com/friendlymatthew/whale/leb128/bytecursor"
)

// ErrOverflow is returned when a LEB128 value does not fit in the target
// bit width, or its encoding runs past the maximum byte length for that
// width (5 bytes for 32-bit, 10 bytes for 64-bit).
var ErrOverflow = errors.New("leb128: overflow")

// maxBytes returns the maximum number of bytes a LEB128 encoding of an
// n-bit integer may occupy: ceil(n/7).
func maxBytes(n uint) int {
	return (int(n) + 6) / 7
}

// read decodes an n-bit integer (signed if hasSign) from c. It returns the
// raw 64-bit result (sign-extended if applicable) and the number of bytes
// consumed.
func read(c *bytecursor.Cursor, n uint, hasSign bool) (uint64, int, error) {
	var result uint64
	limit := maxBytes(n)
	shift := uint(0)
	for count := 1; ; count++ {
		b, err := c.ReadByte()
		if err != nil {
			return 0, count - 1, err
		}
		payload := uint64(b & 0x7f)
		result |= payload << shift

		if b&0x80 == 0 {
			// Final byte: any bits of this 7-bit payload that land at or
			// beyond position n must be zero (unsigned) or a consistent
			// sign-extension of bit 6 (signed).
			allowed := int(n) - int(shift)
			if allowed > 7 {
				allowed = 7
			}
			if allowed < 0 {
				allowed = 0
			}
			extra := payload >> uint(allowed)
			var want uint64
			if hasSign && (payload>>6)&1 == 1 {
				want = (uint64(1) << uint(7-allowed)) - 1
			}
			if extra != want {
				return 0, count, ErrOverflow
			}
			if hasSign && shift+7 < 64 && (payload>>6)&1 == 1 {
				result |= ^uint64(0) << (shift + 7)
			}
			return result, count, nil
		}

		if count == limit {
			return 0, count, ErrOverflow
		}
		shift += 7
	}
}

// ReadU32 decodes an unsigned 32-bit LEB128 integer.
func ReadU32(c *bytecursor.Cursor) (uint32, int, error) {
	v, n, err := read(c, 32, false)
	return uint32(v), n, err
}

// ReadI32 decodes a signed 32-bit LEB128 integer.
func ReadI32(c *bytecursor.Cursor) (int32, int, error) {
	v, n, err := read(c, 32, true)
	return int32(v), n, err
}

// ReadU64 decodes an unsigned 64-bit LEB128 integer.
func ReadU64(c *bytecursor.Cursor) (uint64, int, error) {
	v, n, err := read(c, 64, false)
	return v, n, err
}

// ReadI64 decodes a signed 64-bit LEB128 integer.
func ReadI64(c *bytecursor.Cursor) (int64, int, error) {
	v, n, err := read(c, 64, true)
	return int64(v), n, err
}

// WriteU32 appends the unsigned LEB128 encoding of v to dst and returns the
// extended slice.
func WriteU32(dst []byte, v uint32) []byte {
	return writeUnsigned(dst, uint64(v))
}

// WriteU64 appends the unsigned LEB128 encoding of v to dst.
func WriteU64(dst []byte, v uint64) []byte {
	return writeUnsigned(dst, v)
}

func writeUnsigned(dst []byte, v uint64) []byte {
	for {
		b := byte(v & 0x7f)
		v >>= 7
		if v != 0 {
			dst = append(dst, b|0x80)
		} else {
			dst = append(dst, b)
			return dst
		}
	}
}

// WriteI32 appends the signed LEB128 encoding of v to dst.
func WriteI32(dst []byte, v int32) []byte {
	return writeSigned(dst, int64(v))
}

// WriteI64 appends the signed LEB128 encoding of v to dst.
func WriteI64(dst []byte, v int64) []byte {
	return writeSigned(dst, v)
}

func writeSigned(dst []byte, v int64) []byte {
	more := true
	for more {
		b := byte(v & 0x7f)
		v >>= 7
		signBitSet := b&0x40 != 0
		if (v == 0 && !signBitSet) || (v == -1 && signBitSet) {
			more = false
		} else {
			b |= 0x80
		}
		dst = append(dst, b)
	}
	return dst
}
