package leb128_test

import (
	"math"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/friendlymatthew/whale/leb128"
	"github.com/friendlymatthew/whale/leb128/bytecursor"
)

func vectorsI32() []int32 {
	return []int32{math.MinInt32, math.MinInt32 + 1, -1, 0, 1, 63, 64, 127, 128, 255, 256, math.MaxInt32}
}

func vectorsI64() []int64 {
	return []int64{math.MinInt64, math.MinInt64 + 1, -1, 0, 1, 63, 64, 127, 128, 255, 256, math.MaxInt64}
}

func TestRoundTripI32(t *testing.T) {
	for _, v := range vectorsI32() {
		buf := leb128.WriteI32(nil, v)
		got, n, err := leb128.ReadI32(bytecursor.New(buf))
		require.NoError(t, err)
		require.Equal(t, v, got)
		require.Equal(t, len(buf), n)
	}
}

func TestRoundTripU32(t *testing.T) {
	for _, v := range []uint32{0, 1, 63, 64, 127, 128, 255, 256, math.MaxUint32} {
		buf := leb128.WriteU32(nil, v)
		got, n, err := leb128.ReadU32(bytecursor.New(buf))
		require.NoError(t, err)
		require.Equal(t, v, got)
		require.Equal(t, len(buf), n)
	}
}

func TestRoundTripI64(t *testing.T) {
	for _, v := range vectorsI64() {
		buf := leb128.WriteI64(nil, v)
		got, n, err := leb128.ReadI64(bytecursor.New(buf))
		require.NoError(t, err)
		require.Equal(t, v, got)
		require.Equal(t, len(buf), n)
	}
}

func TestRoundTripU64(t *testing.T) {
	for _, v := range []uint64{0, 1, 63, 64, 127, 128, 255, 256, math.MaxUint64} {
		buf := leb128.WriteU64(nil, v)
		got, n, err := leb128.ReadU64(bytecursor.New(buf))
		require.NoError(t, err)
		require.Equal(t, v, got)
		require.Equal(t, len(buf), n)
	}
}

func TestU32OverflowAllContinuation(t *testing.T) {
	_, _, err := leb128.ReadU32(bytecursor.New([]byte{0xFF, 0xFF, 0xFF, 0xFF, 0xFF}))
	require.ErrorIs(t, err, leb128.ErrOverflow)
}

func TestU32OverflowSixZeroBytes(t *testing.T) {
	_, _, err := leb128.ReadU32(bytecursor.New([]byte{0x80, 0x80, 0x80, 0x80, 0x80, 0x80}))
	require.ErrorIs(t, err, leb128.ErrOverflow)
}

func TestU32NonCanonicalZeroAccepted(t *testing.T) {
	v, n, err := leb128.ReadU32(bytecursor.New([]byte{0x80, 0x80, 0x80, 0x00}))
	require.NoError(t, err)
	require.Equal(t, uint32(0), v)
	require.Equal(t, 4, n)
}

func TestU32FifthByteHighBitsRejected(t *testing.T) {
	// 5th byte must be <= 0x0F for an unsigned 32-bit value.
	_, _, err := leb128.ReadU32(bytecursor.New([]byte{0x80, 0x80, 0x80, 0x80, 0x10}))
	require.ErrorIs(t, err, leb128.ErrOverflow)
}
