package simd

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestI32x4SplatAndExtract(t *testing.T) {
	b := I32x4Splat(7)
	for i := 0; i < 4; i++ {
		require.Equal(t, int32(7), GetI32(b, i))
	}
}

func TestI8x16AddWraps(t *testing.T) {
	a := I8x16Splat(120)
	b := I8x16Splat(10)
	out := I8x16Zip(a, b, func(x, y int8) int8 { return x + y })
	require.Equal(t, int8(-126), GetI8(out, 0))
}

func TestSatS8Clamps(t *testing.T) {
	require.Equal(t, int8(127), SatS8(200))
	require.Equal(t, int8(-128), SatS8(-200))
	require.Equal(t, int8(50), SatS8(50))
}

func TestBitwiseOps(t *testing.T) {
	a := I32x4Splat(0x0F0F0F0F)
	b := I32x4Splat(0x00FF00FF)
	require.Equal(t, int32(0x000F000F), GetI32(And(a, b), 0))
	require.Equal(t, int32(-1), GetI32(Or(I32x4Splat(int32(uint32(0xFFFF0000))), I32x4Splat(int32(uint32(0x0000FFFF)))), 0))
}

func TestF32x4ReplaceLane(t *testing.T) {
	b := F32x4Splat(1.5)
	SetF32(&b, 2, 9.25)
	require.Equal(t, float32(9.25), GetF32(b, 2))
	require.Equal(t, float32(1.5), GetF32(b, 0))
}

func TestAnyTrueAllTrue(t *testing.T) {
	zero := I32x4Splat(0)
	require.False(t, AnyTrue(zero))
	require.False(t, I32x4AllTrue(zero))

	mixed := I32x4Splat(0)
	SetI32(&mixed, 0, 1)
	require.True(t, AnyTrue(mixed))
	require.False(t, I32x4AllTrue(mixed))

	allOnes := I32x4Splat(1)
	require.True(t, I32x4AllTrue(allOnes))
}
