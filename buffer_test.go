package sdr

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

func TestRawBufferRefUnref(t *testing.T) {
	b := NewRawBuffer(16, nil)
	assert.Equal(t, 1, b.RefCount())
	assert.True(t, b.IsUnused())

	b.Ref()
	assert.Equal(t, 2, b.RefCount())
	assert.False(t, b.IsUnused())

	b.Unref()
	assert.Equal(t, 1, b.RefCount())
	assert.True(t, b.IsUnused())
}

func TestRawBufferRefUnrefProperty(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		b := NewRawBuffer(rapid.IntRange(1, 256).Draw(t, "size"), nil)
		extra := rapid.IntRange(0, 8).Draw(t, "extra")
		for i := 0; i < extra; i++ {
			b.Ref()
		}
		before := b.RefCount()
		b.Ref()
		b.Unref()
		assert.Equal(t, before, b.RefCount())
	})
}

func TestRawBufferSharing(t *testing.T) {
	a := NewRawBuffer(8, nil)
	c := a // copies share storage and counter
	c.Ref()
	assert.Equal(t, 2, a.RefCount())
	c.Unref()
	assert.Equal(t, 1, a.RefCount())
}

func TestRawBufferReleaseOnZero(t *testing.T) {
	b := NewRawBuffer(8, nil)
	b.Unref()
	assert.True(t, b.IsEmpty())
	// Unref on a dead buffer stays a no-op.
	b.Unref()
	assert.True(t, b.IsEmpty())
}

func TestEmptyBuffer(t *testing.T) {
	var b RawBuffer
	assert.True(t, b.IsEmpty())
	assert.Equal(t, 0, b.RefCount())
	assert.True(t, b.IsUnused())
	b.Ref() // no-op
	b.Unref()
}

func TestBufferSubviews(t *testing.T) {
	b := NewBuffer[int16](10, nil)
	for i := 0; i < 10; i++ {
		b.Set(i, int16(i))
	}

	h := b.Head(4)
	require.Equal(t, 4, h.Size())
	assert.Equal(t, []int16{0, 1, 2, 3}, h.Slice())

	tl := b.Tail(3)
	assert.Equal(t, []int16{7, 8, 9}, tl.Slice())

	s := b.Sub(2, 5)
	assert.Equal(t, []int16{2, 3, 4, 5, 6}, s.Slice())

	// Views share the storage: a write through the view is visible in the
	// parent.
	s.Set(0, 42)
	assert.Equal(t, int16(42), b.At(2))

	// Bounds past the end yield an empty buffer, never a panic.
	assert.True(t, b.Sub(8, 5).IsEmpty())
	assert.True(t, b.Head(11).IsEmpty())
	assert.True(t, b.Tail(11).IsEmpty())
}

func TestBufferSubSubEquality(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		size := rapid.IntRange(1, 64).Draw(t, "size")
		b := NewBuffer[int16](size, nil)
		n := rapid.IntRange(0, size).Draw(t, "n")
		m := rapid.IntRange(0, n).Draw(t, "m")

		lhs := b.Sub(0, n).Sub(0, m)
		rhs := b.Sub(0, m)
		assert.Equal(t, rhs.Size(), lhs.Size())
		assert.Equal(t, rhs.Raw().BytesOffset(), lhs.Raw().BytesOffset())
		assert.Equal(t, rhs.Raw().BytesLen(), lhs.Raw().BytesLen())
		if m > 0 {
			assert.True(t, lhs.Raw().SameStorage(rhs.Raw()))
		}
	})
}

func TestBufferReinterpret(t *testing.T) {
	b := NewBuffer[int16](8, nil)
	for i := 0; i < 8; i++ {
		b.Set(i, int16(i+1))
	}

	// Reinterpreting L bytes as B yields L/sizeof(B) samples.
	c := ConvertBuffer[Complex[int16]](b)
	require.Equal(t, 4, c.Size())
	assert.Equal(t, Complex[int16]{1, 2}, c.At(0))
	assert.Equal(t, Complex[int16]{7, 8}, c.At(3))

	bytes := ConvertBuffer[uint8](b)
	assert.Equal(t, 16, bytes.Size())

	// The reinterpreted view shares the storage.
	c.Set(0, Complex[int16]{Re: -1, Im: -2})
	assert.Equal(t, int16(-1), b.At(0))
	assert.Equal(t, int16(-2), b.At(1))
}

func TestBufferReinterpretProperty(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		size := rapid.IntRange(1, 64).Draw(t, "size")
		b := NewBuffer[int16](size, nil)
		byteLen := b.Raw().BytesLen()
		assert.Equal(t, byteLen/4, ConvertBuffer[int32](b).Size())
		assert.Equal(t, byteLen/4, ConvertBuffer[Complex[int16]](b).Size())
		assert.Equal(t, byteLen, ConvertBuffer[int8](b).Size())
	})
}

func TestWrapBuffer(t *testing.T) {
	data := []int16{1, 2, 3}
	b := WrapBuffer(data)
	assert.Equal(t, 3, b.Size())
	assert.Equal(t, 0, b.RefCount())
	b.Set(1, 9)
	assert.Equal(t, int16(9), data[1])
}

func TestBufferSetRecycling(t *testing.T) {
	set := NewBufferSet[int16](2, 16)
	require.True(t, set.HasBuffer())

	a := set.GetBuffer()
	b := set.GetBuffer()
	require.False(t, set.HasBuffer())
	require.False(t, a.IsEmpty())
	require.False(t, b.IsEmpty())

	// Simulate a send through the queue: the consumer takes a reference and
	// drops it after processing; the decay to the pool's sole reference
	// recycles the buffer.
	a.Ref()
	a.Unref()
	assert.True(t, set.HasBuffer())

	c := set.GetBuffer()
	assert.True(t, c.Raw().SameStorage(a.Raw()))
	_ = b
}

func TestBufferSetResize(t *testing.T) {
	set := NewBufferSet[int16](1, 8)
	_ = set.GetBuffer()
	assert.False(t, set.HasBuffer())
	set.Resize(3)
	assert.True(t, set.HasBuffer())
}
