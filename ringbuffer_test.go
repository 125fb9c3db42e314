package sdr

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

func fromString(s string) RawBuffer {
	return BorrowRawBuffer([]byte(s))
}

func TestRawRingBufferScenario(t *testing.T) {
	r := NewRawRingBuffer(3)

	require.True(t, r.Put(fromString("a")))
	require.True(t, r.Put(fromString("bc")))

	// The third put does not fit and must leave the state unchanged.
	lenBefore, freeBefore := r.BytesLen(), r.BytesFree()
	require.False(t, r.Put(fromString("x")))
	assert.Equal(t, lenBefore, r.BytesLen())
	assert.Equal(t, freeBefore, r.BytesFree())

	dst := BorrowRawBuffer(make([]byte, 3))
	require.True(t, r.Take(dst, 1))
	assert.Equal(t, byte('a'), dst.Bytes()[0])

	require.True(t, r.Take(dst, 2))
	assert.Equal(t, "bc", string(dst.Bytes()[:2]))

	// Wrap-around put and take.
	require.True(t, r.Put(fromString("cab")))
	require.True(t, r.Take(dst, 3))
	assert.Equal(t, "cab", string(dst.Bytes()[:3]))
}

func TestRawRingBufferTakeUnderflow(t *testing.T) {
	r := NewRawRingBuffer(4)
	require.True(t, r.Put(fromString("ab")))
	dst := BorrowRawBuffer(make([]byte, 4))
	assert.False(t, r.Take(dst, 3))
	assert.Equal(t, 2, r.BytesLen())
}

func TestRawRingBufferDropClear(t *testing.T) {
	r := NewRawRingBuffer(4)
	require.True(t, r.Put(fromString("abcd")))
	r.Drop(2)
	assert.Equal(t, 2, r.BytesLen())
	// Dropping more than stored is clamped.
	r.Drop(10)
	assert.Equal(t, 0, r.BytesLen())

	require.True(t, r.Put(fromString("xy")))
	r.Clear()
	assert.Equal(t, 0, r.BytesLen())
	assert.Equal(t, 4, r.BytesFree())
}

// For every sequence of individually accepted operations the stored and the
// free bytes sum to the capacity.
func TestRawRingBufferConservation(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		capacity := rapid.IntRange(1, 32).Draw(t, "capacity")
		r := NewRawRingBuffer(capacity)
		model := 0

		ops := rapid.IntRange(1, 64).Draw(t, "ops")
		for i := 0; i < ops; i++ {
			switch rapid.IntRange(0, 2).Draw(t, "op") {
			case 0:
				n := rapid.IntRange(0, capacity).Draw(t, "put")
				if r.Put(BorrowRawBuffer(make([]byte, n))) {
					model += n
				}
			case 1:
				n := rapid.IntRange(0, capacity).Draw(t, "take")
				if r.Take(BorrowRawBuffer(make([]byte, n)), n) {
					model -= n
				}
			case 2:
				n := rapid.IntRange(0, capacity).Draw(t, "drop")
				r.Drop(n)
				model -= min(n, model)
			}
			require.Equal(t, model, r.BytesLen())
			require.Equal(t, capacity, r.BytesLen()+r.BytesFree())
		}
	})
}

func TestRawRingBufferContentRoundTrip(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		r := NewRawRingBuffer(16)
		var model []byte
		ops := rapid.IntRange(1, 64).Draw(t, "ops")
		for i := 0; i < ops; i++ {
			if rapid.Bool().Draw(t, "put") {
				data := rapid.SliceOfN(rapid.Byte(), 0, 16).Draw(t, "data")
				if r.Put(BorrowRawBuffer(data)) {
					model = append(model, data...)
				}
			} else {
				n := rapid.IntRange(0, 16).Draw(t, "n")
				dst := make([]byte, n)
				if r.Take(BorrowRawBuffer(dst), n) {
					require.Equal(t, model[:n], dst)
					model = model[n:]
				}
			}
		}
	})
}

func TestTypedRingBuffer(t *testing.T) {
	r := NewRingBuffer[int16](4)
	assert.Equal(t, 4, r.Size())
	assert.Equal(t, 0, r.Stored())

	data := WrapBuffer([]int16{1, 2, 3})
	require.True(t, r.PutSamples(data))
	assert.Equal(t, 3, r.Stored())
	assert.Equal(t, 1, r.Free())
	assert.Equal(t, int16(2), r.At(1))

	dst := NewBuffer[int16](4, nil)
	require.True(t, r.TakeSamples(dst, 2))
	assert.Equal(t, []int16{1, 2}, dst.Head(2).Slice())
	assert.Equal(t, 1, r.Stored())

	r.DropSamples(1)
	assert.Equal(t, 0, r.Stored())
}

func TestTypedRingBufferZero(t *testing.T) {
	// The zero ring has no capacity until resized; Combine relies on this.
	var r RingBuffer[int16]
	assert.Equal(t, 0, r.Size())
	r.ResizeSamples(8)
	assert.Equal(t, 8, r.Size())
	require.True(t, r.PutSamples(WrapBuffer([]int16{5})))
	assert.Equal(t, int16(5), r.At(0))
}
