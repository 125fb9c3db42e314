package sdr

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

func TestUnsignedToSignedU8(t *testing.T) {
	node := NewUnsignedToSigned()
	sink := &captureSink[int8]{}
	require.NoError(t, node.Connect(sink, true))
	require.NoError(t, node.Configure(NewConfig(TypeU8, 1, 16, 1)))
	assert.Equal(t, TypeS8, sink.cfg.Type)

	in := NewBuffer[uint8](3, nil)
	in.Set(0, 0)
	in.Set(1, 128)
	in.Set(2, 255)
	require.NoError(t, node.HandleBuffer(in.Raw(), false))

	require.Len(t, sink.got, 1)
	assert.Equal(t, []int8{-128, 0, 127}, sink.got[0])
}

func TestUnsignedToSignedU16(t *testing.T) {
	node := NewUnsignedToSigned()
	sink := &captureSink[int16]{}
	require.NoError(t, node.Connect(sink, true))
	require.NoError(t, node.Configure(NewConfig(TypeU16, 1, 16, 1)))
	assert.Equal(t, TypeS16, sink.cfg.Type)

	in := NewBuffer[uint16](3, nil)
	in.Set(0, 0)
	in.Set(1, 32768)
	in.Set(2, 65535)
	require.NoError(t, node.HandleBuffer(in.Raw(), false))

	require.Len(t, sink.got, 1)
	assert.Equal(t, []int16{-32768, 0, 32767}, sink.got[0])
}

func TestUnsignedToSignedRejectsSignedInput(t *testing.T) {
	node := NewUnsignedToSigned()
	err := node.Configure(NewConfig(TypeS16, 1, 16, 1))
	var cfgErr *ConfigError
	assert.ErrorAs(t, err, &cfgErr)
}

// SignedToUnsigned composed with UnsignedToSigned is the identity.
func TestUnsignedSignedRoundTrip(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		u2s := NewUnsignedToSigned()
		s2u := NewSignedToUnsigned()
		sink := &captureSink[uint8]{}
		require.NoError(t, u2s.Connect(s2u, true))
		require.NoError(t, s2u.Connect(sink, true))
		require.NoError(t, u2s.Configure(NewConfig(TypeU8, 1, 64, 1)))

		data := rapid.SliceOfN(rapid.Byte(), 1, 64).Draw(t, "data")
		in := NewBuffer[uint8](len(data), nil)
		copy(in.Raw().Bytes(), data)
		require.NoError(t, u2s.HandleBuffer(in.Raw(), false))

		require.Len(t, sink.got, 1)
		assert.Equal(t, data, sink.got[0])
	})
}

func TestUnsignedSignedRoundTripU16(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		u2s := NewUnsignedToSigned()
		s2u := NewSignedToUnsigned()
		sink := &captureSink[uint16]{}
		require.NoError(t, u2s.Connect(s2u, true))
		require.NoError(t, s2u.Connect(sink, true))
		require.NoError(t, u2s.Configure(NewConfig(TypeU16, 1, 64, 1)))

		data := rapid.SliceOfN(rapid.Uint16(), 1, 64).Draw(t, "data")
		in := NewBuffer[uint16](len(data), nil)
		copy(in.Slice(), data)
		require.NoError(t, u2s.HandleBuffer(in.Raw(), false))

		require.Len(t, sink.got, 1)
		assert.Equal(t, data, sink.got[0])
	})
}

func TestCastWithScale(t *testing.T) {
	node := NewCast[int16, int8](1.0/256, 0)
	sink := &captureSink[int8]{}
	require.NoError(t, node.Connect(sink, true))
	require.NoError(t, node.Configure(NewConfig(TypeS16, 1, 16, 1)))
	assert.Equal(t, TypeS8, sink.cfg.Type)

	in := NewBuffer[int16](2, nil)
	in.Set(0, 256)
	in.Set(1, -512)
	require.NoError(t, node.Process(in, false))

	require.Len(t, sink.got, 1)
	assert.Equal(t, []int8{1, -2}, sink.got[0])
}
