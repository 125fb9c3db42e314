package sdr

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIQBaseBandDecimationCount(t *testing.T) {
	// With D=k an input of N samples yields N/k output samples once N is a
	// multiple of k.
	node := NewIQBaseBand[int16](0, 1000, 5, 4)
	sink := &captureSink[Complex[int16]]{}
	require.NoError(t, node.Connect(sink, true))
	require.NoError(t, node.Configure(NewConfig(TypeCS16, 8000, 64, 1)))

	in := NewBuffer[Complex[int16]](64, nil)
	in.Fill(Complex[int16]{Re: 1000})
	require.NoError(t, node.Process(in, false))

	require.Len(t, sink.got, 1)
	assert.Len(t, sink.got[0], 16)
}

func TestIQBaseBandConfigPropagation(t *testing.T) {
	node := NewIQBaseBand[int16](0, 1000, 5, 4)
	sink := &captureSink[Complex[int16]]{}
	require.NoError(t, node.Connect(sink, true))
	require.NoError(t, node.Configure(NewConfig(TypeCS16, 8000, 63, 1)))

	// Output rate is Fs/D, the buffer size rounds up.
	assert.Equal(t, TypeCS16, sink.cfg.Type)
	assert.Equal(t, 2000.0, sink.cfg.SampleRate)
	assert.Equal(t, 16, sink.cfg.BufferSize)
	assert.Equal(t, 1, sink.cfg.NumBuffers)
}

func TestIQBaseBandRejectsWrongType(t *testing.T) {
	node := NewIQBaseBand[int16](0, 1000, 5, 4)
	err := node.Configure(NewConfig(TypeS16, 8000, 64, 1))
	var cfgErr *ConfigError
	assert.ErrorAs(t, err, &cfgErr)
}

func TestIQBaseBandOrderClamped(t *testing.T) {
	node := NewIQBaseBand[int16](0, 1000, 0, 1)
	assert.Equal(t, 1, node.Order())

	require.NoError(t, node.Configure(NewConfig(TypeCS16, 8000, 16, 1)))
	node.SetOrder(0)
	assert.Equal(t, 1, node.Order())

	// The node keeps working after the clamp.
	sink := &captureSink[Complex[int16]]{}
	require.NoError(t, node.Connect(sink, true))
	in := NewBuffer[Complex[int16]](16, nil)
	in.Fill(Complex[int16]{Re: 100})
	require.NoError(t, node.Process(in, false))
	require.Len(t, sink.got, 1)
	assert.Len(t, sink.got[0], 16)
}

func TestIQBaseBandDCPassThrough(t *testing.T) {
	// With no shift and the band pass centred at DC, a DC input must come
	// through at close to unit gain once the filter warmed up.
	node := NewIQBaseBand[int16](0, 1000, 15, 1)
	sink := &captureSink[Complex[int16]]{}
	require.NoError(t, node.Connect(sink, true))
	require.NoError(t, node.Configure(NewConfig(TypeCS16, 8000, 128, 1)))

	in := NewBuffer[Complex[int16]](128, nil)
	in.Fill(Complex[int16]{Re: 8000})
	require.NoError(t, node.Process(in, false))

	require.Len(t, sink.got, 1)
	out := sink.got[0]
	// Skip the warm-up of one kernel length.
	for _, v := range out[20:] {
		assert.InDelta(t, 8000, float64(v.Re), 300)
		assert.InDelta(t, 0, float64(v.Im), 300)
	}
}

func TestIQBaseBandDropsWhenOutputBusy(t *testing.T) {
	node := NewIQBaseBand[int16](0, 1000, 5, 4)
	holder := &holdSink{}
	require.NoError(t, node.Connect(holder, true))
	require.NoError(t, node.Configure(NewConfig(TypeCS16, 8000, 64, 1)))

	in := NewBuffer[Complex[int16]](64, nil)
	require.NoError(t, node.Process(in, false))
	require.Len(t, holder.held, 1)

	// The output buffer is still referenced downstream: the next input is
	// dropped and the input's refcount is untouched.
	before := in.RefCount()
	require.NoError(t, node.Process(in, false))
	assert.Len(t, holder.held, 1)
	assert.Equal(t, before, in.RefCount())

	// Releasing the output resumes processing.
	holder.release()
	require.NoError(t, node.Process(in, false))
	assert.Len(t, holder.held, 1)
}

func TestBaseBandRealInput(t *testing.T) {
	node := NewBaseBand[int16](0, 1000, 5, 2)
	sink := &captureSink[Complex[int16]]{}
	require.NoError(t, node.Connect(sink, true))
	require.NoError(t, node.Configure(NewConfig(TypeS16, 8000, 32, 1)))

	assert.Equal(t, TypeCS16, sink.cfg.Type)
	assert.Equal(t, 4000.0, sink.cfg.SampleRate)

	in := NewBuffer[int16](32, nil)
	in.Fill(4000)
	require.NoError(t, node.Process(in, false))
	require.Len(t, sink.got, 1)
	assert.Len(t, sink.got[0], 16)
}

// holdSink keeps a reference on every received buffer until released.
type holdSink struct {
	held []RawBuffer
}

func (s *holdSink) Configure(cfg Config) error { return nil }

func (s *holdSink) HandleBuffer(buffer RawBuffer, allowOverwrite bool) error {
	buffer.Ref()
	s.held = append(s.held, buffer)
	return nil
}

func (s *holdSink) release() {
	for i := range s.held {
		s.held[i].Unref()
	}
	s.held = nil
}
