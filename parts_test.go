package sdr

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRealImagPart(t *testing.T) {
	reNode := NewRealPart[int16](1)
	imNode := NewImagPart[int16](1)
	realSink := &captureSink[int16]{}
	imagSink := &captureSink[int16]{}
	require.NoError(t, reNode.Connect(realSink, true))
	require.NoError(t, imNode.Connect(imagSink, true))
	require.NoError(t, reNode.Configure(NewConfig(TypeCS16, 1, 8, 1)))
	require.NoError(t, imNode.Configure(NewConfig(TypeCS16, 1, 8, 1)))

	in := NewBuffer[Complex[int16]](2, nil)
	in.Set(0, Complex[int16]{Re: 1, Im: -2})
	in.Set(1, Complex[int16]{Re: 3, Im: -4})
	require.NoError(t, reNode.Process(in, false))
	require.NoError(t, imNode.Process(in, false))

	assert.Equal(t, []int16{1, 3}, realSink.flat())
	assert.Equal(t, []int16{-2, -4}, imagSink.flat())
}

func TestToComplex(t *testing.T) {
	node := NewToComplex[int16](1)
	sink := &captureSink[Complex[int16]]{}
	require.NoError(t, node.Connect(sink, true))
	require.NoError(t, node.Configure(NewConfig(TypeS16, 1, 8, 1)))
	assert.Equal(t, TypeCS16, sink.cfg.Type)

	require.NoError(t, node.Process(WrapBuffer([]int16{5, -6}), false))
	assert.Equal(t, []Complex[int16]{{Re: 5}, {Re: -6}}, sink.flat())
}

func TestProxyForwards(t *testing.T) {
	proxy := NewProxy()
	sink := &captureSink[int16]{}
	require.NoError(t, proxy.Connect(sink, true))
	require.NoError(t, proxy.Configure(NewConfig(TypeS16, 48000, 16, 1)))
	assert.Equal(t, NewConfig(TypeS16, 48000, 16, 1), sink.cfg)

	require.NoError(t, proxy.HandleBuffer(WrapBuffer([]int16{1, 2}).Raw(), false))
	assert.Equal(t, []int16{1, 2}, sink.flat())
}

func TestScaleNode(t *testing.T) {
	node := NewScale[int16](2)
	sink := &captureSink[int16]{}
	require.NoError(t, node.Connect(sink, true))
	require.NoError(t, node.Configure(NewConfig(TypeS16, 1, 8, 1)))

	require.NoError(t, node.Process(WrapBuffer([]int16{3, -4}), false))
	assert.Equal(t, []int16{6, -8}, sink.flat())
}

func TestScaleUnitForwards(t *testing.T) {
	node := NewScale[int16](1)
	sink := &captureSink[int16]{}
	require.NoError(t, node.Connect(sink, true))
	require.NoError(t, node.Configure(NewConfig(TypeS16, 1, 8, 1)))

	in := WrapBuffer([]int16{7})
	require.NoError(t, node.Process(in, false))
	assert.Equal(t, []int16{7}, sink.flat())
}

func TestAGCConvergesTowardsTarget(t *testing.T) {
	node := NewAGC[int16](0.001, 8000)
	sink := &captureSink[int16]{}
	require.NoError(t, node.Connect(sink, true))
	require.NoError(t, node.Configure(NewConfig(TypeS16, 48000, 256, 1)))

	// A quiet constant signal is amplified towards target/4.
	in := NewBuffer[int16](256, nil)
	in.Fill(500)
	for i := 0; i < 40; i++ {
		require.NoError(t, node.Process(in, false))
	}
	last := sink.got[len(sink.got)-1]
	assert.InDelta(t, 2000, float64(last[len(last)-1]), 200)
}

func TestAGCDisabledKeepsGain(t *testing.T) {
	node := NewAGC[int16](0.1, 8000)
	node.Enable(false)
	node.SetGain(1)
	sink := &captureSink[int16]{}
	require.NoError(t, node.Connect(sink, true))
	require.NoError(t, node.Configure(NewConfig(TypeS16, 48000, 8, 1)))

	require.NoError(t, node.Process(WrapBuffer([]int16{100, -100}), false))
	assert.Equal(t, []int16{100, -100}, sink.flat())
}

func TestStreamSourceReadsChunks(t *testing.T) {
	data := []byte{1, 0, 2, 0, 3, 0} // three little-endian int16 samples
	src := NewStreamSource[int16](bytes.NewReader(data), 8000, 2)
	sink := &captureSink[int16]{}
	require.NoError(t, src.Connect(sink, true))
	assert.Equal(t, NewConfig(TypeS16, 8000, 2, 1), sink.cfg)

	eos := false
	src.AddEOS(func() { eos = true })

	src.Next()
	src.Next()
	src.Next()
	assert.Equal(t, []int16{1, 2, 3}, sink.flat())
	assert.True(t, eos)
}

func TestStreamSinkWritesRaw(t *testing.T) {
	var buf bytes.Buffer
	sink := NewStreamSink[int16](&buf)
	require.NoError(t, sink.Configure(NewConfig(TypeS16, 8000, 4, 1)))
	require.NoError(t, sink.HandleBuffer(WrapBuffer([]int16{0x0102}).Raw(), false))
	assert.Equal(t, []byte{0x02, 0x01}, buf.Bytes())
}

func TestSigGenSine(t *testing.T) {
	gen := NewSigGen[int16](8000, 8, -1)
	gen.AddSine(1000, 1, 0)
	sink := &captureSink[int16]{}
	require.NoError(t, gen.Connect(sink, true))

	gen.Next()
	require.Len(t, sink.got, 1)
	out := sink.got[0]
	require.Len(t, out, 8)
	// sin(2*pi*1000/8000*n) scaled by 32000: one full cycle over 8 samples.
	assert.InDelta(t, 0, float64(out[0]), 2)
	assert.InDelta(t, 22627, float64(out[1]), 40)
	assert.InDelta(t, 32000, float64(out[2]), 40)
	assert.InDelta(t, 0, float64(out[4]), 40)
	assert.InDelta(t, -32000, float64(out[6]), 40)
}

func TestGWNSourceAmplitude(t *testing.T) {
	gen := NewGWNSource[float32](8000, 4096)
	sink := &captureSink[float32]{}
	require.NoError(t, gen.Connect(sink, true))

	gen.Next()
	require.Len(t, sink.got, 1)
	out := sink.got[0]

	mean := 0.0
	for _, v := range out {
		mean += float64(v)
	}
	mean /= float64(len(out))
	variance := 0.0
	for _, v := range out {
		variance += (float64(v) - mean) * (float64(v) - mean)
	}
	variance /= float64(len(out))

	assert.InDelta(t, 0, mean, 0.1)
	assert.InDelta(t, 1, variance, 0.2)
}
