package sdr

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// A pure complex exponential of constant amplitude demodulates to a
// constant: the per-sample phase increment, in the fixed-point angle
// representation where pi corresponds to 1<<14.
func TestFMDemodConstantTone(t *testing.T) {
	const (
		n    = 1024
		f    = 0.1
		ampl = 16384
	)
	node := NewFMDemod[int16]()
	sink := &captureSink[int16]{}
	require.NoError(t, node.Connect(sink, true))
	require.NoError(t, node.Configure(NewConfig(TypeCS16, 1, n, 1)))

	in := NewBuffer[Complex[int16]](n, nil)
	src := in.Slice()
	for i := range src {
		phi := 2 * math.Pi * f * float64(i)
		src[i] = Complex[int16]{
			Re: int16(ampl * math.Cos(phi)),
			Im: int16(ampl * math.Sin(phi)),
		}
	}
	require.NoError(t, node.Process(in, false))

	require.Len(t, sink.got, 1)
	out := sink.got[0]
	require.Len(t, out, n)

	// Skip the first sample, it differences against the zero state.
	ideal := 2 * math.Pi * f / math.Pi * float64(1<<14)
	mean := 0.0
	lo, hi := out[1], out[1]
	for _, v := range out[1:] {
		mean += float64(v)
		lo = min(lo, v)
		hi = max(hi, v)
	}
	mean /= float64(n - 1)

	// The piecewise linear atan2 has a systematic error of up to ~0.07 rad
	// (~370 angle units); the tone itself must come out flat.
	assert.InDelta(t, ideal, mean, 400)
	assert.LessOrEqual(t, int(hi-lo), 8)
}

func TestFMDemodPhaseContinuityAcrossBuffers(t *testing.T) {
	const f = 0.05
	node := NewFMDemod[int16]()
	sink := &captureSink[int16]{}
	require.NoError(t, node.Connect(sink, true))
	require.NoError(t, node.Configure(NewConfig(TypeCS16, 1, 64, 1)))

	sample := func(i int) Complex[int16] {
		phi := 2 * math.Pi * f * float64(i)
		return Complex[int16]{
			Re: int16(16000 * math.Cos(phi)),
			Im: int16(16000 * math.Sin(phi)),
		}
	}

	first := NewBuffer[Complex[int16]](64, nil)
	second := NewBuffer[Complex[int16]](64, nil)
	for i := 0; i < 64; i++ {
		first.Set(i, sample(i))
		second.Set(i, sample(64+i))
	}
	require.NoError(t, node.Process(first, false))

	// The last sample of the first buffer is retained: the first output of
	// the second buffer continues the phase without a glitch.
	require.NoError(t, node.Process(second, false))
	require.Len(t, sink.got, 2)
	tail := sink.got[0][40]
	head := sink.got[1][0]
	assert.InDelta(t, float64(tail), float64(head), 8)
}

func TestFMDemodConfigPropagation(t *testing.T) {
	node := NewFMDemod[int16]()
	sink := &captureSink[int16]{}
	require.NoError(t, node.Connect(sink, true))
	require.NoError(t, node.Configure(NewConfig(TypeCS16, 22050, 512, 1)))

	assert.Equal(t, TypeS16, sink.cfg.Type)
	assert.Equal(t, 22050.0, sink.cfg.SampleRate)
	assert.Equal(t, 512, sink.cfg.BufferSize)
}

func TestFMDemodRejectsRealInput(t *testing.T) {
	node := NewFMDemod[int16]()
	err := node.Configure(NewConfig(TypeS16, 22050, 512, 1))
	var cfgErr *ConfigError
	assert.ErrorAs(t, err, &cfgErr)
}

func TestFMDemodDropKeepsInputRefCount(t *testing.T) {
	node := NewFMDemod[int16]()
	holder := &holdSink{}
	require.NoError(t, node.Connect(holder, true))
	require.NoError(t, node.Configure(NewConfig(TypeCS16, 1, 16, 1)))

	in := NewBuffer[Complex[int16]](16, nil)
	require.NoError(t, node.Process(in, false))
	require.Len(t, holder.held, 1)

	before := in.RefCount()
	require.NoError(t, node.Process(in, false))
	assert.Equal(t, before, in.RefCount())
	assert.Len(t, holder.held, 1)
	holder.release()
}

func TestAMDemodMagnitude(t *testing.T) {
	node := NewAMDemod[int16]()
	sink := &captureSink[int16]{}
	require.NoError(t, node.Connect(sink, true))
	require.NoError(t, node.Configure(NewConfig(TypeCS16, 1, 16, 1)))

	in := NewBuffer[Complex[int16]](3, nil)
	in.Set(0, Complex[int16]{Re: 3, Im: 4})
	in.Set(1, Complex[int16]{Re: 0, Im: -5})
	in.Set(2, Complex[int16]{Re: -6, Im: 8})
	require.NoError(t, node.Process(in, false))

	require.Len(t, sink.got, 1)
	assert.Equal(t, []int16{5, 5, 10}, sink.got[0])
}

func TestUSBDemodSum(t *testing.T) {
	node := NewUSBDemod[int16]()
	sink := &captureSink[int16]{}
	require.NoError(t, node.Connect(sink, true))
	require.NoError(t, node.Configure(NewConfig(TypeCS16, 1, 16, 1)))

	in := NewBuffer[Complex[int16]](2, nil)
	in.Set(0, Complex[int16]{Re: 10, Im: 6})
	in.Set(1, Complex[int16]{Re: -10, Im: 4})
	require.NoError(t, node.Process(in, false))

	require.Len(t, sink.got, 1)
	assert.Equal(t, []int16{8, -3}, sink.got[0])
}

func TestFMDeemphTracksInput(t *testing.T) {
	node := NewFMDeemph[int16](true)
	sink := &captureSink[int16]{}
	require.NoError(t, node.Connect(sink, true))
	require.NoError(t, node.Configure(NewConfig(TypeS16, 48000, 64, 1)))

	// A constant input converges on the constant.
	in := NewBuffer[int16](64, nil)
	in.Fill(10000)
	for i := 0; i < 20; i++ {
		require.NoError(t, node.Process(in, false))
	}
	last := sink.got[len(sink.got)-1]
	assert.InDelta(t, 10000, float64(last[len(last)-1]), 4)
}

func TestFMDeemphDisabledForwards(t *testing.T) {
	node := NewFMDeemph[int16](false)
	sink := &captureSink[int16]{}
	require.NoError(t, node.Connect(sink, true))
	require.NoError(t, node.Configure(NewConfig(TypeS16, 48000, 4, 1)))

	in := NewBuffer[int16](4, nil)
	in.Set(0, 1)
	in.Set(1, -1)
	in.Set(2, 2)
	in.Set(3, -2)
	require.NoError(t, node.Process(in, false))
	require.Len(t, sink.got, 1)
	assert.Equal(t, []int16{1, -1, 2, -2}, sink.got[0])
}

func TestFastAtan2Octants(t *testing.T) {
	const pi = 1 << 14
	assert.EqualValues(t, 0, fastAtan2(0, 0))
	assert.EqualValues(t, 0, fastAtan2(0, 100))
	assert.EqualValues(t, pi/4, fastAtan2(100, 100))
	assert.EqualValues(t, pi/2, fastAtan2(100, 0))
	assert.EqualValues(t, -pi/2, fastAtan2(-100, 0))
	assert.EqualValues(t, 3*pi/4, fastAtan2(100, -100))

	// Against the real atan2, everywhere within ~0.08 rad.
	for _, pair := range [][2]int32{{3, 17}, {-250, 40}, {1000, -400}, {-7, -9}} {
		a, b := pair[0], pair[1]
		want := math.Atan2(float64(a), float64(b)) / math.Pi * pi
		assert.InDelta(t, want, float64(fastAtan2(a, b)), 0.08/math.Pi*pi)
	}
}
