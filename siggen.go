package sdr

import (
	"math"
	"math/rand"
)

// SigGen is an arbitrary function generator: a sum of sine components,
// scaled to the range of the scalar type. Next is typically connected to
// the idle hook of the queue; with a maximum time set the generator stops
// the queue once it elapsed.
type SigGen[T Scalar] struct {
	Source

	sampleRate float64
	dt         float64
	t          float64
	tMax       float64
	scale      float64

	signals [][3]float64 // frequency, amplitude, phase
	buffer  Buffer[T]
}

// NewSigGen constructs a generator. tMax < 0 runs forever.
func NewSigGen[T Scalar](sampleRate float64, bufferSize int, tMax float64) *SigGen[T] {
	g := &SigGen[T]{
		sampleRate: sampleRate,
		dt:         1 / sampleRate,
		tMax:       tMax,
		scale:      sigGenScale[T](),
		buffer:     NewBuffer[T](bufferSize, nil),
	}
	g.SetConfig(NewConfig(TypeOf[T](), sampleRate, bufferSize, 1))
	return g
}

func sigGenScale[T Scalar]() float64 {
	switch TypeOf[T]() {
	case TypeU8, TypeS8:
		return 127
	case TypeU16, TypeS16:
		return 32000
	}
	return 1
}

// AddSine adds a sine component.
func (g *SigGen[T]) AddSine(freq, ampl, phase float64) {
	g.signals = append(g.signals, [3]float64{freq, ampl, phase})
}

// Next computes and emits the next buffer.
func (g *SigGen[T]) Next() {
	if g.tMax > 0 && g.t >= g.tMax {
		g.Queue().Stop()
		return
	}
	dst := g.buffer.Slice()
	for i := range dst {
		v := 0.0
		for _, sig := range g.signals {
			v += g.scale * sig[1] * math.Sin(2*math.Pi*sig[0]*g.t+sig[2]) / float64(len(g.signals))
		}
		dst[i] = T(v)
		g.t += g.dt
	}
	if err := g.Send(g.buffer.Raw(), false); err != nil {
		logger.Error("SigGen: downstream failed", "err", err)
	}
}

// GWNSource emits Gaussian white noise at unit standard deviation scaled to
// the sample type. Useful to exercise and measure a receiver chain.
type GWNSource[T Scalar] struct {
	Source
	bufferSize int
	buffer     Buffer[T]
	mean       float64
	rng        *rand.Rand
}

// NewGWNSource constructs a noise source.
func NewGWNSource[T Scalar](sampleRate float64, bufferSize int) *GWNSource[T] {
	g := &GWNSource[T]{
		bufferSize: bufferSize,
		buffer:     NewBuffer[T](bufferSize, nil),
		rng:        rand.New(rand.NewSource(rand.Int63())),
	}
	switch TypeOf[T]() {
	case TypeU8, TypeU16:
		g.mean = 1
	}
	g.SetConfig(NewConfig(TypeOf[T](), sampleRate, bufferSize, 1))
	return g
}

// Next samples and emits the next chunk of noise.
func (g *GWNSource[T]) Next() {
	scale := TraitsOf[T]().Scale
	dst := g.buffer.Slice()
	for i := 0; i+1 < len(dst); i += 2 {
		a, b := g.normalPair()
		dst[i] = T(scale * (a + g.mean))
		dst[i+1] = T(scale * (b + g.mean))
	}
	if len(dst)%2 == 1 {
		a, _ := g.normalPair()
		dst[len(dst)-1] = T(scale * (a + g.mean))
	}
	if err := g.Send(g.buffer.Raw(), true); err != nil {
		logger.Error("GWNSource: downstream failed", "err", err)
	}
}

// normalPair draws two standard normal values by the polar method.
func (g *GWNSource[T]) normalPair() (float64, float64) {
	for {
		x := 2*g.rng.Float64() - 1
		y := 2*g.rng.Float64() - 1
		s := x*x + y*y
		if s > 0 && s < 1 {
			f := math.Sqrt(-2 * math.Log(s) / s)
			return x * f, y * f
		}
	}
}
