package sdr

// SubSample is a plain averaging decimator: every n input samples are
// averaged into one output sample. The averaging rejects aliasing energy a
// plain pick-one decimator would fold into the output band.
type SubSample[T Scalar] struct {
	Sink[T]
	Source
	n      int
	oFs    float64
	last   int64
	left   int
	buffer Buffer[T]
}

// NewSubSample constructs a decimator by an integer factor.
func NewSubSample[T Scalar](n int) *SubSample[T] {
	s := &SubSample[T]{n: max(1, n)}
	s.InitSink(s.Process)
	return s
}

// NewSubSampleRate constructs a decimator that derives its factor from a
// target output sample rate once configured.
func NewSubSampleRate[T Scalar](rate float64) *SubSample[T] {
	s := &SubSample[T]{n: 1, oFs: rate}
	s.InitSink(s.Process)
	return s
}

// Configure implements SinkBase.
func (s *SubSample[T]) Configure(cfg Config) error {
	if !cfg.HasType() || !cfg.HasBufferSize() {
		return nil
	}
	if cfg.Type != TypeOf[T]() {
		return newConfigError("can not configure SubSample: invalid type %s, expected %s",
			cfg.Type, TypeOf[T]())
	}

	if s.oFs > 0 {
		s.n = max(1, int(cfg.SampleRate/s.oFs))
	}
	outSize := cfg.BufferSize / s.n
	if cfg.BufferSize%s.n != 0 {
		outSize++
	}

	logger.Debug("configured SubSample node",
		"by", s.n,
		"type", cfg.Type,
		"rate", cfg.SampleRate, "out-rate", cfg.SampleRate/float64(s.n),
		"buffer", cfg.BufferSize, "out-buffer", outSize)

	s.buffer = NewBuffer[T](outSize, nil)
	return s.SetConfig(NewConfig(cfg.Type, cfg.SampleRate/float64(s.n), outSize, 1))
}

// Process decimates the buffer, in place when permitted.
func (s *SubSample[T]) Process(buffer Buffer[T], allowOverwrite bool) error {
	switch {
	case allowOverwrite:
		return s.process(buffer, buffer)
	case s.buffer.IsUnused():
		return s.process(buffer, s.buffer)
	default:
		logger.Warn("SubSample: drop buffer, output buffer still in use")
		return nil
	}
}

func (s *SubSample[T]) process(in, out Buffer[T]) error {
	src := in.Slice()
	dst := out.Slice()
	j := 0
	for i := range src {
		s.last += int64(src[i])
		s.left++
		if s.left >= s.n {
			dst[j] = T(s.last / int64(s.n))
			j++
			s.last = 0
			s.left = 0
		}
	}
	return s.Send(out.Head(j).Raw(), true)
}

// fracSubSampleScale is the fixed-point scale of the fractional sample
// counter.
const fracSubSampleScale = 1 << 16

// FracSubSample decimates by a fractional factor >= 1 using a 16 bit phase
// accumulator: each input advances the counter by 2^16, an output sample is
// the average of the inputs collected since the counter last crossed the
// period frac*2^16.
type FracSubSample[T Scalar] struct {
	Sink[T]
	Source
	avg         int64
	sampleCount int
	period      int
	buffer      Buffer[T]
}

// NewFracSubSample constructs a fractional decimator. frac is the input to
// output rate ratio; fractions below one are rejected.
func NewFracSubSample[T Scalar](frac float64) (*FracSubSample[T], error) {
	s := &FracSubSample[T]{}
	if err := s.SetFrac(frac); err != nil {
		return nil, err
	}
	s.InitSink(s.Process)
	return s, nil
}

// Frac returns the effective decimation fraction.
func (s *FracSubSample[T]) Frac() float64 {
	return float64(s.period) / fracSubSampleScale
}

// SetFrac resets the decimation fraction and the accumulator state.
func (s *FracSubSample[T]) SetFrac(frac float64) error {
	if frac < 1 {
		return newConfigError("FracSubSample: can not sub-sample with fraction smaller one: %g", frac)
	}
	s.period = int(frac * fracSubSampleScale)
	s.sampleCount = 0
	s.avg = 0
	return nil
}

// Reset clears the accumulator state.
func (s *FracSubSample[T]) Reset() {
	s.avg = 0
	s.sampleCount = 0
}

// Configure implements SinkBase.
func (s *FracSubSample[T]) Configure(cfg Config) error {
	if !cfg.HasType() || !cfg.HasBufferSize() {
		return nil
	}
	if cfg.Type != TypeOf[T]() {
		return newConfigError("can not configure FracSubSample: invalid type %s, expected %s",
			cfg.Type, TypeOf[T]())
	}
	outSize := int(float64(cfg.BufferSize)/s.Frac()) + 1
	s.buffer = NewBuffer[T](outSize, nil)
	s.Reset()
	return s.SetConfig(NewConfig(cfg.Type, cfg.SampleRate/s.Frac(), outSize, 1))
}

// Process decimates the buffer into the node's output buffer.
func (s *FracSubSample[T]) Process(buffer Buffer[T], allowOverwrite bool) error {
	if !s.buffer.IsUnused() {
		logger.Warn("FracSubSample: drop buffer, output buffer still in use")
		return nil
	}
	out := s.Decimate(buffer, s.buffer)
	return s.Send(out.Raw(), true)
}

// Decimate performs the fractional sub-sampling from in into out, which may
// refer to the same storage. It returns the view of out holding the
// produced samples.
func (s *FracSubSample[T]) Decimate(in, out Buffer[T]) Buffer[T] {
	src := in.Slice()
	dst := out.Slice()
	o := 0
	for i := range src {
		s.avg += int64(src[i])
		s.sampleCount += fracSubSampleScale
		if s.sampleCount >= s.period {
			dst[o] = T(s.avg / int64(s.sampleCount/fracSubSampleScale))
			s.sampleCount = 0
			s.avg = 0
			o++
		}
	}
	return out.Head(o)
}
