package sdr

import "math"

// AMDemod is an amplitude demodulator: it emits the magnitude of each I/Q
// input sample.
type AMDemod[T Scalar] struct {
	Sink[Complex[T]]
	Source
	buffer Buffer[T]
}

// NewAMDemod constructs an AM demodulator.
func NewAMDemod[T Scalar]() *AMDemod[T] {
	n := &AMDemod[T]{}
	n.InitSink(n.Process)
	return n
}

// Configure implements SinkBase.
func (n *AMDemod[T]) Configure(cfg Config) error {
	if !cfg.HasType() || !cfg.HasBufferSize() {
		return nil
	}
	if cfg.Type != ComplexTypeOf[T]() {
		return newConfigError("can not configure AMDemod: invalid type %s, expected %s",
			cfg.Type, ComplexTypeOf[T]())
	}
	n.buffer = NewBuffer[T](cfg.BufferSize, nil)

	logger.Debug("configured AMDemod node",
		"in", cfg.Type, "out", TypeOf[T](), "rate", cfg.SampleRate, "buffer", cfg.BufferSize)

	return n.SetConfig(NewConfig(TypeOf[T](), cfg.SampleRate, cfg.BufferSize, cfg.NumBuffers))
}

// Process demodulates the buffer, in place when permitted.
func (n *AMDemod[T]) Process(buffer Buffer[Complex[T]], allowOverwrite bool) error {
	var out Buffer[T]
	if allowOverwrite {
		out = ConvertBuffer[T](buffer)
	} else if n.buffer.IsUnused() {
		out = n.buffer
	} else {
		logger.Warn("AMDemod: drop buffer, output buffer still in use")
		return nil
	}
	src := buffer.Slice()
	dst := out.Slice()
	for i := range src {
		re := float64(src[i].Re)
		im := float64(src[i].Im)
		dst[i] = T(math.Sqrt(re*re + im*im))
	}
	return n.Send(out.Head(buffer.Size()).Raw(), true)
}

// USBDemod is an upper side band demodulator: the real and imaginary parts
// are summed and halved in the super-scalar.
type USBDemod[T Scalar] struct {
	Sink[Complex[T]]
	Source
	buffer Buffer[T]
}

// NewUSBDemod constructs a SSB (USB) demodulator.
func NewUSBDemod[T Scalar]() *USBDemod[T] {
	n := &USBDemod[T]{}
	n.InitSink(n.Process)
	return n
}

// Configure implements SinkBase.
func (n *USBDemod[T]) Configure(cfg Config) error {
	if !cfg.HasType() || !cfg.HasBufferSize() {
		return nil
	}
	if cfg.Type != ComplexTypeOf[T]() {
		return newConfigError("can not configure USBDemod: invalid type %s, expected %s",
			cfg.Type, ComplexTypeOf[T]())
	}
	n.buffer = NewBuffer[T](cfg.BufferSize, nil)

	logger.Debug("configured USBDemod node",
		"in", cfg.Type, "out", TypeOf[T](), "rate", cfg.SampleRate, "buffer", cfg.BufferSize)

	return n.SetConfig(NewConfig(TypeOf[T](), cfg.SampleRate, cfg.BufferSize, 1))
}

// Process demodulates the buffer, in place when permitted.
func (n *USBDemod[T]) Process(buffer Buffer[Complex[T]], allowOverwrite bool) error {
	var out Buffer[T]
	if allowOverwrite {
		out = ConvertBuffer[T](buffer)
	} else if n.buffer.IsUnused() {
		out = n.buffer
	} else {
		logger.Warn("USBDemod: drop buffer, output buffer still in use")
		return nil
	}
	src := buffer.Slice()
	dst := out.Slice()
	for i := range src {
		dst[i] = T((int32(src[i].Re) + int32(src[i].Im)) / 2)
	}
	return n.Send(out.Head(buffer.Size()).Raw(), false)
}

// FMDemod demodulates FM from a complex integer input stream. It computes
// the instantaneous phase difference between consecutive samples as
// atan2(Im(x[n]*conj(x[n-1])), Re(x[n]*conj(x[n-1]))) using the integer
// atan2 approximation; the output is int16 in the fixed-point angle
// representation of fastAtan2. The last sample of every buffer is retained
// so the phase stays continuous across buffers.
type FMDemod[T Scalar] struct {
	Sink[Complex[T]]
	Source
	lastValue    Complex[T]
	canOverwrite bool
	buffer       Buffer[int16]
}

// NewFMDemod constructs an FM demodulator.
func NewFMDemod[T Scalar]() *FMDemod[T] {
	n := &FMDemod[T]{}
	n.InitSink(n.Process)
	return n
}

// Configure implements SinkBase.
func (n *FMDemod[T]) Configure(cfg Config) error {
	if !cfg.HasType() || !cfg.HasBufferSize() {
		return nil
	}
	if cfg.Type != ComplexTypeOf[T]() {
		return newConfigError("can not configure FMDemod: invalid type %s, expected %s",
			cfg.Type, ComplexTypeOf[T]())
	}
	n.buffer = NewBuffer[int16](cfg.BufferSize, nil)
	n.lastValue = Complex[T]{}
	// In-place operation is possible as one complex input sample is at
	// least as large as one output sample.
	n.canOverwrite = sampleSize[Complex[T]]() >= sampleSize[int16]()

	logger.Debug("configured FMDemod node",
		"rate", cfg.SampleRate,
		"in", cfg.Type, "out", TypeS16,
		"in-place", n.canOverwrite)

	return n.SetConfig(NewConfig(TypeS16, cfg.SampleRate, cfg.BufferSize, 1))
}

// Process demodulates the buffer, in place when permitted.
func (n *FMDemod[T]) Process(buffer Buffer[Complex[T]], allowOverwrite bool) error {
	if buffer.Size() == 0 {
		return nil
	}
	var out Buffer[int16]
	if allowOverwrite && n.canOverwrite {
		out = ConvertBuffer[int16](buffer)
	} else if n.buffer.IsUnused() {
		out = n.buffer
	} else {
		logger.Warn("FMDemod: drop buffer, output buffer still in use")
		return nil
	}

	shift := TraitsOf[T]().Shift
	last := n.lastValue
	src := buffer.Slice()
	dst := out.Slice()
	for i := range src {
		a := (int32(src[i].Re)*int32(last.Re))/2 + (int32(src[i].Im)*int32(last.Im))/2
		b := (int32(src[i].Im)*int32(last.Re))/2 - (int32(src[i].Re)*int32(last.Im))/2
		a >>= shift
		b >>= shift
		last = src[i]
		dst[i] = fastAtan2(b, a)
	}
	n.lastValue = last
	return n.Send(out.Head(buffer.Size()).Raw(), false)
}

// FMDeemph de-emphasises the high frequencies of an FM transmitted audio
// signal with a single pole IIR low pass, time constant 75us. The average
// update uses fixed-point division with mid-point rounding. Disabled, the
// node forwards buffers untouched.
type FMDeemph[T Scalar] struct {
	Sink[T]
	Source
	enabled bool
	alpha   int32
	avg     T
	buffer  Buffer[T]
}

// NewFMDeemph constructs a de-emphasis node.
func NewFMDeemph[T Scalar](enabled bool) *FMDeemph[T] {
	n := &FMDeemph[T]{enabled: enabled}
	n.InitSink(n.Process)
	return n
}

// IsEnabled returns true if the filter is active.
func (n *FMDeemph[T]) IsEnabled() bool { return n.enabled }

// Enable switches the filter on or off; off it is a NOP node.
func (n *FMDeemph[T]) Enable(enabled bool) { n.enabled = enabled }

// Configure implements SinkBase.
func (n *FMDeemph[T]) Configure(cfg Config) error {
	if !cfg.HasType() || !cfg.HasSampleRate() || !cfg.HasBufferSize() {
		return nil
	}
	if cfg.Type != TypeOf[T]() {
		return newConfigError("can not configure FMDeemph: invalid type %s, expected %s",
			cfg.Type, TypeOf[T]())
	}
	n.alpha = int32(math.Round(1.0 / (1.0 - math.Exp(-1.0/(cfg.SampleRate*75e-6)))))
	n.avg = 0
	n.buffer = NewBuffer[T](cfg.BufferSize, nil)
	return n.SetConfig(NewConfig(cfg.Type, cfg.SampleRate, cfg.BufferSize, 1))
}

// Process filters the buffer, in place when permitted.
func (n *FMDeemph[T]) Process(buffer Buffer[T], allowOverwrite bool) error {
	if !n.enabled {
		return n.Send(buffer.Raw(), allowOverwrite)
	}
	var out Buffer[T]
	if allowOverwrite {
		out = buffer
	} else if n.buffer.IsUnused() {
		out = n.buffer
	} else {
		logger.Warn("FMDeemph: drop buffer, output buffer still in use")
		return nil
	}
	src := buffer.Slice()
	dst := out.Slice()
	avg := int32(n.avg)
	for i := range src {
		diff := int32(src[i]) - avg
		if diff > 0 {
			avg += (diff + n.alpha/2) / n.alpha
		} else {
			avg += (diff - n.alpha/2) / n.alpha
		}
		dst[i] = T(avg)
	}
	n.avg = T(avg)
	return n.Send(out.Head(buffer.Size()).Raw(), allowOverwrite)
}
