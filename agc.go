package sdr

import "math"

// AGC adjusts the gain of a stream so the average absolute amplitude of the
// output settles at a quarter of the target level: the gain is
// target/(4*envelope). The envelope follows an exponential average of the
// absolute input with time constant tau; the default target depends on the
// scalar range.
type AGC[T Scalar] struct {
	Sink[T]
	Source

	enabled    bool
	tau        float64
	lambda     float64
	sd         float64
	target     float64
	gain       float64
	sampleRate float64

	buffer Buffer[T]
}

// NewAGC constructs an AGC node. A target of 0 selects the default for the
// scalar type: 127 for the 8 bit types, 32000 for the 16 bit types and 1
// for the floating point types.
func NewAGC[T Scalar](tau, target float64) *AGC[T] {
	if target == 0 {
		switch TypeOf[T]() {
		case TypeU8, TypeS8:
			target = 127
		case TypeU16, TypeS16:
			target = 32000
		default:
			target = 1
		}
	}
	n := &AGC[T]{enabled: true, tau: tau, target: target, sd: target, gain: 1}
	n.InitSink(n.Process)
	return n
}

// Enabled returns true if the gain adjustment is active.
func (n *AGC[T]) Enabled() bool { return n.enabled }

// Enable switches the gain adjustment on or off; off, the current gain
// keeps being applied.
func (n *AGC[T]) Enable(enabled bool) { n.enabled = enabled }

// Gain returns the current gain factor.
func (n *AGC[T]) Gain() float64 { return n.gain }

// SetGain resets the gain factor.
func (n *AGC[T]) SetGain(gain float64) { n.gain = gain }

// Tau returns the time constant in seconds.
func (n *AGC[T]) Tau() float64 { return n.tau }

// SetTau resets the time constant.
func (n *AGC[T]) SetTau(tau float64) {
	n.tau = tau
	if n.sampleRate > 0 {
		n.lambda = math.Exp(-1 / (n.tau * n.sampleRate))
	}
}

// Configure implements SinkBase.
func (n *AGC[T]) Configure(cfg Config) error {
	if !cfg.HasType() || !cfg.HasSampleRate() || !cfg.HasBufferSize() {
		return nil
	}
	if cfg.Type != TypeOf[T]() {
		return newConfigError("can not configure AGC: invalid type %s, expected %s",
			cfg.Type, TypeOf[T]())
	}
	n.sampleRate = cfg.SampleRate
	n.lambda = math.Exp(-1 / (n.tau * cfg.SampleRate))
	n.sd = n.target
	n.buffer = NewBuffer[T](cfg.BufferSize, nil)

	logger.Debug("configured AGC node",
		"type", cfg.Type,
		"rate", cfg.SampleRate,
		"tau", n.tau,
		"target", n.target)

	return n.SetConfig(NewConfig(cfg.Type, cfg.SampleRate, cfg.BufferSize, 1))
}

// Process amplifies the buffer and tracks the envelope.
func (n *AGC[T]) Process(buffer Buffer[T], allowOverwrite bool) error {
	if !n.enabled && n.gain == 1 {
		return n.Send(buffer.Raw(), allowOverwrite)
	}
	src := buffer.Slice()
	dst := n.buffer.Slice()
	for i := range src {
		n.sd = n.lambda*n.sd + (1-n.lambda)*math.Abs(float64(src[i]))
		if n.enabled && n.sd > 0 {
			n.gain = n.target / (4 * n.sd)
		}
		dst[i] = T(n.gain * float64(src[i]))
	}
	return n.Send(n.buffer.Head(buffer.Size()).Raw(), false)
}
