package sdr

import "math"

// iqKernelShift is the number of fractional bits of the fixed-point FIR
// kernel of the IQBaseBand node.
const iqKernelShift = 14

// IQBaseBand selects a portion of a complex integer input stream: it applies
// a FIR band pass centred at the filter frequency, shifts the centre
// frequency down to 0 and finally sub-samples the stream by an integer
// factor using an averaging accumulator. The node reduces the stream rate
// so that more expensive processing can run on its output.
//
// All arithmetic is performed on the int32 super-scalar; the kernel carries
// 14 fractional bits and every filter output is shifted back down by 14.
type IQBaseBand[T Scalar] struct {
	Sink[Complex[T]]
	Source
	FreqShiftBase[T]

	fc        float64
	ff        float64
	fs        float64
	width     float64
	order     int
	subSample int
	oFs       float64

	ringOffset  int
	sampleCount int
	last        Complex[int32]
	sourceBs    int

	kernel []Complex[int32]
	ring   []Complex[int32]
	buffer Buffer[Complex[T]]
}

// NewIQBaseBand constructs a base band node with the filter centred on the
// centre frequency fc. width is the band pass width in Hz, order the number
// of FIR taps and subSample the decimation factor.
func NewIQBaseBand[T Scalar](fc, width float64, order, subSample int) *IQBaseBand[T] {
	return NewIQBaseBandAt[T](fc, fc, width, order, subSample)
}

// NewIQBaseBandAt constructs a base band node with an explicit filter centre
// frequency ff, independent of the frequency fc shifted to DC.
func NewIQBaseBandAt[T Scalar](fc, ff, width float64, order, subSample int) *IQBaseBand[T] {
	n := &IQBaseBand[T]{
		fc:        fc,
		ff:        ff,
		width:     width,
		order:     max(1, order),
		subSample: max(1, subSample),
	}
	n.InitSink(n.Process)
	n.InitFreqShift(fc, 0)
	n.kernel = make([]Complex[int32], n.order)
	n.ring = make([]Complex[int32], n.order)
	return n
}

// NewIQBaseBandRate constructs a base band node that derives the decimation
// factor from a target output sample rate once configured.
func NewIQBaseBandRate[T Scalar](fc, width float64, order int, outRate float64) *IQBaseBand[T] {
	n := NewIQBaseBandAt[T](fc, fc, width, order, 1)
	n.oFs = outRate
	return n
}

// Order returns the order of the band pass filter.
func (n *IQBaseBand[T]) Order() int { return n.order }

// SetOrder resets the filter order. Orders below one are clamped to one; the
// kernel and the filter ring are recomputed.
func (n *IQBaseBand[T]) SetOrder(order int) {
	n.order = max(1, order)
	n.kernel = make([]Complex[int32], n.order)
	n.ring = make([]Complex[int32], n.order)
	n.ringOffset = 0
	n.updateFilterKernel()
}

// CenterFrequency returns the frequency shifted down to DC.
func (n *IQBaseBand[T]) CenterFrequency() float64 { return n.fc }

// SetCenterFrequency retunes the node.
func (n *IQBaseBand[T]) SetCenterFrequency(fc float64) {
	n.fc = fc
	n.SetFrequencyShift(fc)
}

// FilterFrequency returns the centre frequency of the band pass.
func (n *IQBaseBand[T]) FilterFrequency() float64 { return n.ff }

// SetFilterFrequency re-centres the band pass and recomputes the kernel.
func (n *IQBaseBand[T]) SetFilterFrequency(ff float64) {
	n.ff = ff
	n.updateFilterKernel()
}

// FilterWidth returns the width of the band pass.
func (n *IQBaseBand[T]) FilterWidth() float64 { return n.width }

// SetFilterWidth resets the band pass width and recomputes the kernel.
func (n *IQBaseBand[T]) SetFilterWidth(width float64) {
	n.width = width
	n.updateFilterKernel()
}

// SubSample returns the decimation factor.
func (n *IQBaseBand[T]) SubSample() int { return n.subSample }

// SetSubSample resets the decimation factor. The queue must be stopped while
// reconfiguring a running pipeline.
func (n *IQBaseBand[T]) SetSubSample(subSample int) error {
	n.subSample = max(1, subSample)
	n.oFs = 0
	return n.reconfigure()
}

// SetOutputSampleRate derives the decimation factor from a target output
// rate. The effective output rate is rounded to an integral fraction of the
// input rate.
func (n *IQBaseBand[T]) SetOutputSampleRate(rate float64) error {
	n.oFs = rate
	return n.reconfigure()
}

// Configure implements SinkBase.
func (n *IQBaseBand[T]) Configure(cfg Config) error {
	if !cfg.HasType() || !cfg.HasSampleRate() || !cfg.HasBufferSize() {
		return nil
	}
	if cfg.Type != ComplexTypeOf[T]() {
		return newConfigError("can not configure IQBaseBand: invalid type %s, expected %s",
			cfg.Type, ComplexTypeOf[T]())
	}
	n.fs = cfg.SampleRate
	n.sourceBs = cfg.BufferSize
	return n.reconfigure()
}

func (n *IQBaseBand[T]) reconfigure() error {
	if n.oFs > 0 && n.fs > 0 {
		n.subSample = max(1, int(math.Round(n.fs/n.oFs)))
	}
	n.updateFilterKernel()
	n.SetFreqShiftSampleRate(n.fs)

	bufferSize := n.sourceBs / n.subSample
	if n.sourceBs%n.subSample != 0 {
		bufferSize++
	}
	n.buffer = NewBuffer[Complex[T]](bufferSize, nil)

	n.last = Complex[int32]{}
	n.sampleCount = 0
	n.ringOffset = 0
	for i := range n.ring {
		n.ring[i] = Complex[int32]{}
	}

	logger.Debug("configured IQBaseBand node",
		"type", ComplexTypeOf[T](),
		"rate", n.fs,
		"center", n.fc,
		"width", n.width,
		"order", n.order,
		"in-buffer", n.sourceBs,
		"sub-sample", n.subSample,
		"out-buffer", bufferSize)

	return n.SetConfig(NewConfig(ComplexTypeOf[T](), n.fs/float64(n.subSample), bufferSize, 1))
}

// Process filters, shifts and decimates the given buffer. With the overwrite
// permission the operation runs in place; otherwise the result goes to the
// node's own output buffer. If that buffer is still in use downstream the
// input is dropped.
func (n *IQBaseBand[T]) Process(buffer Buffer[Complex[T]], allowOverwrite bool) error {
	switch {
	case allowOverwrite:
		return n.process(buffer, buffer)
	case n.buffer.IsUnused():
		return n.process(buffer, n.buffer)
	default:
		logger.Warn("IQBaseBand: drop buffer, output buffer still in use")
		return nil
	}
}

func (n *IQBaseBand[T]) process(in, out Buffer[Complex[T]]) error {
	src := in.Slice()
	dst := out.Slice()
	j := 0
	for i := range src {
		n.ring[n.ringOffset] = Complex[int32]{Re: int32(src[i].Re), Im: int32(src[i].Im)}

		v := n.ApplyFrequencyShift(n.filterRing())
		n.last.Re += v.Re
		n.last.Im += v.Im
		n.sampleCount++

		n.ringOffset++
		if n.ringOffset == n.order {
			n.ringOffset = 0
		}

		if n.sampleCount == n.subSample {
			d := int32(n.subSample)
			dst[j] = Complex[T]{T(n.last.Re / d), T(n.last.Im / d)}
			n.last = Complex[int32]{}
			n.sampleCount = 0
			j++
		}
	}
	return n.Send(out.Head(j).Raw(), true)
}

// filterRing evaluates the FIR dot product over the ring of past inputs,
// starting one past the write offset for correct temporal order.
func (n *IQBaseBand[T]) filterRing() Complex[int32] {
	var res Complex[int32]
	idx := n.ringOffset + 1
	if idx == n.order {
		idx = 0
	}
	for i := 0; i < n.order; i++ {
		if idx == n.order {
			idx = 0
		}
		k := n.kernel[i]
		r := n.ring[idx]
		res.Re += k.Re*r.Re - k.Im*r.Im
		res.Im += k.Re*r.Im + k.Im*r.Re
		idx++
	}
	res.Re >>= iqKernelShift
	res.Im >>= iqKernelShift
	return res
}

// updateFilterKernel recomputes the Blackman-windowed sinc kernel, shifted
// to the filter frequency and rescaled to 14 fractional bits.
func (n *IQBaseBand[T]) updateFilterKernel() {
	if n.fs == 0 {
		return
	}
	alpha := make([]complex128, n.order)
	w := math.Pi * n.width / n.fs
	m := float64(n.order) / 2
	norm := 0.0
	for i := 0; i < n.order; i++ {
		var a complex128
		if n.order == 2*i {
			a = complex(4*(w/math.Pi), 0)
		} else {
			x := w * (float64(i) - m)
			a = complex(math.Sin(x)/x, 0)
		}
		// Shift the low pass up to the filter frequency.
		phi := -2 * math.Pi * n.ff * float64(i) / n.fs
		a *= complex(math.Cos(phi), math.Sin(phi))
		// Blackman window.
		a *= complex(0.42-0.5*math.Cos(2*math.Pi*float64(i)/float64(n.order))+
			0.08*math.Cos(4*math.Pi*float64(i)/float64(n.order)), 0)
		alpha[i] = a
		norm += cmplxAbs(a)
	}
	if norm == 0 {
		// Degenerate at order one, where the window vanishes everywhere.
		norm = 1
	}
	scale := float64(int32(1) << iqKernelShift)
	for i := 0; i < n.order; i++ {
		n.kernel[i] = Complex[int32]{
			Re: int32(scale * real(alpha[i]) / norm),
			Im: int32(scale * imag(alpha[i]) / norm),
		}
	}
}

func cmplxAbs(c complex128) float64 {
	return math.Hypot(real(c), imag(c))
}

// BaseBand performs the same selection on a real valued input stream: band
// pass filtering, shift of the selected band down to DC and averaging
// sub-sampling. The output is the complex base band signal.
type BaseBand[T Scalar] struct {
	Sink[T]
	Source
	FreqShiftBase[T]

	ff        float64
	width     float64
	order     int
	subSample int

	ringOffset  int
	sampleCount int
	last        Complex[int32]

	kernel []Complex[int32]
	ring   []int32
	buffer Buffer[Complex[T]]
}

// NewBaseBand constructs a real input base band node. The signal is shifted
// down by fc, the band pass is centred there too.
func NewBaseBand[T Scalar](fc, width float64, order, subSample int) *BaseBand[T] {
	return NewBaseBandAt[T](fc, fc, width, order, subSample)
}

// NewBaseBandAt constructs a real input base band node with an explicit band
// pass centre frequency ff.
func NewBaseBandAt[T Scalar](fc, ff, width float64, order, subSample int) *BaseBand[T] {
	n := &BaseBand[T]{
		ff:        ff,
		width:     width,
		order:     max(1, order),
		subSample: max(1, subSample),
	}
	n.InitSink(n.Process)
	n.InitFreqShift(fc, 0)
	n.kernel = make([]Complex[int32], n.order)
	n.ring = make([]int32, n.order)
	return n
}

// Configure implements SinkBase.
func (n *BaseBand[T]) Configure(cfg Config) error {
	if !cfg.HasType() || !cfg.HasSampleRate() || !cfg.HasBufferSize() {
		return nil
	}
	if cfg.Type != TypeOf[T]() {
		return newConfigError("can not configure BaseBand: invalid type %s, expected %s",
			cfg.Type, TypeOf[T]())
	}
	n.SetFreqShiftSampleRate(cfg.SampleRate)
	n.updateFilterKernel()

	bufferSize := cfg.BufferSize / n.subSample
	if cfg.BufferSize%n.subSample != 0 {
		bufferSize++
	}
	n.buffer = NewBuffer[Complex[T]](bufferSize, nil)

	n.last = Complex[int32]{}
	n.sampleCount = 0
	n.ringOffset = 0
	for i := range n.ring {
		n.ring[i] = 0
	}

	logger.Debug("configured BaseBand node",
		"type", ComplexTypeOf[T](),
		"rate", n.FreqShiftSampleRate(),
		"center", n.FrequencyShift(),
		"width", n.width,
		"in-buffer", cfg.BufferSize,
		"sub-sample", n.subSample,
		"out-buffer", bufferSize)

	return n.SetConfig(NewConfig(ComplexTypeOf[T](),
		n.FreqShiftSampleRate()/float64(n.subSample), bufferSize, 1))
}

// Process filters, shifts and decimates the given buffer into the node's
// output buffer; the input is dropped while the output is still in use.
func (n *BaseBand[T]) Process(buffer Buffer[T], allowOverwrite bool) error {
	if !n.buffer.IsUnused() {
		logger.Warn("BaseBand: drop buffer, output buffer still in use")
		return nil
	}
	src := buffer.Slice()
	dst := n.buffer.Slice()
	j := 0
	for i := range src {
		n.ring[n.ringOffset] = int32(src[i])

		v := n.ApplyFrequencyShift(n.filterRing())
		n.last.Re += v.Re
		n.last.Im += v.Im
		n.sampleCount++

		n.ringOffset++
		if n.ringOffset == n.order {
			n.ringOffset = 0
		}

		if n.sampleCount == n.subSample {
			d := int32(n.subSample)
			dst[j] = Complex[T]{T(n.last.Re / d), T(n.last.Im / d)}
			n.last = Complex[int32]{}
			n.sampleCount = 0
			j++
		}
	}
	return n.Send(n.buffer.Head(j).Raw(), true)
}

func (n *BaseBand[T]) filterRing() Complex[int32] {
	var res Complex[int32]
	idx := n.ringOffset + 1
	if idx == n.order {
		idx = 0
	}
	shift := TraitsOf[T]().Shift
	for i := 0; i < n.order; i++ {
		if idx == n.order {
			idx = 0
		}
		k := n.kernel[i]
		r := n.ring[idx]
		res.Re += k.Re * r
		res.Im += k.Im * r
		idx++
	}
	res.Re >>= shift
	res.Im >>= shift
	return res
}

func (n *BaseBand[T]) updateFilterKernel() {
	fs := n.FreqShiftSampleRate()
	if fs == 0 {
		return
	}
	alpha := make([]complex128, n.order)
	w := math.Pi * n.width / fs
	m := float64(n.order) / 2
	for i := 0; i < n.order; i++ {
		if n.order == 2*i {
			alpha[i] = 1
		} else {
			x := w * (float64(i) - m)
			alpha[i] = complex(math.Sin(x)/x, 0)
		}
	}
	norm := 0.0
	for i := 0; i < n.order; i++ {
		phi := 2 * math.Pi * n.ff * float64(i) / fs
		alpha[i] *= complex(math.Cos(phi), math.Sin(phi))
		alpha[i] *= complex(0.42-0.5*math.Cos(2*math.Pi*float64(i+1)/float64(n.order+2))+
			0.08*math.Cos(4*math.Pi*float64(i+1)/float64(n.order+2)), 0)
		norm += cmplxAbs(alpha[i])
	}
	if norm == 0 {
		norm = 1
	}
	shift := TraitsOf[T]().Shift
	scale := float64(int64(1) << shift)
	for i := 0; i < n.order; i++ {
		n.kernel[i] = Complex[int32]{
			Re: int32(scale * real(alpha[i]) / norm),
			Im: int32(scale * imag(alpha[i]) / norm),
		}
	}
}
