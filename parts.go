package sdr

// RealImagPart extracts the real or the imaginary component of a complex
// stream, with an optional gain.
type RealImagPart[T Scalar] struct {
	Sink[Complex[T]]
	Source
	selectReal bool
	scale      float64
	buffer     Buffer[T]
}

// NewRealPart selects the real component of a complex stream.
func NewRealPart[T Scalar](scale float64) *RealImagPart[T] {
	n := &RealImagPart[T]{selectReal: true, scale: scale}
	n.InitSink(n.Process)
	return n
}

// NewImagPart selects the imaginary component of a complex stream.
func NewImagPart[T Scalar](scale float64) *RealImagPart[T] {
	n := &RealImagPart[T]{selectReal: false, scale: scale}
	n.InitSink(n.Process)
	return n
}

// Configure implements SinkBase.
func (n *RealImagPart[T]) Configure(cfg Config) error {
	if !cfg.HasType() || !cfg.HasBufferSize() {
		return nil
	}
	if cfg.Type != ComplexTypeOf[T]() {
		return newConfigError("can not configure RealImagPart: invalid buffer type %s, expected %s",
			cfg.Type, ComplexTypeOf[T]())
	}
	n.buffer = NewBuffer[T](cfg.BufferSize, nil)
	return n.SetConfig(NewConfig(TypeOf[T](), cfg.SampleRate, cfg.BufferSize, 1))
}

// Process extracts the selected component.
func (n *RealImagPart[T]) Process(buffer Buffer[Complex[T]], allowOverwrite bool) error {
	src := buffer.Slice()
	dst := n.buffer.Slice()
	if n.selectReal {
		for i := range src {
			dst[i] = T(n.scale * float64(src[i].Re))
		}
	} else {
		for i := range src {
			dst[i] = T(n.scale * float64(src[i].Im))
		}
	}
	return n.Send(n.buffer.Head(buffer.Size()).Raw(), false)
}

// ToComplex expands a real stream into a complex one with zero imaginary
// component, with an optional gain.
type ToComplex[T Scalar] struct {
	Sink[T]
	Source
	scale  float64
	buffer Buffer[Complex[T]]
}

// NewToComplex constructs the expansion node.
func NewToComplex[T Scalar](scale float64) *ToComplex[T] {
	n := &ToComplex[T]{scale: scale}
	n.InitSink(n.Process)
	return n
}

// Configure implements SinkBase.
func (n *ToComplex[T]) Configure(cfg Config) error {
	if !cfg.HasType() || !cfg.HasBufferSize() {
		return nil
	}
	if cfg.Type != TypeOf[T]() {
		return newConfigError("can not configure ToComplex: invalid buffer type %s, expected %s",
			cfg.Type, TypeOf[T]())
	}
	n.buffer = NewBuffer[Complex[T]](cfg.BufferSize, nil)
	return n.SetConfig(NewConfig(ComplexTypeOf[T](), cfg.SampleRate, cfg.BufferSize, cfg.NumBuffers))
}

// Process expands the buffer.
func (n *ToComplex[T]) Process(buffer Buffer[T], allowOverwrite bool) error {
	src := buffer.Slice()
	dst := n.buffer.Slice()
	if n.scale == 1 {
		for i := range src {
			dst[i] = Complex[T]{Re: src[i]}
		}
	} else {
		for i := range src {
			dst[i] = Complex[T]{Re: T(n.scale * float64(src[i]))}
		}
	}
	return n.Send(n.buffer.Head(buffer.Size()).Raw(), false)
}
