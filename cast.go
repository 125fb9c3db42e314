package sdr

// UnsignedToSigned reinterprets an unsigned integer stream (real or complex)
// as the signed stream of the same width by shifting the midpoint to zero:
// u8 values are biased by -128, u16 values by -32768.
type UnsignedToSigned struct {
	Source
	buffer  RawBuffer
	process castFunc
}

// NewUnsignedToSigned constructs the cast node.
func NewUnsignedToSigned() *UnsignedToSigned { return &UnsignedToSigned{} }

// Configure implements SinkBase.
func (n *UnsignedToSigned) Configure(cfg Config) error {
	if !cfg.HasType() {
		return nil
	}
	var out Type
	switch cfg.Type {
	case TypeU8:
		out = TypeS8
		n.process = castU8S8
	case TypeCU8:
		out = TypeCS8
		n.process = castU8S8
	case TypeU16:
		out = TypeS16
		n.process = castU16S16
	case TypeCU16:
		out = TypeCS16
		n.process = castU16S16
	default:
		return newConfigError("can not configure UnsignedToSigned: invalid input type %s, "+
			"expected %s, %s, %s or %s", cfg.Type, TypeU8, TypeCU8, TypeU16, TypeCU16)
	}
	n.buffer = NewRawBuffer(cfg.BufferSize*cfg.Type.Size(), nil)
	return n.SetConfig(NewConfig(out, cfg.SampleRate, cfg.BufferSize, 1))
}

// HandleBuffer implements SinkBase.
func (n *UnsignedToSigned) HandleBuffer(buffer RawBuffer, allowOverwrite bool) error {
	switch {
	case allowOverwrite:
		bytes := n.process(buffer, buffer)
		return n.Send(buffer.view(0, bytes), true)
	case n.buffer.IsUnused():
		bytes := n.process(buffer, n.buffer)
		return n.Send(n.buffer.view(0, bytes), true)
	default:
		logger.Warn("UnsignedToSigned: drop buffer, output buffer still in use")
		return nil
	}
}

// SignedToUnsigned is the inverse of UnsignedToSigned: the signed stream is
// biased back up into the unsigned range of the same width.
type SignedToUnsigned struct {
	Source
	buffer  RawBuffer
	process castFunc
}

// NewSignedToUnsigned constructs the cast node.
func NewSignedToUnsigned() *SignedToUnsigned { return &SignedToUnsigned{} }

// Configure implements SinkBase.
func (n *SignedToUnsigned) Configure(cfg Config) error {
	if !cfg.HasType() {
		return nil
	}
	var out Type
	switch cfg.Type {
	case TypeS8:
		out = TypeU8
		n.process = castS8U8
	case TypeCS8:
		out = TypeCU8
		n.process = castS8U8
	case TypeS16:
		out = TypeU16
		n.process = castS16U16
	case TypeCS16:
		out = TypeCU16
		n.process = castS16U16
	default:
		return newConfigError("can not configure SignedToUnsigned: invalid input type %s, "+
			"expected %s, %s, %s or %s", cfg.Type, TypeS8, TypeCS8, TypeS16, TypeCS16)
	}
	n.buffer = NewRawBuffer(cfg.BufferSize*cfg.Type.Size(), nil)
	return n.SetConfig(NewConfig(out, cfg.SampleRate, cfg.BufferSize, 1))
}

// HandleBuffer implements SinkBase.
func (n *SignedToUnsigned) HandleBuffer(buffer RawBuffer, allowOverwrite bool) error {
	switch {
	case allowOverwrite:
		bytes := n.process(buffer, buffer)
		return n.Send(buffer.view(0, bytes), true)
	case n.buffer.IsUnused():
		bytes := n.process(buffer, n.buffer)
		return n.Send(n.buffer.view(0, bytes), true)
	default:
		logger.Warn("SignedToUnsigned: drop buffer, output buffer still in use")
		return nil
	}
}

func castU8S8(in, out RawBuffer) int {
	src := in.Bytes()
	dst := AsBuffer[int8](out).Slice()
	for i := range src {
		dst[i] = int8(int16(src[i]) - 128)
	}
	return len(src)
}

func castU16S16(in, out RawBuffer) int {
	src := AsBuffer[uint16](in).Slice()
	dst := AsBuffer[int16](out).Slice()
	for i := range src {
		dst[i] = int16(int32(src[i]) - 32768)
	}
	return 2 * len(src)
}

func castS8U8(in, out RawBuffer) int {
	src := AsBuffer[int8](in).Slice()
	dst := out.Bytes()
	for i := range src {
		dst[i] = uint8(int16(src[i]) + 128)
	}
	return len(src)
}

func castS16U16(in, out RawBuffer) int {
	src := AsBuffer[int16](in).Slice()
	dst := AsBuffer[uint16](out).Slice()
	for i := range src {
		dst[i] = uint16(int32(src[i]) + 32768)
	}
	return 2 * len(src)
}

// Cast converts between two scalar types explicitly, with an optional scale
// and offset applied on the way.
type Cast[I, O Scalar] struct {
	Sink[I]
	Source
	scale        float64
	shift        I
	doScale      bool
	canOverwrite bool
	buffer       Buffer[O]
}

// NewCast constructs a scalar conversion node. A scale of 1 and shift of 0
// reduce the node to the plain conversion.
func NewCast[I, O Scalar](scale float64, shift I) *Cast[I, O] {
	n := &Cast[I, O]{scale: scale, shift: shift, doScale: scale != 0 && scale != 1}
	n.InitSink(n.Process)
	return n
}

// Scale returns the configured scaling.
func (n *Cast[I, O]) Scale() float64 { return n.scale }

// SetScale resets the scaling.
func (n *Cast[I, O]) SetScale(scale float64) {
	n.scale = scale
	n.doScale = scale != 0 && scale != 1
}

// Configure implements SinkBase.
func (n *Cast[I, O]) Configure(cfg Config) error {
	if !cfg.HasType() {
		return nil
	}
	if cfg.Type != TypeOf[I]() {
		return newConfigError("can not configure Cast: invalid input type %s, expected %s",
			cfg.Type, TypeOf[I]())
	}
	n.buffer = NewBuffer[O](cfg.BufferSize, nil)
	n.canOverwrite = sampleSize[I]() >= sampleSize[O]()

	logger.Debug("configured Cast node",
		"conversion", TypeOf[I]().String()+" -> "+TypeOf[O]().String(),
		"in-place", n.canOverwrite,
		"scale", n.scale)

	return n.SetConfig(NewConfig(TypeOf[O](), cfg.SampleRate, cfg.BufferSize, 1))
}

// Process converts the buffer, in place when permitted and the output is no
// wider than the input.
func (n *Cast[I, O]) Process(buffer Buffer[I], allowOverwrite bool) error {
	var out Buffer[O]
	if allowOverwrite && n.canOverwrite {
		out = ConvertBuffer[O](buffer)
	} else if n.buffer.IsUnused() {
		out = n.buffer
	} else {
		logger.Warn("Cast: drop buffer, output buffer still in use")
		return nil
	}
	src := buffer.Slice()
	dst := out.Slice()
	if n.doScale {
		for i := range src {
			dst[i] = O(n.scale * (float64(src[i]) + float64(n.shift)))
		}
	} else {
		for i := range src {
			dst[i] = O(src[i] + n.shift)
		}
	}
	return n.Send(out.Head(buffer.Size()).Raw(), true)
}

// ScaleNode multiplies a stream by a constant gain.
type ScaleNode[T Scalar] struct {
	Sink[T]
	Source
	scale  float64
	buffer Buffer[T]
}

// NewScale constructs a gain node.
func NewScale[T Scalar](scale float64) *ScaleNode[T] {
	n := &ScaleNode[T]{scale: scale}
	n.InitSink(n.Process)
	return n
}

// Configure implements SinkBase.
func (n *ScaleNode[T]) Configure(cfg Config) error {
	if !cfg.HasType() || !cfg.HasBufferSize() {
		return nil
	}
	if cfg.Type != TypeOf[T]() {
		return newConfigError("can not configure Scale: invalid type %s, expected %s",
			cfg.Type, TypeOf[T]())
	}
	n.buffer = NewBuffer[T](cfg.BufferSize, nil)
	return n.SetConfig(cfg)
}

// Process applies the gain, in place when permitted. A unit gain forwards
// the buffer untouched.
func (n *ScaleNode[T]) Process(buffer Buffer[T], allowOverwrite bool) error {
	if n.scale == 1 {
		return n.Send(buffer.Raw(), allowOverwrite)
	}
	if allowOverwrite {
		s := buffer.Slice()
		for i := range s {
			s[i] = T(n.scale * float64(s[i]))
		}
		return n.Send(buffer.Raw(), allowOverwrite)
	}
	if n.buffer.IsUnused() {
		src := buffer.Slice()
		dst := n.buffer.Slice()
		for i := range src {
			dst[i] = T(n.scale * float64(src[i]))
		}
		return n.Send(n.buffer.Head(buffer.Size()).Raw(), true)
	}
	logger.Warn("Scale: drop buffer, output buffer still in use")
	return nil
}
