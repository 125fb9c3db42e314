package sdr

// castFunc converts the samples of in into out, returning the number of
// bytes produced.
type castFunc func(in, out RawBuffer) int

// AutoCast converts an integer input stream into the target type selected at
// construction. At configuration time the pair of input and output type
// picks one function out of a closed table of conversions: identity,
// widening, narrowing, unsigned-to-signed biasing and real-to-complex
// expansion. An unsupported pair is a configuration error. The identity
// conversion forwards buffers unchanged; everything else writes into the
// node's scratch buffer.
type AutoCast struct {
	Source
	out      Type
	buffer   RawBuffer
	cast     castFunc
	identity bool
}

// NewAutoCast constructs a cast node targeting the given sample type. Only
// the signed integer targets s8, cs8, s16 and cs16 are supported.
func NewAutoCast(out Type) *AutoCast {
	return &AutoCast{out: out}
}

// Configure implements SinkBase.
func (n *AutoCast) Configure(cfg Config) error {
	if !cfg.HasType() || !cfg.HasSampleRate() || !cfg.HasBufferSize() {
		return nil
	}

	n.cast = nil
	n.identity = false
	switch n.out {
	case TypeS8:
		switch cfg.Type {
		case TypeU8, TypeS8:
			n.cast, n.identity = castIdentity, true
		case TypeU16, TypeS16:
			n.cast = castInt16Int8
		}
	case TypeCS8:
		switch cfg.Type {
		case TypeU8:
			n.cast = castUint8CInt8
		case TypeS8:
			n.cast = castInt8CInt8
		case TypeCU8:
			n.cast = castCUint8CInt8
		case TypeCS8:
			n.cast, n.identity = castIdentity, true
		case TypeU16, TypeS16:
			n.cast = castInt16CInt8
		case TypeCU16, TypeCS16:
			n.cast = castCInt16CInt8
		}
	case TypeS16:
		switch cfg.Type {
		case TypeU8, TypeS8:
			n.cast = castInt8Int16
		case TypeU16, TypeS16:
			n.cast, n.identity = castIdentity, true
		}
	case TypeCS16:
		switch cfg.Type {
		case TypeU8:
			n.cast = castUint8CInt16
		case TypeS8:
			n.cast = castInt8CInt16
		case TypeCU8:
			n.cast = castCUint8CInt16
		case TypeCS8:
			n.cast = castCInt8CInt16
		case TypeU16:
			n.cast = castUint16CInt16
		case TypeS16:
			n.cast = castInt16CInt16
		case TypeCU16, TypeCS16:
			n.cast, n.identity = castIdentity, true
		}
	}
	if n.cast == nil {
		return newConfigError("AutoCast: can not cast from type %s to %s", cfg.Type, n.out)
	}

	n.buffer = NewRawBuffer(cfg.BufferSize*n.out.Size(), nil)

	logger.Debug("configured AutoCast node", "in", cfg.Type, "out", n.out)

	return n.SetConfig(NewConfig(n.out, cfg.SampleRate, cfg.BufferSize, 1))
}

// HandleBuffer implements SinkBase.
func (n *AutoCast) HandleBuffer(buffer RawBuffer, allowOverwrite bool) error {
	if n.cast == nil {
		return nil
	}
	if n.identity {
		return n.Send(buffer, allowOverwrite)
	}
	bytes := n.cast(buffer, n.buffer)
	return n.Send(n.buffer.view(0, bytes), true)
}

func castIdentity(in, out RawBuffer) int {
	return copy(out.Bytes(), in.Bytes())
}

// int16 (or uint16) -> int8, discarding the low byte.
func castInt16Int8(in, out RawBuffer) int {
	src := AsBuffer[int16](in).Slice()
	dst := AsBuffer[int8](out).Slice()
	for i := range src {
		dst[i] = int8(src[i] >> 8)
	}
	return len(src)
}

// uint8 -> complex int8, biasing by -127.
func castUint8CInt8(in, out RawBuffer) int {
	src := AsBuffer[uint8](in).Slice()
	dst := AsBuffer[Complex[int8]](out).Slice()
	for i := range src {
		v := int8(int16(src[i]) - 127)
		dst[i] = Complex[int8]{Re: v}
	}
	return 2 * len(src)
}

// int8 -> complex int8.
func castInt8CInt8(in, out RawBuffer) int {
	src := AsBuffer[int8](in).Slice()
	dst := AsBuffer[Complex[int8]](out).Slice()
	for i := range src {
		dst[i] = Complex[int8]{Re: src[i]}
	}
	return 2 * len(src)
}

// complex uint8 -> complex int8, biasing both components by -127.
func castCUint8CInt8(in, out RawBuffer) int {
	src := AsBuffer[Complex[uint8]](in).Slice()
	dst := AsBuffer[Complex[int8]](out).Slice()
	for i := range src {
		dst[i] = Complex[int8]{
			Re: int8(int16(src[i].Re) - 127),
			Im: int8(int16(src[i].Im) - 127),
		}
	}
	return 2 * len(src)
}

// int16 -> complex int8, discarding the low byte.
func castInt16CInt8(in, out RawBuffer) int {
	src := AsBuffer[int16](in).Slice()
	dst := AsBuffer[Complex[int8]](out).Slice()
	for i := range src {
		dst[i] = Complex[int8]{Re: int8(src[i] >> 8)}
	}
	return 2 * len(src)
}

// complex int16 -> complex int8, discarding the low bytes.
func castCInt16CInt8(in, out RawBuffer) int {
	src := AsBuffer[Complex[int16]](in).Slice()
	dst := AsBuffer[Complex[int8]](out).Slice()
	for i := range src {
		dst[i] = Complex[int8]{Re: int8(src[i].Re >> 8), Im: int8(src[i].Im >> 8)}
	}
	return 2 * len(src)
}

// int8 -> int16, widening by an arithmetic shift.
func castInt8Int16(in, out RawBuffer) int {
	src := AsBuffer[int8](in).Slice()
	dst := AsBuffer[int16](out).Slice()
	for i := range src {
		dst[i] = int16(src[i]) << 8
	}
	return 2 * len(src)
}

// uint8 -> complex int16, biasing by -127 then widening.
func castUint8CInt16(in, out RawBuffer) int {
	src := AsBuffer[uint8](in).Slice()
	dst := AsBuffer[Complex[int16]](out).Slice()
	for i := range src {
		dst[i] = Complex[int16]{Re: (int16(src[i]) - 127) << 8}
	}
	return 4 * len(src)
}

// int8 -> complex int16. The widening multiplies by 1<<8, matching the
// shift traits of the 8 bit scalars.
func castInt8CInt16(in, out RawBuffer) int {
	src := AsBuffer[int8](in).Slice()
	dst := AsBuffer[Complex[int16]](out).Slice()
	for i := range src {
		dst[i] = Complex[int16]{Re: int16(src[i]) * (1 << 8)}
	}
	return 4 * len(src)
}

// complex uint8 -> complex int16.
func castCUint8CInt16(in, out RawBuffer) int {
	src := AsBuffer[Complex[uint8]](in).Slice()
	dst := AsBuffer[Complex[int16]](out).Slice()
	for i := range src {
		dst[i] = Complex[int16]{
			Re: (int16(src[i].Re) - 127) * (1 << 8),
			Im: (int16(src[i].Im) - 127) * (1 << 8),
		}
	}
	return 4 * len(src)
}

// complex int8 -> complex int16.
func castCInt8CInt16(in, out RawBuffer) int {
	src := AsBuffer[Complex[int8]](in).Slice()
	dst := AsBuffer[Complex[int16]](out).Slice()
	for i := range src {
		dst[i] = Complex[int16]{
			Re: int16(src[i].Re) * (1 << 8),
			Im: int16(src[i].Im) * (1 << 8),
		}
	}
	return 4 * len(src)
}

// uint16 -> complex int16, biasing by -32768.
func castUint16CInt16(in, out RawBuffer) int {
	src := AsBuffer[uint16](in).Slice()
	dst := AsBuffer[Complex[int16]](out).Slice()
	for i := range src {
		dst[i] = Complex[int16]{Re: int16(int32(src[i]) - (1 << 15))}
	}
	return 4 * len(src)
}

// int16 -> complex int16.
func castInt16CInt16(in, out RawBuffer) int {
	src := AsBuffer[int16](in).Slice()
	dst := AsBuffer[Complex[int16]](out).Slice()
	for i := range src {
		dst[i] = Complex[int16]{Re: src[i]}
	}
	return 4 * len(src)
}
