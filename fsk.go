package sdr

import (
	"io"
	"math"
)

// FSKDetector implements the basic FSK/AFSK symbol detection. Two FIR
// correlators detect the energy at the mark and the space frequency; the
// node emits one soft symbol per input sample (1 for mark, 0 for space).
// The symbol stream is turned into bits by a BitStream node.
type FSKDetector struct {
	Sink[int16]
	Source

	baud    float64
	corrLen int
	lutIdx  int
	fMark   float64
	fSpace  float64

	markLUT   []Complex[float32]
	spaceLUT  []Complex[float32]
	markHist  []Complex[float32]
	spaceHist []Complex[float32]

	buffer Buffer[uint8]
}

// NewFSKDetector constructs a detector for the given baud rate and the mark
// and space frequencies in Hz.
func NewFSKDetector(baud, fMark, fSpace float64) *FSKDetector {
	n := &FSKDetector{baud: baud, fMark: fMark, fSpace: fSpace}
	n.InitSink(n.Process)
	return n
}

// Configure implements SinkBase.
func (n *FSKDetector) Configure(cfg Config) error {
	if !cfg.HasType() || !cfg.HasSampleRate() {
		return nil
	}
	if cfg.Type != TypeS16 {
		return newConfigError("can not configure FSKDetector: invalid type %s, expected %s",
			cfg.Type, TypeS16)
	}

	n.corrLen = int(cfg.SampleRate / n.baud)
	n.markLUT = make([]Complex[float32], n.corrLen)
	n.spaceLUT = make([]Complex[float32], n.corrLen)
	n.markHist = make([]Complex[float32], n.corrLen)
	n.spaceHist = make([]Complex[float32], n.corrLen)

	phiMark, phiSpace := 0.0, 0.0
	for i := 0; i < n.corrLen; i++ {
		n.markLUT[i] = Complex[float32]{Re: float32(math.Cos(phiMark)), Im: float32(math.Sin(phiMark))}
		n.spaceLUT[i] = Complex[float32]{Re: float32(math.Cos(phiSpace)), Im: float32(math.Sin(phiSpace))}
		phiMark += 2 * math.Pi * n.fMark / cfg.SampleRate
		phiSpace += 2 * math.Pi * n.fSpace / cfg.SampleRate
	}
	n.lutIdx = 0

	n.buffer = NewBuffer[uint8](cfg.BufferSize, nil)

	logger.Debug("configured FSKDetector node",
		"rate", cfg.SampleRate,
		"baud", n.baud,
		"samples-per-bit", n.corrLen)

	return n.SetConfig(NewConfig(TypeU8, cfg.SampleRate, cfg.BufferSize, 1))
}

// Process emits one symbol decision per input sample.
func (n *FSKDetector) Process(buffer Buffer[int16], allowOverwrite bool) error {
	src := buffer.Slice()
	dst := n.buffer.Slice()
	for i := range src {
		dst[i] = n.detect(src[i])
	}
	return n.Send(n.buffer.Head(buffer.Size()).Raw(), false)
}

func (n *FSKDetector) detect(sample int16) uint8 {
	s := float32(sample)
	n.markHist[n.lutIdx] = Complex[float32]{
		Re: s * n.markLUT[n.lutIdx].Re,
		Im: s * n.markLUT[n.lutIdx].Im,
	}
	n.spaceHist[n.lutIdx] = Complex[float32]{
		Re: s * n.spaceLUT[n.lutIdx].Re,
		Im: s * n.spaceLUT[n.lutIdx].Im,
	}
	n.lutIdx++
	if n.lutIdx == n.corrLen {
		n.lutIdx = 0
	}

	var markRe, markIm, spaceRe, spaceIm float32
	for i := 0; i < n.corrLen; i++ {
		markRe += n.markHist[i].Re
		markIm += n.markHist[i].Im
		spaceRe += n.spaceHist[i].Re
		spaceIm += n.spaceHist[i].Im
	}

	f := markRe*markRe + markIm*markIm - spaceRe*spaceRe - spaceIm*spaceIm
	if f > 0 {
		return 1
	}
	return 0
}

// ASKDetector detects mark/space symbols by amplitude. For low baud rates an
// FSK signal demodulated by a plain FM demodulator yields a series of
// decaying exponentials whose sign carries the symbol; this node slices on
// the zero line.
type ASKDetector[T Scalar] struct {
	Sink[T]
	Source
	invert bool
	buffer Buffer[uint8]
}

// NewASKDetector constructs an amplitude slicer; invert flips the symbol
// logic.
func NewASKDetector[T Scalar](invert bool) *ASKDetector[T] {
	n := &ASKDetector[T]{invert: invert}
	n.InitSink(n.Process)
	return n
}

// Configure implements SinkBase.
func (n *ASKDetector[T]) Configure(cfg Config) error {
	if !cfg.HasType() || !cfg.HasSampleRate() {
		return nil
	}
	if cfg.Type != TypeOf[T]() {
		return newConfigError("can not configure ASKDetector: invalid type %s, expected %s",
			cfg.Type, TypeOf[T]())
	}
	n.buffer = NewBuffer[uint8](cfg.BufferSize, nil)

	logger.Debug("configured ASKDetector node",
		"invert", n.invert,
		"symbol-rate", cfg.SampleRate)

	return n.SetConfig(NewConfig(TypeU8, cfg.SampleRate, cfg.BufferSize, 1))
}

// Process slices the buffer into symbols.
func (n *ASKDetector[T]) Process(buffer Buffer[T], allowOverwrite bool) error {
	src := buffer.Slice()
	dst := n.buffer.Slice()
	for i := range src {
		if (src[i] > 0) != n.invert {
			dst[i] = 1
		} else {
			dst[i] = 0
		}
	}
	return n.Send(n.buffer.Head(buffer.Size()).Raw(), false)
}

// BitStreamMode selects how BitStream turns symbols into bits.
type BitStreamMode int

const (
	// BitStreamNormal emits mark as 1 and space as 0.
	BitStreamNormal BitStreamMode = iota
	// BitStreamTransition emits 0 on a symbol transition and 1 otherwise
	// (NRZI decoding).
	BitStreamTransition
)

// Default PLL constants of the bit slicer. Calibrated empirically; override
// them through SetPLLGain before configuration when a transmission needs a
// tighter or looser lock.
const (
	defaultPLLGain  = 0.0005
	defaultPLLClamp = 0.005
)

// BitStream decodes a symbol stream into a bit stream of the desired baud
// rate. A rolling majority vote over one bit period decides the bit value;
// a first order PLL on the sampling phase velocity locks the bit clock onto
// the symbol transitions of the input.
type BitStream struct {
	Sink[uint8]
	Source

	baud float64
	mode BitStreamMode

	corrLen    int
	symbols    []int8
	symIdx     int
	symSum     int32
	lastSymSum int32

	phase    float64
	omega    float64
	omegaMin float64
	omegaMax float64
	pllGain  float64
	pllClamp float64

	lastBits uint8
	buffer   Buffer[uint8]
}

// NewBitStream constructs a bit slicer for the given baud rate.
func NewBitStream(baud float64, mode BitStreamMode) *BitStream {
	n := &BitStream{baud: baud, mode: mode, pllGain: defaultPLLGain, pllClamp: defaultPLLClamp}
	n.InitSink(n.Process)
	return n
}

// SetPLLGain overrides the PLL gain and the relative clamp around the
// nominal phase velocity.
func (n *BitStream) SetPLLGain(gain, clamp float64) {
	n.pllGain = gain
	n.pllClamp = clamp
}

// Configure implements SinkBase.
func (n *BitStream) Configure(cfg Config) error {
	if !cfg.HasType() || !cfg.HasSampleRate() {
		return nil
	}
	if cfg.Type != TypeU8 {
		return newConfigError("can not configure BitStream: invalid type %s, expected %s",
			cfg.Type, TypeU8)
	}

	// Symbols per bit.
	n.corrLen = int(cfg.SampleRate / n.baud)

	n.phase = 0
	n.omega = n.baud / cfg.SampleRate
	n.omegaMin = n.omega - n.pllClamp*n.omega
	n.omegaMax = n.omega + n.pllClamp*n.omega

	n.symbols = make([]int8, n.corrLen)
	n.symIdx = 0
	n.symSum = 0
	n.lastSymSum = 0
	n.lastBits = 0

	n.buffer = NewBuffer[uint8](1+cfg.BufferSize/n.corrLen, nil)

	logger.Debug("configured BitStream node",
		"rate", cfg.SampleRate,
		"baud", n.baud,
		"samples-per-bit", 1/n.omega)

	return n.SetConfig(NewConfig(TypeU8, n.baud, n.buffer.Size(), 1))
}

// Process consumes symbols and emits the decoded bits.
func (n *BitStream) Process(buffer Buffer[uint8], allowOverwrite bool) error {
	src := buffer.Slice()
	dst := n.buffer.Slice()
	o := 0
	for _, sym := range src {
		// Update the majority vote window.
		n.lastSymSum = n.symSum
		n.symSum -= int32(n.symbols[n.symIdx])
		if sym != 0 {
			n.symbols[n.symIdx] = 1
		} else {
			n.symbols[n.symIdx] = -1
		}
		n.symSum += int32(n.symbols[n.symIdx])
		n.symIdx = (n.symIdx + 1) % n.corrLen

		n.phase += n.omega

		// Sample a bit once the phase wraps.
		if n.phase >= 1 {
			for n.phase >= 1 {
				n.phase -= 1
			}
			bit := uint8(0)
			if n.symSum > 0 {
				bit = 1
			}
			n.lastBits = (n.lastBits << 1) | bit
			if n.mode == BitStreamTransition {
				dst[o] = (n.lastBits ^ (n.lastBits >> 1) ^ 0x1) & 0x1
			} else {
				dst[o] = n.lastBits & 0x1
			}
			o++
		}

		// Nudge the phase velocity on a zero crossing of the window sum: a
		// transition before the bit centre means the clock runs late.
		if (n.lastSymSum < 0 && n.symSum >= 0) || (n.lastSymSum >= 0 && n.symSum < 0) {
			if n.phase < 0.5 {
				n.omega += n.pllGain * (0.5 - n.phase)
			} else {
				n.omega -= n.pllGain * (n.phase - 0.5)
			}
			n.omega = math.Min(n.omegaMax, math.Max(n.omegaMin, n.omega))
		}
	}
	if o > 0 {
		return n.Send(n.buffer.Head(o).Raw(), false)
	}
	return nil
}

// BitDump writes a bit stream as '0' and '1' characters, a diagnostic sink.
type BitDump struct {
	Sink[uint8]
	w io.Writer
}

// NewBitDump constructs the dump sink.
func NewBitDump(w io.Writer) *BitDump {
	n := &BitDump{w: w}
	n.InitSink(n.Process)
	return n
}

// Configure implements SinkBase.
func (n *BitDump) Configure(cfg Config) error {
	if !cfg.HasType() {
		return nil
	}
	if cfg.Type != TypeU8 {
		return newConfigError("can not configure BitDump: invalid type %s, expected %s",
			cfg.Type, TypeU8)
	}
	return nil
}

// Process renders the bits.
func (n *BitDump) Process(buffer Buffer[uint8], allowOverwrite bool) error {
	src := buffer.Slice()
	line := make([]byte, len(src))
	for i, b := range src {
		if b != 0 {
			line[i] = '1'
		} else {
			line[i] = '0'
		}
	}
	_, err := n.w.Write(line)
	return err
}

// TextDump writes a byte stream as text, a diagnostic sink for decoders
// producing characters.
type TextDump struct {
	Sink[uint8]
	w io.Writer
}

// NewTextDump constructs the dump sink.
func NewTextDump(w io.Writer) *TextDump {
	n := &TextDump{w: w}
	n.InitSink(n.Process)
	return n
}

// Configure implements SinkBase.
func (n *TextDump) Configure(cfg Config) error {
	if !cfg.HasType() {
		return nil
	}
	if cfg.Type != TypeU8 {
		return newConfigError("can not configure TextDump: invalid type %s, expected %s",
			cfg.Type, TypeU8)
	}
	return nil
}

// Process writes the received bytes through.
func (n *TextDump) Process(buffer Buffer[uint8], allowOverwrite bool) error {
	_, err := n.w.Write(buffer.Raw().Bytes())
	return err
}
