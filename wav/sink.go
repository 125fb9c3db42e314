package wav

import (
	"os"

	"github.com/go-audio/audio"
	gowav "github.com/go-audio/wav"

	"github.com/sdrpipe/sdr"
)

// Sink streams the received buffers into a WAV file. The channel count and
// bit depth derive from the sample type selected at construction, the
// sample rate from the last configuration received before the first buffer
// (or before Close, if no buffer arrived). The RIFF headers are
// written when the file is closed; closing a sink that never received a
// configuration yields a file with a zero sample rate.
type Sink struct {
	typ        sdr.Type
	file       *os.File
	enc        *gowav.Encoder
	path       string
	sampleRate int
	frames     int

	channels int
	bits     int
}

// NewSink creates the output file for a mono stream of the scalar type T.
func NewSink[T sdr.Scalar](filename string) (*Sink, error) {
	return newSink(filename, sdr.TypeOf[T]())
}

// NewIQSink creates the output file for a complex stream of the scalar type
// T; I goes to the left and Q to the right channel.
func NewIQSink[T sdr.Scalar](filename string) (*Sink, error) {
	return newSink(filename, sdr.ComplexTypeOf[T]())
}

func newSink(filename string, typ sdr.Type) (*Sink, error) {
	s := &Sink{typ: typ, path: filename}
	switch typ {
	case sdr.TypeU8, sdr.TypeS8:
		s.bits, s.channels = 8, 1
	case sdr.TypeCU8, sdr.TypeCS8:
		s.bits, s.channels = 8, 2
	case sdr.TypeU16, sdr.TypeS16:
		s.bits, s.channels = 16, 1
	case sdr.TypeCU16, sdr.TypeCS16:
		s.bits, s.channels = 16, 2
	default:
		return nil, &UnsupportedTypeError{Type: typ}
	}
	f, err := os.Create(filename)
	if err != nil {
		return nil, err
	}
	s.file = f
	return s, nil
}

// UnsupportedTypeError is returned for sample types the WAV format can not
// represent; only the real and complex integer types are allowed.
type UnsupportedTypeError struct {
	Type sdr.Type
}

func (e *UnsupportedTypeError) Error() string {
	return "WAV format only allows integer typed data, not " + e.Type.String()
}

// Configure implements sdr.SinkBase.
func (s *Sink) Configure(cfg sdr.Config) error {
	if !cfg.HasType() || !cfg.HasSampleRate() {
		return nil
	}
	if cfg.Type != s.typ {
		return sdr.NewConfigError("can not configure wav sink: invalid buffer type %s, expected %s",
			cfg.Type, s.typ)
	}
	s.sampleRate = int(cfg.SampleRate)
	return nil
}

// HandleBuffer implements sdr.SinkBase.
func (s *Sink) HandleBuffer(buffer sdr.RawBuffer, allowOverwrite bool) error {
	if s.file == nil {
		return nil
	}
	if s.enc == nil {
		// Headers are fixed once the encoder exists; defer its creation to
		// the first buffer so the sample rate of the final configuration
		// wins.
		s.enc = gowav.NewEncoder(s.file, s.sampleRate, s.bits, s.channels, 1)
	}
	data := s.samples(buffer)
	buf := &audio.IntBuffer{
		Format:         &audio.Format{NumChannels: s.channels, SampleRate: s.sampleRate},
		Data:           data,
		SourceBitDepth: s.bits,
	}
	if err := s.enc.Write(buf); err != nil {
		return err
	}
	s.frames += len(data) / s.channels
	return nil
}

// samples widens the raw sample data into the int slice the encoder
// consumes. Unsigned 8 bit data passes through as-is (WAV stores 8 bit
// audio unsigned), signed 8 bit data is biased up accordingly.
func (s *Sink) samples(buffer sdr.RawBuffer) []int {
	switch s.typ {
	case sdr.TypeU8, sdr.TypeCU8:
		src := buffer.Bytes()
		out := make([]int, len(src))
		for i, v := range src {
			out[i] = int(v)
		}
		return out
	case sdr.TypeS8, sdr.TypeCS8:
		src := sdr.AsBuffer[int8](buffer).Slice()
		out := make([]int, len(src))
		for i, v := range src {
			out[i] = int(v) + 128
		}
		return out
	case sdr.TypeU16, sdr.TypeCU16:
		src := sdr.AsBuffer[uint16](buffer).Slice()
		out := make([]int, len(src))
		for i, v := range src {
			out[i] = int(int32(v) - 32768)
		}
		return out
	default: // TypeS16, TypeCS16
		src := sdr.AsBuffer[int16](buffer).Slice()
		out := make([]int, len(src))
		for i, v := range src {
			out[i] = int(v)
		}
		return out
	}
}

// FrameCount returns the number of frames written so far.
func (s *Sink) FrameCount() int { return s.frames }

// Close finalises the RIFF headers and closes the file.
func (s *Sink) Close() error {
	if s.file == nil {
		return nil
	}
	if s.enc == nil {
		s.enc = gowav.NewEncoder(s.file, s.sampleRate, s.bits, s.channels, 1)
	}
	err := s.enc.Close()
	if cerr := s.file.Close(); err == nil {
		err = cerr
	}
	s.file = nil
	s.enc = nil
	return err
}
