// Package portaudio adapts PortAudio devices to the pipeline: a blocking
// input Source for the soundcard and a playback Sink. The package wraps
// github.com/gordonklaus/portaudio; Init must be called once before any
// stream is opened and Terminate once no stream is needed anymore.
package portaudio

import (
	pa "github.com/gordonklaus/portaudio"

	"github.com/sdrpipe/sdr"
)

// Init initialises the PortAudio system. Must be called first.
func Init() error { return pa.Initialize() }

// Terminate shuts the PortAudio system down.
func Terminate() error { return pa.Terminate() }

// Source reads 16 bit samples from the default input device. It implements
// the blocking source pattern: in parallel mode a dedicated goroutine reads
// from the device, otherwise the read is driven by the idle hook of the
// queue. Stop aborts an outstanding blocking read so shutdown cannot hang
// in the driver.
type Source struct {
	sdr.BlockingSource

	sampleRate float64
	bufferSize int
	iq         bool

	stream *pa.Stream
	data   []int16
	buffer sdr.RawBuffer
}

// NewSource opens a mono input stream, type s16. q may be nil for the
// default queue.
func NewSource(q *sdr.Queue, sampleRate float64, bufferSize int, parallel bool) (*Source, error) {
	return newSource(q, sampleRate, bufferSize, parallel, false)
}

// NewIQSource opens a two channel input stream interpreted as I/Q data,
// type cs16.
func NewIQSource(q *sdr.Queue, sampleRate float64, bufferSize int, parallel bool) (*Source, error) {
	return newSource(q, sampleRate, bufferSize, parallel, true)
}

func newSource(q *sdr.Queue, sampleRate float64, bufferSize int, parallel, iq bool) (*Source, error) {
	s := &Source{sampleRate: sampleRate, bufferSize: bufferSize, iq: iq}
	s.InitBlocking(q, s.next, parallel, !parallel, false)

	channels := 1
	typ := sdr.TypeS16
	if iq {
		channels = 2
		typ = sdr.TypeCS16
	}
	s.data = make([]int16, bufferSize*channels)
	s.buffer = sdr.WrapBuffer(s.data).Raw()

	stream, err := pa.OpenDefaultStream(channels, 0, sampleRate, bufferSize, &s.data)
	if err != nil {
		return nil, sdr.NewConfigError("can not open PortAudio input stream: %v", err)
	}
	s.stream = stream

	sdr.Logger().Debug("configured PortAudio source",
		"rate", sampleRate,
		"buffer", bufferSize,
		"format", typ,
		"channels", channels)

	if err := s.SetConfig(sdr.NewConfig(typ, sampleRate, bufferSize, 1)); err != nil {
		stream.Close()
		return nil, err
	}
	return s, nil
}

// Start starts the device stream and the read loop.
func (s *Source) Start() error {
	if err := s.stream.Start(); err != nil {
		return err
	}
	s.BlockingSource.Start()
	return nil
}

// Stop aborts the device stream, unblocking a pending read, and stops the
// read loop.
func (s *Source) Stop() error {
	err := s.stream.Abort()
	s.BlockingSource.Stop()
	return err
}

// Close releases the device stream.
func (s *Source) Close() error { return s.stream.Close() }

func (s *Source) next() {
	if err := s.stream.Read(); err != nil {
		sdr.Logger().Warn("PortAudio source: read failed", "err", err)
		return
	}
	if err := s.Send(s.buffer, false); err != nil {
		sdr.Logger().Error("PortAudio source: downstream failed", "err", err)
	}
}

// Sink plays the received buffers on the default output device. The stream
// is opened at configuration time from the announced type and rate;
// supported types are s16, cs16, f32 and cf32.
type Sink struct {
	stream   *pa.Stream
	typ      sdr.Type
	channels int
	s16      []int16
	f32      []float32
}

// NewSink constructs an idle playback sink; the device stream is opened on
// the first configuration.
func NewSink() *Sink { return &Sink{} }

// Configure implements sdr.SinkBase.
func (s *Sink) Configure(cfg sdr.Config) error {
	if !cfg.HasType() || !cfg.HasSampleRate() || !cfg.HasBufferSize() {
		return nil
	}
	if s.stream != nil {
		s.stream.Stop()
		s.stream.Close()
		s.stream = nil
	}

	switch cfg.Type {
	case sdr.TypeS16:
		s.channels = 1
		s.s16 = make([]int16, cfg.BufferSize)
	case sdr.TypeCS16:
		s.channels = 2
		s.s16 = make([]int16, 2*cfg.BufferSize)
	case sdr.TypeF32:
		s.channels = 1
		s.f32 = make([]float32, cfg.BufferSize)
	case sdr.TypeCF32:
		s.channels = 2
		s.f32 = make([]float32, 2*cfg.BufferSize)
	default:
		return sdr.NewConfigError("can not configure PortAudio sink: unsupported format %s, "+
			"expected %s, %s, %s or %s", cfg.Type, sdr.TypeS16, sdr.TypeCS16, sdr.TypeF32, sdr.TypeCF32)
	}
	s.typ = cfg.Type

	var (
		stream *pa.Stream
		err    error
	)
	if s.s16 != nil {
		stream, err = pa.OpenDefaultStream(0, s.channels, cfg.SampleRate, cfg.BufferSize, &s.s16)
	} else {
		stream, err = pa.OpenDefaultStream(0, s.channels, cfg.SampleRate, cfg.BufferSize, &s.f32)
	}
	if err != nil {
		return sdr.NewConfigError("can not open PortAudio output stream: %v", err)
	}
	s.stream = stream

	sdr.Logger().Debug("configured PortAudio sink",
		"rate", cfg.SampleRate,
		"buffer", cfg.BufferSize,
		"format", cfg.Type,
		"channels", s.channels)

	return s.stream.Start()
}

// HandleBuffer implements sdr.SinkBase; it writes the buffer to the device,
// blocking until the device consumed it.
func (s *Sink) HandleBuffer(buffer sdr.RawBuffer, allowOverwrite bool) error {
	if s.stream == nil {
		return nil
	}
	switch s.typ {
	case sdr.TypeS16, sdr.TypeCS16:
		src := sdr.AsBuffer[int16](buffer).Slice()
		n := copy(s.s16, src)
		for i := n; i < len(s.s16); i++ {
			s.s16[i] = 0
		}
	case sdr.TypeF32, sdr.TypeCF32:
		src := sdr.AsBuffer[float32](buffer).Slice()
		n := copy(s.f32, src)
		for i := n; i < len(s.f32); i++ {
			s.f32[i] = 0
		}
	}
	if err := s.stream.Write(); err != nil {
		// Underflow is routine when the pipeline briefly stalls; report it
		// and keep the session alive.
		sdr.Logger().Warn("PortAudio sink: write failed", "err", err)
	}
	return nil
}

// Close stops and releases the device stream.
func (s *Sink) Close() error {
	if s.stream == nil {
		return nil
	}
	s.stream.Stop()
	err := s.stream.Close()
	s.stream = nil
	return err
}
