package sdr

import "io"

// StreamSource reads raw samples from an input stream, e.g. a file of
// captured I/Q data. Next is usually connected to the idle hook of the
// queue so a new chunk is read once all previous processing finished; on
// end of input the end-of-stream is signalled.
type StreamSource[T any] struct {
	Source
	r      io.Reader
	buffer Buffer[T]
}

// NewStreamSource constructs a raw input source of real samples with the
// given sample rate and buffer size.
func NewStreamSource[T Scalar](r io.Reader, sampleRate float64, bufferSize int) *StreamSource[T] {
	s := &StreamSource[T]{r: r, buffer: NewBuffer[T](bufferSize, nil)}
	s.SetConfig(NewConfig(TypeOf[T](), sampleRate, bufferSize, 1))
	return s
}

// NewComplexStreamSource constructs a raw input source of complex samples.
func NewComplexStreamSource[T Scalar](r io.Reader, sampleRate float64, bufferSize int) *StreamSource[Complex[T]] {
	s := &StreamSource[Complex[T]]{r: r, buffer: NewBuffer[Complex[T]](bufferSize, nil)}
	s.SetConfig(NewConfig(ComplexTypeOf[T](), sampleRate, bufferSize, 1))
	return s
}

// Next reads and emits the next chunk.
func (s *StreamSource[T]) Next() {
	n, err := s.r.Read(s.buffer.Raw().Bytes())
	if n > 0 {
		if sendErr := s.Send(s.buffer.Head(n/sampleSize[T]()).Raw(), false); sendErr != nil {
			logger.Error("StreamSource: downstream failed", "err", sendErr)
		}
	}
	if err != nil {
		if err != io.EOF {
			logger.Error("StreamSource: read failed", "err", err)
		}
		s.SignalEOS()
	}
}

// StreamSink serialises the received buffers as raw samples into an output
// stream.
type StreamSink[T Scalar] struct {
	Sink[T]
	w io.Writer
}

// NewStreamSink constructs the raw output sink.
func NewStreamSink[T Scalar](w io.Writer) *StreamSink[T] {
	s := &StreamSink[T]{w: w}
	s.InitSink(s.Process)
	return s
}

// Configure implements SinkBase.
func (s *StreamSink[T]) Configure(cfg Config) error {
	if !cfg.HasType() {
		return nil
	}
	if cfg.Type != TypeOf[T]() {
		return newConfigError("can not configure StreamSink: invalid buffer type %s, expected %s",
			cfg.Type, TypeOf[T]())
	}
	return nil
}

// Process writes the samples as raw bytes.
func (s *StreamSink[T]) Process(buffer Buffer[T], allowOverwrite bool) error {
	_, err := s.w.Write(buffer.Raw().Bytes())
	return err
}
