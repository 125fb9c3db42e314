// Package wav provides pipeline sources and sinks for RIFF/WAVE files with
// PCM sample data. Mono files map to real sample streams, stereo files to
// I/Q streams with I on the left and Q on the right channel.
package wav

import (
	"fmt"
	"os"

	"github.com/go-audio/riff"

	"github.com/sdrpipe/sdr"
)

var (
	fmtID  = [4]byte{'f', 'm', 't', ' '}
	dataID = [4]byte{'d', 'a', 't', 'a'}
)

// Source reads sample data from a WAV file. It implements the blocking
// source pattern in idle-driven mode: a chunk of frames is read whenever the
// queue runs dry, and the end of the file stops the queue.
//
// Supported layouts are PCM (format code 1) with 1 or 2 channels of 8 or 16
// bits; the type mapping is 1ch/8b to u8, 1ch/16b to s16, 2ch/8b to cu8 and
// 2ch/16b to cs16. Chunks other than "data" after "fmt " are skipped.
type Source struct {
	sdr.BlockingSource

	bufferSize int
	file       *os.File
	data       *riff.Chunk
	typ        sdr.Type
	sampleRate float64
	frameCount int
	framesLeft int
	buffer     sdr.RawBuffer
}

// NewSource opens the WAV file and parses its headers. The returned source
// is registered on the idle hook of the queue; q may be nil for the default
// queue.
func NewSource(q *sdr.Queue, filename string, bufferSize int) (*Source, error) {
	s := &Source{bufferSize: bufferSize}
	s.InitBlocking(q, s.next, false, true, true)
	if err := s.Open(filename); err != nil {
		return nil, err
	}
	return s, nil
}

// IsOpen returns true while a file is open.
func (s *Source) IsOpen() bool { return s.file != nil }

// IsReal returns true for mono files; stereo files carry I/Q data.
func (s *Source) IsReal() bool { return s.typ == sdr.TypeU8 || s.typ == sdr.TypeS16 }

// Type returns the sample type of the file.
func (s *Source) Type() sdr.Type { return s.typ }

// FrameCount returns the total number of frames of the file.
func (s *Source) FrameCount() int { return s.frameCount }

// Open opens a new file, closing the current one first.
func (s *Source) Open(filename string) error {
	if s.file != nil {
		s.Close()
	}
	f, err := os.Open(filename)
	if err != nil {
		return err
	}

	parser := riff.New(f)
	if err := parser.ParseHeaders(); err != nil {
		f.Close()
		return fmt.Errorf("file %q is not a WAV file: %w", filename, err)
	}

	// Walk the chunks: parse "fmt ", skip everything else until "data".
	var data *riff.Chunk
	haveFmt := false
	for data == nil {
		chunk, err := parser.NextChunk()
		if err != nil {
			f.Close()
			return fmt.Errorf("WAV file %q contains no data chunk: %w", filename, err)
		}
		switch chunk.ID {
		case fmtID:
			if err := chunk.DecodeWavHeader(parser); err != nil {
				f.Close()
				return err
			}
			haveFmt = true
		case dataID:
			data = chunk
		default:
			chunk.Drain()
		}
	}
	if !haveFmt {
		f.Close()
		return fmt.Errorf("fmt header missing in file %q", filename)
	}
	if parser.WavAudioFormat != 1 {
		f.Close()
		return fmt.Errorf("unsupported WAV data format %d of file %q, expected 1 (PCM)",
			parser.WavAudioFormat, filename)
	}

	channels := int(parser.NumChannels)
	bits := int(parser.BitsPerSample)
	switch {
	case channels == 1 && bits == 8:
		s.typ = sdr.TypeU8
	case channels == 1 && bits == 16:
		s.typ = sdr.TypeS16
	case channels == 2 && bits == 8:
		s.typ = sdr.TypeCU8
	case channels == 2 && bits == 16:
		s.typ = sdr.TypeCS16
	default:
		f.Close()
		return fmt.Errorf("unsupported PCM layout of file %q: %d channels at %d bits",
			filename, channels, bits)
	}

	s.file = f
	s.data = data
	s.sampleRate = float64(parser.SampleRate)
	s.frameCount = data.Size / (channels * bits / 8)
	s.framesLeft = s.frameCount

	sdr.Logger().Debug("configured wav source",
		"file", filename,
		"type", s.typ,
		"rate", s.sampleRate,
		"frames", s.frameCount,
		"duration", float64(s.frameCount)/s.sampleRate)

	s.buffer = sdr.NewRawBuffer(s.bufferSize*s.typ.Size(), nil)
	return s.SetConfig(sdr.NewConfig(s.typ, s.sampleRate, s.bufferSize, 1))
}

// Close closes the current file.
func (s *Source) Close() {
	if s.file != nil {
		s.file.Close()
		s.file = nil
		s.data = nil
		s.framesLeft = 0
	}
}

// next reads and emits one block of frames. At the end of the file it closes
// and signals the end of the stream.
func (s *Source) next() {
	if s.framesLeft == 0 || s.data == nil {
		s.Close()
		sdr.Logger().Debug("wav source: end of file")
		s.SignalEOS()
		return
	}
	frames := min(s.framesLeft, s.bufferSize)
	want := frames * s.typ.Size()
	got := 0
	for got < want {
		n, err := s.data.Read(s.buffer.Bytes()[got:want])
		got += n
		if err != nil {
			s.framesLeft = 0
			break
		}
	}
	if got > 0 {
		frames = got / s.typ.Size()
		if s.framesLeft > 0 {
			s.framesLeft -= frames
		}
		if err := s.Send(s.buffer.SubView(0, frames*s.typ.Size()), true); err != nil {
			sdr.Logger().Error("wav source: downstream failed", "err", err)
			s.framesLeft = 0
		}
	}
}
