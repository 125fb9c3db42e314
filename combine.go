package sdr

import "math"

// CombineHandler is implemented by nodes built on Combine: Configured is
// called once the unified configuration of all sub-sinks changed, Ready once
// new data arrived with the minimum fill across all rings.
type CombineHandler[T any] interface {
	Configured(cfg Config) error
	Ready(buffers []*RingBuffer[T], n int) error
}

// Combine merges several streams into one. It exposes N sub-sinks, each
// buffering its input into its own ring; whenever data arrives, the handler
// is woken with the minimum number of samples available on every ring.
// Producers on distinct queue connections are interleaved arbitrarily, the
// rings re-synchronise them.
//
// The configurations of all sub-sinks must agree on type and sample rate;
// the unified buffer size is the maximum across the inputs.
type Combine[T any] struct {
	handler CombineHandler[T]
	buffers []*RingBuffer[T]
	sinks   []*CombineSink[T]
	config  Config
}

// NewCombine constructs a combine base with n sub-sinks driving handler.
func NewCombine[T any](n int, handler CombineHandler[T]) *Combine[T] {
	c := &Combine[T]{handler: handler}
	c.buffers = make([]*RingBuffer[T], n)
	c.sinks = make([]*CombineSink[T], n)
	for i := 0; i < n; i++ {
		rb := &RingBuffer[T]{}
		c.buffers[i] = rb
		s := &CombineSink[T]{parent: c, index: i, buffer: rb}
		s.InitSink(s.Process)
		c.sinks[i] = s
	}
	return c
}

// Sink returns the i-th sub-sink.
func (c *Combine[T]) Sink(i int) *CombineSink[T] {
	if i < 0 || i >= len(c.sinks) {
		panic(newRuntimeError("Combine: sink index %d out of range [0,%d)", i, len(c.sinks)))
	}
	return c.sinks[i]
}

// NumSinks returns the number of sub-sinks.
func (c *Combine[T]) NumSinks() int { return len(c.sinks) }

func (c *Combine[T]) notifyConfig(idx int, cfg Config) error {
	if !cfg.HasType() || !cfg.HasSampleRate() || !cfg.HasBufferSize() {
		return nil
	}
	if !c.config.HasType() {
		c.config.Type = cfg.Type
	} else if c.config.Type != cfg.Type {
		return newConfigError("can not configure Combine: invalid type of sink #%d %s, expected %s",
			idx, cfg.Type, c.config.Type)
	}
	if !c.config.HasSampleRate() {
		c.config.SampleRate = cfg.SampleRate
	} else if c.config.SampleRate != cfg.SampleRate {
		return newConfigError("can not configure Combine: invalid sample rate of sink #%d %g, expected %g",
			idx, cfg.SampleRate, c.config.SampleRate)
	}
	if !c.config.HasBufferSize() {
		c.config.BufferSize = cfg.BufferSize
	} else {
		c.config.BufferSize = max(c.config.BufferSize, cfg.BufferSize)
	}
	for i := range c.buffers {
		c.buffers[i].ResizeSamples(c.config.BufferSize)
	}
	return c.handler.Configured(c.config)
}

func (c *Combine[T]) notifyData() error {
	n := math.MaxInt
	for i := range c.buffers {
		n = min(n, c.buffers[i].Stored())
	}
	if n > 0 {
		return c.handler.Ready(c.buffers, n)
	}
	return nil
}

// CombineSink is one input of a Combine node.
type CombineSink[T any] struct {
	Sink[T]
	parent *Combine[T]
	index  int
	buffer *RingBuffer[T]
}

// Configure implements SinkBase.
func (s *CombineSink[T]) Configure(cfg Config) error {
	return s.parent.notifyConfig(s.index, cfg)
}

// Process copies the buffer into the input ring and wakes the merge logic.
func (s *CombineSink[T]) Process(buffer Buffer[T], allowOverwrite bool) error {
	if !s.buffer.PutSamples(buffer) {
		logger.Warn("Combine: drop buffer, input ring full", "sink", s.index)
		return nil
	}
	return s.parent.notifyData()
}

// Interleave merges N equally typed streams into one by interleaving their
// samples: out = a0, b0, a1, b1, ...
type Interleave[T any] struct {
	Source
	combine *Combine[T]
	n       int
	buffer  Buffer[T]
}

// NewInterleave constructs an interleaver over n inputs.
func NewInterleave[T any](n int) *Interleave[T] {
	il := &Interleave[T]{n: n}
	il.combine = NewCombine[T](n, il)
	return il
}

// Sink returns the i-th input sink.
func (il *Interleave[T]) Sink(i int) *CombineSink[T] { return il.combine.Sink(i) }

// Configured implements CombineHandler.
func (il *Interleave[T]) Configured(cfg Config) error {
	if !cfg.HasType() || !cfg.HasBufferSize() {
		return nil
	}
	il.buffer = NewBuffer[T](il.n*cfg.BufferSize, nil)
	return il.SetConfig(NewConfig(cfg.Type, cfg.SampleRate, il.buffer.Size(), 1))
}

// Ready implements CombineHandler.
func (il *Interleave[T]) Ready(buffers []*RingBuffer[T], n int) error {
	if n == 0 {
		return nil
	}
	if !il.buffer.IsUnused() {
		logger.Warn("Interleave: drop input, output buffer still in use",
			"inputs", il.n, "samples", n)
		for i := range buffers {
			buffers[i].DropSamples(n)
		}
		return nil
	}
	num := min(il.buffer.Size()/il.n, n)
	dst := il.buffer.Slice()
	idx := 0
	for i := 0; i < num; i++ {
		for j := 0; j < il.n; j++ {
			dst[idx] = buffers[j].At(i)
			idx++
		}
	}
	for i := range buffers {
		buffers[i].DropSamples(num)
	}
	return il.Send(il.buffer.Head(num * il.n).Raw(), false)
}
