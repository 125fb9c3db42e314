package sdr

// RawRingBuffer is a fixed-capacity byte ring on top of a RawBuffer. It keeps
// a take index and a count of stored bytes; the put index is derived from
// both. All operations are total except Put, which fails if the source does
// not fit into the free space, and Take, which fails if fewer bytes are
// stored than requested.
type RawRingBuffer struct {
	RawBuffer
	takeIdx int
	stored  int
}

// NewRawRingBuffer constructs a ring buffer of the given capacity in bytes.
func NewRawRingBuffer(size int) RawRingBuffer {
	return RawRingBuffer{RawBuffer: NewRawBuffer(size, nil)}
}

// BytesLen returns the number of bytes available for reading.
func (r *RawRingBuffer) BytesLen() int { return r.stored }

// BytesFree returns the number of free bytes.
func (r *RawRingBuffer) BytesFree() int { return r.StorageSize() - r.stored }

// ByteAt returns the idx-th stored byte.
func (r *RawRingBuffer) ByteAt(idx int) byte {
	i := r.takeIdx + idx
	if i >= r.StorageSize() {
		i -= r.StorageSize()
	}
	return r.storage[i]
}

// Put copies the bytes of src into the ring. It fails, leaving the ring
// unchanged, if src is larger than the free space.
func (r *RawRingBuffer) Put(src RawBuffer) bool {
	n := src.BytesLen()
	if n > r.BytesFree() {
		return false
	}
	putIdx := r.takeIdx + r.stored
	if putIdx >= r.StorageSize() {
		putIdx -= r.StorageSize()
	}
	first := copy(r.storage[putIdx:], src.Bytes())
	if first < n {
		copy(r.storage, src.Bytes()[first:])
	}
	r.stored += n
	return true
}

// Take removes n bytes from the ring and stores them into dest. It fails if
// dest is too small or fewer than n bytes are stored.
func (r *RawRingBuffer) Take(dest RawBuffer, n int) bool {
	if n > dest.BytesLen() {
		return false
	}
	if n > r.stored {
		return false
	}
	first := copy(dest.Bytes()[:n], r.storage[r.takeIdx:min(r.takeIdx+n, r.StorageSize())])
	if first < n {
		copy(dest.Bytes()[first:n], r.storage)
	}
	r.takeIdx += n
	if r.takeIdx >= r.StorageSize() {
		r.takeIdx -= r.StorageSize()
	}
	r.stored -= n
	return true
}

// Drop discards at most n bytes from the ring.
func (r *RawRingBuffer) Drop(n int) {
	n = min(n, r.stored)
	r.takeIdx += n
	if r.takeIdx >= r.StorageSize() {
		r.takeIdx -= r.StorageSize()
	}
	r.stored -= n
}

// Clear empties the ring.
func (r *RawRingBuffer) Clear() {
	r.takeIdx = 0
	r.stored = 0
}

// Resize reallocates the ring to n bytes and clears it. A no-op if the
// capacity already matches.
func (r *RawRingBuffer) Resize(n int) {
	if r.StorageSize() == n {
		return
	}
	r.takeIdx = 0
	r.stored = 0
	r.RawBuffer = NewRawBuffer(n, nil)
}

// RingBuffer is a typed ring buffer of samples of type T.
type RingBuffer[T any] struct {
	RawRingBuffer
}

// NewRingBuffer constructs a ring buffer holding up to n samples of type T.
func NewRingBuffer[T any](n int) RingBuffer[T] {
	return RingBuffer[T]{RawRingBuffer: NewRawRingBuffer(n * sampleSize[T]())}
}

// Stored returns the number of stored samples.
func (r *RingBuffer[T]) Stored() int { return r.stored / sampleSize[T]() }

// Free returns the number of free sample slots.
func (r *RingBuffer[T]) Free() int { return r.Size() - r.Stored() }

// Size returns the capacity of the ring in samples.
func (r *RingBuffer[T]) Size() int { return r.StorageSize() / sampleSize[T]() }

// At returns the idx-th stored sample.
func (r *RingBuffer[T]) At(idx int) T {
	ss := sampleSize[T]()
	var raw [16]byte
	for j := 0; j < ss; j++ {
		raw[j] = r.ByteAt(idx*ss + j)
	}
	return AsBuffer[T](BorrowRawBuffer(raw[:ss])).At(0)
}

// PutSamples stores the samples of data into the ring. Fails if they do not
// fit.
func (r *RingBuffer[T]) PutSamples(data Buffer[T]) bool {
	return r.Put(data.Raw())
}

// TakeSamples removes n samples from the ring into dest.
func (r *RingBuffer[T]) TakeSamples(dest Buffer[T], n int) bool {
	return r.Take(dest.Raw(), n*sampleSize[T]())
}

// DropSamples discards n samples from the ring.
func (r *RingBuffer[T]) DropSamples(n int) {
	r.RawRingBuffer.Drop(n * sampleSize[T]())
}

// ResizeSamples reallocates the ring to hold n samples and clears it. A
// no-op, keeping the stored samples, if the capacity already matches.
func (r *RingBuffer[T]) ResizeSamples(n int) {
	r.RawRingBuffer.Resize(n * sampleSize[T]())
}
