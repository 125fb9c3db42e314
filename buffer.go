package sdr

import (
	"fmt"
	"sync/atomic"
	"unsafe"
)

// BufferOwner is the interface of a buffer owner. If a buffer is owned, the
// owner gets notified once the buffer becomes unused, i.e. once the owner
// holds the only remaining reference. BufferSet uses this to recycle its
// pre-allocated buffers.
type BufferOwner interface {
	BufferUnused(buffer RawBuffer)
}

// RawBuffer is an untyped, reference-counted view into a contiguous block of
// bytes. Copies share the underlying storage and the reference counter;
// subviews share them too. A buffer without a reference counter is an
// unowned, borrowed view and is never freed through Unref.
type RawBuffer struct {
	storage  []byte
	offset   int
	length   int
	refcount *int32
	owner    BufferOwner
}

// NewRawBuffer allocates a buffer of n bytes with an initial reference count
// of one. The optional owner is notified once the buffer becomes unused.
func NewRawBuffer(n int, owner BufferOwner) RawBuffer {
	rc := int32(1)
	return RawBuffer{
		storage:  make([]byte, n),
		offset:   0,
		length:   n,
		refcount: &rc,
		owner:    owner,
	}
}

// BorrowRawBuffer wraps existing data as an unowned view. The view carries no
// reference counter, Ref and Unref are no-ops.
func BorrowRawBuffer(data []byte) RawBuffer {
	return RawBuffer{storage: data, offset: 0, length: len(data)}
}

// view returns a sub-view sharing storage and reference counter. The caller
// must have checked the bounds.
func (b RawBuffer) view(offset, length int) RawBuffer {
	v := b
	v.offset = b.offset + offset
	v.length = length
	return v
}

// SubView returns a byte-granular sub-view sharing storage and reference
// counter. Bounds past the end yield an empty buffer.
func (b RawBuffer) SubView(offset, length int) RawBuffer {
	if offset < 0 || length < 0 || offset+length > b.length {
		return RawBuffer{}
	}
	return b.view(offset, length)
}

// Bytes returns the bytes of the view.
func (b RawBuffer) Bytes() []byte {
	if b.storage == nil {
		return nil
	}
	return b.storage[b.offset : b.offset+b.length]
}

// BytesLen returns the length of the view in bytes.
func (b RawBuffer) BytesLen() int { return b.length }

// BytesOffset returns the offset of the view within the storage.
func (b RawBuffer) BytesOffset() int { return b.offset }

// StorageSize returns the size of the underlying storage in bytes.
func (b RawBuffer) StorageSize() int { return len(b.storage) }

// IsEmpty returns true if the buffer has no storage.
func (b RawBuffer) IsEmpty() bool { return b.storage == nil }

// Ref increments the reference counter. It is a no-op on borrowed views and
// empty buffers.
func (b RawBuffer) Ref() {
	if b.refcount != nil {
		atomic.AddInt32(b.refcount, 1)
	}
}

// Unref decrements the reference counter. Once the owner holds the only
// remaining reference, the owner is notified that the buffer is unused. Once
// the counter reaches zero the buffer is dead; as the storage is garbage
// collected there is nothing to free beyond dropping it from the view.
func (b *RawBuffer) Unref() {
	if b.storage == nil || b.refcount == nil {
		return
	}
	n := atomic.AddInt32(b.refcount, -1)
	if n == 1 && b.owner != nil {
		b.owner.BufferUnused(*b)
	}
	if n == 0 {
		b.storage = nil
		b.refcount = nil
	}
}

// RefCount returns the current reference count, zero for borrowed views.
func (b RawBuffer) RefCount() int {
	if b.refcount == nil {
		return 0
	}
	return int(atomic.LoadInt32(b.refcount))
}

// IsUnused returns true if at most the owner references the buffer.
func (b RawBuffer) IsUnused() bool {
	if b.refcount == nil {
		return true
	}
	return atomic.LoadInt32(b.refcount) <= 1
}

// SameStorage reports whether two buffers share the same backing storage.
func (b RawBuffer) SameStorage(other RawBuffer) bool {
	if b.storage == nil || other.storage == nil {
		return false
	}
	return &b.storage[0] == &other.storage[0]
}

// Buffer is a typed view on a RawBuffer, interpreting the storage as an
// array of samples of type T. Subviews and reinterpret casts share the
// storage and the reference counter of the underlying raw buffer.
type Buffer[T any] struct {
	raw  RawBuffer
	size int
}

// NewBuffer allocates a buffer of n samples of type T.
func NewBuffer[T any](n int, owner BufferOwner) Buffer[T] {
	return Buffer[T]{raw: NewRawBuffer(n*sampleSize[T](), owner), size: n}
}

// WrapBuffer borrows an existing slice as an unowned buffer view.
func WrapBuffer[T any](data []T) Buffer[T] {
	if len(data) == 0 {
		return Buffer[T]{}
	}
	bytes := unsafe.Slice((*byte)(unsafe.Pointer(&data[0])), len(data)*sampleSize[T]())
	return Buffer[T]{raw: BorrowRawBuffer(bytes), size: len(data)}
}

// AsBuffer reinterprets a raw buffer as a typed buffer. The length becomes
// the byte length of the view divided by the sample size; trailing bytes
// that do not make up a full sample are not visible through the view.
func AsBuffer[T any](raw RawBuffer) Buffer[T] {
	return Buffer[T]{raw: raw, size: raw.BytesLen() / sampleSize[T]()}
}

// ConvertBuffer reinterprets a Buffer[A] as a Buffer[B] sharing the storage.
func ConvertBuffer[B, A any](b Buffer[A]) Buffer[B] {
	return AsBuffer[B](b.raw)
}

// sampleSize returns the size of a sample of type T in bytes.
func sampleSize[T any]() int {
	var v T
	return int(unsafe.Sizeof(v))
}

// Raw returns the underlying raw buffer view.
func (b Buffer[T]) Raw() RawBuffer { return b.raw }

// Size returns the number of samples in the view.
func (b Buffer[T]) Size() int { return b.size }

// IsEmpty returns true if the buffer has no storage.
func (b Buffer[T]) IsEmpty() bool { return b.raw.IsEmpty() }

// Ref increments the reference count of the shared storage.
func (b Buffer[T]) Ref() { b.raw.Ref() }

// Unref decrements the reference count of the shared storage.
func (b *Buffer[T]) Unref() { b.raw.Unref() }

// RefCount returns the reference count of the shared storage.
func (b Buffer[T]) RefCount() int { return b.raw.RefCount() }

// IsUnused returns true if at most the owner references the storage.
func (b Buffer[T]) IsUnused() bool { return b.raw.IsUnused() }

// Slice returns the samples of the view. The slice aliases the buffer
// storage, it must not be retained beyond the life of the buffer reference.
func (b Buffer[T]) Slice() []T {
	if b.raw.storage == nil || b.size == 0 {
		return nil
	}
	return unsafe.Slice((*T)(unsafe.Pointer(&b.raw.storage[b.raw.offset])), b.size)
}

// At returns the idx-th sample of the view.
func (b Buffer[T]) At(idx int) T { return b.Slice()[idx] }

// Set stores v as the idx-th sample of the view.
func (b Buffer[T]) Set(idx int, v T) { b.Slice()[idx] = v }

// Fill sets every sample of the view to v.
func (b Buffer[T]) Fill(v T) {
	s := b.Slice()
	for i := range s {
		s[i] = v
	}
}

// Sub returns a view of length samples starting at offset. Bounds past the
// end yield an empty buffer.
func (b Buffer[T]) Sub(offset, length int) Buffer[T] {
	if offset < 0 || length < 0 || offset+length > b.size {
		return Buffer[T]{}
	}
	ss := sampleSize[T]()
	return Buffer[T]{raw: b.raw.view(offset*ss, length*ss), size: length}
}

// Head returns a view of the first n samples.
func (b Buffer[T]) Head(n int) Buffer[T] {
	if n > b.size {
		return Buffer[T]{}
	}
	return b.Sub(0, n)
}

// Tail returns a view of the last n samples.
func (b Buffer[T]) Tail(n int) Buffer[T] {
	if n > b.size {
		return Buffer[T]{}
	}
	return b.Sub(b.size-n, n)
}

// String renders a short, human readable summary of the buffer contents.
func (b Buffer[T]) String() string {
	s := b.Slice()
	if len(s) > 10 {
		return fmt.Sprintf("%v... (%d samples)", s[:10], len(s))
	}
	return fmt.Sprintf("%v", s)
}
