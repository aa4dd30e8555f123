package cache

import (
	"context"
	"sync/atomic"
)

// MemoryBackend keeps the entry in process. Writers swap the pointer, so
// readers never see a half-written entry.
type MemoryBackend[T any] struct {
	current atomic.Pointer[Entry[T]]
}

func NewMemoryBackend[T any]() *MemoryBackend[T] {
	return &MemoryBackend[T]{}
}

func (b *MemoryBackend[T]) Load(context.Context) (Entry[T], bool, error) {
	entry := b.current.Load()
	if entry == nil {
		return Entry[T]{}, false, nil
	}
	return *entry, true, nil
}

func (b *MemoryBackend[T]) Store(_ context.Context, entry Entry[T]) error {
	b.current.Store(&entry)
	return nil
}

func (b *MemoryBackend[T]) Clear(context.Context) error {
	b.current.Store(nil)
	return nil
}
