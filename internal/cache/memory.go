package cache

import (
	"bytes"
	"context"
	"time"
)

// Memory is a single-process Store. Locks taken through it only exclude
// resolvers in the same process.
type Memory struct {
	items *Cache[[]byte]
}

var _ Store = (*Memory)(nil)

// NewMemory creates an in-memory store that sweeps expired entries every
// cleanupInterval.
func NewMemory(cleanupInterval time.Duration) *Memory {
	return &Memory{items: New[[]byte](cleanupInterval)}
}

func (m *Memory) Get(ctx context.Context, key string) ([]byte, bool, error) {
	v, ok := m.items.Get(key)
	if !ok {
		return nil, false, nil
	}
	return bytes.Clone(v), true, nil
}

func (m *Memory) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	m.items.SetWithTTL(key, bytes.Clone(value), ttl)
	return nil
}

func (m *Memory) CreateIfAbsent(ctx context.Context, key string, value []byte, ttl time.Duration) (bool, error) {
	return m.items.Add(key, bytes.Clone(value), ttl), nil
}

func (m *Memory) Delete(ctx context.Context, key string) error {
	m.items.Delete(key)
	return nil
}

// Close stops the cleanup goroutine.
func (m *Memory) Close() error {
	m.items.Close()
	return nil
}
