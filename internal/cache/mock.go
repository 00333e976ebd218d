package cache

import (
	"context"
	"sync"
	"time"
)

// MockClient is an in-memory Cache used in tests and when Redis is not
// available.
type MockClient struct {
	mu     sync.Mutex
	data   map[string]time.Time
	prefix string
}

func NewMockClient(prefix string) *MockClient {
	return &MockClient{
		data:   make(map[string]time.Time),
		prefix: prefix,
	}
}

func (m *MockClient) Close() error {
	return nil
}

func (m *MockClient) IsProcessed(ctx context.Context, hash string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	expiry, exists := m.data[m.prefix+hash]
	if !exists {
		return false, nil
	}
	if !expiry.IsZero() && time.Now().After(expiry) {
		delete(m.data, m.prefix+hash)
		return false, nil
	}
	return true, nil
}

func (m *MockClient) MarkProcessed(ctx context.Context, hash string, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	var expiry time.Time
	if ttl > 0 {
		expiry = time.Now().Add(ttl)
	}
	m.data[m.prefix+hash] = expiry
	return nil
}

func (m *MockClient) ClearProcessed(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.data = make(map[string]time.Time)
	return nil
}
