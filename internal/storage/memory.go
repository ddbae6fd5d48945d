package storage

import (
	"context"
	"fmt"
	"sync"
)

// Memory is an in-process Store. ReadErr and WriteErr, when set, are
// returned instead of touching the documents.
type Memory struct {
	mu       sync.Mutex
	docs     map[string][]byte
	ReadErr  error
	WriteErr error
	Writes   []string
}

// NewMemory returns a Memory seeded with docs.
func NewMemory(docs map[string][]byte) *Memory {
	m := &Memory{docs: map[string][]byte{}}
	for k, v := range docs {
		m.docs[k] = append([]byte(nil), v...)
	}
	return m
}

func (m *Memory) Read(ctx context.Context, name string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.ReadErr != nil {
		return nil, m.ReadErr
	}
	data, ok := m.docs[name]
	if !ok {
		return nil, fmt.Errorf("%s: %w", name, ErrNotExist)
	}
	return append([]byte(nil), data...), nil
}

func (m *Memory) Write(ctx context.Context, name string, data []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.WriteErr != nil {
		return m.WriteErr
	}
	if m.docs == nil {
		m.docs = map[string][]byte{}
	}
	m.docs[name] = append([]byte(nil), data...)
	m.Writes = append(m.Writes, name)
	return nil
}

// SetReadErr and SetWriteErr change failure injection while other goroutines may be reading.
func (m *Memory) SetReadErr(err error) {
	m.mu.Lock()
	m.ReadErr = err
	m.mu.Unlock()
}

func (m *Memory) SetWriteErr(err error) {
	m.mu.Lock()
	m.WriteErr = err
	m.mu.Unlock()
}

// Document returns the stored bytes for name.
func (m *Memory) Document(name string) ([]byte, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	data, ok := m.docs[name]
	return data, ok
}
