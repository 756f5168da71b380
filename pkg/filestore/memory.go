package filestore

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"sync"
)

// MemoryStore keeps saved files in memory.
type MemoryStore struct {
	files    map[string][]byte
	failures int
	err      error
	saves    int
	mu       sync.Mutex
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		files: make(map[string][]byte),
	}
}

// FailNext makes the next n calls to Save fail with err.
func (s *MemoryStore) FailNext(n int, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failures = n
	s.err = err
}

// Save stores a copy of the bytes read from r.
func (s *MemoryStore) Save(ctx context.Context, name string, r io.Reader, contentType string) (*Reference, error) {
	if err := validateName(name); err != nil {
		return nil, NewSaveError("memory", name, err)
	}

	s.mu.Lock()
	s.saves++
	if s.failures > 0 {
		s.failures--
		err := s.err
		s.mu.Unlock()
		return nil, NewSaveError("memory", name, err)
	}
	s.mu.Unlock()

	var buf bytes.Buffer
	if _, err := io.Copy(&buf, r); err != nil {
		return nil, NewSaveError("memory", name, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.files[name] = buf.Bytes()
	return &Reference{
		Name:        name,
		Location:    fmt.Sprintf("memory://%s", name),
		Size:        int64(buf.Len()),
		ContentType: contentType,
		Backend:     "memory",
	}, nil
}

// Get returns the saved bytes of name.
func (s *MemoryStore) Get(name string) ([]byte, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	data, ok := s.files[name]
	return data, ok
}

// Names returns the names of all saved files.
func (s *MemoryStore) Names() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	names := make([]string, 0, len(s.files))
	for name := range s.files {
		names = append(names, name)
	}
	return names
}

// Saves returns the number of Save calls, including failed ones.
func (s *MemoryStore) Saves() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.saves
}

// Ping always succeeds.
func (s *MemoryStore) Ping(ctx context.Context) error {
	return nil
}
