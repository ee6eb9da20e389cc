package backends

import (
	"context"
	"fmt"
	"sync"

	"github.com/JonMunkholm/uploader/internal/config"
	"github.com/JonMunkholm/uploader/internal/storage"
	"github.com/JonMunkholm/uploader/internal/uploader"
)

func init() {
	storage.Register(storage.Definition{
		Name:        "memory",
		Description: "Collects files in process memory",
		Open: func(_ context.Context, cfg *config.Config) (storage.Backend, error) {
			return NewMemory(cfg.Widget.MaxFileSize), nil
		},
	})
}

// Memory collects uploaded files in memory, in upload order.
type Memory struct {
	maxSize int64

	mu    sync.RWMutex
	files map[string][]byte
	order []string
}

// NewMemory creates an empty collection. maxSize <= 0 means unlimited.
func NewMemory(maxSize int64) *Memory {
	return &Memory{maxSize: maxSize, files: make(map[string][]byte)}
}

func (m *Memory) Upload(ctx context.Context, f uploader.File) (string, error) {
	data, err := readAll(f, m.maxSize)
	if err != nil {
		return "", err
	}
	if err := ctx.Err(); err != nil {
		return "", err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.files[f.Name()]; !ok {
		m.order = append(m.order, f.Name())
	}
	m.files[f.Name()] = data
	return fmt.Sprintf("Success: %s collected", f.Name()), nil
}

func (m *Memory) Delete(ctx context.Context, f uploader.File) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.files[f.Name()]; !ok {
		return nil
	}
	delete(m.files, f.Name())
	for i, n := range m.order {
		if n == f.Name() {
			m.order = append(m.order[:i:i], m.order[i+1:]...)
			break
		}
	}
	return nil
}

// List returns the collected file names in upload order.
func (m *Memory) List(context.Context) ([]string, error) {
	return m.Files(), nil
}

// Files returns the collected file names in upload order.
func (m *Memory) Files() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]string(nil), m.order...)
}

// Data returns the stored bytes of a collected file.
func (m *Memory) Data(name string) ([]byte, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	data, ok := m.files[name]
	return data, ok
}

func (m *Memory) Close() error { return nil }
