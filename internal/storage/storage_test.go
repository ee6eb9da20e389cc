package storage

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JonMunkholm/uploader/internal/config"
	"github.com/JonMunkholm/uploader/internal/uploader"
)

type stubBackend struct {
	closed bool
}

func (s *stubBackend) Upload(context.Context, uploader.File) (string, error) { return "ok", nil }
func (s *stubBackend) Delete(context.Context, uploader.File) error           { return nil }
func (s *stubBackend) Close() error                                          { s.closed = true; return nil }

func withRegistry(t *testing.T) {
	t.Helper()
	registryMu.Lock()
	saved := registry
	registry = make(map[string]Definition)
	registryMu.Unlock()

	t.Cleanup(func() {
		registryMu.Lock()
		registry = saved
		registryMu.Unlock()
	})
}

func TestRegisterAndOpen(t *testing.T) {
	withRegistry(t)

	stub := &stubBackend{}
	Register(Definition{Name: "Stub", Open: func(context.Context, *config.Config) (Backend, error) {
		return stub, nil
	}})
	Register(Definition{Name: "alpha", Open: func(context.Context, *config.Config) (Backend, error) {
		return nil, errors.New("dial tcp: connection refused")
	}})

	cfg := &config.Config{Storage: config.StorageConfig{Backend: "STUB"}}
	b, err := Open(context.Background(), cfg)
	require.NoError(t, err)
	assert.Same(t, stub, b)

	cfg.Storage.Backend = "alpha"
	_, err = Open(context.Background(), cfg)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "open alpha storage")
	assert.Equal(t, "STO001", uploader.MapError(err).Code)

	names := []string{}
	for _, def := range All() {
		names = append(names, def.Name)
	}
	assert.Equal(t, []string{"alpha", "stub"}, names)
}

func TestOpen_Unknown(t *testing.T) {
	withRegistry(t)

	_, err := Open(context.Background(), &config.Config{Storage: config.StorageConfig{Backend: "ftp"}})
	require.ErrorIs(t, err, ErrUnknownBackend)
	assert.Equal(t, "STO002", uploader.MapError(err).Code)
}

func TestRegister_DuplicatePanics(t *testing.T) {
	withRegistry(t)

	def := Definition{Name: "dup", Open: func(context.Context, *config.Config) (Backend, error) { return nil, nil }}
	Register(def)
	assert.Panics(t, func() { Register(def) })
}
