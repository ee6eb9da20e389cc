// Package storage holds the registry of backends that files are uploaded to.
//
// A backend is the injected upload and delete capability of a widget
// session. Backends register themselves from init functions; import
// internal/storage/backends to register all of them.
package storage

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/JonMunkholm/uploader/internal/config"
	"github.com/JonMunkholm/uploader/internal/uploader"
)

// ErrUnknownBackend is returned by Open for a name nothing registered.
var ErrUnknownBackend = errors.New("unknown storage backend")

// Backend stores and removes uploaded files.
type Backend interface {
	uploader.Uploader
	uploader.Deleter

	// Close releases connections held by the backend.
	Close() error
}

// Lister is implemented by backends that can enumerate stored files.
type Lister interface {
	List(ctx context.Context) ([]string, error)
}

// Factory builds a backend from configuration.
type Factory func(ctx context.Context, cfg *config.Config) (Backend, error)

// Definition describes a registered backend.
type Definition struct {
	Name        string
	Description string
	Open        Factory
}

var (
	registry   = make(map[string]Definition)
	registryMu sync.RWMutex
)

// Register adds a backend definition to the registry.
// Panics if a backend with the same name is already registered.
func Register(def Definition) {
	registryMu.Lock()
	defer registryMu.Unlock()

	name := strings.ToLower(def.Name)
	if _, exists := registry[name]; exists {
		panic(fmt.Sprintf("storage backend already registered: %s", name))
	}
	def.Name = name
	registry[name] = def
}

// Get returns a backend definition by name.
func Get(name string) (Definition, bool) {
	registryMu.RLock()
	defer registryMu.RUnlock()

	def, ok := registry[strings.ToLower(name)]
	return def, ok
}

// All returns all registered definitions sorted by name.
func All() []Definition {
	registryMu.RLock()
	defer registryMu.RUnlock()

	result := make([]Definition, 0, len(registry))
	for _, def := range registry {
		result = append(result, def)
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].Name < result[j].Name
	})
	return result
}

// Open builds the backend named by cfg.Storage.Backend.
func Open(ctx context.Context, cfg *config.Config) (Backend, error) {
	def, ok := Get(cfg.Storage.Backend)
	if !ok {
		return nil, fmt.Errorf("%w %q", ErrUnknownBackend, cfg.Storage.Backend)
	}

	b, err := def.Open(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("open %s storage: %w", def.Name, err)
	}
	return b, nil
}
