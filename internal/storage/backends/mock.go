package backends

import (
	"context"
	"math/rand/v2"
	"time"

	"github.com/JonMunkholm/uploader/internal/config"
	"github.com/JonMunkholm/uploader/internal/storage"
	"github.com/JonMunkholm/uploader/internal/uploader"
)

func init() {
	storage.Register(storage.Definition{
		Name:        "mock",
		Description: "Simulates a remote store with random latency and failures",
		Open: func(_ context.Context, cfg *config.Config) (storage.Backend, error) {
			return NewMock(cfg.Storage.MockMinDelay, cfg.Storage.MockMaxDelay, cfg.Storage.MockFailurePercent), nil
		},
	})
}

// Mock pretends to store files. Each operation sleeps for a random delay in
// [MinDelay, MaxDelay] and fails with probability FailurePercent/100.
type Mock struct {
	MinDelay       time.Duration
	MaxDelay       time.Duration
	FailurePercent int

	// roll returns a value in [0, n). Replaced in tests.
	roll func(n int64) int64
}

// NewMock creates a mock backend.
func NewMock(minDelay, maxDelay time.Duration, failurePercent int) *Mock {
	return &Mock{
		MinDelay:       minDelay,
		MaxDelay:       maxDelay,
		FailurePercent: failurePercent,
		roll:           rand.Int64N,
	}
}

func (m *Mock) Upload(ctx context.Context, f uploader.File) (string, error) {
	if err := m.wait(ctx); err != nil {
		return "", err
	}
	if m.fails() {
		return "", notSavedError(f)
	}
	return savedMessage(f), nil
}

func (m *Mock) Delete(ctx context.Context, f uploader.File) error {
	if err := m.wait(ctx); err != nil {
		return err
	}
	if m.fails() {
		return notDeletedError(f)
	}
	return nil
}

func (m *Mock) Close() error { return nil }

func (m *Mock) delay() time.Duration {
	span := m.MaxDelay - m.MinDelay
	if span <= 0 {
		return m.MinDelay
	}
	return m.MinDelay + time.Duration(m.roll(int64(span)+1))
}

func (m *Mock) fails() bool {
	return m.roll(100) < int64(m.FailurePercent)
}

func (m *Mock) wait(ctx context.Context) error {
	d := m.delay()
	if d <= 0 {
		return ctx.Err()
	}

	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
