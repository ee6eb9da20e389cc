package backends

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JonMunkholm/uploader/internal/uploader"
)

type receiver struct {
	mu       sync.Mutex
	status   int
	received map[string]string
	types    map[string]string
	deleted  []string
}

func (rv *receiver) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	rv.mu.Lock()
	defer rv.mu.Unlock()

	switch r.Method {
	case http.MethodPost:
		file, header, err := r.FormFile("file")
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		defer file.Close()
		data, _ := io.ReadAll(file)
		rv.received[header.Filename] = string(data)
		rv.types[header.Filename] = header.Header.Get("Content-Type")
	case http.MethodDelete:
		rv.deleted = append(rv.deleted, r.URL.Path)
	}
	w.WriteHeader(rv.status)
}

func newReceiver(t *testing.T, status int) (*receiver, *HTTP) {
	t.Helper()
	rv := &receiver{status: status, received: map[string]string{}, types: map[string]string{}}
	srv := httptest.NewServer(rv)
	t.Cleanup(srv.Close)

	h, err := NewHTTP(srv.URL+"/example/", srv.Client(), 0)
	require.NoError(t, err)
	t.Cleanup(func() { h.Close() })
	return rv, h
}

func TestHTTP_Upload(t *testing.T) {
	rv, h := newReceiver(t, http.StatusCreated)

	msg, err := h.Upload(context.Background(), uploader.NewBytesFile(`we"ird.png`, "image/png", []byte("pixels")))
	require.NoError(t, err)
	assert.Equal(t, `Success: we"ird.png saved`, msg)

	rv.mu.Lock()
	defer rv.mu.Unlock()
	assert.Equal(t, "pixels", rv.received[`we"ird.png`])
	assert.Equal(t, "image/png", rv.types[`we"ird.png`])
}

func TestHTTP_UploadRejected(t *testing.T) {
	_, h := newReceiver(t, http.StatusInternalServerError)

	_, err := h.Upload(context.Background(), uploader.NewBytesFile("a.png", "image/png", nil))
	require.EqualError(t, err, "Error: a.png not saved")
}

func TestHTTP_Delete(t *testing.T) {
	rv, h := newReceiver(t, http.StatusNoContent)

	require.NoError(t, h.Delete(context.Background(), uploader.NewBytesFile("my file.png", "", nil)))

	rv.mu.Lock()
	defer rv.mu.Unlock()
	assert.Equal(t, []string{"/example/my file.png"}, rv.deleted)
}

func TestHTTP_DeleteStatus(t *testing.T) {
	_, gone := newReceiver(t, http.StatusNotFound)
	assert.NoError(t, gone.Delete(context.Background(), uploader.NewBytesFile("a.png", "", nil)))

	_, broken := newReceiver(t, http.StatusForbidden)
	assert.EqualError(t, broken.Delete(context.Background(), uploader.NewBytesFile("a.png", "", nil)),
		"Error: a.png cannot be deleted")
}

func TestHTTP_Cancellation(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer srv.Close()
	defer close(release)

	h, err := NewHTTP(srv.URL, srv.Client(), 0)
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Millisecond)
	defer cancel()

	_, err = h.Upload(ctx, uploader.NewBytesFile("a.png", "image/png", nil))
	require.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestNewHTTP_InvalidEndpoint(t *testing.T) {
	for _, endpoint := range []string{"", "ftp://example.com", "://bad"} {
		_, err := NewHTTP(endpoint, nil, 0)
		assert.Error(t, err, endpoint)
	}
}
