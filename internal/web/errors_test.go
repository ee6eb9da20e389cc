package web

import (
	"bytes"
	"context"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JonMunkholm/uploader/internal/uploader"
)

func captureLogs(t *testing.T) *bytes.Buffer {
	t.Helper()
	var buf bytes.Buffer
	prev := slog.Default()
	slog.SetDefault(slog.New(slog.NewJSONHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug})))
	t.Cleanup(func() { slog.SetDefault(prev) })
	return &buf
}

func TestRespondErrorLogsRequestIDOnce(t *testing.T) {
	logs := captureLogs(t)

	req := httptest.NewRequest(http.MethodDelete, "/api/sessions/x/files/a.txt", nil)
	req = req.WithContext(context.WithValue(req.Context(), middleware.RequestIDKey, "req-42"))
	rec := httptest.NewRecorder()

	respondError(rec, req, uploader.ErrItemNotFound, http.StatusNotFound)

	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "UPL001", errorCode(t, rec))

	line := logs.String()
	require.Contains(t, line, `"request_id":"req-42"`)
	assert.Equal(t, 1, strings.Count(line, `"request_id"`), line)
}

func TestStatusFor(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{uploader.ErrItemNotFound, http.StatusNotFound},
		{uploader.ErrClosed, http.StatusGone},
		{uploader.ErrItemBusy, http.StatusConflict},
		{uploader.ErrCapacityExceeded, http.StatusConflict},
		{errRateLimited, http.StatusTooManyRequests},
		{errBadCapacity, http.StatusBadRequest},
		{errNotListable, http.StatusNotImplemented},
		{&http.MaxBytesError{Limit: 1}, http.StatusRequestEntityTooLarge},
		{context.Canceled, http.StatusInternalServerError},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, statusFor(tt.err), tt.err.Error())
	}
}
