package web

import (
	"encoding/json"
	"fmt"
	"io"
	"math"
	"mime/multipart"
	"net/http"
	"net/url"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/JonMunkholm/uploader/internal/logging"
	"github.com/JonMunkholm/uploader/internal/storage"
	"github.com/JonMunkholm/uploader/internal/uploader"
	"github.com/JonMunkholm/uploader/internal/web/templates"
)

// formMemory is how much of a multipart body is buffered in memory before
// spilling to temporary files.
const formMemory = 32 << 20

// SessionResponse describes a widget session.
type SessionResponse struct {
	ID      string          `json:"id"`
	Options SessionOptions  `json:"options"`
	Status  uploader.Status `json:"status"`
	Items   []uploader.View `json:"items"`
}

// SessionOptions are the presentation settings of a session.
type SessionOptions struct {
	Description string   `json:"description"`
	InputName   string   `json:"input_name"`
	FileTypes   []string `json:"file_types"`
	MaxFiles    int      `json:"max_files"`
	MaxCapacity int      `json:"max_capacity"`
}

// CapacityRequest is the body of PUT /api/sessions/{id}/capacity.
type CapacityRequest struct {
	Capacity int `json:"capacity"`
}

// handleHealth reports liveness and the live session count.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":   "ok",
		"backend":  s.cfg.Storage.Backend,
		"sessions": s.sessions.count(),
	})
}

// handleNewSessionPage starts a session and redirects to its page.
func (s *Server) handleNewSessionPage(w http.ResponseWriter, r *http.Request) {
	sess, err := s.sessions.create()
	if err != nil {
		respondError(w, r, err, statusFor(err))
		return
	}
	logging.FromContext(r.Context()).Info("session created", "session", sess.id)
	http.Redirect(w, r, "/s/"+sess.id, http.StatusSeeOther)
}

// handleSessionPage renders the widget for an existing session. An expired
// session is replaced by a fresh one.
func (s *Server) handleSessionPage(w http.ResponseWriter, r *http.Request) {
	sess, err := s.sessions.get(chi.URLParam(r, "sessionID"))
	if err != nil {
		http.Redirect(w, r, "/", http.StatusSeeOther)
		return
	}

	opts := sess.coord.Options()
	st := sess.coord.State()
	params := templates.PageParams{
		SessionID:   sess.id,
		Description: opts.Description,
		InputName:   opts.InputName,
		Accept:      opts.Accept(),
		Multiple:    st.Capacity > 1,
		Capacity:    st.Capacity,
		Items:       st.Views(),
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := templates.Page(params).Render(r.Context(), w); err != nil {
		logging.FromContext(r.Context()).Error("render page", "error", err)
	}
}

// handleCreateSession starts a session for API clients.
func (s *Server) handleCreateSession(w http.ResponseWriter, r *http.Request) {
	sess, err := s.sessions.create()
	if err != nil {
		respondError(w, r, err, statusFor(err))
		return
	}
	logging.FromContext(r.Context()).Info("session created", "session", sess.id)
	writeJSON(w, http.StatusCreated, s.sessionResponse(sess))
}

func (s *Server) handleSessionStatus(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.session(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, s.sessionResponse(sess))
}

// handleCloseSession tears a session down, cancelling its operations.
func (s *Server) handleCloseSession(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "sessionID")
	if err := s.sessions.remove(r.Context(), id); err != nil {
		respondError(w, r, err, statusFor(err))
		return
	}
	logging.FromContext(r.Context()).Info("session closed", "session", id)
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleListItems(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.session(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, sess.coord.Items())
}

// handleSetCapacity changes the number of files a session accepts.
func (s *Server) handleSetCapacity(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.session(w, r)
	if !ok {
		return
	}

	var req CapacityRequest
	if err := json.NewDecoder(io.LimitReader(r.Body, 1<<10)).Decode(&req); err != nil {
		respondError(w, r, fmt.Errorf("decode capacity: %w", errBadCapacity), http.StatusBadRequest)
		return
	}
	if req.Capacity <= 0 || req.Capacity > s.cfg.Widget.MaxCapacity {
		err := fmt.Errorf("%w: got %d, limit %d", errBadCapacity, req.Capacity, s.cfg.Widget.MaxCapacity)
		respondError(w, r, err, http.StatusBadRequest)
		return
	}

	sess.coord.SetCapacity(req.Capacity)
	writeJSON(w, http.StatusOK, s.sessionResponse(sess))
}

// handleClear drops every file of a session.
func (s *Server) handleClear(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.session(w, r)
	if !ok {
		return
	}
	sess.coord.Clear()
	writeJSON(w, http.StatusOK, sess.coord.Items())
}

// handleAddFiles accepts a multipart batch under the session's input name.
// Every part is read into memory before the batch is offered, so a batch
// is admitted or rejected as a whole.
func (s *Server) handleAddFiles(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.session(w, r)
	if !ok {
		return
	}

	opts := sess.coord.Options()
	maxSize := s.cfg.Widget.MaxFileSize
	capacity := min(sess.coord.State().Capacity, s.cfg.Widget.MaxCapacity)
	r.Body = http.MaxBytesReader(w, r.Body, bodyLimit(maxSize, capacity))

	if err := r.ParseMultipartForm(formMemory); err != nil {
		respondError(w, r, fmt.Errorf("parse form: %w", err), statusForForm(err))
		return
	}

	headers := r.MultipartForm.File[opts.InputName]
	if len(headers) == 0 {
		respondError(w, r, errNoFile, http.StatusBadRequest)
		return
	}

	files := make([]uploader.File, 0, len(headers))
	for _, fh := range headers {
		if fh.Size > maxSize {
			err := fmt.Errorf("%s: file too large (%d bytes, limit %d)", fh.Filename, fh.Size, maxSize)
			respondError(w, r, err, http.StatusRequestEntityTooLarge)
			return
		}
		f, err := readPart(fh)
		if err != nil {
			respondError(w, r, err, http.StatusBadRequest)
			return
		}
		files = append(files, f)
	}

	res, err := sess.coord.AddFiles(files...)
	if err != nil {
		respondError(w, r, err, statusFor(err))
		return
	}
	if res.CapacityExceeded {
		respondError(w, r, fmt.Errorf("add %d files: %w", len(files), uploader.ErrCapacityExceeded), http.StatusConflict)
		return
	}

	logging.WithFields(r.Context(), "session", sess.id).Info("files added",
		"added", len(res.Added),
		"duplicates", len(res.Duplicates),
		"disallowed", len(res.Disallowed),
	)
	writeJSON(w, http.StatusAccepted, res)
}

// handleDeleteFile starts deleting a file from storage.
func (s *Server) handleDeleteFile(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.session(w, r)
	if !ok {
		return
	}
	if err := sess.coord.DeleteFile(fileParam(r)); err != nil {
		respondError(w, r, err, statusFor(err))
		return
	}
	writeJSON(w, http.StatusAccepted, sess.coord.Items())
}

// handleRetryFile re-uploads a settled file.
func (s *Server) handleRetryFile(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.session(w, r)
	if !ok {
		return
	}
	if err := sess.coord.RetryFile(fileParam(r)); err != nil {
		respondError(w, r, err, statusFor(err))
		return
	}
	writeJSON(w, http.StatusAccepted, sess.coord.Items())
}

// handleStoredFiles lists what the storage backend holds.
func (s *Server) handleStoredFiles(w http.ResponseWriter, r *http.Request) {
	lister, ok := s.backend.(storage.Lister)
	if !ok {
		respondError(w, r, errNotListable, http.StatusNotImplemented)
		return
	}

	names, err := lister.List(r.Context())
	if err != nil {
		respondError(w, r, fmt.Errorf("list stored files: %w", err), http.StatusBadGateway)
		return
	}
	if names == nil {
		names = []string{}
	}
	writeJSON(w, http.StatusOK, map[string][]string{"files": names})
}

// handleEvents streams item snapshots of a session via Server-Sent Events.
//
// Each snapshot is sent as an "items" event carrying the JSON view list.
// A "closed" event is sent when the session ends. Comment heartbeats keep
// idle connections open and the session alive.
func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.session(w, r)
	if !ok {
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		respondError(w, r, fmt.Errorf("streaming not supported"), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")

	updates, stop := sess.coord.Subscribe()
	defer stop()

	heartbeat := time.NewTicker(s.heartbeat)
	defer heartbeat.Stop()

	for {
		select {
		case views, ok := <-updates:
			if !ok {
				fmt.Fprint(w, "event: closed\ndata: {}\n\n")
				flusher.Flush()
				return
			}
			data, err := json.Marshal(views)
			if err != nil {
				logging.FromContext(r.Context()).Error("encode items", "error", err)
				return
			}
			fmt.Fprintf(w, "event: items\ndata: %s\n\n", data)
			flusher.Flush()

		case <-heartbeat.C:
			sess.touch(s.sessions.now())
			fmt.Fprint(w, ": heartbeat\n\n")
			flusher.Flush()

		case <-r.Context().Done():
			return
		}
	}
}

// session resolves the session named in the URL, writing the error
// response when it does not exist.
func (s *Server) session(w http.ResponseWriter, r *http.Request) (*session, bool) {
	sess, err := s.sessions.get(chi.URLParam(r, "sessionID"))
	if err != nil {
		respondError(w, r, err, statusFor(err))
		return nil, false
	}
	return sess, true
}

func (s *Server) sessionResponse(sess *session) SessionResponse {
	opts := sess.coord.Options()
	return SessionResponse{
		ID: sess.id,
		Options: SessionOptions{
			Description: opts.Description,
			InputName:   opts.InputName,
			FileTypes:   opts.FileTypes,
			MaxFiles:    sess.coord.State().Capacity,
			MaxCapacity: s.cfg.Widget.MaxCapacity,
		},
		Status: sess.coord.Status(),
		Items:  sess.coord.Items(),
	}
}

// fileParam returns the decoded file name of the route. chi returns an
// escaped segment only when the request URL has a RawPath.
func fileParam(r *http.Request) string {
	raw := chi.URLParam(r, "name")
	if r.URL.RawPath == "" {
		return raw
	}
	if name, err := url.PathUnescape(raw); err == nil {
		return name
	}
	return raw
}

// bodyLimit is the largest add request accepted for capacity files of
// at most maxSize bytes each, saturating instead of overflowing.
func bodyLimit(maxSize int64, capacity int) int64 {
	n := int64(max(capacity, 1))
	if maxSize > (math.MaxInt64-formMemory)/n {
		return math.MaxInt64
	}
	return maxSize*n + formMemory
}

// readPart loads one multipart file into memory. Parts without a useful
// content type are sniffed.
func readPart(fh *multipart.FileHeader) (uploader.File, error) {
	f, err := fh.Open()
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", fh.Filename, err)
	}
	defer f.Close()

	data, err := io.ReadAll(f)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", fh.Filename, err)
	}

	ct := fh.Header.Get("Content-Type")
	if ct == "application/octet-stream" {
		ct = ""
	}
	return uploader.NewBytesFile(fh.Filename, ct, data), nil
}

func statusForForm(err error) int {
	if status := statusFor(err); status == http.StatusRequestEntityTooLarge {
		return status
	}
	return http.StatusBadRequest
}
