package backends

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"net/url"
	"strings"

	"github.com/JonMunkholm/uploader/internal/config"
	"github.com/JonMunkholm/uploader/internal/storage"
	"github.com/JonMunkholm/uploader/internal/uploader"
)

func init() {
	storage.Register(storage.Definition{
		Name:        "http",
		Description: "Posts files to a remote HTTP endpoint",
		Open: func(_ context.Context, cfg *config.Config) (storage.Backend, error) {
			client := &http.Client{Timeout: cfg.Storage.HTTPTimeout}
			return NewHTTP(cfg.Storage.HTTPEndpoint, client, cfg.Widget.MaxFileSize)
		},
	})
}

// HTTP forwards files to a remote endpoint. Uploads are multipart POSTs to
// the endpoint with the file in the "file" field; deletes are
// DELETE <endpoint>/<name>.
type HTTP struct {
	endpoint string
	client   *http.Client
	maxSize  int64
}

// NewHTTP creates an HTTP backend. A nil client uses http.DefaultClient.
func NewHTTP(endpoint string, client *http.Client, maxSize int64) (*HTTP, error) {
	u, err := url.Parse(endpoint)
	if err != nil {
		return nil, fmt.Errorf("parse endpoint: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("endpoint %q must be an http or https URL", endpoint)
	}
	if client == nil {
		client = http.DefaultClient
	}
	return &HTTP{
		endpoint: strings.TrimSuffix(endpoint, "/"),
		client:   client,
		maxSize:  maxSize,
	}, nil
}

func (h *HTTP) Upload(ctx context.Context, f uploader.File) (string, error) {
	data, err := readAll(f, h.maxSize)
	if err != nil {
		return "", err
	}

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)

	header := make(textproto.MIMEHeader)
	header.Set("Content-Disposition",
		fmt.Sprintf(`form-data; name="file"; filename="%s"`, quoteEscaper.Replace(f.Name())))
	header.Set("Content-Type", f.ContentType())
	part, err := mw.CreatePart(header)
	if err != nil {
		return "", fmt.Errorf("build form: %w", err)
	}
	if _, err := part.Write(data); err != nil {
		return "", fmt.Errorf("build form: %w", err)
	}
	if err := mw.Close(); err != nil {
		return "", fmt.Errorf("build form: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, h.endpoint, &body)
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())

	resp, err := h.client.Do(req)
	if err != nil {
		return "", err
	}
	defer drain(resp)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", notSavedError(f)
	}
	return savedMessage(f), nil
}

// Delete treats 404 as success: the file is already gone.
func (h *HTTP) Delete(ctx context.Context, f uploader.File) error {
	target := h.endpoint + "/" + url.PathEscape(f.Name())
	req, err := http.NewRequestWithContext(ctx, http.MethodDelete, target, nil)
	if err != nil {
		return err
	}

	resp, err := h.client.Do(req)
	if err != nil {
		return err
	}
	defer drain(resp)

	if resp.StatusCode == http.StatusNotFound {
		return nil
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return notDeletedError(f)
	}
	return nil
}

func (h *HTTP) Close() error {
	h.client.CloseIdleConnections()
	return nil
}

var quoteEscaper = strings.NewReplacer("\\", "\\\\", `"`, "\\\"")

func drain(resp *http.Response) {
	io.Copy(io.Discard, io.LimitReader(resp.Body, 64<<10))
	resp.Body.Close()
}
