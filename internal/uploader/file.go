package uploader

import (
	"bytes"
	"io"
	"mime"
	"net/http"
	"os"
	"path/filepath"
	"strings"
)

// File is a caller-owned file handle.
// The engine reads only Name and ContentType; Open is for capabilities.
type File interface {
	Name() string
	ContentType() string
	Open() (io.ReadCloser, error)
}

// BytesFile is an in-memory file, e.g. one part of a multipart form.
type BytesFile struct {
	Filename string
	MIME     string
	Data     []byte
}

// NewBytesFile creates an in-memory file. An empty mimeType is sniffed.
func NewBytesFile(name, mimeType string, data []byte) *BytesFile {
	if mimeType == "" {
		mimeType = detectType(name, data)
	}
	return &BytesFile{Filename: name, MIME: mimeType, Data: data}
}

func (f *BytesFile) Name() string        { return f.Filename }
func (f *BytesFile) ContentType() string { return f.MIME }
func (f *BytesFile) Size() int64         { return int64(len(f.Data)) }

func (f *BytesFile) Open() (io.ReadCloser, error) {
	return io.NopCloser(bytes.NewReader(f.Data)), nil
}

// DiskFile is a file on the local filesystem.
type DiskFile struct {
	Path string
	MIME string
}

// NewDiskFile stats path and resolves its MIME type from the extension,
// falling back to sniffing the first 512 bytes.
func NewDiskFile(path string) (*DiskFile, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, err
	}
	if info.IsDir() {
		return nil, &os.PathError{Op: "open", Path: path, Err: errIsDirectory}
	}

	mimeType := mime.TypeByExtension(filepath.Ext(path))
	if mimeType == "" {
		head, err := readHead(path)
		if err != nil {
			return nil, err
		}
		mimeType = http.DetectContentType(head)
	}
	return &DiskFile{Path: path, MIME: stripParams(mimeType)}, nil
}

func (f *DiskFile) Name() string        { return filepath.Base(f.Path) }
func (f *DiskFile) ContentType() string { return f.MIME }

func (f *DiskFile) Open() (io.ReadCloser, error) {
	return os.Open(f.Path)
}

func readHead(path string) ([]byte, error) {
	fh, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer fh.Close()

	buf := make([]byte, 512)
	n, err := io.ReadFull(fh, buf)
	if err != nil && err != io.ErrUnexpectedEOF && err != io.EOF {
		return nil, err
	}
	return buf[:n], nil
}

func detectType(name string, data []byte) string {
	if t := mime.TypeByExtension(filepath.Ext(name)); t != "" {
		return stripParams(t)
	}
	return stripParams(http.DetectContentType(data))
}

// stripParams drops parameters such as "; charset=utf-8".
func stripParams(mimeType string) string {
	if i := strings.IndexByte(mimeType, ';'); i >= 0 {
		mimeType = mimeType[:i]
	}
	return strings.TrimSpace(strings.ToLower(mimeType))
}
