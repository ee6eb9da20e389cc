// Package backends registers every storage backend with the storage registry.
// Import this package to make all backends available to storage.Open.
package backends

import (
	"fmt"
	"io"

	"github.com/JonMunkholm/uploader/internal/uploader"
)

// Messages reported back to the widget. The widget shows them verbatim.
func savedMessage(f uploader.File) string { return fmt.Sprintf("Success: %s saved", f.Name()) }

func notSavedError(f uploader.File) error { return fmt.Errorf("Error: %s not saved", f.Name()) }

func notDeletedError(f uploader.File) error {
	return fmt.Errorf("Error: %s cannot be deleted", f.Name())
}

// readAll reads the whole file, refusing anything above limit bytes when
// limit is positive.
func readAll(f uploader.File, limit int64) ([]byte, error) {
	rc, err := f.Open()
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", f.Name(), err)
	}
	defer rc.Close()

	r := io.Reader(rc)
	if limit > 0 {
		r = io.LimitReader(rc, limit+1)
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", f.Name(), err)
	}
	if limit > 0 && int64(len(data)) > limit {
		return nil, fmt.Errorf("file too large: %s exceeds %d bytes", f.Name(), limit)
	}
	return data, nil
}
