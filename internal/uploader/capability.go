package uploader

import (
	"context"
	"fmt"
)

// Uploader sends one file somewhere and returns a human-readable message.
// It must observe ctx and return promptly once ctx is done.
type Uploader interface {
	Upload(ctx context.Context, f File) (string, error)
}

// Deleter removes a previously uploaded file.
type Deleter interface {
	Delete(ctx context.Context, f File) error
}

// UploadFunc adapts a function to Uploader.
type UploadFunc func(ctx context.Context, f File) (string, error)

func (fn UploadFunc) Upload(ctx context.Context, f File) (string, error) {
	return fn(ctx, f)
}

// DeleteFunc adapts a function to Deleter.
type DeleteFunc func(ctx context.Context, f File) error

func (fn DeleteFunc) Delete(ctx context.Context, f File) error {
	return fn(ctx, f)
}

// defaultUpload accepts every file without transferring it.
var defaultUpload = UploadFunc(func(_ context.Context, f File) (string, error) {
	return fmt.Sprintf("Success: %s uploaded", f.Name()), nil
})

var defaultDelete = DeleteFunc(func(context.Context, File) error {
	return nil
})

// callUpload invokes up, converting a panic into an error.
func callUpload(ctx context.Context, up Uploader, f File) (msg string, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("upload %s: panic: %v", f.Name(), r)
		}
	}()
	return up.Upload(ctx, f)
}

func callDelete(ctx context.Context, del Deleter, f File) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("delete %s: panic: %v", f.Name(), r)
		}
	}()
	return del.Delete(ctx, f)
}
