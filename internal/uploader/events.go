package uploader

import "context"

// Event is a discrete state transition request.
// The set is closed: only types in this file implement it.
type Event interface {
	event()
}

// Clear empties the collection, cancelling in-flight operations.
type Clear struct{}

// SetCapacity changes the maximum item count, truncating trailing items.
type SetCapacity struct {
	N int
}

// Add admits a batch of files. The whole batch is rejected if the
// non-duplicate files would exceed capacity.
type Add struct {
	Files []File
}

// Started claims an Idle item for an operation and hands it the
// operation's cancel handle.
type Started struct {
	Name   string
	Cancel context.CancelFunc
}

// UploadCompleted settles an upload attempt. A nil Err means success.
type UploadCompleted struct {
	Name    string
	Attempt int
	Message string
	Err     error
}

// Retry resets a settled item back into the upload pipeline.
type Retry struct {
	Name string
}

// Delete marks an item for deletion.
type Delete struct {
	Name string
}

// DeleteCompleted settles a delete attempt. A nil Err removes the item.
type DeleteCompleted struct {
	Name    string
	Attempt int
	Message string
	Err     error
}

func (Clear) event()           {}
func (SetCapacity) event()     {}
func (Add) event()             {}
func (Started) event()         {}
func (UploadCompleted) event() {}
func (Retry) event()           {}
func (Delete) event()          {}
func (DeleteCompleted) event() {}
