package uploader

// errors.go defines the package's sentinel errors and the mapping from
// technical errors to user-facing messages.
//
// Error codes are grouped by category:
//
//	UPL001 - Item not found: no file with that name is tracked
//	UPL002 - Item busy: an operation for the file is still running
//	UPL003 - Uploader closed: the widget was torn down
//	UPL004 - System busy: too many operations in progress
//	UPL005 - Capacity exceeded: the batch does not fit
//	UPL006 - Operation cancelled
//	UPL007 - Operation timed out
//	FILE001 - File too large
//	FILE002 - No file provided
//	FILE003 - File type not allowed
//	STO001 - Storage unavailable
//	STO002 - Unknown storage backend
//	RATE001 - Rate limited
//	ERR000 - Fallback when nothing matches; check the logs for the cause.
//
// Sentinel errors are matched with errors.Is first, then the remaining
// patterns are matched case-insensitively against the error text. The
// first match wins.

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrItemNotFound is returned by intents naming an untracked file.
	ErrItemNotFound = errors.New("item not found")

	// ErrItemBusy is returned when retrying a file whose operation is running.
	ErrItemBusy = errors.New("item has an operation in flight")

	// ErrClosed is returned by intents issued after Close.
	ErrClosed = errors.New("uploader closed")

	// ErrTooManyOperations is recorded on an item whose operation could not
	// get a slot within the configured wait.
	ErrTooManyOperations = errors.New("too many concurrent operations, please try again later")

	// ErrCapacityExceeded reports a rejected Add batch.
	ErrCapacityExceeded = errors.New("capacity exceeded")

	errIsDirectory = errors.New("is a directory")
)

// UserMessage provides user-friendly error information with actionable guidance.
type UserMessage struct {
	Message string // What happened (user-friendly)
	Action  string // What to do about it
	Code    string // Error code for support reference
}

type sentinelMessage struct {
	target error
	msg    UserMessage
}

var sentinelMessages = []sentinelMessage{
	{ErrItemNotFound, UserMessage{"File not found", "Refresh the list and try again", "UPL001"}},
	{ErrItemBusy, UserMessage{"This file is still being processed", "Wait for the current operation to finish", "UPL002"}},
	{ErrClosed, UserMessage{"This upload session has ended", "Start a new session", "UPL003"}},
	{ErrTooManyOperations, UserMessage{"Too many uploads in progress", "Please wait a moment and try again", "UPL004"}},
	{ErrCapacityExceeded, UserMessage{"Too many files selected", "Remove some files or select fewer", "UPL005"}},
	{context.Canceled, UserMessage{"Operation was cancelled", "Retry the file when ready", "UPL006"}},
	{context.DeadlineExceeded, UserMessage{"Operation timed out", "Try a smaller file or try again later", "UPL007"}},
}

type errorPattern struct {
	pattern string
	msg     UserMessage
}

// errorPatterns maps technical error text (lowercase) to user messages.
// Specific patterns must come before general ones.
var errorPatterns = []errorPattern{
	{"file too large", UserMessage{"File exceeds maximum size limit", "Select a smaller file", "FILE001"}},
	{"request body too large", UserMessage{"File exceeds maximum size limit", "Select a smaller file", "FILE001"}},
	{"no file provided", UserMessage{"No file was selected", "Please select a file to upload", "FILE002"}},
	{"file type not allowed", UserMessage{"This file type is not accepted", "Check the list of allowed types", "FILE003"}},
	{"connection refused", UserMessage{"Storage is unavailable", "Please try again in a few moments", "STO001"}},
	{"no such host", UserMessage{"Storage is unavailable", "Please try again in a few moments", "STO001"}},
	{"unknown storage backend", UserMessage{"Storage is not configured", "Contact your administrator", "STO002"}},
	{"timeout", UserMessage{"Operation timed out", "Try a smaller file or try again later", "UPL007"}},
	{"rate limit", UserMessage{"Too many requests", "Please wait a moment before trying again", "RATE001"}},
}

var defaultMessage = UserMessage{
	Message: "An unexpected error occurred",
	Action:  "Please try again or contact support",
	Code:    "ERR000",
}

// MapError converts a technical error to a user-friendly message.
// Returns an empty UserMessage for a nil error.
func MapError(err error) UserMessage {
	if err == nil {
		return UserMessage{}
	}

	for _, sm := range sentinelMessages {
		if errors.Is(err, sm.target) {
			return sm.msg
		}
	}

	errStr := strings.ToLower(err.Error())
	for _, ep := range errorPatterns {
		if strings.Contains(errStr, ep.pattern) {
			return ep.msg
		}
	}

	return defaultMessage
}

// FormatUserError returns a single-line user message with its code.
func FormatUserError(err error) string {
	msg := MapError(err)
	if msg.Message == "" {
		return ""
	}
	return fmt.Sprintf("%s (Code: %s). %s", msg.Message, msg.Code, msg.Action)
}

// IsUserFacing reports whether err maps to a specific message rather
// than the generic fallback.
func IsUserFacing(err error) bool {
	if err == nil {
		return false
	}
	return MapError(err).Code != defaultMessage.Code
}
