package uploader

import (
	"strings"
	"time"
)

// DefaultMaxFiles is the capacity used when Options.MaxFiles is unset.
const DefaultMaxFiles = 1

// Options configures a Coordinator.
type Options struct {
	// MaxFiles is the collection capacity (default: 1).
	MaxFiles int

	// FileTypes is the MIME allow-list. Empty allows everything.
	FileTypes []string

	// Description and InputName are passed through to presentation.
	Description string
	InputName   string

	// MaxConcurrent bounds simultaneous capability calls. 0 is unbounded.
	MaxConcurrent int

	// MaxWait is how long an operation waits for a slot (default: 30s).
	MaxWait time.Duration

	// OperationTimeout caps a single upload or delete. 0 disables it.
	OperationTimeout time.Duration
}

func (o Options) withDefaults() Options {
	if o.MaxFiles <= 0 {
		o.MaxFiles = DefaultMaxFiles
	}
	if o.MaxWait <= 0 {
		o.MaxWait = DefaultMaxWaitTime
	}
	types := make([]string, 0, len(o.FileTypes))
	for _, t := range o.FileTypes {
		if t = stripParams(t); t != "" {
			types = append(types, t)
		}
	}
	o.FileTypes = types
	return o
}

// Allows reports whether a MIME type passes the allow-list.
// Entries ending in "/*" match a whole top-level type.
func (o Options) Allows(contentType string) bool {
	if len(o.FileTypes) == 0 {
		return true
	}
	ct := stripParams(contentType)
	for _, t := range o.FileTypes {
		t = stripParams(t)
		if t == ct {
			return true
		}
		if prefix, ok := strings.CutSuffix(t, "/*"); ok && strings.HasPrefix(ct, prefix+"/") {
			return true
		}
	}
	return false
}

// Accept returns the allow-list formatted for an <input accept> attribute.
func (o Options) Accept() string {
	return strings.Join(o.FileTypes, ",")
}
