package uploader

import "context"

// Intent is the operation an item is currently associated with.
type Intent string

const (
	IntentUpload Intent = "upload"
	IntentDelete Intent = "delete"
)

// Phase is an item's lifecycle stage.
type Phase string

const (
	PhaseIdle      Phase = "idle"
	PhaseInFlight  Phase = "in_flight"
	PhaseSucceeded Phase = "succeeded"
	PhaseFailed    Phase = "failed"
)

// Settled reports whether the phase is terminal for the current operation.
func (p Phase) Settled() bool {
	return p == PhaseSucceeded || p == PhaseFailed
}

// Item is one tracked file.
type Item struct {
	Name    string // Identity, unique within the collection
	File    File
	Intent  Intent
	Phase   Phase
	Message string // Set only on completion
	Attempt int    // Incremented by every Started

	// cancel is non-nil only while Phase is PhaseInFlight.
	cancel context.CancelFunc
}

// release triggers and drops the item's cancel handle, if any.
func (it *Item) release() {
	if it.cancel != nil {
		it.cancel()
		it.cancel = nil
	}
}

// State is the full collection plus its capacity.
type State struct {
	Capacity int
	Items    []Item
}

// NewState returns an empty state with the given capacity.
func NewState(capacity int) State {
	if capacity < 0 {
		capacity = 0
	}
	return State{Capacity: capacity}
}

// Find returns the index of the item named name, or -1.
func (s State) Find(name string) int {
	for i := range s.Items {
		if s.Items[i].Name == name {
			return i
		}
	}
	return -1
}

// Get returns a copy of the named item.
func (s State) Get(name string) (Item, bool) {
	if i := s.Find(name); i >= 0 {
		return s.Items[i], true
	}
	return Item{}, false
}

// Full reports whether no more items can be admitted.
func (s State) Full() bool {
	return len(s.Items) >= s.Capacity
}

// View is the projection handed to presentation code.
type View struct {
	Name        string `json:"name"`
	DisplayName string `json:"display_name"`
	Intent      Intent `json:"intent"`
	Phase       Phase  `json:"phase"`
	Message     string `json:"message,omitempty"`
	Status      string `json:"status"`
	CanRetry    bool   `json:"can_retry"`
	CanDelete   bool   `json:"can_delete"`
}

// Project builds the view of a single item.
func Project(it Item) View {
	v := View{
		Name:        it.Name,
		DisplayName: it.Name,
		Intent:      it.Intent,
		Phase:       it.Phase,
		Message:     it.Message,
		CanRetry:    it.Phase == PhaseFailed && it.Intent == IntentUpload,
		CanDelete:   it.Phase.Settled(),
	}

	switch {
	case it.Message != "":
		v.Status = it.Message
	case it.Intent == IntentDelete:
		v.Status = "Deleting..."
	default:
		v.Status = "Uploading..."
	}
	return v
}

// Views projects every item in order.
func (s State) Views() []View {
	views := make([]View, len(s.Items))
	for i, it := range s.Items {
		views[i] = Project(it)
	}
	return views
}
