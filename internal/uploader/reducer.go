package uploader

import "fmt"

// AddResult describes what happened to a batch of files offered to the
// collection.
type AddResult struct {
	Added            []string `json:"added"`
	Duplicates       []string `json:"duplicates,omitempty"`
	Disallowed       []string `json:"disallowed,omitempty"`
	CapacityExceeded bool     `json:"capacity_exceeded"`
}

// planAdd decides which files of a batch would be admitted.
// Duplicates of existing items, and later copies of a name within the
// batch, are filtered out. If what remains does not fit, nothing is admitted.
func planAdd(s State, files []File) (fresh []File, res AddResult) {
	seen := make(map[string]bool, len(s.Items)+len(files))
	for _, it := range s.Items {
		seen[it.Name] = true
	}

	for _, f := range files {
		if f == nil {
			continue
		}
		name := f.Name()
		if seen[name] {
			res.Duplicates = append(res.Duplicates, name)
			continue
		}
		seen[name] = true
		fresh = append(fresh, f)
	}

	if len(s.Items)+len(fresh) > s.Capacity {
		res.CapacityExceeded = true
		return nil, res
	}

	for _, f := range fresh {
		res.Added = append(res.Added, f.Name())
	}
	return fresh, res
}

// Apply returns the state that results from applying ev to s.
//
// Apply never mutates s.Items. When ev changes anything the returned state
// has a fresh slice; otherwise s is returned as is.
// Its only side effect is triggering cancel handles of items whose
// operation is abandoned (cleared, truncated, re-targeted or settled).
func Apply(s State, ev Event) State {
	switch ev := ev.(type) {
	case Clear:
		for i := range s.Items {
			if c := s.Items[i].cancel; c != nil {
				c()
			}
		}
		return State{Capacity: s.Capacity}

	case SetCapacity:
		n := max(ev.N, 0)
		next := State{Capacity: n}
		if len(s.Items) <= n {
			next.Items = cloneItems(s.Items)
			return next
		}
		for i := n; i < len(s.Items); i++ {
			if c := s.Items[i].cancel; c != nil {
				c()
			}
		}
		next.Items = cloneItems(s.Items[:n])
		return next

	case Add:
		fresh, _ := planAdd(s, ev.Files)
		if len(fresh) == 0 {
			return s
		}
		items := make([]Item, len(s.Items), len(s.Items)+len(fresh))
		copy(items, s.Items)
		for _, f := range fresh {
			items = append(items, Item{
				Name:   f.Name(),
				File:   f,
				Intent: IntentUpload,
				Phase:  PhaseIdle,
			})
		}
		return State{Capacity: s.Capacity, Items: items}

	case Started:
		i := s.Find(ev.Name)
		if i < 0 || s.Items[i].Phase != PhaseIdle {
			// Nobody owns the handle of a refused claim.
			if ev.Cancel != nil {
				ev.Cancel()
			}
			return s
		}
		return update(s, i, func(it *Item) {
			it.Phase = PhaseInFlight
			it.Attempt++
			it.cancel = ev.Cancel
		})

	case UploadCompleted:
		i := settling(s, ev.Name, ev.Attempt, IntentUpload)
		if i < 0 {
			return s
		}
		return update(s, i, func(it *Item) {
			it.release()
			it.Intent = IntentUpload
			it.Phase, it.Message = outcome(ev.Message, ev.Err)
		})

	case Retry:
		i := s.Find(ev.Name)
		if i < 0 || s.Items[i].Phase == PhaseInFlight {
			return s
		}
		return update(s, i, func(it *Item) {
			it.Intent = IntentUpload
			it.Phase = PhaseIdle
			it.Message = ""
		})

	case Delete:
		i := s.Find(ev.Name)
		if i < 0 {
			return s
		}
		if cur := s.Items[i]; cur.Intent == IntentDelete && cur.Phase == PhaseInFlight {
			return s
		}
		return update(s, i, func(it *Item) {
			it.release()
			it.Intent = IntentDelete
			it.Phase = PhaseIdle
			it.Message = ""
		})

	case DeleteCompleted:
		i := settling(s, ev.Name, ev.Attempt, IntentDelete)
		if i < 0 {
			return s
		}
		if ev.Err == nil {
			if c := s.Items[i].cancel; c != nil {
				c()
			}
			items := make([]Item, 0, len(s.Items)-1)
			items = append(items, s.Items[:i]...)
			items = append(items, s.Items[i+1:]...)
			return State{Capacity: s.Capacity, Items: items}
		}
		return update(s, i, func(it *Item) {
			it.release()
			it.Intent = IntentDelete
			it.Phase, it.Message = outcome(ev.Message, ev.Err)
		})

	default:
		panic(fmt.Sprintf("uploader: unknown event %T", ev))
	}
}

// settling returns the index of the item a completion applies to, or -1
// when the completion is stale.
func settling(s State, name string, attempt int, intent Intent) int {
	i := s.Find(name)
	if i < 0 {
		return -1
	}
	it := s.Items[i]
	if it.Phase != PhaseInFlight || it.Attempt != attempt || it.Intent != intent {
		return -1
	}
	return i
}

func outcome(message string, err error) (Phase, string) {
	if err == nil {
		return PhaseSucceeded, message
	}
	if message == "" {
		message = err.Error()
	}
	return PhaseFailed, message
}

// update copies the collection and applies fn to item i of the copy.
func update(s State, i int, fn func(*Item)) State {
	items := cloneItems(s.Items)
	fn(&items[i])
	return State{Capacity: s.Capacity, Items: items}
}

func cloneItems(items []Item) []Item {
	if len(items) == 0 {
		return nil
	}
	dup := make([]Item, len(items))
	copy(dup, items)
	return dup
}
