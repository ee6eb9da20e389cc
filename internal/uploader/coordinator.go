package uploader

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"
)

// Coordinator owns one widget's item collection. It turns user intents into
// events, launches the injected capability for every Idle item and feeds
// each settlement back as a completion event.
//
// Every state change goes through a single mutex-serialized dispatch point,
// so transitions never run concurrently. Operations run in their own
// goroutines and re-enter only through that dispatch point.
type Coordinator struct {
	opts    Options
	upload  Uploader
	remove  Deleter
	limiter *Limiter
	logger  *slog.Logger

	base       context.Context
	cancelBase context.CancelFunc
	ops        sync.WaitGroup

	mu      sync.Mutex
	state   State
	closed  bool
	subs    map[int]chan []View
	nextSub int
}

// operation is one claimed unit of work.
type operation struct {
	ctx     context.Context
	name    string
	attempt int
	intent  Intent
	file    File
}

// New creates a Coordinator. A nil up or del falls back to a capability
// that always succeeds without transferring anything.
func New(opts Options, up Uploader, del Deleter) *Coordinator {
	opts = opts.withDefaults()
	if up == nil {
		up = defaultUpload
	}
	if del == nil {
		del = defaultDelete
	}

	base, cancel := context.WithCancel(context.Background())
	return &Coordinator{
		opts:       opts,
		upload:     up,
		remove:     del,
		limiter:    NewLimiter(opts.MaxConcurrent, opts.MaxWait),
		logger:     slog.Default().With("component", "uploader"),
		base:       base,
		cancelBase: cancel,
		state:      NewState(opts.MaxFiles),
		subs:       make(map[int]chan []View),
	}
}

// WithLogger replaces the coordinator's logger. Call before first use.
func (c *Coordinator) WithLogger(l *slog.Logger) *Coordinator {
	if l != nil {
		c.logger = l
	}
	return c
}

// Options returns the effective options.
func (c *Coordinator) Options() Options {
	return c.opts
}

// AddFiles offers a batch of files. Files whose MIME type is not allowed
// are dropped before the batch reaches the collection. A batch that does not
// fit is rejected wholesale; that is reported in the result, not as an error.
func (c *Coordinator) AddFiles(files ...File) (AddResult, error) {
	allowed := make([]File, 0, len(files))
	var disallowed []string
	for _, f := range files {
		if f == nil {
			continue
		}
		if !c.opts.Allows(f.ContentType()) {
			disallowed = append(disallowed, f.Name())
			continue
		}
		allowed = append(allowed, f)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return AddResult{Disallowed: disallowed}, ErrClosed
	}

	_, res := planAdd(c.state, allowed)
	res.Disallowed = disallowed
	if res.CapacityExceeded {
		c.logger.Info("batch rejected", "files", len(allowed), "items", len(c.state.Items), "capacity", c.state.Capacity)
	}
	c.applyLocked(Add{Files: allowed})
	return res, nil
}

// DeleteFile marks a file for deletion. An in-flight upload of the file is
// cancelled and its eventual result discarded.
func (c *Coordinator) DeleteFile(name string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return ErrClosed
	}
	if c.state.Find(name) < 0 {
		return fmt.Errorf("delete %q: %w", name, ErrItemNotFound)
	}
	c.applyLocked(Delete{Name: name})
	return nil
}

// RetryFile puts a settled file back into the upload pipeline.
func (c *Coordinator) RetryFile(name string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return ErrClosed
	}
	it, ok := c.state.Get(name)
	if !ok {
		return fmt.Errorf("retry %q: %w", name, ErrItemNotFound)
	}
	if it.Phase == PhaseInFlight {
		return fmt.Errorf("retry %q: %w", name, ErrItemBusy)
	}
	c.applyLocked(Retry{Name: name})
	return nil
}

// SetCapacity changes the maximum file count. Items beyond the new limit
// are dropped and their operations cancelled.
func (c *Coordinator) SetCapacity(n int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.applyLocked(SetCapacity{N: n})
}

// Clear drops every item and cancels every in-flight operation.
func (c *Coordinator) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.applyLocked(Clear{})
}

// Items returns the current view projections in order.
func (c *Coordinator) Items() []View {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state.Views()
}

// State returns a copy of the current state.
func (c *Coordinator) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return State{Capacity: c.state.Capacity, Items: cloneItems(c.state.Items)}
}

// Status summarizes the collection for monitoring.
type Status struct {
	Items    int           `json:"items"`
	Capacity int           `json:"capacity"`
	InFlight int           `json:"in_flight"`
	Failed   int           `json:"failed"`
	Limiter  LimiterStatus `json:"limiter"`
	Closed   bool          `json:"closed"`
}

// Status returns counts for the current state.
func (c *Coordinator) Status() Status {
	c.mu.Lock()
	defer c.mu.Unlock()

	st := Status{
		Items:    len(c.state.Items),
		Capacity: c.state.Capacity,
		Limiter:  c.limiter.Status(),
		Closed:   c.closed,
	}
	for _, it := range c.state.Items {
		switch it.Phase {
		case PhaseInFlight:
			st.InFlight++
		case PhaseFailed:
			st.Failed++
		}
	}
	return st
}

// Subscribe returns a channel receiving a snapshot after every transition,
// starting with the current one. Slow readers skip intermediate snapshots
// but always receive the latest. Call the returned func to unsubscribe.
func (c *Coordinator) Subscribe() (<-chan []View, func()) {
	c.mu.Lock()
	defer c.mu.Unlock()

	ch := make(chan []View, 1)
	if c.closed {
		close(ch)
		return ch, func() {}
	}

	id := c.nextSub
	c.nextSub++
	c.subs[id] = ch
	ch <- c.state.Views()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			c.mu.Lock()
			defer c.mu.Unlock()
			if sub, ok := c.subs[id]; ok {
				delete(c.subs, id)
				close(sub)
			}
		})
	}
}

// Close tears the coordinator down: every item is cleared, every in-flight
// operation cancelled, subscribers are closed and further intents fail with
// ErrClosed. It waits for operation goroutines to return or ctx to end.
func (c *Coordinator) Close(ctx context.Context) error {
	c.mu.Lock()
	if !c.closed {
		c.applyLocked(Clear{})
		c.closed = true
		for id, ch := range c.subs {
			delete(c.subs, id)
			close(ch)
		}
	}
	c.mu.Unlock()

	c.cancelBase()

	done := make(chan struct{})
	go func() {
		c.ops.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("waiting for operations: %w", ctx.Err())
	}
}

// dispatch applies a completion event coming from an operation goroutine.
func (c *Coordinator) dispatch(ev Event) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.applyLocked(ev)
}

// applyLocked runs the reducer, claims every Idle item and publishes the
// resulting snapshot. c.mu must be held.
func (c *Coordinator) applyLocked(ev Event) {
	c.state = Apply(c.state, ev)

	if !c.closed {
		for _, op := range c.claimLocked() {
			c.ops.Add(1)
			go c.run(op)
		}
	}

	c.publishLocked()
}

// claimLocked dispatches Started for every Idle item so that no item is
// launched twice, and returns the claimed operations.
func (c *Coordinator) claimLocked() []operation {
	var ops []operation
	for _, it := range c.state.Items {
		if it.Phase != PhaseIdle {
			continue
		}

		var (
			ctx    context.Context
			cancel context.CancelFunc
		)
		if c.opts.OperationTimeout > 0 {
			ctx, cancel = context.WithTimeout(c.base, c.opts.OperationTimeout)
		} else {
			ctx, cancel = context.WithCancel(c.base)
		}

		c.state = Apply(c.state, Started{Name: it.Name, Cancel: cancel})
		claimed, _ := c.state.Get(it.Name)
		ops = append(ops, operation{
			ctx:     ctx,
			name:    claimed.Name,
			attempt: claimed.Attempt,
			intent:  claimed.Intent,
			file:    claimed.File,
		})
	}
	return ops
}

// run executes one operation and dispatches its settlement.
func (c *Coordinator) run(op operation) {
	defer c.ops.Done()

	logger := c.logger.With("file", op.name, "intent", string(op.intent), "attempt", op.attempt)
	start := time.Now()

	if err := c.limiter.Acquire(op.ctx); err != nil {
		logger.Warn("operation not started", "error", err)
		c.dispatch(completion(op, "", err))
		return
	}
	defer c.limiter.Release()

	logger.Debug("operation started")

	var (
		msg string
		err error
	)
	switch op.intent {
	case IntentDelete:
		err = callDelete(op.ctx, c.remove, op.file)
	default:
		msg, err = callUpload(op.ctx, c.upload, op.file)
	}

	if err != nil {
		logger.Warn("operation failed", "error", err, "duration_ms", time.Since(start).Milliseconds())
	} else {
		logger.Debug("operation succeeded", "duration_ms", time.Since(start).Milliseconds())
	}
	c.dispatch(completion(op, msg, err))
}

func completion(op operation, msg string, err error) Event {
	if op.intent == IntentDelete {
		return DeleteCompleted{Name: op.name, Attempt: op.attempt, Message: msg, Err: err}
	}
	return UploadCompleted{Name: op.name, Attempt: op.attempt, Message: msg, Err: err}
}

// publishLocked hands the current snapshot to every subscriber without
// blocking. c.mu must be held, which makes this the only sender.
func (c *Coordinator) publishLocked() {
	if len(c.subs) == 0 {
		return
	}
	views := c.state.Views()
	for _, ch := range c.subs {
		select {
		case ch <- views:
		default:
			// Replace the unread snapshot with the newer one.
			select {
			case <-ch:
			default:
			}
			ch <- views
		}
	}
}
