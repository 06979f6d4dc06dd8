// Package autosave debounces edits to an editable unit and persists them with
// at most one write in flight per unit.
package autosave

import (
	"context"
	"sync"
	"time"

	"desyn-backend/internal/metrics"
)

const (
	DefaultFrameDelay   = 2500 * time.Millisecond
	DefaultProjectDelay = 10 * time.Second
)

type State int

const (
	Idle State = iota
	Dirty
	Saving
)

func (s State) String() string {
	switch s {
	case Dirty:
		return "dirty"
	case Saving:
		return "saving"
	default:
		return "idle"
	}
}

// SaveFunc persists value. It is never called concurrently for the same unit.
type SaveFunc[T any] func(ctx context.Context, value T) error

type Options struct {
	// Kind labels the unit in metrics, e.g. "frame" or "project".
	Kind        string
	Delay       time.Duration
	SaveTimeout time.Duration
	// OnError receives failures of timer driven saves. Explicit flushes
	// return their error to the caller instead.
	OnError func(key string, err error)
	OnSaved func(key string)
}

// Unit tracks the latest edited value of one editable thing and writes it
// after Delay of inactivity.
type Unit[T any] struct {
	key  string
	save SaveFunc[T]
	opts Options

	mu      sync.Mutex
	value   T
	version uint64
	dirty   bool
	saving  bool
	rerun   bool
	closed  bool
	timer   *time.Timer
	armed   uint64        // generation of the current timer
	done    chan struct{} // closed when the in-flight save returns
}

func New[T any](key string, save SaveFunc[T], opts Options) *Unit[T] {
	if opts.Delay <= 0 {
		opts.Delay = DefaultFrameDelay
	}
	if opts.Kind == "" {
		opts.Kind = "unit"
	}
	return &Unit[T]{key: key, save: save, opts: opts}
}

func (u *Unit[T]) Key() string { return u.key }

// Edit records value as the latest content and restarts the debounce timer.
// An in-flight save is never cancelled; it keeps the value it started with.
func (u *Unit[T]) Edit(value T) {
	u.mu.Lock()
	defer u.mu.Unlock()
	if u.closed {
		return
	}
	u.value = value
	u.version++
	u.dirty = true
	u.arm()
}

// Amend derives the next value from the current one under the unit's lock
// and records it like Edit. pending reports whether the current value still
// awaits a successful save; once saved it should not be carried forward.
func (u *Unit[T]) Amend(fn func(current T, pending bool) T) {
	u.mu.Lock()
	defer u.mu.Unlock()
	if u.closed {
		return
	}
	u.value = fn(u.value, u.dirty)
	u.version++
	u.dirty = true
	u.arm()
}

func (u *Unit[T]) State() State {
	u.mu.Lock()
	defer u.mu.Unlock()
	switch {
	case u.saving:
		return Saving
	case u.dirty:
		return Dirty
	default:
		return Idle
	}
}

// Value returns the latest edited value.
func (u *Unit[T]) Value() T {
	u.mu.Lock()
	defer u.mu.Unlock()
	return u.value
}

// Flush saves the latest value now, waiting for any in-flight save first.
func (u *Unit[T]) Flush(ctx context.Context) error {
	u.mu.Lock()
	for u.saving {
		done := u.done
		u.mu.Unlock()
		select {
		case <-done:
		case <-ctx.Done():
			return ctx.Err()
		}
		u.mu.Lock()
	}
	if !u.dirty {
		u.mu.Unlock()
		return nil
	}
	u.stop()
	return u.drain(ctx)
}

// Close performs a final flush. Edits after Close are ignored.
func (u *Unit[T]) Close(ctx context.Context) error {
	u.mu.Lock()
	u.closed = true
	u.stop()
	u.mu.Unlock()
	return u.Flush(ctx)
}

// Discard drops pending changes without saving and closes the unit.
func (u *Unit[T]) Discard() {
	u.mu.Lock()
	defer u.mu.Unlock()
	u.closed = true
	u.dirty = false
	u.rerun = false
	u.stop()
}

func (u *Unit[T]) fire(gen uint64) {
	u.mu.Lock()
	if gen != u.armed {
		// superseded by a later arm or stop
		u.mu.Unlock()
		return
	}
	u.timer = nil
	if u.closed || !u.dirty {
		u.mu.Unlock()
		return
	}
	if u.saving {
		u.rerun = true
		u.mu.Unlock()
		metrics.AutosaveCoalesced.WithLabelValues(u.opts.Kind).Inc()
		return
	}
	if err := u.drain(context.Background()); err != nil && u.opts.OnError != nil {
		u.opts.OnError(u.key, err)
	}
}

// drain saves until no follow-up save is pending. It must be called with mu
// held and returns with mu released.
func (u *Unit[T]) drain(ctx context.Context) error {
	for {
		value, version := u.value, u.version
		done := make(chan struct{})
		u.saving = true
		u.rerun = false
		u.done = done
		u.mu.Unlock()

		err := u.persist(ctx, value)

		u.mu.Lock()
		u.saving = false
		u.done = nil
		close(done)
		if err != nil {
			if !u.closed {
				u.arm()
			}
			u.mu.Unlock()
			return err
		}
		if u.version == version {
			u.dirty = false
		}
		again := u.rerun && u.dirty
		u.rerun = false
		if !again {
			u.mu.Unlock()
			if u.opts.OnSaved != nil {
				u.opts.OnSaved(u.key)
			}
			return nil
		}
	}
}

func (u *Unit[T]) persist(ctx context.Context, value T) error {
	if u.opts.SaveTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, u.opts.SaveTimeout)
		defer cancel()
	}
	err := u.save(ctx, value)
	result := "ok"
	if err != nil {
		result = "error"
	}
	metrics.AutosaveWrites.WithLabelValues(u.opts.Kind, result).Inc()
	return err
}

func (u *Unit[T]) arm() {
	u.stop()
	gen := u.armed
	u.timer = time.AfterFunc(u.opts.Delay, func() { u.fire(gen) })
}

func (u *Unit[T]) stop() {
	u.armed++
	if u.timer != nil {
		u.timer.Stop()
		u.timer = nil
	}
}
