package autosave

import (
	"context"
	"errors"
	"fmt"
	"sync"
)

// GroupSaveFunc persists the value of the unit identified by key.
type GroupSaveFunc[T any] func(ctx context.Context, key string, value T) error

// Group holds one Unit per key, all sharing the same save function and options.
type Group[T any] struct {
	save GroupSaveFunc[T]
	opts Options

	mu     sync.Mutex
	units  map[string]*Unit[T]
	closed bool
}

func NewGroup[T any](save GroupSaveFunc[T], opts Options) *Group[T] {
	return &Group[T]{
		save:  save,
		opts:  opts,
		units: make(map[string]*Unit[T]),
	}
}

// Unit returns the unit for key, creating it on first use. It returns nil
// once the group is closed.
func (g *Group[T]) Unit(key string) *Unit[T] {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.closed {
		return nil
	}
	u, ok := g.units[key]
	if !ok {
		u = New(key, func(ctx context.Context, value T) error {
			return g.save(ctx, key, value)
		}, g.opts)
		g.units[key] = u
	}
	return u
}

func (g *Group[T]) Edit(key string, value T) {
	if u := g.Unit(key); u != nil {
		u.Edit(value)
	}
}

func (g *Group[T]) State(key string) State {
	g.mu.Lock()
	u, ok := g.units[key]
	g.mu.Unlock()
	if !ok {
		return Idle
	}
	return u.State()
}

func (g *Group[T]) Flush(ctx context.Context, key string) error {
	g.mu.Lock()
	u, ok := g.units[key]
	g.mu.Unlock()
	if !ok {
		return nil
	}
	return u.Flush(ctx)
}

// Discard drops the unit for key along with any unsaved edits.
func (g *Group[T]) Discard(key string) {
	g.mu.Lock()
	u, ok := g.units[key]
	delete(g.units, key)
	g.mu.Unlock()
	if ok {
		u.Discard()
	}
}

// FlushAll flushes every unit and joins the errors.
func (g *Group[T]) FlushAll(ctx context.Context) error {
	var errs []error
	for _, u := range g.snapshot() {
		if err := u.Flush(ctx); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", u.Key(), err))
		}
	}
	return errors.Join(errs...)
}

// CloseAll closes the group and makes a final flush of every unit.
func (g *Group[T]) CloseAll(ctx context.Context) error {
	g.mu.Lock()
	g.closed = true
	g.mu.Unlock()

	var errs []error
	for _, u := range g.snapshot() {
		if err := u.Close(ctx); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", u.Key(), err))
		}
	}
	return errors.Join(errs...)
}

func (g *Group[T]) snapshot() []*Unit[T] {
	g.mu.Lock()
	defer g.mu.Unlock()
	units := make([]*Unit[T], 0, len(g.units))
	for _, u := range g.units {
		units = append(units, u)
	}
	return units
}
