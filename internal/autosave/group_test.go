package autosave_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"desyn-backend/internal/autosave"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type keyed struct {
	mu    sync.Mutex
	saved map[string]string
	fail  map[string]bool
}

func (k *keyed) save(ctx context.Context, key string, value string) error {
	k.mu.Lock()
	defer k.mu.Unlock()
	if k.fail[key] {
		return errors.New("write rejected")
	}
	k.saved[key] = value
	return nil
}

func (k *keyed) get(key string) (string, bool) {
	k.mu.Lock()
	defer k.mu.Unlock()
	v, ok := k.saved[key]
	return v, ok
}

func TestGroup_UnitsAreIndependent(t *testing.T) {
	store := &keyed{saved: map[string]string{}}
	g := autosave.NewGroup(store.save, autosave.Options{Kind: "frame", Delay: time.Hour})

	g.Edit("a", "alpha")
	g.Edit("b", "beta")
	assert.Same(t, g.Unit("a"), g.Unit("a"))
	assert.Equal(t, autosave.Dirty, g.State("a"))
	assert.Equal(t, autosave.Idle, g.State("unknown"))

	require.NoError(t, g.Flush(context.Background(), "a"))
	v, ok := store.get("a")
	assert.True(t, ok)
	assert.Equal(t, "alpha", v)
	_, ok = store.get("b")
	assert.False(t, ok)

	require.NoError(t, g.FlushAll(context.Background()))
	v, _ = store.get("b")
	assert.Equal(t, "beta", v)
}

func TestGroup_FlushAllJoinsErrors(t *testing.T) {
	store := &keyed{saved: map[string]string{}, fail: map[string]bool{"bad": true}}
	g := autosave.NewGroup(store.save, autosave.Options{Delay: time.Hour})

	g.Edit("good", "ok")
	g.Edit("bad", "nope")

	err := g.FlushAll(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "bad")
	v, _ := store.get("good")
	assert.Equal(t, "ok", v)
	assert.Equal(t, autosave.Dirty, g.State("bad"))
}

func TestGroup_CloseAllFlushesAndRejectsNewUnits(t *testing.T) {
	store := &keyed{saved: map[string]string{}}
	g := autosave.NewGroup(store.save, autosave.Options{Delay: time.Hour})

	g.Edit("a", "last")
	require.NoError(t, g.CloseAll(context.Background()))

	v, _ := store.get("a")
	assert.Equal(t, "last", v)
	assert.Nil(t, g.Unit("new"))
	g.Edit("new", "dropped")
	_, ok := store.get("new")
	assert.False(t, ok)
}

func TestGroup_Discard(t *testing.T) {
	store := &keyed{saved: map[string]string{}}
	g := autosave.NewGroup(store.save, autosave.Options{Delay: time.Hour})

	g.Edit("deleted", "content")
	g.Discard("deleted")
	require.NoError(t, g.FlushAll(context.Background()))

	_, ok := store.get("deleted")
	assert.False(t, ok)
}
