package autosave_test

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"desyn-backend/internal/autosave"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recorder struct {
	mu       sync.Mutex
	saved    []string
	fail     int // number of upcoming calls that fail
	delay    time.Duration
	inflight atomic.Int32
	peak     atomic.Int32
}

var errBoom = errors.New("store unavailable")

func (r *recorder) save(ctx context.Context, value string) error {
	n := r.inflight.Add(1)
	defer r.inflight.Add(-1)
	for {
		p := r.peak.Load()
		if n <= p || r.peak.CompareAndSwap(p, n) {
			break
		}
	}
	if r.delay > 0 {
		time.Sleep(r.delay)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if r.fail > 0 {
		r.fail--
		return errBoom
	}
	r.saved = append(r.saved, value)
	return nil
}

func (r *recorder) values() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.saved...)
}

func TestEdits_CoalesceIntoOneWrite(t *testing.T) {
	rec := &recorder{}
	u := autosave.New("frame-1", rec.save, autosave.Options{Kind: "frame", Delay: 30 * time.Millisecond})

	u.Edit("one")
	u.Edit("two")
	u.Edit("three")
	assert.Equal(t, autosave.Dirty, u.State())

	assert.Eventually(t, func() bool { return len(rec.values()) == 1 }, time.Second, 5*time.Millisecond)
	assert.Equal(t, []string{"three"}, rec.values())
	assert.Eventually(t, func() bool { return u.State() == autosave.Idle }, time.Second, 5*time.Millisecond)

	time.Sleep(60 * time.Millisecond)
	assert.Len(t, rec.values(), 1)
}

func TestEdits_NeverTwoConcurrentWrites(t *testing.T) {
	rec := &recorder{delay: 40 * time.Millisecond}
	u := autosave.New("frame-1", rec.save, autosave.Options{Delay: 5 * time.Millisecond})

	for i := 0; i < 10; i++ {
		u.Edit(string(rune('a' + i)))
		time.Sleep(10 * time.Millisecond)
	}

	require.NoError(t, u.Flush(context.Background()))
	assert.Equal(t, int32(1), rec.peak.Load())
	values := rec.values()
	require.NotEmpty(t, values)
	assert.Equal(t, "j", values[len(values)-1])
}

func TestEdit_DuringSaveIsSavedAfterward(t *testing.T) {
	rec := &recorder{delay: 50 * time.Millisecond}
	u := autosave.New("meta", rec.save, autosave.Options{Delay: 5 * time.Millisecond})

	u.Edit("first")
	assert.Eventually(t, func() bool { return u.State() == autosave.Saving }, time.Second, time.Millisecond)
	u.Edit("second")

	assert.Eventually(t, func() bool {
		v := rec.values()
		return len(v) == 2 && v[1] == "second"
	}, time.Second, 5*time.Millisecond)
	assert.Equal(t, []string{"first", "second"}, rec.values())
	assert.Eventually(t, func() bool { return u.State() == autosave.Idle }, time.Second, 5*time.Millisecond)
}

func TestFlush_BypassesDebounce(t *testing.T) {
	rec := &recorder{}
	u := autosave.New("frame-1", rec.save, autosave.Options{Delay: time.Hour})

	u.Edit("now")
	require.NoError(t, u.Flush(context.Background()))
	assert.Equal(t, []string{"now"}, rec.values())
	assert.Equal(t, autosave.Idle, u.State())

	require.NoError(t, u.Flush(context.Background()))
	assert.Len(t, rec.values(), 1)
}

func TestFlush_ReturnsErrorAndStaysDirty(t *testing.T) {
	rec := &recorder{fail: 1}
	u := autosave.New("frame-1", rec.save, autosave.Options{Delay: time.Hour})

	u.Edit("content")
	err := u.Flush(context.Background())
	assert.ErrorIs(t, err, errBoom)
	assert.Equal(t, autosave.Dirty, u.State())

	require.NoError(t, u.Flush(context.Background()))
	assert.Equal(t, []string{"content"}, rec.values())
}

func TestFailure_ReportedAndRetried(t *testing.T) {
	rec := &recorder{fail: 1}
	var reported atomic.Int32
	var savedKey atomic.Value
	u := autosave.New("frame-7", rec.save, autosave.Options{
		Delay:   10 * time.Millisecond,
		OnError: func(key string, err error) { reported.Add(1) },
		OnSaved: func(key string) { savedKey.Store(key) },
	})

	u.Edit("retry me")

	assert.Eventually(t, func() bool {
		return len(rec.values()) == 1 && savedKey.Load() != nil
	}, time.Second, 5*time.Millisecond)
	assert.Equal(t, int32(1), reported.Load())
	assert.Equal(t, "frame-7", savedKey.Load())
	assert.Equal(t, []string{"retry me"}, rec.values())
}

func TestClose_FlushesAndIgnoresLaterEdits(t *testing.T) {
	rec := &recorder{}
	u := autosave.New("frame-1", rec.save, autosave.Options{Delay: time.Hour})

	u.Edit("final")
	require.NoError(t, u.Close(context.Background()))
	u.Edit("ignored")

	assert.Equal(t, []string{"final"}, rec.values())
	assert.Equal(t, autosave.Idle, u.State())
}

func TestDiscard_DropsPendingEdit(t *testing.T) {
	rec := &recorder{}
	u := autosave.New("frame-1", rec.save, autosave.Options{Delay: 10 * time.Millisecond})

	u.Edit("gone")
	u.Discard()

	time.Sleep(40 * time.Millisecond)
	assert.Empty(t, rec.values())
}

func TestSaveTimeout(t *testing.T) {
	u := autosave.New("frame-1", func(ctx context.Context, value string) error {
		<-ctx.Done()
		return ctx.Err()
	}, autosave.Options{Delay: time.Hour, SaveTimeout: 10 * time.Millisecond})

	u.Edit("slow")
	assert.ErrorIs(t, u.Flush(context.Background()), context.DeadlineExceeded)
}

func TestAmend_SeesPendingOnlyUntilSaved(t *testing.T) {
	rec := &recorder{}
	u := autosave.New("meta", rec.save, autosave.Options{Delay: time.Hour})
	join := func(field string) func(string, bool) string {
		return func(current string, pending bool) string {
			if pending {
				return current + "," + field
			}
			return field
		}
	}

	u.Amend(join("title"))
	u.Amend(join("fps"))
	assert.Equal(t, "title,fps", u.Value())
	require.NoError(t, u.Flush(context.Background()))

	u.Amend(join("width"))
	assert.Equal(t, autosave.Dirty, u.State())
	require.NoError(t, u.Flush(context.Background()))
	assert.Equal(t, []string{"title,fps", "width"}, rec.values())
}
