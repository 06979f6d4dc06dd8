package services_test

import (
	"context"
	"image/color"
	"testing"
	"time"

	"desyn-backend/internal/autosave"
	"desyn-backend/internal/services"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fastSession(e *env, hub *services.SessionHub, projectID, uid string) *services.EditSession {
	return services.NewEditSession(e.svc, hub, projectID, uid, services.SessionOptions{
		FrameDelay:   30 * time.Millisecond,
		ProjectDelay: 30 * time.Millisecond,
		SaveTimeout:  time.Second,
	})
}

func intp(n int) *int { return &n }

func next(t *testing.T, s *services.EditSession) services.Outbound {
	t.Helper()
	select {
	case msg := <-s.Outbound():
		return msg
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for session message")
		return services.Outbound{}
	}
}

func TestSession_CoalescesFrameEdits(t *testing.T) {
	ctx := context.Background()
	e := newEnv(t, nil)
	p, err := e.svc.Create(ctx, "owner", "Demo", 12, 4, 4)
	require.NoError(t, err)
	opened, err := e.svc.Open(ctx, p.ID, "owner")
	require.NoError(t, err)
	frameID := opened.Frames[0].ID

	s := fastSession(e, nil, p.ID, "owner")
	defer s.Close(ctx)

	before := e.db.Writes()
	var last string
	for _, c := range []color.NRGBA{{R: 255, A: 255}, {G: 255, A: 255}, {B: 255, A: 255}} {
		data := encoded(t, 4, 4, c)
		last = data
		s.Handle(ctx, services.Inbound{Type: services.MsgFrameEdit, FrameID: frameID, ImageData: &data})
	}

	msg := next(t, s)
	assert.Equal(t, services.MsgSaved, msg.Type)
	assert.Equal(t, "frame", msg.Unit)
	assert.Equal(t, frameID, msg.FrameID)

	assert.Equal(t, int64(1), e.db.Writes()-before)
	list, err := e.svc.ListFrames(ctx, p.ID, "owner")
	require.NoError(t, err)
	assert.Equal(t, last, *list[0].ImageData)
}

func TestSession_SaveNowAndPing(t *testing.T) {
	ctx := context.Background()
	e := newEnv(t, nil)
	p, err := e.svc.Create(ctx, "owner", "Demo", 12, 4, 4)
	require.NoError(t, err)

	s := services.NewEditSession(e.svc, nil, p.ID, "owner", services.SessionOptions{
		FrameDelay:   time.Hour,
		ProjectDelay: time.Hour,
	})
	defer s.Close(ctx)

	s.Handle(ctx, services.Inbound{Type: services.MsgPing, RequestID: "r1"})
	assert.Equal(t, services.Outbound{Type: services.MsgPong, RequestID: "r1"}, next(t, s))

	s.Handle(ctx, services.Inbound{Type: services.MsgMetaEdit, Fields: map[string]interface{}{"title": "Walk cycle"}})
	s.Handle(ctx, services.Inbound{Type: services.MsgMetaEdit, Fields: map[string]interface{}{"fps": float64(30)}})
	s.Handle(ctx, services.Inbound{Type: services.MsgSaveNow, RequestID: "r2"})

	saved := next(t, s)
	assert.Equal(t, services.MsgSaved, saved.Type)
	assert.Equal(t, "project", saved.Unit)
	assert.Equal(t, services.Outbound{Type: services.MsgSaved, RequestID: "r2"}, next(t, s))

	reloaded, err := e.svc.Open(ctx, p.ID, "owner")
	require.NoError(t, err)
	assert.Equal(t, "Walk cycle", reloaded.Project.Title)
	assert.Equal(t, 30, reloaded.Project.FPS)
}

func TestSession_SaveNowReturnsBlockingError(t *testing.T) {
	ctx := context.Background()
	e := newEnv(t, nil)
	p, err := e.svc.Create(ctx, "owner", "Demo", 12, 4, 4)
	require.NoError(t, err)

	s := services.NewEditSession(e.svc, nil, p.ID, "owner", services.SessionOptions{FrameDelay: time.Hour, ProjectDelay: time.Hour})
	defer s.Close(ctx)

	s.Handle(ctx, services.Inbound{Type: services.MsgMetaEdit, Fields: map[string]interface{}{"fps": float64(500)}})
	s.Handle(ctx, services.Inbound{Type: services.MsgSaveNow, RequestID: "r1"})

	msg := next(t, s)
	assert.Equal(t, services.MsgError, msg.Type)
	assert.Equal(t, "r1", msg.RequestID)
	assert.Contains(t, msg.Message, "fps")
}

func TestSession_AutosaveErrorIsNotice(t *testing.T) {
	ctx := context.Background()
	e := newEnv(t, nil)
	p, err := e.svc.Create(ctx, "owner", "Demo", 12, 4, 4)
	require.NoError(t, err)
	opened, err := e.svc.Open(ctx, p.ID, "owner")
	require.NoError(t, err)

	s := fastSession(e, nil, p.ID, "owner")
	defer s.Close(ctx)

	garbage := "data:image/png;base64,AAAA"
	s.Handle(ctx, services.Inbound{Type: services.MsgFrameEdit, FrameID: opened.Frames[0].ID, ImageData: &garbage})

	msg := next(t, s)
	assert.Equal(t, services.MsgSaveError, msg.Type)
	assert.Equal(t, opened.Frames[0].ID, msg.FrameID)
}

func TestSession_InvalidMessages(t *testing.T) {
	ctx := context.Background()
	e := newEnv(t, nil)
	s := services.NewEditSession(e.svc, nil, "p", "owner", services.SessionOptions{})
	defer s.Close(ctx)

	s.Handle(ctx, services.Inbound{Type: "dance"})
	assert.Equal(t, services.MsgError, next(t, s).Type)

	s.Handle(ctx, services.Inbound{Type: services.MsgFrameEdit})
	assert.Equal(t, services.MsgError, next(t, s).Type)
}

func TestSessionHub_BroadcastsFrameSaved(t *testing.T) {
	ctx := context.Background()
	e := newEnv(t, nil)
	p, err := e.svc.Create(ctx, "owner", "Demo", 12, 4, 4)
	require.NoError(t, err)
	_, err = e.svc.AddCollaborator(ctx, p.ID, "owner", "bob@example.com")
	require.NoError(t, err)
	opened, err := e.svc.Open(ctx, p.ID, "owner")
	require.NoError(t, err)

	hub := services.NewSessionHub()
	alice := fastSession(e, hub, p.ID, "owner")
	bob := fastSession(e, hub, p.ID, "bob")
	assert.Len(t, hub.Sessions(p.ID), 2)

	data := encoded(t, 4, 4, color.NRGBA{R: 10, A: 255})
	alice.Handle(ctx, services.Inbound{Type: services.MsgFrameEdit, FrameID: opened.Frames[0].ID, ImageData: &data})

	assert.Equal(t, services.MsgSaved, next(t, alice).Type)
	notice := next(t, bob)
	assert.Equal(t, services.MsgFrameSaved, notice.Type)
	assert.Equal(t, "owner", notice.UserID)

	require.NoError(t, alice.Close(ctx))
	require.NoError(t, bob.Close(ctx))
	assert.Empty(t, hub.Sessions(p.ID))
}

func TestSession_DiscardFrameAndFinalFlush(t *testing.T) {
	ctx := context.Background()
	e := newEnv(t, nil)
	p, err := e.svc.Create(ctx, "owner", "Demo", 12, 4, 4)
	require.NoError(t, err)
	opened, err := e.svc.Open(ctx, p.ID, "owner")
	require.NoError(t, err)
	extra, err := e.svc.AddFrame(ctx, p.ID, "owner")
	require.NoError(t, err)

	hub := services.NewSessionHub()
	s := services.NewEditSession(e.svc, hub, p.ID, "owner", services.SessionOptions{FrameDelay: time.Hour, ProjectDelay: time.Hour})

	kept := encoded(t, 4, 4, color.NRGBA{G: 200, A: 255})
	dropped := encoded(t, 4, 4, color.NRGBA{B: 200, A: 255})
	s.Handle(ctx, services.Inbound{Type: services.MsgFrameEdit, FrameID: opened.Frames[0].ID, ImageData: &kept})
	s.Handle(ctx, services.Inbound{Type: services.MsgFrameEdit, FrameID: extra.ID, FrameNumber: intp(1), ImageData: &dropped})

	_, err = e.svc.DeleteFrame(ctx, p.ID, "owner", extra.ID)
	require.NoError(t, err)
	hub.DiscardFrame(p.ID, extra.ID)

	require.NoError(t, s.Close(ctx))

	list, err := e.svc.ListFrames(ctx, p.ID, "owner")
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, kept, *list[0].ImageData)
}

func TestSession_DefaultDelays(t *testing.T) {
	assert.Equal(t, 2500*time.Millisecond, autosave.DefaultFrameDelay)
	assert.Equal(t, 10*time.Second, autosave.DefaultProjectDelay)
}

func TestSessionHub_FlushAll(t *testing.T) {
	ctx := context.Background()
	e := newEnv(t, nil)
	p, err := e.svc.Create(ctx, "owner", "Demo", 12, 4, 4)
	require.NoError(t, err)

	hub := services.NewSessionHub()
	s := services.NewEditSession(e.svc, hub, p.ID, "owner", services.SessionOptions{FrameDelay: time.Hour, ProjectDelay: time.Hour})
	defer s.Close(ctx)

	s.Handle(ctx, services.Inbound{Type: services.MsgMetaEdit, Fields: map[string]interface{}{"title": "Flushed"}})
	require.NoError(t, hub.FlushAll(ctx))

	reloaded, err := e.svc.Authorize(ctx, p.ID, "owner")
	require.NoError(t, err)
	assert.Equal(t, "Flushed", reloaded.Title)
}

func TestSession_MetaEditDoesNotReplaySavedFields(t *testing.T) {
	ctx := context.Background()
	e := newEnv(t, nil)
	p, err := e.svc.Create(ctx, "owner", "Demo", 12, 4, 4)
	require.NoError(t, err)

	s := services.NewEditSession(e.svc, nil, p.ID, "owner", services.SessionOptions{FrameDelay: time.Hour, ProjectDelay: time.Hour})
	defer s.Close(ctx)

	s.Handle(ctx, services.Inbound{Type: services.MsgMetaEdit, Fields: map[string]interface{}{"title": "A"}})
	require.NoError(t, s.Flush(ctx))

	// Another client renames the project in between.
	_, err = e.svc.UpdateMetadata(ctx, p.ID, "owner", map[string]interface{}{"title": "B"})
	require.NoError(t, err)

	s.Handle(ctx, services.Inbound{Type: services.MsgMetaEdit, Fields: map[string]interface{}{"fps": float64(12)}})
	require.NoError(t, s.Flush(ctx))

	reloaded, err := e.svc.Authorize(ctx, p.ID, "owner")
	require.NoError(t, err)
	assert.Equal(t, "B", reloaded.Title)
	assert.Equal(t, 12, reloaded.FPS)
}

func TestSession_RasterEditKeepsFramePosition(t *testing.T) {
	ctx := context.Background()
	e := newEnv(t, nil)
	p, err := e.svc.Create(ctx, "owner", "Demo", 12, 4, 4)
	require.NoError(t, err)
	opened, err := e.svc.Open(ctx, p.ID, "owner")
	require.NoError(t, err)
	second, err := e.svc.AddFrame(ctx, p.ID, "owner")
	require.NoError(t, err)

	s := services.NewEditSession(e.svc, nil, p.ID, "owner", services.SessionOptions{FrameDelay: time.Hour, ProjectDelay: time.Hour})
	defer s.Close(ctx)

	data := encoded(t, 4, 4, color.NRGBA{R: 90, A: 255})
	s.Handle(ctx, services.Inbound{Type: services.MsgFrameEdit, FrameID: second.ID, ImageData: &data})
	require.NoError(t, s.Flush(ctx))

	list, err := e.svc.ListFrames(ctx, p.ID, "owner")
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, []string{opened.Frames[0].ID, second.ID}, []string{list[0].ID, list[1].ID})
	assert.Equal(t, 1, list[1].FrameNumber)
	assert.Equal(t, data, *list[1].ImageData)

	s.Handle(ctx, services.Inbound{Type: services.MsgFrameEdit, FrameID: "ghost", FrameNumber: intp(1), ImageData: &data})
	assert.Error(t, s.Flush(ctx))

	list, err = e.svc.ListFrames(ctx, p.ID, "owner")
	require.NoError(t, err)
	assert.Len(t, list, 2)
}
