package services

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"

	"desyn-backend/internal/apperrors"
	"desyn-backend/internal/autosave"
	"desyn-backend/internal/logger"
	"desyn-backend/internal/models"
)

// Inbound message types.
const (
	MsgFrameEdit  = "frame_edit"
	MsgLayersEdit = "layers_edit"
	MsgMetaEdit   = "meta_edit"
	MsgSaveNow    = "save_now"
	MsgPing       = "ping"
)

// Outbound message types.
const (
	MsgSaved      = "saved"
	MsgSaveError  = "save_error"
	MsgPong       = "pong"
	MsgError      = "error"
	MsgFrameSaved = "frame_saved"
)

const metaUnit = "meta"

type Inbound struct {
	Type        string                 `json:"type"`
	RequestID   string                 `json:"request_id,omitempty"`
	FrameID     string                 `json:"frame_id,omitempty"`
	FrameNumber *int                   `json:"frame_number,omitempty"`
	ImageData   *string                `json:"image_data,omitempty"`
	Layers      []models.Layer         `json:"layers,omitempty"`
	Fields      map[string]interface{} `json:"fields,omitempty"`
}

type Outbound struct {
	Type      string `json:"type"`
	RequestID string `json:"request_id,omitempty"`
	Unit      string `json:"unit,omitempty"`
	FrameID   string `json:"frame_id,omitempty"`
	UserID    string `json:"user_id,omitempty"`
	Message   string `json:"message,omitempty"`
}

type SessionOptions struct {
	FrameDelay   time.Duration
	ProjectDelay time.Duration
	SaveTimeout  time.Duration
	// Buffer is the capacity of the outbound queue.
	Buffer int
}

// frameEdit is a pending raster save. expectNumber, when set, is the position
// the client believes the frame holds.
type frameEdit struct {
	frame        models.Frame
	expectNumber *int
}

type layersEdit struct {
	frameID string
	layers  []models.Layer
}

// EditSession is one client's live editing connection to a project. Edits are
// autosaved per frame and for the metadata; explicit saves flush everything.
type EditSession struct {
	ID        string
	ProjectID string
	UserID    string

	svc    *ProjectService
	hub    *SessionHub
	frames *autosave.Group[frameEdit]
	layers *autosave.Group[layersEdit]
	meta   *autosave.Unit[map[string]interface{}]

	mu     sync.Mutex
	out    chan Outbound
	closed bool
}

func NewEditSession(svc *ProjectService, hub *SessionHub, projectID, userID string, opts SessionOptions) *EditSession {
	if opts.FrameDelay <= 0 {
		opts.FrameDelay = autosave.DefaultFrameDelay
	}
	if opts.ProjectDelay <= 0 {
		opts.ProjectDelay = autosave.DefaultProjectDelay
	}
	if opts.Buffer <= 0 {
		opts.Buffer = 64
	}

	s := &EditSession{
		ID:        uuid.NewString(),
		ProjectID: projectID,
		UserID:    userID,
		svc:       svc,
		hub:       hub,
		out:       make(chan Outbound, opts.Buffer),
	}

	s.frames = autosave.NewGroup(s.saveFrame, autosave.Options{
		Kind:        "frame",
		Delay:       opts.FrameDelay,
		SaveTimeout: opts.SaveTimeout,
		OnError:     s.reportError("frame"),
		OnSaved:     s.reportSaved("frame"),
	})
	s.layers = autosave.NewGroup(s.saveLayers, autosave.Options{
		Kind:        "layers",
		Delay:       opts.FrameDelay,
		SaveTimeout: opts.SaveTimeout,
		OnError:     s.reportError("layers"),
		OnSaved:     s.reportSaved("layers"),
	})
	s.meta = autosave.New(metaUnit, s.saveMeta, autosave.Options{
		Kind:        "project",
		Delay:       opts.ProjectDelay,
		SaveTimeout: opts.SaveTimeout,
		OnError:     s.reportError("project"),
		OnSaved:     s.reportSaved("project"),
	})

	if hub != nil {
		hub.Register(s)
	}
	return s
}

// Outbound delivers the messages for the client. It is closed by Close.
func (s *EditSession) Outbound() <-chan Outbound {
	return s.out
}

// Handle processes one client message. Errors are reported to the client.
func (s *EditSession) Handle(ctx context.Context, msg Inbound) {
	switch msg.Type {
	case MsgFrameEdit:
		if msg.FrameID == "" {
			s.replyError(msg.RequestID, apperrors.Invalid("frame_id", "is required"))
			return
		}
		if msg.FrameNumber != nil && *msg.FrameNumber < 0 {
			s.replyError(msg.RequestID, apperrors.Invalid("frame_number", "must not be negative"))
			return
		}
		s.frames.Edit(msg.FrameID, frameEdit{
			frame: models.Frame{
				ID:        msg.FrameID,
				ProjectID: s.ProjectID,
				ImageData: msg.ImageData,
			},
			expectNumber: msg.FrameNumber,
		})
	case MsgLayersEdit:
		if msg.FrameID == "" {
			s.replyError(msg.RequestID, apperrors.Invalid("frame_id", "is required"))
			return
		}
		s.layers.Edit(msg.FrameID, layersEdit{frameID: msg.FrameID, layers: msg.Layers})
	case MsgMetaEdit:
		if len(msg.Fields) == 0 {
			s.replyError(msg.RequestID, apperrors.Invalid("fields", "must not be empty"))
			return
		}
		// Only fields not yet saved are carried into the next write, so a
		// later write never replays values other clients may have changed.
		s.meta.Amend(func(current map[string]interface{}, pending bool) map[string]interface{} {
			next := make(map[string]interface{}, len(msg.Fields))
			if pending {
				for k, v := range current {
					next[k] = v
				}
			}
			for k, v := range msg.Fields {
				next[k] = v
			}
			return next
		})
	case MsgSaveNow:
		if err := s.Flush(ctx); err != nil {
			s.replyError(msg.RequestID, err)
			return
		}
		s.send(Outbound{Type: MsgSaved, RequestID: msg.RequestID})
	case MsgPing:
		s.send(Outbound{Type: MsgPong, RequestID: msg.RequestID})
	default:
		s.replyError(msg.RequestID, apperrors.Invalid("type", "unknown message type %q", msg.Type))
	}
}

// Flush saves every pending edit now and returns the joined errors.
func (s *EditSession) Flush(ctx context.Context) error {
	return errors.Join(
		s.frames.FlushAll(ctx),
		s.layers.FlushAll(ctx),
		s.meta.Flush(ctx),
	)
}

// DiscardFrame drops unsaved edits of a frame that no longer exists.
func (s *EditSession) DiscardFrame(frameID string) {
	s.frames.Discard(frameID)
	s.layers.Discard(frameID)
}

// Close makes a best-effort final save, unregisters the session and closes
// the outbound channel.
func (s *EditSession) Close(ctx context.Context) error {
	err := errors.Join(
		s.frames.CloseAll(ctx),
		s.layers.CloseAll(ctx),
		s.meta.Close(ctx),
	)
	if err != nil {
		logger.Warn("final save failed", "session_id", s.ID, "project_id", s.ProjectID, "error", err)
	}
	if s.hub != nil {
		s.hub.Unregister(s)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.closed {
		s.closed = true
		close(s.out)
	}
	return err
}

func (s *EditSession) saveFrame(ctx context.Context, frameID string, e frameEdit) error {
	_, err := s.svc.SaveFrame(ctx, s.ProjectID, s.UserID, e.frame, e.expectNumber)
	return err
}

func (s *EditSession) saveLayers(ctx context.Context, frameID string, e layersEdit) error {
	_, err := s.svc.SaveLayers(ctx, s.ProjectID, s.UserID, e.frameID, e.layers)
	return err
}

func (s *EditSession) saveMeta(ctx context.Context, fields map[string]interface{}) error {
	_, err := s.svc.UpdateMetadata(ctx, s.ProjectID, s.UserID, fields)
	return err
}

func (s *EditSession) reportError(unit string) func(string, error) {
	return func(key string, err error) {
		logger.Warn("autosave failed", "session_id", s.ID, "unit", unit, "key", key, "error", err)
		out := Outbound{Type: MsgSaveError, Unit: unit, Message: err.Error()}
		if unit != "project" {
			out.FrameID = key
		}
		s.send(out)
	}
}

func (s *EditSession) reportSaved(unit string) func(string) {
	return func(key string) {
		out := Outbound{Type: MsgSaved, Unit: unit}
		if unit != "project" {
			out.FrameID = key
		}
		s.send(out)
		if unit == "frame" && s.hub != nil {
			s.hub.Broadcast(s.ProjectID, s.ID, Outbound{Type: MsgFrameSaved, FrameID: key, UserID: s.UserID})
		}
	}
}

func (s *EditSession) replyError(requestID string, err error) {
	s.send(Outbound{Type: MsgError, RequestID: requestID, Message: err.Error()})
}

// send queues msg for the client, dropping it when the queue is full.
func (s *EditSession) send(msg Outbound) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return false
	}
	select {
	case s.out <- msg:
		return true
	default:
		logger.Warn("dropping outbound message", "session_id", s.ID, "type", msg.Type)
		return false
	}
}
