package services

import (
	"context"
	"errors"
	"fmt"

	cmap "github.com/orcaman/concurrent-map/v2"

	"desyn-backend/internal/metrics"
)

type projectSessions []*EditSession

// SessionHub tracks the open edit sessions of every project.
type SessionHub struct {
	sessions cmap.ConcurrentMap[string, projectSessions]
}

func NewSessionHub() *SessionHub {
	return &SessionHub{sessions: cmap.New[projectSessions]()}
}

func (h *SessionHub) Register(s *EditSession) {
	h.sessions.Upsert(s.ProjectID, projectSessions{s}, func(exist bool, valueInMap, newValue projectSessions) projectSessions {
		if exist {
			return append(append(projectSessions(nil), valueInMap...), s)
		}
		return newValue
	})
	metrics.ActiveSessions.Inc()
}

func (h *SessionHub) Unregister(s *EditSession) {
	removed := false
	h.sessions.Upsert(s.ProjectID, nil, func(exist bool, valueInMap, newValue projectSessions) projectSessions {
		if !exist {
			return newValue
		}
		for _, other := range valueInMap {
			if other == s {
				removed = true
				continue
			}
			newValue = append(newValue, other)
		}
		return newValue
	})
	h.sessions.RemoveCb(s.ProjectID, func(key string, v projectSessions, exists bool) bool {
		return exists && len(v) == 0
	})
	if removed {
		metrics.ActiveSessions.Dec()
	}
}

// Sessions returns the open sessions of a project.
func (h *SessionHub) Sessions(projectID string) []*EditSession {
	list, _ := h.sessions.Get(projectID)
	return append([]*EditSession(nil), list...)
}

// Broadcast sends msg to every session of the project except the one with exceptID.
func (h *SessionHub) Broadcast(projectID, exceptID string, msg Outbound) {
	for _, s := range h.Sessions(projectID) {
		if s.ID == exceptID {
			continue
		}
		s.send(msg)
	}
}

// DiscardFrame drops pending edits of a deleted frame in every session.
func (h *SessionHub) DiscardFrame(projectID, frameID string) {
	for _, s := range h.Sessions(projectID) {
		s.DiscardFrame(frameID)
	}
}

// FlushAll saves the pending edits of every open session. Used on shutdown,
// where hijacked WebSocket connections are not waited for.
func (h *SessionHub) FlushAll(ctx context.Context) error {
	var errs []error
	for item := range h.sessions.IterBuffered() {
		for _, s := range item.Val {
			if err := s.Flush(ctx); err != nil {
				errs = append(errs, fmt.Errorf("session %s: %w", s.ID, err))
			}
		}
	}
	return errors.Join(errs...)
}
