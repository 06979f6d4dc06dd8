package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"desyn-backend/internal/logger"
	"desyn-backend/internal/services"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = pongWait * 9 / 10
	maxMessageSize = 16 << 20
)

type SessionHandler struct {
	svc      *services.ProjectService
	hub      *services.SessionHub
	opts     services.SessionOptions
	upgrader websocket.Upgrader
}

// NewSessionHandler accepts upgrades from the given origins; "*" allows any.
func NewSessionHandler(svc *services.ProjectService, hub *services.SessionHub, opts services.SessionOptions, origins []string) *SessionHandler {
	h := &SessionHandler{svc: svc, hub: hub, opts: opts}
	h.upgrader = websocket.Upgrader{
		ReadBufferSize:  4096,
		WriteBufferSize: 4096,
		CheckOrigin:     originChecker(origins),
	}
	return h
}

func originChecker(origins []string) func(*http.Request) bool {
	allowed := make(map[string]bool, len(origins))
	for _, o := range origins {
		if o == "*" {
			return func(*http.Request) bool { return true }
		}
		allowed[o] = true
	}
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		return origin == "" || allowed[origin]
	}
}

// Session godoc
// @Summary     Open an editing session
// @Description Upgrades to a WebSocket carrying frame, layer and metadata edits. Edits are autosaved; save_now flushes them immediately.
// @Tags        sessions
// @Security    BearerAuth
// @Param       project_id path string true "Project ID"
// @Param       access_token query string false "JWT when the Authorization header cannot be set"
// @Success     101
// @Failure     403 {object} models.ErrorResponse
// @Router      /api/v1/projects/{project_id}/session [get]
func (h *SessionHandler) Session(c *gin.Context) {
	uid, ok := currentUser(c)
	if !ok {
		return
	}

	projectID := c.Param("project_id")
	if _, err := h.svc.Authorize(c.Request.Context(), projectID, uid); err != nil {
		respondError(c, err)
		return
	}

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		logger.Warn("websocket upgrade failed", "project_id", projectID, "error", err)
		return
	}
	defer conn.Close()

	session := services.NewEditSession(h.svc, h.hub, projectID, uid, h.opts)
	logger.Info("edit session opened", "session_id", session.ID, "project_id", projectID, "user_id", uid)

	done := make(chan struct{})
	go h.writePump(conn, session, done)

	h.readPump(conn, session)

	timeout := h.opts.SaveTimeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	if err := session.Close(ctx); err != nil {
		logger.Warn("edit session closed with unsaved changes", "session_id", session.ID, "error", err)
	}
	<-done
	logger.Info("edit session closed", "session_id", session.ID, "project_id", projectID)
}

func (h *SessionHandler) readPump(conn *websocket.Conn, session *services.EditSession) {
	conn.SetReadLimit(maxMessageSize)
	conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		var msg services.Inbound
		if err := conn.ReadJSON(&msg); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				logger.Warn("websocket read failed", "session_id", session.ID, "error", err)
			}
			return
		}
		conn.SetReadDeadline(time.Now().Add(pongWait))

		ctx, cancel := h.handleContext()
		session.Handle(ctx, msg)
		cancel()
	}
}

func (h *SessionHandler) handleContext() (context.Context, context.CancelFunc) {
	if h.opts.SaveTimeout > 0 {
		return context.WithTimeout(context.Background(), h.opts.SaveTimeout)
	}
	return context.WithCancel(context.Background())
}

// writePump is the only writer on conn. It exits once the session's outbound
// channel is closed.
func (h *SessionHandler) writePump(conn *websocket.Conn, session *services.EditSession, done chan<- struct{}) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		close(done)
	}()

	for {
		select {
		case msg, ok := <-session.Outbound():
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := conn.WriteJSON(msg); err != nil {
				logger.Warn("websocket write failed", "session_id", session.ID, "error", err)
				conn.Close()
				drain(session)
				return
			}
		case <-ticker.C:
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				conn.Close()
				drain(session)
				return
			}
		}
	}
}

// drain discards messages until the session closes so that senders never block.
func drain(session *services.EditSession) {
	for range session.Outbound() {
	}
}
