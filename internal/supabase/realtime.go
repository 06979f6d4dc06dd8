package supabase

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

const (
	EventFramesChanged     = "frames_changed"
	EventFrameSaved        = "frame_saved"
	EventMetadataUpdated   = "metadata_updated"
	EventCollaboratorAdded = "collaborator_added"
	EventThumbnailUpdated  = "thumbnail_updated"
)

// RealtimeClient publishes broadcast messages through the Realtime REST API.
type RealtimeClient struct {
	endpoint   string
	apiKey     string
	httpClient *http.Client
	maxRetries int
}

func NewRealtimeClient(supabaseURL, serviceRoleKey string) *RealtimeClient {
	return &RealtimeClient{
		endpoint:   strings.TrimSuffix(supabaseURL, "/") + "/realtime/v1/api/broadcast",
		apiKey:     serviceRoleKey,
		httpClient: &http.Client{Timeout: 10 * time.Second},
		maxRetries: 3,
	}
}

type broadcastMessage struct {
	Topic   string                 `json:"topic"`
	Event   string                 `json:"event"`
	Payload map[string]interface{} `json:"payload"`
}

type broadcastRequest struct {
	Messages []broadcastMessage `json:"messages"`
}

func (r *RealtimeClient) PublishEvent(ctx context.Context, channel string, event string, payload map[string]interface{}) error {
	body, err := json.Marshal(broadcastRequest{
		Messages: []broadcastMessage{{Topic: channel, Event: event, Payload: payload}},
	})
	if err != nil {
		return fmt.Errorf("failed to encode broadcast: %w", err)
	}

	return RetryWithBackoff(ctx, func() error {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, r.endpoint, bytes.NewReader(body))
		if err != nil {
			return err
		}
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("apikey", r.apiKey)
		req.Header.Set("Authorization", "Bearer "+r.apiKey)

		resp, err := r.httpClient.Do(req)
		if err != nil {
			return fmt.Errorf("failed to send broadcast: %w", err)
		}
		defer resp.Body.Close()

		if resp.StatusCode >= 300 {
			msg, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
			return fmt.Errorf("broadcast rejected: status %d: %s", resp.StatusCode, string(msg))
		}
		return nil
	}, r.maxRetries)
}

func (r *RealtimeClient) PublishProjectEvent(ctx context.Context, projectID string, event string, payload map[string]interface{}) error {
	return r.PublishEvent(ctx, ProjectChannel(projectID), event, payload)
}

func ProjectChannel(projectID string) string {
	return fmt.Sprintf("project:%s", projectID)
}

// Event payloads
func FramesChangedPayload(projectID, reason string, totalFrames int) map[string]interface{} {
	return map[string]interface{}{
		"project_id":   projectID,
		"reason":       reason,
		"total_frames": totalFrames,
	}
}

func FrameSavedPayload(projectID, frameID string, frameNumber int, userID string) map[string]interface{} {
	return map[string]interface{}{
		"project_id":   projectID,
		"frame_id":     frameID,
		"frame_number": frameNumber,
		"user_id":      userID,
	}
}

func MetadataUpdatedPayload(projectID string, fields map[string]interface{}) map[string]interface{} {
	return map[string]interface{}{
		"project_id": projectID,
		"fields":     fields,
	}
}

func CollaboratorAddedPayload(projectID, userID string) map[string]interface{} {
	return map[string]interface{}{
		"project_id": projectID,
		"user_id":    userID,
	}
}

func ThumbnailUpdatedPayload(projectID, url string) map[string]interface{} {
	return map[string]interface{}{
		"project_id": projectID,
		"thumbnail":  url,
	}
}
