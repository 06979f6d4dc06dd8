package models

import "time"

type ProjectResponse struct {
	ID            string         `json:"project_id"`
	Title         string         `json:"title"`
	OwnerID       string         `json:"owner_id"`
	FPS           int            `json:"fps"`
	Width         int            `json:"width"`
	Height        int            `json:"height"`
	TotalFrames   int            `json:"total_frames"`
	Thumbnail     string         `json:"thumbnail,omitempty"`
	AllowedUsers  []string       `json:"allowed_users"`
	Collaborators []Collaborator `json:"collaborators"`
	CreatedAt     time.Time      `json:"created_at"`
	UpdatedAt     time.Time      `json:"updated_at"`
}

func NewProjectResponse(p *Project) ProjectResponse {
	collaborators := p.Collaborators
	if collaborators == nil {
		collaborators = []Collaborator{}
	}
	return ProjectResponse{
		ID:            p.ID,
		Title:         p.Title,
		OwnerID:       p.OwnerID,
		FPS:           p.FPS,
		Width:         p.Width,
		Height:        p.Height,
		TotalFrames:   p.TotalFrames,
		Thumbnail:     p.Thumbnail,
		AllowedUsers:  p.AllowedUsers,
		Collaborators: collaborators,
		CreatedAt:     p.CreatedAt,
		UpdatedAt:     p.UpdatedAt,
	}
}

type ProjectListResponse struct {
	Projects []ProjectSummary `json:"projects"`
}

type ProjectSummary struct {
	ID          string    `json:"project_id"`
	Title       string    `json:"title"`
	OwnerID     string    `json:"owner_id"`
	TotalFrames int       `json:"total_frames"`
	Thumbnail   string    `json:"thumbnail,omitempty"`
	UpdatedAt   time.Time `json:"updated_at"`
}

type FrameResponse struct {
	ID          string    `json:"frame_id"`
	FrameNumber int       `json:"frame_number"`
	ImageData   *string   `json:"image_data"`
	Layers      []Layer   `json:"layers"`
	UpdatedAt   time.Time `json:"updated_at"`
}

func NewFrameResponse(f Frame) FrameResponse {
	layers := f.Layers
	if layers == nil {
		layers = []Layer{}
	}
	return FrameResponse{
		ID:          f.ID,
		FrameNumber: f.FrameNumber,
		ImageData:   f.ImageData,
		Layers:      layers,
		UpdatedAt:   f.UpdatedAt,
	}
}

func NewFrameListResponse(frames []Frame) FrameListResponse {
	out := make([]FrameResponse, len(frames))
	for i, f := range frames {
		out[i] = NewFrameResponse(f)
	}
	return FrameListResponse{Frames: out}
}

type FrameListResponse struct {
	Frames []FrameResponse `json:"frames"`
}

// OpenProjectResponse is everything the editor needs to start: metadata and frames.
type OpenProjectResponse struct {
	Project ProjectResponse `json:"project"`
	Frames  []FrameResponse `json:"frames"`
}

type SaveFrameResponse struct {
	FrameID string `json:"frame_id"`
	Written bool   `json:"written"`
}

type LayersResponse struct {
	FrameID string  `json:"frame_id"`
	Layers  []Layer `json:"layers"`
}

type ThumbnailResponse struct {
	Thumbnail string `json:"thumbnail"`
}

type CollaboratorListResponse struct {
	Collaborators []Profile `json:"collaborators"`
}

type AddCollaboratorResponse struct {
	Added        bool         `json:"added"`
	Message      string       `json:"message"`
	Collaborator Collaborator `json:"collaborator"`
}

type RefreshCollaboratorsResponse struct {
	Collaborators []Collaborator `json:"collaborators"`
}

type HealthResponse struct {
	Status  string `json:"status"`
	Storage string `json:"storage,omitempty"`
}
