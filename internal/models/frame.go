package models

import "time"

type Frame struct {
	ID          string `json:"-"`
	ProjectID   string `json:"projectId"`
	FrameNumber int    `json:"frameNumber"`
	// ImageData is the encoded raster; nil means the frame is blank.
	ImageData *string   `json:"imageData"`
	Layers    []Layer   `json:"layers,omitempty"`
	UpdatedAt time.Time `json:"updatedAt"`
}

func (f Frame) IsBlank() bool {
	return f.ImageData == nil || *f.ImageData == ""
}

type Layer struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	Visible bool   `json:"visible"`
	// Data is the encoded raster of the layer; empty means transparent.
	Data string `json:"data,omitempty"`
}

// FrameOrder assigns a new position to a frame in a reorder batch.
type FrameOrder struct {
	FrameID     string `json:"frame_id" binding:"required"`
	FrameNumber int    `json:"frame_number"`
}
