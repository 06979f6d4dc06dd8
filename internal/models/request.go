package models

type CreateProjectRequest struct {
	Title  string `json:"title" example:"Walk cycle"`
	FPS    int    `json:"fps" binding:"required" example:"24"`
	Width  int    `json:"width" binding:"required" example:"640"`
	Height int    `json:"height" binding:"required" example:"360"`
}

// UpdateProjectRequest is a partial update. Only the fields present are changed.
type UpdateProjectRequest struct {
	Title       *string `json:"title,omitempty"`
	FPS         *int    `json:"fps,omitempty"`
	Width       *int    `json:"width,omitempty"`
	Height      *int    `json:"height,omitempty"`
	TotalFrames *int    `json:"total_frames,omitempty"`
}

// Fields converts the request into metadata field updates.
func (r UpdateProjectRequest) Fields() map[string]interface{} {
	fields := make(map[string]interface{})
	if r.Title != nil {
		fields["title"] = *r.Title
	}
	if r.FPS != nil {
		fields["fps"] = *r.FPS
	}
	if r.Width != nil {
		fields["width"] = *r.Width
	}
	if r.Height != nil {
		fields["height"] = *r.Height
	}
	if r.TotalFrames != nil {
		fields["totalFrames"] = *r.TotalFrames
	}
	return fields
}

// SaveFrameRequest carries the raster of an existing frame. FrameNumber is
// optional; when present the save fails unless the frame is still there.
type SaveFrameRequest struct {
	FrameNumber *int    `json:"frame_number,omitempty" example:"0"`
	ImageData   *string `json:"image_data"`
	Layers      []Layer `json:"layers,omitempty"`
}

type SaveLayersRequest struct {
	Layers []Layer `json:"layers"`
}

const (
	LayerOpAdd     = "add"
	LayerOpToggle  = "toggle"
	LayerOpRename  = "rename"
	LayerOpSetData = "set_data"
	LayerOpDelete  = "delete"
)

// LayerOpRequest edits one layer of a frame.
type LayerOpRequest struct {
	Op      string `json:"op" binding:"required,oneof=add toggle rename set_data delete" example:"toggle"`
	LayerID string `json:"layer_id,omitempty"`
	Name    string `json:"name,omitempty" example:"Ink"`
	Data    string `json:"data,omitempty"`
}

type ReorderFramesRequest struct {
	Frames []FrameOrder `json:"frames" binding:"required,min=1,dive"`
}

type AddCollaboratorRequest struct {
	Email string `json:"email" binding:"required,email" example:"friend@example.com"`
}

type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
}
