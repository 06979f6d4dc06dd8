package services

import (
	"context"
	"fmt"
	"image"
	"time"

	"desyn-backend/internal/apperrors"
	"desyn-backend/internal/codec"
	"desyn-backend/internal/collab"
	"desyn-backend/internal/docstore"
	"desyn-backend/internal/frames"
	"desyn-backend/internal/logger"
	"desyn-backend/internal/models"
	"desyn-backend/internal/project"
	"desyn-backend/internal/supabase"
)

// Publisher broadcasts project events to subscribed clients.
type Publisher interface {
	PublishProjectEvent(ctx context.Context, projectID string, event string, payload map[string]interface{}) error
}

// ThumbnailUploader stores a PNG preview and returns the URL to reference it by.
type ThumbnailUploader interface {
	UploadThumbnail(ctx context.Context, projectID string, data []byte) (string, error)
}

// OpenedProject is the editor's view of a project: metadata plus frames in order.
type OpenedProject struct {
	Project *models.Project `json:"project"`
	Frames  []models.Frame  `json:"frames"`
}

type ProjectService struct {
	projects   *project.Store
	frames     *frames.Store
	collab     *collab.Manager
	publisher  Publisher
	thumbnails ThumbnailUploader
}

// NewProjectService wires the stores over db. publisher and thumbnails may be
// nil: events are then dropped and thumbnails are stored inline as data URLs.
func NewProjectService(db docstore.Store, manager *collab.Manager, publisher Publisher, thumbnails ThumbnailUploader) *ProjectService {
	return &ProjectService{
		projects:   project.NewStore(db),
		frames:     frames.NewStore(db),
		collab:     manager,
		publisher:  publisher,
		thumbnails: thumbnails,
	}
}

func (s *ProjectService) Create(ctx context.Context, uid, title string, fps, width, height int) (*models.Project, error) {
	id, err := s.projects.Create(ctx, uid, title, fps, width, height)
	if err != nil {
		return nil, err
	}
	logger.Info("project created", "project_id", id, "user_id", uid)
	return s.projects.Get(ctx, id)
}

func (s *ProjectService) List(ctx context.Context, uid string) ([]models.Project, error) {
	return s.projects.ListForUser(ctx, uid)
}

// Authorize loads the project and checks that uid may edit it.
func (s *ProjectService) Authorize(ctx context.Context, projectID, uid string) (*models.Project, error) {
	p, err := s.projects.Get(ctx, projectID)
	if err != nil {
		return nil, err
	}
	if !collab.CanEdit(p, uid) {
		return nil, fmt.Errorf("user %s cannot access project %s: %w", uid, projectID, apperrors.ErrForbidden)
	}
	return p, nil
}

// Open returns the project with its frames. An empty project gets a blank
// frame 0, a stale totalFrames is corrected and frames whose raster cannot be
// decoded are returned blank.
func (s *ProjectService) Open(ctx context.Context, projectID, uid string) (*OpenedProject, error) {
	p, err := s.Authorize(ctx, projectID, uid)
	if err != nil {
		return nil, err
	}

	list, err := s.frames.ListAll(ctx, projectID)
	if err != nil {
		return nil, err
	}
	if len(list) == 0 {
		first, err := s.frames.Add(ctx, projectID)
		if err != nil {
			return nil, err
		}
		list = []models.Frame{*first}
		p.TotalFrames = 1
	}
	if p.TotalFrames != len(list) {
		if err := s.projects.Update(ctx, projectID, map[string]interface{}{"totalFrames": len(list)}); err != nil {
			logger.Warn("failed to repair frame count", "project_id", projectID, "error", err)
		} else {
			p.TotalFrames = len(list)
		}
	}

	for i := range list {
		sanitizeFrame(&list[i])
	}
	return &OpenedProject{Project: p, Frames: list}, nil
}

func sanitizeFrame(f *models.Frame) {
	if f.ImageData != nil && *f.ImageData != "" {
		if err := codec.Check(*f.ImageData); err != nil {
			logger.Warn("substituting blank frame", "frame_id", f.ID, "error", err)
			f.ImageData = nil
		}
	}
	for i, layer := range f.Layers {
		if layer.Data == "" {
			continue
		}
		if err := codec.Check(layer.Data); err != nil {
			logger.Warn("substituting blank layer", "frame_id", f.ID, "layer_id", layer.ID, "error", err)
			f.Layers[i].Data = ""
		}
	}
}

// UpdateMetadata applies a partial metadata update. Only the owner may change it.
func (s *ProjectService) UpdateMetadata(ctx context.Context, projectID, uid string, fields map[string]interface{}) (*models.Project, error) {
	p, err := s.projects.Get(ctx, projectID)
	if err != nil {
		return nil, err
	}
	if !collab.IsOwner(p, uid) {
		return nil, fmt.Errorf("only the owner can edit project settings: %w", apperrors.ErrForbidden)
	}
	if err := s.projects.Update(ctx, projectID, fields); err != nil {
		return nil, err
	}
	s.publish(projectID, supabase.EventMetadataUpdated, supabase.MetadataUpdatedPayload(projectID, fields))
	return s.projects.Get(ctx, projectID)
}

func (s *ProjectService) ListFrames(ctx context.Context, projectID, uid string) ([]models.Frame, error) {
	if _, err := s.Authorize(ctx, projectID, uid); err != nil {
		return nil, err
	}
	return s.frames.ListAll(ctx, projectID)
}

func (s *ProjectService) AddFrame(ctx context.Context, projectID, uid string) (*models.Frame, error) {
	if _, err := s.Authorize(ctx, projectID, uid); err != nil {
		return nil, err
	}
	f, err := s.frames.Add(ctx, projectID)
	if err != nil {
		return nil, err
	}
	s.publishFramesChanged(ctx, projectID, "add")
	return f, nil
}

// SaveFrame persists the raster of an existing frame. The payload must decode
// as an image of any supported format that fits the canvas. When expectNumber
// is set the frame must still sit at that position.
func (s *ProjectService) SaveFrame(ctx context.Context, projectID, uid string, f models.Frame, expectNumber *int) (bool, error) {
	p, err := s.Authorize(ctx, projectID, uid)
	if err != nil {
		return false, err
	}
	if f.ImageData != nil && *f.ImageData != "" {
		if _, err := codec.Decode(*f.ImageData, p.Width, p.Height); err != nil {
			return false, apperrors.Invalid("imageData", "%v", err)
		}
	}
	if err := validateLayers(f.Layers, p.Width, p.Height); err != nil {
		return false, err
	}
	stored, written, err := s.frames.Save(ctx, projectID, f, expectNumber)
	if err != nil {
		return false, err
	}
	if written {
		s.publish(projectID, supabase.EventFrameSaved, supabase.FrameSavedPayload(projectID, stored.ID, stored.FrameNumber, uid))
	}
	return written, nil
}

// SaveLayers replaces the layer list of a frame. An empty list is rejected;
// a frame keeps at least one layer.
func (s *ProjectService) SaveLayers(ctx context.Context, projectID, uid, frameID string, layers []models.Layer) (bool, error) {
	p, err := s.Authorize(ctx, projectID, uid)
	if err != nil {
		return false, err
	}
	if len(layers) == 0 {
		return false, apperrors.ErrLastLayer
	}
	if err := validateLayers(layers, p.Width, p.Height); err != nil {
		return false, err
	}
	return s.frames.SaveLayers(ctx, projectID, frameID, layers)
}

// EditLayer applies a single layer operation to a frame's stack and stores
// the result. It returns the layers after the edit.
func (s *ProjectService) EditLayer(ctx context.Context, projectID, uid, frameID string, op models.LayerOpRequest) ([]models.Layer, error) {
	p, err := s.Authorize(ctx, projectID, uid)
	if err != nil {
		return nil, err
	}
	frame, err := s.frames.Get(ctx, projectID, frameID)
	if err != nil {
		return nil, err
	}

	stack := frames.NewLayerStack(frame.Layers)
	switch op.Op {
	case models.LayerOpAdd:
		stack.Add(op.Name)
	case models.LayerOpToggle:
		_, err = stack.Toggle(op.LayerID)
	case models.LayerOpRename:
		err = stack.Rename(op.LayerID, op.Name)
	case models.LayerOpSetData:
		if op.Data != "" {
			if _, derr := codec.Decode(op.Data, p.Width, p.Height); derr != nil {
				return nil, apperrors.Invalid("data", "%v", derr)
			}
		}
		err = stack.SetData(op.LayerID, op.Data)
	case models.LayerOpDelete:
		err = stack.Delete(op.LayerID)
	default:
		return nil, apperrors.Invalid("op", "unknown layer operation %q", op.Op)
	}
	if err != nil {
		return nil, err
	}

	layers := stack.Layers()
	if _, err := s.frames.SaveLayers(ctx, projectID, frameID, layers); err != nil {
		return nil, err
	}
	return layers, nil
}

func validateLayers(layers []models.Layer, width, height int) error {
	for _, layer := range layers {
		if layer.ID == "" {
			return apperrors.Invalid("layers", "every layer needs an id")
		}
		if layer.Data == "" {
			continue
		}
		if _, err := codec.Decode(layer.Data, width, height); err != nil {
			return apperrors.Invalid("layers", "layer %s: %v", layer.ID, err)
		}
	}
	return nil
}

// DeleteFrame removes a frame and renumbers the rest to 0..n-1.
func (s *ProjectService) DeleteFrame(ctx context.Context, projectID, uid, frameID string) ([]models.Frame, error) {
	if _, err := s.Authorize(ctx, projectID, uid); err != nil {
		return nil, err
	}
	if err := s.frames.Delete(ctx, projectID, frameID); err != nil {
		return nil, err
	}
	list, err := s.frames.ListAll(ctx, projectID)
	if err != nil {
		return nil, err
	}
	list, err = s.frames.Renumber(ctx, projectID, list)
	if err != nil {
		return nil, err
	}
	s.publishFramesChanged(ctx, projectID, "delete")
	return list, nil
}

func (s *ProjectService) DuplicateFrame(ctx context.Context, projectID, uid, frameID string) (*models.Frame, error) {
	if _, err := s.Authorize(ctx, projectID, uid); err != nil {
		return nil, err
	}
	f, err := s.frames.Duplicate(ctx, projectID, frameID)
	if err != nil {
		return nil, err
	}
	s.publishFramesChanged(ctx, projectID, "duplicate")
	return f, nil
}

func (s *ProjectService) ReorderFrames(ctx context.Context, projectID, uid string, orders []models.FrameOrder) ([]models.Frame, error) {
	if _, err := s.Authorize(ctx, projectID, uid); err != nil {
		return nil, err
	}
	if err := s.frames.ReorderBatch(ctx, projectID, orders); err != nil {
		return nil, err
	}
	s.publishFramesChanged(ctx, projectID, "reorder")
	return s.frames.ListAll(ctx, projectID)
}

// RegenerateThumbnail renders frame 0 into a small preview and stores its URL
// in the project's thumbnail field.
func (s *ProjectService) RegenerateThumbnail(ctx context.Context, projectID, uid string) (string, error) {
	p, err := s.Authorize(ctx, projectID, uid)
	if err != nil {
		return "", err
	}
	list, err := s.frames.ListAll(ctx, projectID)
	if err != nil {
		return "", err
	}

	surface := image.Image(codec.Blank(p.Width, p.Height))
	if len(list) > 0 {
		surface = renderFrame(list[0], p.Width, p.Height)
	}

	encoded, raw, err := codec.Thumbnail(surface, codec.DefaultThumbnailSize)
	if err != nil {
		return "", fmt.Errorf("failed to render thumbnail: %w", err)
	}

	url := encoded
	if s.thumbnails != nil {
		url, err = s.thumbnails.UploadThumbnail(ctx, projectID, raw)
		if err != nil {
			return "", err
		}
	}

	if err := s.projects.Update(ctx, projectID, map[string]interface{}{"thumbnail": url}); err != nil {
		return "", err
	}
	s.publish(projectID, supabase.EventThumbnailUpdated, supabase.ThumbnailUpdatedPayload(projectID, url))
	return url, nil
}

func renderFrame(f models.Frame, width, height int) image.Image {
	if hasLayerData(f.Layers) {
		surface, err := codec.Composite(f.Layers, width, height)
		if err != nil {
			logger.Warn("thumbnail skipped undecodable layer", "frame_id", f.ID, "error", err)
		}
		return surface
	}
	var data string
	if f.ImageData != nil {
		data = *f.ImageData
	}
	surface, err := codec.DecodeOrBlank(data, width, height)
	if err != nil {
		logger.Warn("thumbnail using blank frame", "frame_id", f.ID, "error", err)
	}
	return surface
}

func hasLayerData(layers []models.Layer) bool {
	for _, l := range layers {
		if l.Data != "" {
			return true
		}
	}
	return false
}

func (s *ProjectService) AddCollaborator(ctx context.Context, projectID, uid, email string) (*collab.AddResult, error) {
	res, err := s.collab.AddCollaboratorByEmail(ctx, projectID, uid, email)
	if err != nil {
		return nil, err
	}
	if res.Added {
		s.publish(projectID, supabase.EventCollaboratorAdded, supabase.CollaboratorAddedPayload(projectID, res.Collaborator.UID))
	}
	return res, nil
}

// ListCollaborators resolves the live profiles of everyone with access.
func (s *ProjectService) ListCollaborators(ctx context.Context, projectID, uid string) ([]models.Profile, error) {
	p, err := s.Authorize(ctx, projectID, uid)
	if err != nil {
		return nil, err
	}
	return s.collab.ListCollaboratorProfiles(ctx, p.AllowedUsers), nil
}

func (s *ProjectService) RefreshCollaborators(ctx context.Context, projectID, uid string) ([]models.Collaborator, error) {
	if _, err := s.Authorize(ctx, projectID, uid); err != nil {
		return nil, err
	}
	return s.collab.RefreshProfiles(ctx, projectID)
}

func (s *ProjectService) publishFramesChanged(ctx context.Context, projectID, reason string) {
	if s.publisher == nil {
		return
	}
	p, err := s.projects.Get(ctx, projectID)
	if err != nil {
		logger.Warn("skipping frames_changed event", "project_id", projectID, "error", err)
		return
	}
	s.publish(projectID, supabase.EventFramesChanged, supabase.FramesChangedPayload(projectID, reason, p.TotalFrames))
}

// publish sends the event in the background; delivery failures are logged only.
func (s *ProjectService) publish(projectID, event string, payload map[string]interface{}) {
	if s.publisher == nil {
		return
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		if err := s.publisher.PublishProjectEvent(ctx, projectID, event, payload); err != nil {
			logger.Warn("failed to publish project event", "project_id", projectID, "event", event, "error", err)
		}
	}()
}
