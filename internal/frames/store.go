// Package frames maintains the ordered frame collection of a project.
package frames

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"sort"

	"github.com/google/uuid"

	"desyn-backend/internal/apperrors"
	"desyn-backend/internal/docstore"
	"desyn-backend/internal/logger"
	"desyn-backend/internal/metrics"
	"desyn-backend/internal/models"
	"desyn-backend/internal/project"
)

type Store struct {
	db docstore.Store
}

func NewStore(db docstore.Store) *Store {
	return &Store{db: db}
}

// ListAll returns the frames of a project ordered by frame number. Documents
// that cannot be decoded are skipped.
func (s *Store) ListAll(ctx context.Context, projectID string) ([]models.Frame, error) {
	docs, err := s.db.Query(ctx, project.FramesCollection(projectID), docstore.Query{}.Order("frameNumber", docstore.Asc))
	if err != nil {
		return nil, apperrors.Persistence("list frames", err)
	}

	frames := make([]models.Frame, 0, len(docs))
	for i := range docs {
		f, err := decodeFrame(projectID, &docs[i])
		if err != nil {
			logger.Warn("skipping malformed frame", "project_id", projectID, "frame_id", docs[i].ID, "error", err)
			continue
		}
		frames = append(frames, *f)
	}
	sort.SliceStable(frames, func(i, j int) bool { return frames[i].FrameNumber < frames[j].FrameNumber })
	return frames, nil
}

func (s *Store) Get(ctx context.Context, projectID, frameID string) (*models.Frame, error) {
	doc, err := s.db.Get(ctx, project.FramesCollection(projectID), frameID)
	if err != nil {
		if errors.Is(err, docstore.ErrNotFound) {
			return nil, fmt.Errorf("frame %s: %w", frameID, apperrors.ErrNotFound)
		}
		return nil, apperrors.Persistence("get frame", err)
	}
	return decodeFrame(projectID, doc)
}

// Add appends a blank frame after the last one.
func (s *Store) Add(ctx context.Context, projectID string) (*models.Frame, error) {
	frames, err := s.ListAll(ctx, projectID)
	if err != nil {
		return nil, err
	}
	at := 0
	if n := len(frames); n > 0 {
		at = frames[n-1].FrameNumber + 1
	}
	return s.insert(ctx, projectID, frames, at, nil, nil)
}

// Insert places a new frame at position at, shifting the frames at or after it by one.
func (s *Store) Insert(ctx context.Context, projectID string, at int, imageData *string, layers []models.Layer) (*models.Frame, error) {
	if at < 0 {
		return nil, apperrors.Invalid("frameNumber", "must not be negative")
	}
	frames, err := s.ListAll(ctx, projectID)
	if err != nil {
		return nil, err
	}
	return s.insert(ctx, projectID, frames, at, imageData, layers)
}

// Duplicate copies the raster and layers of the source frame into a new frame
// placed directly after it.
func (s *Store) Duplicate(ctx context.Context, projectID, sourceFrameID string) (*models.Frame, error) {
	frames, err := s.ListAll(ctx, projectID)
	if err != nil {
		return nil, err
	}
	source, ok := find(frames, sourceFrameID)
	if !ok {
		return nil, fmt.Errorf("frame %s: %w", sourceFrameID, apperrors.ErrNotFound)
	}

	var imageData *string
	if source.ImageData != nil {
		copied := *source.ImageData
		imageData = &copied
	}
	var layers []models.Layer
	if source.Layers != nil {
		layers = append([]models.Layer{}, source.Layers...)
	}
	return s.insert(ctx, projectID, frames, source.FrameNumber+1, imageData, layers)
}

func (s *Store) insert(ctx context.Context, projectID string, frames []models.Frame, at int, imageData *string, layers []models.Layer) (*models.Frame, error) {
	coll := project.FramesCollection(projectID)
	b := docstore.NewBatch()

	for _, f := range frames {
		if f.FrameNumber < at {
			continue
		}
		b.Update(coll, f.ID, map[string]interface{}{
			"frameNumber": f.FrameNumber + 1,
			"updatedAt":   docstore.ServerTimestamp,
		})
	}

	frame := models.Frame{
		ID:          uuid.NewString(),
		ProjectID:   projectID,
		FrameNumber: at,
		ImageData:   imageData,
		Layers:      layers,
	}
	b.Set(coll, frame.ID, frameFields(frame), false)
	b.Update(project.Collection, projectID, map[string]interface{}{
		"totalFrames": len(frames) + 1,
		"updatedAt":   docstore.ServerTimestamp,
	})

	if err := s.commit(ctx, "insert frame", projectID, b); err != nil {
		return nil, err
	}

	return &frame, nil
}

// Save writes the raster of an existing frame, and its layers when the frame
// carries any. The frame number is never written here; structural operations
// own it. When expectNumber is set the frame must still be at that position.
// It returns the frame as stored and reports false without writing when the
// stored content already matches.
func (s *Store) Save(ctx context.Context, projectID string, f models.Frame, expectNumber *int) (*models.Frame, bool, error) {
	if f.ID == "" {
		return nil, false, apperrors.Invalid("id", "is required")
	}
	stored, err := s.Get(ctx, projectID, f.ID)
	if err != nil {
		return nil, false, err
	}
	if expectNumber != nil && *expectNumber != stored.FrameNumber {
		return nil, false, apperrors.Invalid("frameNumber", "frame %s is at %d, not %d", f.ID, stored.FrameNumber, *expectNumber)
	}

	sameLayers := f.Layers == nil || layersDigest(f.Layers) == layersDigest(stored.Layers)
	if raster(f.ImageData) == raster(stored.ImageData) && sameLayers {
		metrics.FrameWritesSkipped.Inc()
		return stored, false, nil
	}

	fields := map[string]interface{}{
		"imageData": f.ImageData,
		"updatedAt": docstore.ServerTimestamp,
	}
	stored.ImageData = f.ImageData
	if f.Layers != nil {
		fields["layers"] = f.Layers
		stored.Layers = f.Layers
	}
	if err := s.update(ctx, projectID, f.ID, fields, "save frame"); err != nil {
		return nil, false, err
	}
	return stored, true, nil
}

// SaveLayers writes only the layer list of an existing frame. A frame always
// keeps at least one layer.
func (s *Store) SaveLayers(ctx context.Context, projectID, frameID string, layers []models.Layer) (bool, error) {
	if len(layers) == 0 {
		return false, apperrors.ErrLastLayer
	}
	stored, err := s.Get(ctx, projectID, frameID)
	if err != nil {
		return false, err
	}
	if layersDigest(layers) == layersDigest(stored.Layers) {
		metrics.FrameWritesSkipped.Inc()
		return false, nil
	}

	err = s.update(ctx, projectID, frameID, map[string]interface{}{
		"layers":    layers,
		"updatedAt": docstore.ServerTimestamp,
	}, "save layers")
	if err != nil {
		return false, err
	}
	return true, nil
}

func (s *Store) update(ctx context.Context, projectID, frameID string, fields map[string]interface{}, op string) error {
	if err := s.db.Update(ctx, project.FramesCollection(projectID), frameID, fields); err != nil {
		if errors.Is(err, docstore.ErrNotFound) {
			return fmt.Errorf("frame %s: %w", frameID, apperrors.ErrNotFound)
		}
		return apperrors.Persistence(op, err)
	}
	return nil
}

// Delete removes a frame. Remaining frames keep their numbers; use Renumber to
// close the gap. The store refuses the write when it would leave the project
// without frames, so concurrent deletes cannot remove the last one.
func (s *Store) Delete(ctx context.Context, projectID, frameID string) error {
	frames, err := s.ListAll(ctx, projectID)
	if err != nil {
		return err
	}
	if _, ok := find(frames, frameID); !ok {
		return fmt.Errorf("frame %s: %w", frameID, apperrors.ErrNotFound)
	}
	if len(frames) <= 1 {
		return apperrors.ErrLastFrame
	}

	coll := project.FramesCollection(projectID)
	b := docstore.NewBatch().
		Delete(coll, frameID).
		Update(project.Collection, projectID, map[string]interface{}{
			"totalFrames": len(frames) - 1,
			"updatedAt":   docstore.ServerTimestamp,
		}).
		RequireMinDocs(coll, 1)
	if err := s.db.Commit(ctx, b); err != nil {
		if errors.Is(err, docstore.ErrPrecondition) {
			return apperrors.ErrLastFrame
		}
		return s.commitError("delete frame", projectID, err)
	}
	return nil
}

// ReorderBatch assigns new frame numbers in a single atomic write.
func (s *Store) ReorderBatch(ctx context.Context, projectID string, orders []models.FrameOrder) error {
	if len(orders) == 0 {
		return apperrors.Invalid("orders", "must not be empty")
	}

	frames, err := s.ListAll(ctx, projectID)
	if err != nil {
		return err
	}
	numbers := make(map[string]int, len(frames))
	for _, f := range frames {
		numbers[f.ID] = f.FrameNumber
	}

	seen := make(map[string]bool, len(orders))
	for _, o := range orders {
		if o.FrameNumber < 0 {
			return apperrors.Invalid("frameNumber", "must not be negative")
		}
		if seen[o.FrameID] {
			return apperrors.Invalid("frameId", "frame %s appears more than once", o.FrameID)
		}
		seen[o.FrameID] = true
		if _, ok := numbers[o.FrameID]; !ok {
			return fmt.Errorf("frame %s: %w", o.FrameID, apperrors.ErrNotFound)
		}
		numbers[o.FrameID] = o.FrameNumber
	}

	taken := make(map[int]string, len(numbers))
	for id, n := range numbers {
		if other, dup := taken[n]; dup {
			return apperrors.Invalid("frameNumber", "frames %s and %s would share number %d", other, id, n)
		}
		taken[n] = id
	}

	coll := project.FramesCollection(projectID)
	b := docstore.NewBatch()
	for _, f := range frames {
		if n := numbers[f.ID]; n != f.FrameNumber {
			b.Update(coll, f.ID, map[string]interface{}{
				"frameNumber": n,
				"updatedAt":   docstore.ServerTimestamp,
			})
		}
	}
	if b.Len() == 0 {
		return nil
	}
	return s.commit(ctx, "reorder frames", projectID, b)
}

// Renumber restores contiguous numbering 0..n-1 in the current order and
// writes the changed numbers in one batch.
func (s *Store) Renumber(ctx context.Context, projectID string, frames []models.Frame) ([]models.Frame, error) {
	out := append([]models.Frame(nil), frames...)
	sort.SliceStable(out, func(i, j int) bool { return out[i].FrameNumber < out[j].FrameNumber })

	coll := project.FramesCollection(projectID)
	b := docstore.NewBatch()
	for i := range out {
		if out[i].FrameNumber == i {
			continue
		}
		out[i].FrameNumber = i
		b.Update(coll, out[i].ID, map[string]interface{}{
			"frameNumber": i,
			"updatedAt":   docstore.ServerTimestamp,
		})
	}
	if b.Len() == 0 {
		return out, nil
	}
	b.Update(project.Collection, projectID, map[string]interface{}{
		"totalFrames": len(out),
		"updatedAt":   docstore.ServerTimestamp,
	})
	if err := s.commit(ctx, "renumber frames", projectID, b); err != nil {
		return nil, err
	}
	return out, nil
}

func (s *Store) commit(ctx context.Context, op, projectID string, b *docstore.Batch) error {
	if err := s.db.Commit(ctx, b); err != nil {
		return s.commitError(op, projectID, err)
	}
	return nil
}

func (s *Store) commitError(op, projectID string, err error) error {
	if errors.Is(err, docstore.ErrNotFound) {
		return fmt.Errorf("%s in project %s: %w", op, projectID, apperrors.ErrNotFound)
	}
	return apperrors.Persistence(op, err)
}

func frameFields(f models.Frame) map[string]interface{} {
	layers := f.Layers
	if layers == nil {
		layers = []models.Layer{}
	}
	return map[string]interface{}{
		"projectId":   f.ProjectID,
		"frameNumber": f.FrameNumber,
		"imageData":   f.ImageData,
		"layers":      layers,
		"updatedAt":   docstore.ServerTimestamp,
	}
}

func decodeFrame(projectID string, doc *docstore.Document) (*models.Frame, error) {
	n, ok := doc.Data["frameNumber"].(float64)
	if !ok || n < 0 || n != float64(int(n)) {
		return nil, fmt.Errorf("invalid frameNumber %v", doc.Data["frameNumber"])
	}
	var f models.Frame
	if err := doc.DataTo(&f); err != nil {
		return nil, err
	}
	f.ID = doc.ID
	f.ProjectID = projectID
	return &f, nil
}

func find(frames []models.Frame, id string) (models.Frame, bool) {
	for _, f := range frames {
		if f.ID == id {
			return f, true
		}
	}
	return models.Frame{}, false
}

func raster(imageData *string) string {
	if imageData == nil {
		return ""
	}
	return *imageData
}

func layersDigest(layers []models.Layer) string {
	if len(layers) == 0 {
		layers = nil
	}
	raw, _ := json.Marshal(layers)
	sum := sha256.Sum256(raw)
	return hex.EncodeToString(sum[:])
}
