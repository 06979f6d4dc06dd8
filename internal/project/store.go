// Package project stores the metadata document of each animation project.
package project

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"

	"desyn-backend/internal/apperrors"
	"desyn-backend/internal/docstore"
	"desyn-backend/internal/models"
)

const (
	Collection = "projects"

	MinFPS       = 1
	MaxFPS       = 60
	MinDimension = 1
	MaxDimension = 4096
	MaxTitleLen  = 120
)

// updatable lists the metadata fields Update accepts.
var updatable = map[string]bool{
	"title":       true,
	"fps":         true,
	"width":       true,
	"height":      true,
	"totalFrames": true,
	"thumbnail":   true,
}

type Store struct {
	db docstore.Store
}

func NewStore(db docstore.Store) *Store {
	return &Store{db: db}
}

// FramesCollection is the sub-collection holding the frames of a project.
func FramesCollection(projectID string) string {
	return Collection + "/" + projectID + "/frames"
}

func (s *Store) Create(ctx context.Context, ownerID, title string, fps, width, height int) (string, error) {
	if ownerID == "" {
		return "", apperrors.Invalid("ownerId", "is required")
	}
	title = strings.TrimSpace(title)
	if title == "" {
		title = "Untitled"
	}
	if err := validateTitle(title); err != nil {
		return "", err
	}
	if err := validateRange("fps", fps, MinFPS, MaxFPS); err != nil {
		return "", err
	}
	if err := validateRange("width", width, MinDimension, MaxDimension); err != nil {
		return "", err
	}
	if err := validateRange("height", height, MinDimension, MaxDimension); err != nil {
		return "", err
	}

	id, err := s.db.Create(ctx, Collection, map[string]interface{}{
		"title":         title,
		"ownerId":       ownerID,
		"fps":           fps,
		"width":         width,
		"height":        height,
		"totalFrames":   0,
		"allowedUsers":  []string{ownerID},
		"collaborators": []models.Collaborator{},
		"createdAt":     docstore.ServerTimestamp,
		"updatedAt":     docstore.ServerTimestamp,
	})
	if err != nil {
		return "", apperrors.Persistence("create project", err)
	}
	return id, nil
}

func (s *Store) Get(ctx context.Context, projectID string) (*models.Project, error) {
	doc, err := s.db.Get(ctx, Collection, projectID)
	if err != nil {
		if errors.Is(err, docstore.ErrNotFound) {
			return nil, fmt.Errorf("project %s: %w", projectID, apperrors.ErrNotFound)
		}
		return nil, apperrors.Persistence("get project", err)
	}
	return decode(doc)
}

// Update applies a partial metadata update and stamps updatedAt. The caller is
// responsible for checking that the acting user owns the project.
func (s *Store) Update(ctx context.Context, projectID string, fields map[string]interface{}) error {
	if len(fields) == 0 {
		return apperrors.Invalid("", "no fields to update")
	}

	update := make(map[string]interface{}, len(fields)+1)
	for field, value := range fields {
		if !updatable[field] {
			return apperrors.Invalid(field, "is not an updatable field")
		}
		clean, err := validateField(field, value)
		if err != nil {
			return err
		}
		update[field] = clean
	}
	update["updatedAt"] = docstore.ServerTimestamp

	if err := s.db.Update(ctx, Collection, projectID, update); err != nil {
		if errors.Is(err, docstore.ErrNotFound) {
			return fmt.Errorf("project %s: %w", projectID, apperrors.ErrNotFound)
		}
		return apperrors.Persistence("update project", err)
	}
	return nil
}

// ListForUser returns the projects uid may access, most recently updated first.
func (s *Store) ListForUser(ctx context.Context, uid string) ([]models.Project, error) {
	q := docstore.Query{}.
		Where("allowedUsers", docstore.OpArrayContains, uid).
		Order("updatedAt", docstore.Desc)
	docs, err := s.db.Query(ctx, Collection, q)
	if err != nil {
		return nil, apperrors.Persistence("list projects", err)
	}

	projects := make([]models.Project, 0, len(docs))
	for i := range docs {
		p, err := decode(&docs[i])
		if err != nil {
			return nil, err
		}
		projects = append(projects, *p)
	}
	return projects, nil
}

func decode(doc *docstore.Document) (*models.Project, error) {
	var p models.Project
	if err := doc.DataTo(&p); err != nil {
		return nil, fmt.Errorf("failed to decode project %s: %w", doc.ID, err)
	}
	p.ID = doc.ID
	return &p, nil
}

func validateField(field string, value interface{}) (interface{}, error) {
	switch field {
	case "title":
		title, ok := value.(string)
		if !ok {
			return nil, apperrors.Invalid(field, "must be a string")
		}
		title = strings.TrimSpace(title)
		if title == "" {
			return nil, apperrors.Invalid(field, "must not be empty")
		}
		return title, validateTitle(title)
	case "thumbnail":
		thumb, ok := value.(string)
		if !ok {
			return nil, apperrors.Invalid(field, "must be a string")
		}
		return thumb, nil
	}

	n, err := toInt(field, value)
	if err != nil {
		return nil, err
	}
	switch field {
	case "fps":
		err = validateRange(field, n, MinFPS, MaxFPS)
	case "width", "height":
		err = validateRange(field, n, MinDimension, MaxDimension)
	case "totalFrames":
		err = validateRange(field, n, 0, math.MaxInt32)
	}
	return n, err
}

func toInt(field string, value interface{}) (int, error) {
	switch v := value.(type) {
	case int:
		return v, nil
	case int32:
		return int(v), nil
	case int64:
		return int(v), nil
	case float64:
		if v != math.Trunc(v) || math.IsInf(v, 0) || math.IsNaN(v) {
			return 0, apperrors.Invalid(field, "must be an integer")
		}
		return int(v), nil
	default:
		return 0, apperrors.Invalid(field, "must be a number")
	}
}

func validateRange(field string, v, min, max int) error {
	if v < min || v > max {
		return apperrors.Invalid(field, "must be between %d and %d, got %d", min, max, v)
	}
	return nil
}

func validateTitle(title string) error {
	if len([]rune(title)) > MaxTitleLen {
		return apperrors.Invalid("title", "must be at most %d characters", MaxTitleLen)
	}
	return nil
}
