// Package collab manages who may edit a project.
package collab

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/panjf2000/ants/v2"

	"desyn-backend/internal/apperrors"
	"desyn-backend/internal/docstore"
	"desyn-backend/internal/logger"
	"desyn-backend/internal/models"
	"desyn-backend/internal/project"
)

const DefaultLookupConcurrency = 8

const refreshAttempts = 3

// Directory resolves user profiles. Lookups of unknown users return
// apperrors.ErrUserNotFound.
type Directory interface {
	LookupByEmail(ctx context.Context, email string) (*models.Profile, error)
	LookupByID(ctx context.Context, uid string) (*models.Profile, error)
}

// AddResult describes the outcome of a successful add. Added is false when the
// user already had access.
type AddResult struct {
	Added        bool
	Message      string
	Collaborator models.Collaborator
}

type Manager struct {
	db       docstore.Store
	projects *project.Store
	dir      Directory
	pool     *ants.Pool
	now      func() time.Time
}

func NewManager(db docstore.Store, dir Directory, concurrency int) (*Manager, error) {
	if concurrency <= 0 {
		concurrency = DefaultLookupConcurrency
	}
	pool, err := ants.NewPool(concurrency, ants.WithPanicHandler(func(v any) {
		logger.Error("profile lookup panic", "panic", v)
	}))
	if err != nil {
		return nil, fmt.Errorf("failed to create lookup pool: %w", err)
	}
	return &Manager{
		db:       db,
		projects: project.NewStore(db),
		dir:      dir,
		pool:     pool,
		now:      time.Now,
	}, nil
}

func (m *Manager) Close() {
	_ = m.pool.ReleaseTimeout(3 * time.Second)
}

func IsOwner(p *models.Project, uid string) bool {
	return p != nil && uid != "" && p.OwnerID == uid
}

func CanEdit(p *models.Project, uid string) bool {
	return p != nil && uid != "" && p.HasUser(uid)
}

// AddCollaboratorByEmail grants the user registered under email access to the
// project. Only the owner may add collaborators.
func (m *Manager) AddCollaboratorByEmail(ctx context.Context, projectID, actingUID, email string) (*AddResult, error) {
	email = strings.TrimSpace(strings.ToLower(email))
	if email == "" {
		return nil, apperrors.Invalid("email", "is required")
	}

	p, err := m.projects.Get(ctx, projectID)
	if err != nil {
		return nil, err
	}
	if !IsOwner(p, actingUID) {
		return nil, fmt.Errorf("only the owner can add collaborators: %w", apperrors.ErrForbidden)
	}

	profile, err := m.dir.LookupByEmail(ctx, email)
	if err != nil {
		return nil, err
	}

	if p.HasUser(profile.UID) {
		existing := profile.Snapshot(time.Time{})
		for _, c := range p.Collaborators {
			if c.UID == profile.UID {
				existing = c
				break
			}
		}
		return &AddResult{
			Message:      apperrors.ErrAlreadyCollaborator.Error(),
			Collaborator: existing,
		}, nil
	}

	snapshot := profile.Snapshot(m.now().UTC())
	err = m.db.Update(ctx, project.Collection, projectID, map[string]interface{}{
		"allowedUsers":  docstore.ArrayUnion(profile.UID),
		"collaborators": docstore.ArrayUnion(snapshot),
		"updatedAt":     docstore.ServerTimestamp,
	})
	if err != nil {
		if errors.Is(err, docstore.ErrNotFound) {
			return nil, fmt.Errorf("project %s: %w", projectID, apperrors.ErrNotFound)
		}
		return nil, apperrors.Persistence("add collaborator", err)
	}

	logger.Info("collaborator added", "project_id", projectID, "user_id", profile.UID)
	return &AddResult{
		Added:        true,
		Message:      "collaborator added",
		Collaborator: snapshot,
	}, nil
}

// ListCollaboratorProfiles resolves uids concurrently. Failed lookups are
// omitted; the result keeps the order of the first occurrence of each uid.
func (m *Manager) ListCollaboratorProfiles(ctx context.Context, uids []string) []models.Profile {
	unique := make([]string, 0, len(uids))
	seen := make(map[string]bool, len(uids))
	for _, uid := range uids {
		if uid == "" || seen[uid] {
			continue
		}
		seen[uid] = true
		unique = append(unique, uid)
	}

	results := make([]*models.Profile, len(unique))
	var wg sync.WaitGroup
	for i, uid := range unique {
		i, uid := i, uid
		lookup := func() {
			defer wg.Done()
			profile, err := m.dir.LookupByID(ctx, uid)
			if err != nil {
				logger.Warn("profile lookup failed", "user_id", uid, "error", err)
				return
			}
			results[i] = profile
		}
		wg.Add(1)
		if err := m.pool.Submit(lookup); err != nil {
			lookup()
		}
	}
	wg.Wait()

	profiles := make([]models.Profile, 0, len(results))
	for _, p := range results {
		if p != nil {
			profiles = append(profiles, *p)
		}
	}
	return profiles
}

// RefreshProfiles rebuilds the denormalized collaborator snapshots of a project
// from the live directory. Entries whose lookup fails keep their old snapshot.
// The write only lands if the array is unchanged since it was read, so an add
// committed during the lookups is merged in on the next attempt.
func (m *Manager) RefreshProfiles(ctx context.Context, projectID string) ([]models.Collaborator, error) {
	current, raw, err := m.readCollaborators(ctx, projectID)
	if err != nil {
		return nil, err
	}
	uids := make([]string, 0, len(current))
	for _, c := range current {
		uids = append(uids, c.UID)
	}
	fresh := make(map[string]models.Profile, len(uids))
	for _, profile := range m.ListCollaboratorProfiles(ctx, uids) {
		fresh[profile.UID] = profile
	}

	for attempt := 0; attempt < refreshAttempts; attempt++ {
		if attempt > 0 {
			if current, raw, err = m.readCollaborators(ctx, projectID); err != nil {
				return nil, err
			}
		}

		collaborators := make([]models.Collaborator, 0, len(current))
		for _, c := range current {
			if profile, ok := fresh[c.UID]; ok {
				c = profile.Snapshot(c.JoinedAt)
			}
			collaborators = append(collaborators, c)
		}

		b := docstore.NewBatch().
			Update(project.Collection, projectID, map[string]interface{}{
				"collaborators": collaborators,
			}).
			RequireField(project.Collection, projectID, "collaborators", raw)
		err := m.db.Commit(ctx, b)
		switch {
		case err == nil:
			return collaborators, nil
		case errors.Is(err, docstore.ErrPrecondition):
			logger.Debug("collaborators changed during refresh, retrying", "project_id", projectID, "attempt", attempt+1)
			continue
		case errors.Is(err, docstore.ErrNotFound):
			return nil, fmt.Errorf("project %s: %w", projectID, apperrors.ErrNotFound)
		default:
			return nil, apperrors.Persistence("refresh collaborators", err)
		}
	}
	return nil, apperrors.Persistence("refresh collaborators", fmt.Errorf("collaborators kept changing after %d attempts", refreshAttempts))
}

// readCollaborators returns the de-duplicated collaborators of a project and
// the stored array exactly as read.
func (m *Manager) readCollaborators(ctx context.Context, projectID string) ([]models.Collaborator, interface{}, error) {
	doc, err := m.db.Get(ctx, project.Collection, projectID)
	if err != nil {
		if errors.Is(err, docstore.ErrNotFound) {
			return nil, nil, fmt.Errorf("project %s: %w", projectID, apperrors.ErrNotFound)
		}
		return nil, nil, apperrors.Persistence("get project", err)
	}
	var p models.Project
	if err := doc.DataTo(&p); err != nil {
		return nil, nil, apperrors.Persistence("decode project", err)
	}

	seen := make(map[string]bool, len(p.Collaborators))
	out := make([]models.Collaborator, 0, len(p.Collaborators))
	for _, c := range p.Collaborators {
		if seen[c.UID] {
			continue
		}
		seen[c.UID] = true
		out = append(out, c)
	}
	return out, doc.Data["collaborators"], nil
}
