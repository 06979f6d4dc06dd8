package collab

import (
	"context"
	"errors"
	"strings"

	"desyn-backend/internal/apperrors"
	"desyn-backend/internal/docstore"
	"desyn-backend/internal/models"
)

// ProfilesCollection holds one document per user, keyed by user id.
const ProfilesCollection = "profiles"

// DocumentDirectory resolves users from the profiles collection of a document
// store. It backs deployments without a Supabase project.
type DocumentDirectory struct {
	db docstore.Store
}

func NewDocumentDirectory(db docstore.Store) *DocumentDirectory {
	return &DocumentDirectory{db: db}
}

// Register stores or replaces a profile. Emails are kept lowercase.
func (d *DocumentDirectory) Register(ctx context.Context, p models.Profile) error {
	if p.UID == "" {
		return apperrors.Invalid("id", "is required")
	}
	p.Email = strings.ToLower(strings.TrimSpace(p.Email))
	data, err := docstore.FromStruct(p)
	if err != nil {
		return err
	}
	if err := d.db.Set(ctx, ProfilesCollection, p.UID, data, false); err != nil {
		return apperrors.Persistence("register profile", err)
	}
	return nil
}

func (d *DocumentDirectory) LookupByEmail(ctx context.Context, email string) (*models.Profile, error) {
	q := docstore.Query{Limit: 1}.Where("email", docstore.OpEqual, strings.ToLower(email))
	docs, err := d.db.Query(ctx, ProfilesCollection, q)
	if err != nil {
		return nil, apperrors.Persistence("look up profile", err)
	}
	if len(docs) == 0 {
		return nil, apperrors.ErrUserNotFound
	}
	return toProfile(&docs[0])
}

func (d *DocumentDirectory) LookupByID(ctx context.Context, uid string) (*models.Profile, error) {
	doc, err := d.db.Get(ctx, ProfilesCollection, uid)
	if errors.Is(err, docstore.ErrNotFound) {
		return nil, apperrors.ErrUserNotFound
	}
	if err != nil {
		return nil, apperrors.Persistence("look up profile", err)
	}
	return toProfile(doc)
}

func toProfile(doc *docstore.Document) (*models.Profile, error) {
	var p models.Profile
	if err := doc.DataTo(&p); err != nil {
		return nil, err
	}
	if p.UID == "" {
		p.UID = doc.ID
	}
	return &p, nil
}
