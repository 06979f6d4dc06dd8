package supabase

import (
	"context"
	"fmt"
	"strings"

	"desyn-backend/internal/apperrors"
	"desyn-backend/internal/models"
)

const profileColumns = "id,display_name,avatar_url,email"

// UserDirectory looks up user profiles in the profiles table through PostgREST.
type UserDirectory struct {
	client *Client
}

func NewUserDirectory(client *Client) *UserDirectory {
	return &UserDirectory{client: client}
}

func (u *UserDirectory) LookupByEmail(ctx context.Context, email string) (*models.Profile, error) {
	return u.lookup(ctx, "email", strings.ToLower(strings.TrimSpace(email)))
}

func (u *UserDirectory) LookupByID(ctx context.Context, uid string) (*models.Profile, error) {
	return u.lookup(ctx, "id", uid)
}

func (u *UserDirectory) lookup(ctx context.Context, column, value string) (*models.Profile, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var rows []models.Profile
	_, err := u.client.Supabase.From("profiles").
		Select(profileColumns, "", false).
		Eq(column, value).
		Limit(1, "").
		ExecuteTo(&rows)
	if err != nil {
		return nil, fmt.Errorf("failed to query profiles: %w", err)
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("no profile with %s %q: %w", column, value, apperrors.ErrUserNotFound)
	}
	return &rows[0], nil
}
