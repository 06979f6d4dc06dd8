package models

import "time"

type Project struct {
	ID            string         `json:"-"`
	Title         string         `json:"title"`
	OwnerID       string         `json:"ownerId"`
	FPS           int            `json:"fps"`
	Width         int            `json:"width"`
	Height        int            `json:"height"`
	TotalFrames   int            `json:"totalFrames"`
	Thumbnail     string         `json:"thumbnail,omitempty"`
	AllowedUsers  []string       `json:"allowedUsers"`
	Collaborators []Collaborator `json:"collaborators,omitempty"`
	CreatedAt     time.Time      `json:"createdAt"`
	UpdatedAt     time.Time      `json:"updatedAt"`
}

// HasUser reports whether uid may read and write the project's frames.
func (p *Project) HasUser(uid string) bool {
	for _, u := range p.AllowedUsers {
		if u == uid {
			return true
		}
	}
	return false
}

// Collaborator is the denormalized profile snapshot kept on the project document.
// It may lag behind the live profile.
type Collaborator struct {
	UID         string    `json:"uid"`
	DisplayName string    `json:"displayName"`
	AvatarURL   string    `json:"avatarUrl,omitempty"`
	Email       string    `json:"email,omitempty"`
	JoinedAt    time.Time `json:"joinedAt"`
}

// Profile is a user directory entry.
type Profile struct {
	UID         string `json:"id"`
	DisplayName string `json:"display_name"`
	AvatarURL   string `json:"avatar_url"`
	Email       string `json:"email"`
}

func (p Profile) Snapshot(joinedAt time.Time) Collaborator {
	return Collaborator{
		UID:         p.UID,
		DisplayName: p.DisplayName,
		AvatarURL:   p.AvatarURL,
		Email:       p.Email,
		JoinedAt:    joinedAt,
	}
}
