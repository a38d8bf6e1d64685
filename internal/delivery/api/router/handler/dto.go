package handler

import (
	"time"

	"threads/internal/domain/entity"
	"threads/internal/usecase"
	"threads/internal/util"
)

// ProfileResponse is the wire shape of a profile.
type ProfileResponse struct {
	ID              string  `json:"id"`
	FullName        string  `json:"fullname"`
	Email           string  `json:"email"`
	Username        string  `json:"username"`
	ProfileImageURL *string `json:"profileImageUrl,omitempty"`
	Bio             *string `json:"bio,omitempty"`
}

// ThreadResponse is the wire shape of a post with its joined author.
type ThreadResponse struct {
	ID        string           `json:"threadId"`
	OwnerUID  string           `json:"ownerUid"`
	Caption   string           `json:"caption"`
	Timestamp time.Time        `json:"timestamp"`
	Age       string           `json:"age"` // e.g. "3m", relative to the response time
	Likes     int              `json:"likes"`
	Author    *ProfileResponse `json:"author,omitempty"`
}

// SessionResponse is the wire shape of a session.
type SessionResponse struct {
	UID      string    `json:"uid"`
	Email    string    `json:"email"`
	Token    string    `json:"token"`
	IssuedAt time.Time `json:"issuedAt"`
}

// SnapshotResponse is the wire shape of a session store snapshot.
type SnapshotResponse struct {
	State   entity.SessionState `json:"state"`
	Version uint64              `json:"version"`
	Session *SessionResponse    `json:"session,omitempty"`
	Profile *ProfileResponse    `json:"profile,omitempty"`
}

func toProfileResponse(p *entity.Profile) *ProfileResponse {
	if p == nil {
		return nil
	}

	return &ProfileResponse{
		ID:              p.ID,
		FullName:        p.FullName,
		Email:           p.Email,
		Username:        p.Username,
		ProfileImageURL: p.ProfileImageURL,
		Bio:             p.Bio,
	}
}

func toProfileResponses(profiles []*entity.Profile) []*ProfileResponse {
	out := make([]*ProfileResponse, 0, len(profiles))
	for _, p := range profiles {
		out = append(out, toProfileResponse(p))
	}

	return out
}

func toThreadResponses(posts []*entity.Post, now time.Time) []*ThreadResponse {
	out := make([]*ThreadResponse, 0, len(posts))
	for _, p := range posts {
		out = append(out, toThreadResponse(p, now))
	}

	return out
}

func toThreadResponse(p *entity.Post, now time.Time) *ThreadResponse {
	return &ThreadResponse{
		ID:        p.ID,
		OwnerUID:  p.OwnerUID,
		Caption:   p.Caption,
		Timestamp: p.Timestamp,
		Age:       util.RelativeTime(p.Timestamp, now),
		Likes:     p.Likes,
		Author:    toProfileResponse(p.Author),
	}
}

func toSessionResponse(s *entity.Session) *SessionResponse {
	if s == nil {
		return nil
	}

	return &SessionResponse{UID: s.UID, Email: s.Email, Token: s.Token, IssuedAt: s.IssuedAt}
}

func toSnapshotResponse(s usecase.SessionSnapshot) *SnapshotResponse {
	return &SnapshotResponse{
		State:   s.State,
		Version: s.Version,
		Session: toSessionResponse(s.Session),
		Profile: toProfileResponse(s.Profile),
	}
}
