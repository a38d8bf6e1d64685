package model

import (
	"time"

	"threads/internal/domain/entity"
)

// Field names of the threads collection.
const (
	PostKeyField       = "threadId"
	PostOwnerField     = "ownerUid"
	PostCaptionField   = "caption"
	PostTimestampField = "timestamp"
	PostLikesField     = "likes"
)

var postRequired = []string{
	PostKeyField,
	PostOwnerField,
	PostCaptionField,
	PostTimestampField,
	PostLikesField,
}

// PostModel mirrors a document of the 'threads' collection.
type PostModel struct {
	ThreadID  string    `doc:"threadId"`
	OwnerUID  string    `doc:"ownerUid"`
	Caption   string    `doc:"caption"`
	Timestamp time.Time `doc:"timestamp"`
	Likes     int64     `doc:"likes"`
}

// PostKey returns the minimal document addressing the post with id.
func PostKey(id string) Document {
	return Document{PostKeyField: id}
}

// FromPost encodes a post. The joined Author is never written.
func FromPost(p *entity.Post) Document {
	return Document{
		PostKeyField:       p.ID,
		PostOwnerField:     p.OwnerUID,
		PostCaptionField:   p.Caption,
		PostTimestampField: p.Timestamp,
		PostLikesField:     int64(p.Likes),
	}
}

// ToPost decodes a threads document. Author is left nil.
func ToPost(doc Document) (*entity.Post, error) {
	var m PostModel
	if err := decodeDocument("post", doc, postRequired, &m); err != nil {
		return nil, err
	}

	return &entity.Post{
		ID:        m.ThreadID,
		OwnerUID:  m.OwnerUID,
		Caption:   m.Caption,
		Timestamp: utc(m.Timestamp),
		Likes:     int(m.Likes),
	}, nil
}
