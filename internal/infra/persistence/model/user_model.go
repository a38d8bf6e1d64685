package model

import (
	"threads/internal/domain/entity"
)

// Field names of the users collection.
const (
	ProfileKeyField      = "id"
	ProfileFullNameField = "fullname"
	ProfileEmailField    = "email"
	ProfileUsernameField = "username"
	ProfileImageURLField = "profileImageUrl"
	ProfileBioField      = "bio"
)

var profileRequired = []string{
	ProfileKeyField,
	ProfileFullNameField,
	ProfileEmailField,
	ProfileUsernameField,
}

// ProfileModel mirrors a document of the 'users' collection.
type ProfileModel struct {
	ID              string  `doc:"id"`
	FullName        string  `doc:"fullname"`
	Email           string  `doc:"email"`
	Username        string  `doc:"username"`
	ProfileImageURL *string `doc:"profileImageUrl"`
	Bio             *string `doc:"bio"`
}

// ProfileKey returns the minimal document addressing the profile with id.
func ProfileKey(id string) Document {
	return Document{ProfileKeyField: id}
}

// FromProfile encodes a profile. Optional fields are written only when set.
func FromProfile(p *entity.Profile) Document {
	doc := Document{
		ProfileKeyField:      p.ID,
		ProfileFullNameField: p.FullName,
		ProfileEmailField:    p.Email,
		ProfileUsernameField: p.Username,
	}
	if p.ProfileImageURL != nil {
		doc[ProfileImageURLField] = *p.ProfileImageURL
	}
	if p.Bio != nil {
		doc[ProfileBioField] = *p.Bio
	}

	return doc
}

// ToProfile decodes a users document into a domain profile.
func ToProfile(doc Document) (*entity.Profile, error) {
	var m ProfileModel
	if err := decodeDocument("profile", doc, profileRequired, &m); err != nil {
		return nil, err
	}

	return &entity.Profile{
		ID:              m.ID,
		FullName:        m.FullName,
		Email:           m.Email,
		Username:        m.Username,
		ProfileImageURL: m.ProfileImageURL,
		Bio:             m.Bio,
	}, nil
}
