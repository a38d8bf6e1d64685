package entity

import "time"

// Post is one user-authored thread.
type Post struct {
	ID        string    // Assigned by the document store on creation.
	OwnerUID  string    // Author; references an existing Profile at creation time.
	Caption   string    // Text body.
	Timestamp time.Time // Assigned by the document store on creation.
	Likes     int

	// Author is joined in by the reader and never persisted.
	Author *Profile
}
