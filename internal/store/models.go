package store

import "time"

type User struct {
	ID                    string
	Name                  string
	Email                 string
	PasswordHash          string
	Role                  string
	IsEmailVerified       bool
	VerificationToken     string
	VerificationExpiresAt *time.Time
	CreatedAt             time.Time
	UpdatedAt             time.Time
}

type Post struct {
	ID        string
	Title     string
	Body      string
	AuthorID  string
	ImageIDs  []string
	CreatedAt time.Time
}

type Project struct {
	ID          string
	Title       string
	Description string
	AuthorID    string
	ImageID     string
	CreatedAt   time.Time
}

type Task struct {
	ID          string
	Title       string
	Description string
	ProjectID   string
	AuthorID    string
	Order       int
	Status      string
	CreatedAt   time.Time
}

type Comment struct {
	ID       string
	PostID   string
	AuthorID string
	// AuthorName is a snapshot taken at creation time; it is not kept in
	// sync with later changes to User.Name.
	AuthorName string
	Body       string
	CreatedAt  time.Time
}

type Image struct {
	ID        string
	StorageID string
	URL       string
	CreatedAt time.Time
}
