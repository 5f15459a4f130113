package models

import "time"

// Post is one user's daily submission. The composite unique index on
// (user_id, post_date) enforces the one-post-per-day invariant; a violation
// is the final race arbiter for concurrent double posts.
type Post struct {
	ID      uint  `gorm:"primaryKey" json:"id"`
	UserID  uint  `gorm:"not null;uniqueIndex:idx_posts_user_date" json:"user_id"`
	User    User  `gorm:"foreignKey:UserID" json:"user,omitempty"`
	TrackID uint  `gorm:"not null;index" json:"track_id"`
	Track   Track `gorm:"foreignKey:TrackID" json:"track"`
	// PostDate is the calendar date in YYYY-MM-DD form. Stored as a string so
	// day-equality and uniqueness behave identically on Postgres and SQLite.
	PostDate string  `gorm:"size:10;not null;uniqueIndex:idx_posts_user_date" json:"post_date"`
	Comment  *string `gorm:"type:text" json:"comment,omitempty"`
	Genres   []Genre `gorm:"many2many:post_genres" json:"genres,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"-"`
}
