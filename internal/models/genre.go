package models

import "time"

// Genre is a music genre users tag posts with and register as preferences.
type Genre struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	Name      string    `gorm:"size:80;unique;not null" json:"name"`
	Slug      string    `gorm:"size:80;unique;not null" json:"slug"`
	SortOrder int       `gorm:"not null;default:0" json:"sort_order"`
	CreatedAt time.Time `json:"-"`
	UpdatedAt time.Time `json:"-"`
}
