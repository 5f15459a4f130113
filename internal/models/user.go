// Package models contains data structures for the application's domain models.
package models

import (
	"time"
)

// User represents a registered member of the exchange.
type User struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	Username  string    `gorm:"size:50;unique;not null" json:"username"`
	Email     string    `gorm:"size:254;unique;not null" json:"email"`
	Password  string    `gorm:"not null" json:"-"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
	// Genres are the user's registered preference genres. A user with no
	// preference genres never receives a pool match.
	Genres []Genre `gorm:"many2many:user_genres" json:"genres,omitempty"`
}
