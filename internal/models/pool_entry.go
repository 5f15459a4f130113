package models

import "time"

// PoolEntry is a consumable token making one post available for matching.
// It transitions is_consumed false -> true exactly once; the transition is a
// conditional update so concurrent consumers cannot both win.
type PoolEntry struct {
	ID         uint       `gorm:"primaryKey" json:"id"`
	PostID     uint       `gorm:"not null;index" json:"post_id"`
	Post       *Post      `gorm:"foreignKey:PostID" json:"post,omitempty"`
	IsConsumed bool       `gorm:"not null;default:false;index" json:"is_consumed"`
	ConsumedAt *time.Time `json:"consumed_at,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"-"`
}
