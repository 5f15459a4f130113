package models

import "time"

// Exchange is one user's daily request-and-result record. ReceivedPostID is
// the only mutable field and transitions NULL -> non-NULL at most once.
// The unique index on (requester_user_id, exchange_date) caps a user at one
// exchange per calendar day.
type Exchange struct {
	ID              uint  `gorm:"primaryKey" json:"id"`
	RequesterUserID uint  `gorm:"not null;uniqueIndex:idx_exchanges_requester_date" json:"requester_user_id"`
	RequesterUser   User  `gorm:"foreignKey:RequesterUserID" json:"-"`
	SentPostID      uint  `gorm:"not null;index" json:"sent_post_id"`
	SentPost        *Post `gorm:"foreignKey:SentPostID" json:"sent_post,omitempty"`
	ReceivedPostID  *uint `gorm:"index" json:"received_post_id"`
	ReceivedPost    *Post `gorm:"foreignKey:ReceivedPostID" json:"received_post,omitempty"`
	// ExchangeDate is the calendar date in YYYY-MM-DD form.
	ExchangeDate string `gorm:"size:10;not null;uniqueIndex:idx_exchanges_requester_date" json:"exchange_date"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"-"`
}

// Resolved reports whether the exchange has been matched with a post.
func (e *Exchange) Resolved() bool {
	return e.ReceivedPostID != nil
}
