package models

import "time"

// SubscriptionType is a purchasable plan tier.
type SubscriptionType struct {
	ID          uint   `gorm:"primaryKey" json:"id"`
	Title       string `gorm:"size:100;not null" json:"title"`
	Price       int    `gorm:"not null" json:"price"`
	Description string `gorm:"type:text" json:"description"`
	PostLimit   int    `gorm:"not null;default:1" json:"post_limit"`

	CreatedAt time.Time `json:"-"`
	UpdatedAt time.Time `json:"-"`
}

// TableName specifies the table name for GORM.
func (SubscriptionType) TableName() string {
	return "subscription_types"
}

// SubscriptionPayment records a user's purchase of a subscription type.
// The payment gateway's own identifiers are stored opaquely; the gateway
// protocol is handled outside this service.
type SubscriptionPayment struct {
	ID                 uint              `gorm:"primaryKey" json:"id"`
	UserID             uint              `gorm:"not null;index" json:"user_id"`
	SubscriptionTypeID uint              `gorm:"not null" json:"subscription_type_id"`
	SubscriptionType   *SubscriptionType `gorm:"foreignKey:SubscriptionTypeID" json:"subscription_type,omitempty"`
	PaymentMethodID    string            `gorm:"size:100" json:"payment_method_id"`
	PaymentIsFinished  bool              `gorm:"not null;default:false" json:"payment_is_finished"`
	CanceledAt         *time.Time        `json:"canceled_at,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"-"`
}

// TableName specifies the table name for GORM.
func (SubscriptionPayment) TableName() string {
	return "subscription_payments"
}

// Active reports whether the payment represents a live subscription.
func (p *SubscriptionPayment) Active() bool {
	return p.PaymentIsFinished && p.CanceledAt == nil
}
