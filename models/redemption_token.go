package models

import "time"

// TokenStatus is the lifecycle state of a redemption token. Single-use: once
// the status leaves active it never returns.
type TokenStatus string

const (
	TokenStatusActive  TokenStatus = "active"
	TokenStatusUsed    TokenStatus = "used"
	TokenStatusExpired TokenStatus = "expired"
)

// RedemptionToken reserves a points amount for an in-progress checkout. It does
// not debit points on creation; the debit happens when the checkout flow
// consumes the token within its 5-minute window.
type RedemptionToken struct {
	ID           string      `gorm:"primaryKey;type:uuid" json:"id"`
	MemberID     string      `gorm:"type:uuid;not null;index" json:"member_id"`
	PointsAmount int64       `gorm:"not null" json:"points_amount"`
	Status       TokenStatus `gorm:"type:varchar(16);not null;default:'active';index" json:"status"`
	ExpiresAt    time.Time   `gorm:"not null" json:"expires_at"`
	OrderRef     *string     `gorm:"type:varchar(128)" json:"order_ref,omitempty"` // set when consumed

	Timestamps
}
