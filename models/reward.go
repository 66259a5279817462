package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// RewardStatus is the lifecycle state of a reward. Terminal states
// (expired, redeemed) are immutable.
type RewardStatus string

const (
	RewardStatusActive   RewardStatus = "active"
	RewardStatusExpired  RewardStatus = "expired"
	RewardStatusRedeemed RewardStatus = "redeemed"
)

// Reward is a spendable discount created by converting points. It carries its
// own expiry independent of the points that funded it.
type Reward struct {
	ID             string          `gorm:"primaryKey;type:uuid" json:"id"`
	MemberID       string          `gorm:"type:uuid;not null;index" json:"member_id"`
	DiscountAmount decimal.Decimal `gorm:"type:numeric(12,2);not null" json:"discount_amount"`
	PointsCost     int64           `gorm:"not null" json:"points_cost"`
	Status         RewardStatus    `gorm:"type:varchar(16);not null;default:'active';index" json:"status"`
	ExpiresAt      time.Time       `gorm:"not null;index" json:"expires_at"`

	Timestamps
}
