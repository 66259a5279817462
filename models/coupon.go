package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// CouponTemplate defines a discount shape and validity window. Per-user
// instances are created from it at most once per (member, template) pair.
type CouponTemplate struct {
	ID             string          `gorm:"primaryKey;type:uuid" json:"id"`
	Name           string          `gorm:"not null" json:"name"`
	Code           string          `gorm:"uniqueIndex;not null" json:"code"` // slug of Name, e.g. "summer-sale-10"
	DiscountAmount decimal.Decimal `gorm:"type:numeric(12,2);not null" json:"discount_amount"`
	ValidFrom      time.Time       `gorm:"not null" json:"valid_from"`
	ValidUntil     time.Time       `gorm:"not null" json:"valid_until"`

	Timestamps
}

// UserCoupon is a per-member instantiation of a CouponTemplate.
type UserCoupon struct {
	ID         string     `gorm:"primaryKey;type:uuid" json:"id"`
	MemberID   string     `gorm:"type:uuid;not null;index:idx_user_coupon_member_template,unique" json:"member_id"`
	TemplateID string     `gorm:"type:uuid;not null;index:idx_user_coupon_member_template,unique" json:"template_id"`
	RedeemedAt *time.Time `json:"redeemed_at,omitempty"`

	Template *CouponTemplate `gorm:"foreignKey:TemplateID" json:"template,omitempty"`

	Timestamps
}
