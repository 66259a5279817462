package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Tier is the membership rank derived from trailing purchase volume.
type Tier string

const (
	TierMember Tier = "member"
	TierSilver Tier = "silver"
	TierGold   Tier = "gold"
)

// ClubMember is a local snapshot of user data needed for the loyalty program.
// Owned and managed solely by the loyalty service; profile fields are populated
// via sync worker from the profile service's user table. PointsBalance is the
// cached projection of the ledger and may only be written by the LedgerService.
type ClubMember struct {
	ID             string `gorm:"primaryKey;type:uuid" json:"id"`
	ExternalUserID string `gorm:"uniqueIndex;not null" json:"external_user_id"` // The profile service's UUID
	Email          string `gorm:"index" json:"email,omitempty"`

	PointsBalance int64 `gorm:"not null;default:0" json:"points_balance"`
	ClubMember    bool  `gorm:"default:false;index" json:"club_member"`

	Tier              Tier       `gorm:"type:varchar(16);not null;default:'member'" json:"tier"`
	TierAchievedAt    *time.Time `json:"tier_achieved_at,omitempty"`
	OrdersLast6Months int        `gorm:"column:orders_last_6_months;default:0" json:"orders_last_6_months"`

	Birthday                *time.Time `json:"birthday,omitempty"`
	BirthdayRewardGrantedAt *time.Time `json:"birthday_reward_granted_at,omitempty"`
	BirthdayRewardExpiresAt *time.Time `json:"birthday_reward_expires_at,omitempty"`

	MonthlyFreeShippingUsed bool       `gorm:"default:false" json:"monthly_free_shipping_used"`
	LastMonthlyReset        *time.Time `json:"last_monthly_reset,omitempty"`

	MarketingOptIn bool       `gorm:"default:false" json:"marketing_opt_in"`
	UnsubscribedAt *time.Time `json:"unsubscribed_at,omitempty"`

	Timestamps
}

func (m *ClubMember) BeforeCreate(tx *gorm.DB) error {
	if m.ID == "" {
		m.ID = uuid.NewString()
	}
	return nil
}

// Timestamps adds GORM auto-times
type Timestamps struct {
	CreatedAt time.Time      `json:"created_at" gorm:"autoCreateTime"`
	UpdatedAt time.Time      `json:"updated_at" gorm:"autoUpdateTime"`
	DeletedAt gorm.DeletedAt `json:"deleted_at,omitempty" gorm:"index"`
}
