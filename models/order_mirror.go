package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// OrderMirror mirrors completed-order data from the commerce service.
// Populated via sync worker; read by the earn flow and the tier engine.
// Table name: order_mirror
type OrderMirror struct {
	ID             string          `gorm:"primaryKey;type:uuid;not null" json:"id"`
	OrderNumber    string          `gorm:"type:varchar(64);not null;uniqueIndex" json:"order_number"` // Primary lookup key
	ExternalUserID string          `gorm:"type:uuid;not null;index" json:"external_user_id"`
	Total          decimal.Decimal `gorm:"type:numeric(12,2);not null" json:"total"`
	Status         string          `gorm:"type:varchar(32);not null;index" json:"status"` // only "completed" orders earn points
	CompletedAt    time.Time       `gorm:"not null;index" json:"completed_at"`
	CreatedAt      time.Time       `gorm:"not null" json:"created_at"`
	UpdatedAt      time.Time       `gorm:"not null" json:"updated_at"`

	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
}

func (o *OrderMirror) BeforeCreate(tx *gorm.DB) error {
	if o.ID == "" {
		o.ID = uuid.NewString()
	}
	return nil
}

func (OrderMirror) TableName() string { return "order_mirror" }
