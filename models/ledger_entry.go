package models

import "time"

// LedgerEntryType tags what kind of balance change an entry records.
type LedgerEntryType string

const (
	LedgerEntryEarn            LedgerEntryType = "earn"
	LedgerEntryAdminAdd        LedgerEntryType = "admin_add"
	LedgerEntryAdminDeduct     LedgerEntryType = "admin_deduct"
	LedgerEntryAdminAdjustment LedgerEntryType = "admin_adjustment"
	LedgerEntryRewardOpened    LedgerEntryType = "reward_opened"
	LedgerEntryRewardExpired   LedgerEntryType = "reward_expired"
	LedgerEntryRedeemed        LedgerEntryType = "redeemed"
	LedgerEntryBirthdayBonus   LedgerEntryType = "birthday_bonus"
)

// LedgerEntry is one immutable balance-changing event. Entries are append-only:
// no UpdatedAt, no soft delete, never mutated after creation. Corrections are
// made with a new admin_adjustment entry, not edits.
//
// BalanceAfter snapshots the member's cached balance at the moment the entry
// was appended; replaying all amounts in creation order (clamped at zero after
// each step) must reproduce the current PointsBalance exactly.
type LedgerEntry struct {
	ID           string          `gorm:"primaryKey;type:uuid" json:"id"`
	MemberID     string          `gorm:"type:uuid;not null;index" json:"member_id"`
	Type         LedgerEntryType `gorm:"type:varchar(32);not null;index" json:"type"`
	Amount       int64           `gorm:"not null" json:"amount"` // signed: positive = credit, negative = debit
	Source       string          `gorm:"type:varchar(128);index" json:"source"` // order number, "admin", "birthday", "reward_system"
	Description  string          `gorm:"type:text" json:"description"`
	BalanceAfter int64           `gorm:"not null" json:"balance_after"`
	CreatedAt    time.Time       `gorm:"autoCreateTime;index" json:"created_at"`
}
