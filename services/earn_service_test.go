package services

import (
	"testing"
	"time"

	"loyalty-club-service/models"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func seedOrder(t *testing.T, db *gorm.DB, externalUserID, orderNumber string, total decimal.Decimal, status string) {
	t.Helper()
	order := models.OrderMirror{
		ID:             uuid.NewString(),
		OrderNumber:    orderNumber,
		ExternalUserID: externalUserID,
		Total:          total,
		Status:         status,
		CompletedAt:    time.Now(),
	}
	require.NoError(t, db.Create(&order).Error)
}

func TestEarnOnOrderGoldRate(t *testing.T) {
	db := newTestDB(t)
	ledger := NewLedgerService(db)
	earn := NewEarnService(db, ledger, testConfig())
	member := newTestMember(t, db, 0, models.TierGold)
	seedOrder(t, db, member.ExternalUserID, "ORD-100", decimal.NewFromInt(1000), "completed")

	result, err := earn.EarnOnOrder("ORD-100")
	require.NoError(t, err)
	assert.Equal(t, int64(100), result.PointsGranted) // 1000 * 0.10
	assert.Equal(t, int64(100), result.NewBalance)
	assert.False(t, result.AlreadyEarned)
}

func TestEarnOnOrderFloorsFractionalPoints(t *testing.T) {
	db := newTestDB(t)
	ledger := NewLedgerService(db)
	earn := NewEarnService(db, ledger, testConfig())
	member := newTestMember(t, db, 0, models.TierMember)
	seedOrder(t, db, member.ExternalUserID, "ORD-101", decimal.NewFromFloat(199.99), "completed")

	result, err := earn.EarnOnOrder("ORD-101")
	require.NoError(t, err)
	assert.Equal(t, int64(9), result.PointsGranted) // floor(199.99 * 0.05)
}

func TestEarnOnOrderIdempotent(t *testing.T) {
	db := newTestDB(t)
	ledger := NewLedgerService(db)
	earn := NewEarnService(db, ledger, testConfig())
	member := newTestMember(t, db, 0, models.TierGold)
	seedOrder(t, db, member.ExternalUserID, "ORD-102", decimal.NewFromInt(1000), "completed")

	first, err := earn.EarnOnOrder("ORD-102")
	require.NoError(t, err)
	assert.Equal(t, int64(100), first.PointsGranted)

	second, err := earn.EarnOnOrder("ORD-102")
	require.NoError(t, err)
	assert.True(t, second.AlreadyEarned)
	assert.Equal(t, int64(0), second.PointsGranted)
	assert.Equal(t, int64(100), second.NewBalance)

	entries, err := ledger.History(member.ID)
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}

func TestEarnOnOrderRejectsIncompleteOrder(t *testing.T) {
	db := newTestDB(t)
	ledger := NewLedgerService(db)
	earn := NewEarnService(db, ledger, testConfig())
	member := newTestMember(t, db, 0, models.TierMember)
	seedOrder(t, db, member.ExternalUserID, "ORD-103", decimal.NewFromInt(500), "pending")

	_, err := earn.EarnOnOrder("ORD-103")
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestEarnOnOrderUnknownOrder(t *testing.T) {
	db := newTestDB(t)
	earn := NewEarnService(db, NewLedgerService(db), testConfig())

	_, err := earn.EarnOnOrder("ORD-MISSING")
	assert.ErrorIs(t, err, ErrOrderNotFound)
}

func TestEarnOnOrderUnknownMember(t *testing.T) {
	db := newTestDB(t)
	earn := NewEarnService(db, NewLedgerService(db), testConfig())
	seedOrder(t, db, uuid.NewString(), "ORD-104", decimal.NewFromInt(500), "completed")

	_, err := earn.EarnOnOrder("ORD-104")
	assert.ErrorIs(t, err, ErrMemberNotFound)
}

func TestEarnOnOrderTinyTotalGrantsNothing(t *testing.T) {
	db := newTestDB(t)
	ledger := NewLedgerService(db)
	earn := NewEarnService(db, ledger, testConfig())
	member := newTestMember(t, db, 0, models.TierMember)
	seedOrder(t, db, member.ExternalUserID, "ORD-105", decimal.NewFromFloat(10.00), "completed")

	result, err := earn.EarnOnOrder("ORD-105")
	require.NoError(t, err)
	assert.Equal(t, int64(0), result.PointsGranted)

	// 10.00 * 0.05 = 0.5 → floors to zero, and no entry is written.
	entries, err := ledger.History(member.ID)
	require.NoError(t, err)
	assert.Empty(t, entries)
}
