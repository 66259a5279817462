package services

import (
	"fmt"
	"testing"
	"time"

	"loyalty-club-service/models"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func seedCompletedOrders(t *testing.T, db *gorm.DB, externalUserID string, count int, completedAt time.Time) {
	t.Helper()
	for i := 0; i < count; i++ {
		seedOrder(t, db, externalUserID,
			fmt.Sprintf("TIER-%s-%d", externalUserID[:8], i),
			decimal.NewFromInt(50), "completed")
		require.NoError(t, db.Model(&models.OrderMirror{}).
			Where("order_number = ?", fmt.Sprintf("TIER-%s-%d", externalUserID[:8], i)).
			Update("completed_at", completedAt).Error)
	}
}

func TestRecomputePromotesToGold(t *testing.T) {
	db := newTestDB(t)
	notifier := &recordingNotifier{}
	tiers := NewTierService(db, notifier, testConfig())
	member := newTestMember(t, db, 0, models.TierSilver)
	seedCompletedOrders(t, db, member.ExternalUserID, 12, time.Now().AddDate(0, -1, 0))

	checked, updated, err := tiers.RecomputeAll()
	require.NoError(t, err)
	assert.Equal(t, 1, checked)
	assert.Equal(t, 1, updated)

	var reloaded models.ClubMember
	require.NoError(t, db.First(&reloaded, "id = ?", member.ID).Error)
	assert.Equal(t, models.TierGold, reloaded.Tier)
	assert.NotNil(t, reloaded.TierAchievedAt)
	assert.Equal(t, 12, reloaded.OrdersLast6Months)
	assert.Len(t, notifier.sent, 1)

	// A re-run with unchanged inputs is silent.
	checked, updated, err = tiers.RecomputeAll()
	require.NoError(t, err)
	assert.Equal(t, 1, checked)
	assert.Equal(t, 0, updated)
	assert.Len(t, notifier.sent, 1)
}

func TestRecomputeDemotesWhenWindowDrains(t *testing.T) {
	db := newTestDB(t)
	notifier := &recordingNotifier{}
	tiers := NewTierService(db, notifier, testConfig())
	member := newTestMember(t, db, 0, models.TierGold)
	// All orders fell out of the trailing 6-month window.
	seedCompletedOrders(t, db, member.ExternalUserID, 12, time.Now().AddDate(0, -8, 0))

	_, updated, err := tiers.RecomputeAll()
	require.NoError(t, err)
	assert.Equal(t, 1, updated)

	var reloaded models.ClubMember
	require.NoError(t, db.First(&reloaded, "id = ?", member.ID).Error)
	assert.Equal(t, models.TierMember, reloaded.Tier)
	assert.Equal(t, 0, reloaded.OrdersLast6Months)
	assert.Len(t, notifier.sent, 1)
}

func TestRecomputeSilverBand(t *testing.T) {
	db := newTestDB(t)
	tiers := NewTierService(db, &recordingNotifier{}, testConfig())
	member := newTestMember(t, db, 0, models.TierMember)
	seedCompletedOrders(t, db, member.ExternalUserID, 5, time.Now().AddDate(0, -2, 0))

	changed, err := tiers.RecomputeMember(member)
	require.NoError(t, err)
	assert.True(t, changed)
	assert.Equal(t, models.TierSilver, member.Tier)
}

func TestRecomputeCountOnlyChangeIsSilent(t *testing.T) {
	db := newTestDB(t)
	notifier := &recordingNotifier{}
	tiers := NewTierService(db, notifier, testConfig())
	member := newTestMember(t, db, 0, models.TierMember)
	// 3 orders stays inside the member band; only the counter moves.
	seedCompletedOrders(t, db, member.ExternalUserID, 3, time.Now().AddDate(0, -1, 0))

	changed, err := tiers.RecomputeMember(member)
	require.NoError(t, err)
	assert.False(t, changed)
	assert.Empty(t, notifier.sent)

	var reloaded models.ClubMember
	require.NoError(t, db.First(&reloaded, "id = ?", member.ID).Error)
	assert.Equal(t, models.TierMember, reloaded.Tier)
	assert.Equal(t, 3, reloaded.OrdersLast6Months)
	assert.Nil(t, reloaded.TierAchievedAt)
}

func TestRecomputeIgnoresNonMembers(t *testing.T) {
	db := newTestDB(t)
	tiers := NewTierService(db, &recordingNotifier{}, testConfig())
	member := newTestMember(t, db, 0, models.TierMember)
	require.NoError(t, db.Model(&models.ClubMember{}).
		Where("id = ?", member.ID).
		Update("club_member", false).Error)

	checked, _, err := tiers.RecomputeAll()
	require.NoError(t, err)
	assert.Equal(t, 0, checked)
}
