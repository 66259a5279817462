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

func seedTemplate(t *testing.T, db *gorm.DB, code string, from, until time.Time) *models.CouponTemplate {
	t.Helper()
	template := models.CouponTemplate{
		ID:             uuid.NewString(),
		Name:           code,
		Code:           code,
		DiscountAmount: decimal.NewFromInt(10),
		ValidFrom:      from,
		ValidUntil:     until,
	}
	require.NoError(t, db.Create(&template).Error)
	return &template
}

func TestClaimCouponOncePerMember(t *testing.T) {
	db := newTestDB(t)
	coupons := NewCouponService(db, NewLedgerService(db))
	member := newTestMember(t, db, 0, models.TierMember)
	template := seedTemplate(t, db, "summer-sale-10",
		time.Now().Add(-time.Hour), time.Now().Add(24*time.Hour))

	coupon, err := coupons.ClaimCoupon(member.ID, "summer-sale-10")
	require.NoError(t, err)
	assert.Equal(t, template.ID, coupon.TemplateID)
	assert.Nil(t, coupon.RedeemedAt)

	_, err = coupons.ClaimCoupon(member.ID, "summer-sale-10")
	assert.ErrorIs(t, err, ErrCouponAlreadyClaimed)

	// Another member claims the same template independently.
	other := newTestMember(t, db, 0, models.TierMember)
	_, err = coupons.ClaimCoupon(other.ID, "summer-sale-10")
	require.NoError(t, err)
}

func TestClaimCouponValidityWindow(t *testing.T) {
	db := newTestDB(t)
	coupons := NewCouponService(db, NewLedgerService(db))
	member := newTestMember(t, db, 0, models.TierMember)

	seedTemplate(t, db, "not-yet",
		time.Now().Add(time.Hour), time.Now().Add(24*time.Hour))
	seedTemplate(t, db, "long-gone",
		time.Now().Add(-48*time.Hour), time.Now().Add(-time.Hour))

	_, err := coupons.ClaimCoupon(member.ID, "not-yet")
	assert.ErrorIs(t, err, ErrInvalidInput)

	_, err = coupons.ClaimCoupon(member.ID, "long-gone")
	assert.ErrorIs(t, err, ErrInvalidInput)

	_, err = coupons.ClaimCoupon(member.ID, "no-such-code")
	assert.ErrorIs(t, err, ErrInvalidInput)
}
