package services

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIsClientError(t *testing.T) {
	clientErrs := []error{
		ErrNotClubMember,
		ErrInvalidInput,
		ErrTokenNotActive,
		ErrRewardNotActive,
		ErrCouponAlreadyClaimed,
		&InsufficientPointsError{Balance: 10, Requested: 30, Shortfall: 20},
		fmt.Errorf("wrapped: %w", ErrInvalidInput),
	}
	for _, err := range clientErrs {
		assert.True(t, IsClientError(err), "expected client error: %v", err)
	}

	assert.False(t, IsClientError(ErrMemberNotFound))
	assert.False(t, IsClientError(fmt.Errorf("connection reset")))
}

func TestInsufficientPointsErrorUnwrapsToSentinel(t *testing.T) {
	err := &InsufficientPointsError{MemberID: "m", Balance: 80, Requested: 100, Shortfall: 20}
	assert.ErrorIs(t, err, ErrInsufficientPoints)
	assert.Contains(t, err.Error(), "shortfall 20")
}
