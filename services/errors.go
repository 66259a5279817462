package services

import (
	"errors"
	"fmt"
)

// Sentinel errors for the loyalty core. Handlers map these to HTTP status
// codes; use errors.Is to classify.
var (
	// ErrMemberNotFound is returned when a referenced member doesn't exist.
	ErrMemberNotFound = errors.New("member not found")

	// ErrOrderNotFound is returned when a referenced order doesn't exist.
	ErrOrderNotFound = errors.New("order not found")

	// ErrTokenNotFound is returned when a referenced redemption token doesn't exist.
	ErrTokenNotFound = errors.New("redemption token not found")

	// ErrNotClubMember is returned when an operation requires active club membership.
	ErrNotClubMember = errors.New("not a club member")

	// ErrInsufficientPoints is returned when a debit exceeds the available balance.
	// Wrapped by InsufficientPointsError which carries the shortfall.
	ErrInsufficientPoints = errors.New("insufficient points")

	// ErrInvalidInput is returned for a missing or malformed amount or reference.
	ErrInvalidInput = errors.New("invalid input")

	// ErrTokenNotActive is returned when consuming a token that is used or expired.
	ErrTokenNotActive = errors.New("redemption token not active")

	// ErrRewardNotActive is returned when transitioning a reward out of a terminal state.
	ErrRewardNotActive = errors.New("reward not active")

	// ErrCouponAlreadyClaimed enforces the one-coupon-per-template uniqueness.
	ErrCouponAlreadyClaimed = errors.New("coupon already claimed")
)

// InsufficientPointsError reports a balance shortage with full context.
type InsufficientPointsError struct {
	MemberID  string
	Balance   int64
	Requested int64
	Shortfall int64
}

func (e *InsufficientPointsError) Error() string {
	return fmt.Sprintf("insufficient points: balance %d, requested %d, shortfall %d",
		e.Balance, e.Requested, e.Shortfall)
}

func (e *InsufficientPointsError) Unwrap() error {
	return ErrInsufficientPoints
}

// IsClientError returns true if the error is due to invalid caller input rather
// than a persistence failure.
func IsClientError(err error) bool {
	return errors.Is(err, ErrInsufficientPoints) ||
		errors.Is(err, ErrNotClubMember) ||
		errors.Is(err, ErrInvalidInput) ||
		errors.Is(err, ErrTokenNotActive) ||
		errors.Is(err, ErrRewardNotActive) ||
		errors.Is(err, ErrCouponAlreadyClaimed)
}
