// services/earn_service.go
package services

import (
	"errors"
	"fmt"

	"loyalty-club-service/models"
	"loyalty-club-service/utils"

	"github.com/gofiber/fiber/v2"
	log "github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// EarnService converts completed orders into point grants. It is a trigger
// collaborator: it computes the delta and reason, then hands the mutation to
// the LedgerService.
type EarnService struct {
	DB     *gorm.DB
	Ledger *LedgerService
	Config utils.LoyaltyConfig
}

func NewEarnService(db *gorm.DB, ledger *LedgerService, cfg utils.LoyaltyConfig) *EarnService {
	return &EarnService{DB: db, Ledger: ledger, Config: cfg}
}

// EarnResult reports what a single earn invocation did.
type EarnResult struct {
	MemberID       string `json:"member_id"`
	PointsGranted  int64  `json:"points_granted"`
	NewBalance     int64  `json:"new_balance"`
	AlreadyEarned  bool   `json:"already_earned"`
}

// EarnOnOrder grants floor(order_total * tier_earn_rate) points for a completed
// order, exactly once per order number. Re-invocations are a success-with-no-op.
func (s *EarnService) EarnOnOrder(orderNumber string) (*EarnResult, error) {
	var order models.OrderMirror
	if err := s.DB.Where("order_number = ?", orderNumber).First(&order).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrOrderNotFound
		}
		return nil, err
	}
	if order.Status != "completed" {
		return nil, fmt.Errorf("%w: order %s is not completed", ErrInvalidInput, orderNumber)
	}

	member, err := s.Ledger.MemberByExternalID(order.ExternalUserID)
	if err != nil {
		return nil, err
	}

	// Idempotency gate: one earn entry per order number, owned by this caller.
	already, err := s.Ledger.HasEarnEntry(member.ID, orderNumber)
	if err != nil {
		return nil, err
	}
	if already {
		return &EarnResult{MemberID: member.ID, NewBalance: member.PointsBalance, AlreadyEarned: true}, nil
	}

	rate := s.Config.EarnRate(member.Tier)
	points := order.Total.Mul(rate).Floor().IntPart()
	if points <= 0 {
		return &EarnResult{MemberID: member.ID, NewBalance: member.PointsBalance}, nil
	}

	newBalance, _, err := s.Ledger.ApplyDelta(member.ID, points, models.LedgerEntryEarn,
		orderNumber, fmt.Sprintf("Points earned on order %s", orderNumber))
	if err != nil {
		return nil, err
	}

	log.Infof("earned %d points for member %s on order %s", points, member.ID, orderNumber)
	return &EarnResult{MemberID: member.ID, PointsGranted: points, NewBalance: newBalance}, nil
}

// EarnOrderEndpoint is the internal hook the commerce side calls when an order
// completes. Safe to call repeatedly with the same order number.
func (s *EarnService) EarnOrderEndpoint(c *fiber.Ctx) error {
	orderNumber := c.Params("orderNumber")
	if orderNumber == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "order number is required"})
	}

	result, err := s.EarnOnOrder(orderNumber)
	if err != nil {
		return c.Status(errorStatus(err)).JSON(fiber.Map{"error": "earn failed", "cause": err.Error()})
	}

	return c.JSON(result)
}
