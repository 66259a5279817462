// services/token_service.go
package services

import (
	"errors"
	"fmt"
	"time"

	"loyalty-club-service/models"
	"loyalty-club-service/utils"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// TokenService issues and consumes redemption tokens: short-lived reservations
// of a points amount for an in-progress checkout. Creation does not debit
// points; the debit happens at consumption, which re-validates everything.
type TokenService struct {
	DB     *gorm.DB
	Ledger *LedgerService
	Config utils.LoyaltyConfig
}

func NewTokenService(db *gorm.DB, ledger *LedgerService, cfg utils.LoyaltyConfig) *TokenService {
	return &TokenService{DB: db, Ledger: ledger, Config: cfg}
}

// CreateToken reserves pointsAmount for the member's checkout window. Requires
// active club membership and a currently sufficient balance. Several active
// tokens may together exceed the balance; consumption re-checks sufficiency.
func (s *TokenService) CreateToken(memberID string, pointsAmount int64) (*models.RedemptionToken, error) {
	if pointsAmount <= 0 {
		return nil, fmt.Errorf("%w: points amount must be positive", ErrInvalidInput)
	}

	var member models.ClubMember
	if err := s.DB.Where("id = ?", memberID).First(&member).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrMemberNotFound
		}
		return nil, err
	}
	if !member.ClubMember {
		return nil, ErrNotClubMember
	}
	if member.PointsBalance < pointsAmount {
		return nil, &InsufficientPointsError{
			MemberID:  memberID,
			Balance:   member.PointsBalance,
			Requested: pointsAmount,
			Shortfall: pointsAmount - member.PointsBalance,
		}
	}

	token := models.RedemptionToken{
		ID:           uuid.NewString(),
		MemberID:     memberID,
		PointsAmount: pointsAmount,
		Status:       models.TokenStatusActive,
		ExpiresAt:    time.Now().Add(s.Config.TokenTTL),
	}
	if err := s.DB.Create(&token).Error; err != nil {
		return nil, err
	}
	return &token, nil
}

// ConsumeToken marks the token used exactly once and debits its points amount,
// in one transaction. Expiry is evaluated lazily here: a stale token is
// transitioned to expired and rejected.
func (s *TokenService) ConsumeToken(tokenID, orderRef string) (int64, error) {
	if orderRef == "" {
		return 0, fmt.Errorf("%w: order reference is required", ErrInvalidInput)
	}

	var token models.RedemptionToken
	if err := s.DB.Where("id = ?", tokenID).First(&token).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return 0, ErrTokenNotFound
		}
		return 0, err
	}

	// Lazy expiry runs outside the debit transaction so the transition commits
	// even though the consumption is rejected.
	if token.Status == models.TokenStatusActive && token.ExpiresAt.Before(time.Now()) {
		if err := s.DB.Model(&models.RedemptionToken{}).
			Where("id = ? AND status = ?", tokenID, models.TokenStatusActive).
			Update("status", models.TokenStatusExpired).Error; err != nil {
			return 0, err
		}
		return 0, ErrTokenNotActive
	}
	if token.Status != models.TokenStatusActive {
		return 0, ErrTokenNotActive
	}

	var newBalance int64
	err := s.DB.Transaction(func(tx *gorm.DB) error {
		if err := lockMember(tx, token.MemberID); err != nil {
			return err
		}

		var member models.ClubMember
		if err := tx.Where("id = ?", token.MemberID).First(&member).Error; err != nil {
			return err
		}
		if member.PointsBalance < token.PointsAmount {
			return &InsufficientPointsError{
				MemberID:  member.ID,
				Balance:   member.PointsBalance,
				Requested: token.PointsAmount,
				Shortfall: token.PointsAmount - member.PointsBalance,
			}
		}

		// Single-use guard: the status and expiry predicates make a concurrent
		// second consumption, or a token that expired since the read above, a
		// no-op update.
		res := tx.Model(&models.RedemptionToken{}).
			Where("id = ? AND status = ? AND expires_at > ?", tokenID, models.TokenStatusActive, time.Now()).
			Updates(map[string]interface{}{"status": models.TokenStatusUsed, "order_ref": orderRef})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrTokenNotActive
		}

		balance, _, err := s.Ledger.ApplyDeltaTx(tx, token.MemberID, -token.PointsAmount,
			models.LedgerEntryRedeemed, orderRef,
			fmt.Sprintf("Redeemed %d points on order %s", token.PointsAmount, orderRef))
		if err != nil {
			return err
		}
		newBalance = balance
		return nil
	})
	if err != nil {
		return 0, err
	}
	return newBalance, nil
}

// --- Handlers ---

// CreateTokenEndpoint issues a redemption token for the authenticated member.
func (s *TokenService) CreateTokenEndpoint(c *fiber.Ctx) error {
	userID := c.Locals("user_id").(string)

	var req struct {
		PointsAmount int64 `json:"points_amount"`
	}
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid request body"})
	}

	member, err := s.Ledger.MemberByExternalID(userID)
	if err != nil {
		return c.Status(errorStatus(err)).JSON(fiber.Map{"error": "member not found", "cause": err.Error()})
	}

	token, err := s.CreateToken(member.ID, req.PointsAmount)
	if err != nil {
		var insufficient *InsufficientPointsError
		if errors.As(err, &insufficient) {
			return c.Status(fiber.StatusUnprocessableEntity).JSON(fiber.Map{
				"error":     "insufficient points",
				"balance":   insufficient.Balance,
				"shortfall": insufficient.Shortfall,
			})
		}
		return c.Status(errorStatus(err)).JSON(fiber.Map{"error": "failed to create token", "cause": err.Error()})
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"token_id":   token.ID,
		"expires_at": token.ExpiresAt,
	})
}

// ConsumeTokenEndpoint is called by the checkout collaborator to finalize a
// points redemption against an order.
func (s *TokenService) ConsumeTokenEndpoint(c *fiber.Ctx) error {
	tokenID := c.Params("id")
	if _, err := uuid.Parse(tokenID); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid token ID"})
	}

	var req struct {
		OrderRef string `json:"order_ref"`
	}
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid request body"})
	}

	newBalance, err := s.ConsumeToken(tokenID, req.OrderRef)
	if err != nil {
		log.Warnf("token consumption failed for %s: %v", tokenID, err)
		return c.Status(errorStatus(err)).JSON(fiber.Map{"error": "consume failed", "cause": err.Error()})
	}

	return c.JSON(fiber.Map{"token_id": tokenID, "new_balance": newBalance})
}
