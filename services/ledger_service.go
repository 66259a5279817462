// services/ledger_service.go
package services

import (
	"errors"
	"fmt"

	"loyalty-club-service/models"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// LedgerService is the single choke point through which every points balance
// change must pass. It owns write access to ClubMember.PointsBalance and to
// LedgerEntry creation; all other services route mutations through ApplyDelta.
type LedgerService struct {
	DB *gorm.DB
}

func NewLedgerService(db *gorm.DB) *LedgerService {
	return &LedgerService{DB: db}
}

// ApplyDelta applies a signed points delta to a member and appends the matching
// ledger entry, atomically. The computed balance is clamped at zero: a debit
// larger than the balance partially succeeds rather than failing. Flows that
// must not be clamped (reward opening, token consumption) check sufficiency
// before calling.
func (s *LedgerService) ApplyDelta(memberID string, delta int64, entryType models.LedgerEntryType, source, description string) (int64, string, error) {
	var newBalance int64
	var entryID string
	err := s.DB.Transaction(func(tx *gorm.DB) error {
		var txErr error
		newBalance, entryID, txErr = s.ApplyDeltaTx(tx, memberID, delta, entryType, source, description)
		return txErr
	})
	if err != nil {
		return 0, "", err
	}
	return newBalance, entryID, nil
}

// ApplyDeltaTx is ApplyDelta inside a caller-owned transaction, for flows that
// need the debit and their own writes (token consumption, reward creation) to
// commit or roll back together.
func (s *LedgerService) ApplyDeltaTx(tx *gorm.DB, memberID string, delta int64, entryType models.LedgerEntryType, source, description string) (int64, string, error) {
	if delta == 0 {
		return 0, "", fmt.Errorf("%w: delta must be a nonzero integer", ErrInvalidInput)
	}

	// Serialize concurrent mutations per member. On Postgres this takes an
	// advisory lock scoped to the transaction; sqlite is single-writer.
	if err := lockMember(tx, memberID); err != nil {
		return 0, "", err
	}

	var member models.ClubMember
	if err := tx.Where("id = ?", memberID).First(&member).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return 0, "", ErrMemberNotFound
		}
		return 0, "", err
	}

	newBalance := member.PointsBalance + delta
	if newBalance < 0 {
		newBalance = 0 // balance clamping
	}

	if err := tx.Model(&models.ClubMember{}).
		Where("id = ?", memberID).
		Update("points_balance", newBalance).Error; err != nil {
		return 0, "", err
	}

	entry := models.LedgerEntry{
		ID:           uuid.NewString(),
		MemberID:     memberID,
		Type:         entryType,
		Amount:       delta,
		Source:       source,
		Description:  description,
		BalanceAfter: newBalance,
	}
	if err := tx.Create(&entry).Error; err != nil {
		return 0, "", err
	}

	return newBalance, entry.ID, nil
}

// AppendInformationalTx appends a zero-amount ledger entry that records an
// event without affecting the balance (e.g. reward_expired). BalanceAfter
// snapshots the current balance so replay stays exact.
func (s *LedgerService) AppendInformationalTx(tx *gorm.DB, memberID string, entryType models.LedgerEntryType, source, description string) error {
	// Serialize against concurrent ApplyDelta calls so the snapshot matches
	// the entry's position in the ledger.
	if err := lockMember(tx, memberID); err != nil {
		return err
	}

	var member models.ClubMember
	if err := tx.Where("id = ?", memberID).First(&member).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrMemberNotFound
		}
		return err
	}

	entry := models.LedgerEntry{
		ID:           uuid.NewString(),
		MemberID:     memberID,
		Type:         entryType,
		Amount:       0,
		Source:       source,
		Description:  description,
		BalanceAfter: member.PointsBalance,
	}
	return tx.Create(&entry).Error
}

func lockMember(tx *gorm.DB, memberID string) error {
	if tx.Dialector.Name() == "postgres" {
		return tx.Exec("SELECT pg_advisory_xact_lock(hashtext(?))", memberID).Error
	}
	return nil
}

// HasEarnEntry probes the ledger for an existing earn entry keyed by order
// number. Callers of the earn flow own this idempotency check.
func (s *LedgerService) HasEarnEntry(memberID, orderNumber string) (bool, error) {
	var count int64
	err := s.DB.Model(&models.LedgerEntry{}).
		Where("member_id = ? AND source = ? AND type = ?", memberID, orderNumber, models.LedgerEntryEarn).
		Count(&count).Error
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

// History returns the member's ledger entries in creation order.
func (s *LedgerService) History(memberID string) ([]models.LedgerEntry, error) {
	var entries []models.LedgerEntry
	err := s.DB.Where("member_id = ?", memberID).
		Order("created_at ASC").
		Find(&entries).Error
	return entries, err
}

// Replay recomputes the balance from the full ledger, clamping at zero after
// each step. The result must equal the cached PointsBalance (reconciliation
// invariant).
func (s *LedgerService) Replay(memberID string) (int64, error) {
	entries, err := s.History(memberID)
	if err != nil {
		return 0, err
	}
	var balance int64
	for _, e := range entries {
		balance += e.Amount
		if balance < 0 {
			balance = 0
		}
	}
	return balance, nil
}

// MemberByExternalID resolves the local member snapshot for a gateway user ID.
func (s *LedgerService) MemberByExternalID(externalUserID string) (*models.ClubMember, error) {
	var member models.ClubMember
	if err := s.DB.Where("external_user_id = ?", externalUserID).First(&member).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrMemberNotFound
		}
		return nil, err
	}
	return &member, nil
}

// --- User Handlers ---

// GetLoyaltyStatus returns the authenticated member's balance, tier and benefit flags.
func (s *LedgerService) GetLoyaltyStatus(c *fiber.Ctx) error {
	userID := c.Locals("user_id").(string)

	member, err := s.MemberByExternalID(userID)
	if err != nil {
		return c.Status(errorStatus(err)).JSON(fiber.Map{"error": "member not found", "cause": err.Error()})
	}

	return c.JSON(fiber.Map{
		"member_id":                  member.ID,
		"points_balance":             member.PointsBalance,
		"club_member":                member.ClubMember,
		"tier":                       member.Tier,
		"tier_achieved_at":           member.TierAchievedAt,
		"orders_last_6_months":       member.OrdersLast6Months,
		"monthly_free_shipping_used": member.MonthlyFreeShippingUsed,
	})
}

// GetHistory returns the authenticated member's ledger, oldest first.
func (s *LedgerService) GetHistory(c *fiber.Ctx) error {
	userID := c.Locals("user_id").(string)

	member, err := s.MemberByExternalID(userID)
	if err != nil {
		return c.Status(errorStatus(err)).JSON(fiber.Map{"error": "member not found", "cause": err.Error()})
	}

	entries, err := s.History(member.ID)
	if err != nil {
		log.Errorf("DB error fetching ledger for member %s: %v", member.ID, err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "failed to fetch ledger"})
	}

	return c.JSON(fiber.Map{"member_id": member.ID, "entries": entries})
}

// --- Admin Handlers ---

// AdjustPoints applies a manual admin correction. The target must be an active
// club member. Mode "coarse" records admin_add/admin_deduct by sign; the
// default records a single admin_adjustment entry.
func (s *LedgerService) AdjustPoints(c *fiber.Ctx) error {
	var req struct {
		MemberID string `json:"member_id"`
		Delta    int64  `json:"delta"`
		Reason   string `json:"reason"`
		Mode     string `json:"mode"` // "" | "coarse"
	}
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid request body"})
	}
	if req.MemberID == "" || req.Delta == 0 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "member_id and a nonzero delta are required"})
	}

	var member models.ClubMember
	if err := s.DB.Where("id = ?", req.MemberID).First(&member).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "member not found"})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "DB error"})
	}
	if !member.ClubMember {
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": "target is not an active club member"})
	}

	entryType := models.LedgerEntryAdminAdjustment
	if req.Mode == "coarse" {
		if req.Delta > 0 {
			entryType = models.LedgerEntryAdminAdd
		} else {
			entryType = models.LedgerEntryAdminDeduct
		}
	}

	newBalance, entryID, err := s.ApplyDelta(member.ID, req.Delta, entryType, "admin", req.Reason)
	if err != nil {
		log.Errorf("admin adjustment failed for member %s: %v", member.ID, err)
		return c.Status(errorStatus(err)).JSON(fiber.Map{"error": "adjustment failed", "cause": err.Error()})
	}

	log.Infof("admin adjusted member %s by %d (%s)", member.ID, req.Delta, entryType)
	return c.JSON(fiber.Map{
		"member_id":       member.ID,
		"new_balance":     newBalance,
		"ledger_entry_id": entryID,
	})
}

// GetMemberLedger returns a member's full ledger (admin view).
func (s *LedgerService) GetMemberLedger(c *fiber.Ctx) error {
	memberID := c.Params("id")
	if _, err := uuid.Parse(memberID); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid member ID"})
	}

	entries, err := s.History(memberID)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "failed to fetch ledger"})
	}
	return c.JSON(fiber.Map{"member_id": memberID, "entries": entries})
}

// ReconcileMember replays a member's ledger and compares it with the cached
// balance (admin audit view).
func (s *LedgerService) ReconcileMember(c *fiber.Ctx) error {
	memberID := c.Params("id")
	if _, err := uuid.Parse(memberID); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid member ID"})
	}

	var member models.ClubMember
	if err := s.DB.Where("id = ?", memberID).First(&member).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "member not found"})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "DB error"})
	}

	replayed, err := s.Replay(memberID)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "replay failed"})
	}

	return c.JSON(fiber.Map{
		"member_id":  memberID,
		"cached":     member.PointsBalance,
		"replayed":   replayed,
		"consistent": replayed == member.PointsBalance,
	})
}

func errorStatus(err error) int {
	switch {
	case errors.Is(err, ErrMemberNotFound), errors.Is(err, ErrOrderNotFound),
		errors.Is(err, ErrTokenNotFound), errors.Is(err, gorm.ErrRecordNotFound):
		return fiber.StatusNotFound
	case errors.Is(err, ErrNotClubMember):
		return fiber.StatusForbidden
	case errors.Is(err, ErrInvalidInput):
		return fiber.StatusBadRequest
	case errors.Is(err, ErrInsufficientPoints):
		return fiber.StatusUnprocessableEntity
	case errors.Is(err, ErrTokenNotActive), errors.Is(err, ErrRewardNotActive), errors.Is(err, ErrCouponAlreadyClaimed):
		return fiber.StatusConflict
	default:
		return fiber.StatusInternalServerError
	}
}
