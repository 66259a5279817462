// services/reward_service.go
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

// RewardService owns the reward lifecycle: active → expired | redeemed.
// Opening a reward spends points through the LedgerService; expiry is
// reconciled by a sweep that external cron fires on a cadence.
type RewardService struct {
	DB       *gorm.DB
	Ledger   *LedgerService
	Notifier Notifier
	Config   utils.LoyaltyConfig
}

func NewRewardService(db *gorm.DB, ledger *LedgerService, notifier Notifier, cfg utils.LoyaltyConfig) *RewardService {
	return &RewardService{DB: db, Ledger: ledger, Notifier: notifier, Config: cfg}
}

// OpenReward converts PointsPerReward points into a new active reward expiring
// in RewardTTL. The sufficiency check runs inside the same transaction as the
// debit, so the ledger clamp is unreachable here.
func (s *RewardService) OpenReward(memberID string) (*models.Reward, int64, error) {
	cost := s.Config.PointsPerReward
	var reward models.Reward
	var newBalance int64

	err := s.DB.Transaction(func(tx *gorm.DB) error {
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

		if member.PointsBalance < cost {
			return &InsufficientPointsError{
				MemberID:  memberID,
				Balance:   member.PointsBalance,
				Requested: cost,
				Shortfall: cost - member.PointsBalance,
			}
		}

		balance, _, err := s.Ledger.ApplyDeltaTx(tx, memberID, -cost, models.LedgerEntryRewardOpened,
			"reward_system", fmt.Sprintf("Opened reward for %d points", cost))
		if err != nil {
			return err
		}
		newBalance = balance

		reward = models.Reward{
			ID:             uuid.NewString(),
			MemberID:       memberID,
			DiscountAmount: s.Config.RewardDiscountAmount,
			PointsCost:     cost,
			Status:         models.RewardStatusActive,
			ExpiresAt:      time.Now().Add(s.Config.RewardTTL),
		}
		return tx.Create(&reward).Error
	})
	if err != nil {
		return nil, 0, err
	}

	return &reward, newBalance, nil
}

// ExpireSweep transitions every active reward past its expiry to expired,
// appends an informational ledger entry, and notifies the member. Selecting on
// active status makes the sweep safe to re-run: already-expired rewards are
// never touched twice.
func (s *RewardService) ExpireSweep() (int, error) {
	var stale []models.Reward
	if err := s.DB.Where("status = ? AND expires_at < ?", models.RewardStatusActive, time.Now()).
		Find(&stale).Error; err != nil {
		return 0, err
	}

	expired := 0
	for _, reward := range stale {
		err := s.DB.Transaction(func(tx *gorm.DB) error {
			res := tx.Model(&models.Reward{}).
				Where("id = ? AND status = ?", reward.ID, models.RewardStatusActive).
				Update("status", models.RewardStatusExpired)
			if res.Error != nil {
				return res.Error
			}
			if res.RowsAffected == 0 {
				return nil // a concurrent sweep got there first
			}
			return s.Ledger.AppendInformationalTx(tx, reward.MemberID, models.LedgerEntryRewardExpired,
				"reward_system", fmt.Sprintf("Reward %s expired unused", reward.ID))
		})
		if err != nil {
			log.Errorf("failed to expire reward %s: %v", reward.ID, err)
			continue
		}
		expired++

		s.notifyExpired(reward)
	}

	return expired, nil
}

func (s *RewardService) notifyExpired(reward models.Reward) {
	var member models.ClubMember
	if err := s.DB.Where("id = ?", reward.MemberID).First(&member).Error; err != nil {
		log.Warnf("cannot notify member %s about expired reward: %v", reward.MemberID, err)
		return
	}
	subject, body := rewardExpiredMessage(reward)
	if err := s.Notifier.Send(member.Email, subject, body); err != nil {
		// Notification failures never roll back the expiry.
		log.Warnf("failed to notify member %s about expired reward %s: %v", member.ID, reward.ID, err)
	}
}

// MarkRedeemed records that the checkout flow redeemed a reward. Only active,
// unexpired rewards may transition; terminal states are immutable.
func (s *RewardService) MarkRedeemed(rewardID string) error {
	return s.DB.Transaction(func(tx *gorm.DB) error {
		var reward models.Reward
		if err := tx.Where("id = ?", rewardID).First(&reward).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return fmt.Errorf("%w: reward %s", ErrInvalidInput, rewardID)
			}
			return err
		}
		if reward.Status != models.RewardStatusActive || reward.ExpiresAt.Before(time.Now()) {
			return ErrRewardNotActive
		}

		res := tx.Model(&models.Reward{}).
			Where("id = ? AND status = ?", rewardID, models.RewardStatusActive).
			Update("status", models.RewardStatusRedeemed)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrRewardNotActive
		}
		return nil
	})
}

// --- User Handlers ---

// OpenRewardEndpoint opens a reward for the authenticated member.
func (s *RewardService) OpenRewardEndpoint(c *fiber.Ctx) error {
	userID := c.Locals("user_id").(string)

	member, err := s.Ledger.MemberByExternalID(userID)
	if err != nil {
		return c.Status(errorStatus(err)).JSON(fiber.Map{"error": "member not found", "cause": err.Error()})
	}

	reward, newBalance, err := s.OpenReward(member.ID)
	if err != nil {
		var insufficient *InsufficientPointsError
		if errors.As(err, &insufficient) {
			return c.Status(fiber.StatusUnprocessableEntity).JSON(fiber.Map{
				"error":     "insufficient points",
				"balance":   insufficient.Balance,
				"shortfall": insufficient.Shortfall,
			})
		}
		log.Errorf("open reward failed for member %s: %v", member.ID, err)
		return c.Status(errorStatus(err)).JSON(fiber.Map{"error": "failed to open reward", "cause": err.Error()})
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"reward_id":   reward.ID,
		"expires_at":  reward.ExpiresAt,
		"new_balance": newBalance,
	})
}

// GetUserRewards lists the authenticated member's rewards, newest first.
func (s *RewardService) GetUserRewards(c *fiber.Ctx) error {
	userID := c.Locals("user_id").(string)

	member, err := s.Ledger.MemberByExternalID(userID)
	if err != nil {
		return c.Status(errorStatus(err)).JSON(fiber.Map{"error": "member not found", "cause": err.Error()})
	}

	query := s.DB.Where("member_id = ?", member.ID)
	if status := c.Query("status"); status != "" {
		query = query.Where("status = ?", status)
	}

	var rewards []models.Reward
	if err := query.Order("created_at DESC").Find(&rewards).Error; err != nil {
		log.Errorf("DB error fetching rewards for member %s: %v", member.ID, err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "failed to fetch rewards"})
	}

	return c.JSON(rewards)
}

// --- Admin / Internal Handlers ---

// RunExpirySweep triggers the expiry sweep out-of-band. Returns counts only.
func (s *RewardService) RunExpirySweep(c *fiber.Ctx) error {
	count, err := s.ExpireSweep()
	if err != nil {
		log.Errorf("expiry sweep failed: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "sweep failed", "cause": err.Error()})
	}
	return c.JSON(fiber.Map{"expired_count": count})
}

// RedeemRewardEndpoint is called by the checkout collaborator when a reward is
// applied to an order.
func (s *RewardService) RedeemRewardEndpoint(c *fiber.Ctx) error {
	rewardID := c.Params("id")
	if _, err := uuid.Parse(rewardID); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid reward ID"})
	}

	if err := s.MarkRedeemed(rewardID); err != nil {
		return c.Status(errorStatus(err)).JSON(fiber.Map{"error": "redeem failed", "cause": err.Error()})
	}
	return c.JSON(fiber.Map{"message": "reward redeemed", "reward_id": rewardID})
}
