// services/sweep_service.go
package services

import (
	"fmt"
	"time"

	"loyalty-club-service/models"
	"loyalty-club-service/utils"

	"github.com/gofiber/fiber/v2"
	log "github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// SweepService runs the calendar-driven batch passes: birthday bonuses and the
// monthly free-shipping reset. Both are invoked on an external cadence and are
// safe to re-run within the same day/month.
type SweepService struct {
	DB       *gorm.DB
	Ledger   *LedgerService
	Notifier Notifier
	Config   utils.LoyaltyConfig
}

func NewSweepService(db *gorm.DB, ledger *LedgerService, notifier Notifier, cfg utils.LoyaltyConfig) *SweepService {
	return &SweepService{DB: db, Ledger: ledger, Notifier: notifier, Config: cfg}
}

// BirthdaySweep grants the tier-dependent bonus to every club member whose
// birthday month-day is today and who hasn't been granted one this calendar
// year. The granted_at year check makes re-runs within the year no-ops.
func (s *SweepService) BirthdaySweep() (int, error) {
	var members []models.ClubMember
	if err := s.DB.Where("club_member = ? AND birthday IS NOT NULL", true).
		Find(&members).Error; err != nil {
		return 0, err
	}

	now := time.Now()
	processed := 0
	for i := range members {
		member := &members[i]
		if member.Birthday.Month() != now.Month() || member.Birthday.Day() != now.Day() {
			continue
		}
		if member.BirthdayRewardGrantedAt != nil && member.BirthdayRewardGrantedAt.Year() == now.Year() {
			continue // already granted this year
		}

		granted, bonus, err := s.grantBirthdayBonus(member, now)
		if err != nil {
			log.Errorf("birthday grant failed for member %s: %v", member.ID, err)
			continue
		}
		if !granted {
			continue // an overlapping sweep granted first
		}
		processed++

		subject, body := birthdayBonusMessage(member.Tier, bonus)
		if err := s.Notifier.Send(member.Email, subject, body); err != nil {
			// The grant stands even when the email doesn't go out.
			log.Warnf("failed to send birthday notification to member %s: %v", member.ID, err)
		}
	}

	return processed, nil
}

// grantBirthdayBonus stamps the grant and credits the bonus in one transaction.
// The stamp is guarded on birthday_reward_granted_at still being from a prior
// year, so two overlapping sweeps holding the same stale member row grant at
// most once.
func (s *SweepService) grantBirthdayBonus(member *models.ClubMember, now time.Time) (bool, int64, error) {
	bonus := s.Config.BirthdayBonus(member.Tier)
	expiresAt := now.Add(30 * 24 * time.Hour)
	yearStart := time.Date(now.Year(), time.January, 1, 0, 0, 0, 0, now.Location())

	granted := false
	err := s.DB.Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&models.ClubMember{}).
			Where("id = ? AND (birthday_reward_granted_at IS NULL OR birthday_reward_granted_at < ?)",
				member.ID, yearStart).
			Updates(map[string]interface{}{
				"birthday_reward_granted_at": now,
				"birthday_reward_expires_at": expiresAt,
			})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return nil
		}

		_, _, err := s.Ledger.ApplyDeltaTx(tx, member.ID, bonus, models.LedgerEntryBirthdayBonus,
			"birthday", fmt.Sprintf("Birthday bonus (%s tier)", member.Tier))
		if err != nil {
			return err
		}
		granted = true
		return nil
	})
	if err != nil {
		return false, 0, err
	}
	return granted, bonus, nil
}

// MonthlyResetSweep clears the free-shipping flag for gold members once per
// calendar month. Benefit flag only: no ledger interaction.
func (s *SweepService) MonthlyResetSweep() (int, error) {
	var members []models.ClubMember
	if err := s.DB.Where("club_member = ? AND tier = ?", true, models.TierGold).
		Find(&members).Error; err != nil {
		return 0, err
	}

	now := time.Now()
	reset := 0
	for i := range members {
		member := &members[i]
		if member.LastMonthlyReset != nil &&
			member.LastMonthlyReset.Year() == now.Year() &&
			member.LastMonthlyReset.Month() == now.Month() {
			continue
		}

		if err := s.DB.Model(&models.ClubMember{}).
			Where("id = ?", member.ID).
			Updates(map[string]interface{}{
				"monthly_free_shipping_used": false,
				"last_monthly_reset":         now,
			}).Error; err != nil {
			log.Errorf("monthly reset failed for member %s: %v", member.ID, err)
			continue
		}
		reset++
	}

	return reset, nil
}

// --- Admin Handlers ---

// RunBirthdaySweep triggers the birthday sweep out-of-band. Returns counts only.
func (s *SweepService) RunBirthdaySweep(c *fiber.Ctx) error {
	count, err := s.BirthdaySweep()
	if err != nil {
		log.Errorf("birthday sweep failed: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "sweep failed", "cause": err.Error()})
	}
	return c.JSON(fiber.Map{"processed_count": count})
}

// RunMonthlyReset triggers the monthly benefit reset out-of-band.
func (s *SweepService) RunMonthlyReset(c *fiber.Ctx) error {
	count, err := s.MonthlyResetSweep()
	if err != nil {
		log.Errorf("monthly reset sweep failed: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "sweep failed", "cause": err.Error()})
	}
	return c.JSON(fiber.Map{"reset_count": count})
}
