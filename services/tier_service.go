// services/tier_service.go
package services

import (
	"time"

	"loyalty-club-service/models"
	"loyalty-club-service/utils"

	"github.com/gofiber/fiber/v2"
	log "github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// TierService recomputes membership tiers from trailing purchase history.
// Tier gates the earn rate and birthday bonus size.
type TierService struct {
	DB       *gorm.DB
	Notifier Notifier
	Config   utils.LoyaltyConfig
}

func NewTierService(db *gorm.DB, notifier Notifier, cfg utils.LoyaltyConfig) *TierService {
	return &TierService{DB: db, Notifier: notifier, Config: cfg}
}

func (s *TierService) tierForOrders(count int) models.Tier {
	switch {
	case count >= s.Config.GoldOrderThreshold:
		return models.TierGold
	case count >= s.Config.SilverOrderThreshold:
		return models.TierSilver
	default:
		return models.TierMember
	}
}

// RecomputeAll recomputes the tier of every club member from completed orders
// in the trailing 6-month window. Idempotent: unchanged inputs produce no
// update and no notification.
func (s *TierService) RecomputeAll() (checked, updated int, err error) {
	var members []models.ClubMember
	if err := s.DB.Where("club_member = ?", true).Find(&members).Error; err != nil {
		return 0, 0, err
	}

	for i := range members {
		checked++
		changed, err := s.RecomputeMember(&members[i])
		if err != nil {
			log.Errorf("tier recompute failed for member %s: %v", members[i].ID, err)
			continue
		}
		if changed {
			updated++
		}
	}
	return checked, updated, nil
}

// RecomputeMember recounts the member's trailing orders and applies the tier
// band. A band change updates tier, stamps tier_achieved_at and notifies once;
// a count-only change updates the count silently.
func (s *TierService) RecomputeMember(member *models.ClubMember) (bool, error) {
	since := time.Now().AddDate(0, -6, 0)

	var orderCount int64
	if err := s.DB.Model(&models.OrderMirror{}).
		Where("external_user_id = ? AND status = ? AND completed_at >= ?",
			member.ExternalUserID, "completed", since).
		Count(&orderCount).Error; err != nil {
		return false, err
	}
	count := int(orderCount)

	newTier := s.tierForOrders(count)
	if newTier == member.Tier {
		if count != member.OrdersLast6Months {
			if err := s.DB.Model(&models.ClubMember{}).
				Where("id = ?", member.ID).
				Update("orders_last_6_months", count).Error; err != nil {
				return false, err
			}
			member.OrdersLast6Months = count
		}
		return false, nil
	}

	now := time.Now()
	if err := s.DB.Model(&models.ClubMember{}).
		Where("id = ?", member.ID).
		Updates(map[string]interface{}{
			"tier":                 newTier,
			"tier_achieved_at":     now,
			"orders_last_6_months": count,
		}).Error; err != nil {
		return false, err
	}

	member.Tier = newTier
	member.TierAchievedAt = &now
	member.OrdersLast6Months = count

	subject, body := tierChangedMessage(newTier, count)
	if err := s.Notifier.Send(member.Email, subject, body); err != nil {
		// Tier change is final regardless of notification delivery.
		log.Warnf("failed to notify member %s about tier change: %v", member.ID, err)
	}

	log.Infof("member %s moved to tier %s (%d orders in window)", member.ID, newTier, count)
	return true, nil
}

// RunTierRecompute triggers the recompute out-of-band. Returns counts only.
func (s *TierService) RunTierRecompute(c *fiber.Ctx) error {
	checked, updated, err := s.RecomputeAll()
	if err != nil {
		log.Errorf("tier recompute failed: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "recompute failed", "cause": err.Error()})
	}
	return c.JSON(fiber.Map{"users_checked": checked, "users_updated": updated})
}
