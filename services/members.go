// services/members.go
package services

import (
	"errors"
	"strconv"
	"strings"

	"loyalty-club-service/models"
	"loyalty-club-service/utils"

	"github.com/gofiber/fiber/v2"
	log "github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// MemberService handles the join flow and admin member lookups against the
// local ClubMember snapshot table.
type MemberService struct {
	DB     *gorm.DB
	Ledger *LedgerService
	Config utils.LoyaltyConfig
}

func NewMemberService(db *gorm.DB, ledger *LedgerService, cfg utils.LoyaltyConfig) *MemberService {
	return &MemberService{DB: db, Ledger: ledger, Config: cfg}
}

// JoinClub flips club_member true exactly once and grants the signup bonus.
// A second call is a success-with-no-op.
func (s *MemberService) JoinClub(externalUserID string) (*models.ClubMember, bool, error) {
	var member models.ClubMember
	if err := s.DB.Where("external_user_id = ?", externalUserID).First(&member).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, false, ErrMemberNotFound
		}
		return nil, false, err
	}

	if member.ClubMember {
		return &member, false, nil
	}

	err := s.DB.Transaction(func(tx *gorm.DB) error {
		// Guard against a concurrent join: only the flip from false counts.
		res := tx.Model(&models.ClubMember{}).
			Where("id = ? AND club_member = ?", member.ID, false).
			Update("club_member", true)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return nil
		}

		if s.Config.SignupBonus > 0 {
			balance, _, err := s.Ledger.ApplyDeltaTx(tx, member.ID, s.Config.SignupBonus,
				models.LedgerEntryEarn, "signup", "Welcome bonus for joining the club")
			if err != nil {
				return err
			}
			member.PointsBalance = balance
		}
		return nil
	})
	if err != nil {
		return nil, false, err
	}

	member.ClubMember = true
	log.Infof("member %s joined the club", member.ID)
	return &member, true, nil
}

// --- Handlers ---

// JoinClubEndpoint enrolls the authenticated user in the club.
func (s *MemberService) JoinClubEndpoint(c *fiber.Ctx) error {
	userID := c.Locals("user_id").(string)

	member, joined, err := s.JoinClub(userID)
	if err != nil {
		return c.Status(errorStatus(err)).JSON(fiber.Map{"error": "join failed", "cause": err.Error()})
	}

	return c.JSON(fiber.Map{
		"member_id":      member.ID,
		"club_member":    true,
		"already_joined": !joined,
		"points_balance": member.PointsBalance,
	})
}

// SearchMembers searches the local ClubMember table (admin view).
func (s *MemberService) SearchMembers(c *fiber.Ctx) error {
	query := c.Query("q", "")
	limitStr := c.Query("limit", "50")
	limit, err := strconv.Atoi(limitStr)
	if err != nil || limit <= 0 || limit > 100 {
		limit = 50
	}

	db := s.DB.Model(&models.ClubMember{}).Limit(limit)
	if query != "" {
		searchTerm := "%" + strings.ToLower(strings.TrimSpace(query)) + "%"
		db = db.Where("LOWER(email) LIKE ?", searchTerm)
	}

	var members []models.ClubMember
	if err := db.Find(&members).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "search failed", "cause": err.Error()})
	}

	type MemberSummary struct {
		ID             string      `json:"id"`
		ExternalUserID string      `json:"external_user_id"`
		Email          string      `json:"email"`
		PointsBalance  int64       `json:"points_balance"`
		ClubMember     bool        `json:"club_member"`
		Tier           models.Tier `json:"tier"`
	}

	res := make([]MemberSummary, len(members))
	for i, m := range members {
		res[i] = MemberSummary{
			ID:             m.ID,
			ExternalUserID: m.ExternalUserID,
			Email:          m.Email,
			PointsBalance:  m.PointsBalance,
			ClubMember:     m.ClubMember,
			Tier:           m.Tier,
		}
	}

	return c.JSON(res)
}
