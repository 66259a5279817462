// services/coupon_service.go
package services

import (
	"errors"
	"time"

	"loyalty-club-service/models"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/gosimple/slug"
	"github.com/shopspring/decimal"
	log "github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// CouponService issues per-member coupons from admin-defined templates. A
// member can claim each template at most once.
type CouponService struct {
	DB     *gorm.DB
	Ledger *LedgerService
}

func NewCouponService(db *gorm.DB, ledger *LedgerService) *CouponService {
	return &CouponService{DB: db, Ledger: ledger}
}

// ClaimCoupon instantiates a template for a member, enforcing the one-per-
// (member, template) uniqueness before creation.
func (s *CouponService) ClaimCoupon(memberID, templateCode string) (*models.UserCoupon, error) {
	var template models.CouponTemplate
	if err := s.DB.Where("code = ?", templateCode).First(&template).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrInvalidInput
		}
		return nil, err
	}

	now := time.Now()
	if now.Before(template.ValidFrom) || now.After(template.ValidUntil) {
		return nil, ErrInvalidInput
	}

	var count int64
	if err := s.DB.Model(&models.UserCoupon{}).
		Where("member_id = ? AND template_id = ?", memberID, template.ID).
		Count(&count).Error; err != nil {
		return nil, err
	}
	if count > 0 {
		return nil, ErrCouponAlreadyClaimed
	}

	coupon := models.UserCoupon{
		ID:         uuid.NewString(),
		MemberID:   memberID,
		TemplateID: template.ID,
	}
	if err := s.DB.Create(&coupon).Error; err != nil {
		return nil, err
	}
	coupon.Template = &template
	return &coupon, nil
}

// --- Admin Handlers ---

// CreateTemplate creates a coupon template; the code is slugged from the name.
func (s *CouponService) CreateTemplate(c *fiber.Ctx) error {
	var req struct {
		Name           string          `json:"name"`
		DiscountAmount decimal.Decimal `json:"discount_amount"`
		ValidFrom      time.Time       `json:"valid_from"`
		ValidUntil     time.Time       `json:"valid_until"`
	}
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid request body"})
	}
	if req.Name == "" || req.ValidUntil.Before(req.ValidFrom) {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "name and a valid window are required"})
	}

	template := models.CouponTemplate{
		ID:             uuid.NewString(),
		Name:           req.Name,
		Code:           slug.Make(req.Name),
		DiscountAmount: req.DiscountAmount,
		ValidFrom:      req.ValidFrom,
		ValidUntil:     req.ValidUntil,
	}
	if err := s.DB.Create(&template).Error; err != nil {
		log.Errorf("DB error creating coupon template: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "failed to create template"})
	}

	return c.Status(fiber.StatusCreated).JSON(template)
}

// --- User Handlers ---

// ClaimCouponEndpoint claims a template for the authenticated member.
func (s *CouponService) ClaimCouponEndpoint(c *fiber.Ctx) error {
	userID := c.Locals("user_id").(string)
	code := c.Params("code")

	member, err := s.Ledger.MemberByExternalID(userID)
	if err != nil {
		return c.Status(errorStatus(err)).JSON(fiber.Map{"error": "member not found", "cause": err.Error()})
	}

	coupon, err := s.ClaimCoupon(member.ID, code)
	if err != nil {
		if errors.Is(err, ErrCouponAlreadyClaimed) {
			return c.Status(fiber.StatusConflict).JSON(fiber.Map{"error": "coupon already claimed"})
		}
		return c.Status(errorStatus(err)).JSON(fiber.Map{"error": "claim failed", "cause": err.Error()})
	}

	return c.Status(fiber.StatusCreated).JSON(coupon)
}

// GetUserCoupons lists the authenticated member's coupons.
func (s *CouponService) GetUserCoupons(c *fiber.Ctx) error {
	userID := c.Locals("user_id").(string)

	member, err := s.Ledger.MemberByExternalID(userID)
	if err != nil {
		return c.Status(errorStatus(err)).JSON(fiber.Map{"error": "member not found", "cause": err.Error()})
	}

	var coupons []models.UserCoupon
	if err := s.DB.Preload("Template").
		Where("member_id = ?", member.ID).
		Order("created_at DESC").
		Find(&coupons).Error; err != nil {
		log.Errorf("DB error fetching coupons for member %s: %v", member.ID, err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "failed to fetch coupons"})
	}

	return c.JSON(coupons)
}
