package services

import (
	"fmt"
	"testing"
	"time"

	"loyalty-club-service/models"
	"loyalty-club-service/utils"

	"github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:loyalty_%d?mode=memory&cache=shared", time.Now().UnixNano())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	if err := db.AutoMigrate(
		&models.ClubMember{},
		&models.LedgerEntry{},
		&models.Reward{},
		&models.RedemptionToken{},
		&models.CouponTemplate{},
		&models.UserCoupon{},
		&models.OrderMirror{},
	); err != nil {
		t.Fatalf("migrate db: %v", err)
	}
	return db
}

func newTestMember(t *testing.T, db *gorm.DB, balance int64, tier models.Tier) *models.ClubMember {
	t.Helper()
	member := models.ClubMember{
		ID:             uuid.NewString(),
		ExternalUserID: uuid.NewString(),
		Email:          fmt.Sprintf("%s@example.com", uuid.NewString()[:8]),
		PointsBalance:  balance,
		ClubMember:     true,
		Tier:           tier,
	}
	if err := db.Create(&member).Error; err != nil {
		t.Fatalf("create member: %v", err)
	}
	return &member
}

func testConfig() utils.LoyaltyConfig {
	return utils.DefaultLoyaltyConfig
}

// recordingNotifier captures sent notifications for assertions.
type recordingNotifier struct {
	sent []sentNotification
}

type sentNotification struct {
	To      string
	Subject string
	Body    string
}

func (n *recordingNotifier) Send(toAddress, subject, body string) error {
	n.sent = append(n.sent, sentNotification{To: toAddress, Subject: subject, Body: body})
	return nil
}
