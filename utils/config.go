// utils/config.go
package utils

import (
	"log"
	"os"
	"strconv"
	"time"

	"loyalty-club-service/models"

	"github.com/shopspring/decimal"
)

// LoyaltyConfig holds the tunable constants of the points program. Every value
// has a code default and can be overridden via environment variable.
type LoyaltyConfig struct {
	EarnRateMember decimal.Decimal // fraction of order total earned as points
	EarnRateSilver decimal.Decimal
	EarnRateGold   decimal.Decimal

	PointsPerReward      int64
	RewardDiscountAmount decimal.Decimal
	RewardTTL            time.Duration

	TokenTTL time.Duration

	GoldOrderThreshold   int // completed orders in trailing 6 months
	SilverOrderThreshold int

	BirthdayBonusGold   int64
	BirthdayBonusSilver int64
	BirthdayBonusMember int64

	SignupBonus int64
}

var DefaultLoyaltyConfig = LoyaltyConfig{
	EarnRateMember:       decimal.NewFromFloat(0.05),
	EarnRateSilver:       decimal.NewFromFloat(0.07),
	EarnRateGold:         decimal.NewFromFloat(0.10),
	PointsPerReward:      100,
	RewardDiscountAmount: decimal.NewFromInt(25),
	RewardTTL:            30 * 24 * time.Hour,
	TokenTTL:             5 * time.Minute,
	GoldOrderThreshold:   10,
	SilverOrderThreshold: 5,
	BirthdayBonusGold:    100,
	BirthdayBonusSilver:  75,
	BirthdayBonusMember:  50,
	SignupBonus:          50,
}

// LoadLoyaltyConfig returns the defaults with any environment overrides applied.
func LoadLoyaltyConfig() LoyaltyConfig {
	cfg := DefaultLoyaltyConfig
	cfg.EarnRateMember = envDecimal("EARN_RATE_MEMBER", cfg.EarnRateMember)
	cfg.EarnRateSilver = envDecimal("EARN_RATE_SILVER", cfg.EarnRateSilver)
	cfg.EarnRateGold = envDecimal("EARN_RATE_GOLD", cfg.EarnRateGold)
	cfg.PointsPerReward = envInt64("POINTS_PER_REWARD", cfg.PointsPerReward)
	cfg.RewardDiscountAmount = envDecimal("REWARD_DISCOUNT_AMOUNT", cfg.RewardDiscountAmount)
	cfg.RewardTTL = envDuration("REWARD_TTL", cfg.RewardTTL)
	cfg.TokenTTL = envDuration("REDEMPTION_TOKEN_TTL", cfg.TokenTTL)
	cfg.GoldOrderThreshold = int(envInt64("TIER_GOLD_ORDERS", int64(cfg.GoldOrderThreshold)))
	cfg.SilverOrderThreshold = int(envInt64("TIER_SILVER_ORDERS", int64(cfg.SilverOrderThreshold)))
	cfg.BirthdayBonusGold = envInt64("BIRTHDAY_BONUS_GOLD", cfg.BirthdayBonusGold)
	cfg.BirthdayBonusSilver = envInt64("BIRTHDAY_BONUS_SILVER", cfg.BirthdayBonusSilver)
	cfg.BirthdayBonusMember = envInt64("BIRTHDAY_BONUS_MEMBER", cfg.BirthdayBonusMember)
	cfg.SignupBonus = envInt64("SIGNUP_BONUS", cfg.SignupBonus)
	return cfg
}

// EarnRate returns the tier-dependent earn percentage.
func (c LoyaltyConfig) EarnRate(tier models.Tier) decimal.Decimal {
	switch tier {
	case models.TierGold:
		return c.EarnRateGold
	case models.TierSilver:
		return c.EarnRateSilver
	default:
		return c.EarnRateMember
	}
}

// BirthdayBonus returns the tier-dependent birthday point grant.
func (c LoyaltyConfig) BirthdayBonus(tier models.Tier) int64 {
	switch tier {
	case models.TierGold:
		return c.BirthdayBonusGold
	case models.TierSilver:
		return c.BirthdayBonusSilver
	default:
		return c.BirthdayBonusMember
	}
}

func envDecimal(key string, fallback decimal.Decimal) decimal.Decimal {
	raw := os.Getenv(key)
	if raw == "" {
		return fallback
	}
	d, err := decimal.NewFromString(raw)
	if err != nil {
		log.Printf("invalid %s=%q, using default %s", key, raw, fallback)
		return fallback
	}
	return d
}

func envInt64(key string, fallback int64) int64 {
	raw := os.Getenv(key)
	if raw == "" {
		return fallback
	}
	n, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		log.Printf("invalid %s=%q, using default %d", key, raw, fallback)
		return fallback
	}
	return n
}

func envDuration(key string, fallback time.Duration) time.Duration {
	raw := os.Getenv(key)
	if raw == "" {
		return fallback
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		log.Printf("invalid %s=%q, using default %s", key, raw, fallback)
		return fallback
	}
	return d
}
