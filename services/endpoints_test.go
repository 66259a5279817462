package services

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"loyalty-club-service/models"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// newTestApp mounts the user-facing endpoints behind a stub of the gateway
// user-context middleware.
func newTestApp(ledger *LedgerService, rewards *RewardService, tokens *TokenService) *fiber.App {
	app := fiber.New()
	app.Use(func(c *fiber.Ctx) error {
		userID := c.Get("X-User-ID")
		if userID == "" {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "missing user context"})
		}
		c.Locals("user_id", userID)
		return c.Next()
	})
	app.Get("/user/loyalty", ledger.GetLoyaltyStatus)
	app.Get("/user/loyalty/history", ledger.GetHistory)
	app.Post("/user/rewards/open", rewards.OpenRewardEndpoint)
	app.Post("/user/redemption-tokens", tokens.CreateTokenEndpoint)
	return app
}

func doJSON(t *testing.T, app *fiber.App, method, path, userID string, payload any) (*http.Response, map[string]any) {
	t.Helper()
	var body io.Reader
	if payload != nil {
		raw, err := json.Marshal(payload)
		require.NoError(t, err)
		body = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, body)
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if userID != "" {
		req.Header.Set("X-User-ID", userID)
	}
	resp, err := app.Test(req)
	require.NoError(t, err)

	var parsed map[string]any
	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	if len(raw) > 0 {
		require.NoError(t, json.Unmarshal(raw, &parsed))
	}
	return resp, parsed
}

func TestLoyaltyStatusEndpoint(t *testing.T) {
	db := newTestDB(t)
	ledger := NewLedgerService(db)
	rewards := NewRewardService(db, ledger, &recordingNotifier{}, testConfig())
	tokens := NewTokenService(db, ledger, testConfig())
	app := newTestApp(ledger, rewards, tokens)

	member := newTestMember(t, db, 240, models.TierSilver)

	resp, parsed := doJSON(t, app, http.MethodGet, "/user/loyalty", member.ExternalUserID, nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, member.ID, parsed["member_id"])
	assert.Equal(t, float64(240), parsed["points_balance"])
	assert.Equal(t, "silver", parsed["tier"])

	resp, _ = doJSON(t, app, http.MethodGet, "/user/loyalty", "unknown-user", nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp, _ = doJSON(t, app, http.MethodGet, "/user/loyalty", "", nil)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestOpenRewardEndpointInsufficientPoints(t *testing.T) {
	db := newTestDB(t)
	ledger := NewLedgerService(db)
	rewards := NewRewardService(db, ledger, &recordingNotifier{}, testConfig())
	tokens := NewTokenService(db, ledger, testConfig())
	app := newTestApp(ledger, rewards, tokens)

	member := newTestMember(t, db, 80, models.TierMember)

	resp, parsed := doJSON(t, app, http.MethodPost, "/user/rewards/open", member.ExternalUserID, nil)
	assert.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)
	assert.Equal(t, float64(80), parsed["balance"])
	assert.Equal(t, float64(20), parsed["shortfall"])

	// The rejected attempt left no trace.
	resp, parsed = doJSON(t, app, http.MethodGet, "/user/loyalty", member.ExternalUserID, nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, float64(80), parsed["points_balance"])
}

func TestOpenRewardEndpointSuccess(t *testing.T) {
	db := newTestDB(t)
	ledger := NewLedgerService(db)
	rewards := NewRewardService(db, ledger, &recordingNotifier{}, testConfig())
	tokens := NewTokenService(db, ledger, testConfig())
	app := newTestApp(ledger, rewards, tokens)

	member := newTestMember(t, db, 150, models.TierMember)

	resp, parsed := doJSON(t, app, http.MethodPost, "/user/rewards/open", member.ExternalUserID, nil)
	assert.Equal(t, http.StatusCreated, resp.StatusCode)
	assert.NotEmpty(t, parsed["reward_id"])
	assert.Equal(t, float64(50), parsed["new_balance"])
}

func TestCreateTokenEndpoint(t *testing.T) {
	db := newTestDB(t)
	ledger := NewLedgerService(db)
	rewards := NewRewardService(db, ledger, &recordingNotifier{}, testConfig())
	tokens := NewTokenService(db, ledger, testConfig())
	app := newTestApp(ledger, rewards, tokens)

	member := newTestMember(t, db, 200, models.TierMember)

	resp, parsed := doJSON(t, app, http.MethodPost, "/user/redemption-tokens",
		member.ExternalUserID, fiber.Map{"points_amount": 80})
	assert.Equal(t, http.StatusCreated, resp.StatusCode)
	assert.NotEmpty(t, parsed["token_id"])

	resp, parsed = doJSON(t, app, http.MethodPost, "/user/redemption-tokens",
		member.ExternalUserID, fiber.Map{"points_amount": 500})
	assert.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)
	assert.Equal(t, float64(300), parsed["shortfall"])
}

func TestAdminAdjustEndpoint(t *testing.T) {
	db := newTestDB(t)
	ledger := NewLedgerService(db)

	app := fiber.New()
	app.Post("/s/admin/points/adjust", ledger.AdjustPoints)

	member := newTestMember(t, db, 100, models.TierMember)

	body, _ := json.Marshal(fiber.Map{"member_id": member.ID, "delta": -30, "reason": "support credit reversal"})
	req := httptest.NewRequest(http.MethodPost, "/s/admin/points/adjust", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	resp, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	var parsed map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&parsed))
	assert.Equal(t, float64(70), parsed["new_balance"])

	entries, err := ledger.History(member.ID)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, models.LedgerEntryAdminAdjustment, entries[0].Type)

	// Non-members cannot be adjusted.
	outsider := newTestMember(t, db, 0, models.TierMember)
	require.NoError(t, db.Model(&models.ClubMember{}).
		Where("id = ?", outsider.ID).
		Update("club_member", false).Error)

	body, _ = json.Marshal(fiber.Map{"member_id": outsider.ID, "delta": 10, "reason": "test"})
	req = httptest.NewRequest(http.MethodPost, "/s/admin/points/adjust", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	resp, err = app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
}
