// handlers/internal_routes.go
package handlers

import (
	"loyalty-club-service/services"

	"github.com/gofiber/fiber/v2"
)

// SetupInternalRoutes wires the service-to-service surface the commerce side
// calls during checkout and order completion. These routes sit behind the
// global gateway token only; no end-user context is involved.
func SetupInternalRoutes(
	app *fiber.App,
	earn *services.EarnService,
	rewards *services.RewardService,
	tokens *services.TokenService,
) {
	internal := app.Group("/internal")

	internal.Post("/orders/:orderNumber/earn", earn.EarnOrderEndpoint)
	internal.Post("/tokens/:id/consume", tokens.ConsumeTokenEndpoint)
	internal.Post("/rewards/:id/redeem", rewards.RedeemRewardEndpoint)
}
