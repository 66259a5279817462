// handlers/loyalty_routes.go
package handlers

import (
	"loyalty-club-service/middleware"
	"loyalty-club-service/services"

	"github.com/gofiber/fiber/v2"
)

// SetupLoyaltyRoutes wires the member-facing surface. All routes require the
// gateway user context; the gateway forwards paths like
// /api/v1/loyalty/s/user/loyalty -> /user/loyalty.
func SetupLoyaltyRoutes(
	app *fiber.App,
	ledger *services.LedgerService,
	members *services.MemberService,
	rewards *services.RewardService,
	tokens *services.TokenService,
	coupons *services.CouponService,
) {
	secured := app.Group("/", middleware.UserContextMiddleware())

	secured.Get("/user/loyalty", ledger.GetLoyaltyStatus)
	secured.Get("/user/loyalty/history", ledger.GetHistory)
	secured.Post("/user/loyalty/join", members.JoinClubEndpoint)

	secured.Get("/user/rewards", rewards.GetUserRewards)
	secured.Post("/user/rewards/open", rewards.OpenRewardEndpoint)

	secured.Post("/user/redemption-tokens", tokens.CreateTokenEndpoint)

	secured.Get("/user/coupons", coupons.GetUserCoupons)
	secured.Post("/user/coupons/:code/claim", coupons.ClaimCouponEndpoint)
}
