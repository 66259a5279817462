// handlers/admin_routes.go
package handlers

import (
	"loyalty-club-service/middleware"
	"loyalty-club-service/services"

	"github.com/gofiber/fiber/v2"
)

// SetupAdminRoutes wires the operator surface: manual corrections, ledger
// audit views, and the out-of-band sweep triggers external cron fires.
func SetupAdminRoutes(
	app *fiber.App,
	ledger *services.LedgerService,
	members *services.MemberService,
	rewards *services.RewardService,
	tier *services.TierService,
	sweeps *services.SweepService,
	coupons *services.CouponService,
) {
	admin := app.Group("/s/admin", middleware.UserContextMiddleware(), middleware.RequireRole("admin"))

	admin.Post("/points/adjust", ledger.AdjustPoints)
	admin.Get("/members", members.SearchMembers)
	admin.Get("/members/:id/ledger", ledger.GetMemberLedger)
	admin.Get("/members/:id/reconcile", ledger.ReconcileMember)

	admin.Post("/coupon-templates", coupons.CreateTemplate)

	// Sweeps are idempotent batch passes; re-firing them is safe.
	admin.Post("/sweeps/expiry", rewards.RunExpirySweep)
	admin.Post("/sweeps/birthday", sweeps.RunBirthdaySweep)
	admin.Post("/sweeps/monthly-reset", sweeps.RunMonthlyReset)
	admin.Post("/sweeps/tier-recompute", tier.RunTierRecompute)
}
