package handlers

import (
	"net/http"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"

	"pouch/internal/middleware"
)

// SetupRoutes wires every HTTP endpoint. Handlers are constructed by the
// caller so the route table stays free of wiring concerns.
func SetupRoutes(app *fiber.App, auth *AuthHandler, wallet *WalletHandler, admin *AdminHandler, metricsHandler http.Handler) {
	setupPublicRoutes(app, auth, metricsHandler)

	authenticated := app.Group("/api", middleware.Auth())
	setupWalletRoutes(authenticated, wallet)
	setupAdminRoutes(authenticated, admin)
}

func setupPublicRoutes(app *fiber.App, auth *AuthHandler, metricsHandler http.Handler) {
	app.Get("/health", HealthCheck)
	if metricsHandler != nil {
		app.Get("/metrics", adaptor.HTTPHandler(metricsHandler))
	}

	api := app.Group("/api")
	api.Post("/register", auth.Register)
	api.Post("/login", auth.Login)
}

func setupWalletRoutes(router fiber.Router, h *WalletHandler) {
	wallet := router.Group("/wallet")
	wallet.Get("/balance", h.GetBalance)
	wallet.Post("/deposit", h.Deposit)
	wallet.Post("/withdraw", h.Withdraw)
	wallet.Post("/transfer", h.Transfer)
	wallet.Get("/transactions", h.GetHistory)
}

func setupAdminRoutes(router fiber.Router, h *AdminHandler) {
	admin := router.Group("/admin", middleware.AdminOnly())
	admin.Get("/flagged", h.GetFlaggedTransactions)
	admin.Get("/balances", h.GetTotalBalances)
	admin.Get("/top/:criteria", h.GetTopUsers)
}
