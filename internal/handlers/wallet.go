package handlers

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/shopspring/decimal"

	"pouch/internal/models"
	"pouch/internal/repositories"
	"pouch/internal/repositories/cache"
	"pouch/internal/services/ledger"
	"pouch/internal/utils"
)

type WalletHandler struct {
	ledgerService ledger.Service
	users         repositories.UserRepository
	wallets       repositories.WalletRepository
	walletCache   cache.WalletCache
}

func NewWalletHandler(
	ledgerService ledger.Service,
	users repositories.UserRepository,
	wallets repositories.WalletRepository,
	walletCache cache.WalletCache,
) *WalletHandler {
	if walletCache == nil {
		walletCache = cache.NoopWalletCache{}
	}
	return &WalletHandler{
		ledgerService: ledgerService,
		users:         users,
		wallets:       wallets,
		walletCache:   walletCache,
	}
}

// extractUserClaims is a helper to reduce duplication across handlers.
func extractUserClaims(c *fiber.Ctx) (*models.UserClaims, error) {
	claims, ok := c.Locals("claims").(*models.UserClaims)
	if !ok || claims == nil {
		return nil, fiber.ErrUnauthorized
	}
	return claims, nil
}

type amountRequest struct {
	Amount decimal.Decimal `json:"amount"`
}

type transferRequest struct {
	ToUsername string          `json:"to_username"`
	Amount     decimal.Decimal `json:"amount"`
}

func (h *WalletHandler) GetBalance(c *fiber.Ctx) error {
	claims, err := extractUserClaims(c)
	if err != nil {
		return utils.Unauthorized(c, "invalid claims")
	}

	if wallet, err := h.walletCache.GetWallet(c.Context(), claims.UserID); err == nil {
		return utils.Success(c, fiber.Map{
			"balance":  wallet.Balance,
			"currency": wallet.Currency,
			"cached":   true,
		})
	}

	wallet, err := h.wallets.GetByUserID(claims.UserID)
	if err != nil {
		if errors.Is(err, repositories.ErrWalletNotFound) {
			return utils.NotFound(c, "wallet not found")
		}
		return utils.InternalError(c, "failed to get wallet")
	}
	_ = h.walletCache.SetWallet(c.Context(), wallet)

	return utils.Success(c, fiber.Map{
		"balance":  wallet.Balance,
		"currency": wallet.Currency,
		"cached":   false,
	})
}

func (h *WalletHandler) Deposit(c *fiber.Ctx) error {
	claims, err := extractUserClaims(c)
	if err != nil {
		return utils.Unauthorized(c, "invalid claims")
	}

	var input amountRequest
	if err := c.BodyParser(&input); err != nil {
		return utils.BadRequest(c, "invalid deposit amount")
	}

	balance, err := h.ledgerService.Deposit(c.Context(), claims.UserID, input.Amount)
	if err != nil {
		return ledgerError(c, err)
	}
	_ = h.walletCache.InvalidateWallet(c.Context(), claims.UserID)

	return utils.Success(c, fiber.Map{
		"message":     "Deposit successful",
		"new_balance": balance,
	})
}

func (h *WalletHandler) Withdraw(c *fiber.Ctx) error {
	claims, err := extractUserClaims(c)
	if err != nil {
		return utils.Unauthorized(c, "invalid claims")
	}

	var input amountRequest
	if err := c.BodyParser(&input); err != nil {
		return utils.BadRequest(c, "invalid withdrawal amount")
	}

	balance, outcome, err := h.ledgerService.Withdraw(c.Context(), claims.UserID, input.Amount)
	if err != nil && !errors.Is(err, ledger.ErrHeldForReview) {
		return ledgerError(c, err)
	}
	_ = h.walletCache.InvalidateWallet(c.Context(), claims.UserID)

	if errors.Is(err, ledger.ErrHeldForReview) {
		return utils.Respond(c, fiber.StatusAccepted, fiber.Map{
			"message":      "Withdrawal held for review",
			"new_balance":  balance,
			"fraud_status": outcome.Status(),
		})
	}

	return utils.Success(c, fiber.Map{
		"message":      "Withdrawal successful",
		"new_balance":  balance,
		"fraud_status": outcome.Status(),
	})
}

func (h *WalletHandler) Transfer(c *fiber.Ctx) error {
	claims, err := extractUserClaims(c)
	if err != nil {
		return utils.Unauthorized(c, "invalid claims")
	}

	var input transferRequest
	if err := c.BodyParser(&input); err != nil || input.ToUsername == "" {
		return utils.BadRequest(c, "invalid transfer details or amount")
	}

	recipient, err := h.users.GetByUsername(input.ToUsername)
	if err != nil {
		if errors.Is(err, repositories.ErrUserNotFound) {
			return utils.NotFound(c, "recipient user not found")
		}
		return utils.InternalError(c, "failed to resolve recipient")
	}

	balance, outcome, err := h.ledgerService.Transfer(c.Context(), claims.UserID, recipient.ID, input.Amount)
	if err != nil && !errors.Is(err, ledger.ErrHeldForReview) {
		return ledgerError(c, err)
	}
	_ = h.walletCache.InvalidateWallet(c.Context(), claims.UserID)
	_ = h.walletCache.InvalidateWallet(c.Context(), recipient.ID)

	if errors.Is(err, ledger.ErrHeldForReview) {
		return utils.Respond(c, fiber.StatusAccepted, fiber.Map{
			"message":      "Transfer held for review",
			"new_balance":  balance,
			"fraud_status": outcome.Status(),
		})
	}

	return utils.Success(c, fiber.Map{
		"message":      "Transfer successful",
		"new_balance":  balance,
		"fraud_status": outcome.Status(),
	})
}

func (h *WalletHandler) GetHistory(c *fiber.Ctx) error {
	claims, err := extractUserClaims(c)
	if err != nil {
		return utils.Unauthorized(c, "invalid claims")
	}

	history, err := h.ledgerService.GetHistory(c.Context(), claims.UserID)
	if err != nil {
		return utils.InternalError(c, "failed to fetch transactions")
	}
	return utils.Success(c, fiber.Map{"transactions": history})
}

// ledgerError maps ledger errors onto HTTP responses. Commit failures get a
// distinct message because durable state may be inconsistent with the
// attempted operation.
func ledgerError(c *fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, ledger.ErrInvalidAmount),
		errors.Is(err, ledger.ErrInsufficientFunds),
		errors.Is(err, ledger.ErrSelfTransfer),
		errors.Is(err, ledger.ErrExceedsTransferLimit):
		return utils.BadRequest(c, err.Error())
	case errors.Is(err, ledger.ErrWalletNotFound),
		errors.Is(err, ledger.ErrRecipientNotFound),
		errors.Is(err, ledger.ErrSenderWalletNotFound),
		errors.Is(err, ledger.ErrRecipientWalletNotFound):
		return utils.NotFound(c, err.Error())
	case errors.Is(err, ledger.ErrCommitFailed):
		return utils.InternalError(c, "operation failed during commit, please verify your balance")
	default:
		return utils.InternalError(c, "operation failed")
	}
}
