package ledger

import (
	"context"

	"github.com/shopspring/decimal"

	"pouch/internal/models"
	"pouch/internal/services/fraud"
)

// Service is the transactional ledger engine.
type Service interface {
	// Deposit credits the account's wallet. Deposits are never fraud-screened.
	Deposit(ctx context.Context, accountID uint, amount decimal.Decimal) (decimal.Decimal, error)

	// Withdraw debits the account's wallet after fraud screening. The
	// returned outcome carries the flag decision even when the withdrawal
	// completes.
	Withdraw(ctx context.Context, accountID uint, amount decimal.Decimal) (decimal.Decimal, fraud.Outcome, error)

	// Transfer atomically moves amount between two distinct accounts and
	// returns the new source balance.
	Transfer(ctx context.Context, fromID, toID uint, amount decimal.Decimal) (decimal.Decimal, fraud.Outcome, error)

	// GetHistory returns every transaction touching the account, newest
	// first. Reads take no account lock.
	GetHistory(ctx context.Context, accountID uint) ([]models.Transaction, error)

	// ListFlagged returns all flagged transactions, newest first.
	ListFlagged(ctx context.Context) ([]models.Transaction, error)
}

// FraudEvaluator screens a candidate transaction against the full history.
type FraudEvaluator interface {
	Evaluate(candidate *models.Transaction, history []models.Transaction) fraud.Outcome
}
