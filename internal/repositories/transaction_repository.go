package repositories

import (
	"context"

	"pouch/internal/models"
)

// TransactionRepository is the read side of the transaction log. The log is
// append-only; writes go through WalletRepository.CreateTransaction so they
// share the wallet commit unit.
type TransactionRepository interface {
	GetByID(ctx context.Context, id string) (*models.Transaction, error)

	// ListAll returns the full transaction log, newest first. Fraud
	// evaluation and reporting both read the whole collection.
	ListAll(ctx context.Context) ([]models.Transaction, error)

	// HistoryFor returns all transactions touching the account, newest first.
	HistoryFor(ctx context.Context, accountID uint) ([]models.Transaction, error)

	// ListFlagged returns flagged transactions, newest first.
	ListFlagged(ctx context.Context) ([]models.Transaction, error)
}
