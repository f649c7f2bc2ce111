package repositories

import (
	"errors"

	"github.com/shopspring/decimal"

	"pouch/internal/models"
)

var (
	ErrWalletNotFound      = errors.New("wallet not found")
	ErrUserNotFound        = errors.New("user not found")
	ErrTransactionNotFound = errors.New("transaction not found")
	ErrDuplicateUser       = errors.New("user already exists")
	ErrDuplicateWallet     = errors.New("wallet already exists")
)

// WalletRepository defines wallet persistence plus the transactional unit the
// ledger commits through. Balance updates and the matching transaction record
// must be written inside a single ExecuteInTransaction call.
type WalletRepository interface {
	Create(wallet *models.Wallet) error
	GetByUserID(userID uint) (*models.Wallet, error)
	Update(wallet *models.Wallet) error
	List() ([]models.Wallet, error)
	TotalBalance() (decimal.Decimal, error)

	// CreateTransaction appends a transaction record. Records are append-only;
	// there is no update or delete counterpart.
	CreateTransaction(tx *models.Transaction) error

	// ExecuteInTransaction runs fn against a repository view whose writes
	// become durable together or not at all.
	ExecuteInTransaction(fn func(WalletRepository) error) error
}
