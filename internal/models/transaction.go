package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Transaction kinds
const (
	TransactionKindDeposit  = "DEPOSIT"
	TransactionKindWithdraw = "WITHDRAW"
	TransactionKindTransfer = "TRANSFER"
)

// Transaction statuses
const (
	TransactionStatusPending   = "PENDING"
	TransactionStatusCompleted = "COMPLETED"
)

// Transaction is an append-only record of a balance-affecting operation.
// For deposits and withdrawals UserID holds the sole participant; transfers
// carry both FromUserID and ToUserID. Flag fields are set before the record
// is first persisted and never patched afterward.
type Transaction struct {
	ID          string          `gorm:"primarykey;size:36" json:"id"`
	Kind        string          `gorm:"not null;index" json:"kind"`
	UserID      *uint           `gorm:"index" json:"user_id,omitempty"`
	FromUserID  *uint           `gorm:"index" json:"from_user_id,omitempty"`
	ToUserID    *uint           `gorm:"index" json:"to_user_id,omitempty"`
	Amount      decimal.Decimal `gorm:"type:numeric(20,4);not null" json:"amount"`
	Currency    string          `gorm:"default:'INR'" json:"currency"`
	Status      string          `gorm:"not null;default:'PENDING'" json:"status"`
	Description string          `json:"description"`
	Flagged     bool            `gorm:"default:false;index" json:"flagged"`
	FlagReason  *string         `json:"flag_reason,omitempty"`
	CreatedAt   time.Time       `json:"created_at"`
}

// Involves reports whether the account participates in the transaction,
// either as sole owner (deposit/withdraw) or as a transfer endpoint.
func (t *Transaction) Involves(accountID uint) bool {
	if t.UserID != nil && *t.UserID == accountID {
		return true
	}
	if t.FromUserID != nil && *t.FromUserID == accountID {
		return true
	}
	return t.ToUserID != nil && *t.ToUserID == accountID
}

// Source returns the account that funds the transaction, if any.
func (t *Transaction) Source() (uint, bool) {
	switch t.Kind {
	case TransactionKindTransfer:
		if t.FromUserID != nil {
			return *t.FromUserID, true
		}
	case TransactionKindWithdraw:
		if t.UserID != nil {
			return *t.UserID, true
		}
	}
	return 0, false
}
