package ledger

import "errors"

// Service errors
var (
	// Validation errors: caller-input problems, nothing mutated.
	ErrInvalidAmount        = errors.New("invalid amount")
	ErrInsufficientFunds    = errors.New("insufficient funds")
	ErrSelfTransfer         = errors.New("cannot transfer to yourself")
	ErrExceedsTransferLimit = errors.New("cannot transfer more than 90% of balance in a single transaction")

	// Not-found errors: referential inconsistency between accounts and
	// wallets. Wallets are created with accounts, so these are logged as a
	// system-integrity signal.
	ErrWalletNotFound          = errors.New("wallet not found")
	ErrRecipientNotFound       = errors.New("recipient user not found")
	ErrSenderWalletNotFound    = errors.New("sender wallet not found")
	ErrRecipientWalletNotFound = errors.New("recipient wallet not found")

	// ErrCommitFailed means the durable write failed after balances were
	// computed. It is surfaced distinctly because durable state may not
	// reflect the attempted operation.
	ErrCommitFailed = errors.New("commit failed")

	// ErrHeldForReview is returned when BlockOnFlag is set and the fraud
	// engine flagged the transaction: it is persisted as pending, balances
	// unchanged.
	ErrHeldForReview = errors.New("transaction held for review")
)
