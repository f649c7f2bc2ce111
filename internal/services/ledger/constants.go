package ledger

import "github.com/shopspring/decimal"

// DefaultCurrency is the single currency the ledger operates in.
const DefaultCurrency = "INR"

// maxTransferFraction caps a single transfer at 90% of the source balance
// before the debit. This is a hard business rule, independent of fraud
// screening.
var maxTransferFraction = decimal.RequireFromString("0.90")

// Operation names used in logs and metrics.
const (
	opDeposit  = "deposit"
	opWithdraw = "withdraw"
	opTransfer = "transfer"
)
