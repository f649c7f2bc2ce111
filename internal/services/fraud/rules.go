package fraud

import (
	"time"

	"github.com/shopspring/decimal"

	"pouch/internal/models"
)

// Stable, human-readable reasons. They end up on persisted transactions and
// in admin reports, so changing them breaks audit continuity.
const (
	ReasonBurstTransfers  = "multiple transfers in a short period"
	ReasonLargeWithdrawal = "sudden large withdrawal"
)

// Rule is an independent predicate over a candidate transaction and the full
// transaction history. Rules never mutate either argument; a triggered rule
// returns its reason.
type Rule interface {
	Name() string
	Check(candidate *models.Transaction, history []models.Transaction) (reason string, triggered bool)
}

// burstTransferRule flags a transfer when the source account already has
// maxPrior or more completed transfers inside the trailing window. The window
// comparison is a strict less-than: a transfer exactly window-old is outside.
type burstTransferRule struct {
	window   time.Duration
	maxPrior int
}

func (r burstTransferRule) Name() string { return "burst_transfers" }

func (r burstTransferRule) Check(candidate *models.Transaction, history []models.Transaction) (string, bool) {
	if candidate.Kind != models.TransactionKindTransfer {
		return "", false
	}
	source, ok := candidate.Source()
	if !ok {
		return "", false
	}

	prior := 0
	for i := range history {
		t := &history[i]
		if t.ID == candidate.ID || t.Kind != models.TransactionKindTransfer {
			continue
		}
		if t.Status != models.TransactionStatusCompleted {
			continue
		}
		if src, ok := t.Source(); !ok || src != source {
			continue
		}
		elapsed := candidate.CreatedAt.Sub(t.CreatedAt)
		if elapsed >= 0 && elapsed < r.window {
			prior++
		}
	}
	if prior >= r.maxPrior {
		return ReasonBurstTransfers, true
	}
	return "", false
}

// largeWithdrawalRule flags withdrawals strictly above the threshold; a
// withdrawal of exactly the threshold amount is not flagged.
type largeWithdrawalRule struct {
	threshold decimal.Decimal
}

func (r largeWithdrawalRule) Name() string { return "large_withdrawal" }

func (r largeWithdrawalRule) Check(candidate *models.Transaction, _ []models.Transaction) (string, bool) {
	if candidate.Kind != models.TransactionKindWithdraw {
		return "", false
	}
	if candidate.Amount.GreaterThan(r.threshold) {
		return ReasonLargeWithdrawal, true
	}
	return "", false
}
