// Package fraud evaluates candidate transactions against transaction history.
// Evaluation is pure: it reads history, never mutates it, and never fails —
// the caller persists the resulting flag.
package fraud

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"pouch/internal/models"
)

// Default rule parameters. The withdrawal threshold is in currency units.
const (
	DefaultBurstWindow       = 5 * time.Minute
	DefaultBurstMaxTransfers = 3
)

var DefaultWithdrawalThreshold = decimal.NewFromInt(5000)

// Config tunes the built-in rules.
type Config struct {
	WithdrawalThreshold decimal.Decimal
	BurstWindow         time.Duration
	BurstMaxTransfers   int
}

// Outcome is the result of evaluating one candidate transaction.
type Outcome struct {
	Flagged bool   `json:"flagged"`
	Reason  string `json:"reason,omitempty"`
}

// Status returns the reason, or the no-fraud sentinel used in responses and
// audit logs.
func (o Outcome) Status() string {
	if o.Flagged {
		return o.Reason
	}
	return "No fraud detected"
}

// Engine runs an ordered list of independent rules. Adding a rule must not
// change the evaluation order of existing rules, so new rules are appended.
type Engine struct {
	rules  []Rule
	logger *logrus.Logger
}

func NewEngine(cfg Config, logger *logrus.Logger) *Engine {
	if cfg.WithdrawalThreshold.IsZero() {
		cfg.WithdrawalThreshold = DefaultWithdrawalThreshold
	}
	if cfg.BurstWindow == 0 {
		cfg.BurstWindow = DefaultBurstWindow
	}
	if cfg.BurstMaxTransfers == 0 {
		cfg.BurstMaxTransfers = DefaultBurstMaxTransfers
	}
	if logger == nil {
		logger = logrus.StandardLogger()
	}

	return &Engine{
		rules: []Rule{
			burstTransferRule{window: cfg.BurstWindow, maxPrior: cfg.BurstMaxTransfers},
			largeWithdrawalRule{threshold: cfg.WithdrawalThreshold},
		},
		logger: logger,
	}
}

// Evaluate checks the candidate against every rule in order and joins the
// triggered reasons. Malformed history rows are skipped rather than failing
// the evaluation; they are counted and logged as a data-quality signal.
func (e *Engine) Evaluate(candidate *models.Transaction, history []models.Transaction) Outcome {
	clean := history
	if skipped := countMalformed(history); skipped > 0 {
		clean = make([]models.Transaction, 0, len(history)-skipped)
		for i := range history {
			if !malformed(&history[i]) {
				clean = append(clean, history[i])
			}
		}
		e.logger.WithFields(logrus.Fields{
			"skipped":        skipped,
			"transaction_id": candidate.ID,
		}).Warn("skipped malformed history rows during fraud evaluation")
	}

	var reasons []string
	for _, rule := range e.rules {
		if reason, triggered := rule.Check(candidate, clean); triggered {
			reasons = append(reasons, reason)
			e.logger.WithFields(logrus.Fields{
				"rule":           rule.Name(),
				"transaction_id": candidate.ID,
				"reason":         reason,
			}).Warn("fraud rule triggered")
		}
	}

	if len(reasons) == 0 {
		return Outcome{}
	}
	return Outcome{Flagged: true, Reason: strings.Join(reasons, "; ")}
}

func countMalformed(history []models.Transaction) int {
	n := 0
	for i := range history {
		if malformed(&history[i]) {
			n++
		}
	}
	return n
}

func malformed(t *models.Transaction) bool {
	return t.CreatedAt.IsZero() || !t.Amount.IsPositive()
}
