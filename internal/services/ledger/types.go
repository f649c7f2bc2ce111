package ledger

// Config holds ledger configuration.
type Config struct {
	// Currency stamps new transactions; defaults to DefaultCurrency.
	Currency string

	// BlockOnFlag holds flagged withdrawals and transfers for review instead
	// of completing them. Off by default: flagging is observational and a
	// flagged operation still completes and moves money.
	BlockOnFlag bool
}

// MetricsCollector receives ledger operation metrics. A nil collector is
// replaced with NoopMetricsCollector.
type MetricsCollector interface {
	RecordOperation(op, result string)
	RecordTransaction(kind string, amount float64)
	RecordFlagged(kind string)
}

// NoopMetricsCollector discards all metrics.
type NoopMetricsCollector struct{}

func (NoopMetricsCollector) RecordOperation(string, string)    {}
func (NoopMetricsCollector) RecordTransaction(string, float64) {}
func (NoopMetricsCollector) RecordFlagged(string)              {}
