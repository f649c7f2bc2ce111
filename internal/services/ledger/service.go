package ledger

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"pouch/internal/models"
	"pouch/internal/repositories"
	"pouch/internal/services/fraud"
)

type service struct {
	users     repositories.UserRepository
	wallets   repositories.WalletRepository
	txns      repositories.TransactionRepository
	evaluator FraudEvaluator
	locks     *accountLocks
	config    Config
	metrics   MetricsCollector
	logger    *logrus.Logger
}

// NewService creates the ledger engine.
func NewService(
	users repositories.UserRepository,
	wallets repositories.WalletRepository,
	txns repositories.TransactionRepository,
	evaluator FraudEvaluator,
	config Config,
	metrics MetricsCollector,
	logger *logrus.Logger,
) Service {
	if users == nil {
		panic("users repository is required")
	}
	if wallets == nil {
		panic("wallets repository is required")
	}
	if txns == nil {
		panic("transactions repository is required")
	}
	if evaluator == nil {
		panic("fraud evaluator is required")
	}
	if config.Currency == "" {
		config.Currency = DefaultCurrency
	}
	if metrics == nil {
		metrics = NoopMetricsCollector{}
	}
	if logger == nil {
		logger = logrus.StandardLogger()
	}

	return &service{
		users:     users,
		wallets:   wallets,
		txns:      txns,
		evaluator: evaluator,
		locks:     newAccountLocks(),
		config:    config,
		metrics:   metrics,
		logger:    logger,
	}
}

func (s *service) Deposit(ctx context.Context, accountID uint, amount decimal.Decimal) (decimal.Decimal, error) {
	if !amount.IsPositive() {
		s.metrics.RecordOperation(opDeposit, "invalid_amount")
		return decimal.Zero, ErrInvalidAmount
	}

	s.locks.Lock(accountID)
	defer s.locks.Unlock(accountID)

	wallet, err := s.loadWallet(accountID, ErrWalletNotFound)
	if err != nil {
		return decimal.Zero, err
	}

	wallet.Balance = wallet.Balance.Add(amount)

	txn := s.newTransaction(models.TransactionKindDeposit, amount, wallet.Currency)
	txn.UserID = &accountID
	txn.Status = models.TransactionStatusCompleted
	txn.Description = fmt.Sprintf("Deposit of %s %s", amount, wallet.Currency)

	if err := s.commit(opDeposit, txn, wallet); err != nil {
		return decimal.Zero, err
	}

	s.metrics.RecordOperation(opDeposit, "success")
	s.metrics.RecordTransaction(models.TransactionKindDeposit, amount.InexactFloat64())
	s.logger.WithFields(logrus.Fields{
		"user_id": accountID,
		"amount":  amount,
		"type":    models.TransactionKindDeposit,
	}).Info("deposit completed")

	return wallet.Balance, nil
}

func (s *service) Withdraw(ctx context.Context, accountID uint, amount decimal.Decimal) (decimal.Decimal, fraud.Outcome, error) {
	if !amount.IsPositive() {
		s.metrics.RecordOperation(opWithdraw, "invalid_amount")
		return decimal.Zero, fraud.Outcome{}, ErrInvalidAmount
	}

	s.locks.Lock(accountID)
	defer s.locks.Unlock(accountID)

	wallet, err := s.loadWallet(accountID, ErrWalletNotFound)
	if err != nil {
		return decimal.Zero, fraud.Outcome{}, err
	}
	if wallet.Balance.LessThan(amount) {
		s.metrics.RecordOperation(opWithdraw, "insufficient_funds")
		return decimal.Zero, fraud.Outcome{}, ErrInsufficientFunds
	}

	txn := s.newTransaction(models.TransactionKindWithdraw, amount, wallet.Currency)
	txn.UserID = &accountID
	txn.Description = fmt.Sprintf("Withdrawal of %s %s", amount, wallet.Currency)

	outcome, err := s.screen(ctx, txn)
	if err != nil {
		return decimal.Zero, fraud.Outcome{}, err
	}
	if outcome.Flagged && s.config.BlockOnFlag {
		if err := s.commit(opWithdraw, txn); err != nil {
			return decimal.Zero, outcome, err
		}
		s.metrics.RecordOperation(opWithdraw, "held")
		return wallet.Balance, outcome, ErrHeldForReview
	}

	txn.Status = models.TransactionStatusCompleted
	wallet.Balance = wallet.Balance.Sub(amount)

	if err := s.commit(opWithdraw, txn, wallet); err != nil {
		return decimal.Zero, outcome, err
	}

	s.metrics.RecordOperation(opWithdraw, "success")
	s.metrics.RecordTransaction(models.TransactionKindWithdraw, amount.InexactFloat64())
	s.logger.WithFields(logrus.Fields{
		"user_id": accountID,
		"amount":  amount,
		"type":    models.TransactionKindWithdraw,
		"flagged": outcome.Flagged,
	}).Info("withdrawal completed")

	return wallet.Balance, outcome, nil
}

func (s *service) Transfer(ctx context.Context, fromID, toID uint, amount decimal.Decimal) (decimal.Decimal, fraud.Outcome, error) {
	if !amount.IsPositive() {
		s.metrics.RecordOperation(opTransfer, "invalid_amount")
		return decimal.Zero, fraud.Outcome{}, ErrInvalidAmount
	}
	if fromID == toID {
		s.metrics.RecordOperation(opTransfer, "self_transfer")
		return decimal.Zero, fraud.Outcome{}, ErrSelfTransfer
	}

	recipient, err := s.users.GetByID(toID)
	if err != nil {
		if errors.Is(err, repositories.ErrUserNotFound) {
			s.metrics.RecordOperation(opTransfer, "recipient_not_found")
			return decimal.Zero, fraud.Outcome{}, ErrRecipientNotFound
		}
		return decimal.Zero, fraud.Outcome{}, fmt.Errorf("failed to resolve recipient: %w", err)
	}

	s.locks.LockPair(fromID, toID)
	defer s.locks.UnlockPair(fromID, toID)

	fromWallet, err := s.loadWallet(fromID, ErrSenderWalletNotFound)
	if err != nil {
		return decimal.Zero, fraud.Outcome{}, err
	}
	toWallet, err := s.loadWallet(toID, ErrRecipientWalletNotFound)
	if err != nil {
		return decimal.Zero, fraud.Outcome{}, err
	}

	if fromWallet.Balance.LessThan(amount) {
		s.metrics.RecordOperation(opTransfer, "insufficient_funds")
		return decimal.Zero, fraud.Outcome{}, ErrInsufficientFunds
	}
	if amount.GreaterThan(fromWallet.Balance.Mul(maxTransferFraction)) {
		s.metrics.RecordOperation(opTransfer, "exceeds_limit")
		return decimal.Zero, fraud.Outcome{}, ErrExceedsTransferLimit
	}

	txn := s.newTransaction(models.TransactionKindTransfer, amount, fromWallet.Currency)
	txn.FromUserID = &fromID
	txn.ToUserID = &toID
	txn.Description = fmt.Sprintf("Transfer of %s %s to %s", amount, fromWallet.Currency, recipient.Username)

	outcome, err := s.screen(ctx, txn)
	if err != nil {
		return decimal.Zero, fraud.Outcome{}, err
	}
	if outcome.Flagged && s.config.BlockOnFlag {
		if err := s.commit(opTransfer, txn); err != nil {
			return decimal.Zero, outcome, err
		}
		s.metrics.RecordOperation(opTransfer, "held")
		return fromWallet.Balance, outcome, ErrHeldForReview
	}

	txn.Status = models.TransactionStatusCompleted
	fromWallet.Balance = fromWallet.Balance.Sub(amount)
	toWallet.Balance = toWallet.Balance.Add(amount)

	if err := s.commit(opTransfer, txn, fromWallet, toWallet); err != nil {
		return decimal.Zero, outcome, err
	}

	s.metrics.RecordOperation(opTransfer, "success")
	s.metrics.RecordTransaction(models.TransactionKindTransfer, amount.InexactFloat64())
	s.logger.WithFields(logrus.Fields{
		"from_user_id": fromID,
		"to_user_id":   toID,
		"amount":       amount,
		"type":         models.TransactionKindTransfer,
		"flagged":      outcome.Flagged,
	}).Info("transfer completed")

	return fromWallet.Balance, outcome, nil
}

func (s *service) GetHistory(ctx context.Context, accountID uint) ([]models.Transaction, error) {
	return s.txns.HistoryFor(ctx, accountID)
}

func (s *service) ListFlagged(ctx context.Context) ([]models.Transaction, error) {
	return s.txns.ListFlagged(ctx)
}

// screen evaluates the pending transaction against the full history and
// stamps the flag fields before first persistence.
func (s *service) screen(ctx context.Context, txn *models.Transaction) (fraud.Outcome, error) {
	history, err := s.txns.ListAll(ctx)
	if err != nil {
		return fraud.Outcome{}, fmt.Errorf("failed to load history for fraud screening: %w", err)
	}

	outcome := s.evaluator.Evaluate(txn, history)
	if outcome.Flagged {
		txn.Flagged = true
		reason := outcome.Reason
		txn.FlagReason = &reason
		s.metrics.RecordFlagged(txn.Kind)
		s.logger.WithFields(logrus.Fields{
			"transaction_id": txn.ID,
			"type":           txn.Kind,
			"reason":         outcome.Reason,
		}).Warn("transaction flagged by fraud screening")
	}
	return outcome, nil
}

// commit durably writes the wallet updates and the appended transaction as
// one unit. Failures map to ErrCommitFailed so callers can distinguish a
// possible inconsistency from a validation error.
func (s *service) commit(op string, txn *models.Transaction, wallets ...*models.Wallet) error {
	err := s.wallets.ExecuteInTransaction(func(r repositories.WalletRepository) error {
		for _, w := range wallets {
			if err := r.Update(w); err != nil {
				return err
			}
		}
		return r.CreateTransaction(txn)
	})
	if err != nil {
		s.metrics.RecordOperation(op, "commit_failed")
		s.logger.WithFields(logrus.Fields{
			"transaction_id": txn.ID,
			"type":           txn.Kind,
			"error":          err.Error(),
		}).Error("ledger commit failed")
		return fmt.Errorf("%w: %v", ErrCommitFailed, err)
	}
	return nil
}

func (s *service) loadWallet(accountID uint, notFound error) (*models.Wallet, error) {
	wallet, err := s.wallets.GetByUserID(accountID)
	if err != nil {
		if errors.Is(err, repositories.ErrWalletNotFound) {
			// Wallets are created with accounts; a missing wallet means the
			// stores disagree.
			s.logger.WithField("user_id", accountID).Error("wallet missing for existing account")
			return nil, notFound
		}
		return nil, fmt.Errorf("failed to load wallet: %w", err)
	}
	return wallet, nil
}

func (s *service) newTransaction(kind string, amount decimal.Decimal, currency string) *models.Transaction {
	if currency == "" {
		currency = s.config.Currency
	}
	return &models.Transaction{
		ID:        uuid.NewString(),
		Kind:      kind,
		Amount:    amount,
		Currency:  currency,
		Status:    models.TransactionStatusPending,
		CreatedAt: time.Now(),
	}
}
