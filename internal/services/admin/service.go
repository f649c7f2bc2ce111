// Package admin provides read-only aggregation over wallets and the
// transaction log for administrative review. Reads are eventually consistent:
// they take no account lock.
package admin

import (
	"context"
	"errors"
	"sort"

	"github.com/shopspring/decimal"

	"pouch/internal/models"
	"pouch/internal/repositories"
)

const topUserLimit = 10

// Ranking criteria for TopUsers.
const (
	CriteriaBalance = "balance"
	CriteriaVolume  = "volume"
)

var ErrInvalidCriteria = errors.New(`invalid criteria, use "balance" or "volume"`)

// BalanceSummary aggregates all wallets.
type BalanceSummary struct {
	TotalBalance decimal.Decimal `json:"total_balance"`
	WalletCount  int             `json:"wallet_count"`
	Currency     string          `json:"currency"`
}

// RankedUser is one row of a top-users report. Balance or Volume is set
// depending on the criteria.
type RankedUser struct {
	UserID   uint            `json:"user_id"`
	Username string          `json:"username"`
	Balance  decimal.Decimal `json:"balance,omitempty"`
	Volume   decimal.Decimal `json:"volume,omitempty"`
}

type Service interface {
	ListFlagged(ctx context.Context) ([]models.Transaction, error)
	TotalBalances(ctx context.Context) (BalanceSummary, error)
	TopUsers(ctx context.Context, criteria string) ([]RankedUser, error)
}

type service struct {
	users   repositories.UserRepository
	wallets repositories.WalletRepository
	txns    repositories.TransactionRepository
}

func NewService(users repositories.UserRepository, wallets repositories.WalletRepository, txns repositories.TransactionRepository) Service {
	if users == nil {
		panic("users repository is required")
	}
	if wallets == nil {
		panic("wallets repository is required")
	}
	if txns == nil {
		panic("transactions repository is required")
	}
	return &service{users: users, wallets: wallets, txns: txns}
}

func (s *service) ListFlagged(ctx context.Context) ([]models.Transaction, error) {
	return s.txns.ListFlagged(ctx)
}

func (s *service) TotalBalances(ctx context.Context) (BalanceSummary, error) {
	wallets, err := s.wallets.List()
	if err != nil {
		return BalanceSummary{}, err
	}

	summary := BalanceSummary{TotalBalance: decimal.Zero, WalletCount: len(wallets)}
	for _, w := range wallets {
		summary.TotalBalance = summary.TotalBalance.Add(w.Balance)
		if summary.Currency == "" {
			summary.Currency = w.Currency
		}
	}
	return summary, nil
}

func (s *service) TopUsers(ctx context.Context, criteria string) ([]RankedUser, error) {
	switch criteria {
	case CriteriaBalance:
		return s.topByBalance()
	case CriteriaVolume:
		return s.topByVolume(ctx)
	default:
		return nil, ErrInvalidCriteria
	}
}

func (s *service) topByBalance() ([]RankedUser, error) {
	wallets, err := s.wallets.List()
	if err != nil {
		return nil, err
	}
	names, err := s.usernames()
	if err != nil {
		return nil, err
	}

	ranked := make([]RankedUser, 0, len(wallets))
	for _, w := range wallets {
		ranked = append(ranked, RankedUser{
			UserID:   w.UserID,
			Username: names[w.UserID],
			Balance:  w.Balance,
		})
	}
	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].Balance.GreaterThan(ranked[j].Balance)
	})
	return truncate(ranked), nil
}

// topByVolume ranks users by the total amount of their completed outgoing
// transactions: deposits and withdrawals by owner, transfers by source.
func (s *service) topByVolume(ctx context.Context) ([]RankedUser, error) {
	txs, err := s.txns.ListAll(ctx)
	if err != nil {
		return nil, err
	}
	names, err := s.usernames()
	if err != nil {
		return nil, err
	}

	volumes := make(map[uint]decimal.Decimal)
	for i := range txs {
		t := &txs[i]
		if t.Status != models.TransactionStatusCompleted {
			continue
		}
		switch t.Kind {
		case models.TransactionKindTransfer:
			if t.FromUserID != nil {
				volumes[*t.FromUserID] = volumes[*t.FromUserID].Add(t.Amount)
			}
		case models.TransactionKindDeposit, models.TransactionKindWithdraw:
			if t.UserID != nil {
				volumes[*t.UserID] = volumes[*t.UserID].Add(t.Amount)
			}
		}
	}

	ranked := make([]RankedUser, 0, len(volumes))
	for id, volume := range volumes {
		ranked = append(ranked, RankedUser{
			UserID:   id,
			Username: names[id],
			Volume:   volume,
		})
	}
	sort.SliceStable(ranked, func(i, j int) bool {
		if !ranked[i].Volume.Equal(ranked[j].Volume) {
			return ranked[i].Volume.GreaterThan(ranked[j].Volume)
		}
		return ranked[i].UserID < ranked[j].UserID
	})
	return truncate(ranked), nil
}

func (s *service) usernames() (map[uint]string, error) {
	users, err := s.users.List()
	if err != nil {
		return nil, err
	}
	names := make(map[uint]string, len(users))
	for _, u := range users {
		names[u.ID] = u.Username
	}
	return names, nil
}

func truncate(ranked []RankedUser) []RankedUser {
	if len(ranked) > topUserLimit {
		return ranked[:topUserLimit]
	}
	return ranked
}
