package ledger

import (
	"context"
	"errors"
	"io"
	"sync"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pouch/internal/models"
	"pouch/internal/repositories/memory"
	"pouch/internal/services/fraud"
)

type fixture struct {
	store *memory.Store
	svc   Service
}

func newFixture(t *testing.T, cfg Config) *fixture {
	t.Helper()
	store := memory.NewStore()
	log := logrus.New()
	log.SetOutput(io.Discard)
	engine := fraud.NewEngine(fraud.Config{}, log)
	svc := NewService(store.Users(), store.Wallets(), store.Transactions(), engine, cfg, nil, log)
	return &fixture{store: store, svc: svc}
}

func (f *fixture) addUser(t *testing.T, username string) uint {
	t.Helper()
	user := &models.User{Username: username, Password: "x"}
	require.NoError(t, f.store.Users().Create(user))
	require.NoError(t, f.store.Wallets().Create(&models.Wallet{UserID: user.ID, Currency: DefaultCurrency}))
	return user.ID
}

func (f *fixture) fund(t *testing.T, userID uint, amount int64) {
	t.Helper()
	_, err := f.svc.Deposit(context.Background(), userID, decimal.NewFromInt(amount))
	require.NoError(t, err)
}

func (f *fixture) balance(t *testing.T, userID uint) decimal.Decimal {
	t.Helper()
	wallet, err := f.store.Wallets().GetByUserID(userID)
	require.NoError(t, err)
	return wallet.Balance
}

func TestService_Deposit(t *testing.T) {
	ctx := context.Background()

	t.Run("increases the balance and records a completed transaction", func(t *testing.T) {
		f := newFixture(t, Config{})
		alice := f.addUser(t, "alice")

		balance, err := f.svc.Deposit(ctx, alice, decimal.RequireFromString("100.50"))
		require.NoError(t, err)
		assert.True(t, balance.Equal(decimal.RequireFromString("100.50")))

		history, err := f.svc.GetHistory(ctx, alice)
		require.NoError(t, err)
		require.Len(t, history, 1)
		assert.Equal(t, models.TransactionKindDeposit, history[0].Kind)
		assert.Equal(t, models.TransactionStatusCompleted, history[0].Status)
		assert.False(t, history[0].Flagged)
	})

	t.Run("rejects non-positive amounts", func(t *testing.T) {
		f := newFixture(t, Config{})
		alice := f.addUser(t, "alice")

		_, err := f.svc.Deposit(ctx, alice, decimal.Zero)
		assert.ErrorIs(t, err, ErrInvalidAmount)

		_, err = f.svc.Deposit(ctx, alice, decimal.NewFromInt(-10))
		assert.ErrorIs(t, err, ErrInvalidAmount)

		history, err := f.svc.GetHistory(ctx, alice)
		require.NoError(t, err)
		assert.Empty(t, history)
	})

	t.Run("unknown wallet", func(t *testing.T) {
		f := newFixture(t, Config{})
		_, err := f.svc.Deposit(ctx, 42, decimal.NewFromInt(10))
		assert.ErrorIs(t, err, ErrWalletNotFound)
	})

	t.Run("large deposits are never flagged", func(t *testing.T) {
		f := newFixture(t, Config{})
		alice := f.addUser(t, "alice")

		_, err := f.svc.Deposit(ctx, alice, decimal.NewFromInt(1000000))
		require.NoError(t, err)

		flagged, err := f.svc.ListFlagged(ctx)
		require.NoError(t, err)
		assert.Empty(t, flagged)
	})
}

func TestService_Withdraw(t *testing.T) {
	ctx := context.Background()

	t.Run("reduces the balance", func(t *testing.T) {
		f := newFixture(t, Config{})
		alice := f.addUser(t, "alice")
		f.fund(t, alice, 100)

		balance, outcome, err := f.svc.Withdraw(ctx, alice, decimal.NewFromInt(40))
		require.NoError(t, err)
		assert.True(t, balance.Equal(decimal.NewFromInt(60)))
		assert.False(t, outcome.Flagged)
		assert.Equal(t, "No fraud detected", outcome.Status())
	})

	t.Run("insufficient funds leaves state untouched", func(t *testing.T) {
		f := newFixture(t, Config{})
		alice := f.addUser(t, "alice")
		f.fund(t, alice, 100)

		_, _, err := f.svc.Withdraw(ctx, alice, decimal.NewFromInt(200))
		assert.ErrorIs(t, err, ErrInsufficientFunds)
		assert.True(t, f.balance(t, alice).Equal(decimal.NewFromInt(100)))

		history, err := f.svc.GetHistory(ctx, alice)
		require.NoError(t, err)
		require.Len(t, history, 1) // just the funding deposit
	})

	t.Run("withdrawing the full balance is allowed", func(t *testing.T) {
		f := newFixture(t, Config{})
		alice := f.addUser(t, "alice")
		f.fund(t, alice, 100)

		balance, _, err := f.svc.Withdraw(ctx, alice, decimal.NewFromInt(100))
		require.NoError(t, err)
		assert.True(t, balance.IsZero())
	})

	t.Run("large withdrawal is flagged but still completes", func(t *testing.T) {
		f := newFixture(t, Config{})
		alice := f.addUser(t, "alice")
		f.fund(t, alice, 10000)

		balance, outcome, err := f.svc.Withdraw(ctx, alice, decimal.NewFromInt(6000))
		require.NoError(t, err)
		assert.True(t, balance.Equal(decimal.NewFromInt(4000)))
		assert.True(t, outcome.Flagged)
		assert.Equal(t, fraud.ReasonLargeWithdrawal, outcome.Reason)

		flagged, err := f.svc.ListFlagged(ctx)
		require.NoError(t, err)
		require.Len(t, flagged, 1)
		assert.Equal(t, models.TransactionStatusCompleted, flagged[0].Status)
		require.NotNil(t, flagged[0].FlagReason)
		assert.Equal(t, fraud.ReasonLargeWithdrawal, *flagged[0].FlagReason)
	})

	t.Run("withdrawal of exactly the threshold is not flagged", func(t *testing.T) {
		f := newFixture(t, Config{})
		alice := f.addUser(t, "alice")
		f.fund(t, alice, 10000)

		_, outcome, err := f.svc.Withdraw(ctx, alice, decimal.NewFromInt(5000))
		require.NoError(t, err)
		assert.False(t, outcome.Flagged)
	})
}

func TestService_Transfer(t *testing.T) {
	ctx := context.Background()

	t.Run("moves funds and conserves the total", func(t *testing.T) {
		f := newFixture(t, Config{})
		alice := f.addUser(t, "alice")
		bob := f.addUser(t, "bob")
		f.fund(t, alice, 100)
		f.fund(t, bob, 20)

		balance, outcome, err := f.svc.Transfer(ctx, alice, bob, decimal.NewFromInt(50))
		require.NoError(t, err)
		assert.True(t, balance.Equal(decimal.NewFromInt(50)))
		assert.False(t, outcome.Flagged)
		assert.True(t, f.balance(t, bob).Equal(decimal.NewFromInt(70)))

		total, err := f.store.Wallets().TotalBalance()
		require.NoError(t, err)
		assert.True(t, total.Equal(decimal.NewFromInt(120)))
	})

	t.Run("rejects self transfer", func(t *testing.T) {
		f := newFixture(t, Config{})
		alice := f.addUser(t, "alice")
		f.fund(t, alice, 100)

		_, _, err := f.svc.Transfer(ctx, alice, alice, decimal.NewFromInt(10))
		assert.ErrorIs(t, err, ErrSelfTransfer)
	})

	t.Run("rejects unknown recipient", func(t *testing.T) {
		f := newFixture(t, Config{})
		alice := f.addUser(t, "alice")
		f.fund(t, alice, 100)

		_, _, err := f.svc.Transfer(ctx, alice, 99, decimal.NewFromInt(10))
		assert.ErrorIs(t, err, ErrRecipientNotFound)
	})

	t.Run("rejects amounts above ninety percent of balance", func(t *testing.T) {
		f := newFixture(t, Config{})
		alice := f.addUser(t, "alice")
		bob := f.addUser(t, "bob")
		f.fund(t, alice, 100)

		_, _, err := f.svc.Transfer(ctx, alice, bob, decimal.NewFromInt(91))
		assert.ErrorIs(t, err, ErrExceedsTransferLimit)
		assert.True(t, f.balance(t, alice).Equal(decimal.NewFromInt(100)))

		// Exactly ninety percent is allowed.
		balance, _, err := f.svc.Transfer(ctx, alice, bob, decimal.NewFromInt(90))
		require.NoError(t, err)
		assert.True(t, balance.Equal(decimal.NewFromInt(10)))
	})

	t.Run("insufficient funds checked before the transfer cap", func(t *testing.T) {
		f := newFixture(t, Config{})
		alice := f.addUser(t, "alice")
		bob := f.addUser(t, "bob")
		f.fund(t, alice, 100)

		_, _, err := f.svc.Transfer(ctx, alice, bob, decimal.NewFromInt(150))
		assert.ErrorIs(t, err, ErrInsufficientFunds)
	})

	t.Run("fourth rapid transfer is flagged but still completes", func(t *testing.T) {
		f := newFixture(t, Config{})
		alice := f.addUser(t, "alice")
		bob := f.addUser(t, "bob")
		f.fund(t, alice, 1000)

		for i := 0; i < 3; i++ {
			_, outcome, err := f.svc.Transfer(ctx, alice, bob, decimal.NewFromInt(10))
			require.NoError(t, err)
			assert.False(t, outcome.Flagged)
		}

		_, outcome, err := f.svc.Transfer(ctx, alice, bob, decimal.NewFromInt(10))
		require.NoError(t, err)
		assert.True(t, outcome.Flagged)
		assert.Equal(t, fraud.ReasonBurstTransfers, outcome.Reason)
		assert.True(t, f.balance(t, bob).Equal(decimal.NewFromInt(40)))
	})

	t.Run("recipient burst activity does not flag the sender", func(t *testing.T) {
		f := newFixture(t, Config{})
		alice := f.addUser(t, "alice")
		bob := f.addUser(t, "bob")
		carol := f.addUser(t, "carol")
		f.fund(t, alice, 1000)
		f.fund(t, carol, 1000)

		for i := 0; i < 3; i++ {
			_, _, err := f.svc.Transfer(ctx, alice, bob, decimal.NewFromInt(10))
			require.NoError(t, err)
		}

		_, outcome, err := f.svc.Transfer(ctx, carol, bob, decimal.NewFromInt(10))
		require.NoError(t, err)
		assert.False(t, outcome.Flagged)
	})
}

func TestService_BlockOnFlag(t *testing.T) {
	ctx := context.Background()

	t.Run("flagged withdrawal is held and the balance untouched", func(t *testing.T) {
		f := newFixture(t, Config{BlockOnFlag: true})
		alice := f.addUser(t, "alice")
		f.fund(t, alice, 10000)

		balance, outcome, err := f.svc.Withdraw(ctx, alice, decimal.NewFromInt(6000))
		assert.ErrorIs(t, err, ErrHeldForReview)
		assert.True(t, outcome.Flagged)
		assert.True(t, balance.Equal(decimal.NewFromInt(10000)))
		assert.True(t, f.balance(t, alice).Equal(decimal.NewFromInt(10000)))

		// The held transaction is persisted pending and flagged for review.
		flagged, err := f.svc.ListFlagged(ctx)
		require.NoError(t, err)
		require.Len(t, flagged, 1)
		assert.Equal(t, models.TransactionStatusPending, flagged[0].Status)
	})

	t.Run("flagged transfer is held and neither balance moves", func(t *testing.T) {
		f := newFixture(t, Config{BlockOnFlag: true})
		alice := f.addUser(t, "alice")
		bob := f.addUser(t, "bob")
		f.fund(t, alice, 1000)

		for i := 0; i < 3; i++ {
			_, _, err := f.svc.Transfer(ctx, alice, bob, decimal.NewFromInt(10))
			require.NoError(t, err)
		}

		_, _, err := f.svc.Transfer(ctx, alice, bob, decimal.NewFromInt(10))
		assert.ErrorIs(t, err, ErrHeldForReview)
		assert.True(t, f.balance(t, alice).Equal(decimal.NewFromInt(970)))
		assert.True(t, f.balance(t, bob).Equal(decimal.NewFromInt(30)))
	})

	t.Run("held pending transfers do not feed the burst count", func(t *testing.T) {
		f := newFixture(t, Config{BlockOnFlag: true})
		alice := f.addUser(t, "alice")
		bob := f.addUser(t, "bob")
		f.fund(t, alice, 10000)

		// Three completed, then one held. The held row is pending, so the
		// next attempt still sees only the three completed transfers.
		for i := 0; i < 3; i++ {
			_, _, err := f.svc.Transfer(ctx, alice, bob, decimal.NewFromInt(10))
			require.NoError(t, err)
		}
		_, _, err := f.svc.Transfer(ctx, alice, bob, decimal.NewFromInt(10))
		assert.ErrorIs(t, err, ErrHeldForReview)

		_, _, err = f.svc.Transfer(ctx, alice, bob, decimal.NewFromInt(10))
		assert.ErrorIs(t, err, ErrHeldForReview)

		flagged, err := f.svc.ListFlagged(ctx)
		require.NoError(t, err)
		assert.Len(t, flagged, 2)
	})
}

func TestService_CommitFailure(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, Config{})
	alice := f.addUser(t, "alice")
	f.fund(t, alice, 100)

	f.store.FailCommits(errors.New("connection reset"))

	_, err := f.svc.Deposit(ctx, alice, decimal.NewFromInt(10))
	assert.ErrorIs(t, err, ErrCommitFailed)

	_, _, err = f.svc.Withdraw(ctx, alice, decimal.NewFromInt(10))
	assert.ErrorIs(t, err, ErrCommitFailed)

	f.store.FailCommits(nil)

	// Nothing was applied while commits failed.
	assert.True(t, f.balance(t, alice).Equal(decimal.NewFromInt(100)))
	history, err := f.svc.GetHistory(ctx, alice)
	require.NoError(t, err)
	assert.Len(t, history, 1)

	_, err = f.svc.Deposit(ctx, alice, decimal.NewFromInt(10))
	assert.NoError(t, err)
}

func TestService_HistoryOrderingAndScope(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, Config{})
	alice := f.addUser(t, "alice")
	bob := f.addUser(t, "bob")
	carol := f.addUser(t, "carol")
	f.fund(t, alice, 100)
	f.fund(t, carol, 100)

	_, _, err := f.svc.Transfer(ctx, alice, bob, decimal.NewFromInt(10))
	require.NoError(t, err)
	_, _, err = f.svc.Transfer(ctx, carol, bob, decimal.NewFromInt(5))
	require.NoError(t, err)

	t.Run("newest first", func(t *testing.T) {
		history, err := f.svc.GetHistory(ctx, alice)
		require.NoError(t, err)
		require.Len(t, history, 2)
		assert.Equal(t, models.TransactionKindTransfer, history[0].Kind)
		assert.Equal(t, models.TransactionKindDeposit, history[1].Kind)
		assert.False(t, history[0].CreatedAt.Before(history[1].CreatedAt))
	})

	t.Run("includes sent and received", func(t *testing.T) {
		history, err := f.svc.GetHistory(ctx, bob)
		require.NoError(t, err)
		require.Len(t, history, 2)
		for _, txn := range history {
			assert.True(t, txn.Involves(bob))
		}
	})

	t.Run("excludes other accounts", func(t *testing.T) {
		history, err := f.svc.GetHistory(ctx, alice)
		require.NoError(t, err)
		for _, txn := range history {
			assert.True(t, txn.Involves(alice))
			assert.False(t, txn.Involves(carol))
		}
	})
}

func TestService_ConcurrentDeposits(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, Config{})
	alice := f.addUser(t, "alice")

	const workers = 25
	var wg sync.WaitGroup
	wg.Add(workers)
	for i := 0; i < workers; i++ {
		go func() {
			defer wg.Done()
			_, err := f.svc.Deposit(ctx, alice, decimal.NewFromInt(2))
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	assert.True(t, f.balance(t, alice).Equal(decimal.NewFromInt(2*workers)))

	history, err := f.svc.GetHistory(ctx, alice)
	require.NoError(t, err)
	assert.Len(t, history, workers)
}

func TestService_OpposingTransfersDoNotDeadlock(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, Config{})
	alice := f.addUser(t, "alice")
	bob := f.addUser(t, "bob")
	f.fund(t, alice, 1000)
	f.fund(t, bob, 1000)

	const rounds = 10
	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		for i := 0; i < rounds; i++ {
			_, _, err := f.svc.Transfer(ctx, alice, bob, decimal.NewFromInt(1))
			assert.NoError(t, err)
		}
	}()
	go func() {
		defer wg.Done()
		for i := 0; i < rounds; i++ {
			_, _, err := f.svc.Transfer(ctx, bob, alice, decimal.NewFromInt(1))
			assert.NoError(t, err)
		}
	}()
	wg.Wait()

	total, err := f.store.Wallets().TotalBalance()
	require.NoError(t, err)
	assert.True(t, total.Equal(decimal.NewFromInt(2000)))
}

// End-to-end walk through a realistic session: fund, over-withdraw, hit the
// transfer cap, then move most of the balance.
func TestService_SessionScenario(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, Config{})
	u := f.addUser(t, "u")
	v := f.addUser(t, "v")
	f.fund(t, u, 100)

	balance, err := f.svc.Deposit(ctx, u, decimal.NewFromInt(50))
	require.NoError(t, err)
	assert.True(t, balance.Equal(decimal.NewFromInt(150)))

	_, _, err = f.svc.Withdraw(ctx, u, decimal.NewFromInt(200))
	assert.ErrorIs(t, err, ErrInsufficientFunds)

	_, _, err = f.svc.Transfer(ctx, u, v, decimal.NewFromInt(140))
	assert.ErrorIs(t, err, ErrExceedsTransferLimit)

	balance, _, err = f.svc.Transfer(ctx, u, v, decimal.NewFromInt(100))
	require.NoError(t, err)
	assert.True(t, balance.Equal(decimal.NewFromInt(50)))
	assert.True(t, f.balance(t, v).Equal(decimal.NewFromInt(100)))
}
