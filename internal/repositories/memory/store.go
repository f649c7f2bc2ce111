// Package memory provides a mutex-guarded in-memory implementation of the
// repository interfaces. It backs unit tests and the seed tool; the postgres
// implementation in the parent package is the production store.
package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"pouch/internal/models"
	"pouch/internal/repositories"
)

var (
	_ repositories.UserRepository        = (*userRepo)(nil)
	_ repositories.WalletRepository      = (*walletRepo)(nil)
	_ repositories.TransactionRepository = (*transactionRepo)(nil)
)

// Store holds all three collections behind one lock so that
// ExecuteInTransaction can commit wallet updates and transaction appends as a
// unit, mirroring a database transaction.
type Store struct {
	mu           sync.RWMutex
	users        map[uint]*models.User
	usernames    map[string]uint
	wallets      map[uint]*models.Wallet // keyed by owning user ID
	transactions []models.Transaction
	nextUserID   uint
	nextWalletID uint
	commitErr    error
}

func NewStore() *Store {
	return &Store{
		users:     make(map[uint]*models.User),
		usernames: make(map[string]uint),
		wallets:   make(map[uint]*models.Wallet),
	}
}

// Users returns the user view of the store.
func (s *Store) Users() repositories.UserRepository { return &userRepo{store: s} }

// Wallets returns the wallet view of the store.
func (s *Store) Wallets() repositories.WalletRepository { return &walletRepo{store: s} }

// Transactions returns the transaction-log view of the store.
func (s *Store) Transactions() repositories.TransactionRepository { return &transactionRepo{store: s} }

// FailCommits makes every subsequent ExecuteInTransaction fail with err
// without applying any writes. Pass nil to restore normal behaviour.
func (s *Store) FailCommits(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.commitErr = err
}

type userRepo struct {
	store *Store
}

func (r *userRepo) Create(user *models.User) error {
	s := r.store
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.usernames[user.Username]; exists {
		return fmt.Errorf("%w: %s", repositories.ErrDuplicateUser, user.Username)
	}
	s.nextUserID++
	user.ID = s.nextUserID
	user.CreatedAt = time.Now()
	cp := *user
	s.users[user.ID] = &cp
	s.usernames[user.Username] = user.ID
	return nil
}

func (r *userRepo) GetByID(id uint) (*models.User, error) {
	s := r.store
	s.mu.RLock()
	defer s.mu.RUnlock()

	user, ok := s.users[id]
	if !ok {
		return nil, fmt.Errorf("%w: id %d", repositories.ErrUserNotFound, id)
	}
	cp := *user
	return &cp, nil
}

func (r *userRepo) GetByUsername(username string) (*models.User, error) {
	s := r.store
	s.mu.RLock()
	defer s.mu.RUnlock()

	id, ok := s.usernames[username]
	if !ok {
		return nil, fmt.Errorf("%w: %s", repositories.ErrUserNotFound, username)
	}
	cp := *s.users[id]
	return &cp, nil
}

func (r *userRepo) Update(user *models.User) error {
	s := r.store
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.users[user.ID]; !ok {
		return fmt.Errorf("%w: id %d", repositories.ErrUserNotFound, user.ID)
	}
	user.UpdatedAt = time.Now()
	cp := *user
	s.users[user.ID] = &cp
	return nil
}

func (r *userRepo) List() ([]models.User, error) {
	s := r.store
	s.mu.RLock()
	defer s.mu.RUnlock()

	users := make([]models.User, 0, len(s.users))
	for id := uint(1); id <= s.nextUserID; id++ {
		if u, ok := s.users[id]; ok {
			users = append(users, *u)
		}
	}
	return users, nil
}

type walletRepo struct {
	store *Store
}

func (r *walletRepo) Create(wallet *models.Wallet) error {
	s := r.store
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.createWalletLocked(wallet)
}

func (r *walletRepo) GetByUserID(userID uint) (*models.Wallet, error) {
	s := r.store
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.getWalletLocked(userID)
}

func (r *walletRepo) Update(wallet *models.Wallet) error {
	s := r.store
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.updateWalletLocked(wallet)
}

func (r *walletRepo) List() ([]models.Wallet, error) {
	s := r.store
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.listWalletsLocked(), nil
}

func (r *walletRepo) TotalBalance() (decimal.Decimal, error) {
	s := r.store
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.totalBalanceLocked(), nil
}

func (r *walletRepo) CreateTransaction(tx *models.Transaction) error {
	s := r.store
	s.mu.Lock()
	defer s.mu.Unlock()
	s.appendTransactionLocked(tx)
	return nil
}

// ExecuteInTransaction applies fn atomically: on error (or injected commit
// failure) the wallet and transaction collections are restored to their
// pre-call state.
func (r *walletRepo) ExecuteInTransaction(fn func(repositories.WalletRepository) error) error {
	s := r.store
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.commitErr != nil {
		return s.commitErr
	}

	savedWallets := make(map[uint]*models.Wallet, len(s.wallets))
	for id, w := range s.wallets {
		cp := *w
		savedWallets[id] = &cp
	}
	savedTxCount := len(s.transactions)

	if err := fn(&txView{store: s}); err != nil {
		s.wallets = savedWallets
		s.transactions = s.transactions[:savedTxCount]
		return err
	}
	return nil
}

type transactionRepo struct {
	store *Store
}

func (r *transactionRepo) GetByID(ctx context.Context, id string) (*models.Transaction, error) {
	s := r.store
	s.mu.RLock()
	defer s.mu.RUnlock()

	for i := range s.transactions {
		if s.transactions[i].ID == id {
			cp := s.transactions[i]
			return &cp, nil
		}
	}
	return nil, fmt.Errorf("%w: %s", repositories.ErrTransactionNotFound, id)
}

func (r *transactionRepo) ListAll(ctx context.Context) ([]models.Transaction, error) {
	s := r.store
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.filterLocked(func(*models.Transaction) bool { return true }), nil
}

func (r *transactionRepo) HistoryFor(ctx context.Context, accountID uint) ([]models.Transaction, error) {
	s := r.store
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.filterLocked(func(t *models.Transaction) bool { return t.Involves(accountID) }), nil
}

func (r *transactionRepo) ListFlagged(ctx context.Context) ([]models.Transaction, error) {
	s := r.store
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.filterLocked(func(t *models.Transaction) bool { return t.Flagged }), nil
}

func (s *Store) createWalletLocked(wallet *models.Wallet) error {
	if _, exists := s.wallets[wallet.UserID]; exists {
		return fmt.Errorf("%w: user %d", repositories.ErrDuplicateWallet, wallet.UserID)
	}
	s.nextWalletID++
	wallet.ID = s.nextWalletID
	wallet.Balance = decimal.Zero
	wallet.CreatedAt = time.Now()
	cp := *wallet
	s.wallets[wallet.UserID] = &cp
	return nil
}

func (s *Store) getWalletLocked(userID uint) (*models.Wallet, error) {
	wallet, ok := s.wallets[userID]
	if !ok {
		return nil, fmt.Errorf("%w: user %d", repositories.ErrWalletNotFound, userID)
	}
	cp := *wallet
	return &cp, nil
}

func (s *Store) updateWalletLocked(wallet *models.Wallet) error {
	if _, ok := s.wallets[wallet.UserID]; !ok {
		return fmt.Errorf("%w: user %d", repositories.ErrWalletNotFound, wallet.UserID)
	}
	wallet.UpdatedAt = time.Now()
	cp := *wallet
	s.wallets[wallet.UserID] = &cp
	return nil
}

func (s *Store) listWalletsLocked() []models.Wallet {
	wallets := make([]models.Wallet, 0, len(s.wallets))
	for id := uint(1); id <= s.nextUserID; id++ {
		if w, ok := s.wallets[id]; ok {
			wallets = append(wallets, *w)
		}
	}
	return wallets
}

func (s *Store) totalBalanceLocked() decimal.Decimal {
	total := decimal.Zero
	for _, w := range s.wallets {
		total = total.Add(w.Balance)
	}
	return total
}

func (s *Store) appendTransactionLocked(tx *models.Transaction) {
	s.transactions = append(s.transactions, *tx)
}

// filterLocked returns matching transactions newest first by timestamp, with
// reverse commit order breaking ties.
func (s *Store) filterLocked(keep func(*models.Transaction) bool) []models.Transaction {
	result := make([]models.Transaction, 0)
	for i := len(s.transactions) - 1; i >= 0; i-- {
		if keep(&s.transactions[i]) {
			result = append(result, s.transactions[i])
		}
	}
	sort.SliceStable(result, func(i, j int) bool {
		return result[i].CreatedAt.After(result[j].CreatedAt)
	})
	return result
}

// txView exposes the wallet repository surface against an already-locked
// store, for use inside ExecuteInTransaction.
type txView struct {
	store *Store
}

func (v *txView) Create(wallet *models.Wallet) error {
	return v.store.createWalletLocked(wallet)
}

func (v *txView) GetByUserID(userID uint) (*models.Wallet, error) {
	return v.store.getWalletLocked(userID)
}

func (v *txView) Update(wallet *models.Wallet) error {
	return v.store.updateWalletLocked(wallet)
}

func (v *txView) List() ([]models.Wallet, error) {
	return v.store.listWalletsLocked(), nil
}

func (v *txView) TotalBalance() (decimal.Decimal, error) {
	return v.store.totalBalanceLocked(), nil
}

func (v *txView) CreateTransaction(tx *models.Transaction) error {
	v.store.appendTransactionLocked(tx)
	return nil
}

func (v *txView) ExecuteInTransaction(fn func(repositories.WalletRepository) error) error {
	// Already inside the commit unit; nesting just runs fn.
	return fn(v)
}
