// Package auth handles registration, login and account lockout. It owns the
// user collection; the ledger only reads it.
package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/crypto/bcrypt"

	"pouch/internal/models"
	"pouch/internal/repositories"
	"pouch/internal/utils"
)

// Lockout policy: after MaxLoginAttempts consecutive failures the account is
// locked for LockDuration.
const (
	MaxLoginAttempts = 3
	LockDuration     = 24 * time.Hour
)

var (
	ErrInvalidCredentials = errors.New("invalid username or password")
	ErrAccountLocked      = errors.New("account locked due to too many failed login attempts")
	ErrUsernameTaken      = errors.New("username already exists")
	ErrWeakPassword       = errors.New("password must contain at least one special character and one number")
)

type Service interface {
	// Register creates the account and its zero-balance wallet together.
	Register(username, password string) (*models.User, string, error)
	Login(username, password string) (*models.User, string, error)
}

type service struct {
	users   repositories.UserRepository
	wallets repositories.WalletRepository
	logger  *logrus.Logger
}

func NewService(users repositories.UserRepository, wallets repositories.WalletRepository, logger *logrus.Logger) Service {
	if users == nil {
		panic("users repository is required")
	}
	if wallets == nil {
		panic("wallets repository is required")
	}
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &service{users: users, wallets: wallets, logger: logger}
}

func (s *service) Register(username, password string) (*models.User, string, error) {
	if username == "" || password == "" {
		return nil, "", ErrInvalidCredentials
	}
	if !validPassword(password) {
		return nil, "", ErrWeakPassword
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, "", fmt.Errorf("failed to hash password: %w", err)
	}

	user := &models.User{
		Username:    username,
		Password:    string(hash),
		DisplayName: username,
		Role:        models.RoleUser,
	}
	if err := s.users.Create(user); err != nil {
		if errors.Is(err, repositories.ErrDuplicateUser) {
			return nil, "", ErrUsernameTaken
		}
		return nil, "", fmt.Errorf("failed to create user: %w", err)
	}

	// Every account gets a wallet at creation; the ledger relies on this.
	if err := s.wallets.Create(&models.Wallet{UserID: user.ID}); err != nil {
		return nil, "", fmt.Errorf("failed to create wallet: %w", err)
	}

	token, err := utils.GenerateToken(&models.UserClaims{
		UserID:   user.ID,
		Username: user.Username,
		Role:     user.Role,
	})
	if err != nil {
		return nil, "", fmt.Errorf("failed to generate token: %w", err)
	}

	s.logger.WithFields(logrus.Fields{
		"user_id":  user.ID,
		"username": user.Username,
	}).Info("user registered")

	return user, token, nil
}

func (s *service) Login(username, password string) (*models.User, string, error) {
	user, err := s.users.GetByUsername(username)
	if err != nil {
		// Unknown usernames never increment attempts or lock anything.
		return nil, "", ErrInvalidCredentials
	}

	now := time.Now()
	if user.Locked(now) {
		return nil, "", ErrAccountLocked
	}
	if user.AccountLockoutUntil != nil && !user.Locked(now) {
		// Lock expired; reset before evaluating this attempt.
		user.AccountLockoutUntil = nil
		user.FailedLoginAttempts = 0
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(password)); err != nil {
		user.FailedLoginAttempts++
		if user.FailedLoginAttempts >= MaxLoginAttempts {
			until := now.Add(LockDuration)
			user.AccountLockoutUntil = &until
			s.logger.WithFields(logrus.Fields{
				"user_id":  user.ID,
				"username": user.Username,
			}).Warn("account locked after repeated login failures")
		}
		if err := s.users.Update(user); err != nil {
			return nil, "", fmt.Errorf("failed to record login attempt: %w", err)
		}
		if user.AccountLockoutUntil != nil {
			return nil, "", ErrAccountLocked
		}
		return nil, "", ErrInvalidCredentials
	}

	user.FailedLoginAttempts = 0
	user.AccountLockoutUntil = nil
	if err := s.users.Update(user); err != nil {
		return nil, "", fmt.Errorf("failed to reset login attempts: %w", err)
	}

	token, err := utils.GenerateToken(&models.UserClaims{
		UserID:   user.ID,
		Username: user.Username,
		Role:     user.Role,
	})
	if err != nil {
		return nil, "", fmt.Errorf("failed to generate token: %w", err)
	}
	return user, token, nil
}

// validPassword requires at least one digit and one non-alphanumeric rune.
func validPassword(password string) bool {
	hasDigit := false
	hasSpecial := false
	for _, r := range password {
		isLetter := (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z')
		isDigit := r >= '0' && r <= '9'
		if isDigit {
			hasDigit = true
		}
		if !isLetter && !isDigit {
			hasSpecial = true
		}
	}
	return hasDigit && hasSpecial
}
