package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"pouch/internal/models"
)

const (
	walletKeyPrefix  = "wallet:user:"
	DefaultWalletTTL = 60 * time.Second
)

var ErrCacheMiss = errors.New("cache miss")

// WalletCache caches wallet snapshots for read paths. Snapshots may lag the
// store; balance mutations must invalidate the owning account(s).
type WalletCache interface {
	GetWallet(ctx context.Context, userID uint) (*models.Wallet, error)
	SetWallet(ctx context.Context, wallet *models.Wallet) error
	InvalidateWallet(ctx context.Context, userID uint) error
}

type redisWalletCache struct {
	client *redis.Client
	ttl    time.Duration
}

func NewWalletCache(client *redis.Client, ttl time.Duration) WalletCache {
	if ttl == 0 {
		ttl = DefaultWalletTTL
	}
	return &redisWalletCache{client: client, ttl: ttl}
}

func (c *redisWalletCache) GetWallet(ctx context.Context, userID uint) (*models.Wallet, error) {
	data, err := c.client.Get(ctx, walletKey(userID)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrCacheMiss
		}
		return nil, fmt.Errorf("failed to read wallet cache: %w", err)
	}

	var wallet models.Wallet
	if err := json.Unmarshal(data, &wallet); err != nil {
		// Treat undecodable entries as a miss so the caller refreshes them.
		return nil, ErrCacheMiss
	}
	return &wallet, nil
}

func (c *redisWalletCache) SetWallet(ctx context.Context, wallet *models.Wallet) error {
	data, err := json.Marshal(wallet)
	if err != nil {
		return fmt.Errorf("failed to encode wallet: %w", err)
	}
	return c.client.Set(ctx, walletKey(wallet.UserID), data, c.ttl).Err()
}

func (c *redisWalletCache) InvalidateWallet(ctx context.Context, userID uint) error {
	return c.client.Del(ctx, walletKey(userID)).Err()
}

func walletKey(userID uint) string {
	return fmt.Sprintf("%s%d", walletKeyPrefix, userID)
}

/// NoopWalletCache is used when redis is not configured: every read misses
// and invalidations do nothing.
type NoopWalletCache struct{}

func (NoopWalletCache) GetWallet(context.Context, uint) (*models.Wallet, error) {
	return nil, ErrCacheMiss
}
func (NoopWalletCache) SetWallet(context.Context, *models.Wallet) error { return nil }
func (NoopWalletCache) InvalidateWallet(context.Context, uint) error    { return nil }
