package auth

import (
	"context"
	"fmt"
	"sync"
	"time"

	apperrors "github.com/frahmantamala/archival-system/internal"
	"github.com/redis/go-redis/v9"
)

// Denylist records revoked token ids until the token would have expired anyway.
// Revoke is a test-and-set: it reports true only for the call that revoked jti
// first, so concurrent rotations of one refresh token have a single winner.
type Denylist interface {
	Revoke(ctx context.Context, jti string, until time.Time) (bool, error)
	IsRevoked(ctx context.Context, jti string) (bool, error)
}

type RedisDenylist struct {
	client *redis.Client
	prefix string
}

func NewRedisDenylist(client *redis.Client) *RedisDenylist {
	return &RedisDenylist{client: client, prefix: "auth:revoked:"}
}

// NewRedisClient connects and pings, failing fast when redis is unreachable.
func NewRedisClient(ctx context.Context, addr, password string, db int) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis ping %s: %w", addr, err)
	}
	return client, nil
}

// Revoke uses SETNX so only one caller observes the first revocation. An
// already expired token needs no entry and reports false.
func (d *RedisDenylist) Revoke(ctx context.Context, jti string, until time.Time) (bool, error) {
	ttl := time.Until(until)
	if ttl <= 0 {
		return false, nil
	}
	first, err := d.client.SetNX(ctx, d.prefix+jti, 1, ttl).Result()
	if err != nil {
		return false, apperrors.NewStoreUnavailableError("revoke token", err)
	}
	return first, nil
}

func (d *RedisDenylist) IsRevoked(ctx context.Context, jti string) (bool, error) {
	n, err := d.client.Exists(ctx, d.prefix+jti).Result()
	if err != nil {
		return false, apperrors.NewStoreUnavailableError("check token revocation", err)
	}
	return n > 0, nil
}

// MemoryDenylist serves single-instance deployments that run without redis.
type MemoryDenylist struct {
	mu      sync.Mutex
	revoked map[string]time.Time
	now     func() time.Time
}

func NewMemoryDenylist() *MemoryDenylist {
	return &MemoryDenylist{revoked: make(map[string]time.Time), now: time.Now}
}

func (d *MemoryDenylist) Revoke(_ context.Context, jti string, until time.Time) (bool, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	now := d.now()
	for id, exp := range d.revoked {
		if !exp.After(now) {
			delete(d.revoked, id)
		}
	}
	if !until.After(now) {
		return false, nil
	}
	if _, held := d.revoked[jti]; held {
		return false, nil
	}
	d.revoked[jti] = until
	return true, nil
}

func (d *MemoryDenylist) IsRevoked(_ context.Context, jti string) (bool, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	exp, ok := d.revoked[jti]
	return ok && exp.After(d.now()), nil
}
