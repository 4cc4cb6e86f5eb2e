package tenantlock

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

const (
	defaultKeyPrefix     = "dispatch:lock:tenant:"
	defaultLeaseDuration = 30 * time.Second
	defaultRetryInterval = 50 * time.Millisecond
)

// renewScript extends the lease only if we still own it.
var renewScript = redis.NewScript(`
	if redis.call("get", KEYS[1]) == ARGV[1] then
		return redis.call("pexpire", KEYS[1], ARGV[2])
	else
		return 0
	end
`)

// releaseScript deletes the lock only if we still own it.
var releaseScript = redis.NewScript(`
	if redis.call("get", KEYS[1]) == ARGV[1] then
		return redis.call("del", KEYS[1])
	else
		return 0
	end
`)

// RedisConfig configures the distributed tenant lock.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int

	// KeyPrefix is prepended to the tenant ID to build the lock key
	KeyPrefix string

	// LeaseDuration bounds how long a crashed holder can block a tenant
	LeaseDuration time.Duration

	// RenewInterval is how often a live holder extends its lease.
	// Defaults to a third of LeaseDuration.
	RenewInterval time.Duration

	// RetryInterval is how often a waiter polls for the lock
	RetryInterval time.Duration
}

// Redis is a per-tenant lock shared by every API instance, built on
// SET NX PX with an owner token.
type Redis struct {
	client *redis.Client
	cfg    RedisConfig
	logger zerolog.Logger
}

// NewRedis connects to Redis and returns a distributed locker.
func NewRedis(cfg RedisConfig, logger zerolog.Logger) (*Redis, error) {
	if cfg.KeyPrefix == "" {
		cfg.KeyPrefix = defaultKeyPrefix
	}
	if cfg.LeaseDuration <= 0 {
		cfg.LeaseDuration = defaultLeaseDuration
	}
	if cfg.RenewInterval <= 0 || cfg.RenewInterval >= cfg.LeaseDuration {
		cfg.RenewInterval = cfg.LeaseDuration / 3
	}
	if cfg.RetryInterval <= 0 {
		cfg.RetryInterval = defaultRetryInterval
	}

	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	logger.Info().Str("redis_addr", cfg.Addr).Msg("connected to Redis for tenant locking")
	return &Redis{
		client: client,
		cfg:    cfg,
		logger: logger.With().Str("component", "tenant_lock").Logger(),
	}, nil
}

// Lock polls until the tenant key is acquired or ctx is done. The lease is
// renewed in the background until the returned func is called.
func (r *Redis) Lock(ctx context.Context, tenantID string) (func(), error) {
	key := r.cfg.KeyPrefix + tenantID
	token := uuid.New().String()

	ticker := time.NewTicker(r.cfg.RetryInterval)
	defer ticker.Stop()
	for {
		ok, err := r.client.SetNX(ctx, key, token, r.cfg.LeaseDuration).Result()
		if err != nil && !errors.Is(err, context.Canceled) && !errors.Is(err, context.DeadlineExceeded) {
			return nil, fmt.Errorf("set lock: %w", err)
		}
		if ok {
			return r.hold(key, token), nil
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-ticker.C:
		}
	}
}

// hold starts renewing the lease and returns the unlock func, which stops
// renewal before releasing the key. Calling it more than once is a no-op.
func (r *Redis) hold(key, token string) func() {
	stop := make(chan struct{})
	done := make(chan struct{})
	go func() {
		defer close(done)
		keepAlive(stop, r.cfg.RenewInterval, func() (bool, error) { return r.renew(key, token) }, r.logger.With().Str("key", key).Logger())
	}()

	var once sync.Once
	return func() {
		once.Do(func() {
			close(stop)
			<-done
			r.release(key, token)
		})
	}
}

func (r *Redis) renew(key, token string) (bool, error) {
	ctx, cancel := context.WithTimeout(context.Background(), r.cfg.RenewInterval)
	defer cancel()
	n, err := renewScript.Run(ctx, r.client, []string{key}, token, r.cfg.LeaseDuration.Milliseconds()).Int()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

// keepAlive calls renew every interval until stop is closed or renew reports
// the lease is gone. Transient errors are retried on the next tick.
func keepAlive(stop <-chan struct{}, interval time.Duration, renew func() (bool, error), logger zerolog.Logger) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
		}
		held, err := renew()
		if err != nil {
			logger.Warn().Err(err).Msg("failed to renew tenant lock")
			continue
		}
		if !held {
			logger.Error().Msg("tenant lock expired while held")
			return
		}
	}
}

func (r *Redis) release(key, token string) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := releaseScript.Run(ctx, r.client, []string{key}, token).Err(); err != nil {
		r.logger.Warn().Err(err).Str("key", key).Msg("failed to release tenant lock")
	}
}

// Close closes the Redis connection.
func (r *Redis) Close() error {
	return r.client.Close()
}
