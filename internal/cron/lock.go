package cron

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// A settlement sweep over a large backlog can take a while; the TTL only
// bounds how long a crashed worker blocks the schedule.
const defaultLockTTL = 5 * time.Minute

// Lock keeps two workers from running the same schedule at once.
type Lock interface {
	Acquire(ctx context.Context) (bool, error)
	Release(ctx context.Context) error
}

// holderReporter is implemented by locks that can name their current owner.
type holderReporter interface {
	Holder(ctx context.Context) (LockHolder, error)
}

type redisStore interface {
	SetNX(ctx context.Context, key string, value any, ttl time.Duration) (bool, error)
	Get(ctx context.Context, key string) (string, error)
	Del(ctx context.Context, keys ...string) error
}

// LockHolder is decoded from the lock value: which schedule on which worker
// instance owns the key.
type LockHolder struct {
	Schedule string
	Instance string
	token    string
}

func (h LockHolder) value() string {
	return strings.Join([]string{h.Schedule, h.Instance, h.token}, "|")
}

func parseLockHolder(value string) LockHolder {
	parts := strings.SplitN(value, "|", 3)
	if len(parts) != 3 {
		return LockHolder{token: value}
	}
	return LockHolder{Schedule: parts[0], Instance: parts[1], token: parts[2]}
}

// LockParams configure a RedisLock.
type LockParams struct {
	Client   redisStore
	Key      string
	Schedule string
	Instance string
	TTL      time.Duration
}

// RedisLock is a SETNX lease whose value records the owning schedule and
// worker instance.
type RedisLock struct {
	client   redisStore
	key      string
	schedule string
	instance string
	ttl      time.Duration
	held     *LockHolder
}

func NewRedisLock(params LockParams) (*RedisLock, error) {
	if params.Client == nil {
		return nil, errors.New("redis client required for lock")
	}
	if params.Key == "" {
		return nil, errors.New("lock key is required")
	}
	if params.Schedule == "" {
		return nil, errors.New("lock schedule is required")
	}
	ttl := params.TTL
	if ttl <= 0 {
		ttl = defaultLockTTL
	}
	instance := params.Instance
	if instance == "" {
		instance = "unknown"
	}
	return &RedisLock{
		client:   params.Client,
		key:      params.Key,
		schedule: params.Schedule,
		instance: instance,
		ttl:      ttl,
	}, nil
}

func (l *RedisLock) Acquire(ctx context.Context) (bool, error) {
	holder := LockHolder{Schedule: l.schedule, Instance: l.instance, token: uuid.NewString()}
	ok, err := l.client.SetNX(ctx, l.key, holder.value(), l.ttl)
	if err != nil {
		return false, fmt.Errorf("setnx %s: %w", l.key, err)
	}
	if ok {
		l.held = &holder
	}
	return ok, nil
}

// Holder reads who currently owns the key. A free key yields a zero holder.
func (l *RedisLock) Holder(ctx context.Context) (LockHolder, error) {
	value, err := l.client.Get(ctx, l.key)
	if errors.Is(err, redis.Nil) {
		return LockHolder{}, nil
	}
	if err != nil {
		return LockHolder{}, fmt.Errorf("read lock holder: %w", err)
	}
	return parseLockHolder(value), nil
}

// Release deletes the key only while this lock still owns it, so a lease that
// expired and was taken by another instance is left alone.
func (l *RedisLock) Release(ctx context.Context) error {
	if l.held == nil {
		return nil
	}
	current, err := l.Holder(ctx)
	if err != nil {
		return err
	}
	if current != *l.held {
		l.held = nil
		return nil
	}
	if err := l.client.Del(ctx, l.key); err != nil {
		return fmt.Errorf("delete lock: %w", err)
	}
	l.held = nil
	return nil
}
