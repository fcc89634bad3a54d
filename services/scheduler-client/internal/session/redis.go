package session

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisStore shares one session between processes, e.g. a watcher and
// interactive commands on different hosts.
type RedisStore struct {
	rdb    redis.UniversalClient
	prefix string
	ttl    time.Duration
}

func NewRedisStore(rdb redis.UniversalClient, prefix string, ttl time.Duration) *RedisStore {
	return &RedisStore{rdb: rdb, prefix: prefix, ttl: ttl}
}

func (r *RedisStore) tokenKey() string { return r.prefix + TokenKey }
func (r *RedisStore) userKey() string  { return r.prefix + UserKey }

func (r *RedisStore) Load(ctx context.Context) (Session, error) {
	vals, err := r.rdb.MGet(ctx, r.tokenKey(), r.userKey()).Result()
	if err != nil {
		return Session{}, fmt.Errorf("redis load session: %w", err)
	}
	token, _ := vals[0].(string)
	rawUser, _ := vals[1].(string)

	user, err := decodeUser(rawUser)
	if err != nil {
		return Session{}, err
	}
	return Session{Token: token, User: user}, nil
}

func (r *RedisStore) Save(ctx context.Context, s Session) error {
	rawUser, err := encodeUser(s.User)
	if err != nil {
		return err
	}
	_, err = r.rdb.TxPipelined(ctx, func(p redis.Pipeliner) error {
		p.Set(ctx, r.tokenKey(), s.Token, r.ttl)
		p.Set(ctx, r.userKey(), rawUser, r.ttl)
		return nil
	})
	if err != nil {
		return fmt.Errorf("redis save session: %w", err)
	}
	return nil
}

func (r *RedisStore) Clear(ctx context.Context) error {
	if err := r.rdb.Del(ctx, r.tokenKey(), r.userKey()).Err(); err != nil && !errors.Is(err, redis.Nil) {
		return fmt.Errorf("redis clear session: %w", err)
	}
	return nil
}

func (r *RedisStore) Ping(ctx context.Context) error {
	if err := r.rdb.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("redis ping: %w", err)
	}
	return nil
}
