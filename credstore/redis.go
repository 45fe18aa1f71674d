package credstore

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/anyauth/gateway/anyauth"
	errs "github.com/anyauth/gateway/internal/errors"
)

const redisKeyPrefix = "token:"

// RedisStore persists tokens in Redis, one JSON value per session id.
// Entries carry no TTL: like the file store, the session cookie's max-age
// is the only lifetime bound.
type RedisStore struct {
	client *redis.Client
	logger zerolog.Logger
}

var _ anyauth.TokenStore = (*RedisStore)(nil)

// RedisStoreOption configures a RedisStore.
type RedisStoreOption func(*RedisStore)

// WithRedisStoreLogger sets a structured logger.
func WithRedisStoreLogger(logger zerolog.Logger) RedisStoreOption {
	return func(s *RedisStore) { s.logger = logger }
}

// NewRedisStore connects to Redis and verifies connectivity.
func NewRedisStore(ctx context.Context, addr string, options ...RedisStoreOption) (*RedisStore, error) {
	client := redis.NewClient(&redis.Options{Addr: addr})
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, errs.Wrapf(err, "[NewRedisStore] ping %q", addr)
	}

	s := &RedisStore{client: client, logger: zerolog.Nop()}
	for _, option := range options {
		option(s)
	}
	return s, nil
}

// Get returns the token stored for the session id. An absent key and a
// value that fails token-shape validation both read as a miss.
func (s *RedisStore) Get(ctx context.Context, sessionID string) (*anyauth.Token, error) {
	if err := validateSessionID(sessionID); err != nil {
		return nil, errs.Wrapf(err, "[RedisStore Get]")
	}

	data, err := s.client.Get(ctx, redisKeyPrefix+sessionID).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, errs.Wrapf(err, "[RedisStore Get] %q", sessionID)
	}

	token, err := anyauth.ParseToken(data)
	if err != nil {
		s.logger.Warn().Err(err).Str("session_id", sessionID).Msg("stored token failed validation, treating as miss")
		return nil, nil
	}
	return token, nil
}

// Put writes the token for the session id, replacing any prior value.
func (s *RedisStore) Put(ctx context.Context, sessionID string, token *anyauth.Token) error {
	if err := validateSessionID(sessionID); err != nil {
		return errs.Wrapf(err, "[RedisStore Put]")
	}

	data, err := json.Marshal(token)
	if err != nil {
		return errs.Wrapf(err, "[RedisStore Put] marshal token")
	}
	if err := s.client.Set(ctx, redisKeyPrefix+sessionID, data, 0).Err(); err != nil {
		return errs.Wrapf(err, "[RedisStore Put] %q", sessionID)
	}
	return nil
}

// Close closes the underlying Redis client.
func (s *RedisStore) Close() error {
	return s.client.Close()
}
