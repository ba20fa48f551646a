// Package session keeps the server-side record of live sessions. Each user
// owns one hash keyed by a namespace prefix and their id; its fields are
// opaque session ids mapping to the credential issued for that session.
// Every session carries its own sliding deadline, so activity on one session
// never keeps a sibling alive.
package session

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

var (
	// ErrSessionNotFound is returned when no live session matches. It is a normal outcome.
	ErrSessionNotFound = errors.New("session not found")
	// ErrRegistryUnavailable is returned when the session store cannot be reached.
	ErrRegistryUnavailable = errors.New("session registry unavailable")
)

// Registry stores revocable sessions with a sliding expiry.
type Registry interface {
	// Save records token under sessionID for userID and (re)starts the expiry window.
	Save(ctx context.Context, userID int64, sessionID, token string) error
	// LookupAndRefresh returns the token of a live session and extends its expiry window.
	// A miss never extends anything.
	LookupAndRefresh(ctx context.Context, userID int64, sessionID string) (string, error)
	// Revoke removes a single session.
	Revoke(ctx context.Context, userID int64, sessionID string) error
	// RevokeAll removes every session of userID.
	RevokeAll(ctx context.Context, userID int64) error
}

// Config holds the connection and keying parameters of the registry.
type Config struct {
	Addr     string `env:"ADDR" default:"localhost:6379"`
	Username string `env:"USERNAME" default:""`
	Password string `env:"PASSWORD" default:""`
	DB       int    `env:"DB" default:"0"`

	// KeyPrefix namespaces registry keys as "{prefix}_{userID}"
	KeyPrefix string `env:"KEY_PREFIX" default:"app_auth_key"`
	// SlidingTTL is the idle time after which a session lapses
	SlidingTTL time.Duration `env:"SLIDING_TTL" default:"1h"`

	PoolSize     int           `env:"POOL_SIZE" default:"10"`
	PoolTimeout  time.Duration `env:"POOL_TIMEOUT" default:"2s"`
	DialTimeout  time.Duration `env:"DIAL_TIMEOUT" default:"2s"`
	ReadTimeout  time.Duration `env:"READ_TIMEOUT" default:"1s"`
	WriteTimeout time.Duration `env:"WRITE_TIMEOUT" default:"1s"`
}

// NewClient creates a pooled Redis client from cfg. An exhausted pool fails
// after PoolTimeout instead of blocking.
func NewClient(cfg Config) redis.UniversalClient {
	//nolint:exhaustruct
	return redis.NewUniversalClient(&redis.UniversalOptions{
		Addrs:        []string{cfg.Addr},
		Username:     cfg.Username,
		Password:     cfg.Password,
		DB:           cfg.DB,
		PoolSize:     cfg.PoolSize,
		PoolTimeout:  cfg.PoolTimeout,
		DialTimeout:  cfg.DialTimeout,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	})
}

// NewSessionID returns a fresh opaque session discriminator.
func NewSessionID() (string, error) {
	id, err := uuid.NewV7()
	if err != nil {
		return "", fmt.Errorf("new uuid: %w", err)
	}

	return id.String(), nil
}

// deadlineSuffix names the companion field holding a session's expiry as
// unix seconds of the server clock. "sid" maps to the token and "sid:exp" to
// its deadline, so every session slides on its own.
const deadlineSuffix = ":exp"

// saveScript stores a session with a fresh deadline and drops lapsed siblings.
// The key expires with the latest deadline, which is always the one just set.
//
// KEYS[1] user key, ARGV[1] session id, ARGV[2] token, ARGV[3] ttl seconds, ARGV[4] suffix.
const saveScript = `
local now = tonumber(redis.call("TIME")[1])
local ttl = tonumber(ARGV[3])
local fields = redis.call("HGETALL", KEYS[1])
for i = 1, #fields, 2 do
  local field = fields[i]
  local deadline = tonumber(fields[i + 1])
  if string.sub(field, -#ARGV[4]) == ARGV[4] and deadline and deadline <= now then
    redis.call("HDEL", KEYS[1], string.sub(field, 1, -#ARGV[4] - 1), field)
  end
end
redis.call("HSET", KEYS[1], ARGV[1], ARGV[2], ARGV[1] .. ARGV[4], string.format("%d", now + ttl))
redis.call("EXPIRE", KEYS[1], ttl)
return 1
`

// lookupAndRefreshScript returns a live session's token and restarts its
// deadline in one server-side step. A lapsed session is removed and reported
// as a miss; a miss never touches the key's expiry.
//
// KEYS[1] user key, ARGV[1] session id, ARGV[2] ttl seconds, ARGV[3] suffix.
const lookupAndRefreshScript = `
local now = tonumber(redis.call("TIME")[1])
local ttl = tonumber(ARGV[2])
local token = redis.call("HGET", KEYS[1], ARGV[1])
if not token then
  return false
end
local deadline = tonumber(redis.call("HGET", KEYS[1], ARGV[1] .. ARGV[3]) or "0")
if not deadline or deadline <= now then
  redis.call("HDEL", KEYS[1], ARGV[1], ARGV[1] .. ARGV[3])
  return false
end
redis.call("HSET", KEYS[1], ARGV[1] .. ARGV[3], string.format("%d", now + ttl))
redis.call("EXPIRE", KEYS[1], ttl)
return token
`

//nolint:gochecknoglobals
var (
	saveLua             = redis.NewScript(saveScript)
	lookupAndRefreshLua = redis.NewScript(lookupAndRefreshScript)
)

// RedisRegistry is a Registry backed by Redis hashes.
// It is safe for concurrent use.
type RedisRegistry struct {
	rdb    redis.UniversalClient
	prefix string
	ttl    time.Duration
}

var _ Registry = (*RedisRegistry)(nil)

// NewRedisRegistry creates a RedisRegistry on rdb.
func NewRedisRegistry(rdb redis.UniversalClient, cfg Config) *RedisRegistry {
	ttl := cfg.SlidingTTL
	if ttl < time.Second {
		ttl = time.Hour
	}

	return &RedisRegistry{
		rdb:    rdb,
		prefix: cfg.KeyPrefix,
		ttl:    ttl,
	}
}

// Key returns the namespace key holding userID's sessions.
func (r *RedisRegistry) Key(userID int64) string {
	return r.prefix + "_" + strconv.FormatInt(userID, 10)
}

// validSessionID rejects ids that would address a deadline field.
func validSessionID(sessionID string) bool {
	return sessionID != "" && !strings.HasSuffix(sessionID, deadlineSuffix)
}

func (r *RedisRegistry) ttlSeconds() int64 {
	return int64(r.ttl / time.Second)
}

func (r *RedisRegistry) Save(ctx context.Context, userID int64, sessionID, token string) error {
	err := saveLua.Run(ctx, r.rdb,
		[]string{r.Key(userID)},
		sessionID, token, r.ttlSeconds(), deadlineSuffix,
	).Err()
	if err != nil {
		return fmt.Errorf("%w: save: %w", ErrRegistryUnavailable, err)
	}

	return nil
}

func (r *RedisRegistry) LookupAndRefresh(ctx context.Context, userID int64, sessionID string) (string, error) {
	if !validSessionID(sessionID) {
		return "", ErrSessionNotFound
	}

	token, err := lookupAndRefreshLua.Run(ctx, r.rdb,
		[]string{r.Key(userID)},
		sessionID, r.ttlSeconds(), deadlineSuffix,
	).Text()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return "", ErrSessionNotFound
		}

		return "", fmt.Errorf("%w: lookup: %w", ErrRegistryUnavailable, err)
	}

	return token, nil
}

func (r *RedisRegistry) Revoke(ctx context.Context, userID int64, sessionID string) error {
	if !validSessionID(sessionID) {
		return nil
	}

	if err := r.rdb.HDel(ctx, r.Key(userID), sessionID, sessionID+deadlineSuffix).Err(); err != nil {
		return fmt.Errorf("%w: revoke: %w", ErrRegistryUnavailable, err)
	}

	return nil
}

func (r *RedisRegistry) RevokeAll(ctx context.Context, userID int64) error {
	if err := r.rdb.Del(ctx, r.Key(userID)).Err(); err != nil {
		return fmt.Errorf("%w: revoke all: %w", ErrRegistryUnavailable, err)
	}

	return nil
}

// Ping checks that the session store is reachable.
func (r *RedisRegistry) Ping(ctx context.Context) error {
	if err := r.rdb.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("%w: ping: %w", ErrRegistryUnavailable, err)
	}

	return nil
}
