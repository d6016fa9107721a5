package ratelimit

import (
	"context"
	"fmt"
	"strconv"
	"time"

	goredis "github.com/redis/go-redis/v9"
)

const redisKeyPrefix = "bb:rate:"

// hitScript performs check, increment and block in one round trip so that
// concurrent hits on the same device serialize inside Redis.
//
// KEYS[1] record hash; ARGV: now_ms, window_ms, max, cooldown_ms, ttl_ms.
// Returns {allowed, retry_ms, window_start_ms, count, blocked_until_ms}.
var hitScript = goredis.NewScript(`
local key = KEYS[1]
local now = tonumber(ARGV[1])
local window = tonumber(ARGV[2])
local max = tonumber(ARGV[3])
local cooldown = tonumber(ARGV[4])
local ttl = tonumber(ARGV[5])

local ws = tonumber(redis.call('HGET', key, 'ws') or '0')
local c = tonumber(redis.call('HGET', key, 'c') or '0')
local bu = tonumber(redis.call('HGET', key, 'bu') or '0')

if bu > now then
  return {0, bu - now, ws, c, bu}
end

if (bu > 0 and bu <= now) or ws == 0 or now >= ws + window then
  ws = now
  c = 0
  bu = 0
end

c = c + 1
local allowed = 1
local retry = 0
if c > max then
  bu = now + cooldown
  allowed = 0
  retry = cooldown
end

redis.call('HSET', key, 'ws', ws, 'c', c, 'bu', bu)
redis.call('PEXPIRE', key, ttl)
return {allowed, retry, ws, c, bu}
`)

// RedisStore keeps records in Redis hashes, shared by every server
// instance.
type RedisStore struct {
	client goredis.UniversalClient
}

// NewRedisStore wraps client.
func NewRedisStore(client goredis.UniversalClient) *RedisStore {
	return &RedisStore{client: client}
}

// NewRedisStoreFromURL parses a redis:// URL and connects lazily.
func NewRedisStoreFromURL(url string) (*RedisStore, error) {
	opts, err := goredis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	return NewRedisStore(goredis.NewClient(opts)), nil
}

// Ping checks connectivity.
func (s *RedisStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

// Close releases the client.
func (s *RedisStore) Close() error {
	return s.client.Close()
}

func (s *RedisStore) Hit(ctx context.Context, deviceID string, now time.Time, policy Policy) (Decision, error) {
	if s.client == nil {
		return Decision{}, fmt.Errorf("redis client is nil")
	}

	ttl := policy.Window
	if policy.Cooldown > ttl {
		ttl = policy.Cooldown
	}
	ttl += time.Minute

	values, err := hitScript.Run(ctx, s.client, []string{redisKeyPrefix + deviceID},
		now.UnixMilli(),
		policy.Window.Milliseconds(),
		policy.MaxSubmissions,
		policy.Cooldown.Milliseconds(),
		ttl.Milliseconds(),
	).Int64Slice()
	if err != nil {
		return Decision{}, fmt.Errorf("run rate limit script: %w", err)
	}
	if len(values) != 5 {
		return Decision{}, fmt.Errorf("unexpected rate limit script reply of %d values", len(values))
	}

	record := recordFromMillis(deviceID, values[2], values[3], values[4])
	return Decision{
		Allowed:    values[0] == 1,
		RetryAfter: time.Duration(values[1]) * time.Millisecond,
		Record:     record,
	}, nil
}

func (s *RedisStore) Peek(ctx context.Context, deviceID string) (Record, error) {
	raw, err := s.client.HMGet(ctx, redisKeyPrefix+deviceID, "ws", "c", "bu").Result()
	if err != nil {
		return Record{}, fmt.Errorf("read rate limit record: %w", err)
	}

	parsed := make([]int64, 3)
	for i, value := range raw {
		str, ok := value.(string)
		if !ok {
			continue
		}
		n, err := strconv.ParseInt(str, 10, 64)
		if err != nil {
			return Record{}, fmt.Errorf("decode rate limit field: %w", err)
		}
		parsed[i] = n
	}
	return recordFromMillis(deviceID, parsed[0], parsed[1], parsed[2]), nil
}

func (s *RedisStore) Reset(ctx context.Context, deviceID string) error {
	if err := s.client.Del(ctx, redisKeyPrefix+deviceID).Err(); err != nil {
		return fmt.Errorf("reset rate limit record: %w", err)
	}
	return nil
}

func recordFromMillis(deviceID string, windowStart, count, blockedUntil int64) Record {
	record := Record{DeviceID: deviceID, CountInWindow: int(count)}
	if windowStart > 0 {
		record.WindowStartAt = time.UnixMilli(windowStart).UTC()
	}
	if blockedUntil > 0 {
		until := time.UnixMilli(blockedUntil).UTC()
		record.BlockedUntil = &until
	}
	return record
}
