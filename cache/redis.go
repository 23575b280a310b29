package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/ncobase/lamet/types"
	"github.com/redis/go-redis/v9"
)

// Hash fields of a cached entry.
const (
	fieldName      = "name"
	fieldKind      = "kind"
	fieldUnit      = "unit"
	fieldTags      = "tags"
	fieldValue     = "value"
	fieldCount     = "count"
	fieldFirstSeen = "first_seen"
	fieldRev       = "rev"
)

var casScript = redis.NewScript(`
local cur = tonumber(redis.call('HGET', KEYS[1], 'rev') or '0')
if cur ~= tonumber(ARGV[1]) then
  return 0
end
redis.call('HSET', KEYS[1],
  'name', ARGV[3], 'kind', ARGV[4], 'unit', ARGV[5], 'tags', ARGV[6],
  'value', ARGV[7], 'count', ARGV[8], 'first_seen', ARGV[9], 'rev', tostring(cur + 1))
if tonumber(ARGV[2]) > 0 then
  redis.call('PEXPIRE', KEYS[1], ARGV[2])
end
return 1
`)

var settleScript = redis.NewScript(`
local cur = redis.call('HGET', KEYS[1], 'rev')
if not cur then
  return 1
end
if tonumber(cur) == tonumber(ARGV[1]) then
  redis.call('DEL', KEYS[1])
  return 1
end
redis.call('HINCRBYFLOAT', KEYS[1], 'value', ARGV[2])
redis.call('HINCRBY', KEYS[1], 'count', ARGV[3])
redis.call('HINCRBY', KEYS[1], 'rev', 1)
return 0
`)

var unlockScript = redis.NewScript(`
if redis.call('GET', KEYS[1]) == ARGV[1] then
  return redis.call('DEL', KEYS[1])
end
return 0
`)

// RedisStore keeps each entry as a hash so counters can be merged with
// HINCRBYFLOAT and every other kind with a scripted compare-and-swap.
type RedisStore struct {
	client redis.UniversalClient
}

// NewRedisStore creates a RedisStore.
func NewRedisStore(client redis.UniversalClient) *RedisStore {
	return &RedisStore{client: client}
}

func (s *RedisStore) Get(ctx context.Context, key string) (*Entry, error) {
	fields, err := s.client.HGetAll(ctx, key).Result()
	if err != nil {
		return nil, fmt.Errorf("cache: get %s: %w", key, err)
	}
	if len(fields) == 0 {
		return nil, nil
	}
	entry, err := decodeEntry(fields)
	if err != nil {
		return nil, fmt.Errorf("cache: decode %s: %w", key, err)
	}
	return entry, nil
}

func (s *RedisStore) CompareAndSwap(ctx context.Context, key string, rev uint64, metric types.AggregatedMetric, ttl time.Duration) (bool, error) {
	tags, err := encodeTags(metric.Tags)
	if err != nil {
		return false, err
	}
	swapped, err := casScript.Run(ctx, s.client, []string{key},
		rev,
		ttl.Milliseconds(),
		metric.Name,
		string(metric.Kind),
		metric.Unit,
		tags,
		strconv.FormatFloat(metric.Value, 'f', -1, 64),
		metric.Count,
		metric.FirstSeen.UTC().Format(time.RFC3339Nano),
	).Int64()
	if err != nil {
		return false, fmt.Errorf("cache: compare and swap %s: %w", key, err)
	}
	return swapped == 1, nil
}

// Accumulate merges a counter observation in one MULTI block. Metadata is
// only written when the hash is created.
func (s *RedisStore) Accumulate(ctx context.Context, key string, obs types.Observation, now time.Time, ttl time.Duration) error {
	tags, err := encodeTags(obs.Tags)
	if err != nil {
		return err
	}
	_, err = s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.HSetNX(ctx, key, fieldName, obs.Name)
		pipe.HSetNX(ctx, key, fieldKind, string(obs.Kind))
		pipe.HSetNX(ctx, key, fieldUnit, obs.Unit)
		pipe.HSetNX(ctx, key, fieldTags, tags)
		pipe.HSetNX(ctx, key, fieldFirstSeen, now.UTC().Format(time.RFC3339Nano))
		pipe.HIncrByFloat(ctx, key, fieldValue, obs.Value)
		pipe.HIncrBy(ctx, key, fieldCount, 1)
		pipe.HIncrBy(ctx, key, fieldRev, 1)
		if ttl > 0 {
			pipe.PExpire(ctx, key, ttl)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("cache: accumulate %s: %w", key, err)
	}
	return nil
}

func (s *RedisStore) Delete(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	if err := s.client.Del(ctx, keys...).Err(); err != nil {
		return fmt.Errorf("cache: delete: %w", err)
	}
	return nil
}

func (s *RedisStore) Settle(ctx context.Context, key string, snapshot Entry) (bool, error) {
	deleted, err := settleScript.Run(ctx, s.client, []string{key},
		snapshot.Rev,
		strconv.FormatFloat(-snapshot.Metric.Value, 'f', -1, 64),
		-snapshot.Metric.Count,
	).Int64()
	if err != nil {
		return false, fmt.Errorf("cache: settle %s: %w", key, err)
	}
	return deleted == 1, nil
}

func encodeTags(tags types.Tags) (string, error) {
	if tags == nil {
		tags = types.Tags{}
	}
	b, err := json.Marshal(tags)
	if err != nil {
		return "", fmt.Errorf("cache: encode tags: %w", err)
	}
	return string(b), nil
}

func decodeEntry(fields map[string]string) (*Entry, error) {
	var (
		entry Entry
		err   error
	)
	m := &entry.Metric
	m.Name = fields[fieldName]
	m.Kind = types.Kind(fields[fieldKind])
	m.Unit = fields[fieldUnit]

	if raw := fields[fieldTags]; raw != "" {
		if err = json.Unmarshal([]byte(raw), &m.Tags); err != nil {
			return nil, fmt.Errorf("tags: %w", err)
		}
	}
	if raw := fields[fieldValue]; raw != "" {
		if m.Value, err = strconv.ParseFloat(raw, 64); err != nil {
			return nil, fmt.Errorf("value: %w", err)
		}
	}
	if raw := fields[fieldCount]; raw != "" {
		if m.Count, err = strconv.ParseInt(raw, 10, 64); err != nil {
			return nil, fmt.Errorf("count: %w", err)
		}
	}
	if raw := fields[fieldFirstSeen]; raw != "" {
		if m.FirstSeen, err = time.Parse(time.RFC3339Nano, raw); err != nil {
			return nil, fmt.Errorf("first_seen: %w", err)
		}
	}
	raw, ok := fields[fieldRev]
	if !ok {
		return nil, errors.New("missing revision")
	}
	if entry.Rev, err = strconv.ParseUint(raw, 10, 64); err != nil {
		return nil, fmt.Errorf("rev: %w", err)
	}
	return &entry, nil
}

// RedisLedger is a sorted set scored by insertion time in microseconds.
type RedisLedger struct {
	client redis.UniversalClient
	key    string
	now    Clock
}

// NewRedisLedger creates a ledger stored at prefix + LedgerSuffix.
func NewRedisLedger(client redis.UniversalClient, prefix string) *RedisLedger {
	return &RedisLedger{client: client, key: prefix + LedgerSuffix, now: time.Now}
}

func (l *RedisLedger) Add(ctx context.Context, fingerprint string) error {
	z := redis.Z{Score: float64(l.now().UnixMicro()), Member: fingerprint}
	if err := l.client.ZAddNX(ctx, l.key, z).Err(); err != nil {
		return fmt.Errorf("cache: ledger add: %w", err)
	}
	return nil
}

func (l *RedisLedger) Members(ctx context.Context) ([]string, error) {
	members, err := l.client.ZRange(ctx, l.key, 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("cache: ledger members: %w", err)
	}
	return members, nil
}

func (l *RedisLedger) Remove(ctx context.Context, fingerprints ...string) error {
	if len(fingerprints) == 0 {
		return nil
	}
	members := make([]any, len(fingerprints))
	for i, fp := range fingerprints {
		members[i] = fp
	}
	if err := l.client.ZRem(ctx, l.key, members...).Err(); err != nil {
		return fmt.Errorf("cache: ledger remove: %w", err)
	}
	return nil
}

func (l *RedisLedger) Len(ctx context.Context) (int64, error) {
	n, err := l.client.ZCard(ctx, l.key).Result()
	if err != nil {
		return 0, fmt.Errorf("cache: ledger len: %w", err)
	}
	return n, nil
}

// RedisLocker holds the flush lock as a key with a random token.
type RedisLocker struct {
	client redis.UniversalClient
	key    string
	ttl    time.Duration
}

// NewRedisLocker creates a locker on prefix + LockSuffix.
func NewRedisLocker(client redis.UniversalClient, prefix string, ttl time.Duration) *RedisLocker {
	return &RedisLocker{client: client, key: prefix + LockSuffix, ttl: ttl}
}

func (l *RedisLocker) TryLock(ctx context.Context) (func(context.Context) error, bool, error) {
	token := uuid.NewString()
	ok, err := l.client.SetNX(ctx, l.key, token, l.ttl).Result()
	if err != nil {
		return nil, false, fmt.Errorf("cache: acquire lock: %w", err)
	}
	if !ok {
		return nil, false, nil
	}
	return func(ctx context.Context) error {
		n, err := unlockScript.Run(ctx, l.client, []string{l.key}, token).Int64()
		if err != nil {
			return fmt.Errorf("cache: release lock: %w", err)
		}
		if n == 0 {
			return ErrLockNotHeld
		}
		return nil
	}, true, nil
}
