package counter

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// slidingWindowScript runs the drop-then-count-then-maybe-insert sequence
// as a single Lua script so it is atomic against concurrent throttle calls
// for the same tenant. KEYS[1] is the sorted-set key; ARGV[1] is now (unix
// nanos), ARGV[2] is the cutoff (now-period, unix nanos), ARGV[3] is max.
// Returns {allowed (0/1), oldest-or-0}, where oldest is the oldest entry's
// member (its unix nanos as an integer string; the float score is not used).
const slidingWindowScript = `
redis.call('ZREMRANGEBYSCORE', KEYS[1], '-inf', ARGV[2])
local count = redis.call('ZCARD', KEYS[1])
local max = tonumber(ARGV[3])
if count < max then
	redis.call('ZADD', KEYS[1], ARGV[1], ARGV[1])
	return {1, 0}
end
local oldest = redis.call('ZRANGE', KEYS[1], 0, 0, 'WITHSCORES')
return {0, oldest[1]}
`

// RedisService implements Service against a shared Redis instance, the
// external collaborator that lets the sliding-window throttle and the
// finalizer's advisory lock be consistent across processes. Sliding-window
// keys follow the convention "throttle:{tenant_id}"; lock keys follow
// "finalize_run_lock:{run_id}".
type RedisService struct {
	client *redis.Client
	script *redis.Script
}

func NewRedisService(client *redis.Client) *RedisService {
	return &RedisService{
		client: client,
		script: redis.NewScript(slidingWindowScript),
	}
}

func (s *RedisService) SlidingWindowAdd(ctx context.Context, key string, now time.Time, period time.Duration, max int) (bool, time.Time, error) {
	cutoff := now.Add(-period)
	res, err := s.script.Run(ctx, s.client, []string{key},
		now.UnixNano(), cutoff.UnixNano(), max).Slice()
	if err != nil {
		return false, time.Time{}, err
	}

	allowed := len(res) > 0 && toInt64(res[0]) == 1
	if allowed {
		return true, time.Time{}, nil
	}

	var oldest time.Time
	if len(res) > 1 {
		if nanos := toInt64(res[1]); nanos > 0 {
			oldest = time.Unix(0, nanos)
		}
	}
	return false, oldest, nil
}

func (s *RedisService) SlidingWindowInsert(ctx context.Context, key string, now time.Time) error {
	return s.client.ZAdd(ctx, key, redis.Z{Score: float64(now.UnixNano()), Member: now.UnixNano()}).Err()
}

// TryLock acquires a non-blocking named advisory lock via SET NX PX.
func (s *RedisService) TryLock(ctx context.Context, key string, ttl time.Duration) (func(), bool, error) {
	token := uuid.NewString()
	ok, err := s.client.SetNX(ctx, key, token, ttl).Result()
	if err != nil {
		return nil, false, err
	}
	if !ok {
		return nil, false, nil
	}

	const releaseScript = `if redis.call('GET', KEYS[1]) == ARGV[1] then return redis.call('DEL', KEYS[1]) end return 0`
	release := func() {
		// Best-effort release; a crashed holder simply waits out the TTL.
		// The key is deleted only while it still holds this holder's token.
		s.client.Eval(context.Background(), releaseScript, []string{key}, token)
	}
	return release, true, nil
}

func toInt64(v interface{}) int64 {
	switch n := v.(type) {
	case int64:
		return n
	case string:
		var out int64
		for _, c := range n {
			if c < '0' || c > '9' {
				return 0
			}
			out = out*10 + int64(c-'0')
		}
		return out
	default:
		return 0
	}
}
