package middleware

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"

	"github.com/iliyamo/cinema-pos/internal/config"
	"github.com/iliyamo/cinema-pos/internal/observability"
)

// seatActionScript meters one operator's seat clicks with GCRA.  The key
// holds the theoretical arrival time in milliseconds and expires once it
// lies in the past, so an idle operator costs nothing.
//
// ARGV: now_ms, emission_ms, burst.  Returns {allowed, wait_ms, remaining}.
var seatActionScript = redis.NewScript(`
local now = tonumber(ARGV[1])
local emission = tonumber(ARGV[2])
local burst = tonumber(ARGV[3])

local tat = tonumber(redis.call('GET', KEYS[1]))
if tat == nil or tat < now then
	tat = now
end

local next_tat = tat + emission
local allow_at = next_tat - burst * emission
if now < allow_at then
	return {0, allow_at - now, 0}
end

redis.call('SET', KEYS[1], next_tat, 'PX', next_tat - now)
return {1, 0, math.floor((now - allow_at) / emission)}
`)

// SeatActionLimiter caps how fast one operator may hold and release
// seats.  Without Redis, or while Redis fails, every action passes: a
// stuck limiter must not freeze the box office.
type SeatActionLimiter struct {
	cfg config.RateLimitConfig
	rdb *redis.Client
	log observability.Logger
	now func() time.Time
}

func NewSeatActionLimiter(cfg config.RateLimitConfig, rdb *redis.Client, log observability.Logger) *SeatActionLimiter {
	if log == nil {
		log = observability.Discard()
	}
	return &SeatActionLimiter{cfg: cfg, rdb: rdb, log: log, now: time.Now}
}

// Guard meters the named seat action ("hold", "release") of the
// authenticated operator.
func (l *SeatActionLimiter) Guard(action string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		if !l.cfg.Enabled || l.rdb == nil {
			return next
		}
		return func(c echo.Context) error {
			showtime := ""
			if l.cfg.PerShowtime {
				showtime = c.Param("id")
			}
			key := seatActionKey(l.cfg.Prefix, OperatorID(c), showtime, action)

			allowed, wait, remaining, err := l.take(c.Request().Context(), key)
			if err != nil {
				l.log.WithError(err).WithField("key", key).Warn("seat action limiter unavailable, letting request through")
				return next(c)
			}
			c.Response().Header().Set("X-RateLimit-Limit", strconv.Itoa(l.cfg.Capacity))
			c.Response().Header().Set("X-RateLimit-Remaining", strconv.FormatInt(remaining, 10))
			if !allowed {
				observability.RateLimitExceeded.Inc()
				l.log.WithField("operator_id", OperatorID(c)).WithField("action", action).
					WithField("wait_ms", wait.Milliseconds()).Debug("seat action throttled")
				return rateLimited(c, action, wait)
			}
			return next(c)
		}
	}
}

func (l *SeatActionLimiter) take(ctx context.Context, key string) (bool, time.Duration, int64, error) {
	emission := emissionInterval(l.cfg)
	res, err := seatActionScript.Run(ctx, l.rdb, []string{key},
		l.now().UnixMilli(), emission.Milliseconds(), l.cfg.Capacity).Int64Slice()
	if err != nil {
		return false, 0, 0, errors.Wrap(err, "run seat action script")
	}
	if len(res) != 3 {
		return false, 0, 0, errors.Newf("seat action script returned %d values", len(res))
	}
	return res[0] == 1, time.Duration(res[1]) * time.Millisecond, res[2], nil
}

// emissionInterval is the spacing between actions once the burst is
// spent: RefillTokens actions per RefillInterval.
func emissionInterval(cfg config.RateLimitConfig) time.Duration {
	d := cfg.RefillInterval / time.Duration(max(cfg.RefillTokens, 1))
	return max(d, time.Millisecond)
}

// seatActionKey is pos:rl:op:<operator>[:st:<showtime>]:<action>.
func seatActionKey(prefix string, operatorID uint64, showtime, action string) string {
	key := fmt.Sprintf("%s:op:%d", prefix, operatorID)
	if showtime != "" {
		key += ":st:" + showtime
	}
	return key + ":" + action
}

// rateLimited answers 429 in the same shape as the seat handlers'
// errors, with the wait rounded up to whole seconds.
func rateLimited(c echo.Context, action string, wait time.Duration) error {
	secs := int((wait + time.Second - 1) / time.Second)
	c.Response().Header().Set("Retry-After", strconv.Itoa(secs))
	return c.JSON(http.StatusTooManyRequests, map[string]any{
		"error":       "rate_limited",
		"message":     fmt.Sprintf("too many seat %s requests, retry in %ds", action, secs),
		"retry_after": secs,
	})
}
