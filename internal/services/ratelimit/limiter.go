package ratelimit

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"petshop/internal/logger"
	"petshop/internal/models"
)

// Store counts prior orders inside the trailing cooldown window.
type Store interface {
	CountRecentOrders(ctx context.Context, originAddress, contactNumber string, window time.Duration) (int, error)
}

// cooldownCache is the slice of the Redis client the limiter uses.
// *redis.Client satisfies it.
type cooldownCache interface {
	SetNX(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.BoolCmd
	Exists(ctx context.Context, keys ...string) *redis.IntCmd
}

// Limiter throttles repeat submissions per client-identifying signal.
// The check here is the user-facing fast path; the authoritative guard
// is evaluated inside the order insert statement itself, so two
// near-simultaneous submissions cannot both slip through.
type Limiter struct {
	store  Store
	cache  cooldownCache // optional; nil disables the Redis gate
	window time.Duration
	logger *logger.Logger
}

// New creates a limiter. rdb may be nil.
func New(store Store, rdb *redis.Client, window time.Duration, log *logger.Logger) *Limiter {
	l := &Limiter{
		store:  store,
		window: window,
		logger: log,
	}
	if rdb != nil {
		l.cache = rdb
	}
	return l
}

// Window returns the cooldown window.
func (l *Limiter) Window() time.Duration {
	return l.window
}

// CheckAndAdmit rejects a submission when neither identifier is
// present, or when either identifier placed an order inside the
// cooldown window. Both rejections satisfy
// errors.Is(err, models.ErrRateLimited).
func (l *Limiter) CheckAndAdmit(ctx context.Context, originAddress, contactNumber string) error {
	origin := strings.TrimSpace(originAddress)
	contact := strings.TrimSpace(contactNumber)
	if origin == "" && contact == "" {
		return models.ErrMissingIdentifier
	}

	if l.seenRecently(ctx, origin, contact) {
		return models.ErrRateLimited
	}

	count, err := l.store.CountRecentOrders(ctx, origin, contact, l.window)
	if err != nil {
		return &models.PersistenceError{Op: "count recent orders", Err: err}
	}
	if count > 0 {
		return models.ErrRateLimited
	}

	return nil
}

// RecordAdmission marks both identifiers in Redis for the duration of
// the cooldown window. Called after a successful submission; best
// effort only, the database guard remains authoritative. Each key is
// attempted independently so one failure does not drop the other.
func (l *Limiter) RecordAdmission(ctx context.Context, originAddress, contactNumber string) {
	if l.cache == nil {
		return
	}
	for _, key := range identifierKeys(strings.TrimSpace(originAddress), strings.TrimSpace(contactNumber)) {
		if err := l.cache.SetNX(ctx, key, 1, l.window).Err(); err != nil {
			l.logger.Debug("cooldown_record_failed", "Failed to record cooldown key in Redis", "", map[string]interface{}{
				"key": key,
			})
		}
	}
}

// seenRecently consults the Redis cooldown keys. Redis failures fall
// open: the SQL window count below still applies.
func (l *Limiter) seenRecently(ctx context.Context, origin, contact string) bool {
	if l.cache == nil {
		return false
	}
	keys := identifierKeys(origin, contact)
	if len(keys) == 0 {
		return false
	}
	n, err := l.cache.Exists(ctx, keys...).Result()
	if err != nil {
		l.logger.Debug("cooldown_check_degraded", "Redis cooldown check failed, falling back to database", "", map[string]interface{}{
			"error": err.Error(),
		})
		return false
	}
	return n > 0
}

func identifierKeys(origin, contact string) []string {
	var keys []string
	if origin != "" {
		keys = append(keys, fmt.Sprintf("orders:cooldown:ip:%s", origin))
	}
	if contact != "" {
		keys = append(keys, fmt.Sprintf("orders:cooldown:contact:%s", contact))
	}
	return keys
}
