package receipt

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	redis "github.com/redis/go-redis/v9"

	"github.com/Valiantic/purehealth-api/internal/obs"
	"github.com/Valiantic/purehealth-api/internal/store"
)

// ErrEmptyReceiptNo rejects availability probes without a receipt number.
var ErrEmptyReceiptNo = errors.New("receipt: receipt number is required")

// Querier captures the database methods required by the checker.
type Querier interface {
	CountByReceiptNo(ctx context.Context, arg store.CountByReceiptNoParams) (int64, error)
}

// Checker answers MC#/OR# uniqueness probes, caching results in Redis so
// keystroke-driven polling does not hammer the database. Saves invalidate the
// cache through a per-key debounce.
type Checker struct {
	Q        Querier
	Redis    *redis.Client
	TTL      time.Duration
	Debounce *Debouncer
}

// Available reports whether the receipt number is free, excluding the given
// transaction when an edit session checks its own number.
func (c *Checker) Available(ctx context.Context, mcNo string, excludeID uuid.NullUUID) (bool, error) {
	if c == nil || c.Q == nil {
		return false, errors.New("receipt checker not configured")
	}
	trimmed := strings.TrimSpace(mcNo)
	if trimmed == "" {
		return false, ErrEmptyReceiptNo
	}
	key := cacheKey(trimmed, excludeID)
	if c.Redis != nil {
		cached, err := c.Redis.Get(ctx, key).Result()
		if err == nil {
			countResult("cache_" + cached)
			return cached == "available", nil
		}
		if err != redis.Nil {
			countResult("error")
			return false, err
		}
	}
	count, err := c.Q.CountByReceiptNo(ctx, store.CountByReceiptNoParams{MCNo: trimmed, ExcludeID: excludeID})
	if err != nil {
		countResult("error")
		return false, err
	}
	available := count == 0
	if c.Redis != nil {
		value := "taken"
		if available {
			value = "available"
		}
		_ = c.Redis.Set(ctx, key, value, c.TTL).Err()
	}
	if available {
		countResult("available")
	} else {
		countResult("taken")
	}
	return available, nil
}

// Invalidate drops cached probe results for a receipt number once its save
// lands. The deletion is debounced so bursts of saves collapse to one round
// trip.
func (c *Checker) Invalidate(mcNo string) {
	if c == nil || c.Redis == nil {
		return
	}
	trimmed := strings.TrimSpace(mcNo)
	if trimmed == "" {
		return
	}
	drop := func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		iter := c.Redis.Scan(ctx, 0, cacheKey(trimmed, uuid.NullUUID{})+"*", 16).Iterator()
		for iter.Next(ctx) {
			_ = c.Redis.Del(ctx, iter.Val()).Err()
		}
	}
	if c.Debounce != nil {
		c.Debounce.Trigger(trimmed, drop)
		return
	}
	drop()
}

func cacheKey(mcNo string, excludeID uuid.NullUUID) string {
	key := "receipt:check:" + mcNo
	if excludeID.Valid {
		key += ":" + excludeID.UUID.String()
	}
	return key
}

func countResult(result string) {
	if obs.ReceiptCheckTotal != nil {
		obs.ReceiptCheckTotal.WithLabelValues(result).Inc()
	}
}
