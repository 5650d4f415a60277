package repository

import (
	"context"
	"time"
)

// CounterStore is the externally owned keyed counter used for rate limiting and deduplication.
//
// Every IncrementWithTTL records one unit that expires ttl after now; Get returns the number of
// units for key that have not expired at now. Windows built on it are therefore rolling.
type CounterStore interface {
	Get(ctx context.Context, key string, now time.Time) (int64, error)
	IncrementWithTTL(ctx context.Context, key string, now time.Time, ttl time.Duration) (int64, error)
}
