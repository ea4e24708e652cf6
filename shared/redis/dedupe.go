package redis

import (
	"context"
	"time"

	goredis "github.com/redis/go-redis/v9"
)

const processedKeyPrefix = "processed:event:"

// ProcessedTTL covers any realistic redelivery window of a consumer group.
const ProcessedTTL = 72 * time.Hour

// Deduper records event IDs that a consumer has already applied, guarding
// projections against at-least-once redelivery.
type Deduper struct {
	client *goredis.Client
	scope  string
}

func NewDeduper(client *goredis.Client, scope string) *Deduper {
	return &Deduper{client: client, scope: scope}
}

func (d *Deduper) key(eventID string) string {
	return processedKeyPrefix + d.scope + ":" + eventID
}

// Claim marks eventID as processed and reports whether this call was the
// first to do so. SETNX makes concurrent consumers agree on a single winner.
func (d *Deduper) Claim(ctx context.Context, eventID string) (bool, error) {
	return d.client.SetNX(ctx, d.key(eventID), "1", ProcessedTTL).Result()
}

// Release forgets eventID so a failed application can be retried.
func (d *Deduper) Release(ctx context.Context, eventID string) error {
	return d.client.Del(ctx, d.key(eventID)).Err()
}
