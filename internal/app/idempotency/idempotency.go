// Package idempotency deduplicates retried writes. The message send path
// keys on the client-generated correlation id, so a retry after a lost
// response returns the already-stored row instead of a duplicate.
package idempotency

import (
	"context"
	"time"
)

type Record struct {
	Key        string
	Payload    []byte
	Error      string
	OccurredAt time.Time
}

type Store interface {
	Get(ctx context.Context, key string) (Record, bool, error)
	Save(ctx context.Context, rec Record) error
}
