// Package events defines the contract a domain event must satisfy before the
// outbox can encode and publish it.
package events

import "time"

// DomainEvent is implemented by the per-aggregate event structs. The name
// drives topic routing and the aggregate id becomes the partition key.
type DomainEvent interface {
	EventName() string
	AggregateID() string
	OccurredAt() time.Time
}
