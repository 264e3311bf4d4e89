package interfaces

import "context"

// EventPublisher delivers domain events to an external broker. Publish
// failures must not affect ledger state; callers log and move on.
type EventPublisher interface {
	Publish(ctx context.Context, event any) error
}
