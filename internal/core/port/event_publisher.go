package port

import (
	"context"

	"kol-market/internal/core/domain"
)

// EventPublisher delivers committed instruction events to downstream
// consumers such as indexers.
type EventPublisher interface {
	Publish(ctx context.Context, ev domain.Event) error
}
