package port

import (
	"context"

	"github.com/rl1809/logitrack/internal/core/domain"
)

type EventPublisher interface {
	// Publish emits a committed change. Failures never undo the change.
	Publish(ctx context.Context, event domain.Event) error

	Close() error
}
