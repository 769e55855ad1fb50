package service

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/rl1809/logitrack/internal/core/domain"
	"github.com/rl1809/logitrack/internal/port"
)

// notifier publishes domain events after commit. Failures are logged and
// swallowed; the write they describe has already happened. Each publish is
// detached from request cancellation and bounded by timeout.
type notifier struct {
	pub     port.EventPublisher
	now     func() time.Time
	timeout time.Duration
	log     *zap.Logger
}

func newNotifier(deps Dependencies, log *zap.Logger) notifier {
	return notifier{pub: deps.Events, now: deps.Now, timeout: deps.PublishTimeout, log: log}
}

func (n notifier) emit(ctx context.Context, typ domain.EventType, entityID int64) {
	if n.pub == nil {
		return
	}
	ev := domain.Event{
		ID:         uuid.NewString(),
		Type:       typ,
		EntityID:   entityID,
		OccurredAt: n.now().UTC(),
	}
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), n.timeout)
	defer cancel()

	if err := n.pub.Publish(ctx, ev); err != nil {
		n.log.Warn("event publish failed",
			zap.String("type", string(typ)),
			zap.Int64("entity_id", entityID),
			zap.Error(err),
		)
	}
}
