package service

import (
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/rl1809/logitrack/internal/cache"
	"github.com/rl1809/logitrack/internal/port"
)

const tracerName = "github.com/rl1809/logitrack/internal/core/service"

var tracer = otel.Tracer(tracerName)

// DefaultPublishTimeout bounds each best-effort event publish.
const DefaultPublishTimeout = 2 * time.Second

// Dependencies are shared by InventoryService and OrderService. Store and
// Cache are required; the rest fall back to defaults.
type Dependencies struct {
	Store    port.Store
	Cache    *cache.Layer
	Events   port.EventPublisher
	Logger   *zap.Logger
	ListTTL  time.Duration
	EntryTTL time.Duration
	Now      func() time.Time

	PublishTimeout time.Duration
}

func (d Dependencies) withDefaults() Dependencies {
	if d.Logger == nil {
		d.Logger = zap.NewNop()
	}
	if d.ListTTL <= 0 {
		d.ListTTL = cache.DefaultListTTL
	}
	if d.EntryTTL <= 0 {
		d.EntryTTL = cache.DefaultEntryTTL
	}
	if d.PublishTimeout <= 0 {
		d.PublishTimeout = DefaultPublishTimeout
	}
	if d.Now == nil {
		d.Now = time.Now
	}
	return d
}

func endSpan(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}
