package service

import (
	"context"
	"sync"

	"go.uber.org/zap"

	"github.com/spec-kit/company-directory/internal/events"
)

// AuditService writes record change events to the log and keeps per-type
// counts.
type AuditService struct {
	dispatcher events.Dispatcher
	logger     *zap.Logger

	mu     sync.Mutex
	counts map[events.EventType]int
}

// NewAuditService creates the service.
func NewAuditService(dispatcher events.Dispatcher, logger *zap.Logger) *AuditService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AuditService{
		dispatcher: dispatcher,
		logger:     logger,
		counts:     make(map[events.EventType]int),
	}
}

// RegisterHandlers subscribes to events.
func (a *AuditService) RegisterHandlers() {
	if a.dispatcher == nil {
		return
	}
	for _, eventType := range events.AllTypes {
		a.dispatcher.Subscribe(eventType, a.handle)
	}
}

// Count returns how many events of eventType were seen.
func (a *AuditService) Count(eventType events.EventType) int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.counts[eventType]
}

func (a *AuditService) handle(_ context.Context, event events.Event) error {
	a.mu.Lock()
	a.counts[event.Type]++
	a.mu.Unlock()

	fields := []zap.Field{
		zap.String("event_id", event.ID),
		zap.String("event_type", string(event.Type)),
		zap.String("collection", event.Collection),
		zap.Time("timestamp", event.Timestamp),
	}
	if event.RecordID != "" {
		fields = append(fields, zap.String("record_id", event.RecordID))
	}
	if event.Subject != "" {
		fields = append(fields, zap.String("subject", event.Subject))
	}
	switch p := event.Payload.(type) {
	case events.BulkPayload:
		fields = append(fields, zap.Int64("count", p.Count), zap.Any("filter", p.Filter))
	case events.RecordPayload:
		fields = append(fields, zap.Any("fields", p.Fields))
	}
	a.logger.Info("record changed", fields...)
	return nil
}
