package worker

import (
	"context"

	"go.uber.org/zap"

	"github.com/spec-kit/support-sync/internal/events"
)

// StartAuditWorker subscribes an audit-log handler to every event type the
// sync subsystem emits.
func StartAuditWorker(dispatcher events.Dispatcher, logger *zap.Logger) {
	if dispatcher == nil {
		return
	}
	handler := func(_ context.Context, event events.Event) error {
		logger.Info("audit event",
			zap.String("event_id", event.ID),
			zap.String("type", string(event.Type)),
			zap.String("ticket_id", event.TicketID),
			zap.Any("payload", event.Payload),
		)
		return nil
	}
	for _, eventType := range []events.EventType{
		events.EventRequestCreated,
		events.EventIssuesImported,
		events.EventTicketStatusChanged,
		events.EventNoteAdded,
		events.EventIssueRemoved,
		events.EventSyncFailed,
	} {
		dispatcher.Subscribe(eventType, handler)
	}
}
