package audit

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"
)

// Event types emitted by the engine. Storage and delivery are collaborator
// concerns; the engine only raises them.
const (
	EventResponseSubmitted = "response_submitted"
	EventEvaluationRun     = "evaluation_run"
	EventSessionOpened     = "session_opened"
	EventSessionCancelled  = "session_cancelled"
	EventSessionClosed     = "session_closed"
	EventBidAccepted       = "bid_accepted"
	EventBidRejected       = "bid_rejected"
	EventAwardDecided      = "award_decided"
)

// Event is one immutable audit record.
type Event struct {
	Type       string         `json:"type"`
	OccurredAt time.Time      `json:"occurredAt"`
	Payload    map[string]any `json:"payload,omitempty"`
}

// Sink receives audit events. Implementations must not block the caller on
// delivery failures; auditing never vetoes an operation.
type Sink interface {
	Emit(ctx context.Context, event Event)
}

// NotificationSender receives supplier-facing events (invitations, award
// decisions). Delivery is the collaborator's concern.
type NotificationSender interface {
	Notify(ctx context.Context, event Event)
}

// NewEvent stamps an event with the current time.
func NewEvent(eventType string, payload map[string]any) Event {
	return Event{Type: eventType, OccurredAt: time.Now().UTC(), Payload: payload}
}

// LogSink writes audit events to the structured log.
type LogSink struct {
	Logger *logrus.Logger
}

func NewLogSink(logger *logrus.Logger) *LogSink {
	return &LogSink{Logger: logger}
}

func (s *LogSink) Emit(_ context.Context, event Event) {
	s.Logger.WithFields(logrus.Fields{
		"audit":      true,
		"event":      event.Type,
		"occurredAt": event.OccurredAt,
		"payload":    event.Payload,
	}).Info("audit event")
}

// LogNotifier logs notification events instead of delivering them; a real
// sender is wired in by the hosting deployment.
type LogNotifier struct {
	Logger *logrus.Logger
}

func NewLogNotifier(logger *logrus.Logger) *LogNotifier {
	return &LogNotifier{Logger: logger}
}

func (n *LogNotifier) Notify(_ context.Context, event Event) {
	n.Logger.WithFields(logrus.Fields{
		"notification": true,
		"event":        event.Type,
		"payload":      event.Payload,
	}).Info("notification event")
}
