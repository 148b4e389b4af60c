package task

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/frahmantamala/archival-system/internal/core/events"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var transitionsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Name: "archival_task_transitions_total",
		Help: "Task lifecycle events by event type, source status and target status",
	},
	[]string{"event", "from", "to"},
)

// EventHandler records lifecycle transitions published on the bus.
type EventHandler struct {
	logger      *slog.Logger
	transitions *prometheus.CounterVec
}

func NewEventHandler(logger *slog.Logger) *EventHandler {
	return &EventHandler{
		logger:      logger,
		transitions: transitionsTotal,
	}
}

func (h *EventHandler) HandleTaskEvent(ctx context.Context, event events.Event) error {
	taskEvent, ok := event.(*events.TaskEvent)
	if !ok {
		h.logger.Error("invalid event type for task lifecycle handler", "event_type", event.EventType())
		return fmt.Errorf("expected TaskEvent, got %T", event)
	}

	h.transitions.WithLabelValues(taskEvent.EventType(), taskEvent.FromStatus, taskEvent.ToStatus).Inc()
	h.logger.Info("task lifecycle event",
		"event_type", taskEvent.EventType(),
		"event_id", taskEvent.EventID(),
		"task_id", taskEvent.TaskID,
		"actor_id", taskEvent.ActorID,
		"department", taskEvent.Department,
		"from_status", taskEvent.FromStatus,
		"to_status", taskEvent.ToStatus)
	return nil
}

func (h *EventHandler) HandleActivity(ctx context.Context, event events.Event) error {
	h.transitions.WithLabelValues(event.EventType(), "", "").Inc()
	h.logger.Info("activity event", "event_type", event.EventType(), "event_id", event.EventID(), "data", event.Payload())
	return nil
}

func (h *EventHandler) RegisterEventHandlers(eventBus *events.EventBus) {
	for _, eventType := range events.TaskEvents {
		eventBus.Subscribe(eventType, h.HandleTaskEvent)
	}
	eventBus.Subscribe(events.EventTypeCommentAdded, h.HandleActivity)
	eventBus.Subscribe(events.EventTypeReportGenerated, h.HandleActivity)

	h.logger.Info("task event handlers registered", "handlers", append(append([]string{}, events.TaskEvents...), events.EventTypeCommentAdded, events.EventTypeReportGenerated))
}
