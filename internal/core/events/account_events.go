package events

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"
)

const (
	EventTypeUserCreated       = "user.created"
	EventTypeUserUpdated       = "user.updated"
	EventTypeUserDeleted       = "user.deleted"
	EventTypePasswordReset     = "user.password_reset"
	EventTypeUserStatusChanged = "user.status_changed"
	EventTypeUserRolesAssigned = "user.roles_assigned"
	EventTypeUserPostsAssigned = "user.posts_assigned"
)

// AccountEventTypes lists every event published by account administration.
var AccountEventTypes = []string{
	EventTypeUserCreated,
	EventTypeUserUpdated,
	EventTypeUserDeleted,
	EventTypePasswordReset,
	EventTypeUserStatusChanged,
	EventTypeUserRolesAssigned,
	EventTypeUserPostsAssigned,
}

// AccountEvent records one successful mutation of user accounts.
// Passwords never appear in Data.
type AccountEvent struct {
	BaseEvent
	ActorID   int64   `json:"actor_id"`
	ActorName string  `json:"actor_name"`
	UserIDs   []int64 `json:"user_ids"`
}

func NewAccountEvent(eventType string, actorID int64, actorName string, userIDs []int64, data map[string]interface{}) *AccountEvent {
	if data == nil {
		data = map[string]interface{}{}
	}
	data["actor_id"] = actorID
	data["user_ids"] = userIDs

	return &AccountEvent{
		BaseEvent: BaseEvent{
			ID:        uuid.New().String(),
			Type:      eventType,
			Timestamp: time.Now(),
			Data:      data,
		},
		ActorID:   actorID,
		ActorName: actorName,
		UserIDs:   userIDs,
	}
}

// AuditLogHandler writes every account event to the audit logger.
func AuditLogHandler(logger *slog.Logger) Handler {
	return func(ctx context.Context, event Event) error {
		attrs := []any{
			"event_id", event.EventID(),
			"event_type", event.EventType(),
			"occurred_at", event.OccurredAt(),
		}
		if ae, ok := event.(*AccountEvent); ok {
			attrs = append(attrs, "actor_id", ae.ActorID, "actor", ae.ActorName, "user_ids", ae.UserIDs)
		}
		logger.InfoContext(ctx, "audit", attrs...)
		return nil
	}
}

// SubscribeAudit registers the audit logger for all account events.
func (eb *EventBus) SubscribeAudit(logger *slog.Logger) {
	h := AuditLogHandler(logger)
	for _, t := range AccountEventTypes {
		eb.Subscribe(t, h)
	}
}
