package view

import (
	"context"

	"feedesk/internal/core"
	"feedesk/internal/messages"
)

// NotificationKind is the visual style of a notification.
type NotificationKind string

const (
	KindSuccess NotificationKind = "success"
	KindError   NotificationKind = "error"
)

// Notification is a blocking message shown after a write.
type Notification struct {
	Kind    NotificationKind
	Outcome messages.Key
	Message string
}

// Notifier shows notifications to the user.
type Notifier interface {
	Notify(ctx context.Context, n Notification)
}

// NotifierFunc adapts a function to Notifier.
type NotifierFunc func(ctx context.Context, n Notification)

func (f NotifierFunc) Notify(ctx context.Context, n Notification) { f(ctx, n) }

// Member change actions published after successful writes.
const (
	ActionCreated = "created"
	ActionUpdated = "updated"
)

// EventPublisher receives member changes after successful writes. The id is
// empty for creations because the response body is not read.
type EventPublisher interface {
	PublishMemberChanged(ctx context.Context, action string, id core.ID, username string) error
}
