package sockets

import (
	"context"
	"time"

	"go.uber.org/zap"
)

type EventKind string

const (
	EventGemAdded     EventKind = "GEM_ADDED"
	EventGemRemoved   EventKind = "GEM_REMOVED"
	EventSlotAdded    EventKind = "SLOT_ADDED"
	EventSlotRemoved  EventKind = "SLOT_REMOVED"
	EventReturnFailed EventKind = "RETURN_FAILED"
)

// Event records one completed socket operation.
type Event struct {
	Kind     EventKind `json:"kind"`
	Time     time.Time `json:"time"`
	HostUUID string    `json:"host_uuid"`
	Slot     int       `json:"slot"`
	GemUUID  string    `json:"gem_uuid,omitempty"`
	GemName  string    `json:"gem_name,omitempty"`
	UserID   string    `json:"user_id,omitempty"`
	Error    string    `json:"error,omitempty"`
}

type EventSink interface {
	WriteEvent(Event) error
}

// Notifier surfaces warnings about rejected operations to the user.
type Notifier interface {
	Warn(ctx context.Context, msg string)
}

type logNotifier struct{ log *zap.Logger }

func (n logNotifier) Warn(_ context.Context, msg string) {
	n.log.Warn(msg)
}
