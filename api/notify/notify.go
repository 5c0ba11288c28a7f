package notify

import (
	"context"
	"time"
)

// Event is the payload handed to notification senders when an alert
// opens. Senders own formatting and transport; their failures never
// propagate back into the checking engine.
type Event struct {
	MonitorName string
	Kind        string
	Message     string
	CreatedAt   time.Time
}

type Sender interface {
	Name() string
	Send(ctx context.Context, ev Event) error
}
