package application

import (
	"context"
	"io"
	"time"
)

// Event is the notification payload published after a committed transition.
type Event struct {
	ID                string    `json:"event_id"`
	Kind              EventKind `json:"type"`
	ApplicationID     string    `json:"application_id"`
	ApplicationNumber string    `json:"application_number"`
	OwnerID           string    `json:"owner_id"`
	Status            Status    `json:"status"`
	Notes             string    `json:"notes,omitempty"`
	OccurredAt        time.Time `json:"occurred_at"`
}

type Notifier interface {
	Notify(ctx context.Context, e Event) error
}

// Upload is a validated file ready to be stored.
type Upload struct {
	OwnerID      string
	Slot         Slot
	OriginalName string
	ContentType  string
	Size         int64
	Body         io.Reader
}

// DocumentStore owns the bytes; the application only keeps the reference.
type DocumentStore interface {
	Put(ctx context.Context, u Upload) (ref string, err error)
	Delete(ctx context.Context, ref string) error
}
