package application

import (
	"context"
	"time"
)

type ListFilter struct {
	Status Status // empty means any
	Search string // number, full name or email substring
	Page   int
	Limit  int
}

type Stats struct {
	Total          int64            `json:"total"`
	ByStatus       map[Status]int64 `json:"by_status"`
	PendingReviews int64            `json:"pending_reviews"`
}

// ExportFilter selects active applications. A zero From or To leaves that end open.
type ExportFilter struct {
	Status Status    // empty means any
	From   time.Time // created_at >= From
	To     time.Time // created_at < To
	Limit  int
}

// MonthCount is how many applications were created in Month (1-12).
type MonthCount struct {
	Month int   `json:"month"`
	Count int64 `json:"count"`
}

type Repository interface {
	Create(ctx context.Context, a *Application) error
	// Save persists the row only; timeline rows are written by AppendTimeline.
	Save(ctx context.Context, a *Application) error
	AppendTimeline(ctx context.Context, applicationRef uint64, e *TimelineEntry) error

	GetByApplicationID(ctx context.Context, applicationID string) (*Application, error)
	GetByApplicationIDForUpdate(ctx context.Context, applicationID string) (*Application, error)
	GetByNumber(ctx context.Context, number string) (*Application, error)
	GetActiveByOwner(ctx context.Context, ownerID string) (*Application, error)

	List(ctx context.Context, f ListFilter) ([]Application, int64, error)
	Stats(ctx context.Context) (*Stats, error)
	Export(ctx context.Context, f ExportFilter) ([]Application, error)
	// MonthlyCreations counts every application created in year (UTC), active
	// or not. Months without applications are omitted.
	MonthlyCreations(ctx context.Context, year int) ([]MonthCount, error)
}

// SequenceRepository is the transactional Sequencer backed by the store.
type SequenceRepository interface {
	Sequencer
}
