package dispatch

import (
	"context"
	"sort"
	"sync"
	"time"

	appDomain "kyc-backend/internal/domain/application"
	userDomain "kyc-backend/internal/domain/user"

	"github.com/google/uuid"
)

type Kind string

const (
	// KindResync recomputes the mirror from the owner's active application.
	KindResync  Kind = "resync"
	KindNotify  Kind = "notify"
	KindRelease Kind = "release"
)

type Job struct {
	ID      string `json:"id"`
	Kind    Kind   `json:"kind"`
	OwnerID string `json:"owner_id"`
	// Status is the mirror value the transition produced. A resync never
	// writes it; it only shows up in logs when a later commit overtook it.
	Status     userDomain.KYCStatus `json:"status,omitempty"`
	Event      *appDomain.Event     `json:"event,omitempty"`
	StorageRef string               `json:"storage_ref,omitempty"`
	// Attempt counts failed executions so far.
	Attempt int `json:"attempt"`
}

// Jobs expands committed effects into jobs, in execution order. A mirror
// effect becomes a resync: jobs are enqueued after commit by the request
// goroutine, so two commits for one owner can reach the shard out of order.
func Jobs(a *appDomain.Application, fx appDomain.Effects) []Job {
	var out []Job
	if fx.Mirror != "" {
		out = append(out, Job{ID: uuid.NewString(), Kind: KindResync, OwnerID: a.OwnerID, Status: fx.Mirror})
	}
	if fx.Event != "" {
		out = append(out, Job{
			ID:      uuid.NewString(),
			Kind:    KindNotify,
			OwnerID: a.OwnerID,
			Event: &appDomain.Event{
				ID:                uuid.NewString(),
				Kind:              fx.Event,
				ApplicationID:     a.ApplicationID,
				ApplicationNumber: a.ApplicationNumber,
				OwnerID:           a.OwnerID,
				Status:            a.Status,
				Notes:             fx.Timeline.Notes,
				OccurredAt:        fx.Timeline.Timestamp,
			},
		})
	}
	if fx.ReleasedRef != "" {
		out = append(out, Job{ID: uuid.NewString(), Kind: KindRelease, OwnerID: a.OwnerID, StorageRef: fx.ReleasedRef})
	}
	return out
}

// RetryQueue holds failed jobs until they are due.
type RetryQueue interface {
	Push(ctx context.Context, job Job, due time.Time) error
	// PopDue claims up to max jobs due at now; a claimed job belongs to the caller.
	PopDue(ctx context.Context, now time.Time, max int) ([]Job, error)
}

type queued struct {
	job Job
	due time.Time
}

// MemoryQueue is the in-process RetryQueue used when Redis is not configured.
type MemoryQueue struct {
	mu    sync.Mutex
	items []queued
}

func NewMemoryQueue() *MemoryQueue { return &MemoryQueue{} }

func (q *MemoryQueue) Push(_ context.Context, job Job, due time.Time) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.items = append(q.items, queued{job: job, due: due})
	return nil
}

func (q *MemoryQueue) PopDue(_ context.Context, now time.Time, max int) ([]Job, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	sort.SliceStable(q.items, func(i, j int) bool { return q.items[i].due.Before(q.items[j].due) })

	var out []Job
	rest := q.items[:0]
	for _, it := range q.items {
		if len(out) < max && !it.due.After(now) {
			out = append(out, it.job)
			continue
		}
		rest = append(rest, it)
	}
	q.items = rest
	return out, nil
}

func (q *MemoryQueue) Len(context.Context) (int64, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	return int64(len(q.items)), nil
}
