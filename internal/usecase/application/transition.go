package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	appDomain "kyc-backend/internal/domain/application"
	"kyc-backend/internal/domain/uow"
	userDomain "kyc-backend/internal/domain/user"
	"kyc-backend/internal/infrastructure/metrics"

	"gorm.io/gorm"
)

// EffectSink receives the effects of a committed transition. Dispatch must not
// block on collaborators; it runs after the transaction has committed.
type EffectSink interface {
	Dispatch(ctx context.Context, a *appDomain.Application, fx appDomain.Effects)
}

// Step is one pure transition applied to the locked application.
type Step func(a appDomain.Application, at time.Time) (appDomain.Application, appDomain.Effects, error)

// Transitioner runs a Step under the application row lock, persists the result with
// its timeline entry and hands the effects to the sink after commit.
type Transitioner struct {
	uow     uow.UnitOfWork
	effects EffectSink
	log     *slog.Logger
	metrics *metrics.Metrics
	now     func() time.Time
}

type Option func(*Transitioner)

func WithLogger(l *slog.Logger) Option { return func(t *Transitioner) { t.log = l } }

func WithMetrics(m *metrics.Metrics) Option { return func(t *Transitioner) { t.metrics = m } }

// WithClock overrides time.Now; tests pin it.
func WithClock(now func() time.Time) Option { return func(t *Transitioner) { t.now = now } }

func NewTransitioner(tx uow.UnitOfWork, effects EffectSink, opts ...Option) *Transitioner {
	t := &Transitioner{
		uow:     tx,
		effects: effects,
		log:     slog.Default(),
		now:     func() time.Time { return time.Now().UTC() },
	}
	for _, o := range opts {
		o(t)
	}
	return t
}

func (t *Transitioner) Now() time.Time { return t.now() }

func (t *Transitioner) Apply(ctx context.Context, applicationID, action string, step Step) (*appDomain.Application, error) {
	var (
		out *appDomain.Application
		fx  appDomain.Effects
	)
	err := t.uow.WithinApplicationTx(ctx, applicationID, func(r uow.Repos, cur *appDomain.Application) error {
		next, e, err := step(*cur, t.now())
		if err != nil {
			return err
		}
		if err := r.Applications.Save(ctx, &next); err != nil {
			return fmt.Errorf("save application: %w", err)
		}
		entry := e.Timeline
		if err := r.Applications.AppendTimeline(ctx, next.ID, &entry); err != nil {
			return fmt.Errorf("append timeline: %w", err)
		}
		next.Timeline = append(append([]appDomain.TimelineEntry(nil), cur.Timeline...), entry)
		out, fx = &next, e
		return nil
	})
	if err != nil {
		err = translate(err)
		t.failed(ctx, applicationID, action, err)
		return nil, err
	}
	t.Committed(ctx, out, fx)
	return out, nil
}

// Committed records and dispatches a transition that is already durable.
func (t *Transitioner) Committed(ctx context.Context, a *appDomain.Application, fx appDomain.Effects) {
	t.metrics.IncTransition(string(fx.Timeline.Action))
	t.log.InfoContext(ctx, "application transition",
		"application_id", a.ApplicationID,
		"application_number", a.ApplicationNumber,
		"action", fx.Timeline.Action,
		"status", a.Status,
		"active", a.Active,
	)
	if t.effects != nil {
		// the caller's cancellation must not drop post-commit work
		t.effects.Dispatch(context.WithoutCancel(ctx), a, fx)
	}
}

func (t *Transitioner) failed(ctx context.Context, applicationID, action string, err error) {
	kind := ErrorKind(err)
	t.metrics.IncTransitionError(action, kind)
	if kind == "internal" {
		t.log.ErrorContext(ctx, "application transition failed",
			"application_id", applicationID, "action", action, "error", err)
		return
	}
	t.log.DebugContext(ctx, "application transition denied",
		"application_id", applicationID, "action", action, "kind", kind, "error", err)
}

// translate maps store errors onto domain errors at the use-case edge.
func translate(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, gorm.ErrRecordNotFound):
		return appDomain.ErrNotFound
	case errors.Is(err, userDomain.ErrNotFound):
		return fmt.Errorf("%w: %v", appDomain.ErrNotFound, err)
	}
	return err
}

// ErrorKind is a stable, low-cardinality label for err.
func ErrorKind(err error) string {
	switch {
	case errors.Is(err, appDomain.ErrNotFound):
		return "not_found"
	case errors.Is(err, appDomain.ErrForbidden):
		return "forbidden"
	case errors.Is(err, appDomain.ErrDuplicateActiveApplication):
		return "duplicate"
	case errors.Is(err, appDomain.ErrInvalidTransition):
		return "invalid_transition"
	case errors.Is(err, appDomain.ErrInvalidStateForMutation):
		return "invalid_state"
	case errors.Is(err, appDomain.ErrIncompleteDocuments):
		return "incomplete_documents"
	case errors.Is(err, appDomain.ErrMissingRejectionReason):
		return "missing_reason"
	case errors.Is(err, appDomain.ErrInvalidSlot):
		return "invalid_slot"
	case errors.Is(err, appDomain.ErrSlotEmpty):
		return "slot_empty"
	case errors.Is(err, appDomain.ErrInvalidDecision):
		return "invalid_decision"
	case errors.Is(err, appDomain.ErrUpstream):
		return "upstream"
	}
	return "internal"
}
