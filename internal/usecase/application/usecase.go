package application

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	appDomain "kyc-backend/internal/domain/application"
	"kyc-backend/internal/domain/uow"
	userDomain "kyc-backend/internal/domain/user"
	"kyc-backend/pkg/id"

	"gorm.io/gorm"
)

// maxCreateAttempts bounds retries after a unique-key conflict on insert.
const maxCreateAttempts = 3

type Usecase struct {
	apps  appDomain.Repository
	uow   uow.UnitOfWork
	tr    *Transitioner
	store appDomain.DocumentStore
	// seq overrides the tx-bound counter row when set
	seq appDomain.Sequencer
	log *slog.Logger
}

type UsecaseOption func(*Usecase)

// WithSequencer numbers applications outside the creation tx (e.g. Redis INCR).
func WithSequencer(s appDomain.Sequencer) UsecaseOption { return func(u *Usecase) { u.seq = s } }

func WithUsecaseLogger(l *slog.Logger) UsecaseOption { return func(u *Usecase) { u.log = l } }

// NewUsecase: apps serves plain reads, tr runs every transition.
func NewUsecase(apps appDomain.Repository, tx uow.UnitOfWork, tr *Transitioner, store appDomain.DocumentStore, opts ...UsecaseOption) *Usecase {
	u := &Usecase{apps: apps, uow: tx, tr: tr, store: store, log: slog.Default()}
	for _, o := range opts {
		o(u)
	}
	return u
}

func (u *Usecase) sequencer(r uow.Repos) appDomain.Sequencer {
	if u.seq != nil {
		return u.seq
	}
	return r.Sequences
}

// Create opens a draft for the caller. An active rejected application is superseded
// in the same transaction; any other active application blocks creation.
func (u *Usecase) Create(ctx context.Context, actor userDomain.Actor, in FieldsInput) (*ApplicationDTO, error) {
	if actor.ID == "" {
		return nil, appDomain.ErrForbidden
	}

	var (
		created      *appDomain.Application
		createdFx    appDomain.Effects
		superseded   *appDomain.Application
		supersededFx appDomain.Effects
		err          error
	)
	for attempt := 1; ; attempt++ {
		created, superseded = nil, nil
		err = u.uow.WithinTx(ctx, func(r uow.Repos) error {
			// serializes concurrent creations for one owner
			if _, err := r.Users.LockOrCreate(ctx, actor.ID); err != nil {
				return fmt.Errorf("lock owner: %w", err)
			}
			at := u.tr.Now()

			cur, err := r.Applications.GetActiveByOwner(ctx, actor.ID)
			switch {
			case err == nil:
				if cur.Status != appDomain.StatusRejected {
					return &appDomain.DuplicateError{ApplicationNumber: cur.ApplicationNumber, Status: cur.Status}
				}
				old, fx, err := cur.Supersede(actor, at)
				if err != nil {
					return err
				}
				if err := r.Applications.Save(ctx, &old); err != nil {
					return fmt.Errorf("supersede: %w", err)
				}
				entry := fx.Timeline
				if err := r.Applications.AppendTimeline(ctx, old.ID, &entry); err != nil {
					return fmt.Errorf("supersede timeline: %w", err)
				}
				old.Timeline = append(old.Timeline, entry)
				superseded, supersededFx = &old, fx
			case !errors.Is(err, gorm.ErrRecordNotFound):
				return fmt.Errorf("active application lookup: %w", err)
			}

			year := at.UTC().Year()
			seq, err := u.sequencer(r).NextSequence(ctx, year)
			if err != nil {
				return fmt.Errorf("next sequence: %w", err)
			}
			number, err := appDomain.FormatNumber(year, seq)
			if err != nil {
				return err
			}

			a, fx := appDomain.New(appDomain.NewParams{
				ApplicationID:     id.NewID32(),
				ApplicationNumber: number,
				Owner:             actor,
				Fields:            in.fields(),
				At:                at,
			})
			if err := r.Applications.Create(ctx, &a); err != nil {
				return err
			}
			entry := fx.Timeline
			if err := r.Applications.AppendTimeline(ctx, a.ID, &entry); err != nil {
				return fmt.Errorf("append timeline: %w", err)
			}
			a.Timeline = []appDomain.TimelineEntry{entry}
			created, createdFx = &a, fx
			return nil
		})
		if err == nil || !errors.Is(err, gorm.ErrDuplicatedKey) || attempt == maxCreateAttempts {
			break
		}
		u.log.WarnContext(ctx, "application create conflict, retrying",
			"owner_id", actor.ID, "attempt", attempt, "error", err)
	}
	if err != nil {
		err = translate(err)
		u.tr.failed(ctx, "", "create", err)
		return nil, err
	}

	if superseded != nil {
		u.tr.Committed(ctx, superseded, supersededFx)
	}
	u.tr.Committed(ctx, created, createdFx)
	return ToDTO(created), nil
}

func (u *Usecase) UpdateFields(ctx context.Context, actor userDomain.Actor, applicationID string, in FieldsInput) (*ApplicationDTO, error) {
	a, err := u.tr.Apply(ctx, applicationID, "update", func(a appDomain.Application, at time.Time) (appDomain.Application, appDomain.Effects, error) {
		return a.UpdateFields(actor, in.fields(), at)
	})
	if err != nil {
		return nil, err
	}
	return ToDTO(a), nil
}

// AttachDocument stores body and records it in slot. The guards are checked before
// the bytes are written, and the object is removed again if the transition is denied.
func (u *Usecase) AttachDocument(ctx context.Context, actor userDomain.Actor, applicationID, slot string, meta DocumentInput, body io.Reader) (*ApplicationDTO, error) {
	s, err := appDomain.ParseSlot(slot)
	if err != nil {
		return nil, err
	}
	cur, err := u.load(ctx, applicationID)
	if err != nil {
		return nil, err
	}
	precheck := appDomain.Document{StorageRef: "pending"}
	if _, _, err := cur.AttachDocument(actor, s, precheck, u.tr.Now()); err != nil {
		return nil, err
	}

	ref, err := u.store.Put(ctx, appDomain.Upload{
		OwnerID:      cur.OwnerID,
		Slot:         s,
		OriginalName: meta.OriginalName,
		ContentType:  meta.ContentType,
		Size:         meta.Size,
		Body:         body,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: store document: %v", appDomain.ErrUpstream, err)
	}

	doc := appDomain.Document{StorageRef: ref, OriginalName: meta.OriginalName, ContentType: meta.ContentType, Size: meta.Size}
	a, err := u.tr.Apply(ctx, applicationID, "attach", func(a appDomain.Application, at time.Time) (appDomain.Application, appDomain.Effects, error) {
		return a.AttachDocument(actor, s, doc, at)
	})
	if err != nil {
		if derr := u.store.Delete(context.WithoutCancel(ctx), ref); derr != nil {
			u.log.WarnContext(ctx, "orphaned document not removed", "ref", ref, "error", derr)
		}
		return nil, err
	}
	return ToDTO(a), nil
}

func (u *Usecase) DeleteDocument(ctx context.Context, actor userDomain.Actor, applicationID, slot string) (*ApplicationDTO, error) {
	s, err := appDomain.ParseSlot(slot)
	if err != nil {
		return nil, err
	}
	a, err := u.tr.Apply(ctx, applicationID, "delete_document", func(a appDomain.Application, at time.Time) (appDomain.Application, appDomain.Effects, error) {
		return a.DeleteDocument(actor, s, at)
	})
	if err != nil {
		return nil, err
	}
	return ToDTO(a), nil
}

func (u *Usecase) Submit(ctx context.Context, actor userDomain.Actor, applicationID string) (*ApplicationDTO, error) {
	a, err := u.tr.Apply(ctx, applicationID, "submit", func(a appDomain.Application, at time.Time) (appDomain.Application, appDomain.Effects, error) {
		return a.Submit(actor, at)
	})
	if err != nil {
		return nil, err
	}
	return ToDTO(a), nil
}

func (u *Usecase) Cancel(ctx context.Context, actor userDomain.Actor, applicationID string) (*ApplicationDTO, error) {
	a, err := u.tr.Apply(ctx, applicationID, "cancel", func(a appDomain.Application, at time.Time) (appDomain.Application, appDomain.Effects, error) {
		return a.Cancel(actor, at)
	})
	if err != nil {
		return nil, err
	}
	return ToDTO(a), nil
}

func (u *Usecase) load(ctx context.Context, applicationID string) (*appDomain.Application, error) {
	a, err := u.apps.GetByApplicationID(ctx, applicationID)
	if err != nil {
		return nil, translate(err)
	}
	return a, nil
}
