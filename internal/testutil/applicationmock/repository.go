package applicationmock

import (
	"context"
	"errors"

	domain "kyc-backend/internal/domain/application"
)

var (
	_ domain.Repository = (*Repo)(nil)
	_ domain.Sequencer  = (*Sequencer)(nil)
)

var errUnimplemented = errors.New("applicationmock: method not implemented")

// Repo is a function-backed mock that satisfies domain.Repository.
// Writes default to a no-op; reads default to errUnimplemented.
type Repo struct {
	CreateFn                      func(ctx context.Context, a *domain.Application) error
	SaveFn                        func(ctx context.Context, a *domain.Application) error
	AppendTimelineFn              func(ctx context.Context, applicationRef uint64, e *domain.TimelineEntry) error
	GetByApplicationIDFn          func(ctx context.Context, applicationID string) (*domain.Application, error)
	GetByApplicationIDForUpdateFn func(ctx context.Context, applicationID string) (*domain.Application, error)
	GetByNumberFn                 func(ctx context.Context, number string) (*domain.Application, error)
	GetActiveByOwnerFn            func(ctx context.Context, ownerID string) (*domain.Application, error)
	ListFn                        func(ctx context.Context, f domain.ListFilter) ([]domain.Application, int64, error)
	StatsFn                       func(ctx context.Context) (*domain.Stats, error)
	ExportFn                      func(ctx context.Context, f domain.ExportFilter) ([]domain.Application, error)
	MonthlyCreationsFn            func(ctx context.Context, year int) ([]domain.MonthCount, error)
}

func (m *Repo) Create(ctx context.Context, a *domain.Application) error {
	if m.CreateFn != nil {
		return m.CreateFn(ctx, a)
	}
	return nil
}

func (m *Repo) Save(ctx context.Context, a *domain.Application) error {
	if m.SaveFn != nil {
		return m.SaveFn(ctx, a)
	}
	return nil
}

func (m *Repo) AppendTimeline(ctx context.Context, applicationRef uint64, e *domain.TimelineEntry) error {
	if m.AppendTimelineFn != nil {
		return m.AppendTimelineFn(ctx, applicationRef, e)
	}
	return nil
}

func (m *Repo) GetByApplicationID(ctx context.Context, applicationID string) (*domain.Application, error) {
	if m.GetByApplicationIDFn != nil {
		return m.GetByApplicationIDFn(ctx, applicationID)
	}
	return nil, errUnimplemented
}

func (m *Repo) GetByApplicationIDForUpdate(ctx context.Context, applicationID string) (*domain.Application, error) {
	if m.GetByApplicationIDForUpdateFn != nil {
		return m.GetByApplicationIDForUpdateFn(ctx, applicationID)
	}
	return nil, errUnimplemented
}

func (m *Repo) GetByNumber(ctx context.Context, number string) (*domain.Application, error) {
	if m.GetByNumberFn != nil {
		return m.GetByNumberFn(ctx, number)
	}
	return nil, errUnimplemented
}

func (m *Repo) GetActiveByOwner(ctx context.Context, ownerID string) (*domain.Application, error) {
	if m.GetActiveByOwnerFn != nil {
		return m.GetActiveByOwnerFn(ctx, ownerID)
	}
	return nil, errUnimplemented
}

func (m *Repo) List(ctx context.Context, f domain.ListFilter) ([]domain.Application, int64, error) {
	if m.ListFn != nil {
		return m.ListFn(ctx, f)
	}
	return nil, 0, errUnimplemented
}

func (m *Repo) Stats(ctx context.Context) (*domain.Stats, error) {
	if m.StatsFn != nil {
		return m.StatsFn(ctx)
	}
	return nil, errUnimplemented
}

func (m *Repo) Export(ctx context.Context, f domain.ExportFilter) ([]domain.Application, error) {
	if m.ExportFn != nil {
		return m.ExportFn(ctx, f)
	}
	return nil, errUnimplemented
}

func (m *Repo) MonthlyCreations(ctx context.Context, year int) ([]domain.MonthCount, error) {
	if m.MonthlyCreationsFn != nil {
		return m.MonthlyCreationsFn(ctx, year)
	}
	return nil, errUnimplemented
}

// Sequencer is a function-backed domain.Sequencer.
type Sequencer struct {
	NextSequenceFn func(ctx context.Context, year int) (int64, error)
}

func (m *Sequencer) NextSequence(ctx context.Context, year int) (int64, error) {
	if m.NextSequenceFn != nil {
		return m.NextSequenceFn(ctx, year)
	}
	return 0, errUnimplemented
}
