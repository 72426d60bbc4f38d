package uow

import (
	"context"

	"kyc-backend/internal/domain/application"
	"kyc-backend/internal/domain/user"
)

// Repos are bound to one transaction.
type Repos struct {
	Applications application.Repository
	Users        user.Repository
	Sequences    application.SequenceRepository
}

type UnitOfWork interface {
	// plain tx
	WithinTx(ctx context.Context, fn func(r Repos) error) error
	// lock the application row first, then pass it in
	WithinApplicationTx(ctx context.Context, applicationID string, fn func(r Repos, a *application.Application) error) error
}
