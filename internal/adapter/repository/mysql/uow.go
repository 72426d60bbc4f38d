package mysql

import (
	"context"

	"kyc-backend/internal/domain/application"
	"kyc-backend/internal/domain/uow"
	"kyc-backend/internal/domain/user"

	"gorm.io/gorm"
)

type GormUoW struct{ db *gorm.DB }

func NewGormUoW(db *gorm.DB) *GormUoW { return &GormUoW{db: db} }

func repos(tx *gorm.DB) uow.Repos {
	return uow.Repos{
		Applications: &ApplicationRepository{db: tx},
		Users:        &UserRepository{db: tx},
		Sequences:    &SequenceRepository{db: tx},
	}
}

func (u *GormUoW) WithinTx(ctx context.Context, fn func(r uow.Repos) error) error {
	return u.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(repos(tx))
	})
}

func (u *GormUoW) WithinApplicationTx(ctx context.Context, applicationID string, fn func(r uow.Repos, a *application.Application) error) error {
	return u.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		r := repos(tx)
		// lock the application row up-front to serialize transitions on it
		a, err := r.Applications.GetByApplicationIDForUpdate(ctx, applicationID)
		if err != nil {
			return err
		}
		return fn(r, a)
	})
}

// Models lists every table owned by the service, for AutoMigrate.
func Models() []any {
	return []any{
		&application.Application{},
		&application.TimelineEntry{},
		&applicationSequence{},
		&user.User{},
	}
}
