package usermock

import (
	"context"

	domain "kyc-backend/internal/domain/user"
)

var _ domain.Repository = (*Repo)(nil)

// Repo is a function-backed mock that satisfies domain.Repository.
type Repo struct {
	GetByUserIDFn      func(ctx context.Context, userID string) (*domain.User, error)
	LockOrCreateFn     func(ctx context.Context, userID string) (*domain.User, error)
	SetKYCStatusFn     func(ctx context.Context, userID string, status domain.KYCStatus) error
	CountByKYCStatusFn func(ctx context.Context) (map[domain.KYCStatus]int64, error)
}

func (m *Repo) GetByUserID(ctx context.Context, userID string) (*domain.User, error) {
	if m.GetByUserIDFn != nil {
		return m.GetByUserIDFn(ctx, userID)
	}
	return nil, domain.ErrNotFound
}

// LockOrCreate defaults to a fresh not_started user.
func (m *Repo) LockOrCreate(ctx context.Context, userID string) (*domain.User, error) {
	if m.LockOrCreateFn != nil {
		return m.LockOrCreateFn(ctx, userID)
	}
	return &domain.User{UserID: userID, KYCStatus: domain.KYCNotStarted}, nil
}

func (m *Repo) SetKYCStatus(ctx context.Context, userID string, status domain.KYCStatus) error {
	if m.SetKYCStatusFn != nil {
		return m.SetKYCStatusFn(ctx, userID, status)
	}
	return nil
}

// CountByKYCStatus defaults to an empty distribution.
func (m *Repo) CountByKYCStatus(ctx context.Context) (map[domain.KYCStatus]int64, error) {
	if m.CountByKYCStatusFn != nil {
		return m.CountByKYCStatusFn(ctx)
	}
	return map[domain.KYCStatus]int64{}, nil
}
