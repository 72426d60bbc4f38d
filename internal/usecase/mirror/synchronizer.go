package mirror

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	appDomain "kyc-backend/internal/domain/application"
	"kyc-backend/internal/domain/uow"
	userDomain "kyc-backend/internal/domain/user"

	"gorm.io/gorm"
)

// Synchronizer keeps users.kyc_status in line with the owner's active application.
// Every write touches kyc_status only and writing the current value is a no-op.
type Synchronizer struct {
	uow uow.UnitOfWork
	log *slog.Logger
}

func NewSynchronizer(tx uow.UnitOfWork, log *slog.Logger) *Synchronizer {
	if log == nil {
		log = slog.Default()
	}
	return &Synchronizer{uow: tx, log: log}
}

func (s *Synchronizer) Sync(ctx context.Context, userID string, status userDomain.KYCStatus) error {
	return s.uow.WithinTx(ctx, func(r uow.Repos) error {
		if err := r.Users.SetKYCStatus(ctx, userID, status); err != nil {
			return fmt.Errorf("mirror %s=%s: %w", userID, status, err)
		}
		return nil
	})
}

// ResyncOwner recomputes the mirror from the owner's active application; none
// means not_started. It holds the user row lock so it orders after creations.
func (s *Synchronizer) ResyncOwner(ctx context.Context, ownerID string) (userDomain.KYCStatus, error) {
	var want userDomain.KYCStatus
	err := s.uow.WithinTx(ctx, func(r uow.Repos) error {
		u, err := r.Users.LockOrCreate(ctx, ownerID)
		if err != nil {
			return err
		}
		want = userDomain.KYCNotStarted
		a, err := r.Applications.GetActiveByOwner(ctx, ownerID)
		switch {
		case err == nil:
			want = appDomain.MirrorStatus(a.Status)
		case !errors.Is(err, gorm.ErrRecordNotFound):
			return err
		}
		if u.KYCStatus == want {
			return nil
		}
		s.log.InfoContext(ctx, "mirror resynced", "user_id", ownerID, "from", u.KYCStatus, "to", want)
		return r.Users.SetKYCStatus(ctx, ownerID, want)
	})
	if err != nil {
		return "", fmt.Errorf("resync %s: %w", ownerID, err)
	}
	return want, nil
}

func (s *Synchronizer) ResyncApplication(ctx context.Context, applicationID string) (userDomain.KYCStatus, error) {
	var ownerID string
	err := s.uow.WithinTx(ctx, func(r uow.Repos) error {
		a, err := r.Applications.GetByApplicationID(ctx, applicationID)
		if err != nil {
			return err
		}
		ownerID = a.OwnerID
		return nil
	})
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return "", appDomain.ErrNotFound
	}
	if err != nil {
		return "", err
	}
	return s.ResyncOwner(ctx, ownerID)
}
