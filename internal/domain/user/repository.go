package user

import "context"

type Repository interface {
	GetByUserID(ctx context.Context, userID string) (*User, error)

	// LockOrCreate provisions the row if missing and locks it for the rest of the tx.
	LockOrCreate(ctx context.Context, userID string) (*User, error)

	// SetKYCStatus writes only kyc_status; writing the current value is a no-op.
	SetKYCStatus(ctx context.Context, userID string, status KYCStatus) error

	// CountByKYCStatus is the distribution of the mirror over all users.
	CountByKYCStatus(ctx context.Context) (map[KYCStatus]int64, error)
}
