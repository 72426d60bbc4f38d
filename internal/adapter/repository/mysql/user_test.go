package mysql

import (
	"context"
	"errors"
	"testing"

	userDomain "kyc-backend/internal/domain/user"
)

func TestUser_LockOrCreate_Idempotent(t *testing.T) {
	db := openTestDB(t)
	repo := NewUserRepository(db)
	ctx := context.Background()

	u1, err := repo.LockOrCreate(ctx, ownerA)
	if err != nil {
		t.Fatalf("LockOrCreate: %v", err)
	}
	if u1.KYCStatus != userDomain.KYCNotStarted {
		t.Fatalf("new user status=%s", u1.KYCStatus)
	}
	if err := repo.SetKYCStatus(ctx, ownerA, userDomain.KYCPending); err != nil {
		t.Fatal(err)
	}

	// a second call must not reset the row
	u2, err := repo.LockOrCreate(ctx, ownerA)
	if err != nil {
		t.Fatal(err)
	}
	if u2.ID != u1.ID || u2.KYCStatus != userDomain.KYCPending {
		t.Fatalf("LockOrCreate overwrote user: %+v", u2)
	}
}

func TestUser_SetKYCStatus(t *testing.T) {
	db := openTestDB(t)
	repo := NewUserRepository(db)
	ctx := context.Background()

	if _, err := repo.LockOrCreate(ctx, ownerA); err != nil {
		t.Fatal(err)
	}
	for i := 0; i < 2; i++ {
		if err := repo.SetKYCStatus(ctx, ownerA, userDomain.KYCSubmitted); err != nil {
			t.Fatalf("SetKYCStatus #%d: %v", i+1, err)
		}
	}
	got, err := repo.GetByUserID(ctx, ownerA)
	if err != nil {
		t.Fatal(err)
	}
	if got.KYCStatus != userDomain.KYCSubmitted {
		t.Fatalf("status=%s", got.KYCStatus)
	}

	if err := repo.SetKYCStatus(ctx, ownerB, userDomain.KYCSubmitted); !errors.Is(err, userDomain.ErrNotFound) {
		t.Fatalf("expected ErrNotFound for unknown user, got %v", err)
	}
}

func TestUser_CountByKYCStatus(t *testing.T) {
	db := openTestDB(t)
	repo := NewUserRepository(db)
	ctx := context.Background()

	seed := map[string]userDomain.KYCStatus{
		"11111111111111111111111111111111": userDomain.KYCApproved,
		"22222222222222222222222222222222": userDomain.KYCApproved,
		"33333333333333333333333333333333": userDomain.KYCPending,
		"44444444444444444444444444444444": userDomain.KYCNotStarted,
	}
	for id, st := range seed {
		if _, err := repo.LockOrCreate(ctx, id); err != nil {
			t.Fatal(err)
		}
		if err := repo.SetKYCStatus(ctx, id, st); err != nil {
			t.Fatal(err)
		}
	}

	got, err := repo.CountByKYCStatus(ctx)
	if err != nil {
		t.Fatalf("CountByKYCStatus: %v", err)
	}
	want := map[userDomain.KYCStatus]int64{
		userDomain.KYCApproved:   2,
		userDomain.KYCPending:    1,
		userDomain.KYCNotStarted: 1,
	}
	if len(got) != len(want) {
		t.Fatalf("got %v want %v", got, want)
	}
	for st, n := range want {
		if got[st] != n {
			t.Fatalf("%s: got %d want %d", st, got[st], n)
		}
	}
}
