package mysql

import (
	"testing"
	"time"

	appDomain "kyc-backend/internal/domain/application"
	"kyc-backend/pkg/id"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

// openTestDB creates an in-memory sqlite DB with the service schema.
func openTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{TranslateError: true})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("sql db: %v", err)
	}
	// every new connection to :memory: is a new, empty database
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	if err := db.AutoMigrate(Models()...); err != nil {
		t.Fatalf("auto-migrate: %v", err)
	}
	return db
}

func makeApplication(number, ownerID string) *appDomain.Application {
	owner := ownerID
	now := time.Now().UTC()
	return &appDomain.Application{
		ApplicationID:     id.NewID32(),
		ApplicationNumber: number,
		OwnerID:           ownerID,
		ActiveOwner:       &owner,
		Status:            appDomain.StatusDraft,
		Active:            true,
		PersonalInfo:      appDomain.PersonalInfo{FullName: "Jane Doe", Email: "jane@example.com"},
		StatusUpdatedAt:   now,
	}
}
