// Package kyctest wires the real repositories on in-memory sqlite with
// synchronous collaborators, for use-case and handler tests.
package kyctest

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"
	"testing"
	"time"

	"kyc-backend/internal/adapter/repository/mysql"
	appDomain "kyc-backend/internal/domain/application"
	userDomain "kyc-backend/internal/domain/user"
	appUsecase "kyc-backend/internal/usecase/application"
	"kyc-backend/internal/usecase/mirror"
	"kyc-backend/internal/usecase/review"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

const (
	OwnerID     = "aaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa"
	OtherID     = "bbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbb"
	AdminID     = "cccccccccccccccccccccccccccccccc"
	ModeratorID = "dddddddddddddddddddddddddddddddd"
	CertBase    = "https://kyc.example.com"
)

var (
	Owner     = userDomain.Actor{ID: OwnerID, Role: userDomain.RoleUser}
	Other     = userDomain.Actor{ID: OtherID, Role: userDomain.RoleUser}
	Admin     = userDomain.Actor{ID: AdminID, Role: userDomain.RoleAdmin}
	Moderator = userDomain.Actor{ID: ModeratorID, Role: userDomain.RoleModerator}
)

type Harness struct {
	DB           *gorm.DB
	UoW          *mysql.GormUoW
	Apps         *mysql.ApplicationRepository
	Users        *mysql.UserRepository
	Mirror       *mirror.Synchronizer
	Sink         *Sink
	Store        *MemoryStore
	Clock        *Clock
	Transitioner *appUsecase.Transitioner
	Applications *appUsecase.Usecase
	Reviews      *review.Usecase
}

// New builds a harness whose clock starts at 2024-03-01 10:00 UTC.
func New(t *testing.T) *Harness {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		TranslateError: true,
		Logger:         logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("sql db: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })
	if err := db.AutoMigrate(mysql.Models()...); err != nil {
		t.Fatalf("auto-migrate: %v", err)
	}

	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	h := &Harness{
		DB:    db,
		UoW:   mysql.NewGormUoW(db),
		Apps:  mysql.NewApplicationRepository(db),
		Users: mysql.NewUserRepository(db),
		Store: NewMemoryStore(),
		Clock: &Clock{t: time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)},
	}
	h.Mirror = mirror.NewSynchronizer(h.UoW, log)
	h.Sink = &Sink{mirror: h.Mirror, store: h.Store}
	h.Transitioner = appUsecase.NewTransitioner(h.UoW, h.Sink,
		appUsecase.WithLogger(log),
		appUsecase.WithClock(h.Clock.Now),
	)
	h.Applications = appUsecase.NewUsecase(h.Apps, h.UoW, h.Transitioner, h.Store, appUsecase.WithUsecaseLogger(log))
	h.Reviews = review.NewUsecase(h.Transitioner, CertBase)
	return h
}

// KYCStatus reads the owner's mirror straight from the table.
func (h *Harness) KYCStatus(t *testing.T, userID string) userDomain.KYCStatus {
	t.Helper()
	u, err := h.Users.GetByUserID(context.Background(), userID)
	if err != nil {
		t.Fatalf("user %s: %v", userID, err)
	}
	return u.KYCStatus
}

// Application loads the stored row with its timeline.
func (h *Harness) Application(t *testing.T, applicationID string) *appDomain.Application {
	t.Helper()
	a, err := h.Apps.GetByApplicationID(context.Background(), applicationID)
	if err != nil {
		t.Fatalf("application %s: %v", applicationID, err)
	}
	return a
}

// Upload attaches a small PDF to slot.
func (h *Harness) Upload(t *testing.T, actor userDomain.Actor, applicationID string, slot appDomain.Slot) *appUsecase.ApplicationDTO {
	t.Helper()
	dto, err := h.Applications.AttachDocument(context.Background(), actor, applicationID, string(slot),
		appUsecase.DocumentInput{OriginalName: string(slot) + ".pdf", ContentType: "application/pdf", Size: 8},
		stringsReader("%PDF-1.4"))
	if err != nil {
		t.Fatalf("attach %s: %v", slot, err)
	}
	return dto
}

// Submitted creates an application for actor with every required document and submits it.
func (h *Harness) Submitted(t *testing.T, actor userDomain.Actor) *appUsecase.ApplicationDTO {
	t.Helper()
	ctx := context.Background()
	dto, err := h.Applications.Create(ctx, actor, appUsecase.FieldsInput{})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	for _, s := range appDomain.RequiredSlots {
		h.Upload(t, actor, dto.ApplicationID, s)
	}
	out, err := h.Applications.Submit(ctx, actor, dto.ApplicationID)
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	return out
}

type Clock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *Clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(time.Second)
	return c.t
}

func (c *Clock) Set(t time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = t
}

// Sink resyncs the mirror synchronously, the way the dispatcher does, and
// records the rest. MirrorFn replaces the resync when set.
type Sink struct {
	mirror *mirror.Synchronizer
	store  *MemoryStore

	mu       sync.Mutex
	Effects  []appDomain.Effects
	Events   []appDomain.EventKind
	MirrorFn func(ctx context.Context, userID string, s userDomain.KYCStatus) error
}

func (s *Sink) Dispatch(ctx context.Context, a *appDomain.Application, fx appDomain.Effects) {
	s.mu.Lock()
	s.Effects = append(s.Effects, fx)
	if fx.Event != "" {
		s.Events = append(s.Events, fx.Event)
	}
	syncFn := s.MirrorFn
	s.mu.Unlock()

	if fx.Mirror != "" {
		if syncFn != nil {
			_ = syncFn(ctx, a.OwnerID, fx.Mirror)
		} else {
			_, _ = s.mirror.ResyncOwner(ctx, a.OwnerID)
		}
	}
	if fx.ReleasedRef != "" {
		_ = s.store.Delete(ctx, fx.ReleasedRef)
	}
}

func (s *Sink) EventKinds() []appDomain.EventKind {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]appDomain.EventKind(nil), s.Events...)
}

// MemoryStore is an in-memory DocumentStore.
type MemoryStore struct {
	mu      sync.Mutex
	n       int
	Objects map[string][]byte
	PutErr  error
}

func NewMemoryStore() *MemoryStore { return &MemoryStore{Objects: map[string][]byte{}} }

func (m *MemoryStore) Put(_ context.Context, u appDomain.Upload) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.PutErr != nil {
		return "", m.PutErr
	}
	b, err := io.ReadAll(u.Body)
	if err != nil {
		return "", err
	}
	m.n++
	ref := fmt.Sprintf("%s/%s-%d", u.OwnerID, u.Slot, m.n)
	m.Objects[ref] = b
	return ref, nil
}

func (m *MemoryStore) Delete(_ context.Context, ref string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.Objects, ref)
	return nil
}

func (m *MemoryStore) Has(ref string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.Objects[ref]
	return ok
}

func (m *MemoryStore) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.Objects)
}

func stringsReader(s string) io.Reader { return strings.NewReader(s) }
