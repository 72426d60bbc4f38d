package mysql

import (
	"context"
	"strings"
	"time"

	appDomain "kyc-backend/internal/domain/application"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type ApplicationRepository struct{ db *gorm.DB }

func NewApplicationRepository(db *gorm.DB) *ApplicationRepository {
	return &ApplicationRepository{db: db}
}

func (r *ApplicationRepository) Create(ctx context.Context, a *appDomain.Application) error {
	return r.db.WithContext(ctx).Omit(clause.Associations).Create(a).Error
}

func (r *ApplicationRepository) Save(ctx context.Context, a *appDomain.Application) error {
	return r.db.WithContext(ctx).Omit(clause.Associations).Save(a).Error
}

func (r *ApplicationRepository) AppendTimeline(ctx context.Context, applicationRef uint64, e *appDomain.TimelineEntry) error {
	e.ID = 0
	e.ApplicationRef = applicationRef
	return r.db.WithContext(ctx).Create(e).Error
}

func (r *ApplicationRepository) GetByApplicationID(ctx context.Context, applicationID string) (*appDomain.Application, error) {
	return r.first(r.db.WithContext(ctx), "application_id = ?", applicationID)
}

func (r *ApplicationRepository) GetByApplicationIDForUpdate(ctx context.Context, applicationID string) (*appDomain.Application, error) {
	q := r.db.WithContext(ctx).Clauses(clause.Locking{Strength: "UPDATE"})
	return r.first(q, "application_id = ?", applicationID)
}

func (r *ApplicationRepository) GetByNumber(ctx context.Context, number string) (*appDomain.Application, error) {
	return r.first(r.db.WithContext(ctx), "application_number = ?", number)
}

func (r *ApplicationRepository) GetActiveByOwner(ctx context.Context, ownerID string) (*appDomain.Application, error) {
	return r.first(r.db.WithContext(ctx), "owner_id = ? AND active = ?", ownerID, true)
}

func (r *ApplicationRepository) first(q *gorm.DB, where string, args ...any) (*appDomain.Application, error) {
	var out appDomain.Application
	res := q.Preload("Timeline", func(db *gorm.DB) *gorm.DB {
		return db.Order("application_timeline.id ASC")
	}).Where(where, args...).First(&out)
	if res.Error != nil {
		return nil, res.Error
	}
	return &out, nil
}

func (r *ApplicationRepository) List(ctx context.Context, f appDomain.ListFilter) ([]appDomain.Application, int64, error) {
	page, limit := f.Page, f.Limit
	if page < 1 {
		page = 1
	}
	if limit < 1 || limit > 100 {
		limit = 10
	}

	// fresh statement per use; gorm statements are not safe to reuse after Count
	query := func() *gorm.DB {
		q := r.db.WithContext(ctx).Model(&appDomain.Application{}).Where("active = ?", true)
		if f.Status != "" {
			q = q.Where("status = ?", f.Status)
		}
		if s := strings.TrimSpace(f.Search); s != "" {
			like := "%" + escapeLike(strings.ToLower(s)) + "%"
			q = q.Where("(LOWER(application_number) LIKE ? ESCAPE '!' OR LOWER(personal_full_name) LIKE ? ESCAPE '!' OR LOWER(personal_email) LIKE ? ESCAPE '!')", like, like, like)
		}
		return q
	}

	var total int64
	if err := query().Count(&total).Error; err != nil {
		return nil, 0, err
	}
	var out []appDomain.Application
	err := query().Order("created_at DESC, id DESC").
		Offset((page - 1) * limit).
		Limit(limit).
		Find(&out).Error
	return out, total, err
}

func (r *ApplicationRepository) Stats(ctx context.Context) (*appDomain.Stats, error) {
	var rows []struct {
		Status appDomain.Status
		Count  int64
	}
	err := r.db.WithContext(ctx).Model(&appDomain.Application{}).
		Select("status, COUNT(*) AS count").
		Where("active = ?", true).
		Group("status").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	out := &appDomain.Stats{ByStatus: make(map[appDomain.Status]int64, len(appDomain.AllStatuses))}
	for _, s := range appDomain.AllStatuses {
		out.ByStatus[s] = 0
	}
	for _, row := range rows {
		out.ByStatus[row.Status] = row.Count
		out.Total += row.Count
	}
	out.PendingReviews = out.ByStatus[appDomain.StatusSubmitted] + out.ByStatus[appDomain.StatusUnderReview]
	return out, nil
}

func (r *ApplicationRepository) Export(ctx context.Context, f appDomain.ExportFilter) ([]appDomain.Application, error) {
	q := r.db.WithContext(ctx).Where("active = ?", true)
	if f.Status != "" {
		q = q.Where("status = ?", f.Status)
	}
	if !f.From.IsZero() {
		q = q.Where("created_at >= ?", f.From.UTC())
	}
	if !f.To.IsZero() {
		q = q.Where("created_at < ?", f.To.UTC())
	}
	if f.Limit > 0 {
		q = q.Limit(f.Limit)
	}
	var out []appDomain.Application
	err := q.Order("created_at DESC, id DESC").Find(&out).Error
	return out, err
}

func (r *ApplicationRepository) MonthlyCreations(ctx context.Context, year int) ([]appDomain.MonthCount, error) {
	from := time.Date(year, time.January, 1, 0, 0, 0, 0, time.UTC)
	// bucketed here: month extraction differs between mysql and sqlite
	var created []time.Time
	err := r.db.WithContext(ctx).Model(&appDomain.Application{}).
		Where("created_at >= ? AND created_at < ?", from, from.AddDate(1, 0, 0)).
		Pluck("created_at", &created).Error
	if err != nil {
		return nil, err
	}
	var perMonth [12]int64
	for _, t := range created {
		perMonth[t.UTC().Month()-1]++
	}
	out := make([]appDomain.MonthCount, 0, 12)
	for i, n := range perMonth {
		if n > 0 {
			out = append(out, appDomain.MonthCount{Month: i + 1, Count: n})
		}
	}
	return out, nil
}

func escapeLike(s string) string {
	return strings.NewReplacer(`!`, `!!`, `%`, `!%`, `_`, `!_`).Replace(s)
}

