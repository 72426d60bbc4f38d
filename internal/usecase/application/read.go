package application

import (
	"context"
	"fmt"
	"time"

	appDomain "kyc-backend/internal/domain/application"
	"kyc-backend/internal/domain/uow"
	userDomain "kyc-backend/internal/domain/user"
)

const (
	recentApplications = 5
	maxExportRows      = 10_000
	dateLayout         = "2006-01-02"
)

// GetStatus is visible to the owner and to staff.
func (u *Usecase) GetStatus(ctx context.Context, actor userDomain.Actor, applicationID string) (*StatusDTO, error) {
	a, err := u.load(ctx, applicationID)
	if err != nil {
		return nil, err
	}
	if a.OwnerID != actor.ID && !actor.Role.CanReview() {
		return nil, appDomain.ErrForbidden
	}
	return toStatusDTO(a), nil
}

// TrackByApplicationNumber is public: no performer, no personal data.
func (u *Usecase) TrackByApplicationNumber(ctx context.Context, number string) (*TrackDTO, error) {
	if !appDomain.ValidNumber(number) {
		return nil, appDomain.ErrNotFound
	}
	a, err := u.apps.GetByNumber(ctx, number)
	if err != nil {
		return nil, translate(err)
	}
	return toTrackDTO(a), nil
}

func (u *Usecase) GetMine(ctx context.Context, actor userDomain.Actor) (*ApplicationDTO, error) {
	if actor.ID == "" {
		return nil, appDomain.ErrForbidden
	}
	a, err := u.apps.GetActiveByOwner(ctx, actor.ID)
	if err != nil {
		return nil, translate(err)
	}
	return ToDTO(a), nil
}

func (u *Usecase) Get(ctx context.Context, actor userDomain.Actor, applicationID string) (*ApplicationDTO, error) {
	if !actor.Role.CanReview() {
		return nil, appDomain.ErrForbidden
	}
	a, err := u.load(ctx, applicationID)
	if err != nil {
		return nil, err
	}
	return ToDTO(a), nil
}

func (u *Usecase) List(ctx context.Context, actor userDomain.Actor, in ListInput) (*ListDTO, error) {
	if !actor.Role.CanReview() {
		return nil, appDomain.ErrForbidden
	}
	page, limit := in.Page, in.Limit
	if page < 1 {
		page = 1
	}
	if limit < 1 || limit > 100 {
		limit = 10
	}
	items, total, err := u.apps.List(ctx, appDomain.ListFilter{
		Status: appDomain.Status(in.Status),
		Search: in.Search,
		Page:   page,
		Limit:  limit,
	})
	if err != nil {
		return nil, err
	}
	out := &ListDTO{
		Items:      make([]SummaryDTO, 0, len(items)),
		Page:       page,
		Limit:      limit,
		Total:      total,
		TotalPages: (total + int64(limit) - 1) / int64(limit),
	}
	for i := range items {
		out.Items = append(out.Items, toSummaryDTO(&items[i]))
	}
	return out, nil
}

func (u *Usecase) Stats(ctx context.Context, actor userDomain.Actor) (*StatsDTO, error) {
	if !actor.Role.CanReview() {
		return nil, appDomain.ErrForbidden
	}
	st, err := u.apps.Stats(ctx)
	if err != nil {
		return nil, err
	}
	out := toStatsDTO(st)
	return &out, nil
}

// Dashboard reads every figure in one transaction so they agree with each other.
func (u *Usecase) Dashboard(ctx context.Context, actor userDomain.Actor) (*DashboardDTO, error) {
	if !actor.Role.CanReview() {
		return nil, appDomain.ErrForbidden
	}
	out := &DashboardDTO{Year: u.tr.Now().UTC().Year()}
	err := u.uow.WithinTx(ctx, func(r uow.Repos) error {
		st, err := r.Applications.Stats(ctx)
		if err != nil {
			return fmt.Errorf("stats: %w", err)
		}
		out.KYCStats = toStatsDTO(st)
		out.PendingReviews = st.PendingReviews

		recent, _, err := r.Applications.List(ctx, appDomain.ListFilter{Page: 1, Limit: recentApplications})
		if err != nil {
			return fmt.Errorf("recent applications: %w", err)
		}
		out.RecentApplications = make([]SummaryDTO, 0, len(recent))
		for i := range recent {
			out.RecentApplications = append(out.RecentApplications, toSummaryDTO(&recent[i]))
		}

		if out.MonthlyStats, err = r.Applications.MonthlyCreations(ctx, out.Year); err != nil {
			return fmt.Errorf("monthly stats: %w", err)
		}

		users, err := r.Users.CountByKYCStatus(ctx)
		if err != nil {
			return fmt.Errorf("user stats: %w", err)
		}
		out.UserStats = make(map[string]int64, len(users))
		for s, n := range users {
			out.UserStats[string(s)] = n
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// Export lists active applications, newest first, for offline review.
func (u *Usecase) Export(ctx context.Context, actor userDomain.Actor, in ExportInput) (*ExportDTO, error) {
	if !actor.Role.CanReview() {
		return nil, appDomain.ErrForbidden
	}
	f := appDomain.ExportFilter{Limit: maxExportRows + 1}
	if in.Status != "all" {
		f.Status = appDomain.Status(in.Status)
	}
	if in.StartDate != "" {
		d, err := time.Parse(dateLayout, in.StartDate)
		if err != nil {
			return nil, fmt.Errorf("%w: start_date %q", appDomain.ErrInvalidFilter, in.StartDate)
		}
		f.From = d
	}
	if in.EndDate != "" {
		d, err := time.Parse(dateLayout, in.EndDate)
		if err != nil {
			return nil, fmt.Errorf("%w: end_date %q", appDomain.ErrInvalidFilter, in.EndDate)
		}
		f.To = d.AddDate(0, 0, 1)
	}
	if !f.From.IsZero() && !f.To.IsZero() && !f.From.Before(f.To) {
		return nil, fmt.Errorf("%w: start_date after end_date", appDomain.ErrInvalidFilter)
	}

	rows, err := u.apps.Export(ctx, f)
	if err != nil {
		return nil, err
	}
	out := &ExportDTO{}
	if len(rows) > maxExportRows {
		rows, out.Truncated = rows[:maxExportRows], true
	}
	out.Items = make([]ExportRowDTO, 0, len(rows))
	for i := range rows {
		out.Items = append(out.Items, toExportRow(&rows[i]))
	}
	out.Count = len(out.Items)
	return out, nil
}
