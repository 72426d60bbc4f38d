package application

import (
	"time"

	appDomain "kyc-backend/internal/domain/application"
)

type PersonalInfoInput struct {
	FullName    string     `json:"full_name" validate:"omitempty,max=100"`
	DateOfBirth *time.Time `json:"date_of_birth"`
	Gender      string     `json:"gender" validate:"omitempty,oneof=male female other"`
	Nationality string     `json:"nationality" validate:"omitempty,max=64"`
	Phone       string     `json:"phone" validate:"omitempty,phone10"`
	Email       string     `json:"email" validate:"omitempty,email"`
}

type AddressInput struct {
	Street  string `json:"street" validate:"omitempty,max=255"`
	City    string `json:"city" validate:"omitempty,max=100"`
	State   string `json:"state" validate:"omitempty,max=100"`
	Country string `json:"country" validate:"omitempty,max=100"`
	ZipCode string `json:"zip_code" validate:"omitempty,max=16"`
	Type    string `json:"type" validate:"omitempty,oneof=residential office other"`
}

type EmploymentInput struct {
	Occupation   string `json:"occupation" validate:"omitempty,max=100"`
	Employer     string `json:"employer" validate:"omitempty,max=100"`
	WorkAddress  string `json:"work_address" validate:"omitempty,max=500"`
	AnnualIncome string `json:"annual_income" validate:"omitempty,oneof=below_5lakh 5lakh_10lakh 10lakh_25lakh 25lakh_50lakh above_50lakh"`
}

// FieldsInput is the body of create and update; every field is optional.
type FieldsInput struct {
	PersonalInfo     PersonalInfoInput `json:"personal_info"`
	CurrentAddress   AddressInput      `json:"current_address"`
	PermanentAddress AddressInput      `json:"permanent_address"`
	Employment       EmploymentInput   `json:"employment"`
}

func (in FieldsInput) fields() appDomain.Fields {
	p := in.PersonalInfo
	var dob *time.Time
	if p.DateOfBirth != nil {
		d := p.DateOfBirth.UTC()
		dob = &d
	}
	return appDomain.Fields{
		PersonalInfo: appDomain.PersonalInfo{
			FullName: p.FullName, DateOfBirth: dob, Gender: p.Gender,
			Nationality: p.Nationality, Phone: p.Phone, Email: p.Email,
		},
		CurrentAddress:   appDomain.Address(in.CurrentAddress),
		PermanentAddress: appDomain.Address(in.PermanentAddress),
		Employment:       appDomain.Employment(in.Employment),
	}
}

type DocumentInput struct {
	OriginalName string
	ContentType  string
	Size         int64
}

type ListInput struct {
	Status string `query:"status" validate:"omitempty,oneof=draft submitted under_review approved rejected pending_documents"`
	Search string `query:"search" validate:"omitempty,max=100"`
	Page   int    `query:"page" validate:"omitempty,min=1"`
	Limit  int    `query:"limit" validate:"omitempty,min=1,max=100"`
}

// ExportInput takes calendar dates; end_date is inclusive.
type ExportInput struct {
	Status    string `query:"status" validate:"omitempty,oneof=all draft submitted under_review approved rejected pending_documents"`
	StartDate string `query:"start_date" validate:"omitempty,datetime=2006-01-02"`
	EndDate   string `query:"end_date" validate:"omitempty,datetime=2006-01-02"`
}

type TimelineDTO struct {
	Action      string    `json:"action"`
	PerformedBy string    `json:"performed_by,omitempty"`
	Notes       string    `json:"notes,omitempty"`
	Timestamp   time.Time `json:"timestamp"`
}

type ApplicationDTO struct {
	ApplicationID     string                        `json:"application_id"`
	ApplicationNumber string                        `json:"application_number"`
	OwnerID           string                        `json:"owner_id"`
	Status            string                        `json:"status"`
	Active            bool                          `json:"active"`
	Documents         map[string]appDomain.Document `json:"documents"`
	MissingDocuments  []string                      `json:"missing_documents"`
	PersonalInfo      appDomain.PersonalInfo        `json:"personal_info"`
	CurrentAddress    appDomain.Address             `json:"current_address"`
	PermanentAddress  appDomain.Address             `json:"permanent_address"`
	Employment        appDomain.Employment          `json:"employment"`
	Review            appDomain.Review              `json:"review"`
	Timeline          []TimelineDTO                 `json:"timeline"`
	StatusUpdatedAt   time.Time                     `json:"status_updated_at"`
	CreatedAt         time.Time                     `json:"created_at"`
	UpdatedAt         time.Time                     `json:"updated_at"`
}

type StatusDTO struct {
	ApplicationID     string        `json:"application_id"`
	ApplicationNumber string        `json:"application_number"`
	Status            string        `json:"status"`
	Active            bool          `json:"active"`
	MissingDocuments  []string      `json:"missing_documents"`
	StatusUpdatedAt   time.Time     `json:"status_updated_at"`
	Timeline          []TimelineDTO `json:"timeline"`
}

// PublicTimelineDTO omits the performer.
type PublicTimelineDTO struct {
	Action    string    `json:"action"`
	Notes     string    `json:"notes,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

type TrackDTO struct {
	ApplicationNumber string              `json:"application_number"`
	Status            string              `json:"status"`
	CreatedAt         time.Time           `json:"created_at"`
	Timeline          []PublicTimelineDTO `json:"timeline"`
}

type SummaryDTO struct {
	ApplicationID     string    `json:"application_id"`
	ApplicationNumber string    `json:"application_number"`
	OwnerID           string    `json:"owner_id"`
	FullName          string    `json:"full_name,omitempty"`
	Email             string    `json:"email,omitempty"`
	Status            string    `json:"status"`
	StatusUpdatedAt   time.Time `json:"status_updated_at"`
	CreatedAt         time.Time `json:"created_at"`
}

type ListDTO struct {
	Items      []SummaryDTO `json:"items"`
	Page       int          `json:"page"`
	Limit      int          `json:"limit"`
	Total      int64        `json:"total"`
	TotalPages int64        `json:"total_pages"`
}

type StatsDTO struct {
	Total          int64            `json:"total"`
	ByStatus       map[string]int64 `json:"by_status"`
	PendingReviews int64            `json:"pending_reviews"`
}

type DashboardDTO struct {
	Year               int                    `json:"year"`
	KYCStats           StatsDTO               `json:"kyc_stats"`
	PendingReviews     int64                  `json:"pending_reviews"`
	UserStats          map[string]int64       `json:"user_stats"`
	RecentApplications []SummaryDTO           `json:"recent_applications"`
	MonthlyStats       []appDomain.MonthCount `json:"monthly_stats"`
}

type ExportRowDTO struct {
	ApplicationNumber string     `json:"application_number"`
	FullName          string     `json:"full_name,omitempty"`
	Email             string     `json:"email,omitempty"`
	Phone             string     `json:"phone,omitempty"`
	Status            string     `json:"status"`
	CreatedAt         time.Time  `json:"created_at"`
	ReviewedAt        *time.Time `json:"reviewed_at,omitempty"`
	ReviewedBy        string     `json:"reviewed_by,omitempty"`
	Notes             string     `json:"notes,omitempty"`
}

type ExportDTO struct {
	Items []ExportRowDTO `json:"items"`
	Count int            `json:"count"`
	// Truncated is set when more rows matched than one export carries.
	Truncated bool `json:"truncated"`
}

func ToDTO(a *appDomain.Application) *ApplicationDTO {
	docs := make(map[string]appDomain.Document, 4)
	for _, s := range []appDomain.Slot{appDomain.SlotIdentity, appDomain.SlotTaxID, appDomain.SlotAddressProof, appDomain.SlotProfileImage} {
		d, _ := a.Document(s)
		docs[string(s)] = d
	}
	return &ApplicationDTO{
		ApplicationID:     a.ApplicationID,
		ApplicationNumber: a.ApplicationNumber,
		OwnerID:           a.OwnerID,
		Status:            string(a.Status),
		Active:            a.Active,
		Documents:         docs,
		MissingDocuments:  slotNames(a.MissingDocuments()),
		PersonalInfo:      a.PersonalInfo,
		CurrentAddress:    a.CurrentAddress,
		PermanentAddress:  a.PermanentAddress,
		Employment:        a.Employment,
		Review:            a.Review,
		Timeline:          timeline(a.Timeline),
		StatusUpdatedAt:   a.StatusUpdatedAt,
		CreatedAt:         a.CreatedAt,
		UpdatedAt:         a.UpdatedAt,
	}
}

func toStatusDTO(a *appDomain.Application) *StatusDTO {
	return &StatusDTO{
		ApplicationID:     a.ApplicationID,
		ApplicationNumber: a.ApplicationNumber,
		Status:            string(a.Status),
		Active:            a.Active,
		MissingDocuments:  slotNames(a.MissingDocuments()),
		StatusUpdatedAt:   a.StatusUpdatedAt,
		Timeline:          timeline(a.Timeline),
	}
}

func toTrackDTO(a *appDomain.Application) *TrackDTO {
	out := &TrackDTO{
		ApplicationNumber: a.ApplicationNumber,
		Status:            string(a.Status),
		CreatedAt:         a.CreatedAt,
		Timeline:          make([]PublicTimelineDTO, 0, len(a.Timeline)),
	}
	for _, e := range a.Timeline {
		out.Timeline = append(out.Timeline, PublicTimelineDTO{Action: string(e.Action), Notes: e.Notes, Timestamp: e.Timestamp})
	}
	return out
}

func toSummaryDTO(a *appDomain.Application) SummaryDTO {
	return SummaryDTO{
		ApplicationID:     a.ApplicationID,
		ApplicationNumber: a.ApplicationNumber,
		OwnerID:           a.OwnerID,
		FullName:          a.PersonalInfo.FullName,
		Email:             a.PersonalInfo.Email,
		Status:            string(a.Status),
		StatusUpdatedAt:   a.StatusUpdatedAt,
		CreatedAt:         a.CreatedAt,
	}
}

func toStatsDTO(st *appDomain.Stats) StatsDTO {
	out := StatsDTO{Total: st.Total, PendingReviews: st.PendingReviews, ByStatus: make(map[string]int64, len(st.ByStatus))}
	for s, n := range st.ByStatus {
		out.ByStatus[string(s)] = n
	}
	return out
}

func toExportRow(a *appDomain.Application) ExportRowDTO {
	return ExportRowDTO{
		ApplicationNumber: a.ApplicationNumber,
		FullName:          a.PersonalInfo.FullName,
		Email:             a.PersonalInfo.Email,
		Phone:             a.PersonalInfo.Phone,
		Status:            string(a.Status),
		CreatedAt:         a.CreatedAt,
		ReviewedAt:        a.Review.ReviewedAt,
		ReviewedBy:        a.Review.ReviewedBy,
		Notes:             a.Review.Notes,
	}
}

func timeline(in []appDomain.TimelineEntry) []TimelineDTO {
	out := make([]TimelineDTO, 0, len(in))
	for _, e := range in {
		out = append(out, TimelineDTO{Action: string(e.Action), PerformedBy: e.PerformedBy, Notes: e.Notes, Timestamp: e.Timestamp})
	}
	return out
}

func slotNames(in []appDomain.Slot) []string {
	out := make([]string, 0, len(in))
	for _, s := range in {
		out = append(out, string(s))
	}
	return out
}
