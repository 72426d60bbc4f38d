package application

import (
	"strings"
	"time"

	"kyc-backend/internal/domain/user"
)

// EventKind names a notification emitted after a committed transition.
type EventKind string

const (
	EventSubmitted          EventKind = "kyc.submitted"
	EventApproved           EventKind = "kyc.approved"
	EventRejected           EventKind = "kyc.rejected"
	EventDocumentsRequested EventKind = "kyc.documents_requested"
)

// Effects is what a successful transition asks the orchestrator to do.
// Timeline is always set; the rest are optional.
type Effects struct {
	Timeline TimelineEntry
	// Mirror is the user kyc_status to project; empty leaves it untouched.
	Mirror user.KYCStatus
	Event  EventKind
	// ReleasedRef is a storage object no longer referenced, deleted best-effort.
	ReleasedRef string
}

type Decision string

const (
	DecisionApprove          Decision = "approved"
	DecisionReject           Decision = "rejected"
	DecisionRequestDocuments Decision = "pending_documents"
)

func ParseDecision(s string) (Decision, error) {
	switch Decision(s) {
	case DecisionApprove, DecisionReject, DecisionRequestDocuments:
		return Decision(s), nil
	}
	return "", ErrInvalidDecision
}

type ReviewInput struct {
	Decision        Decision
	Notes           string
	RejectionReason string
	// CertificateRef is stamped on approval.
	CertificateRef string
}

// Fields carries applicant data; only non-empty values are merged.
type Fields struct {
	PersonalInfo     PersonalInfo
	CurrentAddress   Address
	PermanentAddress Address
	Employment       Employment
}

type NewParams struct {
	ApplicationID     string
	ApplicationNumber string
	Owner             user.Actor
	Fields            Fields
	At                time.Time
}

// MirrorStatus projects an application status onto the user mirror.
func MirrorStatus(s Status) user.KYCStatus {
	switch s {
	case StatusSubmitted, StatusUnderReview:
		return user.KYCSubmitted
	case StatusApproved:
		return user.KYCApproved
	case StatusRejected:
		return user.KYCRejected
	default:
		return user.KYCPending
	}
}

// New builds a fresh draft. The caller has already checked the active-owner guard.
func New(p NewParams) (Application, Effects) {
	owner := p.Owner.ID
	a := Application{
		ApplicationID:     p.ApplicationID,
		ApplicationNumber: p.ApplicationNumber,
		OwnerID:           owner,
		ActiveOwner:       &owner,
		Status:            StatusDraft,
		Active:            true,
		StatusUpdatedAt:   p.At,
		CreatedAt:         p.At,
	}
	a.applyFields(p.Fields)
	return a, Effects{
		Timeline: entry(ActionCreated, owner, "Application created", p.At),
		Mirror:   user.KYCPending,
	}
}

func (a Application) AttachDocument(actor user.Actor, s Slot, doc Document, at time.Time) (Application, Effects, error) {
	if err := a.requireOwner(actor); err != nil {
		return a, Effects{}, err
	}
	cur, err := a.slot(s)
	if err != nil {
		return a, Effects{}, err
	}
	if !a.Status.Mutable() {
		return a, Effects{}, notMutable(a.Status, "attach "+string(s))
	}
	if doc.StorageRef == "" {
		return a, Effects{}, ErrSlotEmpty
	}
	released := ""
	if cur.Present() && cur.StorageRef != doc.StorageRef {
		released = cur.StorageRef
	}
	uploaded := at
	*cur = Document{
		StorageRef:   doc.StorageRef,
		OriginalName: doc.OriginalName,
		ContentType:  doc.ContentType,
		Size:         doc.Size,
		UploadedAt:   &uploaded,
	}
	return a, Effects{
		Timeline:    entry(ActionDocumentUploaded, actor.ID, string(s)+" document uploaded", at),
		ReleasedRef: released,
	}, nil
}

func (a Application) DeleteDocument(actor user.Actor, s Slot, at time.Time) (Application, Effects, error) {
	if err := a.requireOwner(actor); err != nil {
		return a, Effects{}, err
	}
	cur, err := a.slot(s)
	if err != nil {
		return a, Effects{}, err
	}
	if !a.Status.Mutable() {
		return a, Effects{}, notMutable(a.Status, "delete "+string(s))
	}
	if !cur.Present() {
		return a, Effects{}, ErrSlotEmpty
	}
	released := cur.StorageRef
	*cur = Document{}
	return a, Effects{
		Timeline:    entry(ActionDocumentDeleted, actor.ID, string(s)+" document deleted", at),
		ReleasedRef: released,
	}, nil
}

func (a Application) UpdateFields(actor user.Actor, f Fields, at time.Time) (Application, Effects, error) {
	if err := a.requireOwner(actor); err != nil {
		return a, Effects{}, err
	}
	if !a.Status.Mutable() {
		return a, Effects{}, notMutable(a.Status, "update")
	}
	a.applyFields(f)
	return a, Effects{Timeline: entry(ActionUpdated, actor.ID, "Application updated", at)}, nil
}

func (a Application) Submit(actor user.Actor, at time.Time) (Application, Effects, error) {
	if err := a.requireOwner(actor); err != nil {
		return a, Effects{}, err
	}
	if !a.Status.Mutable() {
		return a, Effects{}, invalidTransition(a.Status, "submit")
	}
	if missing := a.MissingDocuments(); len(missing) > 0 {
		return a, Effects{}, &MissingDocumentsError{Missing: missing}
	}
	a.setStatus(StatusSubmitted, at)
	return a, Effects{
		Timeline: entry(ActionSubmitted, actor.ID, "Application submitted for review", at),
		Mirror:   user.KYCSubmitted,
		Event:    EventSubmitted,
	}, nil
}

func (a Application) Cancel(actor user.Actor, at time.Time) (Application, Effects, error) {
	if err := a.requireOwner(actor); err != nil {
		return a, Effects{}, err
	}
	if a.Status != StatusDraft {
		return a, Effects{}, invalidTransition(a.Status, "cancel")
	}
	a.deactivate()
	return a, Effects{
		Timeline: entry(ActionCancelled, actor.ID, "Application cancelled", at),
		Mirror:   user.KYCNotStarted,
	}, nil
}

// Supersede retires a rejected application so its owner can start over.
func (a Application) Supersede(actor user.Actor, at time.Time) (Application, Effects, error) {
	if err := a.requireOwner(actor); err != nil {
		return a, Effects{}, err
	}
	if a.Status != StatusRejected || !a.Active {
		return a, Effects{}, invalidTransition(a.Status, "supersede")
	}
	a.deactivate()
	return a, Effects{Timeline: entry(ActionSuperseded, actor.ID, "Superseded by a new application", at)}, nil
}

func (a Application) BeginReview(reviewer user.Actor, at time.Time) (Application, Effects, error) {
	if !reviewer.Role.CanReview() {
		return a, Effects{}, ErrForbidden
	}
	if a.Status != StatusSubmitted {
		return a, Effects{}, invalidTransition(a.Status, "begin review")
	}
	a.setStatus(StatusUnderReview, at)
	reviewedAt := at
	a.Review.ReviewedBy = reviewer.ID
	a.Review.ReviewedAt = &reviewedAt
	return a, Effects{
		Timeline: entry(ActionUnderReview, reviewer.ID, "Review started", at),
		Mirror:   user.KYCSubmitted,
	}, nil
}

func (a Application) Decide(reviewer user.Actor, in ReviewInput, at time.Time) (Application, Effects, error) {
	if !reviewer.Role.CanReview() {
		return a, Effects{}, ErrForbidden
	}
	if _, err := ParseDecision(string(in.Decision)); err != nil {
		return a, Effects{}, err
	}
	if !a.Active || !a.Status.Reviewable() {
		return a, Effects{}, invalidTransition(a.Status, "review ("+string(in.Decision)+")")
	}
	reason := strings.TrimSpace(in.RejectionReason)
	if in.Decision == DecisionReject && reason == "" {
		return a, Effects{}, ErrMissingRejectionReason
	}

	reviewedAt := at
	a.Review.ReviewedBy = reviewer.ID
	a.Review.ReviewedAt = &reviewedAt
	a.Review.Notes = in.Notes

	var fx Effects
	switch in.Decision {
	case DecisionApprove:
		a.setStatus(StatusApproved, at)
		approvedAt := at
		a.Review.ApprovedAt = &approvedAt
		a.Review.CertificateRef = in.CertificateRef
		fx = Effects{Timeline: entry(ActionApproved, reviewer.ID, in.Notes, at), Mirror: user.KYCApproved, Event: EventApproved}
	case DecisionReject:
		a.setStatus(StatusRejected, at)
		a.Review.RejectionReason = reason
		fx = Effects{Timeline: entry(ActionRejected, reviewer.ID, notesOr(in.Notes, reason), at), Mirror: user.KYCRejected, Event: EventRejected}
	case DecisionRequestDocuments:
		a.setStatus(StatusPendingDocuments, at)
		fx = Effects{Timeline: entry(ActionDocumentRequested, reviewer.ID, in.Notes, at), Mirror: user.KYCPending, Event: EventDocumentsRequested}
	}
	return a, fx, nil
}

func (a Application) VerifyDocument(reviewer user.Actor, s Slot, verified bool, notes string, at time.Time) (Application, Effects, error) {
	if !reviewer.Role.CanReview() {
		return a, Effects{}, ErrForbidden
	}
	cur, err := a.slot(s)
	if err != nil {
		return a, Effects{}, err
	}
	if !s.Verifiable() {
		return a, Effects{}, ErrInvalidSlot
	}
	if !a.Active || !a.Status.Reviewable() {
		return a, Effects{}, invalidTransition(a.Status, "verify "+string(s))
	}
	if !cur.Present() {
		return a, Effects{}, ErrSlotEmpty
	}
	cur.Verified = verified
	cur.VerificationNotes = notes
	msg := string(s) + " document verified"
	if !verified {
		msg = string(s) + " document marked unverified"
	}
	return a, Effects{Timeline: entry(ActionDocumentVerified, reviewer.ID, notesOr(notes, msg), at)}, nil
}

func (a *Application) requireOwner(actor user.Actor) error {
	if actor.ID == "" || actor.ID != a.OwnerID {
		return ErrForbidden
	}
	if !a.Active {
		return ErrNotFound
	}
	return nil
}

func (a *Application) setStatus(s Status, at time.Time) {
	a.Status = s
	a.StatusUpdatedAt = at
}

func (a *Application) deactivate() {
	a.Active = false
	a.ActiveOwner = nil
}

func (a *Application) applyFields(f Fields) {
	a.PersonalInfo = a.PersonalInfo.merge(f.PersonalInfo)
	a.CurrentAddress = a.CurrentAddress.merge(f.CurrentAddress)
	a.PermanentAddress = a.PermanentAddress.merge(f.PermanentAddress)
	a.Employment = a.Employment.merge(f.Employment)
}

func (p PersonalInfo) merge(in PersonalInfo) PersonalInfo {
	p.FullName = pick(p.FullName, in.FullName)
	if in.DateOfBirth != nil {
		dob := *in.DateOfBirth
		p.DateOfBirth = &dob
	}
	p.Gender = pick(p.Gender, in.Gender)
	p.Nationality = pick(p.Nationality, in.Nationality)
	p.Phone = pick(p.Phone, in.Phone)
	p.Email = pick(p.Email, in.Email)
	return p
}

func (ad Address) merge(in Address) Address {
	ad.Street = pick(ad.Street, in.Street)
	ad.City = pick(ad.City, in.City)
	ad.State = pick(ad.State, in.State)
	ad.Country = pick(ad.Country, in.Country)
	ad.ZipCode = pick(ad.ZipCode, in.ZipCode)
	ad.Type = pick(ad.Type, in.Type)
	return ad
}

func (e Employment) merge(in Employment) Employment {
	e.Occupation = pick(e.Occupation, in.Occupation)
	e.Employer = pick(e.Employer, in.Employer)
	e.WorkAddress = pick(e.WorkAddress, in.WorkAddress)
	e.AnnualIncome = pick(e.AnnualIncome, in.AnnualIncome)
	return e
}

func pick(cur, in string) string {
	if v := strings.TrimSpace(in); v != "" {
		return v
	}
	return cur
}

func notesOr(notes, fallback string) string {
	if strings.TrimSpace(notes) != "" {
		return notes
	}
	return fallback
}

func entry(action Action, by, notes string, at time.Time) TimelineEntry {
	return TimelineEntry{Action: action, PerformedBy: by, Notes: notes, Timestamp: at}
}
