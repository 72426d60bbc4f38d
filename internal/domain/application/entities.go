package application

import (
	"time"
)

type Status string

const (
	StatusDraft            Status = "draft"
	StatusSubmitted        Status = "submitted"
	StatusUnderReview      Status = "under_review"
	StatusApproved         Status = "approved"
	StatusRejected         Status = "rejected"
	StatusPendingDocuments Status = "pending_documents"
)

var AllStatuses = []Status{
	StatusDraft, StatusSubmitted, StatusUnderReview,
	StatusApproved, StatusRejected, StatusPendingDocuments,
}

func (s Status) Valid() bool {
	for _, v := range AllStatuses {
		if v == s {
			return true
		}
	}
	return false
}

func (s Status) Terminal() bool { return s == StatusApproved || s == StatusRejected }

// Mutable reports whether applicant-owned fields and documents may change.
func (s Status) Mutable() bool { return s == StatusDraft || s == StatusPendingDocuments }

// Reviewable reports whether a review decision may be taken.
func (s Status) Reviewable() bool {
	return s == StatusSubmitted || s == StatusUnderReview || s == StatusPendingDocuments
}

type Slot string

const (
	SlotIdentity     Slot = "identity"
	SlotTaxID        Slot = "tax_id"
	SlotAddressProof Slot = "address_proof"
	SlotProfileImage Slot = "profile_image"
)

// RequiredSlots must all be filled before submission.
var RequiredSlots = []Slot{SlotIdentity, SlotTaxID, SlotAddressProof}

func ParseSlot(s string) (Slot, error) {
	switch Slot(s) {
	case SlotIdentity, SlotTaxID, SlotAddressProof, SlotProfileImage:
		return Slot(s), nil
	}
	return "", ErrInvalidSlot
}

// Verifiable is false for cosmetic slots.
func (s Slot) Verifiable() bool { return s != SlotProfileImage }

type Action string

const (
	ActionCreated           Action = "created"
	ActionDocumentUploaded  Action = "document_uploaded"
	ActionDocumentDeleted   Action = "document_deleted"
	ActionDocumentVerified  Action = "document_verified"
	ActionUpdated           Action = "updated"
	ActionSubmitted         Action = "submitted"
	ActionUnderReview       Action = "under_review"
	ActionApproved          Action = "approved"
	ActionRejected          Action = "rejected"
	ActionDocumentRequested Action = "document_requested"
	ActionCancelled         Action = "cancelled"
	ActionSuperseded        Action = "superseded"
)

// Document is one named slot. Empty StorageRef means the slot is empty.
type Document struct {
	StorageRef        string     `gorm:"column:ref;type:text" json:"storage_ref,omitempty"`
	OriginalName      string     `gorm:"column:original_name;size:255" json:"original_name,omitempty"`
	ContentType       string     `gorm:"column:content_type;size:64" json:"content_type,omitempty"`
	Size              int64      `gorm:"column:size" json:"size,omitempty"`
	UploadedAt        *time.Time `gorm:"column:uploaded_at" json:"uploaded_at,omitempty"`
	Verified          bool       `gorm:"column:verified" json:"verified"`
	VerificationNotes string     `gorm:"column:verification_notes;type:text" json:"verification_notes,omitempty"`
}

func (d Document) Present() bool { return d.StorageRef != "" }

type PersonalInfo struct {
	FullName    string     `gorm:"column:full_name;size:100" json:"full_name,omitempty"`
	DateOfBirth *time.Time `gorm:"column:date_of_birth;type:date" json:"date_of_birth,omitempty"`
	Gender      string     `gorm:"column:gender;size:16" json:"gender,omitempty"`
	Nationality string     `gorm:"column:nationality;size:64" json:"nationality,omitempty"`
	Phone       string     `gorm:"column:phone;size:16" json:"phone,omitempty"`
	Email       string     `gorm:"column:email;size:255" json:"email,omitempty"`
}

type Address struct {
	Street  string `gorm:"column:street;size:255" json:"street,omitempty"`
	City    string `gorm:"column:city;size:100" json:"city,omitempty"`
	State   string `gorm:"column:state;size:100" json:"state,omitempty"`
	Country string `gorm:"column:country;size:100" json:"country,omitempty"`
	ZipCode string `gorm:"column:zip_code;size:16" json:"zip_code,omitempty"`
	// Type is only meaningful on the current address.
	Type string `gorm:"column:type;size:16" json:"type,omitempty"`
}

type Employment struct {
	Occupation   string `gorm:"column:occupation;size:100" json:"occupation,omitempty"`
	Employer     string `gorm:"column:employer;size:100" json:"employer,omitempty"`
	WorkAddress  string `gorm:"column:work_address;type:text" json:"work_address,omitempty"`
	AnnualIncome string `gorm:"column:annual_income;size:32" json:"annual_income,omitempty"`
}

type Review struct {
	ReviewedBy      string     `gorm:"column:reviewed_by;size:32" json:"reviewed_by,omitempty"`
	ReviewedAt      *time.Time `gorm:"column:reviewed_at" json:"reviewed_at,omitempty"`
	Notes           string     `gorm:"column:notes;type:text" json:"notes,omitempty"`
	RejectionReason string     `gorm:"column:rejection_reason;type:text" json:"rejection_reason,omitempty"`
	ApprovedAt      *time.Time `gorm:"column:approved_at" json:"approved_at,omitempty"`
	CertificateRef  string     `gorm:"column:certificate_ref;type:text" json:"certificate_ref,omitempty"`
}

// Table: application_timeline (append-only)
type TimelineEntry struct {
	ID             uint64    `gorm:"primaryKey;column:id" json:"-"`
	ApplicationRef uint64    `gorm:"column:application_ref;not null;index" json:"-"`
	Action         Action    `gorm:"column:action;size:32;not null" json:"action"`
	PerformedBy    string    `gorm:"column:performed_by;size:32" json:"performed_by,omitempty"`
	Notes          string    `gorm:"column:notes;type:text" json:"notes,omitempty"`
	Timestamp      time.Time `gorm:"column:timestamp;not null" json:"timestamp"`
}

func (TimelineEntry) TableName() string { return "application_timeline" }

// Table: applications
type Application struct {
	ID                uint64  `gorm:"primaryKey;column:id" json:"-"`
	ApplicationID     string  `gorm:"column:application_id;size:32;uniqueIndex:ux_applications_application_id" json:"application_id"`
	ApplicationNumber string  `gorm:"column:application_number;size:16;uniqueIndex:ux_applications_number" json:"application_number"`
	OwnerID           string  `gorm:"column:owner_id;size:32;index:idx_applications_owner" json:"owner_id"`
	ActiveOwner       *string `gorm:"column:active_owner;size:32;uniqueIndex:ux_applications_active_owner" json:"-"`
	Status            Status  `gorm:"column:status;size:32;index:idx_applications_status" json:"status"`
	Active            bool    `gorm:"column:active;index:idx_applications_status" json:"active"`

	Identity     Document `gorm:"embedded;embeddedPrefix:doc_identity_" json:"identity"`
	TaxID        Document `gorm:"embedded;embeddedPrefix:doc_tax_id_" json:"tax_id"`
	AddressProof Document `gorm:"embedded;embeddedPrefix:doc_address_proof_" json:"address_proof"`
	ProfileImage Document `gorm:"embedded;embeddedPrefix:doc_profile_image_" json:"profile_image"`

	PersonalInfo     PersonalInfo `gorm:"embedded;embeddedPrefix:personal_" json:"personal_info"`
	CurrentAddress   Address      `gorm:"embedded;embeddedPrefix:current_" json:"current_address"`
	PermanentAddress Address      `gorm:"embedded;embeddedPrefix:permanent_" json:"permanent_address"`
	Employment       Employment   `gorm:"embedded;embeddedPrefix:employment_" json:"employment"`
	Review           Review       `gorm:"embedded;embeddedPrefix:review_" json:"review"`

	Timeline []TimelineEntry `gorm:"foreignKey:ApplicationRef;references:ID" json:"timeline"`

	StatusUpdatedAt time.Time `gorm:"column:status_updated_at" json:"status_updated_at"`
	CreatedAt       time.Time `gorm:"column:created_at;autoCreateTime" json:"created_at"`
	UpdatedAt       time.Time `gorm:"column:updated_at;autoUpdateTime" json:"updated_at"`
}

func (Application) TableName() string { return "applications" }

// Document returns a copy of the named slot.
func (a *Application) Document(s Slot) (Document, error) {
	p, err := a.slot(s)
	if err != nil {
		return Document{}, err
	}
	return *p, nil
}

func (a *Application) slot(s Slot) (*Document, error) {
	switch s {
	case SlotIdentity:
		return &a.Identity, nil
	case SlotTaxID:
		return &a.TaxID, nil
	case SlotAddressProof:
		return &a.AddressProof, nil
	case SlotProfileImage:
		return &a.ProfileImage, nil
	}
	return nil, ErrInvalidSlot
}

// MissingDocuments lists required slots that are empty, in RequiredSlots order.
func (a *Application) MissingDocuments() []Slot {
	var out []Slot
	for _, s := range RequiredSlots {
		d, _ := a.Document(s)
		if !d.Present() {
			out = append(out, s)
		}
	}
	return out
}

// HasAllDocuments is the submission completeness predicate. Never cached.
func (a *Application) HasAllDocuments() bool { return len(a.MissingDocuments()) == 0 }
