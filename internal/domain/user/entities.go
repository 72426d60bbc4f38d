package user

import (
	"errors"
	"time"
)

var ErrNotFound = errors.New("user not found")

type Role string

const (
	RoleUser      Role = "user"
	RoleAdmin     Role = "admin"
	RoleModerator Role = "moderator"
)

// CanReview reports whether the role carries review authority.
func (r Role) CanReview() bool { return r == RoleAdmin || r == RoleModerator }

func (r Role) Valid() bool {
	switch r {
	case RoleUser, RoleAdmin, RoleModerator:
		return true
	}
	return false
}

// KYCStatus is the denormalized projection of the owner's application status.
type KYCStatus string

const (
	KYCNotStarted KYCStatus = "not_started"
	KYCPending    KYCStatus = "pending"
	KYCSubmitted  KYCStatus = "submitted"
	KYCApproved   KYCStatus = "approved"
	KYCRejected   KYCStatus = "rejected"
)

// Actor is the authenticated caller of a use case.
type Actor struct {
	ID   string
	Role Role
}

// Table: users
type User struct {
	ID        uint64    `gorm:"primaryKey;column:id" json:"-"`
	UserID    string    `gorm:"column:user_id;size:32;uniqueIndex:ux_users_user_id" json:"user_id"`
	KYCStatus KYCStatus `gorm:"column:kyc_status;size:16;index;default:'not_started'" json:"kyc_status"`
	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"column:updated_at;autoUpdateTime" json:"updated_at"`
}

func (User) TableName() string { return "users" }
