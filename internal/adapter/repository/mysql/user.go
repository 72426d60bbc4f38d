package mysql

import (
	"context"

	userDomain "kyc-backend/internal/domain/user"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type UserRepository struct{ db *gorm.DB }

func NewUserRepository(db *gorm.DB) *UserRepository { return &UserRepository{db: db} }

func (r *UserRepository) GetByUserID(ctx context.Context, userID string) (*userDomain.User, error) {
	var out userDomain.User
	if err := r.db.WithContext(ctx).Where("user_id = ?", userID).First(&out).Error; err != nil {
		return nil, err
	}
	return &out, nil
}

func (r *UserRepository) LockOrCreate(ctx context.Context, userID string) (*userDomain.User, error) {
	seed := userDomain.User{UserID: userID, KYCStatus: userDomain.KYCNotStarted}
	err := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{Columns: []clause.Column{{Name: "user_id"}}, DoNothing: true}).
		Create(&seed).Error
	if err != nil {
		return nil, err
	}
	var out userDomain.User
	err = r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("user_id = ?", userID).
		First(&out).Error
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (r *UserRepository) SetKYCStatus(ctx context.Context, userID string, status userDomain.KYCStatus) error {
	res := r.db.WithContext(ctx).Model(&userDomain.User{}).
		Where("user_id = ? AND kyc_status <> ?", userID, status).
		Update("kyc_status", status)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected > 0 {
		return nil
	}
	// nothing changed: either already at status or no such user
	var n int64
	if err := r.db.WithContext(ctx).Model(&userDomain.User{}).Where("user_id = ?", userID).Count(&n).Error; err != nil {
		return err
	}
	if n == 0 {
		return userDomain.ErrNotFound
	}
	return nil
}

func (r *UserRepository) CountByKYCStatus(ctx context.Context) (map[userDomain.KYCStatus]int64, error) {
	var rows []struct {
		KYCStatus userDomain.KYCStatus `gorm:"column:kyc_status"`
		Count     int64                `gorm:"column:count"`
	}
	err := r.db.WithContext(ctx).Model(&userDomain.User{}).
		Select("kyc_status, COUNT(*) AS count").
		Group("kyc_status").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	out := make(map[userDomain.KYCStatus]int64, len(rows))
	for _, row := range rows {
		out[row.KYCStatus] = row.Count
	}
	return out, nil
}
