package mysql

import (
	"context"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Table: application_sequences
type applicationSequence struct {
	Year  int   `gorm:"column:year;primaryKey;autoIncrement:false"`
	Value int64 `gorm:"column:value;not null"`
}

func (applicationSequence) TableName() string { return "application_sequences" }

// SequenceRepository increments the per-year counter with a single upsert. Run it
// inside the creation tx: the row lock taken by the upsert is held until commit,
// so the value read back is the one this tx wrote.
type SequenceRepository struct{ db *gorm.DB }

func NewSequenceRepository(db *gorm.DB) *SequenceRepository { return &SequenceRepository{db: db} }

func (r *SequenceRepository) NextSequence(ctx context.Context, year int) (int64, error) {
	db := r.db.WithContext(ctx)
	err := db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "year"}},
		DoUpdates: clause.Assignments(map[string]any{"value": gorm.Expr("value + 1")}),
	}).Create(&applicationSequence{Year: year, Value: 1}).Error
	if err != nil {
		return 0, err
	}
	var seq applicationSequence
	if err := db.Where("year = ?", year).First(&seq).Error; err != nil {
		return 0, err
	}
	return seq.Value, nil
}
