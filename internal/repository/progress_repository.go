package repository

import (
	"context"
	"errors"
	"time"

	"github.com/IntranetCode/ProyectoMatrix-V2-sub000/internal/model"
	"github.com/IntranetCode/ProyectoMatrix-V2-sub000/internal/util"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type ProgressRepository struct {
	DB *gorm.DB
}

func NewProgressRepository(db *gorm.DB) *ProgressRepository {
	return &ProgressRepository{DB: db}
}

func (r *ProgressRepository) WithTx(tx *gorm.DB) *ProgressRepository {
	return &ProgressRepository{DB: tx}
}

func keyScope(key model.LearnerKey) func(*gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		return db.Where("learner_id = ? AND module_id = ? AND organization_id = ?",
			key.LearnerID, key.ModuleID, key.OrganizationID)
	}
}

// Find 没有记录时返回 nil, nil
func (r *ProgressRepository) Find(ctx context.Context, key model.LearnerKey) (*model.ProgressRecord, error) {
	var rec model.ProgressRecord
	err := r.DB.WithContext(ctx).Scopes(keyScope(key)).First(&rec).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, util.Persistence(err)
	}
	return &rec, nil
}

// LockOrCreate 不存在时插入空记录，然后对该行加写锁读取。
// 必须在事务中调用，锁持有到事务结束。
func (r *ProgressRepository) LockOrCreate(ctx context.Context, key model.LearnerKey, now time.Time) (*model.ProgressRecord, error) {
	db := r.DB.WithContext(ctx)

	seed := model.ProgressRecord{
		LearnerID:      key.LearnerID,
		ModuleID:       key.ModuleID,
		OrganizationID: key.OrganizationID,
		LastActivityAt: now,
	}
	err := db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "learner_id"}, {Name: "module_id"}, {Name: "organization_id"}},
		DoNothing: true,
	}).Create(&seed).Error
	if err != nil {
		return nil, util.Persistence(err)
	}

	var rec model.ProgressRecord
	err = db.Clauses(clause.Locking{Strength: "UPDATE"}).
		Scopes(keyScope(key)).
		First(&rec).Error
	if err != nil {
		return nil, util.Persistence(err)
	}
	return &rec, nil
}

func (r *ProgressRepository) Save(ctx context.Context, rec *model.ProgressRecord) error {
	return util.Persistence(r.DB.WithContext(ctx).Save(rec).Error)
}

func (r *ProgressRepository) ListByLearner(ctx context.Context, learnerID, orgID uint) ([]model.ProgressRecord, error) {
	records := make([]model.ProgressRecord, 0)
	err := r.DB.WithContext(ctx).
		Where("learner_id = ? AND organization_id = ?", learnerID, orgID).
		Order("last_activity_at DESC").
		Find(&records).Error
	if err != nil {
		return nil, util.Persistence(err)
	}
	return records, nil
}
