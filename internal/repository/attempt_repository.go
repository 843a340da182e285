package repository

import (
	"context"
	"errors"

	"github.com/IntranetCode/ProyectoMatrix-V2-sub000/internal/model"
	"github.com/IntranetCode/ProyectoMatrix-V2-sub000/internal/util"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type AttemptRepository struct {
	DB *gorm.DB
}

func NewAttemptRepository(db *gorm.DB) *AttemptRepository {
	return &AttemptRepository{DB: db}
}

func (r *AttemptRepository) WithTx(tx *gorm.DB) *AttemptRepository {
	return &AttemptRepository{DB: tx}
}

// NextNumber 在计数器行上加锁并自增，返回本次尝试的编号。
// 必须在事务中调用；并发提交会在行锁上排队。
func (r *AttemptRepository) NextNumber(ctx context.Context, key model.LearnerKey) (int, error) {
	db := r.DB.WithContext(ctx)

	seed := model.AttemptCounter{
		LearnerID:      key.LearnerID,
		ModuleID:       key.ModuleID,
		OrganizationID: key.OrganizationID,
	}
	if err := db.Clauses(clause.OnConflict{DoNothing: true}).Create(&seed).Error; err != nil {
		return 0, util.Persistence(err)
	}

	var counter model.AttemptCounter
	err := db.Clauses(clause.Locking{Strength: "UPDATE"}).
		Scopes(keyScope(key)).
		First(&counter).Error
	if err != nil {
		return 0, util.Persistence(err)
	}

	// 计数器落后于已有尝试时（例如历史数据导入）以实际最大编号为准
	var maxNumber int
	err = db.Model(&model.Attempt{}).
		Scopes(keyScope(key)).
		Select("COALESCE(MAX(attempt_number), 0)").
		Scan(&maxNumber).Error
	if err != nil {
		return 0, util.Persistence(err)
	}

	next := counter.LastNumber
	if maxNumber > next {
		next = maxNumber
	}
	next++

	err = db.Model(&model.AttemptCounter{}).
		Scopes(keyScope(key)).
		Update("last_number", next).Error
	if err != nil {
		return 0, util.Persistence(err)
	}
	return next, nil
}

// Create 写入尝试及全部作答。唯一索引冲突以 gorm.ErrDuplicatedKey 原样返回，由调用方决定是否重试
func (r *AttemptRepository) Create(ctx context.Context, attempt *model.Attempt) error {
	err := r.DB.WithContext(ctx).Create(attempt).Error
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return err
	}
	return util.Persistence(err)
}

func (r *AttemptRepository) ListByKey(ctx context.Context, key model.LearnerKey) ([]model.Attempt, error) {
	attempts := make([]model.Attempt, 0)
	err := r.DB.WithContext(ctx).
		Scopes(keyScope(key)).
		Order("attempt_number DESC").
		Find(&attempts).Error
	if err != nil {
		return nil, util.Persistence(err)
	}
	return attempts, nil
}

func (r *AttemptRepository) FindByNumber(ctx context.Context, key model.LearnerKey, number int) (*model.Attempt, error) {
	var a model.Attempt
	err := r.DB.WithContext(ctx).
		Preload("Answers", func(db *gorm.DB) *gorm.DB {
			return db.Order("question_id ASC")
		}).
		Scopes(keyScope(key)).
		Where("attempt_number = ?", number).
		First(&a).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, util.ErrAttemptNotFound
		}
		return nil, util.Persistence(err)
	}
	return &a, nil
}
