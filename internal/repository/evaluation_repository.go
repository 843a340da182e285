package repository

import (
	"context"

	"github.com/IntranetCode/ProyectoMatrix-V2-sub000/internal/model"
	"github.com/IntranetCode/ProyectoMatrix-V2-sub000/internal/util"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// order 是保留字，交给方言去加引号
var byOrder = clause.OrderByColumn{Column: clause.Column{Name: "order"}}

type EvaluationRepository struct {
	DB *gorm.DB
}

func NewEvaluationRepository(db *gorm.DB) *EvaluationRepository {
	return &EvaluationRepository{DB: db}
}

func (r *EvaluationRepository) WithTx(tx *gorm.DB) *EvaluationRepository {
	return &EvaluationRepository{DB: tx}
}

// FindQuestions 按顺序返回模块当前的题目及选项
func (r *EvaluationRepository) FindQuestions(ctx context.Context, moduleID uint) ([]model.Question, error) {
	var questions []model.Question
	err := r.DB.WithContext(ctx).
		Preload("Options", func(db *gorm.DB) *gorm.DB {
			return db.Order(byOrder).Order("id ASC")
		}).
		Where("module_id = ?", moduleID).
		Order(byOrder).Order("id ASC").
		Find(&questions).Error
	if err != nil {
		return nil, util.Persistence(err)
	}
	return questions, nil
}

// DeleteByModule 软删除模块的全部题目和选项
func (r *EvaluationRepository) DeleteByModule(ctx context.Context, moduleID uint) error {
	db := r.DB.WithContext(ctx)
	sub := db.Model(&model.Question{}).Select("id").Where("module_id = ?", moduleID)
	if err := db.Where("question_id IN (?)", sub).Delete(&model.Option{}).Error; err != nil {
		return util.Persistence(err)
	}
	if err := db.Where("module_id = ?", moduleID).Delete(&model.Question{}).Error; err != nil {
		return util.Persistence(err)
	}
	return nil
}

// CreateQuestions 连同 Options 一起插入
func (r *EvaluationRepository) CreateQuestions(ctx context.Context, questions []model.Question) error {
	if len(questions) == 0 {
		return nil
	}
	return util.Persistence(r.DB.WithContext(ctx).Create(&questions).Error)
}
