package repository

import (
	"context"
	"errors"

	"github.com/IntranetCode/ProyectoMatrix-V2-sub000/internal/model"
	"github.com/IntranetCode/ProyectoMatrix-V2-sub000/internal/util"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type ModuleRepository struct {
	DB *gorm.DB
}

func NewModuleRepository(db *gorm.DB) *ModuleRepository {
	return &ModuleRepository{DB: db}
}

func (r *ModuleRepository) WithTx(tx *gorm.DB) *ModuleRepository {
	return &ModuleRepository{DB: tx}
}

func (r *ModuleRepository) FindByID(ctx context.Context, id uint) (*model.Module, error) {
	var m model.Module
	if err := r.DB.WithContext(ctx).First(&m, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, util.ErrModuleNotFound
		}
		return nil, util.Persistence(err)
	}
	return &m, nil
}

func (r *ModuleRepository) Create(ctx context.Context, m *model.Module) error {
	return util.Persistence(r.DB.WithContext(ctx).Create(m).Error)
}

// Upsert 按 ID 写入模块，已存在时覆盖全部可编辑字段
func (r *ModuleRepository) Upsert(ctx context.Context, m *model.Module) error {
	err := r.DB.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "id"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"title", "organization_id", "duration_seconds", "requires_evaluation",
			"min_pass_percent", "is_required", "is_active", "updated_at",
		}),
	}).Create(m).Error
	return util.Persistence(err)
}
