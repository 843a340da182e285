package service

import (
	"context"

	"github.com/IntranetCode/ProyectoMatrix-V2-sub000/internal/model"
	"github.com/IntranetCode/ProyectoMatrix-V2-sub000/internal/repository"
	"github.com/IntranetCode/ProyectoMatrix-V2-sub000/internal/util"
)

// AccessPolicy 由身份服务实现，回答学员能否学习某个模块
type AccessPolicy interface {
	CanTakeModule(ctx context.Context, learnerID, orgID uint, module *model.Module) (bool, error)
}

// OrganizationPolicy 默认策略：模块启用且对学员所在组织可见即可
type OrganizationPolicy struct{}

func (OrganizationPolicy) CanTakeModule(_ context.Context, _ uint, orgID uint, module *model.Module) (bool, error) {
	return module.VisibleTo(orgID), nil
}

// loadModuleForLearner 不可见的模块按不存在处理，策略拒绝返回 Forbidden
func loadModuleForLearner(ctx context.Context, repo *repository.ModuleRepository, policy AccessPolicy, learnerID, orgID, moduleID uint) (*model.Module, error) {
	module, err := repo.FindByID(ctx, moduleID)
	if err != nil {
		return nil, err
	}
	if !module.VisibleTo(orgID) {
		return nil, util.ErrModuleNotFound
	}
	ok, err := policy.CanTakeModule(ctx, learnerID, orgID, module)
	if err != nil {
		return nil, util.Persistence(err)
	}
	if !ok {
		return nil, util.ErrModuleNotAllowed
	}
	return module, nil
}
