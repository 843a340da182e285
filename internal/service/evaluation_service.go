package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/IntranetCode/ProyectoMatrix-V2-sub000/internal/model"
	"github.com/IntranetCode/ProyectoMatrix-V2-sub000/internal/repository"
	"github.com/IntranetCode/ProyectoMatrix-V2-sub000/internal/util"
	"github.com/IntranetCode/ProyectoMatrix-V2-sub000/pkg/logger"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

type EvaluationService struct {
	DB         *gorm.DB
	ModuleRepo *repository.ModuleRepository
	EvalRepo   *repository.EvaluationRepository
	Policy     AccessPolicy
}

func NewEvaluationService(db *gorm.DB, moduleRepo *repository.ModuleRepository, evalRepo *repository.EvaluationRepository, policy AccessPolicy) *EvaluationService {
	return &EvaluationService{
		DB:         db,
		ModuleRepo: moduleRepo,
		EvalRepo:   evalRepo,
		Policy:     policy,
	}
}

type OptionRequest struct {
	Text      string `json:"text"`
	IsCorrect bool   `json:"isCorrect"`
	Order     int    `json:"order"`
}

type QuestionRequest struct {
	Text     string             `json:"text"`
	Type     model.QuestionType `json:"type"`
	Order    int                `json:"order"`
	MaxScore float64            `json:"maxScore"`
	Options  []OptionRequest    `json:"options"`
}

func (q QuestionRequest) validate(idx int) error {
	prefix := fmt.Sprintf("questions[%d]", idx)
	if strings.TrimSpace(q.Text) == "" {
		return util.Validation(prefix + ": text is required")
	}
	if !q.Type.Valid() {
		return util.Validation(fmt.Sprintf("%s: unknown type %q", prefix, q.Type))
	}
	if q.MaxScore <= 0 {
		return util.Validation(prefix + ": maxScore must be greater than 0")
	}

	switch q.Type {
	case model.SingleChoice:
		if len(q.Options) < 2 {
			return util.Validation(prefix + ": single choice needs at least 2 options")
		}
		correct := 0
		for j, o := range q.Options {
			if strings.TrimSpace(o.Text) == "" {
				return util.Validation(fmt.Sprintf("%s.options[%d]: text is required", prefix, j))
			}
			if o.IsCorrect {
				correct++
			}
		}
		if correct != 1 {
			return util.Validation(fmt.Sprintf("%s: single choice needs exactly one correct option, got %d", prefix, correct))
		}
	case model.OpenText:
		if len(q.Options) > 0 {
			return util.Validation(prefix + ": open text question cannot have options")
		}
	}
	return nil
}

// GetDefinition 学员侧读取，不包含正确答案
func (s *EvaluationService) GetDefinition(ctx context.Context, learnerID, orgID, moduleID uint) (*model.DefinitionView, error) {
	if _, err := loadModuleForLearner(ctx, s.ModuleRepo, s.Policy, learnerID, orgID, moduleID); err != nil {
		return nil, err
	}
	questions, err := s.EvalRepo.FindQuestions(ctx, moduleID)
	if err != nil {
		return nil, err
	}
	if len(questions) == 0 {
		return nil, util.ErrDefinitionNotFound
	}
	view := model.NewDefinitionView(moduleID, questions, false)
	return &view, nil
}

// GetAuthoringDefinition 编辑侧读取，包含正确答案与分值；没有题目时返回空列表
func (s *EvaluationService) GetAuthoringDefinition(ctx context.Context, orgID, moduleID uint) (*model.DefinitionView, error) {
	if err := s.ensureOwned(ctx, orgID, moduleID); err != nil {
		return nil, err
	}
	questions, err := s.EvalRepo.FindQuestions(ctx, moduleID)
	if err != nil {
		return nil, err
	}
	view := model.NewDefinitionView(moduleID, questions, true)
	return &view, nil
}

// ReplaceDefinition 在一个事务内删除模块全部题目与选项并写入新的一组
func (s *EvaluationService) ReplaceDefinition(ctx context.Context, orgID, moduleID uint, req []QuestionRequest) (*model.DefinitionView, error) {
	for i, q := range req {
		if err := q.validate(i); err != nil {
			return nil, err
		}
	}
	if err := s.ensureOwned(ctx, orgID, moduleID); err != nil {
		return nil, err
	}

	questions := make([]model.Question, 0, len(req))
	for _, q := range req {
		question := model.Question{
			ModuleID: moduleID,
			Text:     strings.TrimSpace(q.Text),
			Type:     q.Type,
			Order:    q.Order,
			MaxScore: q.MaxScore,
		}
		for _, o := range q.Options {
			question.Options = append(question.Options, model.Option{
				Text:      strings.TrimSpace(o.Text),
				IsCorrect: o.IsCorrect,
				Order:     o.Order,
			})
		}
		questions = append(questions, question)
	}

	var saved []model.Question
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		repo := s.EvalRepo.WithTx(tx)
		if err := repo.DeleteByModule(ctx, moduleID); err != nil {
			return err
		}
		if err := repo.CreateQuestions(ctx, questions); err != nil {
			return err
		}
		var err error
		saved, err = repo.FindQuestions(ctx, moduleID)
		return err
	})
	if err != nil {
		return nil, util.Persistence(err)
	}

	logger.Log.Info("Evaluation definition replaced",
		zap.Uint("module_id", moduleID),
		zap.Uint("org_id", orgID),
		zap.Int("questions", len(saved)),
	)
	view := model.NewDefinitionView(moduleID, saved, true)
	return &view, nil
}

func (s *EvaluationService) ensureOwned(ctx context.Context, orgID, moduleID uint) error {
	module, err := s.ModuleRepo.FindByID(ctx, moduleID)
	if err != nil {
		return err
	}
	if !module.BelongsTo(orgID) {
		return util.ErrModuleNotFound
	}
	return nil
}
