package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/IntranetCode/ProyectoMatrix-V2-sub000/internal/model"
	"github.com/IntranetCode/ProyectoMatrix-V2-sub000/internal/repository"
	"github.com/IntranetCode/ProyectoMatrix-V2-sub000/internal/util"
	"github.com/IntranetCode/ProyectoMatrix-V2-sub000/pkg/logger"
	"github.com/IntranetCode/ProyectoMatrix-V2-sub000/pkg/monitoring"
	"github.com/IntranetCode/ProyectoMatrix-V2-sub000/pkg/tracing"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type AttemptService struct {
	DB          *gorm.DB
	ModuleRepo  *repository.ModuleRepository
	EvalRepo    *repository.EvaluationRepository
	AttemptRepo *repository.AttemptRepository
	Completion  *CompletionService
	Policy      AccessPolicy

	mu          sync.RWMutex
	maxRetries  int
	defaultPass float64
	now         func() time.Time
}

func NewAttemptService(
	db *gorm.DB,
	moduleRepo *repository.ModuleRepository,
	evalRepo *repository.EvaluationRepository,
	attemptRepo *repository.AttemptRepository,
	completion *CompletionService,
	policy AccessPolicy,
	maxRetries int,
) *AttemptService {
	if maxRetries < 1 {
		maxRetries = util.DefaultMaxNumberRetries
	}
	return &AttemptService{
		DB:          db,
		ModuleRepo:  moduleRepo,
		EvalRepo:    evalRepo,
		AttemptRepo: attemptRepo,
		Completion:  completion,
		Policy:      policy,
		maxRetries:  maxRetries,
		now:         func() time.Time { return time.Now().UTC() },
	}
}

// AnswerRequest optionId 与 text 二选一
type AnswerRequest struct {
	QuestionID uint    `json:"questionId"`
	OptionID   *uint   `json:"optionId,omitempty"`
	Text       *string `json:"text,omitempty"`
}

type SubmitRequest struct {
	Answers          []AnswerRequest `json:"answers"`
	TimeSpentSeconds int             `json:"timeSpentSeconds"`
}

// decodeAnswers 把请求转换为作答变体，只做与题目定义无关的格式校验
func decodeAnswers(req []AnswerRequest) (map[uint]model.AnswerValue, error) {
	answers := make(map[uint]model.AnswerValue, len(req))
	for i, a := range req {
		if a.QuestionID == 0 {
			return nil, util.Validation(fmt.Sprintf("answers[%d]: questionId is required", i))
		}
		if _, dup := answers[a.QuestionID]; dup {
			return nil, util.Validation(fmt.Sprintf("answers[%d]: duplicate answer for question %d", i, a.QuestionID))
		}
		switch {
		case a.OptionID != nil && a.Text != nil:
			return nil, util.Validation(fmt.Sprintf("answers[%d]: optionId and text are mutually exclusive", i))
		case a.OptionID != nil:
			answers[a.QuestionID] = model.SingleChoiceAnswer{OptionID: *a.OptionID}
		case a.Text != nil:
			answers[a.QuestionID] = model.OpenTextAnswer{Text: *a.Text}
		default:
			return nil, util.Validation(fmt.Sprintf("answers[%d]: either optionId or text is required", i))
		}
	}
	return answers, nil
}

// checkAnswers 作答必须指向当前定义中的题目，且形态与题型一致
func checkAnswers(questions []model.Question, answers map[uint]model.AnswerValue) error {
	byID := make(map[uint]*model.Question, len(questions))
	for i := range questions {
		byID[questions[i].ID] = &questions[i]
	}
	for qid, value := range answers {
		q, ok := byID[qid]
		if !ok {
			return util.Validation(fmt.Sprintf("unknown question %d", qid))
		}
		if value.Kind() != q.Type {
			return util.Validation(fmt.Sprintf("question %d expects a %s answer", qid, q.Type))
		}
		if sc, ok := value.(model.SingleChoiceAnswer); ok && !q.HasOption(sc.OptionID) {
			return util.Validation(fmt.Sprintf("option %d does not belong to question %d", sc.OptionID, qid))
		}
	}
	return nil
}

func (s *AttemptService) SetMaxRetries(n int) {
	if n < 1 {
		return
	}
	s.mu.Lock()
	s.maxRetries = n
	s.mu.Unlock()
}

// SetDefaultPassPercent 模块未配置及格线时使用
func (s *AttemptService) SetDefaultPassPercent(p float64) {
	if p <= 0 || p > 100 {
		return
	}
	s.mu.Lock()
	s.defaultPass = p
	s.mu.Unlock()
}

func (s *AttemptService) DefaultPassPercent() float64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.defaultPass
}

func (s *AttemptService) MaxRetries() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.maxRetries
}

// Submit 评分并记录一次测评尝试。编号分配、作答写入以及通过后的完成标记在同一事务内，
// 任何一步失败整体回滚；编号冲突会在内部重试，重试耗尽返回 Conflict。
func (s *AttemptService) Submit(ctx context.Context, learnerID, orgID, moduleID uint, req SubmitRequest) (*model.Attempt, error) {
	ctx, span := tracing.Tracer.Start(ctx, "AttemptService.Submit")
	defer span.End()
	span.SetAttributes(
		attribute.Int64("learner.id", int64(learnerID)),
		attribute.Int64("module.id", int64(moduleID)),
		attribute.Int64("org.id", int64(orgID)),
	)

	if req.TimeSpentSeconds < 0 {
		return nil, util.Validation("timeSpentSeconds must not be negative")
	}
	answers, err := decodeAnswers(req.Answers)
	if err != nil {
		return nil, err
	}

	module, err := loadModuleForLearner(ctx, s.ModuleRepo, s.Policy, learnerID, orgID, moduleID)
	if err != nil {
		return nil, err
	}
	key := model.LearnerKey{LearnerID: learnerID, ModuleID: module.ID, OrganizationID: orgID}

	retries := s.MaxRetries()
	for i := 0; i < retries; i++ {
		attempt, evt, err := s.submitOnce(ctx, module, key, answers, req.TimeSpentSeconds)
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			monitoring.AttemptNumberConflicts.Inc()
			logger.Log.Warn("Attempt number collision, retrying",
				zap.Uint("learner_id", learnerID),
				zap.Uint("module_id", moduleID),
				zap.Int("try", i+1),
			)
			continue
		}
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			return nil, err
		}

		monitoring.EvaluationAttempts.WithLabelValues(strconv.FormatBool(attempt.Passed)).Inc()
		logger.Log.Info("Evaluation attempt recorded",
			zap.Uint("learner_id", learnerID),
			zap.Uint("module_id", moduleID),
			zap.Uint("org_id", orgID),
			zap.Int("attempt_number", attempt.AttemptNumber),
			zap.Float64("percent", attempt.Percent),
			zap.Bool("passed", attempt.Passed),
		)
		span.SetAttributes(attribute.Int("attempt.number", attempt.AttemptNumber))
		s.Completion.Publish(ctx, evt)
		return attempt, nil
	}

	span.SetStatus(codes.Error, "attempt number retries exhausted")
	return nil, util.ErrAttemptNumberRace
}

func (s *AttemptService) submitOnce(ctx context.Context, module *model.Module, key model.LearnerKey, answers map[uint]model.AnswerValue, timeSpent int) (*model.Attempt, *model.ModuleCompleted, error) {
	var (
		attempt *model.Attempt
		evt     *model.ModuleCompleted
	)
	now := s.now()

	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		attempts := s.AttemptRepo.WithTx(tx)

		number, err := attempts.NextNumber(ctx, key)
		if err != nil {
			return err
		}

		questions, err := s.EvalRepo.WithTx(tx).FindQuestions(ctx, module.ID)
		if err != nil {
			return err
		}
		if len(questions) == 0 {
			return util.ErrDefinitionNotFound
		}
		if err := checkAnswers(questions, answers); err != nil {
			return err
		}

		result := Score(questions, answers, module.PassPercent(s.DefaultPassPercent()))

		snapshot, err := json.Marshal(model.NewDefinitionView(module.ID, questions, true))
		if err != nil {
			return err
		}

		attempt = &model.Attempt{
			LearnerID:          key.LearnerID,
			ModuleID:           key.ModuleID,
			OrganizationID:     key.OrganizationID,
			AttemptNumber:      number,
			StartedAt:          now.Add(-time.Duration(timeSpent) * time.Second),
			EndedAt:            now,
			ScoreObtained:      result.ScoreObtained,
			ScoreMax:           result.ScoreMax,
			Percent:            result.Percent,
			Passed:             result.Passed,
			PendingReview:      result.PendingReview,
			TimeSpentSeconds:   timeSpent,
			DefinitionSnapshot: datatypes.JSON(snapshot),
			Answers:            answerRows(result),
		}
		if err := attempts.Create(ctx, attempt); err != nil {
			return err
		}

		if attempt.Passed {
			evt, err = s.Completion.CompleteByEvaluation(ctx, tx, key, now)
			if err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, nil, err
		}
		return nil, nil, util.Persistence(err)
	}
	return attempt, evt, nil
}

// answerRows 只保存学员实际提交的作答
func answerRows(result ScoreResult) []model.AttemptAnswer {
	rows := make([]model.AttemptAnswer, 0, len(result.Questions))
	for _, qs := range result.Questions {
		if qs.Answer == nil {
			continue
		}
		row := model.AttemptAnswer{
			QuestionID:    qs.Question.ID,
			Kind:          qs.Answer.Kind(),
			ScoreAwarded:  qs.Awarded,
			MaxScore:      qs.Question.MaxScore,
			PendingReview: qs.PendingReview,
		}
		switch a := qs.Answer.(type) {
		case model.SingleChoiceAnswer:
			id := a.OptionID
			row.OptionID = &id
		case model.OpenTextAnswer:
			text := a.Text
			row.Text = &text
		}
		rows = append(rows, row)
	}
	return rows
}

func (s *AttemptService) ListAttempts(ctx context.Context, learnerID, orgID, moduleID uint) ([]model.Attempt, error) {
	module, err := s.ModuleRepo.FindByID(ctx, moduleID)
	if err != nil {
		return nil, err
	}
	if !module.BelongsTo(orgID) {
		return nil, util.ErrModuleNotFound
	}
	return s.AttemptRepo.ListByKey(ctx, model.LearnerKey{LearnerID: learnerID, ModuleID: moduleID, OrganizationID: orgID})
}

func (s *AttemptService) GetAttempt(ctx context.Context, learnerID, orgID, moduleID uint, number int) (*model.Attempt, error) {
	if number < 1 {
		return nil, util.Validation("attempt number must be positive")
	}
	module, err := s.ModuleRepo.FindByID(ctx, moduleID)
	if err != nil {
		return nil, err
	}
	if !module.BelongsTo(orgID) {
		return nil, util.ErrModuleNotFound
	}
	return s.AttemptRepo.FindByNumber(ctx, model.LearnerKey{LearnerID: learnerID, ModuleID: moduleID, OrganizationID: orgID}, number)
}
