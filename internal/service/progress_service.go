package service

import (
	"context"
	"math"
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
	"gorm.io/gorm"
)

type ProgressService struct {
	DB           *gorm.DB
	ModuleRepo   *repository.ModuleRepository
	ProgressRepo *repository.ProgressRepository
	Completion   *CompletionService
	Policy       AccessPolicy

	mu        sync.RWMutex
	threshold float64
	now       func() time.Time
}

func NewProgressService(
	db *gorm.DB,
	moduleRepo *repository.ModuleRepository,
	progressRepo *repository.ProgressRepository,
	completion *CompletionService,
	policy AccessPolicy,
	completionThreshold float64,
) *ProgressService {
	if completionThreshold <= 0 {
		completionThreshold = util.DefaultCompletionThreshold
	}
	return &ProgressService{
		DB:           db,
		ModuleRepo:   moduleRepo,
		ProgressRepo: progressRepo,
		Completion:   completion,
		Policy:       policy,
		threshold:    completionThreshold,
		now:          func() time.Time { return time.Now().UTC() },
	}
}

// ProgressUpdate 客户端定期上报的观看快照
type ProgressUpdate struct {
	ModuleID       uint    `json:"moduleId" binding:"required"`
	WatchedSeconds int     `json:"watchedSeconds"`
	PercentWatched float64 `json:"percentWatched"`
}

func (u ProgressUpdate) validate() error {
	if u.ModuleID == 0 {
		return util.Validation("moduleId is required")
	}
	if u.WatchedSeconds < 0 {
		return util.Validation("watchedSeconds must not be negative")
	}
	if math.IsNaN(u.PercentWatched) || u.PercentWatched < 0 || u.PercentWatched > 100 {
		return util.Validation("percentWatched must be between 0 and 100")
	}
	return nil
}

// SetCompletionThreshold 配置热更新时调用
func (s *ProgressService) SetCompletionThreshold(v float64) {
	if v <= 0 || v > 100 {
		return
	}
	s.mu.Lock()
	s.threshold = v
	s.mu.Unlock()
}

func (s *ProgressService) CompletionThreshold() float64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.threshold
}

// watchedPercent 以模块时长为准；时长未配置时退回客户端上报值。
// 保存原值不做舍入，完成阈值按原值比较
func watchedPercent(module *model.Module, watched int, reported float64) float64 {
	if module.DurationSeconds <= 0 {
		return reported
	}
	return math.Min(100, float64(watched)*100/float64(module.DurationSeconds))
}

// RecordProgress 合并一次观看上报。watchedSeconds 与百分比取历史最大值，
// 达到完成阈值且模块不要求测评时标记完成，仅在首次完成时发出事件。
func (s *ProgressService) RecordProgress(ctx context.Context, learnerID, orgID uint, in ProgressUpdate) (*model.ProgressRecord, error) {
	ctx, span := tracing.Tracer.Start(ctx, "ProgressService.RecordProgress")
	defer span.End()
	span.SetAttributes(
		attribute.Int64("learner.id", int64(learnerID)),
		attribute.Int64("module.id", int64(in.ModuleID)),
		attribute.Int64("org.id", int64(orgID)),
	)

	if err := in.validate(); err != nil {
		monitoring.ProgressFlushes.WithLabelValues("rejected").Inc()
		return nil, err
	}

	module, err := loadModuleForLearner(ctx, s.ModuleRepo, s.Policy, learnerID, orgID, in.ModuleID)
	if err != nil {
		monitoring.ProgressFlushes.WithLabelValues("rejected").Inc()
		return nil, err
	}

	key := model.LearnerKey{LearnerID: learnerID, ModuleID: module.ID, OrganizationID: orgID}
	threshold := s.CompletionThreshold()
	now := s.now()

	var (
		rec *model.ProgressRecord
		evt *model.ModuleCompleted
	)
	err = s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		repo := s.ProgressRepo.WithTx(tx)
		var err error
		rec, err = repo.LockOrCreate(ctx, key, now)
		if err != nil {
			return err
		}

		if in.WatchedSeconds > rec.WatchedSeconds {
			rec.WatchedSeconds = in.WatchedSeconds
		}
		if p := watchedPercent(module, rec.WatchedSeconds, in.PercentWatched); p > rec.PercentWatched {
			rec.PercentWatched = p
		}
		rec.LastActivityAt = now

		if rec.PercentWatched >= threshold && !module.RequiresEvaluation {
			evt = markCompleted(rec, model.CompletionByWatch, now)
		}
		return repo.Save(ctx, rec)
	})
	if err != nil {
		monitoring.ProgressFlushes.WithLabelValues("failed").Inc()
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, util.Persistence(err)
	}
	monitoring.ProgressFlushes.WithLabelValues("accepted").Inc()

	if evt != nil {
		logger.Log.Info("Module completed by watch time",
			zap.Uint("learner_id", learnerID),
			zap.Uint("module_id", module.ID),
			zap.Uint("org_id", orgID),
			zap.Float64("percent_watched", rec.PercentWatched),
		)
		s.Completion.Publish(ctx, evt)
	}
	return rec, nil
}

// GetProgress 没有记录时返回零值记录
func (s *ProgressService) GetProgress(ctx context.Context, learnerID, orgID, moduleID uint) (*model.ProgressRecord, error) {
	module, err := s.ModuleRepo.FindByID(ctx, moduleID)
	if err != nil {
		return nil, err
	}
	if !module.BelongsTo(orgID) {
		return nil, util.ErrModuleNotFound
	}

	key := model.LearnerKey{LearnerID: learnerID, ModuleID: moduleID, OrganizationID: orgID}
	rec, err := s.ProgressRepo.Find(ctx, key)
	if err != nil {
		return nil, err
	}
	if rec == nil {
		rec = &model.ProgressRecord{LearnerID: learnerID, ModuleID: moduleID, OrganizationID: orgID}
	}
	return rec, nil
}

func (s *ProgressService) ListProgress(ctx context.Context, learnerID, orgID uint) ([]model.ProgressRecord, error) {
	return s.ProgressRepo.ListByLearner(ctx, learnerID, orgID)
}
