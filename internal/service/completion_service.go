package service

import (
	"context"
	"time"

	"github.com/IntranetCode/ProyectoMatrix-V2-sub000/internal/event"
	"github.com/IntranetCode/ProyectoMatrix-V2-sub000/internal/model"
	"github.com/IntranetCode/ProyectoMatrix-V2-sub000/internal/repository"
	"github.com/IntranetCode/ProyectoMatrix-V2-sub000/pkg/logger"
	"github.com/IntranetCode/ProyectoMatrix-V2-sub000/pkg/monitoring"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

// CompletionService 把观看达标或测评通过落到进度记录上，并在提交后发出完成事件
type CompletionService struct {
	ProgressRepo *repository.ProgressRepository
	Sink         event.Sink
}

func NewCompletionService(progressRepo *repository.ProgressRepository, sink event.Sink) *CompletionService {
	return &CompletionService{
		ProgressRepo: progressRepo,
		Sink:         sink,
	}
}

// markCompleted 只在 false -> true 时返回事件；已有的 CompletedAt 保持不变
func markCompleted(rec *model.ProgressRecord, source model.CompletionSource, now time.Time) *model.ModuleCompleted {
	if rec.Completed {
		return nil
	}
	rec.Completed = true
	if rec.CompletedAt == nil {
		at := now
		rec.CompletedAt = &at
	}
	rec.CompletionSource = source
	evt := model.NewModuleCompleted(rec.Key(), source, *rec.CompletedAt)
	return &evt
}

// CompleteByEvaluation 必须传入测评尝试所在的事务，进度记录与尝试同时提交或同时回滚
func (s *CompletionService) CompleteByEvaluation(ctx context.Context, tx *gorm.DB, key model.LearnerKey, now time.Time) (*model.ModuleCompleted, error) {
	repo := s.ProgressRepo.WithTx(tx)
	rec, err := repo.LockOrCreate(ctx, key, now)
	if err != nil {
		return nil, err
	}

	evt := markCompleted(rec, model.CompletionByEvaluation, now)
	rec.PercentWatched = 100
	rec.LastActivityAt = now

	if err := repo.Save(ctx, rec); err != nil {
		return nil, err
	}
	return evt, nil
}

// Publish 在事务提交之后调用。投递失败只记日志，完成状态已经落库
func (s *CompletionService) Publish(ctx context.Context, evt *model.ModuleCompleted) {
	if evt == nil {
		return
	}
	monitoring.ModuleCompletions.WithLabelValues(string(evt.Source)).Inc()

	if err := s.Sink.Publish(ctx, *evt); err != nil {
		logger.Log.Warn("Failed to publish module completed event",
			zap.String("event_id", evt.EventID),
			zap.Uint("learner_id", evt.LearnerID),
			zap.Uint("module_id", evt.ModuleID),
			zap.Uint("org_id", evt.OrganizationID),
			zap.Error(err),
		)
	}
}
