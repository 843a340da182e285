package service

import (
	"context"
	"testing"

	"github.com/IntranetCode/ProyectoMatrix-V2-sub000/internal/event"
	"github.com/IntranetCode/ProyectoMatrix-V2-sub000/internal/model"
	"github.com/IntranetCode/ProyectoMatrix-V2-sub000/internal/repository"
	"github.com/IntranetCode/ProyectoMatrix-V2-sub000/internal/testutil"
	"github.com/IntranetCode/ProyectoMatrix-V2-sub000/internal/util"

	"github.com/stretchr/testify/assert"
	"gorm.io/gorm"
)

const (
	learnerID uint = 41
	orgID     uint = 7
)

type harness struct {
	db         *gorm.DB
	sink       *event.Recorder
	completion *CompletionService
	progress   *ProgressService
	evaluation *EvaluationService
	attempts   *AttemptService
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	db := testutil.DB(t)
	return newHarnessWithPolicy(db, OrganizationPolicy{})
}

func newHarnessWithPolicy(db *gorm.DB, policy AccessPolicy) *harness {
	moduleRepo := repository.NewModuleRepository(db)
	progressRepo := repository.NewProgressRepository(db)
	evalRepo := repository.NewEvaluationRepository(db)
	attemptRepo := repository.NewAttemptRepository(db)

	sink := event.NewRecorder()
	completion := NewCompletionService(progressRepo, sink)

	return &harness{
		db:         db,
		sink:       sink,
		completion: completion,
		progress:   NewProgressService(db, moduleRepo, progressRepo, completion, policy, 95),
		evaluation: NewEvaluationService(db, moduleRepo, evalRepo, policy),
		attempts:   NewAttemptService(db, moduleRepo, evalRepo, attemptRepo, completion, policy, 3),
	}
}

type denyAll struct{}

func (denyAll) CanTakeModule(context.Context, uint, uint, *model.Module) (bool, error) {
	return false, nil
}

func assertKind(t *testing.T, err error, kind util.ErrorKind) {
	t.Helper()
	if assert.Error(t, err) {
		assert.Equal(t, kind, util.KindOf(err), "unexpected error: %v", err)
	}
}

func ptr[T any](v T) *T {
	return &v
}
