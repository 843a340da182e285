package service

import (
	"context"
	"errors"
	"sort"
	"sync/atomic"
	"testing"
	"time"

	"github.com/IntranetCode/ProyectoMatrix-V2-sub000/internal/model"
	"github.com/IntranetCode/ProyectoMatrix-V2-sub000/internal/testutil"
	"github.com/IntranetCode/ProyectoMatrix-V2-sub000/internal/util"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"
	"gorm.io/gorm"
)

func mixedAnswers(def testutil.Definition) SubmitRequest {
	return SubmitRequest{
		Answers: []AnswerRequest{
			{QuestionID: def.Q1.ID, OptionID: ptr(def.Q1Correct)},
			{QuestionID: def.Q2.ID, OptionID: ptr(def.Q2Wrong)},
			{QuestionID: def.Q3.ID, Text: ptr("Call the on-call lead, then the manager.")},
		},
		TimeSpentSeconds: 95,
	}
}

func perfectAnswers(def testutil.Definition) SubmitRequest {
	return SubmitRequest{
		Answers: []AnswerRequest{
			{QuestionID: def.Q1.ID, OptionID: ptr(def.Q1Correct)},
			{QuestionID: def.Q2.ID, OptionID: ptr(def.Q2Correct)},
			{QuestionID: def.Q3.ID, Text: ptr("Escalate to the manager.")},
		},
		TimeSpentSeconds: 60,
	}
}

func TestSubmitScoresAndNumbersAttempt(t *testing.T) {
	h := newHarness(t)
	m := testutil.SeedModule(t, h.db, testutil.RequiresEvaluation())
	def := testutil.SeedDefinition(t, h.db, m.ID)
	ctx := context.Background()

	attempt, err := h.attempts.Submit(ctx, learnerID, orgID, m.ID, mixedAnswers(def))
	require.NoError(t, err)
	assert.Equal(t, 1, attempt.AttemptNumber)
	assert.Equal(t, 20.0, attempt.ScoreObtained)
	assert.Equal(t, 30.0, attempt.ScoreMax)
	assert.Equal(t, 66.7, attempt.Percent)
	assert.False(t, attempt.Passed)
	assert.True(t, attempt.PendingReview)
	assert.Equal(t, 95, attempt.TimeSpentSeconds)
	assert.Equal(t, 95*time.Second, attempt.EndedAt.Sub(attempt.StartedAt))
	assert.NotZero(t, attempt.ID)

	stored, err := h.attempts.GetAttempt(ctx, learnerID, orgID, m.ID, 1)
	require.NoError(t, err)
	require.Len(t, stored.Answers, 3)
	byQuestion := map[uint]model.AttemptAnswer{}
	for _, a := range stored.Answers {
		byQuestion[a.QuestionID] = a
	}
	assert.Equal(t, 10.0, byQuestion[def.Q1.ID].ScoreAwarded)
	assert.Equal(t, 0.0, byQuestion[def.Q2.ID].ScoreAwarded)
	q2Answer := byQuestion[def.Q2.ID]
	assert.Equal(t, model.SingleChoiceAnswer{OptionID: def.Q2Wrong}, q2Answer.Value())
	assert.True(t, byQuestion[def.Q3.ID].PendingReview)
	assert.Equal(t, model.OpenText, byQuestion[def.Q3.ID].Kind)

	rec, err := h.progress.GetProgress(ctx, learnerID, orgID, m.ID)
	require.NoError(t, err)
	assert.False(t, rec.Completed)
	assert.Empty(t, h.sink.Events())
}

func TestResubmitCreatesNextAttemptAndKeepsHistory(t *testing.T) {
	h := newHarness(t)
	m := testutil.SeedModule(t, h.db, testutil.RequiresEvaluation())
	def := testutil.SeedDefinition(t, h.db, m.ID)
	ctx := context.Background()

	first, err := h.attempts.Submit(ctx, learnerID, orgID, m.ID, mixedAnswers(def))
	require.NoError(t, err)
	second, err := h.attempts.Submit(ctx, learnerID, orgID, m.ID, perfectAnswers(def))
	require.NoError(t, err)
	assert.Equal(t, 2, second.AttemptNumber)
	assert.True(t, second.Passed)

	again, err := h.attempts.GetAttempt(ctx, learnerID, orgID, m.ID, 1)
	require.NoError(t, err)
	assert.Equal(t, first.ID, again.ID)
	assert.Equal(t, 20.0, again.ScoreObtained)
	assert.False(t, again.Passed)

	list, err := h.attempts.ListAttempts(ctx, learnerID, orgID, m.ID)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, 2, list[0].AttemptNumber)
	assert.Equal(t, 1, list[1].AttemptNumber)

	_, err = h.attempts.GetAttempt(ctx, learnerID, orgID, m.ID, 3)
	assertKind(t, err, util.KindNotFound)
}

func TestAttemptNumbersAreIndependentPerKey(t *testing.T) {
	h := newHarness(t)
	m := testutil.SeedModule(t, h.db)
	def := testutil.SeedDefinition(t, h.db, m.ID)
	ctx := context.Background()

	a, err := h.attempts.Submit(ctx, learnerID, orgID, m.ID, mixedAnswers(def))
	require.NoError(t, err)
	b, err := h.attempts.Submit(ctx, learnerID+1, orgID, m.ID, mixedAnswers(def))
	require.NoError(t, err)
	c, err := h.attempts.Submit(ctx, learnerID, orgID+1, m.ID, mixedAnswers(def))
	require.NoError(t, err)

	assert.Equal(t, 1, a.AttemptNumber)
	assert.Equal(t, 1, b.AttemptNumber)
	assert.Equal(t, 1, c.AttemptNumber)
}

func TestPassingAttemptCompletesModule(t *testing.T) {
	h := newHarness(t)
	m := testutil.SeedModule(t, h.db, testutil.RequiresEvaluation())
	def := testutil.SeedDefinition(t, h.db, m.ID)
	ctx := context.Background()

	_, err := h.progress.RecordProgress(ctx, learnerID, orgID, ProgressUpdate{ModuleID: m.ID, WatchedSeconds: 120})
	require.NoError(t, err)

	attempt, err := h.attempts.Submit(ctx, learnerID, orgID, m.ID, perfectAnswers(def))
	require.NoError(t, err)
	assert.True(t, attempt.Passed)
	assert.Equal(t, 100.0, attempt.Percent)

	rec, err := h.progress.GetProgress(ctx, learnerID, orgID, m.ID)
	require.NoError(t, err)
	assert.True(t, rec.Completed)
	assert.Equal(t, 100.0, rec.PercentWatched)
	assert.Equal(t, 120, rec.WatchedSeconds)
	assert.NotNil(t, rec.CompletedAt)
	assert.Equal(t, model.CompletionByEvaluation, rec.CompletionSource)

	_, err = h.attempts.Submit(ctx, learnerID, orgID, m.ID, perfectAnswers(def))
	require.NoError(t, err)

	events := h.sink.Events()
	require.Len(t, events, 1)
	assert.Equal(t, model.CompletionByEvaluation, events[0].Source)
	assert.Equal(t, m.ID, events[0].ModuleID)
}

func TestPassingAttemptWithoutPriorProgressCreatesRecord(t *testing.T) {
	h := newHarness(t)
	m := testutil.SeedModule(t, h.db, testutil.RequiresEvaluation())
	def := testutil.SeedDefinition(t, h.db, m.ID)

	_, err := h.attempts.Submit(context.Background(), learnerID, orgID, m.ID, perfectAnswers(def))
	require.NoError(t, err)

	var rec model.ProgressRecord
	require.NoError(t, h.db.Where("learner_id = ? AND module_id = ?", learnerID, m.ID).First(&rec).Error)
	assert.True(t, rec.Completed)
	assert.Equal(t, 100.0, rec.PercentWatched)
	assert.Zero(t, rec.WatchedSeconds)
}

func TestPassingAttemptKeepsEarlierCompletion(t *testing.T) {
	h := newHarness(t)
	m := testutil.SeedModule(t, h.db, testutil.WithDuration(100))
	def := testutil.SeedDefinition(t, h.db, m.ID)
	ctx := context.Background()

	watchedAt := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	h.progress.now = func() time.Time { return watchedAt }
	_, err := h.progress.RecordProgress(ctx, learnerID, orgID, ProgressUpdate{ModuleID: m.ID, WatchedSeconds: 100})
	require.NoError(t, err)

	_, err = h.attempts.Submit(ctx, learnerID, orgID, m.ID, perfectAnswers(def))
	require.NoError(t, err)

	rec, err := h.progress.GetProgress(ctx, learnerID, orgID, m.ID)
	require.NoError(t, err)
	assert.True(t, rec.CompletedAt.Equal(watchedAt))
	assert.Equal(t, model.CompletionByWatch, rec.CompletionSource)
	assert.Len(t, h.sink.Events(), 1)
}

func TestSubmitMissingAnswersScoreZero(t *testing.T) {
	h := newHarness(t)
	m := testutil.SeedModule(t, h.db)
	def := testutil.SeedDefinition(t, h.db, m.ID)

	attempt, err := h.attempts.Submit(context.Background(), learnerID, orgID, m.ID, SubmitRequest{
		Answers: []AnswerRequest{{QuestionID: def.Q1.ID, OptionID: ptr(def.Q1Correct)}},
	})
	require.NoError(t, err)
	assert.Equal(t, 10.0, attempt.ScoreObtained)
	assert.Equal(t, 30.0, attempt.ScoreMax)
	assert.Equal(t, 33.3, attempt.Percent)
	assert.False(t, attempt.PendingReview)
	assert.Len(t, attempt.Answers, 1)
}

func TestSubmitValidation(t *testing.T) {
	h := newHarness(t)
	m := testutil.SeedModule(t, h.db)
	def := testutil.SeedDefinition(t, h.db, m.ID)
	ctx := context.Background()

	tests := []struct {
		name string
		req  SubmitRequest
	}{
		{"negative time spent", SubmitRequest{TimeSpentSeconds: -1}},
		{"missing question id", SubmitRequest{Answers: []AnswerRequest{{OptionID: ptr(def.Q1Correct)}}}},
		{"neither option nor text", SubmitRequest{Answers: []AnswerRequest{{QuestionID: def.Q1.ID}}}},
		{"both option and text", SubmitRequest{Answers: []AnswerRequest{{QuestionID: def.Q1.ID, OptionID: ptr(def.Q1Correct), Text: ptr("x")}}}},
		{"duplicate question", SubmitRequest{Answers: []AnswerRequest{
			{QuestionID: def.Q1.ID, OptionID: ptr(def.Q1Correct)},
			{QuestionID: def.Q1.ID, OptionID: ptr(def.Q1Wrong)},
		}}},
		{"unknown question", SubmitRequest{Answers: []AnswerRequest{{QuestionID: 9999, Text: ptr("x")}}}},
		{"option of another question", SubmitRequest{Answers: []AnswerRequest{{QuestionID: def.Q1.ID, OptionID: ptr(def.Q2Correct)}}}},
		{"text for single choice", SubmitRequest{Answers: []AnswerRequest{{QuestionID: def.Q1.ID, Text: ptr("Blue")}}}},
		{"option for open question", SubmitRequest{Answers: []AnswerRequest{{QuestionID: def.Q3.ID, OptionID: ptr(def.Q1Correct)}}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := h.attempts.Submit(ctx, learnerID, orgID, m.ID, tt.req)
			assertKind(t, err, util.KindValidation)
		})
	}

	// 校验失败不占用编号
	attempt, err := h.attempts.Submit(ctx, learnerID, orgID, m.ID, mixedAnswers(def))
	require.NoError(t, err)
	assert.Equal(t, 1, attempt.AttemptNumber)
}

func TestSubmitNotFound(t *testing.T) {
	h := newHarness(t)
	withoutDefinition := testutil.SeedModule(t, h.db)
	inactive := testutil.SeedModule(t, h.db, testutil.Inactive())
	testutil.SeedDefinition(t, h.db, inactive.ID)
	ctx := context.Background()

	_, err := h.attempts.Submit(ctx, learnerID, orgID, withoutDefinition.ID, SubmitRequest{})
	assertKind(t, err, util.KindNotFound)

	_, err = h.attempts.Submit(ctx, learnerID, orgID, inactive.ID, SubmitRequest{})
	assertKind(t, err, util.KindNotFound)

	_, err = h.attempts.Submit(ctx, learnerID, orgID, 9999, SubmitRequest{})
	assertKind(t, err, util.KindNotFound)

	var count int64
	require.NoError(t, h.db.Model(&model.Attempt{}).Count(&count).Error)
	assert.Zero(t, count)
}

func TestSubmitPolicyRefusal(t *testing.T) {
	db := testutil.DB(t)
	h := newHarnessWithPolicy(db, denyAll{})
	m := testutil.SeedModule(t, db)
	def := testutil.SeedDefinition(t, db, m.ID)

	_, err := h.attempts.Submit(context.Background(), learnerID, orgID, m.ID, mixedAnswers(def))
	assertKind(t, err, util.KindForbidden)
}

func TestConcurrentSubmitsGetDistinctNumbers(t *testing.T) {
	h := newHarness(t)
	m := testutil.SeedModule(t, h.db)
	def := testutil.SeedDefinition(t, h.db, m.ID)

	const n = 8
	numbers := make([]int, n)
	var g errgroup.Group
	for i := 0; i < n; i++ {
		i := i
		g.Go(func() error {
			attempt, err := h.attempts.Submit(context.Background(), learnerID, orgID, m.ID, mixedAnswers(def))
			if err != nil {
				return err
			}
			numbers[i] = attempt.AttemptNumber
			return nil
		})
	}
	require.NoError(t, g.Wait())

	sort.Ints(numbers)
	for i, got := range numbers {
		assert.Equal(t, i+1, got)
	}
}

func TestTwoConcurrentSubmitsNeverShareANumber(t *testing.T) {
	h := newHarness(t)
	m := testutil.SeedModule(t, h.db)
	def := testutil.SeedDefinition(t, h.db, m.ID)
	ctx := context.Background()

	_, err := h.attempts.Submit(ctx, learnerID, orgID, m.ID, mixedAnswers(def))
	require.NoError(t, err)

	var a, b *model.Attempt
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		a, err = h.attempts.Submit(gctx, learnerID, orgID, m.ID, mixedAnswers(def))
		return err
	})
	g.Go(func() (err error) {
		b, err = h.attempts.Submit(gctx, learnerID, orgID, m.ID, perfectAnswers(def))
		return err
	})
	require.NoError(t, g.Wait())

	assert.ElementsMatch(t, []int{2, 3}, []int{a.AttemptNumber, b.AttemptNumber})
}

func TestFailedCompletionRollsBackAttempt(t *testing.T) {
	h := newHarness(t)
	m := testutil.SeedModule(t, h.db, testutil.RequiresEvaluation())
	def := testutil.SeedDefinition(t, h.db, m.ID)
	ctx := context.Background()

	const name = "test:fail_progress_write"
	require.NoError(t, h.db.Callback().Create().Before("gorm:create").Register(name, func(tx *gorm.DB) {
		if tx.Statement.Table == "progress_records" {
			_ = tx.AddError(errors.New("disk full"))
		}
	}))

	_, err := h.attempts.Submit(ctx, learnerID, orgID, m.ID, perfectAnswers(def))
	assertKind(t, err, util.KindPersistence)

	var attempts, answers, records int64
	require.NoError(t, h.db.Model(&model.Attempt{}).Count(&attempts).Error)
	require.NoError(t, h.db.Model(&model.AttemptAnswer{}).Count(&answers).Error)
	require.NoError(t, h.db.Model(&model.ProgressRecord{}).Count(&records).Error)
	assert.Zero(t, attempts)
	assert.Zero(t, answers)
	assert.Zero(t, records)
	assert.Empty(t, h.sink.Events())

	require.NoError(t, h.db.Callback().Create().Remove(name))

	attempt, err := h.attempts.Submit(ctx, learnerID, orgID, m.ID, perfectAnswers(def))
	require.NoError(t, err)
	assert.Equal(t, 1, attempt.AttemptNumber)
	assert.Len(t, h.sink.Events(), 1)
}

func TestSubmitRetriesOnDuplicateAttemptNumber(t *testing.T) {
	h := newHarness(t)
	m := testutil.SeedModule(t, h.db)
	def := testutil.SeedDefinition(t, h.db, m.ID)

	var collisions int32
	require.NoError(t, h.db.Callback().Create().Before("gorm:create").Register("test:collide_once", func(tx *gorm.DB) {
		if tx.Statement.Table == "evaluation_attempts" && atomic.AddInt32(&collisions, 1) == 1 {
			_ = tx.AddError(gorm.ErrDuplicatedKey)
		}
	}))

	attempt, err := h.attempts.Submit(context.Background(), learnerID, orgID, m.ID, mixedAnswers(def))
	require.NoError(t, err)
	assert.Equal(t, 1, attempt.AttemptNumber)
	assert.Equal(t, int32(2), atomic.LoadInt32(&collisions))
}

func TestSubmitReturnsConflictWhenRetriesExhausted(t *testing.T) {
	h := newHarness(t)
	m := testutil.SeedModule(t, h.db)
	def := testutil.SeedDefinition(t, h.db, m.ID)
	h.attempts.SetMaxRetries(2)

	var tries int32
	require.NoError(t, h.db.Callback().Create().Before("gorm:create").Register("test:always_collide", func(tx *gorm.DB) {
		if tx.Statement.Table == "evaluation_attempts" {
			atomic.AddInt32(&tries, 1)
			_ = tx.AddError(gorm.ErrDuplicatedKey)
		}
	}))

	_, err := h.attempts.Submit(context.Background(), learnerID, orgID, m.ID, mixedAnswers(def))
	assertKind(t, err, util.KindConflict)
	assert.True(t, util.IsRetryable(err))
	assert.Equal(t, int32(2), atomic.LoadInt32(&tries))
}

func TestAttemptKeepsDefinitionSnapshotAfterEdit(t *testing.T) {
	h := newHarness(t)
	m := testutil.SeedModule(t, h.db)
	def := testutil.SeedDefinition(t, h.db, m.ID)
	ctx := context.Background()

	_, err := h.attempts.Submit(ctx, learnerID, orgID, m.ID, mixedAnswers(def))
	require.NoError(t, err)

	_, err = h.evaluation.ReplaceDefinition(ctx, orgID, m.ID, []QuestionRequest{
		{Text: "Brand new question", Type: model.OpenText, MaxScore: 5},
	})
	require.NoError(t, err)

	stored, err := h.attempts.GetAttempt(ctx, learnerID, orgID, m.ID, 1)
	require.NoError(t, err)
	assert.Contains(t, string(stored.DefinitionSnapshot), def.Q1.Text)
	assert.NotContains(t, string(stored.DefinitionSnapshot), "Brand new question")
	assert.Len(t, stored.Answers, 3)
}
