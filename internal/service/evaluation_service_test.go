package service

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/IntranetCode/ProyectoMatrix-V2-sub000/internal/model"
	"github.com/IntranetCode/ProyectoMatrix-V2-sub000/internal/testutil"
	"github.com/IntranetCode/ProyectoMatrix-V2-sub000/internal/util"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetDefinitionHidesCorrectAnswers(t *testing.T) {
	h := newHarness(t)
	m := testutil.SeedModule(t, h.db)
	def := testutil.SeedDefinition(t, h.db, m.ID)

	view, err := h.evaluation.GetDefinition(context.Background(), learnerID, orgID, m.ID)
	require.NoError(t, err)
	assert.Equal(t, m.ID, view.ModuleID)
	require.Len(t, view.Questions, 3)
	assert.Equal(t, def.Q1.ID, view.Questions[0].ID)
	assert.Equal(t, def.Q3.ID, view.Questions[2].ID)
	assert.Equal(t, model.OpenText, view.Questions[2].Type)
	assert.Empty(t, view.Questions[2].Options)
	require.Len(t, view.Questions[0].Options, 2)
	assert.Equal(t, "Blue", view.Questions[0].Options[0].Text)

	raw, err := json.Marshal(view)
	require.NoError(t, err)
	assert.NotContains(t, string(raw), "isCorrect")
	assert.NotContains(t, string(raw), "maxScore")
}

func TestGetAuthoringDefinitionIncludesCorrectAnswers(t *testing.T) {
	h := newHarness(t)
	m := testutil.SeedModule(t, h.db)
	testutil.SeedDefinition(t, h.db, m.ID)

	view, err := h.evaluation.GetAuthoringDefinition(context.Background(), orgID, m.ID)
	require.NoError(t, err)
	require.Len(t, view.Questions, 3)
	opts := view.Questions[0].Options
	require.NotNil(t, opts[0].IsCorrect)
	assert.True(t, *opts[0].IsCorrect)
	assert.False(t, *opts[1].IsCorrect)
	assert.Equal(t, 10.0, view.Questions[0].MaxScore)
}

func TestGetDefinitionNotFound(t *testing.T) {
	h := newHarness(t)
	empty := testutil.SeedModule(t, h.db)
	foreign := testutil.SeedModule(t, h.db, testutil.WithOrganization(orgID+1))
	testutil.SeedDefinition(t, h.db, foreign.ID)
	ctx := context.Background()

	_, err := h.evaluation.GetDefinition(ctx, learnerID, orgID, empty.ID)
	assertKind(t, err, util.KindNotFound)

	_, err = h.evaluation.GetDefinition(ctx, learnerID, orgID, foreign.ID)
	assertKind(t, err, util.KindNotFound)

	_, err = h.evaluation.GetAuthoringDefinition(ctx, orgID, foreign.ID)
	assertKind(t, err, util.KindNotFound)
}

func TestReplaceDefinitionReplacesEverything(t *testing.T) {
	h := newHarness(t)
	m := testutil.SeedModule(t, h.db)
	testutil.SeedDefinition(t, h.db, m.ID)
	ctx := context.Background()

	view, err := h.evaluation.ReplaceDefinition(ctx, orgID, m.ID, []QuestionRequest{
		{
			Text: "Pick the safe password", Type: model.SingleChoice, Order: 2, MaxScore: 4,
			Options: []OptionRequest{
				{Text: "hunter2", Order: 1},
				{Text: "a long passphrase", IsCorrect: true, Order: 2},
				{Text: "123456", Order: 3},
			},
		},
		{Text: "Why does MFA matter?", Type: model.OpenText, Order: 1, MaxScore: 6},
	})
	require.NoError(t, err)
	require.Len(t, view.Questions, 2)
	assert.Equal(t, "Why does MFA matter?", view.Questions[0].Text)
	assert.Len(t, view.Questions[1].Options, 3)

	learnerView, err := h.evaluation.GetDefinition(ctx, learnerID, orgID, m.ID)
	require.NoError(t, err)
	assert.Len(t, learnerView.Questions, 2)

	var live, options int64
	require.NoError(t, h.db.Model(&model.Question{}).Where("module_id = ?", m.ID).Count(&live).Error)
	require.NoError(t, h.db.Model(&model.Option{}).Count(&options).Error)
	assert.Equal(t, int64(2), live)
	assert.Equal(t, int64(3), options)
}

func TestReplaceDefinitionWithEmptySetClearsIt(t *testing.T) {
	h := newHarness(t)
	m := testutil.SeedModule(t, h.db)
	testutil.SeedDefinition(t, h.db, m.ID)
	ctx := context.Background()

	view, err := h.evaluation.ReplaceDefinition(ctx, orgID, m.ID, nil)
	require.NoError(t, err)
	assert.Empty(t, view.Questions)

	_, err = h.evaluation.GetDefinition(ctx, learnerID, orgID, m.ID)
	assertKind(t, err, util.KindNotFound)
}

func TestReplaceDefinitionValidation(t *testing.T) {
	h := newHarness(t)
	m := testutil.SeedModule(t, h.db)
	def := testutil.SeedDefinition(t, h.db, m.ID)
	ctx := context.Background()

	twoOptions := func(correct ...bool) []OptionRequest {
		opts := []OptionRequest{{Text: "a"}, {Text: "b"}}
		for i, c := range correct {
			opts[i].IsCorrect = c
		}
		return opts
	}

	tests := []struct {
		name string
		q    QuestionRequest
	}{
		{"blank text", QuestionRequest{Text: "  ", Type: model.OpenText, MaxScore: 1}},
		{"unknown type", QuestionRequest{Text: "q", Type: "essay", MaxScore: 1}},
		{"zero max score", QuestionRequest{Text: "q", Type: model.OpenText, MaxScore: 0}},
		{"single option", QuestionRequest{Text: "q", Type: model.SingleChoice, MaxScore: 1, Options: []OptionRequest{{Text: "a", IsCorrect: true}}}},
		{"no correct option", QuestionRequest{Text: "q", Type: model.SingleChoice, MaxScore: 1, Options: twoOptions()}},
		{"two correct options", QuestionRequest{Text: "q", Type: model.SingleChoice, MaxScore: 1, Options: twoOptions(true, true)}},
		{"blank option text", QuestionRequest{Text: "q", Type: model.SingleChoice, MaxScore: 1, Options: []OptionRequest{{Text: "a", IsCorrect: true}, {Text: ""}}}},
		{"open text with options", QuestionRequest{Text: "q", Type: model.OpenText, MaxScore: 1, Options: twoOptions(true)}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := h.evaluation.ReplaceDefinition(ctx, orgID, m.ID, []QuestionRequest{tt.q})
			assertKind(t, err, util.KindValidation)
		})
	}

	view, err := h.evaluation.GetAuthoringDefinition(ctx, orgID, m.ID)
	require.NoError(t, err)
	require.Len(t, view.Questions, 3)
	assert.Equal(t, def.Q1.ID, view.Questions[0].ID)
}

func TestReplaceDefinitionUnknownModule(t *testing.T) {
	h := newHarness(t)
	_, err := h.evaluation.ReplaceDefinition(context.Background(), orgID, 12345, nil)
	assertKind(t, err, util.KindNotFound)
}
