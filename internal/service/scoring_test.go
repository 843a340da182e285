package service

import (
	"testing"

	"github.com/IntranetCode/ProyectoMatrix-V2-sub000/internal/model"

	"github.com/stretchr/testify/assert"
)

func choiceQuestion(id uint, maxScore float64, correctID uint, otherIDs ...uint) model.Question {
	q := model.Question{Type: model.SingleChoice, MaxScore: maxScore}
	q.ID = id
	opt := model.Option{QuestionID: id, IsCorrect: true}
	opt.ID = correctID
	q.Options = append(q.Options, opt)
	for _, oid := range otherIDs {
		o := model.Option{QuestionID: id}
		o.ID = oid
		q.Options = append(q.Options, o)
	}
	return q
}

func openQuestion(id uint, maxScore float64) model.Question {
	q := model.Question{Type: model.OpenText, MaxScore: maxScore}
	q.ID = id
	return q
}

func TestScore(t *testing.T) {
	threeQuestions := []model.Question{
		choiceQuestion(1, 10, 11, 12, 13),
		choiceQuestion(2, 10, 21, 22),
		openQuestion(3, 10),
	}

	tests := []struct {
		name         string
		questions    []model.Question
		answers      map[uint]model.AnswerValue
		minPass      float64
		wantObtained float64
		wantMax      float64
		wantPercent  float64
		wantPassed   bool
		wantPending  bool
	}{
		{
			name:      "one correct, one wrong, one open answer",
			questions: threeQuestions,
			answers: map[uint]model.AnswerValue{
				1: model.SingleChoiceAnswer{OptionID: 11},
				2: model.SingleChoiceAnswer{OptionID: 22},
				3: model.OpenTextAnswer{Text: "because"},
			},
			minPass:      70,
			wantObtained: 20,
			wantMax:      30,
			wantPercent:  66.7,
			wantPassed:   false,
			wantPending:  true,
		},
		{
			name:      "all correct passes",
			questions: threeQuestions,
			answers: map[uint]model.AnswerValue{
				1: model.SingleChoiceAnswer{OptionID: 11},
				2: model.SingleChoiceAnswer{OptionID: 21},
				3: model.OpenTextAnswer{Text: "x"},
			},
			minPass:      70,
			wantObtained: 30,
			wantMax:      30,
			wantPercent:  100,
			wantPassed:   true,
			wantPending:  true,
		},
		{
			name:         "missing answers score zero",
			questions:    threeQuestions,
			answers:      map[uint]model.AnswerValue{},
			minPass:      70,
			wantObtained: 0,
			wantMax:      30,
			wantPercent:  0,
		},
		{
			name:      "whitespace open answer earns nothing",
			questions: []model.Question{openQuestion(3, 5)},
			answers: map[uint]model.AnswerValue{
				3: model.OpenTextAnswer{Text: "   \n\t"},
			},
			minPass:      70,
			wantObtained: 0,
			wantMax:      5,
			wantPercent:  0,
		},
		{
			name: "equality at the pass mark passes",
			questions: []model.Question{
				choiceQuestion(1, 7, 11, 12),
				choiceQuestion(2, 3, 21, 22),
			},
			answers: map[uint]model.AnswerValue{
				1: model.SingleChoiceAnswer{OptionID: 11},
				2: model.SingleChoiceAnswer{OptionID: 22},
			},
			minPass:      70,
			wantObtained: 7,
			wantMax:      10,
			wantPercent:  70,
			wantPassed:   true,
		},
		{
			name:         "empty definition yields zero percent",
			questions:    nil,
			answers:      nil,
			minPass:      70,
			wantObtained: 0,
			wantMax:      0,
			wantPercent:  0,
		},
		{
			name:      "open answer kind on choice question earns nothing",
			questions: []model.Question{choiceQuestion(1, 10, 11, 12)},
			answers: map[uint]model.AnswerValue{
				1: model.OpenTextAnswer{Text: "11"},
			},
			minPass:      50,
			wantObtained: 0,
			wantMax:      10,
			wantPercent:  0,
		},
		{
			name:      "choice answer kind on open question earns nothing",
			questions: []model.Question{openQuestion(1, 10)},
			answers: map[uint]model.AnswerValue{
				1: model.SingleChoiceAnswer{OptionID: 11},
			},
			minPass:      50,
			wantObtained: 0,
			wantMax:      10,
			wantPercent:  0,
		},
		{
			name: "uneven weights round to one decimal",
			questions: []model.Question{
				choiceQuestion(1, 1, 11, 12),
				choiceQuestion(2, 2, 21, 22),
			},
			answers: map[uint]model.AnswerValue{
				1: model.SingleChoiceAnswer{OptionID: 11},
			},
			minPass:      33.3,
			wantObtained: 1,
			wantMax:      3,
			wantPercent:  33.3,
			wantPassed:   true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Score(tt.questions, tt.answers, tt.minPass)
			assert.Equal(t, tt.wantObtained, got.ScoreObtained)
			assert.Equal(t, tt.wantMax, got.ScoreMax)
			assert.Equal(t, tt.wantPercent, got.Percent)
			assert.Equal(t, tt.wantPassed, got.Passed)
			assert.Equal(t, tt.wantPending, got.PendingReview)
			assert.Len(t, got.Questions, len(tt.questions))
		})
	}
}

func TestScoreIsDeterministic(t *testing.T) {
	questions := []model.Question{choiceQuestion(1, 4, 11, 12), openQuestion(2, 6)}
	answers := map[uint]model.AnswerValue{
		1: model.SingleChoiceAnswer{OptionID: 12},
		2: model.OpenTextAnswer{Text: "ok"},
	}

	first := Score(questions, answers, 70)
	for i := 0; i < 10; i++ {
		assert.Equal(t, first, Score(questions, answers, 70))
	}
	assert.Equal(t, 60.0, first.Percent)
	assert.False(t, first.Questions[0].PendingReview)
	assert.True(t, first.Questions[1].PendingReview)
}
