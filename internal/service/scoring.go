package service

import (
	"strings"

	"github.com/IntranetCode/ProyectoMatrix-V2-sub000/internal/model"
	"github.com/IntranetCode/ProyectoMatrix-V2-sub000/internal/util"
)

// QuestionScore 单题评分结果；Answer 为空表示未作答
type QuestionScore struct {
	Question      *model.Question
	Answer        model.AnswerValue
	Awarded       float64
	PendingReview bool
}

type ScoreResult struct {
	Questions     []QuestionScore
	ScoreObtained float64
	ScoreMax      float64
	Percent       float64
	Passed        bool
	PendingReview bool
}

// Score 按题目定义给作答评分，不做任何 I/O。
// 未作答的题目得 0 分；开放题非空即给满分并标记待人工复核。
func Score(questions []model.Question, answers map[uint]model.AnswerValue, minPassPercent float64) ScoreResult {
	result := ScoreResult{Questions: make([]QuestionScore, 0, len(questions))}

	for i := range questions {
		q := &questions[i]
		qs := QuestionScore{Question: q, Answer: answers[q.ID]}

		// 按题型评分，作答类型与题型不符时不得分
		switch q.Type {
		case model.SingleChoice:
			a, ok := qs.Answer.(model.SingleChoiceAnswer)
			if correct := q.CorrectOption(); ok && correct != nil && correct.ID == a.OptionID {
				qs.Awarded = q.MaxScore
			}
		case model.OpenText:
			if a, ok := qs.Answer.(model.OpenTextAnswer); ok && strings.TrimSpace(a.Text) != "" {
				qs.Awarded = q.MaxScore
				qs.PendingReview = true
			}
		}

		result.ScoreObtained += qs.Awarded
		result.ScoreMax += q.MaxScore
		result.PendingReview = result.PendingReview || qs.PendingReview
		result.Questions = append(result.Questions, qs)
	}

	if result.ScoreMax > 0 {
		// 先乘后除，避免 0.7 这类边界值出现浮点误差
		result.Percent = util.RoundTo(result.ScoreObtained*100/result.ScoreMax, 1)
	}
	result.Passed = result.Percent >= minPassPercent
	return result
}
