package model

import "time"

// DefinitionView 测评定义的对外形态。面向学员时 IsCorrect 为空，不会出现在 JSON 中
type DefinitionView struct {
	ModuleID  uint           `json:"moduleId"`
	Questions []QuestionView `json:"questions"`
}

type QuestionView struct {
	ID       uint         `json:"id"`
	Text     string       `json:"text"`
	Type     QuestionType `json:"type"`
	Order    int          `json:"order,omitempty"`
	MaxScore float64      `json:"maxScore,omitempty"`
	Options  []OptionView `json:"options"`
}

type OptionView struct {
	ID        uint   `json:"id"`
	Text      string `json:"text"`
	IsCorrect *bool  `json:"isCorrect,omitempty"`
}

// NewDefinitionView withAnswers 为 true 时包含正确答案和分值，只给编辑流程和快照使用
func NewDefinitionView(moduleID uint, questions []Question, withAnswers bool) DefinitionView {
	view := DefinitionView{ModuleID: moduleID, Questions: make([]QuestionView, 0, len(questions))}
	for _, q := range questions {
		qv := QuestionView{
			ID:      q.ID,
			Text:    q.Text,
			Type:    q.Type,
			Options: make([]OptionView, 0, len(q.Options)),
		}
		if withAnswers {
			qv.Order = q.Order
			qv.MaxScore = q.MaxScore
		}
		for _, o := range q.Options {
			ov := OptionView{ID: o.ID, Text: o.Text}
			if withAnswers {
				correct := o.IsCorrect
				ov.IsCorrect = &correct
			}
			qv.Options = append(qv.Options, ov)
		}
		view.Questions = append(view.Questions, qv)
	}
	return view
}

// AttemptResult 提交测评后的返回
type AttemptResult struct {
	AttemptID     uint    `json:"attemptId"`
	AttemptNumber int     `json:"attemptNumber"`
	ScoreObtained float64 `json:"scoreObtained"`
	ScoreMax      float64 `json:"scoreMax"`
	Percent       float64 `json:"percent"`
	Passed        bool    `json:"passed"`
	PendingReview bool    `json:"pendingReview"`
}

func (a *Attempt) Result() AttemptResult {
	return AttemptResult{
		AttemptID:     a.ID,
		AttemptNumber: a.AttemptNumber,
		ScoreObtained: a.ScoreObtained,
		ScoreMax:      a.ScoreMax,
		Percent:       a.Percent,
		Passed:        a.Passed,
		PendingReview: a.PendingReview,
	}
}

// ProgressView 学员对单个模块的进度
type ProgressView struct {
	ModuleID       uint       `json:"moduleId"`
	WatchedSeconds int        `json:"watchedSeconds"`
	PercentWatched float64    `json:"percentWatched"`
	Completed      bool       `json:"completed"`
	CompletedAt    *time.Time `json:"completedAt"`
	LastActivityAt *time.Time `json:"lastActivityAt"`
}

func (p *ProgressRecord) View() ProgressView {
	view := ProgressView{
		ModuleID:       p.ModuleID,
		WatchedSeconds: p.WatchedSeconds,
		PercentWatched: p.PercentWatched,
		Completed:      p.Completed,
		CompletedAt:    p.CompletedAt,
	}
	if !p.LastActivityAt.IsZero() {
		last := p.LastActivityAt
		view.LastActivityAt = &last
	}
	return view
}
