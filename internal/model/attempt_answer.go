package model

// AnswerValue 学员对单题的作答，只有两种形态：SingleChoiceAnswer / OpenTextAnswer
type AnswerValue interface {
	Kind() QuestionType
}

type SingleChoiceAnswer struct {
	OptionID uint
}

func (SingleChoiceAnswer) Kind() QuestionType { return SingleChoice }

type OpenTextAnswer struct {
	Text string
}

func (OpenTextAnswer) Kind() QuestionType { return OpenText }

// AttemptAnswer 存储尝试中每道题的作答和得分，与 Attempt 同一事务写入，每题只写一次
// swagger:model AttemptAnswer
type AttemptAnswer struct {
	BaseModel
	AttemptID     uint         `gorm:"uniqueIndex:idx_attempt_question,priority:1;not null" json:"attemptId"`
	QuestionID    uint         `gorm:"uniqueIndex:idx_attempt_question,priority:2;not null" json:"questionId"`
	Kind          QuestionType `gorm:"size:20;not null" json:"kind"`
	OptionID      *uint        `json:"optionId,omitempty"`
	Text          *string      `gorm:"type:text" json:"text,omitempty"`
	ScoreAwarded  float64      `json:"scoreAwarded"`
	MaxScore      float64      `json:"maxScore"`
	PendingReview bool         `gorm:"default:false" json:"pendingReview"`
}

func (AttemptAnswer) TableName() string {
	return "evaluation_attempt_answers"
}

// Value 还原为作答变体
func (a *AttemptAnswer) Value() AnswerValue {
	switch a.Kind {
	case SingleChoice:
		if a.OptionID != nil {
			return SingleChoiceAnswer{OptionID: *a.OptionID}
		}
	case OpenText:
		if a.Text != nil {
			return OpenTextAnswer{Text: *a.Text}
		}
	}
	return nil
}
