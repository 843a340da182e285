package model

type QuestionType string

const (
	SingleChoice QuestionType = "single_choice"
	OpenText     QuestionType = "open_text"
)

func (t QuestionType) Valid() bool {
	return t == SingleChoice || t == OpenText
}

// Question 模块测评题目，由编辑流程整体替换
// swagger:model Question
type Question struct {
	BaseModel
	ModuleID uint         `gorm:"index;not null" json:"moduleId"`
	Text     string       `gorm:"type:text;not null" json:"text"`
	Type     QuestionType `gorm:"size:20;not null" json:"type"`
	Order    int          `gorm:"default:0" json:"order"`
	MaxScore float64      `gorm:"not null" json:"maxScore"`
	Options  []Option     `gorm:"foreignKey:QuestionID" json:"options,omitempty"`
}

func (Question) TableName() string {
	return "evaluation_questions"
}

// CorrectOption 单选题唯一的正确选项，没有时返回 nil
func (q *Question) CorrectOption() *Option {
	for i := range q.Options {
		if q.Options[i].IsCorrect {
			return &q.Options[i]
		}
	}
	return nil
}

// HasOption 判断选项是否属于该题
func (q *Question) HasOption(optionID uint) bool {
	for _, o := range q.Options {
		if o.ID == optionID {
			return true
		}
	}
	return false
}

// swagger:model Option
type Option struct {
	BaseModel
	QuestionID uint   `gorm:"index;not null" json:"questionId"`
	Text       string `gorm:"type:text;not null" json:"text"`
	IsCorrect  bool   `gorm:"default:false" json:"isCorrect"`
	Order      int    `gorm:"default:0" json:"order"`
}

func (Option) TableName() string {
	return "evaluation_options"
}
