package model

import (
	"time"

	"gorm.io/datatypes"
)

// Attempt 一次已评分的测评提交，落库后不再修改。
// (learner, module, org, attempt_number) 唯一，编号从 1 开始严格递增。
// swagger:model Attempt
type Attempt struct {
	BaseModel
	LearnerID          uint            `gorm:"uniqueIndex:idx_attempt_key,priority:1;not null" json:"learnerId"`
	ModuleID           uint            `gorm:"uniqueIndex:idx_attempt_key,priority:2;not null" json:"moduleId"`
	OrganizationID     uint            `gorm:"uniqueIndex:idx_attempt_key,priority:3;not null" json:"organizationId"`
	AttemptNumber      int             `gorm:"uniqueIndex:idx_attempt_key,priority:4;not null" json:"attemptNumber"`
	StartedAt          time.Time       `json:"startedAt"`
	EndedAt            time.Time       `json:"endedAt"`
	ScoreObtained      float64         `json:"scoreObtained"`
	ScoreMax           float64         `json:"scoreMax"`
	Percent            float64         `json:"percent"`
	Passed             bool            `gorm:"default:false" json:"passed"`
	PendingReview      bool            `gorm:"default:false" json:"pendingReview"` // 含自动给分的开放题，待人工复核
	TimeSpentSeconds   int             `json:"timeSpentSeconds"`
	DefinitionSnapshot datatypes.JSON  `json:"-"`
	Answers            []AttemptAnswer `gorm:"foreignKey:AttemptID" json:"answers,omitempty"`
}

func (Attempt) TableName() string {
	return "evaluation_attempts"
}

func (a *Attempt) Key() LearnerKey {
	return LearnerKey{LearnerID: a.LearnerID, ModuleID: a.ModuleID, OrganizationID: a.OrganizationID}
}

// AttemptCounter 每个学员/模块/组织的尝试编号计数器，行锁保证编号读改写是原子的
type AttemptCounter struct {
	LearnerID      uint      `gorm:"primaryKey;autoIncrement:false"`
	ModuleID       uint      `gorm:"primaryKey;autoIncrement:false"`
	OrganizationID uint      `gorm:"primaryKey;autoIncrement:false"`
	LastNumber     int       `gorm:"not null;default:0"`
	UpdatedAt      time.Time
}

func (AttemptCounter) TableName() string {
	return "evaluation_attempt_counters"
}
