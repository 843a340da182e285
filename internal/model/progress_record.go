package model

import "time"

type CompletionSource string

const (
	CompletionByWatch      CompletionSource = "watch"
	CompletionByEvaluation CompletionSource = "evaluation"
)

// ProgressRecord 学员观看进度，作为审计记录永不删除。
// WatchedSeconds 只增不减；Completed 一旦为 true 不会回退。
// swagger:model ProgressRecord
type ProgressRecord struct {
	BaseModel
	LearnerID        uint             `gorm:"uniqueIndex:idx_progress_key,priority:1;not null" json:"learnerId"`
	ModuleID         uint             `gorm:"uniqueIndex:idx_progress_key,priority:2;not null" json:"moduleId"`
	OrganizationID   uint             `gorm:"uniqueIndex:idx_progress_key,priority:3;not null" json:"organizationId"`
	WatchedSeconds   int              `gorm:"not null;default:0" json:"watchedSeconds"`
	PercentWatched   float64          `gorm:"not null;default:0" json:"percentWatched"`
	Completed        bool             `gorm:"default:false" json:"completed"`
	CompletedAt      *time.Time       `json:"completedAt,omitempty"`
	CompletionSource CompletionSource `gorm:"size:20" json:"completionSource,omitempty"`
	LastActivityAt   time.Time        `json:"lastActivityAt"`
}

func (ProgressRecord) TableName() string {
	return "progress_records"
}

func (p *ProgressRecord) Key() LearnerKey {
	return LearnerKey{LearnerID: p.LearnerID, ModuleID: p.ModuleID, OrganizationID: p.OrganizationID}
}
