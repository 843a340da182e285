package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// swagger:model
type BaseModel struct {
	ID        uint           `gorm:"primaryKey;autoIncrement" json:"id"`
	CreatedAt time.Time      `json:"createdAt"`
	UpdatedAt time.Time      `json:"updatedAt"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
}

// LearnerKey 学员在某个组织内对某个模块的唯一标识，进度记录和测评尝试都按它划分
type LearnerKey struct {
	LearnerID      uint `json:"learnerId"`
	ModuleID       uint `json:"moduleId"`
	OrganizationID uint `json:"organizationId"`
}

func GenerateUUID() string {
	return uuid.New().String()
}
