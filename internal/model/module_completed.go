package model

import "time"

// ModuleCompleted 模块完成事件，交给通知服务扇出
type ModuleCompleted struct {
	EventID        string           `json:"eventId"`
	LearnerID      uint             `json:"learnerId"`
	ModuleID       uint             `json:"moduleId"`
	OrganizationID uint             `json:"orgId"`
	Source         CompletionSource `json:"source"`
	At             time.Time        `json:"at"`
}

func NewModuleCompleted(key LearnerKey, source CompletionSource, at time.Time) ModuleCompleted {
	return ModuleCompleted{
		EventID:        GenerateUUID(),
		LearnerID:      key.LearnerID,
		ModuleID:       key.ModuleID,
		OrganizationID: key.OrganizationID,
		Source:         source,
		At:             at,
	}
}
