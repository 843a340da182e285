package model

// DefaultMinPassPercent 模块未配置及格线时使用
const DefaultMinPassPercent = 70.0

// Module 学习单元（视频 + 可选测评）。
// DurationSeconds 以服务端为准，客户端上报的百分比只作参考。
// swagger:model Module
type Module struct {
	BaseModel
	Title              string  `gorm:"size:255;not null" json:"title"`
	OrganizationID     uint    `gorm:"index;default:0" json:"organizationId"` // 0 表示所有组织共享
	DurationSeconds    int     `gorm:"not null;default:0" json:"durationSeconds"`
	RequiresEvaluation bool    `gorm:"default:false" json:"requiresEvaluation"`
	MinPassPercent     float64 `gorm:"not null;default:0" json:"minPassPercent"` // 0 表示使用全局及格线
	IsRequired         bool    `gorm:"default:false" json:"isRequired"`
	IsActive           bool    `gorm:"not null" json:"isActive"` // 无列默认值，写入时必须显式给出
}

func (Module) TableName() string {
	return "modules"
}

// PassPercent 返回模块生效的及格线，未配置时依次退回 fallback 与 DefaultMinPassPercent
func (m *Module) PassPercent(fallback float64) float64 {
	if m.MinPassPercent > 0 {
		return m.MinPassPercent
	}
	if fallback > 0 {
		return fallback
	}
	return DefaultMinPassPercent
}

// BelongsTo 模块归属该组织或为共享模块
func (m *Module) BelongsTo(orgID uint) bool {
	return m.OrganizationID == 0 || m.OrganizationID == orgID
}

// VisibleTo 学员侧可见：启用且归属该组织
func (m *Module) VisibleTo(orgID uint) bool {
	return m.IsActive && m.BelongsTo(orgID)
}
