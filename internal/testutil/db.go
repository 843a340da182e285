package testutil

import (
	"fmt"
	"testing"

	"github.com/IntranetCode/ProyectoMatrix-V2-sub000/internal/model"
	"github.com/IntranetCode/ProyectoMatrix-V2-sub000/pkg/database"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// DB 每个测试一个独立的内存 sqlite 库，单连接使事务串行执行
func DB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	require.NoError(t, db.AutoMigrate(database.Models()...))
	return db
}

type ModuleOption func(*model.Module)

func WithDuration(seconds int) ModuleOption {
	return func(m *model.Module) { m.DurationSeconds = seconds }
}

func RequiresEvaluation() ModuleOption {
	return func(m *model.Module) { m.RequiresEvaluation = true }
}

func WithOrganization(orgID uint) ModuleOption {
	return func(m *model.Module) { m.OrganizationID = orgID }
}

func WithPassPercent(p float64) ModuleOption {
	return func(m *model.Module) { m.MinPassPercent = p }
}

func Inactive() ModuleOption {
	return func(m *model.Module) { m.IsActive = false }
}

// SeedModule 默认：共享、启用、时长 600 秒、及格线 70
func SeedModule(t *testing.T, db *gorm.DB, opts ...ModuleOption) *model.Module {
	t.Helper()
	m := &model.Module{
		Title:           "Onboarding",
		DurationSeconds: 600,
		MinPassPercent:  model.DefaultMinPassPercent,
		IsActive:        true,
	}
	for _, opt := range opts {
		opt(m)
	}
	require.NoError(t, db.Create(m).Error)
	return m
}

// Definition 三道题：两道 10 分单选 + 一道 10 分开放题
type Definition struct {
	Q1, Q2, Q3         model.Question
	Q1Correct, Q1Wrong uint
	Q2Correct, Q2Wrong uint
}

func SeedDefinition(t *testing.T, db *gorm.DB, moduleID uint) Definition {
	t.Helper()
	questions := []model.Question{
		{
			ModuleID: moduleID, Text: "Which badge opens the lab?", Type: model.SingleChoice, Order: 1, MaxScore: 10,
			Options: []model.Option{{Text: "Blue", IsCorrect: true, Order: 1}, {Text: "Red", Order: 2}},
		},
		{
			ModuleID: moduleID, Text: "Who approves expenses?", Type: model.SingleChoice, Order: 2, MaxScore: 10,
			Options: []model.Option{{Text: "Manager", IsCorrect: true, Order: 1}, {Text: "Anyone", Order: 2}},
		},
		{
			ModuleID: moduleID, Text: "Describe the escalation path.", Type: model.OpenText, Order: 3, MaxScore: 10,
		},
	}
	require.NoError(t, db.Create(&questions).Error)

	return Definition{
		Q1: questions[0], Q2: questions[1], Q3: questions[2],
		Q1Correct: questions[0].Options[0].ID, Q1Wrong: questions[0].Options[1].ID,
		Q2Correct: questions[1].Options[0].ID, Q2Wrong: questions[1].Options[1].ID,
	}
}
