// Package seed 从 YAML 批量导入模块与测评定义，用于首次部署和演示环境
package seed

import (
	"context"
	"fmt"
	"io"

	"github.com/IntranetCode/ProyectoMatrix-V2-sub000/internal/model"
	"github.com/IntranetCode/ProyectoMatrix-V2-sub000/internal/repository"
	"github.com/IntranetCode/ProyectoMatrix-V2-sub000/internal/service"
	"github.com/IntranetCode/ProyectoMatrix-V2-sub000/internal/util"
	"github.com/IntranetCode/ProyectoMatrix-V2-sub000/pkg/logger"

	"github.com/pkg/errors"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"
)

type File struct {
	Modules []Module `yaml:"modules"`
}

type Module struct {
	ID                 uint       `yaml:"id"`
	Title              string     `yaml:"title"`
	OrganizationID     uint       `yaml:"organization_id"`
	DurationSeconds    int        `yaml:"duration_seconds"`
	RequiresEvaluation bool       `yaml:"requires_evaluation"`
	MinPassPercent     float64    `yaml:"min_pass_percent"`
	IsRequired         bool       `yaml:"is_required"`
	Active             *bool      `yaml:"active"` // 缺省为启用
	Questions          []Question `yaml:"questions"`
}

type Question struct {
	Text     string   `yaml:"text"`
	Type     string   `yaml:"type"`
	MaxScore float64  `yaml:"max_score"`
	Options  []Option `yaml:"options"`
}

type Option struct {
	Text    string `yaml:"text"`
	Correct bool   `yaml:"correct"`
}

// Load 解析 YAML，未知字段视为错误
func Load(r io.Reader) (*File, error) {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)

	var f File
	if err := dec.Decode(&f); err != nil && err != io.EOF {
		return nil, errors.Wrap(err, "decode seed file")
	}
	for i, m := range f.Modules {
		if m.ID == 0 {
			return nil, util.Validation(fmt.Sprintf("modules[%d]: id is required", i))
		}
		if m.Title == "" {
			return nil, util.Validation(fmt.Sprintf("modules[%d]: title is required", i))
		}
	}
	return &f, nil
}

// questionRequests 题目与选项顺序取文件中的先后顺序
func (m Module) questionRequests() []service.QuestionRequest {
	out := make([]service.QuestionRequest, 0, len(m.Questions))
	for i, q := range m.Questions {
		req := service.QuestionRequest{
			Text:     q.Text,
			Type:     model.QuestionType(q.Type),
			Order:    i + 1,
			MaxScore: q.MaxScore,
		}
		for j, o := range q.Options {
			req.Options = append(req.Options, service.OptionRequest{Text: o.Text, IsCorrect: o.Correct, Order: j + 1})
		}
		out = append(out, req)
	}
	return out
}

// Apply 逐个写入模块，再整体替换其测评定义。没有题目的模块不会清空已有定义
func Apply(ctx context.Context, modules *repository.ModuleRepository, evaluations *service.EvaluationService, f *File) error {
	for _, m := range f.Modules {
		active := true
		if m.Active != nil {
			active = *m.Active
		}
		module := &model.Module{
			Title:              m.Title,
			OrganizationID:     m.OrganizationID,
			DurationSeconds:    m.DurationSeconds,
			RequiresEvaluation: m.RequiresEvaluation,
			MinPassPercent:     m.MinPassPercent,
			IsRequired:         m.IsRequired,
			IsActive:           active,
		}
		module.ID = m.ID
		if err := modules.Upsert(ctx, module); err != nil {
			return errors.Wrapf(err, "module %d", m.ID)
		}

		if len(m.Questions) > 0 {
			if _, err := evaluations.ReplaceDefinition(ctx, m.OrganizationID, m.ID, m.questionRequests()); err != nil {
				return errors.Wrapf(err, "module %d definition", m.ID)
			}
		}
		logger.Log.Info("Module seeded",
			zap.Uint("module_id", m.ID),
			zap.Int("questions", len(m.Questions)),
		)
	}
	return nil
}
