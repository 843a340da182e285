package event

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/IntranetCode/ProyectoMatrix-V2-sub000/internal/model"
	"github.com/IntranetCode/ProyectoMatrix-V2-sub000/internal/util"
	"github.com/IntranetCode/ProyectoMatrix-V2-sub000/pkg/logger"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"
)

// Sink 接收模块完成事件，投递语义由下游通知服务负责
type Sink interface {
	Publish(ctx context.Context, evt model.ModuleCompleted) error
}

// RedisSink 以 JSON 发布到 Redis 频道
type RedisSink struct {
	client  *redis.Client
	channel string
}

func NewRedisSink(client *redis.Client, channel string) *RedisSink {
	if channel == "" {
		channel = util.DefaultCompletedEventsChannel
	}
	return &RedisSink{client: client, channel: channel}
}

func (s *RedisSink) Publish(ctx context.Context, evt model.ModuleCompleted) error {
	payload, err := json.Marshal(evt)
	if err != nil {
		return err
	}
	return s.client.Publish(ctx, s.channel, payload).Err()
}

// LogSink 只写日志，没有消息中间件时使用
type LogSink struct{}

func NewLogSink() *LogSink {
	return &LogSink{}
}

func (LogSink) Publish(_ context.Context, evt model.ModuleCompleted) error {
	logger.Log.Info("Module completed",
		zap.String("event_id", evt.EventID),
		zap.Uint("learner_id", evt.LearnerID),
		zap.Uint("module_id", evt.ModuleID),
		zap.Uint("org_id", evt.OrganizationID),
		zap.String("source", string(evt.Source)),
		zap.Time("at", evt.At),
	)
	return nil
}

// Recorder 记录在内存中
type Recorder struct {
	mu     sync.Mutex
	events []model.ModuleCompleted
}

func NewRecorder() *Recorder {
	return &Recorder{}
}

func (r *Recorder) Publish(_ context.Context, evt model.ModuleCompleted) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, evt)
	return nil
}

func (r *Recorder) Events() []model.ModuleCompleted {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]model.ModuleCompleted, len(r.events))
	copy(out, r.events)
	return out
}
