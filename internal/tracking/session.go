package tracking

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/IntranetCode/ProyectoMatrix-V2-sub000/internal/util"
	"github.com/IntranetCode/ProyectoMatrix-V2-sub000/pkg/logger"

	"go.uber.org/zap"
)

var ErrSessionClosed = errors.New("tracking: session closed")

// Flusher 把快照送到进度服务
type Flusher interface {
	Flush(ctx context.Context, moduleID uint, snap Snapshot) (completed bool, err error)
}

type SessionConfig struct {
	ModuleID        uint
	DurationSeconds int
	FlushInterval   time.Duration
	MaxDelta        float64
}

// Session 一次播放器挂载对应一个 Session：挂载时创建，Run 定时上报，
// 暂停或页面隐藏时 Suspend，卸载时 Close 做最后一次上报。
type Session struct {
	cfg     SessionConfig
	flusher Flusher

	mu        sync.Mutex
	acc       *Accumulator
	last      *Snapshot
	completed bool
	closed    bool
}

func NewSession(cfg SessionConfig, flusher Flusher) *Session {
	if cfg.FlushInterval <= 0 {
		cfg.FlushInterval = util.DefaultFlushIntervalSeconds * time.Second
	}
	return &Session{
		cfg:     cfg,
		flusher: flusher,
		acc:     NewAccumulator(cfg.DurationSeconds, cfg.MaxDelta),
	}
}

// Observe Close 之后的采样直接丢弃
func (s *Session) Observe(sample Sample) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.acc.Observe(sample)
}

func (s *Session) Completed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.completed
}

// Flush 快照没有变化时不上报
func (s *Session) Flush(ctx context.Context) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return ErrSessionClosed
	}
	snap, err := s.acc.Snapshot()
	if err != nil {
		s.mu.Unlock()
		return err
	}
	if s.last != nil && *s.last == snap {
		s.mu.Unlock()
		return nil
	}
	s.mu.Unlock()

	completed, err := s.flusher.Flush(ctx, s.cfg.ModuleID, snap)
	if err != nil {
		return err
	}

	s.mu.Lock()
	s.last = &snap
	s.completed = s.completed || completed
	s.mu.Unlock()
	return nil
}

// Run 按间隔上报直到 ctx 结束。失败只记日志，下一次 tick 自然重试
func (s *Session) Run(ctx context.Context) {
	ticker := time.NewTicker(s.cfg.FlushInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := s.Flush(ctx); err != nil {
				if errors.Is(err, ErrSessionClosed) {
					return
				}
				logger.Log.Warn("Progress flush failed, will retry on next tick",
					zap.Uint("module_id", s.cfg.ModuleID),
					zap.Error(err),
				)
			}
		}
	}
}

// Suspend 暂停、页面隐藏时尽力上报一次，不保证送达
func (s *Session) Suspend(ctx context.Context) {
	if err := s.Flush(ctx); err != nil && !errors.Is(err, ErrSessionClosed) {
		logger.Log.Debug("Best-effort flush on suspend failed",
			zap.Uint("module_id", s.cfg.ModuleID),
			zap.Error(err),
		)
	}
}

// Close 最后一次上报后释放，之后的采样与上报都被忽略
func (s *Session) Close(ctx context.Context) error {
	err := s.Flush(ctx)
	if errors.Is(err, ErrSessionClosed) {
		return nil
	}

	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()
	return err
}
