package tracking

import (
	"errors"
	"math"

	"github.com/IntranetCode/ProyectoMatrix-V2-sub000/internal/util"
)

var ErrInvalidDuration = errors.New("tracking: module duration must be positive")

// Sample 播放器的一次位置采样
type Sample struct {
	Position float64 // 秒
	Playing  bool
}

// Snapshot 可以上报的观看快照
type Snapshot struct {
	WatchedSeconds int
	PercentWatched float64
}

// Accumulator 把播放位置采样累计成观看秒数。
// 只有播放中且相邻两次采样差值在 (0, maxDelta) 内才计入，
// 拖动、暂停、卡顿和回放都不会增加或减少总量。非并发安全。
type Accumulator struct {
	duration float64
	maxDelta float64
	previous float64 // 初始为 0，即视频起点
	watched  float64
}

func NewAccumulator(durationSeconds int, maxDelta float64) *Accumulator {
	if maxDelta <= 0 {
		maxDelta = util.DefaultMaxAcceptedDelta
	}
	return &Accumulator{duration: float64(durationSeconds), maxDelta: maxDelta}
}

// Observe 处理一次采样并返回本次计入的秒数
func (a *Accumulator) Observe(s Sample) float64 {
	if math.IsNaN(s.Position) || math.IsInf(s.Position, 0) {
		return 0
	}
	delta := s.Position - a.previous
	a.previous = s.Position
	if !s.Playing || delta <= 0 || delta >= a.maxDelta {
		return 0
	}
	a.watched += delta
	return delta
}

func (a *Accumulator) Watched() float64 {
	return a.watched
}

// Snapshot 时长无效时返回 ErrInvalidDuration
func (a *Accumulator) Snapshot() (Snapshot, error) {
	if a.duration <= 0 {
		return Snapshot{}, ErrInvalidDuration
	}
	watched := int(math.Floor(a.watched + 1e-9))
	percent := math.Min(100, a.watched/a.duration*100)
	return Snapshot{
		WatchedSeconds: watched,
		PercentWatched: percent,
	}, nil
}
