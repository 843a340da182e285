// watchsim 模拟一个播放器：按固定节奏产生播放位置采样，通过 tracking.Session 定期上报进度。
// 用于联调和压测进度接口。
package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/IntranetCode/ProyectoMatrix-V2-sub000/internal/config"
	"github.com/IntranetCode/ProyectoMatrix-V2-sub000/internal/tracking"
	"github.com/IntranetCode/ProyectoMatrix-V2-sub000/pkg/logger"

	"go.uber.org/zap"
)

func main() {
	configDir := flag.String("config", "configs", "配置文件目录")
	baseURL := flag.String("base-url", "http://localhost:8080", "进度服务地址")
	token := flag.String("token", os.Getenv("LEARNING_TOKEN"), "学员 JWT")
	moduleID := flag.Uint("module", 0, "模块ID")
	duration := flag.Int("duration", 0, "模块时长（秒）")
	speed := flag.Float64("speed", 1, "播放倍速，影响采样节奏而不影响位置步长")
	seekAt := flag.Float64("seek-at", -1, "播放到该位置时向前跳 60 秒，用于验证拖动不计入")
	flag.Parse()

	if *moduleID == 0 || *duration <= 0 || *token == "" || *speed <= 0 {
		flag.Usage()
		os.Exit(2)
	}

	cfg, err := config.LoadConfig(*configDir)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	logger.InitLogger(cfg)
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	session := tracking.NewSession(tracking.SessionConfig{
		ModuleID:        *moduleID,
		DurationSeconds: *duration,
		FlushInterval:   cfg.Tracking.FlushInterval(),
		MaxDelta:        cfg.Tracking.MaxAcceptedDeltaSeconds,
	}, tracking.NewHTTPFlusher(*baseURL, *token, 3*time.Second))

	go session.Run(ctx)

	step := time.Duration(float64(time.Second) / *speed)
	ticker := time.NewTicker(step)
	defer ticker.Stop()

	position := 0.0
	seeked := false
loop:
	for position < float64(*duration) {
		select {
		case <-ctx.Done():
			break loop
		case <-ticker.C:
			position++
			if !seeked && *seekAt >= 0 && position >= *seekAt {
				position += 60
				seeked = true
			}
			session.Observe(tracking.Sample{Position: position, Playing: true})
		}
	}

	closeCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := session.Close(closeCtx); err != nil {
		logger.Log.Error("Final flush failed", zap.Error(err))
	}
	logger.Log.Info("Playback finished",
		zap.Uint("module_id", *moduleID),
		zap.Float64("position", position),
		zap.Bool("completed", session.Completed()),
	)
}
