package configwatcher

import (
	"context"
	"path/filepath"
	"time"

	"github.com/IntranetCode/ProyectoMatrix-V2-sub000/internal/config"
	"github.com/IntranetCode/ProyectoMatrix-V2-sub000/pkg/logger"

	"github.com/fsnotify/fsnotify"
	"github.com/pkg/errors"
	"go.uber.org/zap"
)

// Reloader 收到重新加载并校验通过的配置
type Reloader func(cfg *config.Config)

const debounce = time.Second

// Watch 监听配置目录下 config.yaml 的变化，防抖后重新加载。
// 阻塞直到 ctx 结束；新配置校验失败时保留旧配置继续运行
func Watch(ctx context.Context, configDir string, reload Reloader) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return errors.Wrap(err, "create config watcher")
	}
	defer watcher.Close()

	absDir, err := filepath.Abs(configDir)
	if err != nil {
		return errors.Wrap(err, "resolve config dir")
	}
	// 监听目录而不是文件，编辑器整体替换文件时仍能收到事件
	if err := watcher.Add(absDir); err != nil {
		return errors.Wrapf(err, "watch %s", absDir)
	}
	target := filepath.Join(absDir, "config.yaml")

	timer := time.NewTimer(debounce)
	if !timer.Stop() {
		<-timer.C
	}

	for {
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(event.Name) != target {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
				continue
			}
			if !timer.Stop() {
				select {
				case <-timer.C:
				default:
				}
			}
			timer.Reset(debounce)
		case <-timer.C:
			newCfg, err := config.LoadConfig(absDir)
			if err != nil {
				logger.Log.Error("Failed to reload config", zap.Error(err))
				continue
			}
			logger.Log.Info("Config reloaded", zap.String("path", target))
			reload(newCfg)
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			logger.Log.Error("Config watcher error", zap.Error(err))
		}
	}
}
