package database

import (
	"context"
	"fmt"
	"time"

	"github.com/IntranetCode/ProyectoMatrix-V2-sub000/internal/config"
	applog "github.com/IntranetCode/ProyectoMatrix-V2-sub000/pkg/logger"

	"github.com/go-redis/redis/v8"
)

func InitRedis(ctx context.Context, cfg *config.RedisConfig) (*redis.Client, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:         fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Password:     cfg.Password,
		DB:           cfg.DB,
		PoolSize:     20,
		MinIdleConns: 2,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	if _, err := rdb.Ping(pingCtx).Result(); err != nil {
		return nil, err
	}

	applog.Log.Info("Redis connection established")
	return rdb, nil
}
