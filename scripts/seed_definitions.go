// 手动导入模块与测评定义
//
// 首次部署或演示环境初始化时使用，重复执行会覆盖同 ID 模块的属性与题目。
//
// 用法: go run scripts/seed_definitions.go -file configs/seed.yaml
package main

import (
	"context"
	"flag"
	"log"
	"os"

	"github.com/IntranetCode/ProyectoMatrix-V2-sub000/internal/config"
	"github.com/IntranetCode/ProyectoMatrix-V2-sub000/internal/repository"
	"github.com/IntranetCode/ProyectoMatrix-V2-sub000/internal/seed"
	"github.com/IntranetCode/ProyectoMatrix-V2-sub000/internal/service"
	"github.com/IntranetCode/ProyectoMatrix-V2-sub000/pkg/database"
	"github.com/IntranetCode/ProyectoMatrix-V2-sub000/pkg/logger"
)

func main() {
	file := flag.String("file", "configs/seed.yaml", "模块与测评定义文件")
	configDir := flag.String("config", "configs", "配置文件目录")
	flag.Parse()

	cfg, err := config.LoadConfig(*configDir)
	if err != nil {
		log.Fatalf("无法读取配置文件: %v", err)
	}
	logger.InitLogger(cfg)
	defer logger.Sync()

	f, err := os.Open(*file)
	if err != nil {
		log.Fatalf("无法打开导入文件: %v", err)
	}
	defer f.Close()

	data, err := seed.Load(f)
	if err != nil {
		log.Fatalf("解析导入文件失败: %v", err)
	}

	db, err := database.InitDB(&cfg.Database, true)
	if err != nil {
		log.Fatalf("数据库连接失败: %v", err)
	}

	moduleRepo := repository.NewModuleRepository(db)
	evaluations := service.NewEvaluationService(db, moduleRepo, repository.NewEvaluationRepository(db), service.OrganizationPolicy{})

	log.Printf("开始导入 %d 个模块...", len(data.Modules))
	if err := seed.Apply(context.Background(), moduleRepo, evaluations, data); err != nil {
		log.Fatalf("导入失败: %v", err)
	}
	log.Println("完成！")
}
