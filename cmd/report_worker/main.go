package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"os/signal"
	"syscall"

	"github.com/shafeeq27edu-ai/LeafSense-AI/internal/app/config"
	"github.com/shafeeq27edu-ai/LeafSense-AI/internal/app/consumer"
	"github.com/shafeeq27edu-ai/LeafSense-AI/internal/app/domains/modules/mdreport"
	"github.com/shafeeq27edu-ai/LeafSense-AI/internal/app/domains/repo/rpscan"
	"github.com/shafeeq27edu-ai/LeafSense-AI/internal/app/domains/services/svreport"
	"github.com/shafeeq27edu-ai/LeafSense-AI/internal/app/infra/mq/lmstfy"
	"github.com/shafeeq27edu-ai/LeafSense-AI/internal/app/infra/persistence/mysql"
	"github.com/shafeeq27edu-ai/LeafSense-AI/internal/app/pkg/logger"
)

var configPath = flag.String("config", "config/config.yaml", "配置文件路径")

func main() {
	flag.Parse()

	// 1. 加载配置
	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	if err := cfg.ValidateWorker(); err != nil {
		log.Fatalf("Config validation failed: %v", err)
	}
	if !cfg.MySQL.Enabled() {
		log.Fatalf("Config validation failed: mysql dsn is required")
	}

	// 2. 初始化 Logger
	appLogger, err := logger.NewZapLogger(cfg.App.LogLevel)
	if err != nil {
		log.Fatalf("Failed to init logger: %v", err)
	}
	defer appLogger.Sync()
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// 3. 初始化基础设施组件
	db, err := mysql.Open(cfg.MySQL.DSN, cfg.MySQL.AutoMigrate)
	if err != nil {
		log.Fatalf("Failed to init database: %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		log.Fatalf("Failed to get sql.DB: %v", err)
	}
	defer sqlDB.Close()
	appLogger.Infof(ctx, "database connected")

	lmstfyClient := lmstfy.NewClient(cfg.Lmstfy.Host, cfg.Lmstfy.Port, cfg.Lmstfy.Namespace, cfg.Lmstfy.Token)

	// 4. 初始化 Service 层
	reportService := svreport.NewReportService(
		rpscan.NewScanRepository(db),
		mdreport.NewExporter(cfg.Report.OutputDir),
		appLogger,
	)

	// 5. 启动消费循环，收到退出信号后返回
	reportConsumer := consumer.NewReportConsumer(lmstfyClient, reportService, &consumer.Config{
		QueueName: cfg.Lmstfy.ReportQueue,
		Timeout:   cfg.Report.Timeout,
		TTR:       cfg.Report.TTR,
		Backoff:   cfg.Report.Backoff,
	}, appLogger)

	if err := reportConsumer.Start(ctx); err != nil && !errors.Is(err, context.Canceled) {
		appLogger.Errorf(context.Background(), "report consumer stopped with error: %v", err)
	}
	appLogger.Infof(context.Background(), "report worker stopped")
}
