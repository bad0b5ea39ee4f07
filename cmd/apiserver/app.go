package main

import (
	"context"
	"fmt"

	"github.com/gin-gonic/gin"

	"github.com/shafeeq27edu-ai/LeafSense-AI/internal/app/config"
	"github.com/shafeeq27edu-ai/LeafSense-AI/internal/app/domains/modules/mdanalysis"
	"github.com/shafeeq27edu-ai/LeafSense-AI/internal/app/domains/modules/mdintake"
	"github.com/shafeeq27edu-ai/LeafSense-AI/internal/app/domains/modules/mdnotify"
	"github.com/shafeeq27edu-ai/LeafSense-AI/internal/app/domains/modules/mdprogress"
	"github.com/shafeeq27edu-ai/LeafSense-AI/internal/app/domains/modules/mdreport"
	"github.com/shafeeq27edu-ai/LeafSense-AI/internal/app/domains/repo/rpscan"
	"github.com/shafeeq27edu-ai/LeafSense-AI/internal/app/domains/services/svscan"
	"github.com/shafeeq27edu-ai/LeafSense-AI/internal/app/infra/analyzer"
	"github.com/shafeeq27edu-ai/LeafSense-AI/internal/app/infra/mq/lmstfy"
	"github.com/shafeeq27edu-ai/LeafSense-AI/internal/app/infra/persistence/mysql"
	"github.com/shafeeq27edu-ai/LeafSense-AI/internal/app/infra/persistence/redis"
	"github.com/shafeeq27edu-ai/LeafSense-AI/internal/app/pkg/logger"
	"github.com/shafeeq27edu-ai/LeafSense-AI/internal/app/server/handlers/health"
	"github.com/shafeeq27edu-ai/LeafSense-AI/internal/app/server/handlers/scan"
	"github.com/shafeeq27edu-ai/LeafSense-AI/internal/app/server/routers"
)

// App 应用实例
type App struct {
	Engine      *gin.Engine
	ScanService *svscan.ScanService
}

// InitializeApp 组装依赖
// MySQL / Redis / Lmstfy 均为可选，未配置时分别退化为进程内历史、进程内通知、报告导出不可用
func InitializeApp(cfg *config.Config, log logger.Logger) (*App, func(), error) {
	ctx := context.Background()
	var cleanups []func()
	cleanup := func() {
		for i := len(cleanups) - 1; i >= 0; i-- {
			cleanups[i]()
		}
	}

	// 1. 分析服务客户端
	analyzerClient, err := analyzer.NewClient(
		analyzer.WithBaseURL(cfg.Analyzer.BaseURL),
		analyzer.WithPath(cfg.Analyzer.Path),
		analyzer.WithAPIKey(cfg.Analyzer.APIKey),
		analyzer.WithExpertMode(cfg.Analyzer.ExpertMode),
		analyzer.WithTimeout(cfg.Analyzer.Timeout),
	)
	if err != nil {
		return nil, nil, fmt.Errorf("init analyzer client failed: %w", err)
	}

	// 2. 扫描历史
	var scanRepo rpscan.ScanRepository = rpscan.NewMemoryScanRepository()
	if cfg.MySQL.Enabled() {
		db, err := mysql.Open(cfg.MySQL.DSN, cfg.MySQL.AutoMigrate)
		if err != nil {
			return nil, nil, fmt.Errorf("init database failed: %w", err)
		}
		sqlDB, err := db.DB()
		if err != nil {
			return nil, nil, fmt.Errorf("get sql.DB failed: %w", err)
		}
		cleanups = append(cleanups, func() { _ = sqlDB.Close() })
		scanRepo = rpscan.NewScanRepository(db)
		log.Infof(ctx, "database connected")
	}

	// 3. 状态通知
	var notifier mdnotify.Notifier = mdnotify.NewMemoryNotifier()
	if cfg.Redis.Enabled() {
		redisClient, err := redis.NewPubSubClient(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
		if err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("init redis failed: %w", err)
		}
		cleanups = append(cleanups, func() { _ = redisClient.Close() })
		notifier = mdnotify.NewRedisNotifier(redisClient)
		log.Infof(ctx, "redis connected")
	}

	// 4. 报告队列
	reportModule := mdreport.NewReportModule(nil, "")
	if cfg.Lmstfy.Enabled() {
		lmstfyClient := lmstfy.NewClient(cfg.Lmstfy.Host, cfg.Lmstfy.Port, cfg.Lmstfy.Namespace, cfg.Lmstfy.Token)
		reportModule = mdreport.NewReportModule(lmstfyClient, cfg.Lmstfy.ReportQueue)
		log.Infof(ctx, "lmstfy client initialized: queue=%s", cfg.Lmstfy.ReportQueue)
	}

	// 5. Service 层
	scanService := svscan.NewScanService(svscan.Modules{
		Intake:   mdintake.NewIntakeModule(cfg.Intake.MaxBytes, cfg.Intake.NoticeTTL),
		Previews: mdintake.NewPreviewRegistry(),
		Analysis: mdanalysis.NewAnalysisModule(analyzerClient, log),
		Progress: mdprogress.NewProgressModule(cfg.Progress.DetectingAfter, cfg.Progress.GeneratingAfter, cfg.Progress.SlowAfter),
		Notifier: notifier,
		Report:   reportModule,
		Repo:     scanRepo,
		Logger:   log,
	})
	cleanups = append(cleanups, scanService.Close)

	// 6. Handler 与路由
	if cfg.App.Env != "dev" {
		gin.SetMode(gin.ReleaseMode)
	}
	engine := routers.SetupRoutes(
		scan.NewScanHandler(scanService, cfg.Server.SubmitWait, cfg.Server.MaxSubmitWait, log),
		health.NewHealthHandler(cfg.App.Name, analyzerClient, log),
		cfg.Server.AllowOrigins,
		log,
	)

	return &App{Engine: engine, ScanService: scanService}, cleanup, nil
}
