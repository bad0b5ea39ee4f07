package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config 应用配置
type Config struct {
	App      AppConfig      `mapstructure:"app"`
	Server   ServerConfig   `mapstructure:"server"`
	Analyzer AnalyzerConfig `mapstructure:"analyzer"`
	Intake   IntakeConfig   `mapstructure:"intake"`
	Progress ProgressConfig `mapstructure:"progress"`
	Session  SessionConfig  `mapstructure:"session"`
	MySQL    MySQLConfig    `mapstructure:"mysql"`
	Redis    RedisConfig    `mapstructure:"redis"`
	Lmstfy   LmstfyConfig   `mapstructure:"lmstfy"`
	Report   ReportConfig   `mapstructure:"report"`
}

type AppConfig struct {
	Name     string `mapstructure:"name"`
	Env      string `mapstructure:"env"`
	LogLevel string `mapstructure:"log_level"`
}

type ServerConfig struct {
	Port            string        `mapstructure:"port"`
	SubmitWait      time.Duration `mapstructure:"submit_wait"`      // Smart Wait 默认等待时长
	MaxSubmitWait   time.Duration `mapstructure:"max_submit_wait"`  // 客户端可指定的上限
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"` // 优雅停机超时
	AllowOrigins    []string      `mapstructure:"allow_origins"`
}

type AnalyzerConfig struct {
	BaseURL    string        `mapstructure:"base_url"`
	Path       string        `mapstructure:"path"`
	APIKey     string        `mapstructure:"api_key"`
	ExpertMode bool          `mapstructure:"expert_mode"`
	Timeout    time.Duration `mapstructure:"timeout"`
}

type IntakeConfig struct {
	MaxBytes  int64         `mapstructure:"max_bytes"`
	NoticeTTL time.Duration `mapstructure:"notice_ttl"`
}

type ProgressConfig struct {
	DetectingAfter  time.Duration `mapstructure:"detecting_after"`
	GeneratingAfter time.Duration `mapstructure:"generating_after"`
	SlowAfter       time.Duration `mapstructure:"slow_after"`
}

type SessionConfig struct {
	MaxIdle       time.Duration `mapstructure:"max_idle"`
	SweepInterval time.Duration `mapstructure:"sweep_interval"`
}

type MySQLConfig struct {
	DSN         string `mapstructure:"dsn"`
	AutoMigrate bool   `mapstructure:"auto_migrate"`
}

type RedisConfig struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

type LmstfyConfig struct {
	Host        string `mapstructure:"host"`
	Port        int    `mapstructure:"port"`
	Namespace   string `mapstructure:"namespace"`
	ReportQueue string `mapstructure:"report_queue"`
	Token       string `mapstructure:"token"`
}

type ReportConfig struct {
	OutputDir string        `mapstructure:"output_dir"`
	Timeout   time.Duration `mapstructure:"timeout"` // 拉取消息超时
	TTR       time.Duration `mapstructure:"ttr"`     // Time-To-Run
	Backoff   time.Duration `mapstructure:"backoff"` // 拉取失败后的等待
}

// Enabled 是否配置了 MySQL
func (c MySQLConfig) Enabled() bool { return c.DSN != "" }

// Enabled 是否配置了 Redis
func (c RedisConfig) Enabled() bool { return c.Addr != "" }

// Enabled 是否配置了报告队列
func (c LmstfyConfig) Enabled() bool { return c.Host != "" && c.ReportQueue != "" }

// Load 从配置文件加载配置
// 1. 读取 .env（可选）
// 2. 填充默认值
// 3. 读取 YAML（文件不存在时只使用默认值与环境变量）
// 4. 环境变量覆盖，例如 ANALYZER_BASE_URL
func Load(configPath string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("load .env failed: %w", err)
	}

	v := viper.New()
	setDefaults(v)

	v.SetConfigFile(configPath)
	v.SetConfigType("yaml")
	if err := v.ReadInConfig(); err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return nil, fmt.Errorf("read config failed: %w", err)
			}
		}
	}

	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config failed: %w", err)
	}
	return &cfg, nil
}

// LoadDefault 加载默认配置文件路径
func LoadDefault() (*Config, error) {
	return Load("config/config.yaml")
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("app.name", "leafsense")
	v.SetDefault("app.env", "dev")
	v.SetDefault("app.log_level", "info")

	v.SetDefault("server.port", "8080")
	v.SetDefault("server.submit_wait", 8*time.Second)
	v.SetDefault("server.max_submit_wait", 30*time.Second)
	v.SetDefault("server.shutdown_timeout", 10*time.Second)
	v.SetDefault("server.allow_origins", []string{"*"})

	// 绑定 env key，使 AutomaticEnv 在无 YAML 时也能覆盖
	v.SetDefault("analyzer.base_url", "")
	v.SetDefault("analyzer.path", "/predict")
	v.SetDefault("analyzer.api_key", "")
	v.SetDefault("analyzer.expert_mode", false)
	v.SetDefault("analyzer.timeout", 60*time.Second)

	v.SetDefault("intake.max_bytes", 5*1024*1024)
	v.SetDefault("intake.notice_ttl", 3*time.Second)

	v.SetDefault("progress.detecting_after", 800*time.Millisecond)
	v.SetDefault("progress.generating_after", 2*time.Second)
	v.SetDefault("progress.slow_after", 5*time.Second)

	v.SetDefault("session.max_idle", 30*time.Minute)
	v.SetDefault("session.sweep_interval", time.Minute)

	v.SetDefault("mysql.dsn", "")
	v.SetDefault("mysql.auto_migrate", true)

	v.SetDefault("redis.addr", "")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)

	v.SetDefault("lmstfy.host", "")
	v.SetDefault("lmstfy.port", 7777)
	v.SetDefault("lmstfy.namespace", "leafsense")
	v.SetDefault("lmstfy.report_queue", "")
	v.SetDefault("lmstfy.token", "")

	v.SetDefault("report.output_dir", "reports")
	v.SetDefault("report.timeout", 3*time.Second)
	v.SetDefault("report.ttr", 30*time.Second)
	v.SetDefault("report.backoff", time.Second)
}

// Validate 验证配置完整性
func (c *Config) Validate() error {
	if c.Analyzer.BaseURL == "" {
		return fmt.Errorf("analyzer base_url is required")
	}
	if c.Intake.MaxBytes <= 0 {
		return fmt.Errorf("intake max_bytes must be positive")
	}
	if c.Session.SweepInterval <= 0 || c.Session.MaxIdle <= 0 {
		return fmt.Errorf("session sweep_interval and max_idle must be positive")
	}
	if c.Server.SubmitWait > c.Server.MaxSubmitWait {
		return fmt.Errorf("server submit_wait exceeds max_submit_wait")
	}
	if c.Lmstfy.Host != "" && c.Lmstfy.Token == "" {
		return fmt.Errorf("lmstfy token is required")
	}
	return nil
}

// ValidateWorker 报告 worker 额外要求队列配置
func (c *Config) ValidateWorker() error {
	if !c.Lmstfy.Enabled() {
		return fmt.Errorf("lmstfy host and report_queue are required")
	}
	if c.Lmstfy.Token == "" {
		return fmt.Errorf("lmstfy token is required")
	}
	if c.Report.OutputDir == "" {
		return fmt.Errorf("report output_dir is required")
	}
	return nil
}
