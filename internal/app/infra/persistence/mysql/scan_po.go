package mysql

import (
	"fmt"
	"time"

	"gorm.io/datatypes"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// Scan 扫描历史表（包含完整分析结果）
type Scan struct {
	// 基础字段
	ID        string `gorm:"column:id;primaryKey;type:varchar(64)"`
	SessionID string `gorm:"column:session_id;type:varchar(64);not null;index:idx_session"`
	Filename  string `gorm:"column:filename;type:varchar(255)"`

	// 检索字段
	Crop       string  `gorm:"column:crop;type:varchar(64)"`
	Diagnosis  string  `gorm:"column:diagnosis;type:varchar(128)"`
	Confidence float64 `gorm:"column:confidence"`
	Severity   string  `gorm:"column:severity;type:varchar(32)"`

	// 完整结果
	Result     datatypes.JSON `gorm:"column:result;type:json;not null"`
	ReportPath string         `gorm:"column:report_path;type:varchar(512)"`

	// 时间戳
	CreatedAt time.Time `gorm:"column:created_at;not null;index:idx_created_at"`
	UpdatedAt time.Time `gorm:"column:updated_at;not null"`
}

// TableName 指定表名
func (Scan) TableName() string {
	return "scans"
}

// Open 连接 MySQL，autoMigrate 为 true 时同步表结构
func Open(dsn string, autoMigrate bool) (*gorm.DB, error) {
	db, err := gorm.Open(mysql.Open(dsn), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Warn),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	if autoMigrate {
		if err := db.AutoMigrate(&Scan{}); err != nil {
			return nil, fmt.Errorf("failed to migrate scans table: %w", err)
		}
	}
	return db, nil
}
