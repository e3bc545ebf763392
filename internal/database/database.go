package database

import (
	"fmt"
	"time"

	"github.com/wanxtv/wanx/backend/internal/config"
	"github.com/wanxtv/wanx/backend/internal/logger"
	"github.com/wanxtv/wanx/backend/internal/models"
	"github.com/wanxtv/wanx/backend/internal/telemetry"
	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// DB holds the database connection
var DB *gorm.DB

// Initialize opens the configured database, sizes the pool and installs the tracing plugin.
func Initialize(cfg config.DatabaseConfig, development bool) error {
	var dialector gorm.Dialector
	switch cfg.Driver {
	case "sqlite":
		dialector = sqlite.Open(cfg.DSN())
	default:
		dialector = postgres.Open(cfg.DSN())
	}

	gormLogger := gormlogger.Default.LogMode(gormlogger.Warn)
	if development {
		gormLogger = gormlogger.Default.LogMode(gormlogger.Info)
	}

	db, err := Open(dialector, gormLogger)
	if err != nil {
		return err
	}

	sqlDB, err := db.DB()
	if err != nil {
		return fmt.Errorf("failed to get underlying sql.DB: %w", err)
	}
	if cfg.Driver == "sqlite" {
		// sqlite serialises writers; more connections only produce SQLITE_BUSY
		sqlDB.SetMaxOpenConns(1)
	} else {
		sqlDB.SetMaxIdleConns(10)
		sqlDB.SetMaxOpenConns(100)
		sqlDB.SetConnMaxLifetime(time.Hour)
	}

	DB = db
	logger.Log.Info("Database connected", zap.String("driver", cfg.Driver))
	return nil
}

// Open connects through dialector and installs the tracing plugin. Tests use it
// with an in-memory sqlite dialector.
func Open(dialector gorm.Dialector, gormLogger gormlogger.Interface) (*gorm.DB, error) {
	if gormLogger == nil {
		gormLogger = gormlogger.Default.LogMode(gormlogger.Silent)
	}
	db, err := gorm.Open(dialector, &gorm.Config{
		Logger:         gormLogger,
		TranslateError: true,
		NowFunc: func() time.Time {
			return time.Now().UTC()
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	if err := db.Use(telemetry.GORMTracingPlugin()); err != nil {
		return nil, fmt.Errorf("failed to install tracing plugin: %w", err)
	}
	return db, nil
}

// Migrate runs auto-migration for all models on DB
func Migrate() error {
	if DB == nil {
		return fmt.Errorf("database not initialized")
	}
	return MigrateDB(DB)
}

// MigrateDB auto-migrates all models on db and creates the feed indexes
func MigrateDB(db *gorm.DB) error {
	if err := db.AutoMigrate(models.All()...); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}
	if err := createIndexes(db); err != nil {
		return fmt.Errorf("failed to create indexes: %w", err)
	}
	logger.Log.Info("Database migrations completed")
	return nil
}

// createIndexes adds the descending keyset indexes the feed sources scan.
// Composite ascending indexes come from model tags.
func createIndexes(db *gorm.DB) error {
	statements := []string{
		"CREATE INDEX IF NOT EXISTS idx_videos_status_create_at ON videos (status, create_at DESC)",
		"CREATE INDEX IF NOT EXISTS idx_videos_elite_release ON videos (is_elite, release_time DESC)",
		"CREATE INDEX IF NOT EXISTS idx_videos_author_game_create_at ON videos (author, game, create_at DESC)",
		"CREATE INDEX IF NOT EXISTS idx_videos_event_create_at ON videos (event_id, create_at DESC)",
		"CREATE INDEX IF NOT EXISTS idx_videos_status_update_at ON videos (status, update_at)",
		"CREATE INDEX IF NOT EXISTS idx_comments_video_create_desc ON comments (video, create_at DESC)",
		"CREATE INDEX IF NOT EXISTS idx_replies_comment_create_desc ON replies (comment, create_at DESC)",
	}
	for _, stmt := range statements {
		if err := db.Exec(stmt).Error; err != nil {
			return err
		}
	}
	return nil
}

// Close closes the database connection
func Close() error {
	if DB == nil {
		return nil
	}
	sqlDB, err := DB.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// Health checks database connectivity
func Health() error {
	if DB == nil {
		return fmt.Errorf("database not initialized")
	}
	sqlDB, err := DB.DB()
	if err != nil {
		return err
	}
	return sqlDB.Ping()
}
