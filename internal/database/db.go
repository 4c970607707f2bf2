package database

import (
	"fmt"

	"helpdesk/internal/config"
	"helpdesk/internal/model"

	"go.uber.org/zap"
	"gorm.io/driver/mysql"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// NewConnection opens a GORM pool for the configured driver and migrates the schema
func NewConnection(cfg config.DatabaseConfig, log *zap.Logger) (*gorm.DB, error) {
	var dialector gorm.Dialector
	switch cfg.Driver {
	case "mysql":
		dialector = mysql.Open(cfg.DSN())
	case "postgres":
		dialector = postgres.Open(cfg.DSN())
	default:
		return nil, fmt.Errorf("unsupported database driver %q", cfg.Driver)
	}

	return Open(dialector, log)
}

// Open connects through dialector and refuses to hand out a pool whose schema
// could not be migrated.
func Open(dialector gorm.Dialector, log *zap.Logger) (*gorm.DB, error) {
	db, err := gorm.Open(dialector, &gorm.Config{
		// maps unique violations to gorm.ErrDuplicatedKey
		TranslateError: true,
		Logger:         gormlogger.Default.LogMode(gormlogger.Warn),
	})
	if err != nil {
		return nil, err
	}

	if err := Migrate(db); err != nil {
		return nil, fmt.Errorf("auto-migrate: %w", err)
	}
	if err := VerifySchema(db); err != nil {
		return nil, err
	}
	log.Debug("database schema ready")

	return db, nil
}

// Migrate creates or updates the helpdesk tables
func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&model.User{},
		&model.Channel{},
		&model.Chat{},
		&model.AuditLog{},
	)
}

// ChatSequenceIndex backs the gapless per-channel ordering across processes
const ChatSequenceIndex = "idx_chat_channel_seq"

// VerifySchema fails when the unique (channel_id, sequence) index is missing
func VerifySchema(db *gorm.DB) error {
	if !db.Migrator().HasIndex(&model.Chat{}, ChatSequenceIndex) {
		return fmt.Errorf("missing unique index %s on chats", ChatSequenceIndex)
	}
	return nil
}
