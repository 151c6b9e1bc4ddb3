// Package store persists chats, messages and favorites with gorm.
package store

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/glebarez/sqlite"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/zhouzirui/heartnote/backend/internal/config"
	"github.com/zhouzirui/heartnote/backend/internal/model/chat"
)

var (
	ErrChatNotFound     = errors.New("chat not found")
	ErrMessageNotFound  = errors.New("message not found")
	ErrFavoriteConflict = errors.New("favorite already exists")
	ErrUnavailable      = errors.New("store unavailable")
	ErrInvalidAuthor    = errors.New("invalid message author")
)

// SQLite allows this many bound parameters per statement on old builds.
const maxInParams = 500

// Store wraps the gorm handle shared by every request.
type Store struct {
	db *gorm.DB
}

// New wraps an already opened gorm handle.
func New(db *gorm.DB) *Store {
	return &Store{db: db}
}

// Open connects to the configured database and migrates the schema.
func Open(ctx context.Context, cfg config.DatabaseConfig) (*Store, error) {
	var dialector gorm.Dialector
	switch cfg.Driver {
	case config.DriverSQLite, "":
		dialector = sqlite.Open(sqliteDSN(cfg.DSN))
	case config.DriverMySQL:
		dialector = mysql.Open(cfg.DSN)
	default:
		return nil, fmt.Errorf("unsupported database driver %q", cfg.Driver)
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		TranslateError: true,
		Logger:         gormlogger.Default.LogMode(gormlogger.Warn),
	})
	if err != nil {
		return nil, fmt.Errorf("open database: %w: %w", ErrUnavailable, err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("get sql handle: %w", err)
	}
	if cfg.Driver != config.DriverMySQL {
		// SQLite serialises writers anyway; one connection avoids SQLITE_BUSY.
		sqlDB.SetMaxOpenConns(1)
	}
	if err := sqlDB.PingContext(ctx); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("ping database: %w: %w", ErrUnavailable, err)
	}

	s := New(db)
	if err := s.AutoMigrate(); err != nil {
		_ = sqlDB.Close()
		return nil, err
	}
	return s, nil
}

func sqliteDSN(dsn string) string {
	if strings.Contains(dsn, "_pragma=") {
		return dsn
	}
	sep := "?"
	if strings.Contains(dsn, "?") {
		sep = "&"
	}
	return dsn + sep + "_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)&_pragma=foreign_keys(1)"
}

// AutoMigrate creates database tables
func (s *Store) AutoMigrate() error {
	if err := s.db.AutoMigrate(&chat.Chat{}, &chat.Message{}, &chat.Favorite{}); err != nil {
		return fmt.Errorf("migrate schema: %w", err)
	}
	return nil
}

// Ping checks that the database answers.
func (s *Store) Ping(ctx context.Context) error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return unavailable("ping", err)
	}
	if err := sqlDB.PingContext(ctx); err != nil {
		return unavailable("ping", err)
	}
	return nil
}

// Close releases the underlying connection pool.
func (s *Store) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

func unavailable(op string, err error) error {
	return fmt.Errorf("%s: %w: %w", op, ErrUnavailable, err)
}

// chunk splits ids so IN clauses stay under maxInParams.
func chunk(ids []string) [][]string {
	var out [][]string
	for len(ids) > maxInParams {
		out = append(out, ids[:maxInParams])
		ids = ids[maxInParams:]
	}
	if len(ids) > 0 {
		out = append(out, ids)
	}
	return out
}
