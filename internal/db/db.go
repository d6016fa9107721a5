package db

import (
	"errors"
	"os"
	"path/filepath"
	"strings"

	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// DB is the process-wide connection used by the bootstrap scripts.
// Services receive their *gorm.DB explicitly.
var DB *gorm.DB

const defaultDatabasePath = "bongbari.db"

// Options selects the database backend.
type Options struct {
	// URL is a postgres:// DSN. When empty, Path is used with SQLite.
	URL    string
	Path   string
	Silent bool
}

// Open connects to Postgres when a postgres URL is given, otherwise to a
// SQLite file (created with its parent directory on demand).
func Open(opts Options) (*gorm.DB, error) {
	cfg := &gorm.Config{}
	if opts.Silent {
		cfg.Logger = logger.Default.LogMode(logger.Silent)
	}

	if url := strings.TrimSpace(opts.URL); IsPostgresURL(url) {
		return gorm.Open(postgres.Open(url), cfg)
	}

	path := strings.TrimSpace(opts.Path)
	if path == "" {
		path = defaultDatabasePath
	}
	if err := ensureParentDir(path); err != nil {
		return nil, err
	}
	return gorm.Open(sqlite.Open(path), cfg)
}

// IsPostgresURL reports whether the DSN targets Postgres (Neon included).
func IsPostgresURL(url string) bool {
	lowered := strings.ToLower(strings.TrimSpace(url))
	return strings.HasPrefix(lowered, "postgres://") || strings.HasPrefix(lowered, "postgresql://")
}

// Init opens the database, runs migrations and stores the handle in DB.
func Init(opts Options) error {
	gdb, err := Open(opts)
	if err != nil {
		return err
	}
	if err := Migrate(gdb); err != nil {
		return err
	}
	DB = gdb
	return nil
}

// Migrate creates or updates every table the pipeline owns.
func Migrate(gdb *gorm.DB) error {
	if gdb == nil {
		return errors.New("database not initialized")
	}
	return gdb.AutoMigrate(
		&User{},
		&PendingPost{},
		&Story{},
		&ModerationAudit{},
		&RateLimitRecord{},
		&SystemSetting{},
	)
}

func ensureParentDir(path string) error {
	if strings.HasPrefix(path, "file:") || path == ":memory:" {
		return nil
	}

	dir := filepath.Dir(path)
	if dir == "." || dir == "" {
		return nil
	}

	info, err := os.Stat(dir)
	if err == nil {
		if !info.IsDir() {
			return errors.New("database path parent is not a directory")
		}
		return nil
	}

	if os.IsNotExist(err) {
		return os.MkdirAll(dir, 0o755)
	}

	return err
}
