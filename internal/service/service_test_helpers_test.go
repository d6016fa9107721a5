package service

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/bongbari/internal/db"
	"github.com/bongbari/internal/moderation"
	"github.com/bongbari/internal/ratelimit"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func setupServiceTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:service-%d?mode=memory&cache=shared", time.Now().UnixNano())
	gdb, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	if err != nil {
		t.Fatalf("failed to open test database: %v", err)
	}
	if err := db.Migrate(gdb); err != nil {
		t.Fatalf("failed to migrate test database: %v", err)
	}
	t.Cleanup(func() {
		if sqlDB, err := gdb.DB(); err == nil {
			sqlDB.Close()
		}
	})
	return gdb
}

type staticPolicy Policy

func (p staticPolicy) GetPolicy(context.Context) (Policy, error) {
	return Policy(p), nil
}

func newTestSubmissionService(t *testing.T, gdb *gorm.DB, policy Policy, limit ratelimit.Policy) *SubmissionService {
	t.Helper()
	limiter := ratelimit.NewLimiter(ratelimit.NewMemoryStore(), limit)
	return NewSubmissionService(gdb, moderation.NewClassifier(moderation.DefaultLexicon()), limiter, staticPolicy(policy), nil)
}

func requireKind(t *testing.T, err error, kind ErrorKind) {
	t.Helper()
	if err == nil {
		t.Fatalf("expected %s error, got nil", kind)
	}
	if got := KindOf(err); got != kind {
		t.Fatalf("expected %s error, got %s (%v)", kind, got, err)
	}
}
