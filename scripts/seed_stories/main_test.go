package main

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/bongbari/internal/db"
	"github.com/bongbari/internal/moderation"
	"github.com/bongbari/internal/ratelimit"
	"github.com/bongbari/internal/service"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func setupSeedTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:seed-%d?mode=memory&cache=shared", time.Now().UnixNano())
	gdb, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	if err != nil {
		t.Fatalf("failed to open test db: %v", err)
	}
	if err := db.Migrate(gdb); err != nil {
		t.Fatalf("failed to migrate: %v", err)
	}
	t.Cleanup(func() {
		if sqlDB, err := gdb.DB(); err == nil {
			sqlDB.Close()
		}
	})
	return gdb
}

func TestSeedStoriesSplitsCleanAndFlagged(t *testing.T) {
	gdb := setupSeedTestDB(t)
	limiter := ratelimit.NewLimiter(ratelimit.NewMemoryStore(), ratelimit.Policy{MaxSubmissions: 10, Window: time.Hour, Cooldown: time.Minute})
	settings := service.NewSettingService(gdb, service.Policy{AutoPublishClean: true})
	svc := service.NewSubmissionService(gdb, moderation.NewClassifier(moderation.DefaultLexicon()), limiter, settings, nil)

	published, pending, err := seedStories(context.Background(), svc)
	if err != nil {
		t.Fatalf("seed failed: %v", err)
	}
	if published != 4 || pending != 2 {
		t.Fatalf("expected 4 published and 2 pending, got %d and %d", published, pending)
	}

	var stories int64
	if err := gdb.Model(&db.Story{}).Count(&stories).Error; err != nil {
		t.Fatalf("count stories: %v", err)
	}
	if stories != int64(published) {
		t.Fatalf("expected %d stories, got %d", published, stories)
	}
}
