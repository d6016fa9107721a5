package service

import (
	"context"
	"testing"

	"github.com/bongbari/internal/db"
)

func TestSettingServiceDefaults(t *testing.T) {
	svc := NewSettingService(setupServiceTestDB(t), Policy{AutoPublishClean: true})

	policy, err := svc.GetPolicy(context.Background())
	if err != nil {
		t.Fatalf("get policy failed: %v", err)
	}
	if !policy.AutoPublishClean || policy.ChatbotEnabled {
		t.Fatalf("unexpected defaults: %+v", policy)
	}
}

func TestSettingServiceUpdatePersists(t *testing.T) {
	gdb := setupServiceTestDB(t)
	svc := NewSettingService(gdb, Policy{AutoPublishClean: true})
	ctx := context.Background()

	off := false
	policy, err := svc.UpdatePolicy(ctx, PolicyInput{AutoPublishClean: &off})
	if err != nil {
		t.Fatalf("update failed: %v", err)
	}
	if policy.AutoPublishClean {
		t.Fatalf("expected auto publish off")
	}

	on := true
	if _, err := svc.UpdatePolicy(ctx, PolicyInput{ChatbotEnabled: &on}); err != nil {
		t.Fatalf("second update failed: %v", err)
	}
	if _, err := svc.UpdatePolicy(ctx, PolicyInput{AutoPublishClean: &off}); err != nil {
		t.Fatalf("repeat update failed: %v", err)
	}

	reloaded, err := NewSettingService(gdb, Policy{AutoPublishClean: true}).GetPolicy(ctx)
	if err != nil {
		t.Fatalf("reload failed: %v", err)
	}
	if reloaded.AutoPublishClean || !reloaded.ChatbotEnabled {
		t.Fatalf("stored policy not applied: %+v", reloaded)
	}

	var count int64
	gdb.Model(&db.SystemSetting{}).Count(&count)
	if count != 2 {
		t.Fatalf("expected one row per key, got %d", count)
	}
}

func TestSettingServiceRejectsEmptyUpdate(t *testing.T) {
	svc := NewSettingService(setupServiceTestDB(t), Policy{})

	_, err := svc.UpdatePolicy(context.Background(), PolicyInput{})

	requireKind(t, err, KindValidation)
}

func TestSettingServiceIgnoresGarbageValues(t *testing.T) {
	gdb := setupServiceTestDB(t)
	if err := gdb.Create(&db.SystemSetting{Key: db.SettingKeyAutoPublishClean, Value: "maybe"}).Error; err != nil {
		t.Fatalf("seed setting: %v", err)
	}

	policy, err := NewSettingService(gdb, Policy{AutoPublishClean: true}).GetPolicy(context.Background())
	if err != nil {
		t.Fatalf("get policy failed: %v", err)
	}
	if !policy.AutoPublishClean {
		t.Fatalf("unparsable value must fall back to the default")
	}
}
