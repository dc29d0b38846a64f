package maintenance

import (
	"context"
	"fmt"
	"testing"

	"chatsync/pkg/config"
	"chatsync/pkg/models"
	"chatsync/pkg/store"
)

func TestStartRejectsInvalidCron(t *testing.T) {
	_, err := Start(context.Background(), config.MaintenanceConfig{Enabled: true, Cron: "not a cron"})
	if err == nil {
		t.Fatal("invalid cron must fail startup")
	}
}

func TestStartDisabledIsNoOp(t *testing.T) {
	cancel, err := Start(context.Background(), config.MaintenanceConfig{})
	if err != nil {
		t.Fatalf("disabled start: %v", err)
	}
	cancel()
}

func TestRunOnceSweepsOversizedHistories(t *testing.T) {
	if err := store.Open(t.TempDir()); err != nil {
		t.Fatalf("open: %v", err)
	}
	t.Cleanup(func() {
		_ = store.Close()
		store.SetHistoryCap(100)
	})

	key := models.ConversationKey{LocalUserID: "me", CounterpartID: "alice"}
	for i := 0; i < 20; i++ {
		if err := store.Persist(key, models.Message{ID: fmt.Sprintf("m%02d", i), Author: models.Author{ID: "me"}, Body: "x"}); err != nil {
			t.Fatalf("persist: %v", err)
		}
	}

	store.SetHistoryCap(5)
	if err := RunOnce(config.MaintenanceConfig{Enabled: true}); err != nil {
		t.Fatalf("sweep: %v", err)
	}
	history, err := store.LoadHistory(key)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(history) != 5 {
		t.Fatalf("expected history of 5 after sweep, got %d", len(history))
	}
}

func TestRunOnceDryRunLeavesDataAlone(t *testing.T) {
	if err := store.Open(t.TempDir()); err != nil {
		t.Fatalf("open: %v", err)
	}
	t.Cleanup(func() {
		_ = store.Close()
		store.SetHistoryCap(100)
	})

	key := models.ConversationKey{LocalUserID: "me", CounterpartID: "bob"}
	for i := 0; i < 10; i++ {
		_ = store.Persist(key, models.Message{ID: fmt.Sprintf("m%d", i), Author: models.Author{ID: "me"}, Body: "x"})
	}

	store.SetHistoryCap(3)
	if err := RunOnce(config.MaintenanceConfig{Enabled: true, DryRun: true}); err != nil {
		t.Fatalf("sweep: %v", err)
	}
	history, _ := store.LoadHistory(key)
	if len(history) != 10 {
		t.Fatalf("dry run must not trim, got %d", len(history))
	}
}
