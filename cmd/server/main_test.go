package main

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/crickbet/wager-engine/internal/account"
	"github.com/crickbet/wager-engine/internal/model"
	"github.com/crickbet/wager-engine/internal/store"
	"github.com/crickbet/wager-engine/internal/wager"
)

func newSnapshotEnv(t *testing.T) (*wager.Service, string) {
	t.Helper()
	svc := wager.NewService(
		store.NewMemoryStore(),
		account.NewMemoryStore(decimal.NewFromInt(1000), decimal.NewFromInt(5)),
		nil,
	)
	return svc, filepath.Join(t.TempDir(), "state.json")
}

func TestSnapshot_SaveRestoreRoundTrip(t *testing.T) {
	svc, path := newSnapshotEnv(t)
	ctx := context.Background()

	if _, err := svc.PlaceStake(ctx, "alice", "OU-14", "over", decimal.NewFromInt(20)); err != nil {
		t.Fatalf("stake failed: %v", err)
	}
	if err := saveSnapshot(svc, path); err != nil {
		t.Fatalf("save failed: %v", err)
	}

	fresh, _ := newSnapshotEnv(t)
	if err := restoreSnapshot(fresh, path); err != nil {
		t.Fatalf("restore failed: %v", err)
	}

	records, err := fresh.StakesForMarket(ctx, "OU-14")
	if err != nil {
		t.Fatalf("stakes lookup failed: %v", err)
	}
	if len(records) != 1 {
		t.Fatalf("expected 1 restored record, got %d", len(records))
	}
	if !records[0].Amount.Equal(decimal.NewFromInt(20)) {
		t.Errorf("expected restored amount 20, got %s", records[0].Amount)
	}
}

func TestRestoreSnapshot_MissingFileStartsEmpty(t *testing.T) {
	svc, path := newSnapshotEnv(t)
	if err := restoreSnapshot(svc, path); err != nil {
		t.Errorf("missing snapshot file should not be an error: %v", err)
	}
}

func TestSnapshotLoop_StoppedBeforeFinalSave(t *testing.T) {
	// The loop must be fully drained before the final shutdown save so
	// the two never race on the shared temp file.
	svc, path := newSnapshotEnv(t)

	stop := make(chan struct{})
	done := make(chan struct{})
	go runSnapshotLoop(svc, path, 5*time.Millisecond, stop, done)

	time.Sleep(25 * time.Millisecond)
	close(stop)
	<-done // no tick can fire past this point

	if err := saveSnapshot(svc, path); err != nil {
		t.Fatalf("final save failed: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("snapshot file missing: %v", err)
	}
	var snap model.Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		t.Errorf("snapshot file is not valid JSON: %v", err)
	}
	if _, err := os.Stat(path + ".tmp"); !os.IsNotExist(err) {
		t.Errorf("temp file left behind after save")
	}
}
