//go:build sqlite

package storage

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/NikolayNebudi/neuro-miner/internal/model"
)

func openSQLite(t *testing.T) *SQLiteStore {
	t.Helper()

	store := NewSQLiteStore(filepath.Join(t.TempDir(), "neurominer.db"))
	if err := store.Init(context.Background()); err != nil {
		t.Fatalf("init: %v", err)
	}
	t.Cleanup(func() {
		_ = store.Close()
	})
	return store
}

func TestSQLiteStoreCheckpoints(t *testing.T) {
	ctx := context.Background()
	store := openSQLite(t)

	for _, c := range []model.Checkpoint{
		checkpointAt("run-1", 0, model.CheckpointBest, 10),
		checkpointAt("run-1", 2, model.CheckpointBest, 50),
		checkpointAt("run-1", 2, model.CheckpointBest, 60),
		checkpointAt("run-1", 1, model.CheckpointPeriodic, 20),
	} {
		if err := store.SaveCheckpoint(ctx, c); err != nil {
			t.Fatalf("save checkpoint: %v", err)
		}
	}

	best, ok, err := store.GetBestCheckpoint(ctx, "run-1")
	if err != nil || !ok {
		t.Fatalf("get best: ok=%t err=%v", ok, err)
	}
	if best.Generation != 2 || best.Individual.Fitness != 60 {
		t.Fatalf("unexpected best checkpoint: %+v", best)
	}

	list, err := store.ListCheckpoints(ctx, "run-1")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(list) != 3 {
		t.Fatalf("expected 3 checkpoints after upsert, got %d", len(list))
	}

	if _, ok, err := store.GetBestCheckpoint(ctx, "other"); err != nil || ok {
		t.Fatalf("expected no checkpoint for other run, ok=%t err=%v", ok, err)
	}
}

func TestSQLiteStorePopulationAndHistory(t *testing.T) {
	ctx := context.Background()
	store := openSQLite(t)

	snapshot := model.PopulationSnapshot{
		VersionedRecord: Stamp(),
		RunID:           "run-1",
		Generation:      4,
		Individuals: []model.Individual{
			{ID: "a", Genome: []float64{0.1, 0.2}, Fitness: 3, Evaluated: true},
			{ID: "b", Genome: []float64{0.3, 0.4}},
		},
		Mutation: model.MutationState{Rate: 0.1, Strength: 0.3},
	}
	if err := store.SavePopulation(ctx, snapshot); err != nil {
		t.Fatalf("save population: %v", err)
	}
	loaded, ok, err := store.GetPopulation(ctx, "run-1")
	if err != nil || !ok {
		t.Fatalf("get population: ok=%t err=%v", ok, err)
	}
	if diff := cmp.Diff(snapshot, loaded); diff != "" {
		t.Fatalf("population mismatch (-want +got):\n%s", diff)
	}

	if err := store.SaveFitnessHistory(ctx, "run-1", []float64{1, 2}); err != nil {
		t.Fatalf("save history: %v", err)
	}
	if err := store.SaveFitnessHistory(ctx, "run-1", []float64{1, 2, 3}); err != nil {
		t.Fatalf("overwrite history: %v", err)
	}
	history, ok, err := store.GetFitnessHistory(ctx, "run-1")
	if err != nil || !ok {
		t.Fatalf("get history: ok=%t err=%v", ok, err)
	}
	if diff := cmp.Diff([]float64{1, 2, 3}, history); diff != "" {
		t.Fatalf("history mismatch (-want +got):\n%s", diff)
	}

	lineage := []model.LineageRecord{{VersionedRecord: Stamp(), IndividualID: "a", Generation: 4, Operation: "seed"}}
	if err := store.SaveLineage(ctx, "run-1", lineage); err != nil {
		t.Fatalf("save lineage: %v", err)
	}
	gotLineage, ok, err := store.GetLineage(ctx, "run-1")
	if err != nil || !ok {
		t.Fatalf("get lineage: ok=%t err=%v", ok, err)
	}
	if diff := cmp.Diff(lineage, gotLineage); diff != "" {
		t.Fatalf("lineage mismatch (-want +got):\n%s", diff)
	}
}

func TestNewStoreSQLite(t *testing.T) {
	store, err := NewStore("sqlite", filepath.Join(t.TempDir(), "factory.db"))
	if err != nil {
		t.Fatalf("new sqlite store: %v", err)
	}
	if err := store.Init(context.Background()); err != nil {
		t.Fatalf("init: %v", err)
	}
	if err := CloseIfSupported(store); err != nil {
		t.Fatalf("close: %v", err)
	}
}
