package storage

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/NikolayNebudi/neuro-miner/internal/model"
)

func TestDecodeCheckpointFixture(t *testing.T) {
	data, err := os.ReadFile(fixturePath("checkpoint_v1.json"))
	if err != nil {
		t.Fatalf("read fixture: %v", err)
	}

	checkpoint, err := DecodeCheckpoint(data)
	if err != nil {
		t.Fatalf("decode fixture: %v", err)
	}
	if checkpoint.RunID != "run-fixture" || checkpoint.Generation != 7 {
		t.Fatalf("unexpected checkpoint header: %+v", checkpoint)
	}
	if checkpoint.Individual.Fitness != 412.5 || !checkpoint.Individual.Evaluated {
		t.Fatalf("unexpected individual: %+v", checkpoint.Individual)
	}
	if diff := cmp.Diff([]string{"ind-6-1", "ind-6-4"}, checkpoint.Individual.ParentIDs); diff != "" {
		t.Fatalf("parent ids mismatch (-want +got):\n%s", diff)
	}
	if checkpoint.Provenance.Scape != "network-echo" || checkpoint.Provenance.Seed != 42 {
		t.Fatalf("unexpected provenance: %+v", checkpoint.Provenance)
	}
}

func TestDecodeCheckpointRejectsOldSchema(t *testing.T) {
	data, err := os.ReadFile(fixturePath("checkpoint_v0.json"))
	if err != nil {
		t.Fatalf("read fixture: %v", err)
	}
	if _, err := DecodeCheckpoint(data); !errors.Is(err, ErrVersionMismatch) {
		t.Fatalf("expected version mismatch, got %v", err)
	}
}

func TestDecodeLineageRejectsVersionMismatch(t *testing.T) {
	payload, err := EncodeLineage([]model.LineageRecord{{
		VersionedRecord: model.VersionedRecord{SchemaVersion: 99, CodecVersion: CurrentCodecVersion},
		IndividualID:    "ind-1",
	}})
	if err != nil {
		t.Fatalf("encode lineage: %v", err)
	}
	if _, err := DecodeLineage(payload); !errors.Is(err, ErrVersionMismatch) {
		t.Fatalf("expected version mismatch, got %v", err)
	}
}

func TestCheckpointFileRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", BestCheckpointFile)
	want := model.Checkpoint{
		RunID:      "run-1",
		Generation: 3,
		Reason:     model.CheckpointBest,
		Individual: model.Individual{
			ID:            "ind-3-0",
			Genome:        []float64{0.25, -0.75},
			LayoutVersion: 1,
			Fitness:       120,
			Evaluated:     true,
			GamesPlayed:   2,
			Generation:    3,
		},
		Mutation:   model.MutationState{Rate: 0.1, Strength: 0.2},
		Provenance: model.Provenance{Seed: 9, CreatedAt: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)},
	}
	if err := WriteCheckpointFile(path, want); err != nil {
		t.Fatalf("write checkpoint: %v", err)
	}

	got, err := LoadCheckpointFile(path)
	if err != nil {
		t.Fatalf("load checkpoint: %v", err)
	}
	want.VersionedRecord = Stamp()
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("checkpoint mismatch (-want +got):\n%s", diff)
	}

	entries, err := os.ReadDir(filepath.Dir(path))
	if err != nil {
		t.Fatalf("read dir: %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("expected only the checkpoint file, got %d entries", len(entries))
	}
}

func TestLoadCheckpointFileMissing(t *testing.T) {
	if _, err := LoadCheckpointFile(filepath.Join(t.TempDir(), "absent.json")); !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("expected not-exist error, got %v", err)
	}
}

func TestPopulationFileRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), PopulationFile)
	best := model.Individual{ID: "g1-i0", Genome: []float64{0.5}, LayoutVersion: 1, Fitness: 40, Evaluated: true, Generation: 1}
	want := model.PopulationSnapshot{
		RunID:      "run-2",
		Generation: 2,
		Individuals: []model.Individual{
			{ID: "g2-i0", Genome: []float64{0.5}, LayoutVersion: 1, Generation: 2, ParentIDs: []string{"g1-i0"}, Operation: "clone+mutate"},
			best,
		},
		BestEver: &best,
		Mutation: model.MutationState{Rate: 0.12, Strength: 0.24, Stagnation: 1},
	}
	if err := WritePopulationFile(path, want); err != nil {
		t.Fatalf("write population: %v", err)
	}
	got, err := LoadPopulationFile(path)
	if err != nil {
		t.Fatalf("load population: %v", err)
	}
	want.VersionedRecord = Stamp()
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("population mismatch (-want +got):\n%s", diff)
	}
}

func fixturePath(name string) string {
	return filepath.Join("..", "..", "testdata", "fixtures", name)
}
