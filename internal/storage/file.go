package storage

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/NikolayNebudi/neuro-miner/internal/model"
)

const (
	// BestCheckpointFile is the name the run writes its best individual under.
	BestCheckpointFile = "best_individual.json"
	// PopulationFile holds the snapshot a run resumes from.
	PopulationFile = "population.json"
)

// WriteCheckpointFile writes the checkpoint as indented JSON, replacing the
// target atomically through a temporary file in the same directory.
func WriteCheckpointFile(path string, checkpoint model.Checkpoint) error {
	if checkpoint.SchemaVersion == 0 && checkpoint.CodecVersion == 0 {
		checkpoint.VersionedRecord = Stamp()
	}
	payload, err := EncodeCheckpoint(checkpoint)
	if err != nil {
		return err
	}
	return writeAtomic(path, "checkpoint", payload)
}

func LoadCheckpointFile(path string) (model.Checkpoint, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return model.Checkpoint{}, fmt.Errorf("read checkpoint: %w", err)
	}
	checkpoint, err := DecodeCheckpoint(data)
	if err != nil {
		return model.Checkpoint{}, fmt.Errorf("decode checkpoint %s: %w", path, err)
	}
	return checkpoint, nil
}

// WritePopulationFile stores a population snapshot the same way as
// WriteCheckpointFile.
func WritePopulationFile(path string, snapshot model.PopulationSnapshot) error {
	if snapshot.SchemaVersion == 0 && snapshot.CodecVersion == 0 {
		snapshot.VersionedRecord = Stamp()
	}
	payload, err := EncodePopulation(snapshot)
	if err != nil {
		return err
	}
	return writeAtomic(path, "population", payload)
}

func LoadPopulationFile(path string) (model.PopulationSnapshot, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return model.PopulationSnapshot{}, fmt.Errorf("read population: %w", err)
	}
	snapshot, err := DecodePopulation(data)
	if err != nil {
		return model.PopulationSnapshot{}, fmt.Errorf("decode population %s: %w", path, err)
	}
	return snapshot, nil
}

func writeAtomic(path, what string, payload []byte) error {
	payload, err := indentJSON(payload)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create %s dir: %w", what, err)
	}
	tmp, err := os.CreateTemp(filepath.Dir(path), "."+what+"-*")
	if err != nil {
		return fmt.Errorf("create %s temp file: %w", what, err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(payload); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("write %s: %w", what, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close %s: %w", what, err)
	}
	return os.Rename(tmp.Name(), path)
}
