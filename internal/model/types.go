package model

import "time"

// VersionedRecord captures schema and codec evolution for persistent data.
type VersionedRecord struct {
	SchemaVersion int `json:"schema_version"`
	CodecVersion  int `json:"codec_version"`
}

// Individual is the persisted form of a scored genome. Evaluated is false for
// children that have not been played yet; Fitness is then meaningless.
type Individual struct {
	ID            string    `json:"id"`
	Genome        []float64 `json:"genome"`
	LayoutVersion int       `json:"layout_version"`
	Fitness       float64   `json:"fitness"`
	Evaluated     bool      `json:"evaluated"`
	GamesPlayed   int       `json:"games_played"`
	Generation    int       `json:"generation"`
	ParentIDs     []string  `json:"parent_ids,omitempty"`
	Operation     string    `json:"operation,omitempty"`
}

type MutationState struct {
	Rate       float64 `json:"rate"`
	Strength   float64 `json:"strength"`
	Stagnation int     `json:"stagnation"`
}

// Provenance records where a checkpoint came from.
type Provenance struct {
	Seed          int64     `json:"seed"`
	Scape         string    `json:"scape"`
	EngineCommand string    `json:"engine_command,omitempty"`
	CreatedAt     time.Time `json:"created_at"`
}

const (
	CheckpointBest     = "best"
	CheckpointPeriodic = "periodic"
)

type Checkpoint struct {
	VersionedRecord
	RunID      string        `json:"run_id"`
	Generation int           `json:"generation"`
	Reason     string        `json:"reason"`
	Individual Individual    `json:"individual"`
	Mutation   MutationState `json:"mutation"`
	Provenance Provenance    `json:"provenance"`
}

// PopulationSnapshot is the population about to be evaluated in Generation,
// together with everything needed to resume the search from there.
type PopulationSnapshot struct {
	VersionedRecord
	RunID       string        `json:"run_id"`
	Generation  int           `json:"generation"`
	Individuals []Individual  `json:"individuals"`
	BestEver    *Individual   `json:"best_ever,omitempty"`
	Mutation    MutationState `json:"mutation"`
}

type GenerationDiagnostics struct {
	Generation       int     `json:"generation"`
	BestFitness      float64 `json:"best_fitness"`
	MeanFitness      float64 `json:"mean_fitness"`
	MinFitness       float64 `json:"min_fitness"`
	BestEverFitness  float64 `json:"best_ever_fitness"`
	Wins             int     `json:"wins"`
	Failures         int     `json:"failures"`
	MutationRate     float64 `json:"mutation_rate"`
	MutationStrength float64 `json:"mutation_strength"`
	Stagnation       int     `json:"stagnation"`
}

type LineageRecord struct {
	VersionedRecord
	IndividualID string   `json:"individual_id"`
	ParentIDs    []string `json:"parent_ids,omitempty"`
	Generation   int      `json:"generation"`
	Operation    string   `json:"operation"`
}
