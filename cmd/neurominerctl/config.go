package main

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/NikolayNebudi/neuro-miner/internal/scape"
	"github.com/NikolayNebudi/neuro-miner/pkg/neurominer"
)

// runConfig is the YAML run configuration. Only fields present in the file
// override the defaults.
type runConfig struct {
	RunID  *string `yaml:"run_id"`
	Engine struct {
		Command          []string `yaml:"command"`
		Dir              *string  `yaml:"dir"`
		ResponseTimeout  *string  `yaml:"response_timeout"`
		TolerateRejected *bool    `yaml:"tolerate_rejected"`
	} `yaml:"engine"`

	Population      *int     `yaml:"population"`
	EliteCount      *int     `yaml:"elite"`
	Generations     *int     `yaml:"generations"`
	Episodes        *int     `yaml:"episodes"`
	MaxSteps        *int     `yaml:"max_steps"`
	Workers         *int     `yaml:"workers"`
	Seed            *int64   `yaml:"seed"`
	Selection       *string  `yaml:"selection"`
	TournamentSize  *int     `yaml:"tournament_size"`
	CrossoverRate   *float64 `yaml:"crossover_rate"`
	CheckpointEvery *int     `yaml:"checkpoint_every"`
	SolvedFitness   *float64 `yaml:"solved_fitness"`
	Resume          *bool    `yaml:"resume"`

	Mutation struct {
		Rate        *float64 `yaml:"rate"`
		Strength    *float64 `yaml:"strength"`
		Patience    *int     `yaml:"patience"`
		Growth      *float64 `yaml:"growth"`
		RateCap     *float64 `yaml:"rate_cap"`
		StrengthCap *float64 `yaml:"strength_cap"`
	} `yaml:"mutation"`

	// Shaping replaces the default reward shaping when present.
	Shaping *scape.Shaping `yaml:"shaping"`
}

func loadRunConfig(path string) (runConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return runConfig{}, fmt.Errorf("read config: %w", err)
	}
	return parseRunConfig(data)
}

func parseRunConfig(data []byte) (runConfig, error) {
	var cfg runConfig
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
		return runConfig{}, fmt.Errorf("parse config: %w", err)
	}
	return cfg, nil
}

func setIf[T any](dst *T, src *T) {
	if src != nil {
		*dst = *src
	}
}

func (c runConfig) apply(req *neurominer.RunRequest) error {
	setIf(&req.RunID, c.RunID)
	if len(c.Engine.Command) > 0 {
		req.Engine.Command = append([]string(nil), c.Engine.Command...)
	}
	setIf(&req.Engine.Dir, c.Engine.Dir)
	setIf(&req.Engine.TolerateRejected, c.Engine.TolerateRejected)
	if c.Engine.ResponseTimeout != nil {
		d, err := time.ParseDuration(*c.Engine.ResponseTimeout)
		if err != nil {
			return fmt.Errorf("engine.response_timeout: %w", err)
		}
		req.Engine.ResponseTimeout = d
	}

	setIf(&req.Population, c.Population)
	setIf(&req.EliteCount, c.EliteCount)
	setIf(&req.Generations, c.Generations)
	setIf(&req.Episodes, c.Episodes)
	setIf(&req.MaxSteps, c.MaxSteps)
	setIf(&req.Workers, c.Workers)
	setIf(&req.Seed, c.Seed)
	setIf(&req.Selection, c.Selection)
	setIf(&req.TournamentSize, c.TournamentSize)
	setIf(&req.CheckpointEvery, c.CheckpointEvery)
	setIf(&req.Resume, c.Resume)
	if c.CrossoverRate != nil {
		rate := *c.CrossoverRate
		req.CrossoverRate = &rate
	}
	if c.SolvedFitness != nil {
		solved := *c.SolvedFitness
		req.SolvedFitness = &solved
	}

	setIf(&req.Mutation.Rate, c.Mutation.Rate)
	setIf(&req.Mutation.Strength, c.Mutation.Strength)
	setIf(&req.Mutation.Patience, c.Mutation.Patience)
	setIf(&req.Mutation.Growth, c.Mutation.Growth)
	setIf(&req.Mutation.RateCap, c.Mutation.RateCap)
	setIf(&req.Mutation.StrengthCap, c.Mutation.StrengthCap)

	if c.Shaping != nil {
		shaping := *c.Shaping
		req.Shaping = &shaping
	}
	return nil
}
