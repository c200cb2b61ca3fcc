package pipeline

import (
	"context"
	"fmt"

	"github.com/spherical/recipe-extractor/internal/config"
	"github.com/spherical/recipe-extractor/internal/domain"
	"github.com/spherical/recipe-extractor/internal/observability"
)

// Stage is one ordered step of the extraction pipeline. A stage consumes
// the accumulated state and returns a derived state; an error aborts the
// remaining stages for the document.
type Stage interface {
	Name() string
	Number() int
	Run(ctx context.Context, st State) (State, error)
}

// Pipeline drives the five stages for one document. Data flows strictly
// forward; no stage reads a later stage's output.
type Pipeline struct {
	stages   []Stage
	maxStage int
	skip     map[int]bool
	log      *observability.Logger
}

// New builds the pipeline from the run configuration. Stage 1-4 model
// invocations resolve their endpoint, credential and model through the
// per-stage configuration lookup.
func New(cfg *config.Config, invoker domain.Invoker, log *observability.Logger) *Pipeline {
	skip := make(map[int]bool)
	if cfg.SkipRegionDetection {
		skip[2] = true
	}

	return &Pipeline{
		stages: []Stage{
			&TitleStage{invoker: invoker, cfg: cfg.Stage(1), log: log},
			&RegionStage{invoker: invoker, cfg: cfg.Stage(2), log: log},
			&InstructionStage{invoker: invoker, cfg: cfg.Stage(3), log: log},
			&IngredientStage{invoker: invoker, cfg: cfg.Stage(4), log: log},
			&AssemblyStage{},
		},
		maxStage: cfg.MaxStage,
		skip:     skip,
		log:      log,
	}
}

// Run executes the stages in order. completed is false when the configured
// maximum stage halted the pipeline before assembly; no record exists in
// that case and none may be written.
func (p *Pipeline) Run(ctx context.Context, st State) (completed bool, out State, err error) {
	for _, stage := range p.stages {
		if stage.Number() > p.maxStage {
			p.log.Info().Int("max_stage", p.maxStage).Msg("pipeline halted by maximum stage")
			return false, st, nil
		}
		if p.skip[stage.Number()] {
			p.log.Info().Str("stage", stage.Name()).Msg("stage skipped by configuration")
			continue
		}

		p.log.Debug().Str("stage", stage.Name()).Msg("running stage")
		next, err := stage.Run(ctx, st)
		if err != nil {
			return false, st, fmt.Errorf("stage %d (%s): %w", stage.Number(), stage.Name(), err)
		}
		st = next
	}
	return true, st, nil
}
