package pipeline

import (
	"context"
	"strings"

	"github.com/spherical/recipe-extractor/internal/domain"
	"github.com/spherical/recipe-extractor/internal/observability"
)

// InstructionStage transcribes the preparation steps from the instructions
// crop, or from the full second-or-first page image when region detection
// was skipped. An empty transcription is a soft failure.
type InstructionStage struct {
	invoker domain.Invoker
	cfg     domain.StageConfig
	log     *observability.Logger
}

func (s *InstructionStage) Name() string { return "instruction-extraction" }
func (s *InstructionStage) Number() int  { return 3 }

func (s *InstructionStage) Run(ctx context.Context, st State) (State, error) {
	src := st.InstructionsSource()

	content, err := s.invoker.Complete(ctx, s.cfg, instructionsPrompt, []string{src})
	if err != nil {
		return st, err
	}

	steps := splitSteps(content)
	if len(steps) == 0 {
		s.log.Warn().Str("source", src).Msg("no instruction text extracted, continuing with empty instruction list")
	} else {
		s.log.Info().Int("steps", len(steps)).Msg("instructions extracted")
	}

	next := st
	next.Instructions = steps
	return next, nil
}

// splitSteps turns the transcription into one instruction per non-empty
// trimmed line.
func splitSteps(content string) []string {
	steps := []string{}
	for _, line := range strings.Split(content, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		steps = append(steps, line)
	}
	return steps
}
