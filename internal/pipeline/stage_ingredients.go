package pipeline

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/spherical/recipe-extractor/internal/domain"
	"github.com/spherical/recipe-extractor/internal/llm"
	"github.com/spherical/recipe-extractor/internal/observability"
)

// IngredientStage extracts the ingredient list from the ingredients crop,
// or from the full second-or-first page image when region detection was
// skipped. Quantities keep the card's notation; units are normalized to
// canonical tokens with "piece" as the countable/unknown sentinel.
// Malformed model output is a soft failure yielding an empty list.
type IngredientStage struct {
	invoker domain.Invoker
	cfg     domain.StageConfig
	log     *observability.Logger
}

// ingredientPayload tolerates quantity arriving as either a JSON string or
// a bare number; the raw token is preserved verbatim either way.
type ingredientPayload struct {
	Name     string          `json:"name"`
	Quantity json.RawMessage `json:"quantity"`
	Unit     string          `json:"unit"`
	Optional bool            `json:"optional"`
}

func (s *IngredientStage) Name() string { return "ingredient-extraction" }
func (s *IngredientStage) Number() int  { return 4 }

func (s *IngredientStage) Run(ctx context.Context, st State) (State, error) {
	src := st.IngredientsSource()

	content, err := s.invoker.Complete(ctx, s.cfg, ingredientsPrompt, []string{src})
	if err != nil {
		return st, err
	}

	next := st
	next.Ingredients = []domain.IngredientLine{}

	var payload []ingredientPayload
	if err := llm.RecoverArray(content).Decode(&payload); err != nil {
		s.log.Warn().Err(err).Str("source", src).Msg("no ingredient list extracted, continuing with empty ingredient list")
		return next, nil
	}

	for _, p := range payload {
		name := strings.TrimSpace(p.Name)
		if name == "" {
			continue
		}
		next.Ingredients = append(next.Ingredients, domain.IngredientLine{
			Name:     name,
			Quantity: quantityText(p.Quantity),
			Unit:     NormalizeUnit(p.Unit),
			Optional: p.Optional,
		})
	}

	s.log.Info().Int("ingredients", len(next.Ingredients)).Msg("ingredients extracted")
	return next, nil
}

// quantityText renders the raw quantity token as a string without numeric
// coercion: "1/2" stays "1/2", 200 becomes "200".
func quantityText(raw json.RawMessage) string {
	s := strings.TrimSpace(string(raw))
	if s == "" || s == "null" {
		return ""
	}
	if s[0] == '"' {
		var quoted string
		if err := json.Unmarshal(raw, &quoted); err == nil {
			return strings.TrimSpace(quoted)
		}
	}
	return s
}
