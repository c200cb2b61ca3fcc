package pipeline

import (
	"context"
	"path/filepath"

	"github.com/spherical/recipe-extractor/internal/domain"
	"github.com/spherical/recipe-extractor/internal/llm"
	"github.com/spherical/recipe-extractor/internal/observability"
	"github.com/spherical/recipe-extractor/internal/region"
)

// RegionStage locates the ingredients and instructions regions on the
// second (or only) page image and persists a crop artifact for each.
//
// Unlike the extraction stages, this stage has no soft-failure path: without
// the two regions no ingredients or instructions can be recovered, so
// malformed detection output or an inconsistent box fails the document.
type RegionStage struct {
	invoker domain.Invoker
	cfg     domain.StageConfig
	log     *observability.Logger
}

type regionPayload struct {
	Ingredients  domain.BoundingBox `json:"ingredients"`
	Instructions domain.BoundingBox `json:"instructions"`
}

func (s *RegionStage) Name() string { return "region-detection" }
func (s *RegionStage) Number() int  { return 2 }

func (s *RegionStage) Run(ctx context.Context, st State) (State, error) {
	src := st.RegionSource()

	content, err := s.invoker.Complete(ctx, s.cfg, regionPrompt, []string{src.ImagePath})
	if err != nil {
		return st, err
	}

	var payload regionPayload
	if err := llm.RecoverObject(content).Decode(&payload); err != nil {
		return st, domain.ExtractionError("region detection returned no usable bounding boxes", err)
	}

	dir := filepath.Dir(src.ImagePath)
	ext := filepath.Ext(src.ImagePath)
	ingredientsCrop := filepath.Join(dir, st.BaseName()+"_ingredients"+ext)
	instructionsCrop := filepath.Join(dir, st.BaseName()+"_instructions"+ext)

	if err := region.Crop(src.ImagePath, payload.Ingredients, ingredientsCrop); err != nil {
		return st, err
	}
	if err := region.Crop(src.ImagePath, payload.Instructions, instructionsCrop); err != nil {
		return st, err
	}

	s.log.Info().
		Str("source", src.ImagePath).
		Str("ingredients_crop", ingredientsCrop).
		Str("instructions_crop", instructionsCrop).
		Msg("regions detected and cropped")

	next := st
	next.IngredientsCrop = ingredientsCrop
	next.InstructionsCrop = instructionsCrop
	return next, nil
}
