package pipeline

import (
	"context"
	"path/filepath"

	"github.com/spherical/recipe-extractor/internal/domain"
)

// AssemblyStage combines the accumulated state into the final RecipeRecord.
// No model call is made. Servings and duration are fixed: ingredient
// extraction targets the 4-person column, and records default to two days.
type AssemblyStage struct{}

func (s *AssemblyStage) Name() string { return "assembly" }
func (s *AssemblyStage) Number() int  { return 5 }

func (s *AssemblyStage) Run(ctx context.Context, st State) (State, error) {
	// Earlier soft-failure handling guarantees these defaults; their
	// absence is a programmer error, not a document failure.
	if len(st.Images) == 0 {
		return st, domain.ValidationError("no page images to assemble", nil)
	}
	if st.Title == "" {
		return st, domain.ValidationError("title missing at assembly; soft-failure defaulting did not run", nil)
	}

	images := make([]domain.ImageRef, len(st.Images))
	for i, img := range st.Images {
		images[i] = domain.ImageRef{Src: "./" + filepath.Base(img.ImagePath)}
	}

	record := domain.RecipeRecord{
		Name:            st.Title,
		Description:     st.Description,
		Category:        st.Category,
		Images:          images,
		Ingredients:     st.Ingredients,
		Instructions:    st.Instructions,
		Servings:        domain.DefaultServings,
		DefaultDuration: domain.DefaultDuration,
		Tags:            st.Tags,
	}
	if record.Ingredients == nil {
		record.Ingredients = []domain.IngredientLine{}
	}
	if record.Instructions == nil {
		record.Instructions = []string{}
	}
	if record.Tags == nil {
		record.Tags = []string{}
	}

	next := st
	next.Record = &record
	return next, nil
}
