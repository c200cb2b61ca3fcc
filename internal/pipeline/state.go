// Package pipeline implements the five-stage recipe extraction pipeline.
//
// Each stage is a transition over an immutable State value: a stage derives
// a new State from its input and never mutates what it received. Side
// effects (renames, crop writes) commit before the stage returns, so a
// later stage always observes current file names through the State alone.
package pipeline

import (
	"path/filepath"
	"strings"

	"github.com/spherical/recipe-extractor/internal/domain"
)

// State is the accumulated pipeline state for one document. It is owned by
// a single processing run; there is no sharing across documents.
type State struct {
	// Document is the source PDF path, current after any rename.
	Document string

	// Images are the rasterized page artifacts in page order, with paths
	// current after any rename.
	Images []domain.PageImage

	// Slug is the filesystem-safe identifier derived from the extracted
	// title. Empty until the rename stage commits.
	Slug string

	Title       string
	Description string
	Category    string
	Tags        []string

	Instructions []string
	Ingredients  []domain.IngredientLine

	// Crop artifact paths, empty when region detection is skipped.
	IngredientsCrop  string
	InstructionsCrop string

	// Record is set by the assembly stage.
	Record *domain.RecipeRecord
}

// NewState seeds the pipeline state for a document. Title and category
// start at their documented defaults so a soft title-extraction failure
// needs no further handling.
func NewState(document string, images []domain.PageImage) State {
	return State{
		Document: document,
		Images:   images,
		Title:    Stem(document),
		Category: domain.CategoryDinner,
		Tags:     []string{},
	}
}

// Stem returns the file name without directory or extension.
func Stem(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

// BaseName is the identifier artifacts for this document are named after:
// the slug once the rename stage has committed, else the original stem.
func (s State) BaseName() string {
	if s.Slug != "" {
		return s.Slug
	}
	return Stem(s.Document)
}

// RegionSource selects the image that region detection and its fallbacks
// operate on: the second page if present, else the first. Recipe cards
// conventionally place ingredient and instruction text on the back page.
func (s State) RegionSource() domain.PageImage {
	if len(s.Images) > 1 {
		return s.Images[1]
	}
	return s.Images[0]
}

// InstructionsSource is the image the instruction stage reads: the
// instructions crop when region detection produced one, else the full
// region source image.
func (s State) InstructionsSource() string {
	if s.InstructionsCrop != "" {
		return s.InstructionsCrop
	}
	return s.RegionSource().ImagePath
}

// IngredientsSource is the image the ingredient stage reads.
func (s State) IngredientsSource() string {
	if s.IngredientsCrop != "" {
		return s.IngredientsCrop
	}
	return s.RegionSource().ImagePath
}
