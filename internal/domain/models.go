package domain

import (
	"strings"
	"time"
)

// Categories a recipe record may carry. Anything else the model returns is
// coerced to CategoryDinner.
const (
	CategoryBreakfast = "Breakfast"
	CategoryLunch     = "Lunch"
	CategoryDinner    = "Dinner"
	CategorySnack     = "Snack"
	CategoryDessert   = "Dessert"
	CategoryAppetizer = "Appetizer"
)

var categories = []string{
	CategoryBreakfast,
	CategoryLunch,
	CategoryDinner,
	CategorySnack,
	CategoryDessert,
	CategoryAppetizer,
}

// NormalizeCategory validates a category against the fixed set, matching
// case-insensitively. Unknown or empty values become CategoryDinner.
func NormalizeCategory(category string) string {
	category = strings.TrimSpace(category)
	for _, c := range categories {
		if strings.EqualFold(c, category) {
			return c
		}
	}
	return CategoryDinner
}

// Fixed record fields: ingredient extraction targets the 4-person column,
// and records default to a two-day duration.
const (
	DefaultServings = 4
	DefaultDuration = 2
)

// PageImage is one rasterized page of a source document.
type PageImage struct {
	PageNumber int
	ImagePath  string
}

// ImageRef is a persisted reference to an image artifact, relative to the
// record's directory.
type ImageRef struct {
	Src string `json:"src"`
}

// IngredientLine is a single extracted ingredient. Quantity preserves the
// card's original notation (fraction, integer, or free text) and is never
// coerced to a number. Unit is a canonical measurement token or "piece".
type IngredientLine struct {
	Name     string `json:"name"`
	Quantity string `json:"quantity"`
	Unit     string `json:"unit"`
	Optional bool   `json:"optional"`
}

// BoundingBox locates a semantic region within a source image, in pixel
// offsets from the image's top-left corner.
type BoundingBox struct {
	Top    int `json:"top"`
	Left   int `json:"left"`
	Bottom int `json:"bottom"`
	Right  int `json:"right"`
}

// Validate rejects degenerate boxes before any crop is attempted.
func (b BoundingBox) Validate() error {
	if b.Right <= b.Left {
		return ValidationError("bounding box right must exceed left", nil)
	}
	if b.Bottom <= b.Top {
		return ValidationError("bounding box bottom must exceed top", nil)
	}
	return nil
}

// RecipeRecord is the externally persisted structure, immutable once written.
type RecipeRecord struct {
	Name            string           `json:"name"`
	Description     string           `json:"description"`
	Category        string           `json:"category"`
	Images          []ImageRef       `json:"images"`
	Ingredients     []IngredientLine `json:"ingredients"`
	Instructions    []string         `json:"instructions"`
	Servings        int              `json:"servings"`
	DefaultDuration int              `json:"defaultDuration"`
	Tags            []string         `json:"tags"`
}

// Export is the JSON envelope written alongside the source document, one
// file per document.
type Export struct {
	Version    int            `json:"version"`
	ExportDate string         `json:"exportDate"`
	Recipes    []RecipeRecord `json:"recipes"`
}

// NewExport wraps a single record in the versioned envelope with a UTC
// export timestamp.
func NewExport(record RecipeRecord, now time.Time) Export {
	return Export{
		Version:    1,
		ExportDate: now.UTC().Format("2006-01-02T15:04:05") + "Z",
		Recipes:    []RecipeRecord{record},
	}
}

// StageConfig is the resolved model invocation target for one pipeline
// stage. Constructed once at startup, read-only thereafter.
type StageConfig struct {
	Endpoint   string
	Credential string
	Model      string
}
