package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestNormalizeCategory(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"Dessert", CategoryDessert},
		{"dessert", CategoryDessert},
		{" Breakfast ", CategoryBreakfast},
		{"Main Course", CategoryDinner},
		{"", CategoryDinner},
		{"Supper", CategoryDinner},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, NormalizeCategory(tt.in), "input %q", tt.in)
	}
}

func TestBoundingBoxValidate(t *testing.T) {
	valid := BoundingBox{Top: 10, Left: 20, Bottom: 110, Right: 220}
	assert.NoError(t, valid.Validate())

	tests := []struct {
		name string
		box  BoundingBox
	}{
		{"right equals left", BoundingBox{Top: 0, Left: 50, Bottom: 100, Right: 50}},
		{"right below left", BoundingBox{Top: 0, Left: 50, Bottom: 100, Right: 40}},
		{"bottom equals top", BoundingBox{Top: 80, Left: 0, Bottom: 80, Right: 100}},
		{"bottom above top", BoundingBox{Top: 80, Left: 0, Bottom: 20, Right: 100}},
		{"zero box", BoundingBox{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Error(t, tt.box.Validate())
		})
	}
}

func TestNewExport(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 30, 45, 0, time.UTC)
	export := NewExport(RecipeRecord{Name: "Chicken Soup"}, now)

	assert.Equal(t, 1, export.Version)
	assert.Equal(t, "2025-06-01T12:30:45Z", export.ExportDate)
	assert.Len(t, export.Recipes, 1)
	assert.Equal(t, "Chicken Soup", export.Recipes[0].Name)
}
