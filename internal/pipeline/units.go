package pipeline

import "strings"

// UnitPiece is the sentinel unit for countable items and for absent or
// unclear units.
const UnitPiece = "piece"

// unitAliases maps recognized measurement spellings to their canonical
// token. Anything not in this table is a countable-item reference (a
// container noun, a produce item) or unclear, and normalizes to UnitPiece.
var unitAliases = map[string]string{
	"g":           "g",
	"gram":        "g",
	"grams":       "g",
	"kg":          "kg",
	"kilogram":    "kg",
	"kilograms":   "kg",
	"mg":          "mg",
	"ml":          "ml",
	"milliliter":  "ml",
	"milliliters": "ml",
	"millilitre":  "ml",
	"millilitres": "ml",
	"cl":          "cl",
	"dl":          "dl",
	"l":           "l",
	"liter":       "l",
	"liters":      "l",
	"litre":       "l",
	"litres":      "l",
	"tsp":         "tsp",
	"teaspoon":    "tsp",
	"teaspoons":   "tsp",
	"tbsp":        "tbsp",
	"tablespoon":  "tbsp",
	"tablespoons": "tbsp",
	"cup":         "cup",
	"cups":        "cup",
	"oz":          "oz",
	"ounce":       "oz",
	"ounces":      "oz",
	"lb":          "lb",
	"pound":       "lb",
	"pounds":      "lb",
	"pinch":       "pinch",
	"dash":        "dash",
	"piece":       UnitPiece,
	"pieces":      UnitPiece,
	"pc":          UnitPiece,
	"pcs":         UnitPiece,
}

// NormalizeUnit maps an extracted unit to its canonical token. Recognized
// measurement abbreviations pass through; everything else becomes
// UnitPiece.
func NormalizeUnit(unit string) string {
	key := strings.ToLower(strings.TrimSpace(unit))
	key = strings.TrimSuffix(key, ".")
	if canonical, ok := unitAliases[key]; ok {
		return canonical
	}
	return UnitPiece
}
