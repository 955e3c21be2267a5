package render

import (
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// Labels and colours of the species the detector is trained on.
var (
	speciesLabels = map[string]string{
		"jaguar":        "Jaguar",
		"rana_dorada":   "Rana Dorada",
		"tapir":         "Tapir",
		"aguila_harpia": "Águila Harpía",
	}

	speciesColors = map[string]string{
		"jaguar":        "#FF5733",
		"rana_dorada":   "#FFD700",
		"tapir":         "#6C757D",
		"aguila_harpia": "#2E86C1",
	}
)

const (
	defaultColor   = "#888"
	unknownSpecies = "unknown"
)

// SpeciesLabel returns the display label of a species id. Unknown ids are
// title-cased with underscores read as spaces.
func SpeciesLabel(id string) string {
	if id == "" {
		return ""
	}
	if l, ok := speciesLabels[id]; ok {
		return l
	}
	// Casers keep state between calls, so each call gets its own
	return cases.Title(language.Spanish).String(strings.ReplaceAll(id, "_", " "))
}

// SpeciesColor returns the chart/marker colour of a species id.
func SpeciesColor(id string) string {
	if c, ok := speciesColors[id]; ok {
		return c
	}
	return defaultColor
}

func speciesKey(id string) string {
	if id == "" {
		return unknownSpecies
	}
	return id
}
