package geocode

import (
	_ "embed"
	"fmt"

	"gopkg.in/yaml.v3"
)

//go:embed known_cities.yaml
var knownCitiesYAML []byte

// Coordinates is a literal lat/lng pair from the known-city table.
type Coordinates struct {
	Lat float64 `yaml:"lat"`
	Lng float64 `yaml:"lng"`
}

// knownCities maps folded city keys to curated coordinates.
var knownCities = mustLoadKnownCities()

func mustLoadKnownCities() map[string]Coordinates {
	var raw map[string]Coordinates
	if err := yaml.Unmarshal(knownCitiesYAML, &raw); err != nil {
		panic(fmt.Sprintf("geocode: bad known_cities.yaml: %v", err))
	}
	folded := make(map[string]Coordinates, len(raw))
	for name, coords := range raw {
		folded[foldKey(name)] = coords
	}
	return folded
}

// lookupKnown returns the curated coordinates for a cleaned city name.
func lookupKnown(city string) (Coordinates, bool) {
	coords, ok := knownCities[foldKey(city)]
	return coords, ok
}
