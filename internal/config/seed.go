package config

import (
	model "claimed-world/internal/models"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// SeedFile is the on-disk format of an item list
type SeedFile struct {
	Items []model.Item `yaml:"items"`
}

// LoadItems reads the items of a seed file. Codes are upper-cased and must be unique.
func LoadItems(path string) ([]model.Item, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: failed to read seed file %s: %w", path, err)
	}

	var file SeedFile
	if err := yaml.Unmarshal(raw, &file); err != nil {
		return nil, fmt.Errorf("config: failed to parse seed file %s: %w", path, err)
	}
	if len(file.Items) == 0 {
		return nil, fmt.Errorf("config: seed file %s has no items", path)
	}

	seen := make(map[string]struct{}, len(file.Items))
	items := make([]model.Item, 0, len(file.Items))
	for i, it := range file.Items {
		code := strings.ToUpper(strings.TrimSpace(it.Code))
		if code == "" {
			return nil, fmt.Errorf("config: seed item %d has no code", i)
		}
		if _, dup := seen[code]; dup {
			return nil, fmt.Errorf("config: seed item %s is listed twice", code)
		}
		seen[code] = struct{}{}

		name := strings.TrimSpace(it.Name)
		if name == "" {
			name = code
		}
		items = append(items, model.Item{Code: code, Name: name})
	}
	return items, nil
}

// SeedItems returns the items of the configured seed file, or the built-in country list
func (c Config) SeedItems() ([]model.Item, error) {
	if c.SeedFile == "" {
		return DefaultItems(), nil
	}
	return LoadItems(c.SeedFile)
}

// DefaultItems is the built-in map: one item per country, keyed by ISO 3166 alpha-2 code
func DefaultItems() []model.Item {
	countries := [][2]string{
		{"AR", "Argentina"}, {"AU", "Australia"}, {"AT", "Austria"}, {"BE", "Belgium"},
		{"BR", "Brazil"}, {"CA", "Canada"}, {"CL", "Chile"}, {"CN", "China"},
		{"CO", "Colombia"}, {"CZ", "Czechia"}, {"DK", "Denmark"}, {"EG", "Egypt"},
		{"FI", "Finland"}, {"FR", "France"}, {"DE", "Germany"}, {"GR", "Greece"},
		{"IN", "India"}, {"ID", "Indonesia"}, {"IE", "Ireland"}, {"IT", "Italy"},
		{"JP", "Japan"}, {"KE", "Kenya"}, {"MX", "Mexico"}, {"MA", "Morocco"},
		{"NL", "Netherlands"}, {"NZ", "New Zealand"}, {"NG", "Nigeria"}, {"NO", "Norway"},
		{"PE", "Peru"}, {"PL", "Poland"}, {"PT", "Portugal"}, {"KR", "South Korea"},
		{"ES", "Spain"}, {"SE", "Sweden"}, {"CH", "Switzerland"}, {"TR", "Turkey"},
		{"UA", "Ukraine"}, {"GB", "United Kingdom"}, {"US", "United States"}, {"ZA", "South Africa"},
	}

	items := make([]model.Item, 0, len(countries))
	for _, c := range countries {
		items = append(items, model.Item{Code: c[0], Name: c[1]})
	}
	return items
}
