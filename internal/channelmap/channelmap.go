// Package channelmap loads the static platform→channel and product→id
// mapping from a YAML file. It is the fallback when the alias resolver has
// no curated match.
package channelmap

import (
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Map is the parsed mapping file.
type Map struct {
	// Channels maps a platform name to its sales channel id.
	Channels map[string]string `yaml:"channels"`
	Products []Product         `yaml:"products"`
}

// Product is one product entry. NYEProductID, when set, overrides ProductID
// for experiences on December 31st, which are sold as a separate product.
type Product struct {
	Name         string `yaml:"name"`
	ProductID    string `yaml:"productId"`
	NYEProductID string `yaml:"nyeProductId"`
}

// Load reads and parses the mapping file. An empty path yields an empty map,
// which resolves nothing but is not an error.
func Load(path string) (*Map, error) {
	if path == "" {
		return &Map{}, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("channelmap: read %s: %w", path, err)
	}

	var m Map
	if err := yaml.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("channelmap: parse %s: %w", path, err)
	}
	return &m, nil
}

// ChannelID returns the sales channel for a platform, or "" when unmapped.
func (m *Map) ChannelID(platform string) string {
	return m.Channels[strings.ToLower(platform)]
}

// ProductID resolves a product name to its id, case-insensitively. Bookings
// on December 31st resolve to the NYE variant when one is configured.
func (m *Map) ProductID(name string, experienceDate *time.Time) string {
	for _, p := range m.Products {
		if !strings.EqualFold(p.Name, name) {
			continue
		}
		if p.NYEProductID != "" && experienceDate != nil &&
			experienceDate.Month() == time.December && experienceDate.Day() == 31 {
			return p.NYEProductID
		}
		return p.ProductID
	}
	return ""
}
