package market

import "lola/internal/module"

// Marketplace is one registered catalog reference, persisted as a YAML
// file under the market directory.
type Marketplace struct {
	Name    string `yaml:"name"`
	URL     string `yaml:"url"`
	Enabled bool   `yaml:"enabled"`
}

// Catalog is the cached content of one marketplace.
type Catalog struct {
	Name    string         `yaml:"name,omitempty"`
	Modules []CatalogEntry `yaml:"modules"`
}

// CatalogEntry describes one module a marketplace offers.
type CatalogEntry struct {
	Name        string        `yaml:"name"`
	Description string        `yaml:"description,omitempty"`
	Version     string        `yaml:"version,omitempty"`
	Tags        []string      `yaml:"tags,omitempty"`
	Source      module.Origin `yaml:"source"`
}

// Candidate is one lookup hit, qualified by the marketplace it came
// from so ambiguity can be surfaced to the user.
type Candidate struct {
	Name        string
	Version     string
	Description string
	Marketplace string
	Origin      module.Origin
}

// SearchResult is one row of `lola market search` output.
type SearchResult struct {
	Name        string `json:"name"`
	Version     string `json:"version,omitempty"`
	Marketplace string `json:"marketplace"`
	Description string `json:"description,omitempty"`
}
