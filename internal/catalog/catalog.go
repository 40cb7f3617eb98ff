// Package catalog provides the read-only opening position database.
package catalog

import (
	_ "embed"
	"encoding/json"
	"fmt"
	"os"
)

//go:embed openings.json
var defaultCatalogJSON []byte

// Position is one trainable opening position. The core consumes only ID
// and Opening; the remaining fields are display payload for the drill UI.
type Position struct {
	ID           string `json:"id"`
	Opening      string `json:"opening"`
	FEN          string `json:"fen"`
	Prompt       string `json:"prompt"`
	SAN          string `json:"san"`
	MoveNotation string `json:"moveNotation"`
	ShortTip     string `json:"shortTip"`
	Explanation  string `json:"explanation"`
}

// Opening groups an ordered list of positions under one opening family.
type Opening struct {
	Key         string     `json:"key"`
	Name        string     `json:"name"`
	Description string     `json:"description"`
	Positions   []Position `json:"positions"`
}

// Catalog is an immutable, ordered collection of openings.
type Catalog struct {
	Openings []Opening `json:"openings"`
}

// Default returns the embedded opening catalog.
func Default() (*Catalog, error) {
	return parse(defaultCatalogJSON)
}

// Load reads and validates a catalog from a JSON file.
func Load(path string) (*Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read catalog: %w", err)
	}
	return parse(data)
}

func parse(data []byte) (*Catalog, error) {
	var c Catalog
	if err := json.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("failed to decode catalog: %w", err)
	}
	if err := c.validate(); err != nil {
		return nil, err
	}
	return &c, nil
}

func (c *Catalog) validate() error {
	if len(c.Openings) == 0 {
		return fmt.Errorf("catalog has no openings")
	}
	seen := make(map[string]struct{})
	for _, opening := range c.Openings {
		if opening.Key == "" {
			return fmt.Errorf("opening %q has no key", opening.Name)
		}
		if len(opening.Positions) == 0 {
			return fmt.Errorf("opening %q has no positions", opening.Key)
		}
		for i := range opening.Positions {
			pos := &opening.Positions[i]
			if pos.ID == "" {
				return fmt.Errorf("opening %q: position %d has no id", opening.Key, i)
			}
			if _, ok := seen[pos.ID]; ok {
				return fmt.Errorf("duplicate position id %q", pos.ID)
			}
			seen[pos.ID] = struct{}{}
			if pos.FEN == "" || pos.SAN == "" {
				return fmt.Errorf("position %q is missing fen or san", pos.ID)
			}
			// The opening tag may be a finer-grained variation name; fall
			// back to the family name when the data omits it.
			if pos.Opening == "" {
				pos.Opening = opening.Name
			}
		}
	}
	return nil
}

// Positions returns all positions across all openings in catalog order.
func (c *Catalog) Positions() []Position {
	var out []Position
	for _, opening := range c.Openings {
		out = append(out, opening.Positions...)
	}
	return out
}

// Filter returns the positions of one opening family, or all positions
// when key is empty or "all". The second result reports whether the key
// matched.
func (c *Catalog) Filter(key string) ([]Position, bool) {
	if key == "" || key == "all" {
		return c.Positions(), true
	}
	for _, opening := range c.Openings {
		if opening.Key == key {
			return append([]Position(nil), opening.Positions...), true
		}
	}
	return nil, false
}

// OpeningName returns the display name for an opening key, or the key
// itself when unknown.
func (c *Catalog) OpeningName(key string) string {
	if key == "" || key == "all" {
		return "All openings"
	}
	for _, opening := range c.Openings {
		if opening.Key == key {
			return opening.Name
		}
	}
	return key
}
