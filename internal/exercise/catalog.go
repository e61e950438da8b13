package exercise

import (
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"gopkg.in/yaml.v3"
)

// ErrUnknownExercise is returned by Lookup for a name not in the catalog.
var ErrUnknownExercise = errors.New("unknown exercise")

//go:embed catalog.json
var defaultCatalogJSON []byte

// maxCatalogSize caps catalog files read from disk.
const maxCatalogSize = 1 * 1024 * 1024

// Catalog maps exercise names to their configuration.
type Catalog struct {
	Exercises []Config `json:"exercises" yaml:"exercises"`

	byName map[string]Config
}

// DefaultCatalog returns the catalog shipped with the binary.
func DefaultCatalog() *Catalog {
	c, err := ParseCatalog(defaultCatalogJSON, ".json")
	if err != nil {
		panic(fmt.Sprintf("exercise: embedded catalog is invalid: %v", err))
	}
	return c
}

// LoadCatalog reads a catalog from a .json, .yaml or .yml file.
func LoadCatalog(path string) (*Catalog, error) {
	cleanPath := filepath.Clean(path)
	ext := filepath.Ext(cleanPath)
	switch ext {
	case ".json", ".yaml", ".yml":
	default:
		return nil, fmt.Errorf("catalog file must have .json, .yaml or .yml extension, got %q", ext)
	}

	info, err := os.Stat(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to stat catalog file: %w", err)
	}
	if info.Size() > maxCatalogSize {
		return nil, fmt.Errorf("catalog file too large: %d bytes (max %d)", info.Size(), maxCatalogSize)
	}

	data, err := os.ReadFile(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read catalog file: %w", err)
	}
	return ParseCatalog(data, ext)
}

// ParseCatalog decodes and validates catalog data. ext selects the decoder.
func ParseCatalog(data []byte, ext string) (*Catalog, error) {
	c := &Catalog{}
	switch ext {
	case ".json":
		if err := json.Unmarshal(data, c); err != nil {
			return nil, fmt.Errorf("failed to parse catalog JSON: %w", err)
		}
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, c); err != nil {
			return nil, fmt.Errorf("failed to parse catalog YAML: %w", err)
		}
	default:
		return nil, fmt.Errorf("unsupported catalog format %q", ext)
	}

	if len(c.Exercises) == 0 {
		return nil, fmt.Errorf("catalog has no exercises")
	}

	c.byName = make(map[string]Config, len(c.Exercises))
	for _, ex := range c.Exercises {
		if err := ex.Validate(); err != nil {
			return nil, fmt.Errorf("invalid catalog: %w", err)
		}
		if _, dup := c.byName[ex.Name]; dup {
			return nil, fmt.Errorf("invalid catalog: duplicate exercise %q", ex.Name)
		}
		c.byName[ex.Name] = ex
	}
	return c, nil
}

// Lookup returns the configuration for name.
func (c *Catalog) Lookup(name string) (Config, error) {
	ex, ok := c.byName[name]
	if !ok {
		return Config{}, fmt.Errorf("%w: %q", ErrUnknownExercise, name)
	}
	return ex, nil
}

// Names returns exercise names in catalog order.
func (c *Catalog) Names() []string {
	names := make([]string, 0, len(c.Exercises))
	for _, ex := range c.Exercises {
		names = append(names, ex.Name)
	}
	return names
}

// SensorsInUse returns every sensor id referenced by at least one exercise,
// ascending.
func (c *Catalog) SensorsInUse() []SensorID {
	seen := make(map[SensorID]bool)
	for _, ex := range c.Exercises {
		for _, id := range ex.Sensors {
			seen[id] = true
		}
	}
	ids := make([]SensorID, 0, len(seen))
	for id := range seen {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}
