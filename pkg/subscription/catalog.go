package subscription

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// Catalog resolves effective plan limits. Operators can override the limit
// stored on a plan record per plan key, without a provider-side plan
// migration or a database change.
type Catalog struct {
	overrides map[string]int64
}

// NewCatalog builds a catalog from an in-memory override table. Keys are
// normalized to lowercase to match plan keys.
func NewCatalog(overrides map[string]int64) *Catalog {
	normalized := make(map[string]int64, len(overrides))
	for key, limit := range overrides {
		normalized[strings.ToLower(key)] = limit
	}
	return &Catalog{overrides: normalized}
}

// catalogFile is the on-disk shape of the override table:
//
//	plan_limits:
//	  bronze: 20
//	  premium: 0
type catalogFile struct {
	PlanLimits map[string]int64 `yaml:"plan_limits"`
}

// LoadCatalog reads overrides from a YAML file. A missing file yields an
// empty catalog, since overrides are optional.
func LoadCatalog(path string) (*Catalog, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return NewCatalog(nil), nil
		}
		return nil, fmt.Errorf("failed to read plan catalog %s: %w", path, err)
	}

	var file catalogFile
	if err := yaml.Unmarshal(raw, &file); err != nil {
		return nil, fmt.Errorf("failed to parse plan catalog %s: %w", path, err)
	}
	return NewCatalog(file.PlanLimits), nil
}

// LimitFor returns the configured override for the plan key if present,
// otherwise the limit stored on the plan record. 0 means unlimited either way.
func (c *Catalog) LimitFor(planKey string, storedLimit int64) int64 {
	if c == nil {
		return storedLimit
	}
	if limit, ok := c.overrides[strings.ToLower(planKey)]; ok {
		return limit
	}
	return storedLimit
}
