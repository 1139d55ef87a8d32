package catalog

import (
	"fmt"
	"sort"
)

// IndicatorDefinition describes one catalog entry. Definitions are immutable and
// process-wide; the catalog is populated once at startup and never mutated.
type IndicatorDefinition struct {
	Code           string   `json:"code"`
	Module         int      `json:"module"`
	Name           string   `json:"name"`
	RequiredParams []string `json:"required_params"`
	// Variation indicators compare against the prior year and need history
	Variation bool `json:"variation"`
	// FeatureFlag names a tenant feature flag that must be enabled, empty if none
	FeatureFlag string `json:"feature_flag,omitempty"`

	// QueryTemplate is the warehouse query. Placeholders bind tenant_id first,
	// then RequiredParams in declaration order.
	QueryTemplate string `json:"-"`
	// ProbeTemplate returns (ano_min, ano_max, linhas_ano, linhas_ano_anterior)
	// for the tenant and requested year.
	ProbeTemplate string `json:"-"`
}

// Catalog is a read-only indicator registry.
type Catalog struct {
	byCode map[string]*IndicatorDefinition
}

// New builds the catalog from the built-in definitions.
func New() *Catalog {
	c := &Catalog{byCode: make(map[string]*IndicatorDefinition, len(definitions))}
	for i := range definitions {
		def := &definitions[i]
		c.byCode[def.Code] = def
	}
	return c
}

// Definition looks up an indicator by code.
func (c *Catalog) Definition(code string) (*IndicatorDefinition, error) {
	def, ok := c.byCode[code]
	if !ok {
		return nil, fmt.Errorf("indicator not found: %s", code)
	}
	return def, nil
}

// List returns all definitions ordered by code.
func (c *Catalog) List() []*IndicatorDefinition {
	defs := make([]*IndicatorDefinition, 0, len(c.byCode))
	for _, def := range c.byCode {
		defs = append(defs, def)
	}
	sort.Slice(defs, func(i, j int) bool { return defs[i].Code < defs[j].Code })
	return defs
}

// ByModule returns the definitions of one module ordered by code.
func (c *Catalog) ByModule(module int) []*IndicatorDefinition {
	var defs []*IndicatorDefinition
	for _, def := range c.byCode {
		if def.Module == module {
			defs = append(defs, def)
		}
	}
	sort.Slice(defs, func(i, j int) bool { return defs[i].Code < defs[j].Code })
	return defs
}
