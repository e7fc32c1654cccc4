// Package formula holds the versioned health score weight tables and the
// scoring function that applies them.
package formula

import (
	_ "embed"
	"fmt"
	"math"
	"os"

	"gopkg.in/yaml.v3"

	"clientpulse/internal/health/models"
)

//go:embed formulas.yaml
var builtin []byte

type Weights struct {
	NPS        float64 `yaml:"nps"`
	Compliance float64 `yaml:"compliance"`
	Aging      float64 `yaml:"aging"`
}

// Thresholds are the minimum totals for healthy and at-risk. Anything
// below AtRisk is critical.
type Thresholds struct {
	Healthy int `yaml:"healthy"`
	AtRisk  int `yaml:"at_risk"`
}

// Defaults substitute for missing signals. A missing NPS always scores 0.
type Defaults struct {
	Compliance     float64 `yaml:"compliance"`
	WorkingCapital float64 `yaml:"working_capital"`
}

// Formula is one version of the weight table.
type Formula struct {
	Version    string     `yaml:"version"`
	Weights    Weights    `yaml:"weights"`
	Thresholds Thresholds `yaml:"thresholds"`
	Defaults   Defaults   `yaml:"defaults"`
}

// Table is the set of known formula versions.
type Table struct {
	latest   string
	formulas map[string]*Formula
}

type document struct {
	Latest   string    `yaml:"latest"`
	Formulas []Formula `yaml:"formulas"`
}

// Builtin returns the compiled-in table.
func Builtin() *Table {
	t, err := Parse(builtin)
	if err != nil {
		panic(fmt.Sprintf("builtin formula table: %v", err))
	}
	return t
}

// Load reads a table from a YAML file. An empty path yields Builtin.
func Load(path string) (*Table, error) {
	if path == "" {
		return Builtin(), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read formula file: %w", err)
	}
	return Parse(data)
}

// Parse decodes and validates a YAML table.
func Parse(data []byte) (*Table, error) {
	var doc document
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("decode formula table: %w", err)
	}
	if len(doc.Formulas) == 0 {
		return nil, fmt.Errorf("formula table has no formulas")
	}
	t := &Table{latest: doc.Latest, formulas: make(map[string]*Formula, len(doc.Formulas))}
	for i := range doc.Formulas {
		f := doc.Formulas[i]
		if err := f.validate(); err != nil {
			return nil, err
		}
		if _, dup := t.formulas[f.Version]; dup {
			return nil, fmt.Errorf("formula %s defined twice", f.Version)
		}
		t.formulas[f.Version] = &f
	}
	if t.latest == "" {
		t.latest = doc.Formulas[len(doc.Formulas)-1].Version
	}
	if _, ok := t.formulas[t.latest]; !ok {
		return nil, fmt.Errorf("latest formula %s is not defined", t.latest)
	}
	return t, nil
}

func (f *Formula) validate() error {
	if f.Version == "" {
		return fmt.Errorf("formula version is required")
	}
	w := f.Weights
	if w.NPS < 0 || w.Compliance < 0 || w.Aging < 0 {
		return fmt.Errorf("formula %s: weights must not be negative", f.Version)
	}
	if sum := w.NPS + w.Compliance + w.Aging; math.Abs(sum-100) > 1e-9 {
		return fmt.Errorf("formula %s: weights sum to %g, want 100", f.Version, sum)
	}
	if f.Thresholds.AtRisk > f.Thresholds.Healthy {
		return fmt.Errorf("formula %s: at_risk threshold above healthy", f.Version)
	}
	return nil
}

// Latest returns the formula new snapshots are scored with.
func (t *Table) Latest() *Formula {
	return t.formulas[t.latest]
}

// Get returns a formula by version.
func (t *Table) Get(version string) (*Formula, bool) {
	f, ok := t.formulas[version]
	return f, ok
}

// Score is the output of applying a formula to a set of inputs.
type Score struct {
	NPSComponent        float64
	ComplianceComponent float64
	AgingComponent      float64
	Total               int
	Status              models.Status
}

// Apply scores inputs. Percentages are clamped to 0..100 and NPS to
// -100..100, so the total never leaves 0..100 and never decreases when a
// single input increases.
func (f *Formula) Apply(in models.Inputs) Score {
	var s Score
	if in.NPSScore != nil {
		nps := clamp(*in.NPSScore, -100, 100)
		s.NPSComponent = (nps + 100) / 200 * f.Weights.NPS
	}

	compliance := f.Defaults.Compliance
	if in.CompliancePercentage != nil {
		compliance = *in.CompliancePercentage
	}
	s.ComplianceComponent = clamp(compliance, 0, 100) / 100 * f.Weights.Compliance

	wc := f.Defaults.WorkingCapital
	if in.WorkingCapitalPercentage != nil {
		wc = *in.WorkingCapitalPercentage
	}
	s.AgingComponent = clamp(wc, 0, 100) / 100 * f.Weights.Aging

	s.Total = int(math.Round(s.NPSComponent + s.ComplianceComponent + s.AgingComponent))
	s.Status = f.status(s.Total)
	return s
}

func (f *Formula) status(total int) models.Status {
	switch {
	case total >= f.Thresholds.Healthy:
		return models.StatusHealthy
	case total >= f.Thresholds.AtRisk:
		return models.StatusAtRisk
	default:
		return models.StatusCritical
	}
}

func clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}
