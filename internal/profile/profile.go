// Package profile reads YAML mapping profiles: a saved column selection for
// a pair of sources, so recurring reconciliations don't need a wall of flags.
package profile

import (
	"os"

	"github.com/rotisserie/eris"
	"gopkg.in/yaml.v3"

	"github.com/sells-group/reconcile-cli/internal/recon"
)

// SideProfile names one side's source and column selection. The JSON tags
// let the serve mode accept the same shape as a run request body.
type SideProfile struct {
	Source string `yaml:"source" json:"source"`
	Sheet  string `yaml:"sheet,omitempty" json:"sheet,omitempty"`
	Key    string `yaml:"key" json:"key"`
	Price  string `yaml:"price,omitempty" json:"price,omitempty"`
	FieldA string `yaml:"field_a,omitempty" json:"field_a,omitempty"`
	FieldB string `yaml:"field_b,omitempty" json:"field_b,omitempty"`
	Date   string `yaml:"date,omitempty" json:"date,omitempty"`
}

// Profile is a complete run definition.
type Profile struct {
	Our      SideProfile `yaml:"our" json:"our"`
	Provider SideProfile `yaml:"provider" json:"provider"`

	FieldALabel string `yaml:"field_a_label,omitempty" json:"field_a_label,omitempty"`
	FieldBLabel string `yaml:"field_b_label,omitempty" json:"field_b_label,omitempty"`

	Month int `yaml:"month,omitempty" json:"month,omitempty"`
	Year  int `yaml:"year,omitempty" json:"year,omitempty"`

	// HideMissing drops one-sided rows from the report.
	HideMissing bool `yaml:"hide_missing,omitempty" json:"hide_missing,omitempty"`
}

// Load reads a profile from a YAML file.
func Load(path string) (*Profile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, eris.Wrapf(err, "profile: read %s", path)
	}
	var p Profile
	if err := yaml.Unmarshal(data, &p); err != nil {
		return nil, eris.Wrapf(err, "profile: parse %s", path)
	}
	if p.Our.Source == "" || p.Provider.Source == "" {
		return nil, eris.Errorf("profile: %s must set our.source and provider.source", path)
	}
	return &p, nil
}

// RunConfig converts the profile into an engine configuration. Comparison
// modules are enabled by naming their columns on both sides; temporal mode
// by setting month and year together with both date columns.
func (p *Profile) RunConfig() recon.RunConfig {
	cfg := recon.RunConfig{
		Our: recon.SideConfig{
			KeyColumn:    p.Our.Key,
			PriceColumn:  p.Our.Price,
			FieldAColumn: p.Our.FieldA,
			FieldBColumn: p.Our.FieldB,
			DateColumn:   p.Our.Date,
		},
		Provider: recon.SideConfig{
			KeyColumn:    p.Provider.Key,
			PriceColumn:  p.Provider.Price,
			FieldAColumn: p.Provider.FieldA,
			FieldBColumn: p.Provider.FieldB,
			DateColumn:   p.Provider.Date,
		},
		FieldALabel:   p.FieldALabel,
		FieldBLabel:   p.FieldBLabel,
		TargetMonth:   p.Month,
		TargetYear:    p.Year,
		ReportMissing: !p.HideMissing,
	}
	cfg.ComparePrice = p.Our.Price != "" && p.Provider.Price != ""
	cfg.CompareFieldA = p.Our.FieldA != "" && p.Provider.FieldA != ""
	cfg.CompareFieldB = p.Our.FieldB != "" && p.Provider.FieldB != ""
	cfg.Temporal = p.Month != 0 && p.Year != 0 && p.Our.Date != "" && p.Provider.Date != ""
	return cfg
}
