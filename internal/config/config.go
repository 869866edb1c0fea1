// Package config loads the QC threshold profiles for each sequencing platform
// and the protein to reference tables for each virus.
package config

import (
	"bytes"
	_ "embed"
	"fmt"
	"slices"
	"strings"

	"github.com/samber/lo"
	"github.com/spf13/viper"

	"github.com/inodb/vibe-qc/internal/qc"
)

//go:embed defaults.yaml
var defaults []byte

// EnvPrefix prefixes environment overrides, e.g. VIBEQC_PLATFORMS_ONT_MEAN_COV.
const EnvPrefix = "VIBEQC"

// ProteinEntry lists the references a protein may belong to, in order of preference.
type ProteinEntry struct {
	Protein    string   `mapstructure:"protein" yaml:"protein"`
	References []string `mapstructure:"references" yaml:"references"`
}

// VirusProfile describes the proteins of one virus.
type VirusProfile struct {
	SegmentSuffix bool           `mapstructure:"segment_suffix" yaml:"segment_suffix"`
	Proteins      []ProteinEntry `mapstructure:"proteins" yaml:"proteins"`
}

// ProteinMap converts the profile into the evaluator's protein resolver.
func (p VirusProfile) ProteinMap() *qc.ProteinMap {
	m := make(map[string][]string, len(p.Proteins))
	for _, e := range p.Proteins {
		m[e.Protein] = e.References
	}
	return qc.NewProteinMap(m)
}

// Config holds all platform and virus profiles.
type Config struct {
	Platforms map[string]qc.Thresholds `mapstructure:"platforms" yaml:"platforms"`
	Viruses   map[string]VirusProfile  `mapstructure:"viruses" yaml:"viruses"`
}

// MergeDefaults merges the built-in profiles into v and enables environment
// overrides. Call it before merging any user file.
func MergeDefaults(v *viper.Viper) error {
	v.SetConfigType("yaml")
	if err := v.MergeConfig(bytes.NewReader(defaults)); err != nil {
		return fmt.Errorf("reading built-in config: %w", err)
	}
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()
	return nil
}

// Load reads the built-in profiles and merges the file at path over them.
// An empty path loads the built-in profiles only.
func Load(path string) (*Config, error) {
	v := viper.New()
	if err := MergeDefaults(v); err != nil {
		return nil, err
	}
	if path != "" {
		v.SetConfigFile(path)
		if err := v.MergeInConfig(); err != nil {
			return nil, fmt.Errorf("reading config %s: %w", path, err)
		}
	}
	return FromViper(v)
}

// FromViper decodes and validates the profiles held by v.
func FromViper(v *viper.Viper) (*Config, error) {
	var c Config
	if err := v.Unmarshal(&c); err != nil {
		return nil, fmt.Errorf("decoding config: %w", err)
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return &c, nil
}

// Validate checks threshold ranges and protein tables.
func (c *Config) Validate() error {
	for _, name := range sortedNames(c.Platforms) {
		th := c.Platforms[name]
		switch {
		case th.PercRefCovered < 0 || th.PercRefCovered > 100:
			return fmt.Errorf("platform %s: perc_ref_covered %v outside 0-100", name, th.PercRefCovered)
		case th.MeanCov < 0:
			return fmt.Errorf("platform %s: negative mean_cov %v", name, th.MeanCov)
		case th.MinorVars < 0:
			return fmt.Errorf("platform %s: negative minor_vars %d", name, th.MinorVars)
		}
	}
	for _, name := range sortedNames(c.Viruses) {
		seen := make(map[string]bool)
		for _, e := range c.Viruses[name].Proteins {
			if e.Protein == "" {
				return fmt.Errorf("virus %s: protein entry without a name", name)
			}
			if len(e.References) == 0 {
				return fmt.Errorf("virus %s: protein %s has no references", name, e.Protein)
			}
			if seen[e.Protein] {
				return fmt.Errorf("virus %s: protein %s listed twice", name, e.Protein)
			}
			seen[e.Protein] = true
		}
	}
	return nil
}

// Thresholds returns the threshold profile of a platform.
func (c *Config) Thresholds(platform string) (qc.Thresholds, error) {
	th, ok := c.Platforms[strings.ToLower(platform)]
	if !ok {
		return qc.Thresholds{}, fmt.Errorf("unknown platform %q (valid: %s)", platform, strings.Join(sortedNames(c.Platforms), ", "))
	}
	return th, nil
}

// Virus returns the protein profile of a virus.
func (c *Config) Virus(name string) (VirusProfile, error) {
	p, ok := c.Viruses[strings.ToLower(name)]
	if !ok {
		return VirusProfile{}, fmt.Errorf("unknown virus %q (valid: %s)", name, strings.Join(sortedNames(c.Viruses), ", "))
	}
	return p, nil
}

// Profile combines a platform and a virus into a pipeline profile.
func (c *Config) Profile(platform, virus string) (qc.Profile, error) {
	th, err := c.Thresholds(platform)
	if err != nil {
		return qc.Profile{}, err
	}
	vp, err := c.Virus(virus)
	if err != nil {
		return qc.Profile{}, err
	}
	return qc.Profile{
		Thresholds:    th,
		Proteins:      vp.ProteinMap(),
		SegmentSuffix: vp.SegmentSuffix,
	}, nil
}

func sortedNames[V any](m map[string]V) []string {
	names := lo.Keys(m)
	slices.Sort(names)
	return names
}
