package config

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v2"

	"github.com/MJE43/onering-odds/internal/engine"
	"github.com/MJE43/onering-odds/internal/odds"
)

// Preset is a named rule variant with optional table axes.
type Preset struct {
	Name      string `yaml:"name" json:"name"`
	FeatMode  string `yaml:"feat_mode" json:"feat_mode"`
	Weary     bool   `yaml:"weary" json:"weary"`
	Miserable bool   `yaml:"miserable" json:"miserable"`
	Targets   []int  `yaml:"targets,omitempty" json:"targets,omitempty"`
	PoolSizes []int  `yaml:"pool_sizes,omitempty" json:"pool_sizes,omitempty"`
}

type presetFile struct {
	Presets []Preset `yaml:"presets"`
}

// Variant returns the preset's rule variant with the feat mode normalised.
func (p Preset) Variant() (odds.Variant, error) {
	mode, err := odds.ParseFeatMode(p.FeatMode)
	if err != nil {
		return odds.Variant{}, err
	}
	return odds.Variant{FeatMode: mode, Weary: p.Weary, Miserable: p.Miserable}, nil
}

// LoadPresets reads and validates a preset file.
func LoadPresets(path string) ([]Preset, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read presets: %w", err)
	}
	presets, err := ParsePresets(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return presets, nil
}

// ParsePresets decodes a YAML document of the form
//
//	presets:
//	  - name: favoured-weary
//	    feat_mode: Favored
//	    weary: true
//	    targets: [12, 14, 16]
//
// Names must be unique, feat modes must parse and any listed targets or pool
// sizes must be in range. Feat modes are returned in canonical spelling.
func ParsePresets(data []byte) ([]Preset, error) {
	var file presetFile
	if err := yaml.UnmarshalStrict(data, &file); err != nil {
		return nil, fmt.Errorf("parse presets: %w", err)
	}

	seen := make(map[string]bool, len(file.Presets))
	for i := range file.Presets {
		p := &file.Presets[i]
		p.Name = strings.TrimSpace(p.Name)
		if p.Name == "" {
			return nil, fmt.Errorf("%w: preset %d has no name", engine.ErrInvalidArgument, i)
		}
		if seen[p.Name] {
			return nil, fmt.Errorf("%w: duplicate preset %q", engine.ErrInvalidArgument, p.Name)
		}
		seen[p.Name] = true

		v, err := p.Variant()
		if err != nil {
			return nil, fmt.Errorf("preset %q: %w", p.Name, err)
		}
		p.FeatMode = string(v.FeatMode)

		for _, target := range p.Targets {
			if err := odds.ValidateTarget(target); err != nil {
				return nil, fmt.Errorf("preset %q: %w", p.Name, err)
			}
		}
		for _, pool := range p.PoolSizes {
			if err := odds.ValidatePoolSize(pool); err != nil {
				return nil, fmt.Errorf("preset %q: %w", p.Name, err)
			}
		}
	}

	return file.Presets, nil
}
