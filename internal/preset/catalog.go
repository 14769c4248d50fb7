// Package preset maps engine strength settings to approximate playing
// strength, backed by a table of measured skill/time calibration points.
package preset

import (
	"embed"
	"fmt"
	"io/fs"
	"math"
	"os"
	"path/filepath"
	"sort"
	"strings"

	yaml "gopkg.in/yaml.v3"
)

//go:embed presets.yaml
var defaultFiles embed.FS

// Row is one measured calibration point.
type Row struct {
	Skill   int `yaml:"skill"`
	ThinkMS int `yaml:"think_ms"`
	Elo     int `yaml:"elo"`
}

// Tier is a named strength preset.
type Tier struct {
	Name    string `yaml:"name"`
	Skill   int    `yaml:"skill"`
	ThinkMS int    `yaml:"think_ms"`
}

type document struct {
	Calibration []Row  `yaml:"calibration"`
	Tiers       []Tier `yaml:"tiers"`
}

// Catalog resolves skill/time pairings to approximate Elo and named tiers to
// engine settings. Overrides extend the calibration table and upsert tiers
// by name.
type Catalog struct {
	rows  []Row
	tiers map[string]Tier
	order []string
}

// New loads the embedded defaults and then applies overrides from dir if
// provided. Override files are read in sorted order; the last write to a
// tier name wins.
func New(overrideDir string) (*Catalog, error) {
	c := &Catalog{tiers: make(map[string]Tier)}

	raw, err := fs.ReadFile(defaultFiles, "presets.yaml")
	if err != nil {
		return nil, fmt.Errorf("read embedded presets: %w", err)
	}
	if err := c.applyYAML(raw); err != nil {
		return nil, fmt.Errorf("parse embedded presets: %w", err)
	}

	if strings.TrimSpace(overrideDir) != "" {
		if err := c.applyDir(overrideDir); err != nil {
			return nil, err
		}
	}

	if len(c.rows) == 0 {
		return nil, fmt.Errorf("calibration table is empty")
	}
	return c, nil
}

// ApproximateElo estimates playing strength for a skill/time pairing by
// nearest measured calibration point. Thinking time is compared on a log
// scale: one decade of time counts as roughly fifteen skill points, which is
// the trade the calibration table itself exhibits.
func (c *Catalog) ApproximateElo(skill, thinkMillis int) int {
	best := c.rows[0]
	bestDist := math.Inf(1)
	for _, row := range c.rows {
		if d := rowDistance(skill, thinkMillis, row); d < bestDist {
			bestDist = d
			best = row
		}
	}
	return best.Elo
}

// Tier looks a named preset up.
func (c *Catalog) Tier(name string) (Tier, bool) {
	t, ok := c.tiers[strings.ToLower(strings.TrimSpace(name))]
	return t, ok
}

// Tiers lists the presets in catalog order.
func (c *Catalog) Tiers() []Tier {
	out := make([]Tier, 0, len(c.order))
	for _, name := range c.order {
		out = append(out, c.tiers[name])
	}
	return out
}

// Rows returns a copy of the calibration table.
func (c *Catalog) Rows() []Row {
	return append([]Row(nil), c.rows...)
}

func (c *Catalog) applyYAML(b []byte) error {
	var doc document
	if err := yaml.Unmarshal(b, &doc); err != nil {
		return err
	}

	c.rows = append(c.rows, doc.Calibration...)
	for _, tier := range doc.Tiers {
		key := strings.ToLower(strings.TrimSpace(tier.Name))
		if key == "" {
			return fmt.Errorf("tier with empty name")
		}
		if _, ok := c.tiers[key]; !ok {
			c.order = append(c.order, key)
		}
		c.tiers[key] = tier
	}
	return nil
}

func (c *Catalog) applyDir(dir string) error {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return fmt.Errorf("read preset dir: %w", err)
	}

	files := make([]string, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		ext := strings.ToLower(filepath.Ext(e.Name()))
		if ext == ".yaml" || ext == ".yml" {
			files = append(files, e.Name())
		}
	}
	sort.Strings(files)

	for _, name := range files {
		b, err := os.ReadFile(filepath.Join(dir, name))
		if err != nil {
			return fmt.Errorf("read %s: %w", name, err)
		}
		if err := c.applyYAML(b); err != nil {
			return fmt.Errorf("parse %s: %w", name, err)
		}
	}
	return nil
}

func rowDistance(skill, thinkMillis int, row Row) float64 {
	think := float64(thinkMillis)
	if think < 1 {
		think = 1
	}
	ref := float64(row.ThinkMS)
	if ref < 1 {
		ref = 1
	}
	ds := float64(skill - row.Skill)
	dt := 15 * math.Log10(think/ref)
	return ds*ds + dt*dt
}
