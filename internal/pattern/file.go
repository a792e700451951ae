package pattern

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// fileFormat is the YAML shape of a pattern definition:
//
//	gap_weeks: 1
//	bitmaps:
//	  - - "0030300"
//	    - "0303030"
//	  - - "0003000"
type fileFormat struct {
	GapWeeks int        `yaml:"gap_weeks"`
	Bitmaps  [][]string `yaml:"bitmaps"`
}

// LoadFile reads a pattern definition from a YAML file, so glyphs can be
// swapped without recompiling. The loaded bitmaps are validated exactly
// like the built-in ones.
func LoadFile(path string) (*Pattern, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading pattern file: %w", err)
	}

	var def fileFormat
	if err := yaml.Unmarshal(data, &def); err != nil {
		return nil, fmt.Errorf("parsing pattern file %s: %w", path, err)
	}

	bitmaps := make([]Bitmap, len(def.Bitmaps))
	for i, rows := range def.Bitmaps {
		bitmaps[i] = Bitmap(rows)
	}

	p, err := New(bitmaps, def.GapWeeks)
	if err != nil {
		return nil, fmt.Errorf("pattern file %s: %w", path, err)
	}
	return p, nil
}
