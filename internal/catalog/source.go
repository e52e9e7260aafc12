package catalog

import (
	_ "embed"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

//go:embed data/families.txt
var familiesData string

//go:embed data/leveled.txt
var leveledData string

// Builtin parses one of the tables shipped with the binary.
func Builtin(variant Variant, opts ...Option) (*Catalog, error) {
	switch variant {
	case VariantGrouped:
		return Parse(familiesData, variant, opts...)
	case VariantLeveled:
		return Parse(leveledData, variant, opts...)
	default:
		return nil, fmt.Errorf("catalog: no builtin table for variant %q", variant)
	}
}

// FileSource is the YAML form of a catalog file:
//
//	variant: leveled
//	rank_by_copy_id: false
//	rows:
//	  - "4533|Chó con (Cấp 1)"
type FileSource struct {
	Variant      Variant  `yaml:"variant"`
	RankByCopyID bool     `yaml:"rank_by_copy_id"`
	Rows         []string `yaml:"rows"`
}

// Load reads a catalog from path. Files ending in .yaml/.yml are decoded as
// FileSource; anything else is treated as raw rows of the given variant.
func Load(path string, variant Variant, opts ...Option) (*Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("catalog: read %s: %w", path, err)
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		var src FileSource
		if err := yaml.Unmarshal(data, &src); err != nil {
			return nil, fmt.Errorf("catalog: decode %s: %w", path, err)
		}
		if src.Variant != "" {
			variant = src.Variant
		}
		if src.RankByCopyID {
			opts = append(opts, RankByCopyID())
		}
		return Parse(strings.Join(src.Rows, "\n"), variant, opts...)
	default:
		return Parse(string(data), variant, opts...)
	}
}
