// Package catalog turns the static creature tables into addressable
// creatures grouped by evolution family.
//
// Two row layouts are understood:
//
//	grouped:  01|3430|Name|3431|Name|3432|Name   (leading group number, up to MaxTiers pairs)
//	leveled:  4533|Chó con (Cấp 1)                 (one creature per row, family = name without the trailing qualifier)
//
// Bad rows never fail construction. They are skipped, logged and kept as
// ParseWarnings.
package catalog

import (
	"errors"
	"fmt"
	"sort"

	"go.uber.org/zap"
)

// Variant selects the row layout of a catalog source.
type Variant string

const (
	VariantGrouped Variant = "grouped"
	VariantLeveled Variant = "leveled"
)

// MaxTiers is the number of (copy_id, name) slots a grouped row reserves.
const MaxTiers = 3

// ErrNotFound is returned by lookups for unknown copy ids or family keys.
var ErrNotFound = errors.New("catalog: not found")

// Creature is one catalog entry. FamilyKey and TierRank are derived while
// parsing.
type Creature struct {
	CopyID    int    `json:"copy_id"`
	Name      string `json:"name"`
	FamilyKey string `json:"family_key"`
	TierRank  int    `json:"tier_rank"`
}

// ParseWarning describes a source row that was skipped.
type ParseWarning struct {
	Line   int    `json:"line"`
	Raw    string `json:"raw"`
	Reason string `json:"reason"`
}

func (w ParseWarning) String() string {
	return fmt.Sprintf("line %d: %s (%q)", w.Line, w.Reason, w.Raw)
}

// Catalog is read-only after construction and safe for concurrent use.
type Catalog struct {
	variant  Variant
	order    []int
	byID     map[int]Creature
	families []string
	members  map[string][]Creature
	highest  map[string]Creature
	warnings []ParseWarning
}

type options struct {
	logger       *zap.Logger
	rankByCopyID bool
}

// Option configures Parse.
type Option func(*options)

// WithLogger routes parse warnings to logger.
func WithLogger(logger *zap.Logger) Option {
	return func(o *options) {
		if logger != nil {
			o.logger = logger
		}
	}
}

// RankByCopyID re-ranks every family by ascending copy id instead of source
// position. This mirrors an older loader and can disagree with the source
// order when tiers are listed out of copy-id order.
func RankByCopyID() Option {
	return func(o *options) {
		o.rankByCopyID = true
	}
}

// Variant reports the row layout the catalog was parsed from.
func (c *Catalog) Variant() Variant {
	return c.variant
}

// Len returns the number of creatures.
func (c *Catalog) Len() int {
	return len(c.order)
}

// Creatures returns every creature in source order.
func (c *Catalog) Creatures() []Creature {
	out := make([]Creature, 0, len(c.order))
	for _, id := range c.order {
		out = append(out, c.byID[id])
	}
	return out
}

// SortedByCopyID returns every creature ordered by copy id.
func (c *Catalog) SortedByCopyID() []Creature {
	out := c.Creatures()
	sort.Slice(out, func(i, j int) bool { return out[i].CopyID < out[j].CopyID })
	return out
}

// Lookup resolves a copy id.
func (c *Catalog) Lookup(copyID int) (Creature, error) {
	cr, ok := c.byID[copyID]
	if !ok {
		return Creature{}, fmt.Errorf("copy id %d: %w", copyID, ErrNotFound)
	}
	return cr, nil
}

// Families returns family keys in the order families first appear.
func (c *Catalog) Families() []string {
	out := make([]string, len(c.families))
	copy(out, c.families)
	return out
}

// Family returns the members of a family ordered by tier rank.
func (c *Catalog) Family(key string) ([]Creature, error) {
	members, ok := c.members[key]
	if !ok {
		return nil, fmt.Errorf("family %q: %w", key, ErrNotFound)
	}
	out := make([]Creature, len(members))
	copy(out, members)
	return out, nil
}

// HighestTier returns the family member with the largest tier rank. Equal
// ranks fall back to the larger copy id.
func (c *Catalog) HighestTier(key string) (Creature, error) {
	cr, ok := c.highest[key]
	if !ok {
		return Creature{}, fmt.Errorf("family %q: %w", key, ErrNotFound)
	}
	return cr, nil
}

// HighestTiers returns one creature per family, in family order.
func (c *Catalog) HighestTiers() []Creature {
	out := make([]Creature, 0, len(c.families))
	for _, key := range c.families {
		out = append(out, c.highest[key])
	}
	return out
}

// Warnings returns the rows skipped while parsing.
func (c *Catalog) Warnings() []ParseWarning {
	out := make([]ParseWarning, len(c.warnings))
	copy(out, c.warnings)
	return out
}

func pickHighest(members []Creature) Creature {
	best := members[0]
	for _, cr := range members[1:] {
		if cr.TierRank > best.TierRank || (cr.TierRank == best.TierRank && cr.CopyID > best.CopyID) {
			best = cr
		}
	}
	return best
}
