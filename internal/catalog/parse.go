package catalog

import (
	"bufio"
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"go.uber.org/zap"
)

const delimiter = "|"

// tierSuffix matches a trailing qualifier such as " (Cấp 3)" or " (Level 3)".
var tierSuffix = regexp.MustCompile(`\s*\([^()]*\)\s*$`)

// FamilyKeyFromName strips the trailing tier qualifier from a leveled name.
func FamilyKeyFromName(name string) string {
	key := strings.TrimSpace(tierSuffix.ReplaceAllString(name, ""))
	if key == "" {
		return strings.TrimSpace(name)
	}
	return key
}

// Parse builds a catalog from newline-delimited rows. It only fails for an
// unknown variant; malformed rows are skipped.
func Parse(src string, variant Variant, opts ...Option) (*Catalog, error) {
	o := options{logger: zap.NewNop()}
	for _, opt := range opts {
		opt(&o)
	}

	b := &builder{
		opts:    o,
		seenIDs: make(map[int]int),
		members: make(map[string][]Creature),
	}

	var addLine func(int, string)
	switch variant {
	case VariantGrouped:
		addLine = b.addGroupedLine
	case VariantLeveled:
		addLine = b.addLeveledLine
	default:
		return nil, fmt.Errorf("catalog: unknown variant %q", variant)
	}

	scanner := bufio.NewScanner(strings.NewReader(src))
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		raw := strings.TrimSpace(scanner.Text())
		if raw == "" || strings.HasPrefix(raw, "#") {
			continue
		}
		addLine(lineNo, raw)
	}
	if err := scanner.Err(); err != nil {
		b.warn(lineNo+1, "", fmt.Sprintf("read aborted: %v", err))
	}

	return b.build(variant), nil
}

type builder struct {
	opts     options
	order    []int
	seenIDs  map[int]int
	families []string
	members  map[string][]Creature
	warnings []ParseWarning
}

func (b *builder) warn(line int, raw, reason string) {
	w := ParseWarning{Line: line, Raw: raw, Reason: reason}
	b.warnings = append(b.warnings, w)
	b.opts.logger.Warn("skipping catalog row",
		zap.Int("line", line),
		zap.String("reason", reason),
		zap.String("raw", raw),
	)
}

func (b *builder) addGroupedLine(lineNo int, raw string) {
	parts := strings.Split(raw, delimiter)
	if len(parts) < 3 || len(parts) > 1+2*MaxTiers {
		b.warn(lineNo, raw, fmt.Sprintf("expected 3 to %d fields, got %d", 1+2*MaxTiers, len(parts)))
		return
	}

	key := strings.TrimSpace(parts[0])
	if key == "" {
		b.warn(lineNo, raw, "missing group number")
		return
	}
	if _, dup := b.members[key]; dup {
		b.warn(lineNo, raw, fmt.Sprintf("duplicate group %q", key))
		return
	}

	var members []Creature
	rowIDs := make(map[int]bool)
	for i := 1; i+1 < len(parts); i += 2 {
		idText := strings.TrimSpace(parts[i])
		name := strings.TrimSpace(parts[i+1])
		if idText == "" || name == "" {
			continue
		}
		id, err := strconv.Atoi(idText)
		if err != nil || id <= 0 {
			b.warn(lineNo, raw, fmt.Sprintf("invalid copy id %q", idText))
			return
		}
		if rowIDs[id] {
			b.warn(lineNo, raw, fmt.Sprintf("copy id %d repeated within row", id))
			return
		}
		if prev, dup := b.seenIDs[id]; dup {
			b.warn(lineNo, raw, fmt.Sprintf("copy id %d already defined on line %d", id, prev))
			return
		}
		rowIDs[id] = true
		members = append(members, Creature{
			CopyID:    id,
			Name:      name,
			FamilyKey: key,
			TierRank:  len(members),
		})
	}
	if len(members) == 0 {
		b.warn(lineNo, raw, "row has no creatures")
		return
	}

	b.families = append(b.families, key)
	for _, cr := range members {
		b.seenIDs[cr.CopyID] = lineNo
		b.order = append(b.order, cr.CopyID)
	}
	b.members[key] = members
}

func (b *builder) addLeveledLine(lineNo int, raw string) {
	parts := strings.Split(raw, delimiter)
	if len(parts) != 2 {
		b.warn(lineNo, raw, fmt.Sprintf("expected 2 fields, got %d", len(parts)))
		return
	}
	idText := strings.TrimSpace(parts[0])
	name := strings.TrimSpace(parts[1])
	if name == "" {
		b.warn(lineNo, raw, "missing name")
		return
	}
	id, err := strconv.Atoi(idText)
	if err != nil || id <= 0 {
		b.warn(lineNo, raw, fmt.Sprintf("invalid copy id %q", idText))
		return
	}
	if prev, dup := b.seenIDs[id]; dup {
		b.warn(lineNo, raw, fmt.Sprintf("copy id %d already defined on line %d", id, prev))
		return
	}

	key := FamilyKeyFromName(name)
	if _, ok := b.members[key]; !ok {
		b.families = append(b.families, key)
	}
	b.members[key] = append(b.members[key], Creature{
		CopyID:    id,
		Name:      name,
		FamilyKey: key,
		TierRank:  len(b.members[key]),
	})
	b.seenIDs[id] = lineNo
	b.order = append(b.order, id)
}

func (b *builder) build(variant Variant) *Catalog {
	c := &Catalog{
		variant:  variant,
		order:    b.order,
		byID:     make(map[int]Creature, len(b.order)),
		families: b.families,
		members:  b.members,
		highest:  make(map[string]Creature, len(b.families)),
		warnings: b.warnings,
	}

	for _, key := range c.families {
		members := c.members[key]
		if b.opts.rankByCopyID {
			sort.SliceStable(members, func(i, j int) bool { return members[i].CopyID < members[j].CopyID })
			for i := range members {
				members[i].TierRank = i
			}
		}
		for _, cr := range members {
			c.byID[cr.CopyID] = cr
		}
		c.highest[key] = pickHighest(members)
	}
	return c
}
