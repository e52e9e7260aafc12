package catalog

import (
	"sort"
	"strings"

	"github.com/agnivade/levenshtein"

	"github.com/miniworld/modgen/internal/textutil"
)

// Match is a Search hit. Lower Distance is closer; exact and substring hits
// have Distance 0.
type Match struct {
	Creature Creature `json:"creature"`
	Distance int      `json:"distance"`
}

// Search finds creatures whose name resembles query, ignoring case and
// Vietnamese diacritics. At most limit matches are returned (limit <= 0 means
// no limit), closest first, ties broken by copy id.
func (c *Catalog) Search(query string, limit int) []Match {
	q := textutil.Fold(query)
	if q == "" {
		return nil
	}

	var matches []Match
	for _, id := range c.order {
		cr := c.byID[id]
		name := textutil.Fold(cr.Name)
		if strings.Contains(name, q) {
			matches = append(matches, Match{Creature: cr, Distance: 0})
			continue
		}
		if len(q) < 3 {
			continue
		}
		dist := closestDistance(q, name)
		if dist > distanceLimit(len(q)) {
			continue
		}
		matches = append(matches, Match{Creature: cr, Distance: dist})
	}

	sort.SliceStable(matches, func(i, j int) bool {
		if matches[i].Distance == matches[j].Distance {
			return matches[i].Creature.CopyID < matches[j].Creature.CopyID
		}
		return matches[i].Distance < matches[j].Distance
	})
	if limit > 0 && len(matches) > limit {
		matches = matches[:limit]
	}
	return matches
}

// closestDistance compares the query against the whole name and against
// every run of words in the name of the same word count.
func closestDistance(q, name string) int {
	best := levenshtein.ComputeDistance(q, name)
	qWords := len(strings.Fields(q))
	words := strings.Fields(name)
	for i := 0; i+qWords <= len(words); i++ {
		window := strings.Join(words[i:i+qWords], " ")
		if d := levenshtein.ComputeDistance(q, window); d < best {
			best = d
		}
	}
	return best
}

func distanceLimit(length int) int {
	switch {
	case length <= 4:
		return 1
	case length <= 8:
		return 2
	default:
		return 3
	}
}
