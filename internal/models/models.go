package models

import (
	"time"

	"github.com/miniworld/modgen/internal/catalog"
)

// Category tells packaging which folder a generated file belongs in.
type Category string

const (
	CategoryActor    Category = "actor"
	CategoryMount    Category = "horse"
	CategoryCrafting Category = "crafting"
	CategoryItem     Category = "item"
)

// Categories lists every category in document order.
var Categories = []Category{CategoryActor, CategoryMount, CategoryCrafting, CategoryItem}

// GenerationRequest is one (creature, author, mod id) tuple to synthesize.
type GenerationRequest struct {
	ModID    int64            `json:"mod_id"`
	Creature catalog.Creature `json:"creature"`
	Author   string           `json:"author"`
}

// GeneratedFile is one serialized document.
type GeneratedFile struct {
	Name     string   `json:"name"`
	Content  string   `json:"content"`
	Category Category `json:"category"`
}

// GenerationResult is the output of one synthesis call. Files keep the order
// actor, mount, crafting, item.
type GenerationResult struct {
	ModID    int64            `json:"mod_id"`
	ResultID int64            `json:"result_id"`
	Creature catalog.Creature `json:"creature"`
	Author   string           `json:"author"`
	UUID     string           `json:"uuid"`
	LinkKey  string           `json:"link_key"`
	Files    []GeneratedFile  `json:"files"`
}

// File returns the file called name.
func (r *GenerationResult) File(name string) (GeneratedFile, bool) {
	for _, f := range r.Files {
		if f.Name == name {
			return f, true
		}
	}
	return GeneratedFile{}, false
}

// FileByCategory returns the first file of category c.
func (r *GenerationResult) FileByCategory(c Category) (GeneratedFile, bool) {
	for _, f := range r.Files {
		if f.Category == c {
			return f, true
		}
	}
	return GeneratedFile{}, false
}

// BatchFailure records a creature the batch skipped.
type BatchFailure struct {
	Creature catalog.Creature `json:"creature"`
	ModID    int64            `json:"mod_id"`
	ResultID int64            `json:"result_id"`
	Error    string           `json:"error"`
}

// BatchResult aggregates a run over every catalog family.
type BatchResult struct {
	Author      string              `json:"author"`
	Results     []*GenerationResult `json:"results"`
	Failures    []BatchFailure      `json:"failures"`
	NextIDAfter int64               `json:"next_id_after"`
	StartedAt   time.Time           `json:"started_at"`
	Duration    time.Duration       `json:"duration_ns"`
}

// FileCount returns the number of files across all results.
func (b *BatchResult) FileCount() int {
	n := 0
	for _, r := range b.Results {
		n += len(r.Files)
	}
	return n
}
