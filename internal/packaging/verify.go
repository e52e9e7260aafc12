package packaging

import (
	"encoding/json"
	"fmt"

	"github.com/miniworld/modgen/internal/models"
	"github.com/miniworld/modgen/internal/synth"
)

// Report lists every problem found in an archive. An empty Problems slice
// means the archive verified.
type Report struct {
	Files    int      `json:"files"`
	Bundles  int      `json:"bundles"`
	Signed   bool     `json:"signed"`
	Problems []string `json:"problems"`
}

// OK reports whether no problems were found.
func (r *Report) OK() bool {
	return len(r.Problems) == 0
}

func (r *Report) addf(format string, args ...any) {
	r.Problems = append(r.Problems, fmt.Sprintf(format, args...))
}

// Verify checks file hashes and the manifest signature, then that every
// crafting document shares its foreign id record with the matching item.
func (s *Signer) Verify(a *Archive) *Report {
	r := &Report{Files: len(a.Entries)}

	if a.Manifest == nil {
		r.addf("%v", ErrNoManifest)
	} else {
		r.Bundles = len(a.Manifest.Bundles)
		r.Signed = a.Manifest.Signature != ""
		if err := s.VerifySignature(a.Manifest); err != nil {
			r.addf("manifest: %v", err)
		}
		listed := make(map[string]bool, len(a.Manifest.Files))
		for _, f := range a.Manifest.Files {
			listed[f.Path] = true
			data, ok := a.Entries[f.Path]
			if !ok {
				r.addf("%s: listed in manifest but missing", f.Path)
				continue
			}
			if got := computeHash(data); got != f.SHA256 {
				r.addf("%s: sha256 mismatch", f.Path)
			}
		}
		for _, p := range a.Paths() {
			if !listed[p] {
				r.addf("%s: not listed in manifest", p)
			}
		}
	}

	checkLinks(a, r)
	return r
}

func checkLinks(a *Archive, r *Report) {
	for _, res := range a.Results() {
		id := res.Creature.CopyID
		craftFile, ok := res.FileByCategory(models.CategoryCrafting)
		if !ok {
			r.addf("copy id %d: no crafting document", id)
			continue
		}
		itemFile, ok := res.FileByCategory(models.CategoryItem)
		if !ok {
			r.addf("copy id %d: no matching item document", id)
			continue
		}

		var craft synth.CraftingDocument
		if err := json.Unmarshal([]byte(craftFile.Content), &craft); err != nil {
			r.addf("%s: %v", EntryPath(craftFile), err)
			continue
		}
		var item synth.ItemDocument
		if err := json.Unmarshal([]byte(itemFile.Content), &item); err != nil {
			r.addf("%s: %v", EntryPath(itemFile), err)
			continue
		}

		if len(craft.ForeignIDs) == 0 || len(item.ForeignIDs) == 0 {
			r.addf("copy id %d: missing foreign ids", id)
			continue
		}
		cf, itf := craft.ForeignIDs[0], item.ForeignIDs[0]
		if cf.Key != itf.Key {
			r.addf("copy id %d: crafting and item keys differ", id)
		}
		if cf.ID != item.Property.ID || craft.Property.ResultID != item.Property.ID {
			r.addf("copy id %d: result id mismatch (crafting %d, item %d)", id, craft.Property.ResultID, item.Property.ID)
		}
		if craft.Property.ID != craft.Property.ResultID+1 {
			r.addf("copy id %d: recipe id %d is not result id + 1", id, craft.Property.ID)
		}
	}
}
