// Package packaging lays generated documents out as a ZIP archive with a
// signed manifest and checks such archives back.
package packaging

import (
	"fmt"
	"time"

	"github.com/miniworld/modgen/internal/catalog"
	"github.com/miniworld/modgen/internal/models"
	"github.com/miniworld/modgen/internal/textutil"
)

// ManifestName is the archive entry holding the manifest.
const ManifestName = "manifest.json"

// TimestampLayout formats batch archive timestamps.
const TimestampLayout = "20060102_150405"

var folders = map[models.Category]string{
	models.CategoryActor:    "Actor",
	models.CategoryMount:    "Horse",
	models.CategoryCrafting: "Crafting",
	models.CategoryItem:     "Item",
}

// Folder returns the archive folder for a category. Unknown categories go to
// "Other".
func Folder(c models.Category) string {
	if f, ok := folders[c]; ok {
		return f
	}
	return "Other"
}

// EntryPath is the archive path of f.
func EntryPath(f models.GeneratedFile) string {
	return Folder(f.Category) + "/" + f.Name
}

// SingleArchiveName names the archive of one creature: {copy_id}_{name}.zip.
func SingleArchiveName(cr catalog.Creature) string {
	return fmt.Sprintf("%d_%s.zip", cr.CopyID, textutil.CleanFileName(cr.Name))
}

// BatchArchiveName names the archive of a batch run.
func BatchArchiveName(author string, at time.Time) string {
	return fmt.Sprintf("miniworld_auto_mod_%s_%s.zip", textutil.CleanFileName(author), at.Format(TimestampLayout))
}
