package synth

import (
	"errors"
	"fmt"
	"strconv"

	"github.com/iancoleman/orderedmap"
	"github.com/invopop/jsonschema"

	"github.com/miniworld/modgen/internal/models"
)

// ErrUnknownCategory is returned by Schema for a category with no document.
var ErrUnknownCategory = errors.New("synth: unknown document category")

var documentTypes = map[models.Category]any{
	models.CategoryActor:    new(ActorDocument),
	models.CategoryMount:    new(MountDocument),
	models.CategoryCrafting: new(CraftingDocument),
	models.CategoryItem:     new(ItemDocument),
}

// Schema describes the JSON layout of one document category.
func Schema(c models.Category) (*jsonschema.Schema, error) {
	doc, ok := documentTypes[c]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownCategory, c)
	}

	reflector := jsonschema.Reflector{
		AllowAdditionalProperties: true,
	}
	schema := reflector.Reflect(doc)
	schema.Title = "MiniWorld " + string(c) + " document"

	// The crafting property is written flat by MarshalJSON, not as its Go
	// fields.
	if def, ok := schema.Definitions["CraftingProperty"]; ok {
		flattenCraftingProperty(def)
		delete(schema.Definitions, "MaterialSlot")
	}
	return schema, nil
}

func flattenCraftingProperty(t *jsonschema.Schema) {
	props := orderedmap.New()
	var keys []string
	add := func(key string) {
		props.Set(key, &jsonschema.Schema{Type: "integer"})
		keys = append(keys, key)
	}

	add("CraftingItemID")
	add("copyid")
	add("id")
	for i := 1; i <= MaterialSlots; i++ {
		add("material_count" + strconv.Itoa(i))
	}
	for i := 1; i <= MaterialSlots; i++ {
		add("material_id" + strconv.Itoa(i))
	}
	add("result_count")
	add("result_id")
	add("type")

	t.Properties = props
	t.Required = keys
}
