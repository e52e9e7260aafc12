package synth

import (
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/iancoleman/orderedmap"
)

// MaterialSlots is the number of material slots a crafting recipe reserves.
// Unused slots are written as zero, never omitted.
const MaterialSlots = 10

// ModDesc is the author/version block shared by actor, crafting and item.
type ModDesc struct {
	Author   string `json:"author"`
	Filename string `json:"filename"`
	UUID     string `json:"uuid"`
	Version  string `json:"version"`
}

// ForeignID is the cross-reference record joining crafting and item.
type ForeignID struct {
	ID  int64  `json:"id"`
	Key string `json:"key"`
}

// AIDirective is a behaviour tag on the actor.
type AIDirective struct {
	Name     string `json:"name"`
	Priority int    `json:"priority"`
}

type empty struct{}

// ActorProperty binds the mod id to the creature.
type ActorProperty struct {
	CopyID int   `json:"copyid"`
	ID     int64 `json:"id"`
}

// ActorDocument declares the creature spawn binding.
type ActorDocument struct {
	PhysicsActor []empty       `json:"PhysicsActor"`
	AvatarInfo   []empty       `json:"avatarInfo"`
	ForeignIDs   []ForeignID   `json:"foreign_ids"`
	ModDesc      ModDesc       `json:"mod_desc"`
	Property     ActorProperty `json:"property"`
	SetAI        []AIDirective `json:"set_ai"`
}

// MountProperty is the ride record. Key order is id, copyid.
type MountProperty struct {
	ID     int64 `json:"id"`
	CopyID int   `json:"copyid"`
}

// MountDocument makes the creature rideable.
type MountDocument struct {
	Property MountProperty `json:"property"`
}

// MaterialSlot is one (material id, count) pair of a recipe.
type MaterialSlot struct {
	ID    int
	Count int
}

// CraftingProperty is the recipe record. The output is ResultID; the recipe
// itself is identified by ID (ResultID + 1).
type CraftingProperty struct {
	CraftingItemID int
	CopyID         int
	ID             int64
	Materials      [MaterialSlots]MaterialSlot
	ResultCount    int
	ResultID       int64
	Type           int
}

// MarshalJSON writes the flat key layout the game reads:
// material_count1..10 then material_id1..10.
func (p CraftingProperty) MarshalJSON() ([]byte, error) {
	om := orderedmap.New()
	om.Set("CraftingItemID", p.CraftingItemID)
	om.Set("copyid", p.CopyID)
	om.Set("id", p.ID)
	for i, m := range p.Materials {
		om.Set("material_count"+strconv.Itoa(i+1), m.Count)
	}
	for i, m := range p.Materials {
		om.Set("material_id"+strconv.Itoa(i+1), m.ID)
	}
	om.Set("result_count", p.ResultCount)
	om.Set("result_id", p.ResultID)
	om.Set("type", p.Type)
	return json.Marshal(om)
}

// UnmarshalJSON reads the flat layout back.
func (p *CraftingProperty) UnmarshalJSON(data []byte) error {
	var raw map[string]int64
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("crafting property: %w", err)
	}
	p.CraftingItemID = int(raw["CraftingItemID"])
	p.CopyID = int(raw["copyid"])
	p.ID = raw["id"]
	for i := range p.Materials {
		p.Materials[i] = MaterialSlot{
			ID:    int(raw["material_id"+strconv.Itoa(i+1)]),
			Count: int(raw["material_count"+strconv.Itoa(i+1)]),
		}
	}
	p.ResultCount = int(raw["result_count"])
	p.ResultID = raw["result_id"]
	p.Type = int(raw["type"])
	return nil
}

// CraftingDocument declares the recipe producing the item.
type CraftingDocument struct {
	PhysicsActor []empty          `json:"PhysicsActor"`
	AvatarInfo   []empty          `json:"avatarInfo"`
	ForeignIDs   []ForeignID      `json:"foreign_ids"`
	ModDesc      ModDesc          `json:"mod_desc"`
	Property     CraftingProperty `json:"property"`
}

// ItemPhysics is the in-world shape of the item.
type ItemPhysics struct {
	EditType   int `json:"EditType"`
	ModelScale int `json:"ModelScale"`
	ShapeID    int `json:"ShapeID"`
	ShapeVal1  int `json:"ShapeVal1"`
	ShapeVal2  int `json:"ShapeVal2"`
	ShapeVal3  int `json:"ShapeVal3"`
}

type SkillCost struct {
	CostTarget int `json:"CostTarget"`
	CostType   int `json:"CostType"`
	CostVal    int `json:"CostVal"`
}

// SkillFunction summons MobID when the item is used.
type SkillFunction struct {
	CallNum  int   `json:"CallNum"`
	Duration int   `json:"Duration"`
	IsFollow int   `json:"IsFollow"`
	MobID    int64 `json:"MobID"`
}

type ItemSkill struct {
	ChargeTime float64         `json:"ChargeTime"`
	ChargeType int             `json:"ChargeType"`
	Cooldown   int             `json:"Cooldown"`
	Costs      []SkillCost     `json:"Costs"`
	Functions  []SkillFunction `json:"Functions"`
	RangeType  int             `json:"RangeType"`
	RangeVal1  int             `json:"RangeVal1"`
	RangeVal2  int             `json:"RangeVal2"`
	RangeVal3  int             `json:"RangeVal3"`
	SkillType  int             `json:"SkillType"`
	TargetCamp int             `json:"TargetCamp"`
	Name       string          `json:"name"`
	Priority   int             `json:"priority"`
	TemplateID int             `json:"templateid"`
}

type ItemProperty struct {
	CopyID   int    `json:"copyid"`
	Describe string `json:"describe"`
	Icon     string `json:"icon"`
	ID       int64  `json:"id"`
	Model    string `json:"model"`
	Name     string `json:"name"`
	OrignID  int64  `json:"orignid"`
	StackMax int    `json:"stack_max"`
}

// ItemDocument declares the craftable item that summons the creature.
type ItemDocument struct {
	PhysicsActor ItemPhysics  `json:"PhysicsActor"`
	AvatarInfo   []empty      `json:"avatarInfo"`
	ForeignIDs   []ForeignID  `json:"foreign_ids"`
	ItemSkills   []ItemSkill  `json:"itemskills"`
	ModDesc      ModDesc      `json:"mod_desc"`
	Property     ItemProperty `json:"property"`
}
