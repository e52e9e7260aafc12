package synth

// Profile holds the fixed defaults written into every bundle.
type Profile struct {
	Version        string
	DefaultAI      AIDirective
	CraftingItemID int
	Material       MaterialSlot
	ItemCopyID     int
	ItemAsset      string
	ItemPhysics    ItemPhysics
	SummonSkill    ItemSkill
}

// DefaultProfile matches what the game accepts for a summonable mount: a
// swimming actor, one unit of material 101 at the crafting table, and a
// "feature_call_monster" skill on the item.
func DefaultProfile() Profile {
	return Profile{
		Version:        "1",
		DefaultAI:      AIDirective{Name: "swimming", Priority: 1},
		CraftingItemID: 11000,
		Material:       MaterialSlot{ID: 101, Count: 1},
		ItemCopyID:     10100,
		ItemAsset:      "*11653",
		ItemPhysics: ItemPhysics{
			EditType:   2,
			ModelScale: 1,
			ShapeID:    0,
			ShapeVal1:  50,
		},
		SummonSkill: ItemSkill{
			ChargeTime: 1.5,
			ChargeType: 0,
			Cooldown:   5,
			RangeType:  0,
			RangeVal1:  1000,
			RangeVal2:  300,
			RangeVal3:  300,
			SkillType:  1,
			TargetCamp: 0,
			Name:       "feature_call_monster",
			Priority:   0,
			TemplateID: 103,
		},
	}
}
