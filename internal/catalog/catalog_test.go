package catalog

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func TestBuiltinGrouped(t *testing.T) {
	c, err := Builtin(VariantGrouped)
	if err != nil {
		t.Fatalf("Builtin: %v", err)
	}

	if got := len(c.Families()); got != 62 {
		t.Errorf("families = %d, want 62", got)
	}
	if got := c.Len(); got != 149 {
		t.Errorf("creatures = %d, want 149", got)
	}
	if w := c.Warnings(); len(w) != 0 {
		t.Errorf("unexpected warnings: %v", w)
	}

	top, err := c.HighestTier("26")
	if err != nil {
		t.Fatalf("HighestTier: %v", err)
	}
	if top.CopyID != 4533 || top.Name != "Rồng Hư Không" || top.TierRank != 2 {
		t.Errorf("HighestTier(26) = %+v", top)
	}

	pony, err := c.HighestTier("13")
	if err != nil {
		t.Fatalf("HighestTier: %v", err)
	}
	if pony.CopyID != 3487 || pony.TierRank != 0 {
		t.Errorf("HighestTier(13) = %+v", pony)
	}

	tops := c.HighestTiers()
	if len(tops) != 62 {
		t.Fatalf("HighestTiers = %d entries", len(tops))
	}
	if tops[0].CopyID != 3432 {
		t.Errorf("first family top = %d, want 3432", tops[0].CopyID)
	}
}

func TestBuiltinLeveled(t *testing.T) {
	c, err := Builtin(VariantLeveled)
	if err != nil {
		t.Fatalf("Builtin: %v", err)
	}

	families := c.Families()
	want := []string{"Chó con", "Chó ma", "Chó sói", "Mèo con", "Mèo ma", "Mèo hoang"}
	if len(families) != len(want) {
		t.Fatalf("families = %v", families)
	}
	for i := range want {
		if families[i] != want[i] {
			t.Errorf("family[%d] = %q, want %q", i, families[i], want[i])
		}
	}

	pup, err := c.Lookup(4533)
	if err != nil {
		t.Fatalf("Lookup: %v", err)
	}
	if pup.Name != "Chó con (Cấp 1)" || pup.FamilyKey != "Chó con" || pup.TierRank != 0 {
		t.Errorf("Lookup(4533) = %+v", pup)
	}

	top, err := c.HighestTier("Chó con")
	if err != nil {
		t.Fatalf("HighestTier: %v", err)
	}
	if top.CopyID != 4542 || top.TierRank != 9 {
		t.Errorf("HighestTier(Chó con) = %+v", top)
	}
}

func TestSingleCreatureFamily(t *testing.T) {
	c, err := Parse("13|3487|Pony Motor|||", VariantGrouped)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	members, err := c.Family("13")
	if err != nil {
		t.Fatalf("Family: %v", err)
	}
	if len(members) != 1 {
		t.Fatalf("members = %v", members)
	}
	want := Creature{CopyID: 3487, Name: "Pony Motor", FamilyKey: "13", TierRank: 0}
	if members[0] != want {
		t.Errorf("member = %+v, want %+v", members[0], want)
	}
	top, _ := c.HighestTier("13")
	if top != want {
		t.Errorf("HighestTier = %+v, want %+v", top, want)
	}
}

func TestHighestTierUsesSourcePosition(t *testing.T) {
	src := "07|300|Top|100|Base|200|Middle"
	c, err := Parse(src, VariantGrouped)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	top, _ := c.HighestTier("07")
	if top.CopyID != 200 || top.TierRank != 2 {
		t.Errorf("source-position top = %+v, want copy 200 rank 2", top)
	}

	legacy, err := Parse(src, VariantGrouped, RankByCopyID())
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	top, _ = legacy.HighestTier("07")
	if top.CopyID != 300 || top.TierRank != 2 {
		t.Errorf("copy-id top = %+v, want copy 300 rank 2", top)
	}
}

func TestLeveledFamilyOrderIndependentOfCopyID(t *testing.T) {
	src := `
12|Cáo (Cấp 1)
10|Cáo (Cấp 2)
11|Cáo (Cấp 3)
`
	c, err := Parse(src, VariantLeveled)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	top, _ := c.HighestTier("Cáo")
	if top.CopyID != 11 || top.TierRank != 2 {
		t.Errorf("top = %+v", top)
	}
}

func TestMalformedRowsAreSkipped(t *testing.T) {
	src := `01|1|A|2|B|3|C
garbage
02|x|Broken
03|4|D|5|E|6|F|7|G
04|1|Duplicate
01|8|Same Group
05||||
06|9|Ok|9|Again
07|10|Fine|`
	c, err := Parse(src, VariantGrouped)
	if err != nil {
		t.Fatalf("Parse must not fail on bad rows: %v", err)
	}

	families := c.Families()
	if len(families) != 2 || families[0] != "01" || families[1] != "07" {
		t.Errorf("families = %v, want [01 07]", families)
	}
	if got := len(c.Warnings()); got != 7 {
		t.Errorf("warnings = %d, want 7: %v", got, c.Warnings())
	}
	for _, w := range c.Warnings() {
		if w.Line == 1 || w.Line == 9 {
			t.Errorf("good row reported as warning: %v", w)
		}
	}
}

func TestLookupNotFound(t *testing.T) {
	c, _ := Builtin(VariantGrouped)
	if _, err := c.Lookup(1); !errors.Is(err, ErrNotFound) {
		t.Errorf("Lookup(1) err = %v, want ErrNotFound", err)
	}
	if _, err := c.HighestTier("nope"); !errors.Is(err, ErrNotFound) {
		t.Errorf("HighestTier err = %v, want ErrNotFound", err)
	}
}

func TestUnknownVariant(t *testing.T) {
	if _, err := Parse("1|a", Variant("csv")); err == nil {
		t.Error("expected error for unknown variant")
	}
}

func TestFamilyKeyFromName(t *testing.T) {
	tests := map[string]string{
		"Chó con (Cấp 10)":  "Chó con",
		"Wolf (Level 3)":    "Wolf",
		"Pony Motor":        "Pony Motor",
		"(Cấp 1)":           "(Cấp 1)",
		"Mèo (ma) (Cấp 2) ": "Mèo (ma)",
	}
	for in, want := range tests {
		if got := FamilyKeyFromName(in); got != want {
			t.Errorf("FamilyKeyFromName(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestSearch(t *testing.T) {
	c, _ := Builtin(VariantGrouped)

	hits := c.Search("rong hu khong", 5)
	if len(hits) == 0 || hits[0].Creature.CopyID != 4533 || hits[0].Distance != 0 {
		t.Fatalf("Search(rong hu khong) = %+v", hits)
	}

	hits = c.Search("Chocobp", 0)
	if len(hits) < 3 {
		t.Fatalf("Search(Chocobp) = %+v", hits)
	}
	if hits[0].Creature.CopyID != 3439 || hits[0].Distance != 1 {
		t.Errorf("first hit = %+v", hits[0])
	}

	if hits := c.Search("", 3); hits != nil {
		t.Errorf("empty query returned %v", hits)
	}
}

func TestLoadYAML(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "catalog.yaml")
	doc := `variant: leveled
rank_by_copy_id: true
rows:
  - "30|Sói (Cấp 1)"
  - "20|Sói (Cấp 2)"
`
	if err := os.WriteFile(path, []byte(doc), 0o644); err != nil {
		t.Fatal(err)
	}
	c, err := Load(path, VariantGrouped)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if c.Variant() != VariantLeveled {
		t.Errorf("variant = %s", c.Variant())
	}
	top, _ := c.HighestTier("Sói")
	if top.CopyID != 30 {
		t.Errorf("top = %+v, want copy 30 under copy-id ranking", top)
	}
}

func TestLoadText(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "catalog.txt")
	if err := os.WriteFile(path, []byte("01|5|Five|6|Six|\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	c, err := Load(path, VariantGrouped)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if c.Len() != 2 {
		t.Errorf("Len = %d", c.Len())
	}
}
