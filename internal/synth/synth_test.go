package synth

import (
	"encoding/json"
	"errors"
	"fmt"
	"reflect"
	"strings"
	"testing"

	"github.com/miniworld/modgen/internal/catalog"
	"github.com/miniworld/modgen/internal/models"
)

type fixedEntropy struct {
	uuid   string
	digits []string
	calls  int
	err    error
}

func (f *fixedEntropy) NewUUID() (string, error) {
	if f.err != nil {
		return "", f.err
	}
	return f.uuid, nil
}

func (f *fixedEntropy) Digits(n int) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	d := f.digits[f.calls%len(f.digits)]
	f.calls++
	return d[:n], nil
}

func newFixed() *fixedEntropy {
	return &fixedEntropy{
		uuid:   "0b1c2d3e-4f50-6172-8394-a5b6c7d8e9f0",
		digits: []string{"1111111111", "2222222222", "3333333333", "4444444444"},
	}
}

func sampleRequest() models.GenerationRequest {
	return models.GenerationRequest{
		ModID:    2,
		Creature: catalog.Creature{CopyID: 4533, Name: "Chó con (Cấp 1)", FamilyKey: "Chó con"},
		Author:   "tester",
	}
}

func decode[T any](t *testing.T, res *models.GenerationResult, name string) T {
	t.Helper()
	f, ok := res.File(name)
	if !ok {
		t.Fatalf("file %s missing", name)
	}
	var v T
	if err := json.Unmarshal([]byte(f.Content), &v); err != nil {
		t.Fatalf("decode %s: %v", name, err)
	}
	return v
}

func TestSynthesizeExample(t *testing.T) {
	s := New(WithEntropy(newFixed()))
	res, err := s.Synthesize(sampleRequest(), 4097)
	if err != nil {
		t.Fatalf("Synthesize failed: %v", err)
	}

	want := []string{"4533du.json", "4533duride.json", "craft4533.json", "item4533.json"}
	if len(res.Files) != len(want) {
		t.Fatalf("expected %d files, got %d", len(want), len(res.Files))
	}
	for i, name := range want {
		if res.Files[i].Name != name {
			t.Errorf("file %d: expected %s, got %s", i, name, res.Files[i].Name)
		}
		if res.Files[i].Category != models.Categories[i] {
			t.Errorf("file %d: expected category %s, got %s", i, models.Categories[i], res.Files[i].Category)
		}
	}

	item, _ := res.File("item4533.json")
	for _, frag := range []string{`"id": 4097`, `"name": "Chó con (Cấp 1)"`, `"MobID": 2`} {
		if !strings.Contains(item.Content, frag) {
			t.Errorf("item document missing %s", frag)
		}
	}
	craft, _ := res.File("craft4533.json")
	if !strings.Contains(craft.Content, `"result_id": 4097`) {
		t.Error("crafting document missing result_id 4097")
	}

	actor := decode[ActorDocument](t, res, "4533du.json")
	if actor.Property.ID != 2 || actor.Property.CopyID != 4533 {
		t.Errorf("unexpected actor property %+v", actor.Property)
	}
	if len(actor.SetAI) != 1 || actor.SetAI[0].Name != "swimming" {
		t.Errorf("unexpected set_ai %+v", actor.SetAI)
	}
	mount := decode[MountDocument](t, res, "4533duride.json")
	if mount.Property.ID != 2 || mount.Property.CopyID != 4533 {
		t.Errorf("unexpected mount property %+v", mount.Property)
	}
}

func TestCraftingAndItemShareKey(t *testing.T) {
	res, err := New(WithEntropy(newFixed())).Synthesize(sampleRequest(), 4097)
	if err != nil {
		t.Fatalf("Synthesize failed: %v", err)
	}
	craft := decode[CraftingDocument](t, res, "craft4533.json")
	item := decode[ItemDocument](t, res, "item4533.json")

	wantKey := "tester0b1c2d3e4f5061728394a5b6c7d8e9f01111111111"
	if res.LinkKey != wantKey {
		t.Errorf("expected key %s, got %s", wantKey, res.LinkKey)
	}
	if len(craft.ForeignIDs) != 1 || len(item.ForeignIDs) != 1 {
		t.Fatalf("expected one foreign id each, got %d and %d", len(craft.ForeignIDs), len(item.ForeignIDs))
	}
	if craft.ForeignIDs[0] != item.ForeignIDs[0] {
		t.Errorf("foreign ids differ: %+v vs %+v", craft.ForeignIDs[0], item.ForeignIDs[0])
	}
	if craft.ForeignIDs[0].Key != wantKey {
		t.Errorf("expected foreign key %s, got %s", wantKey, craft.ForeignIDs[0].Key)
	}
	if item.Property.ID != 4097 || craft.ForeignIDs[0].ID != 4097 || craft.Property.ResultID != 4097 {
		t.Errorf("result id mismatch: item %d foreign %d result %d",
			item.Property.ID, craft.ForeignIDs[0].ID, craft.Property.ResultID)
	}
	if craft.Property.ID != 4098 {
		t.Errorf("expected recipe id 4098, got %d", craft.Property.ID)
	}
	if item.ModDesc.UUID != craft.ModDesc.UUID {
		t.Error("crafting and item carry different uuids")
	}
}

func TestModDescFilenamesAreFresh(t *testing.T) {
	res, err := New(WithEntropy(newFixed())).Synthesize(sampleRequest(), 4097)
	if err != nil {
		t.Fatalf("Synthesize failed: %v", err)
	}
	seen := map[string]string{}
	actor := decode[ActorDocument](t, res, "4533du.json")
	craft := decode[CraftingDocument](t, res, "craft4533.json")
	item := decode[ItemDocument](t, res, "item4533.json")
	for name, d := range map[string]ModDesc{"actor": actor.ModDesc, "crafting": craft.ModDesc, "item": item.ModDesc} {
		if len(d.Filename) != DigitCount {
			t.Errorf("%s filename %q has wrong length", name, d.Filename)
		}
		if other, dup := seen[d.Filename]; dup {
			t.Errorf("%s reuses filename digits of %s", name, other)
		}
		seen[d.Filename] = name
		if d.Author != "tester" || d.Version != "1" {
			t.Errorf("%s mod_desc unexpected: %+v", name, d)
		}
	}
}

func TestMaterialSlots(t *testing.T) {
	res, err := New(WithEntropy(newFixed())).Synthesize(sampleRequest(), 4097)
	if err != nil {
		t.Fatalf("Synthesize failed: %v", err)
	}
	craft, _ := res.File("craft4533.json")
	var raw struct {
		Property map[string]json.RawMessage `json:"property"`
	}
	if err := json.Unmarshal([]byte(craft.Content), &raw); err != nil {
		t.Fatalf("decode: %v", err)
	}
	prop := raw.Property
	for i := 1; i <= MaterialSlots; i++ {
		for _, prefix := range []string{"material_id", "material_count"} {
			key := fmt.Sprintf("%s%d", prefix, i)
			v, ok := prop[key]
			if !ok {
				t.Errorf("missing %s", key)
				continue
			}
			want := "0"
			if i == 1 && prefix == "material_id" {
				want = "101"
			} else if i == 1 {
				want = "1"
			}
			if string(v) != want {
				t.Errorf("%s: expected %s, got %s", key, want, v)
			}
		}
	}
	if string(prop["CraftingItemID"]) != "11000" {
		t.Errorf("unexpected CraftingItemID %s", prop["CraftingItemID"])
	}
	if strings.Index(craft.Content, `"material_count10"`) > strings.Index(craft.Content, `"material_id1"`) {
		t.Error("material counts should precede material ids")
	}
}

func TestSynthesizeDeterministicWithFixedEntropy(t *testing.T) {
	a, err := New(WithEntropy(newFixed())).Synthesize(sampleRequest(), 4097)
	if err != nil {
		t.Fatal(err)
	}
	b, err := New(WithEntropy(newFixed())).Synthesize(sampleRequest(), 4097)
	if err != nil {
		t.Fatal(err)
	}
	for i := range a.Files {
		if a.Files[i].Content != b.Files[i].Content {
			t.Errorf("file %s differs between runs", a.Files[i].Name)
		}
	}
}

// stripRandom removes the fields drawn from the entropy source and returns
// what was removed.
func stripRandom(t *testing.T, content string) (map[string]any, []string) {
	t.Helper()
	var doc map[string]any
	if err := json.Unmarshal([]byte(content), &doc); err != nil {
		t.Fatal(err)
	}
	var removed []string
	if desc, ok := doc["mod_desc"].(map[string]any); ok {
		removed = append(removed, fmt.Sprint(desc["filename"]), fmt.Sprint(desc["uuid"]))
		delete(desc, "filename")
		delete(desc, "uuid")
	}
	if ids, ok := doc["foreign_ids"].([]any); ok {
		for _, v := range ids {
			if rec, ok := v.(map[string]any); ok {
				removed = append(removed, fmt.Sprint(rec["key"]))
				delete(rec, "key")
			}
		}
	}
	return doc, removed
}

func TestSynthesizeOnlyRandomFieldsVary(t *testing.T) {
	s := New(WithEntropy(CryptoEntropy{}))
	a, err := s.Synthesize(sampleRequest(), 4097)
	if err != nil {
		t.Fatal(err)
	}
	b, err := s.Synthesize(sampleRequest(), 4097)
	if err != nil {
		t.Fatal(err)
	}
	if len(a.Files) != len(b.Files) {
		t.Fatalf("file counts differ: %d vs %d", len(a.Files), len(b.Files))
	}
	if a.UUID == b.UUID || a.LinkKey == b.LinkKey {
		t.Fatal("expected fresh uuid and link key per call")
	}

	for i := range a.Files {
		if a.Files[i].Name != b.Files[i].Name || a.Files[i].Category != b.Files[i].Category {
			t.Fatalf("file %d: %s vs %s", i, a.Files[i].Name, b.Files[i].Name)
		}
		docA, randA := stripRandom(t, a.Files[i].Content)
		docB, randB := stripRandom(t, b.Files[i].Content)
		if !reflect.DeepEqual(docA, docB) {
			t.Errorf("%s: fields outside mod_desc and foreign_ids differ", a.Files[i].Name)
		}
		if len(randA) > 0 && reflect.DeepEqual(randA, randB) {
			t.Errorf("%s: uuid and keys repeated across calls", a.Files[i].Name)
		}
	}
}

func TestSynthesizeRejectsBadInput(t *testing.T) {
	s := New(WithEntropy(newFixed()))
	cases := []struct {
		name     string
		mutate   func(*models.GenerationRequest)
		resultID int64
		want     error
	}{
		{"blank author", func(r *models.GenerationRequest) { r.Author = "  " }, 4097, ErrMissingAuthor},
		{"zero mod id", func(r *models.GenerationRequest) { r.ModID = 0 }, 4097, ErrInvalidModID},
		{"zero result id", func(*models.GenerationRequest) {}, 0, ErrInvalidResultID},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := sampleRequest()
			tc.mutate(&req)
			res, err := s.Synthesize(req, tc.resultID)
			if !errors.Is(err, tc.want) {
				t.Errorf("expected %v, got %v", tc.want, err)
			}
			if res != nil {
				t.Error("expected no result")
			}
		})
	}
}

func TestSynthesizeEntropyFailure(t *testing.T) {
	boom := errors.New("no entropy")
	e := newFixed()
	e.err = boom
	res, err := New(WithEntropy(e)).Synthesize(sampleRequest(), 4097)
	if !errors.Is(err, boom) {
		t.Errorf("expected entropy error, got %v", err)
	}
	if res != nil {
		t.Error("expected nil result on failure")
	}
}

func TestCryptoEntropy(t *testing.T) {
	var e CryptoEntropy
	d, err := e.Digits(DigitCount)
	if err != nil {
		t.Fatal(err)
	}
	if len(d) != DigitCount || strings.Trim(d, "0123456789") != "" {
		t.Errorf("unexpected digits %q", d)
	}
	u, err := e.NewUUID()
	if err != nil {
		t.Fatal(err)
	}
	if len(strings.ReplaceAll(u, "-", "")) != 32 {
		t.Errorf("unexpected uuid %q", u)
	}
}

func TestNonASCIINotEscaped(t *testing.T) {
	out, err := Encode(map[string]string{"name": "Rồng <Hư> Không"})
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out, "Rồng <Hư> Không") {
		t.Errorf("expected raw text, got %s", out)
	}
}

func TestSchemaFlattensCraftingProperty(t *testing.T) {
	schema, err := Schema(models.CategoryCrafting)
	if err != nil {
		t.Fatalf("schema: %v", err)
	}
	def, ok := schema.Definitions["CraftingProperty"]
	if !ok {
		t.Fatalf("missing CraftingProperty definition")
	}
	keys := def.Properties.Keys()
	if len(keys) != 3+2*MaterialSlots+3 {
		t.Fatalf("expected %d crafting keys, got %d", 3+2*MaterialSlots+3, len(keys))
	}
	if keys[3] != "material_count1" || keys[13] != "material_id1" {
		t.Fatalf("unexpected key order: %v", keys)
	}
	if _, ok := schema.Definitions["MaterialSlot"]; ok {
		t.Fatalf("MaterialSlot should not appear in the schema")
	}

	if _, err := Schema(models.Category("bogus")); !errors.Is(err, ErrUnknownCategory) {
		t.Fatalf("expected ErrUnknownCategory, got %v", err)
	}
}
