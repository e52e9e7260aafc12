// Package synth builds the four linked documents of a mod bundle.
//
// One call produces an actor, a mount record, a crafting recipe and an item.
// The recipe and the item carry the same foreign id record
// {id: result_id, key: author + uuid-without-dashes + 10 digits}; that key is
// how the game joins them, so it is drawn once per call and reused.
package synth

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/miniworld/modgen/internal/models"
)

// DigitCount is the length of every random digit string in a bundle.
const DigitCount = 10

var (
	ErrInvalidResultID = errors.New("result id must be positive")
	ErrInvalidModID    = errors.New("mod id must be positive")
	ErrMissingAuthor   = errors.New("author is required")
)

// File names, keyed by copy id.
func ActorFileName(copyID int) string    { return fmt.Sprintf("%ddu.json", copyID) }
func MountFileName(copyID int) string    { return fmt.Sprintf("%dduride.json", copyID) }
func CraftingFileName(copyID int) string { return fmt.Sprintf("craft%d.json", copyID) }
func ItemFileName(copyID int) string     { return fmt.Sprintf("item%d.json", copyID) }

// LinkKey derives the cross-reference key.
func LinkKey(author, uuid, digits string) string {
	return author + strings.ReplaceAll(uuid, "-", "") + digits
}

// Synthesizer is stateless apart from its entropy source and profile and may
// be shared between goroutines if the entropy source can.
type Synthesizer struct {
	entropy Entropy
	profile Profile
}

// Option configures a Synthesizer.
type Option func(*Synthesizer)

// WithEntropy replaces the crypto/rand source, mostly for tests.
func WithEntropy(e Entropy) Option {
	return func(s *Synthesizer) { s.entropy = e }
}

// WithMaterialID overrides the recipe's required material.
func WithMaterialID(id int) Option {
	return func(s *Synthesizer) {
		if id > 0 {
			s.profile.Material.ID = id
		}
	}
}

func New(opts ...Option) *Synthesizer {
	s := &Synthesizer{entropy: CryptoEntropy{}, profile: DefaultProfile()}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// bundle carries the per-call values shared by the four builders.
type bundle struct {
	req      models.GenerationRequest
	resultID int64
	author   string
	uuid     string
	key      string
}

// Synthesize produces the four documents for req using resultID. It either
// returns all four or an error and no output.
func (s *Synthesizer) Synthesize(req models.GenerationRequest, resultID int64) (*models.GenerationResult, error) {
	author := strings.TrimSpace(req.Author)
	switch {
	case author == "":
		return nil, ErrMissingAuthor
	case req.ModID <= 0:
		return nil, ErrInvalidModID
	case resultID <= 0:
		return nil, ErrInvalidResultID
	}

	id, err := s.entropy.NewUUID()
	if err != nil {
		return nil, err
	}
	digits, err := s.entropy.Digits(DigitCount)
	if err != nil {
		return nil, err
	}
	b := bundle{
		req:      req,
		resultID: resultID,
		author:   author,
		uuid:     id,
		key:      LinkKey(author, id, digits),
	}

	builders := []func(bundle) (models.GeneratedFile, error){
		s.buildActor,
		s.buildMount,
		s.buildCrafting,
		s.buildItem,
	}
	files := make([]models.GeneratedFile, 0, len(builders))
	for _, build := range builders {
		f, err := build(b)
		if err != nil {
			return nil, err
		}
		files = append(files, f)
	}

	return &models.GenerationResult{
		ModID:    req.ModID,
		ResultID: resultID,
		Creature: req.Creature,
		Author:   author,
		UUID:     id,
		LinkKey:  b.key,
		Files:    files,
	}, nil
}

func (s *Synthesizer) modDesc(b bundle) (ModDesc, error) {
	filename, err := s.entropy.Digits(DigitCount)
	if err != nil {
		return ModDesc{}, err
	}
	return ModDesc{
		Author:   b.author,
		Filename: filename,
		UUID:     b.uuid,
		Version:  s.profile.Version,
	}, nil
}

func (s *Synthesizer) buildActor(b bundle) (models.GeneratedFile, error) {
	desc, err := s.modDesc(b)
	if err != nil {
		return models.GeneratedFile{}, err
	}
	doc := ActorDocument{
		PhysicsActor: []empty{},
		AvatarInfo:   []empty{},
		ForeignIDs:   []ForeignID{},
		ModDesc:      desc,
		Property:     ActorProperty{CopyID: b.req.Creature.CopyID, ID: b.req.ModID},
		SetAI:        []AIDirective{s.profile.DefaultAI},
	}
	return file(ActorFileName(b.req.Creature.CopyID), models.CategoryActor, doc)
}

func (s *Synthesizer) buildMount(b bundle) (models.GeneratedFile, error) {
	doc := MountDocument{
		Property: MountProperty{ID: b.req.ModID, CopyID: b.req.Creature.CopyID},
	}
	return file(MountFileName(b.req.Creature.CopyID), models.CategoryMount, doc)
}

func (s *Synthesizer) buildCrafting(b bundle) (models.GeneratedFile, error) {
	desc, err := s.modDesc(b)
	if err != nil {
		return models.GeneratedFile{}, err
	}
	prop := CraftingProperty{
		CraftingItemID: s.profile.CraftingItemID,
		CopyID:         b.req.Creature.CopyID,
		ID:             b.resultID + 1,
		ResultCount:    1,
		ResultID:       b.resultID,
	}
	prop.Materials[0] = s.profile.Material
	doc := CraftingDocument{
		PhysicsActor: []empty{},
		AvatarInfo:   []empty{},
		ForeignIDs:   []ForeignID{{ID: b.resultID, Key: b.key}},
		ModDesc:      desc,
		Property:     prop,
	}
	return file(CraftingFileName(b.req.Creature.CopyID), models.CategoryCrafting, doc)
}

func (s *Synthesizer) buildItem(b bundle) (models.GeneratedFile, error) {
	desc, err := s.modDesc(b)
	if err != nil {
		return models.GeneratedFile{}, err
	}
	skill := s.profile.SummonSkill
	skill.Costs = []SkillCost{{CostTarget: s.profile.ItemCopyID, CostType: 1, CostVal: 0}}
	skill.Functions = []SkillFunction{{CallNum: 1, Duration: 0, IsFollow: 0, MobID: b.req.ModID}}

	doc := ItemDocument{
		PhysicsActor: s.profile.ItemPhysics,
		AvatarInfo:   []empty{},
		ForeignIDs:   []ForeignID{{ID: b.resultID, Key: b.key}},
		ItemSkills:   []ItemSkill{skill},
		ModDesc:      desc,
		Property: ItemProperty{
			CopyID:   s.profile.ItemCopyID,
			Describe: "",
			Icon:     s.profile.ItemAsset,
			ID:       b.resultID,
			Model:    s.profile.ItemAsset,
			Name:     b.req.Creature.Name,
			OrignID:  b.resultID,
			StackMax: 1,
		},
	}
	return file(ItemFileName(b.req.Creature.CopyID), models.CategoryItem, doc)
}

func file(name string, category models.Category, doc any) (models.GeneratedFile, error) {
	content, err := Encode(doc)
	if err != nil {
		return models.GeneratedFile{}, fmt.Errorf("encode %s: %w", name, err)
	}
	return models.GeneratedFile{Name: name, Content: content, Category: category}, nil
}

// Encode renders v as two-space indented JSON without HTML escaping. Non-ASCII
// text is written as-is.
func Encode(v any) (string, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return "", err
	}
	return strings.TrimSuffix(buf.String(), "\n"), nil
}
