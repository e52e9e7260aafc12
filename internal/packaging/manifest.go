package packaging

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/miniworld/modgen/internal/models"
)

// ManifestVersion is bumped when the manifest layout changes.
const ManifestVersion = "1"

// ManifestFile describes one archive entry.
type ManifestFile struct {
	Path     string          `json:"path"`
	Category models.Category `json:"category"`
	SHA256   string          `json:"sha256"`
	Size     int             `json:"size"`
}

// ManifestBundle describes one creature's bundle.
type ManifestBundle struct {
	CopyID   int      `json:"copy_id"`
	Name     string   `json:"name"`
	ModID    int64    `json:"mod_id"`
	ResultID int64    `json:"result_id"`
	LinkKey  string   `json:"link_key"`
	Files    []string `json:"files"`
}

// Manifest is written as manifest.json in every archive.
type Manifest struct {
	ID        uuid.UUID        `json:"id"`
	Version   string           `json:"version"`
	Author    string           `json:"author"`
	CreatedAt time.Time        `json:"created_at"`
	Bundles   []ManifestBundle `json:"bundles"`
	Files     []ManifestFile   `json:"files"`
	HashChain string           `json:"hash_chain"`
	Signature string           `json:"signature,omitempty"`
}

// Signer computes manifest hashes and HMAC-SHA256 signatures. A Signer with
// an empty key leaves manifests unsigned.
type Signer struct {
	signingKey []byte
}

func NewSigner(signingKey string) *Signer {
	return &Signer{signingKey: []byte(signingKey)}
}

// Enabled reports whether a signing key is configured.
func (s *Signer) Enabled() bool {
	return s != nil && len(s.signingKey) > 0
}

// BuildManifest describes results. Paths follow EntryPath.
func (s *Signer) BuildManifest(author string, results []*models.GenerationResult, at time.Time) *Manifest {
	m := &Manifest{
		ID:        uuid.New(),
		Version:   ManifestVersion,
		Author:    author,
		CreatedAt: at.UTC(),
		Bundles:   make([]ManifestBundle, 0, len(results)),
	}
	for _, r := range results {
		b := ManifestBundle{
			CopyID:   r.Creature.CopyID,
			Name:     r.Creature.Name,
			ModID:    r.ModID,
			ResultID: r.ResultID,
			LinkKey:  r.LinkKey,
		}
		for _, f := range r.Files {
			path := EntryPath(f)
			b.Files = append(b.Files, path)
			m.Files = append(m.Files, ManifestFile{
				Path:     path,
				Category: f.Category,
				SHA256:   computeHash([]byte(f.Content)),
				Size:     len(f.Content),
			})
		}
		m.Bundles = append(m.Bundles, b)
	}

	m.HashChain = computeHashChain(m)
	if s.Enabled() {
		m.Signature = s.sign(m.HashChain)
	}
	return m
}

// VerifySignature checks m's hash chain and, when signing is enabled, its
// signature.
func (s *Signer) VerifySignature(m *Manifest) error {
	if chain := computeHashChain(m); chain != m.HashChain {
		return fmt.Errorf("hash chain mismatch: manifest has %s, computed %s", m.HashChain, chain)
	}
	if !s.Enabled() {
		return nil
	}
	if m.Signature == "" {
		return fmt.Errorf("manifest is not signed")
	}
	want := s.sign(m.HashChain)
	if !hmac.Equal([]byte(want), []byte(m.Signature)) {
		return fmt.Errorf("signature mismatch")
	}
	return nil
}

func computeHash(data []byte) string {
	hash := sha256.Sum256(data)
	return hex.EncodeToString(hash[:])
}

func (s *Signer) sign(data string) string {
	h := hmac.New(sha256.New, s.signingKey)
	h.Write([]byte(data))
	return hex.EncodeToString(h.Sum(nil))
}

// computeHashChain covers every file hash plus the bundle id pairs, in path
// order.
func computeHashChain(m *Manifest) string {
	files := make([]ManifestFile, len(m.Files))
	copy(files, m.Files)
	sort.Slice(files, func(i, j int) bool { return files[i].Path < files[j].Path })

	var b strings.Builder
	fmt.Fprintf(&b, "%s:%s:%s:%s", m.ID, m.Version, m.Author, m.CreatedAt.Format(time.RFC3339))
	for _, f := range files {
		fmt.Fprintf(&b, "|%s:%s", f.Path, f.SHA256)
	}
	for _, bd := range m.Bundles {
		fmt.Fprintf(&b, "|%d:%d:%d:%s", bd.CopyID, bd.ModID, bd.ResultID, bd.LinkKey)
	}
	return computeHash([]byte(b.String()))
}
