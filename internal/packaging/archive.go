package packaging

import (
	"archive/zip"
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/miniworld/modgen/internal/catalog"
	"github.com/miniworld/modgen/internal/models"
	"github.com/miniworld/modgen/internal/synth"
)

// ErrNoManifest is returned when an archive lacks manifest.json.
var ErrNoManifest = errors.New("archive has no manifest")

// maxEntrySize bounds a single entry read back from an archive.
const maxEntrySize = 8 << 20

// Write stores results under their category folders plus a manifest.
func (s *Signer) Write(w io.Writer, author string, results []*models.GenerationResult, at time.Time) (*Manifest, error) {
	zw := zip.NewWriter(w)
	for _, r := range results {
		for _, f := range r.Files {
			if err := writeEntry(zw, EntryPath(f), []byte(f.Content), at); err != nil {
				return nil, err
			}
		}
	}

	m := s.BuildManifest(author, results, at)
	data, err := synth.Encode(m)
	if err != nil {
		return nil, fmt.Errorf("encode manifest: %w", err)
	}
	if err := writeEntry(zw, ManifestName, []byte(data), at); err != nil {
		return nil, err
	}
	if err := zw.Close(); err != nil {
		return nil, fmt.Errorf("close archive: %w", err)
	}
	return m, nil
}

// Bytes is Write into memory.
func (s *Signer) Bytes(author string, results []*models.GenerationResult, at time.Time) ([]byte, *Manifest, error) {
	var buf bytes.Buffer
	m, err := s.Write(&buf, author, results, at)
	if err != nil {
		return nil, nil, err
	}
	return buf.Bytes(), m, nil
}

func writeEntry(zw *zip.Writer, name string, data []byte, at time.Time) error {
	fw, err := zw.CreateHeader(&zip.FileHeader{
		Name:     name,
		Method:   zip.Deflate,
		Modified: at,
	})
	if err != nil {
		return fmt.Errorf("create %s: %w", name, err)
	}
	if _, err := fw.Write(data); err != nil {
		return fmt.Errorf("write %s: %w", name, err)
	}
	return nil
}

// Archive is an archive read back into memory.
type Archive struct {
	Entries  map[string][]byte
	Manifest *Manifest
}

// Results rebuilds one GenerationResult per manifest bundle from the
// archive entries. Files missing from the archive are left out. An archive
// without a manifest has no results.
func (a *Archive) Results() []models.GenerationResult {
	if a.Manifest == nil {
		return nil
	}
	categories := make(map[string]models.Category, len(a.Manifest.Files))
	for _, f := range a.Manifest.Files {
		categories[f.Path] = f.Category
	}
	out := make([]models.GenerationResult, 0, len(a.Manifest.Bundles))
	for _, b := range a.Manifest.Bundles {
		res := models.GenerationResult{
			ModID:    b.ModID,
			ResultID: b.ResultID,
			Creature: catalog.Creature{CopyID: b.CopyID, Name: b.Name},
			LinkKey:  b.LinkKey,
		}
		for _, p := range b.Files {
			data, ok := a.Entries[p]
			if !ok {
				continue
			}
			res.Files = append(res.Files, models.GeneratedFile{
				Name:     path.Base(p),
				Content:  string(data),
				Category: categories[p],
			})
		}
		out = append(out, res)
	}
	return out
}

// Paths returns entry paths in lexical order.
func (a *Archive) Paths() []string {
	out := make([]string, 0, len(a.Entries))
	for p := range a.Entries {
		out = append(out, p)
	}
	sort.Strings(out)
	return out
}

// OpenFile reads the archive at path.
func OpenFile(path string) (*Archive, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return Read(bytes.NewReader(data), int64(len(data)))
}

// Read loads every entry of a ZIP archive. The manifest is decoded when
// present.
func Read(r io.ReaderAt, size int64) (*Archive, error) {
	zr, err := zip.NewReader(r, size)
	if err != nil {
		return nil, fmt.Errorf("open archive: %w", err)
	}
	a := &Archive{Entries: make(map[string][]byte, len(zr.File))}
	for _, f := range zr.File {
		if f.FileInfo().IsDir() {
			continue
		}
		data, err := readEntry(f)
		if err != nil {
			return nil, err
		}
		if f.Name == ManifestName {
			var m Manifest
			if err := json.Unmarshal(data, &m); err != nil {
				return nil, fmt.Errorf("decode manifest: %w", err)
			}
			a.Manifest = &m
			continue
		}
		a.Entries[f.Name] = data
	}
	return a, nil
}

func readEntry(f *zip.File) ([]byte, error) {
	rc, err := f.Open()
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", f.Name, err)
	}
	defer rc.Close()
	data, err := io.ReadAll(io.LimitReader(rc, maxEntrySize+1))
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", f.Name, err)
	}
	if len(data) > maxEntrySize {
		return nil, fmt.Errorf("entry %s exceeds %d bytes", f.Name, maxEntrySize)
	}
	return data, nil
}

// Extract writes every entry below dir, keeping the folder layout.
func (a *Archive) Extract(dir string) ([]string, error) {
	root, err := filepath.Abs(dir)
	if err != nil {
		return nil, err
	}
	var written []string
	for _, name := range a.Paths() {
		target := filepath.Join(root, filepath.FromSlash(name))
		if !strings.HasPrefix(target, root+string(os.PathSeparator)) {
			return written, fmt.Errorf("entry %q escapes %s", name, dir)
		}
		if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
			return written, err
		}
		if err := os.WriteFile(target, a.Entries[name], 0o644); err != nil {
			return written, err
		}
		written = append(written, target)
	}
	return written, nil
}

// WriteDir writes results as loose files under dir/<Folder>/<name>, the
// layout of an unpacked archive.
func WriteDir(dir string, results []*models.GenerationResult) ([]string, error) {
	var written []string
	for _, r := range results {
		for _, f := range r.Files {
			target := filepath.Join(dir, Folder(f.Category), f.Name)
			if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
				return written, err
			}
			if err := os.WriteFile(target, []byte(f.Content), 0o644); err != nil {
				return written, err
			}
			written = append(written, target)
		}
	}
	return written, nil
}
