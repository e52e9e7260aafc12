/*
modgen CLI

Offline generator and archive checker for creature mods. Counters are kept in
a local SQLite file so ids keep moving forward between runs.

Usage:

	modgen generate -author <name> -mod-id <n> -copy-id <n> [-out <dir>] [-zip]
	modgen batch -author <name> [-out <dir>] [-zip]
	modgen counters
	modgen reset
	modgen verify <archive.zip>
	modgen inspect <archive.zip>
	modgen extract <archive.zip> [-output <dir>]
*/
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/miniworld/modgen/internal/allocator"
	"github.com/miniworld/modgen/internal/catalog"
	"github.com/miniworld/modgen/internal/generator"
	"github.com/miniworld/modgen/internal/models"
	"github.com/miniworld/modgen/internal/packaging"
	"github.com/miniworld/modgen/internal/synth"
	"go.uber.org/zap"
)

const rule = "═══════════════════════════════════════════════════════════════"
const thin = "───────────────────────────────────────────────────────────────"

// common flags shared by the commands that touch counters or the catalog
type common struct {
	db         string
	catalog    string
	variant    string
	materialID int
	key        string
	verbose    bool
}

func (c *common) register(fs *flag.FlagSet) {
	fs.StringVar(&c.db, "db", envOr("SQLITE_PATH", "modgen.db"), "SQLite file holding the id counters (empty keeps them in memory)")
	fs.StringVar(&c.catalog, "catalog", os.Getenv("CATALOG_FILE"), "creature catalog file (defaults to the built-in list)")
	fs.StringVar(&c.variant, "variant", envOr("CATALOG_VARIANT", string(catalog.VariantGrouped)), "catalog layout: grouped or leveled")
	fs.IntVar(&c.materialID, "material", 101, "material id placed in every crafting slot")
	fs.StringVar(&c.key, "key", os.Getenv("BUNDLE_SIGNING_KEY"), "HMAC key used to sign and verify manifests")
	fs.BoolVar(&c.verbose, "v", false, "log to stderr")
}

func (c *common) logger() *zap.Logger {
	if !c.verbose {
		return zap.NewNop()
	}
	logger, err := zap.NewDevelopment()
	if err != nil {
		return zap.NewNop()
	}
	return logger
}

func (c *common) store(ctx context.Context) (allocator.Store, error) {
	if c.db == "" {
		return allocator.NewMemory(), nil
	}
	s, err := allocator.OpenSQLite(ctx, c.db)
	if err != nil {
		return nil, err
	}
	return s, nil
}

func (c *common) service(ctx context.Context) (*generator.Service, func(), error) {
	logger := c.logger()
	variant := catalog.Variant(c.variant)

	var (
		cat *catalog.Catalog
		err error
	)
	if c.catalog != "" {
		cat, err = catalog.Load(c.catalog, variant, catalog.WithLogger(logger))
	} else {
		cat, err = catalog.Builtin(variant, catalog.WithLogger(logger))
	}
	if err != nil {
		return nil, nil, fmt.Errorf("load catalog: %w", err)
	}

	store, err := c.store(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("open counters: %w", err)
	}

	svc := generator.NewService(cat, store,
		synth.New(synth.WithMaterialID(c.materialID)),
		generator.WithLogger(logger),
	)
	cleanup := func() {
		store.Close()
		logger.Sync()
	}
	return svc, cleanup, nil
}

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	ctx := context.Background()
	args := os.Args[2:]

	var err error
	switch os.Args[1] {
	case "generate":
		err = generateCmd(ctx, args)
	case "batch":
		err = batchCmd(ctx, args)
	case "counters":
		err = countersCmd(ctx, args, false)
	case "reset":
		err = countersCmd(ctx, args, true)
	case "verify":
		err = verifyCmd(args)
	case "inspect":
		err = inspectCmd(args)
	case "extract":
		err = extractCmd(args)
	case "help", "-h", "--help":
		printUsage()
		return
	default:
		printUsage()
		os.Exit(1)
	}

	if err != nil {
		if !errors.Is(err, errFailed) {
			fmt.Printf("❌ %v\n", err)
		}
		os.Exit(1)
	}
}

// errFailed signals that a command already printed its failure.
var errFailed = errors.New("failed")

func printUsage() {
	fmt.Println(`modgen CLI

Usage:
  modgen generate -author <name> -mod-id <n> -copy-id <n> [-out <dir>] [-zip]
  modgen batch -author <name> [-out <dir>] [-zip]
  modgen counters
  modgen reset
  modgen verify <archive.zip>
  modgen inspect <archive.zip>
  modgen extract <archive.zip> [-output <dir>]

Commands:
  generate  Build the four documents for one creature
  batch     Build the highest tier of every family
  counters  Show the next mod id and result id
  reset     Restore both counters to their defaults
  verify    Check an archive's hashes, signature and links
  inspect   Display an archive's manifest
  extract   Unpack an archive into a folder

Run "modgen <command> -h" for command flags.`)
}

func generateCmd(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("generate", flag.ExitOnError)
	var c common
	c.register(fs)
	author := fs.String("author", "", "author name embedded in every document")
	modID := fs.Int64("mod-id", 0, "mod id of the actor")
	copyID := fs.Int("copy-id", 0, "catalog copy id of the creature")
	out := fs.String("out", ".", "output folder")
	zipped := fs.Bool("zip", false, "write a signed archive instead of loose files")
	fs.Parse(args)

	svc, cleanup, err := c.service(ctx)
	if err != nil {
		return err
	}
	defer cleanup()

	res, err := svc.Generate(ctx, generator.Input{ModID: *modID, CopyID: *copyID, Author: *author})
	if err != nil {
		return err
	}

	written, err := emit(c.key, *out, *zipped, packaging.SingleArchiveName(res.Creature), res.Author, []*models.GenerationResult{res})
	if err != nil {
		return err
	}

	fmt.Println("\n" + rule)
	fmt.Printf("Creature:  %d %s\n", res.Creature.CopyID, res.Creature.Name)
	fmt.Printf("Mod ID:    %d\n", res.ModID)
	fmt.Printf("Result ID: %d\n", res.ResultID)
	fmt.Printf("Link Key:  %s\n", res.LinkKey)
	fmt.Println(thin)
	for _, p := range written {
		fmt.Printf("✅ %s\n", p)
	}
	fmt.Println(rule)
	return nil
}

func batchCmd(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("batch", flag.ExitOnError)
	var c common
	c.register(fs)
	author := fs.String("author", "", "author name embedded in every document")
	out := fs.String("out", ".", "output folder")
	zipped := fs.Bool("zip", false, "write a signed archive instead of loose files")
	fs.Parse(args)

	svc, cleanup, err := c.service(ctx)
	if err != nil {
		return err
	}
	defer cleanup()

	res, runErr := svc.BatchRunner().RunAll(ctx, svc.Catalog(), *author, func(p generator.Progress) {
		status := "✅"
		if p.Error != "" {
			status = "❌"
		}
		fmt.Printf("   %s [%d/%d] %s (mod %d)\n", status, p.Index, p.Total, p.Creature.Name, p.ModID)
	})
	if res == nil {
		return runErr
	}

	var written []string
	if len(res.Results) > 0 {
		name := packaging.BatchArchiveName(res.Author, res.StartedAt)
		written, err = emit(c.key, *out, *zipped, name, res.Author, res.Results)
		if err != nil {
			return err
		}
	}

	fmt.Println("\n" + rule)
	fmt.Println("                    Batch Generation")
	fmt.Println(rule)
	fmt.Printf("Author:     %s\n", res.Author)
	fmt.Printf("Generated:  %d\n", len(res.Results))
	fmt.Printf("Failed:     %d\n", len(res.Failures))
	fmt.Printf("Files:      %d\n", res.FileCount())
	fmt.Printf("Next ID:    %d\n", res.NextIDAfter)
	fmt.Printf("Duration:   %s\n", res.Duration.Round(time.Millisecond))
	if len(res.Failures) > 0 {
		fmt.Println("\nFailures:")
		for _, f := range res.Failures {
			fmt.Printf("   • %d %s: %s\n", f.Creature.CopyID, f.Creature.Name, f.Error)
		}
	}
	if *zipped && len(written) > 0 {
		fmt.Println(thin)
		fmt.Printf("✅ %s\n", written[0])
	}
	fmt.Println(rule)
	return runErr
}

// emit writes results either as a signed archive or as loose files.
func emit(key, dir string, zipped bool, archiveName, author string, results []*models.GenerationResult) ([]string, error) {
	if !zipped {
		return packaging.WriteDir(dir, results)
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	data, _, err := packaging.NewSigner(key).Bytes(author, results, time.Now())
	if err != nil {
		return nil, err
	}
	target := filepath.Join(dir, archiveName)
	if err := os.WriteFile(target, data, 0o644); err != nil {
		return nil, err
	}
	return []string{target}, nil
}

func countersCmd(ctx context.Context, args []string, reset bool) error {
	name := "counters"
	if reset {
		name = "reset"
	}
	fs := flag.NewFlagSet(name, flag.ExitOnError)
	var c common
	c.register(fs)
	fs.Parse(args)

	store, err := c.store(ctx)
	if err != nil {
		return fmt.Errorf("open counters: %w", err)
	}
	defer store.Close()

	var state allocator.State
	if reset {
		state, err = store.Reset(ctx)
	} else {
		state, err = store.Snapshot(ctx)
	}
	if err != nil {
		return err
	}

	if reset {
		fmt.Println("✅ Counters reset")
	}
	fmt.Printf("   Next ID:        %d\n", state.NextID)
	fmt.Printf("   Next Result ID: %d\n", state.NextResultID)
	return nil
}

func verifyCmd(args []string) error {
	fs := flag.NewFlagSet("verify", flag.ExitOnError)
	key := fs.String("key", os.Getenv("BUNDLE_SIGNING_KEY"), "HMAC key the manifest was signed with")
	path, err := archiveArg(fs, args)
	if err != nil {
		return err
	}

	archive, err := packaging.OpenFile(path)
	if err != nil {
		return fmt.Errorf("loading archive: %w", err)
	}
	report := packaging.NewSigner(*key).Verify(archive)

	fmt.Println("\n" + rule)
	fmt.Println("                    Mod Archive Verification")
	fmt.Println(rule)
	fmt.Printf("Archive: %s\n", path)
	fmt.Printf("Files:   %d\n", report.Files)
	fmt.Printf("Bundles: %d\n", report.Bundles)
	fmt.Println(thin)

	if report.OK() {
		fmt.Println("✅ VERIFICATION PASSED")
	} else {
		fmt.Println("❌ VERIFICATION FAILED")
	}
	fmt.Printf("   Signed: %v\n", boolIcon(report.Signed))

	if len(report.Problems) > 0 {
		fmt.Println("\nProblems:")
		for _, p := range report.Problems {
			fmt.Printf("   • %s\n", p)
		}
	}
	fmt.Println(rule)

	if !report.OK() {
		return errFailed
	}
	return nil
}

func inspectCmd(args []string) error {
	fs := flag.NewFlagSet("inspect", flag.ExitOnError)
	path, err := archiveArg(fs, args)
	if err != nil {
		return err
	}

	archive, err := packaging.OpenFile(path)
	if err != nil {
		return fmt.Errorf("loading archive: %w", err)
	}

	fmt.Println("\n" + rule)
	fmt.Println("                    Mod Archive")
	fmt.Println(rule)
	if m := archive.Manifest; m != nil {
		fmt.Printf("ID:          %s\n", m.ID)
		fmt.Printf("Version:     %s\n", m.Version)
		fmt.Printf("Author:      %s\n", m.Author)
		fmt.Printf("Created:     %s\n", m.CreatedAt.Format(time.RFC3339))
		fmt.Printf("Hash Chain:  %s\n", m.HashChain)
		fmt.Printf("Signed:      %v\n", boolIcon(m.Signature != ""))
		fmt.Println(thin)
		fmt.Println("Bundles:")
		for _, b := range m.Bundles {
			fmt.Printf("   %d %s  mod %d  result %d\n", b.CopyID, b.Name, b.ModID, b.ResultID)
		}
	} else {
		fmt.Println("❌ no manifest")
	}
	fmt.Println(thin)
	fmt.Println("Entries:")
	for _, p := range archive.Paths() {
		fmt.Printf("   %s (%d bytes)\n", p, len(archive.Entries[p]))
	}
	fmt.Println(rule)
	return nil
}

func extractCmd(args []string) error {
	fs := flag.NewFlagSet("extract", flag.ExitOnError)
	output := fs.String("output", ".", "destination folder")
	path, err := archiveArg(fs, args)
	if err != nil {
		return err
	}

	archive, err := packaging.OpenFile(path)
	if err != nil {
		return fmt.Errorf("loading archive: %w", err)
	}
	written, err := archive.Extract(*output)
	for _, p := range written {
		fmt.Printf("✅ Extracted %s\n", p)
	}
	return err
}

// archiveArg accepts the archive path before or after the flags.
func archiveArg(fs *flag.FlagSet, args []string) (string, error) {
	var path string
	if len(args) > 0 && len(args[0]) > 0 && args[0][0] != '-' {
		path, args = args[0], args[1:]
	}
	fs.Parse(args)
	if path == "" {
		path = fs.Arg(0)
	}
	if path == "" {
		return "", errors.New("missing archive path")
	}
	return path, nil
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func boolIcon(b bool) string {
	if b {
		return "✅"
	}
	return "❌"
}
