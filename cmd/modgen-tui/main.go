// cmd/modgen-tui/main.go
//
// Terminal front end for the generator. Counters live in a local SQLite file
// so ids keep moving forward between sessions.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/miniworld/modgen/internal/allocator"
	"github.com/miniworld/modgen/internal/catalog"
	"github.com/miniworld/modgen/internal/generator"
	"github.com/miniworld/modgen/internal/packaging"
	"github.com/miniworld/modgen/internal/synth"
	"github.com/miniworld/modgen/internal/tui"
	"go.uber.org/zap"
)

func main() {
	db := flag.String("db", "modgen.db", "SQLite file holding the id counters")
	out := flag.String("out", "output", "folder generated files are written to")
	catalogFile := flag.String("catalog", "", "creature catalog file (defaults to the built-in list)")
	variant := flag.String("variant", string(catalog.VariantGrouped), "catalog layout: grouped or leveled")
	flag.Parse()

	ctx := context.Background()
	logger := zap.NewNop()

	var (
		cat *catalog.Catalog
		err error
	)
	if *catalogFile != "" {
		cat, err = catalog.Load(*catalogFile, catalog.Variant(*variant), catalog.WithLogger(logger))
	} else {
		cat, err = catalog.Builtin(catalog.Variant(*variant), catalog.WithLogger(logger))
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading catalog: %v\n", err)
		os.Exit(1)
	}

	store, err := allocator.OpenSQLite(ctx, *db)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error opening counters: %v\n", err)
		os.Exit(1)
	}
	defer store.Close()

	svc := generator.NewService(cat, store, synth.New(), generator.WithLogger(logger))
	app := tui.NewApp(ctx, svc, packaging.NewSigner(os.Getenv("BUNDLE_SIGNING_KEY")), *out)

	p := tea.NewProgram(app, tea.WithAltScreen())
	if _, err := p.Run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error running TUI: %v\n", err)
		os.Exit(1)
	}
}
