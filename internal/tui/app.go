// Package tui is the terminal front end for generating creature mods.
//
// Left pane lists the catalog, right pane holds the author and mod id inputs
// plus a log of what was written. Generation and batch runs happen off the
// update loop and report back as messages.
package tui

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/list"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/miniworld/modgen/internal/allocator"
	"github.com/miniworld/modgen/internal/catalog"
	"github.com/miniworld/modgen/internal/dispatch"
	"github.com/miniworld/modgen/internal/generator"
	"github.com/miniworld/modgen/internal/models"
	"github.com/miniworld/modgen/internal/packaging"
)

const maxLogLines = 12

type focus int

const (
	focusList focus = iota
	focusAuthor
	focusModID
	focusCount
)

type creatureItem struct {
	creature catalog.Creature
}

func (i creatureItem) Title() string {
	return fmt.Sprintf("%d  %s", i.creature.CopyID, i.creature.Name)
}
func (i creatureItem) Description() string {
	return fmt.Sprintf("family %s · tier %d", i.creature.FamilyKey, i.creature.TierRank)
}
func (i creatureItem) FilterValue() string { return i.creature.Name }

type generatedMsg struct {
	result  *models.GenerationResult
	written []string
	err     error
}

type batchMsg struct {
	result  *models.BatchResult
	written []string
	err     error
}

type resetMsg struct {
	state allocator.State
	err   error
}

type deletedMsg struct {
	count int
	err   error
}

// App is the bubbletea model.
type App struct {
	ctx    context.Context
	svc    *generator.Service
	signer *packaging.Signer
	outDir string

	creatures list.Model
	author    textinput.Model
	modID     textinput.Model
	focus     focus

	busy        bool
	status      string
	err         error
	log         []string
	lastWritten []string

	width  int
	height int
}

// NewApp builds the model. Loose files and batch archives are written below
// outDir.
func NewApp(ctx context.Context, svc *generator.Service, signer *packaging.Signer, outDir string) *App {
	var items []list.Item
	for _, c := range svc.Catalog().Creatures() {
		items = append(items, creatureItem{creature: c})
	}
	creatures := list.New(items, list.NewDefaultDelegate(), 0, 0)
	creatures.Title = "Creatures"
	creatures.SetShowStatusBar(false)
	creatures.SetFilteringEnabled(false)
	creatures.SetShowHelp(false)

	author := textinput.New()
	author.Placeholder = "author"
	author.CharLimit = generator.MaxAuthorLength
	author.Prompt = "Author: "

	modID := textinput.New()
	modID.Placeholder = "2"
	modID.Prompt = "Mod ID: "
	modID.SetValue(strconv.FormatInt(allocator.DefaultNextID, 10))

	return &App{
		ctx:       ctx,
		svc:       svc,
		signer:    signer,
		outDir:    outDir,
		creatures: creatures,
		author:    author,
		modID:     modID,
		status:    "Ready",
	}
}

func (a *App) Init() tea.Cmd {
	return textinput.Blink
}

func (a *App) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		a.width, a.height = msg.Width, msg.Height
		a.creatures.SetSize(max(20, msg.Width/2-2), max(5, msg.Height-6))
		return a, nil

	case generatedMsg:
		a.busy = false
		if msg.err != nil {
			a.fail(msg.err)
			return a, nil
		}
		a.lastWritten = msg.written
		a.ok(fmt.Sprintf("Generated %s (mod %d, result %d)", msg.result.Creature.Name, msg.result.ModID, msg.result.ResultID))
		for _, p := range msg.written {
			a.appendLog("  " + p)
		}
		return a, nil

	case batchMsg:
		a.busy = false
		if msg.result != nil {
			a.lastWritten = msg.written
			a.appendLog(fmt.Sprintf("Batch: %d generated, %d failed, next id %d",
				len(msg.result.Results), len(msg.result.Failures), msg.result.NextIDAfter))
			for _, f := range msg.result.Failures {
				a.appendLog(fmt.Sprintf("  ❌ %s: %s", f.Creature.Name, f.Error))
			}
			for _, p := range msg.written {
				a.appendLog("  " + p)
			}
		}
		if msg.err != nil {
			a.fail(msg.err)
			return a, nil
		}
		a.ok("Batch complete")
		return a, nil

	case resetMsg:
		a.busy = false
		if msg.err != nil {
			a.fail(msg.err)
			return a, nil
		}
		a.ok(fmt.Sprintf("Counters reset (ID: %d, Result ID: %d)", msg.state.NextID, msg.state.NextResultID))
		return a, nil

	case deletedMsg:
		a.busy = false
		a.lastWritten = nil
		if msg.err != nil {
			a.fail(msg.err)
			return a, nil
		}
		a.ok(fmt.Sprintf("Deleted %d files", msg.count))
		return a, nil

	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c":
			return a, tea.Quit
		case "tab":
			a.setFocus((a.focus + 1) % focusCount)
			return a, nil
		case "shift+tab":
			a.setFocus((a.focus + focusCount - 1) % focusCount)
			return a, nil
		case "ctrl+z":
			a.incrementModID()
			return a, nil
		case "enter":
			return a, a.generate()
		}

		if a.focus == focusList {
			switch msg.String() {
			case "q", "esc":
				return a, tea.Quit
			case "a":
				return a, a.batch()
			case "r":
				return a, a.reset()
			case "d":
				return a, a.deleteLast()
			}
		}
	}

	return a, a.forward(msg)
}

// forward hands the message to whichever component has focus.
func (a *App) forward(msg tea.Msg) tea.Cmd {
	var cmd tea.Cmd
	switch a.focus {
	case focusAuthor:
		a.author, cmd = a.author.Update(msg)
	case focusModID:
		a.modID, cmd = a.modID.Update(msg)
	default:
		a.creatures, cmd = a.creatures.Update(msg)
	}
	return cmd
}

func (a *App) setFocus(f focus) {
	a.focus = f
	a.author.Blur()
	a.modID.Blur()
	switch f {
	case focusAuthor:
		a.author.Focus()
	case focusModID:
		a.modID.Focus()
	}
}

func (a *App) incrementModID() {
	current, err := strconv.ParseInt(strings.TrimSpace(a.modID.Value()), 10, 64)
	if err != nil {
		return
	}
	a.modID.SetValue(strconv.FormatInt(current+1, 10))
	a.status = fmt.Sprintf("⬆️ Mod ID is now %d", current+1)
	a.err = nil
}

func (a *App) selected() (catalog.Creature, bool) {
	item, ok := a.creatures.SelectedItem().(creatureItem)
	if !ok {
		return catalog.Creature{}, false
	}
	return item.creature, true
}

func (a *App) generate() tea.Cmd {
	if a.busy {
		return nil
	}
	cr, ok := a.selected()
	if !ok {
		a.fail(errors.New("select a creature"))
		return nil
	}
	modID, err := strconv.ParseInt(strings.TrimSpace(a.modID.Value()), 10, 64)
	if err != nil {
		a.fail(errors.New("mod id must be a number"))
		return nil
	}

	in := generator.Input{ModID: modID, CopyID: cr.CopyID, Author: a.author.Value()}
	svc, ctx, dir := a.svc, a.ctx, a.outDir
	a.busy = true
	a.status = "Generating " + cr.Name + "..."

	return background(ctx, func() (generatedMsg, error) {
		res, err := svc.Generate(ctx, in)
		if err != nil {
			return generatedMsg{}, err
		}
		written, err := packaging.WriteDir(dir, []*models.GenerationResult{res})
		return generatedMsg{result: res, written: written}, err
	}, func(m generatedMsg, err error) tea.Msg {
		m.err = err
		return m
	})
}

func (a *App) batch() tea.Cmd {
	if a.busy {
		return nil
	}
	author := a.author.Value()
	if _, err := generator.ValidateAuthor(author); err != nil {
		a.fail(err)
		return nil
	}

	svc, signer, ctx, dir := a.svc, a.signer, a.ctx, a.outDir
	a.busy = true
	a.status = "Generating the highest tier of every family..."

	return background(ctx, func() (batchMsg, error) {
		res, runErr := svc.BatchRunner().RunAll(ctx, svc.Catalog(), author, nil)
		out := batchMsg{result: res}
		if res == nil || len(res.Results) == 0 {
			return out, runErr
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return out, err
		}
		data, _, err := signer.Bytes(res.Author, res.Results, time.Now())
		if err != nil {
			return out, err
		}
		target := filepath.Join(dir, packaging.BatchArchiveName(res.Author, res.StartedAt))
		if err := os.WriteFile(target, data, 0o644); err != nil {
			return out, err
		}
		out.written = []string{target}
		return out, runErr
	}, func(m batchMsg, err error) tea.Msg {
		m.err = err
		return m
	})
}

func (a *App) reset() tea.Cmd {
	if a.busy {
		return nil
	}
	store, ctx := a.svc.Allocator(), a.ctx
	a.busy = true
	return background(ctx, func() (allocator.State, error) {
		return store.Reset(ctx)
	}, func(s allocator.State, err error) tea.Msg {
		return resetMsg{state: s, err: err}
	})
}

func (a *App) deleteLast() tea.Cmd {
	if a.busy {
		return nil
	}
	if len(a.lastWritten) == 0 {
		a.status = "No files to delete"
		return nil
	}
	paths := a.lastWritten
	a.busy = true
	return background(a.ctx, func() (int, error) {
		n := 0
		for _, p := range paths {
			if err := os.Remove(p); err != nil && !os.IsNotExist(err) {
				return n, err
			}
			n++
		}
		return n, nil
	}, func(n int, err error) tea.Msg {
		return deletedMsg{count: n, err: err}
	})
}

// background starts fn through dispatch and turns its result into a message.
func background[T any](ctx context.Context, fn func() (T, error), wrap func(T, error) tea.Msg) tea.Cmd {
	fut := dispatch.Go(fn)
	return func() tea.Msg {
		return wrap(fut.Wait(ctx))
	}
}

func (a *App) ok(status string) {
	a.err = nil
	a.status = status
	a.appendLog("✅ " + status)
}

func (a *App) fail(err error) {
	a.err = err
	a.appendLog("❌ " + err.Error())
}

func (a *App) appendLog(line string) {
	a.log = append(a.log, line)
	if len(a.log) > maxLogLines {
		a.log = a.log[len(a.log)-maxLogLines:]
	}
}

func (a *App) View() string {
	title := lipgloss.NewStyle().
		Bold(true).
		Foreground(lipgloss.Color("#7D56F4")).
		Render("⬡ MINIWORLD MOD GENERATOR")

	inputStyle := lipgloss.NewStyle().Padding(0, 1)
	right := []string{
		inputStyle.Render(a.author.View()),
		inputStyle.Render(a.modID.View()),
		"",
		inputStyle.Render("Output: " + a.outDir),
		"",
	}

	statusStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("#04B575"))
	status := a.status
	if a.err != nil {
		statusStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#FF5F87"))
		status = "Error: " + a.err.Error()
	}
	right = append(right, statusStyle.Render(status), "")

	logStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("#888888"))
	for _, line := range a.log {
		right = append(right, logStyle.Render(line))
	}

	leftBox := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(a.borderColor(focusList)).
		Render(a.creatures.View())
	rightBox := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(a.borderColor(focusAuthor)).
		Width(max(30, a.width/2-4)).
		Render(strings.Join(right, "\n"))

	footer := lipgloss.NewStyle().
		Foreground(lipgloss.Color("#626262")).
		Render("tab focus · enter generate · ctrl+z next id · a all families · r reset counters · d delete last · q quit")

	return lipgloss.JoinVertical(lipgloss.Left,
		title,
		lipgloss.JoinHorizontal(lipgloss.Top, leftBox, rightBox),
		footer,
	)
}

func (a *App) borderColor(f focus) lipgloss.Color {
	active := a.focus == f || (f == focusAuthor && a.focus == focusModID)
	if active {
		return lipgloss.Color("#7D56F4")
	}
	return lipgloss.Color("#3C3C3C")
}
