package cli

import (
	"context"
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"github.com/matzehuels/flametower/pkg/flame"
	fio "github.com/matzehuels/flametower/pkg/io"
	"github.com/matzehuels/flametower/pkg/pipeline"
	"github.com/matzehuels/flametower/pkg/render/sink"
)

// View styles
var (
	viewStatusStyle = lipgloss.NewStyle().Foreground(colorWhite).Bold(true)
	viewDimStyle    = lipgloss.NewStyle().Foreground(colorDim)
	viewCrumbStyle  = lipgloss.NewStyle().Foreground(colorCyan)
)

// viewCommand creates the interactive view command.
func (c *CLI) viewCommand() *cobra.Command {
	var (
		colorMode string
		palette   string
	)
	opts := pipeline.Options{}

	cmd := &cobra.Command{
		Use:   "view [file|url]",
		Short: "Browse a flame graph interactively in the terminal",
		Long: `Browse a flame graph interactively in the terminal.

Move between frames with the arrow keys (or h/j/k/l), press enter to zoom
into the selected frame and backspace to zoom out. c toggles the color mode
and i flips the graph upside down.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			opts.ColorMode = flame.ColorMode(colorMode)
			opts.Palette = splitList(palette)
			c.applyConfig(&opts)
			return c.runView(cmd.Context(), args[0], opts)
		},
	}

	cmd.Flags().StringVarP(&colorMode, "color-mode", "c", "", "color mode: peaks (default), width")
	cmd.Flags().StringVar(&palette, "palette", "", "9 comma-separated hex colors, coolest first")
	cmd.Flags().StringVar(&opts.Unit, "unit", "", "unit of interval bounds, shown with the selection")
	cmd.Flags().BoolVar(&opts.Inverted, "inverted", false, "draw roots at the top (icicle)")

	return cmd
}

func (c *CLI) runView(ctx context.Context, input string, opts pipeline.Options) error {
	if input == stdinArg {
		return fmt.Errorf("view reads keys from stdin; pass the document as a file or URL")
	}

	runner, err := c.newRunner(ctx, false)
	if err != nil {
		return fmt.Errorf("initialize runner: %w", err)
	}
	defer runner.Close()

	doc, err := runner.Load(ctx, input, opts)
	if err != nil {
		return err
	}

	m, err := NewFlameViewModel(doc, opts)
	if err != nil {
		return err
	}
	if !m.Layout.Valid() {
		return m.Layout.Validation.Err()
	}

	_, err = tea.NewProgram(m, tea.WithAltScreen(), tea.WithContext(ctx)).Run()
	return err
}

// =============================================================================
// FlameViewModel - Interactive flame graph browser
// =============================================================================

// FlameViewModel is the bubbletea model for browsing a flame graph.
type FlameViewModel struct {
	Document *fio.Document
	Options  pipeline.Options
	Layout   flame.Layout

	// Zoom holds the ids zoomed into, outermost first.
	Zoom []string
	// Level and Cursor select Layout.Row(Level)[Cursor].
	Level  int
	Cursor int
	Width  int
	Height int

	intervals [][]flame.Interval
}

// NewFlameViewModel lays out doc and selects its root.
func NewFlameViewModel(doc *fio.Document, opts pipeline.Options) (FlameViewModel, error) {
	if err := opts.ValidateForLayout(); err != nil {
		return FlameViewModel{}, err
	}
	if opts.ColorMode == "" {
		opts.ColorMode = doc.ColorMode
	}
	m := FlameViewModel{
		Document:  doc,
		Options:   opts,
		Width:     sink.DefaultTermWidth,
		Height:    24,
		intervals: [][]flame.Interval{doc.Intervals},
	}
	m.relayout()
	return m, nil
}

func (m FlameViewModel) Init() tea.Cmd {
	return nil
}

func (m FlameViewModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		// Roots sit at the bottom unless inverted, so "up" goes deeper.
		up := 1
		if m.Options.Inverted {
			up = -1
		}
		switch msg.String() {
		case "q", "ctrl+c":
			return m, tea.Quit
		case "left", "h":
			if m.Cursor > 0 {
				m.Cursor--
			}
		case "right", "l":
			if m.Cursor < len(m.Layout.Row(m.Level))-1 {
				m.Cursor++
			}
		case "up", "k":
			m.moveLevel(up)
		case "down", "j":
			m.moveLevel(-up)
		case "enter":
			m.zoomIn()
		case "backspace", "esc":
			m.zoomOut()
		case "c":
			if m.Layout.ColorMode == flame.ColorModeWidth {
				m.Options.ColorMode = flame.ColorModePeaks
			} else {
				m.Options.ColorMode = flame.ColorModeWidth
			}
			m.relayoutKeepSelection()
		case "i":
			m.Options.Inverted = !m.Options.Inverted
		}
	case tea.WindowSizeMsg:
		m.Width = max(msg.Width, 20)
		m.Height = msg.Height
	}
	return m, nil
}

func (m FlameViewModel) View() string {
	var b strings.Builder

	title := m.Document.Title
	if title == "" {
		title = "Flame Graph"
	}
	b.WriteString(StyleTitle.Render(title))
	b.WriteString("  ")
	b.WriteString(viewDimStyle.Render(fmt.Sprintf("%s colors", m.Layout.ColorMode)))
	b.WriteString("\n")
	b.WriteString(viewCrumbStyle.Render(m.breadcrumb()))
	b.WriteString("\n\n")

	b.WriteString(sink.RenderTerminal(m.Layout, sink.TermOptions{
		Width:    m.Width,
		Inverted: m.Options.Inverted,
		Selected: m.selectedID(),
	}))
	b.WriteString("\n\n")

	if r, ok := m.selected(); ok {
		b.WriteString(viewStatusStyle.Render(r.Label))
		b.WriteString("  ")
		b.WriteString(viewDimStyle.Render(m.describe(r)))
		b.WriteString("\n")
	}
	b.WriteString(viewDimStyle.Render("←/→ frame  ↑/↓ level  ⏎ zoom  ⌫ back  c colors  i invert  q quit"))
	return b.String()
}

// =============================================================================
// Navigation
// =============================================================================

func (m *FlameViewModel) relayout() {
	doc := *m.Document
	doc.Intervals = m.intervals[len(m.intervals)-1]
	m.Layout = pipeline.BuildLayout(&doc, m.Options)
	m.Level, m.Cursor = 0, 0
}

// relayoutKeepSelection rebuilds the layout and reselects the same frame.
func (m *FlameViewModel) relayoutKeepSelection() {
	id := m.selectedID()
	m.relayout()
	m.selectID(id)
}

func (m *FlameViewModel) selectID(id string) {
	for _, r := range m.Layout.Rects {
		if r.ID != id {
			continue
		}
		m.Level = r.Level
		for i, rr := range m.Layout.Row(r.Level) {
			if rr.ID == id {
				m.Cursor = i
			}
		}
		return
	}
}

// moveLevel steps delta rows and selects the frame overlapping the current
// selection's midpoint, or the nearest one.
func (m *FlameViewModel) moveLevel(delta int) {
	cur, ok := m.selected()
	target := m.Level + delta
	if !ok || target < 0 || target > m.Layout.MaxLevel {
		return
	}
	row := m.Layout.Row(target)
	if len(row) == 0 {
		return
	}
	mid := (cur.Start + cur.End) / 2
	best, bestDist := 0, -1.0
	for i, r := range row {
		var dist float64
		switch {
		case mid < r.Start:
			dist = r.Start - mid
		case mid > r.End:
			dist = mid - r.End
		}
		if bestDist < 0 || dist < bestDist {
			best, bestDist = i, dist
		}
	}
	m.Level, m.Cursor = target, best
}

func (m *FlameViewModel) zoomIn() {
	id := m.selectedID()
	if id == "" || m.Level == 0 {
		return
	}
	sub := flame.Subtree(m.intervals[len(m.intervals)-1], id)
	if len(sub) == 0 {
		return
	}
	m.intervals = append(m.intervals, sub)
	m.Zoom = append(m.Zoom, id)
	m.relayout()
}

func (m *FlameViewModel) zoomOut() {
	if len(m.Zoom) == 0 {
		return
	}
	id := m.Zoom[len(m.Zoom)-1]
	m.Zoom = m.Zoom[:len(m.Zoom)-1]
	m.intervals = m.intervals[:len(m.intervals)-1]
	m.relayout()
	m.selectID(id)
}

func (m FlameViewModel) selected() (flame.Rect, bool) {
	row := m.Layout.Row(m.Level)
	if m.Cursor < 0 || m.Cursor >= len(row) {
		return flame.Rect{}, false
	}
	return row[m.Cursor], true
}

func (m FlameViewModel) selectedID() string {
	r, _ := m.selected()
	return r.ID
}

func (m FlameViewModel) breadcrumb() string {
	parts := []string{"all"}
	for _, id := range m.Zoom {
		label := id
		for _, iv := range m.Document.Intervals {
			if iv.ID == id {
				label = iv.Label
			}
		}
		parts = append(parts, label)
	}
	return strings.Join(parts, " › ")
}

// describe formats the selection's width and its share of the visible span.
func (m FlameViewModel) describe(r flame.Rect) string {
	width := r.End - r.Start
	share := 0.0
	if span := m.Layout.Span(); span > 0 {
		share = width / span * 100
	}
	return fmt.Sprintf("%g%s · %.1f%% · level %d", width, m.Options.Unit, share, r.Level)
}
