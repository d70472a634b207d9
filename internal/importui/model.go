// Package importui is the interactive import screen: a search box, the
// candidate list and the status line, all driven by an importer.Orchestrator.
package importui

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"spinsoul/internal/discogs"
	"spinsoul/internal/importer"
	"spinsoul/pkg/models"
)

// SaveFunc persists an imported prefill, typically by POSTing it to
// /releases.
type SaveFunc func(ctx context.Context, p importer.RecordPrefill) (*models.Release, error)

type keyMap struct {
	Up     key.Binding
	Down   key.Binding
	Import key.Binding
	Quit   key.Binding
}

func defaultKeys() keyMap {
	return keyMap{
		Up:     key.NewBinding(key.WithKeys("up", "ctrl+p")),
		Down:   key.NewBinding(key.WithKeys("down", "ctrl+n")),
		Import: key.NewBinding(key.WithKeys("enter")),
		Quit:   key.NewBinding(key.WithKeys("esc", "ctrl+c")),
	}
}

// Model implements tea.Model.
type Model struct {
	ctx    context.Context
	orch   *importer.Orchestrator
	save   SaveFunc
	notify chan struct{}
	keys   keyMap
	styles styles

	input  textinput.Model
	snap   importer.Snapshot
	cursor int

	saving  bool
	saved   []models.Release
	saveErr string
}

// New builds the screen. source answers searches and lookups; save stores
// each imported release. Options are passed through to the orchestrator.
func New(ctx context.Context, source importer.Source, save SaveFunc, opts ...importer.Option) *Model {
	m := &Model{
		ctx:    ctx,
		save:   save,
		notify: make(chan struct{}, 1),
		keys:   defaultKeys(),
		styles: defaultStyles(),
	}

	// coalesce bursts of transitions into one wake-up; the model always
	// re-reads the latest snapshot
	opts = append(opts, importer.OnChange(func(importer.Snapshot) {
		select {
		case m.notify <- struct{}{}:
		default:
		}
	}))
	m.orch = importer.New(source, opts...)
	m.snap = m.orch.Snapshot()

	ti := textinput.New()
	ti.Placeholder = "Search Discogs (artist, title...)"
	ti.CharLimit = 120
	ti.Prompt = "search> "
	ti.Focus()
	m.input = ti
	return m
}

type changedMsg struct{}

type importedMsg struct {
	prefill importer.RecordPrefill
	err     error
}

type savedMsg struct {
	release *models.Release
	err     error
}

func (m *Model) waitForChange() tea.Cmd {
	return func() tea.Msg {
		select {
		case <-m.notify:
			return changedMsg{}
		case <-m.ctx.Done():
			return nil
		}
	}
}

// Init implements tea.Model.
func (m *Model) Init() tea.Cmd {
	return tea.Batch(textinput.Blink, m.waitForChange())
}

// Update implements tea.Model.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case changedMsg:
		m.snap = m.orch.Snapshot()
		if m.cursor >= len(m.snap.Results) {
			m.cursor = max(len(m.snap.Results)-1, 0)
		}
		return m, m.waitForChange()

	case importedMsg:
		if msg.err != nil || m.save == nil {
			return m, nil
		}
		m.saving = true
		m.saveErr = ""
		return m, m.saveCmd(msg.prefill)

	case savedMsg:
		m.saving = false
		if msg.err != nil {
			m.saveErr = msg.err.Error()
			return m, nil
		}
		m.saved = append(m.saved, *msg.release)
		return m, nil

	case tea.KeyMsg:
		return m.handleKey(msg)
	}
	return m, nil
}

func (m *Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Quit):
		m.orch.Close()
		return m, tea.Quit
	case key.Matches(msg, m.keys.Up):
		if m.cursor > 0 {
			m.cursor--
		}
		return m, nil
	case key.Matches(msg, m.keys.Down):
		if m.cursor < len(m.snap.Results)-1 {
			m.cursor++
		}
		return m, nil
	case key.Matches(msg, m.keys.Import):
		return m, m.importCmd()
	}

	before := m.input.Value()
	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	if v := m.input.Value(); v != before {
		m.orch.SetQuery(v)
	}
	return m, cmd
}

func (m *Model) importCmd() tea.Cmd {
	if m.saving || m.snap.ImportingID != "" || m.cursor >= len(m.snap.Results) {
		return nil
	}
	id := m.snap.Results[m.cursor].ID.String()
	return func() tea.Msg {
		p, err := m.orch.Select(m.ctx, id)
		return importedMsg{prefill: p, err: err}
	}
}

func (m *Model) saveCmd(p importer.RecordPrefill) tea.Cmd {
	return func() tea.Msg {
		rel, err := m.save(m.ctx, p)
		return savedMsg{release: rel, err: err}
	}
}

// Saved lists the releases stored during this session.
func (m *Model) Saved() []models.Release {
	return m.saved
}

// View implements tea.Model.
func (m *Model) View() string {
	var b strings.Builder
	b.WriteString(m.styles.Title.Render("Import from Discogs"))
	b.WriteString("\n\n")
	b.WriteString(m.input.View())
	b.WriteString("\n\n")

	switch m.snap.State {
	case importer.Searching:
		b.WriteString(m.styles.Muted.Render("Searching..."))
		b.WriteString("\n")
	case importer.Idle:
		b.WriteString(m.styles.Muted.Render("Type to search."))
		b.WriteString("\n")
	}

	if m.snap.State != importer.Idle && m.snap.State != importer.Searching && len(m.snap.Results) == 0 && m.snap.LastError == "" {
		b.WriteString(m.styles.Muted.Render("No results."))
		b.WriteString("\n")
	}
	for i, r := range m.snap.Results {
		b.WriteString(m.styles.candidate(r, i == m.cursor, r.ID.String() == m.snap.ImportingID))
		b.WriteString("\n")
	}

	b.WriteString("\n")
	switch {
	case m.snap.LastError != "":
		b.WriteString(m.styles.Error.Render(m.snap.LastError))
	case m.saveErr != "":
		b.WriteString(m.styles.Error.Render("Save failed: " + m.saveErr))
	case m.saving:
		b.WriteString(m.styles.Muted.Render("Saving..."))
	case len(m.saved) > 0:
		last := m.saved[len(m.saved)-1]
		b.WriteString(m.styles.Success.Render(fmt.Sprintf("Saved %q as release #%d", last.Title, last.ID)))
	}
	b.WriteString("\n")
	b.WriteString(m.styles.Muted.Render("↑/↓ select • enter import • esc quit"))
	b.WriteString("\n")
	return b.String()
}

// Run starts the interactive screen and returns the releases saved before
// the user quit.
func Run(ctx context.Context, source importer.Source, save SaveFunc, opts ...importer.Option) ([]models.Release, error) {
	m := New(ctx, source, save, opts...)
	defer m.orch.Close()

	if _, err := tea.NewProgram(m, tea.WithContext(ctx)).Run(); err != nil {
		return m.Saved(), err
	}
	return m.Saved(), nil
}

// Describe renders one candidate as plain text for non-interactive output.
func Describe(r discogs.SearchResult) string {
	var meta []string
	if r.Year != nil {
		meta = append(meta, fmt.Sprint(*r.Year))
	}
	if r.Country != "" {
		meta = append(meta, r.Country)
	}
	if r.Genre != nil && len(r.Genre.Values) > 0 {
		meta = append(meta, strings.Join(r.Genre.Values, ", "))
	}
	if len(meta) == 0 {
		return r.Title
	}
	return r.Title + " (" + strings.Join(meta, " · ") + ")"
}
