package importui

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"spinsoul/internal/discogs"
	"spinsoul/internal/importer"
	"spinsoul/pkg/models"
)

type catalogue struct {
	releaseErr error
}

func (c catalogue) Search(_ context.Context, q string) ([]discogs.SearchResult, error) {
	year := 2001
	return []discogs.SearchResult{
		{ID: discogs.ParseID("249504"), Title: "Daft Punk - Discovery", Year: &year, Country: "France"},
		{ID: discogs.ParseID("1"), Title: "Daft Punk - Homework"},
	}, nil
}

func (c catalogue) Release(_ context.Context, id string) (discogs.ReleaseDetail, error) {
	if c.releaseErr != nil {
		return discogs.ReleaseDetail{}, c.releaseErr
	}
	return discogs.ReleaseDetail{
		ID:                discogs.ParseID(id),
		Title:             "Homework",
		PrimaryArtistName: "Daft Punk",
		Styles:            []string{"House"},
	}, nil
}

func typeText(t *testing.T, m *Model, s string) {
	t.Helper()
	for _, r := range s {
		m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{r}})
	}
}

// pump delivers orchestrator changes to the model until cond holds.
func pump(t *testing.T, m *Model, cond func() bool) {
	t.Helper()
	ctx, cancel := context.WithTimeout(m.ctx, 2*time.Second)
	defer cancel()
	for !cond() {
		select {
		case <-m.notify:
			m.Update(changedMsg{})
		case <-ctx.Done():
			t.Fatalf("condition not met; state=%s view:\n%s", m.snap.State, m.View())
		}
	}
}

// run executes cmd and feeds its message back, as the tea runtime would.
func run(m *Model, cmd tea.Cmd) tea.Cmd {
	if cmd == nil {
		return nil
	}
	_, next := m.Update(cmd())
	return next
}

func TestTypeSelectAndSave(t *testing.T) {
	var saved []importer.RecordPrefill
	save := func(_ context.Context, p importer.RecordPrefill) (*models.Release, error) {
		saved = append(saved, p)
		return &models.Release{ID: 42, Title: p.Title}, nil
	}
	m := New(t.Context(), catalogue{}, save, importer.WithQuietPeriod(5*time.Millisecond))
	defer m.orch.Close()

	typeText(t, m, "daft")
	pump(t, m, func() bool { return m.snap.State == importer.Results })

	if got := m.View(); !strings.Contains(got, "Daft Punk - Discovery (2001 · France)") {
		t.Fatalf("view missing candidate:\n%s", got)
	}

	m.Update(tea.KeyMsg{Type: tea.KeyDown})
	if m.cursor != 1 {
		t.Fatalf("cursor = %d, want 1", m.cursor)
	}

	_, cmd := m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	if cmd == nil {
		t.Fatalf("enter produced no import command")
	}
	run(m, run(m, cmd))

	if len(saved) != 1 || saved[0].Title != "Homework" || saved[0].Genre != "House" {
		t.Fatalf("saved = %+v", saved)
	}
	if got := m.Saved(); len(got) != 1 || got[0].ID != 42 {
		t.Fatalf("Saved() = %+v", got)
	}
	pump(t, m, func() bool { return m.snap.State == importer.Done })
	if !strings.Contains(m.View(), `Saved "Homework" as release #42`) {
		t.Fatalf("view missing confirmation:\n%s", m.View())
	}
}

func TestImportFailureShowsError(t *testing.T) {
	saveCalled := false
	save := func(context.Context, importer.RecordPrefill) (*models.Release, error) {
		saveCalled = true
		return nil, nil
	}
	m := New(t.Context(), catalogue{releaseErr: errors.New("Release fetch failed")}, save, importer.WithQuietPeriod(5*time.Millisecond))
	defer m.orch.Close()

	typeText(t, m, "x")
	pump(t, m, func() bool { return m.snap.State == importer.Results })

	_, cmd := m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	run(m, cmd)
	pump(t, m, func() bool { return m.snap.State == importer.Failed })

	if saveCalled {
		t.Fatalf("save called after failed import")
	}
	if !strings.Contains(m.View(), "Release fetch failed") {
		t.Fatalf("view missing error:\n%s", m.View())
	}
	if len(m.snap.Results) != 2 {
		t.Fatalf("results dropped after failure: %+v", m.snap.Results)
	}
}

func TestClearingQueryReturnsToIdle(t *testing.T) {
	m := New(t.Context(), catalogue{}, nil, importer.WithQuietPeriod(5*time.Millisecond))
	defer m.orch.Close()

	typeText(t, m, "a")
	pump(t, m, func() bool { return m.snap.State == importer.Results })

	m.Update(tea.KeyMsg{Type: tea.KeyBackspace})
	pump(t, m, func() bool { return m.snap.State == importer.Idle })
	if len(m.snap.Results) != 0 || m.cursor != 0 {
		t.Fatalf("results = %+v cursor = %d", m.snap.Results, m.cursor)
	}
	if _, cmd := m.Update(tea.KeyMsg{Type: tea.KeyEnter}); cmd != nil {
		t.Fatalf("enter with no results produced a command")
	}
}

func TestQuitClosesOrchestrator(t *testing.T) {
	m := New(t.Context(), catalogue{}, nil)
	_, cmd := m.Update(tea.KeyMsg{Type: tea.KeyEsc})
	if cmd == nil {
		t.Fatalf("esc produced no command")
	}
	if _, ok := cmd().(tea.QuitMsg); !ok {
		t.Fatalf("esc did not quit")
	}
	if _, err := m.orch.Select(t.Context(), "1"); !errors.Is(err, importer.ErrClosed) {
		t.Fatalf("Select after quit = %v, want ErrClosed", err)
	}
}

func TestDescribe(t *testing.T) {
	r := discogs.SearchResult{Title: "Kid A", Genre: &discogs.Genre{Values: []string{"Rock", "Electronic"}, IsList: true}}
	if got, want := Describe(r), "Kid A (Rock, Electronic)"; got != want {
		t.Fatalf("Describe = %q, want %q", got, want)
	}
	if got := Describe(discogs.SearchResult{Title: "Bare"}); got != "Bare" {
		t.Fatalf("Describe = %q", got)
	}
}
