package tui

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"waiverdesk/internal/logger"
	. "waiverdesk/internal/models"
	"waiverdesk/internal/typeahead"
	"waiverdesk/internal/utils"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

// Searcher is the admin API as the terminal client needs it.
type Searcher interface {
	typeahead.Fetcher
	Search(ctx context.Context, query string) ([]SearchCandidate, error)
	Records(ctx context.Context) ([]SearchCandidate, error)
}

type Options struct {
	Username string
	Delay    time.Duration
	Timeout  time.Duration
	Clock    typeahead.Clock
	Cache    typeahead.Cache
}

// SnapshotMsg carries a typeahead session change.
type SnapshotMsg struct {
	typeahead.Snapshot
}

// CommitMsg asks for a full search of a committed query.
type CommitMsg struct {
	Query string
}

// ResultsMsg answers a search. An empty Query means the recent records list.
type ResultsMsg struct {
	Seq     int
	Query   string
	Results []SearchCandidate
	Err     error
}

// Model is the terminal front desk: a typeahead input over the admin API and
// the results of the last committed search.
type Model struct {
	searcher Searcher
	session  *typeahead.Session
	bridge   *Bridge
	styles   styles
	log      logger.Logger
	username string

	input    []rune
	snapshot typeahead.Snapshot

	seq          int
	cancel       context.CancelFunc
	searching    bool
	resultsQuery string
	results      []SearchCandidate
	status       string

	width int
}

func New(searcher Searcher, bridge *Bridge, opts Options) *Model {
	m := &Model{
		searcher: searcher,
		bridge:   bridge,
		styles:   defaultStyles(),
		log:      logger.New("tui").File("model"),
		username: opts.Username,
	}

	m.session = typeahead.NewSession(searcher, typeahead.SessionOptions{
		Controller: typeahead.Options{
			Delay:   opts.Delay,
			Timeout: opts.Timeout,
			Clock:   opts.Clock,
			Cache:   opts.Cache,
		},
		OnChange: func(snapshot typeahead.Snapshot) { bridge.Post(SnapshotMsg{snapshot}) },
		OnCommit: func(query string) { bridge.Post(CommitMsg{Query: query}) },
	})

	return m
}

func (m *Model) Init() tea.Cmd {
	return m.search("")
}

func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKey(msg)

	case tea.WindowSizeMsg:
		m.width = msg.Width

	case SnapshotMsg:
		m.snapshot = msg.Snapshot

	case CommitMsg:
		m.input = []rune(msg.Query)
		return m, m.search(msg.Query)

	case ResultsMsg:
		if msg.Seq != m.seq {
			return m, nil
		}
		m.searching = false
		if msg.Err != nil {
			m.status = describe(msg.Err)
			return m, nil
		}
		m.status = ""
		m.resultsQuery = msg.Query
		m.results = msg.Results
	}

	return m, nil
}

func (m *Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "ctrl+c":
		m.Close()
		return m, tea.Quit
	case "down":
		m.session.Key(typeahead.KeyArrowDown)
	case "up":
		m.session.Key(typeahead.KeyArrowUp)
	case "tab":
		m.session.Key(typeahead.KeyTab)
	case "enter":
		m.session.Key(typeahead.KeyEnter)
	case "esc":
		if !m.session.Key(typeahead.KeyEscape) && len(m.input) > 0 {
			return m, m.setInput(nil)
		}
	case "backspace":
		if len(m.input) > 0 {
			return m, m.setInput(m.input[:len(m.input)-1])
		}
	default:
		switch msg.Type {
		case tea.KeySpace:
			return m, m.setInput(append(m.input, ' '))
		case tea.KeyRunes:
			return m, m.setInput(append(m.input, msg.Runes...))
		}
	}
	return m, nil
}

// setInput feeds an edit to the session. Clearing the field brings back the
// recent records list.
func (m *Model) setInput(input []rune) tea.Cmd {
	m.input = append([]rune(nil), input...)
	text := string(m.input)
	m.session.Input(text)

	if typeahead.NormalizeQuery(text) == "" && m.resultsQuery != "" {
		return m.search("")
	}
	return nil
}

// search starts a full search, or the recent records list for an empty
// query. Starting a search cancels the previous one.
func (m *Model) search(query string) tea.Cmd {
	if m.cancel != nil {
		m.cancel()
	}
	ctx, cancel := context.WithCancel(context.Background())
	m.cancel = cancel
	m.seq++
	m.searching = true

	seq := m.seq
	searcher := m.searcher
	log := m.log.Function("search")

	return func() tea.Msg {
		defer cancel()

		var (
			results []SearchCandidate
			err     error
		)
		if query == "" {
			results, err = searcher.Records(ctx)
		} else {
			results, err = searcher.Search(ctx, query)
		}
		if err != nil && !errors.Is(err, context.Canceled) {
			log.Debug("search failed", "query", query, "error", err)
		}

		return ResultsMsg{Seq: seq, Query: query, Results: results, Err: err}
	}
}

func (m *Model) Close() {
	if m.cancel != nil {
		m.cancel()
	}
	m.session.Close()
	m.bridge.Close()
}

func (m *Model) View() string {
	s := m.styles
	var b strings.Builder

	b.WriteString(s.title.Render("WaiverDesk"))
	if m.username != "" {
		b.WriteString(s.subtle.Render("  signed in as " + m.username))
	}
	b.WriteString("\n\n")

	b.WriteString(s.prompt.Render("> "))
	b.WriteString(string(m.input))
	b.WriteString("▌\n")

	b.WriteString(m.suggestionsView())

	if m.status != "" {
		b.WriteString(s.errorMsg.Render(m.status))
		b.WriteString("\n")
	}

	b.WriteString("\n")
	b.WriteString(m.resultsView())
	b.WriteString("\n")
	b.WriteString(s.subtle.Render("↑/↓ move  enter search  esc close  ctrl+c quit"))
	b.WriteString("\n")

	return b.String()
}

func (m *Model) suggestionsView() string {
	s := m.styles
	snapshot := m.snapshot

	switch snapshot.State {
	case typeahead.StateClosed:
		return ""
	case typeahead.StateLoading:
		return s.item.Render(s.subtle.Render("searching")) + "\n"
	case typeahead.StateOpenNoResults:
		switch {
		case snapshot.Unauthorized:
			return s.item.Render(s.errorMsg.Render("session expired, sign in again")) + "\n"
		case snapshot.Failed:
			return s.item.Render(s.errorMsg.Render("suggestions unavailable")) + "\n"
		default:
			return s.item.Render(s.subtle.Render("no matches")) + "\n"
		}
	}

	highlighter := typeahead.Highlighter{Mark: func(match string) string { return s.mark.Render(match) }}
	query := typeahead.NormalizeQuery(snapshot.Query)

	var b strings.Builder
	for i, candidate := range snapshot.Suggestions {
		line := fmt.Sprintf("%s  %s", highlighter.Highlight(candidate.DisplayName, query), s.subtle.Render(fmt.Sprint(candidate.WaiverYear)))
		if i == snapshot.ActiveIndex {
			line = s.active.Render(line)
		}
		b.WriteString(s.item.Render(line))
		b.WriteString("\n")
	}
	return b.String()
}

func (m *Model) resultsView() string {
	s := m.styles

	title := "Recent waivers"
	if m.resultsQuery != "" {
		title = fmt.Sprintf("Results for %q", m.resultsQuery)
	}
	if m.searching {
		title += s.subtle.Render("  loading")
	}

	var b strings.Builder
	b.WriteString(s.header.Render(title))
	b.WriteString("\n")

	if len(m.results) == 0 {
		b.WriteString(s.item.Render(s.subtle.Render("nothing to show")))
		b.WriteString("\n")
		return b.String()
	}

	nameWidth := 0
	for _, candidate := range m.results {
		nameWidth = max(nameWidth, lipgloss.Width(candidate.DisplayName))
	}

	for _, candidate := range m.results {
		badge := s.expired.Render(fmt.Sprint(candidate.WaiverYear))
		if candidate.IsCurrentYear {
			badge = s.current.Render(fmt.Sprint(candidate.WaiverYear))
		}

		name := candidate.DisplayName + strings.Repeat(" ", nameWidth-lipgloss.Width(candidate.DisplayName))
		line := fmt.Sprintf("%s  %s  %s  %s", name, badge, utils.FormatSignatureDate(candidate.SignatureTimestamp), s.subtle.Render(candidate.Email))
		if candidate.MinorNames != nil {
			line += s.subtle.Render("  minors: " + *candidate.MinorNames)
		}
		b.WriteString(s.item.Render(line))
		b.WriteString("\n")
	}
	return b.String()
}

func describe(err error) string {
	switch {
	case errors.Is(err, ErrUnauthorized):
		return "session expired, sign in again"
	case errors.Is(err, ErrQueryTooShort):
		return ErrQueryTooShort.Error()
	default:
		return "search failed, try again"
	}
}
