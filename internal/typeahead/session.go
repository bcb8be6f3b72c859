package typeahead

import (
	"errors"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	. "waiverdesk/internal/models"
)

const DefaultBlurGrace = 100 * time.Millisecond

type State int

const (
	StateClosed State = iota
	StateLoading
	StateOpenWithResults
	StateOpenNoResults
)

func (s State) String() string {
	switch s {
	case StateLoading:
		return "loading"
	case StateOpenWithResults:
		return "open-with-results"
	case StateOpenNoResults:
		return "open-no-results"
	default:
		return "closed"
	}
}

func (s State) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

func (s State) IsOpen() bool {
	return s != StateClosed
}

type Key int

const (
	KeyArrowDown Key = iota
	KeyArrowUp
	KeyEnter
	KeyTab
	KeyEscape
)

func ParseKey(name string) (Key, bool) {
	switch strings.ToLower(name) {
	case "down", "arrowdown":
		return KeyArrowDown, true
	case "up", "arrowup":
		return KeyArrowUp, true
	case "enter":
		return KeyEnter, true
	case "tab":
		return KeyTab, true
	case "escape", "esc":
		return KeyEscape, true
	}
	return 0, false
}

// Snapshot is a copy of the visible session state.
type Snapshot struct {
	Query        string            `json:"query"`
	State        State             `json:"state"`
	Suggestions  []SearchCandidate `json:"suggestions"`
	ActiveIndex  int               `json:"activeIndex"`
	Failed       bool              `json:"failed"`
	Unauthorized bool              `json:"unauthorized"`
}

type SessionOptions struct {
	Controller Options
	BlurGrace  time.Duration

	// OnChange receives a snapshot after every visible change. Calls are
	// serialized and must not call back into the Session.
	OnChange func(Snapshot)

	// OnCommit runs the full search for a committed query.
	OnCommit func(query string)
}

// Session is the interaction state machine of one typeahead input: open and
// closed states, keyboard highlight, commit and the blur grace window. Data
// fetching is delegated to its Controller.
type Session struct {
	controller *Controller
	clock      Clock
	minLength  int
	blurGrace  time.Duration
	onChange   func(Snapshot)
	onCommit   func(string)

	notifyMu sync.Mutex

	mu          sync.Mutex
	query       string
	state       State
	suggestions []SearchCandidate
	active      int
	failure     error
	pointerDown bool
	blurred     bool
	blurGen     uint64
	blurTimer   Timer
}

func NewSession(fetcher Fetcher, opts SessionOptions) *Session {
	opts.Controller = opts.Controller.withDefaults()
	if opts.BlurGrace <= 0 {
		opts.BlurGrace = DefaultBlurGrace
	}

	s := &Session{
		clock:     opts.Controller.Clock,
		minLength: opts.Controller.MinLength,
		blurGrace: opts.BlurGrace,
		onChange:  opts.OnChange,
		onCommit:  opts.OnCommit,
		active:    -1,
	}
	s.controller = NewController(fetcher, sessionListener{s}, opts.Controller)

	return s
}

func (s *Session) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	return Snapshot{
		Query:        s.query,
		State:        s.state,
		Suggestions:  CloneCandidates(s.suggestions),
		ActiveIndex:  s.active,
		Failed:       s.failure != nil,
		Unauthorized: errors.Is(s.failure, ErrUnauthorized),
	}
}

func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

func (s *Session) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.failure
}

// Input records a user edit of the query field.
func (s *Session) Input(query string) {
	s.mu.Lock()
	s.query = query
	s.mu.Unlock()

	s.controller.Change(query)
	s.notify()
}

// Key handles a navigation key and reports whether it was consumed.
func (s *Session) Key(key Key) bool {
	switch key {
	case KeyArrowDown, KeyArrowUp:
		return s.move(key)
	case KeyEscape:
		return s.dismiss()
	case KeyEnter:
		if candidate, ok := s.highlighted(); ok {
			s.commit(candidate.DisplayName)
			return true
		}
		return s.Submit()
	case KeyTab:
		if candidate, ok := s.highlighted(); ok {
			s.commit(candidate.DisplayName)
			return true
		}
	}
	return false
}

// Submit runs a full search for the typed query when it is long enough.
func (s *Session) Submit() bool {
	s.mu.Lock()
	query := NormalizeQuery(s.query)
	s.mu.Unlock()

	if utf8.RuneCountInString(query) < s.minLength {
		return false
	}

	s.commit(query)
	return true
}

// PointerDown marks the start of a pointer selection on index. While the
// pointer is down a blur does not close the list.
func (s *Session) PointerDown(index int) {
	s.mu.Lock()
	if s.state != StateOpenWithResults || index < 0 || index >= len(s.suggestions) {
		s.mu.Unlock()
		return
	}
	s.pointerDown = true
	s.active = index
	s.mu.Unlock()

	s.notify()
}

// PointerCancel ends a pointer selection without a click.
func (s *Session) PointerCancel() {
	s.mu.Lock()
	s.pointerDown = false
	closeNow := s.blurred && s.blurTimer == nil && s.state.IsOpen()
	s.mu.Unlock()

	if closeNow {
		s.dismiss()
	}
}

// Click commits the suggestion at index.
func (s *Session) Click(index int) bool {
	s.mu.Lock()
	if s.state != StateOpenWithResults || index < 0 || index >= len(s.suggestions) {
		s.pointerDown = false
		s.mu.Unlock()
		return false
	}
	candidate := s.suggestions[index]
	s.mu.Unlock()

	s.commit(candidate.DisplayName)
	return true
}

// Blur closes the list after the grace window. A click that arrives inside
// the window still commits, because the input loses focus before the click
// on a suggestion is delivered.
func (s *Session) Blur() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.blurred = true
	if !s.state.IsOpen() {
		return
	}

	s.stopBlurLocked()
	gen := s.blurGen
	s.blurTimer = s.clock.AfterFunc(s.blurGrace, func() { s.blurElapsed(gen) })
}

func (s *Session) Focus() {
	s.mu.Lock()
	s.blurred = false
	s.stopBlurLocked()
	s.mu.Unlock()
}

// Close releases timers and aborts pending lookups.
func (s *Session) Close() {
	s.controller.Close()

	s.mu.Lock()
	s.stopBlurLocked()
	s.mu.Unlock()
}

func (s *Session) blurElapsed(gen uint64) {
	s.mu.Lock()
	if gen != s.blurGen {
		s.mu.Unlock()
		return
	}
	s.blurTimer = nil
	if s.pointerDown {
		s.mu.Unlock()
		return
	}
	s.mu.Unlock()

	s.dismiss()
}

func (s *Session) highlighted() (SearchCandidate, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != StateOpenWithResults || s.active < 0 || s.active >= len(s.suggestions) {
		return SearchCandidate{}, false
	}
	return s.suggestions[s.active], true
}

func (s *Session) move(key Key) bool {
	s.mu.Lock()
	if s.state != StateOpenWithResults || len(s.suggestions) == 0 {
		s.mu.Unlock()
		return false
	}

	switch key {
	case KeyArrowDown:
		if s.active < len(s.suggestions)-1 {
			s.active++
		}
	case KeyArrowUp:
		if s.active > 0 {
			s.active--
		} else {
			s.active = -1
		}
	}
	s.mu.Unlock()

	s.notify()
	return true
}

// dismiss closes the list, keeping the query as typed.
func (s *Session) dismiss() bool {
	if !s.State().IsOpen() {
		return false
	}

	s.controller.Cancel()

	s.mu.Lock()
	s.closeLocked()
	s.mu.Unlock()

	s.notify()
	return true
}

func (s *Session) commit(query string) {
	s.controller.Cancel()

	s.mu.Lock()
	s.query = query
	s.closeLocked()
	s.mu.Unlock()

	s.notify()

	if s.onCommit != nil {
		s.onCommit(query)
	}
}

func (s *Session) closeLocked() {
	s.stopBlurLocked()
	s.state = StateClosed
	s.suggestions = nil
	s.active = -1
	s.failure = nil
	s.pointerDown = false
}

func (s *Session) stopBlurLocked() {
	s.blurGen++
	if s.blurTimer != nil {
		s.blurTimer.Stop()
		s.blurTimer = nil
	}
}

func (s *Session) notify() {
	if s.onChange == nil {
		return
	}

	s.notifyMu.Lock()
	defer s.notifyMu.Unlock()
	s.onChange(s.Snapshot())
}

type sessionListener struct {
	s *Session
}

func (l sessionListener) Closed() {
	l.s.mu.Lock()
	l.s.closeLocked()
	l.s.mu.Unlock()
}

func (l sessionListener) Loading(query string) {
	l.s.mu.Lock()
	l.s.state = StateLoading
	l.s.suggestions = nil
	l.s.active = -1
	l.s.failure = nil
	l.s.mu.Unlock()
}

func (l sessionListener) Results(query string, candidates []SearchCandidate) {
	l.s.mu.Lock()
	l.s.suggestions = CloneCandidates(candidates)
	l.s.active = -1
	l.s.failure = nil
	if len(candidates) > 0 {
		l.s.state = StateOpenWithResults
	} else {
		l.s.state = StateOpenNoResults
	}
	l.s.mu.Unlock()

	l.s.notify()
}

func (l sessionListener) Failed(query string, err error) {
	l.s.mu.Lock()
	l.s.suggestions = nil
	l.s.active = -1
	l.s.failure = err
	l.s.state = StateOpenNoResults
	l.s.mu.Unlock()

	l.s.notify()
}
