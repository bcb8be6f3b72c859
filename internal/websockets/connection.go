package websockets

import (
	"context"
	"strings"
	"sync"

	"waiverdesk/internal/logger"
	. "waiverdesk/internal/models"
	"waiverdesk/internal/typeahead"

	"github.com/google/uuid"
)

const (
	MessageInput         = "input"
	MessageKey           = "key"
	MessagePointerDown   = "pointerdown"
	MessagePointerCancel = "pointercancel"
	MessageClick         = "click"
	MessageBlur          = "blur"
	MessageFocus         = "focus"

	FrameState   = "state"
	FrameResults = "results"
	FrameError   = "error"
)

// Message is a client frame.
type Message struct {
	Type  string `json:"type"`
	Query string `json:"query,omitempty"`
	Key   string `json:"key,omitempty"`
	Index int    `json:"index,omitempty"`
}

type StateFrame struct {
	Type string `json:"type"`
	typeahead.Snapshot
	Highlighted []string `json:"highlighted"`
}

type ResultsFrame struct {
	Type    string            `json:"type"`
	Query   string            `json:"query"`
	Results []SearchCandidate `json:"results"`
}

type ErrorFrame struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

type connection struct {
	id        uuid.UUID
	conn      Conn
	principal Principal
	searcher  Searcher
	session   *typeahead.Session
	log       logger.Logger

	ctx    context.Context
	cancel context.CancelFunc

	// outbox holds frames not yet written. Consecutive state frames collapse
	// into the latest one.
	mu     sync.Mutex
	outbox []any
	wake   chan struct{}

	searchMu     sync.Mutex
	searchCancel context.CancelFunc

	closeOnce sync.Once
	done      chan struct{}
}

func newConnection(id uuid.UUID, conn Conn, principal Principal, m *Manager) *connection {
	ctx, cancel := context.WithCancel(context.Background())

	c := &connection{
		id:        id,
		conn:      conn,
		principal: principal,
		searcher:  m.searcher,
		log:       logger.New("websockets").File("connection"),
		ctx:       ctx,
		cancel:    cancel,
		wake:      make(chan struct{}, 1),
		done:      make(chan struct{}),
	}

	opts := m.sessionOptions()
	opts.OnChange = c.sendState
	opts.OnCommit = c.search
	c.session = typeahead.NewSession(typeahead.FetcherFunc(m.searcher.Lookup), opts)

	return c
}

func (c *connection) run() {
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		c.writeLoop()
	}()

	c.readLoop()
	c.close()
	wg.Wait()
}

func (c *connection) readLoop() {
	log := c.log.Function("readLoop")

	for {
		var msg Message
		if err := c.conn.ReadJSON(&msg); err != nil {
			select {
			case <-c.done:
			default:
				log.Debug("read ended", "sessionID", c.id, "error", err)
			}
			return
		}

		c.dispatch(msg)
	}
}

func (c *connection) dispatch(msg Message) {
	switch strings.ToLower(msg.Type) {
	case MessageInput:
		c.session.Input(msg.Query)
	case MessageKey:
		key, ok := typeahead.ParseKey(msg.Key)
		if !ok {
			c.enqueue(ErrorFrame{Type: FrameError, Message: "unknown key " + msg.Key}, false)
			return
		}
		c.session.Key(key)
	case MessagePointerDown:
		c.session.PointerDown(msg.Index)
	case MessagePointerCancel:
		c.session.PointerCancel()
	case MessageClick:
		c.session.Click(msg.Index)
	case MessageBlur:
		c.session.Blur()
	case MessageFocus:
		c.session.Focus()
	default:
		c.enqueue(ErrorFrame{Type: FrameError, Message: "unknown message type " + msg.Type}, false)
	}
}

func (c *connection) sendState(snapshot typeahead.Snapshot) {
	highlighted := make([]string, 0, len(snapshot.Suggestions))
	for _, candidate := range snapshot.Suggestions {
		highlighted = append(highlighted, typeahead.Highlight(candidate.DisplayName, typeahead.NormalizeQuery(snapshot.Query)))
	}

	c.enqueue(StateFrame{Type: FrameState, Snapshot: snapshot, Highlighted: highlighted}, true)
}

// search runs the full search for a committed query. A newer commit cancels
// the previous search.
func (c *connection) search(query string) {
	ctx, cancel := context.WithCancel(c.ctx)

	c.searchMu.Lock()
	if c.searchCancel != nil {
		c.searchCancel()
	}
	c.searchCancel = cancel
	c.searchMu.Unlock()

	go func() {
		defer cancel()

		results, err := c.searcher.Search(ctx, query)
		if ctx.Err() != nil {
			return
		}
		if err != nil {
			c.log.Function("search").Er("full search failed", err, "sessionID", c.id, "username", c.principal.Username)
			c.enqueue(ErrorFrame{Type: FrameError, Message: "search failed, try again"}, false)
			return
		}
		if results == nil {
			results = []SearchCandidate{}
		}

		c.enqueue(ResultsFrame{Type: FrameResults, Query: query, Results: results}, false)
	}()
}

func (c *connection) enqueue(frame any, coalesce bool) {
	c.mu.Lock()
	if n := len(c.outbox); coalesce && n > 0 {
		if _, ok := c.outbox[n-1].(StateFrame); ok {
			c.outbox[n-1] = frame
			c.mu.Unlock()
			c.signal()
			return
		}
	}
	c.outbox = append(c.outbox, frame)
	c.mu.Unlock()

	c.signal()
}

func (c *connection) signal() {
	select {
	case c.wake <- struct{}{}:
	default:
	}
}

func (c *connection) writeLoop() {
	log := c.log.Function("writeLoop")

	for {
		select {
		case <-c.done:
			return
		case <-c.wake:
		}

		c.mu.Lock()
		frames := c.outbox
		c.outbox = nil
		c.mu.Unlock()

		for _, frame := range frames {
			if err := c.conn.WriteJSON(frame); err != nil {
				log.Debug("write failed, closing session", "sessionID", c.id, "error", err)
				c.close()
				return
			}
		}
	}
}

func (c *connection) close() {
	c.closeOnce.Do(func() {
		close(c.done)
		c.cancel()
		c.session.Close()
		_ = c.conn.Close()
	})
}
