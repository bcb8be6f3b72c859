package websockets

import (
	"context"
	"sync"

	"waiverdesk/config"
	"waiverdesk/internal/logger"
	. "waiverdesk/internal/models"
	"waiverdesk/internal/typeahead"

	"github.com/google/uuid"
)

// Conn is the part of a websocket connection a session needs. A
// *websocket.Conn satisfies it.
type Conn interface {
	ReadJSON(v any) error
	WriteJSON(v any) error
	Close() error
}

// Searcher runs suggestion lookups and full searches for live sessions.
type Searcher interface {
	Lookup(ctx context.Context, query string) ([]SearchCandidate, error)
	Search(ctx context.Context, query string) ([]SearchCandidate, error)
}

// Manager hosts one live typeahead session per websocket connection.
type Manager struct {
	searcher Searcher
	cache    typeahead.Cache
	config   config.Config
	clock    typeahead.Clock
	log      logger.Logger

	mu       sync.Mutex
	sessions map[uuid.UUID]*connection
	closed   bool
}

func New(searcher Searcher, cache typeahead.Cache, config config.Config, clock typeahead.Clock) *Manager {
	if clock == nil {
		clock = typeahead.RealClock{}
	}

	return &Manager{
		searcher: searcher,
		cache:    cache,
		config:   config,
		clock:    clock,
		log:      logger.New("websockets"),
		sessions: make(map[uuid.UUID]*connection),
	}
}

// HandleWebSocket serves conn until the client goes away or the manager is
// closed. It blocks for the lifetime of the connection.
func (m *Manager) HandleWebSocket(conn Conn, principal Principal) {
	log := m.log.Function("HandleWebSocket")

	id, err := uuid.NewV7()
	if err != nil {
		id = uuid.New()
	}

	c := newConnection(id, conn, principal, m)
	if !m.register(c) {
		_ = conn.Close()
		return
	}
	defer m.unregister(c)

	log.Info("typeahead session opened", "sessionID", id, "username", principal.Username)
	c.run()
	log.Info("typeahead session closed", "sessionID", id, "username", principal.Username)
}

func (m *Manager) Count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sessions)
}

// Close ends every open session. New connections are refused afterwards.
func (m *Manager) Close() {
	m.mu.Lock()
	m.closed = true
	open := make([]*connection, 0, len(m.sessions))
	for _, c := range m.sessions {
		open = append(open, c)
	}
	m.mu.Unlock()

	for _, c := range open {
		c.close()
	}
}

func (m *Manager) register(c *connection) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return false
	}
	m.sessions[c.id] = c
	return true
}

func (m *Manager) unregister(c *connection) {
	m.mu.Lock()
	delete(m.sessions, c.id)
	m.mu.Unlock()
}

func (m *Manager) sessionOptions() typeahead.SessionOptions {
	return typeahead.SessionOptions{
		Controller: typeahead.Options{
			Delay:   m.config.SearchDebounce,
			Timeout: m.config.SearchFetchTimeout,
			Clock:   m.clock,
			Cache:   m.cache,
		},
		BlurGrace: m.config.SearchBlurGrace,
	}
}
