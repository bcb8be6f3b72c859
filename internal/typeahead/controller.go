package typeahead

import (
	"context"
	"sync"
	"sync/atomic"
	"time"
	"unicode/utf8"

	"waiverdesk/internal/logger"
	. "waiverdesk/internal/models"
)

const (
	DefaultDelay   = 200 * time.Millisecond
	DefaultTimeout = 5 * time.Second
)

type Fetcher interface {
	FetchSuggestions(ctx context.Context, query string) ([]SearchCandidate, error)
}

type FetcherFunc func(ctx context.Context, query string) ([]SearchCandidate, error)

func (f FetcherFunc) FetchSuggestions(ctx context.Context, query string) ([]SearchCandidate, error) {
	return f(ctx, query)
}

// Listener receives the controller's visible-state changes. Calls are
// serialized and only ever describe the latest query; a Listener must not
// call back into the Controller.
type Listener interface {
	Closed()
	Loading(query string)
	Results(query string, candidates []SearchCandidate)
	Failed(query string, err error)
}

type Options struct {
	MinLength int
	Delay     time.Duration
	Timeout   time.Duration
	Clock     Clock
	Cache     Cache
}

func (o Options) withDefaults() Options {
	if o.MinLength <= 0 {
		o.MinLength = MinQueryLength
	}
	if o.Delay < 0 {
		o.Delay = 0
	} else if o.Delay == 0 {
		o.Delay = DefaultDelay
	}
	if o.Timeout <= 0 {
		o.Timeout = DefaultTimeout
	}
	if o.Clock == nil {
		o.Clock = RealClock{}
	}
	return o
}

// Request is the cancellation handle of one suggestion lookup.
type Request struct {
	Query   string
	ctx     context.Context
	cancel  context.CancelFunc
	aborted atomic.Bool
}

func newRequest(parent context.Context, query string, timeout time.Duration) *Request {
	ctx, cancel := context.WithTimeout(parent, timeout)
	return &Request{Query: query, ctx: ctx, cancel: cancel}
}

func (r *Request) Context() context.Context {
	return r.ctx
}

// Abort stops the lookup and marks its outcome as discarded. Safe to call
// more than once and on a nil Request.
func (r *Request) Abort() {
	if r == nil {
		return
	}
	r.aborted.Store(true)
	r.cancel()
}

func (r *Request) Aborted() bool {
	return r != nil && r.aborted.Load()
}

// Controller debounces query changes into suggestion lookups. Each change
// starts a new generation; only the latest generation may reach the Listener,
// and starting one aborts whatever the previous one still had in flight.
type Controller struct {
	fetcher  Fetcher
	listener Listener
	opts     Options
	log      logger.Logger

	ctx    context.Context
	cancel context.CancelFunc

	// emitMu serializes listener calls with generation changes, so a result
	// that passed its generation check cannot land after a newer change.
	emitMu sync.Mutex

	mu         sync.Mutex
	generation uint64
	timer      Timer
	inflight   *Request
	closed     bool
}

func NewController(fetcher Fetcher, listener Listener, opts Options) *Controller {
	ctx, cancel := context.WithCancel(context.Background())
	return &Controller{
		fetcher:  fetcher,
		listener: listener,
		opts:     opts.withDefaults(),
		log:      logger.New("typeahead").File("controller"),
		ctx:      ctx,
		cancel:   cancel,
	}
}

// Change reports a new raw input value.
func (c *Controller) Change(query string) {
	normalized := NormalizeQuery(query)

	c.emitMu.Lock()
	defer c.emitMu.Unlock()

	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	gen := c.resetLocked()
	c.mu.Unlock()

	if utf8.RuneCountInString(normalized) < c.opts.MinLength {
		c.listener.Closed()
		return
	}

	c.listener.Loading(normalized)

	c.mu.Lock()
	if !c.closed && gen == c.generation {
		c.timer = c.opts.Clock.AfterFunc(c.opts.Delay, func() { c.settle(gen, normalized) })
	}
	c.mu.Unlock()
}

// Cancel drops the pending timer and in-flight lookup without notifying the
// Listener. Once it returns no earlier lookup can reach the Listener.
func (c *Controller) Cancel() {
	c.emitMu.Lock()
	defer c.emitMu.Unlock()

	c.mu.Lock()
	c.resetLocked()
	c.mu.Unlock()
}

// Close tears the controller down. Later calls are no-ops.
func (c *Controller) Close() {
	c.emitMu.Lock()
	defer c.emitMu.Unlock()

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return
	}
	c.resetLocked()
	c.closed = true
	c.cancel()
}

// InFlight returns the outstanding lookup, if any.
func (c *Controller) InFlight() *Request {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.inflight
}

func (c *Controller) resetLocked() uint64 {
	if c.timer != nil {
		c.timer.Stop()
		c.timer = nil
	}
	if c.inflight != nil {
		c.inflight.Abort()
		c.inflight = nil
	}
	c.generation++
	return c.generation
}

func (c *Controller) settle(gen uint64, query string) {
	c.mu.Lock()
	if c.closed || gen != c.generation {
		c.mu.Unlock()
		return
	}
	c.timer = nil
	if c.inflight != nil {
		c.inflight.Abort()
	}
	request := newRequest(c.ctx, query, c.opts.Timeout)
	c.inflight = request
	c.mu.Unlock()

	go c.lookup(gen, request)
}

func (c *Controller) lookup(gen uint64, request *Request) {
	log := c.log.Function("lookup")
	defer c.release(request)

	if c.opts.Cache != nil {
		candidates, found, err := c.opts.Cache.Get(request.ctx, request.Query)
		if err != nil {
			log.Warn("suggestion cache lookup failed", "query", request.Query, "error", err)
		} else if found {
			c.commit(gen, request, func(l Listener) { l.Results(request.Query, candidates) })
			return
		}
	}

	candidates, err := c.fetcher.FetchSuggestions(request.ctx, request.Query)
	if request.Aborted() {
		return
	}

	if err != nil {
		log.Debug("suggestion fetch failed", "query", request.Query, "error", err)
		c.commit(gen, request, func(l Listener) { l.Failed(request.Query, err) })
		return
	}

	candidates = CloneCandidates(candidates)
	if candidates == nil {
		candidates = []SearchCandidate{}
	}

	if c.opts.Cache != nil {
		if err := c.opts.Cache.Set(request.ctx, request.Query, candidates); err != nil {
			log.Warn("failed to cache suggestions", "query", request.Query, "error", err)
		}
	}

	c.commit(gen, request, func(l Listener) { l.Results(request.Query, candidates) })
}

func (c *Controller) commit(gen uint64, request *Request, emit func(Listener)) {
	c.emitMu.Lock()
	defer c.emitMu.Unlock()

	c.mu.Lock()
	current := !c.closed && gen == c.generation && !request.Aborted()
	c.mu.Unlock()

	if current {
		emit(c.listener)
	}
}

func (c *Controller) release(request *Request) {
	c.mu.Lock()
	if c.inflight == request {
		c.inflight = nil
	}
	c.mu.Unlock()

	request.cancel()
}
