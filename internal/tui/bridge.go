package tui

import (
	"sync"

	tea "github.com/charmbracelet/bubbletea"
)

// Sender delivers messages to a running program. *tea.Program satisfies it.
type Sender interface {
	Send(msg tea.Msg)
}

// Bridge carries session callbacks into the program. Post never blocks, so it
// is safe to call from inside Update; consecutive snapshots collapse into the
// latest one.
type Bridge struct {
	mu     sync.Mutex
	outbox []tea.Msg
	wake   chan struct{}

	attachOnce sync.Once
	closeOnce  sync.Once
	done       chan struct{}
}

func NewBridge() *Bridge {
	return &Bridge{
		wake: make(chan struct{}, 1),
		done: make(chan struct{}),
	}
}

func (b *Bridge) Post(msg tea.Msg) {
	b.mu.Lock()
	if n := len(b.outbox); n > 0 {
		_, last := b.outbox[n-1].(SnapshotMsg)
		_, next := msg.(SnapshotMsg)
		if last && next {
			b.outbox[n-1] = msg
			b.mu.Unlock()
			b.signal()
			return
		}
	}
	b.outbox = append(b.outbox, msg)
	b.mu.Unlock()

	b.signal()
}

// Attach starts delivering posted messages to sender. Messages posted before
// Attach are kept and delivered first.
func (b *Bridge) Attach(sender Sender) {
	b.attachOnce.Do(func() {
		go b.pump(sender)
		b.signal()
	})
}

func (b *Bridge) Close() {
	b.closeOnce.Do(func() { close(b.done) })
}

func (b *Bridge) signal() {
	select {
	case b.wake <- struct{}{}:
	default:
	}
}

func (b *Bridge) pump(sender Sender) {
	for {
		select {
		case <-b.done:
			return
		case <-b.wake:
		}

		b.mu.Lock()
		msgs := b.outbox
		b.outbox = nil
		b.mu.Unlock()

		for _, msg := range msgs {
			sender.Send(msg)
		}
	}
}
