// Package notice holds the transient message shown after an action.
package notice

import (
	"sync"
	"time"
)

type Kind string

const (
	KindSuccess Kind = "success"
	KindError   Kind = "error"
	KindInfo    Kind = "info"
)

type Notice struct {
	Kind     Kind      `json:"kind"`
	Message  string    `json:"message"`
	PostedAt time.Time `json:"posted_at"`
}

// afterFunc is swapped in tests.
var afterFunc = time.AfterFunc

// Board shows at most one notice. Each notice clears itself after the TTL;
// a timer belonging to an older notice never clears a newer one.
type Board struct {
	ttl time.Duration

	mu        sync.Mutex
	current   *Notice
	seq       uint64
	timer     *time.Timer
	listeners map[uint64]func(*Notice)
	nextID    uint64
}

func NewBoard(ttl time.Duration) *Board {
	return &Board{ttl: ttl, listeners: map[uint64]func(*Notice){}}
}

func (b *Board) Post(kind Kind, message string) {
	n := &Notice{Kind: kind, Message: message, PostedAt: time.Now()}

	b.mu.Lock()
	b.seq++
	seq := b.seq
	b.current = n
	if b.timer != nil {
		b.timer.Stop()
	}
	b.timer = afterFunc(b.ttl, func() { b.expire(seq) })
	b.mu.Unlock()

	b.emit(n)
}

func (b *Board) Success(message string) { b.Post(KindSuccess, message) }

func (b *Board) Error(message string) { b.Post(KindError, message) }

func (b *Board) Current() *Notice {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.current == nil {
		return nil
	}
	n := *b.current
	return &n
}

// OnChange registers fn for posts and expiries; nil means cleared.
func (b *Board) OnChange(fn func(*Notice)) func() {
	b.mu.Lock()
	defer b.mu.Unlock()
	id := b.nextID
	b.nextID++
	b.listeners[id] = fn
	return func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		delete(b.listeners, id)
	}
}

func (b *Board) expire(seq uint64) {
	b.mu.Lock()
	if seq != b.seq || b.current == nil {
		b.mu.Unlock()
		return
	}
	b.current = nil
	b.timer = nil
	b.mu.Unlock()

	b.emit(nil)
}

func (b *Board) emit(n *Notice) {
	b.mu.Lock()
	listeners := make([]func(*Notice), 0, len(b.listeners))
	for _, fn := range b.listeners {
		listeners = append(listeners, fn)
	}
	b.mu.Unlock()

	for _, fn := range listeners {
		if n == nil {
			fn(nil)
			continue
		}
		dup := *n
		fn(&dup)
	}
}
