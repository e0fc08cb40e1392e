package ws

import (
	"context"
	"sync"
)

// Generations hands out a monotonically increasing generation per key.
// Starting a new generation cancels the context of the previous one, so a
// superseded request stops early and its result is recognizably stale.
type Generations struct {
	mu      sync.Mutex
	current map[string]*generation
}

type generation struct {
	gen    uint64
	cancel context.CancelFunc
}

func NewGenerations() *Generations {
	return &Generations{current: make(map[string]*generation)}
}

type Ticket struct {
	Gen uint64
	Ctx context.Context

	key    string
	owner  *Generations
	cancel context.CancelFunc
}

func (g *Generations) Begin(parent context.Context, key string) Ticket {
	ctx, cancel := context.WithCancel(parent)

	g.mu.Lock()
	var next uint64 = 1
	if prev, ok := g.current[key]; ok {
		prev.cancel()
		next = prev.gen + 1
	}
	g.current[key] = &generation{gen: next, cancel: cancel}
	g.mu.Unlock()

	return Ticket{Gen: next, Ctx: ctx, key: key, owner: g, cancel: cancel}
}

// Current reports whether no later generation has begun for the key.
func (t Ticket) Current() bool {
	t.owner.mu.Lock()
	defer t.owner.mu.Unlock()
	cur, ok := t.owner.current[t.key]
	return ok && cur.gen == t.Gen
}

// Done releases the ticket's context. The generation number is kept so
// later tickets keep counting up.
func (t Ticket) Done() {
	t.cancel()
}

// CancelAll stops every in-flight generation.
func (g *Generations) CancelAll() {
	g.mu.Lock()
	defer g.mu.Unlock()
	for _, cur := range g.current {
		cur.cancel()
	}
}
