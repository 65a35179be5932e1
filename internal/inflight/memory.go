package inflight

import (
	"context"
	"sync"

	"github.com/google/uuid"
)

// MemoryGuard keeps markers in process memory. Suitable for a single replica and the CLI.
type MemoryGuard struct {
	mu      sync.Mutex
	current map[string]Token
}

func NewMemoryGuard() *MemoryGuard {
	return &MemoryGuard{current: make(map[string]Token)}
}

func (g *MemoryGuard) Acquire(_ context.Context, session, key string) (Token, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if cur, ok := g.current[session]; ok && cur.Key == key {
		return Token{}, ErrDuplicate
	}
	tok := Token{Session: session, Key: key, ID: uuid.NewString()}
	g.current[session] = tok
	return tok, nil
}

func (g *MemoryGuard) IsCurrent(_ context.Context, tok Token) (bool, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	cur, ok := g.current[tok.Session]
	return ok && cur.ID == tok.ID, nil
}

func (g *MemoryGuard) Release(_ context.Context, tok Token) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if cur, ok := g.current[tok.Session]; ok && cur.ID == tok.ID {
		delete(g.current, tok.Session)
	}
	return nil
}

func (g *MemoryGuard) Close() error { return nil }
