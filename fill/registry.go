package fill

import (
	"context"
	"sync"
	"time"

	"github.com/gofrs/uuid"

	"github.com/mbolis/quick-form/log"
)

const DefaultTTL = 2 * time.Hour

// Registry holds the open fill sessions of the server, keyed by a random id
// handed to the client.
type Registry struct {
	ttl time.Duration

	mu       sync.Mutex
	sessions map[uuid.UUID]*Session
}

func NewRegistry(ttl time.Duration) *Registry {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Registry{ttl: ttl, sessions: map[uuid.UUID]*Session{}}
}

func (r *Registry) Add(s *Session) (id uuid.UUID, err error) {
	id, err = uuid.NewV4()
	if err != nil {
		return
	}
	r.mu.Lock()
	r.sessions[id] = s
	r.mu.Unlock()
	return
}

func (r *Registry) Get(id uuid.UUID) (*Session, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.sessions[id]
	return s, ok
}

// Remove closes and forgets a session.
func (r *Registry) Remove(id uuid.UUID) bool {
	r.mu.Lock()
	s, ok := r.sessions[id]
	delete(r.sessions, id)
	r.mu.Unlock()

	if ok {
		s.Close()
	}
	return ok
}

func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.sessions)
}

// Reap closes every session idle for longer than the ttl at now.
func (r *Registry) Reap(now time.Time) (reaped int) {
	var idle []*Session
	r.mu.Lock()
	for id, s := range r.sessions {
		if now.Sub(s.LastUsed()) > r.ttl {
			idle = append(idle, s)
			delete(r.sessions, id)
		}
	}
	r.mu.Unlock()

	for _, s := range idle {
		s.Close()
	}
	if len(idle) > 0 {
		log.Infof("fill.reap: closed %d idle sessions", len(idle))
	}
	return len(idle)
}

// Run reaps idle sessions until ctx is done, then closes the rest.
func (r *Registry) Run(ctx context.Context) {
	ticker := time.NewTicker(r.ttl / 4)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			r.CloseAll()
			return
		case now := <-ticker.C:
			r.Reap(now)
		}
	}
}

func (r *Registry) CloseAll() {
	r.mu.Lock()
	all := r.sessions
	r.sessions = map[uuid.UUID]*Session{}
	r.mu.Unlock()

	for _, s := range all {
		s.Close()
	}
}
