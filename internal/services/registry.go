package services

import (
	"sync"

	"auction-system/internal/domain"
)

// SessionRegistry maps session ids to sessions. Its lock only guards the map;
// every session serializes its own mutations.
type SessionRegistry struct {
	mu       sync.RWMutex
	sessions map[string]*AuctionSession
}

func NewSessionRegistry() *SessionRegistry {
	return &SessionRegistry{
		sessions: make(map[string]*AuctionSession),
	}
}

func (r *SessionRegistry) Add(session *AuctionSession) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.sessions[session.ID()]; exists {
		return domain.ErrSessionExists
	}
	r.sessions[session.ID()] = session
	return nil
}

func (r *SessionRegistry) Get(sessionID string) (*AuctionSession, error) {
	r.mu.RLock()
	session, ok := r.sessions[sessionID]
	r.mu.RUnlock()

	if !ok {
		return nil, domain.ErrSessionNotFound
	}
	return session, nil
}

// All returns a point-in-time list of registered sessions.
func (r *SessionRegistry) All() []*AuctionSession {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]*AuctionSession, 0, len(r.sessions))
	for _, s := range r.sessions {
		out = append(out, s)
	}
	return out
}

func (r *SessionRegistry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sessions)
}
