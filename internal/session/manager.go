package session

import (
	"sync"

	"github.com/rs/zerolog/log"

	"document-qa/internal/helper"
)

// Manager owns the open sessions. Sessions share nothing but the pipeline.
type Manager struct {
	pipeline *Pipeline

	mu       sync.RWMutex
	sessions map[string]*Session
}

func NewManager(p *Pipeline) *Manager {
	return &Manager{pipeline: p, sessions: make(map[string]*Session)}
}

// Create opens a new, idle session.
func (m *Manager) Create() (*Session, error) {
	id, err := helper.GenerateUUID()
	if err != nil {
		return nil, err
	}
	s := New(id, m.pipeline)

	m.mu.Lock()
	m.sessions[id] = s
	m.mu.Unlock()

	m.pipeline.Metrics.SessionOpened()
	log.Debug().Str("session", id).Msg("Session created")
	return s, nil
}

func (m *Manager) Get(id string) (*Session, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.sessions[id]
	return s, ok
}

// Close discards the session with its index and transcript. It reports
// whether the session existed.
func (m *Manager) Close(id string) bool {
	m.mu.Lock()
	_, ok := m.sessions[id]
	delete(m.sessions, id)
	m.mu.Unlock()

	if ok {
		m.pipeline.Metrics.SessionClosed()
		log.Debug().Str("session", id).Msg("Session closed")
	}
	return ok
}

func (m *Manager) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}
