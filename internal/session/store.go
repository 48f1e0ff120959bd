// Package session tracks which agent serves which session id.
package session

import (
	"sync"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/tryandromeda/copilot/internal/agent"
)

// Factory builds a fresh agent for a new session. apiKey may be empty, in
// which case the factory uses its configured credential.
type Factory func(sessionID, apiKey string) *agent.Agent

// Store holds live session bindings for the life of the process.
// Bindings are only removed in bulk by Clear.
type Store struct {
	mu       sync.Mutex
	sessions map[string]*agent.Agent
	factory  Factory
	log      zerolog.Logger
}

func NewStore(factory Factory, log zerolog.Logger) *Store {
	return &Store{
		sessions: make(map[string]*agent.Agent),
		factory:  factory,
		log:      log,
	}
}

func (s *Store) Get(id string) (*agent.Agent, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.sessions[id]
	return a, ok
}

func (s *Store) Put(id string, a *agent.Agent) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions[id] = a
}

// Clear drops every session so the next request rebinds to the current workspace.
func (s *Store) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := len(s.sessions)
	s.sessions = make(map[string]*agent.Agent)
	s.log.Info().Int("sessions", n).Msg("sessions invalidated")
}

// Len is the number of live sessions.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sessions)
}

// GetOrCreate returns the agent bound to sessionID, unchanged, if one is live.
// Otherwise it builds one under sessionID (or a fresh id when empty) and registers it.
func (s *Store) GetOrCreate(sessionID, apiKey string) (*agent.Agent, string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if sessionID != "" {
		if a, ok := s.sessions[sessionID]; ok {
			return a, sessionID
		}
	}
	if sessionID == "" {
		sessionID = NewID()
	}

	a := s.factory(sessionID, apiKey)
	s.sessions[sessionID] = a
	s.log.Debug().Str("session", sessionID).Str("workspace", a.WorkspaceDir()).Msg("session created")
	return a, sessionID
}

// NewID mints a random session identifier.
func NewID() string {
	return uuid.NewString()
}
