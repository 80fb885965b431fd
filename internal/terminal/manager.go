// internal/terminal/manager.go
package terminal

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"
)

// Events is the slice of the event hub terminal output flows through
type Events interface {
	EmitTerminalOutput(sessionID string, data string)
}

// Manager owns the live terminal sessions. Sessions start in the
// workspace directory when one is open, otherwise in the user's home.
type Manager struct {
	ctx    context.Context
	events Events
	shell  string // "" = detect

	mu       sync.RWMutex
	sessions map[string]*Session
}

// NewManager creates a terminal manager
func NewManager(ctx context.Context, events Events) *Manager {
	return &Manager{
		ctx:      ctx,
		events:   events,
		sessions: make(map[string]*Session),
	}
}

// SetShell overrides the detected default shell for new sessions
func (m *Manager) SetShell(shell string) {
	m.shell = shell
}

// Open starts a new shell session in cwd and returns its id
func (m *Manager) Open(cwd string, rows, cols int) (string, error) {
	id := uuid.NewString()
	s := newSession(id, cwd, m.shell, rows, cols)
	if err := s.start(); err != nil {
		return "", fmt.Errorf("start terminal: %w", err)
	}

	m.mu.Lock()
	m.sessions[id] = s
	m.mu.Unlock()

	go m.pump(s)
	return id, nil
}

// pump streams shell output to the frontend until the session ends
func (m *Manager) pump(s *Session) {
	buf := make([]byte, 8192)
	for {
		select {
		case <-s.Done():
			return
		case <-m.ctx.Done():
			return
		default:
			n, err := s.read(buf)
			if err != nil {
				return
			}
			if n > 0 && m.events != nil {
				m.events.EmitTerminalOutput(s.ID, string(buf[:n]))
			}
		}
	}
}

// Write sends input to a session
func (m *Manager) Write(id, data string) error {
	s, err := m.get(id)
	if err != nil {
		return err
	}
	return s.Write(data)
}

// Resize changes a session's dimensions
func (m *Manager) Resize(id string, rows, cols int) error {
	s, err := m.get(id)
	if err != nil {
		return err
	}
	return s.Resize(rows, cols)
}

// Close ends a session
func (m *Manager) Close(id string) error {
	m.mu.Lock()
	s, ok := m.sessions[id]
	delete(m.sessions, id)
	m.mu.Unlock()

	if !ok {
		return fmt.Errorf("terminal session not found: %s", id)
	}
	return s.Close()
}

// CloseAll ends every session, used at shutdown
func (m *Manager) CloseAll() {
	m.mu.Lock()
	defer m.mu.Unlock()

	for id, s := range m.sessions {
		s.Close()
		delete(m.sessions, id)
	}
}

// List returns the active session ids
func (m *Manager) List() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()

	ids := make([]string, 0, len(m.sessions))
	for id := range m.sessions {
		ids = append(ids, id)
	}
	return ids
}

func (m *Manager) get(id string) (*Session, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	s, ok := m.sessions[id]
	if !ok {
		return nil, fmt.Errorf("terminal session not found: %s", id)
	}
	return s, nil
}
