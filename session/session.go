// session/session.go
package session

import (
	"sync"
	"time"

	"github.com/Efromomr/quiz-board/network"
)

// Session is one live client connection. PlayerID and GameID are set once the
// client sends its join command; the same player may reconnect later under a
// new connection session with the same PlayerID.
type Session struct {
	ID         string
	Conn       network.Connection
	PlayerID   string
	GameID     string
	CreatedAt  time.Time
	LastActive time.Time
	mutex      sync.RWMutex
}

func NewSession(id string, conn network.Connection) *Session {
	now := time.Now()
	return &Session{
		ID:         id,
		Conn:       conn,
		CreatedAt:  now,
		LastActive: now,
	}
}

// Bind attaches the player identity and game the connection speaks for.
func (s *Session) Bind(playerID, gameID string) {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	s.PlayerID = playerID
	s.GameID = gameID
}

// Identity returns the bound player and game ids.
func (s *Session) Identity() (playerID, gameID string) {
	s.mutex.RLock()
	defer s.mutex.RUnlock()
	return s.PlayerID, s.GameID
}

// Touch records activity on the connection. Sends happen from broadcaster and
// sweeper goroutines concurrently with the read loop, so the write is guarded.
func (s *Session) Touch() {
	s.mutex.Lock()
	s.LastActive = time.Now()
	s.mutex.Unlock()
}

func (s *Session) Send(msgID uint16, data []byte) error {
	s.Touch()
	return s.Conn.Send(msgID, data)
}

func (s *Session) GetID() string {
	return s.ID
}

func (s *Session) Close() error {
	return s.Conn.Close()
}

// Session管理器
type Manager struct {
	sessions map[string]*Session
	mutex    sync.RWMutex
}

func NewManager() *Manager {
	return &Manager{
		sessions: make(map[string]*Session),
	}
}

func (m *Manager) Add(session *Session) {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	m.sessions[session.ID] = session
}

func (m *Manager) Remove(sessionID string) {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	delete(m.sessions, sessionID)
}

func (m *Manager) Get(sessionID string) (*Session, bool) {
	m.mutex.RLock()
	defer m.mutex.RUnlock()
	session, exists := m.sessions[sessionID]
	return session, exists
}

// GetByGameID returns every connection currently bound to the given game.
func (m *Manager) GetByGameID(gameID string) []*Session {
	m.mutex.RLock()
	defer m.mutex.RUnlock()

	var result []*Session
	for _, session := range m.sessions {
		if _, g := session.Identity(); g == gameID {
			result = append(result, session)
		}
	}
	return result
}

// GetByPlayerID returns every connection bound to the given player identity.
func (m *Manager) GetByPlayerID(playerID string) []*Session {
	m.mutex.RLock()
	defer m.mutex.RUnlock()

	var result []*Session
	for _, session := range m.sessions {
		if p, _ := session.Identity(); p == playerID {
			result = append(result, session)
		}
	}
	return result
}

// Count reports the number of live connections.
func (m *Manager) Count() int {
	m.mutex.RLock()
	defer m.mutex.RUnlock()
	return len(m.sessions)
}
