// store/store.go
package store

import (
	crand "crypto/rand"
	"errors"
	"math/big"
	"math/rand"
	"sync"

	"github.com/Efromomr/quiz-board/game"
)

const (
	// CodeLength is the length of generated session codes.
	CodeLength = 6

	// codeChars excludes ambiguous characters so codes stay easy to share aloud.
	codeChars = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"

	createAttempts = 5
)

// ErrCodeCollision is returned when no free session code could be generated.
var ErrCodeCollision = errors.New("could not generate a unique session code")

// Store is the registry of live game sessions plus the connection→player
// identity map. Sessions are only ever removed by process exit.
type Store struct {
	mu       sync.RWMutex
	sessions map[string]*game.Session

	connMu sync.RWMutex
	conns  map[string]string // connection id -> player id
}

func NewStore() *Store {
	return &Store{
		sessions: make(map[string]*game.Session),
		conns:    make(map[string]string),
	}
}

// Create reserves a fresh unique session code and registers the session the
// build callback returns for it. The callback runs under the registry lock,
// so it must not block; question loading happens before Create is called.
func (s *Store) Create(build func(code string) (*game.Session, error)) (*game.Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i := 0; i < createAttempts; i++ {
		code := GenerateCode()
		if _, exists := s.sessions[code]; exists {
			continue
		}
		sess, err := build(code)
		if err != nil {
			return nil, err
		}
		s.sessions[code] = sess
		return sess, nil
	}
	return nil, ErrCodeCollision
}

// Get looks up a session by code.
func (s *Store) Get(code string) (*game.Session, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	sess, exists := s.sessions[code]
	return sess, exists
}

// Sessions returns a snapshot slice of all live sessions.
func (s *Store) Sessions() []*game.Session {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sessions := make([]*game.Session, 0, len(s.sessions))
	for _, sess := range s.sessions {
		sessions = append(sessions, sess)
	}
	return sessions
}

// Count reports the number of live sessions.
func (s *Store) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions)
}

// BindConnection records which player identity a connection speaks for.
func (s *Store) BindConnection(connectionID, playerID string) {
	s.connMu.Lock()
	defer s.connMu.Unlock()
	s.conns[connectionID] = playerID
}

// UnbindConnection drops the binding and returns the player id it held.
func (s *Store) UnbindConnection(connectionID string) (string, bool) {
	s.connMu.Lock()
	defer s.connMu.Unlock()
	playerID, exists := s.conns[connectionID]
	delete(s.conns, connectionID)
	return playerID, exists
}

// GenerateCode builds a random session code, crypto/rand with a math/rand
// fallback.
func GenerateCode() string {
	code := make([]byte, CodeLength)
	for i := range code {
		n, err := crand.Int(crand.Reader, big.NewInt(int64(len(codeChars))))
		if err != nil {
			code[i] = codeChars[rand.Intn(len(codeChars))]
			continue
		}
		code[i] = codeChars[n.Int64()]
	}
	return string(code)
}
