// game/session.go
package game

import (
	"encoding/json"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"github.com/Efromomr/quiz-board/board"
	"github.com/Efromomr/quiz-board/clock"
	"github.com/Efromomr/quiz-board/logger"
	"github.com/Efromomr/quiz-board/models"
	"github.com/Efromomr/quiz-board/network"
)

const (
	DefaultBoardLength   = 40
	DefaultTurnTimeout   = 30 * time.Second
	DefaultAnswerTimeout = 20 * time.Second

	dieSides = 6
)

// Settings 会话配置
type Settings struct {
	BoardLength   int
	TurnTimeout   time.Duration
	AnswerTimeout time.Duration
}

func (s Settings) withDefaults() Settings {
	if s.BoardLength == 0 {
		s.BoardLength = DefaultBoardLength
	}
	if s.TurnTimeout == 0 {
		s.TurnTimeout = DefaultTurnTimeout
	}
	if s.AnswerTimeout == 0 {
		s.AnswerTimeout = DefaultAnswerTimeout
	}
	return s
}

// Player 会话中的一名玩家
type Player struct {
	ID       string
	Name     string
	Position int
}

// PendingAnswer marks an open question the acting player must answer before
// anything else happens in the session.
type PendingAnswer struct {
	PlayerID   string
	QuestionID string
}

// Session is one independent game, addressed by a short code. All command
// transitions and sweep ticks go through the session mutex, so a transition
// never observes another transition's intermediate state. Each transition
// returns the outbound messages it produced; delivery is the dispatcher's job,
// which keeps the state machine testable without a live transport.
type Session struct {
	ID string

	mu          sync.Mutex
	players     []*Player
	connected   map[string]bool
	board       board.Board
	questions   []models.Question
	currentTurn int
	pending     *PendingAnswer
	winnerID    string
	clock       clock.TurnClock
	log         []string
	startedAt   time.Time
	turns       int

	settings Settings

	rng  *rand.Rand
	roll func() int

	recordSink func(models.GameRecord)
}

// NewSession builds a session with a freshly generated board and its own copy
// of the question set. The question repository load happens before this call;
// a session never touches external I/O afterwards.
func NewSession(id string, questions []models.Question, settings Settings) (*Session, error) {
	if len(questions) == 0 {
		return nil, fmt.Errorf("session %s: question set is empty", id)
	}

	settings = settings.withDefaults()
	b, err := board.Generate(settings.BoardLength)
	if err != nil {
		return nil, err
	}

	qs := make([]models.Question, len(questions))
	copy(qs, questions)

	s := &Session{
		ID:        id,
		connected: make(map[string]bool),
		board:     b,
		questions: qs,
		settings:  settings,
		startedAt: time.Now(),
		rng:       rand.New(rand.NewSource(time.Now().UnixNano())),
	}
	s.roll = func() int { return s.rng.Intn(dieSides) + 1 }
	return s, nil
}

// SetRecordSink registers a callback invoked (on its own goroutine) with the
// finished game record whenever a winner is decided.
func (s *Session) SetRecordSink(sink func(models.GameRecord)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.recordSink = sink
}

// Join adds an unseen player at position 0 and the end of the turn order, or
// reconnects a known one. Rejoining never resets a position or reorders turns.
func (s *Session) Join(playerID, name string) []network.Outbound {
	s.mu.Lock()
	defer s.mu.Unlock()

	if playerID == "" {
		return nil
	}

	p := s.playerByID(playerID)
	if p == nil {
		p = &Player{ID: playerID, Name: name}
		s.players = append(s.players, p)
		s.appendLog("%s joined the game", name)
	} else {
		p.Name = name
		if !s.connected[playerID] {
			s.appendLog("%s reconnected", name)
		}
	}
	s.connected[playerID] = true

	var prompt *network.Outbound
	if s.winnerID == "" && s.connectedCount() >= 2 {
		now := time.Now()
		if s.pending != nil {
			// Any join that restores a quorum re-arms the open question's
			// deadline, as long as its owner is connected to answer it.
			if !s.clock.AnswerArmed() && s.connected[s.pending.PlayerID] {
				s.clock.ArmAnswer(now.Add(s.settings.AnswerTimeout))
			}
			// Only the owner's own rejoin gets the prompt delivered again.
			if s.pending.PlayerID == playerID {
				if ev, ok := s.promptLocked(); ok {
					prompt = &ev
				}
			}
		} else if !s.clock.TurnArmed() && s.connected[s.actingPlayer().ID] {
			s.clock.ArmTurn(now.Add(s.settings.TurnTimeout))
		}
	}

	out := []network.Outbound{s.snapshotLocked()}
	if prompt != nil {
		out = append(out, *prompt)
	}
	return out
}

// Roll advances the acting player by a die throw. Out-of-turn, disconnected,
// mid-question and post-win rolls are silent no-ops: an out-of-sync client
// resynchronizes from the next broadcast instead of receiving an error.
func (s *Session) Roll(playerID string) []network.Outbound {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.winnerID != "" || s.pending != nil || len(s.players) == 0 {
		return nil
	}
	p := s.actingPlayer()
	if p.ID != playerID || !s.connected[playerID] {
		return nil
	}

	die := s.roll()
	p.Position += die
	if p.Position > s.board.LastIndex() {
		p.Position = s.board.LastIndex()
	}
	s.turns++
	s.appendLog("%s rolled a %d", p.Name, die)

	if p.Position == s.board.LastIndex() {
		s.winLocked(p)
		return []network.Outbound{s.snapshotLocked()}
	}

	now := time.Now()
	field := s.board[p.Position]
	if field.Kind == board.KindNormal {
		s.advanceTurnLocked(now)
		return []network.Outbound{s.snapshotLocked()}
	}

	// Special field: open a question for the acting player and deliver it on
	// the private side channel, not to the whole session.
	q := s.questions[s.rng.Intn(len(s.questions))]
	s.pending = &PendingAnswer{PlayerID: p.ID, QuestionID: q.ID}
	s.clock.ArmAnswer(now.Add(s.settings.AnswerTimeout))
	s.appendLog("%s landed on a %s field", p.Name, field.Kind)

	out := []network.Outbound{s.snapshotLocked()}
	if prompt, ok := s.promptLocked(); ok {
		out = append(out, prompt)
	}
	return out
}

// Answer resolves the open question. Boost fields reward a correct answer
// with a forward move, trap fields punish a wrong one with a backward move;
// the pending question and its deadline clear either way.
func (s *Session) Answer(playerID, questionID string, option int) []network.Outbound {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.winnerID != "" || s.pending == nil {
		return nil
	}
	if s.pending.PlayerID != playerID || s.pending.QuestionID != questionID || !s.connected[playerID] {
		return nil
	}

	q := s.questionByID(questionID)
	if q == nil {
		logger.Log.Errorf("Session %s has pending question %s that is not in its question set", s.ID, questionID)
		return nil
	}

	p := s.actingPlayer()
	field := s.board[p.Position]
	correct := option == q.Correct

	switch {
	case field.Kind == board.KindBoost && correct:
		p.Position += field.Magnitude
		if p.Position > s.board.LastIndex() {
			p.Position = s.board.LastIndex()
		}
		s.appendLog("%s answered correctly and jumps ahead %d", p.Name, field.Magnitude)
	case field.Kind == board.KindBoost:
		s.appendLog("%s answered wrong, no boost", p.Name)
	case field.Kind == board.KindTrap && !correct:
		p.Position -= field.Magnitude
		if p.Position < 0 {
			p.Position = 0
		}
		s.appendLog("%s answered wrong and falls back %d", p.Name, field.Magnitude)
	default:
		s.appendLog("%s answered correctly and escapes the trap", p.Name)
	}

	s.pending = nil
	s.clock.ClearAnswer()

	if p.Position == s.board.LastIndex() {
		s.winLocked(p)
	} else {
		s.advanceTurnLocked(time.Now())
	}
	return []network.Outbound{s.snapshotLocked()}
}

// Restart wipes the finished (or running) game back to its starting state,
// keeping the players and their turn order.
func (s *Session) Restart() []network.Outbound {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, p := range s.players {
		p.Position = 0
	}
	s.winnerID = ""
	s.pending = nil
	s.clock.ClearAll()
	s.log = nil
	s.currentTurn = 0
	s.turns = 0
	s.startedAt = time.Now()
	s.appendLog("game restarted")

	if len(s.players) > 0 && s.connectedCount() >= 2 && s.connected[s.players[0].ID] {
		s.clock.ArmTurn(time.Now().Add(s.settings.TurnTimeout))
	}
	return []network.Outbound{s.snapshotLocked()}
}

// Disconnect marks the player as gone without removing them. If they were the
// acting player the session pauses: both deadlines clear and the sweeper
// leaves it alone until someone reconnects. Returns nil if the player is not
// a connected member of this session.
func (s *Session) Disconnect(playerID string) []network.Outbound {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.connected[playerID] {
		return nil
	}
	delete(s.connected, playerID)

	p := s.playerByID(playerID)
	s.appendLog("%s disconnected", p.Name)

	if s.winnerID == "" && len(s.players) > 0 && s.actingPlayer().ID == playerID {
		s.clock.ClearAll()
		s.appendLog("game paused")
	}
	return []network.Outbound{s.snapshotLocked()}
}

// Sweep is the timeout entry point, called for every session on each sweeper
// tick. An expired answer deadline counts as a wrong answer (trap fields move
// the player back, boost fields do nothing); an expired turn deadline skips
// the turn. By the clock invariant at most one of the two can be armed.
func (s *Session) Sweep(now time.Time) []network.Outbound {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.winnerID != "" {
		return nil
	}

	switch {
	case s.clock.AnswerExpired(now):
		p := s.actingPlayer()
		field := s.board[p.Position]
		if field.Kind == board.KindTrap {
			p.Position -= field.Magnitude
			if p.Position < 0 {
				p.Position = 0
			}
			s.appendLog("%s ran out of time and falls back %d", p.Name, field.Magnitude)
		} else {
			s.appendLog("%s ran out of time, no boost", p.Name)
		}
		s.pending = nil
		s.clock.ClearAnswer()
		s.advanceTurnLocked(now)
		return []network.Outbound{s.snapshotLocked()}

	case s.clock.TurnExpired(now):
		p := s.actingPlayer()
		s.appendLog("%s took too long, turn skipped", p.Name)
		s.advanceTurnLocked(now)
		return []network.Outbound{s.snapshotLocked()}
	}
	return nil
}

// Snapshot returns the current full state of the session.
func (s *Session) Snapshot() models.SessionSnapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.buildSnapshot()
}

// ConnectedCount reports how many members currently hold a live connection.
func (s *Session) ConnectedCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.connectedCount()
}

// --- internals, caller must hold s.mu ---

func (s *Session) playerByID(id string) *Player {
	for _, p := range s.players {
		if p.ID == id {
			return p
		}
	}
	return nil
}

func (s *Session) questionByID(id string) *models.Question {
	for i := range s.questions {
		if s.questions[i].ID == id {
			return &s.questions[i]
		}
	}
	return nil
}

func (s *Session) actingPlayer() *Player {
	return s.players[s.currentTurn]
}

func (s *Session) connectedCount() int {
	return len(s.connected)
}

func (s *Session) appendLog(format string, args ...interface{}) {
	s.log = append(s.log, fmt.Sprintf(format, args...))
}

// advanceTurnLocked moves to the next player in joining order. The turn
// deadline is re-armed only if the new acting player is connected; otherwise
// the session stays paused with no deadline at all.
func (s *Session) advanceTurnLocked(now time.Time) {
	if len(s.players) == 0 {
		return
	}
	s.currentTurn = (s.currentTurn + 1) % len(s.players)
	if s.connected[s.actingPlayer().ID] && s.connectedCount() >= 2 {
		s.clock.ArmTurn(now.Add(s.settings.TurnTimeout))
	} else {
		s.clock.ClearTurn()
	}
}

func (s *Session) winLocked(p *Player) {
	s.winnerID = p.ID
	s.pending = nil
	s.clock.ClearAll()
	s.appendLog("%s wins!", p.Name)
	logger.Log.Infof("Session %s won by %s after %d turns", s.ID, p.ID, s.turns)

	if s.recordSink != nil {
		record := s.buildRecord()
		sink := s.recordSink
		go sink(record)
	}
}

func (s *Session) buildRecord() models.GameRecord {
	results := make([]models.PlayerResult, 0, len(s.players))
	for _, p := range s.players {
		outcome := "lose"
		if p.ID == s.winnerID {
			outcome = "win"
		}
		results = append(results, models.PlayerResult{
			PlayerID: p.ID,
			Name:     p.Name,
			Position: p.Position,
			Outcome:  outcome,
		})
	}
	return models.GameRecord{
		SessionID: s.ID,
		Players:   results,
		WinnerID:  s.winnerID,
		Turns:     s.turns,
		Duration:  int(time.Since(s.startedAt).Seconds()),
		CreatedAt: time.Now(),
	}
}

func (s *Session) buildSnapshot() models.SessionSnapshot {
	players := make([]models.PlayerState, 0, len(s.players))
	for _, p := range s.players {
		players = append(players, models.PlayerState{
			ID:        p.ID,
			Name:      p.Name,
			Position:  p.Position,
			Connected: s.connected[p.ID],
		})
	}
	log := make([]string, len(s.log))
	copy(log, s.log)

	return models.SessionSnapshot{
		SessionID:      s.ID,
		Players:        players,
		Board:          s.board,
		CurrentTurn:    s.currentTurn,
		Log:            log,
		WinnerID:       s.winnerID,
		TurnDeadline:   s.clock.TurnDeadline(),
		AnswerDeadline: s.clock.AnswerDeadline(),
	}
}

func (s *Session) snapshotLocked() network.Outbound {
	data, err := json.Marshal(s.buildSnapshot())
	if err != nil {
		logger.Log.Errorf("Error marshalling snapshot for session %s: %v", s.ID, err)
		return network.Outbound{MsgID: network.MsgTypeSnapshot}
	}
	return network.Outbound{MsgID: network.MsgTypeSnapshot, Data: data}
}

// promptLocked builds the private question payload for the pending player.
func (s *Session) promptLocked() (network.Outbound, bool) {
	if s.pending == nil {
		return network.Outbound{}, false
	}
	q := s.questionByID(s.pending.QuestionID)
	if q == nil {
		return network.Outbound{}, false
	}
	p := s.playerByID(s.pending.PlayerID)
	field := s.board[p.Position]

	prompt := models.QuestionPrompt{
		FieldKind:  field.Kind,
		Magnitude:  field.Magnitude,
		QuestionID: q.ID,
		Text:       q.Text,
		Options:    q.Options,
	}
	data, err := json.Marshal(prompt)
	if err != nil {
		logger.Log.Errorf("Error marshalling question prompt for session %s: %v", s.ID, err)
		return network.Outbound{}, false
	}
	return network.Outbound{MsgID: network.MsgTypeQuestion, Data: data, PlayerID: p.ID}, true
}
