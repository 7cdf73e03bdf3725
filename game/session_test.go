package game

import (
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/Efromomr/quiz-board/logger"
	"github.com/Efromomr/quiz-board/models"
	"github.com/Efromomr/quiz-board/network"
)

func init() {
	logger.Init()
}

var testQuestions = []models.Question{
	{ID: "q1", Text: "2+2?", Options: []string{"3", "4"}, Correct: 1},
}

// newTestSession creates a 40-field session with the given players joined
// and connected, and a fixed die.
func newTestSession(t *testing.T, playerCount int) *Session {
	t.Helper()
	s, err := NewSession("TEST42", testQuestions, Settings{BoardLength: 40})
	if err != nil {
		t.Fatalf("NewSession failed: %v", err)
	}
	for i := 0; i < playerCount; i++ {
		s.Join(fmt.Sprintf("p%d", i), fmt.Sprintf("Player %d", i))
	}
	return s
}

func hasLogEntry(s *Session, substr string) bool {
	for _, entry := range s.log {
		if strings.Contains(entry, substr) {
			return true
		}
	}
	return false
}

func TestNewSession_NoQuestions(t *testing.T) {
	if _, err := NewSession("EMPTY1", nil, Settings{}); err == nil {
		t.Fatal("NewSession should fail with an empty question set")
	}
}

func TestJoin_Idempotent(t *testing.T) {
	s := newTestSession(t, 0)

	s.Join("p0", "Alice")
	s.Join("p0", "Alice")
	if len(s.players) != 1 {
		t.Fatalf("Expected 1 player after duplicate join, got %d", len(s.players))
	}

	for i := 1; i < 4; i++ {
		s.Join(fmt.Sprintf("p%d", i), "x")
	}
	if len(s.players) != 4 {
		t.Fatalf("Expected 4 players after 4 distinct joins, got %d", len(s.players))
	}
}

func TestJoin_ArmsTurnDeadlineAtTwoPlayers(t *testing.T) {
	s := newTestSession(t, 1)
	if s.clock.TurnArmed() {
		t.Fatal("Turn deadline should not be armed with a single player")
	}

	s.Join("p1", "Bob")
	if !s.clock.TurnArmed() {
		t.Fatal("Turn deadline should be armed once two players are connected")
	}
	if s.clock.AnswerArmed() {
		t.Fatal("Answer deadline must not be armed alongside the turn deadline")
	}
}

func TestJoin_RejoinKeepsPositionAndOrder(t *testing.T) {
	s := newTestSession(t, 2)
	s.players[1].Position = 12

	s.Disconnect("p1")
	s.Join("p1", "Bob again")

	if s.players[1].ID != "p1" || s.players[1].Position != 12 {
		t.Errorf("Rejoin must not reset position or reorder: got %+v", s.players[1])
	}
	if s.players[1].Name != "Bob again" {
		t.Errorf("Rejoin should update the display name, got %q", s.players[1].Name)
	}
}

func TestJoin_QuorumRearmsOpenAnswerDeadline(t *testing.T) {
	// An open question survives both players dropping. When the owner rejoins
	// first and a second player restores the quorum, that second join must
	// re-arm the answer deadline or the session could never time out.
	s := newTestSession(t, 2)
	s.players[0].Position = 6
	s.roll = func() int { return 1 }
	s.Roll("p0")

	s.Disconnect("p1")
	s.Disconnect("p0")
	if s.clock.AnswerArmed() {
		t.Fatal("Deadlines must be cleared while fewer than two players are connected")
	}

	s.Join("p0", "Player 0")
	if s.clock.AnswerArmed() {
		t.Fatal("A single connected player must not arm a deadline")
	}

	events := s.Join("p1", "Player 1")
	if !s.clock.AnswerArmed() {
		t.Fatal("Restoring the quorum with an open question must re-arm the answer deadline")
	}
	for _, ev := range events {
		if ev.MsgID == network.MsgTypeQuestion {
			t.Error("The prompt must not be delivered to a player other than its owner")
		}
	}

	// The re-armed deadline keeps the session sweepable.
	if events := s.Sweep(time.Now().Add(DefaultAnswerTimeout + time.Second)); len(events) == 0 {
		t.Fatal("The sweep must force the re-armed answer deadline")
	}
	if s.pending != nil || s.currentTurn != 1 {
		t.Errorf("Timeout should resolve the question and advance the turn, got turn %d", s.currentTurn)
	}
}

func TestJoin_OwnerRejoinGetsPromptAgain(t *testing.T) {
	s := newTestSession(t, 2)
	s.players[0].Position = 6
	s.roll = func() int { return 1 }
	s.Roll("p0")

	s.Disconnect("p0")
	events := s.Join("p0", "Player 0")

	if !s.clock.AnswerArmed() {
		t.Fatal("The owner's rejoin must re-arm the answer deadline")
	}
	if len(events) != 2 || events[1].MsgID != network.MsgTypeQuestion || events[1].PlayerID != "p0" {
		t.Fatalf("Expected snapshot + private question for p0, got %+v", events)
	}
}

func TestRoll_NormalFieldAdvancesTurn(t *testing.T) {
	s := newTestSession(t, 3)
	s.roll = func() int { return 1 } // index 1 is a normal field

	events := s.Roll("p0")
	if len(events) != 1 {
		t.Fatalf("Expected a single snapshot broadcast, got %d events", len(events))
	}
	if s.currentTurn != 1 {
		t.Errorf("Expected turn to advance to 1, got %d", s.currentTurn)
	}
	if s.pending != nil {
		t.Error("No pending answer should exist after landing on a normal field")
	}
	if !s.clock.TurnArmed() || s.clock.AnswerArmed() {
		t.Error("Turn deadline should be armed for the next player, answer deadline clear")
	}
}

func TestRoll_OutOfTurnIsNoOp(t *testing.T) {
	s := newTestSession(t, 2)
	s.roll = func() int { return 1 }

	if events := s.Roll("p1"); events != nil {
		t.Fatal("Out-of-turn roll must be a silent no-op")
	}
	if s.players[1].Position != 0 || s.currentTurn != 0 {
		t.Error("Out-of-turn roll must not change state")
	}
}

func TestRoll_DisconnectedActorIsNoOp(t *testing.T) {
	s := newTestSession(t, 2)
	s.roll = func() int { return 1 }
	s.Disconnect("p0")

	if events := s.Roll("p0"); events != nil {
		t.Fatal("A disconnected player must not be able to roll")
	}
}

func TestRoll_ClampAndWin(t *testing.T) {
	// Scenario: board length 40, player at 36 rolls a 5, clamps to 39 and wins.
	s := newTestSession(t, 2)
	s.players[0].Position = 36
	s.roll = func() int { return 5 }

	s.Roll("p0")

	if s.players[0].Position != 39 {
		t.Errorf("Expected clamp to 39, got %d", s.players[0].Position)
	}
	if s.winnerID != "p0" {
		t.Errorf("Expected winner p0, got %q", s.winnerID)
	}
	if s.clock.TurnArmed() || s.clock.AnswerArmed() {
		t.Error("All deadlines must be cleared on win")
	}
}

func TestRoll_BoostFieldOpensQuestion(t *testing.T) {
	// Scenario: player at 6 rolls a 1, lands on index 7 (boost, magnitude 3).
	s := newTestSession(t, 2)
	s.players[0].Position = 6
	s.roll = func() int { return 1 }

	events := s.Roll("p0")

	if s.pending == nil || s.pending.PlayerID != "p0" || s.pending.QuestionID != "q1" {
		t.Fatalf("Expected pending answer for p0/q1, got %+v", s.pending)
	}
	if s.clock.TurnArmed() {
		t.Error("Turn deadline must be cleared while a question is open")
	}
	deadline := s.clock.AnswerDeadline()
	if deadline == nil {
		t.Fatal("Answer deadline should be armed")
	}
	remaining := time.Until(*deadline)
	if remaining < 19*time.Second || remaining > 21*time.Second {
		t.Errorf("Answer deadline should be ~20s out, got %v", remaining)
	}

	// The question goes to the acting player only, after the broadcast.
	if len(events) != 2 {
		t.Fatalf("Expected snapshot + private question, got %d events", len(events))
	}
	if events[0].MsgID != network.MsgTypeSnapshot || events[0].PlayerID != "" {
		t.Errorf("First event should be a broadcast snapshot, got %+v", events[0])
	}
	if events[1].MsgID != network.MsgTypeQuestion || events[1].PlayerID != "p0" {
		t.Errorf("Second event should be a private question for p0, got %+v", events[1])
	}
	if strings.Contains(string(events[1].Data), "correct_option") {
		t.Error("The correct option index must be withheld from the prompt")
	}
}

func TestAnswer_BoostCorrectMovesForward(t *testing.T) {
	// Scenario: pending boost answer, correct option submitted.
	s := newTestSession(t, 2)
	s.players[0].Position = 6
	s.roll = func() int { return 1 }
	s.Roll("p0")

	s.Answer("p0", "q1", 1)

	if s.players[0].Position != 10 {
		t.Errorf("Expected position 10 after boost, got %d", s.players[0].Position)
	}
	if s.pending != nil {
		t.Error("Pending answer should be cleared")
	}
	if s.currentTurn != 1 {
		t.Errorf("Expected turn to advance, got %d", s.currentTurn)
	}
	if !s.clock.TurnArmed() || s.clock.AnswerArmed() {
		t.Error("Turn deadline should be re-armed, answer deadline clear")
	}
}

func TestAnswer_Policies(t *testing.T) {
	cases := []struct {
		name     string
		position int // landed special field after the roll
		option   int
		want     int
	}{
		{"boost correct moves forward", 7, 1, 10},
		{"boost wrong stays", 7, 0, 7},
		{"trap wrong moves back", 10, 0, 8},
		{"trap correct stays", 10, 1, 10},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			s := newTestSession(t, 2)
			s.players[0].Position = tc.position - 1
			s.roll = func() int { return 1 }
			s.Roll("p0")

			s.Answer("p0", "q1", tc.option)

			if s.players[0].Position != tc.want {
				t.Errorf("Expected position %d, got %d", tc.want, s.players[0].Position)
			}
			if s.pending != nil || s.clock.AnswerArmed() {
				t.Error("Pending answer and deadline must clear regardless of outcome")
			}
		})
	}
}

func TestAnswer_TrapFloorsAtZero(t *testing.T) {
	s := newTestSession(t, 2)
	s.players[0].Position = 4
	s.roll = func() int { return 1 } // index 5 is a trap
	s.Roll("p0")

	s.Answer("p0", "q1", 0)

	if s.players[0].Position != 3 {
		t.Errorf("Expected position 3, got %d", s.players[0].Position)
	}
}

func TestAnswer_WrongQuestionIDIsNoOp(t *testing.T) {
	s := newTestSession(t, 2)
	s.players[0].Position = 6
	s.roll = func() int { return 1 }
	s.Roll("p0")

	if events := s.Answer("p0", "stale", 1); events != nil {
		t.Fatal("Answering with a stale question id must be a no-op")
	}
	if s.pending == nil {
		t.Error("Pending answer must survive a mismatched answer attempt")
	}
}

func TestAnswer_OtherPlayerIsNoOp(t *testing.T) {
	s := newTestSession(t, 2)
	s.players[0].Position = 6
	s.roll = func() int { return 1 }
	s.Roll("p0")

	if events := s.Answer("p1", "q1", 1); events != nil {
		t.Fatal("Only the pending player may answer")
	}
}

func TestWin_Terminality(t *testing.T) {
	s := newTestSession(t, 2)
	s.players[0].Position = 36
	s.roll = func() int { return 5 }
	s.Roll("p0")

	if events := s.Roll("p1"); events != nil {
		t.Error("Rolls after a win must be no-ops")
	}
	if events := s.Answer("p1", "q1", 1); events != nil {
		t.Error("Answers after a win must be no-ops")
	}
	if s.winnerID != "p0" {
		t.Errorf("Winner must stay %q until restart, got %q", "p0", s.winnerID)
	}
}

func TestSweep_AnswerTimeoutOnTrap(t *testing.T) {
	// Scenario: answer deadline elapses with a pending trap (magnitude 2) at
	// position 10; the sweep moves the player back to 8 and advances the turn.
	s := newTestSession(t, 2)
	s.players[0].Position = 9
	s.roll = func() int { return 1 }
	s.Roll("p0")

	now := time.Now().Add(DefaultAnswerTimeout + time.Second)
	events := s.Sweep(now)

	if len(events) != 1 {
		t.Fatalf("Expected a snapshot broadcast from the sweep, got %d events", len(events))
	}
	if s.players[0].Position != 8 {
		t.Errorf("Expected position 8 after trap timeout, got %d", s.players[0].Position)
	}
	if s.pending != nil || s.clock.AnswerArmed() {
		t.Error("Pending answer and deadline must clear on timeout")
	}
	if s.currentTurn != 1 {
		t.Errorf("Expected turn to advance, got %d", s.currentTurn)
	}
	if !hasLogEntry(s, "ran out of time") {
		t.Error("Timeout should be logged")
	}
}

func TestSweep_AnswerTimeoutOnBoostDoesNotMove(t *testing.T) {
	s := newTestSession(t, 2)
	s.players[0].Position = 6
	s.roll = func() int { return 1 }
	s.Roll("p0")

	s.Sweep(time.Now().Add(DefaultAnswerTimeout + time.Second))

	if s.players[0].Position != 7 {
		t.Errorf("Boost timeout must not move the player, got %d", s.players[0].Position)
	}
	if s.currentTurn != 1 {
		t.Errorf("Expected turn to advance, got %d", s.currentTurn)
	}
}

func TestSweep_TurnTimeoutSkips(t *testing.T) {
	s := newTestSession(t, 3)

	events := s.Sweep(time.Now().Add(DefaultTurnTimeout + time.Second))

	if len(events) != 1 {
		t.Fatalf("Expected a snapshot broadcast, got %d events", len(events))
	}
	if s.currentTurn != 1 {
		t.Errorf("Expected turn skip to player 1, got %d", s.currentTurn)
	}
	if !s.clock.TurnArmed() {
		t.Error("Turn deadline should be re-armed for the next connected player")
	}
	if !hasLogEntry(s, "took too long") {
		t.Error("Skip should be logged")
	}
}

func TestSweep_PausesWhenNextPlayerDisconnected(t *testing.T) {
	s := newTestSession(t, 3)
	s.Disconnect("p1")

	s.Sweep(time.Now().Add(DefaultTurnTimeout + time.Second))

	if s.currentTurn != 1 {
		t.Errorf("Turn should still advance to the disconnected player, got %d", s.currentTurn)
	}
	if s.clock.TurnArmed() || s.clock.AnswerArmed() {
		t.Error("No deadline may be armed while the acting player is disconnected")
	}

	// The paused session must not advance on further sweeps.
	if events := s.Sweep(time.Now().Add(10 * DefaultTurnTimeout)); events != nil {
		t.Error("A paused session must be left alone by the sweeper")
	}
}

func TestSweep_NoDeadlinesIsNoOp(t *testing.T) {
	s := newTestSession(t, 1)
	if events := s.Sweep(time.Now().Add(time.Hour)); events != nil {
		t.Fatal("Sweep must not touch a session with no armed deadline")
	}
}

func TestDisconnect_ActingPlayerPausesSession(t *testing.T) {
	// Scenario: the acting player disconnects mid-turn.
	s := newTestSession(t, 2)

	s.Disconnect("p0")

	if s.clock.TurnArmed() || s.clock.AnswerArmed() {
		t.Error("Deadlines must clear when the acting player disconnects")
	}
	if !hasLogEntry(s, "paused") {
		t.Error("The pause should be logged")
	}
	if len(s.players) != 2 {
		t.Error("Disconnect must not remove the player from the session")
	}
}

func TestDisconnect_UnknownPlayerIsNoOp(t *testing.T) {
	s := newTestSession(t, 2)
	if events := s.Disconnect("ghost"); events != nil {
		t.Fatal("Disconnecting an unknown player must be a no-op")
	}
}

func TestRestart_ResetsFinishedGame(t *testing.T) {
	// Scenario: restart on a finished 2-player game.
	s := newTestSession(t, 2)
	s.players[0].Position = 36
	s.roll = func() int { return 5 }
	s.Roll("p0")

	s.Restart()

	if s.players[0].Position != 0 || s.players[1].Position != 0 {
		t.Error("Restart must reset every position to 0")
	}
	if s.winnerID != "" {
		t.Error("Restart must clear the winner")
	}
	if s.currentTurn != 0 {
		t.Errorf("Restart must reset the turn to player 0, got %d", s.currentTurn)
	}
	if !s.clock.TurnArmed() {
		t.Error("Restart must arm a turn deadline when two players are connected")
	}
	if hasLogEntry(s, "wins") {
		t.Error("Restart must clear the event log")
	}
}

func TestRestart_NoDeadlineWithOnePlayer(t *testing.T) {
	s := newTestSession(t, 2)
	s.Disconnect("p1")

	s.Restart()

	if s.clock.TurnArmed() {
		t.Error("Restart must not arm a deadline with fewer than two connected players")
	}
}

func TestDeadlines_MutuallyExclusive(t *testing.T) {
	s := newTestSession(t, 2)
	s.roll = func() int { return 1 }

	check := func(step string) {
		if s.clock.TurnArmed() && s.clock.AnswerArmed() {
			t.Fatalf("Both deadlines armed after %s", step)
		}
	}

	check("join")
	s.Roll("p0") // normal field
	check("normal roll")
	s.players[1].Position = 6
	s.Roll("p1") // boost field
	check("boost roll")
	s.Answer("p1", "q1", 1)
	check("answer")
	s.Restart()
	check("restart")
}

func TestWin_RecordSinkReceivesResult(t *testing.T) {
	s := newTestSession(t, 2)
	records := make(chan models.GameRecord, 1)
	s.SetRecordSink(func(r models.GameRecord) { records <- r })

	s.players[0].Position = 36
	s.roll = func() int { return 5 }
	s.Roll("p0")

	select {
	case r := <-records:
		if r.WinnerID != "p0" || r.SessionID != "TEST42" {
			t.Errorf("Unexpected record %+v", r)
		}
		if len(r.Players) != 2 {
			t.Errorf("Record should list both players, got %d", len(r.Players))
		}
	case <-time.After(time.Second):
		t.Fatal("Record sink was not invoked on win")
	}
}

func TestSnapshot_ReflectsStateAfterTransition(t *testing.T) {
	s := newTestSession(t, 2)
	s.roll = func() int { return 1 }
	s.Roll("p0")

	snap := s.Snapshot()
	if snap.SessionID != "TEST42" || snap.CurrentTurn != 1 {
		t.Errorf("Unexpected snapshot %+v", snap)
	}
	if len(snap.Board) != 40 || len(snap.Players) != 2 {
		t.Error("Snapshot must carry the full board and player list")
	}
	if snap.TurnDeadline == nil || snap.AnswerDeadline != nil {
		t.Error("Snapshot deadlines should mirror the clock")
	}
}
