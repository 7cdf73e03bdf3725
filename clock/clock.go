// clock/clock.go
package clock

import (
	"time"
)

// TurnClock tracks the two deadlines a game session can wait on: the acting
// player's roll and a pending question answer. Deadlines are absolute
// wall-clock timestamps so clients can compute remaining time themselves.
//
// At most one deadline is armed at a time; arming one clears the other. The
// clock has no lock of its own, it is owned by a session and guarded by the
// session's mutex.
type TurnClock struct {
	turn   *time.Time
	answer *time.Time
}

// ArmTurn arms the roll deadline and clears any answer deadline.
func (c *TurnClock) ArmTurn(deadline time.Time) {
	d := deadline
	c.turn = &d
	c.answer = nil
}

// ArmAnswer arms the answer deadline and clears any turn deadline.
func (c *TurnClock) ArmAnswer(deadline time.Time) {
	d := deadline
	c.answer = &d
	c.turn = nil
}

func (c *TurnClock) ClearTurn() {
	c.turn = nil
}

func (c *TurnClock) ClearAnswer() {
	c.answer = nil
}

func (c *TurnClock) ClearAll() {
	c.turn = nil
	c.answer = nil
}

func (c *TurnClock) TurnArmed() bool {
	return c.turn != nil
}

func (c *TurnClock) AnswerArmed() bool {
	return c.answer != nil
}

// TurnExpired reports whether the roll deadline is armed and has passed.
func (c *TurnClock) TurnExpired(now time.Time) bool {
	return c.turn != nil && now.After(*c.turn)
}

// AnswerExpired reports whether the answer deadline is armed and has passed.
func (c *TurnClock) AnswerExpired(now time.Time) bool {
	return c.answer != nil && now.After(*c.answer)
}

// TurnDeadline returns a copy of the armed roll deadline, or nil.
func (c *TurnClock) TurnDeadline() *time.Time {
	if c.turn == nil {
		return nil
	}
	d := *c.turn
	return &d
}

// AnswerDeadline returns a copy of the armed answer deadline, or nil.
func (c *TurnClock) AnswerDeadline() *time.Time {
	if c.answer == nil {
		return nil
	}
	d := *c.answer
	return &d
}
