// models/models.go
package models

import (
	"time"

	"github.com/Efromomr/quiz-board/board"
)

// Question 题目数据模型
type Question struct {
	ID      string   `json:"id"`
	Text    string   `json:"text"`
	Options []string `json:"options"`
	Correct int      `json:"correct_option"`
}

// QuestionPrompt is the private payload delivered to the acting player when
// they land on a special field. The correct option index is withheld.
type QuestionPrompt struct {
	FieldKind  board.Kind `json:"field_kind"`
	Magnitude  int        `json:"magnitude"`
	QuestionID string     `json:"question_id"`
	Text       string     `json:"text"`
	Options    []string   `json:"options"`
}

// PlayerState 快照中的玩家信息
type PlayerState struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Position  int    `json:"position"`
	Connected bool   `json:"connected"`
}

// SessionSnapshot is the full game state broadcast to every member after each
// transition. Clients treat the latest snapshot as absolute truth.
type SessionSnapshot struct {
	SessionID      string        `json:"session_id"`
	Players        []PlayerState `json:"players"`
	Board          board.Board   `json:"board"`
	CurrentTurn    int           `json:"current_turn"`
	Log            []string      `json:"log"`
	WinnerID       string        `json:"winner_id,omitempty"`
	TurnDeadline   *time.Time    `json:"turn_deadline,omitempty"`
	AnswerDeadline *time.Time    `json:"answer_deadline,omitempty"`
}

// PlayerResult 游戏记录中的玩家信息
type PlayerResult struct {
	PlayerID string `json:"player_id"`
	Name     string `json:"name"`
	Position int    `json:"position"`
	Outcome  string `json:"outcome"` // win/lose
}

// GameRecord 一局游戏的持久化记录
type GameRecord struct {
	SessionID string         `json:"session_id"`
	Players   []PlayerResult `json:"players"`
	WinnerID  string         `json:"winner_id"`
	Turns     int            `json:"turns"`
	Duration  int            `json:"duration"` // 游戏时长(秒)
	CreatedAt time.Time      `json:"created_at"`
}
