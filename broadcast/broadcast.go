// broadcast/broadcast.go
package broadcast

import (
	"errors"

	"github.com/Efromomr/quiz-board/network"
	"github.com/Efromomr/quiz-board/session"
)

var (
	ErrNoConnections = errors.New("no connections for game")
)

// 广播接口
type Broadcaster interface {
	BroadcastToGame(gameID string, msgID uint16, data []byte) error
	SendToPlayer(gameID, playerID string, msgID uint16, data []byte) error
	Dispatch(gameID string, events []network.Outbound)
}

// SessionBroadcaster delivers transition output over the live connection
// sessions bound to a game.
type SessionBroadcaster struct {
	sessionManager *session.Manager
}

func NewSessionBroadcaster(sessionManager *session.Manager) *SessionBroadcaster {
	return &SessionBroadcaster{sessionManager: sessionManager}
}

func (b *SessionBroadcaster) BroadcastToGame(gameID string, msgID uint16, data []byte) error {
	sessions := b.sessionManager.GetByGameID(gameID)
	if len(sessions) == 0 {
		return ErrNoConnections
	}

	for _, s := range sessions {
		if err := s.Send(msgID, data); err != nil {
			// 发送失败的连接由其读循环负责清理
			continue
		}
	}
	return nil
}

func (b *SessionBroadcaster) SendToPlayer(gameID, playerID string, msgID uint16, data []byte) error {
	for _, s := range b.sessionManager.GetByGameID(gameID) {
		if p, _ := s.Identity(); p != playerID {
			continue
		}
		if err := s.Send(msgID, data); err != nil {
			continue
		}
	}
	return nil
}

// Dispatch routes a transition's outbound messages: events without a player
// id go to every member of the game, the rest only to that player.
func (b *SessionBroadcaster) Dispatch(gameID string, events []network.Outbound) {
	for _, ev := range events {
		if ev.PlayerID == "" {
			b.BroadcastToGame(gameID, ev.MsgID, ev.Data)
		} else {
			b.SendToPlayer(gameID, ev.PlayerID, ev.MsgID, ev.Data)
		}
	}
}
