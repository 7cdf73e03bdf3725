package broadcast

import (
	"net"
	"testing"
	"time"

	"github.com/Efromomr/quiz-board/network"
	"github.com/Efromomr/quiz-board/session"
)

// MockConnection records every packet sent through it.
type MockConnection struct {
	sent []uint16
}

func (m *MockConnection) Send(msgID uint16, data []byte) error {
	m.sent = append(m.sent, msgID)
	return nil
}
func (m *MockConnection) Close() error                         { return nil }
func (m *MockConnection) RemoteAddr() net.Addr                 { return &net.TCPAddr{} }
func (m *MockConnection) SetHeartbeat(interval time.Duration)  {}
func (m *MockConnection) ReadPacket() (*network.Packet, error) { return nil, nil }

func setup() (*SessionBroadcaster, *MockConnection, *MockConnection, *MockConnection) {
	manager := session.NewManager()

	aliceConn := &MockConnection{}
	alice := session.NewSession("conn-alice", aliceConn)
	alice.Bind("alice", "GAME01")
	manager.Add(alice)

	bobConn := &MockConnection{}
	bob := session.NewSession("conn-bob", bobConn)
	bob.Bind("bob", "GAME01")
	manager.Add(bob)

	otherConn := &MockConnection{}
	other := session.NewSession("conn-other", otherConn)
	other.Bind("carol", "GAME02")
	manager.Add(other)

	return NewSessionBroadcaster(manager), aliceConn, bobConn, otherConn
}

func TestBroadcastToGame(t *testing.T) {
	b, aliceConn, bobConn, otherConn := setup()

	if err := b.BroadcastToGame("GAME01", network.MsgTypeSnapshot, []byte(`{}`)); err != nil {
		t.Fatalf("BroadcastToGame failed: %v", err)
	}

	if len(aliceConn.sent) != 1 || len(bobConn.sent) != 1 {
		t.Error("Every member of the game should receive the broadcast")
	}
	if len(otherConn.sent) != 0 {
		t.Error("Members of other games must not receive the broadcast")
	}
}

func TestBroadcastToGame_NoConnections(t *testing.T) {
	b, _, _, _ := setup()
	if err := b.BroadcastToGame("EMPTY9", network.MsgTypeSnapshot, nil); err != ErrNoConnections {
		t.Fatalf("Expected ErrNoConnections, got %v", err)
	}
}

func TestSendToPlayer(t *testing.T) {
	b, aliceConn, bobConn, _ := setup()

	if err := b.SendToPlayer("GAME01", "alice", network.MsgTypeQuestion, []byte(`{}`)); err != nil {
		t.Fatalf("SendToPlayer failed: %v", err)
	}

	if len(aliceConn.sent) != 1 {
		t.Error("The targeted player should receive the message")
	}
	if len(bobConn.sent) != 0 {
		t.Error("Other players must not receive a private message")
	}
}

func TestDispatch_RoutesByTarget(t *testing.T) {
	b, aliceConn, bobConn, _ := setup()

	b.Dispatch("GAME01", []network.Outbound{
		{MsgID: network.MsgTypeSnapshot, Data: []byte(`{}`)},
		{MsgID: network.MsgTypeQuestion, Data: []byte(`{}`), PlayerID: "alice"},
	})

	if len(aliceConn.sent) != 2 {
		t.Errorf("Alice should get snapshot and question, got %d messages", len(aliceConn.sent))
	}
	if len(bobConn.sent) != 1 || bobConn.sent[0] != network.MsgTypeSnapshot {
		t.Errorf("Bob should only get the snapshot, got %v", bobConn.sent)
	}
}
