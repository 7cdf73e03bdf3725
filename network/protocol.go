package network

const (
	MsgTypeHeartbeat = 1
	MsgTypeJoin      = 101
	MsgTypeRoll      = 201
	MsgTypeAnswer    = 202
	MsgTypeRestart   = 203
	MsgTypeSnapshot  = 301
	MsgTypeQuestion  = 302
)

// Outbound is a message produced by a game transition. The dispatcher decides
// delivery: an empty PlayerID means broadcast to every member of the session,
// otherwise the message goes only to that player's connections.
type Outbound struct {
	MsgID    uint16
	Data     []byte
	PlayerID string
}
