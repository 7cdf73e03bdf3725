// board/board.go
package board

import (
	"errors"
)

// Kind 棋盘格子类型
type Kind string

const (
	KindNormal Kind = "NORMAL"
	KindBoost  Kind = "BOOST"
	KindTrap   Kind = "TRAP"
)

const (
	// BoostMagnitude is how far a correct answer on a boost field moves a player forward.
	BoostMagnitude = 3
	// TrapMagnitude is how far a wrong answer on a trap field moves a player back.
	TrapMagnitude = 2

	boostStep = 7
	trapStep  = 5
)

// ErrBoardTooShort is returned when a board of fewer than two fields is requested.
var ErrBoardTooShort = errors.New("board length must be at least 2")

// Field 棋盘上的一个格子
type Field struct {
	Index     int  `json:"index"`
	Kind      Kind `json:"kind"`
	Magnitude int  `json:"magnitude,omitempty"`
}

// Board is an immutable ordered sequence of fields.
type Board []Field

// Generate builds a board of the given length. The first and last fields are
// always normal (start and finish). Every other index divisible by 7 is a
// boost field; the divisible-by-7 check runs before the divisible-by-5 one,
// so index 35 is a boost, not a trap.
func Generate(length int) (Board, error) {
	if length < 2 {
		return nil, ErrBoardTooShort
	}

	fields := make(Board, length)
	for i := 0; i < length; i++ {
		field := Field{Index: i, Kind: KindNormal}
		if i != 0 && i != length-1 {
			switch {
			case i%boostStep == 0:
				field.Kind = KindBoost
				field.Magnitude = BoostMagnitude
			case i%trapStep == 0:
				field.Kind = KindTrap
				field.Magnitude = TrapMagnitude
			}
		}
		fields[i] = field
	}
	return fields, nil
}

// LastIndex 终点格子的下标
func (b Board) LastIndex() int {
	return len(b) - 1
}
