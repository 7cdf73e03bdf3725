// persistence/interface.go
package persistence

import (
	"fmt"

	"github.com/Efromomr/quiz-board/models"
)

// Database 数据库接口
type Database interface {
	// LoadQuestions returns the full question collection. Called once per
	// session creation; the caller copies the slice into the session.
	LoadQuestions() ([]models.Question, error)
	// SeedQuestions inserts the given questions if the store is still empty.
	SeedQuestions(questions []models.Question) error
	SaveGameRecord(record models.GameRecord) error
	RecentRecords(limit int) ([]models.GameRecord, error)
	Close() error
}

// 错误定义
var (
	ErrRecordNotFound = fmt.Errorf("record not found")
	ErrNoQuestions    = fmt.Errorf("question repository is empty")
)
