package services

import (
	"github.com/Efromomr/quiz-board/logger"
	"github.com/Efromomr/quiz-board/models"
	"github.com/Efromomr/quiz-board/persistence"
)

// RecordService persists finished games. A failed write is logged and
// dropped; the session itself never depends on the database being up.
type RecordService struct {
	db persistence.Database
}

func NewRecordService(db persistence.Database) *RecordService {
	return &RecordService{db: db}
}

// Record saves the result of a finished game.
func (s *RecordService) Record(record models.GameRecord) {
	if err := s.db.SaveGameRecord(record); err != nil {
		logger.Log.Errorf("Failed to save game record for session %s: %v", record.SessionID, err)
		return
	}
	logger.Log.Infof("Saved game record for session %s, winner %s", record.SessionID, record.WinnerID)
}

// Recent returns the most recently finished games.
func (s *RecordService) Recent(limit int) ([]models.GameRecord, error) {
	return s.db.RecentRecords(limit)
}
