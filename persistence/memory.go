// persistence/memory.go
package persistence

import (
	"sync"

	"github.com/Efromomr/quiz-board/models"
)

// Memory is an in-process Database for development and tests. It starts out
// empty; callers seed it explicitly (main seeds DefaultQuestions).
type Memory struct {
	mu        sync.RWMutex
	questions []models.Question
	records   []models.GameRecord
}

func NewMemory() *Memory {
	return &Memory{}
}

func (m *Memory) LoadQuestions() ([]models.Question, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if len(m.questions) == 0 {
		return nil, ErrNoQuestions
	}
	questions := make([]models.Question, len(m.questions))
	copy(questions, m.questions)
	return questions, nil
}

func (m *Memory) SeedQuestions(questions []models.Question) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.questions) > 0 {
		return nil
	}
	m.questions = append(m.questions, questions...)
	return nil
}

func (m *Memory) SaveGameRecord(record models.GameRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.records = append(m.records, record)
	return nil
}

func (m *Memory) RecentRecords(limit int) ([]models.GameRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if limit > len(m.records) {
		limit = len(m.records)
	}
	records := make([]models.GameRecord, 0, limit)
	for i := len(m.records) - 1; i >= 0 && len(records) < limit; i-- {
		records = append(records, m.records[i])
	}
	return records, nil
}

func (m *Memory) Close() error {
	return nil
}

// DefaultQuestions is the built-in question set used to seed an empty
// repository on first start.
var DefaultQuestions = []models.Question{
	{ID: "q1", Text: "What is the capital of France?", Options: []string{"Berlin", "Paris", "Madrid", "Rome"}, Correct: 1},
	{ID: "q2", Text: "Which planet is known as the Red Planet?", Options: []string{"Venus", "Jupiter", "Mars", "Saturn"}, Correct: 2},
	{ID: "q3", Text: "How many continents are there?", Options: []string{"5", "6", "7", "8"}, Correct: 2},
	{ID: "q4", Text: "What is the largest ocean?", Options: []string{"Atlantic", "Indian", "Arctic", "Pacific"}, Correct: 3},
	{ID: "q5", Text: "Which element has the symbol O?", Options: []string{"Gold", "Oxygen", "Osmium", "Oganesson"}, Correct: 1},
	{ID: "q6", Text: "In which year did the first moon landing take place?", Options: []string{"1965", "1969", "1972", "1958"}, Correct: 1},
	{ID: "q7", Text: "What is the longest river in the world?", Options: []string{"Amazon", "Nile", "Yangtze", "Mississippi"}, Correct: 1},
	{ID: "q8", Text: "How many sides does a hexagon have?", Options: []string{"5", "6", "7", "8"}, Correct: 1},
}
