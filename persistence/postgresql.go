// persistence/postgresql.go
package persistence

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	// PostgreSQL 驱动
	_ "github.com/lib/pq" // PostgreSQL 驱动

	"github.com/Efromomr/quiz-board/models"
)

// PostgreSQL 数据库实现
type PostgreSQL struct {
	db *sql.DB
}

// NewPostgreSQL 创建 PostgreSQL 数据库连接
func NewPostgreSQL(host string, port int, user, password, dbname string) (*PostgreSQL, error) {
	connStr := fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=disable",
		host, port, user, password, dbname)

	db, err := sql.Open("postgres", connStr)
	if err != nil {
		return nil, err
	}

	// 测试连接
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := db.PingContext(ctx); err != nil {
		return nil, err
	}

	// 设置连接池参数
	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(25)
	db.SetConnMaxLifetime(5 * time.Minute)

	// 初始化表结构
	if err := initTables(db); err != nil {
		return nil, err
	}

	return &PostgreSQL{db: db}, nil
}

// initTables 初始化数据库表结构
func initTables(db *sql.DB) error {
	// 创建题目表
	_, err := db.Exec(`
        CREATE TABLE IF NOT EXISTS questions (
            id SERIAL PRIMARY KEY,
            question_id VARCHAR(255) UNIQUE NOT NULL,
            text TEXT NOT NULL,
            options JSONB NOT NULL,
            correct_option INT NOT NULL,
            created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
        )
    `)
	if err != nil {
		return err
	}

	// 创建游戏记录表
	_, err = db.Exec(`
        CREATE TABLE IF NOT EXISTS game_records (
            id SERIAL PRIMARY KEY,
            session_id VARCHAR(255) NOT NULL,
            players JSONB NOT NULL,
            winner_id VARCHAR(255) NOT NULL,
            turns INT NOT NULL DEFAULT 0,
            duration INT NOT NULL DEFAULT 0,
            created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
        )
    `)
	if err != nil {
		return err
	}

	// 创建索引以提高查询性能
	_, err = db.Exec(`
        CREATE INDEX IF NOT EXISTS idx_questions_question_id ON questions(question_id);
        CREATE INDEX IF NOT EXISTS idx_game_records_session_id ON game_records(session_id);
        CREATE INDEX IF NOT EXISTS idx_game_records_created_at ON game_records(created_at);
    `)

	return err
}

// LoadQuestions 加载全部题目
func (p *PostgreSQL) LoadQuestions() ([]models.Question, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	rows, err := p.db.QueryContext(ctx,
		`SELECT question_id, text, options, correct_option FROM questions ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var questions []models.Question
	for rows.Next() {
		var q models.Question
		var options []byte
		if err := rows.Scan(&q.ID, &q.Text, &options, &q.Correct); err != nil {
			return nil, err
		}
		if err := json.Unmarshal(options, &q.Options); err != nil {
			return nil, err
		}
		questions = append(questions, q)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(questions) == 0 {
		return nil, ErrNoQuestions
	}
	return questions, nil
}

// SeedQuestions 题目表为空时写入初始题目
func (p *PostgreSQL) SeedQuestions(questions []models.Question) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	var count int
	if err := p.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM questions`).Scan(&count); err != nil {
		return err
	}
	if count > 0 {
		return nil
	}

	for _, q := range questions {
		options, err := json.Marshal(q.Options)
		if err != nil {
			return err
		}
		_, err = p.db.ExecContext(ctx, `
            INSERT INTO questions (question_id, text, options, correct_option)
            VALUES ($1, $2, $3, $4)
            ON CONFLICT (question_id) DO NOTHING
        `, q.ID, q.Text, options, q.Correct)
		if err != nil {
			return err
		}
	}
	return nil
}

// SaveGameRecord 保存游戏记录
func (p *PostgreSQL) SaveGameRecord(record models.GameRecord) error {
	players, err := json.Marshal(record.Players)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	query := `
        INSERT INTO game_records (session_id, players, winner_id, turns, duration)
        VALUES ($1, $2, $3, $4, $5)
    `
	_, err = p.db.ExecContext(ctx, query,
		record.SessionID, players, record.WinnerID, record.Turns, record.Duration)
	return err
}

// RecentRecords 查询最近的游戏记录
func (p *PostgreSQL) RecentRecords(limit int) ([]models.GameRecord, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	rows, err := p.db.QueryContext(ctx, `
        SELECT session_id, players, winner_id, turns, duration, created_at
        FROM game_records ORDER BY created_at DESC LIMIT $1
    `, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []models.GameRecord
	for rows.Next() {
		var r models.GameRecord
		var players []byte
		if err := rows.Scan(&r.SessionID, &players, &r.WinnerID, &r.Turns, &r.Duration, &r.CreatedAt); err != nil {
			return nil, err
		}
		if err := json.Unmarshal(players, &r.Players); err != nil {
			return nil, err
		}
		records = append(records, r)
	}
	return records, rows.Err()
}

// Close 关闭数据库连接
func (p *PostgreSQL) Close() error {
	return p.db.Close()
}
