// persistence/gorm_postgresql.go
package persistence

import (
	"fmt"
	"log"
	"os"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/Efromomr/quiz-board/models"
)

// GormPostgreSQL 使用GORM的PostgreSQL实现
type GormPostgreSQL struct {
	db *gorm.DB
}

// NewGormPostgreSQL 创建GORM PostgreSQL数据库连接
func NewGormPostgreSQL(host string, port int, user, password, dbname string) (*GormPostgreSQL, error) {
	dsn := fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=disable",
		host, port, user, password, dbname)

	// 配置GORM日志
	gormLogger := logger.New(
		log.New(os.Stdout, "\r\n", log.LstdFlags), // io writer
		logger.Config{
			SlowThreshold: time.Second,   // 慢SQL阈值
			LogLevel:      logger.Silent, // 日志级别
			Colorful:      false,         // 禁用彩色打印
		},
	)

	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger: gormLogger,
	})
	if err != nil {
		return nil, err
	}

	// 获取通用数据库对象 sql.DB
	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}

	// 设置连接池
	sqlDB.SetMaxIdleConns(10)
	sqlDB.SetMaxOpenConns(100)
	sqlDB.SetConnMaxLifetime(time.Hour)

	// 自动迁移表结构
	if err := db.AutoMigrate(&models.GormQuestion{}, &models.GormGameRecord{}); err != nil {
		return nil, err
	}

	return &GormPostgreSQL{db: db}, nil
}

// LoadQuestions 加载全部题目
func (p *GormPostgreSQL) LoadQuestions() ([]models.Question, error) {
	var rows []models.GormQuestion
	if err := p.db.Order("id").Find(&rows).Error; err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, ErrNoQuestions
	}

	questions := make([]models.Question, 0, len(rows))
	for _, row := range rows {
		questions = append(questions, models.Question{
			ID:      row.QuestionID,
			Text:    row.Text,
			Options: row.Options,
			Correct: row.Correct,
		})
	}
	return questions, nil
}

// SeedQuestions 题目表为空时写入初始题目
func (p *GormPostgreSQL) SeedQuestions(questions []models.Question) error {
	return p.db.Transaction(func(tx *gorm.DB) error {
		var count int64
		if err := tx.Model(&models.GormQuestion{}).Count(&count).Error; err != nil {
			return err
		}
		if count > 0 {
			return nil
		}

		for _, q := range questions {
			row := models.GormQuestion{
				QuestionID: q.ID,
				Text:       q.Text,
				Options:    q.Options,
				Correct:    q.Correct,
			}
			if err := tx.Create(&row).Error; err != nil {
				return err
			}
		}
		return nil
	})
}

// SaveGameRecord 保存游戏记录
func (p *GormPostgreSQL) SaveGameRecord(record models.GameRecord) error {
	row := models.GormGameRecord{
		SessionID: record.SessionID,
		Players:   record.Players,
		WinnerID:  record.WinnerID,
		Turns:     record.Turns,
		Duration:  record.Duration,
	}
	return p.db.Create(&row).Error
}

// RecentRecords 查询最近的游戏记录
func (p *GormPostgreSQL) RecentRecords(limit int) ([]models.GameRecord, error) {
	var rows []models.GormGameRecord
	if err := p.db.Order("created_at DESC").Limit(limit).Find(&rows).Error; err != nil {
		return nil, err
	}

	records := make([]models.GameRecord, 0, len(rows))
	for _, row := range rows {
		records = append(records, models.GameRecord{
			SessionID: row.SessionID,
			Players:   row.Players,
			WinnerID:  row.WinnerID,
			Turns:     row.Turns,
			Duration:  row.Duration,
			CreatedAt: row.CreatedAt,
		})
	}
	return records, nil
}

// Close 关闭数据库连接
func (p *GormPostgreSQL) Close() error {
	sqlDB, err := p.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
