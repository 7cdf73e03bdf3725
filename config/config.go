package config

import (
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Database DatabaseConfig `mapstructure:"database"`
	Game     GameConfig     `mapstructure:"game"`
}

type ServerConfig struct {
	HTTPAddress    string `mapstructure:"http_address"`
	RPCAddress     string `mapstructure:"rpc_address"`
	MetricsAddress string `mapstructure:"metrics_address"`
}

type DatabaseConfig struct {
	// Driver selects the question repository backend: "gorm", "postgres" or "memory".
	Driver   string         `mapstructure:"driver"`
	Postgres PostgresConfig `mapstructure:"postgres"`
}

type PostgresConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	DBName   string `mapstructure:"dbname"`
}

type GameConfig struct {
	BoardLength   int           `mapstructure:"board_length"`
	TurnTimeout   time.Duration `mapstructure:"turn_timeout"`
	AnswerTimeout time.Duration `mapstructure:"answer_timeout"`
	SweepInterval time.Duration `mapstructure:"sweep_interval"`
}

func LoadConfig(path string) (config *Config, err error) {
	viper.AddConfigPath(path)
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")

	viper.SetDefault("database.driver", "gorm")
	viper.SetDefault("game.board_length", 40)
	viper.SetDefault("game.turn_timeout", 30*time.Second)
	viper.SetDefault("game.answer_timeout", 20*time.Second)
	viper.SetDefault("game.sweep_interval", time.Second)

	viper.AutomaticEnv()

	err = viper.ReadInConfig()
	if err != nil {
		return
	}

	err = viper.Unmarshal(&config)
	return
}
