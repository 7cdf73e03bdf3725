// Package logger holds the process-wide sugared zap logger shared by the
// HTTP/WebSocket server, the sweeper and the RPC surface. Per-game event
// history lives in the game snapshot instead; this logger is operational only.
package logger

import (
	"go.uber.org/zap"
)

var Log *zap.SugaredLogger

func Init() {
	logger, err := zap.NewProduction()
	if err != nil {
		panic("failed to initialize zap logger: " + err.Error())
	}
	Log = logger.Sugar()
}

// Sync flushes buffered entries. Called on shutdown.
func Sync() {
	if Log != nil {
		_ = Log.Sync()
	}
}
