package client

import (
	"github.com/hashicorp/go-retryablehttp"
	"github.com/rs/zerolog"
)

// newLeveledLogger returns a retryablehttp.LeveledLogger backed by zerolog.
// Every level is demoted by one step so per-attempt failures do not reach
// the console error hook; the caller reports the final outcome.
func newLeveledLogger(logger zerolog.Logger) retryablehttp.LeveledLogger {
	return &leveledLogger{log: logger}
}

type leveledLogger struct {
	log zerolog.Logger
}

func (l *leveledLogger) Error(msg string, keysAndValues ...interface{}) {
	l.log.Warn().Fields(keysAndValues).Msg(msg)
}

func (l *leveledLogger) Info(msg string, keysAndValues ...interface{}) {
	l.log.Debug().Fields(keysAndValues).Msg(msg)
}

func (l *leveledLogger) Debug(msg string, keysAndValues ...interface{}) {
	l.log.Trace().Fields(keysAndValues).Msg(msg)
}

func (l *leveledLogger) Warn(msg string, keysAndValues ...interface{}) {
	l.log.Debug().Fields(keysAndValues).Msg(msg)
}
