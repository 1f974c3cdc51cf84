package types

import (
	"github.com/pterm/pterm"
	"github.com/rs/zerolog"
)

// ErrorHook is a zerolog hook that mirrors error and fatal messages to the
// console through pterm, so they stay visible when verbose logging is off.
type ErrorHook struct{}

// Run implements the zerolog.Hook interface
func (h ErrorHook) Run(e *zerolog.Event, level zerolog.Level, msg string) {
	switch level {
	case zerolog.ErrorLevel, zerolog.FatalLevel:
		if msg != "" {
			pterm.Error.Println(msg)
		}
	}
}
