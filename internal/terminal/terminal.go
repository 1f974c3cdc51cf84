// Package terminal decides whether colour output and interactive prompts
// can be used by the current process.
package terminal

import (
	"os"
	"strings"

	"golang.org/x/term"
)

// Info holds the resolved terminal state for the current process.
type Info struct {
	// StdinIsTerminal is true when stdin is connected to a TTY.
	StdinIsTerminal bool
	// StdoutIsTerminal is true when stdout is connected to a TTY.
	StdoutIsTerminal bool
	// ColorEnabled is true when ANSI colours should be emitted.
	ColorEnabled bool
	// PromptEnabled is true when the user may be asked for input.
	PromptEnabled bool
}

// Detect inspects the environment and returns a populated Info.
//
//	noColor: true when --no-color was passed (NO_COLOR is honoured too)
//	noInput: true when --no-input was passed
func Detect(noColor, noInput bool) Info {
	stdinTTY := term.IsTerminal(int(os.Stdin.Fd()))
	stdoutTTY := term.IsTerminal(int(os.Stdout.Fd()))

	// Honour the NO_COLOR convention (https://no-color.org/).
	envNoColor := os.Getenv("NO_COLOR") != ""

	return Info{
		StdinIsTerminal:  stdinTTY,
		StdoutIsTerminal: stdoutTTY,
		ColorEnabled:     stdoutTTY && !noColor && !envNoColor && !IsDumb(),
		PromptEnabled:    stdinTTY && !noInput && !IsCI(),
	}
}

// IsDumb returns true when TERM is unset or "dumb".
func IsDumb() bool {
	t := strings.ToLower(os.Getenv("TERM"))
	return t == "dumb" || t == ""
}

// IsCI returns true when a well-known CI environment variable is set.
func IsCI() bool {
	ciVars := []string{"CI", "GITHUB_ACTIONS", "JENKINS_URL", "GITLAB_CI", "CIRCLECI", "TRAVIS", "TF_BUILD"}
	for _, v := range ciVars {
		if os.Getenv(v) != "" {
			return true
		}
	}
	return false
}
