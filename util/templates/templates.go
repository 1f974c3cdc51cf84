// Package templates normalizes the help texts of commands.
package templates

import (
	"strings"

	"github.com/MakeNowJust/heredoc"
)

const indentation = "  "

// LongDesc strips the common indentation of a raw string literal
func LongDesc(s string) string {
	if len(s) == 0 {
		return s
	}
	return strings.TrimSpace(heredoc.Doc(s))
}

// Examples dedents s and indents every line by two spaces
func Examples(s string) string {
	if len(s) == 0 {
		return s
	}
	lines := strings.Split(strings.TrimSpace(heredoc.Doc(s)), "\n")
	for i, line := range lines {
		if line != "" {
			lines[i] = indentation + line
		}
	}
	return strings.Join(lines, "\n")
}
