package templates

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLongDesc(t *testing.T) {
	got := LongDesc(`
		Synchronize packages.

		  Indented detail.`)
	assert.Equal(t, "Synchronize packages.\n\n  Indented detail.", got)
	assert.Equal(t, "", LongDesc(""))
}

func TestExamples(t *testing.T) {
	got := Examples(`
		# run without prompts
		cpisync sync --no-input`)
	assert.Equal(t, "  # run without prompts\n  cpisync sync --no-input", got)
}
