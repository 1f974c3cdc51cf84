package printer

import (
	"bytes"
	"testing"

	"github.com/pterm/pterm"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type row struct {
	Name   string
	Status string
	Error  string
}

func TestParseTableData(t *testing.T) {
	headers, rows, err := parseTableData(`[{"Name": "a", "Status": "Success", "Error": ""}]`, ColumnMapping{
		{"Name", "Artifact"},
		{"Status", "Status"},
		{"Error", "Error"},
		{"Missing", "Missing"},
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"Artifact", "Status", "Error", "Missing"}, headers)
	assert.Equal(t, [][]string{{"a", "Success", "-", "-"}}, rows)
}

func TestParseTableData_NoMapping(t *testing.T) {
	headers, rows, err := parseTableData(`[{"b": 1, "a": "x"}]`, nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, headers)
	assert.Equal(t, [][]string{{"x", "1"}}, rows)
}

func TestPrintTableWithOptions(t *testing.T) {
	pterm.DisableStyling()
	defer pterm.EnableStyling()

	var buf bytes.Buffer
	err := PrintTableWithOptions([]row{{Name: "Flow1", Status: "Success"}, {Name: "Flow2", Status: "Failed", Error: "boom"}},
		TableOptions{ShowTotal: true, Writer: &buf})
	require.NoError(t, err)

	out := buf.String()
	assert.Contains(t, out, "Flow1")
	assert.Contains(t, out, "boom")
	assert.Contains(t, out, "Total: 2")
}

func TestPrintTableWithOptions_Empty(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, PrintTableWithOptions([]row{}, TableOptions{ShowTotal: true, Writer: &buf}))
	assert.Empty(t, buf.String())
}
