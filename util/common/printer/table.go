package printer

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sort"

	"github.com/pterm/pterm"
	"github.com/rs/zerolog/log"
)

// ColumnMapping defines a mapping between original field names and display names
type ColumnMapping [][]string

// parseTableData converts a JSON string + column mapping into headers and string rows.
func parseTableData(jsonStr string, mapping ColumnMapping) ([]string, [][]string, error) {
	var rows []map[string]interface{}
	if err := json.Unmarshal([]byte(jsonStr), &rows); err != nil {
		return nil, nil, fmt.Errorf("parse json: %w", err)
	}
	if len(rows) == 0 {
		return nil, nil, nil
	}

	var header []string
	var fields []string
	if len(mapping) > 0 {
		for _, m := range mapping {
			if len(m) >= 2 {
				fields = append(fields, m[0])
				header = append(header, m[1])
			}
		}
	} else {
		for k := range rows[0] {
			fields = append(fields, k)
		}
		sort.Strings(fields)
		header = fields
	}

	tableRows := make([][]string, 0, len(rows))
	for _, r := range rows {
		row := make([]string, len(fields))
		for i, field := range fields {
			val, ok := r[field]
			if !ok || val == nil || val == "" {
				row[i] = "-"
				continue
			}
			row[i] = fmt.Sprint(val)
		}
		tableRows = append(tableRows, row)
	}

	return header, tableRows, nil
}

// TableOptions provides configuration for table output
type TableOptions struct {
	// ColumnMapping defines custom column ordering and display names
	// Format: [["originalField", "Display Name"], ...]
	ColumnMapping ColumnMapping

	// ShowTotal prints the number of rows below the table
	ShowTotal bool

	// Writer receives the table, os.Stdout when nil
	Writer io.Writer
}

// PrintTableWithOptions prints a slice of structs as a boxed table
func PrintTableWithOptions(res any, options TableOptions) error {
	data, err := json.Marshal(res)
	if err != nil {
		return fmt.Errorf("failed to marshal data to JSON: %w", err)
	}

	headers, rows, err := parseTableData(string(data), options.ColumnMapping)
	if err != nil {
		log.Error().Msgf("failed to parse table data: %v", err)
		return err
	}
	if headers == nil {
		return nil
	}

	w := options.Writer
	if w == nil {
		w = os.Stdout
	}

	tableData := pterm.TableData{headers}
	tableData = append(tableData, rows...)
	out, err := pterm.DefaultTable.
		WithHasHeader().
		WithBoxed(true).
		WithData(tableData).
		Srender()
	if err != nil {
		log.Error().Msgf("failed to render table: %v", err)
		return err
	}
	fmt.Fprintln(w, out)

	if options.ShowTotal {
		fmt.Fprintf(w, "Total: %d\n", len(rows))
	}
	return nil
}
