package cli

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/google/uuid"
	"github.com/olekukonko/tablewriter"

	"nfsync/internal/types"
	"nfsync/internal/utils"
)

// OutputWriter handles CLI output formatting
type OutputWriter struct {
	format   types.OutputFormat
	quiet    bool
	verbose  bool
	warnings []types.CLIWarning
}

// NewOutputWriter creates a new output writer
func NewOutputWriter(format types.OutputFormat, quiet, verbose bool) *OutputWriter {
	return &OutputWriter{
		format:   format,
		quiet:    quiet,
		verbose:  verbose,
		warnings: []types.CLIWarning{},
	}
}

// AddWarning adds a warning to the output
func (w *OutputWriter) AddWarning(code, message, severity string) {
	w.warnings = append(w.warnings, types.CLIWarning{
		Code:     code,
		Message:  message,
		Severity: severity,
	})
}

// WriteSuccess writes a successful result
func (w *OutputWriter) WriteSuccess(command string, data interface{}) error {
	output := types.CLIOutput{
		SchemaVersion: utils.SchemaVersion,
		TraceID:       uuid.New().String(),
		Command:       command,
		Data:          data,
		Warnings:      w.warnings,
		Errors:        []types.CLIError{},
	}

	if w.format == types.OutputFormatJSON {
		return w.writeJSON(output)
	}
	return w.writeTable(command, data)
}

// WriteError writes an error envelope and returns an error that carries
// the exit code for Execute.
func (w *OutputWriter) WriteError(command string, cliErr types.CLIError) error {
	output := types.CLIOutput{
		SchemaVersion: utils.SchemaVersion,
		TraceID:       uuid.New().String(),
		Command:       command,
		Data:          nil,
		Warnings:      w.warnings,
		Errors:        []types.CLIError{cliErr},
	}

	if w.format == types.OutputFormatJSON {
		_ = w.writeJSON(output)
	} else {
		fmt.Fprintf(os.Stderr, "Error: %s\n", cliErr.Message)
		if cliErr.Detail != "" && w.verbose {
			fmt.Fprintf(os.Stderr, "  %s\n", cliErr.Detail)
		}
	}
	return utils.NewAppError(cliErr)
}

func (w *OutputWriter) writeJSON(output types.CLIOutput) error {
	encoder := json.NewEncoder(os.Stdout)
	encoder.SetIndent("", "  ")
	return encoder.Encode(output)
}

func (w *OutputWriter) writeTable(command string, data interface{}) error {
	if renderable, ok := data.(types.TableRenderable); ok {
		return w.renderTable(renderable.AsTableRenderer())
	}
	if renderer, ok := data.(types.TableRenderer); ok {
		return w.renderTable(renderer)
	}
	// Fallback to JSON for types without a table form
	return w.writeJSON(types.CLIOutput{
		SchemaVersion: utils.SchemaVersion,
		TraceID:       uuid.New().String(),
		Command:       command,
		Data:          data,
		Warnings:      w.warnings,
		Errors:        []types.CLIError{},
	})
}

func (w *OutputWriter) renderTable(renderer types.TableRenderer) error {
	rows := renderer.Rows()
	if len(rows) == 0 {
		if !w.quiet {
			fmt.Fprintln(os.Stdout, renderer.EmptyMessage())
		}
		return nil
	}

	table := tablewriter.NewWriter(os.Stdout)
	table.SetHeader(renderer.Headers())
	table.SetBorder(false)
	table.SetHeaderAlignment(tablewriter.ALIGN_LEFT)
	table.SetAlignment(tablewriter.ALIGN_LEFT)

	for _, row := range rows {
		table.Append(row)
	}
	table.Render()
	return nil
}

// kvTable renders ordered key/value pairs, used by status-like commands.
type kvTable struct {
	pairs [][2]string
}

func (t *kvTable) Headers() []string    { return []string{"Key", "Value"} }
func (t *kvTable) EmptyMessage() string { return "Nothing to show" }
func (t *kvTable) Rows() [][]string {
	rows := make([][]string, 0, len(t.pairs))
	for _, pair := range t.pairs {
		rows = append(rows, []string{pair[0], pair[1]})
	}
	return rows
}
