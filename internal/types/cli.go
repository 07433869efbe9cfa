package types

// OutputFormat selects how command results are rendered
type OutputFormat string

const (
	// OutputFormatJSON renders results as a JSON envelope
	OutputFormatJSON OutputFormat = "json"
	// OutputFormatTable renders results as human-readable tables
	OutputFormatTable OutputFormat = "table"
)

// GlobalFlags holds flags shared by all commands
type GlobalFlags struct {
	OutputFormat OutputFormat
	Quiet        bool
	Verbose      bool
	Debug        bool
	DryRun       bool
	Yes          bool
	Config       string
	LogFile      string
	JSON         bool
}

// CLIOutput is the stable JSON envelope written for every command
type CLIOutput struct {
	SchemaVersion string       `json:"schemaVersion"`
	TraceID       string       `json:"traceId"`
	Command       string       `json:"command"`
	Data          interface{}  `json:"data"`
	Warnings      []CLIWarning `json:"warnings"`
	Errors        []CLIError   `json:"errors"`
}

// CLIError is a machine-readable error carried in the output envelope
type CLIError struct {
	Code    string                 `json:"code"`
	Message string                 `json:"message"`
	Detail  string                 `json:"detail,omitempty"`
	Context map[string]interface{} `json:"context,omitempty"`
}

// CLIWarning is a non-fatal notice carried in the output envelope
type CLIWarning struct {
	Code     string `json:"code"`
	Message  string `json:"message"`
	Severity string `json:"severity"`
}

// TableRenderer is implemented by data that knows how to render itself
// as a table.
type TableRenderer interface {
	Headers() []string
	Rows() [][]string
	EmptyMessage() string
}

// TableRenderable is implemented by data that can produce a TableRenderer.
type TableRenderable interface {
	AsTableRenderer() TableRenderer
}
