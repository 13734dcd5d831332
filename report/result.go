// CLAUDE:SUMMARY Defines the Result envelope emitted to sinks after a job run.
package report

// Result is the unit emitted to sinks after a job run. Exactly one of Report
// or Breakpoints is set.
type Result struct {
	RunID       string            `json:"run_id"` // UUIDv7
	JobID       string            `json:"job_id"`
	URL         string            `json:"url,omitempty"`
	Sources     []string          `json:"sources"`
	Report      *Report           `json:"report,omitempty"`
	Breakpoints *BreakpointReport `json:"breakpoints,omitempty"`
	CounterCSS  string            `json:"counter_css,omitempty"`
	Timestamp   int64             `json:"timestamp"` // epoch milliseconds at completion
}

// Failure is emitted to sinks when a job run aborts.
type Failure struct {
	RunID     string `json:"run_id"`
	JobID     string `json:"job_id"`
	URL       string `json:"url,omitempty"`
	Error     string `json:"error"`
	Timestamp int64  `json:"timestamp"`
}
