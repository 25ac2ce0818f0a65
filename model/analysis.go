package model

import "sort"

// LogAnalysis is the structured result of analyzing one execution log.
// It is built once per analyzer call and owned by the caller afterwards.
type LogAnalysis struct {
	// Summary counters derived during the pass
	Summary Summary `json:"summary"`
	// Timeline of recognized events, in log order
	Timeline []TimelineEvent `json:"timeline"`
	// Debug statements, in log order, with continuation lines folded in
	DebugStatements []DebugStatement `json:"debug_statements"`
	// Exceptions and fatal errors
	Errors []ErrorRecord `json:"errors"`
	// Finalized limit usages, sorted descending by percentage
	LimitUsages []LimitUsage `json:"limit_usages"`
	// Raw cumulative-limit samples, in log order, not deduplicated
	GovernorLimits []LimitSample `json:"governor_limits"`
	// Coverage summary, present only if a coverage event carried data
	CodeCoverage *CodeCoverageSummary `json:"code_coverage,omitempty"`
	// True if any code-coverage event was seen, even without usable data
	HasCodeCoverage bool `json:"has_code_coverage"`
	// Total execution time in milliseconds
	ExecutionTime int64 `json:"execution_time_ms"`
}

// Summary holds the aggregate counters for one execution.
type Summary struct {
	// Total execution time in milliseconds
	TotalTime int64 `json:"total_time_ms"`
	// Cumulative time spent in database calls, milliseconds
	DatabaseTime int64 `json:"database_time_ms"`
	// Peak heap allocation observed, bytes
	MaxHeapSize int64 `json:"max_heap_size"`
	// Number of DML statements executed
	DMLStatements int `json:"dml_statements"`
	// Number of SOQL queries executed
	SOQLQueries int `json:"soql_queries"`
	// SOQLQueries + DMLStatements, derived at finalize
	DatabaseCalls int `json:"database_calls"`
}

// TimelineEvent is one recognized occurrence, timed relative to the most
// recent execution start.
type TimelineEvent struct {
	Event string `json:"event"`
	// Offset from execution start, milliseconds
	TimeMS int64 `json:"time_ms"`
	// Optional free-text detail
	Detail string `json:"detail,omitempty"`
}

// DebugStatement is one USER_DEBUG event with any trailing continuation
// lines appended to Message.
type DebugStatement struct {
	// Source line number from the log, 0 if absent
	Line int `json:"line"`
	// Full message text, possibly multi-line
	Message string `json:"message"`
	// Original timestamp field, verbatim
	Timestamp string `json:"timestamp"`
}

// ErrorRecord is one exception or fatal error.
type ErrorRecord struct {
	Message string `json:"message"`
	// Source position extracted from the message, 0 if not present
	Line   int `json:"line,omitempty"`
	Column int `json:"column,omitempty"`
	// Stack trace captured from the following lines, empty if none
	StackTrace string `json:"stack_trace,omitempty"`
}

// LimitUsage is one finalized governor-limit entry.
type LimitUsage struct {
	Name  string `json:"name"`
	Used  int    `json:"used"`
	Total int    `json:"total"`
	// round(Used/Total*100), 0 when Total is 0
	Percentage int `json:"percentage"`
}

// LimitSample is one raw cumulative-limit sample, kept without
// deduplication for display.
type LimitSample struct {
	Name  string `json:"name"`
	Usage int    `json:"usage"`
	Total int    `json:"total"`
}

// CodeCoverageSummary holds whatever coverage data the log carried.
// Fields are filled independently as each extraction succeeds.
type CodeCoverageSummary struct {
	Percentage     int   `json:"percentage"`
	LinesCovered   int   `json:"lines_covered"`
	LinesTotal     int   `json:"lines_total"`
	UncoveredLines []int `json:"uncovered_lines,omitempty"`
}

// SortLimitUsages orders a finalized limit list descending by percentage.
// The sort is stable so equal percentages keep insertion order.
func SortLimitUsages(limits []LimitUsage) {
	sort.SliceStable(limits, func(i, j int) bool {
		return limits[i].Percentage > limits[j].Percentage
	})
}
