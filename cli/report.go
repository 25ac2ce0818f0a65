package cli

// This file renders a LogAnalysis as a plain-text report.

import (
	"fmt"
	"io"
	"strings"

	"github.com/apexlog/apexlog/model"
)

func renderAnalysis(w io.Writer, analysis *model.LogAnalysis) {
	renderSummary(w, analysis)

	if len(analysis.LimitUsages) > 0 {
		fmt.Fprintln(w)
		fmt.Fprintln(w, "Governor Limits:")
		for _, limit := range analysis.LimitUsages {
			fmt.Fprintf(w, "  %-40s %d of %d (%d%%)\n", limit.Name, limit.Used, limit.Total, limit.Percentage)
		}
	}

	if len(analysis.Errors) > 0 {
		fmt.Fprintln(w)
		fmt.Fprintln(w, "Errors:")
		for _, rec := range analysis.Errors {
			fmt.Fprintf(w, "  %s\n", rec.Message)
			if rec.Line > 0 {
				fmt.Fprintf(w, "    at line %d, column %d\n", rec.Line, rec.Column)
			}
			if rec.StackTrace != "" {
				for _, frame := range strings.Split(rec.StackTrace, "\n") {
					fmt.Fprintf(w, "    %s\n", frame)
				}
			}
		}
	}

	if len(analysis.DebugStatements) > 0 {
		fmt.Fprintln(w)
		fmt.Fprintln(w, "Debug Statements:")
		for _, stmt := range analysis.DebugStatements {
			fmt.Fprintf(w, "  [%d] %s\n", stmt.Line, stmt.Message)
		}
	}

	if len(analysis.Timeline) > 0 {
		fmt.Fprintln(w)
		fmt.Fprintln(w, "Timeline:")
		for _, event := range analysis.Timeline {
			if event.Detail != "" {
				fmt.Fprintf(w, "  %6dms  %-22s %s\n", event.TimeMS, event.Event, event.Detail)
			} else {
				fmt.Fprintf(w, "  %6dms  %s\n", event.TimeMS, event.Event)
			}
		}
	}
}

func renderSummary(w io.Writer, analysis *model.LogAnalysis) {
	fmt.Fprintln(w, "Execution Summary:")
	fmt.Fprintf(w, "  Total time:       %dms\n", analysis.Summary.TotalTime)
	fmt.Fprintf(w, "  Database time:    %dms\n", analysis.Summary.DatabaseTime)
	fmt.Fprintf(w, "  SOQL queries:     %d\n", analysis.Summary.SOQLQueries)
	fmt.Fprintf(w, "  DML statements:   %d\n", analysis.Summary.DMLStatements)
	fmt.Fprintf(w, "  Database calls:   %d\n", analysis.Summary.DatabaseCalls)
	if analysis.Summary.MaxHeapSize > 0 {
		fmt.Fprintf(w, "  Peak heap:        %d bytes\n", analysis.Summary.MaxHeapSize)
	}
	if analysis.HasCodeCoverage && analysis.CodeCoverage != nil {
		cov := analysis.CodeCoverage
		fmt.Fprintf(w, "  Code coverage:    %d%% (%d/%d lines)\n", cov.Percentage, cov.LinesCovered, cov.LinesTotal)
		if len(cov.UncoveredLines) > 0 {
			fmt.Fprintf(w, "  Uncovered lines:  %s\n", joinInts(cov.UncoveredLines))
		}
	}
}

func joinInts(nums []int) string {
	parts := make([]string, len(nums))
	for i, n := range nums {
		parts[i] = fmt.Sprintf("%d", n)
	}
	return strings.Join(parts, ", ")
}
