package apexlog

import (
	"math"
	"regexp"
	"strconv"
	"strings"

	"github.com/apexlog/apexlog/model"
	"github.com/rs/zerolog"
)

// Analyzer turns a raw execution log into a structured LogAnalysis.
// It never fails: malformed lines are logged and skipped, and an empty
// or garbage input yields an empty (but valid) analysis.
type Analyzer struct {
	logger zerolog.Logger

	// Per-call state, reset at the top of Analyze
	analysis   *model.LogAnalysis
	limits     map[string]limitEntry
	limitOrder []string
	execStart  float64
	soqlStart  float64
	soqlOpen   bool
	dmlStart   float64
	dmlOpen    bool
}

// limitEntry is one name-keyed limit sample. Later samples for the same
// name replace earlier ones outright.
type limitEntry struct {
	used  int
	total int
}

var (
	// Continuation detection: a line starting a new event carries a
	// digits:digits:digits timestamp prefix.
	timestampPrefixRe = regexp.MustCompile(`^\d+:\d+:\d+`)
	// Stricter header shape used to terminate stack-trace capture: a
	// timestamp prefix followed by an uppercase tag field.
	eventHeaderRe = regexp.MustCompile(`^\d+:\d+:\d+.*\|[A-Z_]+`)
	// Longest numeric prefix of the timestamp field, in seconds.
	leadingFloatRe = regexp.MustCompile(`^\d+(\.\d+)?`)

	errPosRe     = regexp.MustCompile(`(?i)line (\d+)(?:, column (\d+))?`)
	limitFieldRe = regexp.MustCompile(`^\s*(.+?): (\d+) of (\d+)`)
	heapBytesRe  = regexp.MustCompile(`Bytes:(\d+)`)
	srcLineRe    = regexp.MustCompile(`\[(\d+)\]`)

	coveragePctRe   = regexp.MustCompile(`(\d+)%`)
	coverageRatioRe = regexp.MustCompile(`(\d+)/(\d+)`)
	uncoveredRe     = regexp.MustCompile(`(?i)lines not covered:\s*([0-9,\s]+)`)
)

// stackTraceLookahead bounds how far past an exception line the trace
// capture may scan.
const stackTraceLookahead = 30

// New creates an analyzer. The logger receives non-fatal per-line parse
// faults at debug level.
func New(logger zerolog.Logger) *Analyzer {
	return &Analyzer{logger: logger}
}

// Analyze performs a single forward pass over the raw log text and
// returns the completed analysis. It always returns a non-nil result.
func (a *Analyzer) Analyze(raw string) *model.LogAnalysis {
	a.analysis = &model.LogAnalysis{}
	a.limits = make(map[string]limitEntry)
	a.limitOrder = nil
	a.execStart = 0
	a.soqlOpen = false
	a.dmlOpen = false

	lines := splitLines(raw)

	// debugOpen tracks whether the most recent handler to fire was a
	// USER_DEBUG capture. While open, lines lacking a timestamp prefix
	// extend that statement instead of starting a new event.
	debugOpen := false

	for i := 0; i < len(lines); i++ {
		line := lines[i]
		if strings.TrimSpace(line) == "" {
			continue
		}

		if debugOpen && !timestampPrefixRe.MatchString(line) {
			// Reachable only across a skipped blank-line boundary: the
			// debug handler already absorbed the contiguous run.
			n := len(a.analysis.DebugStatements)
			a.analysis.DebugStatements[n-1].Message += "\n" + line
			continue
		}

		i, debugOpen = a.dispatch(lines, i, debugOpen)
	}

	a.finalize()
	return a.analysis
}

// dispatch processes one event line. It returns the index of the last
// line consumed (usually the same index) and the updated debug-capture
// state. Per-line failures are logged and leave the analysis untouched.
func (a *Analyzer) dispatch(lines []string, i int, debugOpen bool) (int, bool) {
	line := lines[i]
	fields := strings.Split(line, "|")
	if len(fields) < 2 {
		a.logger.Debug().Int("line", i+1).Msg("skipping line without an event tag")
		return i, debugOpen
	}

	ts, ok := parseTimestamp(fields[0])
	if !ok {
		a.logger.Debug().Int("line", i+1).Str("field", fields[0]).Msg("skipping line with malformed timestamp")
		return i, debugOpen
	}

	kind := classify(fields[1])
	if kind == EventUnrecognized {
		// Not an error: logs carry many tags this analysis ignores.
		return i, debugOpen
	}

	offset := a.relativeMS(ts)

	switch kind {
	case EventExecutionStarted:
		a.execStart = ts
		a.timeline("Execution Started", 0, "")
	case EventExecutionFinished:
		a.analysis.ExecutionTime = offset
		a.analysis.Summary.TotalTime = offset
		a.timeline("Execution Finished", offset, "")
	case EventSOQLBegin:
		a.analysis.Summary.SOQLQueries++
		a.soqlStart = ts
		a.soqlOpen = true
		a.timeline("SOQL Query", offset, fields[len(fields)-1])
	case EventSOQLEnd:
		if a.soqlOpen {
			a.analysis.Summary.DatabaseTime += roundMS((ts - a.soqlStart) * 1000)
			a.soqlOpen = false
		}
	case EventDMLBegin:
		a.analysis.Summary.DMLStatements++
		a.dmlStart = ts
		a.dmlOpen = true
		a.timeline("DML Statement", offset, strings.Join(fields[2:], "|"))
	case EventDMLEnd:
		if a.dmlOpen {
			a.analysis.Summary.DatabaseTime += roundMS((ts - a.dmlStart) * 1000)
			a.dmlOpen = false
		}
	case EventUserDebug:
		last := a.handleUserDebug(lines, i, fields)
		return last, true
	case EventHeapAllocate:
		a.handleHeapAllocate(fields)
	case EventException:
		a.handleException(lines, i, fields, offset)
	case EventSystemMethodEntry:
		a.timeline("System Method Entry", offset, fields[len(fields)-1])
	case EventSystemMethodExit:
		a.timeline("System Method Exit", offset, fields[len(fields)-1])
	case EventLimitUsageForNS:
		a.recordLimitFields(fields[2:])
	case EventCumulativeLimits:
		a.handleCumulativeLimits(fields, offset)
	case EventCumulativeProfiling:
		// Placeholder: profiling events carry no data this analysis uses yet.
	case EventCodeCoverage:
		a.handleCodeCoverage(fields)
	case EventSystemModeEnter:
		a.timeline("System Mode Enter", offset, strings.Join(fields[2:], "|"))
	case EventSystemModeExit:
		a.timeline("System Mode Exit", offset, strings.Join(fields[2:], "|"))
	case EventConstructorEntry:
		a.timeline("Constructor Entry", offset, fields[len(fields)-1])
	case EventConstructorExit:
		a.timeline("Constructor Exit", offset, fields[len(fields)-1])
	case EventMethodEntry:
		a.timeline("Method Entry", offset, fields[len(fields)-1])
	case EventMethodExit:
		a.timeline("Method Exit", offset, fields[len(fields)-1])
	}

	return i, false
}

// finalize converts the limit map into the sorted usage list and derives
// the database-call count. Everything else was populated during the pass.
func (a *Analyzer) finalize() {
	for _, name := range a.limitOrder {
		entry := a.limits[name]
		pct := 0
		if entry.total != 0 {
			pct = int(math.Round(float64(entry.used) / float64(entry.total) * 100))
		}
		a.analysis.LimitUsages = append(a.analysis.LimitUsages, model.LimitUsage{
			Name:       name,
			Used:       entry.used,
			Total:      entry.total,
			Percentage: pct,
		})
	}
	model.SortLimitUsages(a.analysis.LimitUsages)

	a.analysis.Summary.DatabaseCalls = a.analysis.Summary.SOQLQueries + a.analysis.Summary.DMLStatements
}

// handleUserDebug records a new debug statement and greedily absorbs the
// continuation run that follows it, blank lines included. It returns the
// index of the last line consumed so the driver can skip past the run.
func (a *Analyzer) handleUserDebug(lines []string, i int, fields []string) int {
	stmt := model.DebugStatement{Timestamp: fields[0]}

	if len(fields) > 2 {
		if m := srcLineRe.FindStringSubmatch(fields[2]); m != nil {
			stmt.Line, _ = strconv.Atoi(m[1])
		}
	}

	msg := ""
	if len(fields) > 3 {
		msg = strings.Join(fields[3:], "|")
	}
	msg = strings.TrimPrefix(msg, "DEBUG|")
	msg = strings.ReplaceAll(msg, `\n`, "\n")

	last := i
	for j := i + 1; j < len(lines); j++ {
		if timestampPrefixRe.MatchString(lines[j]) {
			break
		}
		msg += "\n" + lines[j]
		last = j
	}

	stmt.Message = msg
	a.analysis.DebugStatements = append(a.analysis.DebugStatements, stmt)
	return last
}

// handleHeapAllocate tracks the peak single allocation seen.
func (a *Analyzer) handleHeapAllocate(fields []string) {
	for _, f := range fields[2:] {
		m := heapBytesRe.FindStringSubmatch(f)
		if m == nil {
			continue
		}
		if bytes, err := strconv.ParseInt(m[1], 10, 64); err == nil && bytes > a.analysis.Summary.MaxHeapSize {
			a.analysis.Summary.MaxHeapSize = bytes
		}
	}
}

// handleException records a structured error with best-effort source
// position and a bounded stack-trace lookahead, plus a timeline entry.
func (a *Analyzer) handleException(lines []string, i int, fields []string, offset int64) {
	rec := model.ErrorRecord{Message: strings.Join(fields[2:], "|")}

	if m := errPosRe.FindStringSubmatch(rec.Message); m != nil {
		rec.Line, _ = strconv.Atoi(m[1])
		if m[2] != "" {
			rec.Column, _ = strconv.Atoi(m[2])
		}
	}

	var trace []string
	for j := i + 1; j < len(lines) && j <= i+stackTraceLookahead; j++ {
		if eventHeaderRe.MatchString(lines[j]) {
			break
		}
		if trimmed := strings.TrimSpace(lines[j]); trimmed != "" {
			trace = append(trace, trimmed)
		}
	}
	rec.StackTrace = strings.Join(trace, "\n")

	a.analysis.Errors = append(a.analysis.Errors, rec)

	label := "Exception Thrown"
	if strings.Contains(fields[1], "FATAL_ERROR") {
		label = "Fatal Error"
	}
	a.timeline(label, offset, rec.Message)
}

// handleCumulativeLimits reads samples from field index 3 onward. Each
// sample overwrites the name-keyed map entry, is appended verbatim to
// the governor-limits list, and raises a high-usage timeline alert when
// that sample alone crosses half of its total.
func (a *Analyzer) handleCumulativeLimits(fields []string, offset int64) {
	if len(fields) < 4 {
		return
	}
	for _, f := range fields[3:] {
		name, used, total, ok := parseLimitField(f)
		if !ok {
			continue
		}
		a.setLimit(name, used, total)
		a.analysis.GovernorLimits = append(a.analysis.GovernorLimits, model.LimitSample{
			Name:  name,
			Usage: used,
			Total: total,
		})
		if total > 0 && float64(used)/float64(total) > 0.5 {
			a.timeline("High Limit Usage", offset, name+": "+strconv.Itoa(used)+" of "+strconv.Itoa(total))
		}
	}
}

// recordLimitFields handles the per-namespace variant, which carries
// samples from field index 2 onward and never raises alerts.
func (a *Analyzer) recordLimitFields(fields []string) {
	for _, f := range fields {
		if name, used, total, ok := parseLimitField(f); ok {
			a.setLimit(name, used, total)
		}
	}
}

// setLimit applies last-write-wins semantics: a later sample for the
// same name replaces the earlier one, keeping its original position.
func (a *Analyzer) setLimit(name string, used, total int) {
	if _, seen := a.limits[name]; !seen {
		a.limitOrder = append(a.limitOrder, name)
	}
	a.limits[name] = limitEntry{used: used, total: total}
}

// handleCodeCoverage flags coverage presence and runs three independent
// extractions, lazily creating the summary on the first that succeeds.
// Later extractions only touch their own fields.
func (a *Analyzer) handleCodeCoverage(fields []string) {
	a.analysis.HasCodeCoverage = true

	rest := strings.Join(fields[2:], "|")

	if m := coveragePctRe.FindStringSubmatch(rest); m != nil {
		pct, _ := strconv.Atoi(m[1])
		a.ensureCoverage().Percentage = pct
	}
	if m := coverageRatioRe.FindStringSubmatch(rest); m != nil {
		covered, _ := strconv.Atoi(m[1])
		total, _ := strconv.Atoi(m[2])
		cov := a.ensureCoverage()
		cov.LinesCovered = covered
		cov.LinesTotal = total
	}
	if m := uncoveredRe.FindStringSubmatch(rest); m != nil {
		var uncovered []int
		for _, part := range strings.Split(m[1], ",") {
			if n, err := strconv.Atoi(strings.TrimSpace(part)); err == nil {
				uncovered = append(uncovered, n)
			}
		}
		a.ensureCoverage().UncoveredLines = uncovered
	}
}

func (a *Analyzer) ensureCoverage() *model.CodeCoverageSummary {
	if a.analysis.CodeCoverage == nil {
		a.analysis.CodeCoverage = &model.CodeCoverageSummary{}
	}
	return a.analysis.CodeCoverage
}

func (a *Analyzer) timeline(event string, offset int64, detail string) {
	a.analysis.Timeline = append(a.analysis.Timeline, model.TimelineEvent{
		Event:  event,
		TimeMS: offset,
		Detail: detail,
	})
}

// relativeMS computes an offset against the most recent execution start.
// With no start marker seen the baseline stays at zero, which inflates
// offsets for truncated logs; kept as-is since downstream display
// depends on it.
func (a *Analyzer) relativeMS(ts float64) int64 {
	return roundMS((ts - a.execStart) * 1000)
}

func roundMS(ms float64) int64 {
	return int64(math.Round(ms))
}

// splitLines splits raw text into logical lines. A trailing newline
// does not produce a final empty line.
func splitLines(raw string) []string {
	lines := strings.Split(raw, "\n")
	if n := len(lines); n > 0 && lines[n-1] == "" {
		lines = lines[:n-1]
	}
	return lines
}

// parseTimestamp reads the longest numeric prefix of the timestamp field
// as seconds. Wall-clock prefixes like "16:09:52.595" therefore degrade
// to their leading integer rather than killing the line.
func parseTimestamp(field string) (float64, bool) {
	m := leadingFloatRe.FindString(strings.TrimSpace(field))
	if m == "" {
		return 0, false
	}
	ts, err := strconv.ParseFloat(m, 64)
	if err != nil {
		return 0, false
	}
	return ts, true
}

// parseLimitField matches one "<name>: <used> of <total>" field.
func parseLimitField(field string) (name string, used, total int, ok bool) {
	m := limitFieldRe.FindStringSubmatch(field)
	if m == nil {
		return "", 0, 0, false
	}
	used, err := strconv.Atoi(m[2])
	if err != nil {
		return "", 0, 0, false
	}
	total, err = strconv.Atoi(m[3])
	if err != nil {
		return "", 0, 0, false
	}
	return strings.TrimSpace(m[1]), used, total, true
}
