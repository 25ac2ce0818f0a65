package apexlog

import "strings"

// EventKind identifies the kind of occurrence a log line records.
type EventKind uint8

const (
	EventUnrecognized EventKind = iota
	EventExecutionStarted
	EventExecutionFinished
	EventSOQLBegin
	EventDMLBegin
	EventUserDebug
	EventHeapAllocate
	EventException
	EventSystemMethodEntry
	EventSystemMethodExit
	EventLimitUsageForNS
	EventCumulativeLimits
	EventCumulativeProfiling
	EventCodeCoverage
	EventSystemModeEnter
	EventSystemModeExit
	EventConstructorEntry
	EventConstructorExit
	EventMethodEntry
	EventMethodExit
	EventSOQLEnd
	EventDMLEnd
)

type dispatchRule struct {
	substr string
	kind   EventKind
}

// dispatchRules is evaluated top to bottom and the first rule whose
// substring occurs in the tag wins. The order is load-bearing: several
// tags are substrings of one another (SYSTEM_METHOD_ENTRY contains
// METHOD_ENTRY), so later rules never fire once an earlier one matches.
var dispatchRules = []dispatchRule{
	{"EXECUTION_STARTED", EventExecutionStarted},
	{"EXECUTION_FINISHED", EventExecutionFinished},
	{"SOQL_EXECUTE_BEGIN", EventSOQLBegin},
	{"DML_BEGIN", EventDMLBegin},
	{"USER_DEBUG", EventUserDebug},
	{"HEAP_ALLOCATE", EventHeapAllocate},
	{"EXCEPTION_THROWN", EventException},
	{"FATAL_ERROR", EventException},
	{"SYSTEM_METHOD_ENTRY", EventSystemMethodEntry},
	{"SYSTEM_METHOD_EXIT", EventSystemMethodExit},
	{"LIMIT_USAGE_FOR_NS", EventLimitUsageForNS},
	{"CUMULATIVE_LIMIT_USAGE", EventCumulativeLimits},
	{"CUMULATIVE_PROFILING", EventCumulativeProfiling},
	{"CODE_COVERAGE", EventCodeCoverage},
	{"SYSTEM_MODE_ENTER", EventSystemModeEnter},
	{"SYSTEM_MODE_EXIT", EventSystemModeExit},
	{"CONSTRUCTOR_ENTRY", EventConstructorEntry},
	{"CONSTRUCTOR_EXIT", EventConstructorExit},
	{"METHOD_ENTRY", EventMethodEntry},
	{"METHOD_EXIT", EventMethodExit},
	{"SOQL_EXECUTE_END", EventSOQLEnd},
	{"DML_END", EventDMLEnd},
}

// classify maps an event tag to its kind via the ordered rule table.
func classify(tag string) EventKind {
	for _, rule := range dispatchRules {
		if strings.Contains(tag, rule.substr) {
			return rule.kind
		}
	}
	return EventUnrecognized
}
