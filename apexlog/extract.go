package apexlog

import (
	"regexp"
	"strings"

	"github.com/apexlog/apexlog/model"
)

// Hard caps applied before any scanning. Oversized input gets a fixed
// advisory string instead of a best-effort scan.
const (
	maxExtractBytes = 2_000_000
	maxExtractLines = 50_000
)

// Fixed advisory strings returned instead of extracted text.
const (
	AdviceTooLarge     = "Log file too large to extract a test method section."
	AdviceMissingNames = "Class and test method names are required to extract a section."
	AdviceNoReferences = "No references to the requested test method were found in the log."
)

const (
	unitStartMarker = "CODE_UNIT_STARTED"
	unitEndMarker   = "CODE_UNIT_FINISHED"
)

// identScrubRe strips everything but letters, digits, underscore and
// dot from caller-supplied identifiers before they drive any matching.
var identScrubRe = regexp.MustCompile(`[^A-Za-z0-9_.]+`)

func sanitizeIdentifier(s string) string {
	return identScrubRe.ReplaceAllString(s, "")
}

// ExtractMethodSection isolates the log lines belonging to one test
// method and, when a setup method name is given, its setup method. The
// result is plain text: header blocks over the bounded sections, a
// verbatim substring fallback when no bounded section was found, or one
// of the fixed advisory strings. It never fails.
func ExtractMethodSection(raw, className, methodName, setupMethod string) string {
	className = sanitizeIdentifier(className)
	methodName = sanitizeIdentifier(methodName)
	setupMethod = sanitizeIdentifier(setupMethod)

	if className == "" || methodName == "" {
		return AdviceMissingNames
	}
	if len(raw) > maxExtractBytes {
		return AdviceTooLarge
	}
	lines := splitLines(raw)
	if len(lines) > maxExtractLines {
		return AdviceTooLarge
	}

	testName := className + "." + methodName
	setupName := ""
	if setupMethod != "" {
		setupName = className + "." + setupMethod
	}

	setup, test := extractSections(lines, testName, setupName)

	var out []string
	if len(setup.Lines) > 0 {
		out = append(out, sectionHeader("TEST SETUP METHOD", setup.Name)...)
		out = append(out, setup.Lines...)
	}
	if len(test.Lines) > 0 {
		if len(out) > 0 {
			out = append(out, "")
		}
		out = append(out, sectionHeader("TEST METHOD", test.Name)...)
		out = append(out, test.Lines...)
	}
	if len(out) > 0 {
		return strings.Join(out, "\n")
	}

	// No bounded sections: degrade to a raw substring scan.
	var matches []string
	for _, line := range lines {
		if strings.Contains(line, testName) || (setupName != "" && strings.Contains(line, setupName)) {
			matches = append(matches, line)
		}
	}
	if len(matches) > 0 {
		out = append(out, "No bounded code unit was found for "+testName+"; lines referencing it:", "")
		out = append(out, matches...)
		return strings.Join(out, "\n")
	}

	return AdviceNoReferences
}

// extractSections runs the two-flag state machine over the line list.
// At most one section is open at a time; opening the other flushes the
// one currently open, and end-of-input flushes whatever remains.
func extractSections(lines []string, testName, setupName string) (setup, test model.Section) {
	setup = model.Section{Kind: model.SectionSetup, Name: setupName}
	test = model.Section{Kind: model.SectionTest, Name: testName}

	inSetup := false
	inTest := false
	var buf []string

	flush := func() {
		if inSetup {
			setup.Lines = append(setup.Lines, buf...)
		} else if inTest {
			test.Lines = append(test.Lines, buf...)
		}
		buf = nil
		inSetup = false
		inTest = false
	}

	for _, line := range lines {
		switch {
		case setupName != "" && isUnitMarker(line, unitStartMarker, setupName):
			if inTest {
				flush()
			}
			inSetup = true
			buf = append(buf, line)
		case isUnitMarker(line, unitStartMarker, testName):
			if inSetup {
				flush()
			}
			inTest = true
			buf = append(buf, line)
		case inSetup && isUnitMarker(line, unitEndMarker, setupName),
			inTest && isUnitMarker(line, unitEndMarker, testName):
			buf = append(buf, line)
			flush()
		case inSetup || inTest:
			buf = append(buf, line)
		}
	}
	flush()

	return setup, test
}

func isUnitMarker(line, marker, qualifiedName string) bool {
	return strings.Contains(line, marker) && strings.Contains(line, qualifiedName)
}

func sectionHeader(title, qualifiedName string) []string {
	rule := strings.Repeat("=", 40)
	return []string{rule, title, qualifiedName, rule}
}
