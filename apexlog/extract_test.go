package apexlog

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

const sectionedLog = `1.0|CODE_UNIT_STARTED|[EXTERNAL]|ClsA.setupData
1.1|SOQL_EXECUTE_BEGIN|[2]|Aggregations:0|SELECT Id FROM Account
1.2|CODE_UNIT_FINISHED|ClsA.setupData
2.0|CODE_UNIT_STARTED|[EXTERNAL]|ClsA.testFoo
2.1|USER_DEBUG|[3]|DEBUG|inside the test
2.2|CODE_UNIT_FINISHED|ClsA.testFoo
3.0|CODE_UNIT_STARTED|[EXTERNAL]|ClsA.testOther
3.1|USER_DEBUG|[4]|DEBUG|other test noise
3.2|CODE_UNIT_FINISHED|ClsA.testOther
`

func TestExtract_SetupAndTestSections(t *testing.T) {
	out := ExtractMethodSection(sectionedLog, "ClsA", "testFoo", "setupData")

	setupIdx := strings.Index(out, "TEST SETUP METHOD")
	testIdx := strings.Index(out, "TEST METHOD")
	require.GreaterOrEqual(t, setupIdx, 0)
	require.GreaterOrEqual(t, testIdx, 0)
	require.Less(t, setupIdx, testIdx)

	require.Contains(t, out, "ClsA.setupData")
	require.Contains(t, out, "SELECT Id FROM Account")
	require.Contains(t, out, "inside the test")

	// Lines from other code units are excluded.
	require.NotContains(t, out, "other test noise")
	require.NotContains(t, out, "ClsA.testOther")

	// Setup lines appear inside the setup block, before the test block.
	require.Less(t, strings.Index(out, "SELECT Id FROM Account"), testIdx)
	require.Greater(t, strings.Index(out, "inside the test"), testIdx)
}

func TestExtract_TestOnly(t *testing.T) {
	out := ExtractMethodSection(sectionedLog, "ClsA", "testFoo", "")

	require.NotContains(t, out, "TEST SETUP METHOD")
	require.Contains(t, out, "TEST METHOD")
	require.Contains(t, out, "inside the test")
	require.NotContains(t, out, "SELECT Id FROM Account")
}

func TestExtract_UnterminatedSectionFlushedAtEOF(t *testing.T) {
	log := `2.0|CODE_UNIT_STARTED|[EXTERNAL]|ClsA.testFoo
2.1|USER_DEBUG|[3]|DEBUG|still running
`
	out := ExtractMethodSection(log, "ClsA", "testFoo", "")

	require.Contains(t, out, "TEST METHOD")
	require.Contains(t, out, "still running")
}

func TestExtract_SwitchingSectionsFlushesOpenOne(t *testing.T) {
	// The setup unit is never closed; opening the test unit must flush
	// the buffered setup lines into the setup section.
	log := `1.0|CODE_UNIT_STARTED|[EXTERNAL]|ClsA.setupData
1.1|USER_DEBUG|[2]|DEBUG|setup work
2.0|CODE_UNIT_STARTED|[EXTERNAL]|ClsA.testFoo
2.1|USER_DEBUG|[3]|DEBUG|test work
2.2|CODE_UNIT_FINISHED|ClsA.testFoo
`
	out := ExtractMethodSection(log, "ClsA", "testFoo", "setupData")

	setupIdx := strings.Index(out, "TEST SETUP METHOD")
	testIdx := strings.Index(out, "TEST METHOD")
	require.GreaterOrEqual(t, setupIdx, 0)
	require.Less(t, setupIdx, testIdx)
	require.Less(t, strings.Index(out, "setup work"), testIdx)
}

func TestExtract_LinesOutsideSectionsIgnored(t *testing.T) {
	log := `0.5|EXECUTION_STARTED
0.6|USER_DEBUG|[1]|DEBUG|preamble noise
2.0|CODE_UNIT_STARTED|[EXTERNAL]|ClsA.testFoo
2.1|USER_DEBUG|[3]|DEBUG|test work
2.2|CODE_UNIT_FINISHED|ClsA.testFoo
9.0|EXECUTION_FINISHED
`
	out := ExtractMethodSection(log, "ClsA", "testFoo", "")

	require.NotContains(t, out, "preamble noise")
	require.NotContains(t, out, "EXECUTION_FINISHED")
	require.Contains(t, out, "test work")
}

func TestExtract_FallbackSubstringScan(t *testing.T) {
	log := `10.0|EXECUTION_STARTED
10.1|METHOD_ENTRY|[1]|ClsA.testFoo()
10.2|METHOD_EXIT|[1]|ClsA.testFoo()
`
	out := ExtractMethodSection(log, "ClsA", "testFoo", "")

	require.NotContains(t, out, "TEST METHOD\n")
	require.Contains(t, out, "No bounded code unit was found")
	require.Contains(t, out, "METHOD_ENTRY|[1]|ClsA.testFoo()")
	require.NotContains(t, out, "EXECUTION_STARTED")
}

func TestExtract_NoReferences(t *testing.T) {
	log := `10.0|EXECUTION_STARTED
10.1|EXECUTION_FINISHED
`
	out := ExtractMethodSection(log, "ClsA", "testFoo", "")

	require.Equal(t, AdviceNoReferences, out)
}

func TestExtract_MissingNames(t *testing.T) {
	require.Equal(t, AdviceMissingNames, ExtractMethodSection(sectionedLog, "", "testFoo", ""))
	require.Equal(t, AdviceMissingNames, ExtractMethodSection(sectionedLog, "ClsA", "", ""))
	// Names that sanitize down to nothing count as missing.
	require.Equal(t, AdviceMissingNames, ExtractMethodSection(sectionedLog, "$!#", "testFoo", ""))
}

func TestExtract_IdentifierSanitization(t *testing.T) {
	// Hostile characters are stripped before matching; the remaining
	// identifier still matches the log.
	out := ExtractMethodSection(sectionedLog, "Cls#A", "test()Foo", "setup Data")

	require.Contains(t, out, "TEST METHOD")
	require.Contains(t, out, "inside the test")
}

func TestExtract_SizeCapReturnsAdvisory(t *testing.T) {
	sentinel := "2.0|CODE_UNIT_STARTED|[EXTERNAL]|ClsA.testFoo\n"
	raw := strings.Repeat("x", maxExtractBytes) + sentinel

	out := ExtractMethodSection(raw, "ClsA", "testFoo", "")

	require.Equal(t, AdviceTooLarge, out)
	require.NotContains(t, out, "CODE_UNIT_STARTED")
}

func TestExtract_LineCapReturnsAdvisory(t *testing.T) {
	// Many short lines stay under the byte cap but blow the line cap.
	raw := strings.Repeat(".\n", maxExtractLines+1) + "2.0|CODE_UNIT_STARTED|[EXTERNAL]|ClsA.testFoo\n"

	out := ExtractMethodSection(raw, "ClsA", "testFoo", "")

	require.Equal(t, AdviceTooLarge, out)
}

func TestExtract_NeverPanics(t *testing.T) {
	inputs := []string{
		"",
		"\n",
		"CODE_UNIT_STARTED",
		"|CODE_UNIT_STARTED|ClsA.testFoo",
		strings.Repeat("CODE_UNIT_STARTED|ClsA.testFoo\n", 5),
	}
	for _, input := range inputs {
		out := ExtractMethodSection(input, "ClsA", "testFoo", "setupData")
		require.NotEmpty(t, out)
	}
}
