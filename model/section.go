package model

// SectionKind distinguishes the two code-unit sections the extractor
// can capture.
type SectionKind uint8

const (
	SectionSetup SectionKind = iota
	SectionTest
)

func (k SectionKind) String() string {
	if k == SectionSetup {
		return "setup"
	}
	return "test"
}

// Section is the ordered raw lines belonging to one code unit. It lives
// only for the duration of one extractor call.
type Section struct {
	Kind SectionKind
	// Qualified name, e.g. "MyClass.testSomething"
	Name  string
	Lines []string
}
