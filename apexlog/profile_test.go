package apexlog

import (
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
)

func TestBuildMethodProfile(t *testing.T) {
	log := `1.0|METHOD_ENTRY|[1]|ClsA.outer()
1.1|METHOD_ENTRY|[2]|ClsA.inner()
1.3|METHOD_EXIT|[2]|ClsA.inner()
1.5|METHOD_EXIT|[1]|ClsA.outer()
`
	prof := BuildMethodProfile(zerolog.Nop(), log)

	require.Len(t, prof.SampleType, 2)
	require.Equal(t, "calls", prof.SampleType[0].Type)
	require.Equal(t, "time", prof.SampleType[1].Type)
	require.Equal(t, "milliseconds", prof.SampleType[1].Unit)

	require.Len(t, prof.Sample, 2)
	// Leaf-first: the inner call closes first with outer as its parent.
	inner := prof.Sample[0]
	require.Len(t, inner.Location, 2)
	require.Equal(t, "ClsA.inner()", inner.Location[0].Line[0].Function.Name)
	require.Equal(t, "ClsA.outer()", inner.Location[1].Line[0].Function.Name)
	require.Equal(t, []int64{1, 200}, inner.Value)

	outer := prof.Sample[1]
	require.Len(t, outer.Location, 1)
	require.Equal(t, []int64{1, 500}, outer.Value)

	require.Len(t, prof.Function, 2)
	require.NoError(t, prof.CheckValid())
}

func TestBuildMethodProfile_MergesIdenticalStacks(t *testing.T) {
	log := `1.0|METHOD_ENTRY|[1]|ClsA.work()
1.1|METHOD_EXIT|[1]|ClsA.work()
2.0|METHOD_ENTRY|[1]|ClsA.work()
2.3|METHOD_EXIT|[1]|ClsA.work()
`
	prof := BuildMethodProfile(zerolog.Nop(), log)

	require.Len(t, prof.Sample, 1)
	require.Equal(t, []int64{2, 400}, prof.Sample[0].Value)
	require.Len(t, prof.Function, 1)
}

func TestBuildMethodProfile_SystemAndConstructorFrames(t *testing.T) {
	log := `1.0|CONSTRUCTOR_ENTRY|[1]|ClsA.<init>()
1.1|SYSTEM_METHOD_ENTRY|[2]|System.debug(ANY)
1.2|SYSTEM_METHOD_EXIT|[2]|System.debug(ANY)
1.4|CONSTRUCTOR_EXIT|[1]|ClsA.<init>()
`
	prof := BuildMethodProfile(zerolog.Nop(), log)

	require.Len(t, prof.Sample, 2)
	require.Len(t, prof.Function, 2)
	require.NoError(t, prof.CheckValid())
}

func TestBuildMethodProfile_UnbalancedInput(t *testing.T) {
	// A stray exit and a frame left open must not produce samples with
	// bogus durations or panic.
	log := `1.0|METHOD_EXIT|[1]|ClsA.stray()
1.1|METHOD_ENTRY|[1]|ClsA.open()
`
	prof := BuildMethodProfile(zerolog.Nop(), log)

	require.Empty(t, prof.Sample)
}

func TestBuildMethodProfile_EmptyInput(t *testing.T) {
	prof := BuildMethodProfile(zerolog.Nop(), "")

	require.Empty(t, prof.Sample)
	require.NoError(t, prof.CheckValid())
}
