package apexlog

import (
	"strings"
	"time"

	"github.com/google/pprof/profile"
	"github.com/rs/zerolog"
)

// methodProfiler folds method entry/exit pairs into a pprof profile:
// one sample per distinct call stack with call-count and wall-time
// values. Unbalanced exits are dropped and frames still open at end of
// input are discarded.
type methodProfiler struct {
	logger    zerolog.Logger
	prof      *profile.Profile
	functions map[string]*profile.Function
	locations map[string]*profile.Location
	stack     []openFrame
}

type openFrame struct {
	loc   *profile.Location
	start float64
}

// BuildMethodProfile derives a call profile from the method, system
// method and constructor entry/exit events of a raw execution log.
// Like the analyzer it is total: malformed lines are skipped.
func BuildMethodProfile(logger zerolog.Logger, raw string) *profile.Profile {
	p := &methodProfiler{
		logger: logger,
		prof: &profile.Profile{
			SampleType: []*profile.ValueType{
				{Type: "calls", Unit: "count"},
				{Type: "time", Unit: "milliseconds"},
			},
			TimeNanos:  time.Now().UnixNano(),
			PeriodType: &profile.ValueType{Type: "wall", Unit: "milliseconds"},
			Period:     1,
		},
		functions: make(map[string]*profile.Function),
		locations: make(map[string]*profile.Location),
	}

	for _, line := range splitLines(raw) {
		if strings.TrimSpace(line) == "" {
			continue
		}
		fields := strings.Split(line, "|")
		if len(fields) < 2 {
			continue
		}
		ts, ok := parseTimestamp(fields[0])
		if !ok {
			continue
		}

		switch classify(fields[1]) {
		case EventMethodEntry, EventSystemMethodEntry, EventConstructorEntry:
			p.push(fields[len(fields)-1], ts)
		case EventMethodExit, EventSystemMethodExit, EventConstructorExit:
			p.pop(ts)
		}
	}

	if len(p.stack) > 0 {
		p.logger.Debug().Int("frames", len(p.stack)).Msg("discarding frames left open at end of log")
	}

	return p.prof
}

func (p *methodProfiler) push(name string, ts float64) {
	p.stack = append(p.stack, openFrame{loc: p.getOrCreateLocation(name), start: ts})
}

// pop closes the innermost open frame and records one sample for the
// stack it completes, leaf first.
func (p *methodProfiler) pop(ts float64) {
	if len(p.stack) == 0 {
		return
	}
	top := p.stack[len(p.stack)-1]
	p.stack = p.stack[:len(p.stack)-1]

	stack := make([]*profile.Location, 0, len(p.stack)+1)
	stack = append(stack, top.loc)
	for i := len(p.stack) - 1; i >= 0; i-- {
		stack = append(stack, p.stack[i].loc)
	}

	p.addSample(stack, roundMS((ts-top.start)*1000))
}

// addSample merges repeated invocations with an identical stack into
// one weighted sample.
func (p *methodProfiler) addSample(stack []*profile.Location, durationMS int64) {
	if durationMS < 0 {
		durationMS = 0
	}
	for _, sample := range p.prof.Sample {
		if stacksEqual(sample.Location, stack) {
			sample.Value[0]++
			sample.Value[1] += durationMS
			return
		}
	}
	p.prof.Sample = append(p.prof.Sample, &profile.Sample{
		Location: stack,
		Value:    []int64{1, durationMS},
	})
}

func (p *methodProfiler) getOrCreateLocation(name string) *profile.Location {
	if loc, exists := p.locations[name]; exists {
		return loc
	}

	fn, exists := p.functions[name]
	if !exists {
		fn = &profile.Function{
			ID:   uint64(len(p.prof.Function) + 1),
			Name: name,
		}
		p.functions[name] = fn
		p.prof.Function = append(p.prof.Function, fn)
	}

	loc := &profile.Location{
		ID:   uint64(len(p.prof.Location) + 1),
		Line: []profile.Line{{Function: fn}},
	}
	p.locations[name] = loc
	p.prof.Location = append(p.prof.Location, loc)
	return loc
}

// stacksEqual returns true if two stacks have the same location IDs.
func stacksEqual(a, b []*profile.Location) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i].ID != b[i].ID {
			return false
		}
	}
	return true
}
