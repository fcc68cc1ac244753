package groove

import (
	"bytes"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func markerPositions(p *envelopePlan) []int {
	var out []int
	for i, m := range p.markers {
		if m {
			out = append(out, i)
		}
	}
	return out
}

func violations(important, markers []bool) int {
	n := 0
	for i := range markers {
		if markers[i] && important[i] {
			n++
		}
	}
	return n
}

func TestGenerateEnvelopeScenario(t *testing.T) {
	g := Groove{6, 6, 7}

	p := planEnvelope(g, PadMiddle, false)
	assert.Equal(t, 6, p.repeatCount)
	assert.Equal(t, 114, p.grooveFrames)
	assert.Equal(t, 95, p.adaptedFrames)

	env, err := GenerateEnvelope(g, PadMiddle, false)
	require.NoError(t, err)

	raw := env.Bytes()
	require.NotEmpty(t, raw)
	assert.Equal(t, byte(EnvelopeEnd), raw[len(raw)-1])
	assert.Equal(t, 1, bytes.Count(raw, []byte{EnvelopeEnd}))

	decoded, err := ParseEnvelope(raw, false)
	require.NoError(t, err)
	assert.Equal(t, 95, decoded.PlaybackFrames())
	assert.Equal(t, 114, decoded.SourceFrames())
	assert.Len(t, decoded.Adjustments(), 19)
	assert.Equal(t, env, decoded)

	for _, frame := range decoded.Adjustments() {
		assert.False(t, p.important[frame], "frame %d is important", frame)
	}
}

func TestGenerateEnvelopePalSource(t *testing.T) {
	g := Groove{6, 6, 7}

	env, err := GenerateEnvelope(g, PadMiddle, true)
	require.NoError(t, err)
	assert.True(t, env.SourceIsPal)
	assert.Equal(t, 114, env.PlaybackFrames())
	assert.Equal(t, 95, env.SourceFrames())
	assert.Len(t, env.Adjustments(), 19)
}

func TestGenerateEnvelopeUniform(t *testing.T) {
	// Six NTSC frames become five PAL frames with one skip.
	env, err := GenerateEnvelope(Groove{6}, PadMiddle, false)
	require.NoError(t, err)

	adjust := env.Adjustments()
	require.Len(t, adjust, 1)
	assert.NotContains(t, []int{0, 5}, adjust[0])
	assert.Equal(t, 5, env.PlaybackFrames())
}

func TestGenerateEnvelopeBytes(t *testing.T) {
	tests := []struct {
		name        string
		g           Groove
		mode        PaddingMode
		sourceIsPal bool
		want        []byte
	}{
		{"6 ntsc", Groove{6}, PadMiddle, false, []byte{0x02, 0x03, 0x80}},
		{"6 pal", Groove{6}, PadMiddle, true, []byte{0x03, 0x06, 0x07, 0x04, 0x07, 0x06, 0x03, 0x80}},
		{"6-6-7 ntsc", Groove{6, 6, 7}, PadMiddle, false, []byte{
			0x02, 0x05, 0x05, 0x05, 0x05, 0x05, 0x05, 0x05, 0x05, 0x06,
			0x05, 0x05, 0x03, 0x05, 0x05, 0x06, 0x05, 0x05, 0x05, 0x03, 0x80,
		}},
		{"6-6-7 pal", Groove{6, 6, 7}, PadMiddle, true, []byte{
			0x03, 0x06, 0x07, 0x05, 0x06, 0x06, 0x06, 0x05, 0x07, 0x06,
			0x06, 0x07, 0x04, 0x07, 0x06, 0x06, 0x07, 0x04, 0x07, 0x03, 0x80,
		}},
		{"8 pal end", Groove{8}, PadEnd, true, []byte{0x02, 0x06, 0x07, 0x06, 0x06, 0x06, 0x07, 0x05, 0x03, 0x80}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env, err := GenerateEnvelope(tt.g, tt.mode, tt.sourceIsPal)
			require.NoError(t, err)
			assert.Equal(t, tt.want, env.Bytes())
		})
	}
}

func TestGenerateEnvelopeScenarioMarkers(t *testing.T) {
	p := planEnvelope(Groove{6, 6, 7}, PadMiddle, false)
	assert.Equal(t, []int{
		3, 9, 15, 21, 27, 33, 39, 45, 51, 58,
		64, 70, 74, 80, 86, 93, 99, 105, 111,
	}, markerPositions(p))

	env := p.envelope()
	assert.Equal(t, markerPositions(p), env.Adjustments())
	// The first step counts from frame 0, the tail from the last marker.
	assert.Equal(t, Step{Kind: StepAdjust, Frames: 2}, env.Steps[0])
	assert.Equal(t, Step{Kind: StepTail, Frames: 114 - 111}, env.Steps[len(env.Steps)-2])
}

func TestOptimizerStepMovesCostliestOnly(t *testing.T) {
	important := make([]bool, 12)
	markers := make([]bool, 12)
	markers[2], markers[3], markers[9] = true, true, true
	o := newMarkerOptimizer(important, markers, 3)

	// Frames 2 and 3 tie at cost 3; the lower index moves left.
	frame, cost := o.costliest()
	assert.Equal(t, 2, frame)
	assert.Equal(t, 3, cost)
	require.True(t, o.step())
	assert.Equal(t, []bool{false, true, false, true, false, false, false, false, false, true, false, false}, markers)

	// With the costliest marker boxed in, no other marker moves even
	// though frame 3 could improve by stepping right.
	important = make([]bool, 12)
	important[1] = true
	markers = make([]bool, 12)
	markers[2], markers[3] = true, true
	o = newMarkerOptimizer(important, markers, 3)
	assert.False(t, o.step())
	assert.True(t, markers[2])
	assert.True(t, markers[3])
	// A stuck costliest marker ends the run after one recorded iteration.
	assert.Equal(t, []int{6, 6}, o.run())
}

func TestGenerateEnvelopeInvalidGroove(t *testing.T) {
	_, err := GenerateEnvelope(Groove{6, 8}, PadMiddle, false)
	assert.ErrorIs(t, err, ErrInvalidGroove)
}

func TestImportantFrames(t *testing.T) {
	tests := []struct {
		mode PaddingMode
		want []int
	}{
		// 6-frame note at 0, 7-frame note at 6 with its pad left free.
		{PadBeginning, []int{0, 5, 7, 12}},
		{PadMiddle, []int{0, 5, 6, 12}},
		{PadEnd, []int{0, 5, 6, 11}},
	}

	for _, tt := range tests {
		t.Run(tt.mode.String(), func(t *testing.T) {
			important := importantFrames(Groove{6, 7}, tt.mode, 1, 13)
			var got []int
			for i, imp := range important {
				if imp {
					got = append(got, i)
				}
			}
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestEnvelopeRoundTrip(t *testing.T) {
	properties := grooveProperties(t, 150)

	for _, mode := range PaddingModes {
		for _, sourceIsPal := range []bool{false, true} {
			mode, sourceIsPal := mode, sourceIsPal
			name := mode.String() + "/" + sourceDomain(sourceIsPal).String()

			properties.Property("envelope decodes to the adapted frame count "+name, grooveProp(
				func(n, base int, bumps []bool) bool {
					g := makeGroove(n, base, bumps)
					p := planEnvelope(g, mode, sourceIsPal)
					raw := p.envelope().Bytes()

					if bytes.IndexByte(raw, EnvelopeEnd) != len(raw)-1 {
						return false
					}
					env, err := ParseEnvelope(raw, sourceIsPal)
					if err != nil {
						return false
					}
					if env.PlaybackFrames() != p.grooveFrames/p.srcFactor*p.dstFactor {
						return false
					}
					if env.SourceFrames() != p.grooveFrames {
						return false
					}
					return assert.ObjectsAreEqual(markerPositions(p), env.Adjustments())
				},
			))

			properties.Property("optimizer cost never increases "+name, grooveProp(
				func(n, base int, bumps []bool) bool {
					p := planEnvelope(makeGroove(n, base, bumps), mode, sourceIsPal)
					if len(p.costHistory) > MaxOptimizeIterations+1 {
						return false
					}
					for i := 1; i < len(p.costHistory); i++ {
						if p.costHistory[i] > p.costHistory[i-1] {
							return false
						}
					}
					return true
				},
			))

			properties.Property("each step moves only the costliest marker "+name, grooveProp(
				func(n, base int, bumps []bool) bool {
					p := planEnvelope(makeGroove(n, base, bumps), mode, sourceIsPal)

					markers := make([]bool, p.grooveFrames)
					skips := p.adaptedFrames - p.grooveFrames
					if skips < 0 {
						skips = -skips
					}
					for i := 0; i < skips; i++ {
						markers[i*p.srcFactor+p.srcFactor/2] = true
					}
					o := newMarkerOptimizer(p.important, markers, p.srcFactor)

					for iter := 0; iter < MaxOptimizeIterations; iter++ {
						before := append([]bool(nil), markers...)
						frame, _ := o.costliest()
						if !o.step() {
							if !assert.ObjectsAreEqual(before, markers) {
								return false
							}
							break
						}
						for i := range markers {
							changed := markers[i] != before[i]
							if changed && i != frame && i != frame-1 && i != frame+1 {
								return false
							}
						}
						if markers[frame] {
							return false
						}
					}
					return assert.ObjectsAreEqual(p.markers, markers)
				},
			))

			// Notes of one or two frames are all attack and release, so
			// only grooves of three frames or more can keep every
			// important frame untouched.
			properties.Property("important frames are never adjusted "+name, groovePropWithBase(3, MaxNoteLength-1,
				func(n, base int, bumps []bool) bool {
					g := makeGroove(n, base, bumps)
					p := planEnvelope(g, mode, sourceIsPal)
					if violations(p.important, p.markers) != 0 {
						return false
					}
					env, err := ParseEnvelope(p.envelope().Bytes(), sourceIsPal)
					if err != nil {
						return false
					}
					for _, frame := range env.Adjustments() {
						if p.important[frame] {
							return false
						}
					}
					return true
				},
			))
		}
	}

	properties.TestingRun(t)
}

// bruteForce finds the lowest total cost and the fewest important-frame
// violations over every placement of k markers.
func bruteForce(important []bool, k, window int) (bestCost, bestViolations int) {
	markers := make([]bool, len(important))
	o := newMarkerOptimizer(important, markers, window)
	bestCost, bestViolations = -1, -1

	var place func(start, left int)
	place = func(start, left int) {
		if left == 0 {
			c := o.totalCost()
			if bestCost < 0 || c < bestCost {
				bestCost = c
			}
			v := violations(important, markers)
			if bestViolations < 0 || v < bestViolations {
				bestViolations = v
			}
			return
		}
		for i := start; i <= len(markers)-left; i++ {
			markers[i] = true
			place(i+1, left-1)
			markers[i] = false
		}
	}
	place(0, k)
	return bestCost, bestViolations
}

func TestOptimizerAgainstBruteForce(t *testing.T) {
	grooves := []Groove{{3}, {4}, {5}, {6}, {4, 5}, {5, 4}, {3, 4}, {4, 4, 5}}

	for _, g := range grooves {
		for _, mode := range PaddingModes {
			for _, sourceIsPal := range []bool{false, true} {
				p := planEnvelope(g, mode, sourceIsPal)
				if p.grooveFrames > 20 {
					continue
				}

				k := len(markerPositions(p))
				bestCost, bestViolations := bruteForce(p.important, k, p.srcFactor)
				got := newMarkerOptimizer(p.important, p.markers, p.srcFactor).totalCost()

				assert.GreaterOrEqual(t, got, bestCost)
				assert.Equal(t, bestViolations, violations(p.important, p.markers),
					"groove %s %s pal=%v", g, mode, sourceIsPal)
				t.Logf("groove %s %s pal=%v: cost %d, best %d", g, mode, sourceIsPal, got, bestCost)
			}
		}
	}
}

func TestParseEnvelopeErrors(t *testing.T) {
	tests := []struct {
		name string
		raw  []byte
	}{
		{"empty", []byte{}},
		{"no steps", []byte{EnvelopeEnd}},
		{"no terminator", []byte{4, 5}},
		{"trailing bytes", []byte{4, EnvelopeEnd, 1}},
		{"not a multiple", []byte{3, EnvelopeEnd}},
		{"too many steps", []byte{1, 1, 1, 1, 1, EnvelopeEnd}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseEnvelope(tt.raw, false)
			assert.ErrorIs(t, err, ErrMalformedEnvelope)
		})
	}
}

func TestParseEnvelopeTail(t *testing.T) {
	// Skip source frame 3, then 3 frames to the end of the cycle.
	env, err := ParseEnvelope([]byte{2, 3, EnvelopeEnd}, false)
	require.NoError(t, err)

	require.Len(t, env.Steps, 3)
	assert.Equal(t, StepAdjust, env.Steps[0].Kind)
	assert.Equal(t, StepTail, env.Steps[1].Kind)
	assert.Equal(t, StepEnd, env.Steps[2].Kind)
	assert.Equal(t, []int{3}, env.Adjustments())
	assert.Equal(t, 6, env.SourceFrames())
}

func TestEngineEnvelopeCaches(t *testing.T) {
	e := NewEngine()
	g := Groove{6, 6, 7}

	first, err := e.Envelope(g, PadMiddle, false)
	require.NoError(t, err)
	second, err := e.Envelope(g, PadMiddle, false)
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Equal(t, int64(1), e.Stats().Envelopes)

	// Results are copies.
	first[0] = 0x7F
	third, err := e.Envelope(g, PadMiddle, false)
	require.NoError(t, err)
	assert.Equal(t, second, third)

	_, err = e.Envelope(g, PadMiddle, true)
	require.NoError(t, err)
	assert.Equal(t, int64(2), e.Stats().Envelopes)

	steps, err := e.EnvelopeSteps(g, PadMiddle, false)
	require.NoError(t, err)
	assert.Equal(t, second, steps.Bytes())
	assert.Equal(t, int64(2), e.Stats().Envelopes)
}

func TestEngineEnvelopeConcurrent(t *testing.T) {
	e := NewEngine()
	g := Groove{8, 8, 9, 8}

	const workers = 32
	results := make([][]byte, workers)
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			raw, err := e.Envelope(g, PadEnd, true)
			if err == nil {
				results[i] = raw
			}
		}(i)
	}
	wg.Wait()

	assert.Equal(t, int64(1), e.Stats().Envelopes)
	for _, r := range results {
		assert.Equal(t, results[0], r)
	}
}
