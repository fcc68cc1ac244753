package groove

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGrooveIterator(t *testing.T) {
	it := newGrooveIterator(Groove{6, 6, 7}, PadMiddle)

	var pads []int
	for it.Frame() < 38 {
		if it.IsPadFrame() {
			pads = append(pads, it.Frame())
		}
		it.Advance()
	}

	// The long note starts at frame 12 and again at 31.
	assert.Equal(t, []int{15, 34}, pads)
}

func TestResolve(t *testing.T) {
	tests := []struct {
		name   string
		g      Groove
		mode   PaddingMode
		length int
		want   int
	}{
		{"uniform", Groove{6}, PadMiddle, 10, 10},
		{"zero", Groove{6, 6, 7}, PadMiddle, 0, 0},
		{"before pad", Groove{6, 6, 7}, PadMiddle, 3, 3},
		{"at pad", Groove{6, 6, 7}, PadMiddle, 15, 16},
		{"after pad", Groove{6, 6, 7}, PadMiddle, 16, 17},
		{"full cycle", Groove{6, 6, 7}, PadMiddle, 18, 19},
		{"two cycles", Groove{6, 6, 7}, PadMiddle, 36, 38},
		{"beginning keeps note start", Groove{7, 6}, PadBeginning, 0, 0},
		{"beginning skips leading pad", Groove{7, 6}, PadBeginning, 1, 2},
		{"beginning next note", Groove{7, 6}, PadBeginning, 6, 7},
		{"end before pad", Groove{6, 7}, PadEnd, 11, 11},
		{"end skips trailing pad", Groove{6, 7}, PadEnd, 12, 13},
		{"negative length", Groove{6, 7}, PadEnd, -4, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Resolve(tt.length, tt.g, tt.mode)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestResolveInvalidGroove(t *testing.T) {
	_, err := Resolve(4, Groove{6, 9}, PadMiddle)
	assert.ErrorIs(t, err, ErrInvalidGroove)
}

func TestResolvePastTable(t *testing.T) {
	g := Groove{6, 6, 7}
	length := MaxPatternLength + 22

	// Every 18 logical frames span 19 physical ones, and the remaining 8
	// logical frames end before the pad.
	want := 15*19 + 8
	got, err := Resolve(length, g, PadMiddle)
	require.NoError(t, err)
	assert.Equal(t, want, got)
}

func TestFrameTableProperties(t *testing.T) {
	properties := grooveProperties(t, 100)

	for _, mode := range PaddingModes {
		mode := mode

		properties.Property("note offsets are cumulative lengths ("+mode.String()+")", grooveProp(
			func(n, base int, bumps []bool) bool {
				g := makeGroove(n, base, bumps)
				table := buildFrameTable(g, mode)
				offset := 0
				for note := 0; note < 3*len(g); note++ {
					if table.lookup(note*g.Min()) != offset {
						return false
					}
					offset += g[note%len(g)]
				}
				return true
			},
		))

		properties.Property("table is strictly increasing and periodic ("+mode.String()+")", grooveProp(
			func(n, base int, bumps []bool) bool {
				g := makeGroove(n, base, bumps)
				table := buildFrameTable(g, mode)
				for l := 1; l <= MaxPatternLength; l++ {
					if table.frames[l] <= table.frames[l-1] {
						return false
					}
					periodic := (l/table.cycleLogical)*table.cycleFrames + table.frames[l%table.cycleLogical]
					if table.frames[l] != periodic {
						return false
					}
				}
				return true
			},
		))
	}

	properties.TestingRun(t)
}

func TestEngineResolveCaches(t *testing.T) {
	e := NewEngine()
	g := Groove{6, 6, 7}

	first, err := e.Resolve(18, g, PadMiddle)
	require.NoError(t, err)
	second, err := e.Resolve(18, g, PadMiddle)
	require.NoError(t, err)

	assert.Equal(t, 19, first)
	assert.Equal(t, first, second)
	assert.Equal(t, int64(1), e.Stats().FrameTables)

	offset, err := e.NoteOffset(3, g, PadMiddle)
	require.NoError(t, err)
	assert.Equal(t, 19, offset)
	assert.Equal(t, int64(1), e.Stats().FrameTables)

	_, err = e.Resolve(18, g, PadEnd)
	require.NoError(t, err)
	assert.Equal(t, int64(2), e.Stats().FrameTables)
}
