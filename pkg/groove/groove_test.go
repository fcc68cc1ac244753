package groove

import (
	"errors"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// makeGroove builds a valid groove from generator output
func makeGroove(n, base int, bumps []bool) Groove {
	g := make(Groove, n)
	for i := range g {
		g[i] = base
		if i < len(bumps) && bumps[i] {
			g[i]++
		}
	}
	return g
}

func grooveProperties(t *testing.T, minSuccessful int) *gopter.Properties {
	t.Helper()
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = minSuccessful
	return gopter.NewProperties(parameters)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name  string
		g     Groove
		valid bool
	}{
		{"uniform", Groove{6}, true},
		{"two adjacent lengths", Groove{6, 7}, true},
		{"max length", Groove{18, 17, 18, 17, 18, 17, 18, 17}, true},
		{"shortest note", Groove{1, 2}, true},
		{"empty", Groove{}, false},
		{"nil", nil, false},
		{"gap of two", Groove{6, 8}, false},
		{"too slow", Groove{19}, false},
		{"zero length", Groove{0}, false},
		{"negative", Groove{-3, -3}, false},
		{"too long", Groove{6, 6, 6, 6, 6, 6, 6, 6, 6}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.valid, Valid(tt.g))
			err := Validate(tt.g)
			if tt.valid {
				assert.NoError(t, err)
			} else {
				assert.True(t, errors.Is(err, ErrInvalidGroove), "Validate(%v) = %v", tt.g, err)
			}
		})
	}
}

func TestValidateGeneratedGrooves(t *testing.T) {
	properties := grooveProperties(t, 200)

	properties.Property("grooves of adjacent lengths are valid", grooveProp(
		func(n, base int, bumps []bool) bool {
			return Valid(makeGroove(n, base, bumps))
		},
	))

	properties.Property("a gap of two or more is invalid", grooveProp(
		func(n, base int, bumps []bool) bool {
			g := makeGroove(n, base, bumps)
			g = append(g, base+3)
			return !Valid(g)
		},
	))

	properties.TestingRun(t)
}

func TestParseGroove(t *testing.T) {
	g, err := ParseGroove("6,6,7")
	require.NoError(t, err)
	assert.Equal(t, Groove{6, 6, 7}, g)

	g, err = ParseGroove(" 8, 9 ")
	require.NoError(t, err)
	assert.Equal(t, Groove{8, 9}, g)

	_, err = ParseGroove("6,x")
	assert.ErrorIs(t, err, ErrInvalidGroove)

	_, err = ParseGroove("6,8")
	assert.ErrorIs(t, err, ErrInvalidGroove)
}

func TestGrooveHelpers(t *testing.T) {
	g := Groove{7, 6, 6}
	assert.Equal(t, 6, g.Min())
	assert.Equal(t, 7, g.Max())
	assert.Equal(t, 19, g.Sum())
	assert.Equal(t, "7-6-6", g.String())
	assert.Equal(t, "7,6,6", g.key())

	c := g.Clone()
	c[0] = 1
	assert.Equal(t, 7, g[0])
}

func TestParseDomain(t *testing.T) {
	d, err := ParseDomain("PAL")
	require.NoError(t, err)
	assert.Equal(t, PAL, d)
	assert.Equal(t, NTSC, d.Other())

	d, err = ParseDomain("ntsc")
	require.NoError(t, err)
	assert.Equal(t, NTSC, d)

	_, err = ParseDomain("secam")
	assert.ErrorIs(t, err, ErrUnknownDomain)

	src, dst := NTSC.Factors()
	assert.Equal(t, []int{6, 5}, []int{src, dst})
	src, dst = PAL.Factors()
	assert.Equal(t, []int{5, 6}, []int{src, dst})
}

func TestParsePaddingMode(t *testing.T) {
	for _, mode := range PaddingModes {
		parsed, err := ParsePaddingMode(mode.String())
		require.NoError(t, err)
		assert.Equal(t, mode, parsed)
	}

	_, err := ParsePaddingMode("sideways")
	assert.ErrorIs(t, err, ErrUnknownPadding)
}

func TestPadFramePosition(t *testing.T) {
	tests := []struct {
		minLen int
		mode   PaddingMode
		want   int
	}{
		{6, PadBeginning, 0},
		{6, PadMiddle, 3},
		{6, PadEnd, 6},
		{7, PadMiddle, 3},
		{1, PadMiddle, 0},
		{1, PadEnd, 1},
	}

	for _, tt := range tests {
		t.Run(tt.mode.String(), func(t *testing.T) {
			assert.Equal(t, tt.want, padFramePosition(tt.minLen, tt.mode))
		})
	}
}

// grooveProp checks a property over generated (length, base, bumps) inputs
func grooveProp(check func(n, base int, bumps []bool) bool) gopter.Prop {
	return groovePropWithBase(MinNoteLength, MaxNoteLength-1, check)
}

func groovePropWithBase(minBase, maxBase int, check func(n, base int, bumps []bool) bool) gopter.Prop {
	return prop.ForAll(
		check,
		gen.IntRange(1, MaxGrooveLength),
		gen.IntRange(minBase, maxBase),
		gen.SliceOfN(MaxGrooveLength, gen.Bool()),
	)
}
