// Package groove converts tempos between the NTSC and PAL refresh-rate domains
// using only integer frame arithmetic.
package groove

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// Groove limits
const (
	MinNoteLength   = 1
	MaxNoteLength   = 18
	MaxGrooveLength = 8

	// MaxPatternLength is the number of logical frames held in a frame table.
	MaxPatternLength = 256
)

// Errors
var (
	ErrInvalidGroove     = errors.New("invalid groove")
	ErrUnknownDomain     = errors.New("unknown tempo domain")
	ErrUnknownPadding    = errors.New("unknown padding mode")
	ErrMalformedEnvelope = errors.New("malformed tempo envelope")
)

// Groove is a repeating pattern of per-note frame lengths
type Groove []int

// NewGroove copies values into a validated Groove
func NewGroove(values ...int) (Groove, error) {
	g := Groove(values).Clone()
	if err := Validate(g); err != nil {
		return nil, err
	}
	return g, nil
}

// ParseGroove parses a comma separated list such as "6,6,7"
func ParseGroove(s string) (Groove, error) {
	fields := strings.FieldsFunc(s, func(r rune) bool {
		return r == ',' || r == ' '
	})
	values := make([]int, 0, len(fields))
	for _, f := range fields {
		v, err := strconv.Atoi(f)
		if err != nil {
			return nil, fmt.Errorf("%w: %q is not a number", ErrInvalidGroove, f)
		}
		values = append(values, v)
	}
	return NewGroove(values...)
}

// Clone returns a copy of the groove
func (g Groove) Clone() Groove {
	if g == nil {
		return nil
	}
	c := make(Groove, len(g))
	copy(c, g)
	return c
}

// Min returns the shortest note length
func (g Groove) Min() int {
	m := g[0]
	for _, v := range g[1:] {
		if v < m {
			m = v
		}
	}
	return m
}

// Max returns the longest note length
func (g Groove) Max() int {
	m := g[0]
	for _, v := range g[1:] {
		if v > m {
			m = v
		}
	}
	return m
}

// Sum returns the number of frames in one groove cycle
func (g Groove) Sum() int {
	s := 0
	for _, v := range g {
		s += v
	}
	return s
}

// String formats the groove the way trackers display it, e.g. "6-6-7"
func (g Groove) String() string {
	parts := make([]string, len(g))
	for i, v := range g {
		parts[i] = strconv.Itoa(v)
	}
	return strings.Join(parts, "-")
}

// key is the cache key for the groove contents
func (g Groove) key() string {
	var b strings.Builder
	for i, v := range g {
		if i > 0 {
			b.WriteByte(',')
		}
		b.WriteString(strconv.Itoa(v))
	}
	return b.String()
}

// Domain is a hardware refresh-rate domain
type Domain int

const (
	NTSC Domain = iota
	PAL
)

// ParseDomain parses "ntsc" or "pal"
func ParseDomain(s string) (Domain, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "ntsc", "60", "60hz":
		return NTSC, nil
	case "pal", "50", "50hz":
		return PAL, nil
	default:
		return NTSC, fmt.Errorf("%w: %q", ErrUnknownDomain, s)
	}
}

func (d Domain) String() string {
	if d == PAL {
		return "pal"
	}
	return "ntsc"
}

// IsPal reports whether d is the PAL domain
func (d Domain) IsPal() bool { return d == PAL }

// Other returns the opposite domain
func (d Domain) Other() Domain {
	if d == PAL {
		return NTSC
	}
	return PAL
}

// FrameRate returns the nominal refresh rate in Hz
func (d Domain) FrameRate() int {
	if d == PAL {
		return 50
	}
	return 60
}

// BpmNumerator is the number of frames per minute
func (d Domain) BpmNumerator() float64 {
	return float64(d.FrameRate() * 60)
}

// Factors returns the reduced (srcFactor, dstFactor) pair for converting
// from d to the other domain.
func (d Domain) Factors() (src, dst int) {
	if d == PAL {
		return 5, 6
	}
	return 6, 5
}

// PaddingMode selects which frame of a long note is adjustable
type PaddingMode int

const (
	PadBeginning PaddingMode = iota
	PadMiddle
	PadEnd
)

// PaddingModes lists every padding mode
var PaddingModes = []PaddingMode{PadBeginning, PadMiddle, PadEnd}

// ParsePaddingMode parses "beginning", "middle" or "end"
func ParsePaddingMode(s string) (PaddingMode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "beginning", "begin", "start":
		return PadBeginning, nil
	case "middle", "mid", "":
		return PadMiddle, nil
	case "end":
		return PadEnd, nil
	default:
		return PadMiddle, fmt.Errorf("%w: %q", ErrUnknownPadding, s)
	}
}

func (p PaddingMode) String() string {
	switch p {
	case PadBeginning:
		return "beginning"
	case PadEnd:
		return "end"
	default:
		return "middle"
	}
}

// padFramePosition returns the intra-note index of the pad frame of a note
// one frame longer than minLen.
func padFramePosition(minLen int, mode PaddingMode) int {
	switch mode {
	case PadBeginning:
		return 0
	case PadEnd:
		return minLen
	default:
		return minLen / 2
	}
}

// TempoInfo is a catalog entry
type TempoInfo struct {
	BPM    float64 `json:"bpm"`
	Groove Groove  `json:"groove"`
}
