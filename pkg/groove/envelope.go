package groove

import (
	"bytes"
	"fmt"
)

// EnvelopeEnd terminates a raw tempo envelope. It is never a valid delta.
const EnvelopeEnd = 0x80

// StepKind tags an envelope step
type StepKind string

const (
	// StepAdjust holds the source frame distance from the previous adjusted
	// frame (frame 0 for the first) to the next skipped (NTSC source) or
	// doubled (PAL source) frame, biased by +1 for a PAL source and -1 for
	// an NTSC source.
	StepAdjust StepKind = "adjust"
	// StepTail holds the unbiased source frames from the last adjusted frame
	// to the end of the cycle.
	StepTail StepKind = "tail"
	// StepEnd is the terminator.
	StepEnd StepKind = "end"
)

// Step is one entry of a tempo envelope
type Step struct {
	Kind   StepKind `json:"kind"`
	Frames int      `json:"frames"`
}

// Envelope tells a runtime player when to skip or double a frame so that a
// groove written for one domain keeps its tempo on the other.
type Envelope struct {
	SourceIsPal bool   `json:"source_is_pal"`
	Steps       []Step `json:"steps"`
}

// bias is added to the source-frame gap of every adjustment
func envelopeBias(sourceIsPal bool) int {
	if sourceIsPal {
		return 1
	}
	return -1
}

func sourceDomain(sourceIsPal bool) Domain {
	if sourceIsPal {
		return PAL
	}
	return NTSC
}

// Bytes encodes the envelope in the player's wire format: one signed byte
// per step followed by EnvelopeEnd.
func (e Envelope) Bytes() []byte {
	out := make([]byte, 0, len(e.Steps))
	for _, s := range e.Steps {
		if s.Kind == StepEnd {
			break
		}
		out = append(out, byte(int8(s.Frames)))
	}
	return append(out, EnvelopeEnd)
}

// PlaybackFrames returns the number of frames played in the playback domain
// over one envelope cycle.
func (e Envelope) PlaybackFrames() int {
	total := 0
	for _, s := range e.Steps {
		total += s.Frames
	}
	return total
}

// SourceFrames returns the number of authored frames covered by one cycle
func (e Envelope) SourceFrames() int {
	bias := envelopeBias(e.SourceIsPal)
	total := 0
	for _, s := range e.Steps {
		switch s.Kind {
		case StepAdjust:
			total += s.Frames - bias
		case StepTail:
			total += s.Frames
		}
	}
	return total
}

// Adjustments returns the source frame indices that are skipped or doubled
func (e Envelope) Adjustments() []int {
	bias := envelopeBias(e.SourceIsPal)
	var frames []int
	frame := 0
	for _, s := range e.Steps {
		if s.Kind != StepAdjust {
			continue
		}
		frame += s.Frames - bias
		frames = append(frames, frame)
	}
	return frames
}

// ParseEnvelope decodes a raw envelope. The number of adjustments is implied
// by the playback frame count, which identifies a trailing tail step.
func ParseEnvelope(raw []byte, sourceIsPal bool) (Envelope, error) {
	end := bytes.IndexByte(raw, EnvelopeEnd)
	switch {
	case end < 0:
		return Envelope{}, fmt.Errorf("%w: missing 0x%02X terminator", ErrMalformedEnvelope, EnvelopeEnd)
	case end != len(raw)-1:
		return Envelope{}, fmt.Errorf("%w: %d bytes after terminator", ErrMalformedEnvelope, len(raw)-1-end)
	case end == 0:
		return Envelope{}, fmt.Errorf("%w: no steps", ErrMalformedEnvelope)
	}

	values := make([]int, end)
	sum := 0
	for i, b := range raw[:end] {
		values[i] = int(int8(b))
		sum += values[i]
	}

	_, dst := sourceDomain(sourceIsPal).Factors()
	if sum <= 0 || sum%dst != 0 {
		return Envelope{}, fmt.Errorf("%w: %d playback frames is not a multiple of %d", ErrMalformedEnvelope, sum, dst)
	}

	adjusts := sum / dst
	if len(values) != adjusts && len(values) != adjusts+1 {
		return Envelope{}, fmt.Errorf("%w: %d steps for %d adjustments", ErrMalformedEnvelope, len(values), adjusts)
	}

	env := Envelope{SourceIsPal: sourceIsPal, Steps: make([]Step, 0, len(values)+1)}
	for i, v := range values {
		kind := StepAdjust
		if i == adjusts {
			kind = StepTail
		}
		env.Steps = append(env.Steps, Step{Kind: kind, Frames: v})
	}
	env.Steps = append(env.Steps, Step{Kind: StepEnd})
	return env, nil
}

// envelopePlan holds the intermediate state of envelope generation
type envelopePlan struct {
	sourceIsPal   bool
	srcFactor     int
	dstFactor     int
	repeatCount   int
	grooveFrames  int
	adaptedFrames int
	important     []bool
	markers       []bool
	costHistory   []int
}

func planEnvelope(g Groove, mode PaddingMode, sourceIsPal bool) *envelopePlan {
	src, dst := sourceDomain(sourceIsPal).Factors()

	// Repeat the groove until its frame count divides evenly.
	p := &envelopePlan{sourceIsPal: sourceIsPal, srcFactor: src, dstFactor: dst}
	for {
		p.repeatCount++
		p.grooveFrames += g.Sum()
		if p.grooveFrames%src == 0 {
			break
		}
	}
	p.adaptedFrames = p.grooveFrames / src * dst

	p.important = importantFrames(g, mode, p.repeatCount, p.grooveFrames)

	numSkip := p.adaptedFrames - p.grooveFrames
	if numSkip < 0 {
		numSkip = -numSkip
	}
	p.markers = make([]bool, p.grooveFrames)
	for i := 0; i < numSkip; i++ {
		p.markers[i*src+src/2] = true
	}

	p.costHistory = newMarkerOptimizer(p.important, p.markers, src).run()
	return p
}

// importantFrames marks the first and last frame of every note. In a note
// longer than the minimum, the pad frame is left adjustable and its
// neighbour takes its place.
func importantFrames(g Groove, mode PaddingMode, repeat, total int) []bool {
	minLen := g.Min()
	padPos := padFramePosition(minLen, mode)
	important := make([]bool, total)

	frame := 0
	for r := 0; r < repeat; r++ {
		for _, length := range g {
			first, last := frame, frame+length-1
			if length != minLen {
				if padPos == 0 {
					first++
				}
				if padPos == length-1 {
					last--
				}
			}
			important[first] = true
			important[last] = true
			frame += length
		}
	}
	return important
}

func (p *envelopePlan) envelope() Envelope {
	bias := envelopeBias(p.sourceIsPal)
	env := Envelope{SourceIsPal: p.sourceIsPal}

	prev := 0
	for i, m := range p.markers {
		if !m {
			continue
		}
		env.Steps = append(env.Steps, Step{Kind: StepAdjust, Frames: i - prev + bias})
		prev = i
	}
	// Markers sit inside the cycle, so the tail is at least one frame.
	env.Steps = append(env.Steps, Step{Kind: StepTail, Frames: p.grooveFrames - prev})
	env.Steps = append(env.Steps, Step{Kind: StepEnd})
	return env
}

// GenerateEnvelope builds the tempo envelope converting g from its source
// domain to the other one. It runs the optimizer on every call; use
// Engine.Envelope for cached results.
func GenerateEnvelope(g Groove, mode PaddingMode, sourceIsPal bool) (Envelope, error) {
	if err := Validate(g); err != nil {
		return Envelope{}, err
	}
	return planEnvelope(g, mode, sourceIsPal).envelope(), nil
}
