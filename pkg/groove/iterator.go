package groove

// grooveIterator walks the physical frames of a groove, one frame at a time,
// wrapping around at the end of the groove.
type grooveIterator struct {
	groove    Groove
	minLen    int
	padPos    int
	frame     int // absolute frame index
	noteFrame int // position within the current note
	note      int // active groove entry
}

func newGrooveIterator(g Groove, mode PaddingMode) *grooveIterator {
	minLen := g.Min()
	return &grooveIterator{
		groove: g,
		minLen: minLen,
		padPos: padFramePosition(minLen, mode),
	}
}

// Frame returns the absolute frame index
func (it *grooveIterator) Frame() int { return it.frame }

// NoteFrame returns the position within the current note
func (it *grooveIterator) NoteFrame() int { return it.noteFrame }

// IsPadFrame reports whether the current frame is the extra frame of a
// note longer than the groove's minimum length.
func (it *grooveIterator) IsPadFrame() bool {
	return it.groove[it.note] != it.minLen && it.noteFrame == it.padPos
}

// Advance moves to the next physical frame
func (it *grooveIterator) Advance() {
	it.frame++
	it.noteFrame++
	if it.noteFrame == it.groove[it.note] {
		it.noteFrame = 0
		it.note = (it.note + 1) % len(it.groove)
	}
}
