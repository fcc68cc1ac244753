package groove

// frameTable maps a logical frame index to the physical frame where it
// begins, for logical frames 0..MaxPatternLength.
type frameTable struct {
	frames       []int
	cycleLogical int
	cycleFrames  int
}

// buildFrameTable runs the groove iterator once over MaxPatternLength
// logical frames. A pad frame at the start of a note belongs to the note's
// first logical frame; any other pad frame is skipped.
func buildFrameTable(g Groove, mode PaddingMode) *frameTable {
	it := newGrooveIterator(g, mode)
	frames := make([]int, 0, MaxPatternLength+1)

	for len(frames) <= MaxPatternLength {
		if it.IsPadFrame() {
			if it.NoteFrame() == 0 {
				frames = append(frames, it.Frame())
				it.Advance()
				it.Advance()
				continue
			}
			it.Advance()
			continue
		}
		frames = append(frames, it.Frame())
		it.Advance()
	}

	return &frameTable{
		frames:       frames,
		cycleLogical: len(g) * g.Min(),
		cycleFrames:  g.Sum(),
	}
}

// lookup returns the physical frame of logical frame length. Lengths past
// the table are extrapolated from the groove period.
func (t *frameTable) lookup(length int) int {
	if length <= 0 {
		return 0
	}
	if length < len(t.frames) {
		return t.frames[length]
	}
	cycles := length / t.cycleLogical
	return cycles*t.cycleFrames + t.frames[length%t.cycleLogical]
}

// Resolve returns the number of physical frames spanned by the first length
// logical frames of a groove, where each note spans g.Min() logical frames.
// Resolve(3, Groove{6, 6, 7}, PadMiddle) is 3, still inside the first note,
// while note index 3 starts at Resolve(3*6, ...) = 19. It builds a frame table on
// every call; use Engine.Resolve for cached lookups.
func Resolve(length int, g Groove, mode PaddingMode) (int, error) {
	if err := Validate(g); err != nil {
		return 0, err
	}
	return buildFrameTable(g, mode).lookup(length), nil
}
