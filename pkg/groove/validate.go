package groove

import "fmt"

// Validate checks that a groove can be played and converted
func Validate(g Groove) error {
	if len(g) == 0 {
		return fmt.Errorf("%w: empty", ErrInvalidGroove)
	}
	if len(g) > MaxGrooveLength {
		return fmt.Errorf("%w: %d notes, max %d", ErrInvalidGroove, len(g), MaxGrooveLength)
	}
	for i, v := range g {
		if v < MinNoteLength || v > MaxNoteLength {
			return fmt.Errorf("%w: note %d has length %d, want %d-%d",
				ErrInvalidGroove, i, v, MinNoteLength, MaxNoteLength)
		}
	}
	if lo, hi := g.Min(), g.Max(); hi-lo > 1 {
		return fmt.Errorf("%w: mixes lengths %d and %d", ErrInvalidGroove, lo, hi)
	}
	return nil
}

// Valid reports whether Validate accepts g
func Valid(g Groove) bool {
	return Validate(g) == nil
}
