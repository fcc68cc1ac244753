package export

import (
	"bytes"
	"errors"
	"fmt"

	"gitlab.com/gomidi/midi/v2"
	"gitlab.com/gomidi/midi/v2/smf"

	"github.com/james-see/grooveshift/pkg/groove"
)

// General MIDI percussion keys used for the click
const (
	drumChannel = 9
	beatKey     = 76 // hi wood block
	offbeatKey  = 77 // low wood block
)

// MaxPreviewNotes bounds the length of a click track
const MaxPreviewNotes = groove.MaxPatternLength

// ErrTooManyNotes is returned for a preview longer than MaxPreviewNotes
var ErrTooManyNotes = fmt.Errorf("preview is limited to %d notes", MaxPreviewNotes)

// PreviewRequest describes a groove preview
type PreviewRequest struct {
	Groove       groove.Groove
	Padding      groove.PaddingMode
	Domain       groove.Domain
	NotesPerBeat int
	Notes        int
}

// MIDIWriter renders groove note onsets as a click track
type MIDIWriter struct {
	beatVelocity    uint8
	offbeatVelocity uint8
}

// NewMIDIWriter creates a new MIDI writer
func NewMIDIWriter() *MIDIWriter {
	return &MIDIWriter{
		beatVelocity:    127,
		offbeatVelocity: 90,
	}
}

// GroovePreview renders req.Notes notes of a groove. The file runs at 60 BPM
// with the domain frame rate as resolution, so one tick is one frame.
func (m *MIDIWriter) GroovePreview(engine *groove.Engine, req PreviewRequest) ([]byte, error) {
	if engine == nil {
		return nil, errors.New("nil engine")
	}
	if err := groove.Validate(req.Groove); err != nil {
		return nil, err
	}
	if req.Notes <= 0 {
		req.Notes = 4 * len(req.Groove)
	}
	if req.Notes > MaxPreviewNotes {
		return nil, fmt.Errorf("%w: got %d", ErrTooManyNotes, req.Notes)
	}
	if req.NotesPerBeat <= 0 {
		req.NotesPerBeat = groove.CanonicalNotesPerBeat
	}

	s := smf.New()
	s.TimeFormat = smf.MetricTicks(uint16(req.Domain.FrameRate()))

	var track smf.Track
	bpm := groove.ComputeBpm(req.Domain, req.Groove, req.NotesPerBeat)
	track.Add(0, smf.MetaTrackSequenceName(fmt.Sprintf("groove %s (%s, %.2f bpm)", req.Groove, req.Domain, bpm)))
	track.Add(0, smf.MetaTempo(60))
	track.Add(0, smf.MetaMeter(4, 4))

	var currentTick uint32
	for note := 0; note < req.Notes; note++ {
		start, err := engine.NoteOffset(note, req.Groove, req.Padding)
		if err != nil {
			return nil, err
		}
		length := req.Groove[note%len(req.Groove)]

		key, velocity := uint8(offbeatKey), m.offbeatVelocity
		if note%req.NotesPerBeat == 0 {
			key, velocity = beatKey, m.beatVelocity
		}

		// Release one frame early to keep the gap between notes audible.
		duration := uint32(length - 1)
		if duration == 0 {
			duration = 1
		}

		track.Add(uint32(start)-currentTick, midi.NoteOn(drumChannel, key, velocity))
		track.Add(duration, midi.NoteOff(drumChannel, key))
		currentTick = uint32(start) + duration
	}

	end, err := engine.NoteOffset(req.Notes, req.Groove, req.Padding)
	if err != nil {
		return nil, err
	}
	track.Close(uint32(end) - currentTick)

	if err := s.Add(track); err != nil {
		return nil, fmt.Errorf("failed to add track: %w", err)
	}

	var buf bytes.Buffer
	if _, err := s.WriteTo(&buf); err != nil {
		return nil, fmt.Errorf("failed to write MIDI: %w", err)
	}
	return buf.Bytes(), nil
}
