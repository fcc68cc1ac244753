// Package export writes tempo envelopes and groove previews to files
package export

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/james-see/grooveshift/pkg/groove"
)

// Format represents an output file format
type Format string

const (
	FormatMIDI    Format = "midi"
	FormatAsm     Format = "asm"
	FormatBinary  Format = "bin"
	FormatUnknown Format = "unknown"
)

// ErrUnknownFormat is returned when no format matches a file name
var ErrUnknownFormat = errors.New("unknown output format")

// DetectFormat detects the output format from a file extension
func DetectFormat(filename string) Format {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".mid", ".midi":
		return FormatMIDI
	case ".s", ".asm", ".inc":
		return FormatAsm
	case ".bin", ".env":
		return FormatBinary
	default:
		return FormatUnknown
	}
}

// Exporter renders engine results to files
type Exporter struct {
	engine *groove.Engine
	midi   *MIDIWriter
}

// New creates an Exporter backed by engine
func New(engine *groove.Engine) *Exporter {
	return &Exporter{engine: engine, midi: NewMIDIWriter()}
}

// EnvelopeRequest selects a tempo envelope
type EnvelopeRequest struct {
	Groove      groove.Groove
	Padding     groove.PaddingMode
	SourceIsPal bool
}

// Envelope renders an envelope in the given format
func (x *Exporter) Envelope(req EnvelopeRequest, format Format, label string) ([]byte, error) {
	raw, err := x.engine.Envelope(req.Groove, req.Padding, req.SourceIsPal)
	if err != nil {
		return nil, err
	}

	switch format {
	case FormatBinary:
		return raw, nil
	case FormatAsm:
		src := groove.NTSC
		if req.SourceIsPal {
			src = groove.PAL
		}
		comment := fmt.Sprintf("tempo envelope %s, %s padding, %s to %s",
			req.Groove, req.Padding, src, src.Other())
		return []byte(EnvelopeAsm(label, comment, raw)), nil
	default:
		return nil, fmt.Errorf("%w: %s for envelope", ErrUnknownFormat, format)
	}
}

// EnvelopeFile writes an envelope to path, picking the format from the
// extension.
func (x *Exporter) EnvelopeFile(req EnvelopeRequest, path string) error {
	format := DetectFormat(path)
	if format == FormatUnknown {
		return fmt.Errorf("%w: %s", ErrUnknownFormat, path)
	}

	label := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	data, err := x.Envelope(req, format, label)
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write envelope: %w", err)
	}
	return nil
}

// PreviewFile writes a MIDI preview of a groove to path
func (x *Exporter) PreviewFile(req PreviewRequest, path string) error {
	if format := DetectFormat(path); format != FormatMIDI {
		return fmt.Errorf("%w: %s for preview", ErrUnknownFormat, path)
	}

	data, err := x.midi.GroovePreview(x.engine, req)
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write preview: %w", err)
	}
	return nil
}

// Preview renders a MIDI preview of a groove
func (x *Exporter) Preview(req PreviewRequest) ([]byte, error) {
	return x.midi.GroovePreview(x.engine, req)
}
