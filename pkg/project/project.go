// Package project loads groove settings files. Grooves from a file are
// validated before anything else sees them.
package project

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/james-see/grooveshift/pkg/groove"
)

// Settings is the on-disk groove description for a song
type Settings struct {
	Name         string `yaml:"name" json:"name"`
	Domain       string `yaml:"domain" json:"domain"`
	NotesPerBeat int    `yaml:"notes_per_beat" json:"notes_per_beat"`
	Groove       []int  `yaml:"groove" json:"groove"`
	Padding      string `yaml:"padding" json:"padding"`
}

// Song is a validated Settings
type Song struct {
	Name         string
	Domain       groove.Domain
	NotesPerBeat int
	Groove       groove.Groove
	Padding      groove.PaddingMode
}

// BPM returns the song tempo in its own domain
func (s Song) BPM() float64 {
	return groove.ComputeBpm(s.Domain, s.Groove, s.NotesPerBeat)
}

// Load reads and validates a settings file
func Load(path string) (Song, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Song{}, fmt.Errorf("read settings: %w", err)
	}
	song, err := Parse(data)
	if err != nil {
		return Song{}, fmt.Errorf("%s: %w", path, err)
	}
	return song, nil
}

// Parse decodes and validates settings YAML
func Parse(data []byte) (Song, error) {
	var s Settings
	if err := yaml.Unmarshal(data, &s); err != nil {
		return Song{}, fmt.Errorf("parse settings: %w", err)
	}
	return s.Song()
}

// Song validates the settings. Missing domain, padding and notes per beat
// fall back to ntsc, middle and 4.
func (s Settings) Song() (Song, error) {
	domainName := s.Domain
	if strings.TrimSpace(domainName) == "" {
		domainName = groove.NTSC.String()
	}
	domain, err := groove.ParseDomain(domainName)
	if err != nil {
		return Song{}, err
	}

	padding, err := groove.ParsePaddingMode(s.Padding)
	if err != nil {
		return Song{}, err
	}

	npb := s.NotesPerBeat
	if npb == 0 {
		npb = groove.CanonicalNotesPerBeat
	}
	if npb < 0 {
		return Song{}, fmt.Errorf("invalid notes_per_beat %d", npb)
	}

	g, err := groove.NewGroove(s.Groove...)
	if err != nil {
		return Song{}, err
	}

	return Song{
		Name:         s.Name,
		Domain:       domain,
		NotesPerBeat: npb,
		Groove:       g,
		Padding:      padding,
	}, nil
}
