package groove

import (
	"log/slog"
	"math"
	"sort"
)

// Catalog construction parameters
const (
	// CanonicalNotesPerBeat is the rate used for the dedup decision, so the
	// catalog contents do not depend on the caller's notes per beat.
	CanonicalNotesPerBeat = 4

	// BpmTolerance is the distance under which two tempos are duplicates.
	BpmTolerance = 0.5
)

// grooveTemplates are the two-length rhythms added on top of a base note
// length. Ones are spread evenly and their count is coprime with the
// template length, so no template is a repetition of a shorter one.
var grooveTemplates = [][]int{
	{0},
	{1, 0},
	{1, 0, 0},
	{1, 1, 0},
	{1, 0, 0, 0},
	{1, 1, 1, 0},
	{1, 0, 0, 0, 0},
	{1, 0, 1, 0, 0},
	{1, 1, 0, 1, 0},
	{1, 1, 1, 1, 0},
	{1, 0, 0, 0, 0, 0},
	{1, 1, 1, 1, 1, 0},
	{1, 0, 0, 0, 0, 0, 0},
	{1, 0, 0, 1, 0, 0, 0},
	{1, 0, 1, 0, 1, 0, 0},
	{1, 1, 0, 1, 0, 1, 0},
	{1, 1, 1, 0, 1, 1, 0},
	{1, 1, 1, 1, 1, 1, 0},
	{1, 0, 0, 0, 0, 0, 0, 0},
	{1, 0, 0, 1, 0, 1, 0, 0},
	{1, 1, 0, 1, 1, 0, 1, 0},
	{1, 1, 1, 1, 1, 1, 1, 0},
}

// BuildCatalog enumerates the playable grooves of both domains. The two
// lists hold the same grooves, each sorted by its BPM at notesPerBeat.
func BuildCatalog(notesPerBeat int) (ntsc, pal []TempoInfo) {
	return buildCatalog(notesPerBeat, slog.Default())
}

func buildCatalog(notesPerBeat int, logger *slog.Logger) (ntsc, pal []TempoInfo) {
	slowest := Groove{MaxNoteLength}
	grooves := []Groove{slowest}
	ntscBpms := []float64{ComputeBpm(NTSC, slowest, CanonicalNotesPerBeat)}
	palBpms := []float64{ComputeBpm(PAL, slowest, CanonicalNotesPerBeat)}

	for _, template := range grooveTemplates {
		for base := MaxNoteLength - 1; base >= MinNoteLength; base-- {
			g := make(Groove, len(template))
			for i, t := range template {
				g[i] = base + t
			}

			if err := Validate(g); err != nil {
				logger.Warn("skipping generated groove", "groove", g.String(), "error", err)
				continue
			}

			bpmNtsc := ComputeBpm(NTSC, g, CanonicalNotesPerBeat)
			bpmPal := ComputeBpm(PAL, g, CanonicalNotesPerBeat)

			// Short grooves are always offered. Longer ones are dropped only
			// when both domains already have a tempo close enough.
			if len(g) > 2 && hasNearTempo(ntscBpms, bpmNtsc) && hasNearTempo(palBpms, bpmPal) {
				continue
			}

			grooves = append(grooves, g)
			ntscBpms = append(ntscBpms, bpmNtsc)
			palBpms = append(palBpms, bpmPal)
		}
	}

	ntsc = make([]TempoInfo, len(grooves))
	pal = make([]TempoInfo, len(grooves))
	for i, g := range grooves {
		ntsc[i] = TempoInfo{BPM: ComputeBpm(NTSC, g, notesPerBeat), Groove: g}
		pal[i] = TempoInfo{BPM: ComputeBpm(PAL, g, notesPerBeat), Groove: g.Clone()}
	}
	sortTempos(ntsc)
	sortTempos(pal)

	logger.Debug("built groove catalog", "grooves", len(grooves), "notes_per_beat", notesPerBeat)
	return ntsc, pal
}

func hasNearTempo(bpms []float64, bpm float64) bool {
	for _, b := range bpms {
		if math.Abs(b-bpm) < BpmTolerance {
			return true
		}
	}
	return false
}

func sortTempos(tempos []TempoInfo) {
	sort.SliceStable(tempos, func(i, j int) bool {
		return tempos[i].BPM < tempos[j].BPM
	})
}
