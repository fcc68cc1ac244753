package groove

import (
	"fmt"
	"log/slog"
	"strconv"
)

// Engine owns the groove caches. It is safe for concurrent use; every cached
// value is computed at most once and never modified afterwards.
type Engine struct {
	logger       *slog.Logger
	catalogs     *memo[catalog]
	frameTables  *memo[*frameTable]
	envelopes    *memo[[]byte]
	permutations *memo[[]Groove]
}

type catalog struct {
	ntsc []TempoInfo
	pal  []TempoInfo
}

// Stats counts the computations performed by each cache
type Stats struct {
	Catalogs     int64 `json:"catalogs"`
	FrameTables  int64 `json:"frame_tables"`
	Envelopes    int64 `json:"envelopes"`
	Permutations int64 `json:"permutations"`
}

// Option configures an Engine
type Option func(*Engine)

// WithLogger sets the engine logger
func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) {
		if logger != nil {
			e.logger = logger
		}
	}
}

// NewEngine creates an Engine with empty caches
func NewEngine(opts ...Option) *Engine {
	e := &Engine{
		logger:       slog.Default(),
		catalogs:     newMemo[catalog](),
		frameTables:  newMemo[*frameTable](),
		envelopes:    newMemo[[]byte](),
		permutations: newMemo[[]Groove](),
	}
	for _, opt := range opts {
		opt(e)
	}
	e.logger = e.logger.With("component", "groove")
	return e
}

// Tempos returns the tempo catalog of a domain, sorted by BPM
func (e *Engine) Tempos(domain Domain, notesPerBeat int) []TempoInfo {
	c := e.catalogs.get(strconv.Itoa(notesPerBeat), func() catalog {
		ntsc, pal := buildCatalog(notesPerBeat, e.logger)
		return catalog{ntsc: ntsc, pal: pal}
	})

	src := c.ntsc
	if domain == PAL {
		src = c.pal
	}
	out := make([]TempoInfo, len(src))
	for i, t := range src {
		out[i] = TempoInfo{BPM: t.BPM, Groove: t.Groove.Clone()}
	}
	return out
}

// Resolve returns the number of physical frames spanned by the first length
// logical frames of a groove. A logical frame is one frame of a note played
// at the groove's minimum length, so length counts frames, not notes; use
// NoteOffset to look up a note index.
func (e *Engine) Resolve(length int, g Groove, mode PaddingMode) (int, error) {
	t, err := e.frameTable(g, mode)
	if err != nil {
		return 0, err
	}
	return t.lookup(length), nil
}

// NoteOffset returns the physical frame where note starts, counting notes
// from zero across repeats of the groove.
func (e *Engine) NoteOffset(note int, g Groove, mode PaddingMode) (int, error) {
	t, err := e.frameTable(g, mode)
	if err != nil {
		return 0, err
	}
	return t.lookup(note * g.Min()), nil
}

func (e *Engine) frameTable(g Groove, mode PaddingMode) (*frameTable, error) {
	if err := Validate(g); err != nil {
		return nil, err
	}
	key := fmt.Sprintf("%s/%s", g.key(), mode)
	g = g.Clone()
	return e.frameTables.get(key, func() *frameTable {
		e.logger.Debug("building frame table", "groove", g.String(), "padding", mode.String())
		return buildFrameTable(g, mode)
	}), nil
}

// Envelope returns the raw tempo envelope for a groove authored in the
// source domain.
func (e *Engine) Envelope(g Groove, mode PaddingMode, sourceIsPal bool) ([]byte, error) {
	if err := Validate(g); err != nil {
		return nil, err
	}
	key := fmt.Sprintf("%s/%s/%s", g.key(), mode, sourceDomain(sourceIsPal))
	g = g.Clone()
	raw := e.envelopes.get(key, func() []byte {
		p := planEnvelope(g, mode, sourceIsPal)
		e.logger.Debug("generated tempo envelope",
			"groove", g.String(),
			"padding", mode.String(),
			"source", sourceDomain(sourceIsPal).String(),
			"frames", p.grooveFrames,
			"adapted_frames", p.adaptedFrames,
			"iterations", len(p.costHistory)-1,
			"cost", p.costHistory[len(p.costHistory)-1],
		)
		return p.envelope().Bytes()
	})

	out := make([]byte, len(raw))
	copy(out, raw)
	return out, nil
}

// EnvelopeSteps returns the cached envelope in its typed form
func (e *Engine) EnvelopeSteps(g Groove, mode PaddingMode, sourceIsPal bool) (Envelope, error) {
	raw, err := e.Envelope(g, mode, sourceIsPal)
	if err != nil {
		return Envelope{}, err
	}
	return ParseEnvelope(raw, sourceIsPal)
}

// Permutations returns the distinct orderings of a groove
func (e *Engine) Permutations(g Groove) ([]Groove, error) {
	if err := Validate(g); err != nil {
		return nil, err
	}
	g = g.Clone()
	perms := e.permutations.get(g.key(), func() []Groove {
		return permutations(g)
	})

	out := make([]Groove, len(perms))
	for i, p := range perms {
		out[i] = p.Clone()
	}
	return out, nil
}

// Stats returns the number of computations each cache has performed
func (e *Engine) Stats() Stats {
	return Stats{
		Catalogs:     e.catalogs.computes.Load(),
		FrameTables:  e.frameTables.computes.Load(),
		Envelopes:    e.envelopes.computes.Load(),
		Permutations: e.permutations.computes.Load(),
	}
}
