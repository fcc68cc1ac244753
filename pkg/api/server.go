// Package api provides the REST API server for grooveshift
package api

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/james-see/grooveshift/pkg/export"
	"github.com/james-see/grooveshift/pkg/groove"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
)

// @title Grooveshift API
// @version 1.0
// @description API for groove tempos, frame lookup and NTSC/PAL tempo envelopes
// @host localhost:8080
// @BasePath /api/v1

// Server serves the groove engine over HTTP
type Server struct {
	engine   *groove.Engine
	exporter *export.Exporter
	logger   *slog.Logger
	defaults Defaults
}

// Defaults fill in request fields that were left empty
type Defaults struct {
	Domain       groove.Domain
	NotesPerBeat int
	Padding      groove.PaddingMode
}

// NewServer creates a server backed by engine
func NewServer(engine *groove.Engine, logger *slog.Logger, defaults Defaults) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	if defaults.NotesPerBeat <= 0 {
		defaults.NotesPerBeat = groove.CanonicalNotesPerBeat
	}
	return &Server{
		engine:   engine,
		exporter: export.New(engine),
		logger:   logger.With("component", "api"),
		defaults: defaults,
	}
}

// Router builds the gin routes
func (s *Server) Router() *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(s.requestLogger())

	// CORS middleware
	r.Use(corsMiddleware())

	// Health check
	r.GET("/health", s.healthCheck)

	// API v1 routes
	v1 := r.Group("/api/v1")
	{
		v1.GET("/health", s.healthCheck)
		v1.GET("/domains", listDomains)
		v1.GET("/tempos", s.listTempos)
		v1.POST("/grooves/validate", s.validateGroove)
		v1.POST("/grooves/permutations", s.permutations)
		v1.POST("/frames", s.resolveFrames)
		v1.POST("/envelope", s.envelope)
		v1.POST("/export/midi", s.exportMIDI)
	}

	// Swagger docs
	r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	return r
}

// StartServer starts the API server on the specified port
func StartServer(port int, engine *groove.Engine, logger *slog.Logger, defaults Defaults) error {
	gin.SetMode(gin.ReleaseMode)
	s := NewServer(engine, logger, defaults)
	s.logger.Info("starting api server", "port", port)
	return s.Router().Run(fmt.Sprintf(":%d", port))
}

func corsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("Access-Control-Allow-Origin", "*")
		c.Header("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		c.Header("Access-Control-Allow-Headers", "Content-Type, Authorization")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	}
}

func (s *Server) requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		s.logger.Debug("request",
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"status", c.Writer.Status(),
			"duration", time.Since(start),
		)
	}
}

// GrooveRequest is the common body of groove endpoints
type GrooveRequest struct {
	Groove  []int  `json:"groove" binding:"required"`
	Padding string `json:"padding,omitempty"`
}

// FramesRequest asks for the physical frames of logical frame lengths, or of
// note indexes. A logical frame is one frame of a minimum-length note.
type FramesRequest struct {
	GrooveRequest
	Lengths []int `json:"lengths,omitempty"`
	Notes   []int `json:"notes,omitempty"`
}

// EnvelopeRequest asks for a tempo envelope
type EnvelopeRequest struct {
	GrooveRequest
	Source string `json:"source,omitempty"` // ntsc | pal
}

// MIDIRequest asks for a click track preview
type MIDIRequest struct {
	GrooveRequest
	Domain       string `json:"domain,omitempty"`
	NotesPerBeat int    `json:"notes_per_beat,omitempty"`
	Notes        int    `json:"notes,omitempty"`
}

// EnvelopeResponse is the JSON form of an envelope
type EnvelopeResponse struct {
	Groove        string        `json:"groove"`
	Padding       string        `json:"padding"`
	Source        string        `json:"source"`
	Bytes         []int         `json:"bytes"`
	Steps         []groove.Step `json:"steps"`
	SourceFrames  int           `json:"source_frames"`
	AdaptedFrames int           `json:"adapted_frames"`
	Adjustments   []int         `json:"adjustments"`
}

// parse validates the groove and padding of a request
func (s *Server) parse(req GrooveRequest) (groove.Groove, groove.PaddingMode, error) {
	g, err := groove.NewGroove(req.Groove...)
	if err != nil {
		return nil, 0, err
	}
	mode := s.defaults.Padding
	if req.Padding != "" {
		if mode, err = groove.ParsePaddingMode(req.Padding); err != nil {
			return nil, 0, err
		}
	}
	return g, mode, nil
}

func (s *Server) domain(name string) (groove.Domain, error) {
	if name == "" {
		return s.defaults.Domain, nil
	}
	return groove.ParseDomain(name)
}

func badRequest(c *gin.Context, err error) {
	c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
}

// healthCheck godoc
// @Summary Health check endpoint
// @Description Returns the health status of the API and engine cache counters
// @Tags health
// @Produce json
// @Success 200 {object} map[string]interface{}
// @Router /health [get]
func (s *Server) healthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "healthy",
		"service": "grooveshift",
		"stats":   s.engine.Stats(),
	})
}

// listDomains godoc
// @Summary List tempo domains
// @Description Returns the supported tempo domains and their conversion factors
// @Tags info
// @Produce json
// @Success 200 {object} map[string][]map[string]interface{}
// @Router /domains [get]
func listDomains(c *gin.Context) {
	var domains []gin.H
	for _, d := range []groove.Domain{groove.NTSC, groove.PAL} {
		src, dst := d.Factors()
		domains = append(domains, gin.H{
			"name":       d.String(),
			"frame_rate": d.FrameRate(),
			"src_factor": src,
			"dst_factor": dst,
		})
	}
	var paddings []string
	for _, p := range groove.PaddingModes {
		paddings = append(paddings, p.String())
	}
	c.JSON(http.StatusOK, gin.H{
		"domains":  domains,
		"paddings": paddings,
	})
}

// listTempos godoc
// @Summary List tempos
// @Description Returns the tempo catalog of a domain sorted by BPM
// @Tags tempos
// @Produce json
// @Param domain query string false "Tempo domain (ntsc or pal)"
// @Param notes_per_beat query int false "Notes per beat (default: 4)"
// @Success 200 {object} map[string]interface{}
// @Failure 400 {object} map[string]string
// @Router /tempos [get]
func (s *Server) listTempos(c *gin.Context) {
	d, err := s.domain(c.Query("domain"))
	if err != nil {
		badRequest(c, err)
		return
	}
	npb := s.defaults.NotesPerBeat
	if v := c.Query("notes_per_beat"); v != "" {
		npb, err = strconv.Atoi(v)
		if err != nil || npb <= 0 {
			badRequest(c, fmt.Errorf("invalid notes_per_beat %q", v))
			return
		}
	}
	c.JSON(http.StatusOK, gin.H{
		"domain":         d.String(),
		"notes_per_beat": npb,
		"tempos":         s.engine.Tempos(d, npb),
	})
}

// validateGroove godoc
// @Summary Validate a groove
// @Description Checks a groove and returns its tempo in both domains
// @Tags grooves
// @Accept json
// @Produce json
// @Param request body GrooveRequest true "Groove"
// @Success 200 {object} map[string]interface{}
// @Failure 400 {object} map[string]string
// @Router /grooves/validate [post]
func (s *Server) validateGroove(c *gin.Context) {
	var req GrooveRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	g := groove.Groove(req.Groove)
	if err := groove.Validate(g); err != nil {
		c.JSON(http.StatusOK, gin.H{"valid": false, "error": err.Error()})
		return
	}
	npb := s.defaults.NotesPerBeat
	c.JSON(http.StatusOK, gin.H{
		"valid":  true,
		"groove": g.String(),
		"bpm": gin.H{
			"ntsc": groove.ComputeBpm(groove.NTSC, g, npb),
			"pal":  groove.ComputeBpm(groove.PAL, g, npb),
		},
	})
}

// permutations godoc
// @Summary Groove permutations
// @Description Returns every distinct ordering of a groove
// @Tags grooves
// @Accept json
// @Produce json
// @Param request body GrooveRequest true "Groove"
// @Success 200 {object} map[string][][]int
// @Failure 400 {object} map[string]string
// @Router /grooves/permutations [post]
func (s *Server) permutations(c *gin.Context) {
	var req GrooveRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	perms, err := s.engine.Permutations(req.Groove)
	if err != nil {
		badRequest(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"permutations": perms})
}

// resolveFrames godoc
// @Summary Resolve frame lengths
// @Description Maps logical frame lengths and note indexes to physical frame offsets
// @Tags frames
// @Accept json
// @Produce json
// @Param request body FramesRequest true "Groove and lengths"
// @Success 200 {object} map[string][]int
// @Failure 400 {object} map[string]string
// @Router /frames [post]
func (s *Server) resolveFrames(c *gin.Context) {
	var req FramesRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	if len(req.Lengths) == 0 && len(req.Notes) == 0 {
		badRequest(c, errors.New("lengths or notes required"))
		return
	}
	g, mode, err := s.parse(req.GrooveRequest)
	if err != nil {
		badRequest(c, err)
		return
	}
	frames := make([]int, 0, len(req.Lengths))
	for _, length := range req.Lengths {
		f, err := s.engine.Resolve(length, g, mode)
		if err != nil {
			badRequest(c, err)
			return
		}
		frames = append(frames, f)
	}
	noteFrames := make([]int, 0, len(req.Notes))
	for _, note := range req.Notes {
		f, err := s.engine.NoteOffset(note, g, mode)
		if err != nil {
			badRequest(c, err)
			return
		}
		noteFrames = append(noteFrames, f)
	}
	c.JSON(http.StatusOK, gin.H{
		"groove":      g.String(),
		"padding":     mode.String(),
		"frames":      frames,
		"note_frames": noteFrames,
	})
}

// envelope godoc
// @Summary Tempo envelope
// @Description Generates the tempo envelope that plays a groove in the other domain
// @Tags envelope
// @Accept json
// @Produce json,application/octet-stream,text/plain
// @Param request body EnvelopeRequest true "Groove and source domain"
// @Param format query string false "json (default), bin or asm"
// @Success 200 {object} EnvelopeResponse
// @Failure 400 {object} map[string]string
// @Router /envelope [post]
func (s *Server) envelope(c *gin.Context) {
	var req EnvelopeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	g, mode, err := s.parse(req.GrooveRequest)
	if err != nil {
		badRequest(c, err)
		return
	}
	source, err := s.domain(req.Source)
	if err != nil {
		badRequest(c, err)
		return
	}
	xreq := export.EnvelopeRequest{Groove: g, Padding: mode, SourceIsPal: source.IsPal()}

	switch format := c.DefaultQuery("format", "json"); format {
	case "json":
	case string(export.FormatBinary), string(export.FormatAsm):
		data, err := s.exporter.Envelope(xreq, export.Format(format), "tempo_"+g.String())
		if err != nil {
			badRequest(c, err)
			return
		}
		contentType, ext := "application/octet-stream", ".bin"
		if format == string(export.FormatAsm) {
			contentType, ext = "text/plain; charset=utf-8", ".s"
		}
		c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=tempo-%s%s", g, ext))
		c.Data(http.StatusOK, contentType, data)
		return
	default:
		badRequest(c, fmt.Errorf("%w: %q", export.ErrUnknownFormat, format))
		return
	}

	env, err := s.engine.EnvelopeSteps(g, mode, source.IsPal())
	if err != nil {
		s.internalError(c, err)
		return
	}
	raw := env.Bytes()
	values := make([]int, len(raw))
	for i, b := range raw {
		values[i] = int(b)
	}
	c.JSON(http.StatusOK, EnvelopeResponse{
		Groove:        g.String(),
		Padding:       mode.String(),
		Source:        source.String(),
		Bytes:         values,
		Steps:         env.Steps,
		SourceFrames:  env.SourceFrames(),
		AdaptedFrames: env.PlaybackFrames(),
		Adjustments:   env.Adjustments(),
	})
}

// exportMIDI godoc
// @Summary Export a MIDI click track
// @Description Renders the note onsets of a groove as a Standard MIDI File
// @Tags export
// @Accept json
// @Produce audio/midi
// @Param request body MIDIRequest true "Groove preview"
// @Success 200 {file} binary
// @Failure 400 {object} map[string]string
// @Router /export/midi [post]
func (s *Server) exportMIDI(c *gin.Context) {
	var req MIDIRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	g, mode, err := s.parse(req.GrooveRequest)
	if err != nil {
		badRequest(c, err)
		return
	}
	d, err := s.domain(req.Domain)
	if err != nil {
		badRequest(c, err)
		return
	}
	npb := req.NotesPerBeat
	if npb <= 0 {
		npb = s.defaults.NotesPerBeat
	}

	data, err := s.exporter.Preview(export.PreviewRequest{
		Groove:       g,
		Padding:      mode,
		Domain:       d,
		NotesPerBeat: npb,
		Notes:        req.Notes,
	})
	if err != nil {
		s.internalError(c, err)
		return
	}

	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=groove-%s.mid", g))
	c.Data(http.StatusOK, "audio/midi", data)
}

func (s *Server) internalError(c *gin.Context, err error) {
	if errors.Is(err, groove.ErrInvalidGroove) || errors.Is(err, export.ErrTooManyNotes) {
		badRequest(c, err)
		return
	}
	s.logger.Error("request failed", "path", c.Request.URL.Path, "error", err)
	c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
}
