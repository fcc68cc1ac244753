// Package main is the entry point for the grooveshift CLI
package main

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"

	"github.com/james-see/grooveshift/pkg/api"
	"github.com/james-see/grooveshift/pkg/config"
	"github.com/james-see/grooveshift/pkg/export"
	"github.com/james-see/grooveshift/pkg/groove"
	"github.com/james-see/grooveshift/pkg/logging"
	"github.com/james-see/grooveshift/pkg/project"
	"github.com/james-see/grooveshift/pkg/tui"
	"github.com/spf13/cobra"
)

var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

var (
	configFile   string
	logLevel     string
	outputFile   string
	grooveFlag   string
	paddingName  string
	domainName   string
	sourceName   string
	notesPerBeat int
	noteCount    int
	serverPort   int
	byNote       bool
	force        bool
)

// set up by the root command before any subcommand runs
var (
	cfg    *config.Config
	logger *slog.Logger
	engine *groove.Engine
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "grooveshift",
	Short: "Groove tempos and NTSC/PAL tempo envelopes for frame-based music players",
	Long: `grooveshift works with grooves: repeating patterns of note lengths in
video frames, as used by music players that tick once per frame.

It lists the tempos reachable with grooves, maps logical song frames to
physical frames, and generates tempo envelopes that let a song written for
NTSC play at the same tempo on PAL machines and vice versa.

Examples:
  grooveshift tempos --domain pal --notes-per-beat 4
  grooveshift frames 16 18 --groove 6,6,7 --padding middle
  grooveshift frames 3 --notes --groove 6,6,7
  grooveshift envelope --groove 6,6,7 --source ntsc -o tempo.s
  grooveshift midi --groove 6,6,7 -o preview.mid
  grooveshift validate song.yaml
  grooveshift tui
  grooveshift serve --port 8080
  grooveshift config init`,
	Version:           fmt.Sprintf("%s (commit: %s, built: %s)", version, commit, date),
	SilenceUsage:      true,
	PersistentPreRunE: setup,
}

var temposCmd = &cobra.Command{
	Use:   "tempos",
	Short: "List the tempos reachable with grooves",
	Args:  cobra.NoArgs,
	RunE:  runTempos,
}

var framesCmd = &cobra.Command{
	Use:   "frames <length>...",
	Short: "Resolve logical frame lengths to physical frames",
	Long: `Resolves logical frame lengths to physical frames. A logical frame is one
frame of a note played at the groove's minimum length, so with groove
6,6,7 a length of 3 is still inside the first note and resolves to 3.
With --notes the arguments are note indexes instead: note 3 of 6,6,7
starts at physical frame 19.`,
	Args: cobra.MinimumNArgs(1),
	RunE:  runFrames,
}

var envelopeCmd = &cobra.Command{
	Use:   "envelope",
	Short: "Generate a tempo envelope for playback in the other domain",
	Long: `Generates the tempo envelope that plays a groove authored in the source
domain at the same tempo in the other domain. Without --output the
envelope is printed; with it, the format follows the file extension
(.s/.asm/.inc for an assembler listing, .bin/.env for raw bytes).`,
	Args: cobra.NoArgs,
	RunE: runEnvelope,
}

var permutationsCmd = &cobra.Command{
	Use:   "permutations",
	Short: "List every distinct ordering of a groove",
	Args:  cobra.NoArgs,
	RunE:  runPermutations,
}

var validateCmd = &cobra.Command{
	Use:   "validate <settings.yaml>",
	Short: "Validate a groove settings file",
	Args:  cobra.ExactArgs(1),
	RunE:  runValidate,
}

var midiCmd = &cobra.Command{
	Use:   "midi",
	Short: "Write a MIDI click track of a groove",
	Args:  cobra.NoArgs,
	RunE:  runMIDI,
}

var tuiCmd = &cobra.Command{
	Use:   "tui",
	Short: "Launch interactive terminal UI",
	RunE:  runTUI,
}

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage the grooveshift config file",
	// The config file may not exist yet.
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error { return nil },
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Write the default config file",
	Long: `Writes the default settings to the file named by --config, or to
~/.config/grooveshift/config.yaml. An existing file is kept unless
--force is given.`,
	Args: cobra.NoArgs,
	RunE: runConfigInit,
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the API server",
	RunE:  runServe,
}

func init() {
	// Global flags
	rootCmd.PersistentFlags().StringVarP(&configFile, "config", "c", "", "Config file (default ~/.config/grooveshift/config.yaml)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "Log level (debug, info, warn, error)")

	// tempos command
	temposCmd.Flags().StringVarP(&domainName, "domain", "d", "", "Tempo domain (ntsc, pal)")
	temposCmd.Flags().IntVarP(&notesPerBeat, "notes-per-beat", "n", 0, "Notes per beat")

	// frames command
	framesCmd.Flags().StringVarP(&grooveFlag, "groove", "g", "", "Groove, e.g. 6,6,7 (required)")
	framesCmd.Flags().StringVarP(&paddingName, "padding", "p", "", "Padding mode (beginning, middle, end)")
	framesCmd.Flags().BoolVar(&byNote, "notes", false, "Treat arguments as note indexes")
	_ = framesCmd.MarkFlagRequired("groove")

	// envelope command
	envelopeCmd.Flags().StringVarP(&grooveFlag, "groove", "g", "", "Groove, e.g. 6,6,7 (required)")
	envelopeCmd.Flags().StringVarP(&paddingName, "padding", "p", "", "Padding mode (beginning, middle, end)")
	envelopeCmd.Flags().StringVarP(&sourceName, "source", "s", "", "Domain the song was written for (ntsc, pal)")
	envelopeCmd.Flags().StringVarP(&outputFile, "output", "o", "", "Output .s or .bin file path")
	_ = envelopeCmd.MarkFlagRequired("groove")

	// permutations command
	permutationsCmd.Flags().StringVarP(&grooveFlag, "groove", "g", "", "Groove, e.g. 6,6,7 (required)")
	_ = permutationsCmd.MarkFlagRequired("groove")

	// midi command
	midiCmd.Flags().StringVarP(&grooveFlag, "groove", "g", "", "Groove, e.g. 6,6,7 (required)")
	midiCmd.Flags().StringVarP(&paddingName, "padding", "p", "", "Padding mode (beginning, middle, end)")
	midiCmd.Flags().StringVarP(&domainName, "domain", "d", "", "Tempo domain (ntsc, pal)")
	midiCmd.Flags().IntVarP(&notesPerBeat, "notes-per-beat", "n", 0, "Notes per beat")
	midiCmd.Flags().IntVar(&noteCount, "notes", 0, fmt.Sprintf("Number of notes to render, at most %d (default: four groove cycles)", export.MaxPreviewNotes))
	midiCmd.Flags().StringVarP(&outputFile, "output", "o", "", "Output .mid file path (required)")
	_ = midiCmd.MarkFlagRequired("groove")
	_ = midiCmd.MarkFlagRequired("output")

	// tui command
	tuiCmd.Flags().StringVarP(&domainName, "domain", "d", "", "Tempo domain (ntsc, pal)")

	// config command
	configInitCmd.Flags().BoolVarP(&force, "force", "f", false, "Overwrite an existing config file")
	configCmd.AddCommand(configInitCmd)

	// serve command
	serveCmd.Flags().IntVarP(&serverPort, "port", "p", 0, "Server port")

	// Add commands
	rootCmd.AddCommand(temposCmd)
	rootCmd.AddCommand(framesCmd)
	rootCmd.AddCommand(envelopeCmd)
	rootCmd.AddCommand(permutationsCmd)
	rootCmd.AddCommand(validateCmd)
	rootCmd.AddCommand(midiCmd)
	rootCmd.AddCommand(tuiCmd)
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(configCmd)
}

func setup(cmd *cobra.Command, args []string) error {
	var err error
	cfg, err = config.Load(configFile)
	if err != nil {
		return err
	}
	if logLevel != "" {
		cfg.Log.Level = logLevel
	}
	logger, err = logging.New(cfg.Log.Level, cfg.Log.Format, os.Stderr)
	if err != nil {
		return err
	}
	slog.SetDefault(logger)
	engine = groove.NewEngine(groove.WithLogger(logger))
	return nil
}

func getGroove() (groove.Groove, error) {
	return groove.ParseGroove(grooveFlag)
}

func getPadding() (groove.PaddingMode, error) {
	if paddingName == "" {
		return cfg.Padding()
	}
	return groove.ParsePaddingMode(paddingName)
}

func getDomain(name string) (groove.Domain, error) {
	if name == "" {
		return cfg.Domain()
	}
	return groove.ParseDomain(name)
}

func getNotesPerBeat() (int, error) {
	if notesPerBeat == 0 {
		return cfg.Defaults.NotesPerBeat, nil
	}
	if notesPerBeat < 0 {
		return 0, fmt.Errorf("invalid notes per beat %d", notesPerBeat)
	}
	return notesPerBeat, nil
}

func runTempos(cmd *cobra.Command, args []string) error {
	d, err := getDomain(domainName)
	if err != nil {
		return err
	}
	npb, err := getNotesPerBeat()
	if err != nil {
		return err
	}

	tempos := engine.Tempos(d, npb)
	fmt.Printf("%s tempos at %d notes per beat:\n", strings.ToUpper(d.String()), npb)
	for _, t := range tempos {
		fmt.Printf("  %8.3f bpm  %s\n", t.BPM, t.Groove)
	}
	return nil
}

func runFrames(cmd *cobra.Command, args []string) error {
	g, err := getGroove()
	if err != nil {
		return err
	}
	mode, err := getPadding()
	if err != nil {
		return err
	}

	for _, arg := range args {
		n, err := strconv.Atoi(arg)
		if err != nil {
			return fmt.Errorf("invalid length %q", arg)
		}
		var frame int
		if byNote {
			frame, err = engine.NoteOffset(n, g, mode)
		} else {
			frame, err = engine.Resolve(n, g, mode)
		}
		if err != nil {
			return err
		}
		fmt.Printf("%d -> %d\n", n, frame)
	}
	return nil
}

func runConfigInit(cmd *cobra.Command, args []string) error {
	path, err := config.Init(configFile, force)
	if err != nil {
		return err
	}
	fmt.Printf("Wrote default config to %s\n", path)
	return nil
}

func runEnvelope(cmd *cobra.Command, args []string) error {
	g, err := getGroove()
	if err != nil {
		return err
	}
	mode, err := getPadding()
	if err != nil {
		return err
	}
	source, err := getDomain(sourceName)
	if err != nil {
		return err
	}

	if outputFile != "" {
		req := export.EnvelopeRequest{Groove: g, Padding: mode, SourceIsPal: source.IsPal()}
		if err := export.New(engine).EnvelopeFile(req, outputFile); err != nil {
			return err
		}
		fmt.Printf("Wrote %s -> %s envelope for %s to %s\n", source, source.Other(), g, outputFile)
		return nil
	}

	env, err := engine.EnvelopeSteps(g, mode, source.IsPal())
	if err != nil {
		return err
	}
	fmt.Printf("Groove %s (%s padding), %s -> %s\n", g, mode, source, source.Other())
	fmt.Printf("  %d source frames play as %d\n", env.SourceFrames(), env.PlaybackFrames())
	fmt.Printf("  adjusted frames: %v\n", env.Adjustments())
	fmt.Print(export.EnvelopeAsm("tempo_"+g.String(), "", env.Bytes()))
	return nil
}

func runPermutations(cmd *cobra.Command, args []string) error {
	g, err := getGroove()
	if err != nil {
		return err
	}
	perms, err := engine.Permutations(g)
	if err != nil {
		return err
	}
	for _, p := range perms {
		fmt.Println(p)
	}
	return nil
}

func runValidate(cmd *cobra.Command, args []string) error {
	song, err := project.Load(args[0])
	if err != nil {
		return err
	}
	name := song.Name
	if name == "" {
		name = args[0]
	}
	fmt.Printf("%s: groove %s is valid\n", name, song.Groove)
	fmt.Printf("  %s %.3f bpm, %s %.3f bpm at %d notes per beat\n",
		song.Domain, song.BPM(),
		song.Domain.Other(), groove.ComputeBpm(song.Domain.Other(), song.Groove, song.NotesPerBeat),
		song.NotesPerBeat)
	return nil
}

func runMIDI(cmd *cobra.Command, args []string) error {
	g, err := getGroove()
	if err != nil {
		return err
	}
	mode, err := getPadding()
	if err != nil {
		return err
	}
	d, err := getDomain(domainName)
	if err != nil {
		return err
	}
	npb, err := getNotesPerBeat()
	if err != nil {
		return err
	}

	req := export.PreviewRequest{
		Groove:       g,
		Padding:      mode,
		Domain:       d,
		NotesPerBeat: npb,
		Notes:        noteCount,
	}
	if err := export.New(engine).PreviewFile(req, outputFile); err != nil {
		return err
	}
	fmt.Printf("Wrote %s preview of %s to %s\n", d, g, outputFile)
	return nil
}

func runTUI(cmd *cobra.Command, args []string) error {
	d, err := getDomain(domainName)
	if err != nil {
		return err
	}
	mode, err := cfg.Padding()
	if err != nil {
		return err
	}
	return tui.Run(engine, tui.Options{
		Domain:       d,
		NotesPerBeat: cfg.Defaults.NotesPerBeat,
		Padding:      mode,
	})
}

func runServe(cmd *cobra.Command, args []string) error {
	port := serverPort
	if port == 0 {
		port = cfg.Server.Port
	}
	d, err := cfg.Domain()
	if err != nil {
		return err
	}
	mode, err := cfg.Padding()
	if err != nil {
		return err
	}

	fmt.Printf("Starting API server on port %d...\n", port)
	return api.StartServer(port, engine, logger, api.Defaults{
		Domain:       d,
		NotesPerBeat: cfg.Defaults.NotesPerBeat,
		Padding:      mode,
	})
}
