// Package main is the entry point for the grooveshift API server
package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/james-see/grooveshift/pkg/api"
	"github.com/james-see/grooveshift/pkg/config"
	"github.com/james-see/grooveshift/pkg/groove"
	"github.com/james-see/grooveshift/pkg/logging"
)

func main() {
	configFile := flag.String("config", "", "Config file path")
	port := flag.Int("port", 0, "Server port (overrides config)")
	flag.Parse()

	if err := run(*configFile, *port); err != nil {
		fmt.Fprintf(os.Stderr, "Server error: %v\n", err)
		os.Exit(1)
	}
}

func run(configFile string, port int) error {
	cfg, err := config.Load(configFile)
	if err != nil {
		return err
	}
	if port != 0 {
		cfg.Server.Port = port
	}

	logger, err := logging.New(cfg.Log.Level, cfg.Log.Format, os.Stderr)
	if err != nil {
		return err
	}
	d, err := cfg.Domain()
	if err != nil {
		return err
	}
	mode, err := cfg.Padding()
	if err != nil {
		return err
	}

	fmt.Printf("Starting grooveshift API server on port %d...\n", cfg.Server.Port)
	fmt.Printf("Swagger docs available at http://localhost:%d/swagger/index.html\n", cfg.Server.Port)

	engine := groove.NewEngine(groove.WithLogger(logger))
	return api.StartServer(cfg.Server.Port, engine, logger, api.Defaults{
		Domain:       d,
		NotesPerBeat: cfg.Defaults.NotesPerBeat,
		Padding:      mode,
	})
}
