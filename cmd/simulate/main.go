package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"skoll/internal/config"
	"skoll/internal/engine"
	"skoll/internal/logging"
	"skoll/internal/simulate"

	"github.com/rs/zerolog/log"
)

func main() {
	configPath := flag.String("config", "", "Path to a YAML config file (built-in defaults if empty)")
	flag.Parse()

	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	if err := logging.Setup(cfg.Logging.Level, cfg.Logging.Format); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(
		context.Background(),
		syscall.SIGTERM,
		syscall.SIGINT,
	)
	defer stop()

	// Setup the matching engine over the simulated universe.
	eng := engine.New(simulate.Instruments(cfg.Simulation)...)
	eng.SetVerify(cfg.Engine.VerifyBooks)
	eng.SetReporter(simulate.LogReporter{})

	_, err = simulate.Run(ctx, eng, cfg.Simulation)
	eng.LogBooks()
	if err != nil && !errors.Is(err, context.Canceled) {
		log.Fatal().Err(err).Msg("simulation failed")
	}
	log.Info().Msg("final matching completed")
}
