// sensorlogd samples environment sensors, retains their history at several
// resolutions and serves it as JSON on a unix socket.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/pflag"
	"golang.org/x/sync/errgroup"

	"github.com/xtxerr/sensorlog/internal/errors"
	"github.com/xtxerr/sensorlog/internal/loader"
	"github.com/xtxerr/sensorlog/internal/logging"
	"github.com/xtxerr/sensorlog/internal/sampler"
	"github.com/xtxerr/sensorlog/internal/sensor"
	"github.com/xtxerr/sensorlog/internal/server"
	"github.com/xtxerr/sensorlog/internal/storage/retention"
	"github.com/xtxerr/sensorlog/internal/storage/types"
)

// Version is set at build time via ldflags
var Version = "dev"

func main() {
	if err := run(os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "sensorlogd: %v\n", err)
		os.Exit(1)
	}
}

func run(args []string) error {
	var (
		cfgPath     string
		socket      string
		period      time.Duration
		logLevel    string
		logJSON     bool
		showVersion bool
	)

	flagSet := pflag.NewFlagSet("sensorlogd", pflag.ContinueOnError)
	flagSet.StringVarP(&cfgPath, "config", "c", "", "config file path (built-in defaults when empty)")
	flagSet.StringVar(&socket, "socket", "", "snapshot socket path (overrides config)")
	flagSet.DurationVar(&period, "period", 0, "sampling period (overrides config)")
	flagSet.StringVar(&logLevel, "log-level", "", "log level: debug, info, warn, error (overrides config)")
	flagSet.BoolVar(&logJSON, "log-json", false, "log as JSON (overrides config)")
	flagSet.BoolVar(&showVersion, "version", false, "print version and exit")

	if err := flagSet.Parse(args); err != nil {
		if err == pflag.ErrHelp {
			return nil
		}
		return err
	}
	if showVersion {
		fmt.Println("sensorlogd", Version)
		return nil
	}
	if rest := flagSet.Args(); len(rest) > 0 {
		return fmt.Errorf("unexpected argument: %s", rest[0])
	}

	// Load config
	cfg := loader.DefaultConfig()
	if cfgPath != "" {
		var err error
		if cfg, err = loader.Load(cfgPath); err != nil {
			return err
		}
	}

	// CLI overrides
	if flagSet.Changed("socket") {
		cfg.Socket = socket
	}
	if flagSet.Changed("period") {
		cfg.Period = loader.Duration(period)
	}
	if flagSet.Changed("log-level") {
		cfg.Logging.Level = logLevel
	}
	if flagSet.Changed("log-json") {
		cfg.Logging.JSON = logJSON
	}

	if err := loader.Validate(cfg); err != nil {
		return err
	}

	level, _ := logging.ParseLevel(cfg.Logging.Level)
	logging.Init(os.Stderr, level, cfg.Logging.JSON)
	log := logging.Component("main")

	log.Info("sensorlogd starting", "version", Version, "source", cfg.Source.Kind)

	// =========================================================================
	// Retention Chain
	// =========================================================================

	chain, err := retention.NewChain[sensor.Reading, sensor.Total](cfg.Tiers, sensor.Average{})
	if err != nil {
		return err
	}

	resolutions := types.Resolutions(cfg.Tiers, cfg.Period.Duration())
	for i, spec := range cfg.Tiers {
		log.Info("tier", "index", i, "spec", spec.String(), "resolution", resolutions[i])
	}

	src, err := loader.BuildSource(&cfg.Source)
	if err != nil {
		return err
	}

	// =========================================================================
	// Snapshot Socket
	// =========================================================================

	srv, err := server.Start(loader.ToServerConfig(cfg))
	if err != nil {
		return err
	}
	defer srv.Close()

	loop, err := sampler.New(sampler.Config[sensor.Reading, sensor.Total]{
		Chain:      chain,
		Source:     src,
		Encode:     sensor.EncodeJSON,
		Clients:    srv,
		Period:     cfg.Period.Duration(),
		StatsEvery: cfg.Logging.StatsEvery,
	})
	if err != nil {
		return err
	}

	// =========================================================================
	// Run until SIGINT/SIGTERM
	// =========================================================================

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return loop.Run(ctx)
	})
	g.Go(func() error {
		<-ctx.Done()
		log.Info("shutting down")
		return srv.Close()
	})

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}

	log.Info("shutdown complete")
	return nil
}
