// sensorlog prints one snapshot from a running sensorlogd.
package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/spf13/pflag"
	"golang.org/x/term"

	"github.com/xtxerr/sensorlog/internal/client"
)

// Version is set at build time via ldflags
var Version = "dev"

func main() {
	if err := run(os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "sensorlog: %v\n", err)
		os.Exit(1)
	}
}

func run(args []string) error {
	cfg := client.DefaultConfig()

	var (
		compact     bool
		showVersion bool
	)

	flagSet := pflag.NewFlagSet("sensorlog", pflag.ContinueOnError)
	flagSet.StringVarP(&cfg.Address, "socket", "s", cfg.Address, "snapshot socket path")
	flagSet.DurationVarP(&cfg.Timeout, "timeout", "t", cfg.Timeout, "give up after this long")
	flagSet.BoolVar(&compact, "compact", false, "print the snapshot as received, even on a terminal")
	flagSet.BoolVar(&showVersion, "version", false, "print version and exit")

	if err := flagSet.Parse(args); err != nil {
		if err == pflag.ErrHelp {
			return nil
		}
		return err
	}
	if showVersion {
		fmt.Println("sensorlog", Version)
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), cfg.Timeout+time.Second)
	defer cancel()

	body, err := client.Fetch(ctx, cfg)
	if err != nil {
		return err
	}

	// Indent for humans, pass through for pipes.
	if !compact && term.IsTerminal(int(os.Stdout.Fd())) {
		var out bytes.Buffer
		if err := json.Indent(&out, body, "", "  "); err != nil {
			return fmt.Errorf("format snapshot: %w", err)
		}
		body = out.Bytes()
	}

	_, err = os.Stdout.Write(body)
	return err
}
