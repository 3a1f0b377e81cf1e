package main

import (
	"errors"
	"flag"
	"log"
	"log/slog"
	"os"

	"github.com/KimMachineGun/automemlimit/memlimit"
	"github.com/goodmetrics/metricsink/cmd/ingester"
	"github.com/goodmetrics/metricsink/internal/config"
	"github.com/oklog/run"
)

func main() {
	var configFile string
	fs := flag.NewFlagSet(os.Args[0], flag.ExitOnError)
	ingester.RegisterFlags(fs, &configFile)
	if err := fs.Parse(os.Args[1:]); err != nil {
		log.Fatalf("parse flags: %v", err)
	}

	if configFile != "" {
		if err := config.LoadConfig(configFile); err != nil {
			log.Fatalf("load config file %s: %v", configFile, err)
		}
	}

	if config.DefaultConfig.MemoryLimit.Enabled {
		if _, err := memlimit.SetGoMemLimitWithOpts(
			memlimit.WithRatio(config.DefaultConfig.MemoryLimit.Ratio),
			memlimit.WithRefreshInterval(config.DefaultConfig.MemoryLimit.RefreshInterval),
		); err != nil {
			slog.Warn("main.memlimit.set_failed", "err", err)
		}
	}

	if err := ingester.Run(); err != nil {
		if !errors.As(err, &run.SignalError{}) {
			log.Fatalf("ingester stopped with error: %v", err)
		}
		log.Print("caught signal; exiting gracefully...")
	}
}
