package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"sort"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/zeusync/vrhand/internal/config"
	"github.com/zeusync/vrhand/internal/core/observability/log"
	"github.com/zeusync/vrhand/internal/injector"
	"github.com/zeusync/vrhand/internal/sim"
)

func main() {
	var (
		configPath = flag.String("config", "", "YAML or JSON config file")
		ticks      = flag.Int("ticks", -1, "ticks to simulate, 0 runs until interrupted")
		inspect    = flag.String("inspect", "", "serve the event feed on this address, e.g. :7070")
		level      = flag.String("log-level", "", "debug, info, warn or error")
		realtime   = flag.Bool("realtime", false, "pace ticks at the configured tick rate")
	)
	flag.Parse()

	cfg, err := loadConfig(*configPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, "Error loading config:", err)
		os.Exit(2)
	}
	if *ticks >= 0 {
		cfg.Sim.Ticks = *ticks
	}
	if *inspect != "" {
		cfg.Sim.InspectAddr = *inspect
	}
	if *level != "" {
		cfg.Sim.LogLevel = *level
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, *realtime); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func loadConfig(path string) (*config.Config, error) {
	if path == "" {
		return config.Default(), nil
	}
	return config.LoadFile(path)
}

func run(ctx context.Context, cfg *config.Config, realtime bool) error {
	app, err := injector.InitializeApp(cfg)
	if err != nil {
		return err
	}
	logger := app.Logger
	defer func() { _ = logger.Sync() }()

	s, err := sim.New(cfg,
		sim.WithBus(app.Bus),
		sim.WithLogger(logger),
		sim.WithRealtime(realtime || cfg.Sim.InspectAddr != ""),
	)
	if err != nil {
		return err
	}
	defer s.Close()

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	g, gctx := errgroup.WithContext(ctx)

	if cfg.Sim.InspectAddr != "" {
		if err := app.Inspector.Start(gctx, cfg.Sim.InspectAddr); err != nil {
			return err
		}
		g.Go(func() error {
			<-gctx.Done()
			shutdown, done := context.WithTimeout(context.Background(), 2*time.Second)
			defer done()
			return app.Inspector.Stop(shutdown)
		})
	}

	g.Go(func() error {
		// Finishing the script ends the run, inspector included.
		defer cancel()
		err := s.Run(gctx)
		if errors.Is(err, context.Canceled) {
			return nil
		}
		return err
	})

	if err := g.Wait(); err != nil {
		return err
	}

	counts := s.Counts()
	types := make([]string, 0, len(counts))
	for t := range counts {
		types = append(types, t)
	}
	sort.Strings(types)
	fields := []log.Field{log.Int("ticks", s.Ticks()), log.Duration("simulated", s.Now())}
	for _, t := range types {
		fields = append(fields, log.Int(t, counts[t]))
	}
	logger.Info("simulation finished", fields...)
	return nil
}
