package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"
	"time"

	"pid-trainer-core/telemetry"
	"pid-trainer-core/utils"
)

func main() {
	var (
		cfgPath  = flag.String("config", "", "JSON config file (defaults used when empty)")
		iface    = flag.String("iface", "", "SocketCAN interface for telemetry/commands (disabled when empty)")
		mapPath  = flag.String("can-map", "", "CSV frame map override (builtin frames when empty)")
		logPath  = flag.String("log-file", "pid_trainer.log", "log file path")
		logLevel = flag.String("log", "info", "trace|debug|info|warn|error|critical")
		duration = flag.Float64("duration", 0, "stop after this many seconds (0 = run until signal)")
		auto     = flag.Bool("auto", false, "start in LEARN mode")
	)
	flag.Parse()

	log, err := utils.NewFileLogger(*logPath, utils.ParseLevel(*logLevel), true)
	if err != nil {
		_, _ = os.Stderr.WriteString("ERROR: cannot open log file: " + err.Error() + "\n")
		os.Exit(1)
	}
	defer log.Close()

	// Configuration failures are fatal before any simulation state exists.
	cfg, err := LoadAppConfig(*cfgPath)
	if err != nil {
		log.Critical("Startup failed: %v", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	fm := telemetry.BuiltinFrameMap()
	if *mapPath != "" {
		fm, err = telemetry.LoadFrameMap(*mapPath)
		if err != nil {
			log.Critical("Startup failed: frame map: %v", err)
			os.Exit(1)
		}
	}

	sink := telemetry.Sink(telemetry.NewLogSink(log))
	cmdCh := make(chan telemetry.Command, 16)

	if *iface != "" {
		writer, err := telemetry.NewSocketCANWriter(ctx, *iface)
		if err != nil {
			log.Critical("Startup failed: %v", err)
			os.Exit(1)
		}
		reader, err := telemetry.NewSocketCANReader(ctx, *iface)
		if err != nil {
			_ = writer.Close()
			log.Critical("Startup failed: %v", err)
			os.Exit(1)
		}
		defer reader.Close()

		sink = telemetry.TeeSink{
			telemetry.NewLogSink(log),
			telemetry.NewCANSink(ctx, fm, writer, log),
		}
		go telemetry.ReceiveCommands(ctx, reader, fm, log, cmdCh)
	}
	defer sink.Close()

	driver := NewDriver(cfg, log, sink)
	if *auto {
		driver.ToggleMode()
	}

	log.Info("Starting: dt=%.4fs wavelen=%.0f noise_std=%.2f bias=%.2f mode=%s iface=%q",
		cfg.Sim.DT, cfg.Sim.Track.Wavelen, cfg.Sim.NoiseStd, cfg.Sim.SteerBias,
		driver.Mode(), *iface)

	ticker := time.NewTicker(time.Duration(cfg.Sim.DT * float64(time.Second)))
	defer ticker.Stop()

	start := time.Now()
	for {
		select {
		case <-ctx.Done():
			log.Info("Stopping: ticks=%d swaps=%d invalid_steps=%d",
				driver.tick, driver.SwapCount(), driver.InvalidSteps())
			return

		case cmd := <-cmdCh:
			driver.Apply(cmd)

		case now := <-ticker.C:
			if *duration > 0 && now.Sub(start).Seconds() > *duration {
				log.Info("Completed: ticks=%d swaps=%d invalid_steps=%d",
					driver.tick, driver.SwapCount(), driver.InvalidSteps())
				return
			}
			driver.Tick()
		}
	}
}
