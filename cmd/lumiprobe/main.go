// lumiprobe probes an LED network device for its real segment
// capability and streams colors within the confirmed limit.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"lumiprobe/internal/colorsource"
	"lumiprobe/internal/config"
	"lumiprobe/internal/logging"
	"lumiprobe/internal/metrics"
	"lumiprobe/internal/observe"
	"lumiprobe/internal/probe"
	"lumiprobe/internal/protocol"
	"lumiprobe/internal/report"
	"lumiprobe/internal/sampling"
	"lumiprobe/internal/store"
	"lumiprobe/internal/stream"
	"lumiprobe/internal/transport"
)

var (
	configPath  = flag.String("config", "", "path to config file")
	showMetrics = flag.Bool("metrics", false, "dump metrics to stderr on exit")
)

func main() {
	flag.Parse()

	if flag.NArg() < 1 {
		usage()
		os.Exit(1)
	}

	cmd := flag.Arg(0)

	switch cmd {
	case "probe":
		cmdProbe()
	case "status":
		cmdStatus()
	case "report":
		format := "json"
		if flag.NArg() >= 2 {
			format = flag.Arg(1)
		}
		cmdReport(format)
	case "sync":
		cmdSync()
	case "reset":
		cmdReset()
	case "init-config":
		cmdInitConfig()
	case "help":
		usage()
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n", cmd)
		usage()
		os.Exit(1)
	}
}

func usage() {
	fmt.Fprintln(os.Stderr, `lumiprobe - segment capability prober for LED network devices

Usage: lumiprobe [options] <command> [args]

Commands:
  probe            Run the capability probe against the configured device
  status           Show the confirmed calibration for the device
  report [format]  Print the latest probe evidence (json or yaml)
  sync             Stream colors at the confirmed segment count
  reset            Clear the strip and leave razer mode
  init-config      Write a default config file
  help             Show this help message

Options:
  -config <path>   Path to config file (default: platform config dir)
  -metrics         Dump probe/stream metrics to stderr on exit`)
}

func fatalf(format string, args ...any) {
	fmt.Fprintf(os.Stderr, format+"\n", args...)
	os.Exit(1)
}

func resolveConfigPath() string {
	if *configPath != "" {
		return *configPath
	}
	return config.ConfigPath()
}

func loadConfig() *config.Config {
	path := resolveConfigPath()
	cfg, created, err := config.LoadOrCreate(path)
	if err != nil {
		fatalf("Error loading config: %v", err)
	}
	if created {
		fmt.Fprintf(os.Stderr, "Wrote default config to %s\n", path)
	}
	if err := cfg.Validate(); err != nil {
		fatalf("Config %s is incomplete: %v", path, err)
	}
	return cfg
}

func buildLogger(lc config.LoggingConfig) *logging.Logger {
	level, err := logging.ParseLevel(lc.Level)
	if err != nil {
		fatalf("Error in logging config: %v", err)
	}
	format := logging.FormatText
	if lc.Format == "json" {
		format = logging.FormatJSON
	}
	logger, err := logging.New(&logging.Config{
		Level:    level,
		Format:   format,
		Output:   lc.Output,
		FilePath: lc.FilePath,
	})
	if err != nil {
		fatalf("Error setting up logging: %v", err)
	}
	logging.SetDefault(logger)
	return logger
}

func openStore(cfg *config.Config) *store.Store {
	st, err := store.Open(cfg.Storage.Path)
	if err != nil {
		fatalf("Error opening store: %v", err)
	}
	return st
}

func openSession(ctx context.Context, cfg *config.Config, logger *logging.Logger) *transport.Session {
	sess, err := transport.Open(ctx, transport.Config{
		Host:         cfg.Device.Host,
		Port:         cfg.Device.Port,
		WriteTimeout: cfg.Device.WriteTimeout(),
	}, logger)
	if err != nil {
		fatalf("Error connecting to device: %v", err)
	}
	return sess
}

func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}

func cmdProbe() {
	cfg := loadConfig()
	logger := buildLogger(cfg.Logging)
	defer logger.Close()

	ctx, cancel := signalContext()
	defer cancel()

	conn := openSession(ctx, cfg, logger)
	defer conn.Close()

	st := openStore(cfg)
	defer st.Close()

	if err := conn.SetRazerMode(ctx, true); err != nil {
		fatalf("Error enabling razer mode: %v", err)
	}
	defer conn.SetRazerMode(context.Background(), false)

	registry := metrics.NewRegistry()
	prober := &probe.Prober{
		Transport:  conn,
		Observer:   observe.NewPromptObserver(os.Stdin, os.Stdout),
		Classifier: probe.Classifier{FullCoverageThreshold: cfg.Probe.FullCoverageThreshold},
		Settle:     cfg.Device.Settle(),
		Logger:     logger,
		Metrics:    metrics.NewProbeMetrics(registry),
	}

	confirmed, session, probeErr := prober.Probe(ctx, cfg.Probe.Candidates, cfg.Probe.Repeats)
	if *showMetrics {
		registry.WriteText(os.Stderr)
	}

	// Evidence is persisted even for failed or aborted runs; a run
	// that confirmed nothing is still a run worth inspecting.
	if session != nil {
		if err := st.SaveSession(session); err != nil {
			logger.Error("saving probe session failed", "err", err)
		}
	}

	if probeErr != nil {
		if errors.Is(probeErr, probe.ErrNoWorkingConfiguration) {
			fatalf("No segment count rendered full coverage reliably. The device may not support razer mode at this address.")
		}
		fatalf("Probe failed: %v", probeErr)
	}

	geometry := sampling.SelectGeometry(confirmed)
	_, err := st.SaveCalibration(&store.Calibration{
		Device:      conn.Addr(),
		Segments:    confirmed,
		Strategy:    geometry.Strategy.String(),
		SessionID:   session.ID.String(),
		ConfirmedAt: time.Now().UnixNano(),
	})
	if err != nil {
		fatalf("Error saving calibration: %v", err)
	}

	fmt.Printf("Confirmed %d segments (%s sampling), session %s\n",
		confirmed, geometry.Strategy, session.ID)
}

func cmdStatus() {
	cfg := loadConfig()
	st := openStore(cfg)
	defer st.Close()

	device := cfg.Device.Addr()
	cal, err := st.LatestCalibration(device)
	if err != nil {
		fatalf("Error reading calibration: %v", err)
	}
	if cal == nil {
		fmt.Printf("Device:      %s\nCalibration: none (run `lumiprobe probe`)\n", device)
		return
	}

	fmt.Printf("Device:      %s\n", device)
	fmt.Printf("Segments:    %d\n", cal.Segments)
	fmt.Printf("Sampling:    %s\n", cal.Strategy)
	fmt.Printf("Confirmed:   %s\n", time.Unix(0, cal.ConfirmedAt).Format(time.RFC3339))
	fmt.Printf("Session:     %s\n", cal.SessionID)

	if sess, err := st.LatestSession(device); err == nil && sess != nil {
		fmt.Printf("Last probe:  %s", time.Unix(0, sess.StartedAt).Format(time.RFC3339))
		if sess.Aborted {
			fmt.Print(" (aborted)")
		}
		fmt.Println()
	}
}

func cmdReport(format string) {
	cfg := loadConfig()
	st := openStore(cfg)
	defer st.Close()

	device := cfg.Device.Addr()
	sess, err := st.LatestSession(device)
	if err != nil {
		fatalf("Error reading session: %v", err)
	}
	if sess == nil {
		fatalf("No probe sessions recorded for %s", device)
	}
	trials, err := st.SessionTrials(sess.ID)
	if err != nil {
		fatalf("Error reading trials: %v", err)
	}
	cal, err := st.LatestCalibration(device)
	if err != nil {
		fatalf("Error reading calibration: %v", err)
	}
	// Only attach the calibration when it came from this session.
	if cal != nil && cal.SessionID != sess.ID {
		cal = nil
	}

	out, err := report.Build(sess, trials, cal).Render(format)
	if err != nil {
		fatalf("%v", err)
	}
	os.Stdout.Write(out)
	fmt.Println()
}

func cmdSync() {
	path := resolveConfigPath()
	loader := config.NewLoader(path)
	cfg, err := loader.Load()
	if err != nil {
		fatalf("Error loading config: %v", err)
	}
	defer loader.Close()

	logger := buildLogger(cfg.Logging)
	defer logger.Close()

	ctx, cancel := signalContext()
	defer cancel()

	st := openStore(cfg)
	cal, err := st.LatestCalibration(cfg.Device.Addr())
	st.Close()
	if err != nil {
		fatalf("Error reading calibration: %v", err)
	}
	if cal == nil {
		fatalf("No calibration for %s; run `lumiprobe probe` first", cfg.Device.Addr())
	}

	conn := openSession(ctx, cfg, logger)
	defer conn.Close()

	source, err := colorsource.NewPattern(cfg.Sync.Pattern)
	if err != nil {
		fatalf("%v", err)
	}

	runner, err := stream.NewRunner(conn, source, cal.Segments, cfg.Sync, logger)
	if err != nil {
		fatalf("%v", err)
	}
	registry := metrics.NewRegistry()
	runner.Metrics = metrics.NewStreamMetrics(registry)

	loader.OnChange(runner.ApplyConfig)
	if err := loader.Watch(); err != nil {
		logger.Warn("config watch unavailable", "err", err)
	}
	go func() {
		for err := range loader.Errors() {
			logger.Warn("config reload rejected", "err", err)
		}
	}()

	fmt.Printf("Streaming %d segments to %s; Ctrl-C to stop\n", cal.Segments, conn.Addr())
	err = runner.Run(ctx)
	if *showMetrics {
		registry.WriteText(os.Stderr)
	}
	if err != nil && !errors.Is(err, context.Canceled) {
		fatalf("Sync failed: %v", err)
	}
}

func cmdReset() {
	cfg := loadConfig()
	logger := buildLogger(cfg.Logging)
	defer logger.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	conn := openSession(ctx, cfg, logger)
	defer conn.Close()

	pkt, err := protocol.Encode(protocol.ControlCommand{Kind: protocol.CmdReset})
	if err != nil {
		fatalf("%v", err)
	}
	wire, err := protocol.WrapRazer(pkt.Bytes())
	if err != nil {
		fatalf("%v", err)
	}
	if _, err := conn.Send(ctx, wire); err != nil {
		fatalf("Error sending reset: %v", err)
	}
	if err := conn.SetRazerMode(ctx, false); err != nil {
		fatalf("Error leaving razer mode: %v", err)
	}
	fmt.Println("Strip cleared, razer mode off")
}

func cmdInitConfig() {
	path := resolveConfigPath()
	_, created, err := config.LoadOrCreate(path)
	if err != nil {
		fatalf("Error writing config: %v", err)
	}
	if created {
		fmt.Printf("Wrote default config to %s\n", path)
	} else {
		fmt.Printf("Config already exists at %s\n", path)
	}
}
