package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/gookit/color"
	"golang.org/x/sync/errgroup"

	"github.com/hostwatchhq/agent/internal/config"
	"github.com/hostwatchhq/agent/internal/health"
	"github.com/hostwatchhq/agent/internal/logging"
	"github.com/hostwatchhq/agent/internal/metrics"
	"github.com/hostwatchhq/agent/internal/monitor"
	"github.com/hostwatchhq/agent/internal/netprobe"
	"github.com/hostwatchhq/agent/internal/runtime"
	"github.com/hostwatchhq/agent/internal/server"
	"github.com/hostwatchhq/agent/internal/shell"
	"github.com/hostwatchhq/agent/internal/watcher"
	"github.com/hostwatchhq/agent/pkg/types"
)

const version = "1.2.0"

const defaultProbeHost = "127.0.0.1"

func main() {
	ctx := context.Background()

	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	cmd := os.Args[1]
	var err error

	switch cmd {
	case "run":
		err = run(ctx, os.Args[2:])
	case "probe":
		os.Exit(probe(ctx, os.Args[2:]))
	case "version":
		fmt.Printf("hostwatch-agent %s\n", version)
		return
	case "-h", "--help", "help":
		printUsage()
		return
	default:
		fmt.Fprintf(os.Stderr, "unknown command: %s\n", cmd)
		printUsage()
		os.Exit(1)
	}

	if err != nil {
		fmt.Fprintf(os.Stderr, "command %s failed: %v\n", cmd, err)
		os.Exit(1)
	}
}

func run(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("run", flag.ContinueOnError)
	configPath := fs.String("config", "", "Path to agent configuration file")
	interactive := fs.Bool("interactive", false, "Accept commands on stdin while the monitor runs")

	if err := fs.Parse(args); err != nil {
		return err
	}

	var (
		cfg config.Config
		err error
	)
	if *configPath != "" {
		cfg, err = config.Load(ctx, *configPath)
	} else {
		cfg, err = config.LoadFromEnv(ctx)
	}
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	target := types.Target{Host: cfg.Monitor.Host, Port: cfg.Monitor.Port}
	if err := target.Validate(); err != nil {
		return fmt.Errorf("monitor target: %w", err)
	}

	logger := logging.New()
	logger.Printf("agent starting (target=%s, interval=%s, threshold=%d)",
		target, cfg.Monitor.Interval, cfg.Monitor.FailureThreshold)

	store := metrics.NewStore()
	checker := health.NewChecker(store, 3*cfg.Monitor.Interval)

	rt, err := runtime.New(target, runtimeOptions(cfg, logger, store, checker)...)
	if err != nil {
		return fmt.Errorf("assemble runtime: %w", err)
	}

	runCtx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	wait := rt.Start(runCtx)

	grp, groupCtx := errgroup.WithContext(runCtx)

	grp.Go(func() error {
		<-groupCtx.Done()
		wait()
		return nil
	})

	if cfg.Server.Enabled {
		srv := server.New(cfg.Server.Addr, server.Dependencies{
			Metrics: store,
			Health:  checker,
			Status:  rt.Monitor(),
			Prober:  rt.Prober(),
			Events:  rt.Events(),
			Logger:  logger,
		})
		grp.Go(func() error {
			return srv.Run(groupCtx)
		})
	}

	for _, wc := range cfg.Watch {
		wc := wc
		w, err := watcher.New(wc.Dir, wc.File,
			watcher.WithPoll(wc.Poll),
			watcher.WithCopyTo(wc.CopyTo),
			watcher.WithLogger(logger),
			watcher.WithEvents(rt.Events()),
		)
		if err != nil {
			return fmt.Errorf("watch %s/%s: %w", wc.Dir, wc.File, err)
		}
		grp.Go(func() error {
			_, err := w.Wait(groupCtx)
			if err != nil && !errors.Is(err, context.Canceled) {
				return err
			}
			return nil
		})
	}

	if *interactive || cfg.Run.Interactive {
		sh := shell.New(os.Stdin, os.Stdout, rt.Monitor(), rt.Prober(),
			shell.WithColor(shell.ColorUsable(os.Stdout)))
		grp.Go(func() error {
			err := sh.Run(groupCtx)
			// Leaving the console stops the agent.
			stop()
			if err != nil && !errors.Is(err, context.Canceled) {
				return err
			}
			return nil
		})
	}

	if err := grp.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		stop()
		return err
	}

	logger.Printf("agent stopped")
	return nil
}

// runtimeOptions maps the loaded configuration onto runtime wiring.
func runtimeOptions(cfg config.Config, logger *log.Logger, store *metrics.Store, checker *health.Checker) []runtime.Option {
	opts := []runtime.Option{
		runtime.WithMetricsStore(store),
		runtime.WithHealthChecker(checker),
		runtime.WithMonitorOptions(
			monitor.WithInterval(cfg.Monitor.Interval),
			monitor.WithProbeTimeout(cfg.Monitor.ProbeTimeout),
			monitor.WithFailureThreshold(cfg.Monitor.FailureThreshold),
		),
	}
	if logger != nil {
		opts = append(opts, runtime.WithLogger(logger))
	}
	if cfg.Run.EventBuffer > 0 {
		opts = append(opts, runtime.WithEventBuffer(cfg.Run.EventBuffer))
	}

	proberOpts := []netprobe.ProberOption{
		netprobe.WithTimeout(cfg.Probe.Timeout),
	}
	if cfg.Probe.RatePerSec > 0 {
		proberOpts = append(proberOpts, netprobe.WithRateLimit(cfg.Probe.RatePerSec, cfg.Probe.Burst))
	}
	opts = append(opts, runtime.WithProberOptions(proberOpts...))

	return opts
}

func probe(ctx context.Context, args []string) int {
	fs := flag.NewFlagSet("probe", flag.ContinueOnError)
	timeout := fs.Duration("timeout", config.DefaultOnDemandTimeout, "Connection timeout for the probe")

	if err := fs.Parse(args); err != nil {
		return 2
	}
	rest := fs.Args()
	if len(rest) < 1 || len(rest) > 2 {
		fmt.Fprintln(os.Stderr, "usage: hostwatch-agent probe [--timeout 200ms] <port> [host]")
		return 2
	}
	rawPort := rest[0]
	rawHost := ""
	if len(rest) == 2 {
		rawHost = rest[1]
	}

	prober := netprobe.NewProber(defaultProbeHost, netprobe.WithTimeout(*timeout))
	res, err := prober.ProbeInput(ctx, rawPort, rawHost)
	if err != nil {
		fmt.Fprintf(os.Stderr, "invalid input: %v\n", err)
		return 2
	}

	colored := shell.ColorUsable(os.Stdout)
	fmt.Println(probeVerdict(res, colored))
	if res.Open {
		return 0
	}
	return 1
}

// probeVerdict renders a one-shot probe outcome, colorized for terminals.
func probeVerdict(res types.ProbeResult, colored bool) string {
	if res.Open {
		line := fmt.Sprintf("%s port %d open (%.1f ms)", res.Target.Host, res.Target.Port, res.RTTMilliseconds)
		if colored {
			return color.LightGreen.Sprint(line)
		}
		return line
	}
	line := fmt.Sprintf("%s port %d closed", res.Target.Host, res.Target.Port)
	if colored {
		return color.Red.Sprint(line)
	}
	return line
}

func printUsage() {
	fmt.Println("HostWatch Agent CLI")
	fmt.Println()
	fmt.Println("Usage:")
	fmt.Println("  hostwatch-agent run [--config /etc/hostwatch/agent.yaml] [--interactive]")
	fmt.Println("  hostwatch-agent probe [--timeout 200ms] <port> [host]")
	fmt.Println("  hostwatch-agent version")
}
