// Package shell implements the interactive operator console. It is a thin
// read-eval loop over the core surface: the status cell via the monitor
// snapshot, the on-demand prober and the file watcher.
package shell

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/hostwatchhq/agent/internal/netprobe"
	"github.com/hostwatchhq/agent/internal/watcher"
	"github.com/hostwatchhq/agent/pkg/types"
)

// StatusSource exposes the monitor's current verdict.
type StatusSource interface {
	Snapshot() types.StatusSnapshot
}

// PortProber runs one on-demand port test from raw user input.
type PortProber interface {
	ProbeInput(ctx context.Context, rawPort, rawHost string) (types.ProbeResult, error)
}

// WaitFunc blocks until a watched file arrives.
type WaitFunc func(ctx context.Context, dir, file string) (string, error)

type Shell struct {
	in      io.Reader
	out     printer
	status  StatusSource
	prober  PortProber
	waitFor WaitFunc
}

type Option func(*Shell)

// WithColor forces colored or plain output regardless of tty detection.
func WithColor(enabled bool) Option {
	return func(s *Shell) {
		s.out.colored = enabled
	}
}

// WithWaitFunc replaces the file-arrival implementation.
func WithWaitFunc(fn WaitFunc) Option {
	return func(s *Shell) {
		if fn != nil {
			s.waitFor = fn
		}
	}
}

func New(in io.Reader, out io.Writer, status StatusSource, prober PortProber, opts ...Option) *Shell {
	s := &Shell{
		in:      in,
		out:     newPrinter(out, ColorUsable(out)),
		status:  status,
		prober:  prober,
		waitFor: defaultWait,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func defaultWait(ctx context.Context, dir, file string) (string, error) {
	w, err := watcher.New(dir, file)
	if err != nil {
		return "", err
	}
	return w.Wait(ctx)
}

// Run reads commands until EOF, "exit", or ctx cancellation.
func (s *Shell) Run(ctx context.Context) error {
	s.out.plain("hostwatch console")
	s.printHelp()

	lines := make(chan string)
	scanErr := make(chan error, 1)
	go func() {
		scanner := bufio.NewScanner(s.in)
		for scanner.Scan() {
			select {
			case lines <- scanner.Text():
			case <-ctx.Done():
				return
			}
		}
		scanErr <- scanner.Err()
	}()

	for {
		fmt.Fprint(s.out.out, "> ")
		select {
		case <-ctx.Done():
			return ctx.Err()
		case err := <-scanErr:
			return err
		case line := <-lines:
			if s.dispatch(ctx, line) {
				return nil
			}
		}
	}
}

// dispatch handles one command line and reports whether the shell should exit.
func (s *Shell) dispatch(ctx context.Context, line string) (exit bool) {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return false
	}

	switch fields[0] {
	case "exit", "quit":
		return true
	case "help":
		s.printHelp()
	case "status":
		s.printStatus()
	case "test":
		s.runTest(ctx, fields[1:])
	case "watch":
		s.runWatch(ctx, fields[1:])
	default:
		s.out.warn("unknown command %q; try help", fields[0])
	}
	return false
}

func (s *Shell) printHelp() {
	s.out.plain("commands:")
	s.out.plain("  status              show monitored host status")
	s.out.plain("  test <port> [host]  test a specific port")
	s.out.plain("  watch <dir> <file>  wait for a file to arrive")
	s.out.plain("  help                show this help")
	s.out.plain("  exit                quit")
}

func (s *Shell) printStatus() {
	snap := s.status.Snapshot()
	if snap.Up {
		s.out.good("[%s] online", snap.Target)
	} else {
		s.out.bad("[%s] offline (%d consecutive failed probes)", snap.Target, snap.ConsecutiveFailures)
	}
	if !snap.LastTransition.IsZero() {
		s.out.plain("  last change %s", snap.LastTransition.Format(time.RFC3339))
	}
}

func (s *Shell) runTest(ctx context.Context, args []string) {
	if len(args) < 1 || len(args) > 2 {
		s.out.warn("usage: test <port> [host]")
		return
	}
	host := ""
	if len(args) == 2 {
		host = args[1]
	}

	res, err := s.prober.ProbeInput(ctx, args[0], host)
	if err != nil {
		if netprobe.IsInvalidInput(err) {
			s.out.warn("invalid input: %v", err)
		} else {
			s.out.warn("probe failed: %v", err)
		}
		return
	}
	if res.Open {
		s.out.good("[port %d] open (%.1f ms)", res.Target.Port, res.RTTMilliseconds)
	} else {
		s.out.bad("[port %d] closed", res.Target.Port)
	}
}

func (s *Shell) runWatch(ctx context.Context, args []string) {
	if len(args) != 2 {
		s.out.warn("usage: watch <dir> <file>")
		return
	}

	s.out.plain("watching %s for %s (ctrl-c to stop)", args[0], args[1])
	path, err := s.waitFor(ctx, args[0], args[1])
	if err != nil {
		s.out.warn("watch ended: %v", err)
		return
	}
	s.out.good("file arrived: %s", path)
}
