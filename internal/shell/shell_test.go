package shell

import (
	"bytes"
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/hostwatchhq/agent/internal/netprobe"
	"github.com/hostwatchhq/agent/pkg/types"
)

type fakeStatus struct {
	snap types.StatusSnapshot
}

func (f fakeStatus) Snapshot() types.StatusSnapshot { return f.snap }

type fakeProber struct {
	calls []string
	open  bool
}

func (f *fakeProber) ProbeInput(ctx context.Context, rawPort, rawHost string) (types.ProbeResult, error) {
	f.calls = append(f.calls, rawPort+"/"+rawHost)
	port, err := netprobe.ParsePort(rawPort)
	if err != nil {
		return types.ProbeResult{}, err
	}
	return types.ProbeResult{
		Target: types.Target{Host: "127.0.0.1", Port: port},
		Open:   f.open,
	}, nil
}

func runScript(t *testing.T, status StatusSource, prober PortProber, script string, opts ...Option) string {
	t.Helper()
	var out bytes.Buffer
	opts = append(opts, WithColor(false))
	sh := New(strings.NewReader(script), &out, status, prober, opts...)
	if err := sh.Run(context.Background()); err != nil {
		t.Fatalf("shell run: %v", err)
	}
	return out.String()
}

func TestStatusCommandOnline(t *testing.T) {
	status := fakeStatus{snap: types.StatusSnapshot{
		Target: types.Target{Host: "192.0.2.1", Port: 80},
		Up:     true,
	}}
	out := runScript(t, status, &fakeProber{}, "status\nexit\n")
	if !strings.Contains(out, "online") {
		t.Fatalf("expected online verdict in output:\n%s", out)
	}
}

func TestStatusCommandOffline(t *testing.T) {
	status := fakeStatus{snap: types.StatusSnapshot{
		Target:              types.Target{Host: "192.0.2.1", Port: 80},
		Up:                  false,
		ConsecutiveFailures: 4,
		LastTransition:      time.Unix(1000, 0).UTC(),
	}}
	out := runScript(t, status, &fakeProber{}, "status\nexit\n")
	if !strings.Contains(out, "offline") || !strings.Contains(out, "4 consecutive") {
		t.Fatalf("expected offline verdict with failure count:\n%s", out)
	}
	if !strings.Contains(out, "last change") {
		t.Fatalf("expected transition time in output:\n%s", out)
	}
}

func TestTestCommandOpenAndClosed(t *testing.T) {
	prober := &fakeProber{open: true}
	out := runScript(t, fakeStatus{}, prober, "test 8080\nexit\n")
	if !strings.Contains(out, "[port 8080] open") {
		t.Fatalf("expected open verdict:\n%s", out)
	}
	if len(prober.calls) != 1 || prober.calls[0] != "8080/" {
		t.Fatalf("unexpected prober calls: %v", prober.calls)
	}

	prober = &fakeProber{open: false}
	out = runScript(t, fakeStatus{}, prober, "test 8080 10.0.0.1\nexit\n")
	if !strings.Contains(out, "[port 8080] closed") {
		t.Fatalf("expected closed verdict:\n%s", out)
	}
	if prober.calls[0] != "8080/10.0.0.1" {
		t.Fatalf("host override not forwarded: %v", prober.calls)
	}
}

func TestTestCommandInvalidInputIsDistinct(t *testing.T) {
	prober := &fakeProber{}
	out := runScript(t, fakeStatus{}, prober, "test abc\ntest 70000\nexit\n")
	if strings.Contains(out, "closed") {
		t.Fatalf("invalid input must not read as a closed port:\n%s", out)
	}
	if strings.Count(out, "invalid input") != 2 {
		t.Fatalf("expected two invalid-input rejections:\n%s", out)
	}
}

func TestWatchCommand(t *testing.T) {
	var gotDir, gotFile string
	wait := func(ctx context.Context, dir, file string) (string, error) {
		gotDir, gotFile = dir, file
		return dir + "/" + file, nil
	}
	out := runScript(t, fakeStatus{}, &fakeProber{}, "watch /tmp/inbox input.jpg\nexit\n", WithWaitFunc(wait))
	if gotDir != "/tmp/inbox" || gotFile != "input.jpg" {
		t.Fatalf("watch args not forwarded: %q %q", gotDir, gotFile)
	}
	if !strings.Contains(out, "file arrived: /tmp/inbox/input.jpg") {
		t.Fatalf("expected arrival message:\n%s", out)
	}
}

func TestWatchCommandError(t *testing.T) {
	wait := func(ctx context.Context, dir, file string) (string, error) {
		return "", fmt.Errorf("watch dir missing")
	}
	out := runScript(t, fakeStatus{}, &fakeProber{}, "watch /nope f\nexit\n", WithWaitFunc(wait))
	if !strings.Contains(out, "watch ended") {
		t.Fatalf("expected watch error message:\n%s", out)
	}
}

func TestUnknownCommandAndUsage(t *testing.T) {
	out := runScript(t, fakeStatus{}, &fakeProber{}, "frobnicate\ntest\nwatch onlydir\nexit\n")
	if !strings.Contains(out, "unknown command") {
		t.Fatalf("expected unknown-command warning:\n%s", out)
	}
	if !strings.Contains(out, "usage: test") || !strings.Contains(out, "usage: watch") {
		t.Fatalf("expected usage hints:\n%s", out)
	}
}

func TestRunReturnsOnEOF(t *testing.T) {
	var out bytes.Buffer
	sh := New(strings.NewReader("status\n"), &out, fakeStatus{}, &fakeProber{}, WithColor(false))
	if err := sh.Run(context.Background()); err != nil {
		t.Fatalf("expected clean exit on EOF, got %v", err)
	}
}
