package main

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/hostwatchhq/agent/internal/config"
	"github.com/hostwatchhq/agent/internal/health"
	"github.com/hostwatchhq/agent/internal/metrics"
	"github.com/hostwatchhq/agent/internal/runtime"
	"github.com/hostwatchhq/agent/pkg/types"
)

func TestProbeVerdictPlain(t *testing.T) {
	open := probeVerdict(types.ProbeResult{
		Target:          types.Target{Host: "127.0.0.1", Port: 8080},
		Open:            true,
		RTTMilliseconds: 12.3,
	}, false)
	if !strings.Contains(open, "port 8080 open") || !strings.Contains(open, "12.3 ms") {
		t.Fatalf("unexpected open verdict: %q", open)
	}

	closed := probeVerdict(types.ProbeResult{
		Target: types.Target{Host: "10.0.0.1", Port: 22},
	}, false)
	if closed != "10.0.0.1 port 22 closed" {
		t.Fatalf("unexpected closed verdict: %q", closed)
	}
}

func TestProbeVerdictColoredDiffersFromPlain(t *testing.T) {
	res := types.ProbeResult{
		Target: types.Target{Host: "10.0.0.1", Port: 22},
	}
	plain := probeVerdict(res, false)
	colored := probeVerdict(res, true)
	if !strings.Contains(colored, plain) {
		t.Fatalf("colored verdict should wrap the plain text: %q", colored)
	}
	if colored == plain {
		t.Fatal("colored verdict should carry ANSI escapes")
	}
}

func TestRuntimeOptionsBuildWorkingRuntime(t *testing.T) {
	cfg := config.Config{
		Monitor: config.MonitorConfig{
			Host:             "192.0.2.1",
			Port:             80,
			Interval:         config.DefaultInterval,
			ProbeTimeout:     config.DefaultProbeTimeout,
			FailureThreshold: config.DefaultFailureThreshold,
		},
		Probe: config.ProbeConfig{
			Timeout:    config.DefaultOnDemandTimeout,
			RatePerSec: 10,
			Burst:      5,
		},
		Run: config.RunConfig{EventBuffer: 16},
	}

	store := metrics.NewStore()
	checker := health.NewChecker(store, 3*cfg.Monitor.Interval)

	rt, err := runtime.New(
		types.Target{Host: cfg.Monitor.Host, Port: cfg.Monitor.Port},
		runtimeOptions(cfg, nil, store, checker)...,
	)
	if err != nil {
		t.Fatalf("runtime from config options: %v", err)
	}

	snap := rt.Monitor().Snapshot()
	if snap.FailureThreshold != config.DefaultFailureThreshold {
		t.Fatalf("threshold not applied: %+v", snap)
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if _, err := rt.Prober().ProbeInput(ctx, "not-a-port", ""); err == nil {
		t.Fatal("expected invalid input error")
	}
	if store.Snapshot().InvalidInputTotal != 1 {
		t.Fatal("prober metrics not wired through config options")
	}
}
