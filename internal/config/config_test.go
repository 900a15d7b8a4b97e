package config

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeConfig(t *testing.T, contents string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "agent.yaml")
	if err := os.WriteFile(path, []byte(contents), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoadParsesAllSections(t *testing.T) {
	path := writeConfig(t, `
monitor:
  host: 192.0.2.10
  port: 80
  interval: 2s
  probe_timeout: 750ms
  failure_threshold: 5
probe:
  timeout: 150ms
  rate_per_sec: 10
  burst: 5
server:
  enabled: true
  addr: 127.0.0.1:9999
watch:
  - dir: /tmp/inbox
    file: input.jpg
    poll: 250ms
    copy_to: /tmp/outbox/input.jpg
run:
  interactive: true
  event_buffer: 64
`)

	cfg, err := Load(context.Background(), path)
	if err != nil {
		t.Fatalf("load config: %v", err)
	}

	if cfg.Monitor.Host != "192.0.2.10" || cfg.Monitor.Port != 80 {
		t.Fatalf("unexpected monitor target: %s:%d", cfg.Monitor.Host, cfg.Monitor.Port)
	}
	if cfg.Monitor.Interval != 2*time.Second {
		t.Fatalf("unexpected interval: %s", cfg.Monitor.Interval)
	}
	if cfg.Monitor.ProbeTimeout != 750*time.Millisecond {
		t.Fatalf("unexpected probe timeout: %s", cfg.Monitor.ProbeTimeout)
	}
	if cfg.Monitor.FailureThreshold != 5 {
		t.Fatalf("unexpected threshold: %d", cfg.Monitor.FailureThreshold)
	}
	if cfg.Probe.Timeout != 150*time.Millisecond || cfg.Probe.RatePerSec != 10 || cfg.Probe.Burst != 5 {
		t.Fatalf("unexpected probe config: %+v", cfg.Probe)
	}
	if !cfg.Server.Enabled || cfg.Server.Addr != "127.0.0.1:9999" {
		t.Fatalf("unexpected server config: %+v", cfg.Server)
	}
	if len(cfg.Watch) != 1 || cfg.Watch[0].File != "input.jpg" || cfg.Watch[0].Poll != 250*time.Millisecond {
		t.Fatalf("unexpected watch config: %+v", cfg.Watch)
	}
	if !cfg.Run.Interactive || cfg.Run.EventBuffer != 64 {
		t.Fatalf("unexpected run config: %+v", cfg.Run)
	}
}

func TestLoadAppliesDefaults(t *testing.T) {
	path := writeConfig(t, `
monitor:
  host: 127.0.0.1
  port: 80
watch:
  - dir: /tmp/inbox
    file: report.csv
`)

	cfg, err := Load(context.Background(), path)
	if err != nil {
		t.Fatalf("load config: %v", err)
	}

	if cfg.Monitor.Interval != DefaultInterval {
		t.Fatalf("expected default interval, got %s", cfg.Monitor.Interval)
	}
	if cfg.Monitor.ProbeTimeout != DefaultProbeTimeout {
		t.Fatalf("expected default probe timeout, got %s", cfg.Monitor.ProbeTimeout)
	}
	if cfg.Monitor.FailureThreshold != DefaultFailureThreshold {
		t.Fatalf("expected default threshold, got %d", cfg.Monitor.FailureThreshold)
	}
	if cfg.Probe.Timeout != DefaultOnDemandTimeout {
		t.Fatalf("expected default on-demand timeout, got %s", cfg.Probe.Timeout)
	}
	if cfg.Server.Addr != DefaultServerAddr {
		t.Fatalf("expected default server addr, got %s", cfg.Server.Addr)
	}
	if cfg.Watch[0].Poll != DefaultWatchPoll {
		t.Fatalf("expected default watch poll, got %s", cfg.Watch[0].Poll)
	}
}

func TestLoadProbeTimeoutCappedAtInterval(t *testing.T) {
	path := writeConfig(t, `
monitor:
  host: 127.0.0.1
  port: 80
  interval: 1s
  probe_timeout: 3s
`)

	cfg, err := Load(context.Background(), path)
	if err != nil {
		t.Fatalf("load config: %v", err)
	}
	if cfg.Monitor.ProbeTimeout != time.Second {
		t.Fatalf("expected probe timeout capped at interval, got %s", cfg.Monitor.ProbeTimeout)
	}
}

func TestLoadFromEnvHonorsOverride(t *testing.T) {
	path := writeConfig(t, `
monitor:
  host: 198.51.100.1
  port: 443
`)
	t.Setenv(envConfigPath, path)

	cfg, err := LoadFromEnv(context.Background())
	if err != nil {
		t.Fatalf("load from env: %v", err)
	}
	if cfg.Monitor.Host != "198.51.100.1" {
		t.Fatalf("unexpected host: %s", cfg.Monitor.Host)
	}
}

func TestLoadMissingFileFails(t *testing.T) {
	if _, err := Load(context.Background(), filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Fatalf("expected error for missing config file")
	}
}
