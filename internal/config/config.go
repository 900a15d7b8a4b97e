package config

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	envConfigPath     = "HOSTWATCH_AGENT_CONFIG"
	DefaultConfigPath = "/etc/hostwatch/agent.yaml"
)

const (
	DefaultInterval         = 5 * time.Second
	DefaultProbeTimeout     = time.Second
	DefaultFailureThreshold = 3
	DefaultOnDemandTimeout  = 200 * time.Millisecond
	DefaultWatchPoll        = 500 * time.Millisecond
	DefaultServerAddr       = "127.0.0.1:9410"
)

type Config struct {
	Monitor MonitorConfig `yaml:"monitor"`
	Probe   ProbeConfig   `yaml:"probe"`
	Server  ServerConfig  `yaml:"server"`
	Watch   []WatchConfig `yaml:"watch"`
	Run     RunConfig     `yaml:"run"`
}

type MonitorConfig struct {
	Host             string        `yaml:"host"`
	Port             uint16        `yaml:"port"`
	Interval         time.Duration `yaml:"interval"`
	ProbeTimeout     time.Duration `yaml:"probe_timeout"`
	FailureThreshold int           `yaml:"failure_threshold"`
}

type ProbeConfig struct {
	Timeout    time.Duration `yaml:"timeout"`
	RatePerSec float64       `yaml:"rate_per_sec"`
	Burst      int           `yaml:"burst"`
}

type ServerConfig struct {
	Enabled bool   `yaml:"enabled"`
	Addr    string `yaml:"addr"`
}

type WatchConfig struct {
	Dir    string        `yaml:"dir"`
	File   string        `yaml:"file"`
	Poll   time.Duration `yaml:"poll"`
	CopyTo string        `yaml:"copy_to"`
}

type RunConfig struct {
	Interactive bool `yaml:"interactive"`
	EventBuffer int  `yaml:"event_buffer"`
}

func Load(ctx context.Context, path string) (Config, error) {
	var cfg Config

	f, err := os.Open(filepath.Clean(path))
	if err != nil {
		return cfg, fmt.Errorf("open config %q: %w", path, err)
	}
	defer f.Close()

	data, err := io.ReadAll(f)
	if err != nil {
		return cfg, fmt.Errorf("read config %q: %w", path, err)
	}

	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parse config %q: %w", path, err)
	}

	cfg.applyDefaults()
	return cfg, nil
}

func LoadFromEnv(ctx context.Context) (Config, error) {
	path := os.Getenv(envConfigPath)
	if path == "" {
		path = DefaultConfigPath
	}
	return Load(ctx, path)
}

func (c *Config) applyDefaults() {
	if c.Monitor.Interval <= 0 {
		c.Monitor.Interval = DefaultInterval
	}
	if c.Monitor.ProbeTimeout <= 0 {
		c.Monitor.ProbeTimeout = DefaultProbeTimeout
	}
	if c.Monitor.ProbeTimeout > c.Monitor.Interval {
		c.Monitor.ProbeTimeout = c.Monitor.Interval
	}
	if c.Monitor.FailureThreshold <= 0 {
		c.Monitor.FailureThreshold = DefaultFailureThreshold
	}
	if c.Probe.Timeout <= 0 {
		c.Probe.Timeout = DefaultOnDemandTimeout
	}
	if c.Server.Addr == "" {
		c.Server.Addr = DefaultServerAddr
	}
	for i := range c.Watch {
		if c.Watch[i].Poll <= 0 {
			c.Watch[i].Poll = DefaultWatchPoll
		}
	}
}
