package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Duration accepts both "500ms" strings and raw nanosecond integers in
// YAML.
type Duration time.Duration

func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var n int64
	if err := value.Decode(&n); err == nil {
		*d = Duration(n)
		return nil
	}
	var s string
	if err := value.Decode(&s); err != nil {
		return fmt.Errorf("invalid duration %q", value.Value)
	}
	parsed, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", s, err)
	}
	*d = Duration(parsed)
	return nil
}

func (d Duration) Std() time.Duration { return time.Duration(d) }

type Config struct {
	Input     InputConfig     `yaml:"input"`
	Output    OutputConfig    `yaml:"output"`
	Autopilot AutopilotConfig `yaml:"autopilot"`
	Targets   TargetsConfig   `yaml:"targets"`
	Feed      FeedConfig      `yaml:"feed"`
	Log       LogConfig       `yaml:"log"`
}

type InputConfig struct {
	// Source selects the NMEA input: "serial", "tcp" or "file".
	Source string `yaml:"source"`

	Device string `yaml:"device"`
	Baud   int    `yaml:"baud"`

	Addr string `yaml:"addr"`

	Path        string   `yaml:"path"`
	ReplayDelay Duration `yaml:"replay_delay"`
	Loop        bool     `yaml:"loop"`

	BufferBytes int `yaml:"buffer_bytes"`
}

type OutputConfig struct {
	// Mode selects where autopilot sentences go: "udp" or "stdout".
	Mode string `yaml:"mode"`
	// Dest is host:port for mode=="udp".
	Dest string `yaml:"dest"`
}

type AutopilotConfig struct {
	Enable         bool     `yaml:"enable"`
	Interval       Duration `yaml:"interval"`
	Talker         string   `yaml:"talker"`
	ArrivalRadiusM float64  `yaml:"arrival_radius_m"`
}

type TargetsConfig struct {
	Max int      `yaml:"max"`
	TTL Duration `yaml:"ttl"`
}

type FeedConfig struct {
	Broker         string   `yaml:"broker"`
	TLS            bool     `yaml:"tls"`
	Auth           string   `yaml:"auth"`
	TopicPrefix    string   `yaml:"topic_prefix"`
	ClientID       string   `yaml:"client_id"`
	TargetInterval Duration `yaml:"target_interval"`
}

type LogConfig struct {
	// Path is the rotating log file. Empty logs to stderr only.
	Path       string `yaml:"path"`
	MaxSizeMB  int    `yaml:"max_size_mb"`
	MaxBackups int    `yaml:"max_backups"`
	MaxAgeDays int    `yaml:"max_age_days"`
	Compress   bool   `yaml:"compress"`
}

func Load(path string) (Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return Config{}, err
	}

	var cfg Config
	if err := yaml.Unmarshal(b, &cfg); err != nil {
		return Config{}, err
	}

	cfg.Input.Source = strings.ToLower(strings.TrimSpace(cfg.Input.Source))
	switch cfg.Input.Source {
	case "":
		cfg.Input.Source = "serial"
	case "serial", "tcp", "file":
	default:
		return Config{}, fmt.Errorf("input.source must be serial, tcp or file, got %q", cfg.Input.Source)
	}
	if cfg.Input.Source == "tcp" && strings.TrimSpace(cfg.Input.Addr) == "" {
		return Config{}, fmt.Errorf("input.addr is required when input.source is tcp")
	}
	if cfg.Input.Source == "file" && strings.TrimSpace(cfg.Input.Path) == "" {
		return Config{}, fmt.Errorf("input.path is required when input.source is file")
	}
	if cfg.Input.Baud <= 0 {
		cfg.Input.Baud = 4800
	}
	if cfg.Input.BufferBytes <= 0 {
		cfg.Input.BufferBytes = 16 * 1024
	}

	cfg.Output.Mode = strings.ToLower(strings.TrimSpace(cfg.Output.Mode))
	switch cfg.Output.Mode {
	case "":
		cfg.Output.Mode = "stdout"
	case "stdout":
	case "udp":
		if strings.TrimSpace(cfg.Output.Dest) == "" {
			return Config{}, fmt.Errorf("output.dest is required when output.mode is udp")
		}
	default:
		return Config{}, fmt.Errorf("output.mode must be udp or stdout, got %q", cfg.Output.Mode)
	}

	if cfg.Autopilot.Interval <= 0 {
		cfg.Autopilot.Interval = Duration(200 * time.Millisecond)
	}
	if cfg.Autopilot.Talker == "" {
		cfg.Autopilot.Talker = "AP"
	}
	if len(cfg.Autopilot.Talker) != 2 {
		return Config{}, fmt.Errorf("autopilot.talker must be 2 characters, got %q", cfg.Autopilot.Talker)
	}
	if cfg.Autopilot.ArrivalRadiusM <= 0 {
		cfg.Autopilot.ArrivalRadiusM = 100
	}

	if cfg.Targets.Max <= 0 {
		cfg.Targets.Max = 500
	}
	if cfg.Targets.TTL <= 0 {
		cfg.Targets.TTL = Duration(10 * time.Minute)
	}

	if cfg.Feed.Broker != "" {
		if cfg.Feed.TopicPrefix == "" {
			cfg.Feed.TopicPrefix = "navpilot"
		}
		if cfg.Feed.ClientID == "" {
			cfg.Feed.ClientID = "navpilot"
		}
		if cfg.Feed.TargetInterval <= 0 {
			cfg.Feed.TargetInterval = Duration(10 * time.Second)
		}
	}

	// Log rotation defaults (safe even if disabled).
	if cfg.Log.MaxSizeMB <= 0 {
		cfg.Log.MaxSizeMB = 10
	}
	if cfg.Log.MaxBackups <= 0 {
		cfg.Log.MaxBackups = 3
	}
	if cfg.Log.MaxAgeDays <= 0 {
		cfg.Log.MaxAgeDays = 28
	}

	return cfg, nil
}
