package config

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"gopkg.in/yaml.v3"
)

// Config is the main configuration struct.
type Config struct {
	Server      ServerConfig      `yaml:"server"`
	Storage     StorageConfig     `yaml:"storage"`
	Backend     BackendConfig     `yaml:"backend"`
	Push        PushConfig        `yaml:"push"`
	Sync        SyncConfig        `yaml:"sync"`
	Identity    IdentityConfig    `yaml:"identity"`
	Logging     LoggingConfig     `yaml:"logging"`
	Maintenance MaintenanceConfig `yaml:"maintenance"`
}

// ServerConfig holds the local HTTP surface settings (snapshots, metrics).
type ServerConfig struct {
	Address string `yaml:"address"`
	Port    int    `yaml:"port"`
}

// StorageConfig holds the local cache location.
type StorageConfig struct {
	DBPath string `yaml:"db_path"`
}

// BackendConfig holds REST collaborator settings.
type BackendConfig struct {
	BaseURL string `yaml:"base_url"`
	APIKey  string `yaml:"api_key"`
	// Timeout bounds each REST call; distinct from Sync.ConfirmTimeout.
	Timeout    Duration `yaml:"timeout"`
	RetryRPS   float64  `yaml:"retry_rps"`
	RetryBurst int      `yaml:"retry_burst"`
}

// PushConfig holds push stream (websocket) settings.
type PushConfig struct {
	URL              string    `yaml:"url"`
	HandshakeTimeout Duration  `yaml:"handshake_timeout"`
	ReconnectMin     Duration  `yaml:"reconnect_min"`
	ReconnectMax     Duration  `yaml:"reconnect_max"`
	ReadBufferBytes  SizeBytes `yaml:"read_buffer_bytes"`
}

// SyncConfig controls feed reconciliation tunables.
type SyncConfig struct {
	// ConfirmTimeout is how long a sent draft waits for either the REST
	// response or a push echo before transitioning to failed.
	ConfirmTimeout Duration `yaml:"confirm_timeout"`
	// ReactionCooldown keeps the in-flight reaction guard armed after a
	// toggle resolves, absorbing the push echo of the same action.
	ReactionCooldown  Duration `yaml:"reaction_cooldown"`
	TypingTTL         Duration `yaml:"typing_ttl"`
	TypingSweep       Duration `yaml:"typing_sweep"`
	FeedQueueCapacity int      `yaml:"feed_queue_capacity"`
	// HistoryCap bounds per-conversation cached history.
	HistoryCap int `yaml:"history_cap"`
}

// IdentityConfig names the local user this engine synchronizes for.
type IdentityConfig struct {
	LocalUserID string `yaml:"local_user_id"`
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	Level string `yaml:"level"`
}

// MaintenanceConfig configures the scheduled cache sweep.
type MaintenanceConfig struct {
	Enabled bool   `yaml:"enabled"`
	Cron    string `yaml:"cron"`
	DryRun  bool   `yaml:"dry_run"`
}

// Defaults applied by Normalize when a value is unset.
const (
	DefaultConfirmTimeout   = 8 * time.Second
	DefaultReactionCooldown = 400 * time.Millisecond
	DefaultTypingTTL        = 4 * time.Second
	DefaultTypingSweep      = time.Second
	DefaultBackendTimeout   = 15 * time.Second
	DefaultQueueCapacity    = 1024
	DefaultHistoryCap       = 100
)

// Normalize fills zero values with defaults.
func (c *Config) Normalize() {
	if c.Sync.ConfirmTimeout.Duration() == 0 {
		c.Sync.ConfirmTimeout = Duration(DefaultConfirmTimeout)
	}
	if c.Sync.ReactionCooldown.Duration() == 0 {
		c.Sync.ReactionCooldown = Duration(DefaultReactionCooldown)
	}
	if c.Sync.TypingTTL.Duration() == 0 {
		c.Sync.TypingTTL = Duration(DefaultTypingTTL)
	}
	if c.Sync.TypingSweep.Duration() == 0 {
		c.Sync.TypingSweep = Duration(DefaultTypingSweep)
	}
	if c.Sync.FeedQueueCapacity <= 0 {
		c.Sync.FeedQueueCapacity = DefaultQueueCapacity
	}
	if c.Sync.HistoryCap <= 0 {
		c.Sync.HistoryCap = DefaultHistoryCap
	}
	if c.Backend.Timeout.Duration() == 0 {
		c.Backend.Timeout = Duration(DefaultBackendTimeout)
	}
	if c.Push.HandshakeTimeout.Duration() == 0 {
		c.Push.HandshakeTimeout = Duration(10 * time.Second)
	}
	if c.Push.ReconnectMin.Duration() == 0 {
		c.Push.ReconnectMin = Duration(time.Second)
	}
	if c.Push.ReconnectMax.Duration() == 0 {
		c.Push.ReconnectMax = Duration(30 * time.Second)
	}
}

// Addr returns host:port for the local HTTP surface.
func (c *Config) Addr() string {
	addr := c.Server.Address
	if addr == "" {
		addr = "127.0.0.1"
	}
	p := c.Server.Port
	if p == 0 {
		p = 8090
	}
	return fmt.Sprintf("%s:%d", addr, p)
}

// SizeBytes represents a number of bytes, unmarshaled from human-friendly strings like "64MB" or plain integers.
type SizeBytes int64

func (s *SizeBytes) UnmarshalYAML(node *yaml.Node) error {
	if node == nil {
		*s = 0
		return nil
	}
	raw := strings.TrimSpace(node.Value)
	if raw == "" {
		*s = 0
		return nil
	}
	if v, err := humanize.ParseBytes(raw); err == nil {
		*s = SizeBytes(v)
		return nil
	}
	if i, err := strconv.ParseInt(raw, 10, 64); err == nil {
		*s = SizeBytes(i)
		return nil
	}
	return fmt.Errorf("invalid size value: %q", node.Value)
}

func (s SizeBytes) Int64() int64 { return int64(s) }

// Duration is a wrapper around time.Duration that supports YAML parsing from strings like "100ms" or plain numbers (interpreted as seconds).
type Duration time.Duration

func (d *Duration) UnmarshalYAML(node *yaml.Node) error {
	if node == nil {
		*d = Duration(0)
		return nil
	}
	raw := strings.TrimSpace(node.Value)
	if raw == "" {
		*d = Duration(0)
		return nil
	}
	if td, err := time.ParseDuration(raw); err == nil {
		*d = Duration(td)
		return nil
	}
	// allow numeric seconds
	if f, err := strconv.ParseFloat(raw, 64); err == nil {
		*d = Duration(time.Duration(f * float64(time.Second)))
		return nil
	}
	return fmt.Errorf("invalid duration value: %q", node.Value)
}

func (d Duration) Duration() time.Duration { return time.Duration(d) }
