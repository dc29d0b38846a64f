package config

import (
	"flag"
	"fmt"
	"net"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// Flags holds parsed command-line flag values and which were set.
type Flags struct {
	Addr   string
	DB     string
	Config string
	Set    map[string]bool
}

// EffectiveConfigResult is the merged view of flags, env and config file
// used by the running engine.
type EffectiveConfigResult struct {
	Config *Config
	Addr   string
	DBPath string
	Source string // "flags", "config", or "env"
}

// ParseConfigFlags parses command-line flags and returns them as a Flags struct.
func ParseConfigFlags() Flags {
	addrPtr := flag.String("addr", "127.0.0.1:8090", "local surface listen address")
	dbPtr := flag.String("db", "./.chatsync", "local cache (pebble) path")
	cfgPtr := flag.String("config", "./config.yaml", "path to config file")
	flag.Parse()
	setFlags := make(map[string]bool)
	flag.Visit(func(f *flag.Flag) { setFlags[f.Name] = true })
	return Flags{Addr: *addrPtr, DB: *dbPtr, Config: *cfgPtr, Set: setFlags}
}

// Load reads and parses the YAML config at path.
func Load(path string) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var cfg Config
	if err := yaml.Unmarshal(b, &cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}
	return &cfg, nil
}

// ResolveConfigPath decides the config file path using the flag-provided
// value and CHATSYNC_CONFIG when the flag was not set.
func ResolveConfigPath(flagPath string, flagSet bool) string {
	if flagSet {
		return flagPath
	}
	if p := os.Getenv("CHATSYNC_CONFIG"); p != "" {
		return p
	}
	return flagPath
}

// applyEnvOverrides applies environment overrides onto cfg and reports
// whether any env vars were used.
func applyEnvOverrides(cfg *Config) bool {
	envUsed := false

	if v := os.Getenv("CHATSYNC_ADDR"); v != "" {
		envUsed = true
		if h, p, err := net.SplitHostPort(v); err == nil {
			cfg.Server.Address = h
			if pi, err := strconv.Atoi(p); err == nil {
				cfg.Server.Port = pi
			}
		} else {
			cfg.Server.Address = v
		}
	}
	if v := os.Getenv("CHATSYNC_DB_PATH"); v != "" {
		envUsed = true
		cfg.Storage.DBPath = v
	}
	if v := os.Getenv("CHATSYNC_BACKEND_URL"); v != "" {
		envUsed = true
		cfg.Backend.BaseURL = v
	}
	if v := os.Getenv("CHATSYNC_BACKEND_API_KEY"); v != "" {
		envUsed = true
		cfg.Backend.APIKey = v
	}
	if v := os.Getenv("CHATSYNC_PUSH_URL"); v != "" {
		envUsed = true
		cfg.Push.URL = v
	}
	if v := os.Getenv("CHATSYNC_LOCAL_USER"); v != "" {
		envUsed = true
		cfg.Identity.LocalUserID = v
	}
	if v := os.Getenv("CHATSYNC_LOG_LEVEL"); v != "" {
		envUsed = true
		cfg.Logging.Level = strings.ToLower(strings.TrimSpace(v))
	}
	return envUsed
}

// LoadEffective loads the config file (if present), applies env overrides
// and flag precedence, normalizes defaults and returns the effective view.
// Precedence: flags > env > file.
func LoadEffective(flags Flags) (EffectiveConfigResult, error) {
	cfgPath := ResolveConfigPath(flags.Config, flags.Set["config"])
	source := "flags"

	cfg := &Config{}
	if loaded, err := Load(cfgPath); err == nil {
		cfg = loaded
		source = "config"
	} else if !os.IsNotExist(err) {
		return EffectiveConfigResult{}, err
	}

	if applyEnvOverrides(cfg) {
		source = "env"
	}

	addr := cfg.Addr()
	if flags.Set["addr"] {
		addr = flags.Addr
		source = "flags"
	}
	dbPath := cfg.Storage.DBPath
	if dbPath == "" || flags.Set["db"] {
		dbPath = flags.DB
	}

	cfg.Normalize()
	return EffectiveConfigResult{Config: cfg, Addr: addr, DBPath: dbPath, Source: source}, nil
}

// Validate fails fast on settings the engine cannot run with.
func Validate(eff EffectiveConfigResult) error {
	c := eff.Config
	if eff.DBPath == "" {
		return fmt.Errorf("storage.db_path is required")
	}
	if c.Identity.LocalUserID == "" {
		return fmt.Errorf("identity.local_user_id is required")
	}
	if strings.Contains(c.Identity.LocalUserID, "|") {
		return fmt.Errorf("identity.local_user_id must not contain '|'")
	}
	if c.Sync.ConfirmTimeout.Duration() <= 0 {
		return fmt.Errorf("sync.confirm_timeout must be positive")
	}
	if c.Sync.HistoryCap <= 0 {
		return fmt.Errorf("sync.history_cap must be positive")
	}
	if c.Backend.BaseURL != "" && !strings.HasPrefix(c.Backend.BaseURL, "http") {
		return fmt.Errorf("backend.base_url must be an http(s) URL")
	}
	if c.Push.ReconnectMin.Duration() > c.Push.ReconnectMax.Duration() {
		return fmt.Errorf("push.reconnect_min exceeds push.reconnect_max")
	}
	return nil
}
