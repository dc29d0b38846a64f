package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

func TestNormalizeFillsDefaults(t *testing.T) {
	cfg := &Config{}
	cfg.Normalize()

	require.Equal(t, DefaultConfirmTimeout, cfg.Sync.ConfirmTimeout.Duration())
	require.Equal(t, DefaultReactionCooldown, cfg.Sync.ReactionCooldown.Duration())
	require.Equal(t, DefaultTypingTTL, cfg.Sync.TypingTTL.Duration())
	require.Equal(t, DefaultQueueCapacity, cfg.Sync.FeedQueueCapacity)
	require.Equal(t, DefaultHistoryCap, cfg.Sync.HistoryCap)
	require.Equal(t, DefaultBackendTimeout, cfg.Backend.Timeout.Duration())
	require.Equal(t, "127.0.0.1:8090", cfg.Addr())
}

func TestYAMLDurationsAndSizes(t *testing.T) {
	raw := `
backend:
  base_url: https://api.example.com
  timeout: 5s
push:
  read_buffer_bytes: 64KB
sync:
  confirm_timeout: 2
  reaction_cooldown: 250ms
`
	var cfg Config
	require.NoError(t, yaml.Unmarshal([]byte(raw), &cfg))
	require.Equal(t, 5*time.Second, cfg.Backend.Timeout.Duration())
	// bare numbers are seconds
	require.Equal(t, 2*time.Second, cfg.Sync.ConfirmTimeout.Duration())
	require.Equal(t, 250*time.Millisecond, cfg.Sync.ReactionCooldown.Duration())
	require.Equal(t, int64(64000), cfg.Push.ReadBufferBytes.Int64())
}

func TestYAMLRejectsBadDuration(t *testing.T) {
	var cfg Config
	err := yaml.Unmarshal([]byte("sync:\n  confirm_timeout: soon\n"), &cfg)
	require.Error(t, err)
}

func TestLoadEffectivePrecedence(t *testing.T) {
	dir := t.TempDir()
	cfgPath := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(cfgPath, []byte(`
server:
  address: 0.0.0.0
  port: 9999
storage:
  db_path: /from/file
identity:
  local_user_id: me
`), 0o600))

	t.Setenv("CHATSYNC_DB_PATH", "/from/env")

	flags := Flags{Addr: "127.0.0.1:7000", DB: "./ignored", Config: cfgPath, Set: map[string]bool{"addr": true, "config": true}}
	eff, err := LoadEffective(flags)
	require.NoError(t, err)

	// flag wins for addr, env wins over file for db path
	require.Equal(t, "127.0.0.1:7000", eff.Addr)
	require.Equal(t, "/from/env", eff.DBPath)
	require.Equal(t, "me", eff.Config.Identity.LocalUserID)
}

func TestResolveConfigPath(t *testing.T) {
	t.Setenv("CHATSYNC_CONFIG", "/env/config.yaml")
	require.Equal(t, "/flag/config.yaml", ResolveConfigPath("/flag/config.yaml", true))
	require.Equal(t, "/env/config.yaml", ResolveConfigPath("/default/config.yaml", false))
}

func TestValidate(t *testing.T) {
	base := func() EffectiveConfigResult {
		cfg := &Config{}
		cfg.Identity.LocalUserID = "me"
		cfg.Normalize()
		return EffectiveConfigResult{Config: cfg, Addr: cfg.Addr(), DBPath: "/tmp/cache"}
	}

	require.NoError(t, Validate(base()))

	eff := base()
	eff.DBPath = ""
	require.Error(t, Validate(eff))

	eff = base()
	eff.Config.Identity.LocalUserID = ""
	require.Error(t, Validate(eff))

	eff = base()
	eff.Config.Identity.LocalUserID = "me|you"
	require.Error(t, Validate(eff), "the key separator cannot appear in user ids")

	eff = base()
	eff.Config.Backend.BaseURL = "ftp://nope"
	require.Error(t, Validate(eff))

	eff = base()
	eff.Config.Push.ReconnectMin = Duration(time.Minute)
	eff.Config.Push.ReconnectMax = Duration(time.Second)
	require.Error(t, Validate(eff))
}
