package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, name, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

const validYAML = `
telegram:
  token: "123:abc"
  admin_chat_id: 1000
  poll_timeout: "10s"
logging:
  level: info
  console: true
store:
  path: ./packages.json
carriers:
  timeout: "15s"
sweep:
  enabled: true
  schedule: "*/30 * * * *"
`

func TestLoadYAML(t *testing.T) {
	m := NewManager(writeFile(t, "config.yaml", validYAML))
	cfg, err := m.Load()
	require.NoError(t, err)
	assert.Equal(t, "123:abc", cfg.Telegram.Token)
	assert.Equal(t, int64(1000), cfg.Telegram.AdminChatID)
	assert.Equal(t, "./packages.json", cfg.Store.Path)
	assert.True(t, cfg.Sweep.Enabled)
	assert.Same(t, cfg, m.Get())
}

func TestLoadJSON(t *testing.T) {
	m := NewManager(writeFile(t, "config.json", `{
		"telegram": {"token": "t", "admin_chat_id": 5},
		"logging": {"level": "debug"},
		"store": {"path": "p.json"},
		"carriers": {},
		"sweep": {}
	}`))
	cfg, err := m.Load()
	require.NoError(t, err)
	assert.Equal(t, "debug", cfg.Logging.Level)
}

func TestUnknownKeyRejected(t *testing.T) {
	m := NewManager(writeFile(t, "config.yaml", validYAML+"\nbogus: 1\n"))
	_, err := m.Load()
	require.Error(t, err)
}

func TestTrailingDataRejected(t *testing.T) {
	m := NewManager(writeFile(t, "config.json",
		`{"telegram":{"token":"t"},"store":{"path":"p"},"logging":{},"carriers":{},"sweep":{}} {}`))
	_, err := m.Load()
	require.Error(t, err)
}

func TestEnvOverridesWin(t *testing.T) {
	t.Setenv("TRACKBOT_TELEGRAM_TOKEN", "env-token")
	t.Setenv("TRACKBOT_FEDEX_API_KEY", "env-key")
	t.Setenv("TRACKBOT_FEDEX_API_SECRET", "env-secret")

	m := NewManager(writeFile(t, "config.yaml", validYAML))
	cfg, err := m.Load()
	require.NoError(t, err)
	assert.Equal(t, "env-token", cfg.Telegram.Token)
	assert.Equal(t, "env-key", cfg.Carriers.FedEx.APIKey)
	assert.Equal(t, "env-secret", cfg.Carriers.FedEx.APISecret)
}

func TestValidate(t *testing.T) {
	base := func() *Config {
		return &Config{
			Telegram: TelegramConfig{Token: "t"},
			Store:    StoreConfig{Path: "p.json"},
		}
	}

	assert.NoError(t, Validate(base()))

	cfg := base()
	cfg.Telegram.Token = " "
	assert.Error(t, Validate(cfg))

	cfg = base()
	cfg.Store.Path = ""
	assert.Error(t, Validate(cfg))

	cfg = base()
	cfg.Carriers.Timeout = "soon"
	assert.Error(t, Validate(cfg))

	cfg = base()
	cfg.Sweep = SweepConfig{Enabled: true, Schedule: "not a cron spec"}
	assert.Error(t, Validate(cfg))

	cfg = base()
	cfg.Sweep = SweepConfig{Enabled: true, Timezone: "Mars/Olympus"}
	assert.Error(t, Validate(cfg))

	cfg = base()
	cfg.Sweep = SweepConfig{Enabled: true} // default schedule applies
	assert.NoError(t, Validate(cfg))
}

func TestReloadPublishesOnce(t *testing.T) {
	path := writeFile(t, "config.yaml", validYAML)
	m := NewManager(path)
	_, err := m.Load()
	require.NoError(t, err)

	sub := m.Subscribe(4)
	defer m.Unsubscribe(sub)

	// Same content: hash match suppresses the publish.
	m.reload()
	assert.Empty(t, sub)

	require.NoError(t, os.WriteFile(path, []byte(validYAML+"\nnotifier:\n  rate_per_sec: 5\n"), 0o644))
	m.reload()
	require.Len(t, sub, 1)
	cfg := <-sub
	require.NotNil(t, cfg.Notifier)
	assert.Equal(t, 5, cfg.Notifier.RatePerSec)
	assert.Same(t, cfg, m.Get())
}

func TestReloadRejectsInvalid(t *testing.T) {
	path := writeFile(t, "config.yaml", validYAML)
	m := NewManager(path)
	before, err := m.Load()
	require.NoError(t, err)

	require.NoError(t, os.WriteFile(path, []byte("telegram:\n  token: \"\"\n"), 0o644))
	m.reload()
	assert.Same(t, before, m.Get())
}

func TestParseDurations(t *testing.T) {
	d, err := ParseDurationOrDefault("x", "", 42)
	require.NoError(t, err)
	assert.Equal(t, int64(42), int64(d))

	d, err = ParseDurationField("x", "1m30s")
	require.NoError(t, err)
	assert.Equal(t, "1m30s", d.String())

	_, err = ParseDurationField("x", "-5s")
	require.Error(t, err)
}
