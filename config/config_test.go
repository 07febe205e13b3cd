package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfig(t *testing.T) {
	conf := DefaultConfig()
	require.Equal(t, 30*time.Second, conf.Orchestrator.PollInterval)
	require.Equal(t, uint16(30), conf.Locking.MinLockDays)
	require.Equal(t, uint16(300), conf.Locking.MaxLockDays)
	require.NotEmpty(t, conf.KeyFile)
	require.Error(t, conf.Validate(), "defaults name no ledger")
}

func TestPresetsValidate(t *testing.T) {
	for name, conf := range Presets() {
		t.Run(name, func(t *testing.T) {
			require.NoError(t, conf.Validate())
		})
	}
}

func TestLoadConfigFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "metavote.toml")
	content := `
[main]
account = "alice.near"
metrics = true
metrics-port = 2112

[gateway]
node-url = "https://rpc.example.org"
contract-id = "vote.example.near"
token-id = "token.example.near"
request-retry-delay = "250ms"

[orchestrator]
poll-interval = "10s"
settle-max-attempts = 7

[logging]
log-encoder = "json"
app = "debug"
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	vip := viper.New()
	require.NoError(t, LoadConfig(path, vip))
	conf, err := ParseConfig(vip)
	require.NoError(t, err)

	require.Equal(t, "alice.near", conf.Account)
	require.True(t, conf.CollectMetrics)
	require.Equal(t, 2112, conf.MetricsPort)
	require.Equal(t, "https://rpc.example.org", conf.Gateway.NodeURL)
	require.Equal(t, 250*time.Millisecond, conf.Gateway.RequestRetryDelay)
	require.Equal(t, 10*time.Second, conf.Orchestrator.PollInterval)
	require.Equal(t, 7, conf.Orchestrator.SettleMaxAttempts)
	require.Equal(t, JSONLogEncoder, conf.LOGGING.Encoder)
	require.Equal(t, "debug", conf.LOGGING.AppLoggerLevel)
	// untouched sections keep their defaults
	require.Equal(t, 3, conf.Gateway.MaxRequestRetries)
	require.NoError(t, conf.Validate())
}

func TestLoadConfigMissingFile(t *testing.T) {
	vip := viper.New()
	require.Error(t, LoadConfig(filepath.Join(t.TempDir(), "nope.toml"), vip))
	// the implicit default path may simply not exist
	require.NoError(t, LoadConfig("", viper.New()))
}

func TestLoggerBuild(t *testing.T) {
	conf := defaultLoggingConfig()
	logger, err := conf.Build()
	require.NoError(t, err)
	require.NotNil(t, logger)

	conf.AppLoggerLevel = "verbose"
	_, err = conf.Build()
	require.Error(t, err)

	conf = defaultLoggingConfig()
	conf.Encoder = "yaml"
	_, err = conf.Build()
	require.Error(t, err)
}
