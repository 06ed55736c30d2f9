package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rakshithvk19/rax-ftp-server/internal/bytesize"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestLoad_AppliesDefaults(t *testing.T) {
	path := writeConfig(t, `
control_port: 2121
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, DefaultBindAddress, cfg.BindAddress)
	assert.Equal(t, DefaultDataPortMin, cfg.DataPortMin)
	assert.Equal(t, DefaultDataPortMax, cfg.DataPortMax)
	assert.Equal(t, DefaultMaxClients, cfg.MaxClients)
	assert.Equal(t, DefaultMaxFileSize, cfg.MaxFileSize)
	assert.Equal(t, DefaultConnectionTimeout, cfg.ConnectionTimeout)
	assert.Equal(t, "INFO", cfg.Logging.Level)
	assert.Equal(t, "text", cfg.Logging.Format)
}

func TestLoad_FullConfig(t *testing.T) {
	path := writeConfig(t, `
bind_address: 0.0.0.0
control_port: 21
data_port_min: 40000
data_port_max: 40100
min_client_port: 2048
max_clients: 50
max_file_size: 10Mi
server_root: /data/ftp
connection_timeout: 5s
logging:
  level: DEBUG
  format: json
metrics:
  enabled: true
  port: 9100
users:
  - username: alice
    password: alice123
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "0.0.0.0", cfg.BindAddress)
	assert.Equal(t, 21, cfg.ControlPort)
	assert.Equal(t, 40000, cfg.DataPortMin)
	assert.Equal(t, 40100, cfg.DataPortMax)
	assert.Equal(t, 2048, cfg.MinClientPort)
	assert.Equal(t, 50, cfg.MaxClients)
	assert.Equal(t, 10*bytesize.MiB, cfg.MaxFileSize)
	assert.Equal(t, "/data/ftp", cfg.ServerRoot)
	assert.Equal(t, 5*time.Second, cfg.ConnectionTimeout)
	assert.True(t, cfg.Metrics.Enabled)
	assert.Equal(t, 9100, cfg.Metrics.Port)
	require.Len(t, cfg.Users, 1)
	assert.Equal(t, "alice", cfg.Users[0].Username)
}

func TestLoad_MissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, err)
	assert.Equal(t, DefaultControlPort, cfg.ControlPort)
}

func TestValidate_Rejections(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"InvertedPortRange", func(c *Config) { c.DataPortMin = 3000; c.DataPortMax = 2000 }},
		{"ControlPortInsideDataRange", func(c *Config) { c.ControlPort = 2150 }},
		{"BadBindAddress", func(c *Config) { c.BindAddress = "not-an-ip" }},
		{"ZeroMaxClients", func(c *Config) { c.MaxClients = -1 }},
		{"BadLogLevel", func(c *Config) { c.Logging.Level = "LOUD" }},
		{"UserWithoutPassword", func(c *Config) {
			c.Users = []UserConfig{{Username: "alice"}}
		}},
		{"UserWithoutUsername", func(c *Config) {
			c.Users = []UserConfig{{Password: "secret123"}}
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := GetDefaultConfig()
			tt.mutate(cfg)
			assert.Error(t, Validate(cfg))
		})
	}
}

func TestValidate_DefaultsAreValid(t *testing.T) {
	assert.NoError(t, Validate(GetDefaultConfig()))
}

func TestLoad_EnvOverride(t *testing.T) {
	path := writeConfig(t, `
control_port: 2121
max_clients: 10
`)
	t.Setenv("RAXFTP_MAX_CLIENTS", "3")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 3, cfg.MaxClients)
}

func TestInitConfigToPath(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sub", "config.yaml")

	require.NoError(t, InitConfigToPath(path, false))

	// The sample must load and validate.
	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 2121, cfg.ControlPort)
	require.Len(t, cfg.Users, 2)

	// A second init without --force refuses to overwrite.
	assert.Error(t, InitConfigToPath(path, false))
	assert.NoError(t, InitConfigToPath(path, true))
}

func TestSaveConfig_RoundTrip(t *testing.T) {
	cfg := GetDefaultConfig()
	cfg.MaxClients = 7
	path := filepath.Join(t.TempDir(), "saved.yaml")

	require.NoError(t, SaveConfig(cfg, path))

	loaded, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 7, loaded.MaxClients)
}
