package config

import (
	"fmt"
	"os"
	"path/filepath"
)

// sampleConfig is written by the init command. The demo users match the
// ones the integration tests log in with.
const sampleConfig = `# rax-ftp-server configuration

bind_address: 127.0.0.1
control_port: 2121

# Passive-mode data connections lease ports from this inclusive range.
data_port_min: 2122
data_port_max: 2221

# PORT arguments below this are rejected.
min_client_port: 1024

max_clients: 10
max_file_size: 100Mi

server_root: /srv/ftp

# Data-channel dial/accept deadline.
connection_timeout: 30s

logging:
  level: INFO    # DEBUG, INFO, WARN, ERROR
  format: text   # text, json
  output: stdout # stdout, stderr, or a file path

metrics:
  enabled: false
  port: 9090

# Bootstrap credential table. Prefer bcrypt password_hash entries;
# plaintext password is accepted for development setups.
users:
  - username: alice
    password: alice123
  - username: bob
    password: bob123
`

// InitConfig writes the sample config to the default location.
// Returns the path written.
func InitConfig(force bool) (string, error) {
	path := GetDefaultConfigPath()
	return path, InitConfigToPath(path, force)
}

// InitConfigToPath writes the sample config to the given path.
func InitConfigToPath(path string, force bool) error {
	if !force {
		if _, err := os.Stat(path); err == nil {
			return fmt.Errorf("config file already exists at %s (use --force to overwrite)", path)
		}
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	if err := os.WriteFile(path, []byte(sampleConfig), 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}
