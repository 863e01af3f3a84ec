package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const validYAML = `
log:
  level: debug
  format: json
metric_prefix: cassandra
pushgateway_url: http://pushgw.internal:9091
job_name: ringwatch
ssh:
  user: monitor
  identity_file: /var/lib/ringwatch/id_ed25519
  connect_timeout_sec: 5
nodetool_path: /opt/cassandra/bin/nodetool
command_timeout_sec: 30
concurrency: 8
targets:
  - name: cass-01
    address: 10.0.0.1
  - name: cass-02
    address: 10.0.0.2
    nodetool_path: /usr/local/bin/nodetool
`

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoadValidConfig(t *testing.T) {
	cfg, err := Load(writeConfig(t, validYAML))
	require.NoError(t, err)

	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, "cassandra", cfg.MetricPrefix)
	assert.Equal(t, "http://pushgw.internal:9091", cfg.PushgatewayURL)
	assert.Equal(t, "monitor", cfg.SSH.User)
	assert.Equal(t, 30*time.Second, cfg.CommandTimeout())
	assert.Equal(t, 8, cfg.Concurrency)
	require.Len(t, cfg.Targets, 2)

	assert.Equal(t, "/opt/cassandra/bin/nodetool", cfg.NodetoolPathFor(cfg.Targets[0]))
	assert.Equal(t, "/usr/local/bin/nodetool", cfg.NodetoolPathFor(cfg.Targets[1]))
}

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load(writeConfig(t, `
pushgateway_url: http://pushgw.internal:9091
targets:
  - name: cass-01
    address: 10.0.0.1
`))
	require.NoError(t, err)

	assert.Equal(t, defaultMetricPrefix, cfg.MetricPrefix)
	assert.Equal(t, defaultJobName, cfg.JobName)
	assert.Equal(t, defaultNodetoolPath, cfg.NodetoolPath)
	assert.Equal(t, defaultSSHUser, cfg.SSH.User)
	assert.Equal(t, defaultConnectTimeoutSec, cfg.SSH.ConnectTimeoutSec)
	assert.Equal(t, time.Duration(defaultCommandTimeoutSec)*time.Second, cfg.CommandTimeout())
	assert.Equal(t, defaultConcurrency, cfg.Concurrency)
}

func TestLoadEnvOverrides(t *testing.T) {
	t.Setenv("RINGWATCH_METRIC_PREFIX", "cass_prod")
	t.Setenv("RINGWATCH_COMMAND_TIMEOUT_SEC", "120")
	t.Setenv("RINGWATCH_SSH_USER", "ops")

	cfg, err := Load(writeConfig(t, validYAML))
	require.NoError(t, err)

	assert.Equal(t, "cass_prod", cfg.MetricPrefix)
	assert.Equal(t, 120*time.Second, cfg.CommandTimeout())
	assert.Equal(t, "ops", cfg.SSH.User)
}

func TestLoadInvalidEnvValueIgnored(t *testing.T) {
	t.Setenv("RINGWATCH_CONCURRENCY", "banana")

	cfg, err := Load(writeConfig(t, validYAML))
	require.NoError(t, err)
	assert.Equal(t, 8, cfg.Concurrency)
}

func TestLoadValidationErrors(t *testing.T) {
	tests := []struct {
		name    string
		yaml    string
		wantErr string
	}{
		{
			name: "missing pushgateway url",
			yaml: `
targets:
  - name: cass-01
    address: 10.0.0.1
`,
			wantErr: "pushgateway_url",
		},
		{
			name: "empty target list",
			yaml: `
pushgateway_url: http://pushgw.internal:9091
targets: []
`,
			wantErr: "non-empty",
		},
		{
			name: "nodetool path is a directory",
			yaml: `
pushgateway_url: http://pushgw.internal:9091
nodetool_path: /opt/cassandra/bin/
targets:
  - name: cass-01
    address: 10.0.0.1
`,
			wantErr: "nodetool_path",
		},
		{
			name: "target without address",
			yaml: `
pushgateway_url: http://pushgw.internal:9091
targets:
  - name: cass-01
`,
			wantErr: "address is required",
		},
		{
			name: "duplicate target names",
			yaml: `
pushgateway_url: http://pushgw.internal:9091
targets:
  - name: cass-01
    address: 10.0.0.1
  - name: cass-01
    address: 10.0.0.2
`,
			wantErr: "duplicate",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(writeConfig(t, tt.yaml))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}
