package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadReconcilerConfig(t *testing.T) {
	tests := []struct {
		name        string
		configFile  string
		expectError bool
		validate    func(*testing.T, *ReconcilerConfig)
	}{
		{
			name: "valid config file",
			configFile: `
debug: true
sentry_dsn: "https://sentry.example.com"
database:
  host: localhost
  port: 5432
  user: testuser
  password: testpass
  dbname: testdb
  sslmode: require
nats:
  url: "nats://localhost:4222"
  stream_name: "TEST_STREAM"
  consumer_name: "test-consumer"
  filter_subject: "marketplace.events.ethereum.>"
  max_reconnects: 5
  reconnect_wait: "5s"
  connection_name: "test-connection"
  ack_wait: "15s"
  max_deliver: 3
ethereum:
  rpc_url: "http://localhost:8545"
  chain: "eip155:11155111"
cursor:
  save_freq: 50
  save_delay: "10s"
`,
			expectError: false,
			validate: func(t *testing.T, cfg *ReconcilerConfig) {
				assert.True(t, cfg.Debug)
				assert.Equal(t, "https://sentry.example.com", cfg.SentryDSN)
				assert.Equal(t, "localhost", cfg.Database.Host)
				assert.Equal(t, 5432, cfg.Database.Port)
				assert.Equal(t, "testuser", cfg.Database.User)
				assert.Equal(t, "testpass", cfg.Database.Password)
				assert.Equal(t, "testdb", cfg.Database.DBName)
				assert.Equal(t, "require", cfg.Database.SSLMode)
				assert.Equal(t, "nats://localhost:4222", cfg.NATS.URL)
				assert.Equal(t, "TEST_STREAM", cfg.NATS.StreamName)
				assert.Equal(t, "test-consumer", cfg.NATS.ConsumerName)
				assert.Equal(t, "marketplace.events.ethereum.>", cfg.NATS.FilterSubject)
				assert.Equal(t, "15s", cfg.NATS.AckWait.String())
				assert.Equal(t, 3, cfg.NATS.MaxDeliver)
				assert.Equal(t, "http://localhost:8545", cfg.Ethereum.RPCURL)
				assert.Equal(t, "eip155:11155111", cfg.Ethereum.Chain)
				assert.Equal(t, uint64(50), cfg.Cursor.SaveFreq)
				assert.Equal(t, "10s", cfg.Cursor.SaveDelay.String())
			},
		},
		{
			name: "config with defaults",
			configFile: `
database:
  host: localhost
  user: testuser
  password: testpass
  dbname: testdb
nats:
  url: "nats://localhost:4222"
ethereum:
  rpc_url: "http://localhost:8545"
`,
			expectError: false,
			validate: func(t *testing.T, cfg *ReconcilerConfig) {
				// Check defaults
				assert.Equal(t, 5432, cfg.Database.Port)
				assert.Equal(t, "disable", cfg.Database.SSLMode)
				assert.Equal(t, 10, cfg.NATS.MaxReconnects)
				assert.Equal(t, "2s", cfg.NATS.ReconnectWait.String())
				assert.Equal(t, "MARKETPLACE_EVENTS", cfg.NATS.StreamName)
				assert.Equal(t, "reconciler", cfg.NATS.ConsumerName)
				assert.Equal(t, "marketplace.events.>", cfg.NATS.FilterSubject)
				assert.Equal(t, "30s", cfg.NATS.AckWait.String())
				assert.Equal(t, 5, cfg.NATS.MaxDeliver)
				assert.Equal(t, "eip155:1", cfg.Ethereum.Chain)
				assert.Equal(t, uint64(100), cfg.Cursor.SaveFreq)
				assert.Equal(t, "30s", cfg.Cursor.SaveDelay.String())
			},
		},
		{
			name: "missing database host",
			configFile: `
database:
  user: testuser
  password: testpass
  dbname: testdb
nats:
  url: "nats://localhost:4222"
`,
			expectError: true,
		},
		{
			name: "missing nats url",
			configFile: `
database:
  host: localhost
  user: testuser
  password: testpass
  dbname: testdb
`,
			expectError: true,
		},
		{
			name: "invalid yaml",
			configFile: `
				database:
				  host: localhost
				  port: invalid
			`,
			expectError: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tmpDir := t.TempDir()
			configFile := filepath.Join(tmpDir, "config.yaml")
			err := os.WriteFile(configFile, []byte(tt.configFile), 0600)
			require.NoError(t, err)

			cfg, err := LoadReconcilerConfig(configFile, "")

			if tt.expectError {
				assert.Error(t, err)
				assert.Nil(t, cfg)
			} else {
				require.NoError(t, err)
				require.NotNil(t, cfg)
				if tt.validate != nil {
					tt.validate(t, cfg)
				}
			}
		})
	}
}

func TestLoadReconcilerConfigEnvOverride(t *testing.T) {
	tmpDir := t.TempDir()
	configFile := filepath.Join(tmpDir, "config.yaml")
	err := os.WriteFile(configFile, []byte(`
database:
  host: localhost
  user: testuser
  password: filepass
  dbname: testdb
nats:
  url: "nats://localhost:4222"
`), 0600)
	require.NoError(t, err)

	t.Setenv("MARKET_INDEXER_DATABASE_PASSWORD", "envpass")
	t.Setenv("MARKET_INDEXER_NATS_CONSUMER_NAME", "env-consumer")

	cfg, err := LoadReconcilerConfig(configFile, "")
	require.NoError(t, err)

	assert.Equal(t, "envpass", cfg.Database.Password)
	assert.Equal(t, "env-consumer", cfg.NATS.ConsumerName)
}

func TestDatabaseConfigDSN(t *testing.T) {
	cfg := &DatabaseConfig{
		Host:     "db.example.com",
		Port:     5433,
		User:     "indexer",
		Password: "secret",
		DBName:   "marketplace",
		SSLMode:  "require",
	}

	assert.Equal(t,
		"host=db.example.com port=5433 user=indexer password=secret dbname=marketplace sslmode=require",
		cfg.DSN())
}

func TestDatabaseConfigReadDSN(t *testing.T) {
	cfg := &DatabaseConfig{
		Host:     "db.example.com",
		Port:     5433,
		ReadHost: "replica.example.com",
		User:     "indexer",
		Password: "secret",
		DBName:   "marketplace",
		SSLMode:  "require",
	}

	// ReadPort falls back to Port when unset
	assert.Equal(t,
		"host=replica.example.com port=5433 user=indexer password=secret dbname=marketplace sslmode=require",
		cfg.ReadDSN())

	cfg.ReadPort = 6432
	assert.Equal(t,
		"host=replica.example.com port=6432 user=indexer password=secret dbname=marketplace sslmode=require",
		cfg.ReadDSN())
}
