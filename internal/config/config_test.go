package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validConfig() *Config {
	return &Config{
		Server: ServerConfig{Port: 8080},
		Database: DatabaseConfig{
			Host:     "localhost",
			Port:     5432,
			Database: "voicenotes_db",
		},
		RabbitMQ: RabbitMQConfig{
			Host: "localhost",
			Port: 5672,
			Exchange: ExchangeConfig{
				Name: "voicenotes_exchange",
			},
			Queue: QueueConfig{
				Name: "voicenotes_queue",
			},
		},
		Transcriber: TranscriberConfig{
			BaseURL:         "https://api.transcription.test/v2",
			APIKey:          "test-api-key",
			WebhookDeadline: 20 * time.Second,
		},
		RateLimit: RateLimitConfig{
			RequestsPerSecond: 2,
			Burst:             5,
		},
		Worker: WorkerConfig{
			Concurrency:     4,
			ShutdownTimeout: 30 * time.Second,
		},
	}
}

func TestLoad(t *testing.T) {
	tests := []struct {
		name      string
		filePath  string
		wantErr   bool
		errString string
	}{
		{
			name:     "valid config file",
			filePath: "testdata/valid_config.yaml",
			wantErr:  false,
		},
		{
			name:      "non-existent file",
			filePath:  "testdata/nonexistent.yaml",
			wantErr:   true,
			errString: "failed to read config file",
		},
		{
			name:      "malformed yaml",
			filePath:  "testdata/malformed.yaml",
			wantErr:   true,
			errString: "failed to parse config file",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg, err := Load(tt.filePath)

			if tt.wantErr {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.errString)
				assert.Nil(t, cfg)
			} else {
				require.NoError(t, err)
				require.NotNil(t, cfg)

				// Verify some key fields are populated
				assert.Equal(t, 8080, cfg.Server.Port)
				assert.Equal(t, "localhost", cfg.Database.Host)
				assert.Equal(t, "voicenotes_db", cfg.Database.Database)
				assert.Equal(t, "voicenotes_exchange", cfg.RabbitMQ.Exchange.Name)
				assert.Equal(t, "voicenotes_queue", cfg.RabbitMQ.Queue.Name)
				assert.Equal(t, "voicenote-api-service", cfg.App.Name)
				assert.Equal(t, 1500*time.Millisecond, cfg.Transcriber.PollInterval)
				assert.Equal(t, 120*time.Second, cfg.Transcriber.PollTimeout)
				assert.Equal(t, 20*time.Second, cfg.Transcriber.WebhookDeadline)
				assert.Equal(t, float64(2), cfg.RateLimit.RequestsPerSecond)
			}
		})
	}
}

func TestLoad_APIKeyFromEnvironment(t *testing.T) {
	t.Setenv("TRANSCRIBER_API_KEY", "env-key")

	cfg, err := Load("testdata/valid_config.yaml")
	require.NoError(t, err)
	assert.Equal(t, "env-key", cfg.Transcriber.APIKey)
}

func TestConfig_ValidateAPIConfig(t *testing.T) {
	tests := []struct {
		name      string
		mutate    func(*Config)
		wantErr   bool
		errString string
	}{
		{
			name:   "valid config",
			mutate: func(*Config) {},
		},
		{
			name:      "invalid server port - too low",
			mutate:    func(c *Config) { c.Server.Port = 0 },
			wantErr:   true,
			errString: "invalid server port",
		},
		{
			name:      "invalid server port - too high",
			mutate:    func(c *Config) { c.Server.Port = 70000 },
			wantErr:   true,
			errString: "invalid server port",
		},
		{
			name:      "missing database host",
			mutate:    func(c *Config) { c.Database.Host = "" },
			wantErr:   true,
			errString: "database host is required",
		},
		{
			name:      "missing database name",
			mutate:    func(c *Config) { c.Database.Database = "" },
			wantErr:   true,
			errString: "database name is required",
		},
		{
			name:      "missing rabbitmq host",
			mutate:    func(c *Config) { c.RabbitMQ.Host = "" },
			wantErr:   true,
			errString: "rabbitmq host is required",
		},
		{
			name:      "missing exchange name",
			mutate:    func(c *Config) { c.RabbitMQ.Exchange.Name = "" },
			wantErr:   true,
			errString: "rabbitmq exchange name is required",
		},
		{
			name:      "missing queue name",
			mutate:    func(c *Config) { c.RabbitMQ.Queue.Name = "" },
			wantErr:   true,
			errString: "rabbitmq queue name is required",
		},
		{
			name:      "missing transcriber base url",
			mutate:    func(c *Config) { c.Transcriber.BaseURL = "" },
			wantErr:   true,
			errString: "transcriber base_url is required",
		},
		{
			name:      "missing transcriber api key",
			mutate:    func(c *Config) { c.Transcriber.APIKey = "" },
			wantErr:   true,
			errString: "transcriber api_key is required",
		},
		{
			name:      "missing webhook deadline",
			mutate:    func(c *Config) { c.Transcriber.WebhookDeadline = 0 },
			wantErr:   true,
			errString: "webhook_deadline",
		},
		{
			name:      "zero rate limit",
			mutate:    func(c *Config) { c.RateLimit.RequestsPerSecond = 0 },
			wantErr:   true,
			errString: "requests_per_second",
		},
		{
			name:      "zero rate limit burst",
			mutate:    func(c *Config) { c.RateLimit.Burst = 0 },
			wantErr:   true,
			errString: "burst",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(cfg)

			err := cfg.ValidateAPIConfig()
			if tt.wantErr {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.errString)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestConfig_ValidateWorkerConfig(t *testing.T) {
	tests := []struct {
		name      string
		mutate    func(*Config)
		wantErr   bool
		errString string
	}{
		{
			name:   "valid config",
			mutate: func(*Config) {},
		},
		{
			name:      "zero concurrency",
			mutate:    func(c *Config) { c.Worker.Concurrency = 0 },
			wantErr:   true,
			errString: "concurrency must be greater than 0",
		},
		{
			name:      "zero shutdown timeout",
			mutate:    func(c *Config) { c.Worker.ShutdownTimeout = 0 },
			wantErr:   true,
			errString: "shutdown_timeout must be greater than 0",
		},
		{
			name:      "missing api key also fails the worker",
			mutate:    func(c *Config) { c.Transcriber.APIKey = "" },
			wantErr:   true,
			errString: "transcriber api_key is required",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(cfg)

			err := cfg.ValidateWorkerConfig()
			if tt.wantErr {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.errString)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}
