package config

import (
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type Config struct {
	Server     ServerConfig     `yaml:"server"`
	Platform   PlatformConfig   `yaml:"platform"`
	Chain      ChainConfig      `yaml:"chain"`
	Session    SessionConfig    `yaml:"session"`
	Reconciler ReconcilerConfig `yaml:"reconciler"`
	Logger     LoggerConfig     `yaml:"logger"`
	WebSocket  WebSocketConfig  `yaml:"websocket"`
}

type ServerConfig struct {
	Host        string `yaml:"host"`
	Port        string `yaml:"port"`
	Environment string `yaml:"environment"`
}

// PlatformConfig points at the remote marketplace API that serves
// auth, balance/deposit and endpoint routes.
type PlatformConfig struct {
	BaseURL string        `yaml:"base_url"`
	Timeout time.Duration `yaml:"timeout"`
}

type ChainConfig struct {
	RPCURL          string        `yaml:"rpc_url"`
	FromAddress     string        `yaml:"from_address"`
	Timeout         time.Duration `yaml:"timeout"`
	PollingInterval time.Duration `yaml:"polling_interval"`
	ReceiptTimeout  time.Duration `yaml:"receipt_timeout"`
}

type SessionConfig struct {
	// StateDir holds the persisted tokens. Empty disables persistence
	// and the store becomes a no-op.
	StateDir string `yaml:"state_dir"`
	// RefreshSkew refreshes access tokens that expire within this window.
	RefreshSkew time.Duration `yaml:"refresh_skew"`
}

// ReconcilerConfig tunes the credit retry loop. Credit is the one call
// retried automatically, always with the identical transaction hash.
type ReconcilerConfig struct {
	CreditMaxRetries       int           `yaml:"credit_max_retries"`
	CreditRetryBackoffBase time.Duration `yaml:"credit_retry_backoff_base"`
}

type LoggerConfig struct {
	Level      string `yaml:"level"`
	TimeFormat string `yaml:"time_format"`
	Pretty     bool   `yaml:"pretty"`
}

type WebSocketConfig struct {
	ReadBufferSize  int           `yaml:"read_buffer_size"`
	WriteBufferSize int           `yaml:"write_buffer_size"`
	CheckOrigin     bool          `yaml:"check_origin"`
	PingPeriod      time.Duration `yaml:"ping_period"`
}

func Load() (*Config, error) {
	// .env is optional; config.yaml is not.
	_ = godotenv.Load()

	path := os.Getenv("PAYDASH_CONFIG")
	if path == "" {
		path = "./config.yaml"
	}

	configData, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var config Config
	if err := yaml.Unmarshal(configData, &config); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	config.applyDefaults()
	config.applyEnvOverrides()

	return &config, nil
}

func (c *Config) applyDefaults() {
	if c.Server.Host == "" {
		c.Server.Host = "127.0.0.1"
	}
	if c.Server.Port == "" {
		c.Server.Port = "8787"
	}
	if c.Platform.Timeout == 0 {
		c.Platform.Timeout = 30 * time.Second
	}
	if c.Chain.Timeout == 0 {
		c.Chain.Timeout = 30 * time.Second
	}
	if c.Chain.PollingInterval == 0 {
		c.Chain.PollingInterval = 5 * time.Second
	}
	if c.Chain.ReceiptTimeout == 0 {
		c.Chain.ReceiptTimeout = 10 * time.Minute
	}
	if c.Session.RefreshSkew == 0 {
		c.Session.RefreshSkew = 30 * time.Second
	}
	if c.Reconciler.CreditMaxRetries == 0 {
		c.Reconciler.CreditMaxRetries = 5
	}
	if c.Reconciler.CreditRetryBackoffBase == 0 {
		c.Reconciler.CreditRetryBackoffBase = time.Second
	}
}

func (c *Config) applyEnvOverrides() {
	if v := os.Getenv("PLATFORM_API_URL"); v != "" {
		c.Platform.BaseURL = v
	}
	if v := os.Getenv("CHAIN_RPC_URL"); v != "" {
		c.Chain.RPCURL = v
	}
	if v := os.Getenv("CHAIN_FROM_ADDRESS"); v != "" {
		c.Chain.FromAddress = v
	}
	if v := os.Getenv("PAYDASH_STATE_DIR"); v != "" {
		c.Session.StateDir = v
	}
}
