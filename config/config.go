package config

import (
	"os"
	"strings"

	"github.com/pkg/errors"
	"github.com/spf13/viper"
	"github.com/way365/ledger-client/protocol"
)

const (
	PRIVATE_KEY  = "private_key"
	FROM_ADDRESS = "from_address"
	API_URL      = "api_url"
	SCAN_URL     = "scan_url"
	JOURNAL      = "journal"
	LOG_LEVEL    = "log_level"

	DEFAULT_ENV_FILE  = ".env"
	DEFAULT_API_URL   = "https://octra.network"
	DEFAULT_SCAN_URL  = "https://octrascan.io/tx"
	DEFAULT_JOURNAL   = "journal.db"
	DEFAULT_LOG_LEVEL = "warn"
)

type Config struct {
	PrivateKey  string `mapstructure:"private_key"`
	FromAddress string `mapstructure:"from_address"`
	APIURL      string `mapstructure:"api_url"`
	ScanURL     string `mapstructure:"scan_url"`
	Journal     string `mapstructure:"journal"`
	LogLevel    string `mapstructure:"log_level"`

	source string
}

// Load reads defaults, then the dotenv file if it exists, then the process
// environment. Environment variables win over the file.
func Load(envFile string) (*Config, error) {
	v := viper.New()

	v.SetDefault(API_URL, DEFAULT_API_URL)
	v.SetDefault(SCAN_URL, DEFAULT_SCAN_URL)
	v.SetDefault(JOURNAL, DEFAULT_JOURNAL)
	v.SetDefault(LOG_LEVEL, DEFAULT_LOG_LEVEL)

	for _, key := range []string{PRIVATE_KEY, FROM_ADDRESS, API_URL, SCAN_URL, JOURNAL, LOG_LEVEL} {
		if err := v.BindEnv(key); err != nil {
			return nil, errors.Wrapf(err, "bind %s", key)
		}
	}

	source := "environment"
	if envFile != "" {
		_, err := os.Stat(envFile)
		switch {
		case err == nil:
			v.SetConfigFile(envFile)
			v.SetConfigType("env")
			if err := v.ReadInConfig(); err != nil {
				return nil, protocol.NewConfigError("read %s: %v", envFile, err)
			}
			source = "environment or " + envFile
		case !os.IsNotExist(err):
			return nil, protocol.NewConfigError("stat %s: %v", envFile, err)
		}
	}

	cfg := new(Config)
	if err := v.Unmarshal(cfg); err != nil {
		return nil, protocol.NewConfigError("decode configuration: %v", err)
	}
	cfg.source = source

	cfg.PrivateKey = strings.TrimSpace(cfg.PrivateKey)
	cfg.FromAddress = strings.TrimSpace(cfg.FromAddress)
	cfg.APIURL = strings.TrimRight(strings.TrimSpace(cfg.APIURL), "/")
	cfg.ScanURL = strings.TrimRight(strings.TrimSpace(cfg.ScanURL), "/")

	if cfg.APIURL == "" {
		return nil, protocol.NewConfigError("API_URL is empty")
	}

	return cfg, nil
}

// Sender returns the configured sender address. Needed by send and balance, not by view.
func (c *Config) Sender() (string, error) {
	if c.FromAddress == "" {
		return "", protocol.NewConfigError("FROM_ADDRESS missing from %s", c.source)
	}
	if !protocol.IsValidAddress(c.FromAddress) {
		return "", protocol.NewConfigError("FROM_ADDRESS %q is not a valid address", c.FromAddress)
	}
	return c.FromAddress, nil
}

// Credentials returns the signing key and sender address for the send path.
func (c *Config) Credentials() (privateKey, address string, err error) {
	if c.PrivateKey == "" {
		return "", "", protocol.NewConfigError("PRIVATE_KEY missing from %s", c.source)
	}

	address, err = c.Sender()
	if err != nil {
		return "", "", err
	}

	return c.PrivateKey, address, nil
}
