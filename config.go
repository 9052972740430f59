package main

import (
	"os"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

// TLSConfig points at PEM files for the external chaincode service listener.
type TLSConfig struct {
	Disabled           bool   `yaml:"disabled"`
	KeyFile            string `yaml:"keyFile"`
	CertFile           string `yaml:"certFile"`
	ClientCACertFile   string `yaml:"clientCACertFile"`
	ClientAuthRequired bool   `yaml:"clientAuthRequired"`
}

// ServiceConfig configures external chaincode service mode. When Address is
// empty the chaincode runs in-process instead.
type ServiceConfig struct {
	CCID    string    `yaml:"ccid"`
	Address string    `yaml:"address"`
	TLS     TLSConfig `yaml:"tls"`
}

// LoadServiceConfig reads the optional YAML file named by
// CHAINCODE_CONFIG_FILE, then applies environment overrides
// (CHAINCODE_ID, CHAINCODE_SERVER_ADDRESS). Environment wins.
func LoadServiceConfig() (*ServiceConfig, error) {
	cfg := &ServiceConfig{TLS: TLSConfig{Disabled: true}}

	if path := os.Getenv("CHAINCODE_CONFIG_FILE"); path != "" {
		raw, err := os.ReadFile(path)
		if err != nil {
			return nil, errors.Wrapf(err, "reading config file %s", path)
		}
		if err := yaml.Unmarshal(raw, cfg); err != nil {
			return nil, errors.Wrapf(err, "parsing config file %s", path)
		}
	}

	if ccid := os.Getenv("CHAINCODE_ID"); ccid != "" {
		cfg.CCID = ccid
	}
	if addr := os.Getenv("CHAINCODE_SERVER_ADDRESS"); addr != "" {
		cfg.Address = addr
	}
	return cfg, nil
}
