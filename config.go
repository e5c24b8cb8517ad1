package companion

import (
	"fmt"
	"strings"
	"time"

	"github.com/tripthread/companion/protocol"
)

type Config struct {
	ServiceName          string `koanf:"service_name" mapstructure:"service_name"`
	ServerOrigin         string `koanf:"server_origin" mapstructure:"server_origin"`
	TokenPrefix          string `koanf:"token_prefix" mapstructure:"token_prefix"`
	HandshakeTimeoutMS   int    `koanf:"handshake_timeout_ms" mapstructure:"handshake_timeout_ms"`
	RevalidateIntervalMS int    `koanf:"revalidate_interval_ms" mapstructure:"revalidate_interval_ms"`
	StorePath            string `koanf:"store_path" mapstructure:"store_path"`
}

func DefaultConfig() Config {
	return Config{
		ServiceName:          "companion",
		ServerOrigin:         "https://app.tripthread.com",
		TokenPrefix:          protocol.DefaultCredentialPrefix,
		HandshakeTimeoutMS:   2000,
		RevalidateIntervalMS: int((30 * time.Minute).Milliseconds()),
	}
}

func (c Config) Validate() error {
	if strings.TrimSpace(c.ServiceName) == "" {
		return fmt.Errorf("companion: service_name is required")
	}
	if _, err := protocol.NormalizeOrigin(c.ServerOrigin); err != nil {
		return fmt.Errorf("companion: server_origin: %w", err)
	}
	if c.HandshakeTimeoutMS < 0 {
		return fmt.Errorf("companion: handshake_timeout_ms must be >= 0")
	}
	if c.RevalidateIntervalMS < 0 {
		return fmt.Errorf("companion: revalidate_interval_ms must be >= 0")
	}
	return nil
}

func (c Config) HandshakeTimeout() time.Duration {
	return time.Duration(c.HandshakeTimeoutMS) * time.Millisecond
}

func (c Config) RevalidateInterval() time.Duration {
	return time.Duration(c.RevalidateIntervalMS) * time.Millisecond
}
