// Copyright 2026 The Mellium Contributors.
// Use of this source code is governed by the BSD 2-clause
// license that can be found in the LICENSE file.

package wsbridge

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"net"
	"os"
	"strconv"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"mellium.im/wsbridge/frame"
)

// EnvPrefix is the prefix of every environment variable read by LoadConfig.
const EnvPrefix = "WSBRIDGE_"

// DefaultPort is the port used to reach the upstream server if none is
// configured.
const DefaultPort = 5222

// Config contains options for the bridge.
// The zero value is not valid, use DefaultConfig or LoadConfig.
type Config struct {
	// ListenAddr is the address on which WebSocket connections are accepted.
	ListenAddr string `env:"LISTEN_ADDR" yaml:"listen_addr"`

	// Path is the HTTP path of the WebSocket endpoint.
	Path string `env:"PATH" yaml:"path"`

	// Target is the host name or IP address of the upstream XMPP server.
	Target string `env:"TARGET" yaml:"target"`

	// TargetPort is the port of the upstream server's client listener.
	TargetPort int `env:"TARGET_PORT" yaml:"target_port"`

	// LookupSRV causes the bridge to look up _xmpp-client._tcp SRV records for
	// the target before falling back to TargetPort.
	LookupSRV bool `env:"LOOKUP_SRV" yaml:"lookup_srv"`

	// DialTimeout bounds the time spent connecting upstream.
	// Zero means no timeout.
	DialTimeout time.Duration `env:"DIAL_TIMEOUT" yaml:"dial_timeout"`

	// MaxFrameSize is the largest message accepted from either side, and the
	// largest amount of client data queued while connecting.
	MaxFrameSize int `env:"MAX_FRAME_SIZE" yaml:"max_frame_size"`

	// DiscardAfter is the number of reads from the server that may fail to
	// complete a frame before the buffered data is discarded.
	// A negative value disables discarding.
	DiscardAfter int `env:"DISCARD_AFTER" yaml:"discard_after"`

	// RewriteClose turns the WebSocket <close/> element sent by clients into
	// the </stream:stream> end tag understood by the server.
	// By default client messages other than <open/> are forwarded unchanged.
	RewriteClose bool `env:"REWRITE_CLOSE" yaml:"rewrite_close"`

	// AllowedOrigins restricts the Origin header of WebSocket handshakes.
	// If empty any origin is allowed.
	AllowedOrigins []string `env:"ALLOWED_ORIGINS" envSeparator:"," yaml:"allowed_origins"`

	// PublicURL is the ws: or wss: URL at which clients reach the bridge.
	// If set it is advertised in the host-meta documents.
	PublicURL string `env:"PUBLIC_URL" yaml:"public_url"`

	// MetricsAddr is the address of the metrics listener.
	// If empty metrics are not served.
	MetricsAddr string `env:"METRICS_ADDR" yaml:"metrics_addr"`

	LogLevel  string `env:"LOG_LEVEL" yaml:"log_level"`
	LogFormat string `env:"LOG_FORMAT" yaml:"log_format"`

	// ShutdownTimeout bounds the time spent closing sessions and listeners on
	// shutdown.
	ShutdownTimeout time.Duration `env:"SHUTDOWN_TIMEOUT" yaml:"shutdown_timeout"`
}

// DefaultConfig returns a config with every option except Target set to its
// default value.
func DefaultConfig() Config {
	return Config{
		ListenAddr:      ":5280",
		Path:            "/",
		TargetPort:      DefaultPort,
		MaxFrameSize:    frame.DefaultMaxSize,
		DiscardAfter:    frame.DefaultDiscardAfter,
		LogLevel:        "info",
		LogFormat:       "json",
		ShutdownTimeout: 30 * time.Second,
	}
}

// LoadConfig returns the default config overridden by the YAML file at path
// (if path is not empty) and then by the environment.
// Variables in the env files are added to the environment first, a missing
// env file is not an error.
// If no env files are given ".env" is used.
//
// The returned config is not validated.
func LoadConfig(path string, envFiles ...string) (Config, error) {
	cfg := DefaultConfig()
	if path != "" {
		b, err := os.ReadFile(path)
		if err != nil {
			return cfg, fmt.Errorf("wsbridge: reading config file: %w", err)
		}
		if err = yaml.Unmarshal(b, &cfg); err != nil {
			return cfg, fmt.Errorf("wsbridge: parsing config file %s: %w", path, err)
		}
	}

	if len(envFiles) == 0 {
		envFiles = []string{".env"}
	}
	for _, f := range envFiles {
		err := godotenv.Load(f)
		if err != nil && !errors.Is(err, fs.ErrNotExist) {
			return cfg, fmt.Errorf("wsbridge: loading env file %s: %w", f, err)
		}
	}

	err := env.ParseWithOptions(&cfg, env.Options{Prefix: EnvPrefix})
	if err != nil {
		return cfg, fmt.Errorf("wsbridge: parsing environment: %w", err)
	}
	return cfg, nil
}

// Errors returned by Validate.
var (
	ErrNoTarget = errors.New("wsbridge: no target server configured")
	ErrBadPort  = errors.New("wsbridge: target port out of range")
)

// Validate reports the first problem found with the config.
func (c Config) Validate() error {
	if c.Target == "" {
		return ErrNoTarget
	}
	if c.TargetPort <= 0 || c.TargetPort > 65535 {
		return fmt.Errorf("%w: %d", ErrBadPort, c.TargetPort)
	}
	if c.MaxFrameSize <= 0 {
		return fmt.Errorf("wsbridge: max frame size must be positive, got %d", c.MaxFrameSize)
	}
	if c.DialTimeout < 0 {
		return fmt.Errorf("wsbridge: dial timeout must not be negative, got %s", c.DialTimeout)
	}
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(c.LogLevel)); err != nil {
		return fmt.Errorf("wsbridge: %w", err)
	}
	switch c.LogFormat {
	case "json", "text":
	default:
		return fmt.Errorf("wsbridge: unknown log format %q", c.LogFormat)
	}
	return nil
}

// TargetAddr returns the address of the upstream server in host:port form.
func (c Config) TargetAddr() string {
	return net.JoinHostPort(c.Target, strconv.Itoa(c.TargetPort))
}

func (c Config) decoder() frame.Decoder {
	return frame.Decoder{
		MaxSize:      c.MaxFrameSize,
		DiscardAfter: c.DiscardAfter,
	}
}
