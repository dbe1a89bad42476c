// Copyright 2022 Molecula Corp. (DBA FeatureBase).
// SPDX-License-Identifier: Apache-2.0
package server

import (
	"net"
	"net/url"
	"time"

	"github.com/molecula/graphity/errors"
	"github.com/molecula/graphity/toml"
	gotoml "github.com/pelletier/go-toml"
)

const ErrInvalidConfig errors.Code = "InvalidConfig"

// Graph store backends.
const (
	BackendNone   = "none"
	BackendMemory = "memory"
	BackendBolt   = "bolt"
	BackendRemote = "remote"
)

// Config represents the configuration for the command.
type Config struct {
	// Bind is the host:port on which Graphity will listen.
	Bind string `toml:"bind"`

	// Advertise is the host:port clients reach Graphity at. It defaults to
	// the listen address; an unspecified host becomes localhost and a
	// missing or zero port reuses the listen port.
	Advertise string `toml:"advertise"`

	// LogPath configures where Graphity will write logs.
	LogPath string `toml:"log-path"`

	// Verbose toggles verbose logging which can be useful for debugging.
	Verbose bool `toml:"verbose"`

	// HTTP Handler options
	Handler struct {
		// CORS Allowed Origins
		AllowedOrigins []string      `toml:"allowed-origins"`
		CloseTimeout   toml.Duration `toml:"close-timeout"`
	} `toml:"handler"`

	// SPARQL is the endpoint of the dataset queries are answered from.
	SPARQL struct {
		URI      string `toml:"uri"`
		Username string `toml:"username"`
		Password string `toml:"password"`

		// ResultLimit caps the number of solutions of SELECT and ASK
		// queries. Zero disables the cap.
		ResultLimit        int64         `toml:"result-limit"`
		ConditionalResults bool          `toml:"conditional-results"`
		ConditionalGraphs  bool          `toml:"conditional-graphs"`
		Timeout            toml.Duration `toml:"timeout"`
	} `toml:"sparql"`

	// GraphStore selects what serves the graph store protocol.
	GraphStore struct {
		Backend  string `toml:"backend"`
		URI      string `toml:"uri"`
		Username string `toml:"username"`
		Password string `toml:"password"`
		DataDir  string `toml:"data-dir"`
	} `toml:"graph-store"`

	Tracing struct {
		// SamplerType is a Jaeger sampler type, or "off".
		SamplerType   string  `toml:"sampler-type"`
		SamplerParam  float64 `toml:"sampler-param"`
		AgentHostPort string  `toml:"agent-host-port"`
	} `toml:"tracing"`
}

// NewConfig returns an instance of Config with default options.
func NewConfig() *Config {
	c := &Config{
		Bind: "localhost:10109",
		// LogPath: "",
		// Verbose: false,
	}

	c.Handler.AllowedOrigins = []string{}
	c.Handler.CloseTimeout = toml.Duration(30 * time.Second)

	c.SPARQL.ResultLimit = 10000
	c.SPARQL.ConditionalResults = true
	c.SPARQL.Timeout = toml.Duration(time.Minute)

	c.GraphStore.Backend = BackendNone
	c.GraphStore.DataDir = "~/.graphity"

	c.Tracing.SamplerType = "off"
	c.Tracing.SamplerParam = 0.001

	return c
}

// ParseConfig parses s into a Config, starting from the defaults.
func ParseConfig(s string) (*Config, error) {
	c := NewConfig()
	if err := gotoml.Unmarshal([]byte(s), c); err != nil {
		return nil, errors.Wrap(err, "parsing config")
	}
	return c, nil
}

// Validate reports the first problem with the configuration.
func (c *Config) Validate() error {
	if c.Bind == "" {
		return errors.New(ErrInvalidConfig, "bind address is required")
	}
	if c.Advertise != "" {
		if _, _, err := net.SplitHostPort(c.Advertise); err != nil {
			return errors.Newf(ErrInvalidConfig, "invalid advertise address %q: %v", c.Advertise, err)
		}
	}
	if err := validateURI("sparql.uri", c.SPARQL.URI); err != nil {
		return err
	}
	if c.SPARQL.ResultLimit < 0 {
		return errors.Newf(ErrInvalidConfig, "sparql.result-limit must not be negative: %d", c.SPARQL.ResultLimit)
	}

	switch c.GraphStore.Backend {
	case BackendNone, BackendMemory:
	case BackendBolt:
		if c.GraphStore.DataDir == "" {
			return errors.New(ErrInvalidConfig, "graph-store.data-dir is required for the bolt backend")
		}
	case BackendRemote:
		if err := validateURI("graph-store.uri", c.GraphStore.URI); err != nil {
			return err
		}
	default:
		return errors.Newf(ErrInvalidConfig, "unknown graph-store.backend %q", c.GraphStore.Backend)
	}

	switch c.Tracing.SamplerType {
	case "off", "const", "probabilistic", "ratelimiting", "remote":
	default:
		return errors.Newf(ErrInvalidConfig, "unknown tracing.sampler-type %q", c.Tracing.SamplerType)
	}
	return nil
}

func validateURI(name, s string) error {
	if s == "" {
		return errors.Newf(ErrInvalidConfig, "%s is required", name)
	}
	u, err := url.Parse(s)
	if err != nil || !u.IsAbs() || u.Host == "" {
		return errors.Newf(ErrInvalidConfig, "%s must be an absolute http(s) URI: %q", name, s)
	}
	return nil
}
