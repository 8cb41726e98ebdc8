// File: control/config.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// YAML configuration file for the slimsock command.

package control

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/momentics/slimsock/api"
	"github.com/momentics/slimsock/client"
	"github.com/momentics/slimsock/server"
	"gopkg.in/yaml.v3"
)

// ChannelConfig sizes the per-connection buffers.
type ChannelConfig struct {
	ReceiveBufferSize int `yaml:"receive_buffer_size"`
	SendBufferSize    int `yaml:"send_buffer_size"`
	SlabCapacity      int `yaml:"slab_capacity"` // idle buffers kept per slab
}

// LoggingConfig controls the slog default handler.
type LoggingConfig struct {
	Verbose bool `yaml:"verbose"`
}

// Config is the root of the configuration file.
type Config struct {
	Server  server.Config `yaml:"server"`
	Client  client.Config `yaml:"client"`
	Channel ChannelConfig `yaml:"channel"`
	Logging LoggingConfig `yaml:"logging"`
}

// DefaultConfig returns the configuration used when no file is given.
func DefaultConfig() *Config {
	return &Config{
		Server: *server.DefaultConfig(),
		Client: *client.DefaultConfig(),
		Channel: ChannelConfig{
			ReceiveBufferSize: 4096,
			SendBufferSize:    4096,
			SlabCapacity:      1024,
		},
	}
}

// Load reads a configuration file. Keys missing from the file keep their
// defaults.
func Load(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open config: %w", err)
	}
	defer f.Close()

	cfg, err := Decode(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

// Decode parses a YAML document on top of DefaultConfig. Unknown keys are
// rejected.
func Decode(r io.Reader) (*Config, error) {
	cfg := DefaultConfig()
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks every section.
func (c *Config) Validate() error {
	if err := c.Server.Validate(); err != nil {
		return fmt.Errorf("server: %w", err)
	}
	if c.Channel.ReceiveBufferSize <= 0 || c.Channel.SendBufferSize <= 0 {
		return fmt.Errorf("channel buffer sizes %d/%d: %w",
			c.Channel.ReceiveBufferSize, c.Channel.SendBufferSize, api.ErrInvalidArgument)
	}
	if c.Channel.SlabCapacity < 0 {
		return fmt.Errorf("channel slab capacity %d: %w", c.Channel.SlabCapacity, api.ErrInvalidArgument)
	}
	return nil
}

// Encode renders the configuration as YAML.
func (c *Config) Encode() ([]byte, error) {
	var b bytes.Buffer
	enc := yaml.NewEncoder(&b)
	enc.SetIndent(2)
	if err := enc.Encode(c); err != nil {
		return nil, fmt.Errorf("encode config: %w", err)
	}
	if err := enc.Close(); err != nil {
		return nil, fmt.Errorf("encode config: %w", err)
	}
	return b.Bytes(), nil
}
