package server

import (
	"fmt"
	"os"
	"time"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"
)

// Config is the server's listen configuration. It is read from the
// optional server block of the rules file; other blocks are ignored here.
type Config struct {
	Address     string
	Port        int
	IdleTimeout time.Duration
	MaxSessions int
}

type configFile struct {
	Server *settingsBlock `hcl:"server,block"`
	Remain hcl.Body       `hcl:",remain"`
}

type settingsBlock struct {
	Address     *string `hcl:"address,optional"`
	Port        *int    `hcl:"port,optional"`
	IdleTimeout *string `hcl:"idle_timeout,optional"`
	MaxSessions *int    `hcl:"max_sessions,optional"`
}

// DefaultConfig returns the default server configuration
func DefaultConfig() Config {
	return Config{
		Address:     "localhost",
		Port:        8080,
		IdleTimeout: 10 * time.Minute,
		MaxSessions: 100,
	}
}

// LoadConfig reads the server block from an HCL file. A missing file or
// block yields the defaults.
func LoadConfig(filename string) (Config, error) {
	cfg := DefaultConfig()
	if _, err := os.Stat(filename); os.IsNotExist(err) {
		return cfg, nil
	}

	parser := hclparse.NewParser()
	file, diags := parser.ParseHCLFile(filename)
	if diags.HasErrors() {
		return Config{}, fmt.Errorf("failed to parse HCL file: %s", diags.Error())
	}

	var f configFile
	diags = gohcl.DecodeBody(file.Body, nil, &f)
	if diags.HasErrors() {
		return Config{}, fmt.Errorf("failed to decode HCL: %s", diags.Error())
	}

	if s := f.Server; s != nil {
		if s.Address != nil {
			cfg.Address = *s.Address
		}
		if s.Port != nil {
			cfg.Port = *s.Port
		}
		if s.MaxSessions != nil {
			cfg.MaxSessions = *s.MaxSessions
		}
		if s.IdleTimeout != nil {
			d, err := time.ParseDuration(*s.IdleTimeout)
			if err != nil {
				return Config{}, fmt.Errorf("server idle_timeout: %w", err)
			}
			cfg.IdleTimeout = d
		}
	}
	return cfg, cfg.Validate()
}

// Validate validates the server configuration
func (c Config) Validate() error {
	if c.Port < 0 || c.Port > 65535 {
		return fmt.Errorf("invalid port: %d", c.Port)
	}
	if c.IdleTimeout < 0 {
		return fmt.Errorf("invalid idle timeout: %s", c.IdleTimeout)
	}
	if c.MaxSessions < 0 {
		return fmt.Errorf("invalid max sessions: %d", c.MaxSessions)
	}
	return nil
}

// Addr returns the full listen address
func (c Config) Addr() string {
	return fmt.Sprintf("%s:%d", c.Address, c.Port)
}
