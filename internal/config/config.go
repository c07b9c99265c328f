// SPDX-License-Identifier: GPL-3.0-or-later

// Package config loads the dnslookup settings from defaults, environment
// variables and command line flags, in increasing order of precedence.
package config

import (
	"flag"
	"fmt"
	"net"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/knadh/koanf/providers/env/v2"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"
)

// EnvPrefix is the prefix of the environment variables we read.
const EnvPrefix = "DNSWIRE_"

// AppConfig holds the dnslookup configuration.
type AppConfig struct {
	// Type is the query type, "A" or "AAAA". Empty means ask the user.
	Type string `koanf:"type" validate:"required,oneof=A AAAA"`

	// Name is the host name to look up. Empty means ask the user.
	Name string `koanf:"name" validate:"required,max=253"`

	// Server is the DNS server as IP or IP:port. Empty means ask the user.
	Server string `koanf:"server" validate:"required,dns_server"`

	// Timeout bounds the whole exchange.
	Timeout time.Duration `koanf:"timeout" validate:"gt=0"`

	// Output selects the result format, "text" or "yaml".
	Output string `koanf:"output" validate:"required,oneof=text yaml"`

	// Env is the runtime environment, either "dev" or "prod".
	Env string `koanf:"env" validate:"required,oneof=dev prod"`

	// LogLevel controls log verbosity: "debug", "info", "warn", or "error".
	LogLevel string `koanf:"log_level" validate:"required,oneof=debug info warn error"`
}

// DefaultAppConfig contains the defaults.
var DefaultAppConfig = AppConfig{
	Timeout:  5 * time.Second,
	Output:   "text",
	Env:      "prod",
	LogLevel: "warn",
}

// validDNSServer accepts an IP address optionally followed by a port.
func validDNSServer(fl validator.FieldLevel) bool {
	addr := fl.Field().String()
	host, port, err := net.SplitHostPort(addr)
	if err != nil {
		return net.ParseIP(strings.Trim(addr, "[]")) != nil
	}
	if net.ParseIP(host) == nil {
		return false
	}
	portNum, err := strconv.ParseUint(port, 10, 16)
	return err == nil && portNum > 0
}

// envLoader can be replaced in tests.
var envLoader = func(k *koanf.Koanf) error {
	return k.Load(env.Provider(".", env.Opt{
		Prefix: EnvPrefix,
		TransformFunc: func(key, value string) (string, any) {
			return strings.ToLower(strings.TrimPrefix(key, EnvPrefix)), strings.TrimSpace(value)
		},
	}), nil)
}

var defaultLoader = func(k *koanf.Koanf) error {
	return k.Load(structs.Provider(DefaultAppConfig, "koanf"), nil)
}

// NewFlagSet returns the command line flags understood by [Load].
func NewFlagSet(name string) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.String("type", "", "the type of address requested (A or AAAA)")
	fs.String("name", "", "the host name being queried")
	fs.String("server", "", "the IP address of the DNS server to query")
	fs.Duration("timeout", DefaultAppConfig.Timeout, "timeout for the whole exchange")
	fs.String("output", DefaultAppConfig.Output, "output format (text or yaml)")
	fs.String("log-level", DefaultAppConfig.LogLevel, "log level (debug, info, warn, error)")
	return fs
}

// Load parses args with fs and returns the merged configuration.
//
// Type, Name and Server may still be empty: call [Validate] once the
// missing values have been collected.
func Load(fs *flag.FlagSet, args []string) (*AppConfig, error) {
	k := koanf.New(".")

	if err := defaultLoader(k); err != nil {
		return nil, fmt.Errorf("error loading default config: %w", err)
	}

	if err := envLoader(k); err != nil {
		return nil, fmt.Errorf("error loading env: %w", err)
	}

	if err := fs.Parse(args); err != nil {
		return nil, fmt.Errorf("error parsing flags: %w", err)
	}

	// only flags set explicitly override the environment
	var flagErr error
	fs.Visit(func(f *flag.Flag) {
		key := strings.ReplaceAll(f.Name, "-", "_")
		if err := k.Set(key, f.Value.String()); err != nil && flagErr == nil {
			flagErr = fmt.Errorf("error setting flag %s: %w", f.Name, err)
		}
	})
	if flagErr != nil {
		return nil, flagErr
	}

	var cfg AppConfig
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("error unmarshalling config: %w", err)
	}
	cfg.Type = strings.ToUpper(strings.TrimSpace(cfg.Type))
	return &cfg, nil
}

// registerValidation can be replaced in tests.
var registerValidation = func(v *validator.Validate) error {
	return v.RegisterValidation("dns_server", validDNSServer)
}

// Validate checks that the configuration is complete and well formed.
func Validate(cfg *AppConfig) error {
	validate := validator.New(validator.WithRequiredStructEnabled())
	if err := registerValidation(validate); err != nil {
		return fmt.Errorf("error registering validation: %w", err)
	}
	if err := validate.Struct(cfg); err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}
	return nil
}
