// Package config provides functionality for managing configuration options
// for the application using command-line flags, an optional JSON file and
// environment variables.
package config

import (
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"time"
)

// Store backends.
const (
	StoreFile     = "file"
	StorePostgres = "postgres"
	StoreMemory   = "memory"
)

// Options holds the configuration values for the application.
type Options struct {
	// Port defines the server's listening address (ip:port).
	Port string

	// DatabaseDSN holds the database connection string for the postgres store.
	DatabaseDSN string

	// Config is the path to the Config file.
	Config string

	// StoreBackend selects where the working copies persist: file, postgres or memory.
	StoreBackend string

	// StorePath is the JSON document used by the file store.
	StorePath string

	// DataDir holds doctors.csv, patients.csv and rpm_events.csv.
	DataDir string

	// SessionTimeout ends idle sessions.
	SessionTimeout time.Duration

	// LogLevel is passed to the logger.
	LogLevel string
}

// fileOptions is the JSON config file. Durations are written as "15m".
type fileOptions struct {
	Port           string `json:"port"`
	DatabaseDSN    string `json:"database_dsn"`
	StoreBackend   string `json:"store_backend"`
	StorePath      string `json:"store_path"`
	DataDir        string `json:"data_dir"`
	SessionTimeout string `json:"session_timeout"`
	LogLevel       string `json:"log_level"`
}

// Parse parses the command-line flags, the config file and environment
// variables. It exits the process on invalid configuration.
func Parse() *Options {
	opts, err := ParseArgs(os.Args[1:], os.Getenv)
	if err != nil {
		log.Fatalf("invalid configuration: %v", err)
	}
	return opts
}

// ParseArgs builds Options from args and getenv. Explicit flags win over the
// config file; environment variables win over both.
func ParseArgs(args []string, getenv func(string) string) (*Options, error) {
	opts := &Options{}
	fs := flag.NewFlagSet("rccdash", flag.ContinueOnError)
	fs.StringVar(&opts.Port, "a", "localhost:8080", "run on ip:port server")
	fs.StringVar(&opts.DatabaseDSN, "d", "", "db address")
	fs.StringVar(&opts.Config, "config", "config.json", "path to config file")
	fs.StringVar(&opts.Config, "c", "config.json", "path to config file (shorthand)")
	fs.StringVar(&opts.StoreBackend, "store", StoreFile, "store backend: file, postgres or memory")
	fs.StringVar(&opts.StorePath, "f", "rccdash-store.json", "file store path")
	fs.StringVar(&opts.DataDir, "data", "data", "directory with the reference CSV files")
	fs.DurationVar(&opts.SessionTimeout, "t", 15*time.Minute, "session idle timeout")
	fs.StringVar(&opts.LogLevel, "l", "Info", "log level")
	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	set := map[string]bool{}
	fs.Visit(func(f *flag.Flag) { set[f.Name] = true })

	if configPath := getenv("CONFIG"); configPath != "" {
		opts.Config = configPath
	}
	if opts.Config != "" {
		if err := applyFile(opts, opts.Config, set); err != nil {
			return nil, err
		}
	}

	if v := getenv("SERVER_ADDRESS"); v != "" {
		opts.Port = v
	}
	if v := getenv("DATABASE_DSN"); v != "" {
		opts.DatabaseDSN = v
	}
	if v := getenv("STORE_BACKEND"); v != "" {
		opts.StoreBackend = v
	}
	if v := getenv("STORE_PATH"); v != "" {
		opts.StorePath = v
	}
	if v := getenv("DATA_DIR"); v != "" {
		opts.DataDir = v
	}
	if v := getenv("LOG_LEVEL"); v != "" {
		opts.LogLevel = v
	}
	if v := getenv("SESSION_TIMEOUT"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return nil, fmt.Errorf("SESSION_TIMEOUT: %w", err)
		}
		opts.SessionTimeout = d
	}

	return opts, opts.validate()
}

func applyFile(opts *Options, path string, set map[string]bool) error {
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("error while reading config file: %w", err)
	}
	var fo fileOptions
	if err := json.Unmarshal(data, &fo); err != nil {
		return fmt.Errorf("error while parsing config file: %w", err)
	}

	apply := func(flagName, v string, dst *string) {
		if v != "" && !set[flagName] {
			*dst = v
		}
	}
	apply("a", fo.Port, &opts.Port)
	apply("d", fo.DatabaseDSN, &opts.DatabaseDSN)
	apply("store", fo.StoreBackend, &opts.StoreBackend)
	apply("f", fo.StorePath, &opts.StorePath)
	apply("data", fo.DataDir, &opts.DataDir)
	apply("l", fo.LogLevel, &opts.LogLevel)
	if fo.SessionTimeout != "" && !set["t"] {
		d, err := time.ParseDuration(fo.SessionTimeout)
		if err != nil {
			return fmt.Errorf("session_timeout: %w", err)
		}
		opts.SessionTimeout = d
	}
	return nil
}

func (o *Options) validate() error {
	switch o.StoreBackend {
	case StoreFile, StoreMemory:
	case StorePostgres:
		if o.DatabaseDSN == "" {
			return errors.New("postgres store requires a database DSN")
		}
	default:
		return fmt.Errorf("unknown store backend %q", o.StoreBackend)
	}
	if o.SessionTimeout <= 0 {
		return fmt.Errorf("session timeout must be positive, got %s", o.SessionTimeout)
	}
	return nil
}
