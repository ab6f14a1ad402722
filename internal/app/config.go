package app

import (
	"errors"
	"fmt"
	"time"

	"github.com/vk/jobchain/internal/env"
)

// Supported state store backends.
const (
	StoreMemory   = "memory"
	StorePostgres = "postgres"
)

// Supported export formats.
const (
	FormatYAML = "yaml"
	FormatHCL  = "hcl"
)

// DefaultPath is the search root used when none is configured.
const DefaultPath = "chains"

// Config holds all the necessary configuration for an App instance to run.
type Config struct {
	Chain          string         // dotted chain name
	Paths          []string       // search roots, directories or s3://bucket/prefix
	Inputs         map[string]any // run inputs
	CorrelationKey string
	User           string

	Store       string // memory or postgres
	Lifetime    time.Duration
	SocketIOURL string

	List   bool   // list chains instead of running one
	Export string // print the chain in this format instead of running it

	LogFormat       string
	LogLevel        string
	HealthcheckPort int
	WorkerCount     int
	Timeout         time.Duration // upper bound for a run; 0 waits forever
}

// NewConfig validates cfg and fills defaults. JOB_CHAIN_CACHE and
// JOB_CHAIN_LIFETIME (seconds) provide the store and lifetime when unset.
func NewConfig(cfg Config) (*Config, error) {
	if cfg.Chain == "" && !cfg.List {
		return nil, errors.New("Chain is a required configuration field and cannot be empty")
	}
	if len(cfg.Paths) == 0 {
		cfg.Paths = []string{DefaultPath}
	}
	if cfg.Inputs == nil {
		cfg.Inputs = map[string]any{}
	}

	if cfg.Store == "" {
		cfg.Store = env.String("JOB_CHAIN_CACHE", StoreMemory)
	}
	switch cfg.Store {
	case StoreMemory, StorePostgres:
	default:
		return nil, fmt.Errorf("unknown store %q: must be '%s' or '%s'", cfg.Store, StoreMemory, StorePostgres)
	}

	if cfg.Lifetime <= 0 {
		secs, err := env.Int("JOB_CHAIN_LIFETIME", 86400)
		if err != nil {
			return nil, err
		}
		if secs <= 0 {
			return nil, fmt.Errorf("JOB_CHAIN_LIFETIME must be positive, got %d", secs)
		}
		cfg.Lifetime = time.Duration(secs) * time.Second
	}

	switch cfg.Export {
	case "", FormatYAML, FormatHCL:
	default:
		return nil, fmt.Errorf("unknown export format %q: must be '%s' or '%s'", cfg.Export, FormatYAML, FormatHCL)
	}

	if cfg.WorkerCount <= 0 {
		cfg.WorkerCount = 10
	}
	if cfg.Timeout < 0 {
		return nil, errors.New("Timeout cannot be negative")
	}

	return &cfg, nil
}
