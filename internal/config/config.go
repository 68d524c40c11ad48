// Package config loads the server settings from rawrest.json, falling back
// to defaults field by field when the file is missing or a value is bad.
package config

import (
	"encoding/json"
	"os"
	"strings"
	"time"

	"dqx0.com/go/rawrest/internal/obs"
)

const (
	FileName   = "rawrest.json"
	EnvConfig  = "RAWREST_CONFIG"
	EnvAddr    = "RAWREST_ADDR"
	defaultMiB = 1 << 20
)

type Server struct {
	Addr                string `json:"addr"`
	DataFile            string `json:"data_file"`
	DocRoot             string `json:"doc_root"`
	Index               string `json:"index"`
	AccessLog           string `json:"access_log"`
	ReadHeaderTimeoutMs int    `json:"read_header_timeout_ms"`
	ReadTimeoutMs       int    `json:"read_timeout_ms"`
	MaxBodyBytes        int64  `json:"max_body_bytes"`
	WatchStore          bool   `json:"watch_store"`
	LogLevel            string `json:"log_level"`
}

// Default returns the settings used when no file is present.
func Default() *Server {
	return &Server{
		Addr:                ":8080",
		DataFile:            "data.json",
		DocRoot:             ".",
		Index:               "index.html",
		AccessLog:           "access.log",
		ReadHeaderTimeoutMs: 30000,
		ReadTimeoutMs:       60000,
		MaxBodyBytes:        10 * defaultMiB,
		WatchStore:          true,
		LogLevel:            "info",
	}
}

func (c *Server) ReadHeaderTimeout() time.Duration {
	return time.Duration(c.ReadHeaderTimeoutMs) * time.Millisecond
}

// ReadTimeout bounds reading the body once the head has arrived.
func (c *Server) ReadTimeout() time.Duration {
	return time.Duration(c.ReadTimeoutMs) * time.Millisecond
}

// Path resolves which config file to read: $RAWREST_CONFIG or ./rawrest.json.
func Path() string {
	if p := os.Getenv(EnvConfig); p != "" {
		return p
	}
	return FileName
}

// Load reads path and validates it. It never fails: problems are logged
// and the affected fields take their defaults. $RAWREST_ADDR overrides addr.
func Load(path string, logger obs.Logger) *Server {
	logger = obs.Or(logger)
	cfg := load(path, logger)
	if addr := os.Getenv(EnvAddr); addr != "" {
		logger.Logf(obs.Info, "%s=%s overrides addr %q", EnvAddr, addr, cfg.Addr)
		cfg.Addr = addr
	}
	return cfg
}

func load(path string, logger obs.Logger) *Server {
	data, err := os.ReadFile(path)
	if err != nil {
		logger.Logf(obs.Info, "no %s found, using defaults: %v", path, err)
		return Default()
	}

	// Start from defaults so keys absent from the file keep them.
	cfg := Default()
	if err := json.Unmarshal(data, cfg); err != nil {
		logger.Logf(obs.Warn, "invalid %s, using defaults: %v", path, err)
		return Default()
	}
	validate(cfg, logger)
	return cfg
}

func validate(cfg *Server, logger obs.Logger) {
	def := Default()

	if strings.TrimSpace(cfg.Addr) == "" {
		logger.Logf(obs.Warn, "addr is empty, falling back to %s", def.Addr)
		cfg.Addr = def.Addr
	}
	if cfg.DataFile == "" {
		logger.Logf(obs.Warn, "data_file is empty, falling back to %s", def.DataFile)
		cfg.DataFile = def.DataFile
	}
	if cfg.DocRoot == "" {
		cfg.DocRoot = def.DocRoot
	}
	if cfg.Index == "" || strings.ContainsAny(cfg.Index, `/\`) {
		logger.Logf(obs.Warn, "index=%q is invalid, falling back to %s", cfg.Index, def.Index)
		cfg.Index = def.Index
	}
	if cfg.ReadHeaderTimeoutMs <= 0 {
		logger.Logf(obs.Warn, "read_header_timeout_ms=%d is invalid, falling back to %d", cfg.ReadHeaderTimeoutMs, def.ReadHeaderTimeoutMs)
		cfg.ReadHeaderTimeoutMs = def.ReadHeaderTimeoutMs
	}
	if cfg.ReadTimeoutMs <= 0 {
		logger.Logf(obs.Warn, "read_timeout_ms=%d is invalid, falling back to %d", cfg.ReadTimeoutMs, def.ReadTimeoutMs)
		cfg.ReadTimeoutMs = def.ReadTimeoutMs
	}
	if cfg.MaxBodyBytes <= 0 {
		logger.Logf(obs.Warn, "max_body_bytes=%d is invalid, falling back to %d", cfg.MaxBodyBytes, def.MaxBodyBytes)
		cfg.MaxBodyBytes = def.MaxBodyBytes
	}
	if _, err := obs.ParseLevel(cfg.LogLevel); err != nil {
		logger.Logf(obs.Warn, "%v, falling back to %s", err, def.LogLevel)
		cfg.LogLevel = def.LogLevel
	}
}
