package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/BurntSushi/toml"

	"pantrack/internal/config"
	"pantrack/internal/session"
)

type fileConfig struct {
	LedgerURL   string `toml:"ledger_url"`
	Token       string `toml:"token"`
	Timeout     string `toml:"timeout"`
	TimeoutMS   int64  `toml:"timeout_ms"`
	SessionFile string `toml:"session_file"`
	DriverName  string `toml:"driver_name"`
}

type runtimeConfig struct {
	LedgerURL   string
	Token       string
	Timeout     time.Duration
	SessionFile string
	DriverName  string
}

func defaultRuntimeConfig() runtimeConfig {
	return runtimeConfig{
		Timeout:    10 * time.Second,
		DriverName: "driver",
	}
}

func loadRuntimeConfig(path string) (runtimeConfig, error) {
	cfg := defaultRuntimeConfig()

	var raw fileConfig
	meta, err := toml.DecodeFile(path, &raw)
	if err != nil {
		return runtimeConfig{}, fmt.Errorf("load panscan config: %w", err)
	}

	if meta.IsDefined("ledger_url") {
		cfg.LedgerURL = strings.TrimSpace(raw.LedgerURL)
	}
	if meta.IsDefined("token") {
		cfg.Token = strings.TrimSpace(raw.Token)
	}

	if meta.IsDefined("timeout") {
		d, err := time.ParseDuration(strings.TrimSpace(raw.Timeout))
		if err != nil {
			return runtimeConfig{}, fmt.Errorf("parse timeout: %w", err)
		}
		cfg.Timeout = d
	}
	if meta.IsDefined("timeout_ms") {
		cfg.Timeout = time.Duration(raw.TimeoutMS) * time.Millisecond
	}

	if meta.IsDefined("session_file") {
		cfg.SessionFile = strings.TrimSpace(raw.SessionFile)
	}
	if meta.IsDefined("driver_name") {
		name := strings.TrimSpace(raw.DriverName)
		if name != "" {
			cfg.DriverName = name
		}
	}

	if err := config.ValidateClientConfig(config.ClientConfig{
		LedgerURL:   cfg.LedgerURL,
		Token:       cfg.Token,
		Timeout:     cfg.Timeout.String(),
		SessionFile: cfg.SessionFile,
		DriverName:  cfg.DriverName,
	}); err != nil {
		return runtimeConfig{}, err
	}

	if cfg.SessionFile == "" {
		sessionPath, err := session.DefaultPath()
		if err != nil {
			return runtimeConfig{}, err
		}
		cfg.SessionFile = sessionPath
	}
	return cfg, nil
}
