// Package config loads engine and broker configuration from plain JSON
// files. Adapted from the teacher's
// internal/infra/config/jax_core_config.go: os.ReadFile + a
// DisallowUnknownFields decoder, followed by post-decode defaulting — no
// viper anywhere in the teacher's go.mod, so this module doesn't reach
// for it either.
package config

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
)

// EngineConfig controls the Trading Engine's top-level behavior.
type EngineConfig struct {
	// HaltOnStrategyError stops the whole engine the first time any
	// strategy transitions to ERROR, instead of continuing with the
	// surviving strategies (spec.md §4.I/§7 propagation policy).
	HaltOnStrategyError bool `json:"haltOnStrategyError"`
	// DefaultFeeRatePerUnit is a per-unit commission rate. It is loaded
	// but not read by any component: the SimBroker built by cmd/engine
	// takes its rate from SimBrokerConfig.FeeRatePerUnit.
	DefaultFeeRatePerUnit string `json:"defaultFeeRatePerUnit"`
	// DefaultMarginRatio is a fraction of notional. It is loaded but not
	// read by any component: the SimBroker built by cmd/engine takes its
	// ratio from SimBrokerConfig.MarginRatio.
	DefaultMarginRatio string `json:"defaultMarginRatio"`
}

// DefaultEngineConfig mirrors the teacher's pattern of sensible zero-value
// fallbacks rather than requiring every field in the file.
func DefaultEngineConfig() EngineConfig {
	return EngineConfig{
		HaltOnStrategyError:   false,
		DefaultFeeRatePerUnit: "0.005",
		DefaultMarginRatio:    "0.25",
	}
}

// LoadEngineConfig reads and parses path. An empty path returns
// DefaultEngineConfig unchanged, matching libs/risk/policy.go's
// LoadPolicy convention.
func LoadEngineConfig(path string) (EngineConfig, error) {
	if path == "" {
		return DefaultEngineConfig(), nil
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return DefaultEngineConfig(), nil
		}
		return EngineConfig{}, fmt.Errorf("config: read engine config: %w", err)
	}

	cfg := DefaultEngineConfig()
	decoder := json.NewDecoder(bytes.NewReader(raw))
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(&cfg); err != nil {
		return EngineConfig{}, fmt.Errorf("config: parse engine config: %w", err)
	}
	return cfg, nil
}

// SimBrokerConfig controls a single SimBroker's starting account state.
type SimBrokerConfig struct {
	StartingCash     string `json:"startingCash"`
	AccountCurrency  string `json:"accountCurrency"`
	FeeRatePerUnit   string `json:"feeRatePerUnit"`
	MarginRatio      string `json:"marginRatio"`
}

// DefaultSimBrokerConfig returns the built-in defaults for a simulated
// broker with no configuration file supplied.
func DefaultSimBrokerConfig() SimBrokerConfig {
	return SimBrokerConfig{
		StartingCash:    "100000",
		AccountCurrency: "USD",
		FeeRatePerUnit:  "0.005",
		MarginRatio:     "0.25",
	}
}

// LoadSimBrokerConfig reads and parses path, defaulting an empty/missing
// path to DefaultSimBrokerConfig.
func LoadSimBrokerConfig(path string) (SimBrokerConfig, error) {
	if path == "" {
		return DefaultSimBrokerConfig(), nil
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return DefaultSimBrokerConfig(), nil
		}
		return SimBrokerConfig{}, fmt.Errorf("config: read sim broker config: %w", err)
	}

	cfg := DefaultSimBrokerConfig()
	decoder := json.NewDecoder(bytes.NewReader(raw))
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(&cfg); err != nil {
		return SimBrokerConfig{}, fmt.Errorf("config: parse sim broker config: %w", err)
	}
	return cfg, nil
}
