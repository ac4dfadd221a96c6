// hot-reload.go: dynamic engine tuning with Argus integration
//
// Copyright (c) 2025 AGILira - A. Giordano
// Series: an AGILira library
// SPDX-License-Identifier: MPL-2.0

package harmonia

import (
	"fmt"
	"sync"
	"time"

	"github.com/agilira/argus"
)

// HotConfig provides dynamic configuration reload capabilities using Argus.
// It watches a configuration file and republishes the engine tunables when
// changes are detected; drivers read GetConfig before each CrossAll run.
// Structural fields (Rand, Logger, TimeProvider, MetricsCollector) are
// never reloaded from a file and keep the values of the base config.
type HotConfig struct {
	watcher *argus.Watcher
	mu      sync.RWMutex
	config  Config

	// OnReload is called after configuration is successfully reloaded.
	// This callback is optional and must be fast and non-blocking.
	OnReload func(oldConfig, newConfig Config)
}

// HotConfigOptions configures hot reload behavior.
type HotConfigOptions struct {
	// ConfigPath is the path to the configuration file to watch.
	// Supports JSON, YAML, TOML, HCL, INI, Properties formats.
	ConfigPath string

	// PollInterval is how often to check for configuration changes.
	// Default: 1 second. Minimum: 100ms.
	PollInterval time.Duration

	// Base is the configuration the reloaded tunables are layered onto.
	// If zero-valued it is normalized through Validate.
	Base Config

	// OnReload is called after configuration is successfully reloaded.
	OnReload func(oldConfig, newConfig Config)
}

// NewHotConfig creates a hot-reloadable engine configuration.
// It starts watching the configuration file on Start.
//
// Example configuration file (YAML):
//
//	engine:
//	  simplify_threshold: 1.5
//	  workers: 8
//	  verbose: true
//	  trace_error_policy: "warn"
//
// Supported configuration keys:
//   - engine.simplify_threshold (float > 1.0)
//   - engine.workers (int > 0)
//   - engine.tile_size (int > 0)
//   - engine.union_stripes (int > 0)
//   - engine.verbose (bool)
//   - engine.use_tracehelper (bool)
//   - engine.remove_repetitions (bool)
//   - engine.ignore_single_const_ucs (bool)
//   - engine.trace_error_policy ("warn" or "strict")
func NewHotConfig(opts HotConfigOptions) (*HotConfig, error) {
	if opts.ConfigPath == "" {
		return nil, fmt.Errorf("config_path is required")
	}

	if opts.PollInterval == 0 {
		opts.PollInterval = 1 * time.Second
	} else if opts.PollInterval < 100*time.Millisecond {
		opts.PollInterval = 100 * time.Millisecond
	}

	base := opts.Base
	if err := base.Validate(); err != nil {
		return nil, err
	}

	hc := &HotConfig{
		OnReload: opts.OnReload,
		config:   base,
	}

	argusConfig := argus.Config{
		PollInterval: opts.PollInterval,
	}

	watcher, err := argus.UniversalConfigWatcherWithConfig(opts.ConfigPath, hc.handleConfigChange, argusConfig)
	if err != nil {
		return nil, err
	}
	hc.watcher = watcher

	return hc, nil
}

// Start begins watching the configuration file for changes.
func (hc *HotConfig) Start() error {
	if hc.watcher.IsRunning() {
		return nil // Already started
	}
	return hc.watcher.Start()
}

// Stop stops watching the configuration file.
func (hc *HotConfig) Stop() error {
	return hc.watcher.Stop()
}

// GetConfig returns the current configuration (thread-safe).
func (hc *HotConfig) GetConfig() Config {
	hc.mu.RLock()
	defer hc.mu.RUnlock()
	return hc.config
}

// handleConfigChange is called by Argus when configuration changes.
func (hc *HotConfig) handleConfigChange(configData map[string]interface{}) {
	hc.mu.Lock()
	oldConfig := hc.config
	newConfig := hc.parseConfig(oldConfig, configData)
	hc.config = newConfig
	hc.mu.Unlock()

	if hc.OnReload != nil {
		hc.OnReload(oldConfig, newConfig)
	}
}

// parsePositiveInt extracts a positive integer from interface{} value.
// Supports both int and float64 types (YAML/JSON may vary).
func parsePositiveInt(value interface{}) (int, bool) {
	switch v := value.(type) {
	case int:
		if v > 0 {
			return v, true
		}
	case float64:
		if v > 0 {
			return int(v), true
		}
	}
	return 0, false
}

// parseFloatAbove extracts a float64 strictly greater than minimum.
func parseFloatAbove(value interface{}, minimum float64) (float64, bool) {
	switch v := value.(type) {
	case float64:
		if v > minimum {
			return v, true
		}
	case int:
		if float64(v) > minimum {
			return float64(v), true
		}
	}
	return 0, false
}

// parseBool extracts a boolean value.
func parseBool(value interface{}) (bool, bool) {
	if v, ok := value.(bool); ok {
		return v, true
	}
	return false, false
}

// parseConfig layers the engine tunables from Argus config data onto base.
func (hc *HotConfig) parseConfig(base Config, data map[string]interface{}) Config {
	config := base

	engineSection, ok := data["engine"].(map[string]interface{})
	if !ok {
		// Try if the whole data IS the engine section
		if _, hasThreshold := data["simplify_threshold"]; hasThreshold {
			engineSection = data
		} else {
			return config
		}
	}

	if threshold, ok := parseFloatAbove(engineSection["simplify_threshold"], 1.0); ok {
		config.SimplifyThreshold = threshold
	}
	if workers, ok := parsePositiveInt(engineSection["workers"]); ok {
		config.Workers = workers
	}
	if tile, ok := parsePositiveInt(engineSection["tile_size"]); ok {
		config.TileSize = tile
	}
	if stripes, ok := parsePositiveInt(engineSection["union_stripes"]); ok {
		config.UnionStripes = stripes
	}
	if verbose, ok := parseBool(engineSection["verbose"]); ok {
		config.Verbose = verbose
	}
	if useTH, ok := parseBool(engineSection["use_tracehelper"]); ok {
		config.UseTraceHelper = useTH
	}
	if removeRep, ok := parseBool(engineSection["remove_repetitions"]); ok {
		config.RemoveRepetitions = removeRep
	}
	if ignoreSingle, ok := parseBool(engineSection["ignore_single_const_ucs"]); ok {
		config.IgnoreSingleConstUCS = ignoreSingle
	}
	if policy, ok := engineSection["trace_error_policy"].(string); ok {
		switch policy {
		case "warn":
			config.TraceErrorPolicy = TraceErrorWarn
		case "strict":
			config.TraceErrorPolicy = TraceErrorStrict
		}
	}

	return config
}
