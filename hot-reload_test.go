// hot-reload_test.go: tests for Argus-backed dynamic configuration
//
// Copyright (c) 2025 AGILira - A. Giordano
// Series: an AGILira fragment
// SPDX-License-Identifier: MPL-2.0

package harmonia

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeConfigFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("writing config file: %v", err)
	}
}

func TestHotConfig_RequiresPath(t *testing.T) {
	if _, err := NewHotConfig(HotConfigOptions{}); err == nil {
		t.Error("missing config path must fail")
	}
}

func TestHotConfig_ParseEngineSection(t *testing.T) {
	hc := &HotConfig{}
	base := DefaultConfig()

	parsed := hc.parseConfig(base, map[string]interface{}{
		"engine": map[string]interface{}{
			"simplify_threshold":      2.5,
			"workers":                 3,
			"tile_size":               100,
			"union_stripes":           12,
			"verbose":                 true,
			"use_tracehelper":         true,
			"remove_repetitions":      true,
			"ignore_single_const_ucs": true,
			"trace_error_policy":      "strict",
		},
	})

	if parsed.SimplifyThreshold != 2.5 || parsed.Workers != 3 || parsed.TileSize != 100 ||
		parsed.UnionStripes != 12 {
		t.Errorf("numeric tunables not applied: %+v", parsed)
	}
	if !parsed.Verbose || !parsed.UseTraceHelper || !parsed.RemoveRepetitions || !parsed.IgnoreSingleConstUCS {
		t.Error("boolean tunables not applied")
	}
	if parsed.TraceErrorPolicy != TraceErrorStrict {
		t.Error("policy not applied")
	}
	if parsed.Rand != base.Rand || parsed.Logger == nil {
		t.Error("structural fields must come from the base config")
	}

	// Invalid values fall back to the base.
	parsed = hc.parseConfig(base, map[string]interface{}{
		"engine": map[string]interface{}{
			"simplify_threshold": 0.5,
			"workers":            -2,
			"trace_error_policy": "whatever",
		},
	})
	if parsed.SimplifyThreshold != base.SimplifyThreshold || parsed.Workers != base.Workers {
		t.Error("invalid values must be ignored")
	}
	if parsed.TraceErrorPolicy != base.TraceErrorPolicy {
		t.Error("unknown policy must be ignored")
	}

	// A flat file without the engine wrapper works too.
	parsed = hc.parseConfig(base, map[string]interface{}{"simplify_threshold": 4.0})
	if parsed.SimplifyThreshold != 4.0 {
		t.Error("flat engine section not recognised")
	}
}

func TestHotConfig_ReloadFromFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "engine.json")
	writeConfigFile(t, path, `{"engine": {"simplify_threshold": 2.0}}`)

	reloaded := make(chan Config, 8)
	hc, err := NewHotConfig(HotConfigOptions{
		ConfigPath:   path,
		PollInterval: 100 * time.Millisecond,
		OnReload: func(oldConfig, newConfig Config) {
			reloaded <- newConfig
		},
	})
	if err != nil {
		t.Fatalf("NewHotConfig: %v", err)
	}
	if err := hc.Start(); err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer func() {
		if err := hc.Stop(); err != nil {
			t.Errorf("Stop: %v", err)
		}
	}()

	writeConfigFile(t, path, `{"engine": {"simplify_threshold": 3.0, "verbose": true}}`)

	deadline := time.After(5 * time.Second)
	for {
		select {
		case cfg := <-reloaded:
			if cfg.SimplifyThreshold == 3.0 && cfg.Verbose {
				if got := hc.GetConfig(); got.SimplifyThreshold != 3.0 {
					t.Errorf("GetConfig lags the reload: %+v", got)
				}
				return
			}
		case <-deadline:
			t.Fatal("configuration change never observed")
		}
	}
}
