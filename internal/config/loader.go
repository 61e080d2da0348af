// Marker Editor - out-of-band marker annotation editor for media server libraries
// SPDX-License-Identifier: AGPL-3.0-or-later

package config

import (
	jsonpkg "encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/fsnotify/fsnotify"
	"github.com/knadh/koanf/parsers/json"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"
	"github.com/rs/zerolog"
)

// EnvPrefix namespaces every environment-variable override, mirroring the
// teacher's per-component env-var convention.
const EnvPrefix = "MARKEREDITOR_"

// Load layers defaults, an optional on-disk JSON file (spec §6 mandates
// JSON where the teacher used YAML), then environment variables, in that
// priority order, and validates the result.
func Load(path string) (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(structs.Provider(defaultConfig(), "koanf"), nil); err != nil {
		return nil, fmt.Errorf("load config defaults: %w", err)
	}

	if path != "" {
		if _, err := os.Stat(path); err == nil {
			if err := k.Load(file.Provider(path), json.Parser()); err != nil {
				return nil, fmt.Errorf("load config file %s: %w", path, err)
			}
		}
	}

	if err := k.Load(env.Provider(EnvPrefix, ".", envTransform), nil); err != nil {
		return nil, fmt.Errorf("load environment overrides: %w", err)
	}

	cfg := &Config{}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	if err := Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Save rewrites the config file at path with cur's settings, preserving
// any top-level key the file already holds that Config does not know
// about (spec §6: "the server rewrites the file preserving unknown
// top-level keys"). A missing file is treated as an empty starting
// document rather than an error. Keys are written under the same
// snake_case names Load reads (the koanf tags), since that is the on-disk
// shape the file.Provider+json.Parser layer in Load expects.
func Save(path string, cur *Config) error {
	raw := map[string]any{}
	if existing, err := os.ReadFile(path); err == nil {
		_ = jsonpkg.Unmarshal(existing, &raw)
	} else if !os.IsNotExist(err) {
		return fmt.Errorf("read config file %s: %w", path, err)
	}

	known := map[string]any{
		"log_level":            cur.LogLevel,
		"auto_open":            cur.AutoOpen,
		"extended_stats":       cur.ExtendedStats,
		"preview_thumbnails":   cur.PreviewThumbnails,
		"precise_thumbnails":   cur.PreciseThumbnails,
		"path_mappings":        cur.PathMappings,
		"write_extra_data":     cur.WriteExtraData,
		"auto_suspend":         cur.AutoSuspend,
		"auto_suspend_timeout": cur.AutoSuspendTimeout,
		"username":             cur.Username,
		"data_path":            cur.DataPath,
		"database_path":        cur.DatabasePath,
		"session_timeout":      cur.SessionTimeout,
		"host":                 cur.Host,
		"port":                 cur.Port,
		"base_url":             cur.BaseURL,
		"ssl_cert":             cur.SSLCert,
		"ssl_key":              cur.SSLKey,
		"use_auth":             cur.UseAuth,
	}
	for k, v := range known {
		raw[k] = v
	}

	out, err := jsonpkg.MarshalIndent(raw, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal merged config: %w", err)
	}
	if err := os.WriteFile(path, out, 0o644); err != nil {
		return fmt.Errorf("write config file %s: %w", path, err)
	}
	return nil
}

// envTransform turns MARKEREDITOR_AUTO_SUSPEND_TIMEOUT into
// auto_suspend_timeout, matching the flat koanf tags on Config directly
// (there is no nested struct here needing a dot-delimiter translation).
func envTransform(key string) string {
	return strings.ToLower(strings.TrimPrefix(key, EnvPrefix))
}

// Watch follows the teacher's WatchConfigFile callback pattern: the
// caller owns synchronization of the live Config value and is handed a
// validated, already-classified reload rather than a raw fsnotify event.
// current must return the config Watch should diff the reload against.
func Watch(path string, current func() *Config, onChange func(next *Config, tier Classification, changed []string), log zerolog.Logger) (*fsnotify.Watcher, error) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create config watcher: %w", err)
	}
	dir := filepath.Dir(path)
	if err := watcher.Add(dir); err != nil {
		watcher.Close()
		return nil, fmt.Errorf("watch config directory %s: %w", dir, err)
	}

	target := filepath.Clean(path)
	go func() {
		for {
			select {
			case ev, ok := <-watcher.Events:
				if !ok {
					return
				}
				if filepath.Clean(ev.Name) != target {
					continue
				}
				if ev.Op&(fsnotify.Write|fsnotify.Create) == 0 {
					continue
				}
				next, err := Load(path)
				if err != nil {
					log.Error().Err(err).Msg("config file reload failed validation")
					continue
				}
				tier, changed, err := Apply(current(), next)
				if err != nil {
					log.Error().Err(err).Msg("config file reload rejected")
					continue
				}
				if len(changed) == 0 {
					continue
				}
				onChange(next, tier, changed)
			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				log.Error().Err(err).Msg("config watcher error")
			}
		}
	}()
	return watcher, nil
}
