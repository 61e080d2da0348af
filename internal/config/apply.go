// Marker Editor - out-of-band marker annotation editor for media server libraries
// SPDX-License-Identifier: AGPL-3.0-or-later

package config

import (
	"github.com/gomarkereditor/markereditor/internal/apperr"
	"github.com/gomarkereditor/markereditor/internal/validation"
)

// Validate runs every cross-field rule from spec §4.6 against a complete
// config, returning the first failure as a ConfigInvalid error. A
// struct-tag pass (required fields, numeric bounds) runs first so a
// malformed field is rejected before the more expensive domain-specific
// checks below even look at it.
func Validate(next *Config) error {
	if verr := validation.ValidateStruct(next); verr != nil {
		return apperr.ConfigInvalid("%s", verr.Error())
	}
	if ok, msg := validateDataPath(next.DataPath); !ok {
		return apperr.ConfigInvalid("data_path: %s", msg)
	}
	if ok, msg := validateDatabasePath(next.DatabasePath); !ok {
		return apperr.ConfigInvalid("database_path: %s", msg)
	}
	if ok, msg := validateHostPort(next.Host, next.Port); !ok {
		return apperr.ConfigInvalid("host/port: %s", msg)
	}
	if ok, msg := validateSessionTimeout(next.SessionTimeout); !ok {
		return apperr.ConfigInvalid("session_timeout: %s", msg)
	}
	if ok, msg := validatePathMappings(next.PathMappings); !ok {
		return apperr.ConfigInvalid("path_mappings: %s", msg)
	}
	if ok, msg := validateTLSPair(next.SSLCert, next.SSLKey); !ok {
		return apperr.ConfigInvalid("ssl: %s", msg)
	}
	return nil
}

// diff reports every koanf field name whose value differs between cur and next.
func diff(cur, next *Config) []string {
	var changed []string
	add := func(name string, eq bool) {
		if !eq {
			changed = append(changed, name)
		}
	}
	add("log_level", cur.LogLevel == next.LogLevel)
	add("auto_open", cur.AutoOpen == next.AutoOpen)
	add("extended_stats", cur.ExtendedStats == next.ExtendedStats)
	add("preview_thumbnails", cur.PreviewThumbnails == next.PreviewThumbnails)
	add("precise_thumbnails", cur.PreciseThumbnails == next.PreciseThumbnails)
	add("path_mappings", equalMappings(cur.PathMappings, next.PathMappings))
	add("write_extra_data", cur.WriteExtraData == next.WriteExtraData)
	add("auto_suspend", cur.AutoSuspend == next.AutoSuspend)
	add("auto_suspend_timeout", cur.AutoSuspendTimeout == next.AutoSuspendTimeout)
	add("username", cur.Username == next.Username)
	add("data_path", cur.DataPath == next.DataPath)
	add("database_path", cur.DatabasePath == next.DatabasePath)
	add("session_timeout", cur.SessionTimeout == next.SessionTimeout)
	add("host", cur.Host == next.Host)
	add("port", cur.Port == next.Port)
	add("base_url", cur.BaseURL == next.BaseURL)
	add("ssl_cert", cur.SSLCert == next.SSLCert)
	add("ssl_key", cur.SSLKey == next.SSLKey)
	add("use_auth", cur.UseAuth == next.UseAuth)
	return changed
}

func equalMappings(a, b []PathMapping) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// Apply is applyConfig(newConfig) from spec §4.6: validate next in full,
// then report every changed setting and the highest restart tier among
// them, so the caller knows whether to hot-apply in place, trigger a soft
// cache rebuild, or tell the operator a restart is required.
func Apply(cur, next *Config) (Classification, []string, error) {
	if err := Validate(next); err != nil {
		return HotApply, nil, err
	}
	changed := diff(cur, next)
	highest := HotApply
	for _, name := range changed {
		if tier, ok := classification[name]; ok && tier > highest {
			highest = tier
		}
	}
	return highest, changed, nil
}
