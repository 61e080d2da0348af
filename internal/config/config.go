// Marker Editor - out-of-band marker annotation editor for media server libraries
// SPDX-License-Identifier: AGPL-3.0-or-later

package config

import "time"

// Classification is the restart tier a setting change requires (spec §4.6).
type Classification int

const (
	// HotApply settings take effect immediately, in-process.
	HotApply Classification = iota
	// SoftReload settings require caches to be rebuilt but not the socket.
	SoftReload
	// FullRestart settings rebind the listening socket or change the auth
	// model and can only take effect after a process restart.
	FullRestart
)

func (c Classification) String() string {
	switch c {
	case HotApply:
		return "hot-apply"
	case SoftReload:
		return "soft-reload"
	case FullRestart:
		return "full-restart"
	default:
		return "unknown"
	}
}

// PathMapping is one {from, to} prefix-replacement rule as stored in
// config; converted to pathmap.Mapping when wired into the live mapper.
type PathMapping struct {
	From string `koanf:"from" json:"from"`
	To   string `koanf:"to" json:"to"`
}

// Config is the complete set of server settings, flat by design: every
// field is independently classified and independently diffable (see
// classification and diff in apply.go), which a nested settings tree would
// only complicate.
type Config struct {
	LogLevel           string        `koanf:"log_level" json:"logLevel" validate:"oneof=trace debug info warn error"`
	AutoOpen           bool          `koanf:"auto_open" json:"autoOpen"`
	ExtendedStats      bool          `koanf:"extended_stats" json:"extendedStats"`
	PreviewThumbnails  bool          `koanf:"preview_thumbnails" json:"previewThumbnails"`
	PreciseThumbnails  bool          `koanf:"precise_thumbnails" json:"preciseThumbnails"`
	PathMappings       []PathMapping `koanf:"path_mappings" json:"pathMappings"`
	WriteExtraData     bool          `koanf:"write_extra_data" json:"writeExtraData"`
	AutoSuspend        bool          `koanf:"auto_suspend" json:"autoSuspend"`
	AutoSuspendTimeout time.Duration `koanf:"auto_suspend_timeout" json:"autoSuspendTimeout" validate:"gte=0"`
	Username           string        `koanf:"username" json:"username"`

	DataPath       string        `koanf:"data_path" json:"dataPath"`
	DatabasePath   string        `koanf:"database_path" json:"databasePath" validate:"required"`
	SessionTimeout time.Duration `koanf:"session_timeout" json:"sessionTimeout" validate:"gt=0"`

	Host    string `koanf:"host" json:"host" validate:"required"`
	Port    int    `koanf:"port" json:"port" validate:"gte=1,lte=65535"`
	BaseURL string `koanf:"base_url" json:"baseUrl"`
	SSLCert string `koanf:"ssl_cert" json:"sslCert"`
	SSLKey  string `koanf:"ssl_key" json:"sslKey"`
	UseAuth bool   `koanf:"use_auth" json:"useAuth"`
}

// defaultConfig seeds the Koanf structs.Provider layer (Load, layer 1).
func defaultConfig() *Config {
	return &Config{
		LogLevel:           "info",
		AutoOpen:           false,
		ExtendedStats:      false,
		PreviewThumbnails:  true,
		PreciseThumbnails:  false,
		WriteExtraData:     true,
		AutoSuspend:        false,
		AutoSuspendTimeout: 5 * time.Minute,
		SessionTimeout:     time.Hour,
		Host:               "0.0.0.0",
		Port:               3232,
		BaseURL:            "/",
		UseAuth:            false,
	}
}

// classification tags every setting name (the koanf tag) with its restart
// tier, per spec §4.6's three lists. extended_stats is listed under both
// hot-apply and soft-reload in the spec; it is classified hot-apply here
// (it never rebinds the socket or changes auth) and the cache rebuild its
// toggle implies is handled by the setServerConfig handler publishing
// RebuildPurgedCache regardless of tier, not by promoting its tier.
var classification = map[string]Classification{
	"log_level":            HotApply,
	"auto_open":            HotApply,
	"extended_stats":       HotApply,
	"preview_thumbnails":   HotApply,
	"precise_thumbnails":   HotApply,
	"path_mappings":        HotApply,
	"write_extra_data":     HotApply,
	"auto_suspend":         HotApply,
	"auto_suspend_timeout": HotApply,
	"username":             HotApply,

	"data_path":       SoftReload,
	"database_path":   SoftReload,
	"session_timeout": SoftReload,

	"host":     FullRestart,
	"port":     FullRestart,
	"base_url": FullRestart,
	"ssl_cert": FullRestart,
	"ssl_key":  FullRestart,
	"use_auth": FullRestart,
}
