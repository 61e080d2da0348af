// Marker Editor - out-of-band marker annotation editor for media server libraries
// SPDX-License-Identifier: AGPL-3.0-or-later

package config

// Describe builds the getConfig command's response: one Setting per field,
// each validated against the field rule currently known to hold for it.
// Fields with no standalone rule (e.g. log_level, username) always report
// valid; the ones with a real rule are re-checked so a setting edited
// outside the normal validate/apply path (a hand-edited file, say) still
// surfaces as invalid rather than silently looking fine.
func Describe(cur *Config) map[string]any {
	def := defaultConfig()
	out := map[string]any{
		"logLevel":           NewSetting(cur.LogLevel, def.LogLevel, true, ""),
		"autoOpen":           NewSetting(cur.AutoOpen, def.AutoOpen, true, ""),
		"extendedStats":      NewSetting(cur.ExtendedStats, def.ExtendedStats, true, ""),
		"previewThumbnails":  NewSetting(cur.PreviewThumbnails, def.PreviewThumbnails, true, ""),
		"preciseThumbnails":  NewSetting(cur.PreciseThumbnails, def.PreciseThumbnails, true, ""),
		"writeExtraData":     NewSetting(cur.WriteExtraData, def.WriteExtraData, true, ""),
		"autoSuspend":        NewSetting(cur.AutoSuspend, def.AutoSuspend, true, ""),
		"autoSuspendTimeout": NewSetting(cur.AutoSuspendTimeout, def.AutoSuspendTimeout, true, ""),
		"username":           NewSetting(cur.Username, def.Username, true, ""),
		"baseUrl":            NewSetting(cur.BaseURL, def.BaseURL, true, ""),
		"useAuth":            NewSetting(cur.UseAuth, def.UseAuth, true, ""),
	}

	dataOK, dataMsg := validateDataPath(cur.DataPath)
	out["dataPath"] = NewSetting(cur.DataPath, def.DataPath, dataOK, dataMsg)

	dbOK, dbMsg := validateDatabasePath(cur.DatabasePath)
	out["databasePath"] = NewSetting(cur.DatabasePath, def.DatabasePath, dbOK, dbMsg)

	sessOK, sessMsg := validateSessionTimeout(cur.SessionTimeout)
	out["sessionTimeout"] = NewSetting(cur.SessionTimeout, def.SessionTimeout, sessOK, sessMsg)

	out["host"] = NewSetting(cur.Host, def.Host, true, "")
	out["port"] = NewSetting(cur.Port, def.Port, true, "")
	out["sslCert"] = NewSetting(cur.SSLCert, def.SSLCert, true, "")
	out["sslKey"] = NewSetting(cur.SSLKey, def.SSLKey, true, "")

	mapOK, mapMsg := validatePathMappings(cur.PathMappings)
	out["pathMappings"] = struct {
		Value          []PathMapping `json:"value"`
		DefaultValue   []PathMapping `json:"defaultValue"`
		IsValid        bool          `json:"isValid"`
		InvalidMessage string        `json:"invalidMessage,omitempty"`
		Unchanged      bool          `json:"unchanged"`
	}{
		Value:          cur.PathMappings,
		DefaultValue:   def.PathMappings,
		IsValid:        mapOK,
		InvalidMessage: mapMsg,
		Unchanged:      equalMappings(cur.PathMappings, def.PathMappings),
	}

	return out
}
