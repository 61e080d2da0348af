package api

import (
	"net/http"
	"slices"

	"github.com/gomarkereditor/markereditor/internal/config"
	"github.com/gomarkereditor/markereditor/internal/events"
	"github.com/gomarkereditor/markereditor/internal/logging"
	"github.com/gomarkereditor/markereditor/internal/pathmap"
	"github.com/gomarkereditor/markereditor/internal/thumbnail"
)

func thumbnailManagerMode(precise bool) thumbnail.Mode {
	if precise {
		return thumbnail.ModePrecise
	}
	return thumbnail.ModeIndex
}

func toPathmapMappings(in []config.PathMapping) []pathmap.Mapping {
	out := make([]pathmap.Mapping, len(in))
	for i, m := range in {
		out[i] = pathmap.Mapping{From: m.From, To: m.To}
	}
	return out
}

func handleGetConfig(d *Dispatcher, w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, config.Describe(d.currentConfig()))
}

type setLogSettingsRequest struct {
	LogLevel      string `json:"logLevel"`
	ExtendedStats *bool  `json:"extendedStats"`
}

func handleSetLogSettings(d *Dispatcher, w http.ResponseWriter, r *http.Request) {
	var req setLogSettingsRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, d.Log, err)
		return
	}
	next := *d.currentConfig()
	if req.LogLevel != "" {
		next.LogLevel = req.LogLevel
	}
	if req.ExtendedStats != nil {
		next.ExtendedStats = *req.ExtendedStats
	}
	tier, changed, err := config.Apply(d.currentConfig(), &next)
	if err != nil {
		writeError(w, d.Log, err)
		return
	}
	logging.SetLevelString(next.LogLevel)
	if err := config.Save(d.ConfigPath, &next); err != nil {
		writeError(w, d.Log, err)
		return
	}
	d.setConfig(&next)
	writeJSON(w, http.StatusOK, map[string]any{"tier": tier.String(), "changed": changed})
}

type validateConfigRequest struct {
	Config config.Config `json:"config"`
}

func handleValidateConfig(d *Dispatcher, w http.ResponseWriter, r *http.Request) {
	var req validateConfigRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, d.Log, err)
		return
	}
	if err := config.Validate(&req.Config); err != nil {
		writeJSON(w, http.StatusOK, map[string]any{"valid": false, "message": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"valid": true})
}

type validateConfigValueRequest struct {
	Name  string `json:"name"`
	Value any    `json:"value"`
}

func handleValidateConfigValue(d *Dispatcher, w http.ResponseWriter, r *http.Request) {
	var req validateConfigValueRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, d.Log, err)
		return
	}
	ok, msg := config.ValidateField(req.Name, req.Value)
	writeJSON(w, http.StatusOK, map[string]any{"valid": ok, "message": msg})
}

type setServerConfigRequest struct {
	Config config.Config `json:"config"`
}

func handleSetServerConfig(d *Dispatcher, w http.ResponseWriter, r *http.Request) {
	var req setServerConfigRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, d.Log, err)
		return
	}
	cur := d.currentConfig()
	tier, changed, err := config.Apply(cur, &req.Config)
	if err != nil {
		writeError(w, d.Log, err)
		return
	}
	if err := config.Save(d.ConfigPath, &req.Config); err != nil {
		writeError(w, d.Log, err)
		return
	}
	d.setConfig(&req.Config)

	if d.Activity != nil && req.Config.AutoSuspendTimeout != cur.AutoSuspendTimeout {
		d.Activity.SetWindow(req.Config.AutoSuspendTimeout)
	}

	if slices.Contains(changed, "path_mappings") {
		d.PathMapper.Set(toPathmapMappings(req.Config.PathMappings))
	}

	if d.Events != nil && slices.Contains(changed, "extended_stats") {
		if err := d.Events.Publish(r.Context(), events.RebuildPurgedCache); err != nil {
			d.Log.Warn().Err(err).Msg("RebuildPurgedCache subscribers reported errors")
		}
	}

	if d.Thumbnails != nil && slices.Contains(changed, "precise_thumbnails") {
		next := d.Thumbnails.CurrentConfig()
		next.Mode = thumbnailManagerMode(req.Config.PreciseThumbnails)
		d.Thumbnails.SetConfig(next)
		if d.Events != nil {
			if err := d.Events.Publish(r.Context(), events.ReloadThumbnailManager); err != nil {
				d.Log.Warn().Err(err).Msg("ReloadThumbnailManager subscribers reported errors")
			}
		}
	}

	if tier == config.FullRestart {
		if err := d.State.Transition(ReInit); err != nil {
			writeError(w, d.Log, err)
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]any{"tier": tier.String(), "changed": changed})
}
