package api

import (
	"mime"
	"net/http"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/gomarkereditor/markereditor/internal/apperr"
)

// hexColorPattern matches the 3 or 6 digit hex color the SVG route accepts
// as a path segment, guarding against path traversal and script injection
// through what is otherwise just a CSS color substitution.
var hexColorPattern = regexp.MustCompile(`^[0-9a-fA-F]{3}$|^[0-9a-fA-F]{6}$`)

func (d *Dispatcher) serveIndex(w http.ResponseWriter, r *http.Request) {
	if err := d.State.CheckStaticRead(); err != nil {
		writeError(w, d.Log, err)
		return
	}
	http.ServeFile(w, r, filepath.Join(d.AssetsDir, "index.html"))
}

// serveSVG serves an icon asset with its fill color substituted, per
// spec §9: the client requests /i/<hex>/<name>.svg and gets back the
// named icon's FILL_COLOR template token replaced by the requested hex.
func (d *Dispatcher) serveSVG(w http.ResponseWriter, r *http.Request) {
	if err := d.State.CheckStaticRead(); err != nil {
		writeError(w, d.Log, err)
		return
	}
	hex := chi.URLParam(r, "hex")
	if !hexColorPattern.MatchString(hex) {
		writeError(w, d.Log, apperr.InvalidInput("invalid icon color %q", hex))
		return
	}
	name := chi.URLParam(r, "name")
	if strings.Contains(name, "..") || strings.ContainsAny(name, "/\\") {
		writeError(w, d.Log, apperr.Forbidden("invalid asset name"))
		return
	}

	path := filepath.Join(d.AssetsDir, "svg", name)
	data, err := readAssetFile(d.AssetsDir, path)
	if err != nil {
		writeError(w, d.Log, err)
		return
	}
	rendered := strings.ReplaceAll(string(data), "FILL_COLOR", "#"+hex)
	w.Header().Set("Content-Type", "image/svg+xml")
	_, _ = w.Write([]byte(rendered))
}

// serveThumbnail serves a preview frame for a base item at a given
// timestamp, resolving the host's on-disk media path and handing it to
// the thumbnail manager (C4).
func (d *Dispatcher) serveThumbnail(w http.ResponseWriter, r *http.Request) {
	if err := d.State.CheckThumbnailRead(); err != nil {
		writeError(w, d.Log, err)
		return
	}
	metadataID, err := strconv.ParseInt(chi.URLParam(r, "metadataId"), 10, 64)
	if err != nil {
		writeError(w, d.Log, apperr.InvalidInput("invalid metadataId"))
		return
	}
	timestampMs, err := strconv.ParseInt(chi.URLParam(r, "timestampMs"), 10, 64)
	if err != nil {
		writeError(w, d.Log, apperr.InvalidInput("invalid timestampMs"))
		return
	}

	mediaPath, err := d.Markers.MediaPath(r.Context(), metadataID)
	if err != nil {
		writeError(w, d.Log, err)
		return
	}
	frame, err := d.Thumbnails.Get(r.Context(), metadataID, timestampMs, mediaPath)
	if err != nil {
		writeError(w, d.Log, err)
		return
	}
	w.Header().Set("Content-Type", "image/jpeg")
	_, _ = w.Write(frame)
}

// serveStaticAsset serves any other file under AssetsDir (JS bundles, CSS,
// fonts). The cleaned path is re-checked against the root after joining,
// since filepath.Clean alone doesn't stop a request path that escapes the
// root before cleaning collapses it back in.
func (d *Dispatcher) serveStaticAsset(w http.ResponseWriter, r *http.Request) {
	if err := d.State.CheckStaticRead(); err != nil {
		writeError(w, d.Log, err)
		return
	}
	requested := filepath.Clean(r.URL.Path)
	full := filepath.Join(d.AssetsDir, requested)
	data, err := readAssetFile(d.AssetsDir, full)
	if err != nil {
		writeError(w, d.Log, err)
		return
	}
	if ct := mime.TypeByExtension(filepath.Ext(full)); ct != "" {
		w.Header().Set("Content-Type", ct)
	}
	_, _ = w.Write(data)
}

// readAssetFile verifies full is actually rooted under root before
// returning its contents, refusing any path that an unnormalized ".."
// segment walked outside the assets tree. Symlinks are not resolved, so a
// link inside the tree is read wherever it points.
func readAssetFile(root, full string) ([]byte, error) {
	absRoot, err := filepath.Abs(root)
	if err != nil {
		return nil, apperr.Backend(err, "resolve assets root")
	}
	absFull, err := filepath.Abs(full)
	if err != nil {
		return nil, apperr.Backend(err, "resolve asset path")
	}
	if !strings.HasPrefix(absFull, absRoot+string(filepath.Separator)) && absFull != absRoot {
		return nil, apperr.Forbidden("path escapes assets root")
	}
	data, err := os.ReadFile(absFull)
	if err != nil {
		return nil, apperr.NotFound("asset not found")
	}
	return data, nil
}
