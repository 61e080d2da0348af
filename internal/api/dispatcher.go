package api

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/rs/zerolog"

	"github.com/gomarkereditor/markereditor/internal/apperr"
	"github.com/gomarkereditor/markereditor/internal/auth"
	"github.com/gomarkereditor/markereditor/internal/backup"
	"github.com/gomarkereditor/markereditor/internal/cache"
	"github.com/gomarkereditor/markereditor/internal/config"
	"github.com/gomarkereditor/markereditor/internal/events"
	ourmiddleware "github.com/gomarkereditor/markereditor/internal/middleware"
	"github.com/gomarkereditor/markereditor/internal/markers"
	"github.com/gomarkereditor/markereditor/internal/pathmap"
	"github.com/gomarkereditor/markereditor/internal/thumbnail"
)

// Lifecycle is the slice of process control the dispatcher needs but does
// not own: actually closing listeners and re-reading the host database on
// restart belongs to whatever assembled the server (cmd/server).
type Lifecycle interface {
	Shutdown(ctx context.Context) error
	Restart(ctx context.Context, hard bool) error
}

// Dispatcher wires every component (C2-C7, C9-C11) to the command table
// and static routes (C8).
type Dispatcher struct {
	Markers    *markers.Manager
	Cache      *cache.Cache
	Thumbnails *thumbnail.Manager
	Backup     *backup.Manager
	Auth       *auth.Authenticator
	Events     *events.Bus
	PathMapper *pathmap.Mapper
	Lifecycle  Lifecycle
	State      *StateMachine
	Activity   *cache.ActivityTracker
	AssetsDir  string
	ConfigPath string
	Log        zerolog.Logger

	cfgMu sync.RWMutex
	cfg   *config.Config
	perf  *ourmiddleware.PerformanceMonitor
}

// NewDispatcher builds a Dispatcher. cfg is the live, already-validated
// configuration; the dispatcher takes its own copy behind a lock since
// setServerConfig/validateConfig mutate it from request goroutines.
func NewDispatcher(deps Dispatcher, cfg *config.Config) *Dispatcher {
	d := deps
	d.cfg = cfg
	d.perf = ourmiddleware.NewPerformanceMonitor(1000)
	return &d
}

// PerformanceStats returns aggregated per-endpoint latency stats gathered
// since startup, keyed by "METHOD path".
func (d *Dispatcher) PerformanceStats() []ourmiddleware.EndpointStats {
	return d.perf.GetStats()
}

func (d *Dispatcher) currentConfig() *config.Config {
	d.cfgMu.RLock()
	defer d.cfgMu.RUnlock()
	cp := *d.cfg
	return &cp
}

// CurrentConfig returns a copy of the dispatcher's live configuration, for
// callers outside the package (e.g. the auto-suspend ticker) that need to
// read hot-applied settings without holding their own reference.
func (d *Dispatcher) CurrentConfig() *config.Config {
	return d.currentConfig()
}

func (d *Dispatcher) setConfig(next *config.Config) {
	d.cfgMu.Lock()
	d.cfg = next
	d.cfgMu.Unlock()
}

// commandHandler is the shape every command-table entry implements. It
// receives the decoded-nothing request; handlers decode their own body
// since each command has a different payload shape.
type commandHandler func(d *Dispatcher, w http.ResponseWriter, r *http.Request)

// commandTable is the full command set from spec §4.8.
var commandTable = map[string]commandHandler{
	"query":                handleQuery,
	"edit":                 handleEdit,
	"add":                  handleAdd,
	"delete":               handleDelete,
	"getSections":          handleGetSections,
	"getSection":           handleGetSection,
	"getSeasons":           handleGetSeasons,
	"getEpisodes":          handleGetEpisodes,
	"getStats":             handleGetStats,
	"getConfig":            handleGetConfig,
	"setLogSettings":       handleSetLogSettings,
	"purgeCheck":           handlePurgeCheck,
	"allPurges":            handleAllPurges,
	"restorePurge":         handleRestorePurge,
	"ignorePurge":          handleIgnorePurge,
	"getBreakdown":         handleGetBreakdown,
	"shutdown":             handleShutdown,
	"restart":              handleRestart,
	"suspend":              handleSuspend,
	"resume":               handleResume,
	"validateConfig":       handleValidateConfig,
	"validateConfigValue":  handleValidateConfigValue,
	"setServerConfig":      handleSetServerConfig,
	"bulkShift":            handleBulkShift,
	"checkBulkAdd":         handleCheckBulkAdd,
	"bulkAdd":              handleBulkAdd,
	"checkBulkDelete":      handleCheckBulkDelete,
	"bulkDelete":           handleBulkDelete,
	"nukeSection":          handleNukeSection,
	"getChapters":          handleGetChapters,
	"changePassword":       handleChangePassword,
	"login":                handleLogin,
}

// commandsExemptFromAuth skip the session gate entirely: a client with no
// session yet must still be able to log in. Every other command, getConfig
// included, requires a session.
var commandsExemptFromAuth = map[string]bool{
	"login": true,
}

// Router builds the full chi mux: global middleware, the single POST
// dispatch endpoint per command, and the static/thumbnail/SVG GET routes.
func (d *Dispatcher) Router() http.Handler {
	r := chi.NewRouter()

	r.Use(func(next http.Handler) http.Handler {
		return ourmiddleware.RequestID(next.ServeHTTP)
	})
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{http.MethodGet, http.MethodPost},
		AllowedHeaders:   []string{"Authorization", "Content-Type"},
		AllowCredentials: false,
	}))
	r.Use(func(next http.Handler) http.Handler {
		return ourmiddleware.Compression(next.ServeHTTP)
	})
	r.Use(d.prometheusMiddleware)
	r.Use(d.perf.Middleware)

	r.With(auth.Middleware(d.Auth, func(req *http.Request) bool {
		return commandsExemptFromAuth[chi.URLParam(req, "command")]
	})).Post("/{command}", d.dispatchCommand)

	// Thumbnails and SVGs are derived, per-request content, not static
	// assets, so they sit behind the same session gate as commands (spec
	// §4.7: "every endpoint except login and static assets").
	requireSession := auth.Middleware(d.Auth, func(*http.Request) bool { return false })
	r.Get("/metrics", MetricsHandler().ServeHTTP)
	r.Get("/index.html", d.serveIndex)
	r.With(requireSession).Get("/i/{hex}/{name}", d.serveSVG)
	r.With(requireSession).Get("/t/{sectionType}/{metadataId}/{timestampMs}", d.serveThumbnail)
	r.Get("/*", d.serveStaticAsset)

	return r
}

func (d *Dispatcher) dispatchCommand(w http.ResponseWriter, r *http.Request) {
	command := chi.URLParam(r, "command")
	handler, ok := commandTable[command]
	if !ok {
		writeError(w, d.Log, apperr.NotFound("unknown command %q", command))
		return
	}

	if err := d.State.CheckCommand(command); err != nil {
		writeError(w, d.Log, err)
		return
	}

	if d.Activity != nil {
		d.Activity.Touch()
	}

	handler(d, w, r)
}

func (d *Dispatcher) prometheusMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rw := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rw, r)
		observeRequest(r.URL.Path, rw.status, time.Since(start))
	})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (s *statusRecorder) WriteHeader(code int) {
	s.status = code
	s.ResponseWriter.WriteHeader(code)
}
