// Marker Editor - out-of-band marker annotation editor for media server libraries
// SPDX-License-Identifier: AGPL-3.0-or-later

package thumbnail

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
	gobreaker "github.com/sony/gobreaker/v2"

	"github.com/gomarkereditor/markereditor/internal/apperr"
	"github.com/gomarkereditor/markereditor/internal/pathmap"
)

// Mode selects how a frame is produced.
type Mode int

const (
	ModeIndex Mode = iota
	ModePrecise
)

// Config holds the hot-appliable settings of the thumbnail manager.
type Config struct {
	Mode          Mode
	ToolPath      string        // external media tool binary, used only in ModePrecise
	ToolTimeout   time.Duration // killed if the tool runs longer than this
	CacheCapacity int
	CacheTTL      time.Duration
	// IndexPath derives the on-disk BIF index path for a resolved media
	// file. Overridable for hosts with a different index layout; the
	// default follows the common sibling-directory convention.
	IndexPath func(resolvedMediaPath string) string
}

func defaultIndexPath(mediaPath string) string {
	dir := filepath.Dir(mediaPath)
	base := strings.TrimSuffix(filepath.Base(mediaPath), filepath.Ext(mediaPath))
	return filepath.Join(dir, ".indexes", base+"-index-sd.bif")
}

// Manager is the thumbnail manager (C4).
type Manager struct {
	mu     sync.RWMutex
	cfg    Config
	mapper *pathmap.Mapper
	cache  *frameCache
	cb     *gobreaker.CircuitBreaker[[]byte]
	log    zerolog.Logger
}

// New builds a Manager. mapper resolves host media paths to locally
// reachable ones (C10); it is shared with the rest of the server so a
// path-mapping config change is visible immediately.
func New(cfg Config, mapper *pathmap.Mapper, log zerolog.Logger) *Manager {
	if cfg.ToolTimeout <= 0 {
		cfg.ToolTimeout = 10 * time.Second
	}
	if cfg.IndexPath == nil {
		cfg.IndexPath = defaultIndexPath
	}
	log = log.With().Str("component", "thumbnail").Logger()
	cb := gobreaker.NewCircuitBreaker[[]byte](gobreaker.Settings{
		Name:        "thumbnail-tool",
		MaxRequests: 1,
		Interval:    time.Minute,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 3
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			log.Warn().Str("from", from.String()).Str("to", to.String()).Msg("thumbnail tool circuit breaker state change")
		},
	})
	return &Manager{
		cfg:    cfg,
		mapper: mapper,
		cache:  newFrameCache(cfg.CacheCapacity, cfg.CacheTTL),
		cb:     cb,
		log:    log,
	}
}

// CurrentConfig returns the manager's active configuration, so a caller
// hot-applying a single setting (e.g. precise-thumbnail mode) can start
// from the live values instead of reconstructing the rest from scratch.
func (m *Manager) CurrentConfig() Config {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.cfg
}

// SetConfig hot-applies a new mode/tool/cache configuration and drops the
// frame cache, since previously cached frames may no longer reflect the
// active mode.
func (m *Manager) SetConfig(cfg Config) {
	if cfg.ToolTimeout <= 0 {
		cfg.ToolTimeout = 10 * time.Second
	}
	if cfg.IndexPath == nil {
		cfg.IndexPath = defaultIndexPath
	}
	m.mu.Lock()
	m.cfg = cfg
	m.mu.Unlock()
	m.cache.clear()
}

// Reload is the C9 ReloadThumbnailManager subscriber: it drops every
// cached frame so the next request re-derives them under current config.
func (m *Manager) Reload(ctx context.Context) error {
	m.cache.clear()
	m.log.Info().Msg("thumbnail cache invalidated")
	return nil
}

func cacheKey(baseItemID, timestampMs int64) string {
	rounded := (timestampMs / 1000) * 1000
	return strconv.FormatInt(baseItemID, 10) + ":" + strconv.FormatInt(rounded, 10)
}

// Get resolves (baseItemID, timestampMs) to JPEG bytes. mediaPath is the
// host-database path for the base item's media file.
func (m *Manager) Get(ctx context.Context, baseItemID, timestampMs int64, mediaPath string) ([]byte, error) {
	key := cacheKey(baseItemID, timestampMs)
	if data, ok := m.cache.get(key); ok {
		return data, nil
	}

	m.mu.RLock()
	mode := m.cfg.Mode
	m.mu.RUnlock()

	var (
		data []byte
		err  error
	)
	switch mode {
	case ModeIndex:
		data, err = m.getIndexed(mediaPath, timestampMs)
	case ModePrecise:
		data, err = m.getPrecise(ctx, mediaPath, timestampMs)
	default:
		err = apperr.ConfigInvalid("unknown thumbnail mode")
	}
	if err != nil {
		return nil, err
	}
	m.cache.add(key, data)
	return data, nil
}

func (m *Manager) getIndexed(mediaPath string, timestampMs int64) ([]byte, error) {
	localPath := m.mapper.Resolve(mediaPath)
	m.mu.RLock()
	indexPath := m.cfg.IndexPath(localPath)
	m.mu.RUnlock()

	f, err := os.Open(indexPath)
	if err != nil {
		return nil, apperr.NotFound("no precomputed thumbnail index for item")
	}
	defer f.Close()

	idx, err := parseBIF(f)
	if err != nil {
		return nil, err
	}
	return idx.frameAt(timestampMs)
}

func (m *Manager) getPrecise(ctx context.Context, mediaPath string, timestampMs int64) ([]byte, error) {
	localPath := m.mapper.Resolve(mediaPath)
	if localPath == "" {
		return nil, apperr.ConfigInvalid("media path could not be resolved")
	}
	if _, err := os.Stat(localPath); err != nil {
		return nil, apperr.ConfigInvalid("mapped media path does not exist on this host")
	}

	m.mu.RLock()
	toolPath, timeout := m.cfg.ToolPath, m.cfg.ToolTimeout
	m.mu.RUnlock()
	if toolPath == "" {
		return nil, apperr.ConfigInvalid("no media tool configured for precise thumbnails")
	}

	frame, err := m.cb.Execute(func() ([]byte, error) {
		return runTool(ctx, toolPath, localPath, timestampMs, timeout)
	})
	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return nil, apperr.External(err, "thumbnail tool circuit is open")
		}
		return nil, apperr.External(err, "thumbnail extraction failed")
	}
	return frame, nil
}

func runTool(ctx context.Context, toolPath, mediaPath string, timestampMs int64, timeout time.Duration) ([]byte, error) {
	toolCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	seek := fmt.Sprintf("%.3f", float64(timestampMs)/1000)
	cmd := exec.CommandContext(toolCtx, toolPath,
		"-ss", seek, "-i", mediaPath,
		"-frames:v", "1", "-f", "image2pipe", "-vcodec", "mjpeg", "-")
	var out, stderr bytes.Buffer
	cmd.Stdout = &out
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return nil, fmt.Errorf("%w: %s", err, strings.TrimSpace(stderr.String()))
	}
	if out.Len() == 0 {
		return nil, errors.New("media tool produced no output")
	}
	return out.Bytes(), nil
}

// Stats reports cache hit/miss counters, used by the getStats command.
func (m *Manager) Stats() (hits, misses int64, size int) {
	return m.cache.stats()
}
