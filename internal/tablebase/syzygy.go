package tablebase

import (
	"log"
	"os"
	"sync"

	"github.com/kagechess/kage/internal/board"
	"github.com/kagechess/kage/internal/storage"
)

// dtzLRUCapacity is the default number of resident DTZ payloads, spec.md
// §4.E's DTZ_ENTRIES tuning knob.
const dtzLRUCapacity = 64

// SyzygyProber probes local Kage tablebase files via the registry/loader/
// indexer/decoder core, falling back to the Lichess API (cached) for
// material the local installation doesn't cover or that exceeds the local
// probe limit.
type SyzygyProber struct {
	mu   sync.RWMutex
	path string

	reg  *Registry
	wdl  *LocalProber
	dtz  *DTZProber
	root *RootProber

	headerCache *storage.HeaderCache
	fallback    Prober

	probeLimit int // MaxPieces honored by ProbeRoot/Probe; 0 means use reg.MaxCardinality()
}

// NewSyzygyProber creates a prober rooted at path (or the platform default
// Syzygy directory if path is empty), with a BadgerDB-backed header cache
// and Lichess fallback for uncovered material.
func NewSyzygyProber(path string) *SyzygyProber {
	if path == "" {
		if dir, err := storage.GetSyzygyDir(); err == nil {
			path = dir
		} else {
			path = DefaultCacheDir()
		}
	}

	headerCache, err := storage.NewHeaderCache()
	if err != nil {
		log.Printf("[Tablebase] header cache unavailable, corrupt tables will not be remembered across runs: %v", err)
		headerCache = nil
	}

	sp := &SyzygyProber{
		path:        path,
		headerCache: headerCache,
		fallback:    NewCachedLichessProber(),
	}
	sp.rebuild()
	return sp
}

// rebuild re-enumerates path into a fresh registry and wires the WDL/DTZ/
// root probers on top of it. Called at construction and by SetPath.
func (sp *SyzygyProber) rebuild() {
	reg := NewRegistry(sp.headerCache, dtzLRUCapacity)
	if err := reg.InitTables([]string{sp.path}); err != nil {
		log.Printf("[Tablebase] InitTables(%s): %v", sp.path, err)
	}

	wdl := NewLocalProber(reg)
	dtz := NewDTZProber(reg, wdl)

	sp.mu.Lock()
	sp.reg = reg
	sp.wdl = wdl
	sp.dtz = dtz
	sp.root = NewRootProber(wdl, dtz)
	sp.mu.Unlock()

	if reg.MaxCardinality() > 0 {
		log.Printf("[Tablebase] local tables at %s (max %d pieces)", sp.path, reg.MaxCardinality())
	} else {
		log.Printf("[Tablebase] no local tables at %s, falling back to Lichess API", sp.path)
	}
}

// SetPath updates the tablebase directory and re-enumerates it.
func (sp *SyzygyProber) SetPath(path string) {
	if path == "" {
		if dir, err := storage.GetSyzygyDir(); err == nil {
			path = dir
		} else {
			path = DefaultCacheDir()
		}
	}
	sp.mu.Lock()
	sp.path = path
	sp.mu.Unlock()
	sp.rebuild()
}

// SetProbeLimit bounds the piece count SyzygyProber will attempt to probe
// locally, honoring a UCI SyzygyProbeLimit option even when a larger local
// table set is installed.
func (sp *SyzygyProber) SetProbeLimit(limit int) {
	sp.mu.Lock()
	sp.probeLimit = limit
	sp.mu.Unlock()
}

func (sp *SyzygyProber) effectiveLimit() int {
	sp.mu.RLock()
	defer sp.mu.RUnlock()
	if sp.probeLimit > 0 {
		return sp.probeLimit
	}
	return sp.reg.MaxCardinality()
}

func (sp *SyzygyProber) probers() (*LocalProber, *DTZProber, *RootProber) {
	sp.mu.RLock()
	defer sp.mu.RUnlock()
	return sp.wdl, sp.dtz, sp.root
}

// Probe looks up a position in the local tables, falling back to the
// online prober when local material is absent or the position exceeds the
// local probe limit.
func (sp *SyzygyProber) Probe(pos *board.Position) ProbeResult {
	wdl, dtzP, _ := sp.probers()

	if CountPieces(pos) <= sp.effectiveLimit() {
		v, succ := wdl.ProbeWDL(pos)
		if succ != 0 {
			d, _ := dtzP.ProbeDTZ(pos)
			return ProbeResult{Found: true, WDL: WDL(v), DTZ: d}
		}
	}

	return sp.fallback.Probe(pos)
}

// ProbeRoot finds the best root move using local DTZ ranking, falling back
// to WDL-only local ranking and then the online prober.
func (sp *SyzygyProber) ProbeRoot(pos *board.Position) RootResult {
	_, _, root := sp.probers()

	if CountPieces(pos) <= sp.effectiveLimit() {
		if moves, wdl, ok := root.RootProbeDTZ(pos, nil); ok {
			return RootResult{Found: true, Move: moves[0], WDL: WDL(wdl)}
		}
		if moves, wdl, ok := root.RootProbeWDL(pos); ok {
			return RootResult{Found: true, Move: moves[0], WDL: WDL(wdl)}
		}
	}

	return sp.fallback.ProbeRoot(pos)
}

// MaxPieces returns the larger of the local probe limit and the online
// fallback's supported cardinality.
func (sp *SyzygyProber) MaxPieces() int {
	local := sp.effectiveLimit()
	if online := sp.fallback.MaxPieces(); online > local {
		return online
	}
	return local
}

// Available is always true: the Lichess fallback covers any material the
// local installation doesn't.
func (sp *SyzygyProber) Available() bool {
	return true
}

// LocalMaxPieces returns the max cardinality of locally enumerated tables.
func (sp *SyzygyProber) LocalMaxPieces() int {
	sp.mu.RLock()
	defer sp.mu.RUnlock()
	return sp.reg.MaxCardinality()
}

// HasLocalFiles reports whether any local table was enumerated.
func (sp *SyzygyProber) HasLocalFiles() bool {
	return sp.LocalMaxPieces() > 0
}

// Path returns the current tablebase directory.
func (sp *SyzygyProber) Path() string {
	sp.mu.RLock()
	defer sp.mu.RUnlock()
	return sp.path
}

// Close releases the header cache database.
func (sp *SyzygyProber) Close() error {
	sp.mu.RLock()
	hc := sp.headerCache
	sp.mu.RUnlock()
	if hc != nil {
		return hc.Close()
	}
	return nil
}

// Download5Piece downloads all 5-piece tablebase files, re-enumerating the
// registry when done.
func (sp *SyzygyProber) Download5Piece() (<-chan DownloadProgress, error) {
	sp.mu.RLock()
	path := sp.path
	sp.mu.RUnlock()

	downloader := NewSyzygyDownloader(path)
	if err := downloader.EnsureCacheDir(); err != nil {
		return nil, err
	}

	progress := make(chan DownloadProgress, 100)
	go func() {
		defer close(progress)
		if err := downloader.Download5PieceConcurrent(progress, 4); err != nil {
			progress <- DownloadProgress{Error: err}
		}
		sp.rebuild()
	}()

	return progress, nil
}

// checkLocalFile checks if both halves of a tablebase entry exist locally.
func (sp *SyzygyProber) checkLocalFile(material string) bool {
	sp.mu.RLock()
	path := sp.path
	sp.mu.RUnlock()
	return NewSyzygyDownloader(path).HasFile(material)
}

// PathExists reports whether the configured tablebase directory exists at
// all, for the "tb status" UCI diagnostic.
func (sp *SyzygyProber) PathExists() bool {
	sp.mu.RLock()
	path := sp.path
	sp.mu.RUnlock()
	_, err := os.Stat(path)
	return err == nil
}
