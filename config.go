package tilestream

import (
	"fmt"

	"github.com/BurntSushi/toml"

	"github.com/gogpu/tilestream/internal/bytecache"
	"github.com/gogpu/tilestream/internal/sysmem"
)

// assumedEncodedTileBytes estimates one compressed raster tile's size
// for converting a RAM byte budget into an entry-count capacity; actual
// tiles vary with format and compression, so this is deliberately
// conservative (a PNG or WebP tile is commonly smaller).
const assumedEncodedTileBytes = 32 * 1024

// Config is the TOML-serializable form of the Coordinator's tunables,
// for embedders that prefer a config file over functional options (the
// two are interchangeable: Config.Options converts to an Option slice
// that can be combined with further WithXxx calls).
type Config struct {
	TileSize               uint32 `toml:"tile_size"`
	MaxPoolLayers          uint32 `toml:"max_pool_layers"`
	WorkerThreadCount      uint32 `toml:"worker_thread_count"`
	MaxUploadsPerFrame     uint32 `toml:"max_uploads_per_frame"`
	MaxFullIndirectionZoom uint8  `toml:"max_full_indirection_zoom"`
	IndirectionWindowSize  uint32 `toml:"indirection_window_size"`
	MaxPendingLoads        uint32 `toml:"max_pending_loads"`
	DefaultMaxAgeSeconds   uint64 `toml:"default_max_age_seconds"`

	Cache CacheConfig `toml:"cache"`
}

// CacheConfig configures the optional byte cache (C2). An empty
// CacheConfig (Capacity == 0) means "no cache": every request falls
// straight through to the source.
type CacheConfig struct {
	Policy      string `toml:"policy"` // "lru" (default), "lfu", "size_biggest_first", "time_oldest_first"
	Capacity    int    `toml:"capacity"`
	DiskDir     string `toml:"disk_dir"`
	DiskEnabled bool   `toml:"disk_enabled"`
	MaxInFlight int64  `toml:"max_disk_in_flight"`

	// MemoryFraction, if set and Capacity is left at 0, derives the
	// memory tier's entry-count capacity from a fraction of total
	// system RAM instead of a fixed count: capacity =
	// sysmem.ComputeLimit(fraction) / assumedEncodedTileBytes. 0
	// disables auto-sizing; Capacity must then be set explicitly.
	MemoryFraction float64 `toml:"memory_fraction"`
}

// DefaultConfig returns the configuration table's documented defaults.
func DefaultConfig() Config {
	o := defaultOptions()
	return Config{
		TileSize:               o.tileSize,
		MaxPoolLayers:          o.maxPoolLayers,
		WorkerThreadCount:      o.workerCount,
		MaxUploadsPerFrame:     o.maxUploadsPerFrame,
		MaxFullIndirectionZoom: o.maxFullIndirectionZoom,
		IndirectionWindowSize:  o.indirectionWindowSize,
		MaxPendingLoads:        o.maxPendingLoads,
		DefaultMaxAgeSeconds:   o.defaultMaxAgeSeconds,
	}
}

// LoadConfig reads a TOML config file at path, starting from
// DefaultConfig so any field the file omits keeps its documented
// default.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()
	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		return Config{}, fmt.Errorf("tilestream: load config %s: %w", path, err)
	}
	return cfg, nil
}

// Options converts cfg into an Option slice suitable for NewCoordinator.
// A non-zero Cache.Capacity, or a zero Capacity with a MemoryFraction
// that yields a non-zero budget, builds and attaches a byte cache;
// otherwise the coordinator runs without one.
func (cfg Config) Options() ([]Option, error) {
	opts := []Option{
		WithTileSize(cfg.TileSize),
		WithMaxPoolLayers(cfg.MaxPoolLayers),
		WithWorkerCount(cfg.WorkerThreadCount),
		WithMaxUploadsPerFrame(cfg.MaxUploadsPerFrame),
		WithMaxFullIndirectionZoom(cfg.MaxFullIndirectionZoom),
		WithIndirectionWindowSize(cfg.IndirectionWindowSize),
		WithMaxPendingLoads(cfg.MaxPendingLoads),
		WithDefaultMaxAge(cfg.DefaultMaxAgeSeconds),
	}

	capacity := cfg.Cache.Capacity
	if capacity <= 0 && cfg.Cache.MemoryFraction > 0 {
		if limit := sysmem.ComputeLimit(cfg.Cache.MemoryFraction); limit > 0 {
			capacity = int(limit / assumedEncodedTileBytes)
		}
	}
	if capacity <= 0 {
		return opts, nil
	}

	policy, err := cfg.Cache.policy()
	if err != nil {
		return nil, err
	}

	var disk *bytecache.DiskStore
	if cfg.Cache.DiskEnabled {
		maxInFlight := cfg.Cache.MaxInFlight
		if maxInFlight <= 0 {
			maxInFlight = 16
		}
		disk, err = bytecache.NewDiskStore(cfg.Cache.DiskDir, maxInFlight)
		if err != nil {
			return nil, fmt.Errorf("tilestream: config cache disk tier: %w", err)
		}
	}

	cache, err := bytecache.New(policy, capacity, disk)
	if err != nil {
		return nil, fmt.Errorf("tilestream: config cache: %w", err)
	}

	return append(opts, WithCache(cache)), nil
}

func (cc CacheConfig) policy() (bytecache.EvictionPolicy, error) {
	switch cc.Policy {
	case "", "lru":
		return bytecache.LRU, nil
	case "lfu":
		return bytecache.LFU, nil
	case "size_biggest_first":
		return bytecache.SizeBiggestFirst, nil
	case "time_oldest_first":
		return bytecache.TimeOldestFirst, nil
	default:
		return 0, fmt.Errorf("tilestream: unknown cache policy %q", cc.Policy)
	}
}
