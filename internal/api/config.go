package api

import (
	"time"

	"github.com/FocuswithJustin/digitalsee/internal/cache"
)

// Config holds server configuration.
type Config struct {
	Port      int
	CorpusDir string
	// Watch keeps the snapshot until a corpus file changes.
	Watch         bool
	WatchDebounce time.Duration
	// CacheTTL reuses a snapshot for this long when not watching. Zero
	// rebuilds it on every request.
	CacheTTL       time.Duration
	ExportPrefix   string
	AllowedOrigins []string // CORS allowed origins (empty = allow all)
}

// snapshotTTL is the cache lifetime implied by the configuration.
func (c Config) snapshotTTL() time.Duration {
	if c.Watch {
		return cache.NoExpiry
	}
	return c.CacheTTL
}
