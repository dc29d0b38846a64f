package store

import (
	"io/fs"
	"path/filepath"
)

// CacheMetrics is a compact view of cache state for the telemetry surface.
type CacheMetrics struct {
	DiskBytes     uint64
	Conversations int
}

// GetCacheMetrics returns best-effort metrics about the cache: total
// on-disk size of the pebble directory and the number of conversation
// records (visible or not).
func GetCacheMetrics() CacheMetrics {
	var m CacheMetrics
	if db == nil || dbPath == "" {
		return m
	}
	var total uint64
	_ = filepath.WalkDir(dbPath, func(p string, d fs.DirEntry, err error) error {
		if err != nil || d.IsDir() {
			return nil
		}
		if fi, err := d.Info(); err == nil {
			total += uint64(fi.Size())
		}
		return nil
	})
	m.DiskBytes = total
	if keys, err := allConversationKeys(); err == nil {
		m.Conversations = len(keys)
	}
	return m
}
