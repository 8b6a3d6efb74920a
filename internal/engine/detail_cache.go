// Syncline - Multi-Tenant Booking Sync and Data Health Monitoring
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/syncline

package engine

import (
	"errors"
	"fmt"
	"time"

	badger "github.com/dgraph-io/badger/v4"
	"github.com/goccy/go-json"

	"github.com/tomtom215/syncline/internal/config"
	"github.com/tomtom215/syncline/internal/logging"
	"github.com/tomtom215/syncline/internal/remote"
)

// DetailCache keeps the last known-good invitee enrichment per event in a
// Badger store. When a detail fetch is throttled mid-run, the reconciler
// falls back to the cached value instead of degrading an already-enriched
// record to null fields.
type DetailCache struct {
	db  *badger.DB
	ttl time.Duration
}

// NewDetailCache opens the cache at cfg.Path. An empty path opens an
// in-memory store, used by tests and by deployments that accept losing the
// fallback across restarts.
func NewDetailCache(cfg *config.CacheConfig) (*DetailCache, error) {
	opts := badger.DefaultOptions(cfg.Path).WithLogger(nil)
	if cfg.Path == "" {
		opts = opts.WithInMemory(true)
	}

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("failed to open detail cache: %w", err)
	}

	ttl := cfg.TTL
	if ttl <= 0 {
		ttl = 30 * 24 * time.Hour
	}
	return &DetailCache{db: db, ttl: ttl}, nil
}

// Put stores the enrichment for one event, replacing any previous value.
func (c *DetailCache) Put(tenantID, eventID string, detail *remote.InviteeDetail) error {
	value, err := json.Marshal(detail)
	if err != nil {
		return fmt.Errorf("failed to encode detail: %w", err)
	}

	err = c.db.Update(func(txn *badger.Txn) error {
		entry := badger.NewEntry(cacheKey(tenantID, eventID), value).WithTTL(c.ttl)
		return txn.SetEntry(entry)
	})
	if err != nil {
		return fmt.Errorf("failed to cache detail for %s: %w", eventID, err)
	}
	return nil
}

// Get returns the cached enrichment for one event, or false if absent or
// expired. Decode failures are treated as a miss; the entry will be
// overwritten by the next successful fetch.
func (c *DetailCache) Get(tenantID, eventID string) (*remote.InviteeDetail, bool) {
	var detail remote.InviteeDetail
	err := c.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(cacheKey(tenantID, eventID))
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			return json.Unmarshal(val, &detail)
		})
	})
	if err != nil {
		if !errors.Is(err, badger.ErrKeyNotFound) {
			logging.Warn().Err(err).Str("event_id", eventID).Msg("Detail cache read failed")
		}
		return nil, false
	}
	return &detail, true
}

// Close releases the underlying store.
func (c *DetailCache) Close() error {
	return c.db.Close()
}

func cacheKey(tenantID, eventID string) []byte {
	return []byte("detail/" + tenantID + "/" + eventID)
}
