// Package persistence implements the coordination engine's persistence
// engine (component C2): a full-snapshot Load at boot, and a fingerprinted
// snapshot-diff-replace Flush that re-derives the entire Postgres dataset
// from the in-memory store only when something actually changed.
package persistence

import (
	"context"
	"crypto/sha256"
	"database/sql"
	"encoding/json"
	"fmt"
	"hash/fnv"
	"sort"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
	_ "github.com/lib/pq"

	"github.com/cuemby/dmwcoord/pkg/coreerr"
	"github.com/cuemby/dmwcoord/pkg/log"
	"github.com/cuemby/dmwcoord/pkg/metrics"
	"github.com/cuemby/dmwcoord/pkg/store"
)

// Engine owns the Postgres connection pool and the fingerprint that gates
// redundant flushes.
type Engine struct {
	db                   *sql.DB
	mu                   sync.Mutex
	lastFlushFingerprint string
	advisoryLockNS       string
}

// Config configures connection pool tuning, mirroring the defaults the
// engine is expected to run with in production.
type Config struct {
	DSN                   string
	MaxOpenConns          int
	MaxIdleConns          int
	ConnMaxLifetime       time.Duration
	AdvisoryLockNamespace string
	ConnectRetries        int
}

// Open opens the pool, retrying with exponential backoff until Postgres is
// reachable or the retry budget is exhausted.
func Open(ctx context.Context, cfg Config) (*Engine, error) {
	db, err := sql.Open("postgres", cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("persistence: open: %w", err)
	}

	maxOpen := cfg.MaxOpenConns
	if maxOpen == 0 {
		maxOpen = 10
	}
	maxIdle := cfg.MaxIdleConns
	if maxIdle == 0 {
		maxIdle = 5
	}
	lifetime := cfg.ConnMaxLifetime
	if lifetime == 0 {
		lifetime = 5 * time.Minute
	}
	db.SetMaxOpenConns(maxOpen)
	db.SetMaxIdleConns(maxIdle)
	db.SetConnMaxLifetime(lifetime)

	bo := backoff.NewExponentialBackOff()
	bo.MaxElapsedTime = 0
	attempts := 0
	err = backoff.Retry(func() error {
		attempts++
		if attempts > cfg.ConnectRetries && cfg.ConnectRetries > 0 {
			return backoff.Permanent(fmt.Errorf("persistence: exceeded %d connect retries", cfg.ConnectRetries))
		}
		pingErr := db.PingContext(ctx)
		if pingErr != nil {
			log.Logger.Warn().Int("attempt", attempts).Err(pingErr).Msg("waiting for postgres")
		}
		return pingErr
	}, backoff.WithContext(bo, ctx))
	if err != nil {
		return nil, err
	}

	return &Engine{db: db, advisoryLockNS: cfg.AdvisoryLockNamespace}, nil
}

// Close releases the connection pool.
func (e *Engine) Close() error {
	return e.db.Close()
}

// DB exposes the underlying connection pool for callers that need to run
// schema-alignment queries (the schema guard, component C3) against the
// same pool the persistence engine uses.
func (e *Engine) DB() *sql.DB {
	return e.db
}

// AcquireAdvisoryLock attempts a single-instance advisory lock keyed by a
// fixed namespace, so a rolling deploy never runs two flushers concurrently.
func (e *Engine) AcquireAdvisoryLock(ctx context.Context) (bool, error) {
	key := namespaceKey(e.advisoryLockNS)
	var acquired bool
	err := e.db.QueryRowContext(ctx, `SELECT pg_try_advisory_lock($1)`, key).Scan(&acquired)
	if err != nil {
		return false, fmt.Errorf("persistence: advisory lock: %w", err)
	}
	return acquired, nil
}

func namespaceKey(namespace string) int64 {
	if namespace == "" {
		namespace = "dmw-coordinator"
	}
	h := fnv.New64a()
	_, _ = h.Write([]byte(namespace))
	return int64(h.Sum64())
}

// insertOrder is the table order used for Flush's INSERT phase: every table
// comes after the tables its rows refer to.
var insertOrder = []string{
	"guild_settings", "dungeons", "raids", "raid_options", "raid_votes",
	"raid_posted_slots", "raid_templates", "raid_attendance", "user_levels",
	"debug_mirror_cache",
}

// deleteOrder mirrors the original persistence engine's FK-safe delete
// ordering, which is not simply insertOrder reversed: user_levels and
// debug_mirror_cache are dropped after raids even though they're inserted last.
var deleteOrder = []string{
	"raid_votes", "raid_options", "raid_posted_slots", "raid_attendance",
	"raid_templates", "raids", "user_levels", "debug_mirror_cache",
	"dungeons", "guild_settings",
}

// Load replaces the store's contents with a full read of every table, then
// stamps the fingerprint so the first Flush after boot is a no-op unless
// something changed in-memory since.
func (e *Engine) Load(ctx context.Context, s *store.Store) error {
	timer := metrics.NewTimer()
	defer timer.ObserveDuration(metrics.PersistenceLoadDuration)

	s.Reset()

	if err := e.loadDungeons(ctx, s); err != nil {
		return err
	}
	if err := e.loadGuildSettings(ctx, s); err != nil {
		return err
	}
	if err := e.loadRaids(ctx, s); err != nil {
		return err
	}
	if err := e.loadRaidOptions(ctx, s); err != nil {
		return err
	}
	if err := e.loadRaidVotes(ctx, s); err != nil {
		return err
	}
	if err := e.loadPostedSlots(ctx, s); err != nil {
		return err
	}
	if err := e.loadTemplates(ctx, s); err != nil {
		return err
	}
	if err := e.loadAttendance(ctx, s); err != nil {
		return err
	}
	if err := e.loadUserLevels(ctx, s); err != nil {
		return err
	}
	if err := e.loadDebugCache(ctx, s); err != nil {
		return err
	}

	s.RecalculateCounters()

	fp, err := e.SnapshotFingerprint(s)
	if err != nil {
		return err
	}
	e.mu.Lock()
	e.lastFlushFingerprint = fp
	e.mu.Unlock()
	return nil
}

// Flush computes the current fingerprint and, if it differs from the last
// one recorded, replaces every table's contents inside one transaction.
//
// dirtyTables, if non-empty, narrows the snapshot-replace to just those
// table names (still in FK-safe order); every other table is left
// untouched. An empty dirtyTables replaces every table, as before — the
// fingerprint check still prevents a no-op round trip either way.
func (e *Engine) Flush(ctx context.Context, s *store.Store, dirtyTables ...string) error {
	timer := metrics.NewTimer()
	defer timer.ObserveDuration(metrics.PersistenceFlushDuration)

	fp, err := e.SnapshotFingerprint(s)
	if err != nil {
		metrics.PersistenceFlushesTotal.WithLabelValues("error").Inc()
		return err
	}

	e.mu.Lock()
	unchanged := fp == e.lastFlushFingerprint
	e.mu.Unlock()
	if unchanged {
		metrics.PersistenceFlushSkippedTotal.Inc()
		return nil
	}

	tables := dirtyTableSet(dirtyTables)

	tx, err := e.db.BeginTx(ctx, nil)
	if err != nil {
		metrics.PersistenceFlushesTotal.WithLabelValues("error").Inc()
		return fmt.Errorf("persistence: begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	for _, table := range deleteOrder {
		if !tables[table] {
			continue
		}
		if _, err := tx.ExecContext(ctx, fmt.Sprintf("DELETE FROM %s", table)); err != nil {
			metrics.PersistenceFlushesTotal.WithLabelValues("error").Inc()
			return fmt.Errorf("persistence: delete %s: %w", table, err)
		}
	}

	for _, table := range insertOrder {
		if !tables[table] {
			continue
		}
		if err := e.insertTable(ctx, tx, table, s); err != nil {
			metrics.PersistenceFlushesTotal.WithLabelValues("error").Inc()
			return err
		}
	}

	if err := tx.Commit(); err != nil {
		metrics.PersistenceFlushesTotal.WithLabelValues("error").Inc()
		return fmt.Errorf("persistence: commit: %w", err)
	}

	e.mu.Lock()
	e.lastFlushFingerprint = fp
	e.mu.Unlock()
	metrics.PersistenceFlushesTotal.WithLabelValues("success").Inc()
	return nil
}

// RetryConfig tunes FlushWithRetry's backoff. Zero values fall back to the
// spec's defaults: 3 attempts, 500ms base delay, doubling each attempt.
type RetryConfig struct {
	MaxAttempts int
	BaseDelay   time.Duration
}

// FlushWithRetry calls Flush, retrying up to MaxAttempts times with
// exponential delay base*2^(attempt-1) on failure. On exhaustion it returns
// the last error wrapped as coreerr.ErrPersistence; the in-memory store is
// never reset, so the next successful flush still reconciles everything.
func (e *Engine) FlushWithRetry(ctx context.Context, s *store.Store, cfg RetryConfig, dirtyTables ...string) error {
	maxAttempts := cfg.MaxAttempts
	if maxAttempts <= 0 {
		maxAttempts = 3
	}
	base := cfg.BaseDelay
	if base <= 0 {
		base = 500 * time.Millisecond
	}

	var lastErr error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		lastErr = e.Flush(ctx, s, dirtyTables...)
		if lastErr == nil {
			return nil
		}
		log.Logger.Warn().Int("attempt", attempt).Err(lastErr).Msg("persistence flush failed, retrying")
		if attempt == maxAttempts {
			break
		}
		delay := base * time.Duration(1<<uint(attempt-1))
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return fmt.Errorf("persistence: flush retry cancelled: %w", ctx.Err())
		}
	}
	return fmt.Errorf("persistence: flush exhausted %d attempts: %w: %v", maxAttempts, coreerr.ErrPersistence, lastErr)
}

// dirtyTableSet returns the set of tables a Flush call should touch. No
// hints means every table is a candidate, matching the pre-hint behaviour.
func dirtyTableSet(dirtyTables []string) map[string]bool {
	set := make(map[string]bool, len(insertOrder))
	if len(dirtyTables) == 0 {
		for _, t := range insertOrder {
			set[t] = true
		}
		return set
	}
	for _, t := range dirtyTables {
		set[t] = true
	}
	return set
}

// SnapshotFingerprint computes the SHA-256 digest of a canonical,
// order-independent JSON encoding of every table, used to detect whether a
// Flush would actually change anything.
func (e *Engine) SnapshotFingerprint(s *store.Store) (string, error) {
	snapshot := map[string][]string{
		"dungeons":           rowSignatures(dungeonRows(s)),
		"guild_settings":     rowSignatures(guildSettingsRows(s)),
		"raids":              rowSignatures(raidRows(s)),
		"raid_options":       rowSignatures(raidOptionRows(s)),
		"raid_votes":         rowSignatures(raidVoteRows(s)),
		"raid_posted_slots":  rowSignatures(postedSlotRows(s)),
		"raid_templates":     rowSignatures(templateRows(s)),
		"raid_attendance":    rowSignatures(attendanceRows(s)),
		"user_levels":        rowSignatures(userLevelRows(s)),
		"debug_mirror_cache": rowSignatures(debugCacheRows(s)),
	}

	payload, err := json.Marshal(snapshot)
	if err != nil {
		return "", fmt.Errorf("persistence: fingerprint marshal: %w", err)
	}
	sum := sha256.Sum256(payload)
	return fmt.Sprintf("%x", sum), nil
}

// rowSignatures converts each row to a map with sorted keys, serialises it
// to compact JSON, then sorts the resulting strings so row order in the
// source map never affects the fingerprint.
func rowSignatures(rows []map[string]any) []string {
	sigs := make([]string, 0, len(rows))
	for _, row := range rows {
		normalized := make(map[string]any, len(row))
		for k, v := range row {
			normalized[k] = normalizeFingerprintValue(v)
		}
		b, err := canonicalJSON(normalized)
		if err != nil {
			continue
		}
		sigs = append(sigs, string(b))
	}
	sort.Strings(sigs)
	return sigs
}

func normalizeFingerprintValue(v any) any {
	if t, ok := v.(time.Time); ok {
		return t.UTC().Format(time.RFC3339Nano)
	}
	return v
}

// canonicalJSON marshals a map with its keys sorted, matching the original
// engine's compact sorted-key JSON encoding.
func canonicalJSON(m map[string]any) ([]byte, error) {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	ordered := make([]byte, 0, 256)
	ordered = append(ordered, '{')
	for i, k := range keys {
		if i > 0 {
			ordered = append(ordered, ',')
		}
		keyJSON, err := json.Marshal(k)
		if err != nil {
			return nil, err
		}
		valJSON, err := json.Marshal(m[k])
		if err != nil {
			return nil, err
		}
		ordered = append(ordered, keyJSON...)
		ordered = append(ordered, ':')
		ordered = append(ordered, valJSON...)
	}
	ordered = append(ordered, '}')
	return ordered, nil
}
