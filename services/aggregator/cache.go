package aggregator

import (
	"crypto/sha1"
	"database/sql"
	"embed"
	"encoding/hex"
	"fmt"
	"log"
	"path/filepath"
	"strings"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/pressly/goose/v3"
)

// Cache is the result store the aggregator reads and writes. Implementations
// must be safe for concurrent use.
type Cache interface {
	Get(key string) ([]byte, bool)
	Set(key string, value []byte, ttl time.Duration)
	Clear()
}

// cacheKey derives a stable key from its parts.
func cacheKey(parts ...string) string {
	h := sha1.Sum([]byte(strings.Join(parts, "|")))
	return hex.EncodeToString(h[:])
}

// memoryCache is the default in-process store.
type memoryCache struct {
	mu      sync.RWMutex
	entries map[string]memoryEntry
}

type memoryEntry struct {
	value   []byte
	expires time.Time
}

func NewMemoryCache() Cache {
	return &memoryCache{entries: make(map[string]memoryEntry)}
}

func (c *memoryCache) Get(key string) ([]byte, bool) {
	c.mu.RLock()
	entry, ok := c.entries[key]
	c.mu.RUnlock()
	if !ok || time.Now().After(entry.expires) {
		return nil, false
	}
	return entry.value, true
}

func (c *memoryCache) Set(key string, value []byte, ttl time.Duration) {
	if ttl <= 0 {
		return
	}
	c.mu.Lock()
	c.entries[key] = memoryEntry{value: value, expires: time.Now().Add(ttl)}
	// Opportunistic sweep so long-running processes do not accumulate
	// expired entries between restarts.
	if len(c.entries) > 1024 {
		now := time.Now()
		for k, e := range c.entries {
			if now.After(e.expires) {
				delete(c.entries, k)
			}
		}
	}
	c.mu.Unlock()
}

func (c *memoryCache) Clear() {
	c.mu.Lock()
	c.entries = make(map[string]memoryEntry)
	c.mu.Unlock()
}

//go:embed migrations/*.sql
var migrationsFS embed.FS

// sqliteCache persists results across restarts so a cold start does not
// hammer the upstream sources.
type sqliteCache struct {
	db *sql.DB
}

func NewSQLiteCache(dir string) (Cache, error) {
	dsn := filepath.Join(dir, "results.db") + "?_journal_mode=WAL&_busy_timeout=5000"
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("open cache db: %w", err)
	}
	db.SetMaxOpenConns(1)

	goose.SetBaseFS(migrationsFS)
	goose.SetLogger(goose.NopLogger())
	if err := goose.SetDialect("sqlite3"); err != nil {
		db.Close()
		return nil, err
	}
	if err := goose.Up(db, "migrations"); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate cache db: %w", err)
	}
	return &sqliteCache{db: db}, nil
}

func (c *sqliteCache) Get(key string) ([]byte, bool) {
	var value []byte
	var expires int64
	err := c.db.QueryRow(
		`SELECT value, expires_at FROM result_cache WHERE key = ?`, key,
	).Scan(&value, &expires)
	if err != nil {
		return nil, false
	}
	if time.Now().Unix() > expires {
		c.db.Exec(`DELETE FROM result_cache WHERE key = ?`, key)
		return nil, false
	}
	return value, true
}

func (c *sqliteCache) Set(key string, value []byte, ttl time.Duration) {
	if ttl <= 0 {
		return
	}
	_, err := c.db.Exec(
		`INSERT INTO result_cache (key, value, expires_at) VALUES (?, ?, ?)
		 ON CONFLICT(key) DO UPDATE SET value = excluded.value, expires_at = excluded.expires_at`,
		key, value, time.Now().Add(ttl).Unix(),
	)
	if err != nil {
		log.Printf("[aggregator] cache write failed: %v", err)
	}
}

func (c *sqliteCache) Clear() {
	if _, err := c.db.Exec(`DELETE FROM result_cache`); err != nil {
		log.Printf("[aggregator] cache clear failed: %v", err)
	}
}
