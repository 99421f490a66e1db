package scenario

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/rs/zerolog/log"
	"gopkg.in/yaml.v3"
)

// Store loads scenarios by id. Loading is the only blocking step before a projection.
type Store interface {
	Load(ctx context.Context, id string) (*Scenario, error)
}

// FileStore reads <dir>/<id>.yaml, <id>.yml or <id>.json
type FileStore struct {
	Dir string
}

// Load implements Store
func (f FileStore) Load(ctx context.Context, id string) (*Scenario, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	for _, ext := range []string{".yaml", ".yml", ".json"} {
		path := filepath.Join(f.Dir, id+ext)
		if _, err := os.Stat(path); err != nil {
			continue
		}
		s, err := LoadFile(path)
		if err != nil {
			return nil, err
		}
		return s, checkID(id, s)
	}
	return nil, fmt.Errorf("scenario %s not found in %s", id, f.Dir)
}

// checkID rejects a document stored under id that names another scenario
func checkID(id string, s *Scenario) error {
	if s.ID != id {
		return fmt.Errorf("%w: requested %q, loaded %q", ErrIDMismatch, id, s.ID)
	}
	return nil
}

// LoadFile decodes one scenario document. YAML is a superset of JSON so both parse.
func LoadFile(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read scenario file: %w", err)
	}
	var s Scenario
	if strings.HasSuffix(path, ".json") {
		err = json.Unmarshal(data, &s)
	} else {
		err = yaml.Unmarshal(data, &s)
	}
	if err != nil {
		return nil, fmt.Errorf("parse scenario file %s: %w", path, err)
	}
	return &s, nil
}

// MemoryStore serves scenarios held in memory, keyed by their id
type MemoryStore struct {
	mu        sync.RWMutex
	scenarios map[string]*Scenario
}

// NewMemoryStore creates a store preloaded with the given scenarios
func NewMemoryStore(scenarios ...*Scenario) *MemoryStore {
	m := &MemoryStore{scenarios: make(map[string]*Scenario)}
	for _, s := range scenarios {
		m.Put(s)
	}
	return m
}

// Put adds or replaces a scenario
func (m *MemoryStore) Put(s *Scenario) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.scenarios[s.ID] = s
}

// Load implements Store
func (m *MemoryStore) Load(_ context.Context, id string) (*Scenario, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.scenarios[id]
	if !ok {
		return nil, fmt.Errorf("scenario %s not found", id)
	}
	return s, nil
}

// RedisConfig configures the Redis scenario cache
type RedisConfig struct {
	Enabled  bool          `yaml:"enabled"`
	Addr     string        `yaml:"addr"`
	Password string        `yaml:"password"`
	DB       int           `yaml:"db"`
	Prefix   string        `yaml:"prefix"`
	TTL      time.Duration `yaml:"ttl"`
}

// DefaultRedisConfig returns the cache defaults
func DefaultRedisConfig() RedisConfig {
	return RedisConfig{
		Addr:   "localhost:6379",
		Prefix: "almrun:scenario:",
		TTL:    24 * time.Hour,
	}
}

// RedisStore caches decoded scenarios in Redis in front of a slower backing store
type RedisStore struct {
	client   *redis.Client
	prefix   string
	ttl      time.Duration
	fallback Store
}

// NewRedisStore connects to Redis and verifies the connection
func NewRedisStore(cfg RedisConfig, fallback Store) (*RedisStore, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:         cfg.Addr,
		Password:     cfg.Password,
		DB:           cfg.DB,
		PoolSize:     10,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := rdb.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("redis connection failed: %w", err)
	}

	return newRedisStore(rdb, cfg, fallback), nil
}

func newRedisStore(client *redis.Client, cfg RedisConfig, fallback Store) *RedisStore {
	return &RedisStore{client: client, prefix: cfg.Prefix, ttl: cfg.TTL, fallback: fallback}
}

// Key is the Redis key of a scenario
func (r *RedisStore) Key(id string) string { return r.prefix + id }

// Load implements Store: cache hit first, then the fallback, writing the result back
func (r *RedisStore) Load(ctx context.Context, id string) (*Scenario, error) {
	val, err := r.client.Get(ctx, r.Key(id)).Bytes()
	switch {
	case err == nil:
		var s Scenario
		if err := json.Unmarshal(val, &s); err != nil {
			return nil, fmt.Errorf("decode cached scenario %s: %w", id, err)
		}
		if err := checkID(id, &s); err != nil {
			return nil, err
		}
		log.Debug().Str("scenario", id).Msg("Scenario served from redis")
		return &s, nil
	case err != redis.Nil:
		return nil, fmt.Errorf("redis get: %w", err)
	}

	if r.fallback == nil {
		return nil, fmt.Errorf("scenario %s not cached", id)
	}
	s, err := r.fallback.Load(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := checkID(id, s); err != nil {
		return nil, err
	}
	if err := r.Save(ctx, s); err != nil {
		log.Warn().Err(err).Str("scenario", id).Msg("Failed to cache scenario")
	}
	return s, nil
}

// Save stores a scenario under its id
func (r *RedisStore) Save(ctx context.Context, s *Scenario) error {
	data, err := json.Marshal(s)
	if err != nil {
		return fmt.Errorf("encode scenario %s: %w", s.ID, err)
	}
	if err := r.client.Set(ctx, r.Key(s.ID), data, r.ttl).Err(); err != nil {
		return fmt.Errorf("redis set: %w", err)
	}
	return nil
}

// Delete evicts a cached scenario
func (r *RedisStore) Delete(ctx context.Context, id string) error {
	if err := r.client.Del(ctx, r.Key(id)).Err(); err != nil {
		return fmt.Errorf("redis delete: %w", err)
	}
	return nil
}

// Close releases the Redis connection pool
func (r *RedisStore) Close() error { return r.client.Close() }
