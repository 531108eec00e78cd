// Package ratelimit enforces per-second request rates by subscription tier,
// counting in Redis when configured and in process memory otherwise.
package ratelimit

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	log "github.com/sirupsen/logrus"
)

// redisPause is how long the manager counts locally after a Redis failure.
const redisPause = 30 * time.Second

// RedisClientFactory constructs a Redis client for the given options.
type RedisClientFactory func(options *redis.Options) *redis.Client

// Result describes the outcome of one check. Limit is zero when the request
// was not limited.
type Result struct {
	Allowed   bool
	Limit     int
	Remaining int
	Reset     time.Time
}

// Manager resolves the caller's rate and counts the request against it.
type Manager struct {
	settings SettingsProvider
	now      func() time.Time
	local    *MemoryCounter
	dial     RedisClientFactory

	mu          sync.Mutex
	remote      *RedisCounter
	remoteCfg   RedisSettings
	pausedUntil time.Time
}

// NewManager constructs a Manager. Nil arguments fall back to the settings
// snapshot, time.Now and redis.NewClient.
func NewManager(provider SettingsProvider, nowFn func() time.Time, dial RedisClientFactory) *Manager {
	if provider == nil {
		provider = LoadSettingsConfig
	}
	if nowFn == nil {
		nowFn = time.Now
	}
	if dial == nil {
		dial = redis.NewClient
	}
	return &Manager{settings: provider, now: nowFn, local: NewMemoryCounter(), dial: dial}
}

// Check counts one request from caller and reports whether it fits the rate.
func (m *Manager) Check(ctx context.Context, caller Caller, clientIP string) (Result, error) {
	if m == nil {
		return Result{Allowed: true}, nil
	}
	cfg := m.settings()
	decision := Resolve(cfg, caller, clientIP)
	key := decision.Key()
	if key == "" {
		return Result{Allowed: true}, nil
	}

	now := m.now()
	window := now.Unix()
	hits, errIncr := m.counter(ctx, cfg.Redis, now).Incr(ctx, key, window)
	if errIncr != nil {
		m.pause(errIncr, now)
		hits, errIncr = m.local.Incr(ctx, key, window)
		if errIncr != nil {
			return Result{}, errIncr
		}
	}

	remaining := decision.Rate - int(hits)
	if remaining < 0 {
		remaining = 0
	}
	return Result{
		Allowed:   hits <= int64(decision.Rate),
		Limit:     decision.Rate,
		Remaining: remaining,
		Reset:     time.Unix(window+1, 0).UTC(),
	}, nil
}

// Close releases the Redis client, if one was opened.
func (m *Manager) Close() {
	if m == nil {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.dropRemoteLocked()
}

// counter returns the Redis counter when it is enabled and reachable, else
// the in-memory one.
func (m *Manager) counter(ctx context.Context, cfg RedisSettings, now time.Time) Counter {
	if !cfg.Enabled {
		return m.local
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if now.Before(m.pausedUntil) {
		return m.local
	}
	if m.remote != nil && m.remoteCfg == cfg {
		return m.remote
	}
	m.dropRemoteLocked()
	if cfg.Addr == "" {
		m.pauseLocked(errors.New("rate limit redis: missing address"), now)
		return m.local
	}

	client := m.dial(&redis.Options{Addr: cfg.Addr, Password: cfg.Password, DB: cfg.DB})
	ctxPing, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	if errPing := client.Ping(ctxPing).Err(); errPing != nil {
		_ = client.Close()
		m.pauseLocked(errPing, now)
		return m.local
	}
	m.remote = NewRedisCounter(client, cfg.Prefix)
	m.remoteCfg = cfg
	return m.remote
}

func (m *Manager) pause(err error, now time.Time) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.pauseLocked(err, now)
}

func (m *Manager) pauseLocked(err error, now time.Time) {
	if now.Before(m.pausedUntil) {
		return
	}
	m.pausedUntil = now.Add(redisPause)
	log.WithError(err).Warn("rate limit: redis unavailable, counting in memory")
}

func (m *Manager) dropRemoteLocked() {
	if m.remote == nil {
		return
	}
	if errClose := m.remote.Close(); errClose != nil {
		log.WithError(errClose).Debug("rate limit: close redis client")
	}
	m.remote = nil
	m.remoteCfg = RedisSettings{}
}
