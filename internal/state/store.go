// Package state holds the gateway's process-wide mutable state: the
// live Config, a bounded request-log ring, and the session table. Each
// is guarded by its own sync.RWMutex so that a request never blocks on
// unrelated state, and no lock is ever held across an upstream HTTP
// call (see spec.md §5).
package state

import (
	"encoding/json"
	"os"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/claw-router/claw-router/internal/config"
)

// MaxLogs bounds the request-log ring; oldest entries are evicted on
// overflow (spec.md §4.2).
const MaxLogs = 1000

// LogStatus is the terminal (or pending) disposition of one request.
type LogStatus string

const (
	LogPending    LogStatus = "pending"
	LogSuccess    LogStatus = "success"
	LogError      LogStatus = "error"
	LogNoProvider LogStatus = "no_provider"
)

// CacheStatus records how the cache participated in a request.
type CacheStatus string

const (
	CacheHit  CacheStatus = "hit"
	CacheMiss CacheStatus = "miss"
	CacheSkip CacheStatus = "skip"
	CacheNone CacheStatus = "none"
)

// RequestLog is one entry in the bounded log ring. Each field is
// mutated at most once along the request's lifetime; it is appended to
// the ring only at terminal state (spec.md §3).
type RequestLog struct {
	ID               string      `json:"id"`
	Timestamp        time.Time   `json:"timestamp"`
	RequestedModel   string      `json:"requested_model"`
	EffectiveModel   string      `json:"effective_model,omitempty"`
	Provider         string      `json:"provider,omitempty"`
	Status           LogStatus   `json:"status"`
	StatusCode       int         `json:"status_code,omitempty"`
	DurationMS       int64       `json:"duration_ms"`
	InputTokens      *int64      `json:"input_tokens,omitempty"`
	OutputTokens     *int64      `json:"output_tokens,omitempty"`
	EstimatedCost    *float64    `json:"estimated_cost,omitempty"`
	ComplexityTier   string      `json:"complexity_tier,omitempty"`
	ComplexityScore  *float64    `json:"complexity_score,omitempty"`
	ErrorMessage     string      `json:"error_message,omitempty"`
	ProvidersTried   []string    `json:"providers_tried"`
	CacheStatus      CacheStatus `json:"cache_status"`
	AgenticMode      bool        `json:"agentic_mode"`
	SessionID        string      `json:"session_id,omitempty"`
	SessionPinned    bool        `json:"session_pinned"`
}

// NewRequestLog starts a pending log entry for a just-received request.
func NewRequestLog(requestedModel string) *RequestLog {
	return &RequestLog{
		ID:             uuid.NewString(),
		Timestamp:      time.Now(),
		RequestedModel: requestedModel,
		Status:         LogPending,
		ProvidersTried: []string{},
		CacheStatus:    CacheNone,
	}
}

// SessionEntry pins a session id to a (provider, model) pair.
type SessionEntry struct {
	ProviderID string
	ModelID    string
	LastActive time.Time
}

// Store is the gateway's process-wide state container.
type Store struct {
	configPath string
	logger     *zap.Logger

	configMu sync.RWMutex
	cfg      config.Config

	logsMu sync.RWMutex
	logs   []RequestLog

	sessionsMu sync.RWMutex
	sessions   map[string]SessionEntry

	subsMu sync.Mutex
	subs   map[chan RequestLog]struct{}
}

// New loads Config from configPath if it exists and parses; otherwise
// (missing file, or parse failure) it silently falls back to
// config.DefaultConfig(), matching the original state.rs discipline.
func New(configPath string, logger *zap.Logger) *Store {
	s := &Store{
		configPath: configPath,
		logger:     logger,
		sessions:   make(map[string]SessionEntry),
		subs:       make(map[chan RequestLog]struct{}),
	}
	s.cfg = loadOrDefault(configPath, logger)
	return s
}

func loadOrDefault(path string, logger *zap.Logger) config.Config {
	data, err := os.ReadFile(path)
	if err != nil {
		return config.DefaultConfig()
	}
	var cfg config.Config
	if err := json.Unmarshal(data, &cfg); err != nil {
		logger.Warn("config file failed to parse, using defaults", zap.String("path", path), zap.Error(err))
		return config.DefaultConfig()
	}
	return cfg
}

// GetConfig returns a snapshot of the live Config.
func (s *Store) GetConfig() config.Config {
	s.configMu.RLock()
	defer s.configMu.RUnlock()
	return s.cfg
}

// UpdateConfig replaces the live Config and persists it to disk as
// pretty-printed JSON.
func (s *Store) UpdateConfig(cfg config.Config) error {
	s.configMu.Lock()
	s.cfg = cfg
	s.configMu.Unlock()
	return s.save(cfg)
}

func (s *Store) save(cfg config.Config) error {
	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(s.configPath, data, 0o644)
}

// AddLog appends a terminal log entry, evicting the oldest entry if
// the ring is at capacity, then broadcasts it to every live subscriber
// (see Subscribe) for the /api/logs/stream websocket feed.
func (s *Store) AddLog(entry RequestLog) {
	s.logsMu.Lock()
	s.logs = append(s.logs, entry)
	if len(s.logs) > MaxLogs {
		s.logs = s.logs[len(s.logs)-MaxLogs:]
	}
	s.logsMu.Unlock()

	s.subsMu.Lock()
	for ch := range s.subs {
		select {
		case ch <- entry:
		default:
			// Slow subscriber; drop rather than block AddLog's caller.
		}
	}
	s.subsMu.Unlock()
}

// Subscribe registers a new listener for appended logs. The returned
// unsubscribe func must be called when the caller is done to release
// the channel.
func (s *Store) Subscribe() (<-chan RequestLog, func()) {
	ch := make(chan RequestLog, 16)
	s.subsMu.Lock()
	s.subs[ch] = struct{}{}
	s.subsMu.Unlock()

	unsubscribe := func() {
		s.subsMu.Lock()
		if _, ok := s.subs[ch]; ok {
			delete(s.subs, ch)
			close(ch)
		}
		s.subsMu.Unlock()
	}
	return ch, unsubscribe
}

// GetLogs returns a copy of the log ring, oldest first.
func (s *Store) GetLogs() []RequestLog {
	s.logsMu.RLock()
	defer s.logsMu.RUnlock()
	out := make([]RequestLog, len(s.logs))
	copy(out, s.logs)
	return out
}

// GetSession returns the session entry for sid if it exists and has not
// exceeded ttl since LastActive.
func (s *Store) GetSession(sid string, ttl time.Duration) (SessionEntry, bool) {
	s.sessionsMu.RLock()
	defer s.sessionsMu.RUnlock()
	e, ok := s.sessions[sid]
	if !ok {
		return SessionEntry{}, false
	}
	if time.Since(e.LastActive) > ttl {
		return SessionEntry{}, false
	}
	return e, true
}

// SetSession inserts or overwrites the pin for sid.
func (s *Store) SetSession(sid, providerID, modelID string) {
	s.sessionsMu.Lock()
	defer s.sessionsMu.Unlock()
	s.sessions[sid] = SessionEntry{ProviderID: providerID, ModelID: modelID, LastActive: time.Now()}
}

// TouchSession refreshes LastActive for an existing session without
// changing its pin.
func (s *Store) TouchSession(sid string) {
	s.sessionsMu.Lock()
	defer s.sessionsMu.Unlock()
	if e, ok := s.sessions[sid]; ok {
		e.LastActive = time.Now()
		s.sessions[sid] = e
	}
}

// CleanupSessions removes entries whose LastActive exceeds ttl. Not
// invoked automatically; callers may schedule it periodically.
func (s *Store) CleanupSessions(ttl time.Duration) int {
	s.sessionsMu.Lock()
	defer s.sessionsMu.Unlock()
	removed := 0
	now := time.Now()
	for sid, e := range s.sessions {
		if now.Sub(e.LastActive) > ttl {
			delete(s.sessions, sid)
			removed++
		}
	}
	return removed
}

// SessionCount returns the number of live (not-yet-TTL-reaped) session
// entries currently stored, irrespective of any particular ttl.
func (s *Store) SessionCount() int {
	s.sessionsMu.RLock()
	defer s.sessionsMu.RUnlock()
	return len(s.sessions)
}
