// Package cache implements the gateway's content-addressed, on-disk
// response cache (C3). Keys are derived from the requested model,
// the messages array, and a fixed set of output-affecting "extra"
// request parameters; entries carry a cached_at timestamp and are
// opportunistically reaped on read once their TTL elapses.
package cache

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"os"
	"path/filepath"
	"sort"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/claw-router/claw-router/internal/config"
)

// recognizedExtraKeys are the only "extra" request fields that
// influence the cache key; anything else must not (spec.md §4.3).
var recognizedExtraKeys = []string{
	"temperature",
	"top_p",
	"max_tokens",
	"max_completion_tokens",
	"tools",
	"tool_choice",
	"stop",
	"response_format",
	"seed",
}

// Cache is the disk-backed response cache. It owns no in-memory
// entries beyond its configuration; the singleflight group only
// collapses concurrent identical-key lookups from this process, it is
// not cache storage itself.
type Cache struct {
	cfg config.CacheConfig
	sf  singleflight.Group
}

func New(cfg config.CacheConfig) *Cache {
	return &Cache{cfg: cfg}
}

// Key computes the lowercase-hex SHA-256 cache key for a request: the
// model id, the canonical JSON of messages, then each recognized extra
// key present in extras (sorted ascending) followed by its canonical
// JSON value. Parameters outside recognizedExtraKeys never affect the
// key.
func Key(model string, messages json.RawMessage, extras map[string]json.RawMessage) string {
	// canonical re-encodes raw JSON compactly with sorted object keys;
	// numbers keep their literal form. Unparseable input is hashed as-is.
	canonical := func(raw json.RawMessage) []byte {
		dec := json.NewDecoder(bytes.NewReader(raw))
		dec.UseNumber()
		var v any
		if err := dec.Decode(&v); err != nil {
			return raw
		}
		out, err := json.Marshal(v)
		if err != nil {
			return raw
		}
		return out
	}

	h := sha256.New()
	h.Write([]byte(model))
	h.Write(canonical(messages))

	present := make([]string, 0, len(recognizedExtraKeys))
	for _, k := range recognizedExtraKeys {
		if _, ok := extras[k]; ok {
			present = append(present, k)
		}
	}
	sort.Strings(present)
	for _, k := range present {
		h.Write([]byte(k))
		h.Write(canonical(extras[k]))
	}
	return hex.EncodeToString(h.Sum(nil))
}

// entryPath returns the on-disk location for a key: a 2-hex-char
// subdirectory (the full key if shorter) holding "<key>.json".
func (c *Cache) entryPath(key string) string {
	sub := key
	if len(key) > 2 {
		sub = key[:2]
	}
	return filepath.Join(c.cfg.CacheDir, sub, key+".json")
}

type entry struct {
	CachedAt     int64  `json:"cached_at"`
	Model        string `json:"model"`
	ResponseBody []byte `json:"response_body"`
}

// Get returns the cached response body for key if present and not
// expired. It never errors: any I/O or parse failure is treated as a
// miss. If the entry has expired, the file is removed opportunistically.
func (c *Cache) Get(key string) ([]byte, bool) {
	if !c.cfg.Enabled {
		return nil, false
	}
	path := c.entryPath(key)
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, false
	}
	var e entry
	if err := json.Unmarshal(data, &e); err != nil {
		return nil, false
	}
	age := time.Now().Unix() - e.CachedAt
	if age < 0 {
		age = 0
	}
	if age > c.cfg.TTLSeconds {
		_ = os.Remove(path)
		return nil, false
	}
	return e.ResponseBody, true
}

// Put writes a response body under key. A no-op when the cache is
// disabled; I/O failures are swallowed (the cache is advisory).
func (c *Cache) Put(key, model string, body []byte) {
	if !c.cfg.Enabled {
		return
	}
	path := c.entryPath(key)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return
	}
	e := entry{CachedAt: time.Now().Unix(), Model: model, ResponseBody: body}
	data, err := json.MarshalIndent(e, "", "  ")
	if err != nil {
		return
	}
	_ = os.WriteFile(path, data, 0o644)
}

// GetOrFetch collapses concurrent misses for the same key into a
// single fetch call, then fans the result out to every waiter and
// populates the cache. This is a strengthening, not a requirement:
// spec.md §5 explicitly allows two concurrent misses to both forward
// upstream and both write the file.
func (c *Cache) GetOrFetch(key, model string, fetch func() ([]byte, error)) ([]byte, bool, error) {
	if body, ok := c.Get(key); ok {
		return body, true, nil
	}
	v, err, _ := c.sf.Do(key, func() (interface{}, error) {
		body, ferr := fetch()
		if ferr != nil {
			return nil, ferr
		}
		c.Put(key, model, body)
		return body, nil
	})
	if err != nil {
		return nil, false, err
	}
	return v.([]byte), false, nil
}
