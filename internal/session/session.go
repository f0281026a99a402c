// Package session ties browser sessions to view controllers. The cookie
// carries the session id and the last shown tab; controllers live in memory
// and are rebuilt from the cookie after eviction or restart.
package session

import (
	"net/http"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/securecookie"
	"github.com/gorilla/sessions"

	"feedesk/internal/cache"
	"feedesk/internal/log"
	"feedesk/internal/view"
)

// CookieName is the session cookie's name.
const CookieName = "feedesk_session"

const (
	keyID  = "sid"
	keyTab = "tab"
)

// Factory builds a fresh controller for a new session. r is the request that
// started it, so the factory can honour Accept-Language.
type Factory func(r *http.Request) *view.Controller

// Config holds session settings.
type Config struct {
	// Secret authenticates the cookie. Empty means a random per-process key,
	// which logs everyone out on restart.
	Secret      []byte
	TTL         time.Duration
	MaxSessions int
	Secure      bool
}

// Manager resolves requests to controllers.
type Manager struct {
	store       *sessions.CookieStore
	controllers *cache.LRUCache[*view.Controller]
	factory     Factory
	logger      *log.Logger

	created  int64
	restored int64
}

// NewManager creates a manager. Evicted controllers are dropped and logged.
func NewManager(cfg Config, factory Factory, logger *log.Logger) *Manager {
	if logger == nil {
		logger = log.Discard()
	}
	logger = logger.WithComponent(log.ComponentSession)

	secret := cfg.Secret
	if len(secret) == 0 {
		secret = securecookie.GenerateRandomKey(32)
		logger.Warn("SESSION_SECRET not set, using a random key; sessions end on restart")
	}
	if cfg.TTL <= 0 {
		cfg.TTL = 30 * time.Minute
	}

	store := sessions.NewCookieStore(secret)
	store.Options = &sessions.Options{
		Path:     "/",
		MaxAge:   int(cfg.TTL / time.Second),
		HttpOnly: true,
		Secure:   cfg.Secure,
		SameSite: http.SameSiteLaxMode,
	}

	m := &Manager{
		store:   store,
		factory: factory,
		logger:  logger,
	}
	m.controllers = cache.NewLRUCache[*view.Controller](cfg.MaxSessions, cfg.TTL,
		cache.WithEvictCallback[*view.Controller](func(id string, _ *view.Controller) {
			m.logger.Debug("Session controller evicted", log.FieldSessionID, id)
		}))
	return m
}

// Handle is one request's view of its session.
type Handle struct {
	Controller *view.Controller
	ID         string
	// Created is true when the request started a new controller.
	Created bool

	sess *sessions.Session
}

// SetTab records tab as the session's active tab. It is written by Save.
func (h *Handle) SetTab(tab string) {
	h.sess.Values[keyTab] = tab
}

// Save writes the session cookie, renewing its lifetime. Call it before
// writing the response body.
func (h *Handle) Save(w http.ResponseWriter, r *http.Request) error {
	return h.sess.Save(r, w)
}

// Open resolves r to its controller, creating the session when the request
// has none or its cookie does not verify.
func (m *Manager) Open(r *http.Request) *Handle {
	sess, err := m.store.Get(r, CookieName)
	if err != nil {
		// A tampered or stale-key cookie still yields a usable new session.
		m.logger.DebugContext(r.Context(), "Discarding unreadable session cookie",
			log.FieldError, err.Error())
	}

	id, _ := sess.Values[keyID].(string)
	if id == "" {
		id = uuid.NewString()
		sess.Values[keyID] = id
	}

	if c, ok := m.controllers.Get(id); ok {
		return &Handle{Controller: c, ID: id, sess: sess}
	}

	c := m.factory(r)
	if tab, ok := sess.Values[keyTab].(string); ok && c.HasTab(tab) {
		c.ShowTab(tab)
		atomic.AddInt64(&m.restored, 1)
	}
	m.controllers.Set(id, c)
	atomic.AddInt64(&m.created, 1)
	m.logger.InfoContext(r.Context(), "Session controller created",
		log.FieldSessionID, id,
		log.FieldLocale, c.Snapshot().Locale)

	return &Handle{Controller: c, ID: id, Created: true, sess: sess}
}

// Forget drops the controller for id.
func (m *Manager) Forget(id string) {
	m.controllers.Delete(id)
}

// Cleaner exposes the controller cache for periodic expiry.
func (m *Manager) Cleaner() cache.Cleaner {
	return m.controllers
}

// Stats describes the registry.
type Stats struct {
	Active    int
	Created   int64
	Restored  int64
	Evictions int64
}

// Stats returns registry counters.
func (m *Manager) Stats() Stats {
	return Stats{
		Active:    m.controllers.Size(),
		Created:   atomic.LoadInt64(&m.created),
		Restored:  atomic.LoadInt64(&m.restored),
		Evictions: m.controllers.Evictions(),
	}
}

// Each calls fn for every live controller. Used to aggregate metrics.
func (m *Manager) Each(fn func(id string, c *view.Controller)) {
	m.controllers.Range(fn)
}
