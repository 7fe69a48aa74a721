package flows

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"diag-storefront/internal/checkout"
	"diag-storefront/internal/session"
)

// Flow is one user's checkout with the session it acts as.
type Flow struct {
	UserID     string
	Session    *session.MemoryStore
	Controller *checkout.Controller
	Feed       *checkout.Feed
	CreatedAt  time.Time
	LastSeen   time.Time
}

// Registry keeps one flow per user. Flows are created on first use and hold
// the most recent bearer token seen for that user. Without signature
// verification a token only proves itself, so each distinct token gets its
// own flow.
type Registry struct {
	deps   checkout.Deps
	cfg    checkout.Config
	parser session.Parser
	log    *zap.Logger
	now    func() time.Time

	mu    sync.RWMutex
	flows map[string]*Flow
}

func NewRegistry(deps checkout.Deps, cfg checkout.Config, parser session.Parser) *Registry {
	log := deps.Log
	if log == nil {
		log = zap.NewNop()
	}
	if !parser.Verifies() {
		log.Warn("jwt secret not configured, checkout flows are bound to the exact bearer token")
	}
	return &Registry{
		deps:   deps,
		cfg:    cfg,
		parser: parser,
		log:    log,
		now:    time.Now,
		flows:  make(map[string]*Flow),
	}
}

// Acquire returns the caller's flow, creating it if needed, and refreshes
// its session with token.
func (r *Registry) Acquire(token string) (*Flow, error) {
	uid, err := r.parser.UserID(token)
	if err != nil {
		return nil, err
	}
	now := r.now()
	key := r.key(uid, token)

	r.mu.Lock()
	defer r.mu.Unlock()
	f, ok := r.flows[key]
	if !ok {
		store := session.NewMemoryStore(r.parser)
		feed := checkout.NewFeed(50, r.log.With(zap.String("user_id", uid)))
		deps := r.deps
		deps.Sessions = store
		deps.Notifier = feed
		deps.Log = r.log.With(zap.String("user_id", uid))
		f = &Flow{
			UserID:     uid,
			Session:    store,
			Controller: checkout.New(deps, r.cfg),
			Feed:       feed,
			CreatedAt:  now,
		}
		r.flows[key] = f
		r.log.Info("checkout flow created", zap.String("user_id", uid))
	}
	f.Session.Set(token, uid)
	f.LastSeen = now
	return f, nil
}

func (r *Registry) key(uid, token string) string {
	if r.parser.Verifies() {
		return uid
	}
	sum := sha256.Sum256([]byte(strings.TrimSpace(token)))
	return uid + "/" + hex.EncodeToString(sum[:12])
}

func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.flows)
}

// Evict drops flows idle for longer than ttl. A flow waiting on the payment
// widget is kept regardless.
func (r *Registry) Evict(ttl time.Duration) int {
	cutoff := r.now().Add(-ttl)
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for key, f := range r.flows {
		if f.LastSeen.After(cutoff) || f.Controller.Snapshot().Loading.BuyNow {
			continue
		}
		f.Controller.Close()
		f.Session.Clear()
		delete(r.flows, key)
		n++
	}
	if n > 0 {
		r.log.Info("evicted idle checkout flows", zap.Int("count", n))
	}
	return n
}

// Close stops every flow's pending timers.
func (r *Registry) Close() {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, f := range r.flows {
		f.Controller.Close()
	}
}
