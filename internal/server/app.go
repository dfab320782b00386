package server

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/desertthunder/bowlstone/internal/access"
	"github.com/desertthunder/bowlstone/internal/dnd"
	"github.com/desertthunder/bowlstone/internal/identity"
	"github.com/desertthunder/bowlstone/internal/metrics"
	"github.com/desertthunder/bowlstone/internal/models"
	"github.com/desertthunder/bowlstone/internal/onboarding"
	"github.com/desertthunder/bowlstone/internal/payment"
	"github.com/desertthunder/bowlstone/internal/persist"
	"github.com/desertthunder/bowlstone/internal/reflection"
	"github.com/desertthunder/bowlstone/internal/session"
	"github.com/desertthunder/bowlstone/internal/shared"
	"github.com/desertthunder/bowlstone/internal/storage"
	"github.com/desertthunder/bowlstone/internal/tasks"
)

// SessionCookie identifies one browser tab's session.
const SessionCookie = "bowl_session"

// keyOAuthState holds the pending web sign-in state in a tab's session store.
const keyOAuthState = "oauthState"

// Options wires an [App]. Durable and Identity are required.
type Options struct {
	Durable     storage.Store
	Saver       dnd.Saver
	Identity    *identity.Local
	OAuth       []*identity.OAuth
	Gateway     payment.Gateway
	Reflections *reflection.Cache
	Metrics     *metrics.Metrics
	Gatherer    prometheus.Gatherer
	Logger      *log.Logger
	OwnerEmail  string
	NewID       tasks.IDFunc
}

// App is the JSON API over one durable store. Every tab gets its own hub, board and onboarding gate.
type App struct {
	durable     storage.Store
	adapter     *persist.Adapter
	saver       dnd.Saver
	identity    *identity.Local
	oauth       map[string]*identity.OAuth
	gateway     payment.Gateway
	reflections *reflection.Cache
	metrics     *metrics.Metrics
	gatherer    prometheus.Gatherer
	logger      *log.Logger
	owner       string
	newID       tasks.IDFunc
	sessions    *storage.Sessions

	mu   sync.Mutex
	tabs map[string]*tab
}

// tab is the server-side state of one browser tab.
type tab struct {
	hub      *session.Hub
	ctrl     *dnd.Controller
	gate     *onboarding.Gate
	store    *storage.Memory
	unlocker *payment.Unlocker
	opened   bool
	unbind   []func()
}

// NewApp creates the API.
func NewApp(opts Options) *App {
	logger := opts.Logger
	if logger == nil {
		logger = shared.NewLogger(nil)
	}
	saver := opts.Saver
	adapter := persist.New(opts.Durable, logger)
	if saver == nil {
		saver = syncSaver{adapter: adapter, logger: logger, metrics: opts.Metrics}
	}
	reflections := opts.Reflections
	if reflections == nil {
		reflections = reflection.NewCache(reflection.Builtin, time.Second, logger)
	}

	oauth := make(map[string]*identity.OAuth, len(opts.OAuth))
	for _, o := range opts.OAuth {
		if o != nil {
			oauth[o.Name()] = o
		}
	}

	return &App{
		durable:     opts.Durable,
		adapter:     adapter,
		saver:       saver,
		identity:    opts.Identity,
		oauth:       oauth,
		gateway:     opts.Gateway,
		reflections: reflections,
		metrics:     opts.Metrics,
		gatherer:    opts.Gatherer,
		logger:      logger,
		owner:       opts.OwnerEmail,
		newID:       opts.NewID,
		sessions:    storage.NewSessions(),
		tabs:        make(map[string]*tab),
	}
}

// syncSaver writes inline. Used when no background saver is configured.
//
// A failed write is logged and counted. The in-memory board stays authoritative.
type syncSaver struct {
	adapter *persist.Adapter
	logger  *log.Logger
	metrics *metrics.Metrics
}

func (s syncSaver) Save(b models.Board, tier access.Tier) {
	if err := s.adapter.Save(context.Background(), b, tier); err != nil {
		s.logger.Warn("failed to save board", "tier", tier, "stones", len(b.Stones), "error", err)
		s.metrics.ObserveSaveFailure(err)
	}
}

// Handler returns the routed API with logging and instrumentation.
func (a *App) Handler() http.Handler {
	r := NewBasicRouter()
	r.Use(Logging(a.logger), Instrument(a.metrics))
	a.Register(r)
	return r
}

// Register adds every route to r.
func (a *App) Register(r *BasicRouter) {
	r.HandleFunc(http.MethodGet, "/health", a.health)
	if a.gatherer != nil {
		r.Handle(http.MethodGet, "/metrics", promhttp.HandlerFor(a.gatherer, promhttp.HandlerOpts{}))
	}

	r.HandleFunc(http.MethodGet, "/api/state", a.state)
	r.HandleFunc(http.MethodPost, "/api/tasks", a.addTask)
	r.HandleFunc(http.MethodPost, "/api/drop", a.drop)
	r.HandleFunc(http.MethodPost, "/api/swap", a.swap)
	r.HandleFunc(http.MethodPost, "/api/complete", a.complete)
	r.HandleFunc(http.MethodPost, "/api/onboarding/confirm", a.confirmHelp)
	r.HandleFunc(http.MethodPost, "/api/onboarding/close", a.closeHelp)
	r.HandleFunc(http.MethodGet, "/api/reflection", a.reflection)

	r.HandleFunc(http.MethodPost, "/api/auth/signin", a.signIn)
	r.HandleFunc(http.MethodPost, "/api/auth/signup", a.signUp)
	r.HandleFunc(http.MethodPost, "/api/auth/signout", a.signOut)
	r.HandleFunc(http.MethodGet, "/auth/{provider}", a.oauthStart)
	r.HandleFunc(http.MethodGet, "/auth/{provider}/callback", a.oauthCallback)

	r.HandleFunc(http.MethodPost, "/api/upgrade/order", a.createOrder)
	r.HandleFunc(http.MethodPost, "/api/upgrade/capture", a.captureOrder)
}

// tabFor returns the tab named by the session cookie, creating both when missing.
//
// A new tab resolves its tier from the guest flag in the request, the stored pro flag and the signed-in identity.
func (a *App) tabFor(w http.ResponseWriter, r *http.Request) (*tab, string) {
	id := ""
	if c, err := r.Cookie(SessionCookie); err == nil {
		id = c.Value
	}
	if id == "" {
		id = shared.GenerateID()
		http.SetCookie(w, &http.Cookie{
			Name:     SessionCookie,
			Value:    id,
			Path:     "/",
			HttpOnly: true,
			SameSite: http.SameSiteLaxMode,
		})
	}

	store, _ := a.sessions.Get(id)

	a.mu.Lock()
	defer a.mu.Unlock()
	if t, ok := a.tabs[id]; ok {
		return t, id
	}

	ctx := r.Context()
	hub := session.NewHub(a.owner, access.Signals{
		GuestFlag: access.ParseGuestFlag(r.URL.Query()),
		ProFlag:   a.adapter.ProFlag(ctx),
	})

	t := &tab{hub: hub, store: store}
	if a.identity != nil {
		t.unbind = append(t.unbind, identity.Bind(a.identity, hub))
	}

	sc := hub.Current()
	t.ctrl = dnd.New(a.adapter.Load(ctx, sc.Tier), sc, dnd.Options{
		Saver:   a.saver,
		Loader:  a.adapter,
		Logger:  shared.WithLogger(a.logger, "session", id[:min(8, len(id))]),
		Metrics: a.metrics,
		NewID:   a.newID,
	})
	t.unbind = append(t.unbind, hub.Subscribe(t.ctrl.SetContext))
	t.gate = onboarding.NewGate(a.durable, store, a.logger)
	t.unlocker = payment.NewUnlocker(a.gateway, a.adapter, hub, a.logger, a.metrics)

	a.tabs[id] = t
	a.logger.Info("session started", "tier", sc.Tier)
	return t, id
}

// Sweep forgets tabs idle for longer than ttl and returns how many were removed.
func (a *App) Sweep(ttl time.Duration) int {
	removed := a.sessions.Sweep(ttl)

	a.mu.Lock()
	defer a.mu.Unlock()
	for _, id := range removed {
		if t, ok := a.tabs[id]; ok {
			for _, fn := range t.unbind {
				fn()
			}
			delete(a.tabs, id)
		}
	}
	return len(removed)
}

// Sessions returns the number of live tabs.
func (a *App) Sessions() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return len(a.tabs)
}
