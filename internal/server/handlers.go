package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/desertthunder/bowlstone/internal/access"
	"github.com/desertthunder/bowlstone/internal/dnd"
	"github.com/desertthunder/bowlstone/internal/identity"
	"github.com/desertthunder/bowlstone/internal/models"
	"github.com/desertthunder/bowlstone/internal/payment"
	"github.com/desertthunder/bowlstone/internal/session"
	"github.com/desertthunder/bowlstone/internal/shared"
)

// State is the board as one tab sees it.
type State struct {
	Stones       []models.Task   `json:"stones"`
	Bowl         *models.Task    `json:"bowl"`
	Session      session.Context `json:"session"`
	Capacity     *int            `json:"capacity,omitempty"`
	LimitReached bool            `json:"limit_reached"`
	SlotDisabled bool            `json:"slot_disabled"`
	HelpOpen     bool            `json:"help_open"`
}

// ActionResponse is returned by every board action.
type ActionResponse struct {
	Changed bool           `json:"changed"`
	Notice  *shared.Notice `json:"notice,omitempty"`
	State   State          `json:"state"`
}

// ErrorResponse carries a notice for a failed request.
type ErrorResponse struct {
	Notice *shared.Notice `json:"notice"`
}

func (t *tab) snapshot() State {
	b := t.ctrl.Board()
	sc := t.ctrl.Session()
	st := State{
		Stones:       b.Stones,
		Bowl:         b.Bowl,
		Session:      sc,
		LimitReached: t.ctrl.LimitReached(),
		SlotDisabled: t.ctrl.SlotDisabled(),
		HelpOpen:     t.gate.Model().Open,
	}
	if st.Stones == nil {
		st.Stones = []models.Task{}
	}
	if limit, bounded := sc.Tier.Capacity(); bounded {
		st.Capacity = &limit
	}
	return st
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeNotice(w http.ResponseWriter, status int, n *shared.Notice) {
	writeJSON(w, status, ErrorResponse{Notice: n})
}

// decode reads a JSON body into v, answering 400 itself on failure.
func decode(w http.ResponseWriter, r *http.Request, v any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, 1<<16)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeNotice(w, http.StatusBadRequest, shared.NewNotice("Invalid Request", "The request body could not be read."))
		return false
	}
	return true
}

func (a *App) health(w http.ResponseWriter, r *http.Request) {
	status, code := "ok", http.StatusOK
	if h, ok := a.durable.(interface{ Health(ctx context.Context) error }); ok {
		if err := h.Health(r.Context()); err != nil {
			a.logger.Warn("storage health check failed", "error", err)
			status, code = "degraded", http.StatusServiceUnavailable
		}
	}
	writeJSON(w, code, map[string]any{"status": status, "sessions": a.Sessions()})
}

// state returns the tab's board. The first call for a tab applies the onboarding gate, and every call
// re-applies the guest flag from the query and picks up a pro unlock made in another tab.
func (a *App) state(w http.ResponseWriter, r *http.Request) {
	t, _ := a.tabFor(w, r)
	ctx := r.Context()

	if q := r.URL.Query(); q.Has(access.GuestParam) {
		if flag := access.ParseGuestFlag(q); flag != t.hub.Current().GuestFlag {
			t.hub.SetGuest(flag)
		}
	}
	if !t.hub.Current().ProFlag && a.adapter.ProFlag(ctx) {
		t.hub.SetPro(true)
	}

	a.mu.Lock()
	first := !t.opened
	t.opened = true
	a.mu.Unlock()
	if first {
		t.gate.Open(ctx, t.hub.Current().Tier)
	}

	writeJSON(w, http.StatusOK, t.snapshot())
}

func (a *App) respond(w http.ResponseWriter, t *tab, out dnd.Outcome) {
	status := http.StatusOK
	if out.Notice != nil {
		status = http.StatusConflict
	}
	writeJSON(w, status, ActionResponse{Changed: out.Changed, Notice: out.Notice, State: t.snapshot()})
}

func (a *App) addTask(w http.ResponseWriter, r *http.Request) {
	t, _ := a.tabFor(w, r)
	var body struct {
		Text string `json:"text"`
	}
	if !decode(w, r, &body) {
		return
	}
	a.respond(w, t, t.ctrl.Add(body.Text))
}

func (a *App) drop(w http.ResponseWriter, r *http.Request) {
	t, _ := a.tabFor(w, r)
	var g dnd.Gesture
	if !decode(w, r, &g) {
		return
	}
	a.respond(w, t, t.ctrl.Drop(g))
}

func (a *App) swap(w http.ResponseWriter, r *http.Request) {
	t, _ := a.tabFor(w, r)
	var body struct {
		TaskID string `json:"task_id"`
	}
	if !decode(w, r, &body) {
		return
	}
	a.respond(w, t, t.ctrl.Swap(body.TaskID))
}

func (a *App) complete(w http.ResponseWriter, r *http.Request) {
	t, _ := a.tabFor(w, r)
	a.respond(w, t, t.ctrl.Complete())
}

func (a *App) confirmHelp(w http.ResponseWriter, r *http.Request) {
	t, _ := a.tabFor(w, r)
	t.gate.Confirm(r.Context(), t.hub.Current().Tier)
	writeJSON(w, http.StatusOK, t.snapshot())
}

func (a *App) closeHelp(w http.ResponseWriter, r *http.Request) {
	t, _ := a.tabFor(w, r)
	t.gate.Close()
	writeJSON(w, http.StatusOK, t.snapshot())
}

func (a *App) reflection(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, a.reflections.Get(r.Context()))
}

type credentials struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (a *App) identityReady(w http.ResponseWriter) bool {
	if a.identity == nil {
		writeNotice(w, http.StatusNotFound, identity.Notice(identity.ErrNotConfigured))
		return false
	}
	return true
}

func authStatus(err error) int {
	switch {
	case errors.Is(err, identity.ErrInvalidCredential), errors.Is(err, shared.ErrNotAuthenticated):
		return http.StatusUnauthorized
	case errors.Is(err, identity.ErrEmailInUse):
		return http.StatusConflict
	case errors.Is(err, identity.ErrWeakPassword), errors.Is(err, identity.ErrInvalidEmail):
		return http.StatusBadRequest
	case errors.Is(err, identity.ErrNotConfigured):
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

func (a *App) signIn(w http.ResponseWriter, r *http.Request) {
	t, _ := a.tabFor(w, r)
	if !a.identityReady(w) {
		return
	}
	var body credentials
	if !decode(w, r, &body) {
		return
	}
	if _, err := a.identity.SignIn(r.Context(), body.Email, body.Password); err != nil {
		writeNotice(w, authStatus(err), identity.Notice(err))
		return
	}
	writeJSON(w, http.StatusOK, t.snapshot())
}

func (a *App) signUp(w http.ResponseWriter, r *http.Request) {
	t, _ := a.tabFor(w, r)
	if !a.identityReady(w) {
		return
	}
	var body credentials
	if !decode(w, r, &body) {
		return
	}
	if _, err := a.identity.SignUp(r.Context(), body.Email, body.Password); err != nil {
		writeNotice(w, authStatus(err), identity.Notice(err))
		return
	}
	writeJSON(w, http.StatusOK, t.snapshot())
}

func (a *App) signOut(w http.ResponseWriter, r *http.Request) {
	t, _ := a.tabFor(w, r)
	if !a.identityReady(w) {
		return
	}
	if err := a.identity.SignOut(r.Context()); err != nil {
		writeNotice(w, authStatus(err), identity.Notice(err))
		return
	}
	writeJSON(w, http.StatusOK, t.snapshot())
}

func (a *App) oauthStart(w http.ResponseWriter, r *http.Request) {
	t, _ := a.tabFor(w, r)
	o, ok := a.oauth[r.PathValue("provider")]
	if !ok {
		writeNotice(w, http.StatusNotFound, identity.Notice(identity.ErrNotConfigured))
		return
	}

	state, err := shared.GenerateState()
	if err != nil {
		writeNotice(w, http.StatusInternalServerError, identity.Notice(err))
		return
	}
	if err := t.store.Set(r.Context(), keyOAuthState, state); err != nil {
		writeNotice(w, http.StatusInternalServerError, identity.Notice(err))
		return
	}
	http.Redirect(w, r, o.AuthCodeURL(state), http.StatusFound)
}

func (a *App) oauthCallback(w http.ResponseWriter, r *http.Request) {
	t, _ := a.tabFor(w, r)
	ctx := r.Context()
	o, ok := a.oauth[r.PathValue("provider")]
	if !ok {
		writeNotice(w, http.StatusNotFound, identity.Notice(identity.ErrNotConfigured))
		return
	}

	state, _, _ := t.store.Get(ctx, keyOAuthState)
	_ = t.store.Remove(ctx, keyOAuthState)

	email, err := exchangeCallback(r, state, o)
	if err != nil {
		a.logger.Warn("oauth callback failed", "provider", o.Name(), "error", err)
		writeNotice(w, http.StatusBadRequest, shared.NewNotice("Sign In Failed", "The sign-in could not be completed."))
		return
	}
	if !a.identityReady(w) {
		return
	}
	if _, err := a.identity.SignInExternal(ctx, email, o.Name()); err != nil {
		writeNotice(w, authStatus(err), identity.Notice(err))
		return
	}
	http.Redirect(w, r, "/", http.StatusFound)
}

func paymentStatus(err error) int {
	switch {
	case errors.Is(err, payment.ErrNotConfigured):
		return http.StatusServiceUnavailable
	case errors.Is(err, shared.ErrMissingArgument):
		return http.StatusBadRequest
	case errors.Is(err, shared.ErrAPIRequest):
		return http.StatusBadGateway
	default:
		return http.StatusPaymentRequired
	}
}

func (a *App) createOrder(w http.ResponseWriter, r *http.Request) {
	t, _ := a.tabFor(w, r)
	order, err := t.unlocker.CreateOrder(r.Context())
	if err != nil {
		writeNotice(w, paymentStatus(err), payment.Notice(err))
		return
	}
	writeJSON(w, http.StatusOK, order)
}

func (a *App) captureOrder(w http.ResponseWriter, r *http.Request) {
	t, _ := a.tabFor(w, r)
	var body struct {
		OrderID string `json:"order_id"`
	}
	if !decode(w, r, &body) {
		return
	}
	if err := t.unlocker.Unlock(r.Context(), body.OrderID); err != nil {
		writeNotice(w, paymentStatus(err), payment.Notice(err))
		return
	}
	writeJSON(w, http.StatusOK, t.snapshot())
}
