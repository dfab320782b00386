package server

import (
	"context"
	"fmt"
	"net/http"
	"sync"
)

// Exchanger trades an authorization code for the account's email. [identity.OAuth] implements it.
type Exchanger interface {
	Exchange(ctx context.Context, code string) (string, error)
}

// OAuthResult contains the result of an OAuth authorization flow.
type OAuthResult struct {
	Email string
	err   error
}

func (o *OAuthResult) Error() error {
	return o.err
}

// OAuthHandler serves one authorization code callback for the terminal sign-in flow.
//
// Only the first callback is processed; later hits get a 400.
type OAuthHandler struct {
	exchanger   Exchanger
	state       string
	path        string
	resultChan  chan OAuthResult
	once        sync.Once
	callbackHit bool
	mu          sync.Mutex
}

// NewOAuthHandler creates a callback handler at path. state should come from [shared.GenerateState].
func NewOAuthHandler(exchanger Exchanger, state, path string) *OAuthHandler {
	if path == "" {
		path = "/callback"
	}
	return &OAuthHandler{
		exchanger:  exchanger,
		state:      state,
		path:       path,
		resultChan: make(chan OAuthResult, 1),
	}
}

// Routes returns the HTTP routes this handler serves.
func (h *OAuthHandler) Routes() []string {
	return []string{h.path}
}

// ServeHTTP validates the state, exchanges the code and sends the email through the result channel.
func (h *OAuthHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.mu.Lock()
	if h.callbackHit {
		h.mu.Unlock()
		http.Error(w, "Callback already processed", http.StatusBadRequest)
		return
	}
	h.callbackHit = true
	h.mu.Unlock()

	email, err := exchangeCallback(r, h.state, h.exchanger)
	if err != nil {
		h.Send(OAuthResult{err: err})
		http.Error(w, "Authorization failed", http.StatusBadRequest)
		return
	}

	h.Send(OAuthResult{Email: email})

	w.Header().Set("Content-Type", "text/html")
	w.WriteHeader(http.StatusOK)
	fmt.Fprint(w, `<!DOCTYPE html>
<html>
<head><title>Signed In</title></head>
<body style="font-family: sans-serif; text-align: center; padding-top: 4rem;">
    <h1>Signed in</h1>
    <p>You can close this window and return to the terminal.</p>
</body>
</html>
`)
}

// Send sends the OAuth result through the channel (only once).
func (h *OAuthHandler) Send(result OAuthResult) {
	h.once.Do(func() {
		h.resultChan <- result
		close(h.resultChan)
	})
}

// Result returns the result channel for receiving OAuth flow completion.
//
// Channel will receive exactly one result and then be closed.
func (h *OAuthHandler) Result() <-chan OAuthResult {
	return h.resultChan
}

// exchangeCallback checks the callback query against state and exchanges its code.
func exchangeCallback(r *http.Request, state string, ex Exchanger) (string, error) {
	q := r.URL.Query()
	if state == "" || q.Get("state") != state {
		return "", fmt.Errorf("invalid state parameter")
	}

	code := q.Get("code")
	if code == "" {
		return "", fmt.Errorf("authorization failed: %s - %s", q.Get("error"), q.Get("error_description"))
	}

	email, err := ex.Exchange(r.Context(), code)
	if err != nil {
		return "", fmt.Errorf("token exchange failed: %w", err)
	}
	return email, nil
}
