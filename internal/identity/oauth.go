package identity

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/facebook"
	"golang.org/x/oauth2/google"

	"github.com/desertthunder/bowlstone/internal/models"
	"github.com/desertthunder/bowlstone/internal/shared"
)

const (
	googleUserInfoURL   = "https://openidconnect.googleapis.com/v1/userinfo"
	facebookUserInfoURL = "https://graph.facebook.com/me?fields=email"
)

// OAuth runs the authorization code flow for one provider and resolves the account's email.
type OAuth struct {
	name        string
	config      *oauth2.Config
	userInfoURL string
	httpClient  *http.Client
}

// NewGoogle returns the Google sign-in flow, or [ErrNotConfigured] without a client id.
func NewGoogle(cfg shared.OAuthConfig) (*OAuth, error) {
	return newOAuth(models.ProviderGoogle, cfg, google.Endpoint, []string{"openid", "email"}, googleUserInfoURL)
}

// NewFacebook returns the Facebook sign-in flow, or [ErrNotConfigured] without a client id.
func NewFacebook(cfg shared.OAuthConfig) (*OAuth, error) {
	return newOAuth(models.ProviderFacebook, cfg, facebook.Endpoint, []string{"email"}, facebookUserInfoURL)
}

func newOAuth(name string, cfg shared.OAuthConfig, endpoint oauth2.Endpoint, scopes []string, userInfoURL string) (*OAuth, error) {
	if !cfg.Enabled() {
		return nil, fmt.Errorf("%w: %s", ErrNotConfigured, name)
	}
	return &OAuth{
		name: name,
		config: &oauth2.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			RedirectURL:  cfg.RedirectURI,
			Endpoint:     endpoint,
			Scopes:       scopes,
		},
		userInfoURL: userInfoURL,
	}, nil
}

// Name is the provider recorded on accounts created through this flow.
func (o *OAuth) Name() string {
	return o.name
}

// Config exposes the underlying client configuration.
func (o *OAuth) Config() *oauth2.Config {
	return o.config
}

// AuthCodeURL returns the consent page URL carrying state.
func (o *OAuth) AuthCodeURL(state string) string {
	return o.config.AuthCodeURL(state)
}

// Exchange trades an authorization code for a token and returns the account's email.
func (o *OAuth) Exchange(ctx context.Context, code string) (string, error) {
	if o.httpClient != nil {
		ctx = context.WithValue(ctx, oauth2.HTTPClient, o.httpClient)
	}

	token, err := o.config.Exchange(ctx, code)
	if err != nil {
		return "", fmt.Errorf("%w: token exchange failed: %v", shared.ErrAuthFailed, err)
	}

	resp, err := o.config.Client(ctx, token).Get(o.userInfoURL)
	if err != nil {
		return "", fmt.Errorf("%w: userinfo request failed: %v", shared.ErrAPIRequest, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("%w: failed to read userinfo: %v", shared.ErrAPIRequest, err)
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("%w: userinfo status %d: %s", shared.ErrAPIRequest, resp.StatusCode, body)
	}

	var info struct {
		Email string `json:"email"`
	}
	if err := json.Unmarshal(body, &info); err != nil {
		return "", fmt.Errorf("%w: failed to decode userinfo: %v", shared.ErrAPIRequest, err)
	}
	if info.Email == "" {
		return "", fmt.Errorf("%w: %s did not share an email address", shared.ErrAuthFailed, o.name)
	}

	return models.NormalizeEmail(info.Email), nil
}
