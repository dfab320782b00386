package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/urfave/cli/v3"

	"github.com/desertthunder/bowlstone/internal/access"
	"github.com/desertthunder/bowlstone/internal/identity"
	"github.com/desertthunder/bowlstone/internal/server"
	"github.com/desertthunder/bowlstone/internal/shared"
)

const oauthTimeout = 2 * time.Minute

// AccountSignUp creates a local account and signs it in.
func (r *Runner) AccountSignUp(ctx context.Context, cmd *cli.Command) error {
	e, err := r.open(ctx)
	if err != nil {
		return err
	}

	id, err := e.identity.SignUp(ctx, cmd.String("email"), cmd.String("password"))
	if err != nil {
		return fmt.Errorf("%w: %s", err, identity.Notice(err).Description)
	}
	return r.signedIn(ctx, e, id)
}

// AccountSignIn signs in with a password, or through an OAuth provider when --provider is set.
func (r *Runner) AccountSignIn(ctx context.Context, cmd *cli.Command) error {
	e, err := r.open(ctx)
	if err != nil {
		return err
	}

	if name := cmd.String("provider"); name != "" {
		provider, err := r.oauthProvider(name)
		if err != nil {
			return err
		}

		email, err := r.doOAuth(ctx, provider)
		if err != nil {
			return err
		}

		id, err := e.identity.SignInExternal(ctx, email, provider.Name())
		if err != nil {
			return fmt.Errorf("%w: %s", err, identity.Notice(err).Description)
		}
		return r.signedIn(ctx, e, id)
	}

	email, password := cmd.String("email"), cmd.String("password")
	if email == "" || password == "" {
		return fmt.Errorf("%w: --email and --password, or --provider", shared.ErrMissingArgument)
	}

	id, err := e.identity.SignIn(ctx, email, password)
	if err != nil {
		return fmt.Errorf("%w: %s", err, identity.Notice(err).Description)
	}
	return r.signedIn(ctx, e, id)
}

// AccountSignOut forgets the signed-in account.
func (r *Runner) AccountSignOut(ctx context.Context, cmd *cli.Command) error {
	e, err := r.open(ctx)
	if err != nil {
		return err
	}

	if err := e.identity.SignOut(ctx); errors.Is(err, shared.ErrNotAuthenticated) {
		return r.writePlain("Not signed in.\n")
	} else if err != nil {
		return err
	}
	return r.writePlain("✓ Signed out\n")
}

// AccountWhoAmI prints the signed-in account and the tier it resolves to.
func (r *Runner) AccountWhoAmI(ctx context.Context, cmd *cli.Command) error {
	e, err := r.open(ctx)
	if err != nil {
		return err
	}

	id := e.identity.Current()
	pro := e.adapter.ProFlag(ctx)
	tier := access.Resolve(access.Signals{Identity: id, ProFlag: pro}, r.config.Owner.Email)

	if id == nil {
		r.writePlain("Not signed in (%s, local mode)\n", tier)
	} else {
		r.writePlain("Signed in as %s via %s (%s)\n", id.Email, id.Provider, tier)
	}
	if pro {
		r.writePlain("Pro upgrade: unlocked\n")
	}
	return nil
}

func (r *Runner) signedIn(ctx context.Context, e *env, id *access.Identity) error {
	tier := access.Resolve(access.Signals{Identity: id, ProFlag: e.adapter.ProFlag(ctx)}, r.config.Owner.Email)
	r.logger.Info("signed in", "provider", id.Provider, "tier", tier)
	return r.writePlain("✓ Signed in as %s (%s)\n", id.Email, tier)
}

// oauthProvider returns the configured provider named name.
func (r *Runner) oauthProvider(name string) (*identity.OAuth, error) {
	switch name {
	case "google":
		return identity.NewGoogle(r.config.Credentials.Google)
	case "facebook":
		return identity.NewFacebook(r.config.Credentials.Facebook)
	default:
		return nil, fmt.Errorf("%w: unknown provider %q", shared.ErrInvalidArgument, name)
	}
}

// doOAuth runs the authorization code flow against a one-shot local callback server and returns the account email.
//
// The callback listens on the host and path of the provider's redirect URI.
func (r *Runner) doOAuth(ctx context.Context, provider *identity.OAuth) (string, error) {
	state, err := shared.GenerateState()
	if err != nil {
		return "", fmt.Errorf("failed to generate state token: %w", err)
	}

	serverAddr, path := r.config.Server.Addr(), ""
	if u, err := url.Parse(provider.Config().RedirectURL); err == nil {
		if u.Host != "" {
			serverAddr = u.Host
		}
		path = u.Path
	}

	authURL := provider.AuthCodeURL(state)
	oauthHandler := server.NewOAuthHandler(provider, state, path)
	router := server.NewBasicRouter()
	router.Handler(oauthHandler)

	httpServer := &http.Server{
		Addr:              serverAddr,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
	}

	serverErrors := make(chan error, 1)
	go func() {
		r.logger.Infof("starting OAuth callback server for %s at %v", provider.Name(), serverAddr)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			serverErrors <- err
		}
	}()

	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			r.logger.Warn("error shutting down server", "error", err)
		}
	}()

	r.writePlain("→ Opening browser to sign in with %s...\n", provider.Name())
	if err := shared.OpenBrowser(authURL); err != nil {
		r.logger.Warnf("failed to open browser automatically %v", err)
		r.writePlainln("⚠ Could not open browser automatically.")
		r.writePlain("Please open this URL in your browser:\n%s\n\n", authURL)
	}

	r.writePlain("→ Waiting for authorization (2 minute timeout)...\n")

	timeout := time.NewTimer(oauthTimeout)
	defer timeout.Stop()

	var result server.OAuthResult
	select {
	case result = <-oauthHandler.Result():
	case err := <-serverErrors:
		return "", fmt.Errorf("server error: %w", err)
	case <-timeout.C:
		return "", fmt.Errorf("%w: authorization timed out after 2 minutes", shared.ErrTimeout)
	case <-ctx.Done():
		return "", ctx.Err()
	}

	if result.Error() != nil {
		return "", fmt.Errorf("%w: %v", shared.ErrAuthFailed, result.Error())
	}
	return result.Email, nil
}
