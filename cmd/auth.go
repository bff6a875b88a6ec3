package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/url"
	"time"

	"github.com/desertthunder/spindb/internal/server"
	"github.com/desertthunder/spindb/internal/shared"
	"github.com/urfave/cli/v3"
	"golang.org/x/oauth2"
)

// AuthLogin performs the OAuth2 authorization code flow for Spotify.
//
// Starts a local HTTP server on the redirect URI, opens the browser for user authorization, and
// stores the exchanged token.
func (r *Runner) AuthLogin(ctx context.Context, cmd *cli.Command) error {
	svc, err := r.oauthService()
	if err != nil {
		return err
	}

	callback, err := url.Parse(r.config.Credentials.Spotify.RedirectURI)
	if err != nil || callback.Host == "" {
		return fmt.Errorf("%w: redirect_uri %q", shared.ErrInvalidConfig, r.config.Credentials.Spotify.RedirectURI)
	}

	ln, err := net.Listen("tcp", callback.Host)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", callback.Host, err)
	}

	state := shared.GenerateID()
	token, err := r.doOAuth(ctx, ln, server.NewOAuthHandler(svc, state, callback.Path), svc.AuthURL(state), cmd.Duration("timeout"))
	if err != nil {
		return err
	}

	if err := r.tokenStore().Save(token); err != nil {
		return fmt.Errorf("failed to save token: %w", err)
	}

	r.writePlainln("%s", r.palette.OK("✓ Authorization successful"))
	r.writePlain("You can now use: spindb refresh\n")
	return nil
}

// doOAuth serves handler on ln until the callback arrives, ctx ends or timeout elapses.
func (r *Runner) doOAuth(ctx context.Context, ln net.Listener, handler *server.OAuthHandler, authURL string, timeout time.Duration) (*oauth2.Token, error) {
	router := server.NewBasicRouter()
	router.Use(server.RequestLogger(r.logger))
	router.Handler(handler)

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	srv := server.NewServer(ln.Addr().String(), router, r.logger)
	serverErrors := make(chan error, 1)
	go func() {
		r.logger.Infof("starting OAuth server at %v", ln.Addr())
		serverErrors <- srv.Serve(ctx, ln)
	}()

	r.writePlain("→ Opening browser for Spotify authorization...\n")
	if err := r.openBrowser(authURL); err != nil {
		r.logger.Warnf("failed to open browser automatically %v", err)
		r.writePlainln("%s", r.palette.Warn("⚠ Could not open browser automatically."))
		r.writePlain("Please open this URL in your browser:\n%s\n\n", authURL)
	}

	r.writePlain("→ Waiting for authorization (%s timeout)...\n", timeout)

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	var result server.OAuthResult
	select {
	case result = <-handler.Result():
	case err := <-serverErrors:
		if err == nil {
			err = ctx.Err()
		}
		return nil, fmt.Errorf("server error: %w", err)
	case <-timer.C:
		return nil, fmt.Errorf("%w after %s", shared.ErrTimeout, timeout)
	case <-ctx.Done():
		return nil, ctx.Err()
	}

	cancel()
	if err := <-serverErrors; err != nil {
		r.logger.Warn("error shutting down server", "error", err)
	}

	if result.Error() != nil {
		return nil, fmt.Errorf("authorization failed: %w", result.Error())
	}
	if result.Token == nil {
		return nil, fmt.Errorf("%w: no token received", shared.ErrAuthFailed)
	}

	return result.Token, nil
}

// AuthStatus reports whether a token is stored and when it expires.
func (r *Runner) AuthStatus(ctx context.Context, cmd *cli.Command) error {
	token, err := r.tokenStore().Load()
	if errors.Is(err, shared.ErrNotAuthenticated) {
		return r.writePlain("%s\nRun: spindb auth login\n", r.palette.Warn("✗ Not authenticated"))
	}
	if err != nil {
		return err
	}

	r.writePlain("%s\n", r.palette.OK("✓ Authenticated"))
	switch {
	case token.Expiry.IsZero():
		r.writePlain("Expires: never\n")
	case token.Expiry.Before(time.Now()):
		r.writePlain("Expired: %s", token.Expiry.Format(time.RFC3339))
		if token.RefreshToken != "" {
			r.writePlain(" (will refresh on next use)")
		}
		r.writePlain("\n")
	default:
		r.writePlain("Expires: %s\n", token.Expiry.Format(time.RFC3339))
	}
	return nil
}

// AuthLogout removes the stored token when the token store supports it.
func (r *Runner) AuthLogout(ctx context.Context, cmd *cli.Command) error {
	clearer, ok := r.tokenStore().(interface{ Clear() error })
	if !ok {
		return fmt.Errorf("%w: token store cannot be cleared", shared.ErrInvalidConfig)
	}

	if err := clearer.Clear(); err != nil {
		return fmt.Errorf("failed to remove token: %w", err)
	}
	return r.writePlain("✓ Token removed\n")
}
