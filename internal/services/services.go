package services

import (
	"context"
	"iter"

	"github.com/desertthunder/spindb/internal/models"
	"golang.org/x/oauth2"
)

// PlaylistSource is a paginated provider of playlists and their tracks.
type PlaylistSource interface {
	// Name returns the name of the source (e.g., "Spotify").
	Name() string

	// Pages walks the source lazily, one page of playlists per iteration.
	//
	// Every call starts a fresh walk from the first page, and the walk ends when the source reports
	// no further pages. Tracks are fetched only for playlists whose name include admits (nil admits
	// all); other playlists are yielded with no tracks. An error is yielded once and ends the walk.
	Pages(ctx context.Context, include func(name string) bool) iter.Seq2[[]models.RawPlaylist, error]
}

// OAuthService is a source provider that authorizes users with the OAuth2 authorization code flow.
type OAuthService interface {
	// Name returns the name of the service.
	Name() string

	// AuthURL returns the provider's consent page URL carrying state.
	AuthURL(state string) string

	// Exchange trades an authorization code for a token.
	Exchange(ctx context.Context, code string) (*oauth2.Token, error)

	// Source returns a [PlaylistSource] authorized with token.
	Source(ctx context.Context, token *oauth2.Token) PlaylistSource
}

// TokenStore persists the OAuth token between the dashboard callback and later refreshes.
type TokenStore interface {
	Load() (*oauth2.Token, error)
	Save(token *oauth2.Token) error
}
