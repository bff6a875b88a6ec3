// Spotify implementation of [OAuthService] and [PlaylistSource]
//
// API access goes through github.com/zmb3/spotify/v2; authorization uses a plain [oauth2.Config]
// against the Spotify accounts endpoints so refreshed tokens can be persisted.
package services

import (
	"context"
	"errors"
	"fmt"
	"iter"
	"sync"

	"github.com/desertthunder/spindb/internal/models"
	"github.com/desertthunder/spindb/internal/shared"
	"github.com/zmb3/spotify/v2"
	spotifyauth "github.com/zmb3/spotify/v2/auth"
	"golang.org/x/oauth2"
	"golang.org/x/time/rate"
)

const (
	defaultPageSize  = 50
	maxPageSize      = 50
	itemsPageSize    = 100
	defaultRateLimit = 8.0
)

// SpotifyOption configures a [SpotifyService].
type SpotifyOption func(*SpotifyService)

// WithPageSize sets how many playlists are requested per page (1-50).
func WithPageSize(n int) SpotifyOption {
	return func(s *SpotifyService) {
		if n > 0 && n <= maxPageSize {
			s.pageSize = n
		}
	}
}

// WithRateLimit caps API requests per second across every source created by the service.
func WithRateLimit(rps float64) SpotifyOption {
	return func(s *SpotifyService) {
		if rps > 0 {
			s.limiter = rate.NewLimiter(rate.Limit(rps), 1)
		}
	}
}

// WithEndpoint overrides the OAuth2 endpoint, mainly for tests.
func WithEndpoint(endpoint oauth2.Endpoint) SpotifyOption {
	return func(s *SpotifyService) { s.config.Endpoint = endpoint }
}

// WithClientOptions passes options through to every [spotify.Client] the service builds.
func WithClientOptions(opts ...spotify.ClientOption) SpotifyOption {
	return func(s *SpotifyService) { s.clientOpts = append(s.clientOpts, opts...) }
}

// WithTokenStore persists tokens refreshed by sources created from the service.
func WithTokenStore(store TokenStore) SpotifyOption {
	return func(s *SpotifyService) {
		if store == nil {
			return
		}
		s.onTokenRefresh = func(token *oauth2.Token) {
			_ = store.Save(token)
		}
	}
}

// SpotifyService implements [OAuthService] for Spotify.
type SpotifyService struct {
	config         *oauth2.Config
	username       string
	pageSize       int
	limiter        *rate.Limiter
	clientOpts     []spotify.ClientOption
	onTokenRefresh func(*oauth2.Token)
}

// NewSpotifyService creates a new Spotify service from the configured credentials.
func NewSpotifyService(creds shared.SpotifyConfig, opts ...SpotifyOption) (*SpotifyService, error) {
	if creds.ClientID == "" {
		return nil, fmt.Errorf("%w: missing client_id", shared.ErrMissingCredentials)
	}
	if creds.ClientSecret == "" {
		return nil, fmt.Errorf("%w: missing client_secret", shared.ErrMissingCredentials)
	}
	if creds.RedirectURI == "" {
		return nil, fmt.Errorf("%w: missing redirect_uri", shared.ErrMissingCredentials)
	}

	s := &SpotifyService{
		config: &oauth2.Config{
			ClientID:     creds.ClientID,
			ClientSecret: creds.ClientSecret,
			RedirectURL:  creds.RedirectURI,
			Scopes: []string{
				spotifyauth.ScopePlaylistReadPrivate,
				spotifyauth.ScopePlaylistReadCollaborative,
			},
			Endpoint: oauth2.Endpoint{
				AuthURL:  spotifyauth.AuthURL,
				TokenURL: spotifyauth.TokenURL,
			},
		},
		username: creds.Username,
		pageSize: defaultPageSize,
		limiter:  rate.NewLimiter(rate.Limit(defaultRateLimit), 1),
	}

	for _, opt := range opts {
		opt(s)
	}

	return s, nil
}

func (s *SpotifyService) Name() string {
	return "Spotify"
}

// AuthURL returns the OAuth2 authorization URL for user login.
func (s *SpotifyService) AuthURL(state string) string {
	return s.config.AuthCodeURL(state, oauth2.AccessTypeOffline)
}

// Exchange trades an authorization code for a token. Failures wrap [shared.ErrAuthFailed].
func (s *SpotifyService) Exchange(ctx context.Context, code string) (*oauth2.Token, error) {
	if code == "" {
		return nil, fmt.Errorf("%w: empty authorization code", shared.ErrAuthFailed)
	}

	token, err := s.config.Exchange(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to exchange auth code: %v", shared.ErrAuthFailed, err)
	}

	return token, nil
}

// SetTokenRefreshCallback registers fn to receive tokens minted by automatic refresh.
func (s *SpotifyService) SetTokenRefreshCallback(fn func(*oauth2.Token)) {
	s.onTokenRefresh = fn
}

// Source returns a [SpotifySource] whose requests carry token, refreshing it as needed.
func (s *SpotifyService) Source(ctx context.Context, token *oauth2.Token) PlaylistSource {
	if token == nil {
		token = &oauth2.Token{}
	}
	ts := &refreshableTokenSource{
		source:    s.config.TokenSource(ctx, token),
		callback:  s.onTokenRefresh,
		lastToken: token.AccessToken,
	}
	client := spotify.New(oauth2.NewClient(ctx, ts), s.clientOpts...)

	return NewSpotifySource(client, SourceOpts{
		Username: s.username,
		PageSize: s.pageSize,
		Limiter:  s.limiter,
	})
}

// refreshableTokenSource wraps an [oauth2.TokenSource] and reports every new access token.
type refreshableTokenSource struct {
	source    oauth2.TokenSource
	callback  func(*oauth2.Token)
	mu        sync.Mutex
	lastToken string
}

func (r *refreshableTokenSource) Token() (*oauth2.Token, error) {
	token, err := r.source.Token()
	if err != nil {
		return nil, fmt.Errorf("%w: %w", shared.ErrAuthFailed, err)
	}

	r.mu.Lock()
	changed := token.AccessToken != r.lastToken
	r.lastToken = token.AccessToken
	r.mu.Unlock()

	if changed && r.callback != nil {
		r.callback(token)
	}

	return token, nil
}

// SourceOpts configures a [SpotifySource].
type SourceOpts struct {
	Username string        // Scan this user's public playlists; empty means the current user
	PageSize int           // Playlists per page
	Limiter  *rate.Limiter // Optional request pacing
}

// SpotifySource implements [PlaylistSource] over the Spotify Web API.
type SpotifySource struct {
	client   *spotify.Client
	username string
	pageSize int
	limiter  *rate.Limiter
}

// NewSpotifySource wraps an authorized [spotify.Client].
func NewSpotifySource(client *spotify.Client, opts SourceOpts) *SpotifySource {
	if opts.PageSize <= 0 || opts.PageSize > maxPageSize {
		opts.PageSize = defaultPageSize
	}

	return &SpotifySource{
		client:   client,
		username: opts.Username,
		pageSize: opts.PageSize,
		limiter:  opts.Limiter,
	}
}

func (s *SpotifySource) Name() string {
	return "Spotify"
}

// Pages walks the playlist listing using the "next" link of each page.
func (s *SpotifySource) Pages(ctx context.Context, include func(name string) bool) iter.Seq2[[]models.RawPlaylist, error] {
	return func(yield func([]models.RawPlaylist, error) bool) {
		page, err := s.firstPage(ctx)
		for {
			if err != nil {
				yield(nil, unavailable("list playlists", err))
				return
			}

			batch := make([]models.RawPlaylist, 0, len(page.Playlists))
			for _, sp := range page.Playlists {
				raw := models.RawPlaylist{ID: playlistURI(sp), Name: sp.Name}

				if include == nil || include(sp.Name) {
					tracks, err := s.playlistTracks(ctx, sp.ID)
					if err != nil {
						yield(nil, unavailable(fmt.Sprintf("list tracks of %s", sp.ID), err))
						return
					}
					raw.Tracks = tracks
				}

				batch = append(batch, raw)
			}

			if !yield(batch, nil) {
				return
			}

			if err = s.wait(ctx); err == nil {
				err = s.client.NextPage(ctx, page)
			}
			if errors.Is(err, spotify.ErrNoMorePages) {
				return
			}
		}
	}
}

func (s *SpotifySource) firstPage(ctx context.Context) (*spotify.SimplePlaylistPage, error) {
	if err := s.wait(ctx); err != nil {
		return nil, err
	}
	if s.username != "" {
		return s.client.GetPlaylistsForUser(ctx, s.username, spotify.Limit(s.pageSize))
	}
	return s.client.CurrentUsersPlaylists(ctx, spotify.Limit(s.pageSize))
}

// playlistTracks reads every page of a playlist's items, skipping episodes and removed tracks.
func (s *SpotifySource) playlistTracks(ctx context.Context, id spotify.ID) ([]models.RawTrack, error) {
	if err := s.wait(ctx); err != nil {
		return nil, err
	}

	page, err := s.client.GetPlaylistItems(ctx, id, spotify.Limit(itemsPageSize))
	if err != nil {
		return nil, err
	}

	var tracks []models.RawTrack
	for {
		for _, item := range page.Items {
			if item.Track.Track == nil {
				continue
			}
			tracks = append(tracks, convertTrack(item.Track.Track))
		}

		if err := s.wait(ctx); err != nil {
			return nil, err
		}
		err := s.client.NextPage(ctx, page)
		if errors.Is(err, spotify.ErrNoMorePages) {
			return tracks, nil
		}
		if err != nil {
			return nil, err
		}
	}
}

func (s *SpotifySource) wait(ctx context.Context) error {
	if s.limiter == nil {
		return nil
	}
	return s.limiter.Wait(ctx)
}

func convertTrack(t *spotify.FullTrack) models.RawTrack {
	artists := make([]string, 0, len(t.Artists))
	for _, a := range t.Artists {
		artists = append(artists, a.Name)
	}

	return models.RawTrack{
		ID:         string(t.ID),
		Name:       t.Name,
		DurationMS: int(t.Duration),
		Artists:    artists,
	}
}

func playlistURI(p spotify.SimplePlaylist) string {
	if p.URI != "" {
		return string(p.URI)
	}
	return "spotify:playlist:" + string(p.ID)
}

func unavailable(op string, err error) error {
	return fmt.Errorf("%w: %s: %w", shared.ErrSourceUnavailable, op, err)
}
