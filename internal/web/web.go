// package web implements the spin dashboard: login, refresh and the report pages
package web

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/charmbracelet/log"

	"github.com/desertthunder/spindb/internal/repositories"
	"github.com/desertthunder/spindb/internal/server"
	"github.com/desertthunder/spindb/internal/services"
	"github.com/desertthunder/spindb/internal/shared"
	"github.com/desertthunder/spindb/internal/tasks"
)

const (
	stateCookie    = "spindb_oauth_state"
	stateCookieTTL = 10 * time.Minute

	defaultRecentLimit = 10
	defaultTopArtists  = 10
)

// DashboardOpts configures a [Dashboard].
type DashboardOpts struct {
	OAuth      services.OAuthService
	Tokens     services.TokenStore
	Store      repositories.Store
	Engine     *tasks.RefreshEngine
	Logger     *log.Logger
	Recent     int          // Playlists on the home page
	TopArtists int          // Artists on the home page
	Metrics    http.Handler // Optional /metrics handler
}

// Dashboard serves the dashboard routes.
type Dashboard struct {
	oauth      services.OAuthService
	tokens     services.TokenStore
	store      repositories.Store
	engine     *tasks.RefreshEngine
	logger     *log.Logger
	recent     int
	topArtists int
	metrics    http.Handler
	templates  templates
}

// NewDashboard creates a dashboard and parses its templates.
func NewDashboard(opts DashboardOpts) (*Dashboard, error) {
	if opts.OAuth == nil || opts.Tokens == nil || opts.Store == nil || opts.Engine == nil {
		return nil, fmt.Errorf("%w: dashboard needs an oauth service, token store, store and refresh engine", shared.ErrInvalidConfig)
	}
	if opts.Logger == nil {
		opts.Logger = shared.NewLogger(nil)
	}
	if opts.Recent <= 0 {
		opts.Recent = defaultRecentLimit
	}
	if opts.TopArtists <= 0 {
		opts.TopArtists = defaultTopArtists
	}

	t, err := parseTemplates()
	if err != nil {
		return nil, err
	}

	return &Dashboard{
		oauth:      opts.OAuth,
		tokens:     opts.Tokens,
		store:      opts.Store,
		engine:     opts.Engine,
		logger:     shared.WithLogger(opts.Logger, "component", "web"),
		recent:     opts.Recent,
		topArtists: opts.TopArtists,
		metrics:    opts.Metrics,
		templates:  t,
	}, nil
}

// Register adds every dashboard route to r.
func (d *Dashboard) Register(r server.Router) {
	r.Handle(http.MethodGet, "/", http.HandlerFunc(d.Root))
	r.Handle(http.MethodGet, "/index", http.HandlerFunc(d.Refresh))
	r.Handle(http.MethodGet, "/home", http.HandlerFunc(d.Home))
	r.Handle(http.MethodGet, "/playlists", http.HandlerFunc(d.Playlists))
	r.Handle(http.MethodGet, "/tracks", http.HandlerFunc(d.Tracks))
	r.Handle(http.MethodGet, "/healthz", http.HandlerFunc(d.Health))
	if d.metrics != nil {
		r.Handle(http.MethodGet, "/metrics", d.metrics)
	}
}

// Root is the auth entry point and the OAuth redirect target.
//
// With a code it checks the state cookie, exchanges the code, stores the token and redirects to
// /index. Without one it renders the login page with a fresh state.
func (d *Dashboard) Root(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	if code := q.Get("code"); code != "" {
		d.callback(w, r, code, q.Get("state"))
		return
	}

	state := shared.GenerateID()
	http.SetCookie(w, &http.Cookie{
		Name:     stateCookie,
		Value:    state,
		Path:     "/",
		MaxAge:   int(stateCookieTTL.Seconds()),
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})

	view := RootView{AuthURL: d.oauth.AuthURL(state), Notice: notice(q.Get("error"))}
	d.render(w, http.StatusOK, "root", view)
}

func (d *Dashboard) callback(w http.ResponseWriter, r *http.Request, code, state string) {
	cookie, err := r.Cookie(stateCookie)
	if err != nil || cookie.Value == "" || cookie.Value != state {
		d.logger.Warn("oauth state mismatch", "error", shared.ErrInvalidState)
		http.Redirect(w, r, "/?error=state", http.StatusFound)
		return
	}
	http.SetCookie(w, &http.Cookie{Name: stateCookie, Path: "/", MaxAge: -1})

	token, err := d.oauth.Exchange(r.Context(), code)
	if err != nil {
		d.logger.Warn("oauth exchange failed", "error", err)
		http.Redirect(w, r, "/?error=auth", http.StatusFound)
		return
	}

	if err := d.tokens.Save(token); err != nil {
		d.logger.Error("failed to save token", "error", err)
		d.renderError(w, http.StatusInternalServerError, "Could not save your login. Check the token path and try again.")
		return
	}

	d.logger.Info("logged in", "service", d.oauth.Name(), "expires", token.Expiry)
	http.Redirect(w, r, "/index", http.StatusFound)
}

// Refresh runs an aggregation run with the stored token and redirects to /home.
func (d *Dashboard) Refresh(w http.ResponseWriter, r *http.Request) {
	token, err := d.tokens.Load()
	if err != nil {
		d.logger.Info("no stored token, redirecting to login", "error", err)
		http.Redirect(w, r, "/", http.StatusFound)
		return
	}

	_, err = d.engine.Run(r.Context(), d.oauth.Source(r.Context(), token), nil)
	switch {
	case err == nil:
		http.Redirect(w, r, "/home", http.StatusFound)
	case errors.Is(err, shared.ErrAuthFailed), errors.Is(err, shared.ErrNotAuthenticated):
		http.Redirect(w, r, "/?error=auth", http.StatusFound)
	case errors.Is(err, shared.ErrRefreshInProgress):
		d.renderError(w, http.StatusConflict, "A refresh is already running. Try again in a moment.")
	case errors.Is(err, shared.ErrPlaylistFormat):
		d.renderError(w, http.StatusUnprocessableEntity, err.Error())
	case errors.Is(err, shared.ErrSourceUnavailable):
		d.renderError(w, http.StatusBadGateway, "Spotify could not be reached. Nothing was changed.")
	default:
		d.renderError(w, http.StatusInternalServerError, "The refresh failed. Nothing was changed.")
	}
}

// Home shows the most recent playlists and the top artists.
func (d *Dashboard) Home(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	recent, err := d.store.RecentPlaylists(ctx, d.recent)
	if err != nil {
		d.storeError(w, err)
		return
	}

	artists, err := d.store.TopArtists(ctx, d.topArtists)
	if err != nil {
		d.storeError(w, err)
		return
	}

	info, err := d.store.Current(ctx)
	if err != nil && !errors.Is(err, shared.ErrNoSnapshot) {
		d.storeError(w, err)
		return
	}

	d.render(w, http.StatusOK, "home", HomeView{
		Recent:     recentPlaylists(recent),
		TopArtists: topArtists(artists),
		Snapshot:   snapshotSummary(info),
	})
}

// Playlists lists every stored playlist.
func (d *Dashboard) Playlists(w http.ResponseWriter, r *http.Request) {
	records, err := d.store.AllPlaylists(r.Context())
	if err != nil {
		d.storeError(w, err)
		return
	}
	d.render(w, http.StatusOK, "playlists", playlistRows(records))
}

// Tracks lists every stored track by count.
func (d *Dashboard) Tracks(w http.ResponseWriter, r *http.Request) {
	records, err := d.store.AllTracks(r.Context())
	if err != nil {
		d.storeError(w, err)
		return
	}
	d.render(w, http.StatusOK, "tracks", trackRows(records))
}

// Health reports liveness and the current snapshot version as JSON.
func (d *Dashboard) Health(w http.ResponseWriter, r *http.Request) {
	body := map[string]any{"status": "ok", "snapshot": nil}
	status := http.StatusOK

	info, err := d.store.Current(r.Context())
	switch {
	case err == nil:
		body["snapshot"] = map[string]any{"version": info.Version, "created_at": info.CreatedAt}
	case errors.Is(err, shared.ErrNoSnapshot):
	default:
		body["status"] = "degraded"
		body["error"] = err.Error()
		status = http.StatusServiceUnavailable
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		d.logger.Error("failed to write health response", "error", err)
	}
}

func (d *Dashboard) render(w http.ResponseWriter, status int, page string, data any) {
	if err := d.templates.render(w, status, page, data); err != nil {
		d.logger.Error("render failed", "page", page, "error", err)
		http.Error(w, "Internal server error", http.StatusInternalServerError)
	}
}

func (d *Dashboard) renderError(w http.ResponseWriter, status int, message string) {
	d.render(w, status, "error", ErrorView{Status: status, Title: http.StatusText(status), Message: message})
}

func (d *Dashboard) storeError(w http.ResponseWriter, err error) {
	d.logger.Error("store query failed", "error", err)
	d.renderError(w, http.StatusInternalServerError, "The report could not be loaded.")
}

// notice turns the error query parameter of a redirect into a message for the login page.
func notice(code string) string {
	switch code {
	case "":
		return ""
	case "state":
		return "Your login expired before it finished. Please log in again."
	case "auth":
		return "Spotify did not accept the login. Please try again."
	default:
		return "Spotify reported an error (" + code + "). Please try again."
	}
}
