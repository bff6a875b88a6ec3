package main

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/desertthunder/spindb/internal/models"
	"github.com/desertthunder/spindb/internal/repositories"
	"github.com/desertthunder/spindb/internal/server"
	"github.com/desertthunder/spindb/internal/services"
	"github.com/desertthunder/spindb/internal/shared"
	tu "github.com/desertthunder/spindb/internal/testing"
	"golang.org/x/oauth2"
)

type runnerFixture struct {
	runner *Runner
	output *bytes.Buffer
	store  *repositories.SQLStore
	oauth  *tu.MockOAuthService
	tokens *tu.MemoryTokenStore
}

func newRunnerFixture(t *testing.T) *runnerFixture {
	t.Helper()

	db, err := shared.OpenDatabase(shared.DatabaseConfig{Path: ":memory:"})
	if err != nil {
		t.Fatalf("failed to open database: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	config := shared.DefaultConfig()
	config.Credentials.Spotify.TokenPath = filepath.Join(t.TempDir(), "token.json")

	f := &runnerFixture{
		output: &bytes.Buffer{},
		store:  repositories.NewSQLStore(db),
		oauth:  &tu.MockOAuthService{},
		tokens: tu.NewMemoryTokenStore(&oauth2.Token{AccessToken: "stored"}),
	}
	f.runner = NewRunner(RunnerOpts{
		Config:      config,
		OAuth:       f.oauth,
		Tokens:      f.tokens,
		Store:       f.store,
		Logger:      shared.NewLogger(io.Discard),
		Output:      f.output,
		OpenBrowser: func(string) error { return nil },
	})
	return f
}

func (f *runnerFixture) run(args ...string) error {
	return f.runner.App().Run(context.Background(), append([]string{"spindb"}, args...))
}

func (f *runnerFixture) seed(t *testing.T) {
	t.Helper()
	_, err := f.store.ReplaceAll(context.Background(), &models.Snapshot{
		Playlists: []models.PlaylistRecord{
			{ExternalID: "spotify:playlist:a", Title: "Morning", Date: "1/15", Length: "3:05", Tracks: "Song A, Song B"},
		},
		Tracks: []models.TrackRecord{
			{ID: "t1", Name: "Song A", Artists: "X, Y", Count: 2},
			{ID: "t2", Name: "Song B", Artists: "X", Count: 1},
		},
		Artists: []models.ArtistRecord{
			{Name: "X", Count: 3},
			{Name: "Y", Count: 2},
		},
	})
	if err != nil {
		t.Fatalf("failed to seed snapshot: %v", err)
	}
}

func spinSource() *tu.MockSource {
	return tu.NewMockSource([]models.RawPlaylist{
		{
			ID:   "spotify:playlist:a",
			Name: "1/15 Morning",
			Tracks: []models.RawTrack{
				{ID: "t1", Name: "Song A", DurationMS: 120000, Artists: []string{"X"}},
				{ID: "t2", Name: "Song B", DurationMS: 65000, Artists: []string{"X", "Y"}},
			},
		},
		{ID: "spotify:playlist:b", Name: "Workout Mix"},
	})
}

func TestRunner(t *testing.T) {
	t.Run("NewRunner", func(t *testing.T) {
		t.Run("with all dependencies provided", func(t *testing.T) {
			config := shared.DefaultConfig()
			logger := shared.NewLogger(nil)
			output := &bytes.Buffer{}
			oauth := &tu.MockOAuthService{}
			tokens := tu.NewMemoryTokenStore(nil)

			runner := NewRunner(RunnerOpts{
				Config: config,
				Logger: logger,
				Output: output,
				OAuth:  oauth,
				Tokens: tokens,
			})

			if runner.config != config {
				t.Error("expected config to be set")
			}
			if runner.logger != logger {
				t.Error("expected logger to be set")
			}
			if runner.output != output {
				t.Error("expected output to be set")
			}
			if runner.oauth != oauth {
				t.Error("expected oauth service to be set")
			}
			if runner.tokens != tokens {
				t.Error("expected token store to be set")
			}
		})

		t.Run("with nil dependencies uses defaults", func(t *testing.T) {
			runner := NewRunner(RunnerOpts{})

			if runner.logger == nil {
				t.Error("expected default logger to be set")
			}
			if runner.output != os.Stdout {
				t.Error("expected default output to be os.Stdout")
			}
			if runner.metrics == nil {
				t.Error("expected default metrics to be set")
			}
			if runner.openBrowser == nil {
				t.Error("expected default browser opener to be set")
			}
		})
	})

	t.Run("register", func(t *testing.T) {
		runner := NewRunner(RunnerOpts{})
		commands := runner.register()

		names := map[string]bool{}
		for _, c := range commands {
			names[c.Name] = true
		}
		for _, want := range []string{"serve", "setup", "auth", "refresh", "report"} {
			if !names[want] {
				t.Errorf("expected %q command to be registered", want)
			}
		}
	})

	t.Run("writePlain", func(t *testing.T) {
		t.Run("writes formatted text", func(t *testing.T) {
			output := &bytes.Buffer{}
			runner := NewRunner(RunnerOpts{Output: output})

			if err := runner.writePlain("Hello %s\n", "World"); err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if output.String() != "Hello World\n" {
				t.Errorf("unexpected output: %q", output.String())
			}
		})

		t.Run("returns error on write failure", func(t *testing.T) {
			runner := NewRunner(RunnerOpts{Output: &tu.FWriter{}})

			err := runner.writePlain("test")
			if err == nil || !strings.Contains(err.Error(), "failed to write output") {
				t.Errorf("expected write error, got %v", err)
			}
		})

		t.Run("writePlainln surrounds text with newlines", func(t *testing.T) {
			output := &bytes.Buffer{}
			runner := NewRunner(RunnerOpts{Output: output})

			runner.writePlainln("done")
			if output.String() != "\ndone\n" {
				t.Errorf("unexpected output: %q", output.String())
			}
		})

		t.Run("writePlainln returns error after write limit", func(t *testing.T) {
			w := tu.NewLimitedWriter(1, 1, &bytes.Buffer{})
			runner := NewRunner(RunnerOpts{Output: &w})

			if err := runner.writePlainln("done"); err == nil {
				t.Error("expected error when write limit is exceeded")
			}
		})
	})
}

func TestConfigure(t *testing.T) {
	t.Run("loads config from --config", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "config.toml")
		content := `
[credentials.spotify]
client_id = "file-id"
client_secret = "file-secret"
redirect_uri = "http://127.0.0.1:4000/"

[database]
path = ":memory:"

[log]
level = "debug"
`
		if err := os.WriteFile(path, []byte(content), 0644); err != nil {
			t.Fatalf("failed to write config: %v", err)
		}

		runner := NewRunner(RunnerOpts{Logger: shared.NewLogger(io.Discard), Output: &bytes.Buffer{}})
		err := runner.App().Run(context.Background(), []string{"spindb", "--config", path, "setup", "database"})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		if runner.config.Credentials.Spotify.ClientID != "file-id" {
			t.Errorf("expected client id from file, got %q", runner.config.Credentials.Spotify.ClientID)
		}
		if runner.config.Server.Port != 3000 {
			t.Errorf("expected default port to fill in, got %d", runner.config.Server.Port)
		}
	})

	t.Run("missing file falls back to defaults", func(t *testing.T) {
		config, err := loadConfig(filepath.Join(t.TempDir(), "absent.toml"))
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if config.Database.Path != shared.DefaultConfig().Database.Path {
			t.Errorf("expected default database path, got %q", config.Database.Path)
		}
	})

	t.Run("invalid file fails", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "config.toml")
		os.WriteFile(path, []byte("not = [valid"), 0644)

		if _, err := loadConfig(path); !errors.Is(err, shared.ErrInvalidConfig) {
			t.Errorf("expected ErrInvalidConfig, got %v", err)
		}
	})

	t.Run("keeps injected config", func(t *testing.T) {
		f := newRunnerFixture(t)
		f.runner.config.Refresh.RecentLimit = 3

		if err := f.run("auth", "status"); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if f.runner.config.Refresh.RecentLimit != 3 {
			t.Error("expected injected config to survive Configure")
		}
	})
}

func TestSetup(t *testing.T) {
	t.Run("config writes template", func(t *testing.T) {
		f := newRunnerFixture(t)
		path := filepath.Join(t.TempDir(), "config.toml")

		if err := f.run("setup", "config", "--output", path); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		tu.AssertFileExists(t, path)
		if !strings.Contains(f.output.String(), "Config written to") {
			t.Errorf("unexpected output: %s", f.output.String())
		}
	})

	t.Run("config refuses to overwrite", func(t *testing.T) {
		f := newRunnerFixture(t)
		path := filepath.Join(t.TempDir(), "config.toml")
		os.WriteFile(path, []byte("existing"), 0644)

		if err := f.run("setup", "config", "--output", path); err == nil {
			t.Error("expected error for existing config file")
		}
		if got := tu.MustReadFile(t, path); got != "existing" {
			t.Errorf("config file was modified: %q", got)
		}
	})

	t.Run("database runs migrations", func(t *testing.T) {
		f := newRunnerFixture(t)
		f.runner.config.Database.Path = filepath.Join(t.TempDir(), "spin.db")

		if err := f.run("setup", "database"); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		tu.AssertFileExists(t, f.runner.config.Database.Path)
	})
}

func TestReport(t *testing.T) {
	t.Run("tracks as csv", func(t *testing.T) {
		f := newRunnerFixture(t)
		f.seed(t)

		if err := f.run("report", "tracks", "--format", "csv"); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		want := "Name,Artist,Count\nSong A,\"X, Y\",2\nSong B,X,1\n"
		if f.output.String() != want {
			t.Errorf("unexpected output:\n%s", f.output.String())
		}
	})

	t.Run("home as table", func(t *testing.T) {
		f := newRunnerFixture(t)
		f.seed(t)

		if err := f.run("report", "home"); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		output := f.output.String()
		for _, want := range []string{"Recent Playlists", "Morning", "3:05", "Top Artists", "Snapshot #1"} {
			if !strings.Contains(output, want) {
				t.Errorf("output missing %q:\n%s", want, output)
			}
		}
	})

	t.Run("playlists as markdown", func(t *testing.T) {
		f := newRunnerFixture(t)
		f.seed(t)

		if err := f.run("report", "playlists", "-f", "md"); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !strings.Contains(f.output.String(), "| Morning | 1/15 | Song A, Song B | 3:05 |") {
			t.Errorf("unexpected output:\n%s", f.output.String())
		}
	})

	t.Run("artists respects limit", func(t *testing.T) {
		f := newRunnerFixture(t)
		f.seed(t)

		if err := f.run("report", "artists", "--format", "json", "--limit", "1"); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		output := f.output.String()
		if !strings.Contains(output, `"name": "X"`) || strings.Contains(output, `"name": "Y"`) {
			t.Errorf("unexpected output:\n%s", output)
		}
	})

	t.Run("no snapshot", func(t *testing.T) {
		f := newRunnerFixture(t)

		err := f.run("report", "tracks")
		if !errors.Is(err, shared.ErrNoSnapshot) {
			t.Errorf("expected ErrNoSnapshot, got %v", err)
		}
	})

	t.Run("unknown format", func(t *testing.T) {
		f := newRunnerFixture(t)
		f.seed(t)

		err := f.run("report", "tracks", "--format", "xml")
		if !errors.Is(err, shared.ErrInvalidFormat) {
			t.Errorf("expected ErrInvalidFormat, got %v", err)
		}
	})
}

func TestRefresh(t *testing.T) {
	t.Run("stores snapshot and prints summary", func(t *testing.T) {
		f := newRunnerFixture(t)
		f.oauth.Src = spinSource()

		if err := f.run("refresh"); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		output := f.output.String()
		for _, want := range []string{"fetch_playlists", "Snapshot #1 stored", "Playlists scanned: 2 (1 spin, 1 skipped)", "1 playlists, 2 tracks, 2 artists"} {
			if !strings.Contains(output, want) {
				t.Errorf("output missing %q:\n%s", want, output)
			}
		}

		recent, err := f.store.RecentPlaylists(context.Background(), 10)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(recent) != 1 || recent[0].Length != "3:05" {
			t.Errorf("unexpected stored playlists: %+v", recent)
		}
	})

	t.Run("quiet suppresses progress", func(t *testing.T) {
		f := newRunnerFixture(t)
		f.oauth.Src = spinSource()

		if err := f.run("refresh", "--quiet"); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if strings.Contains(f.output.String(), "fetch_playlists") {
			t.Errorf("expected no progress lines:\n%s", f.output.String())
		}
	})

	t.Run("without token", func(t *testing.T) {
		f := newRunnerFixture(t)
		f.runner.tokens = tu.NewMemoryTokenStore(nil)

		err := f.run("refresh")
		if !errors.Is(err, shared.ErrNotAuthenticated) {
			t.Errorf("expected ErrNotAuthenticated, got %v", err)
		}
	})

	t.Run("source failure keeps previous snapshot", func(t *testing.T) {
		f := newRunnerFixture(t)
		f.seed(t)
		src := spinSource()
		src.Err = shared.ErrSourceUnavailable
		f.oauth.Src = src

		err := f.run("refresh")
		if !errors.Is(err, shared.ErrSourceUnavailable) {
			t.Fatalf("expected ErrSourceUnavailable, got %v", err)
		}

		info, err := f.store.Current(context.Background())
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if info.Version != 1 {
			t.Errorf("expected seeded snapshot to remain, got version %d", info.Version)
		}
	})

	t.Run("malformed spin playlist", func(t *testing.T) {
		f := newRunnerFixture(t)
		f.oauth.Src = tu.NewMockSource([]models.RawPlaylist{{ID: "x", Name: "1/15"}})

		err := f.run("refresh")
		if !errors.Is(err, shared.ErrPlaylistFormat) {
			t.Errorf("expected ErrPlaylistFormat, got %v", err)
		}
	})
}

func TestAuth(t *testing.T) {
	t.Run("status without token", func(t *testing.T) {
		f := newRunnerFixture(t)
		f.runner.tokens = tu.NewMemoryTokenStore(nil)

		if err := f.run("auth", "status"); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !strings.Contains(f.output.String(), "Not authenticated") {
			t.Errorf("unexpected output: %s", f.output.String())
		}
	})

	t.Run("status with expiring token", func(t *testing.T) {
		f := newRunnerFixture(t)
		expiry := time.Date(2031, 1, 2, 3, 4, 5, 0, time.UTC)
		f.runner.tokens = tu.NewMemoryTokenStore(&oauth2.Token{AccessToken: "a", Expiry: expiry})

		if err := f.run("auth", "status"); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		output := f.output.String()
		if !strings.Contains(output, "Authenticated") || !strings.Contains(output, "2031-01-02T03:04:05Z") {
			t.Errorf("unexpected output: %s", output)
		}
	})

	t.Run("status with expired token", func(t *testing.T) {
		f := newRunnerFixture(t)
		f.runner.tokens = tu.NewMemoryTokenStore(&oauth2.Token{
			AccessToken:  "a",
			RefreshToken: "r",
			Expiry:       time.Now().Add(-time.Hour),
		})

		if err := f.run("auth", "status"); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !strings.Contains(f.output.String(), "will refresh on next use") {
			t.Errorf("unexpected output: %s", f.output.String())
		}
	})

	t.Run("logout removes token file", func(t *testing.T) {
		f := newRunnerFixture(t)
		store := services.NewFileTokenStore(filepath.Join(t.TempDir(), "token.json"))
		if err := store.Save(&oauth2.Token{AccessToken: "a"}); err != nil {
			t.Fatalf("failed to save token: %v", err)
		}
		f.runner.tokens = store

		if err := f.run("auth", "logout"); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if _, err := store.Load(); !errors.Is(err, shared.ErrNotAuthenticated) {
			t.Errorf("expected token to be removed, got %v", err)
		}
	})

	t.Run("logout with unsupported store", func(t *testing.T) {
		f := newRunnerFixture(t)

		if err := f.run("auth", "logout"); !errors.Is(err, shared.ErrInvalidConfig) {
			t.Errorf("expected ErrInvalidConfig, got %v", err)
		}
	})

	t.Run("login rejects redirect without host", func(t *testing.T) {
		f := newRunnerFixture(t)
		f.runner.config.Credentials.Spotify.RedirectURI = "/callback"

		if err := f.run("auth", "login"); !errors.Is(err, shared.ErrInvalidConfig) {
			t.Errorf("expected ErrInvalidConfig, got %v", err)
		}
	})

	t.Run("login without credentials", func(t *testing.T) {
		f := newRunnerFixture(t)
		f.runner.oauth = nil
		f.runner.config.Credentials.Spotify.ClientID = ""

		if err := f.run("auth", "login"); !errors.Is(err, shared.ErrMissingCredentials) {
			t.Errorf("expected ErrMissingCredentials, got %v", err)
		}
	})
}

func TestDoOAuth(t *testing.T) {
	listen := func(t *testing.T) net.Listener {
		t.Helper()
		ln, err := net.Listen("tcp", "127.0.0.1:0")
		if err != nil {
			t.Fatalf("failed to listen: %v", err)
		}
		return ln
	}

	t.Run("exchanges code from callback", func(t *testing.T) {
		f := newRunnerFixture(t)
		ln := listen(t)
		callback := "http://" + ln.Addr().String() + "/callback?state=state-1&code=abc"

		f.runner.openBrowser = func(string) error {
			go func() {
				resp, err := http.Get(callback)
				if err == nil {
					resp.Body.Close()
				}
			}()
			return nil
		}

		handler := server.NewOAuthHandler(f.oauth, "state-1", "/callback")
		token, err := f.runner.doOAuth(context.Background(), ln, handler, "https://accounts.example.com", time.Second*5)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if token.AccessToken != "access-abc" {
			t.Errorf("unexpected token: %q", token.AccessToken)
		}
	})

	t.Run("state mismatch", func(t *testing.T) {
		f := newRunnerFixture(t)
		ln := listen(t)
		callback := "http://" + ln.Addr().String() + "/callback?state=forged&code=abc"

		f.runner.openBrowser = func(string) error {
			go func() {
				resp, err := http.Get(callback)
				if err == nil {
					resp.Body.Close()
				}
			}()
			return nil
		}

		handler := server.NewOAuthHandler(f.oauth, "state-1", "/callback")
		_, err := f.runner.doOAuth(context.Background(), ln, handler, "https://accounts.example.com", time.Second*5)
		if !errors.Is(err, shared.ErrInvalidState) {
			t.Errorf("expected ErrInvalidState, got %v", err)
		}
		if len(f.oauth.Codes()) != 0 {
			t.Error("expected no code exchange on state mismatch")
		}
	})

	t.Run("prints URL when browser fails and times out", func(t *testing.T) {
		f := newRunnerFixture(t)
		f.runner.openBrowser = func(string) error { return errors.New("no browser") }

		handler := server.NewOAuthHandler(f.oauth, "state-1", "/callback")
		_, err := f.runner.doOAuth(context.Background(), listen(t), handler, "https://accounts.example.com/authorize", 50*time.Millisecond)
		if !errors.Is(err, shared.ErrTimeout) {
			t.Errorf("expected ErrTimeout, got %v", err)
		}
		if !strings.Contains(f.output.String(), "https://accounts.example.com/authorize") {
			t.Errorf("expected authorize URL in output:\n%s", f.output.String())
		}
	})
}

func TestDashboard(t *testing.T) {
	f := newRunnerFixture(t)
	f.seed(t)

	handler, err := f.runner.dashboard(f.store)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	t.Run("healthz reports snapshot", func(t *testing.T) {
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))

		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d", rec.Code)
		}
		if !strings.Contains(rec.Body.String(), `"version":1`) {
			t.Errorf("unexpected body: %s", rec.Body.String())
		}
	})

	t.Run("metrics records requests", func(t *testing.T) {
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/home", nil))
		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200 from /home, got %d", rec.Code)
		}

		rec = httptest.NewRecorder()
		handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
		if !strings.Contains(rec.Body.String(), `spindb_http_requests_total{method="GET",route="/home",status="200"}`) {
			t.Errorf("expected request metric in body:\n%s", rec.Body.String())
		}
	})
}

func TestDashboardURL(t *testing.T) {
	tc := []struct {
		addr string
		want string
	}{
		{"127.0.0.1:3000", "http://127.0.0.1:3000/"},
		{"0.0.0.0:8080", "http://localhost:8080/"},
		{"[::]:8080", "http://localhost:8080/"},
	}
	for _, tt := range tc {
		t.Run(tt.addr, func(t *testing.T) {
			addr, err := net.ResolveTCPAddr("tcp", tt.addr)
			if err != nil {
				t.Fatalf("failed to resolve: %v", err)
			}
			if got := dashboardURL(addr); got != tt.want {
				t.Errorf("dashboardURL(%s) = %q, want %q", tt.addr, got, tt.want)
			}
		})
	}
}
