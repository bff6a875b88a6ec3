// Package web serves the spin dashboard.
//
// # Routes
//
//   - GET /          : login page, and the OAuth redirect target when called with ?code=
//   - GET /index     : refresh from Spotify with the stored token, then redirect to /home
//   - GET /home      : most recent spin playlists and top artists
//   - GET /playlists : every stored spin playlist
//   - GET /tracks    : every stored track by play count
//   - GET /healthz   : JSON liveness with the current snapshot version
//   - GET /metrics   : Prometheus metrics when a handler is configured
//
// Pages are html/template files embedded in the binary. Each page is parsed together with the
// base layout and rendered into a buffer before anything is written to the response.
//
// # Refresh Errors
//
// A refresh that fails leaves the stored snapshot untouched. Failures map to statuses:
// unreachable Spotify is 502, a malformed playlist name is 422 and a concurrent refresh is 409.
// Rejected or expired authorization sends the user back to the login page.
package web
