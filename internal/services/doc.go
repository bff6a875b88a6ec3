// Package services defines the [PlaylistSource] abstraction that feeds a refresh and implements it for Spotify.
//
// # Playlist Sources
//
// A [PlaylistSource] yields playlists one page at a time through a range-over-func iterator. Each
// call to Pages begins a fresh walk from the first page and follows the provider's "next" links
// until none remain, so a refresh always sees the whole listing regardless of its size.
//
// # Spotify Implementation
//
// [SpotifyService] wraps an [oauth2.Config] pointed at the Spotify accounts service and builds
// [SpotifySource] values around github.com/zmb3/spotify/v2 clients. Requests share a
// [rate.Limiter] so a long refresh stays under the Web API quota.
//
// The [oauth2.Client] refreshes expired tokens with the refresh token. Every new access token is
// handed to the refresh callback, which the CLI and dashboard use to persist it in a [TokenStore].
//
// # Error Handling
//
// Services use typed errors from shared package:
//   - [shared.ErrMissingCredentials] : client id, secret or redirect URI absent
//   - [shared.ErrAuthFailed] : code exchange or token refresh rejected
//   - [shared.ErrNotAuthenticated] : no stored token
//   - [shared.ErrSourceUnavailable] : any listing or track request failed
package services
