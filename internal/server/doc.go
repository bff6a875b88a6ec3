// Package server provides HTTP routing, middleware, the server lifecycle and OAuth callback handling.
//
// # Router Infrastructure
//
// The [Router] interface defines HTTP routing with middleware support.
//
// [Middleware] wraps handlers in reverse order (last added executes first), following the standard Go pattern.
//
// The [BasicRouter] implementation is backed by a chi mux, which adds request IDs and panic
// recovery to every route. [RequestLogger] and [Instrument] log and measure each request.
//
// # Server Lifecycle
//
// [Server.Start] listens on the configured address and serves until its context is cancelled,
// then shuts down gracefully so in-flight refreshes can finish writing.
//
// # OAuth Callback Handler
//
// [OAuthHandler] implements the OAuth2 authorization code callback for `spindb auth login`.
//
// The handler validates the state parameter (CSRF protection), exchanges the authorization code for tokens,
// and sends the result through a channel. It only processes one callback to prevent replay attacks.
//
// # Handler Interface
//
// Custom handlers implement the [Handler] interface, which wraps the stdlib handler interface and adds routes,
// allowing handlers to register multiple routes to encapsulate route definitions within the implementation.
package server
