package main

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/desertthunder/spindb/internal/repositories"
	"github.com/desertthunder/spindb/internal/server"
	"github.com/desertthunder/spindb/internal/web"
	"github.com/urfave/cli/v3"
)

// Serve starts the dashboard and blocks until interrupted.
func (r *Runner) Serve(ctx context.Context, cmd *cli.Command) error {
	if host := cmd.String("host"); host != "" {
		r.config.Server.Host = host
	}
	if port := cmd.Int("port"); port > 0 {
		r.config.Server.Port = port
	}

	store, err := r.openStore()
	if err != nil {
		return err
	}

	handler, err := r.dashboard(store)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	addr := r.config.Server.Addr()
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", addr, err)
	}

	url := dashboardURL(ln.Addr())
	r.writePlain("→ Dashboard running at %s\n", url)
	if cmd.Bool("open") {
		if err := r.openBrowser(url); err != nil {
			r.logger.Warnf("failed to open browser automatically %v", err)
		}
	}

	return server.NewServer(addr, handler, r.logger).Serve(ctx, ln)
}

// dashboard assembles the router, middleware and dashboard routes around store.
func (r *Runner) dashboard(store repositories.Store) (http.Handler, error) {
	oauth, err := r.oauthService()
	if err != nil {
		return nil, err
	}

	d, err := web.NewDashboard(web.DashboardOpts{
		OAuth:      oauth,
		Tokens:     r.tokenStore(),
		Store:      store,
		Engine:     r.engine(store),
		Logger:     r.logger,
		Recent:     r.config.Refresh.RecentLimit,
		TopArtists: r.config.Refresh.TopArtistsLimit,
		Metrics:    r.metrics.Handler(),
	})
	if err != nil {
		return nil, err
	}

	router := server.NewBasicRouter()
	router.Use(server.RequestLogger(r.logger), server.Instrument(r.metrics))
	d.Register(router)

	return router, nil
}

// dashboardURL returns a browsable URL for a listener address, replacing wildcard hosts with localhost.
func dashboardURL(addr net.Addr) string {
	host, port, err := net.SplitHostPort(addr.String())
	if err != nil {
		return "http://" + addr.String() + "/"
	}
	if ip := net.ParseIP(host); ip == nil || ip.IsUnspecified() {
		host = "localhost"
	}
	return "http://" + net.JoinHostPort(host, port) + "/"
}
