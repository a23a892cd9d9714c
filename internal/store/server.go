package store

import (
	"context"
	"fmt"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

// ServerOpts holds configuration for the store API server.
type ServerOpts struct {
	Store *Store
	Port  int
	Token string // bearer credential required on /api routes
	Out   io.Writer
	Log   *logrus.Logger
}

// Serve launches the store HTTP API. It blocks until ctx is cancelled, then
// shuts down gracefully.
func Serve(ctx context.Context, opts ServerOpts) error {
	if opts.Store == nil {
		return fmt.Errorf("store: store is required")
	}
	if opts.Port <= 0 {
		opts.Port = 8321
	}
	if opts.Log == nil {
		opts.Log = logrus.StandardLogger()
	}

	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery())

	registerRoutes(router, opts)

	srv := &http.Server{
		Addr:    fmt.Sprintf(":%d", opts.Port),
		Handler: router,
	}

	go func() {
		<-ctx.Done()
		srv.Shutdown(context.Background())
	}()

	if opts.Out != nil {
		fmt.Fprintf(opts.Out, "Evidence store listening at http://localhost:%d\n", opts.Port)
	}

	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("store: serve: %w", err)
	}
	return nil
}
