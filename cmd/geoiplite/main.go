package main

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/TomasB/geoiplite/internal/config"
	"github.com/TomasB/geoiplite/internal/data"
	"github.com/TomasB/geoiplite/internal/handler/check"
	grpchandler "github.com/TomasB/geoiplite/internal/handler/grpc"
	"github.com/TomasB/geoiplite/internal/handler/health"
	"github.com/TomasB/geoiplite/internal/handler/lookup"
	"github.com/TomasB/geoiplite/internal/ipaddr"
	"github.com/TomasB/geoiplite/internal/loader"
	"github.com/TomasB/geoiplite/internal/watch"
	"github.com/gin-gonic/gin"
	"golang.org/x/sync/errgroup"
	"google.golang.org/grpc"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("invalid configuration", "error", err)
		os.Exit(1)
	}

	// Initialize structured logging
	logLevel := getLogLevel(cfg.LogLevel)
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: logLevel,
	}))
	slog.SetDefault(logger)

	slog.Info("service starting", "log_level", logLevel.String(), "backend", cfg.Backend)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	svc, err := newService(ctx, cfg, logger)
	if err != nil {
		slog.Error("failed to initialize lookup", "error", err)
		os.Exit(1)
	}
	defer svc.lookup.Close()

	if err := run(ctx, cfg, logger, svc); err != nil {
		slog.Error("service failed", "error", err)
		os.Exit(1)
	}

	slog.Info("service stopped")
}

// service bundles the lookup chain and, for the ranges backend, the
// coordinator behind it.
type service struct {
	lookup   data.CountryLookup
	coord    *loader.Coordinator
	families []ipaddr.Family
}

func newService(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*service, error) {
	svc := &service{}
	var memo *data.Memoized

	switch cfg.Backend {
	case config.BackendMMDB:
		reader, err := data.NewMmdbReader(cfg.MMDBPath)
		if err != nil {
			return nil, err
		}
		slog.Info("MMDB loaded", "path", cfg.MMDBPath)
		svc.lookup = reader

	default:
		svc.coord = loader.New(loader.DirSource{Dir: cfg.DataDir},
			loader.WithLogger(logger),
			loader.WithStrict(cfg.Strict),
			loader.OnReplace(func(f ipaddr.Family) {
				if memo != nil {
					memo.Clear()
				}
			}),
		)

		opts := loader.DefaultOptions()
		opts.IncludeV6 = cfg.LoadIPv6
		svc.families = []ipaddr.Family{ipaddr.V4}
		if cfg.LoadIPv6 {
			svc.families = append(svc.families, ipaddr.V6)
		}

		if _, err := svc.coord.Load(ctx, opts); err != nil {
			return nil, err
		}
		slog.Info("range data loaded", "dir", cfg.DataDir, "ipv6", cfg.LoadIPv6)
		svc.lookup = data.NewRangeLookup(svc.coord)
	}

	if cfg.LookupCacheSize > 0 {
		m, err := data.NewMemoized(svc.lookup, cfg.LookupCacheSize)
		if err != nil {
			svc.lookup.Close()
			return nil, err
		}
		memo = m
		svc.lookup = m
	}

	return svc, nil
}

func (s *service) ready() error {
	if s.coord == nil {
		return nil
	}
	return s.coord.Ready(s.families...)
}

func (s *service) states() map[string]string {
	if s.coord == nil {
		return nil
	}
	out := make(map[string]string, len(ipaddr.Families))
	for _, f := range ipaddr.Families {
		out[f.String()] = s.coord.State(f).String()
	}
	return out
}

func run(ctx context.Context, cfg *config.Config, logger *slog.Logger, svc *service) error {
	// Set Gin mode based on log level
	if getLogLevel(cfg.LogLevel) == slog.LevelDebug {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.Use(ginLogger(logger))
	router.Use(gin.Recovery())

	healthHandler := health.NewHandler(svc.ready, svc.states)
	router.GET("/health", healthHandler.Health)
	router.GET("/ready", healthHandler.Ready)

	checkHandler := check.NewHandler(svc.lookup)
	lookupHandler := lookup.NewHandler(svc.lookup)
	api := router.Group("/api/v1")
	{
		api.POST("/check", checkHandler.Check)
		api.GET("/lookup/:ip", lookupHandler.Lookup)
	}

	srv := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: router,
	}

	grpcServer := grpc.NewServer()
	grpchandler.Register(grpcServer, grpchandler.NewHandler(svc.lookup))

	var lis net.Listener
	if cfg.GRPCPort != "" {
		var err error
		if lis, err = net.Listen("tcp", ":"+cfg.GRPCPort); err != nil {
			return err
		}
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		slog.Info("service started", "port", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	if lis != nil {
		g.Go(func() error {
			slog.Info("grpc service started", "port", cfg.GRPCPort)
			return grpcServer.Serve(lis)
		})
	}

	if cfg.Watch && svc.coord != nil {
		w, err := watch.New(cfg.DataDir, svc.coord, logger, watch.DefaultDebounce)
		if err != nil {
			return err
		}
		g.Go(func() error { return w.Run(gctx) })
	}

	g.Go(func() error {
		<-gctx.Done()
		slog.Info("service shutting down")

		// Graceful shutdown with 30s timeout
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		grpcServer.GracefulStop()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			slog.Error("server forced to shutdown", "error", err)
			return err
		}
		return nil
	})

	return g.Wait()
}

// getLogLevel converts string log level to slog.Level
func getLogLevel(level string) slog.Level {
	switch level {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// ginLogger creates a Gin middleware that logs using slog
func ginLogger(logger *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path
		method := c.Request.Method

		// Process request
		c.Next()

		duration := time.Since(start)
		statusCode := c.Writer.Status()

		attrs := []any{
			"method", method,
			"path", path,
			"status", statusCode,
			"duration_ms", duration.Milliseconds(),
		}

		if len(c.Errors) > 0 {
			logger.Error("request completed with errors", append(attrs, "errors", c.Errors.String())...)
		} else if statusCode >= 500 {
			logger.Error("request completed", attrs...)
		} else if statusCode >= 400 {
			logger.Warn("request completed", attrs...)
		} else {
			logger.Info("request completed", attrs...)
		}
	}
}
