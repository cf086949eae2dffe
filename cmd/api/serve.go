package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/geocoder89/fellowship/internal/auth"
	"github.com/geocoder89/fellowship/internal/config"
	"github.com/geocoder89/fellowship/internal/db"
	httpx "github.com/geocoder89/fellowship/internal/http"
	"github.com/geocoder89/fellowship/internal/observability"
	"github.com/geocoder89/fellowship/internal/redisclient"
	"github.com/geocoder89/fellowship/internal/repo/postgres"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"
)

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API (default)",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd.Context())
		},
	}
}

func runServe(ctx context.Context) error {
	cfg, log, err := bootstrap()
	if err != nil {
		return err
	}

	shutdownTracer, err := observability.InitTracer(ctx, "fellowship-api", cfg.OTELEndpoint)
	if err != nil {
		return fmt.Errorf("init tracer: %w", err)
	}
	defer func() {
		sctx, cancel := config.WithTimeout(5 * time.Second)
		defer cancel()
		if err := shutdownTracer(sctx); err != nil {
			log.Error("tracer shutdown failed", "err", err)
		}
	}()

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	prom := observability.NewProm(reg)

	sessionPool, err := openPool(ctx, cfg.DBURL, 10)
	if err != nil {
		return err
	}
	defer sessionPool.Close()

	servicePool, err := openPool(ctx, cfg.ServiceDBURL, 5)
	if err != nil {
		return err
	}
	defer servicePool.Close()

	if err := db.Migrate(ctx, servicePool); err != nil {
		return err
	}

	serviceDB := postgres.NewServiceDB(servicePool, prom)
	sessionDB := postgres.NewSessionDB(sessionPool, prom)

	if err := db.EnsureAdminUser(ctx, postgres.NewUsersRepo(serviceDB), postgres.NewProfilesRepo(serviceDB), cfg, log); err != nil {
		return fmt.Errorf("seed admin: %w", err)
	}

	var rdb *redisclient.Client
	if cfg.UseRedis() {
		rdb = redisclient.New(redisclient.Config{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		defer rdb.Close()

		pctx, cancel := config.WithTimeoutFrom(ctx, 2*time.Second)
		err := rdb.Ping(pctx)
		cancel()
		if err != nil {
			// the content cache degrades to misses; readiness reports the outage
			log.Warn("redis unreachable at startup", "addr", cfg.RedisAddr, "err", err)
		}
	}

	jwtManager := auth.NewManager(cfg.JWTSecret, cfg.JWTAccessTTL, cfg.JWTRefreshTTL)
	authService := auth.NewService(jwtManager,
		postgres.NewUsersRepo(serviceDB),
		postgres.NewRefreshTokensRepo(serviceDB),
		log,
	)

	var shuttingDown atomic.Bool

	router := httpx.NewRouter(httpx.Deps{
		Config:    cfg,
		Log:       log,
		Prom:      prom,
		Gatherer:  reg,
		SessionDB: sessionDB,
		ServiceDB: serviceDB,
		Auth:      authService,
		Redis:     rdb,

		ShuttingDown: shuttingDown.Load,
	})

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	serveErr := make(chan error, 1)

	go func() {
		log.Info("server starting", "port", cfg.Port, "env", cfg.Env)
		err := srv.ListenAndServe()
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	// Graceful shutdown
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err, ok := <-serveErr:
		if ok {
			return fmt.Errorf("server failed: %w", err)
		}
		return nil
	case <-stop:
	}

	log.Info("server shutting down")
	shuttingDown.Store(true)

	sctx, cancel := config.WithTimeout(10 * time.Second)
	defer cancel()

	if err := srv.Shutdown(sctx); err != nil {
		log.Error("graceful shutdown failed", "err", err)
		return err
	}

	log.Info("shutdown complete")
	return nil
}
