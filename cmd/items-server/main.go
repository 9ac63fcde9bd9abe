package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/jwtauth"
	"github.com/tendant/chi-demo/app"
	"github.com/tendant/simple-items/internal/logger"
	"github.com/tendant/simple-items/pkg/items"
	"github.com/tendant/simple-items/pkg/items/api"
	"github.com/tendant/simple-items/pkg/items/config"
)

func main() {
	portFlag := flag.String("port", "", "HTTP port (overrides ITEMS_PORT)")
	usageFlag := flag.Bool("env-usage", false, "Print the environment variables and exit")
	flag.Parse()

	if *usageFlag {
		usage, err := config.Usage()
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(1)
		}
		fmt.Println(usage)
		return
	}

	opts := []config.Option{config.WithEnv()}
	if *portFlag != "" {
		opts = append(opts, config.WithPort(*portFlag))
	}
	cfg, err := config.Load(opts...)
	if err != nil {
		slog.Error("Failed to load configuration", "err", err)
		os.Exit(1)
	}

	log := logger.New(cfg.LogLevel, cfg.LogFormat)
	slog.SetDefault(log)

	ctx := context.Background()
	rt, err := cfg.Build(ctx, log)
	if err != nil {
		log.Error("Failed to build item service", "err", err)
		os.Exit(1)
	}
	defer rt.Close()

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))

	app.RoutesHealthz(r)
	app.RoutesHealthzReady(r)

	handler := api.NewItemHandler(rt.Service,
		api.WithReports(rt.Reports),
		api.WithURLBuilder(rt.URLs),
		api.WithLogger(log),
	)

	r.Route("/api/v1", func(r chi.Router) {
		if cfg.JWTSecret != "" {
			r.Use(jwtauth.Verifier(jwtauth.New("HS256", []byte(cfg.JWTSecret), nil)))
		} else {
			log.Warn("ITEMS_JWT_SECRET is not set, every request acts as the super user")
			r.Use(defaultActor(items.Actor{User: &items.User{ID: 1, Super: true}}))
		}
		r.Mount("/items", handler.Routes())
	})

	httpServer := &http.Server{
		Addr:    fmt.Sprintf(":%s", cfg.Port),
		Handler: r,
	}

	go func() {
		log.Info("Item server starting",
			"port", cfg.Port,
			"env", cfg.Environment,
			"database", cfg.DatabaseType,
			"languages", cfg.Languages,
			"notifier", cfg.NotifierType,
			"reports", cfg.ReportStorage.Type)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("Server error", "err", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Error("Server forced to shutdown", "err", err)
	}
	log.Info("Server exiting")
}

func defaultActor(actor items.Actor) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			next.ServeHTTP(w, r.WithContext(api.WithActor(r.Context(), actor)))
		})
	}
}
