package main

import (
	"context"
	"crypto/subtle"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"vigil/api/config"
	"vigil/api/engine"
	"vigil/api/handler"
	"vigil/api/hub"
	"vigil/api/logger"
	"vigil/api/notify"
	"vigil/api/probe"
	"vigil/api/sched"
	"vigil/api/store"
	"vigil/api/sysinfo"
)

var Version = "dev"

func main() {
	cfg, err := config.Load()
	if err != nil {
		os.Stderr.WriteString("config: " + err.Error() + "\n")
		os.Exit(1)
	}

	logger.Init(cfg.LogLevel)
	log := logger.WithComponent("main")

	db, err := store.Connect(cfg.DatabaseURL)
	if err != nil {
		log.Fatal().Err(err).Msg("database connect")
	}
	defer db.Close()

	if err := store.Migrate(db); err != nil {
		log.Fatal().Err(err).Msg("migration")
	}

	allowedOrigins := []string{"http://localhost:5173", "http://localhost:3000"}
	if cfg.AllowedOrigins != "" {
		for _, o := range strings.Split(cfg.AllowedOrigins, ",") {
			o = strings.TrimSpace(o)
			if o != "" {
				allowedOrigins = append(allowedOrigins, o)
			}
		}
	}

	ws := hub.New(allowedOrigins)
	go ws.Run()

	var senders []notify.Sender
	senders = append(senders, notify.NewEmailSender(cfg.SMTP))
	if cfg.Webhook.Enabled && cfg.Webhook.URL != "" {
		senders = append(senders, notify.NewWebhookSender(cfg.Webhook.URL))
	}

	sampler := sysinfo.New()
	eng := engine.New(db, probe.New(), sampler, senders, ws, cfg.AlertCooldown)

	scheduler := sched.New(eng, db, sched.Config{
		CheckInterval:        cfg.CheckInterval,
		SystemInterval:       cfg.SystemInterval,
		SystemMonitorEnabled: cfg.SystemMonitorEnabled,
		RetentionDays:        cfg.RetentionDays,
	})
	if err := scheduler.Start(); err != nil {
		log.Fatal().Err(err).Msg("scheduler")
	}

	h := handler.New(db, eng, sampler)

	r := chi.NewRouter()
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   allowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Content-Type", "Authorization"},
		AllowCredentials: true,
	}))

	if cfg.APIToken != "" {
		r.Use(bearerAuth(cfg.APIToken))
		log.Info().Msg("API token auth enabled")
	}

	r.Route("/api", func(r chi.Router) {
		r.Get("/health", h.Health)

		r.Route("/monitors", func(r chi.Router) {
			r.Get("/", h.ListMonitors)
			r.Post("/", h.CreateMonitor)
			r.Route("/{id}", func(r chi.Router) {
				r.Use(handler.ValidateMonitorID)
				r.Get("/", h.GetMonitor)
				r.Put("/", h.UpdateMonitor)
				r.Delete("/", h.DeleteMonitor)
				r.Post("/check", h.CheckMonitorNow)
			})
		})

		r.Route("/metrics", func(r chi.Router) {
			r.Get("/", h.ListMetrics)
			r.Get("/summary", h.MetricsSummary)
			r.Get("/system", h.ListSystemMetrics)
		})

		r.Route("/alerts", func(r chi.Router) {
			r.Get("/", h.ListAlerts)
			r.Get("/stats", h.AlertStats)
			r.Get("/{id}", h.GetAlert)
			r.Post("/{id}/acknowledge", h.AcknowledgeAlert)
		})

		r.Get("/analytics/uptime", h.UptimeReport)
		r.Get("/system/metrics", h.CurrentSystemMetrics)
	})

	r.Get("/ws", ws.HandleConnect)
	r.Handle("/metrics", promhttp.Handler())

	srv := &http.Server{
		Addr:    cfg.BindAddr + ":" + cfg.Port,
		Handler: r,
	}

	go func() {
		log.Info().Str("version", Version).Str("addr", srv.Addr).Msg("listening")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("server")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("shutting down...")
	scheduler.Stop()
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	srv.Shutdown(ctx)
}

func bearerAuth(token string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			// Health, metrics scrape and the websocket stay open.
			if r.URL.Path == "/ws" || r.URL.Path == "/api/health" || r.URL.Path == "/metrics" {
				next.ServeHTTP(w, r)
				return
			}
			auth := r.Header.Get("Authorization")
			if !strings.HasPrefix(auth, "Bearer ") ||
				subtle.ConstantTimeCompare([]byte(strings.TrimPrefix(auth, "Bearer ")), []byte(token)) != 1 {
				http.Error(w, "unauthorized", http.StatusUnauthorized)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
