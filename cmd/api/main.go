package main

import (
	"context"
	"database/sql"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"

	"collabnotes.org/internal/auth"
	"collabnotes.org/internal/config"
	"collabnotes.org/internal/httpapi"
	"collabnotes.org/internal/obs"
	"collabnotes.org/internal/ratelimit"
)

var (
	version = "1.0.0"
	commit  = "dev"
)

func main() {
	// .env is optional; real deployments set the environment directly.
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	obs.Init()
	obs.InitBuildInfo(version, commit)

	var db *sql.DB
	if cfg.PGDSN != "" {
		db, err = sql.Open("pgx", cfg.PGDSN)
		if err != nil {
			log.Fatalf("open db: %v", err)
		}
		db.SetMaxOpenConns(10)
		db.SetMaxIdleConns(10)
		db.SetConnMaxLifetime(30 * time.Minute)
	} else {
		log.Fatal("missing DSN: set NOTES_PG_DSN")
	}

	codec, err := auth.NewCodec(cfg.AuthSecret)
	if err != nil {
		log.Fatalf("token codec: %v", err)
	}

	store := auth.NewPGStore(db)
	svc, err := auth.NewService(store, codec,
		auth.WithAccessTTL(cfg.AccessTTL),
		auth.WithRefreshTTL(cfg.RefreshTTL),
		auth.WithHasher(auth.NewHasher(cfg.BcryptCost)),
	)
	if err != nil {
		log.Fatalf("auth service: %v", err)
	}

	// Attempt throttle: shared Redis ledger when configured, otherwise the
	// process-local one (single-instance deployments).
	var throttle ratelimit.Store = ratelimit.NewMemoryStore()
	if cfg.RedisAddr != "" {
		throttle = ratelimit.NewRedisStore(redis.NewClient(&redis.Options{
			Addr: cfg.RedisAddr,
		}))
	}

	api := httpapi.New(httpapi.Config{
		Service:        svc,
		Policy:         auth.NewPolicy(store),
		Throttle:       throttle,
		ReadyProbe:     httpapi.ReadyProbe{DB: db},
		Version:        version,
		SecureCookies:  cfg.IsProduction(),
		AllowedOrigins: cfg.AllowedOrigins,
	})

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           api.Handler(),
		ReadTimeout:       15 * time.Second,
		ReadHeaderTimeout: 15 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	log.Printf("Starting collabnotes-api %s on %s", version, srv.Addr)

	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("listen: %v", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	<-stop
	log.Println("Shutting down...")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	_ = srv.Shutdown(ctx)
	_ = db.Close()
	log.Println("Stopped")
}
