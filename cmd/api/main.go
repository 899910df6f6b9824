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

	"github.com/joho/godotenv"

	"ems.org/internal/auth"
	"ems.org/internal/ems"
	"ems.org/internal/httpapi"
	"ems.org/internal/obs"
	"ems.org/internal/store/pg"
)

var version = "1.2.0"

func main() {
	// .env is optional; real deployments set the environment directly.
	_ = godotenv.Load()

	obs.Init()
	obs.InitBuildInfo(version, os.Getenv("EMS_COMMIT"))

	secret := os.Getenv("EMS_JWT_SECRET")
	if secret == "" {
		log.Fatal("EMS_JWT_SECRET is required (at least 32 bytes)")
	}
	tokens, err := auth.NewTokenManager(auth.TokenConfig{
		Secret:     []byte(secret),
		Issuer:     envOr("EMS_JWT_ISSUER", "ems-api"),
		Audience:   envOr("EMS_JWT_AUDIENCE", "ems-clients"),
		AccessTTL:  envDuration("EMS_ACCESS_TTL", 0),
		RefreshTTL: envDuration("EMS_REFRESH_TTL", 0),
	})
	if err != nil {
		log.Fatalf("token manager: %v", err)
	}

	// DB is optional: without a DSN the service runs fully in memory, which
	// is how local development and the smoke tool use it.
	var (
		db        *sql.DB
		userStore auth.Store
		emsStore  ems.Store
	)
	if dsn := os.Getenv("EMS_PG_DSN"); dsn != "" {
		pgStore, err := pg.Open(dsn)
		if err != nil {
			log.Fatalf("open db: %v", err)
		}
		db = pgStore.DB()
		userStore = auth.NewPGStore(db)
		emsStore = pgStore
	} else {
		log.Print("EMS_PG_DSN not set, using in-memory stores")
		userStore = auth.NewMemoryStore()
		emsStore = ems.NewMemoryStore()
	}

	authSvc := auth.NewService(userStore, tokens)
	emsSvc := ems.NewService(emsStore)

	if os.Getenv("EMS_SEED") != "false" {
		if err := seed(context.Background(), authSvc, emsSvc); err != nil {
			log.Fatalf("seed: %v", err)
		}
	}

	api := httpapi.New(authSvc, emsSvc, httpapi.ReadyProbe{DB: db}, version)

	srv := &http.Server{
		Addr:              envOr("EMS_ADDR", ":8080"),
		Handler:           api.Handler(),
		ReadTimeout:       15 * time.Second,
		ReadHeaderTimeout: 15 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	log.Printf("Starting ems-api %s on %s", version, srv.Addr)

	// graceful shutdown
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
	if db != nil {
		_ = db.Close()
	}
	log.Println("Stopped")
}

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func envDuration(key string, def time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		log.Fatalf("%s: %v", key, err)
	}
	return d
}
