package main

import (
	"context"
	"database/sql"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	authservice "authcore/internal/auth/service"
	"authcore/internal/auth/store"
	refreshtoken "authcore/internal/auth/store/refresh-token"
	"authcore/internal/auth/store/revocation"
	"authcore/internal/auth/store/uow"
	userstore "authcore/internal/auth/store/user"
	"authcore/internal/auth/sweeper"
	"authcore/internal/hasher"
	jwttoken "authcore/internal/jwt_token"
	"authcore/internal/platform/config"
	"authcore/internal/platform/database"
	"authcore/internal/platform/httpserver"
	"authcore/internal/platform/logger"
	"authcore/internal/platform/metrics"
	platformredis "authcore/internal/platform/redis"
	httptransport "authcore/internal/transport/http"
	userservice "authcore/internal/user/service"
)

const shutdownTimeout = 10 * time.Second

// main wires dependencies and owns the process lifecycle; all business
// logic lives in the internal services.
func main() {
	cfg := config.FromEnv()
	log := logger.New()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	m := metrics.New()

	db, err := openDatabase(ctx, cfg)
	if err != nil {
		log.Error("storage setup failed", "error", err)
		os.Exit(1)
	}

	unit := buildUnitOfWork(db)

	trl, err := buildRevocationList(ctx, cfg, db)
	if err != nil {
		log.Error("revocation list setup failed", "error", err)
		os.Exit(1)
	}

	signer := jwttoken.NewJWTService(cfg.JWTSigningKey, cfg.JWTIssuer, cfg.JWTAudience)
	passwordHasher := hasher.NewArgon2id()

	auth := authservice.NewService(unit, signer, passwordHasher, trl, log, m)
	auth.AccessTokenTTL = cfg.AccessTokenTTL
	auth.RefreshTokenTTL = cfg.RefreshTokenTTL
	if cfg.TRLFailOnError {
		auth.TRLFailureMode = authservice.TRLFailureModeFail
	}

	users := userservice.NewService(unit, passwordHasher, log, m)

	router := httptransport.NewRouter(
		httptransport.NewAuthHandler(auth, users),
		httptransport.NewUsersHandler(users),
		auth,
		log,
	)
	srv := httpserver.New(cfg.Addr, router)

	sweep := sweeper.New(unit, log, m, sweeper.WithInterval(cfg.SweeperInterval))

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info("starting authcore", "addr", cfg.Addr, "postgres", cfg.DatabaseURL != "", "redis", cfg.RedisURL != "")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		if err := sweep.Run(gctx); err != nil && !errors.Is(err, context.Canceled) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		log.Error("server exited", "error", err)
		os.Exit(1)
	}
	log.Info("shutdown complete")
}

// openDatabase connects PostgreSQL and applies the schema when a database
// URL is configured. Returns (nil, nil) otherwise: the database is optional.
func openDatabase(ctx context.Context, cfg config.Config) (*sql.DB, error) {
	if cfg.DatabaseURL == "" {
		return nil, nil
	}
	db, err := database.Open(ctx, cfg.DatabaseURL)
	if err != nil {
		return nil, err
	}
	if err := database.EnsureSchema(ctx, db); err != nil {
		return nil, err
	}
	return db, nil
}

// buildUnitOfWork selects the storage backend: PostgreSQL when the database
// is configured, otherwise the in-memory stores.
func buildUnitOfWork(db *sql.DB) store.UnitOfWork {
	if db == nil {
		return uow.NewMemory(userstore.New(), refreshtoken.New())
	}
	return uow.NewPostgres(db,
		userstore.NewPostgresUserStore(db),
		refreshtoken.NewPostgresRefreshTokenStore(db),
	)
}

// buildRevocationList prefers Redis, then the database, and falls back to
// the in-memory list, which only suits a single instance.
func buildRevocationList(ctx context.Context, cfg config.Config, db *sql.DB) (revocation.TokenRevocationList, error) {
	client, err := platformredis.New(ctx, cfg.RedisURL)
	if err != nil {
		return nil, err
	}
	if client != nil {
		return revocation.NewRedisTRL(client.Client), nil
	}
	if db != nil {
		return revocation.NewPostgresTRL(db), nil
	}
	return revocation.NewMemoryTRL(), nil
}
