package main

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	stdhttp "net/http"
	"os"
	"os/signal"
	"syscall"

	_ "github.com/lib/pq"
	"github.com/pollsystem/api/internal/adapters/handler/http"
	"github.com/pollsystem/api/internal/adapters/oauth/google"
	"github.com/pollsystem/api/internal/adapters/repository/memory"
	"github.com/pollsystem/api/internal/adapters/repository/postgres"
	"github.com/pollsystem/api/internal/adapters/token"
	"github.com/pollsystem/api/internal/config"
	"github.com/pollsystem/api/internal/core/ports"
	"github.com/pollsystem/api/internal/core/services"
	"github.com/pollsystem/api/internal/logger"
)

type repositories struct {
	tx    ports.Transactor
	polls ports.PollRepository
	votes ports.VoteRepository
	users ports.UserRepository
	auth  ports.AuthRepository
	stats ports.StatsRepository
}

func main() {
	cfg := config.MustLoad()
	log := logger.New(cfg.Env)
	slog.SetDefault(log)

	if err := cfg.Auth.Validate(); err != nil {
		log.Error("invalid auth config", slog.Any("error", err))
		os.Exit(1)
	}

	repos, closeStore, err := openStore(cfg, log)
	if err != nil {
		log.Error("failed to open storage", slog.Any("error", err))
		os.Exit(1)
	}
	defer closeStore()

	tokens := token.NewJWTManager(cfg.Auth.JWTSecret, cfg.Auth.AccessTTL)
	authSvc := services.NewAuthService(repos.users, repos.auth, google.NewVerifier(), tokens, services.AuthConfig{
		RefreshTTL:          cfg.Auth.RefreshTTL,
		GoogleClientID:      cfg.Auth.GoogleClientID,
		BootstrapAdminEmail: cfg.Auth.BootstrapAdminEmail,
	}, log)
	pollSvc := services.NewPollService(repos.tx, repos.polls, repos.votes, log)
	voteSvc := services.NewVoteService(repos.tx, repos.votes, log)
	userSvc := services.NewUserService(repos.users, repos.polls, repos.votes)
	adminSvc := services.NewAdminService(repos.tx, repos.users, repos.polls, repos.stats, log)

	handler := http.NewHandler(http.Handlers{
		Poll: http.NewPollHandler(pollSvc),
		Vote: http.NewVoteHandler(voteSvc),
		Auth: http.NewAuthHandler(authSvc, http.CookieConfig{
			Domain:     cfg.Auth.CookieDomain,
			SameSite:   stdhttp.SameSiteLaxMode,
			Secure:     cfg.Env != config.EnvLocal,
			AccessTTL:  cfg.Auth.AccessTTL,
			RefreshTTL: cfg.Auth.RefreshTTL,
		}),
		User:  http.NewUserHandler(userSvc),
		Admin: http.NewAdminHandler(adminSvc),
	}, authSvc, cfg.HTTP.AllowedOrigins)

	server := &stdhttp.Server{Addr: cfg.HTTP.Addr, Handler: handler}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go func() {
		log.Info("starting server", slog.String("addr", cfg.HTTP.Addr), slog.String("env", cfg.Env), slog.String("storage", cfg.Storage))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, stdhttp.ErrServerClosed) {
			log.Error("server failed", slog.Any("error", err))
			stop()
		}
	}()

	<-ctx.Done()
	log.Info("gracefully shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.HTTP.ShutdownTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error("shutdown failed", slog.Any("error", err))
	}
}

func openStore(cfg *config.Config, log *slog.Logger) (repositories, func(), error) {
	if cfg.Storage == config.StorageMemory {
		log.Warn("using in-memory storage, data is lost on restart")
		store := memory.NewStore()
		return repositories{
			tx:    memory.NewTransactor(store),
			polls: memory.NewPollRepository(store),
			votes: memory.NewVoteRepository(store),
			users: memory.NewUserRepository(store),
			auth:  memory.NewAuthRepository(store),
			stats: memory.NewStatsRepository(store),
		}, func() {}, nil
	}

	db, err := sql.Open("postgres", cfg.Postgres.DSN())
	if err != nil {
		return repositories{}, nil, err
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return repositories{}, nil, err
	}
	if err := postgres.MigrateUp(db); err != nil {
		db.Close()
		return repositories{}, nil, err
	}

	return repositories{
		tx:    postgres.NewTransactor(db),
		polls: postgres.NewPollRepository(db),
		votes: postgres.NewVoteRepository(db),
		users: postgres.NewUserRepository(db),
		auth:  postgres.NewAuthRepository(db),
		stats: postgres.NewStatsRepository(db),
	}, func() { db.Close() }, nil
}
