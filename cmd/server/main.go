package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/BaGreal2/cinematch-server/internal/config"
	"github.com/BaGreal2/cinematch-server/internal/db"
	"github.com/BaGreal2/cinematch-server/internal/fbapp"
	"github.com/BaGreal2/cinematch-server/internal/handler"
	"github.com/BaGreal2/cinematch-server/internal/lobby"
	"github.com/BaGreal2/cinematch-server/internal/middleware"
	"github.com/BaGreal2/cinematch-server/internal/realtime"
	"github.com/BaGreal2/cinematch-server/internal/store/firebasestore"
	"github.com/BaGreal2/cinematch-server/internal/store/memstore"
	"github.com/BaGreal2/cinematch-server/internal/store/sqlstore"
	"github.com/BaGreal2/cinematch-server/internal/tmdb"

	firebase "firebase.google.com/go/v4"
)

const janitorInterval = 10 * time.Minute

func main() {
	os.Exit(serve(config.NewLogger))
}

// serve returns the process exit code. Deferred cleanup, the final log flush
// included, runs before main exits.
func serve(newLogger func(debug bool) (*zap.Logger, error)) int {
	envErr := config.LoadEnv()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, "config:", err)
		return 1
	}

	log, err := newLogger(cfg.Debug)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	defer log.Sync()

	if envErr != nil {
		log.Warn(".env file not found")
	}
	if cfg.PropertiesFile != "" {
		log.Info("loaded secrets", zap.String("file", cfg.PropertiesFile))
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, log); err != nil {
		log.Error("server stopped", zap.Error(err))
		return 1
	}
	return 0
}

func run(ctx context.Context, cfg *config.Config, log *zap.Logger) error {
	database, err := db.Open(ctx, cfg.DBDriver, cfg.DatabaseURL)
	if err != nil {
		return err
	}
	defer database.Close()

	var app *firebase.App
	if cfg.LobbyStore == config.StoreFirebase || cfg.FirebaseAuth {
		app, err = fbapp.New(ctx, fbapp.Config{
			DatabaseURL:     cfg.FirebaseURL,
			CredentialsFile: cfg.FirebaseCredentials,
			ProjectID:       cfg.FirebaseProjectID,
		})
		if err != nil {
			return err
		}
	}

	var store lobby.Store
	switch cfg.LobbyStore {
	case config.StoreFirebase:
		client, err := app.Database(ctx)
		if err != nil {
			return fmt.Errorf("firebase database: %w", err)
		}
		store = firebasestore.New(client)
	case config.StoreMemory:
		store = memstore.New()
	default:
		store = sqlstore.NewLobbies(database)
	}

	jwt := middleware.NewJWT(cfg.JWTSecret)
	verifiers := middleware.Verifiers{jwt}
	if cfg.FirebaseAuth {
		authClient, err := app.Auth(ctx)
		if err != nil {
			return fmt.Errorf("firebase auth: %w", err)
		}
		verifiers = append(verifiers, middleware.NewFirebaseVerifier(authClient))
	}

	tmdbOpts := []tmdb.Option{
		tmdb.WithLogger(log.Named("tmdb")),
		tmdb.WithAPIKey(cfg.TMDBAPIKey),
		tmdb.WithHTTPClient(&http.Client{Timeout: cfg.TMDBTimeout}),
	}
	if cfg.TMDBBaseURL != "" {
		tmdbOpts = append(tmdbOpts, tmdb.WithBaseURL(cfg.TMDBBaseURL))
	}
	client := tmdb.NewClient(cfg.TMDBToken, tmdbOpts...)

	hub := realtime.NewHub(log.Named("realtime"))
	svc := lobby.NewService(store, client,
		lobby.WithPublisher(hub),
		lobby.WithLogger(log.Named("lobby")),
		lobby.WithDeckPages(cfg.DeckPages),
	)

	srv := &http.Server{
		Addr: cfg.Addr(),
		Handler: handler.NewRouter(handler.Deps{
			Users:   sqlstore.NewUsers(database),
			Tokens:  jwt,
			Auth:    verifiers,
			TMDB:    client,
			Lobbies: svc,
			Hub:     hub,
			Log:     log.Named("http"),
		}),
		ReadHeaderTimeout: 10 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return ctx },
	}

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		svc.RunJanitor(ctx, cfg.LobbyTTL, janitorInterval)
		return nil
	})
	g.Go(func() error {
		log.Info("server started",
			zap.String("addr", srv.Addr),
			zap.String("db", cfg.DBDriver),
			zap.String("lobbies", cfg.LobbyStore))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		log.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})
	return g.Wait()
}
