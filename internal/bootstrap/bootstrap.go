// Package bootstrap wires the portfolio service from configuration. It is
// shared by the API server and the portfolioctl admin tool.
package bootstrap

import (
	"context"
	"database/sql"
	"fmt"
	"net/http"
	"os"
	"strings"

	"go.uber.org/zap"

	"portfolio/api/internal/ai"
	"portfolio/api/internal/app"
	"portfolio/api/internal/authpw"
	"portfolio/api/internal/config"
	"portfolio/api/internal/email"
	"portfolio/api/internal/history"
	"portfolio/api/internal/metrics"
	"portfolio/api/internal/search"
	"portfolio/api/internal/session"
	"portfolio/api/internal/store"
	"portfolio/api/internal/uploads"
)

// Runtime holds the wired service and the resources that must be released
// on shutdown.
type Runtime struct {
	Config    config.Config
	Log       *zap.Logger
	DB        *sql.DB
	Store     *store.PostgresStore
	Service   *app.Service
	Passwords *authpw.Service
	Search    *search.Service
	Metrics   *metrics.Metrics
	// Files serves filesystem uploads; nil when uploads go to MinIO or are
	// disabled.
	Files http.Handler

	closers []func()
}

// Open connects to Postgres, applies migrations and wires every optional
// backend the configuration enables. Backends that fail to start are logged
// and left out; only the database is required.
func Open(ctx context.Context, cfg config.Config, log *zap.Logger) (*Runtime, error) {
	db, err := store.Open(ctx, cfg.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("database connection failed: %w", err)
	}
	rt := &Runtime{Config: cfg, Log: log, DB: db, Metrics: metrics.New()}
	rt.closers = append(rt.closers, func() { _ = db.Close() })

	applied, err := store.ApplyMigrations(ctx, db, cfg.MigrationsDir)
	if err != nil {
		rt.Close()
		return nil, fmt.Errorf("migrations failed: %w", err)
	}
	for _, version := range applied {
		log.Info("migration applied", zap.String("version", version))
	}

	rt.Store = store.NewPostgresStore(db)
	rt.Passwords = authpw.NewService(rt.Store)
	rt.Search = rt.openSearch()

	deps := app.Deps{
		Config:    cfg,
		Store:     rt.Store,
		Repos:     app.RepositoriesFrom(rt.Store),
		Passwords: rt.Passwords,
		Search:    rt.Search,
		AI:        rt.openAI(ctx),
		Uploads:   rt.openUploads(ctx),
		Email: email.NewService(email.Config{
			Host:     cfg.SMTPHost,
			Port:     cfg.SMTPPort,
			Username: cfg.SMTPUsername,
			Password: cfg.SMTPPassword,
			From:     cfg.SMTPFrom,
			FromName: cfg.SMTPFromName,
			NotifyTo: cfg.NotifyEmail,
		}),
		Log: log,
	}
	if dir := strings.TrimSpace(cfg.HistoryDir); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			log.Warn("blog history disabled", zap.String("dir", dir), zap.Error(err))
		} else {
			deps.History = history.New(dir)
		}
	}

	if strings.TrimSpace(cfg.RedisURL) != "" {
		redisStore, err := session.NewRedisStore(cfg.RedisURL)
		if err != nil {
			rt.Close()
			return nil, fmt.Errorf("redis connection failed: %w", err)
		}
		rt.closers = append(rt.closers, func() { _ = redisStore.Close() })
		deps.Sessions = redisStore
		log.Info("using redis for session storage")
	} else {
		log.Info("using postgres for session storage")
	}

	rt.Service = app.New(deps)
	return rt, nil
}

func (rt *Runtime) openSearch() *search.Service {
	pgfts := search.NewPgFTS(rt.DB)
	if strings.TrimSpace(rt.Config.MeiliURL) == "" {
		return search.NewService(nil, pgfts, pgfts, rt.Log)
	}
	meili := search.NewMeili(rt.Config.MeiliURL, rt.Config.MeiliMasterKey, rt.Log)
	rt.closers = append(rt.closers, meili.Close)
	return search.NewService(meili, pgfts, pgfts, rt.Log)
}

func (rt *Runtime) openAI(ctx context.Context) *ai.Service {
	if strings.TrimSpace(rt.Config.GeminiAPIKey) == "" {
		return ai.NewService(nil, nil)
	}
	gemini, err := ai.NewGemini(ctx, rt.Config.GeminiAPIKey, rt.Config.GeminiModel)
	if err != nil {
		rt.Log.Warn("ai generation disabled", zap.Error(err))
		return ai.NewService(nil, nil)
	}
	return ai.NewService(gemini, rt.Metrics.ObserveGeneration)
}

func (rt *Runtime) openUploads(ctx context.Context) *uploads.Service {
	cfg := rt.Config
	if strings.TrimSpace(cfg.MinIOEndpoint) != "" {
		bucket, err := uploads.NewMinIO(ctx, uploads.MinIOConfig{
			Endpoint:   cfg.MinIOEndpoint,
			AccessKey:  cfg.MinIOAccessKey,
			SecretKey:  cfg.MinIOSecretKey,
			Bucket:     cfg.MinIOBucket,
			UseSSL:     cfg.MinIOUseSSL,
			PublicBase: cfg.UploadsPublicBase,
		})
		if err != nil {
			rt.Log.Warn("uploads disabled", zap.String("backend", "minio"), zap.Error(err))
			return nil
		}
		return uploads.NewService(bucket, cfg.UploadsMaxBytes)
	}
	if strings.TrimSpace(cfg.UploadsDir) == "" {
		return nil
	}
	fs, err := uploads.NewFilesystem(cfg.UploadsDir, cfg.UploadsPublicBase)
	if err != nil {
		rt.Log.Warn("uploads disabled", zap.String("backend", "filesystem"), zap.Error(err))
		return nil
	}
	rt.Files = fs.Handler()
	return uploads.NewService(fs, cfg.UploadsMaxBytes)
}

// EnsureAdmin creates the configured bootstrap account when no user exists.
func (rt *Runtime) EnsureAdmin(ctx context.Context) error {
	created, err := rt.Passwords.EnsureAdmin(ctx, authpw.CreateUserRequest{
		Email:    rt.Config.AdminEmail,
		Password: rt.Config.AdminPassword,
		Name:     rt.Config.AdminName,
	})
	if err != nil {
		return err
	}
	if created {
		rt.Log.Info("bootstrap admin created", zap.String("email", rt.Config.AdminEmail))
	}
	return nil
}

// Close releases resources in reverse order of acquisition.
func (rt *Runtime) Close() {
	for i := len(rt.closers) - 1; i >= 0; i-- {
		rt.closers[i]()
	}
	rt.closers = nil
}
