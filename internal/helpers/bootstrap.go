package helpers

import (
	"context"
	"fmt"

	"aiswo-backend/internal/config"
	"aiswo-backend/internal/database"
	"aiswo-backend/internal/store"

	firebase "firebase.google.com/go/v4"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// NewLogger builds a production zap logger at the given level.
func NewLogger(level string) (*zap.Logger, error) {
	zcfg := zap.NewProductionConfig()
	if level != "" {
		lvl, err := zapcore.ParseLevel(level)
		if err != nil {
			return nil, fmt.Errorf("invalid log level %q: %w", level, err)
		}
		zcfg.Level = zap.NewAtomicLevelAt(lvl)
	}
	return zcfg.Build()
}

// Backend is an opened store plus the Firebase app behind it, if any.
type Backend struct {
	Store       store.Store
	FirebaseApp *firebase.App
}

// OpenStore connects the backend selected by cfg.StoreBackend and seeds
// demo data when cfg.SeedDemo is set.
func OpenStore(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*Backend, error) {
	var b Backend

	switch cfg.StoreBackend {
	case config.BackendFirebase:
		logger.Info("🔥 Connecting to Firebase...", zap.String("database_url", cfg.Firebase.DatabaseURL))
		app, err := store.NewFirebaseApp(ctx, store.FirebaseConfig{
			CredentialsFile:   cfg.Firebase.CredentialsFile,
			CredentialsBase64: cfg.Firebase.CredentialsBase64,
			DatabaseURL:       cfg.Firebase.DatabaseURL,
			ProjectID:         cfg.Firebase.ProjectID,
		})
		if err != nil {
			return nil, err
		}
		fs, err := store.NewFirebaseStore(ctx, app, logger)
		if err != nil {
			return nil, err
		}
		b.Store, b.FirebaseApp = fs, app

	case config.BackendPostgres, config.BackendSQLite:
		db, err := database.Connect(cfg.StoreBackend, cfg.DatabaseURL, logger)
		if err != nil {
			return nil, err
		}
		if err := database.Migrate(db, logger); err != nil {
			db.Close()
			return nil, err
		}
		b.Store = database.NewSQLStore(db, logger)

	case config.BackendMemory:
		logger.Info("💾 Using in-memory store (data is lost on restart)")
		b.Store = store.NewMemoryStore()

	default:
		return nil, fmt.Errorf("unknown store backend %q", cfg.StoreBackend)
	}

	if cfg.SeedDemo {
		if err := database.SeedDemo(ctx, b.Store, logger); err != nil {
			b.Store.Close()
			return nil, fmt.Errorf("failed to seed demo data: %w", err)
		}
	}

	logger.Info("✅ Store ready", zap.String("backend", cfg.StoreBackend))
	return &b, nil
}
