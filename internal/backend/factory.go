package backend

import (
	"context"
	"fmt"

	"financebuddy/internal/identity"
	"financebuddy/internal/ledger/memory"
	"financebuddy/internal/ledger/remote"
	"financebuddy/internal/ledger/supabase"
	"financebuddy/internal/log"
	"financebuddy/internal/storage"
)

// DefaultFactory implements the Factory interface
type DefaultFactory struct {
	logger *log.Logger
}

// NewFactory creates a new backend factory
func NewFactory(logger *log.Logger) Factory {
	if logger == nil {
		logger = log.New(log.DefaultConfig())
	}
	return &DefaultFactory{
		logger: logger.WithComponent(log.ComponentBackend),
	}
}

func noPing(context.Context) error { return nil }

func noCleanup() error { return nil }

// CreateBackend implements Factory.CreateBackend
func (f *DefaultFactory) CreateBackend(ctx context.Context, config Config) (*BackendResult, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	switch config.Type {
	case SQLiteBackend:
		return f.createSQLiteBackend(config)
	case MemoryBackend:
		return f.createMemoryBackend(config)
	case RemoteBackend:
		return f.createRemoteBackend(config)
	case SupabaseBackend:
		return f.createSupabaseBackend(config)
	default:
		return nil, fmt.Errorf("unsupported backend type: %s", config.Type)
	}
}

func (f *DefaultFactory) createSQLiteBackend(config Config) (*BackendResult, error) {
	repo, err := storage.NewSQLiteRepository(config.SQLiteDBPath)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize SQLite repository: %w", err)
	}

	f.logger.Info("Initialized SQLite backend", "db_path", config.SQLiteDBPath)

	return &BackendResult{
		Ledger:  repo,
		Ping:    repo.Ping,
		Cleanup: repo.Close,
	}, nil
}

func (f *DefaultFactory) createMemoryBackend(config Config) (*BackendResult, error) {
	store := memory.New()
	if config.SeedFile != "" {
		seeded, skipped, err := memory.NewFromFile(config.SeedFile)
		if err != nil {
			return nil, fmt.Errorf("failed to seed memory backend: %w", err)
		}
		store = seeded
		if skipped > 0 {
			f.logger.Warn("Skipped invalid seed records", "seed_file", config.SeedFile, log.FieldRejected, skipped)
		}
	}

	f.logger.Info("Initialized memory backend", "seed_file", config.SeedFile)

	return &BackendResult{
		Ledger:  store,
		Ping:    noPing,
		Cleanup: noCleanup,
	}, nil
}

func (f *DefaultFactory) createRemoteBackend(config Config) (*BackendResult, error) {
	client, err := remote.New(config.APIURL, config.APITimeout)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize transaction API client: %w", err)
	}

	f.logger.Info("Initialized remote backend", "url", config.APIURL, "timeout", config.APITimeout)

	// Readiness of the remote service needs a user token; the server only
	// checks its own wiring.
	return &BackendResult{
		Ledger:  client,
		Ping:    noPing,
		Cleanup: noCleanup,
	}, nil
}

func (f *DefaultFactory) createSupabaseBackend(config Config) (*BackendResult, error) {
	repo, err := supabase.New(config.SupabaseURL, config.SupabaseKey, config.SupabaseTable)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize Supabase backend: %w", err)
	}

	f.logger.Info("Initialized Supabase backend", "table", config.SupabaseTable)

	return &BackendResult{
		Ledger:  repo,
		Ping:    noPing,
		Cleanup: noCleanup,
	}, nil
}

// CreateVerifier builds the token verifier. Verified sessions are cached.
func (f *DefaultFactory) CreateVerifier(ctx context.Context, config IdentityConfig) (identity.Verifier, error) {
	var v identity.Verifier
	switch config.Provider {
	case "static":
		if len(config.StaticTokens) == 0 {
			return nil, fmt.Errorf("static identity needs at least one token")
		}
		f.logger.Warn("Using static token identity; do not use in production", "tokens", len(config.StaticTokens))
		return identity.StaticVerifier(config.StaticTokens), nil
	case "firebase":
		fv, err := identity.NewFirebaseVerifier(ctx, config.ProjectID, config.CredentialsFile)
		if err != nil {
			return nil, err
		}
		f.logger.Info("Initialized Firebase identity", "project_id", config.ProjectID)
		v = fv
	default:
		return nil, fmt.Errorf("unsupported identity provider: %s", config.Provider)
	}

	size, ttl := config.CacheSize, config.CacheTTL
	if size < 1 {
		size = defaultTokenCacheSize
	}
	if ttl <= 0 {
		ttl = defaultTokenCacheTTL
	}
	cache := identity.NewTokenCache(size, ttl)
	go cache.RunJanitor(ctx, ttl)
	return identity.NewCachingVerifier(v, cache), nil
}
