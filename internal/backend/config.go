package backend

import (
	"fmt"
	"time"

	"financebuddy/internal/config"
)

const (
	defaultTokenCacheSize = 1024
	defaultTokenCacheTTL  = 5 * time.Minute
)

// FromAppConfig converts the application config to backend config
func FromAppConfig(appConfig *config.Config) (Config, error) {
	if appConfig == nil {
		return Config{}, fmt.Errorf("app config is nil")
	}

	backendType := BackendType(appConfig.DataBackend)
	if !backendType.IsValid() {
		return Config{}, fmt.Errorf("invalid backend type in config: %s", appConfig.DataBackend)
	}

	return Config{
		Type: backendType,

		SQLiteDBPath: appConfig.SQLiteDBPath,
		SeedFile:     appConfig.MemorySeedFile,

		APIURL:     appConfig.TransactionAPIURL,
		APITimeout: appConfig.TransactionAPITimeout,

		SupabaseURL:   appConfig.SupabaseURL,
		SupabaseKey:   appConfig.SupabaseKey,
		SupabaseTable: appConfig.SupabaseTable,
	}, nil
}

// IdentityFromAppConfig converts the application config to verifier config.
func IdentityFromAppConfig(appConfig *config.Config) (IdentityConfig, error) {
	if appConfig == nil {
		return IdentityConfig{}, fmt.Errorf("app config is nil")
	}
	tokens, err := appConfig.ParseStaticTokens()
	if err != nil {
		return IdentityConfig{}, err
	}
	return IdentityConfig{
		Provider:        appConfig.IdentityProvider,
		ProjectID:       appConfig.FirebaseProjectID,
		CredentialsFile: appConfig.FirebaseCredentialsFile,
		StaticTokens:    tokens,
		CacheSize:       defaultTokenCacheSize,
		CacheTTL:        defaultTokenCacheTTL,
	}, nil
}

// Validate validates the backend configuration
func (c Config) Validate() error {
	if !c.Type.IsValid() {
		return fmt.Errorf("invalid backend type: %s", c.Type)
	}

	switch c.Type {
	case SQLiteBackend:
		if c.SQLiteDBPath == "" {
			return fmt.Errorf("SQLite database path is required for sqlite backend")
		}
	case RemoteBackend:
		if c.APIURL == "" {
			return fmt.Errorf("transaction API URL is required for remote backend")
		}
		if c.APITimeout <= 0 {
			return fmt.Errorf("transaction API timeout must be positive for remote backend")
		}
	case SupabaseBackend:
		if c.SupabaseURL == "" || c.SupabaseKey == "" {
			return fmt.Errorf("Supabase URL and key are required for supabase backend")
		}
	case MemoryBackend:
		// An empty seed file means an empty store.
	}

	return nil
}

// GetBackendTypes returns all valid backend types
func GetBackendTypes() []BackendType {
	return []BackendType{SQLiteBackend, MemoryBackend, RemoteBackend, SupabaseBackend}
}

// GetBackendTypeStrings returns all valid backend type strings
func GetBackendTypeStrings() []string {
	types := GetBackendTypes()
	strings := make([]string, len(types))
	for i, t := range types {
		strings[i] = t.String()
	}
	return strings
}
