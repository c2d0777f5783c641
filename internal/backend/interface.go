package backend

import (
	"context"
	"time"

	"financebuddy/internal/identity"
	"financebuddy/internal/ledger"
)

// CleanupFunc represents a cleanup function for resources
type CleanupFunc func() error

// PingFunc reports whether the transaction service is reachable.
type PingFunc func(ctx context.Context) error

// BackendResult contains the ledger and its lifecycle hooks. Ping and
// Cleanup are never nil.
type BackendResult struct {
	Ledger  ledger.Ledger
	Ping    PingFunc
	Cleanup CleanupFunc
}

// Factory creates the collaborators selected by configuration.
type Factory interface {
	CreateBackend(ctx context.Context, config Config) (*BackendResult, error)
	CreateVerifier(ctx context.Context, config IdentityConfig) (identity.Verifier, error)
}

// Config holds configuration for backend creation
type Config struct {
	Type BackendType

	// SQLite specific
	SQLiteDBPath string

	// Memory specific
	SeedFile string

	// Remote specific
	APIURL     string
	APITimeout time.Duration

	// Supabase specific
	SupabaseURL   string
	SupabaseKey   string
	SupabaseTable string
}

// IdentityConfig selects and configures the token verifier.
type IdentityConfig struct {
	Provider        string
	ProjectID       string
	CredentialsFile string
	StaticTokens    map[string]string
	CacheSize       int
	CacheTTL        time.Duration
}

// BackendType represents the type of backend
type BackendType string

const (
	SQLiteBackend   BackendType = "sqlite"
	MemoryBackend   BackendType = "memory"
	RemoteBackend   BackendType = "remote"
	SupabaseBackend BackendType = "supabase"
)

// String implements fmt.Stringer
func (bt BackendType) String() string {
	return string(bt)
}

// IsValid returns true if the backend type is valid
func (bt BackendType) IsValid() bool {
	switch bt {
	case SQLiteBackend, MemoryBackend, RemoteBackend, SupabaseBackend:
		return true
	default:
		return false
	}
}

// Local reports whether the server itself acts as the transaction service.
func (bt BackendType) Local() bool {
	return bt == SQLiteBackend || bt == MemoryBackend
}
