package identity

import (
	"context"
	"fmt"
	"strings"
	"time"

	firebase "firebase.google.com/go/v4"
	"firebase.google.com/go/v4/auth"
	"google.golang.org/api/option"
)

// Verifier resolves a bearer token into a session.
type Verifier interface {
	Verify(ctx context.Context, token string) (Session, error)
}

// VerifierFunc adapts a function to Verifier.
type VerifierFunc func(ctx context.Context, token string) (Session, error)

func (f VerifierFunc) Verify(ctx context.Context, token string) (Session, error) {
	return f(ctx, token)
}

// StaticVerifier accepts a fixed token to user id table. It backs local
// development and tests.
type StaticVerifier map[string]string

func (v StaticVerifier) Verify(_ context.Context, token string) (Session, error) {
	uid, ok := v[token]
	if !ok || token == "" {
		return Session{}, ErrUnauthenticated
	}
	return Session{UserID: uid, Token: token}, nil
}

type idTokenVerifier interface {
	VerifyIDToken(ctx context.Context, idToken string) (*auth.Token, error)
}

// FirebaseVerifier checks Firebase ID tokens.
type FirebaseVerifier struct {
	client idTokenVerifier
}

// NewFirebaseVerifier initializes a Firebase app for projectID. An empty
// credentialsFile falls back to Application Default Credentials.
func NewFirebaseVerifier(ctx context.Context, projectID, credentialsFile string) (*FirebaseVerifier, error) {
	conf := &firebase.Config{ProjectID: projectID}

	var opts []option.ClientOption
	if credentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(credentialsFile))
	}

	app, err := firebase.NewApp(ctx, conf, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize Firebase app: %w", err)
	}
	client, err := app.Auth(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to create Auth client: %w", err)
	}
	return &FirebaseVerifier{client: client}, nil
}

func (v *FirebaseVerifier) Verify(ctx context.Context, token string) (Session, error) {
	if strings.TrimSpace(token) == "" {
		return Session{}, ErrUnauthenticated
	}
	decoded, err := v.client.VerifyIDToken(ctx, token)
	if err != nil {
		return Session{}, fmt.Errorf("%w: %v", ErrUnauthenticated, err)
	}
	s := Session{UserID: decoded.UID, Token: token}
	if email, ok := decoded.Claims["email"].(string); ok {
		s.Email = email
	}
	if decoded.Expires > 0 {
		s.ExpiresAt = time.Unix(decoded.Expires, 0)
	}
	return s, nil
}

// CachingVerifier remembers verified sessions until they expire so repeated
// requests with the same token skip the provider round trip.
type CachingVerifier struct {
	next  Verifier
	cache *TokenCache
}

func NewCachingVerifier(next Verifier, cache *TokenCache) *CachingVerifier {
	return &CachingVerifier{next: next, cache: cache}
}

func (v *CachingVerifier) Verify(ctx context.Context, token string) (Session, error) {
	if s, ok := v.cache.Get(token); ok {
		return s, nil
	}
	s, err := v.next.Verify(ctx, token)
	if err != nil {
		v.cache.Delete(token)
		return Session{}, err
	}
	v.cache.Set(token, s)
	return s, nil
}
