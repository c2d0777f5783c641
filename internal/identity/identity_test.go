package identity

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"firebase.google.com/go/v4/auth"
)

type fakeIDTokens struct {
	calls int
	token *auth.Token
	err   error
}

func (f *fakeIDTokens) VerifyIDToken(_ context.Context, _ string) (*auth.Token, error) {
	f.calls++
	return f.token, f.err
}

func TestBearerToken(t *testing.T) {
	cases := []struct {
		header string
		token  string
		ok     bool
	}{
		{"Bearer abc", "abc", true},
		{"bearer  abc ", "abc", true},
		{"Basic abc", "", false},
		{"Bearer", "", false},
		{"Bearer ", "", false},
		{"", "", false},
	}
	for _, tc := range cases {
		r := httptest.NewRequest(http.MethodGet, "/", nil)
		if tc.header != "" {
			r.Header.Set("Authorization", tc.header)
		}
		got, ok := BearerToken(r)
		if got != tc.token || ok != tc.ok {
			t.Fatalf("%q: expected (%q,%v), got (%q,%v)", tc.header, tc.token, tc.ok, got, ok)
		}
	}
}

func TestRequireSession(t *testing.T) {
	v := StaticVerifier{"good": "user-1"}
	var failures []error
	onFail := func(w http.ResponseWriter, _ *http.Request, err error) {
		failures = append(failures, err)
		w.WriteHeader(http.StatusUnauthorized)
	}
	h := RequireSession(v, onFail)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s, ok := SessionFromContext(r.Context())
		if !ok || s.UserID != "user-1" || s.Token != "good" {
			t.Errorf("unexpected session %+v (%v)", s, ok)
		}
		w.WriteHeader(http.StatusNoContent)
	}))

	for _, tc := range []struct {
		header string
		status int
	}{
		{"Bearer good", http.StatusNoContent},
		{"Bearer bad", http.StatusUnauthorized},
		{"", http.StatusUnauthorized},
	} {
		r := httptest.NewRequest(http.MethodGet, "/api/dashboard", nil)
		if tc.header != "" {
			r.Header.Set("Authorization", tc.header)
		}
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, r)
		if rec.Code != tc.status {
			t.Fatalf("%q: expected %d, got %d", tc.header, tc.status, rec.Code)
		}
	}
	for _, err := range failures {
		if !errors.Is(err, ErrUnauthenticated) {
			t.Fatalf("failure should wrap ErrUnauthenticated, got %v", err)
		}
	}
}

func TestFirebaseVerifier(t *testing.T) {
	exp := time.Now().Add(time.Hour).Unix()
	fake := &fakeIDTokens{token: &auth.Token{UID: "fb-1", Expires: exp, Claims: map[string]interface{}{"email": "a@b.c"}}}
	v := &FirebaseVerifier{client: fake}

	s, err := v.Verify(context.Background(), "tok")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if s.UserID != "fb-1" || s.Email != "a@b.c" || s.ExpiresAt.Unix() != exp || s.Token != "tok" {
		t.Fatalf("unexpected session %+v", s)
	}

	fake.err = errors.New("token expired")
	if _, err := v.Verify(context.Background(), "tok"); !errors.Is(err, ErrUnauthenticated) {
		t.Fatalf("expected ErrUnauthenticated, got %v", err)
	}
	if _, err := v.Verify(context.Background(), " "); !errors.Is(err, ErrUnauthenticated) {
		t.Fatalf("blank token should be rejected, got %v", err)
	}
}

func TestCachingVerifier(t *testing.T) {
	fake := &fakeIDTokens{token: &auth.Token{UID: "fb-1"}}
	v := NewCachingVerifier(&FirebaseVerifier{client: fake}, NewTokenCache(10, time.Minute))

	for i := 0; i < 3; i++ {
		if _, err := v.Verify(context.Background(), "tok"); err != nil {
			t.Fatalf("verify: %v", err)
		}
	}
	if fake.calls != 1 {
		t.Fatalf("expected a single provider call, got %d", fake.calls)
	}
}

func TestTokenCacheExpiryAndEviction(t *testing.T) {
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	c := NewTokenCache(2, time.Minute)
	c.now = func() time.Time { return now }

	c.Set("a", Session{UserID: "a"})
	c.Set("b", Session{UserID: "b", ExpiresAt: now.Add(10 * time.Second)})
	if _, ok := c.Get("a"); !ok {
		t.Fatalf("expected a to be cached")
	}
	c.Set("c", Session{UserID: "c"})
	if _, ok := c.Get("b"); ok {
		t.Fatalf("b should have been evicted as least recently used")
	}
	if c.Size() != 2 {
		t.Fatalf("expected size 2, got %d", c.Size())
	}

	c.Set("d", Session{UserID: "d", ExpiresAt: now.Add(10 * time.Second)})
	now = now.Add(30 * time.Second)
	if _, ok := c.Get("d"); ok {
		t.Fatalf("d should expire with its session")
	}
	now = now.Add(time.Minute)
	if n := c.CleanExpired(); n != 1 || c.Size() != 0 {
		t.Fatalf("expected to clean the remaining entry, cleaned %d size %d", n, c.Size())
	}
}

func TestSessionActive(t *testing.T) {
	now := time.Now()
	if (Session{}).Active(now) {
		t.Fatalf("empty session must not be active")
	}
	if !(Session{UserID: "u"}).Active(now) {
		t.Fatalf("session without expiry should be active")
	}
	if (Session{UserID: "u", ExpiresAt: now.Add(-time.Second)}).Active(now) {
		t.Fatalf("expired session must not be active")
	}
}
