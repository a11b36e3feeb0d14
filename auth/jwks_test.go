package auth

import (
	"context"
	"crypto/rand"
	"crypto/rsa"
	"encoding/base64"
	"encoding/json"
	"errors"
	"math/big"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

func generateKey(t testing.TB) *rsa.PrivateKey {
	t.Helper()
	k, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		t.Fatalf("generate key: %v", err)
	}
	return k
}

func jwkFor(kid string, pub *rsa.PublicKey) map[string]any {
	return map[string]any{
		"kty": "RSA",
		"kid": kid,
		"use": "sig",
		"n":   base64.RawURLEncoding.EncodeToString(pub.N.Bytes()),
		"e":   base64.RawURLEncoding.EncodeToString(big.NewInt(int64(pub.E)).Bytes()),
	}
}

type jwksServer struct {
	*httptest.Server
	hits atomic.Int32

	mu     sync.Mutex
	keys   []map[string]any
	status int
}

func newJWKSServer(t *testing.T, keys ...map[string]any) *jwksServer {
	s := &jwksServer{keys: keys, status: http.StatusOK}
	s.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.hits.Add(1)
		s.mu.Lock()
		defer s.mu.Unlock()
		if s.status != http.StatusOK {
			w.WriteHeader(s.status)
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]any{"keys": s.keys})
	}))
	t.Cleanup(s.Close)
	return s
}

func (s *jwksServer) set(status int, keys ...map[string]any) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.status = status
	if keys != nil {
		s.keys = keys
	}
}

func TestJWKSKeyProvider_Key(t *testing.T) {
	priv := generateKey(t)
	srv := newJWKSServer(t, jwkFor("k1", &priv.PublicKey))
	p := NewJWKSKeyProvider(JWKSConfig{URL: srv.URL})

	key, err := p.Key(context.Background(), "k1")
	if err != nil {
		t.Fatalf("Key() error = %v", err)
	}
	pub, ok := key.(*rsa.PublicKey)
	if !ok || pub.N.Cmp(priv.N) != 0 || pub.E != priv.E {
		t.Fatal("Key() returned a different key")
	}

	// cached
	if _, err := p.Key(context.Background(), "k1"); err != nil {
		t.Fatal(err)
	}
	if got := srv.hits.Load(); got != 1 {
		t.Errorf("fetches = %d, want 1", got)
	}

	// an empty kid matches a single-key set
	if _, err := p.Key(context.Background(), ""); err != nil {
		t.Errorf("Key(\"\") error = %v", err)
	}
}

func TestJWKSKeyProvider_UnknownKidIsRateLimited(t *testing.T) {
	priv := generateKey(t)
	srv := newJWKSServer(t, jwkFor("k1", &priv.PublicKey))
	p := NewJWKSKeyProvider(JWKSConfig{URL: srv.URL, MinRefreshInterval: time.Hour})

	if _, err := p.Key(context.Background(), "k1"); err != nil {
		t.Fatal(err)
	}
	for i := 0; i < 3; i++ {
		if _, err := p.Key(context.Background(), "missing"); !errors.Is(err, ErrKeyNotFound) {
			t.Fatalf("Key(missing) error = %v", err)
		}
	}
	if got := srv.hits.Load(); got != 1 {
		t.Errorf("fetches = %d, want 1", got)
	}
}

func TestJWKSKeyProvider_RotationAndStaleFallback(t *testing.T) {
	old, rotated := generateKey(t), generateKey(t)
	srv := newJWKSServer(t, jwkFor("old", &old.PublicKey))

	now := time.Now()
	p := NewJWKSKeyProvider(JWKSConfig{URL: srv.URL, CacheTTL: time.Minute, MinRefreshInterval: time.Second})
	p.now = func() time.Time { return now }

	if _, err := p.Key(context.Background(), "old"); err != nil {
		t.Fatal(err)
	}

	// new kid appears after the refresh interval
	srv.set(http.StatusOK, jwkFor("new", &rotated.PublicKey))
	now = now.Add(2 * time.Second)
	if _, err := p.Key(context.Background(), "new"); err != nil {
		t.Fatalf("Key(new) error = %v", err)
	}

	// endpoint down after the TTL: the cached key keeps serving
	srv.set(http.StatusInternalServerError)
	now = now.Add(2 * time.Minute)
	if _, err := p.Key(context.Background(), "new"); err != nil {
		t.Fatalf("stale Key(new) error = %v", err)
	}
	if _, err := p.Key(context.Background(), "unknown"); !errors.Is(err, ErrKeySetUnavailable) {
		t.Fatalf("Key(unknown) error = %v, want ErrKeySetUnavailable", err)
	}
}

func TestJWKSKeyProvider_Unavailable(t *testing.T) {
	srv := newJWKSServer(t)
	srv.set(http.StatusNotFound)
	p := NewJWKSKeyProvider(JWKSConfig{URL: srv.URL})

	if _, err := p.Key(context.Background(), "k1"); !errors.Is(err, ErrKeySetUnavailable) {
		t.Fatalf("Key() error = %v", err)
	}
}

func TestJWKSKeyProvider_ConcurrentRefreshShared(t *testing.T) {
	priv := generateKey(t)
	release := make(chan struct{})
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		<-release
		_ = json.NewEncoder(w).Encode(map[string]any{"keys": []any{jwkFor("k1", &priv.PublicKey)}})
	}))
	defer srv.Close()

	p := NewJWKSKeyProvider(JWKSConfig{URL: srv.URL})

	var wg sync.WaitGroup
	errs := make(chan error, 8)
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := p.Key(context.Background(), "k1")
			errs <- err
		}()
	}
	time.Sleep(50 * time.Millisecond)
	close(release)
	wg.Wait()
	close(errs)

	for err := range errs {
		if err != nil {
			t.Fatalf("Key() error = %v", err)
		}
	}
	if got := hits.Load(); got != 1 {
		t.Errorf("fetches = %d, want 1", got)
	}
}

func TestJWTAuthenticator_WithJWKS(t *testing.T) {
	priv := generateKey(t)
	srv := newJWKSServer(t, jwkFor("k1", &priv.PublicKey))

	tok := jwt.NewWithClaims(jwt.SigningMethodRS256, jwt.MapClaims{
		"sub": "svc",
		"exp": time.Now().Add(time.Hour).Unix(),
	})
	tok.Header["kid"] = "k1"
	signed, err := tok.SignedString(priv)
	if err != nil {
		t.Fatal(err)
	}

	a := NewJWTAuthenticator(JWTConfig{}, NewJWKSKeyProvider(JWKSConfig{URL: srv.URL}))
	res, err := a.Authenticate(context.Background(), bearer(signed))
	if err != nil {
		t.Fatalf("Authenticate() error = %v", err)
	}
	if !res.Authenticated || res.Identity.Principal != "svc" {
		t.Fatalf("result = %+v", res)
	}
}
