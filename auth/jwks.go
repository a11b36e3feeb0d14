package auth

import (
	"context"
	"crypto/rsa"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"math/big"
	"net/http"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"
)

// JWKSConfig configures JWKSKeyProvider.
type JWKSConfig struct {
	// URL is the JWKS endpoint.
	URL string

	// CacheTTL is how long fetched keys are trusted before a refetch.
	// Default: 1h
	CacheTTL time.Duration

	// MinRefreshInterval limits refetches triggered by unknown key IDs.
	// Default: 1m
	MinRefreshInterval time.Duration

	// HTTPClient performs the fetch.
	// Default: a client with a 10s timeout
	HTTPClient *http.Client
}

// JWKSKeyProvider serves RSA keys from a JWKS endpoint. Concurrent refreshes
// share one fetch, and the last good key set keeps serving while the endpoint
// fails.
type JWKSKeyProvider struct {
	cfg   JWKSConfig
	group singleflight.Group
	now   func() time.Time

	mu        sync.RWMutex
	keys      map[string]*rsa.PublicKey
	fetchedAt time.Time
}

// NewJWKSKeyProvider creates a JWKSKeyProvider. Keys are fetched lazily.
func NewJWKSKeyProvider(cfg JWKSConfig) *JWKSKeyProvider {
	if cfg.CacheTTL <= 0 {
		cfg.CacheTTL = time.Hour
	}
	if cfg.MinRefreshInterval <= 0 {
		cfg.MinRefreshInterval = time.Minute
	}
	if cfg.HTTPClient == nil {
		cfg.HTTPClient = &http.Client{Timeout: 10 * time.Second}
	}
	return &JWKSKeyProvider{cfg: cfg, now: time.Now}
}

// Key returns the key for keyID. An empty keyID matches the only key of a
// single-key set. A cache miss triggers a refetch at most once per
// MinRefreshInterval.
func (p *JWKSKeyProvider) Key(ctx context.Context, keyID string) (any, error) {
	p.mu.RLock()
	key, found := p.lookupLocked(keyID)
	age := p.now().Sub(p.fetchedAt)
	fetched := !p.fetchedAt.IsZero()
	p.mu.RUnlock()

	fresh := fetched && age < p.cfg.CacheTTL
	if found && fresh {
		return key, nil
	}
	if !found && fetched && fresh && age < p.cfg.MinRefreshInterval {
		return nil, ErrKeyNotFound
	}

	_, err, _ := p.group.Do("refresh", func() (any, error) {
		return nil, p.refresh(ctx)
	})
	if err != nil {
		if found {
			return key, nil
		}
		return nil, err
	}

	p.mu.RLock()
	key, found = p.lookupLocked(keyID)
	p.mu.RUnlock()
	if !found {
		return nil, ErrKeyNotFound
	}
	return key, nil
}

// lookupLocked requires at least a read lock.
func (p *JWKSKeyProvider) lookupLocked(keyID string) (*rsa.PublicKey, bool) {
	if keyID == "" {
		if len(p.keys) != 1 {
			return nil, false
		}
		for _, k := range p.keys {
			return k, true
		}
	}
	k, ok := p.keys[keyID]
	return k, ok
}

func (p *JWKSKeyProvider) refresh(ctx context.Context) error {
	keys, err := p.fetch(ctx)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrKeySetUnavailable, err)
	}

	p.mu.Lock()
	p.keys = keys
	p.fetchedAt = p.now()
	p.mu.Unlock()
	return nil
}

func (p *JWKSKeyProvider) fetch(ctx context.Context) (map[string]*rsa.PublicKey, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.cfg.URL, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")

	resp, err := p.cfg.HTTPClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("jwks endpoint returned %d", resp.StatusCode)
	}

	var set struct {
		Keys []jsonWebKey `json:"keys"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&set); err != nil {
		return nil, fmt.Errorf("decode jwks: %w", err)
	}

	keys := make(map[string]*rsa.PublicKey, len(set.Keys))
	for _, jwk := range set.Keys {
		if jwk.Kty != "RSA" || (jwk.Use != "" && jwk.Use != "sig") {
			continue
		}
		pub, err := jwk.rsaPublicKey()
		if err != nil {
			continue
		}
		keys[jwk.Kid] = pub
	}
	if len(keys) == 0 {
		return nil, errors.New("jwks contains no usable RSA keys")
	}
	return keys, nil
}

type jsonWebKey struct {
	Kty string `json:"kty"`
	Kid string `json:"kid"`
	Use string `json:"use"`
	N   string `json:"n"`
	E   string `json:"e"`
}

func (k jsonWebKey) rsaPublicKey() (*rsa.PublicKey, error) {
	n, err := base64.RawURLEncoding.DecodeString(k.N)
	if err != nil || len(n) == 0 {
		return nil, fmt.Errorf("jwk %q: bad modulus", k.Kid)
	}
	e, err := base64.RawURLEncoding.DecodeString(k.E)
	if err != nil || len(e) == 0 || len(e) > 4 {
		return nil, fmt.Errorf("jwk %q: bad exponent", k.Kid)
	}
	return &rsa.PublicKey{
		N: new(big.Int).SetBytes(n),
		E: int(new(big.Int).SetBytes(e).Int64()),
	}, nil
}

var _ KeyProvider = (*JWKSKeyProvider)(nil)
