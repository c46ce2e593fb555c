package auth

import (
	"context"
	"errors"
	"net/http"
	"strings"

	gooidc "github.com/coreos/go-oidc/v3/oidc"
	"github.com/lestrrat-go/jwx/v2/jwt"
)

// ClaimsMapper converts raw token claims into the Claims consumed by the
// catalog.
type ClaimsMapper interface {
	Map(raw map[string]any) (Claims, error)
}

// Middleware verifies bearer tokens and attaches Claims to the request
// context. Requests without an Authorization header pass through without
// claims; handlers decide whether anonymous access is acceptable.
type Middleware struct {
	Verifier  *gooidc.IDTokenVerifier
	Mapper    ClaimsMapper
	audiences []string
}

// Config describes how to bootstrap the middleware.
type Config struct {
	Issuer     string
	Audiences  []string
	HTTPClient *http.Client
	Mapper     ClaimsMapper
	// Skip expiry or issuer checks are primarily for tests.
	SkipExpiryCheck bool
	SkipIssuerCheck bool
}

// NewMiddleware builds a Middleware by performing OIDC discovery and wiring
// the ID token verifier.
func NewMiddleware(ctx context.Context, cfg Config) (*Middleware, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	if cfg.Issuer == "" {
		return nil, errors.New("auth: issuer required")
	}
	if len(cfg.Audiences) == 0 {
		return nil, errors.New("auth: at least one audience required")
	}
	audiences := uniqueStrings(cfg.Audiences)
	if cfg.HTTPClient != nil {
		ctx = gooidc.ClientContext(ctx, cfg.HTTPClient)
	}
	provider, err := gooidc.NewProvider(ctx, cfg.Issuer)
	if err != nil {
		return nil, err
	}

	oidcCfg := &gooidc.Config{
		SkipExpiryCheck: cfg.SkipExpiryCheck,
		SkipIssuerCheck: cfg.SkipIssuerCheck,
	}
	if len(audiences) == 1 && !cfg.SkipIssuerCheck {
		oidcCfg.ClientID = audiences[0]
	} else {
		oidcCfg.SkipClientIDCheck = true
	}

	mapper := cfg.Mapper
	if mapper == nil {
		mapper = KeycloakClaimsMapper{}
	}

	return &Middleware{
		Verifier:  provider.Verifier(oidcCfg),
		Mapper:    mapper,
		audiences: audiences,
	}, nil
}

// Wrap returns a handler that authenticates bearer tokens before invoking
// next.
func (m *Middleware) Wrap(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		h := r.Header.Get("Authorization")
		if h == "" || !strings.HasPrefix(h, "Bearer ") {
			next.ServeHTTP(w, r)
			return
		}
		tokStr := strings.TrimPrefix(h, "Bearer ")
		idTok, err := m.Verifier.Verify(r.Context(), tokStr)
		if err != nil {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}
		if len(m.audiences) > 0 && !audAllowed(idTok.Audience, m.audiences) {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}
		var raw map[string]any
		if err := idTok.Claims(&raw); err != nil {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}
		// Fallback: ensure subject present
		if _, ok := raw["sub"]; !ok {
			if t, err := jwt.Parse([]byte(tokStr), jwt.WithVerify(false)); err == nil {
				raw["sub"] = t.Subject()
			}
		}
		claims, err := m.Mapper.Map(raw)
		if err != nil {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}
		next.ServeHTTP(w, r.WithContext(ToContext(r.Context(), claims)))
	})
}

func audAllowed(actual []string, expected []string) bool {
	if len(expected) == 0 {
		return true
	}
	set := map[string]struct{}{}
	for _, aud := range actual {
		set[aud] = struct{}{}
	}
	for _, allowed := range expected {
		if _, ok := set[allowed]; ok {
			return true
		}
	}
	return false
}

func uniqueStrings(in []string) []string {
	if len(in) <= 1 {
		return in
	}
	seen := make(map[string]struct{}, len(in))
	out := make([]string, 0, len(in))
	for _, v := range in {
		if v == "" {
			continue
		}
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	if len(out) == 0 {
		return in
	}
	return out
}
