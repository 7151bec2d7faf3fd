package identity

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tooltime-pro/session-guard/internal/config"
	"github.com/tooltime-pro/session-guard/internal/domain"
)

// fakeIdP serves a userinfo endpoint and an admin logout endpoint. Credentials
// listed in valid resolve to their subject until revoked.
type fakeIdP struct {
	mu      sync.Mutex
	valid   map[string]string
	revoked []string
	server  *httptest.Server
}

func newFakeIdP(t *testing.T) *fakeIdP {
	t.Helper()
	idp := &fakeIdP{valid: map[string]string{"cred-1": "user-1"}}
	mux := http.NewServeMux()
	mux.HandleFunc("/userinfo", func(w http.ResponseWriter, r *http.Request) {
		idp.mu.Lock()
		defer idp.mu.Unlock()
		cred := r.Header.Get("Authorization")
		sub, ok := idp.valid[trimBearer(cred)]
		if !ok {
			http.Error(w, "invalid token", http.StatusUnauthorized)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"sub":          sub,
			"email":        "pat@example.com",
			"app_metadata": map[string]any{domain.FlagRequiresPasswordSetup: true},
		})
	})
	mux.HandleFunc("/admin/users/", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.Header.Get("Authorization") != "Bearer svc-key" {
			http.Error(w, "forbidden", http.StatusForbidden)
			return
		}
		idp.mu.Lock()
		defer idp.mu.Unlock()
		idp.revoked = append(idp.revoked, r.URL.Path)
		for cred, sub := range idp.valid {
			if r.URL.Path == "/admin/users/"+sub+"/logout" {
				delete(idp.valid, cred)
			}
		}
		w.WriteHeader(http.StatusNoContent)
	})
	idp.server = httptest.NewServer(mux)
	t.Cleanup(idp.server.Close)
	return idp
}

func (f *fakeIdP) revocations() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.revoked...)
}

func trimBearer(h string) string {
	const prefix = "Bearer "
	if len(h) > len(prefix) {
		return h[len(prefix):]
	}
	return ""
}

func (f *fakeIdP) config(key string) config.IdentityConfig {
	return config.IdentityConfig{
		Mode:        config.IdentityModeOIDC,
		IssuerURL:   f.server.URL,
		UserInfoURL: f.server.URL + "/userinfo",
		AdminURL:    f.server.URL + "/admin",
		ServiceKey:  key,
	}
}

func TestOIDCProvider_ResolveAndRevoke(t *testing.T) {
	idp := newFakeIdP(t)
	p := NewOIDCProvider(context.Background(), idp.config("svc-key"), idp.server.Client())

	identity, err := p.ResolveIdentity(context.Background(), "cred-1")
	require.NoError(t, err)
	assert.Equal(t, "user-1", identity.ID)
	assert.Equal(t, "pat@example.com", identity.Email)
	assert.True(t, identity.HasFlag(domain.FlagRequiresPasswordSetup))

	require.NoError(t, p.RevokeAllCredentials(context.Background(), "user-1"))
	assert.Equal(t, []string{"/admin/users/user-1/logout"}, idp.revocations())

	_, err = p.ResolveIdentity(context.Background(), "cred-1")
	require.ErrorIs(t, err, domain.ErrUnauthenticated)
}

func TestOIDCProvider_UnknownCredential(t *testing.T) {
	idp := newFakeIdP(t)
	p := NewOIDCProvider(context.Background(), idp.config("svc-key"), idp.server.Client())

	_, err := p.ResolveIdentity(context.Background(), "nope")
	require.ErrorIs(t, err, domain.ErrUnauthenticated)
}

func TestOIDCProvider_RevokeFailureReported(t *testing.T) {
	idp := newFakeIdP(t)
	p := NewOIDCProvider(context.Background(), idp.config("wrong-key"), idp.server.Client())

	err := p.RevokeAllCredentials(context.Background(), "user-1")
	require.Error(t, err)
	assert.Empty(t, idp.revocations())
}

func TestOIDCProvider_MissingConfig(t *testing.T) {
	p := NewOIDCProvider(context.Background(), config.IdentityConfig{Mode: config.IdentityModeOIDC}, nil)
	_, err := p.ResolveIdentity(context.Background(), "cred")
	require.ErrorIs(t, err, domain.ErrIdentityNotConfigured)
}
