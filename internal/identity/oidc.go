package identity

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/coreos/go-oidc/v3/oidc"
	"golang.org/x/oauth2"

	"github.com/tooltime-pro/session-guard/internal/config"
	"github.com/tooltime-pro/session-guard/internal/domain"
)

// userInfoClaims are the provider-specific claims read from the userinfo response.
type userInfoClaims struct {
	AppMetadata map[string]any  `json:"app_metadata"`
	Flags       map[string]bool `json:"flags"`
}

// OIDCProvider resolves credentials against an OpenID Connect userinfo endpoint
// and revokes them through the provider's admin API.
type OIDCProvider struct {
	provider   *oidc.Provider
	adminURL   string
	serviceKey string
	client     *http.Client
}

// NewOIDCProvider builds a provider from cfg without network discovery. When cfg
// is incomplete the returned Provider reports domain.ErrIdentityNotConfigured.
func NewOIDCProvider(ctx context.Context, cfg config.IdentityConfig, client *http.Client) Provider {
	if !cfg.Configured() {
		return Unconfigured{}
	}
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}
	pc := &oidc.ProviderConfig{
		IssuerURL:   cfg.IssuerURL,
		UserInfoURL: cfg.UserInfoURL,
	}
	return &OIDCProvider{
		provider:   pc.NewProvider(oidc.ClientContext(ctx, client)),
		adminURL:   cfg.AdminURL,
		serviceKey: cfg.ServiceKey,
		client:     client,
	}
}

func (p *OIDCProvider) ResolveIdentity(ctx context.Context, credential string) (*domain.Identity, error) {
	ctx = oidc.ClientContext(ctx, p.client)
	info, err := p.provider.UserInfo(ctx, oauth2.StaticTokenSource(&oauth2.Token{
		AccessToken: credential,
		TokenType:   "Bearer",
	}))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrUnauthenticated, err)
	}
	if info.Subject == "" {
		return nil, fmt.Errorf("userinfo without subject: %w", domain.ErrUnauthenticated)
	}

	var claims userInfoClaims
	if err := info.Claims(&claims); err != nil {
		return nil, fmt.Errorf("%w: decode userinfo: %v", domain.ErrUnauthenticated, err)
	}

	flags := make(map[string]bool, len(claims.Flags)+1)
	for k, v := range claims.Flags {
		flags[k] = v
	}
	if v, ok := claims.AppMetadata[domain.FlagRequiresPasswordSetup].(bool); ok {
		flags[domain.FlagRequiresPasswordSetup] = v
	}

	return &domain.Identity{ID: info.Subject, Email: info.Email, Flags: flags}, nil
}

// RevokeAllCredentials calls POST {admin}/users/{id}/logout with the service key.
func (p *OIDCProvider) RevokeAllCredentials(ctx context.Context, identityID string) error {
	endpoint := fmt.Sprintf("%s/users/%s/logout", p.adminURL, url.PathEscape(identityID))
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+p.serviceKey)
	req.Header.Set("apikey", p.serviceKey)

	resp, err := p.client.Do(req)
	if err != nil {
		return fmt.Errorf("revoke credentials: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("revoke credentials: provider returned %s", resp.Status)
	}
	return nil
}
