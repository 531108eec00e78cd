package oauth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/router-for-me/ReportStudio/internal/config"
	"github.com/router-for-me/ReportStudio/internal/security"
	"golang.org/x/oauth2"
)

var (
	// ErrUnknownProvider is returned for providers without an OAuth2 flow.
	ErrUnknownProvider = errors.New("OAuth configuration not found for provider")
	// ErrNotConfigured is returned when the provider has no client id.
	ErrNotConfigured = errors.New("OAuth client not configured for provider")
	// ErrInvalidState is returned when the callback state cannot be verified.
	ErrInvalidState = errors.New("Missing or invalid authorization code or state")
)

// Provider describes a data source provider's OAuth2 endpoints.
type Provider struct {
	Name     string
	AuthURL  string
	TokenURL string
	Scope    string
}

var providers = map[string]Provider{
	"shopify": {
		Name:     "shopify",
		AuthURL:  "https://accounts.shopify.com/oauth/authorize",
		TokenURL: "https://accounts.shopify.com/oauth/token",
		Scope:    "read_orders,read_products,read_analytics",
	},
	"google": {
		Name:     "google",
		AuthURL:  "https://accounts.google.com/o/oauth2/v2/auth",
		TokenURL: "https://oauth2.googleapis.com/token",
		Scope:    "https://www.googleapis.com/auth/analytics.readonly",
	},
	"facebook": {
		Name:     "facebook",
		AuthURL:  "https://www.facebook.com/v18.0/dialog/oauth",
		TokenURL: "https://graph.facebook.com/v18.0/oauth/access_token",
		Scope:    "ads_read,pages_read_engagement",
	},
}

// ProviderNames returns the providers that support the OAuth2 flow, sorted.
func ProviderNames() []string {
	names := make([]string, 0, len(providers))
	for name := range providers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Service builds authorization URLs and exchanges callback codes.
type Service struct {
	configs     map[string]*oauth2.Config
	stateSecret string
}

// NewService configures every known provider. callbackBaseURL is the public
// base URL the provider redirects back to.
func NewService(clients config.OAuthConfig, callbackBaseURL, stateSecret string) *Service {
	base := strings.TrimRight(strings.TrimSpace(callbackBaseURL), "/")
	configs := make(map[string]*oauth2.Config, len(providers))
	for name, provider := range providers {
		client := clients.Providers[name]
		configs[name] = &oauth2.Config{
			ClientID:     client.ClientID,
			ClientSecret: client.ClientSecret,
			Endpoint: oauth2.Endpoint{
				AuthURL:   provider.AuthURL,
				TokenURL:  provider.TokenURL,
				AuthStyle: oauth2.AuthStyleInParams,
			},
			RedirectURL: base + "/api/oauth/" + name + "/callback",
			// Providers expect the scope list verbatim, not space-joined.
			Scopes: []string{provider.Scope},
		}
	}
	return &Service{configs: configs, stateSecret: stateSecret}
}

// SetEndpoint overrides the endpoints of a known provider.
func (s *Service) SetEndpoint(provider string, endpoint oauth2.Endpoint) {
	if cfg, ok := s.configs[provider]; ok {
		cfg.Endpoint = endpoint
	}
}

func (s *Service) config(provider string) (*oauth2.Config, error) {
	cfg, ok := s.configs[strings.ToLower(strings.TrimSpace(provider))]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownProvider, provider)
	}
	if strings.TrimSpace(cfg.ClientID) == "" {
		return nil, fmt.Errorf("%w: %s", ErrNotConfigured, provider)
	}
	return cfg, nil
}

// AuthURL returns the provider authorization URL for userID.
func (s *Service) AuthURL(provider, userID string) (string, error) {
	cfg, errCfg := s.config(provider)
	if errCfg != nil {
		return "", errCfg
	}
	state, errState := security.IssueOAuthState(s.stateSecret, userID, provider)
	if errState != nil {
		return "", fmt.Errorf("oauth: issue state: %w", errState)
	}
	return cfg.AuthCodeURL(state), nil
}

// VerifyState checks the callback state and returns the user it was issued for.
func (s *Service) VerifyState(provider, state string) (string, error) {
	claims, errParse := security.ParseOAuthState(s.stateSecret, state)
	if errParse != nil {
		return "", ErrInvalidState
	}
	if !strings.EqualFold(claims.Provider, provider) {
		return "", ErrInvalidState
	}
	return claims.UserID, nil
}

// Exchange trades code for tokens and returns them as a JSON blob.
func (s *Service) Exchange(ctx context.Context, provider, code string) ([]byte, error) {
	cfg, errCfg := s.config(provider)
	if errCfg != nil {
		return nil, errCfg
	}
	token, errExchange := cfg.Exchange(ctx, code)
	if errExchange != nil {
		return nil, fmt.Errorf("Failed to exchange code for tokens: %w", errExchange)
	}
	blob := map[string]any{
		"access_token": token.AccessToken,
		"token_type":   token.TokenType,
	}
	if token.RefreshToken != "" {
		blob["refresh_token"] = token.RefreshToken
	}
	if !token.Expiry.IsZero() {
		blob["expiry"] = token.Expiry.UTC()
	}
	if scope, ok := token.Extra("scope").(string); ok && scope != "" {
		blob["scope"] = scope
	}
	payload, errMarshal := json.Marshal(blob)
	if errMarshal != nil {
		return nil, fmt.Errorf("oauth: encode tokens: %w", errMarshal)
	}
	return payload, nil
}
