package oauth

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"github.com/router-for-me/ReportStudio/internal/config"
	"golang.org/x/oauth2"
)

func newTestService() *Service {
	clients := config.OAuthConfig{Providers: map[string]config.OAuthClient{
		"shopify": {ClientID: "shop-id", ClientSecret: "shop-secret"},
	}}
	return NewService(clients, "https://reports.example.com/", "state-secret")
}

func TestAuthURL_CarriesParameters(t *testing.T) {
	svc := newTestService()

	raw, err := svc.AuthURL("shopify", "user-1")
	if err != nil {
		t.Fatalf("AuthURL: %v", err)
	}
	u, err := url.Parse(raw)
	if err != nil {
		t.Fatalf("parse url: %v", err)
	}
	if u.Host != "accounts.shopify.com" || u.Path != "/oauth/authorize" {
		t.Fatalf("unexpected endpoint %s", raw)
	}
	q := u.Query()
	if q.Get("client_id") != "shop-id" || q.Get("response_type") != "code" {
		t.Fatalf("unexpected query %v", q)
	}
	if q.Get("scope") != "read_orders,read_products,read_analytics" {
		t.Fatalf("unexpected scope %q", q.Get("scope"))
	}
	if q.Get("redirect_uri") != "https://reports.example.com/api/oauth/shopify/callback" {
		t.Fatalf("unexpected redirect %q", q.Get("redirect_uri"))
	}

	userID, err := svc.VerifyState("shopify", q.Get("state"))
	if err != nil || userID != "user-1" {
		t.Fatalf("expected state for user-1, got %q (err=%v)", userID, err)
	}
	if _, errVerify := svc.VerifyState("google", q.Get("state")); !errors.Is(errVerify, ErrInvalidState) {
		t.Fatalf("expected provider mismatch to fail, got %v", errVerify)
	}
}

func TestAuthURL_UnknownAndUnconfigured(t *testing.T) {
	svc := newTestService()
	if _, err := svc.AuthURL("woocommerce", "user-1"); !errors.Is(err, ErrUnknownProvider) {
		t.Fatalf("expected ErrUnknownProvider, got %v", err)
	}
	if _, err := svc.AuthURL("google", "user-1"); !errors.Is(err, ErrNotConfigured) {
		t.Fatalf("expected ErrNotConfigured, got %v", err)
	}
}

func TestVerifyState_RejectsForgedState(t *testing.T) {
	svc := newTestService()
	if _, err := svc.VerifyState("shopify", "user-1:shopify"); !errors.Is(err, ErrInvalidState) {
		t.Fatalf("expected ErrInvalidState, got %v", err)
	}
}

func TestExchange_TokenServer(t *testing.T) {
	var form url.Values
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if errParse := r.ParseForm(); errParse != nil {
			t.Errorf("parse form: %v", errParse)
		}
		form = r.PostForm
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"access_token":"tok","token_type":"bearer","scope":"read_orders"}`))
	}))
	defer server.Close()

	svc := newTestService()
	svc.SetEndpoint("shopify", oauth2.Endpoint{
		AuthURL:   server.URL + "/authorize",
		TokenURL:  server.URL + "/token",
		AuthStyle: oauth2.AuthStyleInParams,
	})

	payload, err := svc.Exchange(context.Background(), "shopify", "the-code")
	if err != nil {
		t.Fatalf("Exchange: %v", err)
	}
	if form.Get("code") != "the-code" || form.Get("grant_type") != "authorization_code" {
		t.Fatalf("unexpected token request %v", form)
	}
	if form.Get("client_id") != "shop-id" || form.Get("client_secret") != "shop-secret" {
		t.Fatalf("expected client credentials in body, got %v", form)
	}

	var blob map[string]any
	if errUnmarshal := json.Unmarshal(payload, &blob); errUnmarshal != nil {
		t.Fatalf("decode payload: %v", errUnmarshal)
	}
	if blob["access_token"] != "tok" || blob["scope"] != "read_orders" {
		t.Fatalf("unexpected blob %v", blob)
	}
}

func TestExchange_Failure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, `{"error":"invalid_grant"}`, http.StatusBadRequest)
	}))
	defer server.Close()

	svc := newTestService()
	svc.SetEndpoint("shopify", oauth2.Endpoint{TokenURL: server.URL, AuthStyle: oauth2.AuthStyleInParams})
	if _, err := svc.Exchange(context.Background(), "shopify", "bad"); err == nil {
		t.Fatalf("expected exchange error")
	}
}

func TestProviderNames(t *testing.T) {
	names := ProviderNames()
	if len(names) != 3 || names[0] != "facebook" || names[2] != "shopify" {
		t.Fatalf("unexpected providers %v", names)
	}
}
