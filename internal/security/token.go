package security

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const (
	userTokenSubject  = "user"
	oauthStateSubject = "oauth-state"
	oauthStateTTL     = 10 * time.Minute
)

var (
	// ErrInvalidToken is returned for malformed, unsigned or expired tokens.
	ErrInvalidToken = errors.New("invalid token")
	// ErrMissingSecret is returned when no signing secret is configured.
	ErrMissingSecret = errors.New("missing jwt secret")
)

// UserClaims identifies a signed-in end user.
type UserClaims struct {
	UserID string `json:"uid"`
	jwt.RegisteredClaims
}

// OAuthStateClaims binds an OAuth round trip to a user and provider.
type OAuthStateClaims struct {
	UserID   string `json:"uid"`
	Provider string `json:"provider"`
	Nonce    string `json:"nonce"`
	jwt.RegisteredClaims
}

// IssueUserToken signs a session token for userID valid for expiry.
func IssueUserToken(secret, userID string, expiry time.Duration) (string, time.Time, error) {
	if strings.TrimSpace(secret) == "" {
		return "", time.Time{}, ErrMissingSecret
	}
	now := time.Now().UTC()
	expiresAt := now.Add(expiry)
	claims := UserClaims{
		UserID: userID,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userTokenSubject,
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
	}
	signed, errSign := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
	if errSign != nil {
		return "", time.Time{}, fmt.Errorf("security: sign token: %w", errSign)
	}
	return signed, expiresAt, nil
}

// ParseUserToken validates a session token and returns its claims.
func ParseUserToken(secret, token string) (*UserClaims, error) {
	claims := &UserClaims{}
	if errParse := parseHS256(secret, token, claims); errParse != nil {
		return nil, errParse
	}
	if claims.Subject != userTokenSubject || claims.UserID == "" {
		return nil, ErrInvalidToken
	}
	return claims, nil
}

// IssueOAuthState signs a short-lived state value for an OAuth redirect.
func IssueOAuthState(secret, userID, provider string) (string, error) {
	if strings.TrimSpace(secret) == "" {
		return "", ErrMissingSecret
	}
	nonce, errNonce := GenerateRandomString(8)
	if errNonce != nil {
		return "", errNonce
	}
	now := time.Now().UTC()
	claims := OAuthStateClaims{
		UserID:   userID,
		Provider: provider,
		Nonce:    nonce,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   oauthStateSubject,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(oauthStateTTL)),
		},
	}
	signed, errSign := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
	if errSign != nil {
		return "", fmt.Errorf("security: sign state: %w", errSign)
	}
	return signed, nil
}

// ParseOAuthState validates state and returns the user and provider it was issued for.
func ParseOAuthState(secret, state string) (*OAuthStateClaims, error) {
	claims := &OAuthStateClaims{}
	if errParse := parseHS256(secret, state, claims); errParse != nil {
		return nil, errParse
	}
	if claims.Subject != oauthStateSubject || claims.UserID == "" || claims.Provider == "" {
		return nil, ErrInvalidToken
	}
	return claims, nil
}

func parseHS256(secret, token string, claims jwt.Claims) error {
	if strings.TrimSpace(secret) == "" {
		return ErrMissingSecret
	}
	token = strings.TrimSpace(token)
	if token == "" {
		return ErrInvalidToken
	}
	parsed, errParse := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return []byte(secret), nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if errParse != nil || !parsed.Valid {
		return ErrInvalidToken
	}
	return nil
}
