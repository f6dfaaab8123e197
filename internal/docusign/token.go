package docusign

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"esign-gateway/internal/common/errors"
	"esign-gateway/internal/common/logging"
)

// renewalBuffer is subtracted from the granted lifetime so a token is
// renewed before it can expire mid-request.
const renewalBuffer = time.Minute

// tokenScopes are the OAuth scopes requested for the impersonated user.
const tokenScopes = "signature impersonation"

// tokenResponse is the provider's token endpoint response.
type tokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	ExpiresIn   int    `json:"expires_in"`
}

// tokenManager acquires and caches the bearer token for the provider API.
// Acquisition signs a JWT assertion with the configured RSA key and trades
// it for an access token; the token is reused until shortly before expiry.
//
// tokenManager is safe for concurrent use.
type tokenManager struct {
	integrationKey string
	userID         string
	authServer     string // OAuth host, used as the JWT audience
	authBaseURL    string // scheme + host for endpoint URLs
	privateKeyPath string
	lifetime       time.Duration
	httpClient     *http.Client
	logger         logging.Logger

	mu          sync.Mutex
	accessToken string
	expiry      time.Time
}

// AccessToken returns a valid bearer token, requesting a new one from the
// provider when the cached token is absent or expiring.
func (m *tokenManager) AccessToken(ctx context.Context) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.accessToken != "" && time.Now().Before(m.expiry) {
		return m.accessToken, nil
	}

	m.logger.Info("Requesting access token",
		logging.String("auth_server", m.authServer),
	)

	token, expiresIn, err := m.requestToken(ctx)
	if err != nil {
		return "", err
	}

	m.accessToken = token
	m.expiry = time.Now().Add(time.Duration(expiresIn)*time.Second - renewalBuffer)

	m.logger.Info("Access token acquired",
		logging.Int("expires_in", expiresIn),
	)

	return m.accessToken, nil
}

// requestToken performs the JWT grant: build and sign the assertion, then
// exchange it at the provider's token endpoint.
func (m *tokenManager) requestToken(ctx context.Context) (string, int, error) {
	assertion, err := m.signAssertion()
	if err != nil {
		return "", 0, err
	}

	form := url.Values{}
	form.Set("grant_type", "urn:ietf:params:oauth:grant-type:jwt-bearer")
	form.Set("assertion", assertion)

	endpoint := m.authBaseURL + "/oauth/token"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return "", 0, errors.InternalError("build token request", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := m.httpClient.Do(req)
	if err != nil {
		return "", 0, errors.UpstreamError("token exchange failed", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", 0, errors.UpstreamError("read token response", err)
	}

	if resp.StatusCode != http.StatusOK {
		m.logger.Error("Token endpoint rejected the JWT grant", nil,
			logging.Int("status", resp.StatusCode),
			logging.String("body", string(body)),
		)
		return "", 0, errors.UpstreamError(
			fmt.Sprintf("token endpoint returned status %d", resp.StatusCode), nil).
			WithContext("body", string(body))
	}

	var tr tokenResponse
	if err := json.Unmarshal(body, &tr); err != nil {
		return "", 0, errors.UpstreamError("decode token response", err)
	}

	if tr.AccessToken == "" {
		return "", 0, errors.UpstreamError("token response contained no access token", nil)
	}

	return tr.AccessToken, tr.ExpiresIn, nil
}

// signAssertion builds the RS256 JWT for the grant: issuer is the
// integration key, subject the impersonated user, audience the auth server.
func (m *tokenManager) signAssertion() (string, error) {
	pemBytes, err := os.ReadFile(m.privateKeyPath)
	if err != nil {
		return "", errors.ConfigError(fmt.Sprintf("read private key %s: %v", m.privateKeyPath, err))
	}

	key, err := jwt.ParseRSAPrivateKeyFromPEM(pemBytes)
	if err != nil {
		return "", errors.ConfigError(fmt.Sprintf("parse private key %s: %v", m.privateKeyPath, err))
	}

	now := time.Now()
	claims := jwt.MapClaims{
		"iss":   m.integrationKey,
		"sub":   m.userID,
		"aud":   m.authServer,
		"iat":   now.Unix(),
		"exp":   now.Add(m.lifetime).Unix(),
		"scope": tokenScopes,
	}

	assertion, err := jwt.NewWithClaims(jwt.SigningMethodRS256, claims).SignedString(key)
	if err != nil {
		return "", errors.InternalError("sign JWT assertion", err)
	}

	return assertion, nil
}
