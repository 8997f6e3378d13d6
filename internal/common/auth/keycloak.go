// internal/common/auth/keycloak.go
package auth

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	commonerrors "agrisure-workers/internal/common/errors"
)

// TokenSource yields a bearer token for collaborator calls. Handlers prefer
// the token carried by the event itself; the Keycloak service account is the
// fallback for events produced by internal schedulers that carry none.
type TokenSource interface {
	Token(ctx context.Context) (string, error)
}

// KeycloakClient obtains service-account tokens through the client
// credentials flow and caches them until shortly before expiry.
type KeycloakClient struct {
	baseURL      string
	realm        string
	clientID     string
	clientSecret string
	httpClient   *http.Client

	mu          sync.Mutex
	accessToken string
	tokenExpiry time.Time
}

type tokenResponse struct {
	AccessToken string `json:"access_token"`
	ExpiresIn   int    `json:"expires_in"`
	TokenType   string `json:"token_type"`
	Scope       string `json:"scope"`
}

func NewKeycloakClient(baseURL, realm, clientID, clientSecret string) *KeycloakClient {
	return &KeycloakClient{
		baseURL:      strings.TrimSuffix(baseURL, "/"),
		realm:        realm,
		clientID:     clientID,
		clientSecret: clientSecret,
		httpClient:   &http.Client{Timeout: 30 * time.Second},
	}
}

// Token returns a cached service-account token, fetching a fresh one when the
// cached token is within the refresh margin of expiry.
func (k *KeycloakClient) Token(ctx context.Context) (string, error) {
	k.mu.Lock()
	defer k.mu.Unlock()

	if k.accessToken != "" && k.tokenExpiry.After(time.Now().Add(30*time.Second)) {
		return k.accessToken, nil
	}

	tokenURL := fmt.Sprintf("%s/realms/%s/protocol/openid-connect/token", k.baseURL, k.realm)

	data := url.Values{}
	data.Set("grant_type", "client_credentials")
	data.Set("client_id", k.clientID)
	data.Set("client_secret", k.clientSecret)

	req, err := http.NewRequestWithContext(ctx, "POST", tokenURL, strings.NewReader(data.Encode()))
	if err != nil {
		return "", commonerrors.NewAuthFailedError(fmt.Errorf("failed to create token request: %w", err))
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := k.httpClient.Do(req)
	if err != nil {
		return "", commonerrors.NewAuthFailedError(fmt.Errorf("failed to execute token request: %w", err))
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return "", commonerrors.NewAuthFailedError(
			fmt.Errorf("token request failed with status %d: %s", resp.StatusCode, string(body)))
	}

	var tokenResp tokenResponse
	if err := json.NewDecoder(resp.Body).Decode(&tokenResp); err != nil {
		return "", commonerrors.NewAuthFailedError(fmt.Errorf("failed to decode token response: %w", err))
	}

	k.accessToken = tokenResp.AccessToken
	k.tokenExpiry = time.Now().Add(time.Duration(tokenResp.ExpiresIn) * time.Second)

	return k.accessToken, nil
}
