package jira

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"
	corev1 "k8s.io/api/core/v1"
	apierrors "k8s.io/apimachinery/pkg/api/errors"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/client-go/kubernetes"

	"github.com/globalcomix/claude-agent/internal/config"
	"github.com/globalcomix/claude-agent/internal/logging"
)

const (
	defaultTokenURL = "https://auth.atlassian.com/oauth/token"

	// tokenSecretName stores the rotating OAuth tokens
	tokenSecretName  = "claude-agent-jira-tokens"
	accessTokenKey   = "access-token"
	refreshTokenKey  = "refresh-token"
	secretFieldOwner = "claude-agent-server"

	// expiryBuffer refreshes tokens this long before they actually expire
	expiryBuffer = 300 * time.Second
)

// TokenManager exchanges and caches Atlassian OAuth access tokens.
// Atlassian rotates the refresh token on every exchange, so the freshest
// pair is persisted to a Kubernetes Secret before the cache is updated;
// a restart then resumes from the Secret instead of the stale bootstrap
// token from the environment.
type TokenManager struct {
	cfg       config.JiraConfig
	kube      kubernetes.Interface
	namespace string
	tokenURL  string
	http      *http.Client

	mu      sync.Mutex
	cached  *cachedToken
	refresh singleflight.Group
}

type cachedToken struct {
	accessToken string
	expiresAt   time.Time
}

// NewTokenManager creates a token manager backed by the given cluster
func NewTokenManager(cfg config.JiraConfig, kube kubernetes.Interface, namespace string) *TokenManager {
	return &TokenManager{
		cfg:       cfg,
		kube:      kube,
		namespace: namespace,
		tokenURL:  defaultTokenURL,
		http:      &http.Client{Timeout: 30 * time.Second},
	}
}

// tokenResponse is a successful OAuth token exchange
type tokenResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	ExpiresIn    int64  `json:"expires_in"`
}

// oauthError is the Atlassian error body
type oauthError struct {
	Error            string `json:"error"`
	ErrorDescription string `json:"error_description"`
}

// AccessToken returns a valid access token, refreshing if needed
func (m *TokenManager) AccessToken(ctx context.Context) (string, error) {
	token, _, err := m.AccessTokenWithExpiry(ctx)
	return token, err
}

// AccessTokenWithExpiry returns a valid access token and its remaining
// lifetime
func (m *TokenManager) AccessTokenWithExpiry(ctx context.Context) (string, time.Duration, error) {
	m.mu.Lock()
	if m.cached != nil && time.Until(m.cached.expiresAt) > expiryBuffer {
		token := m.cached.accessToken
		remaining := time.Until(m.cached.expiresAt)
		m.mu.Unlock()
		return token, remaining, nil
	}
	m.mu.Unlock()

	// Collapse concurrent refreshes into one token exchange
	result, err, _ := m.refresh.Do("refresh", func() (interface{}, error) {
		return m.doRefresh(ctx)
	})
	if err != nil {
		return "", 0, err
	}
	cached := result.(*cachedToken)
	return cached.accessToken, time.Until(cached.expiresAt), nil
}

// ForceRefresh drops the cache and performs a fresh token exchange
func (m *TokenManager) ForceRefresh(ctx context.Context) (string, error) {
	m.mu.Lock()
	m.cached = nil
	m.mu.Unlock()
	return m.AccessToken(ctx)
}

func (m *TokenManager) doRefresh(ctx context.Context) (*cachedToken, error) {
	refreshToken, err := m.currentRefreshToken(ctx)
	if err != nil {
		return nil, err
	}

	resp, err := m.exchange(ctx, refreshToken)
	if err != nil {
		return nil, err
	}

	// Persist before caching so a crash cannot lose the rotated pair
	newRefresh := resp.RefreshToken
	if newRefresh == "" {
		newRefresh = refreshToken
	}
	if err := m.persistTokens(ctx, resp.AccessToken, newRefresh); err != nil {
		return nil, fmt.Errorf("persisting jira tokens: %w", err)
	}

	cached := &cachedToken{
		accessToken: resp.AccessToken,
		expiresAt:   time.Now().Add(time.Duration(resp.ExpiresIn) * time.Second),
	}
	m.mu.Lock()
	m.cached = cached
	m.mu.Unlock()

	logging.Info("Refreshed Jira access token, expires in %ds", resp.ExpiresIn)
	return cached, nil
}

// currentRefreshToken prefers the rotated token in the Secret over the
// bootstrap token from the environment.
func (m *TokenManager) currentRefreshToken(ctx context.Context) (string, error) {
	secret, err := m.kube.CoreV1().Secrets(m.namespace).Get(ctx, tokenSecretName, metav1.GetOptions{})
	if err == nil {
		if token := string(secret.Data[refreshTokenKey]); token != "" {
			return token, nil
		}
	} else if !apierrors.IsNotFound(err) {
		return "", fmt.Errorf("reading token secret: %w", err)
	}

	if m.cfg.RefreshToken != "" {
		return m.cfg.RefreshToken, nil
	}
	return "", fmt.Errorf("no Jira refresh token available (secret %s missing and JIRA_REFRESH_TOKEN unset)", tokenSecretName)
}

func (m *TokenManager) exchange(ctx context.Context, refreshToken string) (*tokenResponse, error) {
	form := url.Values{}
	form.Set("grant_type", "refresh_token")
	form.Set("client_id", m.cfg.ClientID)
	form.Set("client_secret", m.cfg.ClientSecret)
	form.Set("refresh_token", refreshToken)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, m.tokenURL, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := m.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("token exchange request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		var oauthErr oauthError
		if err := json.NewDecoder(resp.Body).Decode(&oauthErr); err == nil && oauthErr.Error != "" {
			return nil, fmt.Errorf("token exchange failed: %s: %s", oauthErr.Error, oauthErr.ErrorDescription)
		}
		return nil, fmt.Errorf("token exchange failed with status %d", resp.StatusCode)
	}

	var token tokenResponse
	if err := json.NewDecoder(resp.Body).Decode(&token); err != nil {
		return nil, fmt.Errorf("parsing token response: %w", err)
	}
	if token.AccessToken == "" {
		return nil, fmt.Errorf("token exchange returned empty access token")
	}
	return &token, nil
}

func (m *TokenManager) persistTokens(ctx context.Context, accessToken, refreshToken string) error {
	secrets := m.kube.CoreV1().Secrets(m.namespace)
	data := map[string][]byte{
		accessTokenKey:  []byte(accessToken),
		refreshTokenKey: []byte(refreshToken),
	}

	existing, err := secrets.Get(ctx, tokenSecretName, metav1.GetOptions{})
	if apierrors.IsNotFound(err) {
		_, err = secrets.Create(ctx, &corev1.Secret{
			ObjectMeta: metav1.ObjectMeta{
				Name:      tokenSecretName,
				Namespace: m.namespace,
				Labels:    map[string]string{"app.kubernetes.io/managed-by": secretFieldOwner},
			},
			Data: data,
		}, metav1.CreateOptions{})
		return err
	}
	if err != nil {
		return err
	}

	existing.Data = data
	_, err = secrets.Update(ctx, existing, metav1.UpdateOptions{})
	return err
}
