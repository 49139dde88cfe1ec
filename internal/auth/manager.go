package auth

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"golang.org/x/sync/singleflight"

	"upcwatch/internal/models"
	"upcwatch/internal/shared"
)

// expiryMargin is how close to expiry a token may get before it is
// refreshed proactively.
const expiryMargin = 30 * time.Second

// defaultExpiresIn is assumed when the token endpoint omits expires_in.
const defaultExpiresIn = 300

// tokenPath is the provider's OAuth token endpoint, relative to the auth base URL.
const tokenPath = "/o/token/"

// CredentialStore is the persistence surface the manager needs. Implemented
// by [repositories.CredentialRepository].
type CredentialStore interface {
	Get() (*models.TokenSet, error)
	Set(tokens *models.TokenSet) error
	Clear() error
}

// Manager serves access tokens, refreshing them when needed.
type Manager struct {
	store      CredentialStore
	config     shared.AuthConfig
	httpClient *http.Client
	logger     *log.Logger
	group      singleflight.Group
	now        func() time.Time
}

// NewManager creates a Manager backed by the given credential store.
func NewManager(store CredentialStore, config shared.AuthConfig) *Manager {
	return &Manager{
		store:      store,
		config:     config,
		httpClient: &http.Client{Timeout: 30 * time.Second},
		logger:     shared.NewLogger(nil),
		now:        time.Now,
	}
}

// AccessToken returns a valid access token, refreshing the stored one first
// if it expires within the safety margin. Concurrent callers are collapsed
// into a single refresh request; all of them receive the same result.
func (m *Manager) AccessToken(ctx context.Context) (string, error) {
	tokens, err := m.store.Get()
	if err != nil {
		return "", err
	}
	if tokens == nil || tokens.AccessToken == "" {
		return "", fmt.Errorf("%w: no stored tokens, run login first", shared.ErrMissingCredentials)
	}

	if !tokens.ExpiresWithin(m.now(), expiryMargin) {
		return tokens.AccessToken, nil
	}

	refreshed, err, _ := m.group.Do("refresh", func() (any, error) {
		return m.refresh(ctx, tokens)
	})
	if err != nil {
		return "", err
	}

	return refreshed.(*models.TokenSet).AccessToken, nil
}

// SetTokens stores a freshly obtained token set.
func (m *Manager) SetTokens(tokens *models.TokenSet) error {
	return m.store.Set(tokens)
}

// Clear drops the stored tokens, forcing a fresh login.
func (m *Manager) Clear() error {
	return m.store.Clear()
}

// Status reports the stored token set, or nil when none is stored. Used by
// the auth status command; the tokens themselves are never printed.
func (m *Manager) Status() (*models.TokenSet, error) {
	return m.store.Get()
}

// refresh exchanges the refresh token for a new access token. On failure the
// stored credentials are cleared so the next call reports a missing login
// instead of retrying a refresh token the provider already rejected.
func (m *Manager) refresh(ctx context.Context, tokens *models.TokenSet) (*models.TokenSet, error) {
	if tokens.RefreshToken == "" {
		return nil, fmt.Errorf("%w: stored tokens have no refresh token", shared.ErrNoRefreshToken)
	}

	m.logger.Debug("refreshing access token")

	form := url.Values{}
	form.Set("grant_type", "refresh_token")
	form.Set("client_id", m.config.ClientID)
	form.Set("refresh_token", tokens.RefreshToken)

	endpoint := strings.TrimRight(m.config.AuthBaseURL, "/") + tokenPath
	req, err := http.NewRequestWithContext(ctx, "POST", endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, fmt.Errorf("failed to create refresh request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := m.httpClient.Do(req)
	if err != nil {
		return nil, m.fail(fmt.Errorf("%w: %v", shared.ErrRefreshFailed, err))
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, m.fail(fmt.Errorf("%w: token endpoint returned status %d", shared.ErrRefreshFailed, resp.StatusCode))
	}

	var payload struct {
		AccessToken  string `json:"access_token"`
		RefreshToken string `json:"refresh_token"`
		ExpiresIn    int    `json:"expires_in"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, m.fail(fmt.Errorf("%w: failed to decode token response: %v", shared.ErrRefreshFailed, err))
	}
	if payload.AccessToken == "" {
		return nil, m.fail(fmt.Errorf("%w: token response without access_token", shared.ErrRefreshFailed))
	}

	refreshed := &models.TokenSet{
		AccessToken: payload.AccessToken,
		// Some providers rotate the refresh token on every exchange, some
		// never return it again. Carry the old one forward when absent.
		RefreshToken: payload.RefreshToken,
		ExpiresAt:    m.expiry(payload.ExpiresIn),
	}
	if refreshed.RefreshToken == "" {
		refreshed.RefreshToken = tokens.RefreshToken
	}

	if err := m.store.Set(refreshed); err != nil {
		return nil, fmt.Errorf("failed to store refreshed tokens: %w", err)
	}

	return refreshed, nil
}

func (m *Manager) expiry(expiresIn int) time.Time {
	if expiresIn <= 0 {
		expiresIn = defaultExpiresIn
	}
	return m.now().UTC().Add(time.Duration(expiresIn) * time.Second)
}

func (m *Manager) fail(err error) error {
	if clearErr := m.store.Clear(); clearErr != nil {
		m.logger.Error("failed to clear credentials after refresh failure", "error", clearErr)
	}
	return err
}
