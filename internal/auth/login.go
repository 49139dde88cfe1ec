package auth

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/charmbracelet/log"
	"golang.org/x/oauth2"

	"upcwatch/internal/models"
	"upcwatch/internal/shared"
)

const authorizePath = "/o/authorize/"

// errStopRedirect aborts the redirect chain once the provider sends the
// browser back to the registered redirect URI carrying the code.
var errStopRedirect = errors.New("stop at redirect URI")

// LoginFlow performs the initial PKCE authorization against the provider.
//
// The provider has no client-credentials grant, so the flow signs in the way
// a browser would: load the authorization page, fill in the login form it
// serves, and pick the authorization code off the final redirect. For
// accounts where that form is unavailable (SSO, captcha), the manual variant
// hands the URL to the user's browser instead.
type LoginFlow struct {
	config shared.AuthConfig
	logger *log.Logger
	now    func() time.Time
}

// NewLoginFlow creates a LoginFlow for the given auth configuration.
func NewLoginFlow(config shared.AuthConfig) *LoginFlow {
	return &LoginFlow{
		config: config,
		logger: shared.NewLogger(nil),
		now:    time.Now,
	}
}

func (f *LoginFlow) oauthConfig() *oauth2.Config {
	base := strings.TrimRight(f.config.AuthBaseURL, "/")
	return &oauth2.Config{
		ClientID:    f.config.ClientID,
		RedirectURL: f.config.RedirectURI,
		Endpoint: oauth2.Endpoint{
			AuthURL:  base + authorizePath,
			TokenURL: base + tokenPath,
		},
	}
}

// AuthorizeURL builds the authorization URL for a manual, browser-assisted
// login. The returned verifier and state must be passed back to
// [LoginFlow.ExchangeRedirect] together with the URL the provider finally
// redirected the browser to.
func (f *LoginFlow) AuthorizeURL() (authURL, verifier, state string) {
	verifier = oauth2.GenerateVerifier()
	state = shared.GenerateID()
	authURL = f.oauthConfig().AuthCodeURL(state, oauth2.S256ChallengeOption(verifier))
	return authURL, verifier, state
}

// ExchangeRedirect completes a manual login: it extracts the authorization
// code from the redirect URL the user pasted back and exchanges it for tokens.
func (f *LoginFlow) ExchangeRedirect(ctx context.Context, redirectURL, verifier, state string) (*models.TokenSet, error) {
	code, err := extractCode(redirectURL, state)
	if err != nil {
		return nil, err
	}
	return f.exchange(ctx, code, verifier)
}

// Login signs in with the account's username and password and returns the
// resulting token set. The caller is responsible for storing it.
func (f *LoginFlow) Login(ctx context.Context, username, password string) (*models.TokenSet, error) {
	if username == "" || password == "" {
		return nil, fmt.Errorf("%w: username and password are required", shared.ErrMissingCredentials)
	}

	authURL, verifier, state := f.AuthorizeURL()

	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create cookie jar: %w", err)
	}

	var finalRedirect string
	client := &http.Client{
		Jar:     jar,
		Timeout: 60 * time.Second,
		CheckRedirect: func(req *http.Request, via []*http.Request) error {
			if strings.HasPrefix(req.URL.String(), f.config.RedirectURI) {
				finalRedirect = req.URL.String()
				return errStopRedirect
			}
			if len(via) >= 10 {
				return errors.New("too many redirects")
			}
			return nil
		},
	}

	f.logger.Debug("loading authorization page", "url", authURL)
	loginPage, err := f.get(ctx, client, authURL)
	if err != nil {
		return nil, err
	}

	// An existing provider session skips the login form entirely.
	if finalRedirect == "" {
		finalRedirect, err = f.submitLoginForm(ctx, client, loginPage, username, password)
		if err != nil {
			return nil, err
		}
	}

	code, err := extractCode(finalRedirect, state)
	if err != nil {
		return nil, err
	}

	return f.exchange(ctx, code, verifier)
}

// loginPage is the parsed provider login form.
type loginPage struct {
	url  *url.URL
	form url.Values
	// action is the resolved form submission URL.
	action string
}

// get fetches a page, tolerating the aborted redirect that signals arrival
// at the redirect URI.
func (f *LoginFlow) get(ctx context.Context, client *http.Client, pageURL string) (*loginPage, error) {
	req, err := http.NewRequestWithContext(ctx, "GET", pageURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := client.Do(req)
	if err != nil {
		if errors.Is(err, errStopRedirect) {
			return nil, nil
		}
		return nil, fmt.Errorf("%w: %v", shared.ErrAuthFailed, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: authorization page returned status %d", shared.ErrAuthFailed, resp.StatusCode)
	}

	return parseLoginPage(resp)
}

// parseLoginPage locates the login form and collects its hidden fields,
// including the CSRF token the provider requires on submission.
func parseLoginPage(resp *http.Response) (*loginPage, error) {
	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to parse login page: %v", shared.ErrAuthFailed, err)
	}

	form := doc.Find("form").FilterFunction(func(_ int, s *goquery.Selection) bool {
		return s.Find(`input[name="csrfmiddlewaretoken"]`).Length() > 0
	}).First()
	if form.Length() == 0 {
		return nil, fmt.Errorf("%w: no login form on authorization page", shared.ErrAuthFailed)
	}

	page := &loginPage{url: resp.Request.URL, form: url.Values{}}

	form.Find(`input[type="hidden"]`).Each(func(_ int, s *goquery.Selection) {
		name, _ := s.Attr("name")
		value, _ := s.Attr("value")
		if name != "" {
			page.form.Set(name, value)
		}
	})
	if page.form.Get("csrfmiddlewaretoken") == "" {
		return nil, fmt.Errorf("%w: login form without CSRF token", shared.ErrAuthFailed)
	}

	action, _ := form.Attr("action")
	actionURL, err := page.url.Parse(action)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid form action %q: %v", shared.ErrAuthFailed, action, err)
	}
	page.action = actionURL.String()

	return page, nil
}

// submitLoginForm posts the credentials and returns the redirect URL that
// carries the authorization code.
func (f *LoginFlow) submitLoginForm(ctx context.Context, client *http.Client, page *loginPage, username, password string) (string, error) {
	if page == nil {
		return "", fmt.Errorf("%w: provider session ended without a code", shared.ErrAuthFailed)
	}

	page.form.Set("username", username)
	page.form.Set("password", password)

	req, err := http.NewRequestWithContext(ctx, "POST", page.action, strings.NewReader(page.form.Encode()))
	if err != nil {
		return "", fmt.Errorf("failed to create login request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Referer", page.url.String())

	var finalRedirect string
	resp, err := client.Do(req)
	if err != nil {
		var urlErr *url.Error
		if errors.As(err, &urlErr) && errors.Is(urlErr.Err, errStopRedirect) {
			finalRedirect = urlErr.URL
		} else {
			return "", fmt.Errorf("%w: %v", shared.ErrAuthFailed, err)
		}
	} else {
		defer resp.Body.Close()
		// Landing back on a 200 page means the form was re-served, which
		// is how the provider reports bad credentials.
		return "", fmt.Errorf("%w: provider rejected the credentials", shared.ErrAuthFailed)
	}

	return finalRedirect, nil
}

// extractCode pulls the authorization code out of the redirect URL and
// verifies the state round-tripped unchanged.
func extractCode(redirectURL, state string) (string, error) {
	parsed, err := url.Parse(redirectURL)
	if err != nil {
		return "", fmt.Errorf("%w: invalid redirect URL: %v", shared.ErrAuthFailed, err)
	}

	query := parsed.Query()
	if errCode := query.Get("error"); errCode != "" {
		return "", fmt.Errorf("%w: provider returned error %q", shared.ErrAuthFailed, errCode)
	}
	if state != "" && query.Get("state") != state {
		return "", fmt.Errorf("%w: state mismatch on redirect", shared.ErrAuthFailed)
	}

	code := query.Get("code")
	if code == "" {
		return "", fmt.Errorf("%w: redirect URL has no authorization code", shared.ErrAuthFailed)
	}
	return code, nil
}

// exchange trades the authorization code for tokens.
func (f *LoginFlow) exchange(ctx context.Context, code, verifier string) (*models.TokenSet, error) {
	token, err := f.oauthConfig().Exchange(ctx, code, oauth2.VerifierOption(verifier))
	if err != nil {
		return nil, fmt.Errorf("%w: code exchange failed: %v", shared.ErrAuthFailed, err)
	}

	tokens := &models.TokenSet{
		AccessToken:  token.AccessToken,
		RefreshToken: token.RefreshToken,
		ExpiresAt:    token.Expiry.UTC(),
	}
	if token.Expiry.IsZero() {
		tokens.ExpiresAt = f.now().UTC().Add(defaultExpiresIn * time.Second)
	}

	f.logger.Info("login complete", "expires_at", tokens.ExpiresAt)
	return tokens, nil
}
