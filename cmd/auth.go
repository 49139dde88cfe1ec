package main

import (
	"bufio"
	"context"
	"fmt"
	"strings"

	"github.com/urfave/cli/v3"

	"upcwatch/internal/models"
	"upcwatch/internal/shared"
)

// AuthLogin signs in to the distribution account and stores the tokens.
//
// By default the login form is driven directly with the configured username
// and password. With --manual the authorization URL is opened in the user's
// browser instead, and the final redirect URL is pasted back into the
// terminal; use this when the account sits behind SSO or a captcha.
func (r *Runner) AuthLogin(ctx context.Context, cmd *cli.Command) error {
	var tokens *models.TokenSet
	var err error

	if cmd.Bool("manual") {
		tokens, err = r.manualLogin(ctx)
	} else {
		username := cmd.String("username")
		if username == "" {
			username = r.config.Auth.Username
		}
		password := cmd.String("password")
		if password == "" {
			password = r.config.Auth.Password
		}

		tokens, err = r.login.Login(ctx, username, password)
	}
	if err != nil {
		return err
	}

	if err := r.manager.SetTokens(tokens); err != nil {
		return err
	}

	r.writePlain("✓ Signed in, tokens stored (expire %s)\n", tokens.ExpiresAt.Format("2006-01-02 15:04:05 MST"))
	return nil
}

func (r *Runner) manualLogin(ctx context.Context) (*models.TokenSet, error) {
	authURL, verifier, state := r.login.AuthorizeURL()

	if err := shared.OpenBrowser(authURL); err != nil {
		r.logger.Warn("failed to open browser", "error", err)
	}
	r.writePlain("Open this URL in your browser and sign in:\n\n%s\n\n", authURL)
	r.writePlain("After signing in you will land on an error page; paste its full URL here.\n")
	r.writePlain("Redirect URL: ")

	reader := bufio.NewReader(r.input)
	line, err := reader.ReadString('\n')
	if err != nil {
		return nil, fmt.Errorf("failed to read redirect URL: %w", err)
	}
	redirectURL := strings.TrimSpace(line)
	if redirectURL == "" {
		return nil, fmt.Errorf("%w: redirect URL", shared.ErrMissingArgument)
	}

	return r.login.ExchangeRedirect(ctx, redirectURL, verifier, state)
}

// AuthStatus shows whether tokens are stored and when the access token expires.
func (r *Runner) AuthStatus(ctx context.Context, cmd *cli.Command) error {
	tokens, err := r.manager.Status()
	if err != nil {
		return err
	}

	if tokens == nil || tokens.AccessToken == "" {
		r.writePlain("Not signed in. Run 'upcwatch auth login'.\n")
		return nil
	}

	r.writePlain("Signed in.\n")
	r.writePlain("Access token expires: %s\n", tokens.ExpiresAt.Format("2006-01-02 15:04:05 MST"))
	if tokens.RefreshToken != "" {
		r.writePlain("Refresh token: stored\n")
	} else {
		r.writePlain("Refresh token: missing (re-login required once the access token expires)\n")
	}

	return nil
}

// AuthLogout discards the stored tokens.
func (r *Runner) AuthLogout(ctx context.Context, cmd *cli.Command) error {
	if err := r.manager.Clear(); err != nil {
		return err
	}
	r.writePlain("Tokens cleared.\n")
	return nil
}
