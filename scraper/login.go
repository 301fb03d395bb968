package scraper

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/rs/zerolog/log"

	"hkulib-booker/metrics"
)

const (
	DefaultLoginURL = "https://lib.hku.hk/hkulauth/legacy/authMain/uidSignIn"
	defaultLanding  = "/getpatron.aspx"
)

// Authenticator establishes a logged-in session on c. The booking code only
// relies on the cookies it leaves in the session's jar.
type Authenticator interface {
	Login(ctx context.Context, c *Client, uid, password string) error
}

// FormLogin signs in through the library's UID/PIN form and then visits a
// landing page on the booking host so the booking cookies are issued.
type FormLogin struct {
	LoginURL      string
	LandingURL    string
	UserField     string
	PasswordField string
	// FailureMarker, when set, marks the login response as a failure.
	FailureMarker string
}

func (l *FormLogin) withDefaults(c *Client) FormLogin {
	out := *l
	if out.LoginURL == "" {
		out.LoginURL = DefaultLoginURL
	}
	if out.LandingURL == "" {
		out.LandingURL = c.BaseURL() + defaultLanding
	}
	if out.UserField == "" {
		out.UserField = "userid"
	}
	if out.PasswordField == "" {
		out.PasswordField = "password"
	}
	return out
}

func (l *FormLogin) Login(ctx context.Context, c *Client, uid, password string) error {
	cfg := l.withDefaults(c)
	logger := log.With().Str("uid", uid).Str("login_url", cfg.LoginURL).Logger()

	// Step 1: fetch the sign-in page for its cookies
	if _, err := c.get(ctx, cfg.LoginURL); err != nil {
		metrics.LoginFailures.Inc()
		return fmt.Errorf("error fetching login page: %w", err)
	}

	// Step 2: submit credentials
	form := url.Values{
		cfg.UserField:     {uid},
		cfg.PasswordField: {password},
	}
	body, err := c.postForm(ctx, cfg.LoginURL, form.Encode())
	if err != nil {
		metrics.LoginFailures.Inc()
		return fmt.Errorf("error logging in: %w", err)
	}
	if cfg.FailureMarker != "" && strings.Contains(body, cfg.FailureMarker) {
		metrics.LoginFailures.Inc()
		logger.Warn().Msg("Login unsuccessful, check the UID and PIN")
		return fmt.Errorf("%w: portal rejected the credentials", ErrLoginFailed)
	}

	// Step 3: carry the session over to the booking host
	if _, err := c.get(ctx, cfg.LandingURL); err != nil {
		metrics.LoginFailures.Inc()
		return fmt.Errorf("error opening booking landing page: %w", err)
	}

	if len(c.cookies(cfg.LandingURL)) == 0 {
		metrics.LoginFailures.Inc()
		logger.Warn().Msg("No session cookies set for the booking host")
		return fmt.Errorf("%w: no session cookies for %s", ErrLoginFailed, cfg.LandingURL)
	}

	logger.Info().Msg("Login successful")
	return nil
}
