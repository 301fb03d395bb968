package scraper

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strings"
	"sync"
	"time"
)

const userAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/91.0.4472.124 Safari/537.36"

// Client is a logged-in session on the booking portal.
type Client struct {
	session *http.Client
	baseURL string
	auth    Authenticator

	// the portal keeps postback state per session
	bookMu sync.Mutex
}

// Option configures a Client.
type Option func(*Client)

// WithBaseURL points the client at another portal host.
func WithBaseURL(base string) Option {
	return func(c *Client) {
		c.baseURL = strings.TrimRight(base, "/")
	}
}

// WithTimeout sets the per-request timeout of the underlying http.Client.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		c.session.Timeout = d
	}
}

// WithAuthenticator replaces the default form login.
func WithAuthenticator(a Authenticator) Option {
	return func(c *Client) {
		c.auth = a
	}
}

// WithHTTPClient uses hc for all requests. A cookie jar is attached when hc
// has none.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc.Jar == nil {
			hc.Jar = c.session.Jar
		}
		c.session = hc
	}
}

func NewClient(opts ...Option) *Client {
	jar, _ := cookiejar.New(nil)
	c := &Client{
		session: &http.Client{
			Jar:     jar,
			Timeout: 30 * time.Second,
			CheckRedirect: func(req *http.Request, via []*http.Request) error {
				req.Header.Set("User-Agent", userAgent)
				return nil
			},
		},
		baseURL: DefaultBookingBaseURL,
		auth:    &FormLogin{},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// HTTPClient exposes the session so a login collaborator can attach cookies.
func (c *Client) HTTPClient() *http.Client {
	return c.session
}

// BaseURL returns the portal host the client talks to.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// Login authenticates the session. It only needs to run once per Client.
func (c *Client) Login(ctx context.Context, uid, password string) error {
	return c.auth.Login(ctx, c, uid, password)
}

func (c *Client) get(ctx context.Context, rawURL string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return "", fmt.Errorf("error creating GET request: %w", err)
	}
	setBrowserHeaders(req)
	return c.do(req)
}

func (c *Client) postForm(ctx context.Context, rawURL, body string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, rawURL, strings.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("error creating POST request: %w", err)
	}
	setBrowserHeaders(req)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Referer", rawURL)
	return c.do(req)
}

func (c *Client) do(req *http.Request) (string, error) {
	resp, err := c.session.Do(req)
	if err != nil {
		return "", fmt.Errorf("%s %s: %w", req.Method, req.URL.Redacted(), err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", &StatusError{Method: req.Method, URL: req.URL.Redacted(), StatusCode: resp.StatusCode}
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("error reading response body: %w", err)
	}
	return string(body), nil
}

// cookies reports the cookies the session holds for rawURL.
func (c *Client) cookies(rawURL string) []*http.Cookie {
	u, err := url.Parse(rawURL)
	if err != nil || c.session.Jar == nil {
		return nil
	}
	return c.session.Jar.Cookies(u)
}

func setBrowserHeaders(req *http.Request) {
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,image/webp,*/*;q=0.8")
	req.Header.Set("Accept-Language", "en-US,en;q=0.5")
}
