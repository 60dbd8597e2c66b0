package accounts

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	goSession "github.com/MrEthical07/goSession"
)

const (
	loginPath    = "/accounts/login/"
	registerPath = "/accounts/register/"
	profilePath  = "/accounts/profile/"

	maxBodyBytes = 1 << 20
)

// TokenSource supplies the bearer credential. *goSession.Manager
// implements it.
type TokenSource interface {
	AccessToken(ctx context.Context) (string, error)
}

// Client talks to one accounts API deployment.
type Client struct {
	baseURL string
	http    *http.Client
	tokens  TokenSource
}

// Option customizes a Client.
type Option func(*Client)

// WithHTTPClient replaces the default client, which has a 10s timeout.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

// WithTokenSource attaches bearer credentials to every request.
func WithTokenSource(ts TokenSource) Option {
	return func(c *Client) { c.tokens = ts }
}

// New returns a client for the API rooted at baseURL.
func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: 10 * time.Second},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type loginData struct {
	User   goSession.User        `json:"user"`
	Tokens goSession.Credentials `json:"tokens"`
}

// Login exchanges an email and password for a credential pair and the
// user record.
func (c *Client) Login(ctx context.Context, email, password string) (goSession.Credentials, goSession.User, error) {
	var data loginData
	if err := c.do(ctx, http.MethodPost, loginPath, loginRequest{Email: email, Password: password}, &data); err != nil {
		return goSession.Credentials{}, goSession.User{}, err
	}
	return data.Tokens, data.User, nil
}

// RegisterRequest is the sign-up payload.
type RegisterRequest struct {
	Email     string `json:"email"`
	Password  string `json:"password"`
	FirstName string `json:"first_name,omitempty"`
	LastName  string `json:"last_name,omitempty"`
}

// Register creates an account. The new user must verify their email before
// Login succeeds.
func (c *Client) Register(ctx context.Context, req RegisterRequest) error {
	return c.do(ctx, http.MethodPost, registerPath, req, nil)
}

// FetchProfile returns the current user's profile fields.
func (c *Client) FetchProfile(ctx context.Context) (goSession.UserPatch, error) {
	var patch goSession.UserPatch
	err := c.do(ctx, http.MethodGet, profilePath, nil, &patch)
	return patch, err
}

// PatchProfile sends the changed fields and returns the fields as stored by
// the API.
func (c *Client) PatchProfile(ctx context.Context, patch goSession.UserPatch) (goSession.UserPatch, error) {
	var updated goSession.UserPatch
	err := c.do(ctx, http.MethodPatch, profilePath, patch, &updated)
	return updated, err
}

type envelope struct {
	Data json.RawMessage `json:"data"`
}

func (c *Client) do(ctx context.Context, method, path string, in, out any) error {
	var body io.Reader
	if in != nil {
		raw, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("encode %s %s: %w", method, path, err)
		}
		body = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.tokens != nil {
		token, err := c.tokens.AccessToken(ctx)
		if err != nil {
			return err
		}
		if token != "" {
			req.Header.Set("Authorization", "Bearer "+token)
		}
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return fmt.Errorf("read %s %s: %w", method, path, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		var eb errorBody
		_ = json.Unmarshal(raw, &eb)
		return eb.toAPIError(resp.StatusCode)
	}

	if out == nil || len(raw) == 0 {
		return nil
	}
	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return fmt.Errorf("decode %s %s: %w", method, path, err)
	}
	if len(env.Data) == 0 {
		return fmt.Errorf("decode %s %s: missing data", method, path)
	}
	if err := json.Unmarshal(env.Data, out); err != nil {
		return fmt.Errorf("decode %s %s: %w", method, path, err)
	}
	return nil
}
