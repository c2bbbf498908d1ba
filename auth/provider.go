package auth

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// ProviderUser is the user object returned by the auth provider.
type ProviderUser struct {
	ID           string         `json:"id"`
	Email        string         `json:"email"`
	UserMetadata map[string]any `json:"user_metadata"`
}

func (u ProviderUser) metadata(key string) string {
	if v, ok := u.UserMetadata[key].(string); ok {
		return v
	}
	return ""
}

// Session is a token grant returned by the auth provider.
type Session struct {
	AccessToken  string        `json:"access_token"`
	RefreshToken string        `json:"refresh_token"`
	TokenType    string        `json:"token_type"`
	ExpiresIn    int           `json:"expires_in"`
	User         *ProviderUser `json:"user"`
}

// ProviderError is a non-2xx answer of the auth provider.
type ProviderError struct {
	Status  int
	Message string
}

func (e *ProviderError) Error() string {
	return fmt.Sprintf("auth provider returned %d: %s", e.Status, e.Message)
}

// GoTrueClient talks to the Supabase auth REST API.
type GoTrueClient struct {
	baseURL string
	apiKey  string
	client  *http.Client
}

// NewGoTrueClient creates a client for the project at supabaseURL.
func NewGoTrueClient(supabaseURL, anonKey string, client *http.Client) *GoTrueClient {
	if client == nil {
		client = &http.Client{Timeout: 15 * time.Second}
	}
	return &GoTrueClient{
		baseURL: strings.TrimRight(supabaseURL, "/") + "/auth/v1",
		apiKey:  anonKey,
		client:  client,
	}
}

// SignInWithIDToken exchanges an OpenID Connect id token issued by provider for a session.
func (c *GoTrueClient) SignInWithIDToken(ctx context.Context, provider, idToken string) (Session, error) {
	var session Session
	body := map[string]string{"provider": provider, "id_token": idToken}
	err := c.do(ctx, http.MethodPost, "/token?grant_type=id_token", "", body, &session)
	return session, err
}

// RefreshSession exchanges a refresh token for a new session.
func (c *GoTrueClient) RefreshSession(ctx context.Context, refreshToken string) (Session, error) {
	var session Session
	body := map[string]string{"refresh_token": refreshToken}
	err := c.do(ctx, http.MethodPost, "/token?grant_type=refresh_token", "", body, &session)
	return session, err
}

// GetUser resolves the user owning accessToken.
func (c *GoTrueClient) GetUser(ctx context.Context, accessToken string) (ProviderUser, error) {
	var user ProviderUser
	err := c.do(ctx, http.MethodGet, "/user", accessToken, nil, &user)
	return user, err
}

// SignOut revokes the session of accessToken.
func (c *GoTrueClient) SignOut(ctx context.Context, accessToken string) error {
	return c.do(ctx, http.MethodPost, "/logout", accessToken, nil, nil)
}

func (c *GoTrueClient) do(ctx context.Context, method, path, bearer string, body, out any) error {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshal auth request: %w", err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("build auth request: %w", err)
	}
	req.Header.Set("apikey", c.apiKey)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("call auth provider %s: %w", redactQuery(path), err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return decodeProviderError(resp)
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode auth provider response: %w", err)
	}
	return nil
}

func decodeProviderError(resp *http.Response) error {
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))

	var body struct {
		ErrorDescription string `json:"error_description"`
		Msg              string `json:"msg"`
		Message          string `json:"message"`
		Error            string `json:"error"`
	}
	_ = json.Unmarshal(raw, &body)

	message := firstNonEmpty(body.ErrorDescription, body.Msg, body.Message, body.Error, strings.TrimSpace(string(raw)), resp.Status)
	return &ProviderError{Status: resp.StatusCode, Message: message}
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

func redactQuery(path string) string {
	u, err := url.Parse(path)
	if err != nil {
		return path
	}
	return u.Path
}

// providerMessage returns the provider's own message when err carries one.
func providerMessage(err error, fallback string) string {
	var perr *ProviderError
	if errors.As(err, &perr) && perr.Message != "" {
		return perr.Message
	}
	return fallback
}
