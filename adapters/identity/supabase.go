package identity

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/domecloud/dsigner/core"
	"github.com/domecloud/dsigner/ports"
)

const defaultTimeout = 10 * time.Second

// SupabaseProvider implements the IdentityProvider interface against a
// Supabase GoTrue deployment, authenticated with the service role key.
type SupabaseProvider struct {
	baseURL string
	apiKey  string
	client  *http.Client
}

// NewSupabaseProvider creates a new Supabase identity provider
func NewSupabaseProvider(baseURL, serviceRoleKey string) ports.IdentityProvider {
	return &SupabaseProvider{
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  serviceRoleKey,
		client:  &http.Client{Timeout: defaultTimeout},
	}
}

type supabaseUser struct {
	ID        string    `json:"id"`
	Email     string    `json:"email"`
	CreatedAt time.Time `json:"created_at"`
}

func (u *supabaseUser) identity() *core.Identity {
	return &core.Identity{
		ID:        u.ID,
		Email:     u.Email,
		CreatedAt: u.CreatedAt,
	}
}

type supabaseSession struct {
	AccessToken string        `json:"access_token"`
	ExpiresIn   int64         `json:"expires_in"`
	User        *supabaseUser `json:"user"`
}

type supabaseError struct {
	Msg              string `json:"msg"`
	Message          string `json:"message"`
	ErrorDescription string `json:"error_description"`
}

func (e *supabaseError) text() string {
	switch {
	case e.Msg != "":
		return e.Msg
	case e.Message != "":
		return e.Message
	case e.ErrorDescription != "":
		return e.ErrorDescription
	}
	return "unknown error"
}

// SignUp registers a new user with email and password
func (p *SupabaseProvider) SignUp(ctx context.Context, email, password string) (*core.Identity, error) {
	// The signup response is the user object itself, or wraps it when email
	// confirmation is disabled and a session is issued immediately.
	var out struct {
		supabaseUser
		User *supabaseUser `json:"user"`
	}
	body := map[string]string{"email": email, "password": password}
	if err := p.do(ctx, http.MethodPost, "/auth/v1/signup", body, "", &out); err != nil {
		return nil, err
	}

	if out.User != nil {
		return out.User.identity(), nil
	}
	return out.supabaseUser.identity(), nil
}

// SignIn authenticates with the password grant and returns the session
func (p *SupabaseProvider) SignIn(ctx context.Context, email, password string) (*core.Identity, *core.Session, error) {
	var out supabaseSession
	body := map[string]string{"email": email, "password": password}
	if err := p.do(ctx, http.MethodPost, "/auth/v1/token?grant_type=password", body, "", &out); err != nil {
		return nil, nil, err
	}
	if out.AccessToken == "" || out.User == nil {
		return nil, nil, fmt.Errorf("%w: sign-in response missing session", core.ErrProvider)
	}

	session := &core.Session{
		IdentityID:  out.User.ID,
		AccessToken: out.AccessToken,
		ExpiresAt:   time.Now().Add(time.Duration(out.ExpiresIn) * time.Second),
	}
	return out.User.identity(), session, nil
}

// GetUser resolves an access token to its identity
func (p *SupabaseProvider) GetUser(ctx context.Context, accessToken string) (*core.Identity, error) {
	var out supabaseUser
	if err := p.do(ctx, http.MethodGet, "/auth/v1/user", nil, accessToken, &out); err != nil {
		return nil, err
	}
	if out.ID == "" {
		return nil, fmt.Errorf("%w: user response missing id", core.ErrProvider)
	}
	return out.identity(), nil
}

// Resend asks GoTrue to send a fresh signup OTP
func (p *SupabaseProvider) Resend(ctx context.Context, email string) error {
	body := map[string]string{"type": "signup", "email": email}
	return p.do(ctx, http.MethodPost, "/auth/v1/resend", body, "", nil)
}

func (p *SupabaseProvider) do(ctx context.Context, method, path string, body any, bearer string, out any) error {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to encode request: %w", err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, p.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("apikey", p.apiKey)
	req.Header.Set("Content-Type", "application/json")
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}

	resp, err := p.client.Do(req)
	if err != nil {
		return fmt.Errorf("identity provider unreachable: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		var apiErr supabaseError
		_ = json.NewDecoder(resp.Body).Decode(&apiErr)
		return fmt.Errorf("identity provider: %s (status %d)", apiErr.text(), resp.StatusCode)
	}

	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return fmt.Errorf("%w: %v", core.ErrProvider, err)
		}
	}
	return nil
}
