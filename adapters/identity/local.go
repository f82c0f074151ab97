package identity

import (
	"context"
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/domecloud/dsigner/core"
)

const sessionAudience = "dsigner:session"

// DefaultSessionTTL is how long locally issued access tokens stay valid
const DefaultSessionTTL = time.Hour

// LocalProvider is an in-process identity provider for development and tests.
// It keeps users in memory with bcrypt password hashes and issues ES256
// session tokens, the same shape a hosted provider would hand out.
type LocalProvider struct {
	signKey    *ecdsa.PrivateKey
	sessionTTL time.Duration

	users map[string]*localUser // keyed by email
	byID  map[string]*localUser
	mu    sync.RWMutex
}

type localUser struct {
	id           string
	email        string
	passwordHash []byte
	createdAt    time.Time
}

type sessionClaims struct {
	jwt.RegisteredClaims
	Email string `json:"email"`
}

// NewLocalProvider creates a local identity provider with a fresh signing key
func NewLocalProvider() (*LocalProvider, error) {
	signKey, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	if err != nil {
		return nil, fmt.Errorf("failed to generate signing key: %w", err)
	}

	return &LocalProvider{
		signKey:    signKey,
		sessionTTL: DefaultSessionTTL,
		users:      make(map[string]*localUser),
		byID:       make(map[string]*localUser),
	}, nil
}

// SignUp registers a new user
func (p *LocalProvider) SignUp(ctx context.Context, email, password string) (*core.Identity, error) {
	if email == "" || password == "" {
		return nil, errors.New("email and password are required")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if _, exists := p.users[email]; exists {
		return nil, errors.New("user already registered")
	}

	user := &localUser{
		id:           uuid.New().String(),
		email:        email,
		passwordHash: hash,
		createdAt:    time.Now(),
	}
	p.users[email] = user
	p.byID[user.id] = user

	return user.identity(), nil
}

// SignIn authenticates a user and issues a signed session token
func (p *LocalProvider) SignIn(ctx context.Context, email, password string) (*core.Identity, *core.Session, error) {
	p.mu.RLock()
	user, exists := p.users[email]
	p.mu.RUnlock()

	if !exists {
		return nil, nil, errors.New("invalid login credentials")
	}
	if err := bcrypt.CompareHashAndPassword(user.passwordHash, []byte(password)); err != nil {
		return nil, nil, errors.New("invalid login credentials")
	}

	now := time.Now()
	expiresAt := now.Add(p.sessionTTL)
	claims := sessionClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   user.id,
			Audience:  jwt.ClaimStrings{sessionAudience},
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			IssuedAt:  jwt.NewNumericDate(now),
			ID:        uuid.New().String(),
		},
		Email: user.email,
	}

	token, err := jwt.NewWithClaims(jwt.SigningMethodES256, claims).SignedString(p.signKey)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to sign session token: %w", err)
	}

	session := &core.Session{
		IdentityID:  user.id,
		AccessToken: token,
		ExpiresAt:   expiresAt,
	}
	return user.identity(), session, nil
}

// GetUser validates a session token and returns the identity that owns it
func (p *LocalProvider) GetUser(ctx context.Context, accessToken string) (*core.Identity, error) {
	token, err := jwt.ParseWithClaims(accessToken, &sessionClaims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodECDSA); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return &p.signKey.PublicKey, nil
	}, jwt.WithAudience(sessionAudience))
	if err != nil {
		return nil, fmt.Errorf("failed to parse token: %w", err)
	}
	if !token.Valid {
		return nil, errors.New("invalid session token")
	}

	claims, ok := token.Claims.(*sessionClaims)
	if !ok {
		return nil, errors.New("invalid claims type")
	}

	p.mu.RLock()
	user, exists := p.byID[claims.Subject]
	p.mu.RUnlock()

	if !exists {
		return nil, errors.New("user not found")
	}
	return user.identity(), nil
}

// Resend pretends to send a fresh OTP. There is no mail transport locally,
// so this only checks the user exists.
func (p *LocalProvider) Resend(ctx context.Context, email string) error {
	p.mu.RLock()
	defer p.mu.RUnlock()

	if _, exists := p.users[email]; !exists {
		return errors.New("user not found")
	}
	return nil
}

func (u *localUser) identity() *core.Identity {
	return &core.Identity{
		ID:        u.id,
		Email:     u.email,
		CreatedAt: u.createdAt,
	}
}
