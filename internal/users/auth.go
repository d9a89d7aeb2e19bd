package users

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"
)

// DefaultTokenTTL is the lifetime of access tokens.
const DefaultTokenTTL = 30 * time.Minute

var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrInvalidToken       = errors.New("invalid or expired token")
)

// Claims are the JWT claims of an access token. Subject is the username.
type Claims struct {
	UID int64 `json:"uid"`
	jwt.RegisteredClaims
}

// Auth registers users, checks passwords and issues HS256 tokens.
type Auth struct {
	store  *Store
	secret []byte
	ttl    time.Duration
	cost   int
	now    func() time.Time
}

func NewAuth(store *Store, secret string, ttl time.Duration) *Auth {
	if ttl <= 0 {
		ttl = DefaultTokenTTL
	}
	return &Auth{
		store:  store,
		secret: []byte(secret),
		ttl:    ttl,
		cost:   bcrypt.DefaultCost,
		now:    time.Now,
	}
}

// Register creates an account. Usernames are trimmed; passwords are not.
func (a *Auth) Register(ctx context.Context, c Credentials) (*User, error) {
	username := strings.TrimSpace(c.Username)
	if username == "" || c.Password == "" {
		return nil, fmt.Errorf("%w: username and password are required", ErrInvalidCredentials)
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(c.Password), a.cost)
	if err != nil {
		return nil, fmt.Errorf("hashing password: %w", err)
	}
	return a.store.Create(ctx, username, string(hash))
}

// Login checks the password and returns a signed access token.
func (a *Auth) Login(ctx context.Context, c Credentials) (string, error) {
	u, err := a.store.GetByUsername(ctx, strings.TrimSpace(c.Username))
	if err != nil {
		return "", err
	}
	if u == nil {
		return "", ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword([]byte(u.HashedPassword), []byte(c.Password)); err != nil {
		return "", ErrInvalidCredentials
	}
	return a.IssueToken(u)
}

// IssueToken signs a token for u.
func (a *Auth) IssueToken(u *User) (string, error) {
	now := a.now()
	claims := Claims{
		UID: u.ID,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   u.Username,
			ID:        strconv.FormatInt(now.UnixNano(), 36),
			ExpiresAt: jwt.NewNumericDate(now.Add(a.ttl)),
			IssuedAt:  jwt.NewNumericDate(now),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(a.secret)
	if err != nil {
		return "", fmt.Errorf("signing token: %w", err)
	}
	return signed, nil
}

// ParseToken validates signature and expiry.
func (a *Auth) ParseToken(tokenString string) (*Claims, error) {
	parsed, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		return a.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithTimeFunc(a.now))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidToken, err)
	}
	claims, ok := parsed.Claims.(*Claims)
	if !ok || !parsed.Valid || claims.Subject == "" {
		return nil, ErrInvalidToken
	}
	return claims, nil
}

// Authenticate resolves a token to its user. Tokens of deleted users are
// rejected.
func (a *Auth) Authenticate(ctx context.Context, tokenString string) (*User, error) {
	claims, err := a.ParseToken(tokenString)
	if err != nil {
		return nil, err
	}
	u, err := a.store.GetByUsername(ctx, claims.Subject)
	if err != nil {
		return nil, err
	}
	if u == nil || u.ID != claims.UID {
		return nil, ErrInvalidToken
	}
	return u, nil
}
