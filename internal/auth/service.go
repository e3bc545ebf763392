package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/wanxtv/wanx/backend/internal/models"
	"github.com/wanxtv/wanx/backend/internal/repository"
	"golang.org/x/crypto/bcrypt"
)

var (
	ErrInvalidToken = errors.New("invalid token")
	ErrNoSecret     = errors.New("jwt secret not configured")
)

// Claims is the payload of a user token ("ut").
type Claims struct {
	UserID string `json:"user_id"`
	jwt.RegisteredClaims
}

// Service issues and validates user tokens
type Service struct {
	jwtSecret []byte
	ttl       time.Duration
	users     repository.UserRepository
	now       func() time.Time
}

// NewService creates a new authentication service
func NewService(jwtSecret []byte, ttl time.Duration, users repository.UserRepository) *Service {
	if ttl <= 0 {
		ttl = 30 * 24 * time.Hour
	}
	return &Service{jwtSecret: jwtSecret, ttl: ttl, users: users, now: time.Now}
}

// IssueToken signs a token for userID
func (s *Service) IssueToken(userID string) (string, error) {
	if len(s.jwtSecret) == 0 {
		return "", ErrNoSecret
	}
	now := s.now()
	claims := Claims{
		UserID: userID,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.ttl)),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(s.jwtSecret)
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}
	return signed, nil
}

// ParseToken validates the signature and expiry and returns the user id
func (s *Service) ParseToken(tokenString string) (string, error) {
	if len(s.jwtSecret) == 0 {
		return "", ErrNoSecret
	}
	var claims Claims
	token, err := jwt.ParseWithClaims(tokenString, &claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return s.jwtSecret, nil
	}, jwt.WithTimeFunc(s.now))
	if err != nil || !token.Valid {
		return "", fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if claims.UserID == "" {
		return "", fmt.Errorf("%w: missing user_id", ErrInvalidToken)
	}
	return claims.UserID, nil
}

// ValidateToken parses the token and loads a fresh copy of its user
func (s *Service) ValidateToken(ctx context.Context, tokenString string) (*models.User, error) {
	userID, err := s.ParseToken(tokenString)
	if err != nil {
		return nil, err
	}
	user, err := s.users.Get(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	return user, nil
}

// PartnerGuard checks tokens presented by partners pulling the video list.
// Only bcrypt hashes of the tokens are configured.
type PartnerGuard struct {
	hashes [][]byte
}

// NewPartnerGuard creates a guard accepting tokens that match any of hashes
func NewPartnerGuard(hashes []string) *PartnerGuard {
	g := &PartnerGuard{}
	for _, h := range hashes {
		if h != "" {
			g.hashes = append(g.hashes, []byte(h))
		}
	}
	return g
}

// Verify reports whether token belongs to a known partner
func (g *PartnerGuard) Verify(token string) bool {
	if g == nil || token == "" {
		return false
	}
	for _, h := range g.hashes {
		if bcrypt.CompareHashAndPassword(h, []byte(token)) == nil {
			return true
		}
	}
	return false
}

// HashPartnerToken returns the bcrypt hash to put in auth.partner_tokens
func HashPartnerToken(token string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(token), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}
