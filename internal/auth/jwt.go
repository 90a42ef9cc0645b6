package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/dmarkov/saasadmin/internal/config"
	"github.com/dmarkov/saasadmin/internal/models"
)

var ErrInvalidToken = errors.New("invalid token")

const (
	TokenTypePasswordReset     = "password_reset"
	TokenTypeEmailVerification = "email_verification"
)

// Claims is the signed payload of every token this service issues. Session
// tokens carry the identity fields and an empty Type; single-purpose tokens
// (reset, verification) carry only Email and Type.
type Claims struct {
	Email     string `json:"email,omitempty"`
	Role      string `json:"role,omitempty"`
	CompanyID string `json:"company_id,omitempty"`
	Type      string `json:"type,omitempty"`
	jwt.RegisteredClaims
}

type TokenService struct {
	secret        []byte
	sessionExpiry time.Duration
	resetExpiry   time.Duration
}

func NewTokenService(cfg config.AuthConfig) *TokenService {
	return &TokenService{
		secret:        []byte(cfg.JWTSecret),
		sessionExpiry: cfg.SessionExpiry,
		resetExpiry:   cfg.ResetExpiry,
	}
}

func (s *TokenService) IssueSession(u *models.User) (string, error) {
	claims := Claims{
		Email: u.Email,
		Role:  string(u.Role),
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   u.ID.String(),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(s.sessionExpiry)),
		},
	}
	if u.CompanyID != nil {
		claims.CompanyID = u.CompanyID.String()
	}
	return s.sign(claims)
}

func (s *TokenService) IssuePasswordReset(email string) (string, error) {
	return s.issueTyped(email, TokenTypePasswordReset, s.resetExpiry)
}

func (s *TokenService) IssueEmailVerification(email string) (string, error) {
	return s.issueTyped(email, TokenTypeEmailVerification, 24*time.Hour)
}

func (s *TokenService) issueTyped(email, tokenType string, expiry time.Duration) (string, error) {
	claims := Claims{
		Email: email,
		Type:  tokenType,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(time.Now()),
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(expiry)),
		},
	}
	return s.sign(claims)
}

func (s *TokenService) sign(claims Claims) (string, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}

// Verify returns the decoded claims or ErrInvalidToken on signature mismatch
// or elapsed expiry.
func (s *TokenService) Verify(tokenStr string) (*Claims, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenStr, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return s.secret, nil
	})
	if err != nil || !token.Valid {
		return nil, ErrInvalidToken
	}
	return claims, nil
}
