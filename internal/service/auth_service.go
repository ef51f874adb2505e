package service

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"

	"github.com/noah-isme/sma-lms-gradesync/internal/models"
	appErrors "github.com/noah-isme/sma-lms-gradesync/pkg/errors"
)

// AuthConfig defines how platform access tokens are verified.
type AuthConfig struct {
	AccessTokenSecret string
	Issuer            string
}

// AuthService validates access tokens minted by the assessment platform. Accounts and sessions
// live there; this service only reads the claims.
type AuthService struct {
	logger *zap.Logger
	config AuthConfig
	now    func() time.Time
}

// NewAuthService constructs an AuthService instance.
func NewAuthService(logger *zap.Logger, config AuthConfig) *AuthService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AuthService{logger: logger, config: config, now: time.Now}
}

// ValidateToken parses and validates a JWT access token.
func (s *AuthService) ValidateToken(tokenString string) (*models.JWTClaims, error) {
	opts := []jwt.ParserOption{jwt.WithTimeFunc(s.now)}
	if s.config.Issuer != "" {
		opts = append(opts, jwt.WithIssuer(s.config.Issuer))
	}
	token, err := jwt.ParseWithClaims(tokenString, &models.JWTClaims{}, func(token *jwt.Token) (interface{}, error) {
		if token.Method != jwt.SigningMethodHS256 {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return []byte(s.config.AccessTokenSecret), nil
	}, opts...)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrUnauthorized.Code, appErrors.ErrUnauthorized.Status, "invalid token")
	}

	claims, ok := token.Claims.(*models.JWTClaims)
	if !ok || !token.Valid {
		return nil, appErrors.Clone(appErrors.ErrUnauthorized, "invalid token claims")
	}
	if claims.UserID == "" {
		return nil, appErrors.Clone(appErrors.ErrUnauthorized, "token missing user id")
	}

	return claims, nil
}

// IssueToken signs an access token for user. Used by the maintenance CLI and tests; production
// tokens come from the platform.
func (s *AuthService) IssueToken(user *models.User, ttl time.Duration) (string, time.Time, error) {
	if user == nil {
		return "", time.Time{}, appErrors.Clone(appErrors.ErrValidation, "user required")
	}
	issuedAt := s.now().UTC()
	expiresAt := issuedAt.Add(ttl)
	claims := &models.JWTClaims{
		UserID:   user.ID,
		Role:     user.Role,
		Email:    user.Email,
		FullName: user.FullName,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   user.ID,
			Issuer:    s.config.Issuer,
			IssuedAt:  jwt.NewNumericDate(issuedAt),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(s.config.AccessTokenSecret))
	if err != nil {
		return "", time.Time{}, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to sign token")
	}
	s.logger.Debug("access token issued", zap.String("user_id", user.ID))
	return signed, expiresAt, nil
}
