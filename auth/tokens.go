package auth

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/goliatone/go-errors"
)

// DefaultAccessTokenTTL is used when the config does not provide one
const DefaultAccessTokenTTL = 15 * time.Minute

// DefaultRefreshTokenTTL is used when the config does not provide one
const DefaultRefreshTokenTTL = 7 * 24 * time.Hour

// TokenServiceImpl implements the TokenService interface
type TokenServiceImpl struct {
	accessKey  []byte
	refreshKey []byte
	accessTTL  time.Duration
	refreshTTL time.Duration
	issuer     string
	logger     Logger
}

// NewTokenService creates a new TokenService instance. The refresh key
// falls back to the access key when the config leaves it empty.
func NewTokenService(cfg Config, logger Logger) TokenService {
	if logger == nil {
		logger = defLogger{}
	}

	accessTTL := cfg.GetAccessTokenTTL()
	if accessTTL <= 0 {
		accessTTL = DefaultAccessTokenTTL
	}

	refreshTTL := cfg.GetRefreshTokenTTL()
	if refreshTTL <= 0 {
		refreshTTL = DefaultRefreshTokenTTL
	}

	refreshKey := []byte(cfg.GetRefreshSigningKey())
	if len(refreshKey) == 0 {
		refreshKey = []byte(cfg.GetAccessSigningKey())
	}

	return &TokenServiceImpl{
		accessKey:  []byte(cfg.GetAccessSigningKey()),
		refreshKey: refreshKey,
		accessTTL:  accessTTL,
		refreshTTL: refreshTTL,
		issuer:     cfg.GetIssuer(),
		logger:     logger,
	}
}

// IssueAccess creates the short-lived access token for the given user
func (ts *TokenServiceImpl) IssueAccess(user *User) (string, error) {
	if user == nil {
		return "", errors.New("user must not be nil", errors.CategoryInternal)
	}

	if !user.Role.IsValid() {
		return "", errors.New("user has an unknown or invalid role", errors.CategoryInternal).
			WithMetadata(map[string]any{"role": user.Role, "user_id": user.ID.String()})
	}

	if !user.Subscription.Tier.IsValid() || !user.Subscription.Status.IsValid() {
		return "", errors.New("user has an invalid subscription", errors.CategoryInternal).
			WithMetadata(map[string]any{
				"tier":    user.Subscription.Tier,
				"status":  user.Subscription.Status,
				"user_id": user.ID.String(),
			})
	}

	now := time.Now().UTC()
	claims := &AccessClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    ts.issuer,
			Subject:   user.ID.String(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ts.accessTTL)),
		},
		UID:      user.ID.String(),
		Email:    user.Email,
		UserRole: user.Role,
		Subscription: SubscriptionClaim{
			Tier:   user.Subscription.Tier,
			Status: user.Subscription.Status,
		},
	}

	return ts.sign(claims, ts.accessKey)
}

// IssueRefresh creates the long-lived refresh token for the given user ID
func (ts *TokenServiceImpl) IssueRefresh(userID string) (string, error) {
	if userID == "" {
		return "", errors.New("userID must not be empty", errors.CategoryInternal)
	}

	now := time.Now().UTC()
	claims := &RefreshClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    ts.issuer,
			Subject:   userID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ts.refreshTTL)),
		},
		UID: userID,
	}

	return ts.sign(claims, ts.refreshKey)
}

func (ts *TokenServiceImpl) sign(claims jwt.Claims, key []byte) (string, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)

	signedString, err := token.SignedString(key)
	if err != nil {
		return "", errors.Wrap(err, errors.CategoryInternal, "failed to sign JWT")
	}

	return signedString, nil
}

// VerifyAccess parses and validates an access token, returning structured claims
func (ts *TokenServiceImpl) VerifyAccess(tokenString string) (*AccessClaims, error) {
	claims := &AccessClaims{}
	if err := ts.verify(tokenString, claims, ts.accessKey); err != nil {
		return nil, err
	}
	return claims, nil
}

// VerifyRefresh parses and validates a refresh token
func (ts *TokenServiceImpl) VerifyRefresh(tokenString string) (*RefreshClaims, error) {
	claims := &RefreshClaims{}
	if err := ts.verify(tokenString, claims, ts.refreshKey); err != nil {
		return nil, err
	}
	return claims, nil
}

func (ts *TokenServiceImpl) verify(tokenString string, claims jwt.Claims, key []byte) error {
	parserOptions := make([]jwt.ParserOption, 0, 1)
	if ts.issuer != "" {
		parserOptions = append(parserOptions, jwt.WithIssuer(ts.issuer))
	}

	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			ts.logger.Error("TokenService verify encountered unexpected signing method", "alg", t.Header["alg"])
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return key, nil
	}, parserOptions...)

	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return ErrTokenExpired
		}
		return errors.Wrap(err, ErrTokenMalformed.Category, ErrTokenMalformed.Message).
			WithTextCode(ErrTokenMalformed.TextCode)
	}

	if !token.Valid {
		ts.logger.Error("TokenService verify could not validate claims")
		return ErrTokenMalformed
	}

	return nil
}
