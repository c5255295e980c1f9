package service

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/vidgate/backend/internal/models"
	"github.com/vidgate/backend/internal/service"
)

// AccessToken issues and verifies compact signed claims that
// bind a viewer to one video for a fixed validity window.
//
// Tokens are self-contained: no issued-token store exists and a
// single token can't be revoked early. Short expiry substitutes
// for revocation. Rotating the secret invalidates everything
// outstanding.
type AccessToken struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

func New(secret []byte, ttl time.Duration) *AccessToken {
	return &AccessToken{
		secret: secret,
		ttl:    ttl,
		now:    time.Now,
	}
}

// NewWithClock allows tests to pin the clock.
func NewWithClock(secret []byte, ttl time.Duration, now func() time.Time) *AccessToken {
	return &AccessToken{
		secret: secret,
		ttl:    ttl,
		now:    now,
	}
}

// TTL reports the validity window tokens are issued with.
func (t *AccessToken) TTL() time.Duration {
	return t.ttl
}

// Issue mints a token for the (viewer, video) pair.
// viewerID is nil for anonymous grants.
func (t *AccessToken) Issue(viewerID *int64, videoID int64) (string, error) {
	const op = "AccessToken.Issue"

	token := jwt.New(jwt.SigningMethodHS256)

	issued := t.now()

	claims := token.Claims.(jwt.MapClaims)
	claims["vid"] = videoID
	claims["iat"] = issued.Unix()
	claims["exp"] = issued.Add(t.ttl).Unix()
	if viewerID != nil {
		claims["uid"] = *viewerID
	}

	tokenString, err := token.SignedString(t.secret)
	if err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}

	return tokenString, nil
}

// Verify checks signature and expiry and returns the embedded claims.
func (t *AccessToken) Verify(tokenString string) (models.AccessClaims, error) {
	const op = "AccessToken.Verify"

	claims := jwt.MapClaims{}

	_, err := jwt.NewParser(
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(t.now),
	).ParseWithClaims(tokenString, claims, func(_ *jwt.Token) (interface{}, error) {
		return t.secret, nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return models.AccessClaims{}, fmt.Errorf("%s: %w", op, service.ErrTokenExpired)
		}

		return models.AccessClaims{}, fmt.Errorf("%s: %w", op, service.ErrTokenInvalid)
	}

	vid, ok := claims["vid"].(float64)
	if !ok {
		return models.AccessClaims{}, fmt.Errorf("%s: %w", op, service.ErrTokenInvalid)
	}

	exp, ok := claims["exp"].(float64)
	if !ok {
		return models.AccessClaims{}, fmt.Errorf("%s: %w", op, service.ErrTokenInvalid)
	}

	res := models.AccessClaims{
		VideoID:   int64(vid),
		ExpiresAt: time.Unix(int64(exp), 0),
	}

	if iat, ok := claims["iat"].(float64); ok {
		res.IssuedAt = time.Unix(int64(iat), 0)
	}

	if uid, ok := claims["uid"].(float64); ok {
		id := int64(uid)
		res.ViewerID = &id
	}

	return res, nil
}
