package session

import (
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"

	"github.com/vidgate/backend/internal/models"
)

// CookieName is where the user system drops the session JWT.
const CookieName = "session"

// Viewer derives the optional viewer identity from the request:
// the "session" cookie or a bearer token, claims {uid, paid}.
// The session itself is managed by the user system; this side
// only verifies it. Absent or invalid session means anonymous.
func Viewer(c *fiber.Ctx, secret []byte) *models.Viewer {
	tokenString := c.Cookies(CookieName)

	if tokenString == "" {
		auth := c.Get(fiber.HeaderAuthorization)

		jwtSplitted := strings.Split(auth, " ")
		if len(jwtSplitted) == 2 && jwtSplitted[0] == "Bearer" {
			tokenString = jwtSplitted[1]
		}
	}

	if tokenString == "" {
		return nil
	}

	claims := jwt.MapClaims{}

	token, err := jwt.NewParser(
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
	).ParseWithClaims(tokenString, claims, func(_ *jwt.Token) (interface{}, error) {
		return secret, nil
	})
	if err != nil || !token.Valid {
		return nil
	}

	uid, ok := claims["uid"].(float64)
	if !ok {
		return nil
	}

	paid, _ := claims["paid"].(bool)

	return &models.Viewer{
		ID:               int64(uid),
		PaymentCompleted: paid,
	}
}
