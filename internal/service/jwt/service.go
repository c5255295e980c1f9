package jwtService

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

type JWT struct {
	secret []byte
}

func New(secret []byte) *JWT {
	return &JWT{
		secret: secret,
	}
}

// NewToken mints a session token for the admin surface.
func (jwtStruct *JWT) NewToken(id int64, login string, duration time.Duration) (string, error) {
	const op = "JWT.NewToken"

	token := jwt.New(jwt.SigningMethodHS256)

	claims := token.Claims.(jwt.MapClaims)
	claims["uid"] = id
	claims["login"] = login
	claims["exp"] = time.Now().Add(duration).Unix()

	tokenString, err := token.SignedString(jwtStruct.secret)
	if err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}

	return tokenString, nil
}
