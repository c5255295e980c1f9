package auth

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/vidgate/backend/internal/lib/logger/sl"
	"github.com/vidgate/backend/internal/models"
	"github.com/vidgate/backend/internal/service"
)

// Auth logs the root operator in for the admin surface (ingest,
// packaging, takedown). User accounts and password records live
// in a separate system and are not handled here.
type Auth struct {
	log          *slog.Logger
	jwtMaker     jwtMaker
	rootPassHash []byte
	tokenTTL     time.Duration
}

type jwtMaker interface {
	NewToken(id int64, login string, duration time.Duration) (string, error)
}

func New(
	log *slog.Logger,
	jwtMaker jwtMaker,
	rootPassHash []byte,
	tokenTTL time.Duration,
) *Auth {
	return &Auth{
		log:          log,
		jwtMaker:     jwtMaker,
		rootPassHash: rootPassHash,
		tokenTTL:     tokenTTL,
	}
}

// Login checks root credentials and returns a session token.
func (a *Auth) Login(_ context.Context, login string, password string) (string, error) {
	const op = "Auth.Login"

	log := a.log.With(
		slog.String("op", op),
		slog.String("login", login),
	)

	log.Info("attempting to login")

	if login != models.RootLogin {
		log.Info("unknown login")

		return "", fmt.Errorf("%s: %w", op, service.ErrInvalidCredentials)
	}

	if err := bcrypt.CompareHashAndPassword(a.rootPassHash, []byte(password)); err != nil {
		log.Info("invalid credentials", sl.Err(err))

		return "", fmt.Errorf("%s: %w", op, service.ErrInvalidCredentials)
	}

	log.Info("root logged in successfully")

	token, err := a.jwtMaker.NewToken(models.RootID, models.RootLogin, a.tokenTTL)
	if err != nil {
		log.Error("failed to generate token", sl.Err(err))

		return "", fmt.Errorf("%s: %w", op, err)
	}

	return token, nil
}
