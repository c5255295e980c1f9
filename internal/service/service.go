package service

import "errors"

var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrUnauthorized       = errors.New("unauthorized")

	ErrTokenInvalid = errors.New("invalid token")
	ErrTokenExpired = errors.New("token expired")

	ErrVideoNotFound = errors.New("video not found")
	ErrVideoExists   = errors.New("video exists")
	ErrMediaNotFound = errors.New("media not found")

	ErrRangeNotSatisfiable = errors.New("range not satisfiable")
	ErrPackagingFailed     = errors.New("packaging failed")
)
