package storage

import "errors"

var (
	ErrVideoExists   = errors.New("video exists")
	ErrVideoNotFound = errors.New("video not found")
)
