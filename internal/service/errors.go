package service

import "errors"

var (
	// ErrBadRequest marks missing or invalid caller input.
	ErrBadRequest = errors.New("bad request")
	// ErrResolver marks an upstream session or basic-info failure.
	ErrResolver = errors.New("resolver failure")
)
