package chat

import "errors"

var (
	// ErrNotFound covers both missing conversations and participant checks:
	// non-participants get the same answer as everyone else so the existence
	// of a conversation is never confirmed to outsiders.
	ErrNotFound     = errors.New("conversation not found")
	ErrValidation   = errors.New("validation failed")
	ErrUserNotFound = errors.New("user not found")
)
