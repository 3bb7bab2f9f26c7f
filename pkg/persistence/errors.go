// Package persistence provides standardized error types for persistence operations.
package persistence

import (
	"errors"
	"fmt"
)

// Standard persistence error types that all implementations should use.
var (
	// ErrUserNotFound indicates a user was not found by the given identifier.
	ErrUserNotFound = errors.New("user not found")

	// ErrUserAlreadyExists indicates a user with the same email already exists.
	ErrUserAlreadyExists = errors.New("user already exists")

	// ErrSessionNotFound indicates a session was not found by the given token.
	ErrSessionNotFound = errors.New("session not found")

	// ErrRunNotFound indicates a campaign run was not found by the given identifier.
	ErrRunNotFound = errors.New("campaign run not found")
)

// UserError wraps user-related errors with additional context.
type UserError struct {
	Op     string // Operation being performed (e.g., "ByID", "Create", "Update")
	UserID string // User ID if applicable
	Email  string // User email if applicable
	Err    error  // Underlying error
}

func (e *UserError) Error() string {
	target := e.UserID
	if e.Email != "" {
		target = e.Email
	}

	return fmt.Sprintf("%s operation failed for user %s: %v", e.Op, target, e.Err)
}

func (e *UserError) Unwrap() error {
	return e.Err
}

func (e *UserError) Is(target error) bool {
	return errors.Is(e.Err, target)
}

// NewUserError creates a new user error with context.
func NewUserError(op, userID string, err error) *UserError {
	return &UserError{Op: op, UserID: userID, Err: err}
}

// SessionError wraps session-related errors with additional context.
type SessionError struct {
	Op    string // Operation being performed
	Token string // Session token if applicable
	Err   error  // Underlying error
}

func (e *SessionError) Error() string {
	return fmt.Sprintf("%s operation failed for session: %v", e.Op, e.Err)
}

func (e *SessionError) Unwrap() error {
	return e.Err
}

func (e *SessionError) Is(target error) bool {
	return errors.Is(e.Err, target)
}

// NewSessionError creates a new session error with context.
func NewSessionError(op, token string, err error) *SessionError {
	return &SessionError{Op: op, Token: token, Err: err}
}

// RunError wraps campaign-run-related errors with additional context.
type RunError struct {
	Op    string // Operation being performed
	RunID string // Run ID if applicable
	Err   error  // Underlying error
}

func (e *RunError) Error() string {
	return fmt.Sprintf("%s operation failed for run %s: %v", e.Op, e.RunID, e.Err)
}

func (e *RunError) Unwrap() error {
	return e.Err
}

func (e *RunError) Is(target error) bool {
	return errors.Is(e.Err, target)
}

// NewRunError creates a new run error with context.
func NewRunError(op, runID string, err error) *RunError {
	return &RunError{Op: op, RunID: runID, Err: err}
}

// IsUserNotFound checks if an error indicates a user was not found.
func IsUserNotFound(err error) bool {
	return errors.Is(err, ErrUserNotFound)
}

// IsUserAlreadyExists checks if an error indicates a duplicate user.
func IsUserAlreadyExists(err error) bool {
	return errors.Is(err, ErrUserAlreadyExists)
}

// IsSessionNotFound checks if an error indicates a session was not found.
func IsSessionNotFound(err error) bool {
	return errors.Is(err, ErrSessionNotFound)
}

// IsRunNotFound checks if an error indicates a campaign run was not found.
func IsRunNotFound(err error) bool {
	return errors.Is(err, ErrRunNotFound)
}
