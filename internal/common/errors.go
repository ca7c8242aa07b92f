// Package common provides shared utilities and types used across the application.
package common

import (
	"errors"
	"fmt"
)

// Pipeline error taxonomy.
var (
	// Detection and geometry errors.
	ErrDetectionMiss  = errors.New("no document boundary found")
	ErrDegenerateQuad = errors.New("degenerate quadrilateral")
	ErrQuadTooSmall   = errors.New("quadrilateral below minimum frame coverage")

	// Session errors.
	ErrInvalidOrdinal  = errors.New("ordinal out of range")
	ErrUnknownPage     = errors.New("unknown page id")
	ErrSessionExported = errors.New("session already exported")
	ErrNoActiveSession = errors.New("no active session")
	ErrSessionEmpty    = errors.New("session has no pages")

	// Export errors.
	ErrEncode            = errors.New("encode failed")
	ErrInsufficientSpace = errors.New("insufficient disk space")

	// Configuration errors.
	ErrMissingConfig = errors.New("missing configuration")
	ErrInvalidConfig = errors.New("invalid configuration")
)

// UserError represents an error that should be shown to the user with an
// actionable message.
type UserError struct {
	Err         error
	UserMessage string
}

func (e *UserError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.UserMessage, e.Err)
	}
	return e.UserMessage
}

func (e *UserError) Unwrap() error {
	return e.Err
}

// NewUserError creates a new user-friendly error.
func NewUserError(userMessage string, err error) error {
	return &UserError{
		UserMessage: userMessage,
		Err:         err,
	}
}

// UserMessage maps an error to the actionable advice shown in the CLI.
// Unknown errors fall through to their own text rather than a generic string.
func UserMessage(err error) string {
	var userErr *UserError
	if errors.As(err, &userErr) {
		return userErr.UserMessage
	}
	switch {
	case errors.Is(err, ErrDetectionMiss):
		return "No document found in the frame. Adjust the crop manually with --corners, or retry the capture with better lighting."
	case errors.Is(err, ErrDegenerateQuad):
		return "The selected corners do not form a usable page outline. Drag the corners apart and try again."
	case errors.Is(err, ErrQuadTooSmall):
		return "The detected page is too small in the frame. Move the camera closer and retry the capture."
	case errors.Is(err, ErrInsufficientSpace):
		return "Not enough free disk space at the destination. Free some space or choose another folder."
	case errors.Is(err, ErrNoActiveSession):
		return "No scan session is active. Start one with 'scanforge new'."
	case errors.Is(err, ErrSessionEmpty):
		return "The session has no pages yet. Capture at least one page before exporting."
	case errors.Is(err, ErrSessionExported):
		return "This session was already exported. Start a new session to keep scanning."
	default:
		return err.Error()
	}
}
