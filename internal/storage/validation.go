package storage

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/scanforge/scanforge/internal/model"
)

// Validation errors.
var (
	ErrNilContext   = errors.New("context cannot be nil")
	ErrEmptyString  = errors.New("string parameter cannot be empty")
	ErrNilParameter = errors.New("parameter cannot be nil")
	ErrInvalidPage  = errors.New("invalid page")
)

// validateContext ensures the context is not nil.
func validateContext(ctx context.Context) error {
	if ctx == nil {
		return ErrNilContext
	}
	return nil
}

// validateString ensures a string parameter is not empty.
func validateString(s string, paramName string) error {
	if strings.TrimSpace(s) == "" {
		return fmt.Errorf("%w: %s", ErrEmptyString, paramName)
	}
	return nil
}

// validatePage validates a page before it is written.
func validatePage(page *model.Page) error {
	if page == nil {
		return fmt.Errorf("%w: page", ErrNilParameter)
	}
	if page.ID <= 0 {
		return fmt.Errorf("%w: missing id", ErrInvalidPage)
	}
	if page.Ordinal < 0 {
		return fmt.Errorf("%w: negative ordinal", ErrInvalidPage)
	}
	if len(page.Image) == 0 {
		return fmt.Errorf("%w: empty image", ErrInvalidPage)
	}
	return nil
}
