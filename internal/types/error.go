package types

import (
	"errors"
	"fmt"
)

// Domain sentinel errors. Services wrap these with context; handlers map them
// to HTTP status codes with errors.Is.
var (
	ErrNotFound         = errors.New("not found")
	ErrValidation       = errors.New("validation failed")
	ErrDuplicateHero    = errors.New("a hero section already exists")
	ErrTemplateLimit    = errors.New("template limit reached")
	ErrEditLimit        = errors.New("edit limit reached")
	ErrInvalidPassword  = errors.New("invalid password")
	ErrRateLimited      = errors.New("too many attempts")
	ErrFileTooLarge     = errors.New("file too large")
	ErrUnsupportedMedia = errors.New("unsupported media type")
	ErrUnavailable      = errors.New("upstream unavailable")
)

// CustomError is returned from middleware and rendered by the global error handler.
type CustomError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Type    string `json:"type"`
}

func (e *CustomError) Error() string {
	return fmt.Sprintf("%d: %s [type: %s]", e.Code, e.Message, e.Type)
}

// LimitError carries the counts behind a quota rejection so the caller can
// show the blocking limit screen.
type LimitError struct {
	Err       error  `json:"-"`
	PlanType  string `json:"planType"`
	Used      int    `json:"used"`
	Max       int    `json:"max"`
	EditCount int    `json:"editCount,omitempty"`
	MaxEdits  int    `json:"maxEdits,omitempty"`
}

// IsEdit reports whether the edit limit, rather than the template limit,
// was hit.
func (e *LimitError) IsEdit() bool {
	return errors.Is(e.Err, ErrEditLimit)
}

// Kind is the error type reported to clients.
func (e *LimitError) Kind() string {
	if e.IsEdit() {
		return "builder.limit.edit"
	}
	return "builder.limit.create"
}

func (e *LimitError) Error() string {
	if e.IsEdit() {
		return fmt.Sprintf("%v: %d of %d edits used", e.Err, e.EditCount, e.MaxEdits)
	}
	return fmt.Sprintf("%v: %d of %d templates used on plan %s", e.Err, e.Used, e.Max, e.PlanType)
}

func (e *LimitError) Unwrap() error {
	return e.Err
}

// ValidationErrorf wraps ErrValidation with a formatted reason.
func ValidationErrorf(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", ErrValidation, fmt.Sprintf(format, args...))
}
