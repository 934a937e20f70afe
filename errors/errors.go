package errors

import (
	"errors"
	"fmt"
)

// Category classifies error types for targeted handling and monitoring.
type Category string

const (
	CategoryDecode   Category = "decode"
	CategoryEncode   Category = "encode"
	CategoryPipeline Category = "pipeline"
	CategoryStorage  Category = "storage"
	CategoryConfig   Category = "config"
	CategoryInput    Category = "input"
)

// ProcessingError is the structured error type used throughout the module.
type ProcessingError struct {
	Category Category
	Op       string // operation name
	Err      error
}

func (e *ProcessingError) Error() string {
	return fmt.Sprintf("[%s] %s: %v", e.Category, e.Op, e.Err)
}

func (e *ProcessingError) Unwrap() error { return e.Err }

// New creates a ProcessingError.
func New(category Category, op string, err error) *ProcessingError {
	return &ProcessingError{Category: category, Op: op, Err: err}
}

// Wrap wraps an existing error with context.
func Wrap(category Category, op string, err error) error {
	if err == nil {
		return nil
	}
	return New(category, op, err)
}

// Decode wraps a codec error so that it matches ErrDecode.
func Decode(op string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, ErrDecode) {
		return New(CategoryDecode, op, err)
	}
	return New(CategoryDecode, op, fmt.Errorf("%w: %w", ErrDecode, err))
}

// Encoding wraps a codec error so that it matches ErrEncodingFailed.
func Encoding(op string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, ErrEncodingFailed) {
		return New(CategoryEncode, op, err)
	}
	return New(CategoryEncode, op, fmt.Errorf("%w: %w", ErrEncodingFailed, err))
}

// IsCategory reports whether err belongs to the given category.
func IsCategory(err error, cat Category) bool {
	var pe *ProcessingError
	if errors.As(err, &pe) {
		return pe.Category == cat
	}
	return false
}

// IsInvalidDimension reports whether a run failed because a resize would
// produce a zero-area image.
func IsInvalidDimension(err error) bool { return errors.Is(err, ErrInvalidDimension) }

// IsDecodeError reports whether err comes from decoding the input bytes.
func IsDecodeError(err error) bool { return errors.Is(err, ErrDecode) }

// IsEncodingFailed reports whether the encoder rejected the request.
func IsEncodingFailed(err error) bool { return errors.Is(err, ErrEncodingFailed) }

// Sentinel errors for common failure modes.
var (
	ErrInvalidDimension  = errors.New("invalid dimension")
	ErrDecode            = errors.New("decode error")
	ErrEncodingFailed    = errors.New("encoding failed")
	ErrInvalidQuality    = errors.New("quality must be between 1 and 100")
	ErrInvalidStrategy   = errors.New("unknown compression strategy")
	ErrUnsupportedFormat = errors.New("unsupported image format")
	ErrEmptyInput        = errors.New("empty input")
	ErrWorkerPoolFull    = errors.New("worker pool queue full")
	ErrPoolStopped       = errors.New("worker pool stopped")
)
