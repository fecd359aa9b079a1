package internalerr

import (
	"errors"
	"fmt"
)

// Sentinel errors for common cases
var (
	ErrNotFound      = errors.New("not found")
	ErrInvalidInput  = errors.New("invalid input")
	ErrDuplicate     = errors.New("duplicate entry")
	ErrMismatch      = errors.New("count mismatch")
	ErrOutOfRange    = errors.New("index out of range")
	ErrUnsupported   = errors.New("unsupported")
	ErrInvalidConfig = errors.New("invalid configuration")
)

// SegmentationNotFoundError is returned when no Section-Segmentation carries the
// requested identifier.
type SegmentationNotFoundError struct {
	ID string
}

func (e *SegmentationNotFoundError) Error() string {
	return fmt.Sprintf("section segmentation not found: %s", e.ID)
}

func (e *SegmentationNotFoundError) Unwrap() error { return ErrNotFound }

// SectionCountMismatchError reports that only Found of Expected requested sections
// were visited.
type SectionCountMismatchError struct {
	Found    int
	Expected int
	Missing  string // first target that could not be visited, if known
}

func (e *SectionCountMismatchError) Error() string {
	if e.Missing != "" {
		return fmt.Sprintf("found %d of %d sections (missing %s)", e.Found, e.Expected, e.Missing)
	}
	return fmt.Sprintf("found %d of %d sections", e.Found, e.Expected)
}

func (e *SectionCountMismatchError) Unwrap() error { return ErrMismatch }

// StreamLengthMismatchError reports that the flat annotation stream does not hold
// exactly as many records as the document demands.
type StreamLengthMismatchError struct {
	Demanded int // sum of per-section sentence counts
	Stream   int // records in the flat stream
	Consumed int // records consumed when the mismatch was detected
}

func (e *StreamLengthMismatchError) Error() string {
	return fmt.Sprintf("flat stream has %d sentences, document demands %d (consumed %d)", e.Stream, e.Demanded, e.Consumed)
}

func (e *StreamLengthMismatchError) Unwrap() error { return ErrMismatch }

// AnnotationCountMismatchError reports that the external engine returned a
// different number of sentences (or tokens) than it was given.
type AnnotationCountMismatchError struct {
	Level    string // "sentence" or "token"
	Scope    string // section or sentence identifier
	Expected int
	Actual   int
}

func (e *AnnotationCountMismatchError) Error() string {
	return fmt.Sprintf("engine returned %d %ss for %s, expected %d", e.Actual, e.Level, e.Scope, e.Expected)
}

func (e *AnnotationCountMismatchError) Unwrap() error { return ErrMismatch }

// EmptySentenceError is returned when a sentence has no tokens.
type EmptySentenceError struct {
	SentenceID string
	Position   int
}

func (e *EmptySentenceError) Error() string {
	if e.SentenceID != "" {
		return fmt.Sprintf("unexpected empty sentence %s at position %d", e.SentenceID, e.Position)
	}
	return fmt.Sprintf("unexpected empty sentence at position %d", e.Position)
}

func (e *EmptySentenceError) Unwrap() error { return ErrInvalidInput }

// UnsupportedLanguageError is returned for language codes without a sentence
// reconstruction mode.
type UnsupportedLanguageError struct {
	Language string
}

func (e *UnsupportedLanguageError) Error() string {
	return fmt.Sprintf("unsupported language %q", e.Language)
}

func (e *UnsupportedLanguageError) Unwrap() error { return ErrUnsupported }

// IndexOutOfRangeError is returned when a positional reference points outside
// the list it indexes.
type IndexOutOfRangeError struct {
	What  string
	Index int
	Len   int
}

func (e *IndexOutOfRangeError) Error() string {
	return fmt.Sprintf("%s index %d out of range [0,%d)", e.What, e.Index, e.Len)
}

func (e *IndexOutOfRangeError) Unwrap() error { return ErrOutOfRange }

// EmptyTargetSetError is returned when alignment is requested for no sections.
type EmptyTargetSetError struct{}

func (e *EmptyTargetSetError) Error() string { return "no target sections specified" }

func (e *EmptyTargetSetError) Unwrap() error { return ErrInvalidInput }

// DuplicateIdentifierError is returned when an identifier that must be unique
// appears more than once.
type DuplicateIdentifierError struct {
	Kind string
	ID   string
}

func (e *DuplicateIdentifierError) Error() string {
	return fmt.Sprintf("duplicate %s identifier %s", e.Kind, e.ID)
}

func (e *DuplicateIdentifierError) Unwrap() error { return ErrDuplicate }

// ValidationError represents malformed input that is not covered by a more
// specific alignment error.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("validation failed for %s: %s", e.Field, e.Message)
	}
	return fmt.Sprintf("validation failed: %s", e.Message)
}

func (e *ValidationError) Unwrap() error { return ErrInvalidInput }

// NewValidation creates a ValidationError
func NewValidation(field, format string, args ...any) *ValidationError {
	return &ValidationError{Field: field, Message: fmt.Sprintf(format, args...)}
}

// IsAlignment reports whether err belongs to the alignment taxonomy, i.e. it is
// a structural problem with the inputs rather than an I/O or engine failure.
func IsAlignment(err error) bool {
	switch {
	case errors.Is(err, ErrMismatch),
		errors.Is(err, ErrOutOfRange),
		errors.Is(err, ErrDuplicate),
		errors.Is(err, ErrUnsupported),
		errors.Is(err, ErrInvalidInput):
		return true
	}
	var nf *SegmentationNotFoundError
	return errors.As(err, &nf)
}
