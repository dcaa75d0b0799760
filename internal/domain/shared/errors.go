package shared

// DomainError is a tagged, domain-level error. The error kind travels in Code
// so the boundary layer can translate it without string matching.
type DomainError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Error implements the error interface
func (e *DomainError) Error() string {
	return e.Message
}

// NewDomainError creates a new domain error
func NewDomainError(code, message string) *DomainError {
	return &DomainError{
		Code:    code,
		Message: message,
	}
}

// Common domain errors
var (
	ErrNotFound          = NewDomainError("NOT_FOUND", "Resource not found")
	ErrConflict          = NewDomainError("CONFLICT", "Operation conflicts with current state")
	ErrInvalidInput      = NewDomainError("INVALID_INPUT", "Invalid input provided")
	ErrInvalidState      = NewDomainError("INVALID_STATE", "Operation not allowed in current state")
	ErrInsufficientStock = NewDomainError("INSUFFICIENT_STOCK", "Insufficient stock available")
	ErrStorageFailure    = NewDomainError("STORAGE_FAILURE", "Storage operation failed")
)

// AsDomainError reports whether err is a DomainError, returning it if so.
func AsDomainError(err error) (*DomainError, bool) {
	de, ok := err.(*DomainError)
	return de, ok
}

// WrapStorageError hides low-level storage internals behind a generic failure.
// Domain errors pass through unchanged so callers keep their error kind.
func WrapStorageError(err error) error {
	if err == nil {
		return nil
	}
	if _, ok := AsDomainError(err); ok {
		return err
	}
	return ErrStorageFailure
}
