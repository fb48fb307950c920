package shared

// DomainError is an error with a stable machine-readable code. The HTTP
// layer maps codes to status without inspecting messages.
type DomainError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

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

// Errors shared across domains. Billing-specific errors live in the billing
// package.
var (
	ErrNotFound     = NewDomainError("NOT_FOUND", "Resource not found")
	ErrUnauthorized = NewDomainError("UNAUTHORIZED", "Not authorized to perform this action")
	ErrRateLimited  = NewDomainError("RATE_LIMITED", "Too many requests, try again later")
)
