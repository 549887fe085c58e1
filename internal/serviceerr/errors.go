package serviceerr

import "net/http"

type Code string

const (
	CodeUnknown            Code = "unknown"
	CodeInvalidRequest     Code = "invalid_request"
	CodeNotFound           Code = "not_found"
	CodeConflict           Code = "conflict"
	CodeUnauthenticated    Code = "unauthenticated"
	CodeAccessDenied       Code = "access_denied"
	CodeInvalidCredentials Code = "invalid_credentials"
	CodeStorageUnavailable Code = "storage_unavailable"
	CodeUpstreamFailure    Code = "upstream_failure"
)

// Error is a coded error whose code maps onto an HTTP status.
type Error struct {
	Err         Code
	Description string
}

func (e *Error) Error() string {
	if e.Description == "" {
		return string(e.Err)
	}

	return string(e.Err) + ": " + e.Description
}

func (e *Error) HTTPStatus() int {
	switch e.Err {
	case CodeInvalidRequest:
		return http.StatusBadRequest
	case CodeNotFound:
		return http.StatusNotFound
	case CodeConflict:
		return http.StatusConflict
	case CodeUnauthenticated, CodeInvalidCredentials:
		return http.StatusUnauthorized
	case CodeAccessDenied:
		return http.StatusForbidden
	case CodeStorageUnavailable:
		return http.StatusInsufficientStorage
	case CodeUpstreamFailure:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

var (
	ErrUnknown         = &Error{Err: CodeUnknown, Description: "unknown error"}
	ErrInvalidRequest  = &Error{Err: CodeInvalidRequest}
	ErrNotFound        = &Error{Err: CodeNotFound, Description: "not found"}
	ErrConflict        = &Error{Err: CodeConflict, Description: "already exists"}
	ErrUnauthenticated = &Error{Err: CodeUnauthenticated, Description: "no usable session"}
	ErrAccessDenied    = &Error{Err: CodeAccessDenied, Description: "access denied"}

	ErrInvalidCredentials = &Error{Err: CodeInvalidCredentials, Description: "the identity service rejected the credentials"}
	ErrIdentityRejected   = &Error{Err: CodeUnauthenticated, Description: "the identity service rejected the access token"}
	ErrUpstreamFailure    = &Error{Err: CodeUpstreamFailure, Description: "the identity service could not be reached"}

	// ErrStorageUnavailable is returned when neither credential storage tier accepts a write.
	// The description is shown to end users.
	ErrStorageUnavailable = &Error{
		Err:         CodeStorageUnavailable,
		Description: "your session could not be saved; please check that your browser allows cookies and site storage and try again",
	}
)
