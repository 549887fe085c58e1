package serviceerr

import (
	"encoding/json"
	"errors"
	"net/http"
)

// Model is the JSON body of an error response.
type Model struct {
	Error            string `json:"error"`
	ErrorDescription string `json:"error_description,omitempty"`
}

// ToModel converts err into a response body and status. Errors that are not
// service errors become ErrUnknown so internal details do not leak.
func ToModel(err error) (model Model, httpStatus int) {
	var serviceErr *Error
	if !errors.As(err, &serviceErr) {
		serviceErr = ErrUnknown
	}

	return Model{
		Error:            string(serviceErr.Err),
		ErrorDescription: serviceErr.Description,
	}, serviceErr.HTTPStatus()
}

// Write sends err as a JSON error response.
func Write(w http.ResponseWriter, err error) {
	body, status := ToModel(err)

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
