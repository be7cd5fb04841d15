/*
Package resp provides helper functions for constructing and sending HTTP JSON responses.

It offers a generic JSON writer plus an error wrapper that renders the application's
CustomError values into the wire shape expected by clients.
*/
package resp

import (
	"encoding/json"
	"net/http"

	"coderoom/internal/pkg/errs"
	"coderoom/internal/pkg/logx"
)

// ErrorBody is the JSON body returned for every failed request.
type ErrorBody struct {
	Message string `json:"message"`
}

// RespondJSON sets the Content-Type and sends the JSON-encoded payload with the given status.
func RespondJSON(w http.ResponseWriter, r *http.Request, httpStatus int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("X-Content-Type-Options", "nosniff")

	response, err := json.Marshal(payload)
	if err != nil {
		logx.Error(
			err,
			"Error encoding JSON response",
			"http_status", httpStatus,
		)

		http.Error(w, "Error encoding JSON response", http.StatusInternalServerError)
		return
	}

	w.WriteHeader(httpStatus)
	w.Write(response)
}

// RespondRaw sends a pre-encoded JSON body as-is with the given status.
// Used to pass the execution service's result body through untouched.
func RespondRaw(w http.ResponseWriter, r *http.Request, httpStatus int, body []byte) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("X-Content-Type-Options", "nosniff")

	w.WriteHeader(httpStatus)
	w.Write(body)
}

// RespondError sends an HTTP response carrying the custom error's message and status.
func RespondError(w http.ResponseWriter, r *http.Request, customErr *errs.CustomError) {
	if customErr == nil {
		customErr = errs.NewError(errs.ErrUnknown)
	}

	RespondJSON(w, r, customErr.Status, ErrorBody{Message: customErr.Message})
}
