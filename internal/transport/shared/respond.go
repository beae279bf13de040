package shared

import (
	"encoding/json"
	"net/http"

	dErrors "tracelot/pkg/domain-errors"
)

type errorEnvelope struct {
	Error            string `json:"error"`
	ErrorDescription string `json:"error_description"`
}

// WriteJSON writes a JSON response with the given status code.
func WriteJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if body != nil {
		_ = json.NewEncoder(w).Encode(body)
	}
}

// WriteError maps a domain error onto its HTTP status and writes the error
// envelope. Unknown errors render as internal without leaking detail.
func WriteError(w http.ResponseWriter, err error) {
	code, ok := dErrors.CodeOf(err)
	if !ok {
		code = dErrors.CodeInternal
	}
	message := dErrors.MessageOf(err)
	if message == "" || code == dErrors.CodeInternal {
		message = "internal error"
	}
	WriteJSON(w, dErrors.ToHTTPStatus(code), errorEnvelope{
		Error:            string(code),
		ErrorDescription: message,
	})
}
