package shared

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"nomina/internal/transport/http/api"
)

// DecodeJSON decodes the request body into dst and writes the failure
// response itself when it returns false. An empty body decodes to the zero
// value.
func DecodeJSON(w http.ResponseWriter, r *http.Request, dst any, requestID string) bool {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	err := dec.Decode(dst)
	if err == nil || errors.Is(err, io.EOF) {
		return true
	}
	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		api.Fail(w, http.StatusRequestEntityTooLarge, "payload_too_large", "request body too large", requestID)
		return false
	}
	api.Fail(w, http.StatusBadRequest, "validation_error", "invalid JSON body", requestID)
	return false
}
