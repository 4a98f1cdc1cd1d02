package shared

import (
	"net/http"

	"nomina/internal/transport/http/api"
)

// FailCode writes the envelope for a classified domain error. Server-side
// failures do not echo the underlying error text.
func FailCode(w http.ResponseWriter, code string, err error, requestID string) {
	status := api.StatusForCode(code)
	message := http.StatusText(status)
	if status < http.StatusInternalServerError && err != nil {
		message = err.Error()
	}
	api.Fail(w, status, code, message, requestID)
}
