package api

import (
	"encoding/json"
	"net/http"

	"github.com/sirupsen/logrus"

	"github.com/akmatori/opsconsole/internal/apierr"
)

// RespondJSON writes data as a JSON response with the given status code.
func RespondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		if err := json.NewEncoder(w).Encode(data); err != nil {
			logrus.Errorf("Failed to encode JSON response: %v", err)
		}
	}
}

// RespondError writes err as {"status": ..., "message": ...}. Errors that carry
// no status are reported as 500 without leaking their text.
func RespondError(w http.ResponseWriter, err error) {
	if e, ok := apierr.As(err); ok {
		RespondJSON(w, e.Status, e)
		return
	}
	logrus.Errorf("Unhandled error: %v", err)
	RespondJSON(w, http.StatusInternalServerError, &apierr.Error{
		Status:  http.StatusInternalServerError,
		Message: "Internal server error",
	})
}

// RespondStatus writes an error response with the given status and message.
func RespondStatus(w http.ResponseWriter, status int, message string) {
	RespondJSON(w, status, &apierr.Error{Status: status, Message: message})
}

// RespondValidationError writes field-level validation errors as a 422 response.
func RespondValidationError(w http.ResponseWriter, fieldErrors map[string]string) {
	RespondError(w, apierr.Validation(fieldErrors))
}

// RespondList sorts and paginates items according to the request query.
func RespondList[T any](w http.ResponseWriter, r *http.Request, items []T) {
	s := ParseSort(r)
	p := ParsePagination(r)
	RespondJSON(w, http.StatusOK, Paginate(SortData(items, s.By, s.Order), p.Page, p.PageSize))
}

// Success is the body of mutations that return no entity.
type Success struct {
	Success bool `json:"success"`
}

// RespondSuccess writes {"success": true}.
func RespondSuccess(w http.ResponseWriter) {
	RespondJSON(w, http.StatusOK, Success{Success: true})
}
