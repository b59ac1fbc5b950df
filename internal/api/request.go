package api

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/akmatori/opsconsole/internal/apierr"
)

// MaxBodySize is the maximum allowed request body size (1 MB).
const MaxBodySize = 1 << 20

// DecodeJSON reads and decodes a JSON request body into dst.
// It returns user-friendly 400 errors instead of leaking Go internals.
func DecodeJSON(r *http.Request, dst interface{}) error {
	if r.Body == nil {
		return apierr.BadRequest("request body is empty")
	}

	r.Body = http.MaxBytesReader(nil, r.Body, MaxBodySize)

	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()

	err := dec.Decode(dst)
	if err == nil {
		return nil
	}

	var syntaxErr *json.SyntaxError
	var unmarshalTypeErr *json.UnmarshalTypeError
	var maxBytesErr *http.MaxBytesError

	switch {
	case errors.As(err, &syntaxErr):
		return apierr.BadRequest("malformed JSON at position %d", syntaxErr.Offset)
	case errors.As(err, &unmarshalTypeErr):
		return apierr.BadRequest("invalid value for field %q: expected %s", unmarshalTypeErr.Field, unmarshalTypeErr.Type)
	case errors.Is(err, io.EOF):
		return apierr.BadRequest("request body is empty")
	case errors.As(err, &maxBytesErr):
		return apierr.BadRequest("request body exceeds maximum size of %d bytes", MaxBodySize)
	case strings.HasPrefix(err.Error(), "json: unknown field"):
		field := strings.TrimPrefix(err.Error(), "json: unknown field ")
		return apierr.BadRequest("unknown field %s", field)
	default:
		return apierr.BadRequest("invalid JSON in request body")
	}
}

// DecodeValid decodes the body into dst and runs the struct's validate tags.
func DecodeValid(r *http.Request, dst interface{}) error {
	if err := DecodeJSON(r, dst); err != nil {
		return err
	}
	if errs := Validate(dst); errs != nil {
		return apierr.Validation(errs)
	}
	return nil
}

// DecodePatch reads a JSON object body as raw fields for a shallow merge.
func DecodePatch(r *http.Request) (map[string]json.RawMessage, error) {
	var patch map[string]json.RawMessage
	if err := DecodeJSON(r, &patch); err != nil {
		return nil, err
	}
	if patch == nil {
		return nil, apierr.BadRequest("request body must be a JSON object")
	}
	return patch, nil
}

// QueryBool parses an optional boolean query parameter. Absent → nil.
func QueryBool(r *http.Request, key string) (*bool, error) {
	v := r.URL.Query().Get(key)
	if v == "" {
		return nil, nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return nil, apierr.BadRequest("invalid value for %s: %q", key, v)
	}
	return &b, nil
}

// Keyword returns the free-text search parameter, accepting q as an alias.
func Keyword(r *http.Request) string {
	q := r.URL.Query()
	if k := q.Get("keyword"); k != "" {
		return k
	}
	return q.Get("q")
}

