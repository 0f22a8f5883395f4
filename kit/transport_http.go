package kit

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/hazyhaar/ftlext/idgen"
)

// StatusError carries the HTTP status of an endpoint error.
type StatusError struct {
	Status int
	Err    error
}

func (e *StatusError) Error() string { return e.Err.Error() }
func (e *StatusError) Unwrap() error { return e.Err }

// WithStatus tags err with an HTTP status.
func WithStatus(status int, err error) error {
	if err == nil {
		return nil
	}
	return &StatusError{Status: status, Err: err}
}

// HTTPHandler serves endpoint as JSON. decode builds the request from r;
// a decode error answers 400.
func HTTPHandler(endpoint Endpoint, decode func(*http.Request) (any, error)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		req, err := decode(r)
		if err != nil {
			WriteError(w, http.StatusBadRequest, err)
			return
		}
		ctx := WithTransport(r.Context(), "http")
		if GetRequestID(ctx) == "" {
			ctx = WithRequestID(ctx, idgen.New())
		}
		resp, err := endpoint(ctx, req)
		if err != nil {
			status := http.StatusInternalServerError
			var se *StatusError
			if errors.As(err, &se) {
				status = se.Status
			}
			WriteError(w, status, err)
			return
		}
		WriteJSON(w, http.StatusOK, resp)
	}
}

// WriteJSON writes v with status.
func WriteJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// WriteError writes {"error": err}.
func WriteError(w http.ResponseWriter, status int, err error) {
	WriteJSON(w, status, map[string]string{"error": err.Error()})
}
