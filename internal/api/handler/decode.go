package handler

import (
	"encoding/json"
	"net/http"

	"github.com/mcoot/triviagame/internal/api/apierr"
)

const maxBodyBytes = 1 << 16

// decode reads a JSON request body into v, rejecting unknown fields
func decode(w http.ResponseWriter, r *http.Request, v any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return apierr.NewInvalidRequestError("invalid request body")
	}
	return nil
}
