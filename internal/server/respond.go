package server

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/ogulcanaydogan/liteclient/pkg/apierr"
)

type errorBody struct {
	Error errorDetail `json:"error"`
}

type errorDetail struct {
	Code    apierr.Kind         `json:"code"`
	Message string              `json:"message"`
	Fields  []apierr.FieldError `json:"fields,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeError answers with the error envelope. Errors outside the taxonomy
// are reported without their message.
func writeError(w http.ResponseWriter, err error) {
	kind := apierr.KindOf(err)
	detail := errorDetail{Code: kind, Message: err.Error()}

	var verr *apierr.ValidationError
	if kind == apierr.KindValidation && errors.As(err, &verr) {
		detail.Fields = verr.Fields
	}
	if kind == apierr.KindInternal {
		detail.Message = "Internal server error."
	}

	writeJSON(w, apierr.HTTPStatus(err), errorBody{Error: detail})
}

// decodeJSON reads a JSON body into v. Malformed bodies are validation errors.
func decodeJSON(w http.ResponseWriter, r *http.Request, limit int64, v any) error {
	r.Body = http.MaxBytesReader(w, r.Body, limit)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return &apierr.ValidationError{Fields: []apierr.FieldError{
			{Field: "", Message: "request body must be valid JSON"},
		}}
	}
	return nil
}
