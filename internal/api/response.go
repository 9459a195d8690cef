package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"reflect"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/erazemk/zaloga/internal/model"
)

// errorBody is the JSON shape of every error response.
type errorBody struct {
	Error  string            `json:"error"`
	Code   string            `json:"code,omitempty"`
	Fields map[string]string `json:"fields,omitempty"`
}

// jsonResponse writes a JSON response with the given status code.
func jsonResponse(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		if err := json.NewEncoder(w).Encode(data); err != nil {
			slog.Error("encoding response", "error", err)
		}
	}
}

// jsonError writes a JSON error response.
func jsonError(w http.ResponseWriter, status int, message string) {
	jsonResponse(w, status, errorBody{Error: message})
}

// errorStatus maps business-rule codes to HTTP status codes.
var errorStatus = map[string]int{
	"not_found":             http.StatusNotFound,
	"insufficient_stock":    http.StatusConflict,
	"asset_unavailable":     http.StatusConflict,
	"asset_not_checked_out": http.StatusConflict,
	"item_removed":          http.StatusConflict,
	"cyclic_category":       http.StatusConflict,
	"has_children":          http.StatusConflict,
	"duplicate_tag":         http.StatusConflict,
	"has_history":           http.StatusConflict,
	"invalid_reason":        http.StatusUnprocessableEntity,
	"invalid_input":         http.StatusBadRequest,
	"identifier_exhausted":  http.StatusServiceUnavailable,
}

// writeError reports err to the client. Business-rule errors keep their
// message and code; anything else is logged and hidden behind a generic
// message.
func writeError(w http.ResponseWriter, err error, action string) {
	var ve validator.ValidationErrors
	if errors.As(err, &ve) {
		fields := make(map[string]string, len(ve))
		for _, fe := range ve {
			fields[fe.Field()] = fe.Tag()
		}
		jsonResponse(w, http.StatusBadRequest, errorBody{Error: "invalid request", Code: "invalid_input", Fields: fields})
		return
	}

	code := model.ErrorCode(err)
	status, ok := errorStatus[code]
	if !ok {
		slog.Error("failed to "+action, "error", err)
		jsonError(w, http.StatusInternalServerError, "failed to "+action)
		return
	}
	jsonResponse(w, status, errorBody{Error: err.Error(), Code: code})
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// decodeJSON decodes a JSON request body into target and validates it. An
// empty body decodes as an empty object. Errors are ready to pass to
// writeError.
func decodeJSON(r *http.Request, target any) error {
	defer r.Body.Close()
	if err := json.NewDecoder(r.Body).Decode(target); err != nil && !errors.Is(err, io.EOF) {
		return fmt.Errorf("%w: malformed request body", model.ErrInvalidInput)
	}
	return validate.Struct(target)
}

// pathID parses the named path value as a positive integer id.
func pathID(r *http.Request, name string) (int64, error) {
	id, err := strconv.ParseInt(r.PathValue(name), 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("%w: invalid %s", model.ErrInvalidInput, name)
	}
	return id, nil
}

// queryInt64 parses an optional integer query parameter; absent means 0.
func queryInt64(r *http.Request, name string) (int64, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return 0, nil
	}
	v, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: invalid %s", model.ErrInvalidInput, name)
	}
	return v, nil
}

func emptyIfNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}

func errInvalid(msg string) error {
	return fmt.Errorf("%w: %s", model.ErrInvalidInput, msg)
}
