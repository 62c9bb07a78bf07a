package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"reflect"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/sbilibin2017/gw-users/internal/logger"
	"github.com/sbilibin2017/gw-users/internal/services"
)

// maxBodyBytes caps the size of a JSON request body.
const maxBodyBytes = 1 << 20

// Messages returned to clients.
const (
	MsgUserAlreadyExists = "User already exists"
	MsgUserNotFound      = "User not found"
	MsgInternalError     = "Internal Error"
	MsgInvalidBody       = "Invalid request body"
	MsgValidationFailed  = "Validation failed"
	MsgBodyTooLarge      = "Request body too large"
)

// ErrorResponse is the body of every error reply
// swagger:model ErrorResponse
type ErrorResponse struct {
	// Error message
	// example: User not found
	Message string `json:"message" example:"User not found"`

	// Failed validation rule per field, only for validation errors
	Errors map[string]string `json:"errors,omitempty"`
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

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.Log.Errorw("failed to encode response", "error", err)
	}
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, ErrorResponse{Message: message})
}

// writeServiceError maps a service outcome to its HTTP reply.
func writeServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, services.ErrUserAlreadyExists):
		writeError(w, http.StatusBadRequest, MsgUserAlreadyExists)
	case errors.Is(err, services.ErrUserNotFound):
		writeError(w, http.StatusNotFound, MsgUserNotFound)
	default:
		logger.Log.Errorw("internal server error", "err", err)
		writeError(w, http.StatusInternalServerError, MsgInternalError)
	}
}

// decodeAndValidate reads a JSON body into dst and checks its validate tags.
// On failure the 400 (or 413 for an oversized body) reply is already written
// and false is returned.
func decodeAndValidate(w http.ResponseWriter, r *http.Request, dst any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, http.StatusRequestEntityTooLarge, MsgBodyTooLarge)
			return false
		}
		writeError(w, http.StatusBadRequest, MsgInvalidBody)
		return false
	}

	if err := validate.Struct(dst); err != nil {
		var verrs validator.ValidationErrors
		if !errors.As(err, &verrs) {
			logger.Log.Errorw("failed to validate request", "error", err)
			writeError(w, http.StatusBadRequest, MsgInvalidBody)
			return false
		}
		fields := make(map[string]string, len(verrs))
		for _, fe := range verrs {
			fields[fe.Field()] = fe.Tag()
		}
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Message: MsgValidationFailed, Errors: fields})
		return false
	}

	return true
}

// userIDParam parses the {id} route parameter. Ids that do not fit int64
// cannot exist, so they are reported as not found.
func userIDParam(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		writeError(w, http.StatusNotFound, MsgUserNotFound)
		return 0, false
	}
	return id, true
}
