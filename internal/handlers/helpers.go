package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/Lixing-Zhang/food-ordering/backend/internal/apperr"
	"github.com/Lixing-Zhang/food-ordering/backend/internal/middleware"
	"github.com/Lixing-Zhang/food-ordering/backend/internal/models"
)

const maxBodyBytes = 1 << 20

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// decodeJSON reads a JSON body into dst and validates it. Unknown fields are
// ignored.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst interface{}) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		if errors.Is(err, io.EOF) {
			return apperr.New(apperr.Validation, "Request body is required")
		}
		return apperr.Wrap(apperr.Validation, "Invalid request body", err)
	}
	if err := validate.Struct(dst); err != nil {
		return apperr.Wrap(apperr.Validation, validationMessage(err), err)
	}
	return nil
}

func validationMessage(err error) string {
	var errs validator.ValidationErrors
	if !errors.As(err, &errs) || len(errs) == 0 {
		return "Invalid request body"
	}
	fe := errs[0]
	field := fe.Namespace()
	if i := strings.IndexByte(field, '.'); i >= 0 {
		field = field[i+1:]
	}
	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", field)
	case "oneof":
		return fmt.Sprintf("%s must be one of: %s", field, fe.Param())
	case "gt":
		return fmt.Sprintf("%s must be greater than %s", field, fe.Param())
	case "min", "gte":
		return fmt.Sprintf("%s must be at least %s", field, fe.Param())
	case "max", "lte":
		return fmt.Sprintf("%s must be at most %s", field, fe.Param())
	default:
		return fmt.Sprintf("%s is invalid", field)
	}
}

// writeServiceError maps err to a response. Unclassified errors are logged
// in full and answered with a generic message.
func writeServiceError(w http.ResponseWriter, r *http.Request, err error, log *slog.Logger) {
	kind := apperr.KindOf(err)
	status := apperr.HTTPStatus(kind)

	switch kind {
	case apperr.Internal, apperr.Gateway:
		log.ErrorContext(r.Context(), "request failed", "path", r.URL.Path, "kind", kind.String(), "error", err)
	case apperr.Integrity:
		log.WarnContext(r.Context(), "integrity check failed", "path", r.URL.Path, "remote_addr", r.RemoteAddr, "error", err)
	default:
		log.DebugContext(r.Context(), "request rejected", "path", r.URL.Path, "kind", kind.String(), "error", err)
	}

	WriteError(w, status, apperr.MessageOf(err), log)
}

func principalFrom(r *http.Request) *models.Principal {
	return middleware.PrincipalFrom(r.Context())
}
