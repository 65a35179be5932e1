package httputil

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
)

// Validator validates request DTOs. Field names in errors follow the json tags.
var Validator = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// customDescriptions holds messages for tags added through RegisterValidation.
var customDescriptions = map[string]string{}

// RegisterValidation adds a custom tag to Validator. Call it during package init.
func RegisterValidation(tag, description string, fn validator.Func) error {
	if err := Validator.RegisterValidation(tag, fn); err != nil {
		return fmt.Errorf("register %q: %w", tag, err)
	}
	customDescriptions[tag] = description
	return nil
}

// ValidationError writes a 400 listing each failed field.
func ValidationError(log *slog.Logger, w http.ResponseWriter, err error) {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		Fail(log, w, "invalid request", err, http.StatusBadRequest)
		return
	}
	fields := make(map[string]string, len(verrs))
	for _, fe := range verrs {
		fields[fieldPath(fe)] = describe(fe)
	}
	log.Warn("request validation failed", "fields", fields)
	WriteJSON(w, http.StatusBadRequest, ErrorBody{Error: "validation failed", Fields: fields})
}

// fieldPath drops the top-level struct name from the namespace, e.g. "searchRequest.query" becomes "query".
func fieldPath(fe validator.FieldError) string {
	ns := fe.Namespace()
	if _, rest, ok := strings.Cut(ns, "."); ok {
		return rest
	}
	return fe.Field()
}

func describe(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "max":
		return fmt.Sprintf("must be at most %s", fe.Param())
	case "min":
		return fmt.Sprintf("must be at least %s", fe.Param())
	case "oneof":
		return fmt.Sprintf("must be one of: %s", fe.Param())
	case "url", "http_url":
		return "must be a valid URL"
	default:
		if d, ok := customDescriptions[fe.Tag()]; ok {
			return d
		}
		return fmt.Sprintf("failed %q validation", fe.Tag())
	}
}
