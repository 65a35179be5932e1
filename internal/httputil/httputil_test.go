package httputil

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"deep-search/internal/logger"
)

type sampleRequest struct {
	Query    string   `json:"query" validate:"required,max=10"`
	Provider string   `json:"provider" validate:"omitempty,oneof=openai deepseek"`
	URLs     []string `json:"urls" validate:"omitempty,dive,url"`
}

func TestValidationError(t *testing.T) {
	err := Validator.Struct(&sampleRequest{Provider: "mistral", URLs: []string{"not a url"}})
	require.Error(t, err)

	rec := httptest.NewRecorder()
	ValidationError(logger.OrDiscard(nil), rec, err)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	var body ErrorBody
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
	assert.Equal(t, "validation failed", body.Error)
	assert.Equal(t, map[string]string{
		"query":    "is required",
		"provider": "must be one of: openai deepseek",
		"urls[0]":  "must be a valid URL",
	}, body.Fields)
}

func TestRegisterValidationDescribesCustomTag(t *testing.T) {
	require.NoError(t, RegisterValidation("lowercase_word", "must be a lowercase word", func(fl validator.FieldLevel) bool {
		for _, r := range fl.Field().String() {
			if r < 'a' || r > 'z' {
				return false
			}
		}
		return true
	}))

	type tagged struct {
		Name string `json:"name" validate:"lowercase_word"`
	}
	err := Validator.Struct(&tagged{Name: "Go"})
	require.Error(t, err)

	rec := httptest.NewRecorder()
	ValidationError(logger.OrDiscard(nil), rec, err)
	var body ErrorBody
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
	assert.Equal(t, map[string]string{"name": "must be a lowercase word"}, body.Fields)
	assert.NoError(t, Validator.Struct(&tagged{Name: "go"}))
}

func TestValidationErrorNonValidatorError(t *testing.T) {
	rec := httptest.NewRecorder()
	ValidationError(logger.OrDiscard(nil), rec, errors.New("boom"))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestFailWritesJSON(t *testing.T) {
	rec := httptest.NewRecorder()
	Fail(logger.OrDiscard(nil), rec, "search failed", errors.New("upstream"), 0)

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	assert.JSONEq(t, `{"error":"search failed"}`, rec.Body.String())
}

func TestRouterRecoversPanics(t *testing.T) {
	r := NewRouter(nil, time.Second)
	r.Get("/panic", func(w http.ResponseWriter, r *http.Request) { panic("kaboom") })
	r.Get("/healthz", HealthHandler(nil))

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/panic", nil))
	assert.Equal(t, http.StatusInternalServerError, rec.Code)

	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok", rec.Body.String())
}
