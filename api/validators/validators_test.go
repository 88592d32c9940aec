package validators

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	pkgerrors "github.com/angelmondragon/donorjournal-backend/pkg/errors"
)

type samplePayload struct {
	Name    string `json:"name" validate:"required"`
	Cadence string `json:"cadence" validate:"omitempty,oneof=monthly annual"`
}

func TestDecodeJSONBody(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"name":"x","cadence":"monthly"}`))
	var p samplePayload
	require.NoError(t, DecodeJSONBody(req, &p))
	assert.Equal(t, "x", p.Name)
}

func TestDecodeJSONBodyRejects(t *testing.T) {
	cases := map[string]string{
		"malformed":     `{"name":`,
		"unknown field": `{"name":"x","extra":1}`,
		"missing":       `{}`,
		"bad oneof":     `{"name":"x","cadence":"weekly"}`,
		"trailing data": `{"name":"x"}{"name":"y"}`,
		"too large":     `{"name":"` + strings.Repeat("a", maxBodyBytes) + `"}`,
	}
	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(body))
			var p samplePayload
			err := DecodeJSONBody(req, &p)
			assert.True(t, pkgerrors.Is(err, pkgerrors.CodeValidation))
		})
	}
}

func TestValidationDetailsUseJSONNames(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"name":"x","cadence":"weekly"}`))
	var p samplePayload
	err := DecodeJSONBody(req, &p)
	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	details, ok := typed.Details().(map[string]string)
	require.True(t, ok)
	assert.Equal(t, "must be one of monthly annual", details["cadence"])
}

func TestParseQueryInt(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/?page=3", nil)
	v, err := ParseQueryInt(req, "page", 1, 1, 10)
	require.NoError(t, err)
	assert.Equal(t, 3, v)

	v, err = ParseQueryInt(req, "missing", 7, 1, 10)
	require.NoError(t, err)
	assert.Equal(t, 7, v)

	_, err = ParseQueryInt(httptest.NewRequest(http.MethodGet, "/?page=abc", nil), "page", 1, 1, 10)
	assert.Error(t, err)
	_, err = ParseQueryInt(httptest.NewRequest(http.MethodGet, "/?page=11", nil), "page", 1, 1, 10)
	assert.Error(t, err)
}

func withParam(r *http.Request, key, value string) *http.Request {
	rctx := chi.NewRouteContext()
	rctx.URLParams.Add(key, value)
	return r.WithContext(context.WithValue(r.Context(), chi.RouteCtxKey, rctx))
}

func TestParseUUIDParam(t *testing.T) {
	id := uuid.New()
	got, err := ParseUUIDParam(withParam(httptest.NewRequest(http.MethodGet, "/", nil), "decisionId", id.String()), "decisionId")
	require.NoError(t, err)
	assert.Equal(t, id, got)

	_, err = ParseUUIDParam(withParam(httptest.NewRequest(http.MethodGet, "/", nil), "decisionId", "nope"), "decisionId")
	assert.True(t, pkgerrors.Is(err, pkgerrors.CodeValidation))

	_, err = ParseUUIDParam(httptest.NewRequest(http.MethodGet, "/", nil), "decisionId")
	assert.True(t, pkgerrors.Is(err, pkgerrors.CodeValidation))
}

type moneyPayload struct {
	Amount *decimal.Decimal `json:"amount" validate:"required,money"`
}

func TestMoneyTag(t *testing.T) {
	cases := map[string]bool{
		`{"amount":"300.00"}`: true,
		`{"amount":"12.5"}`:   true,
		`{"amount":"0.001"}`:  false,
		`{}`:                  false,
	}
	for body, ok := range cases {
		t.Run(body, func(t *testing.T) {
			var p moneyPayload
			err := DecodeJSONBody(httptest.NewRequest(http.MethodPost, "/", strings.NewReader(body)), &p)
			if ok {
				assert.NoError(t, err)
				return
			}
			assert.True(t, pkgerrors.Is(err, pkgerrors.CodeValidation))
		})
	}
}
