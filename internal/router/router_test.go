package router

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/cinema-pos/internal/handler"
	"github.com/iliyamo/cinema-pos/internal/model"
	"github.com/iliyamo/cinema-pos/internal/observability"
	"github.com/iliyamo/cinema-pos/internal/utils"
)

const secret = "router-test"

func newServer() *echo.Echo {
	e := echo.New()
	e.Validator = handler.NewValidator()
	log := observability.Discard()
	d := Deps{
		JWTSecret: secret,
		Auth:      &handler.AuthHandler{Log: log},
		Catalog:   handler.NewCatalogHandler(nil, log),
		Seats:     handler.NewSeatHandler(nil, log),
		Bookings:  handler.NewBookingHandler(nil, log),
		Log:       log,
	}
	RegisterRoutes(e)
	RegisterAuth(e, d)
	RegisterPOS(e, d)
	return e
}

func call(e *echo.Echo, method, path, role string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, nil)
	if role != "" {
		tok, _ := utils.NewAccessToken(secret, 3, role, 5)
		req.Header.Set("Authorization", "Bearer "+tok.Token)
	}
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func TestProbes(t *testing.T) {
	e := newServer()
	assert.Equal(t, http.StatusOK, call(e, http.MethodGet, "/healthz", "").Code)

	rec := call(e, http.MethodGet, "/metrics", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "go_goroutines")
}

func TestPOSRoutesNeedToken(t *testing.T) {
	e := newServer()
	for _, r := range []struct{ method, path string }{
		{http.MethodGet, "/v1/rooms/1"},
		{http.MethodGet, "/v1/showtimes/1/booked-seats"},
		{http.MethodPost, "/v1/showtimes/1/holds"},
		{http.MethodDelete, "/v1/showtimes/1/holds/2"},
		{http.MethodPost, "/v1/bookings"},
		{http.MethodPost, "/v1/bookings/1/checkout"},
	} {
		assert.Equal(t, http.StatusUnauthorized, call(e, r.method, r.path, "").Code, r.path)
	}
}

func TestMe(t *testing.T) {
	e := newServer()
	rec := call(e, http.MethodGet, "/v1/me", model.RoleStaff)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"operator_id":3,"role":"STAFF"}`, rec.Body.String())

	assert.Equal(t, http.StatusForbidden, call(e, http.MethodGet, "/v1/me", "CUSTOMER").Code)
}

func TestRegisterIsManagerOnly(t *testing.T) {
	e := newServer()
	assert.Equal(t, http.StatusUnauthorized, call(e, http.MethodPost, "/v1/auth/register", "").Code)
	assert.Equal(t, http.StatusForbidden, call(e, http.MethodPost, "/v1/auth/register", model.RoleStaff).Code)
}
