package httpx

import (
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fungus-mycelium/fungus-admin/internal/api"
)

func TestStatusFor(t *testing.T) {
	cases := []struct {
		err  error
		want int
	}{
		{nil, http.StatusOK},
		{ErrValidation, http.StatusUnprocessableEntity},
		{fmt.Errorf("wrap: %w", ErrValidation), http.StatusUnprocessableEntity},
		{&api.Error{Status: 400}, http.StatusUnprocessableEntity},
		{&api.Error{Status: 404}, http.StatusNotFound},
		{&api.Error{Status: 403}, http.StatusForbidden},
		{&api.Error{Status: 401}, http.StatusUnauthorized},
		{&api.Error{Status: 503}, http.StatusBadGateway},
		{errors.New("boom"), http.StatusInternalServerError},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, StatusFor(tc.err), "%v", tc.err)
	}
}

func TestRespondErrorHidesInternalDetail(t *testing.T) {
	rr := httptest.NewRecorder()
	RespondError(rr, errors.New("db password leaked"))
	assert.Equal(t, http.StatusInternalServerError, rr.Code)
	assert.Equal(t, "application/problem+json", rr.Header().Get("Content-Type"))
	assert.NotContains(t, rr.Body.String(), "leaked")
}

type sampleForm struct {
	Name    string  `validate:"required"`
	Email   string  `validate:"required,email"`
	Price   float64 `validate:"gte=0"`
	Secret  string  `validate:"min=8"`
	Confirm string  `validate:"eqfield=Secret"`
}

func TestFieldErrors(t *testing.T) {
	v := NewValidator()
	err := v.Struct(sampleForm{Email: "nope", Price: -1, Secret: "short", Confirm: "other"})
	require.Error(t, err)

	msgs := FieldErrors(err, map[string]string{"Name": "El nombre", "Email": "El correo", "Price": "El precio", "Secret": "La contraseña", "Confirm": "La confirmación"})
	assert.Equal(t, "El nombre es obligatorio.", msgs["Name"])
	assert.Equal(t, "El correo no es un correo válido.", msgs["Email"])
	assert.Equal(t, "El precio debe ser mayor o igual a 0.", msgs["Price"])
	assert.Equal(t, "La contraseña debe tener al menos 8 caracteres.", msgs["Secret"])
	assert.Equal(t, "La confirmación no coincide.", msgs["Confirm"])

	assert.Empty(t, FieldErrors(nil, nil))
	assert.Equal(t, "boom", FieldErrors(errors.New("boom"), nil)["general"])
}
