package httpx

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStatusFor(t *testing.T) {
	cases := []struct {
		err  error
		want int
	}{
		{nil, http.StatusOK},
		{fmt.Errorf("vehicle 3: %w", ErrNotFound), http.StatusNotFound},
		{fmt.Errorf("invoice: %w", ErrDuplicate), http.StatusConflict},
		{fmt.Errorf("client 4: %w", ErrConflict), http.StatusConflict},
		{fmt.Errorf("%w: bad date", ErrValidation), http.StatusBadRequest},
		{ErrForbidden, http.StatusForbidden},
		{ErrUnauthorized, http.StatusUnauthorized},
		{errors.New("boom"), http.StatusInternalServerError},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, StatusFor(tc.err), "%v", tc.err)
	}
}

func TestRespondErrorHidesInternalDetail(t *testing.T) {
	res := httptest.NewRecorder()
	RespondError(res, errors.New("pq: password authentication failed"))

	require.Equal(t, http.StatusInternalServerError, res.Code)
	assert.Equal(t, "application/problem+json", res.Header().Get("Content-Type"))
	var problem ProblemDetail
	require.NoError(t, json.Unmarshal(res.Body.Bytes(), &problem))
	assert.Empty(t, problem.Detail)

	res = httptest.NewRecorder()
	RespondError(res, fmt.Errorf("%w: endDate before startDate", ErrValidation))
	require.NoError(t, json.Unmarshal(res.Body.Bytes(), &problem))
	assert.Equal(t, http.StatusBadRequest, problem.Status)
	assert.Contains(t, problem.Detail, "endDate before startDate")
}

func TestDecodeJSON(t *testing.T) {
	var target struct {
		Name string `json:"name"`
	}
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"name":"ana"}`))
	require.NoError(t, DecodeJSON(req, &target))
	assert.Equal(t, "ana", target.Name)

	req = httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"name":"ana","role":"x"}`))
	assert.ErrorIs(t, DecodeJSON(req, &target), ErrValidation)
}

func TestAttachment(t *testing.T) {
	res := httptest.NewRecorder()
	_, err := Attachment(res, "resumen_reparaciones_20240101_000000.csv", []byte("a,b\n"))
	require.NoError(t, err)
	assert.Equal(t, "application/octet-stream", res.Header().Get("Content-Type"))
	assert.Equal(t, `attachment;filename="resumen_reparaciones_20240101_000000.csv"`, res.Header().Get("Content-Disposition"))
	assert.Equal(t, "4", res.Header().Get("Content-Length"))
	assert.Equal(t, "a,b\n", res.Body.String())
}
