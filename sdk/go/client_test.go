package cratesdk

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateCrate(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v0/crates", r.URL.Path)
		assert.Equal(t, "true", r.URL.Query().Get("include_files"))
		assert.Equal(t, "Bearer tok", r.Header.Get("Authorization"))
		var rec Record
		require.NoError(t, json.NewDecoder(r.Body).Decode(&rec))
		assert.Equal(t, "Sunny Valley Orchards", rec.FarmName)
		_ = json.NewEncoder(w).Encode(Crate{ID: "ORC-20240501-ABCD1234", Payload: "{}"})
	}))
	defer srv.Close()

	c := New(srv.URL)
	c.BearerToken = "tok"
	crate, err := c.CreateCrate(context.Background(), Record{FarmName: "Sunny Valley Orchards"}, true)
	require.NoError(t, err)
	assert.Equal(t, "ORC-20240501-ABCD1234", crate.ID)
}

func TestCreateCrateValidationError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusUnprocessableEntity)
		io.WriteString(w, `{"error":{"code":"missing_field","message":"farmName is required","details":{"field":"farmName"}}}`)
	}))
	defer srv.Close()

	_, err := New(srv.URL).CreateCrate(context.Background(), Record{}, false)
	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusUnprocessableEntity, apiErr.StatusCode)
	assert.Equal(t, "missing_field", apiErr.Code)
	assert.Equal(t, "farmName", apiErr.Field)
}

func TestRenderQRReturnsRawBytes(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v0/qr", r.URL.Path)
		w.Header().Set("Content-Type", "image/png")
		w.Write([]byte{0x89, 'P', 'N', 'G'})
	}))
	defer srv.Close()

	img, err := New(srv.URL).RenderQR(context.Background(), "payload")
	require.NoError(t, err)
	assert.Equal(t, []byte{0x89, 'P', 'N', 'G'}, img)
}
