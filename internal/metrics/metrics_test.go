package metrics

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/kargopost/orderwizard/internal/metrics/config"
	"github.com/kargopost/orderwizard/internal/model"
)

func testDims() model.Dimensions {
	return model.Dimensions{
		Weight: decimal.RequireFromString("2.50"),
		Width:  decimal.RequireFromString("10.00"),
		Length: decimal.RequireFromString("10.00"),
		Height: decimal.RequireFromString("10.00"),
	}
}

func TestCompute(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "/api/metrics/calculate", r.URL.Path)

		var req map[string]decimal.Decimal
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		require.True(t, req["weight"].Equal(decimal.RequireFromString("2.50")))
		require.True(t, req["height"].Equal(decimal.RequireFromString("10.00")))

		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"volume":"1000","places_count":1,"price":"15.00"}`))
	}))
	defer server.Close()

	c := NewClient(config.Config{ServiceAddr: server.URL})
	derived, err := c.Compute(context.Background(), testDims())
	require.NoError(t, err)
	require.True(t, derived.Volume.Equal(decimal.RequireFromString("1000")))
	require.Equal(t, 1, derived.PlacesCount)
	require.True(t, derived.Price.Equal(decimal.RequireFromString("15.00")))
}

// Одинаковые габариты - одинаковый ответ, сколько бы раз ни спрашивали
func TestComputeIdempotent(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.Write([]byte(`{"volume":"1000","places_count":1,"price":"15.00"}`))
	}))
	defer server.Close()

	c := NewClient(config.Config{ServiceAddr: server.URL})

	first, err := c.Compute(context.Background(), testDims())
	require.NoError(t, err)
	second, err := c.Compute(context.Background(), testDims())
	require.NoError(t, err)

	require.True(t, first.Volume.Equal(second.Volume))
	require.Equal(t, first.PlacesCount, second.PlacesCount)
	require.True(t, first.Price.Equal(second.Price))
	require.EqualValues(t, 2, calls.Load())
}

func TestComputeServiceDown(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	c := NewClient(config.Config{ServiceAddr: server.URL})
	_, err := c.Compute(context.Background(), testDims())
	require.Error(t, err)
}
