package refdata

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/kargopost/orderwizard/internal/model"
	"github.com/kargopost/orderwizard/internal/refdata/config"
)

func newRefServer(t *testing.T) *httptest.Server {
	t.Helper()

	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/countries", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"items":[{"id":1,"name":"Kazakhstan"},{"id":2,"name":"Kyrgyzstan"}],"total":2}`))
	})
	mux.HandleFunc("GET /api/cities", func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Query().Get("country_id") {
		case "1":
			w.Write([]byte(`{"items":[{"id":5,"name":"Almaty"},{"id":7,"name":"Astana"}],"total":2}`))
		default:
			w.Write([]byte(`{"items":[],"total":0}`))
		}
	})
	mux.HandleFunc("GET /api/delivery-types", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"items":[{"id":1,"name":"express"}],"total":1}`))
	})
	mux.HandleFunc("GET /api/package-types", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"items":[{"id":2,"name":"box"}],"total":1}`))
	})
	mux.HandleFunc("GET /api/sources", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"items":[{"id":1,"name":"insta"}],"total":1}`))
	})

	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)
	return server
}

func TestCitiesFilteredByCountry(t *testing.T) {
	server := newRefServer(t)
	c := NewClient(config.Config{ServiceAddr: server.URL})

	cities, err := c.Cities(context.Background(), 1)
	require.NoError(t, err)
	require.Len(t, cities, 2)
	require.Equal(t, "Almaty", cities[0].Name)

	empty, err := c.Cities(context.Background(), 99)
	require.NoError(t, err)
	require.Empty(t, empty)
}

func TestStepLookups(t *testing.T) {
	server := newRefServer(t)
	c := NewClient(config.Config{ServiceAddr: server.URL})
	ctx := context.Background()

	app, err := c.StepLookups(ctx, model.StepApplication)
	require.NoError(t, err)
	require.Len(t, app.Sources, 1)
	require.Empty(t, app.Countries)

	sender, err := c.StepLookups(ctx, model.StepSender)
	require.NoError(t, err)
	require.Len(t, sender.Countries, 2)

	order, err := c.StepLookups(ctx, model.StepOrder)
	require.NoError(t, err)
	require.Len(t, order.DeliveryTypes, 1)
	require.Len(t, order.PackageTypes, 1)
	require.Len(t, order.Countries, 2)

	// итоговому шагу справочники не нужны
	confirm, err := c.StepLookups(ctx, model.StepConfirm)
	require.NoError(t, err)
	require.Equal(t, Lookups{}, confirm)
}

// Отказ одного справочника валит весь шаг
func TestStepLookupsFailAsOne(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/delivery-types", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"items":[{"id":1,"name":"express"}],"total":1}`))
	})
	mux.HandleFunc("GET /api/package-types", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	})
	mux.HandleFunc("GET /api/countries", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"items":[],"total":0}`))
	})
	server := httptest.NewServer(mux)
	defer server.Close()

	c := NewClient(config.Config{ServiceAddr: server.URL})
	_, err := c.StepLookups(context.Background(), model.StepOrder)
	require.Error(t, err)
}

func TestName(t *testing.T) {
	refs := []Ref{{ID: 1, Name: "Kazakhstan"}, {ID: 2, Name: "Kyrgyzstan"}}

	name, ok := Name(refs, 2)
	require.True(t, ok)
	require.Equal(t, "Kyrgyzstan", name)

	_, ok = Name(refs, 99)
	require.False(t, ok)
}
