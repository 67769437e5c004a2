package submit

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/kargopost/orderwizard/internal/model"
	"github.com/kargopost/orderwizard/internal/submit/config"
)

func testDraft() model.Draft {
	return model.Draft{
		Application: model.Application{
			Type:   model.PartyTypeIndividual,
			Person: model.Person{FirstName: "Ayan", LastName: "Tulegenov"},
			Phone:  "+77011234567",
			Source: "insta",
		},
		Order: model.OrderDetails{
			DeliveryTypeID:   1,
			DeliveryCategory: model.DeliveryCategoryB2C,
			PackageTypeID:    2,
			Dimensions: model.Dimensions{
				Weight: decimal.RequireFromString("2.50"),
				Width:  decimal.RequireFromString("10.00"),
				Length: decimal.RequireFromString("10.00"),
				Height: decimal.RequireFromString("10.00"),
			},
			Derived: &model.DerivedMetrics{
				Volume:      decimal.RequireFromString("1000"),
				PlacesCount: 1,
				Price:       decimal.RequireFromString("15.00"),
			},
		},
		Sender: model.Party{
			Type:      model.PartyTypeIndividual,
			Person:    model.Person{FirstName: "Ayan", LastName: "Tulegenov"},
			Phone:     "+77011234567",
			CountryID: 1,
			CityID:    5,
			Street:    "Abay",
			House:     "10",
		},
	}
}

func TestBuildPayloadFlattensDerivedBlock(t *testing.T) {
	payload := BuildPayload(testDraft(), "KP1234567897")

	require.Equal(t, "KP1234567897", payload.TrackingNumber)
	require.Equal(t, "Ayan", payload.Application.Person.FirstName)
	require.True(t, payload.Order.Volume.Equal(decimal.RequireFromString("1000")))
	require.Equal(t, 1, payload.Order.PlacesCount)
	require.True(t, payload.Order.Price.Equal(decimal.RequireFromString("15.00")))
	require.True(t, payload.Order.Weight.Equal(decimal.RequireFromString("2.50")))
	require.Equal(t, "Abay", payload.Order.Sender.Street)
}

func TestBuildPayloadWireFormat(t *testing.T) {
	payload := BuildPayload(testDraft(), "KP1234567897")

	body, err := json.Marshal(payload)
	require.NoError(t, err)

	// расчетный блок лежит внутри объекта заказа
	var wire map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(body, &wire))
	require.Contains(t, wire, "application")
	require.Contains(t, wire, "order")

	var order map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(wire["order"], &order))
	require.Contains(t, order, "volume")
	require.Contains(t, order, "places_count")
	require.Contains(t, order, "price")
	require.Contains(t, order, "sender")
}

func TestCreateOrder(t *testing.T) {
	var got Payload
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "/api/orders", r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusCreated)
		w.Write([]byte(`{"id":"order-42"}`))
	}))
	defer server.Close()

	c := NewClient(config.Config{ServiceAddr: server.URL})
	result, err := c.CreateOrder(context.Background(), BuildPayload(testDraft(), "KP1234567897"))
	require.NoError(t, err)
	require.Equal(t, "order-42", result.ID)
	require.Equal(t, "KP1234567897", got.TrackingNumber)
}

func TestCreateDraftOrderPath(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/api/orders/draft", r.URL.Path)
		w.Write([]byte(`{"id":"draft-42"}`))
	}))
	defer server.Close()

	c := NewClient(config.Config{ServiceAddr: server.URL})
	result, err := c.CreateDraftOrder(context.Background(), BuildPayload(testDraft(), "KP1234567897"))
	require.NoError(t, err)
	require.Equal(t, "draft-42", result.ID)
}

func TestCreateOrderServiceError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`{"message":"sender city is not serviced"}`))
	}))
	defer server.Close()

	c := NewClient(config.Config{ServiceAddr: server.URL})
	_, err := c.CreateOrder(context.Background(), BuildPayload(testDraft(), "KP1234567897"))

	var svcErr *Error
	require.ErrorAs(t, err, &svcErr)
	require.Equal(t, http.StatusBadRequest, svcErr.Status)
	require.Equal(t, "sender city is not serviced", svcErr.Message)
}

func TestNewTrackingNumber(t *testing.T) {
	for i := 0; i < 100; i++ {
		number := NewTrackingNumber()
		require.Len(t, number, 12)
		require.True(t, ValidTrackingNumber(number), number)
	}
}

func TestValidTrackingNumber(t *testing.T) {
	tests := []struct {
		name   string
		number string
		want   bool
	}{
		{"wrong prefix", "XX1234567897", false},
		{"too short", "KP123456789", false},
		{"not digits", "KP12345678AB", false},
		{"bad check digit", "KP1234567891", false},
		{"empty", "", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Equal(t, tt.want, ValidTrackingNumber(tt.number))
		})
	}
}
