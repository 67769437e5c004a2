// Package submit sends the accumulated draft to the order service.
// Submission is all-or-nothing: nothing of the draft exists remotely
// before CreateOrder or CreateDraftOrder succeeds.
package submit

import (
	"context"
	"encoding/json"
	"fmt"
	"math/rand"
	"net/http"
	"strconv"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/shopspring/decimal"
	"github.com/theplant/luhn"

	"github.com/kargopost/orderwizard/internal/model"
	"github.com/kargopost/orderwizard/internal/submit/config"
)

type Mode string

const (
	ModeConfirm Mode = "confirm"
	ModeDraft   Mode = "draft"
)

// Payload - полный заказ в форме, которую принимает сервис заказов:
// стороны вложены в заказ, расчетный блок развернут в поля заказа.
type Payload struct {
	TrackingNumber string            `json:"tracking_number"`
	Application    model.Application `json:"application"`
	Order          OrderPayload      `json:"order"`
}

type OrderPayload struct {
	DeliveryTypeID     int64                  `json:"delivery_type_id"`
	DeliveryCategory   model.DeliveryCategory `json:"delivery_category"`
	PackageTypeID      int64                  `json:"package_type_id"`
	Weight             decimal.Decimal        `json:"weight"`
	Width              decimal.Decimal        `json:"width"`
	Length             decimal.Decimal        `json:"length"`
	Height             decimal.Decimal        `json:"height"`
	Volume             decimal.Decimal        `json:"volume"`
	PlacesCount        int                    `json:"places_count"`
	Price              decimal.Decimal        `json:"price"`
	IsInternational    bool                   `json:"is_international"`
	CustomsClearance   bool                   `json:"customs_clearance"`
	Content            []string               `json:"order_content,omitempty"`
	PackageDescription string                 `json:"package_description,omitempty"`
	SpecialWishes      string                 `json:"special_wishes,omitempty"`
	Sender             model.Party            `json:"sender"`
	Receiver           model.Party            `json:"receiver"`
}

type Result struct {
	ID             string `json:"id"`
	TrackingNumber string `json:"tracking_number,omitempty"`
}

// JSON ошибка сервиса заказов
type serviceError struct {
	Message string `json:"message"`
}

// Error - структурированная ошибка отправки
type Error struct {
	Status  int
	Message string
}

func (e *Error) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("order service: %s", e.Message)
	}
	return fmt.Sprintf("order service status: %d", e.Status)
}

type Client interface {
	CreateOrder(ctx context.Context, payload Payload) (Result, error)
	CreateDraftOrder(ctx context.Context, payload Payload) (Result, error)
}

type client struct {
	serviceAddr string
	http        *resty.Client
}

func NewClient(cfg config.Config) Client {
	return &client{
		serviceAddr: cfg.ServiceAddr,
		http:        resty.New().SetTimeout(30 * time.Second),
	}
}

// BuildPayload flattens a draft into the wire form. The derived block, when
// present, is projected into the order object the way the order service
// stores it.
func BuildPayload(draft model.Draft, trackingNumber string) Payload {
	order := OrderPayload{
		DeliveryTypeID:     draft.Order.DeliveryTypeID,
		DeliveryCategory:   draft.Order.DeliveryCategory,
		PackageTypeID:      draft.Order.PackageTypeID,
		Weight:             draft.Order.Dimensions.Weight,
		Width:              draft.Order.Dimensions.Width,
		Length:             draft.Order.Dimensions.Length,
		Height:             draft.Order.Dimensions.Height,
		IsInternational:    draft.Order.IsInternational,
		CustomsClearance:   draft.Order.CustomsClearance,
		Content:            draft.Order.Content,
		PackageDescription: draft.Order.PackageDescription,
		SpecialWishes:      draft.Order.SpecialWishes,
		Sender:             draft.Sender,
		Receiver:           draft.Receiver,
	}
	if derived := draft.Order.Derived; derived != nil {
		order.Volume = derived.Volume
		order.PlacesCount = derived.PlacesCount
		order.Price = derived.Price
	}

	return Payload{
		TrackingNumber: trackingNumber,
		Application:    draft.Application,
		Order:          order,
	}
}

func (c *client) CreateOrder(ctx context.Context, payload Payload) (Result, error) {
	return c.post(ctx, "/api/orders", payload)
}

func (c *client) CreateDraftOrder(ctx context.Context, payload Payload) (Result, error) {
	return c.post(ctx, "/api/orders/draft", payload)
}

func (c *client) post(ctx context.Context, path string, payload Payload) (Result, error) {
	resp, err := c.http.R().
		SetContext(ctx).
		SetHeader("Content-Type", "application/json").
		SetBody(payload).
		Post(c.serviceAddr + path)
	if err != nil {
		return Result{}, err
	}

	switch resp.StatusCode() {
	case http.StatusOK, http.StatusCreated:
		var result Result
		err = json.Unmarshal(resp.Body(), &result)
		return result, err
	default:
		var svcErr serviceError
		_ = json.Unmarshal(resp.Body(), &svcErr)
		return Result{}, &Error{Status: resp.StatusCode(), Message: svcErr.Message}
	}
}

const trackingPrefix = "KP"

// NewTrackingNumber generates a tracking number: prefix, nine random
// digits and a Luhn check digit.
func NewTrackingNumber() string {
	body := rand.Intn(900000000) + 100000000
	check := luhn.CalculateLuhn(body)
	return fmt.Sprintf("%s%d%d", trackingPrefix, body, check)
}

// ValidTrackingNumber reports whether the number carries the expected
// prefix and a correct check digit.
func ValidTrackingNumber(number string) bool {
	if len(number) != len(trackingPrefix)+10 {
		return false
	}
	if number[:len(trackingPrefix)] != trackingPrefix {
		return false
	}
	digits, err := strconv.Atoi(number[len(trackingPrefix):])
	if err != nil {
		return false
	}
	return luhn.Valid(digits)
}
