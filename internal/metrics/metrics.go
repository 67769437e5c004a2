// Package metrics computes the derived shipment block (volume, place
// count, price) from the dimensional inputs via the tariff service.
package metrics

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/shopspring/decimal"

	"github.com/kargopost/orderwizard/internal/metrics/config"
	"github.com/kargopost/orderwizard/internal/model"
)

// JSON запрос/ответ тарифного сервиса
type calcRequest struct {
	Weight decimal.Decimal `json:"weight"`
	Width  decimal.Decimal `json:"width"`
	Length decimal.Decimal `json:"length"`
	Height decimal.Decimal `json:"height"`
}

type calcAnswer struct {
	Volume      decimal.Decimal `json:"volume"`
	PlacesCount int             `json:"places_count"`
	Price       decimal.Decimal `json:"price"`
}

type Client interface {
	Compute(ctx context.Context, dims model.Dimensions) (model.DerivedMetrics, error)
}

type client struct {
	serviceAddr string
	http        *resty.Client
}

func NewClient(cfg config.Config) Client {
	return &client{
		serviceAddr: cfg.ServiceAddr,
		http:        resty.New().SetTimeout(10 * time.Second),
	}
}

func (c *client) Compute(ctx context.Context, dims model.Dimensions) (model.DerivedMetrics, error) {
	body := calcRequest{
		Weight: dims.Weight,
		Width:  dims.Width,
		Length: dims.Length,
		Height: dims.Height,
	}

	resp, err := c.http.R().
		SetContext(ctx).
		SetHeader("Content-Type", "application/json").
		SetBody(body).
		Post(c.serviceAddr + "/api/metrics/calculate")
	if err != nil {
		return model.DerivedMetrics{}, err
	}
	if resp.StatusCode() != http.StatusOK {
		return model.DerivedMetrics{}, fmt.Errorf("metrics request status: %d", resp.StatusCode())
	}

	var answer calcAnswer
	if err := json.Unmarshal(resp.Body(), &answer); err != nil {
		return model.DerivedMetrics{}, err
	}
	return model.DerivedMetrics{
		Volume:      answer.Volume,
		PlacesCount: answer.PlacesCount,
		Price:       answer.Price,
	}, nil
}
