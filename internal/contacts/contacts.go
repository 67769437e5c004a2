// Package contacts resolves saved client contacts into party fields.
package contacts

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/kargopost/orderwizard/internal/model"
)

var ErrNotFound = errors.New("contact not found")

// PartyFields - профиль контакта в форме полей стороны заказа.
// Контакт хранит только идентификационные поля: адресные поля
// (улица, дом и т.д.) остаются за оператором.
type PartyFields struct {
	Type      model.PartyType `json:"type"`
	Person    model.Person    `json:"person"`
	Company   model.Company   `json:"company"`
	Phone     string          `json:"phone"`
	CountryID int64           `json:"country_id"`
	CityID    int64           `json:"city_id"`
}

type Client interface {
	Contact(ctx context.Context, contactID string) (PartyFields, error)
}

type client struct {
	serviceAddr string
	http        *resty.Client
}

func NewClient(serviceAddr string) Client {
	return &client{
		serviceAddr: serviceAddr,
		http:        resty.New().SetTimeout(10 * time.Second),
	}
}

func (c *client) Contact(ctx context.Context, contactID string) (PartyFields, error) {
	resp, err := c.http.R().
		SetContext(ctx).
		Get(c.serviceAddr + "/api/contacts/" + contactID)
	if err != nil {
		return PartyFields{}, err
	}

	switch resp.StatusCode() {
	case http.StatusOK:
		var fields PartyFields
		err = json.Unmarshal(resp.Body(), &fields)
		return fields, err
	case http.StatusNotFound:
		return PartyFields{}, ErrNotFound
	default:
		return PartyFields{}, fmt.Errorf("contact request status: %d", resp.StatusCode())
	}
}
