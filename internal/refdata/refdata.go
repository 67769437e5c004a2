// Package refdata fetches reference data (countries, cities, delivery
// types, package types, sources) from the directory service. A wizard step
// is not rendered until every list it needs has resolved, so the per-step
// lookups run concurrently and fail as one.
package refdata

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/go-resty/resty/v2"
	"golang.org/x/sync/errgroup"

	"github.com/kargopost/orderwizard/internal/model"
	"github.com/kargopost/orderwizard/internal/refdata/config"
)

// Ref - пара id/имя из справочника
type Ref struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

// JSON ответ справочного сервиса
type listAnswer struct {
	Items []Ref `json:"items"`
	Total int   `json:"total"`
}

type Client interface {
	Countries(ctx context.Context) ([]Ref, error)
	Cities(ctx context.Context, countryID int64) ([]Ref, error)
	DeliveryTypes(ctx context.Context) ([]Ref, error)
	PackageTypes(ctx context.Context) ([]Ref, error)
	Sources(ctx context.Context) ([]Ref, error)
	StepLookups(ctx context.Context, step model.Step) (Lookups, error)
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

func (c *client) list(ctx context.Context, path string, query map[string]string) ([]Ref, error) {
	resp, err := c.http.R().
		SetContext(ctx).
		SetQueryParams(query).
		Get(c.serviceAddr + path)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode() != http.StatusOK {
		return nil, fmt.Errorf("refdata %s status: %d", path, resp.StatusCode())
	}

	var answer listAnswer
	if err := json.Unmarshal(resp.Body(), &answer); err != nil {
		return nil, err
	}
	return answer.Items, nil
}

func (c *client) Countries(ctx context.Context) ([]Ref, error) {
	return c.list(ctx, "/api/countries", nil)
}

func (c *client) Cities(ctx context.Context, countryID int64) ([]Ref, error) {
	return c.list(ctx, "/api/cities", map[string]string{
		"country_id": strconv.FormatInt(countryID, 10),
	})
}

func (c *client) DeliveryTypes(ctx context.Context) ([]Ref, error) {
	return c.list(ctx, "/api/delivery-types", nil)
}

func (c *client) PackageTypes(ctx context.Context) ([]Ref, error) {
	return c.list(ctx, "/api/package-types", nil)
}

func (c *client) Sources(ctx context.Context) ([]Ref, error) {
	return c.list(ctx, "/api/sources", nil)
}

// Lookups - справочники, необходимые для отрисовки одного шага
type Lookups struct {
	Countries     []Ref `json:"countries,omitempty"`
	DeliveryTypes []Ref `json:"delivery_types,omitempty"`
	PackageTypes  []Ref `json:"package_types,omitempty"`
	Sources       []Ref `json:"sources,omitempty"`
}

// StepLookups gathers every list the given step needs. All fetches run in
// parallel; the first failure cancels the rest and fails the whole step.
func (c *client) StepLookups(ctx context.Context, step model.Step) (Lookups, error) {
	var lookups Lookups
	g, ctx := errgroup.WithContext(ctx)

	switch step {
	case model.StepApplication:
		g.Go(func() error {
			sources, err := c.Sources(ctx)
			lookups.Sources = sources
			return err
		})
	case model.StepSender:
		g.Go(func() error {
			countries, err := c.Countries(ctx)
			lookups.Countries = countries
			return err
		})
	case model.StepOrder:
		g.Go(func() error {
			types, err := c.DeliveryTypes(ctx)
			lookups.DeliveryTypes = types
			return err
		})
		g.Go(func() error {
			types, err := c.PackageTypes(ctx)
			lookups.PackageTypes = types
			return err
		})
		g.Go(func() error {
			countries, err := c.Countries(ctx)
			lookups.Countries = countries
			return err
		})
	}

	if err := g.Wait(); err != nil {
		return Lookups{}, err
	}
	return lookups, nil
}

// Name resolves a display label from a fetched list.
func Name(refs []Ref, id int64) (string, bool) {
	for _, ref := range refs {
		if ref.ID == id {
			return ref.Name, true
		}
	}
	return "", false
}
