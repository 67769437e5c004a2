package validation

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/kargopost/orderwizard/internal/model"
)

func validIndividualApplication() model.Application {
	return model.Application{
		Type: model.PartyTypeIndividual,
		Person: model.Person{
			FirstName: "Ayan",
			LastName:  "Tulegenov",
		},
		Phone:  "+77011234567",
		Source: "insta",
	}
}

func TestApplicationIndividual(t *testing.T) {
	res := Application(validIndividualApplication())
	require.True(t, res.Valid)
	require.Empty(t, res.Errors)

	// обязательные поля физлица
	app := validIndividualApplication()
	app.Person.FirstName = ""
	res = Application(app)
	require.False(t, res.Valid)
	require.Contains(t, res.Errors, "first_name")

	app = validIndividualApplication()
	app.Person.LastName = ""
	res = Application(app)
	require.False(t, res.Valid)
	require.Contains(t, res.Errors, "last_name")

	// отчество опционально
	app = validIndividualApplication()
	app.Person.Patronymic = ""
	require.True(t, Application(app).Valid)
}

func TestApplicationLegal(t *testing.T) {
	app := model.Application{
		Type: model.PartyTypeLegal,
		Company: model.Company{
			Name: "KargoPost LLP",
			BIN:  "123456789012",
		},
		Phone:  "+77011234567",
		Source: "site",
	}
	res := Application(app)
	require.True(t, res.Valid)

	app.Company.Name = ""
	res = Application(app)
	require.False(t, res.Valid)
	require.Contains(t, res.Errors, "company_name")
}

func TestBINExactlyTwelveDigits(t *testing.T) {
	app := model.Application{
		Type:    model.PartyTypeLegal,
		Company: model.Company{Name: "KargoPost LLP"},
		Phone:   "+77011234567",
		Source:  "site",
	}

	cases := []struct {
		bin   string
		valid bool
	}{
		{"123456789012", true},
		{"12345678901", false},
		{"1234567890123", false},
		{"12345678901a", false},
		// знак и точка - 12 символов, но не 12 цифр
		{"+77011234567", false},
		{"123456789.12", false},
		{"", false},
	}
	for _, c := range cases {
		app.Company.BIN = c.bin
		res := Application(app)
		if c.valid {
			require.True(t, res.Valid, "bin %q", c.bin)
		} else {
			require.False(t, res.Valid, "bin %q", c.bin)
			require.Contains(t, res.Errors, "bin")
		}
	}
}

func TestApplicationSharedRules(t *testing.T) {
	app := validIndividualApplication()
	app.Phone = "87011234567"
	res := Application(app)
	require.False(t, res.Valid)
	require.Contains(t, res.Errors, "phone")

	app = validIndividualApplication()
	app.Source = ""
	res = Application(app)
	require.False(t, res.Valid)
	require.Contains(t, res.Errors, "source")

	app = validIndividualApplication()
	app.Email = "not-an-email"
	res = Application(app)
	require.False(t, res.Valid)
	require.Contains(t, res.Errors, "email")

	// email опционален
	app = validIndividualApplication()
	app.Email = ""
	require.True(t, Application(app).Valid)
}

func validParty() model.Party {
	return model.Party{
		Type: model.PartyTypeIndividual,
		Person: model.Person{
			FirstName: "Ayan",
			LastName:  "Tulegenov",
		},
		Phone:     "+77011234567",
		CountryID: 1,
		CityID:    5,
		Street:    "Abay",
		House:     "10",
	}
}

func TestParty(t *testing.T) {
	require.True(t, Party(validParty()).Valid)

	p := validParty()
	p.CountryID = 0
	res := Party(p)
	require.False(t, res.Valid)
	require.Contains(t, res.Errors, "country_id")

	p = validParty()
	p.CityID = 0
	res = Party(p)
	require.False(t, res.Valid)
	require.Contains(t, res.Errors, "city_id")

	p = validParty()
	p.Street = ""
	p.House = ""
	res = Party(p)
	require.False(t, res.Valid)
	require.Contains(t, res.Errors, "street")
	require.Contains(t, res.Errors, "house")

	// квартира и заметки опциональны
	p = validParty()
	p.Apartment = ""
	p.Notes = ""
	require.True(t, Party(p).Valid)

	p = validParty()
	p.Type = model.PartyTypeLegal
	p.Person = model.Person{}
	res = Party(p)
	require.False(t, res.Valid)
	require.Contains(t, res.Errors, "company_name")
	require.Contains(t, res.Errors, "bin")
	require.NotContains(t, res.Errors, "first_name")
}

func TestOrder(t *testing.T) {
	o := model.OrderDetails{
		DeliveryTypeID:   1,
		DeliveryCategory: model.DeliveryCategoryB2C,
		PackageTypeID:    2,
		Dimensions: model.Dimensions{
			Weight: decimal.RequireFromString("2.50"),
			Width:  decimal.RequireFromString("10.00"),
			Length: decimal.RequireFromString("10.00"),
			Height: decimal.RequireFromString("10.00"),
		},
	}
	require.True(t, Order(o).Valid)

	o.Dimensions.Weight = decimal.Zero
	res := Order(o)
	require.False(t, res.Valid)
	require.Contains(t, res.Errors, "weight")

	o.Dimensions.Weight = decimal.RequireFromString("-1")
	res = Order(o)
	require.False(t, res.Valid)
	require.Contains(t, res.Errors, "weight")

	o.Dimensions.Weight = decimal.RequireFromString("2.50")
	o.DeliveryCategory = "b2x"
	res = Order(o)
	require.False(t, res.Valid)
	require.Contains(t, res.Errors, "delivery_category")
}
