package model

import "github.com/shopspring/decimal"

// Типы контрагентов

type PartyType string

const (
	PartyTypeIndividual PartyType = "individual"
	PartyTypeLegal      PartyType = "legal"
)

type DeliveryCategory string

const (
	DeliveryCategoryB2B DeliveryCategory = "b2b"
	DeliveryCategoryB2C DeliveryCategory = "b2c"
	DeliveryCategoryC2B DeliveryCategory = "c2b"
	DeliveryCategoryC2C DeliveryCategory = "c2c"
)

// Шаги мастера

type Step string

const (
	StepApplication Step = "application"
	StepSender      Step = "sender"
	StepOrder       Step = "order"
	StepConfirm     Step = "confirm"
	StepSubmitted   Step = "submitted"
)

type PartyRole string

const (
	RoleSender   PartyRole = "sender"
	RoleReceiver PartyRole = "receiver"
)

type Person struct {
	FirstName  string `json:"first_name"`
	LastName   string `json:"last_name"`
	Patronymic string `json:"patronymic,omitempty"`
}

type Company struct {
	Name string `json:"company_name"`
	BIN  string `json:"bin"`
}

// Application - намерение клиента, первый шаг мастера
type Application struct {
	Type     PartyType `json:"type"`
	Person   Person    `json:"person"`
	Company  Company   `json:"company"`
	Phone    string    `json:"phone"`
	Email    string    `json:"email"`
	Source   string    `json:"source"`
	ClientID string    `json:"client_id,omitempty"`
	Message  string    `json:"message,omitempty"`
}

// Party - отправитель или получатель
type Party struct {
	Type                PartyType `json:"type"`
	Person              Person    `json:"person"`
	Company             Company   `json:"company"`
	Phone               string    `json:"phone"`
	CountryID           int64     `json:"country_id"`
	CityID              int64     `json:"city_id"`
	Street              string    `json:"street"`
	House               string    `json:"house"`
	Apartment           string    `json:"apartment,omitempty"`
	LocationDescription string    `json:"location_description,omitempty"`
	Notes               string    `json:"notes,omitempty"`
	ContactID           string    `json:"contact_id,omitempty"`
}

// IsZero reports whether the party record has never been filled in.
func (p Party) IsZero() bool {
	return p == Party{}
}

// NormalizeShape clears the fields of the inactive shape: a legal party must
// not carry person fields and vice versa, even if the client sent both.
func (p *Party) NormalizeShape() {
	switch p.Type {
	case PartyTypeLegal:
		p.Person = Person{}
	default:
		p.Company = Company{}
	}
}

// NormalizeShape clears the fields of the inactive applicant shape.
func (a *Application) NormalizeShape() {
	switch a.Type {
	case PartyTypeLegal:
		a.Person = Person{}
	default:
		a.Company = Company{}
	}
}

// Dimensions - габаритный блок заказа
type Dimensions struct {
	Weight decimal.Decimal `json:"weight"`
	Width  decimal.Decimal `json:"width"`
	Length decimal.Decimal `json:"length"`
	Height decimal.Decimal `json:"height"`
}

// Complete reports whether all four dimensional inputs are present.
// The derived block is computed only for a complete set.
func (d Dimensions) Complete() bool {
	return d.Weight.IsPositive() &&
		d.Width.IsPositive() &&
		d.Length.IsPositive() &&
		d.Height.IsPositive()
}

// Equal compares dimensional blocks by numeric value.
func (d Dimensions) Equal(other Dimensions) bool {
	return d.Weight.Equal(other.Weight) &&
		d.Width.Equal(other.Width) &&
		d.Length.Equal(other.Length) &&
		d.Height.Equal(other.Height)
}

// DerivedMetrics - расчетный блок, пользователем не редактируется
type DerivedMetrics struct {
	Volume      decimal.Decimal `json:"volume"`
	PlacesCount int             `json:"places_count"`
	Price       decimal.Decimal `json:"price"`
}

// OrderDetails - параметры перевозки (без сторон, они хранятся отдельными шагами)
type OrderDetails struct {
	DeliveryTypeID     int64            `json:"delivery_type_id"`
	DeliveryCategory   DeliveryCategory `json:"delivery_category"`
	PackageTypeID      int64            `json:"package_type_id"`
	Dimensions         Dimensions       `json:"dimensions"`
	Derived            *DerivedMetrics  `json:"derived,omitempty"`
	IsInternational    bool             `json:"is_international"`
	CustomsClearance   bool             `json:"customs_clearance"`
	Content            []string         `json:"order_content,omitempty"`
	PackageDescription string           `json:"package_description,omitempty"`
	SpecialWishes      string           `json:"special_wishes,omitempty"`
}

// Draft - накопленный заказ-в-работе. Живет только в памяти сессии мастера,
// наружу уходит целиком при финальной отправке.
type Draft struct {
	Application Application  `json:"application"`
	Order       OrderDetails `json:"order"`
	Sender      Party        `json:"sender"`
	Receiver    Party        `json:"receiver"`
}

// Party returns a pointer to the sender or receiver record.
func (d *Draft) Party(role PartyRole) *Party {
	if role == RoleReceiver {
		return &d.Receiver
	}
	return &d.Sender
}
