// Package validation implements the field-dependent validation engine.
// Rules are scoped to one wizard step and selected by the party type
// discriminator: the individual shape and the legal shape require
// different field sets, and the inactive shape is ignored entirely.
package validation

import (
	"github.com/go-playground/validator/v10"

	"github.com/kargopost/orderwizard/internal/model"
)

var validate *validator.Validate

func init() {
	validate = validator.New()
}

// Result - построчный результат проверки шага
type Result struct {
	Valid  bool              `json:"valid"`
	Errors map[string]string `json:"errors,omitempty"`
}

func newResult() Result {
	return Result{Valid: true, Errors: map[string]string{}}
}

func (r *Result) fail(field, message string) {
	r.Valid = false
	if _, ok := r.Errors[field]; !ok {
		r.Errors[field] = message
	}
}

// Fail records an additional field-scoped error, for rules that depend on
// session state (such as city/country consistency) rather than the record
// alone.
func (r *Result) Fail(field, message string) {
	if r.Errors == nil {
		r.Errors = map[string]string{}
	}
	r.fail(field, message)
}

// check runs a validator tag expression against a single value and records
// a field-scoped error on failure.
func (r *Result) check(field string, value any, tag, message string) {
	if err := validate.Var(value, tag); err != nil {
		r.fail(field, message)
	}
}

// Application validates the first wizard step.
func Application(a model.Application) Result {
	r := newResult()

	switch a.Type {
	case model.PartyTypeIndividual:
		r.check("first_name", a.Person.FirstName, "required", "first name is required")
		r.check("last_name", a.Person.LastName, "required", "last name is required")
	case model.PartyTypeLegal:
		r.check("company_name", a.Company.Name, "required", "company name is required")
		r.check("bin", a.Company.BIN, "required,len=12,number", "bin must be exactly 12 digits")
	default:
		r.fail("type", "applicant type must be individual or legal")
	}

	r.check("phone", a.Phone, "required,e164", "phone must be a valid phone number")
	if a.Email != "" {
		r.check("email", a.Email, "email", "email is malformed")
	}
	r.check("source", a.Source, "required", "source channel is required")

	return r
}

// Party validates a sender or receiver step.
func Party(p model.Party) Result {
	r := newResult()

	switch p.Type {
	case model.PartyTypeIndividual:
		r.check("first_name", p.Person.FirstName, "required", "first name is required")
		r.check("last_name", p.Person.LastName, "required", "last name is required")
	case model.PartyTypeLegal:
		r.check("company_name", p.Company.Name, "required", "company name is required")
		r.check("bin", p.Company.BIN, "required,len=12,number", "bin must be exactly 12 digits")
	default:
		r.fail("type", "party type must be individual or legal")
	}

	r.check("phone", p.Phone, "required,e164", "phone must be a valid phone number")
	r.check("country_id", p.CountryID, "required", "country is required")
	r.check("city_id", p.CityID, "required", "city is required")
	r.check("street", p.Street, "required", "street is required")
	r.check("house", p.House, "required", "house is required")

	return r
}

// Order validates the shipment-parameters step. The derived block is not
// checked here: its presence is enforced at submission time, not per step.
func Order(o model.OrderDetails) Result {
	r := newResult()

	r.check("delivery_type_id", o.DeliveryTypeID, "required", "delivery type is required")
	r.check("package_type_id", o.PackageTypeID, "required", "package type is required")
	r.check("delivery_category", string(o.DeliveryCategory), "required,oneof=b2b b2c c2b c2c", "delivery category must be one of b2b b2c c2b c2c")

	d := o.Dimensions
	if !d.Weight.IsPositive() {
		r.fail("weight", "weight must be a positive number")
	}
	if !d.Width.IsPositive() {
		r.fail("width", "width must be a positive number")
	}
	if !d.Length.IsPositive() {
		r.fail("length", "length must be a positive number")
	}
	if !d.Height.IsPositive() {
		r.fail("height", "height must be a positive number")
	}

	return r
}
