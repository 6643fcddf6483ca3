// Package validate is the single gate for user-supplied trigger and search
// input. The shell, the client and the backend all call it, so a request that
// fails here is never sent or stored.
package validate

import (
	"errors"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"

	"github.com/marketbasket/pricewatch/internal/apperr"
	"github.com/marketbasket/pricewatch/internal/domain"
)

const (
	msgTriggerRequired = "Item name and target price required."
	msgTargetNumber    = "Target price must be a number."
	msgTargetNegative  = "Target price cannot be negative."
	msgTargetCents     = "Target price can have at most 2 decimal places."
	msgTargetTooLarge  = "Target price is too large."
	msgZip             = "ZIP must be 5 digits."
	msgTermRequired    = "Please enter a search term."
	msgTooLong         = "Input is too long."
)

// MaxTargetPrice is the largest accepted target.
var MaxTargetPrice = decimal.RequireFromString("99999.99")

var v = validator.New(validator.WithRequiredStructEnabled())

type triggerForm struct {
	Name   string `validate:"required,max=120"`
	Target string `validate:"required"`
	Zip    string `validate:"omitempty,number,len=5"`
}

type zipForm struct {
	Zip string `validate:"omitempty,number,len=5"`
}

type searchForm struct {
	Term string `validate:"required,max=100"`
	Zip  string `validate:"omitempty,number,len=5"`
}

// TriggerPayload is the JSON body of a trigger submission. TargetPrice is a
// pointer so a missing value can be told apart from zero.
type TriggerPayload struct {
	Name        string           `json:"name"`
	TargetPrice *decimal.Decimal `json:"target_price"`
	Zip         string           `json:"zip"`
}

// Trigger validates form text as typed by a user.
func Trigger(name, target, zip string) (domain.NewTrigger, error) {
	f := triggerForm{
		Name:   strings.TrimSpace(name),
		Target: strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(target), "$")),
		Zip:    strings.TrimSpace(zip),
	}
	if err := v.Struct(f); err != nil {
		return domain.NewTrigger{}, fieldError(err)
	}
	p, err := decimal.NewFromString(f.Target)
	if err != nil {
		return domain.NewTrigger{}, &apperr.ValidationError{Field: "target_price", Reason: msgTargetNumber}
	}
	return Payload(TriggerPayload{Name: f.Name, TargetPrice: &p, Zip: f.Zip})
}

// Payload validates an already-decoded submission.
func Payload(p TriggerPayload) (domain.NewTrigger, error) {
	f := triggerForm{Name: strings.TrimSpace(p.Name), Zip: strings.TrimSpace(p.Zip)}
	if p.TargetPrice != nil {
		f.Target = p.TargetPrice.String()
	}
	if err := v.Struct(f); err != nil {
		return domain.NewTrigger{}, fieldError(err)
	}
	if p.TargetPrice.IsNegative() {
		return domain.NewTrigger{}, &apperr.ValidationError{Field: "target_price", Reason: msgTargetNegative}
	}
	// stored and compared at cent precision
	if !p.TargetPrice.Equal(p.TargetPrice.Truncate(2)) {
		return domain.NewTrigger{}, &apperr.ValidationError{Field: "target_price", Reason: msgTargetCents}
	}
	if p.TargetPrice.GreaterThan(MaxTargetPrice) {
		return domain.NewTrigger{}, &apperr.ValidationError{Field: "target_price", Reason: msgTargetTooLarge}
	}
	return domain.NewTrigger{Name: f.Name, TargetPrice: *p.TargetPrice, Zip: f.Zip}, nil
}

// Search validates a price search and returns the trimmed term and zip.
func Search(term, zip string) (string, string, error) {
	f := searchForm{Term: strings.TrimSpace(term), Zip: strings.TrimSpace(zip)}
	if err := v.Struct(f); err != nil {
		return "", "", fieldError(err)
	}
	return f.Term, f.Zip, nil
}

// Zip validates an optional ZIP on its own and returns it trimmed.
func Zip(zip string) (string, error) {
	f := zipForm{Zip: strings.TrimSpace(zip)}
	if err := v.Struct(f); err != nil {
		return "", fieldError(err)
	}
	return f.Zip, nil
}

func fieldError(err error) error {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return &apperr.ValidationError{Reason: err.Error()}
	}
	fe := verrs[0]
	switch fe.StructField() {
	case "Name", "Target":
		field := "name"
		if fe.StructField() == "Target" {
			field = "target_price"
		}
		if fe.Tag() == "max" {
			return &apperr.ValidationError{Field: field, Reason: msgTooLong}
		}
		return &apperr.ValidationError{Field: field, Reason: msgTriggerRequired}
	case "Term":
		if fe.Tag() == "max" {
			return &apperr.ValidationError{Field: "term", Reason: msgTooLong}
		}
		return &apperr.ValidationError{Field: "term", Reason: msgTermRequired}
	case "Zip":
		return &apperr.ValidationError{Field: "zip", Reason: msgZip}
	}
	return &apperr.ValidationError{Field: strings.ToLower(fe.Field()), Reason: fe.Error()}
}
