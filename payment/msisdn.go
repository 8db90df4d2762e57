package payment

import (
	goerrors "github.com/goliatone/go-errors"
	"github.com/nyaruka/phonenumbers"
)

// DefaultRegion is assumed for numbers submitted without a country code
const DefaultRegion = "KE"

// NormalizeMSISDN parses a subscriber number and returns it in E.164
// form without the leading "+", the shape the STK push API expects.
func NormalizeMSISDN(raw string) (string, error) {
	if raw == "" {
		return "", goerrors.New("phone number is required", goerrors.CategoryBadInput).
			WithTextCode("INVALID_MSISDN")
	}

	num, err := phonenumbers.Parse(raw, DefaultRegion)
	if err != nil {
		return "", goerrors.Wrap(err, goerrors.CategoryBadInput, "invalid phone number").
			WithTextCode("INVALID_MSISDN")
	}

	if !phonenumbers.IsValidNumber(num) {
		return "", goerrors.New("invalid phone number", goerrors.CategoryBadInput).
			WithTextCode("INVALID_MSISDN")
	}

	return phonenumbers.Format(num, phonenumbers.E164)[1:], nil
}
