package taxjar

import (
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/go-playground/validator/v10"
)

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterStructValidation(orderStructLevel, OrderParams{})
	return v
}

// orderStructLevel enforces the destination fields the API needs per country.
func orderStructLevel(sl validator.StructLevel) {
	params, ok := sl.Current().Interface().(OrderParams)
	if !ok {
		return
	}
	country := strings.ToUpper(params.CountryCode)
	if country == "US" && strings.TrimSpace(params.PostalCode) == "" {
		sl.ReportError(params.PostalCode, "PostalCode", "postal_code", "required_for_country", country)
	}
	if (country == "US" || country == "CA") && strings.TrimSpace(params.RegionCode) == "" {
		sl.ReportError(params.RegionCode, "RegionCode", "region_code", "required_for_country", country)
	}
	if strings.TrimSpace(params.Shipping.Currency) == "" {
		sl.ReportError(params.Shipping.Currency, "Shipping", "shipping", "currency", "")
	}
}

func describeValidation(err error) string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err.Error()
	}
	parts := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		msg := fe.Namespace() + " failed " + fe.Tag()
		if fe.Param() != "" {
			msg += "=" + fe.Param()
		}
		parts = append(parts, msg)
	}
	return strings.Join(parts, "; ")
}
