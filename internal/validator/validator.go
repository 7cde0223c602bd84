package validator

import (
	"fmt"
	"reflect"
	"regexp"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/metinatakli/design-storefront/internal/domain"
)

var (
	currencyRgx      = regexp.MustCompile(`^[A-Za-z]{3}$`)
	paymentMethodRgx = regexp.MustCompile(`^pm_[A-Za-z0-9_]+$`)
)

func NewValidator() *validator.Validate {
	validator := validator.New(validator.WithRequiredStructEnabled())

	// report fields by their json name
	validator.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name, _, _ := strings.Cut(fld.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})

	validator.RegisterValidation("product_type", validateProductType)
	validator.RegisterValidation("currency", validateCurrency)
	validator.RegisterValidation("payment_method", validatePaymentMethod)

	return validator
}

func validateProductType(fl validator.FieldLevel) bool {
	switch v := fl.Field().Interface().(type) {
	case domain.ProductType:
		return v.Valid()
	case string:
		return domain.ProductType(v).Valid()
	default:
		return false
	}
}

func validateCurrency(fl validator.FieldLevel) bool {
	return currencyRgx.MatchString(fl.Field().String())
}

func validatePaymentMethod(fl validator.FieldLevel) bool {
	return paymentMethodRgx.MatchString(strings.TrimSpace(fl.Field().String()))
}

// ValidationMessage converts validator errors into readable messages
func ValidationMessage(err validator.FieldError) string {
	switch err.Tag() {
	case "required":
		return "is required"
	case "required_if":
		return "is required for this purchase type"
	case "min":
		return fmt.Sprintf("must be at least %s characters long", err.Param())
	case "max":
		return fmt.Sprintf("must be at most %s characters long", err.Param())
	case "product_type":
		return "must be one of design, course or subscription"
	case "currency":
		return "must be a three letter ISO 4217 currency code"
	case "payment_method":
		return "must be a payment method id starting with pm_"
	default:
		return "is invalid"
	}
}
