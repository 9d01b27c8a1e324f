package validation

import (
	"errors"
	"fmt"
	"reflect"
	"strconv"
	"strings"
	"time"

	"cmcs-claims/internal/core/domain"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
)

// MonthLayout is the YYYY-MM layout claims are filed under
const MonthLayout = "2006-01"

// Validator wraps go-playground/validator with the project rules
type Validator struct {
	v *validator.Validate
}

// New creates a validator with the custom rules registered:
//
//	yearmonth  string in YYYY-MM form
//	decimals   number with at most N decimal places
//
// decimal.Decimal fields are validated as float64 so the numeric tags
// (gt, lte, ...) apply to them.
func New() *Validator {
	v := validator.New(validator.WithRequiredStructEnabled())

	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		for _, tag := range []string{"json", "form"} {
			name := strings.SplitN(fld.Tag.Get(tag), ",", 2)[0]
			if name != "" && name != "-" {
				return name
			}
		}
		return fld.Name
	})

	v.RegisterCustomTypeFunc(func(field reflect.Value) interface{} {
		if d, ok := field.Interface().(decimal.Decimal); ok {
			return d.InexactFloat64()
		}
		return nil
	}, decimal.Decimal{})

	_ = v.RegisterValidation("yearmonth", func(fl validator.FieldLevel) bool {
		return IsYearMonth(fl.Field().String())
	})

	_ = v.RegisterValidation("decimals", func(fl validator.FieldLevel) bool {
		places, err := strconv.Atoi(fl.Param())
		if err != nil {
			return false
		}
		var d decimal.Decimal
		switch fl.Field().Kind() {
		case reflect.Float32, reflect.Float64:
			d = decimal.NewFromFloat(fl.Field().Float())
		case reflect.String:
			d, err = decimal.NewFromString(fl.Field().String())
			if err != nil {
				return false
			}
		default:
			return false
		}
		return DecimalPlaces(d) <= places
	})

	return &Validator{v: v}
}

// IsYearMonth reports whether s is a valid YYYY-MM month
func IsYearMonth(s string) bool {
	if len(s) != len(MonthLayout) {
		return false
	}
	_, err := time.Parse(MonthLayout, s)
	return err == nil
}

// DecimalPlaces returns the number of significant decimal places in d
func DecimalPlaces(d decimal.Decimal) int {
	s := d.String()
	i := strings.IndexByte(s, '.')
	if i < 0 {
		return 0
	}
	return len(strings.TrimRight(s[i+1:], "0"))
}

// Struct validates input and returns the failed fields, or nil
func (val *Validator) Struct(input interface{}) []domain.FieldError {
	err := val.v.Struct(input)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return []domain.FieldError{{Field: "input", Message: err.Error()}}
	}

	fields := make([]domain.FieldError, 0, len(verrs))
	for _, fe := range verrs {
		fields = append(fields, domain.FieldError{
			Field:   fe.Field(),
			Message: message(fe),
		})
	}
	return fields
}

func message(fe validator.FieldError) string {
	label := humanize(fe.Field())
	isString := fe.Kind() == reflect.String

	switch fe.Tag() {
	case "required":
		return label + " is required"
	case "email":
		return label + " must be a valid email address"
	case "yearmonth":
		return label + " must be in YYYY-MM format"
	case "decimals":
		return fmt.Sprintf("%s can have at most %s decimal places", label, fe.Param())
	case "oneof":
		return fmt.Sprintf("%s must be one of: %s", label, fe.Param())
	case "min":
		if isString {
			return fmt.Sprintf("%s must be at least %s characters", label, fe.Param())
		}
		return fmt.Sprintf("%s must be at least %s", label, fe.Param())
	case "max":
		if isString {
			return fmt.Sprintf("%s cannot exceed %s characters", label, fe.Param())
		}
		return fmt.Sprintf("%s cannot exceed %s", label, fe.Param())
	case "gt":
		return fmt.Sprintf("%s must be greater than %s", label, fe.Param())
	case "gte":
		return fmt.Sprintf("%s must be at least %s", label, fe.Param())
	case "lte":
		return fmt.Sprintf("%s cannot exceed %s", label, fe.Param())
	default:
		return label + " is invalid"
	}
}

// humanize turns hours_worked into "Hours worked"
func humanize(field string) string {
	s := strings.ReplaceAll(field, "_", " ")
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
