package handlers

import (
	"errors"
	"reflect"
	"strings"
	"sync"

	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"

	"serviceshop/internal/core/types"
)

var registerOnce sync.Once

// RegisterValidations installs the ledger's binding rules on gin's validator:
// field errors are reported under their JSON names and the "money" tag
// accepts non-negative prices with at most two decimal places.
func RegisterValidations() {
	registerOnce.Do(func() {
		v, ok := binding.Validator.Engine().(*validator.Validate)
		if !ok {
			return
		}
		v.RegisterTagNameFunc(jsonName)
		v.RegisterCustomTypeFunc(func(f reflect.Value) any {
			return f.Interface().(decimal.Decimal).String()
		}, decimal.Decimal{})
		_ = v.RegisterValidation("money", validMoney)
	})
}

func jsonName(f reflect.StructField) string {
	for _, key := range []string{"json", "form"} {
		name, _, _ := strings.Cut(f.Tag.Get(key), ",")
		if name == "-" {
			return ""
		}
		if name != "" {
			return name
		}
	}
	return f.Name
}

func validMoney(fl validator.FieldLevel) bool {
	m, err := decimal.NewFromString(fl.Field().String())
	return err == nil && types.CheckPrice(fl.FieldName(), m) == nil
}

// fieldErrors maps each failing field to the rule it broke, or returns nil
// when err is not a validation failure (malformed JSON, wrong types).
func fieldErrors(err error) map[string]string {
	var ve validator.ValidationErrors
	if !errors.As(err, &ve) {
		return nil
	}
	out := make(map[string]string, len(ve))
	for _, fe := range ve {
		out[fe.Field()] = fe.Tag()
	}
	return out
}
